// Package normalize validates raw extracted candidates against a
// canonical identity under one of three caller-chosen policies, then
// folds near-duplicate canonical titles together via substring-merge.
package normalize

import (
	"context"
	"log/slog"

	"github.com/threadtally/threadtally/internal/types"
)

// Policy identifies which of the three normalization strategies a run
// uses.
type Policy string

const (
	PolicyCatalog  Policy = "catalog"
	PolicyUserList Policy = "user_list"
	PolicySelf     Policy = "self_validation"
)

// Normalizer runs one of the three policies over a run's candidate set
// and folds the result through substring-merge.
type Normalizer struct {
	policy   Policy
	catalog  *CatalogClient
	entries  []ListEntry
	rootText string
	logger   *slog.Logger
}

// NewCatalogNormalizer builds a Normalizer backed by an external
// validation service (policy A).
func NewCatalogNormalizer(client *CatalogClient, logger *slog.Logger) *Normalizer {
	return &Normalizer{policy: PolicyCatalog, catalog: client, logger: logger.With("component", "normalizer")}
}

// NewUserListNormalizer builds a Normalizer backed by a caller-supplied
// allow-list (policy B).
func NewUserListNormalizer(entries []ListEntry, logger *slog.Logger) *Normalizer {
	return &Normalizer{policy: PolicyUserList, entries: entries, logger: logger.With("component", "normalizer")}
}

// NewSelfValidatingNormalizer builds a Normalizer with no external truth
// source (policy C); rootPrompt is the root post's text.
func NewSelfValidatingNormalizer(rootPrompt string, logger *slog.Logger) *Normalizer {
	return &Normalizer{policy: PolicySelf, rootText: rootPrompt, logger: logger.With("component", "normalizer")}
}

// Normalize runs the configured policy over candidates and posts, then
// applies substring-merge, returning the final canonical groups.
func (n *Normalizer) Normalize(ctx context.Context, candidates []types.Candidate, posts []*types.Post) ([]Group, error) {
	postsByURI := make(map[string]*types.Post, len(posts))
	for _, p := range posts {
		postsByURI[p.URI] = p
	}

	var groups []Group
	switch n.policy {
	case PolicyCatalog:
		surfaces := make([]string, 0, len(candidates))
		for _, c := range candidates {
			surfaces = append(surfaces, c.Surface)
		}
		results, err := n.catalog.Validate(ctx, surfaces)
		if err != nil {
			return nil, err
		}
		groups = GroupCatalogResults(candidates, results, postsByURI)

	case PolicyUserList:
		groups = MatchUserList(n.entries, posts)

	case PolicySelf:
		groups = SelfValidate(n.rootText, candidates, postsByURI)

	default:
		n.logger.Warn("unknown normalization policy, returning no groups", "policy", n.policy)
	}

	return SubstringMerge(groups), nil
}
