// Package cluster groups the residual uncategorized posts into
// suggested canonical titles via three successive matchers — fingerprint
// containment, n-gram Jaccard, and normalized edit-distance similarity —
// and exposes the pending/accepted/dismissed review state machine.
package cluster

import (
	"sort"
	"strings"

	"github.com/agext/levenshtein"
	"github.com/google/uuid"

	"github.com/threadtally/threadtally/internal/normalize"
	"github.com/threadtally/threadtally/internal/types"
)

// Method identifies which matcher produced a suggestion.
type Method string

const (
	MethodFingerprint Method = "fingerprint"
	MethodNgram       Method = "ngram"
	MethodLevenshtein Method = "levenshtein"
)

// Config tunes the acceptance thresholds named in spec.md §4.7.
type Config struct {
	NgramThreshold       float64 // default 0.5
	LevenshteinThreshold float64 // default 0.8
	MinScore             float64 // default 0.4
}

// DefaultConfig matches the defaults spec.md §4.7 names.
func DefaultConfig() Config {
	return Config{NgramThreshold: 0.5, LevenshteinThreshold: 0.8, MinScore: 0.4}
}

// Status is the suggestion's place in the user-facing review state
// machine.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusDismissed Status = "dismissed"
)

// Suggestion is one cluster of residual posts proposed around a
// canonical title.
type Suggestion struct {
	ID             string
	SuggestedTitle string
	PostURIs       []string
	AverageScore   float64
	Method         Method
	Status         Status
}

type postScore struct {
	uri   string
	score float64
}

// Suggester runs the matcher cascade and maintains accept/dismiss state
// across suggestion passes.
type Suggester struct {
	cfg       Config
	dismissed map[string]struct{} // suggested title -> dismissed
}

// New creates a Suggester.
func New(cfg Config) *Suggester {
	return &Suggester{cfg: cfg, dismissed: make(map[string]struct{})}
}

// Suggest implements suggest(uncategorizedPosts, canonicalTitles) ->
// clusterSuggestion[]: every post is matched against every canonical
// title by the matcher cascade (first hit wins), matches are grouped by
// suggested title, and groups below MinScore or previously dismissed
// are discarded.
func (s *Suggester) Suggest(posts []*types.Post, titles []types.CanonicalTitle) []Suggestion {
	byTitle := make(map[string][]postScore)
	methodByTitle := make(map[string]Method)
	var order []string

	for _, p := range posts {
		title, score, method, ok := s.bestMatch(p, titles)
		if !ok {
			continue
		}
		if _, exists := byTitle[title]; !exists {
			order = append(order, title)
			methodByTitle[title] = method
		}
		byTitle[title] = append(byTitle[title], postScore{uri: p.URI, score: score})
	}

	var out []Suggestion
	for _, title := range order {
		if _, dismissed := s.dismissed[title]; dismissed {
			continue
		}
		scores := byTitle[title]
		var sum float64
		uris := make([]string, 0, len(scores))
		for _, ps := range scores {
			sum += ps.score
			uris = append(uris, ps.uri)
		}
		avg := sum / float64(len(scores))
		if avg < s.cfg.MinScore {
			continue
		}
		out = append(out, Suggestion{
			ID:             uuid.NewString(),
			SuggestedTitle: title,
			PostURIs:       uris,
			AverageScore:   avg,
			Method:         methodByTitle[title],
			Status:         StatusPending,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if len(out[i].PostURIs) != len(out[j].PostURIs) {
			return len(out[i].PostURIs) > len(out[j].PostURIs)
		}
		return out[i].AverageScore > out[j].AverageScore
	})
	return out
}

// bestMatch runs the per-post matcher cascade, first hit wins.
func (s *Suggester) bestMatch(post *types.Post, titles []types.CanonicalTitle) (string, float64, Method, bool) {
	postFP := normalize.Fingerprint(post.Text)

	for _, title := range titles {
		if normalize.Contains(postFP, title.Fingerprint) {
			return title.Title, 1.0, MethodFingerprint, true
		}
	}

	bestTitle := ""
	bestScore := 0.0
	for _, title := range titles {
		if len(title.Title) < 6 {
			continue
		}
		score := ngramJaccard(post.Text, title.Title)
		if score >= s.cfg.NgramThreshold && score > bestScore {
			bestScore = score
			bestTitle = title.Title
		}
	}
	if bestTitle != "" {
		return bestTitle, bestScore, MethodNgram, true
	}

	bestTitle = ""
	bestScore = 0.0
	for _, title := range titles {
		score := levenshteinSimilarity(post.Text, title.Title)
		if score >= s.cfg.LevenshteinThreshold && score > bestScore {
			bestScore = score
			bestTitle = title.Title
		}
	}
	if bestTitle != "" {
		return bestTitle, bestScore, MethodLevenshtein, true
	}

	return "", 0, "", false
}

// ngramJaccard computes the Jaccard similarity of the two strings'
// lowercased, whitespace-free bigram sets.
func ngramJaccard(a, b string) float64 {
	ga := bigrams(a)
	gb := bigrams(b)
	if len(ga) == 0 || len(gb) == 0 {
		return 0
	}
	intersection := 0
	for g := range ga {
		if gb[g] {
			intersection++
		}
	}
	union := len(ga) + len(gb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func bigrams(s string) map[string]bool {
	clean := strings.ToLower(strings.Join(strings.Fields(s), ""))
	out := make(map[string]bool)
	for i := 0; i+1 < len(clean); i++ {
		out[clean[i:i+2]] = true
	}
	return out
}

// levenshteinSimilarity computes 1 - distance/max(len(a), len(b)) using
// the same edit-distance implementation the rest of the ecosystem reaches
// for (agext/levenshtein).
func levenshteinSimilarity(a, b string) float64 {
	al, bl := strings.ToLower(a), strings.ToLower(b)
	maxLen := len(al)
	if len(bl) > maxLen {
		maxLen = len(bl)
	}
	if maxLen == 0 {
		return 1
	}
	dist := levenshtein.Distance(al, bl, nil)
	return 1 - float64(dist)/float64(maxLen)
}

// Accept marks the suggestion accepted. It reassigns no posts; applying
// the cluster's posts to the suggested title is left to the caller.
func (s *Suggester) Accept(sug *Suggestion) {
	sug.Status = StatusAccepted
}

// Dismiss removes a suggested title from consideration in subsequent
// Suggest passes until the analysis is reset.
func (s *Suggester) Dismiss(sug *Suggestion) {
	sug.Status = StatusDismissed
	s.dismissed[sug.SuggestedTitle] = struct{}{}
}

// Reset clears all dismissed-title state, per the abstract state
// machine's "until the analysis is reset" clause.
func (s *Suggester) Reset() {
	s.dismissed = make(map[string]struct{})
}
