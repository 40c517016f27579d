package normalize

import (
	"regexp"
	"sort"
	"strings"

	"github.com/threadtally/threadtally/internal/types"
)

var (
	articleRe    = regexp.MustCompile(`(?i)^(the|a|an)\s+`)
	fpPunctRe    = regexp.MustCompile(`[^\w\s]`)
	leadingArtRe = regexp.MustCompile(`(?i)\b(the|a|an)\b`)
)

var stopWords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "of": {}, "and": {}, "in": {}, "on": {}, "to": {},
}

// NormalizeForm lowercases, strips a leading article, strips punctuation,
// and collapses whitespace — the comparison key used throughout
// normalization and substring-merge.
func NormalizeForm(s string) string {
	s = strings.TrimSpace(s)
	s = articleRe.ReplaceAllString(s, "")
	s = fpPunctRe.ReplaceAllString(s, "")
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return s
}

// Fingerprint builds the order-independent token identity of a title:
// lowercased, punctuation-stripped, tokenized, stop words and articles
// removed, tokens de-duplicated and sorted.
func Fingerprint(title string) types.Fingerprint {
	cleaned := fpPunctRe.ReplaceAllString(strings.ToLower(title), " ")
	fields := strings.Fields(cleaned)

	seen := make(map[string]struct{})
	var tokens []string
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		tokens = append(tokens, f)
	}
	sort.Strings(tokens)
	return types.Fingerprint{Tokens: tokens}
}

// Contains reports whether every token of sub is present in super
// (order-independent containment, used by the cluster suggester's
// fingerprint-containment match).
func Contains(super, sub types.Fingerprint) bool {
	set := make(map[string]struct{}, len(super.Tokens))
	for _, t := range super.Tokens {
		set[t] = struct{}{}
	}
	for _, t := range sub.Tokens {
		if _, ok := set[t]; !ok {
			return false
		}
	}
	return true
}

// ArticleStripped removes a single leading article, for building the
// canonical surface form.
func ArticleStripped(s string) string {
	return strings.TrimSpace(articleRe.ReplaceAllString(s, ""))
}
