package normalize

import (
	"regexp"
	"strings"

	"github.com/threadtally/threadtally/internal/types"
)

var favoriteAdjectives = map[string]struct{}{
	"favorite": {}, "favourite": {}, "go-to": {}, "worst": {}, "best": {}, "all-time": {}, "current": {},
}

var functionWords = map[string]struct{}{
	"is": {}, "was": {}, "right": {}, "now": {}, "rn": {}, "that": {}, "you": {}, "u": {},
	"the": {}, "a": {}, "an": {}, "of": {}, "to": {}, "and": {}, "or": {},
}

// stopSet covers generic adjectives, discourse markers, directions,
// demonyms, and short generic nouns excluded from self-validated
// candidates per the self-validation policy's normalized-form checks.
var stopSet = map[string]struct{}{
	"good": {}, "bad": {}, "great": {}, "best": {}, "worst": {}, "favorite": {}, "favourite": {},
	"honestly": {}, "literally": {}, "basically": {}, "actually": {}, "tbh": {}, "imo": {}, "imho": {},
	"up": {}, "down": {}, "left": {}, "right": {}, "north": {}, "south": {}, "east": {}, "west": {},
	"american": {}, "british": {}, "canadian": {}, "japanese": {}, "french": {}, "german": {},
	"show": {}, "movie": {}, "film": {}, "series": {}, "thing": {}, "one": {}, "stuff": {},
}

// trailingDiscourseWords are repetition/agreement markers that can
// trail an otherwise-clean candidate ("sailor moon again", "regular
// show too") without naming a different title. Stripped from the end of
// a candidate's normalized form before bucketing so such variants
// collapse onto the shorter canonical form rather than spawning their
// own, longer-titled group.
var trailingDiscourseWords = map[string]struct{}{
	"again": {}, "too": {}, "also": {}, "as": {}, "well": {},
	"fr": {}, "frfr": {}, "rn": {}, "now": {},
	"tbh": {}, "imo": {}, "imho": {},
}

var wordSplitRe = regexp.MustCompile(`\s+`)

// stripTrailingDiscourse removes one or more trailing discourse/
// repetition tokens from norm, always leaving at least one token, so
// "sailor moon again" reduces to "sailor moon" but a candidate that is
// nothing but discourse words is left untouched.
func stripTrailingDiscourse(norm string) string {
	tokens := strings.Fields(norm)
	end := len(tokens)
	for end > 1 {
		if _, ok := trailingDiscourseWords[tokens[end-1]]; !ok {
			break
		}
		end--
	}
	return strings.Join(tokens[:end], " ")
}

// CategoryWords parses the root post's prompt for the one to three
// content words following "your" and any optional favorite/go-to/worst-
// style adjectives, stopping at the first function word.
func CategoryWords(prompt string) []string {
	lower := strings.ToLower(prompt)
	idx := strings.Index(lower, "your ")
	if idx < 0 {
		return nil
	}
	rest := wordSplitRe.Split(strings.TrimSpace(lower[idx+len("your "):]), -1)

	var words []string
	for _, w := range rest {
		clean := strings.Trim(w, ".,!?;:\"'")
		if clean == "" {
			continue
		}
		if _, isAdj := favoriteAdjectives[clean]; isAdj {
			continue
		}
		if _, isFunc := functionWords[clean]; isFunc {
			break
		}
		words = append(words, clean)
		if len(words) == 3 {
			break
		}
	}
	return words
}

// singularize is a minimal plural-stripping heuristic sufficient for
// matching a candidate's normalized form against a category word's
// singular/plural variants.
func singularize(s string) string {
	switch {
	case strings.HasSuffix(s, "ies") && len(s) > 3:
		return s[:len(s)-3] + "y"
	case strings.HasSuffix(s, "es") && len(s) > 2:
		return s[:len(s)-2]
	case strings.HasSuffix(s, "s") && len(s) > 1:
		return s[:len(s)-1]
	}
	return s
}

// SelfValidate implements policy C: filters candidates against the
// root prompt's category words and a generic stop-set, then groups
// survivors by normalized form, choosing the most-common Title-Cased,
// article-stripped representative (ties broken by shortest length).
func SelfValidate(rootPrompt string, candidates []types.Candidate, postsByURI map[string]*types.Post) []Group {
	categoryWords := make(map[string]struct{})
	for _, w := range CategoryWords(rootPrompt) {
		categoryWords[w] = struct{}{}
		categoryWords[singularize(w)] = struct{}{}
	}

	type bucket struct {
		surfaceCounts map[string]int
		posts         []*types.Post
		seenURIs      map[string]bool
	}
	buckets := make(map[string]*bucket)
	var order []string

	for _, cand := range candidates {
		if wordCount(cand.Surface) > 5 {
			continue
		}
		norm := NormalizeForm(cand.Surface)
		if len(norm) < 3 {
			continue
		}
		if _, isCategory := categoryWords[norm]; isCategory {
			continue
		}
		if _, isCategory := categoryWords[singularize(norm)]; isCategory {
			continue
		}
		if allTokensStopped(norm) {
			continue
		}

		p, ok := postsByURI[cand.PostURI]
		if !ok {
			continue
		}

		key := stripTrailingDiscourse(norm)
		b, exists := buckets[key]
		if !exists {
			b = &bucket{surfaceCounts: make(map[string]int), seenURIs: make(map[string]bool)}
			buckets[key] = b
			order = append(order, key)
		}
		b.surfaceCounts[cand.Surface]++
		if !b.seenURIs[p.URI] {
			b.seenURIs[p.URI] = true
			b.posts = append(b.posts, p)
		}
	}

	out := make([]Group, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		out = append(out, Group{Title: canonicalSurface(b.surfaceCounts), Posts: b.posts})
	}
	return out
}

func allTokensStopped(norm string) bool {
	for _, tok := range strings.Fields(norm) {
		if _, stopped := stopSet[tok]; !stopped {
			return false
		}
	}
	return len(norm) > 0
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}

// canonicalSurface picks the most frequent surface form, Title-Casing
// and article-stripping it, with ties broken by shortest length.
func canonicalSurface(counts map[string]int) string {
	var best string
	bestCount := -1
	for surface, n := range counts {
		candidate := ArticleStripped(titleCase(surface))
		if n > bestCount || (n == bestCount && len(candidate) < len(ArticleStripped(titleCase(best)))) {
			best = surface
			bestCount = n
		}
	}
	return ArticleStripped(titleCase(best))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
