// Package attribution computes, for every post, the set of canonical
// titles it contributes to, and produces the final ranked tally plus the
// uncategorized residual.
package attribution

import (
	"sort"
	"strings"

	"github.com/threadtally/threadtally/internal/normalize"
	"github.com/threadtally/threadtally/internal/types"
)

// PhraseTable guards single-word titles against false-positive matches:
// a listed word's title is dropped for a post when every occurrence of
// the word there is covered by one of its known multi-word phrases; any
// standalone occurrence keeps the title. Hand-maintained,
// entries added only when a specific single-word title proved noisy
// against real corpora.
var PhraseTable = map[string][]string{
	"red":  {"red october", "for red", "red dragon"},  // common adjective, not a title on its own
	"up":   {"pixar up", "up movie"},                  // preposition collision
	"it":   {"it chapter", "stephen king's it"},        // pronoun collision
	"her":  {"her 2013", "spike jonze's her"},          // pronoun collision
	"them": {"them tv"},                                // pronoun collision
}

// titleEntry is the per-title precomputed search-term set used during
// attribution.
type titleEntry struct {
	title       string
	canonical   string   // normalizeAmp(title) — the title's own form, as opposed to a derived alias/prefix
	searchTerms []string // longest first
}

// buildEntries computes each canonical title's search terms: its
// canonical form, its validated aliases, and — for colon-subtitled
// titles — the pre-colon prefix when it qualifies (>= 2 words or >= 10
// chars).
func buildEntries(groups []normalize.Group) []titleEntry {
	entries := make([]titleEntry, 0, len(groups))
	for _, g := range groups {
		canonical := normalizeAmp(g.Title)
		terms := []string{canonical}
		for _, a := range g.Aliases {
			terms = append(terms, normalizeAmp(a))
		}
		if idx := strings.Index(g.Title, ":"); idx > 0 {
			prefix := strings.TrimSpace(g.Title[:idx])
			if len(strings.Fields(prefix)) >= 2 || len(prefix) >= 10 {
				terms = append(terms, normalizeAmp(prefix))
			}
		}
		sort.Slice(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })
		entries = append(entries, titleEntry{title: g.Title, canonical: canonical, searchTerms: terms})
	}
	return entries
}

func normalizeAmp(s string) string {
	return strings.ToLower(strings.ReplaceAll(s, "&", "and"))
}

// matchInfo records, for one post, every title it matched plus the
// longest search term that matched it.
type matchInfo struct {
	title       string
	longestHit  string
	isCanonical bool // longestHit equals the title's own canonical form, not a derived alias/prefix
}

// Attribute implements the counter & attributor contract: given the post
// list and the canonical titles surviving normalization/merge, returns
// the ranked tally and the uncategorized residual (excluding the root).
func Attribute(posts []*types.Post, groups []normalize.Group, rootURI string) types.AnalysisResult {
	entries := buildEntries(groups)
	postsByTitle := make(map[string][]*types.Post)
	var titleOrder []string
	firstSeen := make(map[string]int)

	var uncategorized []*types.Post

	for _, p := range posts {
		matches := matchedSet(p.Text, entries)
		matches = dropSamePostGeneralizations(matches)
		matches = applyPhraseTableGuard(p.Text, matches)

		if len(matches) == 0 {
			if p.URI != rootURI {
				uncategorized = append(uncategorized, p)
			}
			continue
		}

		for _, m := range matches {
			if _, seen := firstSeen[m.title]; !seen {
				firstSeen[m.title] = len(titleOrder)
				titleOrder = append(titleOrder, m.title)
			}
			postsByTitle[m.title] = append(postsByTitle[m.title], p)
		}
	}

	tally := make([]types.TallyEntry, 0, len(titleOrder))
	for _, title := range titleOrder {
		tally = append(tally, types.TallyEntry{
			Title:             title,
			Count:             len(postsByTitle[title]),
			ContributingPosts: postsByTitle[title],
		})
	}

	sort.SliceStable(tally, func(i, j int) bool {
		if tally[i].Count != tally[j].Count {
			return tally[i].Count > tally[j].Count
		}
		fi, fj := firstSeen[tally[i].Title], firstSeen[tally[j].Title]
		if fi != fj {
			return fi < fj
		}
		return len(tally[i].Title) < len(tally[j].Title)
	})

	var root *types.Post
	for _, p := range posts {
		if p.URI == rootURI {
			root = p
			break
		}
	}

	return types.AnalysisResult{
		Tally:         tally,
		Uncategorized: uncategorized,
		PostCount:     len(posts),
		RootPost:      root,
	}
}

// matchedSet computes step 1: every canonical title whose search terms
// appear in text under word-boundary matching, keeping the longest
// matching search term per title.
func matchedSet(text string, entries []titleEntry) []matchInfo {
	lower := normalizeAmp(text)
	var out []matchInfo
	for _, e := range entries {
		var longest string
		for _, term := range e.searchTerms {
			if term == "" {
				continue
			}
			if normalize.WordBoundaryIndex(lower, term) >= 0 {
				longest = term // searchTerms is sorted longest-first
				break
			}
		}
		if longest != "" {
			out = append(out, matchInfo{title: e.title, longestHit: longest, isCanonical: longest == e.canonical})
		}
	}
	return out
}

// dropSamePostGeneralizations implements step 2: for matched title M
// with longest term t_M, drop M if some other matched title M' has a
// longer search term t_M' that contains t_M. When two titles tie on hit
// length with the identical matched text (a colon-subtitled title's
// derived pre-colon prefix colliding with a sibling plain title's own
// canonical form, e.g. "Top Gun" vs "Top Gun: Maverick" both hitting
// "top gun"), prefer the title whose hit is its own canonical form over
// the one matched only via a derived alias/prefix — otherwise a post
// that only names the generic prefix would double-count into the
// subtitled title too.
func dropSamePostGeneralizations(matches []matchInfo) []matchInfo {
	var out []matchInfo
	for _, m := range matches {
		generalized := false
		for _, other := range matches {
			if other.title == m.title {
				continue
			}
			if len(other.longestHit) > len(m.longestHit) && strings.Contains(other.longestHit, m.longestHit) {
				generalized = true
				break
			}
			if len(other.longestHit) == len(m.longestHit) && other.longestHit == m.longestHit &&
				other.isCanonical && !m.isCanonical {
				generalized = true
				break
			}
		}
		if !generalized {
			out = append(out, m)
		}
	}
	return out
}

// applyPhraseTableGuard implements step 3: for single-word matched
// titles present in PhraseTable, drop the title if every occurrence of
// the word in the post is covered by one of the table's phrases and the
// word never appears standalone.
func applyPhraseTableGuard(text string, matches []matchInfo) []matchInfo {
	lower := normalizeAmp(text)
	var out []matchInfo
	for _, m := range matches {
		if strings.Contains(m.longestHit, " ") {
			out = append(out, m)
			continue
		}
		phrases, guarded := PhraseTable[m.longestHit]
		if !guarded {
			out = append(out, m)
			continue
		}
		if allOccurrencesCovered(lower, m.longestHit, phrases) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// allOccurrencesCovered reports whether every standalone word-boundary
// occurrence of word in text falls within one of phrases.
func allOccurrencesCovered(text, word string, phrases []string) bool {
	positions := allWordPositions(text, word)
	if len(positions) == 0 {
		return false
	}
	for _, pos := range positions {
		covered := false
		for _, phrase := range phrases {
			for _, ppos := range allWordPositions(text, phrase) {
				if pos >= ppos && pos < ppos+len(phrase) {
					covered = true
					break
				}
			}
			if covered {
				break
			}
		}
		if !covered {
			return false
		}
	}
	return true
}

func allWordPositions(text, term string) []int {
	var positions []int
	from := 0
	for {
		idx := normalize.WordBoundaryIndex(text[from:], term)
		if idx < 0 {
			return positions
		}
		positions = append(positions, from+idx)
		from = from + idx + len(term)
	}
}
