package normalize

import (
	"regexp"
	"strings"

	"github.com/threadtally/threadtally/internal/types"
)

// ListEntry is one caller-supplied canonical title with its match
// patterns, used by the user-supplied-list normalization policy.
type ListEntry struct {
	Title    string
	Patterns []string

	// CommonWordCollision flags titles whose patterns are common enough
	// words that a bare substring match is unreliable ("Friends", "It").
	// Such titles require the ambiguity guard to pass before counting.
	CommonWordCollision bool

	// SubsumesGeneric names a more generic title this entry replaces
	// (pattern-set refinement): whenever this entry matches a post, the
	// generic title is not counted for that post. Whether the text also
	// names the generic form on its own is not checked.
	SubsumesGeneric string
}

var (
	numberedListRe = regexp.MustCompile(`(?m)(^|\s)([0-9]{1,2}[.)]|#[0-9]{1,2})(\s|$)`)
	hashtagCtxRe   = regexp.MustCompile(`#\w+`)
)

var mediaContextWords = map[string]struct{}{
	"song": {}, "album": {}, "track": {}, "show": {}, "series": {}, "movie": {}, "film": {}, "season": {}, "episode": {},
}

// MatchUserList implements policy B: case-insensitive substring
// matching (word-boundary enforced for patterns of 5 chars or fewer),
// the ambiguity guard for common-word collisions, and the specific-
// subsumes-generic refinement.
func MatchUserList(entries []ListEntry, posts []*types.Post) []Group {
	byTitle := make(map[string]*Group)
	var order []string

	for _, p := range posts {
		lower := strings.ToLower(p.Text)
		lower = strings.ReplaceAll(lower, "&", "and")

		var matchedHere []string
		for _, e := range entries {
			if !matchesAnyPattern(lower, e.Patterns) {
				continue
			}
			if e.CommonWordCollision && !ambiguityGuardPasses(p.Text, lower, e.Patterns) {
				continue
			}
			matchedHere = append(matchedHere, e.Title)
		}

		// pattern-set refinement: drop the generic title for this post if
		// a specific title that subsumes it also matched here.
		subsumed := make(map[string]bool)
		for _, e := range entries {
			if e.SubsumesGeneric == "" {
				continue
			}
			if containsTitle(matchedHere, e.Title) {
				subsumed[e.SubsumesGeneric] = true
			}
		}

		for _, title := range matchedHere {
			if subsumed[title] {
				continue
			}
			g, exists := byTitle[title]
			if !exists {
				g = &Group{Title: title}
				byTitle[title] = g
				order = append(order, title)
			}
			if !containsPost(g.Posts, p.URI) {
				g.Posts = append(g.Posts, p)
			}
		}
	}

	out := make([]Group, 0, len(order))
	for _, t := range order {
		out = append(out, *byTitle[t])
	}
	return out
}

func containsTitle(titles []string, title string) bool {
	for _, t := range titles {
		if t == title {
			return true
		}
	}
	return false
}

func matchesAnyPattern(lowerText string, patterns []string) bool {
	for _, pat := range patterns {
		p := strings.ToLower(pat)
		if len(p) <= 5 {
			if WordBoundaryIndex(lowerText, p) >= 0 {
				return true
			}
			continue
		}
		if strings.Contains(lowerText, p) {
			return true
		}
	}
	return false
}

// ambiguityGuardPasses requires at least one supporting context signal
// for a common-word-collision title: numbered-list context, hashtag
// context, a media-context word in the same post, or a Title-Case
// appearance of the matched phrase in the original (un-lowercased) text.
func ambiguityGuardPasses(originalText, lowerText string, patterns []string) bool {
	if numberedListRe.MatchString(originalText) {
		return true
	}
	if hashtagCtxRe.MatchString(originalText) {
		return true
	}
	for _, word := range strings.Fields(lowerText) {
		if _, ok := mediaContextWords[strings.Trim(word, ".,!?;:")]; ok {
			return true
		}
	}
	for _, pat := range patterns {
		if WordBoundaryIndex(originalText, titleCase(strings.ToLower(pat))) >= 0 {
			return true
		}
	}
	return false
}

func hasTitleCaseWord(text string) bool {
	for _, tok := range strings.Fields(text) {
		clean := strings.Trim(tok, ".,!?;:\"'")
		if len(clean) == 0 {
			continue
		}
		r := clean[0]
		if r >= 'A' && r <= 'Z' && len(clean) > 1 {
			rest := clean[1:]
			if rest == strings.ToLower(rest) {
				return true
			}
		}
	}
	return false
}
