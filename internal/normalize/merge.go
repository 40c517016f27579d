package normalize

import (
	"regexp"
	"sort"
	"strings"

	"github.com/threadtally/threadtally/internal/types"
)

// sequelSuffixRe matches the exemption list: a leading colon, Roman
// numeral, digit, or Part/Chapter/Episode/Volume marker immediately
// after the shorter title's match inside the longer one.
var sequelSuffixRe = regexp.MustCompile(`(?i)^\s*(:|[ivxlcdm]+\b|[0-9]+|part\b|chapter\b|episode\b|volume\b)`)

// Group is one canonical title with every post that contributed to it,
// after merge; Count is len(Posts) deduplicated by URI.
type Group struct {
	Title   string
	Posts   []*types.Post
	Aliases []string
}

// SubstringMerge sorts groups by title length descending and folds a
// shorter title T into a longer title L whenever T's lowercased,
// whitespace-collapsed form (punctuation kept) appears in L's at word
// boundaries — unless the text
// immediately following the match is a sequel-pattern suffix, in which
// case T is treated as a genuinely distinct (likely sequel/prequel)
// title and left standing.
func SubstringMerge(groups []Group) []Group {
	sorted := make([]Group, len(groups))
	copy(sorted, groups)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Title) > len(sorted[j].Title)
	})

	redirect := make(map[int]int) // index in sorted -> index of merge target
	for i := 0; i < len(sorted); i++ {
		if _, already := redirect[i]; already {
			continue
		}
		short := mergeForm(sorted[i].Title)
		for j := 0; j < i; j++ {
			if _, already := redirect[j]; already {
				continue
			}
			long := mergeForm(sorted[j].Title)
			if long == short {
				continue
			}
			idx := WordBoundaryIndex(long, short)
			if idx < 0 {
				continue
			}
			suffix := long[idx+len(short):]
			if sequelSuffixRe.MatchString(suffix) {
				continue
			}
			redirect[i] = j
			break
		}
	}

	byURI := func(posts []*types.Post) map[string]*types.Post {
		m := make(map[string]*types.Post, len(posts))
		for _, p := range posts {
			m[p.URI] = p
		}
		return m
	}

	merged := make([]Group, len(sorted))
	copy(merged, sorted)
	for i, targetIdx := range redirect {
		// walk to the ultimate, un-redirected target
		for {
			if t, redirected := redirect[targetIdx]; redirected {
				targetIdx = t
				continue
			}
			break
		}
		seen := byURI(merged[targetIdx].Posts)
		for _, p := range merged[i].Posts {
			if _, dup := seen[p.URI]; dup {
				continue
			}
			seen[p.URI] = p
			merged[targetIdx].Posts = append(merged[targetIdx].Posts, p)
		}
		merged[targetIdx].Aliases = append(merged[targetIdx].Aliases, merged[i].Title)
		merged[targetIdx].Aliases = append(merged[targetIdx].Aliases, merged[i].Aliases...)
	}

	var out []Group
	for i, g := range merged {
		if _, redirected := redirect[i]; redirected {
			continue
		}
		out = append(out, g)
	}
	return out
}

// WordBoundaryIndex finds short's first occurrence in long bounded by
// non-word characters (or string edges) on both sides, or -1.
func WordBoundaryIndex(long, short string) int {
	if short == "" {
		return -1
	}
	from := 0
	for {
		i := strings.Index(long[from:], short)
		if i < 0 {
			return -1
		}
		idx := from + i
		left := idx == 0 || !IsWordByte(long[idx-1])
		rightPos := idx + len(short)
		right := rightPos == len(long) || !IsWordByte(long[rightPos])
		if left && right {
			return idx
		}
		from = idx + 1
	}
}

func IsWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// mergeForm lowercases and collapses whitespace only — punctuation like
// a sequel-marking colon is deliberately preserved so the caller can
// still detect it in the suffix following a containment match.
func mergeForm(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
