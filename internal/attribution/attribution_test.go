package attribution

import (
	"testing"
	"time"

	"github.com/threadtally/threadtally/internal/normalize"
	"github.com/threadtally/threadtally/internal/types"
)

func mkPost(uri, text string) *types.Post {
	return &types.Post{URI: uri, Text: text, CreatedAt: time.Now()}
}

func TestAttributeBasicMatch(t *testing.T) {
	posts := []*types.Post{
		mkPost("root", "what's your favorite comfort show?"),
		mkPost("p1", "Cowboy Bebop, no question"),
		mkPost("p2", "I love Cowboy Bebop too"),
	}
	groups := []normalize.Group{{Title: "Cowboy Bebop"}}

	result := Attribute(posts, groups, "root")
	if len(result.Tally) != 1 || result.Tally[0].Count != 2 {
		t.Fatalf("expected one title with count 2, got %+v", result.Tally)
	}
	if len(result.Uncategorized) != 0 {
		t.Errorf("expected no uncategorized posts, got %+v", result.Uncategorized)
	}
}

func TestAttributeUncategorizedExcludesRoot(t *testing.T) {
	posts := []*types.Post{
		mkPost("root", "what's your favorite comfort show?"),
		mkPost("p1", "no idea honestly"),
	}
	groups := []normalize.Group{{Title: "Cowboy Bebop"}}

	result := Attribute(posts, groups, "root")
	if len(result.Uncategorized) != 1 || result.Uncategorized[0].URI != "p1" {
		t.Fatalf("expected only p1 uncategorized, got %+v", result.Uncategorized)
	}
}

func TestAttributeSamePostGeneralizationDropsShortMatch(t *testing.T) {
	// "Bebop" and "Cowboy Bebop" left unmerged (as if from different
	// normalization groups) so the attribution-time generalization step
	// is what resolves the overlap, not substring-merge upstream.
	posts := []*types.Post{
		mkPost("p1", "Cowboy Bebop is great"),
	}
	groups := []normalize.Group{
		{Title: "Bebop"},
		{Title: "Cowboy Bebop"},
	}

	result := Attribute(posts, groups, "")
	titles := make(map[string]bool)
	for _, te := range result.Tally {
		titles[te.Title] = true
	}
	if titles["Bebop"] {
		t.Errorf("expected shorter containing match dropped in favor of the longer one, got %+v", result.Tally)
	}
	if !titles["Cowboy Bebop"] {
		t.Errorf("expected Cowboy Bebop to survive, got %+v", result.Tally)
	}
}

func TestAttributePhraseTableGuardDropsCoveredSingleWord(t *testing.T) {
	posts := []*types.Post{
		mkPost("p1", "I watched Red October last night"),
	}
	groups := []normalize.Group{{Title: "Red"}}

	result := Attribute(posts, groups, "")
	if len(result.Tally) != 0 {
		t.Errorf("expected 'Red' dropped since every occurrence is covered by 'red october', got %+v", result.Tally)
	}
}

func TestAttributePhraseTableGuardKeepsStandaloneOccurrence(t *testing.T) {
	posts := []*types.Post{
		mkPost("p1", "Red is the one, no contest"),
	}
	groups := []normalize.Group{{Title: "Red"}}

	result := Attribute(posts, groups, "")
	if len(result.Tally) != 1 {
		t.Errorf("expected standalone 'Red' occurrence to survive the phrase guard, got %+v", result.Tally)
	}
}

func TestAttributeColonSubtitlePrefixMatches(t *testing.T) {
	posts := []*types.Post{
		mkPost("p1", "Stranger Things is so good"),
	}
	groups := []normalize.Group{{Title: "Stranger Things: The First Shadow"}}

	result := Attribute(posts, groups, "")
	if len(result.Tally) != 1 || result.Tally[0].Count != 1 {
		t.Fatalf("expected pre-colon prefix to match, got %+v", result.Tally)
	}
}

func TestAttributeSequelPrefixDoesNotStealGenericMentions(t *testing.T) {
	posts := []*types.Post{
		mkPost("p1", "Top Gun is the best"),
		mkPost("p2", "Top Gun: Maverick was great"),
		mkPost("p3", "Both Top Gun movies rock"),
	}
	groups := []normalize.Group{{Title: "Top Gun"}, {Title: "Top Gun: Maverick"}}

	result := Attribute(posts, groups, "")

	byTitle := make(map[string]types.TallyEntry)
	for _, entry := range result.Tally {
		byTitle[entry.Title] = entry
	}

	topGun, ok := byTitle["Top Gun"]
	if !ok || topGun.Count != 2 {
		t.Fatalf("expected Top Gun count 2 (posts 1 and 3), got %+v", byTitle["Top Gun"])
	}
	maverick, ok := byTitle["Top Gun: Maverick"]
	if !ok || maverick.Count != 1 {
		t.Fatalf("expected Top Gun: Maverick count 1 (post 2), got %+v", byTitle["Top Gun: Maverick"])
	}

	gotURIs := make(map[string]bool)
	for _, p := range topGun.ContributingPosts {
		gotURIs[p.URI] = true
	}
	if !gotURIs["p1"] || !gotURIs["p3"] || gotURIs["p2"] {
		t.Fatalf("expected Top Gun contributing posts {p1, p3}, got %+v", topGun.ContributingPosts)
	}
}

func TestAttributeTallySortedByCountThenTiebreak(t *testing.T) {
	posts := []*types.Post{
		mkPost("p1", "Dune"),
		mkPost("p2", "Arrival"),
		mkPost("p3", "Arrival"),
	}
	groups := []normalize.Group{{Title: "Dune"}, {Title: "Arrival"}}

	result := Attribute(posts, groups, "")
	if result.Tally[0].Title != "Arrival" || result.Tally[0].Count != 2 {
		t.Fatalf("expected Arrival (count 2) ranked first, got %+v", result.Tally)
	}
}
