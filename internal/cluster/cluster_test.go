package cluster

import (
	"testing"
	"time"

	"github.com/threadtally/threadtally/internal/normalize"
	"github.com/threadtally/threadtally/internal/types"
)

func mkPost(uri, text string) *types.Post {
	return &types.Post{URI: uri, Text: text, CreatedAt: time.Now()}
}

func canonical(title string) types.CanonicalTitle {
	return types.CanonicalTitle{Title: title, Fingerprint: normalize.Fingerprint(title)}
}

func TestSuggestFingerprintContainment(t *testing.T) {
	posts := []*types.Post{mkPost("p1", "honestly The Great British Bake Off all day")}
	titles := []types.CanonicalTitle{canonical("The Great British Bake Off")}

	s := New(DefaultConfig())
	out := s.Suggest(posts, titles)
	if len(out) != 1 || out[0].Method != MethodFingerprint || out[0].AverageScore != 1.0 {
		t.Fatalf("expected fingerprint-containment suggestion with score 1.0, got %+v", out)
	}
}

func TestSuggestNgramFallback(t *testing.T) {
	posts := []*types.Post{mkPost("p1", "cowboy beebop forever")} // misspelled
	titles := []types.CanonicalTitle{canonical("Cowboy Bebop")}

	s := New(DefaultConfig())
	out := s.Suggest(posts, titles)
	if len(out) != 1 {
		t.Fatalf("expected one ngram/levenshtein suggestion for near-miss spelling, got %+v", out)
	}
}

func TestSuggestBelowMinScoreDiscarded(t *testing.T) {
	posts := []*types.Post{mkPost("p1", "completely unrelated text about gardening")}
	titles := []types.CanonicalTitle{canonical("Cowboy Bebop")}

	s := New(DefaultConfig())
	out := s.Suggest(posts, titles)
	if len(out) != 0 {
		t.Errorf("expected no suggestion for unrelated text, got %+v", out)
	}
}

func TestSuggestDismissPersistsAcrossPasses(t *testing.T) {
	posts := []*types.Post{mkPost("p1", "honestly The Great British Bake Off all day")}
	titles := []types.CanonicalTitle{canonical("The Great British Bake Off")}

	s := New(DefaultConfig())
	first := s.Suggest(posts, titles)
	if len(first) != 1 {
		t.Fatalf("expected an initial suggestion, got %+v", first)
	}
	s.Dismiss(&first[0])

	second := s.Suggest(posts, titles)
	if len(second) != 0 {
		t.Errorf("expected dismissed title excluded from subsequent passes, got %+v", second)
	}
}

func TestSuggestSortedByClusterSizeThenScore(t *testing.T) {
	posts := []*types.Post{
		mkPost("p1", "The Great British Bake Off is unbeatable"),
		mkPost("p2", "Cowboy Bebop forever"),
		mkPost("p3", "Cowboy Bebop again"),
	}
	titles := []types.CanonicalTitle{canonical("The Great British Bake Off"), canonical("Cowboy Bebop")}

	s := New(DefaultConfig())
	out := s.Suggest(posts, titles)
	if len(out) < 2 {
		t.Fatalf("expected at least two suggestions, got %+v", out)
	}
	if out[0].SuggestedTitle != "Cowboy Bebop" {
		t.Errorf("expected larger cluster (Cowboy Bebop, 2 posts) ranked first, got %+v", out)
	}
}
