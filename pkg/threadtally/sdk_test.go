package threadtally

import "testing"

func TestNewAppliesOptions(t *testing.T) {
	a := New(
		WithThreadDepth(250),
		WithQuoteDepthCap(2),
		WithUserListPolicy("Cowboy Bebop", "Friends"),
	)

	if a.cfg.Crawler.ThreadDepth != 250 {
		t.Errorf("expected thread depth override applied, got %d", a.cfg.Crawler.ThreadDepth)
	}
	if a.cfg.Crawler.QuoteDepthCap != 2 {
		t.Errorf("expected quote depth cap override applied, got %d", a.cfg.Crawler.QuoteDepthCap)
	}
	if a.cfg.Normalize.Policy != "user_list" {
		t.Errorf("expected user_list policy selected, got %q", a.cfg.Normalize.Policy)
	}
	if a.normErr != nil {
		t.Fatalf("expected normalizer built without error, got %v", a.normErr)
	}
	if a.normalizer == nil {
		t.Fatal("expected normalizer to be constructed")
	}
}

func TestNewDefaultsToSelfValidation(t *testing.T) {
	a := New()
	if a.cfg.Normalize.Policy != "self" {
		t.Errorf("expected default policy self, got %q", a.cfg.Normalize.Policy)
	}
	if a.normErr != nil {
		t.Fatalf("unexpected normalizer build error: %v", a.normErr)
	}
}

func TestNewRejectsUnknownPolicyFromOption(t *testing.T) {
	a := New(func(a *Analyzer) { a.cfg.Normalize.Policy = "bogus" })
	if a.normErr == nil {
		t.Fatal("expected unknown policy to surface as a deferred normalizer build error")
	}
}
