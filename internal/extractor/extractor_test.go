package extractor

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/threadtally/threadtally/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newPost(text string) *types.Post {
	return &types.Post{URI: "p1", Text: text, CreatedAt: time.Now()}
}

func hasSurface(cands []types.Candidate, surface string) bool {
	for _, c := range cands {
		if c.Surface == surface {
			return true
		}
	}
	return false
}

func TestExtractTitleCasePhrase(t *testing.T) {
	e := New(DefaultConfig(), testLogger)
	cands := e.Extract(context.Background(), newPost("my favorite show is The Great British Bake Off for sure"), nil)
	if !hasSurface(cands, "The Great British Bake Off") {
		t.Errorf("expected Title-Case phrase extracted, got %+v", cands)
	}
}

func TestExtractFiltersNoise(t *testing.T) {
	e := New(DefaultConfig(), testLogger)
	cands := e.Extract(context.Background(), newPost("Hot Take incoming"), nil)
	if hasSurface(cands, "Hot Take") {
		t.Errorf("expected noise phrase filtered, got %+v", cands)
	}
}

func TestExtractQuotedSpan(t *testing.T) {
	e := New(DefaultConfig(), testLogger)
	cands := e.Extract(context.Background(), newPost(`no question, it's "Breaking Bad" hands down`), nil)
	if !hasSurface(cands, "Breaking Bad") {
		t.Errorf("expected quoted span extracted, got %+v", cands)
	}
}

func TestExtractQuotedSpanFiltersNoise(t *testing.T) {
	e := New(DefaultConfig(), testLogger)
	cands := e.Extract(context.Background(), newPost(`it was a good "movie" honestly`), nil)
	if hasSurface(cands, "movie") {
		t.Errorf("expected quoted-noise filtered, got %+v", cands)
	}
}

func TestExtractAllCapsPhrase(t *testing.T) {
	e := New(DefaultConfig(), testLogger)
	cands := e.Extract(context.Background(), newPost("obviously THE OFFICE is unbeatable"), nil)
	if !hasSurface(cands, "THE OFFICE") {
		t.Errorf("expected ALL-CAPS phrase extracted, got %+v", cands)
	}
}

func TestExtractAltTextFromMedia(t *testing.T) {
	e := New(DefaultConfig(), testLogger)
	p := newPost("see attached")
	p.Media = []types.MediaItem{{URL: "https://example.com/x.png", AltText: "Cowboy Bebop title card"}}
	cands := e.Extract(context.Background(), p, nil)
	if !hasSurface(cands, "Cowboy Bebop title card") {
		t.Errorf("expected alt text extracted, got %+v", cands)
	}
}

func TestExtractAltTextOverLengthDropped(t *testing.T) {
	e := New(DefaultConfig(), testLogger)
	p := newPost("see attached")
	p.Media = []types.MediaItem{{URL: "u", AltText: "one two three four five six seven eight nine"}}
	cands := e.Extract(context.Background(), p, nil)
	for _, c := range cands {
		if c.Source == types.ExtractorAltText {
			t.Errorf("expected over-length alt text dropped, got %+v", c)
		}
	}
}

func TestExtractShortReply(t *testing.T) {
	e := New(DefaultConfig(), testLogger)
	cands := e.Extract(context.Background(), newPost("FooBar"), nil)
	if !hasSurface(cands, "FooBar") {
		t.Errorf("expected short reply candidate, got %+v", cands)
	}
}

func TestExtractShortReplyStripsNoise(t *testing.T) {
	e := New(DefaultConfig(), testLogger)
	cands := e.Extract(context.Background(), newPost("FooBar! @someone #cool https://example.com"), nil)
	if !hasSurface(cands, "FooBar") {
		t.Errorf("expected cleaned short reply, got %+v", cands)
	}
}

func TestExtractShortReplyRejectsLongText(t *testing.T) {
	e := New(DefaultConfig(), testLogger)
	cands := e.Extract(context.Background(), newPost("this is a much longer reply that goes well beyond the eight word cap for short replies"), nil)
	for _, c := range cands {
		if c.Source == types.ExtractorShort {
			t.Errorf("expected long text to not produce a short-reply candidate, got %+v", c)
		}
	}
}

func TestExtractFromQuotedPost(t *testing.T) {
	e := New(DefaultConfig(), testLogger)
	quoted := newPost(`definitely "Cowboy Bebop"`)
	quoted.URI = "quoted1"
	cands := e.Extract(context.Background(), newPost("this"), quoted)
	if !hasSurface(cands, "Cowboy Bebop") {
		t.Errorf("expected candidate drawn from quoted post text, got %+v", cands)
	}
	for _, c := range cands {
		if c.PostURI != "p1" {
			t.Errorf("expected every candidate attributed to the quoting post, got %+v", c)
		}
	}
}

func TestExtractLinkCardTitle(t *testing.T) {
	e := New(DefaultConfig(), testLogger)
	p := newPost("check this out")
	p.Link = &types.LinkCard{URI: "https://video.example/x", Title: "Arcane Season Two Trailer"}
	cands := e.Extract(context.Background(), p, nil)
	if !hasSurface(cands, "Arcane Season Two Trailer") {
		t.Errorf("expected link card title extracted, got %+v", cands)
	}
}
