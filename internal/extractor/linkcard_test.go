package extractor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/threadtally/threadtally/internal/normalize"
	"github.com/threadtally/threadtally/internal/types"
)

func TestResolveLinkCardTitlePrefersPostSuppliedTitle(t *testing.T) {
	e := New(DefaultConfig(), testLogger)
	link := &types.LinkCard{URI: "https://video.example/x", Title: "Arcane Season Two Trailer"}
	if got := e.resolveLinkCardTitle(context.Background(), link); got != "Arcane Season Two Trailer" {
		t.Errorf("expected post-supplied title kept as-is, got %q", got)
	}
}

func TestResolveLinkCardTitleFallsBackToOEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(normalize.OEmbedResult{Title: "Cowboy Bebop Remastered"})
	}))
	defer srv.Close()

	e := New(DefaultConfig(), testLogger)
	e.WithOEmbed(normalize.NewOEmbedClient(srv.URL, testLogger))

	link := &types.LinkCard{URI: "https://video.example/y"}
	if got := e.resolveLinkCardTitle(context.Background(), link); got != "Cowboy Bebop Remastered" {
		t.Errorf("expected oembed-resolved title, got %q", got)
	}
}

func TestResolveLinkCardTitleScrapesOpenGraphFromRawHTML(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(normalize.OEmbedResult{
			HTML: `<html><head><meta property="og:title" content="The Great British Bake Off"></head></html>`,
		})
	}))
	defer srv.Close()

	e := New(DefaultConfig(), testLogger)
	e.WithOEmbed(normalize.NewOEmbedClient(srv.URL, testLogger))

	link := &types.LinkCard{URI: "https://video.example/z"}
	if got := e.resolveLinkCardTitle(context.Background(), link); got != "The Great British Bake Off" {
		t.Errorf("expected og:title scraped from raw HTML, got %q", got)
	}
}

func TestResolveLinkCardTitleEmptyWithoutResolver(t *testing.T) {
	e := New(DefaultConfig(), testLogger)
	link := &types.LinkCard{URI: "https://video.example/w"}
	if got := e.resolveLinkCardTitle(context.Background(), link); got != "" {
		t.Errorf("expected empty title with no oembed resolver configured, got %q", got)
	}
}
