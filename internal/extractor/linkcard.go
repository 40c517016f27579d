package extractor

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/threadtally/threadtally/internal/normalize"
	"github.com/threadtally/threadtally/internal/types"
)

// resolveLinkCardTitle returns the best title available for a link card:
// the platform-supplied title if present, otherwise whatever an oEmbed
// resolver can find, falling back to scraping an Open-Graph title out of
// any raw HTML the resolver hands back.
func (e *Extractor) resolveLinkCardTitle(ctx context.Context, link *types.LinkCard) string {
	if link.Title != "" {
		return link.Title
	}
	if e.oembed == nil {
		return ""
	}

	result, ok := e.oembed.Resolve(ctx, link.URI)
	if !ok {
		return ""
	}
	if result.Title != "" {
		return result.Title
	}
	return ogTitleFromHTML(result.HTML)
}

// ogTitleFromHTML scrapes an <meta property="og:title"> (falling back to
// <title>) from a raw HTML fragment, for providers whose oEmbed response
// carries markup instead of a plain title field.
func ogTitleFromHTML(html string) string {
	if strings.TrimSpace(html) == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	if content, ok := doc.Find(`meta[property="og:title"]`).First().Attr("content"); ok {
		if title := strings.TrimSpace(content); title != "" {
			return title
		}
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

// withOEmbed wires an oEmbed resolver into the Extractor; used only when
// one is configured. Returns e for chaining at construction time.
func (e *Extractor) withOEmbed(c *normalize.OEmbedClient) *Extractor {
	e.oembed = c
	return e
}
