// Package extractor produces raw candidate title surface strings from a
// post's text, alt text, and (if present) its quoted post, via several
// independent pattern-based extractors unioned together. Generalizes the
// teacher's RegexParser extraction idiom (compiled, cached patterns
// applied to text) from HTML response bodies to post text.
package extractor

import (
	"context"
	"log/slog"
	"regexp"
	"strings"

	"github.com/threadtally/threadtally/internal/normalize"
	"github.com/threadtally/threadtally/internal/types"
)

// Config supplies the data-driven noise lists spec.md calls out as
// configuration rather than core logic.
type Config struct {
	// Noise holds lowercased phrases the Title-Case extractor discards
	// outright (pronoun-led fragments, generic phrases).
	Noise []string

	// QuotedNoise holds lowercased phrases the quoted-span extractor
	// discards ("movie", "film", "that one", ...).
	QuotedNoise []string
}

// DefaultConfig mirrors the hand-tuned lists spec.md §"Ambiguous
// behaviors observed in source" describes as data, not core logic.
func DefaultConfig() Config {
	return Config{
		Noise: []string{
			"i am", "i'm", "my favorite", "good movie", "good show",
			"hot take", "no idea", "not sure", "so good", "so bad",
			"this one", "that one", "the one",
		},
		QuotedNoise: []string{
			"movie", "film", "show", "series", "that one", "this one", "yes", "no",
		},
	}
}

var connectives = map[string]struct{}{
	"for": {}, "from": {}, "with": {}, "the": {}, "and": {}, "of": {}, "a": {}, "an": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "is": {}, "or": {}, "not": {}, "no": {},
	"it": {}, "its": {}, "my": {}, "his": {}, "her": {}, "as": {}, "so": {}, "but": {},
	"by": {}, "&": {}, "vs.": {}, "v.": {},
}

var (
	titleCaseWordRe = regexp.MustCompile(`^[A-Z][a-zA-Z'.]*$`)
	allCapsTokenRe  = regexp.MustCompile(`^[A-Z]{2,}[A-Z0-9']*$`)
	altTextRe       = regexp.MustCompile(`(?i)\[image alt:\s*([^\]]*)\]`)
	quotedSpanRe    = regexp.MustCompile(`["“”]([^"“”]{2,60})["“”]`)
	hashtagRe       = regexp.MustCompile(`#\S+`)
	handleRe        = regexp.MustCompile(`@\S+`)
	urlRe           = regexp.MustCompile(`https?://\S+`)
	emojiRe         = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}]`)
	punctRe         = regexp.MustCompile(`[^\w\s'-]`)
	splitTokenRe    = regexp.MustCompile(`\s+`)
)

// Extractor applies every pattern-based extraction rule to a post (plus
// its media alt text and its quoted post, if any) and unions the result.
type Extractor struct {
	cfg    Config
	logger *slog.Logger
	oembed *normalize.OEmbedClient
}

// New creates an Extractor with no oEmbed resolver attached. Link-card
// titles missing from the post payload itself are left blank unless a
// resolver is attached with WithOEmbed.
func New(cfg Config, logger *slog.Logger) *Extractor {
	return &Extractor{cfg: cfg, logger: logger.With("component", "extractor")}
}

// WithOEmbed attaches an oEmbed resolver for link cards the post payload
// didn't already carry a title for.
func (e *Extractor) WithOEmbed(c *normalize.OEmbedClient) *Extractor {
	return e.withOEmbed(c)
}

// Extract implements the extract(post) -> candidate[] contract, drawing
// from the union of the post's own text/alt-texts and (if quoted) the
// quoted post's text/alt-texts.
func (e *Extractor) Extract(ctx context.Context, post *types.Post, quoted *types.Post) []types.Candidate {
	var out []types.Candidate

	out = append(out, e.extractFromText(post, post.Text)...)
	for _, m := range post.Media {
		out = append(out, e.extractAltText(post, m.AltText)...)
	}
	if post.Link != nil {
		if title := e.resolveLinkCardTitle(ctx, post.Link); title != "" {
			out = append(out, types.Candidate{PostURI: post.URI, Surface: title, Source: types.ExtractorLinkCard})
		}
	}

	if quoted != nil {
		out = append(out, e.extractFromText(post, quoted.Text)...)
		for _, m := range quoted.Media {
			out = append(out, e.extractAltText(post, m.AltText)...)
		}
	}

	return out
}

// extractFromText runs the text-bound extractors (Title-Case, quoted-
// span, ALL-CAPS, short-reply) against one body of text, attributing
// every resulting candidate to post (the post under analysis, even when
// text came from its quoted post).
func (e *Extractor) extractFromText(post *types.Post, text string) []types.Candidate {
	var out []types.Candidate
	out = append(out, e.titleCasePhrases(post, text)...)
	out = append(out, e.quotedSpans(post, text)...)
	out = append(out, e.allCapsPhrases(post, text)...)
	if c, ok := e.shortReply(post, text); ok {
		out = append(out, c)
	}
	return out
}

// extractAltText takes a media item's whole alt text field as one
// candidate when it is at most 60 characters and 8 words; longer alt
// text yields nothing. "[image alt: ...]" markers inside post text are
// not scanned.
func (e *Extractor) extractAltText(post *types.Post, alt string) []types.Candidate {
	alt = strings.TrimSpace(alt)
	if alt == "" {
		return nil
	}
	if len(alt) > 60 || wordCount(alt) > 8 {
		return nil
	}
	return []types.Candidate{{PostURI: post.URI, Surface: alt, Source: types.ExtractorAltText}}
}

// titleCasePhrases finds runs of Title-Case words joined by common
// lowercase connectives, `: `, or `- `, and filters the NOISE set.
func (e *Extractor) titleCasePhrases(post *types.Post, text string) []types.Candidate {
	tokens := splitTokenRe.Split(strings.ReplaceAll(strings.ReplaceAll(text, ": ", " : "), "- ", " - "), -1)

	var out []types.Candidate
	var run []string
	flush := func() {
		if len(run) == 0 {
			return
		}
		// trim trailing connectives — a phrase must end on a content word
		for len(run) > 0 {
			last := strings.ToLower(strings.TrimRight(run[len(run)-1], ":-"))
			if _, isConn := connectives[last]; isConn || last == "" {
				run = run[:len(run)-1]
				continue
			}
			break
		}
		if len(run) == 0 {
			return
		}
		phrase := strings.ReplaceAll(strings.Join(run, " "), " : ", ": ")
		if !e.isNoise(phrase) {
			out = append(out, types.Candidate{PostURI: post.URI, Surface: phrase, Source: types.ExtractorTitleCase})
		}
		run = nil
	}

	for _, tok := range tokens {
		clean := strings.Trim(tok, ":-,.!?;\"'")
		if clean == "" {
			if (tok == ":" || tok == "-") && len(run) > 0 {
				run = append(run, tok)
				continue
			}
			flush()
			continue
		}
		lower := strings.ToLower(clean)
		_, isConn := connectives[lower]
		switch {
		case titleCaseWordRe.MatchString(clean):
			run = append(run, clean)
		case isConn && len(run) > 0:
			run = append(run, clean)
		default:
			flush()
		}
	}
	flush()
	return out
}

// quotedSpans finds text between matched double quotes, 2-60 chars, and
// filters the QUOTED_NOISE set.
func (e *Extractor) quotedSpans(post *types.Post, text string) []types.Candidate {
	var out []types.Candidate
	for _, m := range quotedSpanRe.FindAllStringSubmatch(text, -1) {
		span := strings.TrimSpace(m[1])
		if span == "" {
			continue
		}
		if e.isQuotedNoise(span) {
			continue
		}
		out = append(out, types.Candidate{PostURI: post.URI, Surface: span, Source: types.ExtractorQuoted})
	}
	return out
}

// allCapsPhrases finds runs of two or more all-caps tokens.
func (e *Extractor) allCapsPhrases(post *types.Post, text string) []types.Candidate {
	tokens := splitTokenRe.Split(text, -1)

	var out []types.Candidate
	var run []string
	flush := func() {
		if len(run) >= 2 {
			out = append(out, types.Candidate{PostURI: post.URI, Surface: strings.Join(run, " "), Source: types.ExtractorAllCaps})
		}
		run = nil
	}
	for _, tok := range tokens {
		clean := strings.Trim(tok, ".,!?;:\"'")
		if allCapsTokenRe.MatchString(clean) {
			run = append(run, clean)
		} else {
			flush()
		}
	}
	flush()
	return out
}

// shortReply cleans the post's own text of emoji, hashtags, handles,
// URLs, and most punctuation; if what remains is 2-80 chars and <= 8
// words, it is a candidate in its own right.
func (e *Extractor) shortReply(post *types.Post, text string) (types.Candidate, bool) {
	cleaned := emojiRe.ReplaceAllString(text, "")
	cleaned = hashtagRe.ReplaceAllString(cleaned, "")
	cleaned = handleRe.ReplaceAllString(cleaned, "")
	cleaned = urlRe.ReplaceAllString(cleaned, "")
	cleaned = punctRe.ReplaceAllString(cleaned, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")

	if len(cleaned) < 2 || len(cleaned) > 80 || wordCount(cleaned) > 8 {
		return types.Candidate{}, false
	}
	return types.Candidate{PostURI: post.URI, Surface: cleaned, Source: types.ExtractorShort}, true
}

func (e *Extractor) isNoise(phrase string) bool {
	lower := strings.ToLower(phrase)
	for _, n := range e.cfg.Noise {
		if lower == n {
			return true
		}
	}
	return false
}

func (e *Extractor) isQuotedNoise(span string) bool {
	lower := strings.ToLower(span)
	for _, n := range e.cfg.QuotedNoise {
		if lower == n {
			return true
		}
	}
	return false
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
