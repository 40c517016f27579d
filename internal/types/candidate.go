package types

// ExtractorKind identifies which candidate extractor produced a surface
// form, used by tests and diagnostics; normalization itself is
// extractor-agnostic.
type ExtractorKind string

const (
	ExtractorTitleCase ExtractorKind = "title_case"
	ExtractorQuoted    ExtractorKind = "quoted_span"
	ExtractorAllCaps   ExtractorKind = "all_caps"
	ExtractorAltText   ExtractorKind = "alt_text"
	ExtractorShort     ExtractorKind = "short_reply"
	ExtractorLinkCard  ExtractorKind = "link_card"
)

// Candidate is a raw surface string extracted from one post, awaiting
// normalization. A single post can yield multiple candidates, possibly
// from different extractors.
type Candidate struct {
	PostURI string
	Surface string
	Source  ExtractorKind
}

// Fingerprint is the canonical, order-independent token identity of a
// title: lowercased, punctuation-stripped, article-stripped, tokenized,
// stop-words removed, tokens de-duplicated and sorted.
type Fingerprint struct {
	Tokens []string
}

// CanonicalTitle is the surviving identity after normalization and
// substring-merge.
type CanonicalTitle struct {
	Title       string
	Fingerprint Fingerprint

	// Aliases are the shorter titles substring-merge folded into this
	// one; they also match posts during attribution.
	Aliases []string
}
