package compress

import (
	"strings"

	"github.com/retio-ai/pagemap/internal/htmlprune"
	"github.com/retio-ai/pagemap/internal/pagemodel"
)

// compressorFn formats one page's kept chunks into prose for a page_type/
// schema family (spec.md §4.9's compressor dispatch table). Each receives
// every chunk decision (not just kept ones) so it can apply its own
// type-specific filtering.
type compressorFn func(decisions []htmlprune.Decision) string

// pageTypeCompressors is the primary page_type -> compressor lookup.
var pageTypeCompressors = map[pagemodel.PageType]compressorFn{
	pagemodel.PageProductDetail: compressForProduct,
	pagemodel.PageCheckout:      compressForProduct,
	pagemodel.PageSearchResults: compressForSearchResults,
	pagemodel.PageListing:       compressForSearchResults,
	pagemodel.PageArticle:       compressForArticle,
	pagemodel.PageNews:          compressForArticle,
	pagemodel.PageDocumentation: compressForArticle,
	pagemodel.PageHelpFAQ:       compressForArticle,
	pagemodel.PageLanding:       compressForLanding,
}

// schemaCompressors backs the schema-name fallback and the schema-overrides
// that pre-empt page_type (VideoObject, WikiArticle).
var schemaCompressors = map[pagemodel.SchemaName]compressorFn{
	pagemodel.SchemaWikiArticle:    compressForArticle,
	pagemodel.SchemaVideoObject:    compressForVideo,
	pagemodel.SchemaSaaSPage:       compressForLanding,
	pagemodel.SchemaGovernmentPage: compressForArticle,
	pagemodel.SchemaFAQPage:        compressForArticle,
}

// schemaOverridesPageType is the fixed set of schemas whose shape matters
// more than the page's UI classification (spec.md §4.9).
var schemaOverridesPageType = map[pagemodel.SchemaName]bool{
	pagemodel.SchemaVideoObject: true,
	pagemodel.SchemaWikiArticle: true,
}

// selectCompressor picks the compressor for a page, applying the
// schema-overrides-page_type rule, then page_type, then schema, then the
// generic default (spec.md §4.9).
func selectCompressor(pageType pagemodel.PageType, schema pagemodel.SchemaName) compressorFn {
	if schemaOverridesPageType[schema] {
		if fn, ok := schemaCompressors[schema]; ok {
			return fn
		}
	}
	if fn, ok := pageTypeCompressors[pageType]; ok {
		return fn
	}
	if fn, ok := schemaCompressors[schema]; ok {
		return fn
	}
	return compressDefault
}

func keptChunks(decisions []htmlprune.Decision) []htmlprune.Decision {
	out := make([]htmlprune.Decision, 0, len(decisions))
	for _, d := range decisions {
		if d.Keep {
			out = append(out, d)
		}
	}
	return out
}

// compressForProduct favors headings, meta (title/price/availability), and
// short high-value text over long descriptive prose.
func compressForProduct(decisions []htmlprune.Decision) string {
	var b strings.Builder
	for _, d := range keptChunks(decisions) {
		switch d.Chunk.Type {
		case pagemodel.ChunkHeading, pagemodel.ChunkMeta, pagemodel.ChunkTextBlock:
			if text := strings.TrimSpace(d.Chunk.Text); text != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// compressForSearchResults marks list/table chunks (the result listing
// itself) as bullet items, keeping everything else as plain lines.
func compressForSearchResults(decisions []htmlprune.Decision) string {
	var b strings.Builder
	for _, d := range keptChunks(decisions) {
		text := strings.TrimSpace(d.Chunk.Text)
		if text == "" {
			continue
		}
		switch d.Chunk.Type {
		case pagemodel.ChunkList, pagemodel.ChunkTable:
			b.WriteString("- " + text + "\n")
		default:
			b.WriteString(text + "\n")
		}
	}
	return strings.TrimSpace(b.String())
}

// compressForArticle preserves heading/paragraph structure, the shape an
// agent needs to follow a long-form document.
func compressForArticle(decisions []htmlprune.Decision) string {
	var b strings.Builder
	for _, d := range keptChunks(decisions) {
		text := strings.TrimSpace(d.Chunk.Text)
		if text == "" {
			continue
		}
		if d.Chunk.Type == pagemodel.ChunkHeading {
			b.WriteString("## " + text + "\n")
		} else {
			b.WriteString(text + "\n\n")
		}
	}
	return strings.TrimSpace(b.String())
}

// compressForLanding treats a landing/SaaS marketing page like a short
// article: headline-led sections with sparse supporting prose.
func compressForLanding(decisions []htmlprune.Decision) string {
	return compressForArticle(decisions)
}

// compressForVideo keeps only the meta/heading chunks — a video page's
// useful text is its title/description, not its surrounding chrome.
func compressForVideo(decisions []htmlprune.Decision) string {
	var b strings.Builder
	for _, d := range keptChunks(decisions) {
		if d.Chunk.Type != pagemodel.ChunkMeta && d.Chunk.Type != pagemodel.ChunkHeading {
			continue
		}
		if text := strings.TrimSpace(d.Chunk.Text); text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}

// compressDefault joins every kept chunk's text in document order, the
// catch-all for page types/schemas without a dedicated compressor.
func compressDefault(decisions []htmlprune.Decision) string {
	var b strings.Builder
	for _, d := range keptChunks(decisions) {
		if text := strings.TrimSpace(d.Chunk.Text); text != "" {
			b.WriteString(text)
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}
