// Package compress implements the pruned-context builder of spec.md §4.9:
// it takes a htmlprune.Result, fits it to a token budget, and applies the
// minimum-content guarantee when the compressed output is too thin to be
// useful. The page_type/schema dispatch-table shape follows the teacher's
// security scanner check-list idiom (see DESIGN.md).
package compress

import (
	"strings"

	"github.com/dyatlov/go-opengraph/opengraph"

	"github.com/retio-ai/pagemap/internal/htmlprune"
	"github.com/retio-ai/pagemap/internal/pagemodel"
	"github.com/retio-ai/pagemap/internal/scriptfilter"
	"github.com/retio-ai/pagemap/internal/tokenizer"
)

// mcgMinTokens is the near-empty threshold below which the minimum-content
// guarantee kicks in. Tunable; spec.md leaves the exact cutoff unspecified
// (see DESIGN.md open-question log).
const mcgMinTokens = 20

// mcgExcludedPageTypes are page types where a thin compressed body is
// expected and the OpenGraph fallback would just add noise (a login page's
// useful content IS its two fields).
var mcgExcludedPageTypes = map[pagemodel.PageType]bool{
	pagemodel.PageLogin:    true,
	pagemodel.PageError:    true,
	pagemodel.PageForm:     true,
	pagemodel.PageSettings: true,
}

// PruningStats reports how much of the page was removed, for caller telemetry.
type PruningStats struct {
	OriginalTokens   int
	CompressedTokens int
	PrunedRegions    []string
	UsedFallback     bool
}

// Context is the pruned-context builder's final output.
type Context struct {
	HTML  string
	Stats PruningStats
	Hints PaginationHints
}

// Build runs the htmlprune pipeline, fits to budget, applies MCG, and
// extracts pagination/filter hints.
func Build(rawHTML, visibleText string, baseBudget int, pageType pagemodel.PageType, schema pagemodel.SchemaName) (Context, error) {
	result, err := htmlprune.Prune(rawHTML, schema)
	if err != nil {
		return Context{}, err
	}

	budget := tokenizer.Budget(baseBudget, visibleText)
	compressor := selectCompressor(pageType, schema)
	compressed := compressor(result.Chunks)
	compressedTokens := tokenizer.Count(compressed)

	usedFallback := false
	if compressedTokens < mcgMinTokens && !mcgExcludedPageTypes[pageType] {
		if fallback, ok := openGraphFallback(rawHTML); ok {
			compressed = fallback
			compressedTokens = tokenizer.Count(compressed)
			usedFallback = true
		}
	}

	if !usedFallback {
		compressed = scriptfilter.FilterText(compressed)
	}
	compressed = fitToBudget(compressed, budget)

	return Context{
		HTML: compressed,
		Stats: PruningStats{
			OriginalTokens:   tokenizer.Count(rawHTML),
			CompressedTokens: tokenizer.Count(compressed),
			PrunedRegions:    result.PrunedRegions,
			UsedFallback:     usedFallback,
		},
		Hints: ExtractPaginationHints(rawHTML),
	}, nil
}

// openGraphFallback extracts OpenGraph metadata as a minimal structured
// substitute when compression left almost nothing, via
// github.com/dyatlov/go-opengraph.
func openGraphFallback(rawHTML string) (string, bool) {
	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(rawHTML)); err != nil {
		return "", false
	}
	if og.Title == "" && og.Description == "" {
		return "", false
	}
	var b strings.Builder
	b.WriteString("<html><body>")
	if og.Title != "" {
		b.WriteString("<h1>" + og.Title + "</h1>")
	}
	if og.Description != "" {
		b.WriteString("<p>" + og.Description + "</p>")
	}
	for _, img := range og.Images {
		if img.URL != "" {
			b.WriteString(`<img src="` + img.URL + `">`)
		}
	}
	b.WriteString("</body></html>")
	return b.String(), true
}

// fitToBudget trims trailing content until the compressed HTML's token count
// is at or under budget, cutting on a '>' boundary to avoid truncating mid-tag.
func fitToBudget(html string, budget int) string {
	if budget <= 0 || tokenizer.Count(html) <= budget {
		return html
	}
	lo, hi := 0, len(html)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		candidate := closeAtBoundary(html[:mid])
		if tokenizer.Count(candidate) <= budget {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return closeAtBoundary(html[:lo])
}

// closeAtBoundary backs a truncation index off to the nearest preceding '>'
// so a still-HTML result never splits a tag; for the dispatch table's
// plain-text compressor output (no tags at all) it falls back to the
// nearest preceding whitespace so words aren't split mid-token instead.
func closeAtBoundary(s string) string {
	if i := strings.LastIndexByte(s, '>'); i >= 0 {
		return s[:i+1]
	}
	if i := strings.LastIndexAny(s, " \n\t"); i >= 0 {
		return s[:i]
	}
	return s
}
