package htmlprune

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/retio-ai/pagemap/internal/pagemodel"
)

// Result is the full output of the pruning pipeline for one page.
type Result struct {
	CompressedHTML string
	Chunks         []Decision
	PrunedRegions  []string
}

// Prune runs the AOM filter, chunk decomposition, rule-based keep/remove
// decisions, and re-merge/compress passes against rawHTML, in that order —
// spec.md §4.8's full pipeline.
func Prune(rawHTML string, schema pagemodel.SchemaName) (Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	if err != nil {
		return Result{}, err
	}

	removalReasons := AOMFilter(doc, schema)
	chunks := Decompose(doc)
	hasMain := false
	for _, c := range chunks {
		if c.InMain {
			hasMain = true
			break
		}
	}
	decisions := PruneChunks(chunks, schema, hasMain)
	merged := RemergeChunks(decisions)
	compressed := CompressHTML(merged)

	return Result{
		CompressedHTML: compressed,
		Chunks:         decisions,
		PrunedRegions:  derivePrunedRegions(removalReasons),
	}, nil
}

// derivePrunedRegions maps the AOM filter's removal reasons to the set of
// landmark region names that were entirely or partially pruned, mirroring
// aom_filter.py's derive_pruned_regions: a reason with no entry in
// reasonToRegion (noise-class-id, link-density-*, default, ...) simply
// contributes no region, rather than falling back to its raw reason string.
func derivePrunedRegions(reasons map[string]bool) []string {
	seen := make(map[string]bool)
	var regions []string
	for reason := range reasons {
		region, ok := reasonToRegion[reason]
		if !ok {
			continue
		}
		if !seen[region] {
			seen[region] = true
			regions = append(regions, region)
		}
	}
	return regions
}
