// Package htmlprune implements the AOM-weighted DOM pruner of spec.md §4.8.
// aom.go ports the weight table and priority order of
// _examples/original_source/src/pagemap/pruning/aom_filter.py: the regex
// literals, threshold constants, and schema exceptions define the
// observable behavior, not just an implementation detail, so they're
// carried over deliberately rather than approximated.
package htmlprune

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/retio-ai/pagemap/internal/pagemodel"
)

// semanticWeights mirrors aom_filter.py's _SEMANTIC_WEIGHTS for the tags
// that carry no further schema/interactivity exception: main/article get a
// flat keep, nav a flat removal. header/footer/section/aside are handled
// as special cases in computeWeight because each has a conditional weight.
var semanticWeights = map[string]float64{
	"main":    1.0,
	"article": 1.0,
	"nav":     0.0,
}

const (
	headerFooterBodyChildWeight = 0.0
	headerFooterNestedWeight    = 0.8
	sectionLabeledWeight        = 0.8
	sectionUnlabeledWeight      = 0.6
	asideDefaultWeight          = 0.3
	filterSidebarWeight         = 0.7 // aom_filter.py's _FILTER_SIDEBAR_WEIGHT
	governmentFooterWeight      = 0.6 // aom_filter.py's gov.kr footer-gov-exception

	linkDensityHighThreshold  = 0.8
	linkDensityHighWeight     = 0.2
	linkDensityModerateThresh = 0.5
	linkDensityModerateWeight = 0.4
	linkDensityMinTextLen     = 50 // aom_filter.py's _LINK_DENSITY_MIN_TEXT_LEN

	noiseCountThreshold        = 2   // aom_filter.py's _NOISE_COUNT_THRESHOLD
	noisePatternWeight         = 0.2 // aom_filter.py's _NOISE_PATTERN_WEIGHT
	contentNoiseOverrideWeight = 0.7 // aom_filter.py's _CONTENT_NOISE_OVERRIDE_WEIGHT

	// keepThreshold is the cutoff at or above which a computed weight keeps a node.
	keepThreshold = 0.5
)

var linkDensityTags = map[string]bool{
	"div": true, "li": true, "td": true, "th": true, "p": true, "blockquote": true,
}

// noisePatterns and contentPatterns are aom_filter.py's _NOISE_PATTERNS and
// _CONTENT_PATTERNS: same literals, same order, case-insensitive.
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bad[-_]?\b`),
	regexp.MustCompile(`(?i)\badvertis`),
	regexp.MustCompile(`(?i)\bsponsor`),
	regexp.MustCompile(`(?i)\bbanner\b`),
	regexp.MustCompile(`(?i)\brecommend`),
	regexp.MustCompile(`(?i)\brelated\b`),
	regexp.MustCompile(`(?i)\bsidebar\b`),
	regexp.MustCompile(`(?i)\bpopup\b`),
	regexp.MustCompile(`(?i)\bmodal\b`),
	regexp.MustCompile(`(?i)\bcookie\b`),
	regexp.MustCompile(`(?i)\btracking\b`),
	regexp.MustCompile(`(?i)\boverlay\b`),
	regexp.MustCompile(`(?i)\bpromo`),
	regexp.MustCompile(`(?i)\bwidget\b`),
	regexp.MustCompile(`(?i)\btoast\b`),
	regexp.MustCompile(`(?i)\bsnackbar\b`),
}

var contentPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\barticle\b`),
	regexp.MustCompile(`(?i)\bcontent\b`),
	regexp.MustCompile(`(?i)\bentry\b`),
	regexp.MustCompile(`(?i)\bpost\b`),
	regexp.MustCompile(`(?i)\bstory\b`),
}

// reasonToRegion maps a removal reason to the landmark region name used by
// derivePrunedRegions, matching aom_filter.py's _REASON_TO_REGION exactly:
// noise-class and link-density removals are intentionally excluded (no
// region mapping), since they aren't landmark-driven removals.
var reasonToRegion = map[string]string{
	"nav-tag":            "navigation",
	"role-navigation":    "navigation",
	"header-tag":         "header",
	"role-banner":        "header",
	"footer-tag":         "footer",
	"role-contentinfo":   "footer",
	"aside-tag":          "complementary",
	"role-complementary": "complementary",
}

// classIDAttrs gathers text from class and id for noise/content matching.
func classIDAttrs(s *goquery.Selection) string {
	class, _ := s.Attr("class")
	id, _ := s.Attr("id")
	return class + " " + id
}

// linkDensity is the ratio of anchor text length to total text length.
func linkDensity(s *goquery.Selection) float64 {
	total := len(strings.TrimSpace(s.Text()))
	if total == 0 {
		return 0
	}
	linkLen := 0
	s.Find("a").Each(func(_ int, a *goquery.Selection) {
		linkLen += len(strings.TrimSpace(a.Text()))
	})
	return float64(linkLen) / float64(total)
}

// hasInteractiveDescendants reports whether s contains a visible form
// control (input/select/textarea, hidden inputs excluded), the signal that
// distinguishes a filter sidebar from a related-products rail
// (aom_filter.py's _has_interactive_descendants).
func hasInteractiveDescendants(s *goquery.Selection) bool {
	found := false
	s.Find("input, select, textarea").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		if goquery.NodeName(el) == "input" {
			if typ, ok := el.Attr("type"); ok && strings.EqualFold(typ, "hidden") {
				return true
			}
		}
		found = true
		return false
	})
	return found
}

// countMatches counts how many of patterns match classID.
func countMatches(classID string, patterns []*regexp.Regexp) int {
	if strings.TrimSpace(classID) == "" {
		return 0
	}
	n := 0
	for _, re := range patterns {
		if re.MatchString(classID) {
			n++
		}
	}
	return n
}

// computeWeight applies the priority order from aom_filter.py's
// _compute_weight: explicit role attribute, then HTML5 semantic tag (with
// schema-conditional exceptions for government-site footers and
// interactive asides/complementary regions), aria-hidden, inline style,
// noise/content class-id matching, then link density for a fixed tag set.
// isBodyDirectChild distinguishes a top-level <header>/<footer> (weight 0,
// chrome) from one nested inside an article (weight 0.8, likely content).
// schema carries the page's detected SchemaName for the gov-footer and
// filter-sidebar exceptions.
func computeWeight(s *goquery.Selection, isBodyDirectChild bool, schema pagemodel.SchemaName) (float64, string) {
	tag := goquery.NodeName(s)

	// 1. Explicit role attribute.
	if role, ok := s.Attr("role"); ok {
		switch strings.ToLower(role) {
		case "navigation":
			return 0.0, "role-navigation"
		case "banner":
			return headerFooterBodyChildWeight, "role-banner"
		case "contentinfo":
			if schema == pagemodel.SchemaGovernmentPage {
				return governmentFooterWeight, "footer-gov-exception"
			}
			return headerFooterBodyChildWeight, "role-contentinfo"
		case "complementary":
			if hasInteractiveDescendants(s) {
				return filterSidebarWeight, "filter-sidebar"
			}
			return 0.3, "role-complementary"
		case "main", "article":
			return 1.0, "role-" + strings.ToLower(role)
		case "region":
			return 0.8, "role-region"
		}
	}

	// 2. HTML5 semantic tag mapping.
	switch tag {
	case "header", "footer":
		if isBodyDirectChild {
			if tag == "footer" && schema == pagemodel.SchemaGovernmentPage {
				return governmentFooterWeight, "footer-gov-exception"
			}
			return headerFooterBodyChildWeight, tag + "-tag"
		}
		return headerFooterNestedWeight, tag + "-nested"
	case "section":
		if label, ok := s.Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
			return sectionLabeledWeight, "section-labeled"
		}
		if labelledBy, ok := s.Attr("aria-labelledby"); ok && strings.TrimSpace(labelledBy) != "" {
			return sectionLabeledWeight, "section-labeled"
		}
		return sectionUnlabeledWeight, "section-unlabeled"
	case "aside":
		if hasInteractiveDescendants(s) {
			return filterSidebarWeight, "filter-sidebar"
		}
		return asideDefaultWeight, "aside-tag"
	}
	if w, ok := semanticWeights[tag]; ok {
		return w, tag + "-tag"
	}

	// 3. aria-hidden="true".
	if hidden, ok := s.Attr("aria-hidden"); ok && strings.EqualFold(hidden, "true") {
		return 0.0, "aria-hidden"
	}

	// 4. Inline style display:none / visibility:hidden.
	if style, ok := s.Attr("style"); ok {
		lower := strings.ToLower(style)
		if strings.Contains(lower, "display:none") || strings.Contains(lower, "display: none") {
			return 0.0, "inline-style-hide"
		}
		if strings.Contains(lower, "visibility:hidden") || strings.Contains(lower, "visibility: hidden") {
			return 0.0, "inline-style-hide"
		}
	}

	// 5. Class/ID noise patterns + content patterns, count-and-compare:
	// a single incidental match (e.g. one word that looks like "post")
	// isn't enough to condemn a node; it takes two or more noise hits,
	// and even then a content pattern present alongside them pulls the
	// weight back up rather than removing the node outright.
	classID := classIDAttrs(s)
	noiseCount := countMatches(classID, noisePatterns)
	contentCount := countMatches(classID, contentPatterns)

	if noiseCount >= noiseCountThreshold {
		if contentCount > 0 {
			return contentNoiseOverrideWeight, "content-override-noise"
		}
		return noisePatternWeight, "noise-class-id"
	}
	if contentCount > 0 {
		return 1.0, "content-class-id"
	}

	// 6. Link density penalty (block-level containers only, and only once
	// the node has enough text to make the ratio meaningful).
	if linkDensityTags[tag] {
		if len(strings.TrimSpace(s.Text())) > linkDensityMinTextLen {
			ld := linkDensity(s)
			if ld > linkDensityHighThreshold {
				return linkDensityHighWeight, "link-density-high"
			}
			if ld > linkDensityModerateThresh {
				return linkDensityModerateWeight, "link-density-moderate"
			}
		}
	}

	// 7. Default: keep.
	return 1.0, "default"
}

// isGridWhitelisted protects repeated-sibling grid/list layouts (e.g. product
// cards) from the link-density penalty: 3+ siblings sharing a tag, each with
// a link density above the moderate threshold, are judged a repeated
// link-heavy layout rather than a nav bar. AOMFilter consults it only for
// link-density removals, never for hidden or noise-class ones.
// Flagged in DESIGN.md as a tunable heuristic; no equivalent constant exists
// in aom_filter.py, which doesn't implement a grid exemption.
func isGridWhitelisted(s *goquery.Selection) bool {
	parent := s.Parent()
	if parent.Length() == 0 {
		return false
	}
	tag := goquery.NodeName(s)
	siblingCount := 0
	allLinkHeavy := true
	parent.Children().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) != tag {
			return
		}
		siblingCount++
		if linkDensity(c) <= linkDensityModerateThresh {
			allLinkHeavy = false
		}
	})
	return siblingCount >= 3 && allLinkHeavy
}

// PruneResult is the outcome of aomFilter: the remaining document plus the
// distinct removal reasons observed, for derive_pruned_regions.
type PruneResult struct {
	Doc     *goquery.Document
	Reasons map[string]bool
}

// AOMFilter removes low-weight nodes from doc in place and returns the set
// of removal reasons observed, mirroring aom_filter.py's aom_filter().
// Removal is parent-first: once a node is marked for removal its descendants
// are skipped, since removing the parent already drops them from the tree.
// schema carries the page's detected SchemaName so GovernmentPage's footer
// exception and the filter-sidebar exception can apply during weighing.
func AOMFilter(doc *goquery.Document, schema pagemodel.SchemaName) map[string]bool {
	reasons := make(map[string]bool)
	var toRemove []*goquery.Selection

	doc.Find("body *").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		if tag == "style" || tag == "noscript" || tag == "template" {
			toRemove = append(toRemove, s)
			return
		}
		if tag == "script" {
			// JSON-LD and JSON data-island payloads (e.g. Next.js RSC
			// props) survive so chunk decomposition can classify them as
			// META or RSC_DATA; ordinary script bodies have no surviving
			// chunk type and are dropped here like style/noscript.
			scriptType := strings.ToLower(strings.TrimSpace(attrOrEmpty(s, "type")))
			if scriptType != "application/ld+json" && scriptType != "application/json" {
				toRemove = append(toRemove, s)
			}
			return
		}
		isBodyChild := goquery.NodeName(s.Parent()) == "body"
		weight, reason := computeWeight(s, isBodyChild, schema)
		if weight < keepThreshold && strings.HasPrefix(reason, "link-density") && isGridWhitelisted(s) {
			return
		}
		if weight < keepThreshold {
			toRemove = append(toRemove, s)
			reasons[reason] = true
		}
	})

	removed := make(map[string]bool)
	for _, s := range toRemove {
		if nodeRemoved(s, removed) {
			continue
		}
		markRemoved(s, removed)
		s.Remove()
	}
	return reasons
}

func attrOrEmpty(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return v
}

// nodeRemoved reports whether s or an ancestor of s was already removed.
func nodeRemoved(s *goquery.Selection, removed map[string]bool) bool {
	ptr := nodePointer(s)
	if removed[ptr] {
		return true
	}
	parent := s.Parent()
	for parent.Length() > 0 {
		if removed[nodePointer(parent)] {
			return true
		}
		parent = parent.Parent()
	}
	return false
}

func markRemoved(s *goquery.Selection, removed map[string]bool) {
	removed[nodePointer(s)] = true
}

// nodePointer derives a stable identity key for a *html.Node via its address.
func nodePointer(s *goquery.Selection) string {
	if s.Length() == 0 {
		return ""
	}
	return nodeAddr(s.Get(0))
}
