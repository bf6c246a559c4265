package htmlprune

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/retio-ai/pagemap/internal/pagemodel"
)

func TestAOMFilterRemovesNav(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<html><body>
			<nav>Home About Contact</nav>
			<main><article><p>This is the real content of the page, long enough to keep.</p></article></main>
		</body></html>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	AOMFilter(doc, pagemodel.SchemaGeneric)

	if doc.Find("nav").Length() != 0 {
		t.Errorf("expected <nav> to be removed")
	}
	if doc.Find("main").Length() != 1 {
		t.Errorf("expected <main> to survive")
	}
}

func TestAOMFilterKeepsGridWhitelistedDivs(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<html><body>
			<main>
				<div class="card"><a href="/1">Item one: a product card whose whole text is one long link</a></div>
				<div class="card"><a href="/2">Item two: a product card whose whole text is one long link</a></div>
				<div class="card"><a href="/3">Item three: a product card whose whole text is one long link</a></div>
			</main>
		</body></html>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	AOMFilter(doc, pagemodel.SchemaGeneric)

	if doc.Find("div.card").Length() != 3 {
		t.Errorf("expected grid-whitelisted cards to survive, got %d", doc.Find("div.card").Length())
	}
}

func TestComputeWeightRequiresTwoNoiseMatches(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<html><body><div class="banner-section">one incidental noise-pattern match</div></body></html>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s := doc.Find("div")
	w, reason := computeWeight(s, true, pagemodel.SchemaGeneric)
	if reason != "default" || w != 1.0 {
		t.Errorf("expected a single noise match to fall through to default/1.0, got %v/%q", w, reason)
	}
}

func TestComputeWeightNoiseOverriddenByContentPattern(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<html><body><div class="sponsor-related-article">content override case</div></body></html>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s := doc.Find("div")
	w, reason := computeWeight(s, true, pagemodel.SchemaGeneric)
	if reason != "content-override-noise" || w != contentNoiseOverrideWeight {
		t.Errorf("expected content-override-noise at %v, got %v/%q", contentNoiseOverrideWeight, w, reason)
	}
}

func TestComputeWeightGovernmentFooterException(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<html><body><footer>Accessibility statement and contact info</footer></body></html>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s := doc.Find("footer")
	w, reason := computeWeight(s, true, pagemodel.SchemaGovernmentPage)
	if reason != "footer-gov-exception" || w != governmentFooterWeight {
		t.Errorf("expected footer-gov-exception at %v, got %v/%q", governmentFooterWeight, w, reason)
	}
	w2, reason2 := computeWeight(s, true, pagemodel.SchemaGeneric)
	if reason2 != "footer-tag" || w2 != headerFooterBodyChildWeight {
		t.Errorf("expected ordinary footer-tag removal for a generic schema, got %v/%q", w2, reason2)
	}
}

func TestComputeWeightFilterSidebarException(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<html><body><aside><select><option>Size</option></select></aside></body></html>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	s := doc.Find("aside")
	w, reason := computeWeight(s, true, pagemodel.SchemaGeneric)
	if reason != "filter-sidebar" || w != filterSidebarWeight {
		t.Errorf("expected filter-sidebar at %v, got %v/%q", filterSidebarWeight, w, reason)
	}
}

func TestComputeWeightSectionLabeledVsUnlabeled(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`
		<html><body>
			<section aria-label="Reviews">labeled</section>
			<section>unlabeled</section>
		</body></html>`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	sections := doc.Find("section")
	w, reason := computeWeight(sections.Eq(0), false, pagemodel.SchemaGeneric)
	if reason != "section-labeled" || w != sectionLabeledWeight {
		t.Errorf("expected section-labeled at %v, got %v/%q", sectionLabeledWeight, w, reason)
	}
	w2, reason2 := computeWeight(sections.Eq(1), false, pagemodel.SchemaGeneric)
	if reason2 != "section-unlabeled" || w2 != sectionUnlabeledWeight {
		t.Errorf("expected section-unlabeled at %v, got %v/%q", sectionUnlabeledWeight, w2, reason2)
	}
}

func TestPruneChunksNoMainFallbackGatedOnHasMain(t *testing.T) {
	chunk := HtmlChunk{Type: pagemodel.ChunkHeading, Text: "Welcome", InMain: false}

	withoutMain := PruneChunks([]HtmlChunk{chunk}, pagemodel.SchemaGeneric, false)
	if !withoutMain[0].Keep || withoutMain[0].Reason != pagemodel.ReasonKeepHeadingNoMain {
		t.Errorf("expected keep-heading-no-main to fire when hasMain=false, got %+v", withoutMain[0])
	}

	withMain := PruneChunks([]HtmlChunk{chunk}, pagemodel.SchemaGeneric, true)
	if withMain[0].Keep || withMain[0].Reason != pagemodel.ReasonNoMatch {
		t.Errorf("expected no-main fallback suppressed when hasMain=true, got %+v", withMain[0])
	}
}

func TestXPathSortKeyNumericOrder(t *testing.T) {
	a := xpathSortKey("/body/div[2]/p[10]")
	b := xpathSortKey("/body/div[2]/p[3]")
	if compareSortKeys(a, b) <= 0 {
		t.Errorf("expected p[10] to sort after p[3]")
	}
}

func TestCompressHTMLRemovesEmptyTags(t *testing.T) {
	out := CompressHTML(`<div><span></span><p>keep me</p><div></div></div>`)
	if strings.Contains(out, "<span>") {
		t.Errorf("expected empty span stripped, got %q", out)
	}
	if !strings.Contains(out, "keep me") {
		t.Errorf("expected text content retained, got %q", out)
	}
}
