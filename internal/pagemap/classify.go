// Package pagemap coordinates the detect→prune→compress pipeline into the
// final PageMap object (spec.md §4.10). Grounded on the teacher's
// cmd/dev-console/main.go request-handling flow: one function per tool,
// each threading a session through the same ordered sequence of pure
// sub-steps rather than one monolithic method.
package pagemap

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/retio-ai/pagemap/internal/pagemodel"
)

// jsonLDType maps a schema.org @type value (as it appears in JSON-LD) to a
// SchemaName. Spec.md leaves the exact JSON-LD parsing unspecified beyond
// "derived from JSON-LD and URL" (§ glossary); this is a reasonable, narrow
// reading of that instruction (see DESIGN.md).
var jsonLDType = map[string]pagemodel.SchemaName{
	"product":        pagemodel.SchemaProduct,
	"newsarticle":    pagemodel.SchemaNewsArticle,
	"article":        pagemodel.SchemaNewsArticle,
	"event":          pagemodel.SchemaEvent,
	"localbusiness":  pagemodel.SchemaLocalBusiness,
	"faqpage":        pagemodel.SchemaFAQPage,
	"videoobject":    pagemodel.SchemaVideoObject,
	"softwareapplication": pagemodel.SchemaSaaSPage,
	"governmentservice":   pagemodel.SchemaGovernmentPage,
}

var jsonLDTypeRe = regexp.MustCompile(`"@type"\s*:\s*"([A-Za-z]+)"`)

// DetectSchema inspects a page's JSON-LD script tags for an @type hint,
// falling back to URL path heuristics (wikipedia.org -> WikiArticle,
// .gov -> GovernmentPage), and SchemaGeneric otherwise.
func DetectSchema(doc *goquery.Document, rawURL string) pagemodel.SchemaName {
	var found pagemodel.SchemaName
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		m := jsonLDTypeRe.FindStringSubmatch(sel.Text())
		if m == nil {
			return true
		}
		if name, ok := jsonLDType[strings.ToLower(m[1])]; ok {
			found = name
			return false
		}
		return true
	})
	if found != "" {
		return found
	}

	lower := strings.ToLower(rawURL)
	switch {
	case strings.Contains(lower, "wikipedia.org"):
		return pagemodel.SchemaWikiArticle
	case strings.Contains(lower, ".gov/") || strings.Contains(lower, ".gov."):
		return pagemodel.SchemaGovernmentPage
	}
	return pagemodel.SchemaGeneric
}

// urlPatterns is an ordered list of (path/query substring, PageType) pairs
// checked before falling back to DOM-shape heuristics.
var urlPatterns = []struct {
	substr string
	pt     pagemodel.PageType
}{
	{"/cart", pagemodel.PageCheckout},
	{"/checkout", pagemodel.PageCheckout},
	{"/login", pagemodel.PageLogin},
	{"/signin", pagemodel.PageLogin},
	{"/sign-in", pagemodel.PageLogin},
	{"/search", pagemodel.PageSearchResults},
	{"/settings", pagemodel.PageSettings},
	{"/account/settings", pagemodel.PageSettings},
	{"/docs/", pagemodel.PageDocumentation},
	{"/documentation/", pagemodel.PageDocumentation},
	{"/faq", pagemodel.PageHelpFAQ},
	{"/help", pagemodel.PageHelpFAQ},
	{"/dashboard", pagemodel.PageDashboard},
}

// DetectPageType classifies a page's UI type from its URL and DOM shape.
// URL substrings are checked first (cheap, high-precision); DOM heuristics
// (product/article/listing structure) break ties when the URL is generic.
func DetectPageType(doc *goquery.Document, rawURL string, httpStatus int) pagemodel.PageType {
	lowerURL := strings.ToLower(rawURL)
	for _, p := range urlPatterns {
		if strings.Contains(lowerURL, p.substr) {
			return p.pt
		}
	}

	if httpStatus == 403 || httpStatus == 503 {
		return pagemodel.PageBlocked
	}

	switch {
	case doc.Find(`form input[type="password"]`).Length() > 0:
		return pagemodel.PageLogin
	case doc.Find(`[itemtype*="schema.org/Product"], .add-to-cart, [data-testid*="add-to-cart"]`).Length() > 0:
		return pagemodel.PageProductDetail
	case doc.Find("article, [itemtype*=\"schema.org/Article\"]").Length() > 0:
		return pagemodel.PageArticle
	case doc.Find(`video, [itemtype*="schema.org/VideoObject"]`).Length() > 0:
		return pagemodel.PageVideo
	case doc.Find(`form`).Length() > 0 && doc.Find(`input, textarea, select`).Length() >= 3:
		return pagemodel.PageForm
	}

	results := doc.Find(`.search-results, .results-list, [data-testid*="search-result"]`)
	listish := doc.Find("ul li, ol li, table tr").Length()
	if results.Length() > 0 || listish > 10 {
		return pagemodel.PageListing
	}

	return pagemodel.PageUnknown
}

// blockedBodyThreshold is the body-text length below which a page is a
// candidate for the blocked/captcha classifier (spec.md §4.10 step 8).
const blockedBodyThreshold = 200

var challengeMarkers = []string{
	"captcha", "checking your browser", "cloudflare", "access denied",
	"ddos protection", "are you human", "unusual traffic",
}

// ClassifyBlocked detects an anti-bot challenge page from a thin body plus a
// known challenge marker, or a hard-denied HTTP status.
func ClassifyBlocked(bodyText string, httpStatus int) (blocked bool, reason string) {
	if httpStatus == 403 || httpStatus == 503 {
		return true, "http status " + httpStatusText(httpStatus)
	}
	trimmed := strings.TrimSpace(bodyText)
	if len(trimmed) > blockedBodyThreshold {
		return false, ""
	}
	lower := strings.ToLower(trimmed)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return true, "challenge marker: " + marker
		}
	}
	return false, ""
}

func httpStatusText(status int) string {
	switch status {
	case 403:
		return "403"
	case 503:
		return "503"
	default:
		return ""
	}
}
