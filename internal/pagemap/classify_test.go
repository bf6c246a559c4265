package pagemap

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/retio-ai/pagemap/internal/pagemodel"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse html: %v", err)
	}
	return doc
}

func TestDetectSchemaFromJSONLD(t *testing.T) {
	html := `<html><head><script type="application/ld+json">{"@type":"Product","name":"Widget"}</script></head><body></body></html>`
	got := DetectSchema(mustDoc(t, html), "https://example.com/widget")
	if got != pagemodel.SchemaProduct {
		t.Fatalf("got %s", got)
	}
}

func TestDetectSchemaFallsBackToURL(t *testing.T) {
	html := `<html><body>no structured data</body></html>`
	got := DetectSchema(mustDoc(t, html), "https://en.wikipedia.org/wiki/Go")
	if got != pagemodel.SchemaWikiArticle {
		t.Fatalf("got %s", got)
	}
}

func TestDetectSchemaDefaultsToGeneric(t *testing.T) {
	html := `<html><body>plain</body></html>`
	got := DetectSchema(mustDoc(t, html), "https://example.com/")
	if got != pagemodel.SchemaGeneric {
		t.Fatalf("got %s", got)
	}
}

func TestDetectPageTypeFromURL(t *testing.T) {
	html := `<html><body></body></html>`
	got := DetectPageType(mustDoc(t, html), "https://shop.example.com/checkout", 200)
	if got != pagemodel.PageCheckout {
		t.Fatalf("got %s", got)
	}
}

func TestDetectPageTypeLoginFromPasswordField(t *testing.T) {
	html := `<html><body><form><input type="password"></form></body></html>`
	got := DetectPageType(mustDoc(t, html), "https://example.com/account", 200)
	if got != pagemodel.PageLogin {
		t.Fatalf("got %s", got)
	}
}

func TestDetectPageTypeBlockedOn403(t *testing.T) {
	html := `<html><body>forbidden</body></html>`
	got := DetectPageType(mustDoc(t, html), "https://example.com/page", 403)
	if got != pagemodel.PageBlocked {
		t.Fatalf("got %s", got)
	}
}

func TestClassifyBlockedOnChallengeMarker(t *testing.T) {
	blocked, reason := ClassifyBlocked("Checking your browser before accessing example.com.", 200)
	if !blocked || reason == "" {
		t.Fatalf("expected challenge marker to classify as blocked, got blocked=%v reason=%q", blocked, reason)
	}
}

func TestClassifyBlockedIgnoresLongNormalBody(t *testing.T) {
	body := strings.Repeat("This is a perfectly normal page with plenty of content. ", 10)
	blocked, _ := ClassifyBlocked(body, 200)
	if blocked {
		t.Fatal("did not expect a long normal body to classify as blocked")
	}
}

func TestClassifyBlockedOnHTTPStatus(t *testing.T) {
	blocked, reason := ClassifyBlocked("normal-looking short body", 503)
	if !blocked || reason == "" {
		t.Fatalf("expected 503 to classify as blocked")
	}
}
