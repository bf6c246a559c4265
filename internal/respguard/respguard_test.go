package respguard

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/retio-ai/pagemap/internal/telemetry"
)

func TestApplyPassesThroughSmallBody(t *testing.T) {
	g := New(100, telemetry.NoopSink{})
	if got := g.Apply("get_page_map", "hello"); got != "hello" {
		t.Fatalf("expected body unchanged, got %q", got)
	}
}

func TestApplyTruncatesOversizedBody(t *testing.T) {
	g := New(10, telemetry.NoopSink{})
	body := strings.Repeat("a", 100)
	got := g.Apply("get_page_map", body)
	if len(got) <= 10 {
		t.Fatal("expected truncation marker to extend the result beyond the raw limit")
	}
	if !strings.Contains(got, "Truncated") {
		t.Fatalf("expected a truncation marker, got %q", got)
	}
	if !strings.HasPrefix(got, strings.Repeat("a", 10)) {
		t.Fatalf("expected the first 10 bytes preserved, got %q", got)
	}
}

func TestApplyTruncatesAtUTF8Boundary(t *testing.T) {
	g := New(6, telemetry.NoopSink{})
	// "日本語" is three 3-byte runes; a cut at byte 6 lands exactly between
	// runes 2 and 3, but shifting by one either way must not split a rune.
	body := "日本語あ"
	got := g.Apply("get_page_map", body)
	prefix := strings.SplitN(got, "\n", 2)[0]
	if !utf8.ValidString(prefix) {
		t.Fatalf("expected UTF-8-safe truncation, got invalid prefix %q", prefix)
	}
}

func TestNewFallsBackToDefaultLimitForNonPositive(t *testing.T) {
	g := New(0, nil)
	if g.LimitBytes != DefaultLimitBytes {
		t.Fatalf("expected default limit, got %d", g.LimitBytes)
	}
	if g.Sink == nil {
		t.Fatal("expected a non-nil sink fallback")
	}
}

func TestCheckScreenshotAllowsWithinLimit(t *testing.T) {
	g := New(100, telemetry.NoopSink{})
	if err := g.CheckScreenshot(1000, make([]byte, 500)); err != nil {
		t.Fatalf("expected screenshot within limit to pass, got %v", err)
	}
}

func TestCheckScreenshotRejectsOversized(t *testing.T) {
	g := New(100, telemetry.NoopSink{})
	if err := g.CheckScreenshot(10, make([]byte, 20)); err == nil {
		t.Fatal("expected oversized screenshot to be rejected")
	}
}

func TestCheckScreenshotUsesDefaultLimitWhenUnset(t *testing.T) {
	g := New(100, telemetry.NoopSink{})
	if err := g.CheckScreenshot(0, make([]byte, DefaultScreenshotLimitBytes+1)); err == nil {
		t.Fatal("expected default screenshot limit to apply when limitBytes <= 0")
	}
}
