package compress

import (
	"testing"

	"github.com/retio-ai/pagemap/internal/htmlprune"
	"github.com/retio-ai/pagemap/internal/pagemodel"
)

func TestSelectCompressorPrefersSchemaOverride(t *testing.T) {
	fn := selectCompressor(pagemodel.PageArticle, pagemodel.SchemaVideoObject)
	decisions := []htmlprune.Decision{
		{Chunk: htmlprune.HtmlChunk{Type: pagemodel.ChunkMeta, Text: "A Great Video"}, Keep: true},
		{Chunk: htmlprune.HtmlChunk{Type: pagemodel.ChunkTextBlock, Text: "unrelated filler prose"}, Keep: true},
	}
	got := fn(decisions)
	if got != "A Great Video" {
		t.Fatalf("expected video compressor to keep only meta/heading text, got %q", got)
	}
}

func TestSelectCompressorFallsBackToPageType(t *testing.T) {
	fn := selectCompressor(pagemodel.PageSearchResults, pagemodel.SchemaGeneric)
	decisions := []htmlprune.Decision{
		{Chunk: htmlprune.HtmlChunk{Type: pagemodel.ChunkList, Text: "Item A"}, Keep: true},
	}
	got := fn(decisions)
	if got != "- Item A" {
		t.Fatalf("expected search-results compressor bullet formatting, got %q", got)
	}
}

func TestSelectCompressorDefaultsWhenNoMatch(t *testing.T) {
	fn := selectCompressor(pagemodel.PageDashboard, pagemodel.SchemaGeneric)
	decisions := []htmlprune.Decision{
		{Chunk: htmlprune.HtmlChunk{Type: pagemodel.ChunkTextBlock, Text: "hello"}, Keep: true},
		{Chunk: htmlprune.HtmlChunk{Type: pagemodel.ChunkTextBlock, Text: "dropped"}, Keep: false},
	}
	got := fn(decisions)
	if got != "hello" {
		t.Fatalf("expected default compressor to join only kept chunks, got %q", got)
	}
}

func TestCompressForArticleFormatsHeadings(t *testing.T) {
	decisions := []htmlprune.Decision{
		{Chunk: htmlprune.HtmlChunk{Type: pagemodel.ChunkHeading, Text: "Intro"}, Keep: true},
		{Chunk: htmlprune.HtmlChunk{Type: pagemodel.ChunkTextBlock, Text: "Body text."}, Keep: true},
	}
	got := compressForArticle(decisions)
	want := "## Intro\nBody text."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
