package pagemodel

import "time"

// Interactable is one addressable UI control surfaced from the accessibility
// tree (spec.md §3/§4.7). Ref values within one PageMap are contiguous
// 1..N; Name is already sanitized before it ever reaches this struct.
type Interactable struct {
	Ref        int        `json:"ref"`
	Role       string     `json:"role"`
	Name       string     `json:"name"`
	Affordance Affordance `json:"affordance"`
	Region     string     `json:"region"`
	Tier       int        `json:"tier"` // 1 = named, 2 = unnamed but present
	Disabled   bool       `json:"disabled,omitempty"`
	Checked    *bool      `json:"checked,omitempty"`
	Value      string     `json:"value,omitempty"`
	Options    []string   `json:"options,omitempty"`
	Selector   string     `json:"selector,omitempty"`
	Priority   int        `json:"-"` // not serialized; the pipeline leaves it unset (budget filtering ranks via pagemap.bucketFor)
}

// HtmlChunkSummary is the serialized projection of a kept htmlprune.HtmlChunk
// placed on the wire PageMap; the full decision/xpath bookkeeping stays
// internal to the pruning pipeline.
type HtmlChunkSummary struct {
	Tag  string    `json:"tag"`
	Type ChunkType `json:"type"`
	Text string    `json:"text,omitempty"`
}

// PageMap is the immutable per-request result returned by get_page_map /
// batch_get_page_map (spec.md §3).
type PageMap struct {
	URL           string             `json:"url"`
	Title         string             `json:"title"`
	PageType      PageType           `json:"page_type"`
	Schema        SchemaName         `json:"schema"`
	Interactables []Interactable     `json:"interactables"`
	PrunedContext string             `json:"pruned_context"`
	PrunedTokens  int                `json:"pruned_tokens"`
	GenerationMS  float64            `json:"generation_ms"`
	Images        []string           `json:"images,omitempty"`
	Metadata      map[string]any     `json:"metadata,omitempty"`
	Chunks        []HtmlChunkSummary `json:"chunks,omitempty"`
	PrunedRegions []string           `json:"pruned_regions,omitempty"`
	NextPageURL   string             `json:"next_page_url,omitempty"`
	PrevPageURL   string             `json:"prev_page_url,omitempty"`
	ActiveFilters []string           `json:"active_filters,omitempty"`
	Blocked       bool               `json:"blocked,omitempty"`
	BlockedReason string             `json:"blocked_reason,omitempty"`
	Warnings      []string           `json:"warnings,omitempty"`
	GeneratedAt   time.Time          `json:"generated_at"`
}
