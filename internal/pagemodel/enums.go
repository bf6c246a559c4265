// Package pagemodel holds the enumerations shared across the page-map
// construction pipeline (htmlprune, compress, pagemap, axdetect) so those
// packages can depend on a single leaf package instead of each other.
// Grounded on _examples/original_source/src/pagemap/pruning/__init__.py's
// StrEnum definitions (ChunkType, SchemaName, PageType, PruneReason), kept
// as Go string-typed constants rather than translating Python's StrEnum
// mechanics literally.
package pagemodel

// PageType is the UI classification used to select a pruned-context compressor.
type PageType string

const (
	PageProductDetail  PageType = "product_detail"
	PageSearchResults  PageType = "search_results"
	PageArticle        PageType = "article"
	PageListing        PageType = "listing"
	PageNews           PageType = "news"
	PageLogin          PageType = "login"
	PageForm           PageType = "form"
	PageCheckout       PageType = "checkout"
	PageDashboard      PageType = "dashboard"
	PageHelpFAQ        PageType = "help_faq"
	PageSettings       PageType = "settings"
	PageError          PageType = "error"
	PageDocumentation  PageType = "documentation"
	PageLanding        PageType = "landing"
	PageVideo          PageType = "video"
	PageBlocked        PageType = "blocked"
	PageUnknown        PageType = "unknown"
)

// SchemaName is the structured-data classification derived from JSON-LD/URL.
type SchemaName string

const (
	SchemaProduct        SchemaName = "Product"
	SchemaNewsArticle    SchemaName = "NewsArticle"
	SchemaWikiArticle    SchemaName = "WikiArticle"
	SchemaSaaSPage       SchemaName = "SaaSPage"
	SchemaGovernmentPage SchemaName = "GovernmentPage"
	SchemaFAQPage        SchemaName = "FAQPage"
	SchemaEvent          SchemaName = "Event"
	SchemaLocalBusiness  SchemaName = "LocalBusiness"
	SchemaVideoObject    SchemaName = "VideoObject"
	SchemaGeneric        SchemaName = "Generic"
)

// ChunkType classifies an atomic HTML chunk produced by DOM decomposition.
type ChunkType string

const (
	ChunkTable     ChunkType = "table"
	ChunkList      ChunkType = "list"
	ChunkTextBlock ChunkType = "text_block"
	ChunkHeading   ChunkType = "heading"
	ChunkMedia     ChunkType = "media"
	ChunkForm      ChunkType = "form"
	ChunkMeta      ChunkType = "meta"
	ChunkRSCData   ChunkType = "rsc_data"
)

// PruneReason records why a chunk was kept or removed.
type PruneReason string

const (
	ReasonMetaAlwaysKeep   PruneReason = "meta-always-keep"
	ReasonSchemaMatch      PruneReason = "schema-match"
	ReasonCoupangRecFilter PruneReason = "coupang-recommendation-filter"
	ReasonInMainHeading    PruneReason = "in-main-heading"
	ReasonInMainText       PruneReason = "in-main-text"
	ReasonInMainHVShort    PruneReason = "in-main-high-value-short"
	ReasonInMainStructured PruneReason = "in-main-structured"
	ReasonInMainForm       PruneReason = "in-main-form"
	ReasonInMainMedia      PruneReason = "in-main-media"
	ReasonInMainShort      PruneReason = "in-main-short"
	ReasonKeepHeadingNoMain PruneReason = "keep-heading-no-main"
	ReasonKeepTextNoMain   PruneReason = "keep-text-no-main"
	ReasonKeepFormNoMain   PruneReason = "keep-form-no-main"
	ReasonKeepMediaNoMain  PruneReason = "keep-media-no-main"
	ReasonNoMatch          PruneReason = "no-match"
)

// Affordance is the action vocabulary an Interactable accepts.
type Affordance string

const (
	AffordanceClick    Affordance = "click"
	AffordanceType     Affordance = "type"
	AffordanceSelect   Affordance = "select"
	AffordancePressKey Affordance = "press_key"
)

// RoleToAffordance is the total role -> affordance map (spec.md §4.7).
// Every role in the fixed interactive set MUST appear here; a missing entry
// for a role in that set is a programming error, not a runtime fallback.
var RoleToAffordance = map[string]Affordance{
	"button":     AffordanceClick,
	"link":       AffordanceClick,
	"checkbox":   AffordanceClick,
	"radio":      AffordanceClick,
	"tab":        AffordanceClick,
	"menuitem":   AffordanceClick,
	"switch":     AffordanceClick,
	"searchbox":  AffordanceType,
	"textbox":    AffordanceType,
	"combobox":   AffordanceSelect,
	"listbox":    AffordanceSelect,
	"slider":     AffordanceType,
	"spinbutton": AffordanceType,
}

// InteractiveRoles is the fixed set of AX roles the detector addresses.
var InteractiveRoles = map[string]bool{
	"button": true, "link": true, "searchbox": true, "textbox": true,
	"combobox": true, "listbox": true, "checkbox": true, "radio": true,
	"tab": true, "menuitem": true, "switch": true, "slider": true, "spinbutton": true,
}

// LandmarkRoles map to region names; unmapped means region defaults to "main".
var LandmarkRoles = map[string]string{
	"banner":        "header",
	"main":          "main",
	"contentinfo":   "footer",
	"navigation":    "navigation",
	"complementary": "complementary",
	"region":        "region",
}
