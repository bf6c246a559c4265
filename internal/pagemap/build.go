package pagemap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/retio-ai/pagemap/internal/axdetect"
	"github.com/retio-ai/pagemap/internal/compress"
	"github.com/retio-ai/pagemap/internal/pagemodel"
	"github.com/retio-ai/pagemap/internal/sanitize"
	"github.com/retio-ai/pagemap/internal/tokenizer"
)

// maxTitleLength bounds the sanitized page title (spec.md §3's "every
// reported ... value is already sanitized" invariant, applied to title).
const maxTitleLength = 300

// NavStrategy selects how build_page_map_live waits for a page to finish
// loading before settling (spec.md §4.10 step 1).
type NavStrategy string

const (
	StrategyNetworkIdle NavStrategy = "networkidle"
	StrategyLoad        NavStrategy = "load"
	StrategyHybrid      NavStrategy = "hybrid"
)

// Options configures one build_page_map_live call; zero value is the
// spec's defaults.
type Options struct {
	Strategy            NavStrategy
	NetworkIdleBudgetMS int
	SettleQuietMS       int
	SettleMaxMS         int
}

func (o *Options) defaults() {
	if o.Strategy == "" {
		o.Strategy = StrategyHybrid
	}
	if o.NetworkIdleBudgetMS <= 0 {
		o.NetworkIdleBudgetMS = 2000
	}
	if o.SettleQuietMS <= 0 {
		o.SettleQuietMS = 200
	}
	if o.SettleMaxMS <= 0 {
		o.SettleMaxMS = 3000
	}
}

const (
	basePrunedBudget      = 1500
	baseTotalBudget       = 5000
	interactableOverhead  = 500
	minInteractableBudget = 100
	maxFilterRefs         = 10
)

// Session is the browser capability the assembler needs. browserpool.Session
// satisfies this directly.
type Session interface {
	Navigate(ctx context.Context, rawURL string) error
	CurrentURL() string
	Title() string
	HTML() (string, error)
	Evaluate(ctx context.Context, expr string) (string, error)
	FetchAXTree(ctx context.Context) ([]axdetect.Node, error)
}

// BuildLive drives a live browser session through navigate -> settle ->
// detect -> prune -> compress and returns the assembled PageMap (spec.md
// §4.10).
func BuildLive(ctx context.Context, sess Session, rawURL string, opts Options) (pagemodel.PageMap, error) {
	opts.defaults()
	start := time.Now()
	var warnings []string
	strategy := string(opts.Strategy)

	if err := sess.Navigate(ctx, rawURL); err != nil {
		return pagemodel.PageMap{}, fmt.Errorf("pagemap: navigate: %w", err)
	}

	settleCtx := ctx
	if opts.Strategy == StrategyHybrid || opts.Strategy == StrategyNetworkIdle {
		var cancel context.CancelFunc
		settleCtx, cancel = context.WithTimeout(ctx, time.Duration(opts.NetworkIdleBudgetMS)*time.Millisecond)
		defer cancel()
	}
	if _, err := sess.Evaluate(settleCtx, settleScript(opts.SettleQuietMS, opts.SettleMaxMS)); err != nil {
		if opts.Strategy == StrategyHybrid {
			strategy = "load+settle"
		}
		warnings = append(warnings, "settle wait did not complete cleanly, used load result")
	}

	currentURL := sess.CurrentURL()
	title := sess.Title()

	interactables, axWarnings := axdetect.Detect(ctx, sess)
	warnings = append(warnings, axWarnings...)

	rawHTML, err := sess.HTML()
	if err != nil {
		return pagemodel.PageMap{}, fmt.Errorf("pagemap: html capture: %w", err)
	}

	pm, err := assemble(rawHTML, currentURL, title, interactables, 0, warnings)
	if err != nil {
		return pagemodel.PageMap{}, err
	}
	pm.Metadata["strategy"] = strategy
	pm.GenerationMS = float64(time.Since(start).Milliseconds())
	return pm, nil
}

// BuildOffline runs the same prune/compress pipeline against HTML that was
// never driven through a live browser: interactables are extracted from the
// raw markup by a small rule set instead of an AX-tree walk (spec.md §4.10).
func BuildOffline(rawHTML, rawURL, title string) (pagemodel.PageMap, error) {
	start := time.Now()
	interactables := extractInteractablesFromHTML(rawHTML)
	pm, err := assemble(rawHTML, rawURL, title, interactables, 0, nil)
	if err != nil {
		return pagemodel.PageMap{}, err
	}
	pm.Metadata["strategy"] = "offline"
	pm.GenerationMS = float64(time.Since(start).Milliseconds())
	return pm, nil
}

// assemble is the pipeline shared by BuildLive and BuildOffline: classify,
// prune, compress, budget-filter, paginate, and classify-blocked.
func assemble(rawHTML, url, title string, interactables []pagemodel.Interactable, httpStatus int, warnings []string) (pagemodel.PageMap, error) {
	title = sanitize.SanitizeText(title, maxTitleLength)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rawHTML))
	schema := pagemodel.SchemaGeneric
	pageType := pagemodel.PageUnknown
	if err == nil {
		schema = DetectSchema(doc, url)
		pageType = DetectPageType(doc, url, httpStatus)
	}

	visibleText := extractVisibleText(doc)

	ctxResult, err := compress.Build(rawHTML, visibleText, basePrunedBudget, pageType, schema)
	if err != nil {
		return pagemodel.PageMap{}, fmt.Errorf("pagemap: compress: %w", err)
	}

	totalBudget := tokenizer.Budget(baseTotalBudget, visibleText)
	interactableBudget := totalBudget - ctxResult.Stats.CompressedTokens - interactableOverhead
	if interactableBudget < minInteractableBudget {
		interactableBudget = minInteractableBudget
	}
	filtered, dropped := FilterInteractablesToBudget(interactables, interactableBudget)
	if dropped {
		warnings = append(warnings, "some interactables were dropped to fit the token budget")
	}

	blocked, blockReason := ClassifyBlocked(visibleText, httpStatus)
	if blocked {
		pageType = pagemodel.PageBlocked
		warnings = append(warnings, "anti-bot: "+blockReason)
	}

	metadata := map[string]any{"_total_budget": totalBudget}
	if blocked {
		metadata["blocked_info"] = map[string]any{"reason": blockReason, "http_status": httpStatus}
	}
	attachNavigationHints(metadata, ctxResult.Hints, filtered)

	return pagemodel.PageMap{
		URL:           url,
		Title:         title,
		PageType:      pageType,
		Schema:        schema,
		Interactables: filtered,
		PrunedContext: ctxResult.HTML,
		PrunedTokens:  ctxResult.Stats.CompressedTokens,
		PrunedRegions: ctxResult.Stats.PrunedRegions,
		NextPageURL:   ctxResult.Hints.NextPageURL,
		PrevPageURL:   ctxResult.Hints.PrevPageURL,
		ActiveFilters: ctxResult.Hints.ActiveFilters,
		Blocked:       blocked,
		BlockedReason: blockReason,
		Warnings:      warnings,
		Metadata:      metadata,
		GeneratedAt:   time.Now(),
	}, nil
}

// attachNavigationHints records the pagination hint URLs as next_page_url/
// prev_page_url and up to maxFilterRefs complementary-region refs as
// filter_refs under metadata["navigation_hints"] (spec.md §4.9). The hint
// URLs are stored as found; they are not matched to interactable refs.
func attachNavigationHints(metadata map[string]any, hints compress.PaginationHints, interactables []pagemodel.Interactable) {
	navHints := map[string]any{}
	var filterRefs []int
	for _, ia := range interactables {
		if ia.Region == "complementary" {
			filterRefs = append(filterRefs, ia.Ref)
			if len(filterRefs) >= maxFilterRefs {
				break
			}
		}
	}
	if hints.NextPageURL != "" {
		navHints["next_page_url"] = hints.NextPageURL
	}
	if hints.PrevPageURL != "" {
		navHints["prev_page_url"] = hints.PrevPageURL
	}
	if len(filterRefs) > 0 {
		navHints["filter_refs"] = filterRefs
	}
	if len(navHints) > 0 {
		metadata["navigation_hints"] = navHints
	}
}

// extractVisibleText returns the document's visible body text (excluding
// head/script/style/noscript) sampled for token-budget multiplier purposes.
func extractVisibleText(doc *goquery.Document) string {
	if doc == nil {
		return ""
	}
	clone := doc.Find("body").Clone()
	clone.Find("script, style, noscript").Remove()
	return strings.TrimSpace(clone.Text())
}

// settleScript waits for a DOM-mutation quiet window or a hard timeout,
// whichever comes first (spec.md §4.10 step 2).
func settleScript(quietMS, maxMS int) string {
	return fmt.Sprintf(`() => new Promise((resolve) => {
		let done = false;
		let quiet;
		const finish = () => {
			if (done) return;
			done = true;
			observer.disconnect();
			clearTimeout(quiet);
			clearTimeout(hardMax);
			resolve(true);
		};
		const observer = new MutationObserver(() => {
			clearTimeout(quiet);
			quiet = setTimeout(finish, %d);
		});
		observer.observe(document.documentElement, {childList: true, subtree: true, attributes: true});
		quiet = setTimeout(finish, %d);
		const hardMax = setTimeout(finish, %d);
	})`, quietMS, quietMS, maxMS)
}
