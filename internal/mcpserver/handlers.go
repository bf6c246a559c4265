// handlers.go — the five tool implementations dispatched by HandleToolCall,
// each following the same shape: parse args, validate, acquire a session
// (lazily acquiring its browser only when a handler actually navigates),
// run the pipeline, sanitize and size-guard the output, return an
// MCPToolResult. Grounded on the teacher's cmd/dev-console tool handlers
// (tools_get_logs.go, tools_interact_elements.go): one function per tool
// name, switched on by the dispatcher, each returning json.RawMessage
// directly rather than an error the caller must re-wrap.
package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/retio-ai/pagemap/internal/actionexec"
	"github.com/retio-ai/pagemap/internal/pagemap"
	"github.com/retio-ai/pagemap/internal/pagemodel"
	"github.com/retio-ai/pagemap/internal/pagesession"
	"github.com/retio-ai/pagemap/internal/robots"
	"github.com/retio-ai/pagemap/internal/sanitize"
	"github.com/retio-ai/pagemap/internal/telemetry"
	"github.com/retio-ai/pagemap/internal/urlsafety"
)

const maxBatchConcurrency = 10

type getPageMapArgs struct {
	URL string `json:"url"`
}

type executeActionArgs struct {
	Ref    int    `json:"ref"`
	Action string `json:"action"`
	Value  string `json:"value"`
}

type screenshotArgs struct {
	FullPage bool `json:"full_page"`
}

type batchGetPageMapArgs struct {
	URLs        []string `json:"urls"`
	Concurrency int      `json:"concurrency"`
}

// HandleToolCall dispatches one tools/call request by name, returning the
// MCP result payload (success or structured error) ready to embed in a
// JSONRPCResponse. sessionID identifies the caller's browser session,
// already resolved by the transport (spec.md §6.1/§6.2).
func (s *Server) HandleToolCall(ctx context.Context, sessionID, tool string, rawArgs json.RawMessage) json.RawMessage {
	if s.Draining() {
		return StructuredErrorResponse(ErrResourceExhausted, "server is shutting down", "retry against another instance")
	}

	e := s.Sessions.GetOrCreate(sessionID)
	var result json.RawMessage
	locked := s.withToolLock(e, tool, func() string {
		result = s.dispatchTool(ctx, e, tool, rawArgs)
		return ""
	})
	if locked != "" {
		return json.RawMessage(locked)
	}
	return result
}

func (s *Server) dispatchTool(ctx context.Context, e *pagesession.Entry, tool string, rawArgs json.RawMessage) json.RawMessage {
	switch tool {
	case "get_page_map":
		return s.handleGetPageMap(ctx, e, rawArgs)
	case "execute_action":
		return s.handleExecuteAction(ctx, e, rawArgs)
	case "navigate_back":
		return s.handleNavigateBack(ctx, e)
	case "take_screenshot":
		return s.handleTakeScreenshot(ctx, e, rawArgs)
	case "batch_get_page_map":
		return s.handleBatchGetPageMap(ctx, e, rawArgs)
	default:
		return StructuredErrorResponse(ErrInvalidInput, fmt.Sprintf("unknown tool %q", tool), "call tools/list to see available tools", WithParam("name"))
	}
}

// handleGetPageMap implements spec.md §4.10: navigate (if url given) or
// reuse the current page, then run the full build pipeline.
func (s *Server) handleGetPageMap(ctx context.Context, e *pagesession.Entry, rawArgs json.RawMessage) json.RawMessage {
	var args getPageMapArgs
	LenientUnmarshal(rawArgs, &args)

	timer := newStageTimer()
	timer.enter("validate")

	if args.URL != "" {
		if err := urlsafety.ValidateURL(args.URL, s.AllowLocal); err != nil {
			return StructuredErrorResponse(ErrSsrfBlocked, err.Error(), "choose a public http(s) URL", WithParam("url"))
		}
		if !s.IgnoreRobots && s.Robots != nil {
			ua := s.UserAgent
			if !s.Robots.IsAllowed(args.URL, robots.UserAgentToken(ua)) {
				return StructuredErrorResponse(ErrRobotsBlocked, "robots.txt disallows this URL for our user agent", "try a different URL or set ignore_robots", WithParam("url"))
			}
		}
	} else if e.Session == nil {
		return StructuredErrorResponse(ErrInvalidInput, "no active page and no url given", "pass a url to navigate first", WithParam("url"))
	}

	timer.enter("acquire_browser")
	if err := s.Sessions.EnsureBrowser(ctx, e); err != nil {
		return s.browserAcquireError(err)
	}

	timer.enter("build")
	targetURL := args.URL
	if targetURL == "" {
		targetURL = e.Session.CurrentURL()
	}
	pm, err := pagemap.BuildLive(ctx, e.Session, targetURL, pagemap.Options{})
	if report, timedOut := timer.timeoutReport(ctx, "get_page_map"); timedOut {
		return json.RawMessage(report)
	}
	if err != nil {
		return StructuredErrorResponse(ErrDetectionFailed, err.Error(), RecoveryHintForTool("get_page_map"), WithRetryable(true))
	}

	timer.enter("finalize")
	e.Cache.Store(&pm)
	return s.renderPageMap(pm)
}

func (s *Server) browserAcquireError(err error) json.RawMessage {
	switch err {
	case pagesession.ErrResourceExhausted:
		return StructuredErrorResponse(ErrResourceExhausted, err.Error(), "retry shortly once another session recycles")
	default:
		return StructuredErrorResponse(ErrBrowserDead, err.Error(), "retry in a moment", WithRetryable(true))
	}
}

// renderPageMap sanitizes and size-guards a built PageMap into an MCP text
// result (spec.md §2's data-flow: sanitizer -> response guard -> transport).
func (s *Server) renderPageMap(pm pagemodel.PageMap) json.RawMessage {
	pm.PrunedContext = sanitize.AddContentBoundary(pm.PrunedContext, pm.URL)
	body, err := json.Marshal(pm)
	if err != nil {
		return StructuredErrorResponse(ErrUnexpected, "failed to serialize page map", RecoveryHintForTool("get_page_map"))
	}
	text := s.Guard.Apply("get_page_map", string(body))
	resp := AppendWarningsToResponse(JSONRPCResponse{Result: TextResponse(text)}, pm.Warnings)
	return resp.Result
}

// handleExecuteAction implements spec.md §4.11.
func (s *Server) handleExecuteAction(ctx context.Context, e *pagesession.Entry, rawArgs json.RawMessage) json.RawMessage {
	var args executeActionArgs
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return StructuredErrorResponse(ErrInvalidInput, "malformed arguments", "pass ref (int), action (string), optional value", WithParam("arguments"))
	}

	pm := e.Cache.Active()
	if pm == nil {
		return StructuredErrorResponse(ErrInvalidInput, "no active page map for this session", RecoveryHintForTool("execute_action"))
	}
	if e.Session == nil {
		return StructuredErrorResponse(ErrInvalidInput, "session has no active browser", RecoveryHintForTool("execute_action"))
	}

	result, err := actionexec.Execute(ctx, e.Session, pm, args.Ref, args.Action, args.Value)
	if err != nil {
		return StructuredErrorResponse(ErrInvalidInput, err.Error(), RecoveryHintForTool("execute_action"), WithParam("ref"))
	}
	if result.RefsExpired {
		e.Cache.InvalidateActive()
	}
	e.RecordNavigation()

	body, merr := json.Marshal(result)
	if merr != nil {
		return StructuredErrorResponse(ErrUnexpected, "failed to serialize action result", RecoveryHintForTool("execute_action"))
	}
	return TextResponse(s.Guard.Apply("execute_action", string(body)))
}

// handleNavigateBack implements spec.md §4.9.
func (s *Server) handleNavigateBack(ctx context.Context, e *pagesession.Entry) json.RawMessage {
	if e.Session == nil {
		return StructuredErrorResponse(ErrInvalidInput, "no active browser to navigate back", RecoveryHintForTool("navigate_back"))
	}
	if err := e.Session.NavigateBack(ctx); err != nil {
		return StructuredErrorResponse(ErrSsrfBlocked, err.Error(), RecoveryHintForTool("navigate_back"))
	}
	e.Cache.InvalidateActive()
	e.RecordNavigation()

	pm, err := pagemap.BuildLive(ctx, e.Session, e.Session.CurrentURL(), pagemap.Options{})
	if err != nil {
		return StructuredErrorResponse(ErrDetectionFailed, err.Error(), RecoveryHintForTool("navigate_back"), WithRetryable(true))
	}
	e.Cache.Store(&pm)
	return s.renderPageMap(pm)
}

// handleTakeScreenshot implements spec.md §4.? (screenshot capture).
func (s *Server) handleTakeScreenshot(ctx context.Context, e *pagesession.Entry, rawArgs json.RawMessage) json.RawMessage {
	var args screenshotArgs
	LenientUnmarshal(rawArgs, &args)

	if e.Session == nil {
		return StructuredErrorResponse(ErrInvalidInput, "no active browser to screenshot", RecoveryHintForTool("take_screenshot"))
	}
	data, err := e.Session.Screenshot(args.FullPage)
	if err != nil {
		return StructuredErrorResponse(ErrBrowserDead, err.Error(), RecoveryHintForTool("take_screenshot"), WithRetryable(true))
	}
	if err := s.Guard.CheckScreenshot(s.ScreenshotLimitByte, data); err != nil {
		return StructuredErrorResponse(ErrSerializationTooLarge, err.Error(), RecoveryHintForTool("take_screenshot"))
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	return ImageAndTextResponse(encoded, fmt.Sprintf("captured %d bytes", len(data)))
}

// handleBatchGetPageMap implements spec.md §4.14: concurrent, bounded
// builds against a borrowed pool session per URL, never touching the
// caller session's active PageMap (each result lands in the LRU only).
func (s *Server) handleBatchGetPageMap(ctx context.Context, e *pagesession.Entry, rawArgs json.RawMessage) json.RawMessage {
	var args batchGetPageMapArgs
	if err := json.Unmarshal(rawArgs, &args); err != nil || len(args.URLs) == 0 {
		return StructuredErrorResponse(ErrInvalidInput, "urls must be a non-empty array", RecoveryHintForTool("batch_get_page_map"), WithParam("urls"))
	}
	concurrency := args.Concurrency
	if concurrency <= 0 || concurrency > maxBatchConcurrency {
		concurrency = maxBatchConcurrency
	}
	for _, u := range args.URLs {
		if err := urlsafety.ValidateURL(u, s.AllowLocal); err != nil {
			return StructuredErrorResponse(ErrSsrfBlocked, fmt.Sprintf("%s: %s", u, err.Error()), "remove the offending URL", WithParam("urls"))
		}
	}

	type batchResult struct {
		URL    string             `json:"url"`
		Status string             `json:"status"`
		Map    *pagemodel.PageMap `json:"page_map,omitempty"`
		Error  string             `json:"error,omitempty"`
	}
	type batchSummary struct {
		Total   int `json:"total"`
		Success int `json:"success"`
		Failed  int `json:"failed"`
	}
	type batchResponse struct {
		Summary batchSummary  `json:"summary"`
		Results []batchResult `json:"results"`
	}

	results := make([]batchResult, len(args.URLs))
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, u := range args.URLs {
		i, u := i, u
		g.Go(func() error {
			sess, err := s.Pool.Acquire(ctx)
			if err != nil {
				results[i] = batchResult{URL: u, Status: "error", Error: err.Error()}
				return nil
			}
			defer s.Pool.Release(sess)
			pm, err := pagemap.BuildLive(ctx, sess, u, pagemap.Options{})
			if err != nil {
				results[i] = batchResult{URL: u, Status: "error", Error: err.Error()}
				return nil
			}
			pm.PrunedContext = sanitize.AddContentBoundary(pm.PrunedContext, pm.URL)
			e.Cache.StoreInLRUOnly(&pm)
			results[i] = batchResult{URL: u, Status: "success", Map: &pm}
			return nil
		})
	}
	_ = g.Wait()

	resp := batchResponse{Summary: batchSummary{Total: len(results)}, Results: results}
	for _, r := range results {
		if r.Status == "success" {
			resp.Summary.Success++
		} else {
			resp.Summary.Failed++
		}
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return StructuredErrorResponse(ErrUnexpected, "failed to serialize batch results", RecoveryHintForTool("batch_get_page_map"))
	}
	s.Sink.Emit(telemetry.Event{Name: "batch_get_page_map", Fields: map[string]any{"count": len(args.URLs), "success": resp.Summary.Success, "failed": resp.Summary.Failed}})
	return TextResponse(s.Guard.Apply("batch_get_page_map", string(body)))
}
