// server.go — the Server value that owns every PageMap subsystem and
// exposes the transport-agnostic tool dispatch of spec.md §4.14. Built once
// in cmd/pagemap's main and threaded through every request, replacing the
// teacher's ad-hoc module globals with an explicit value the way spec.md §9
// asks ("Replace with an explicit Server value constructed in main and
// passed through a context carried on every request").
package mcpserver

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/retio-ai/pagemap/internal/browserpool"
	"github.com/retio-ai/pagemap/internal/pagesession"
	"github.com/retio-ai/pagemap/internal/respguard"
	"github.com/retio-ai/pagemap/internal/robots"
	"github.com/retio-ai/pagemap/internal/telemetry"
)

// Version is the server's reported version (spec.md §6.6's bot UA also
// carries this).
const Version = "1.0.0"

// Server wires the session manager, browser pool, robots checker, response
// guard and telemetry sink together and dispatches MCP tool calls onto them.
// It carries no mutable global state beyond what its fields reference, so
// tests construct a fresh Server per case instead of resetting package
// globals (spec.md §9).
type Server struct {
	Sessions     *pagesession.Manager
	Pool         *browserpool.Pool
	Robots       *robots.Checker
	Guard        *respguard.Guard
	Sink         telemetry.Sink
	Logger       zerolog.Logger
	UserAgent    string
	IgnoreRobots bool
	AllowLocal   bool

	PipelineTimeout     time.Duration
	ScreenshotTimeout   time.Duration
	NavigateBackTimeout time.Duration
	ToolLockTimeout     time.Duration
	ScreenshotLimitByte int

	draining     atomic.Bool
	startupLatch atomic.Bool
}

// New constructs a Server. Callers should fill every field explicitly
// rather than relying on zero values except draining, which always starts
// false.
func New() *Server {
	return &Server{Sink: telemetry.NoopSink{}, Logger: zerolog.Nop()}
}

// SetDraining toggles the server's shutdown-in-progress flag, read by the
// /readyz health probe and checked by new tool calls that should be refused
// once a drain has begun (spec.md §5 shutdown policy).
func (s *Server) SetDraining(v bool) { s.draining.Store(v) }

// Draining reports whether the server is shutting down.
func (s *Server) Draining() bool { return s.draining.Load() }

// PoolConnected reports whether the browser process has been launched, used
// by /ready, /readyz and /startupz.
func (s *Server) PoolConnected() bool {
	if s.Pool == nil {
		return false
	}
	return s.Pool.Connected()
}

// Initialize builds the MCP initialize result.
func (s *Server) Initialize() MCPInitializeResult {
	return MCPInitializeResult{
		ProtocolVersion: "2024-11-05",
		ServerInfo:      MCPServerInfo{Name: "pagemap", Version: Version},
		Capabilities:    MCPCapabilities{Tools: MCPToolsCapability{}},
	}
}

// ToolsList enumerates PageMap's fixed tool vocabulary (spec.md §6.1).
func (s *Server) ToolsList() []MCPTool {
	return []MCPTool{
		{
			Name:        "get_page_map",
			Description: "Build or refresh a structured map of a web page: numbered interactive elements plus a token-budgeted text summary. Omit url to rebuild the map for the current page.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]any{"type": "string", "description": "Absolute http(s) URL to navigate to. Omitted: rebuild the current page."},
				},
			},
		},
		{
			Name:        "execute_action",
			Description: "Perform click, type, select, or press_key against a ref from the most recent get_page_map result.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"ref":    map[string]any{"type": "integer", "description": "The ref number from the last get_page_map result."},
					"action": map[string]any{"type": "string", "enum": []string{"click", "type", "select", "press_key"}},
					"value":  map[string]any{"type": "string", "description": "Required for type/select/press_key."},
				},
				"required": []string{"ref", "action"},
			},
		},
		{
			Name:        "navigate_back",
			Description: "Navigate the current session's browser back one history entry.",
			InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		},
		{
			Name:        "take_screenshot",
			Description: "Capture a PNG screenshot of the current page.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"full_page": map[string]any{"type": "boolean", "description": "Capture the full scrollable page instead of just the viewport."},
				},
			},
		},
		{
			Name:        "batch_get_page_map",
			Description: "Build page maps for several URLs concurrently, without changing the session's active page.",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"urls":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"concurrency": map[string]any{"type": "integer", "description": "Capped at 10."},
				},
				"required": []string{"urls"},
			},
		},
	}
}

// withToolLock runs fn holding e's per-tool lock, returning a busy error if
// the lock isn't acquired within s.ToolLockTimeout (spec.md §5).
func (s *Server) withToolLock(e *pagesession.Entry, tool string, fn func() string) string {
	lock := e.ToolLock(tool)
	timeout := s.ToolLockTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	done := make(chan struct{})
	acquired := make(chan struct{})
	go func() {
		lock.Lock()
		close(acquired)
		<-done
		lock.Unlock()
	}()

	select {
	case <-acquired:
		defer close(done)
		return fn()
	case <-time.After(timeout):
		go func() { <-acquired; close(done) }()
		return string(StructuredErrorResponse(ErrRateLimited, "another tool call is in progress, retry in a moment",
			"wait briefly and retry the same call", WithHint("retry in a moment"), WithRetryable(true)))
	}
}

// stageTimer records per-stage elapsed times for the pipeline-timeout report
// (spec.md §4.14: "each tool records per-stage elapsed times").
type stageTimer struct {
	start   time.Time
	stage   string
	elapsed map[string]time.Duration
}

func newStageTimer() *stageTimer {
	return &stageTimer{start: time.Now(), elapsed: make(map[string]time.Duration)}
}

func (t *stageTimer) enter(stage string) {
	if t.stage != "" {
		t.elapsed[t.stage] = time.Since(t.start)
	}
	t.stage = stage
	t.start = time.Now()
}

func (t *stageTimer) currentStage() string { return t.stage }

// timeoutReport returns a timeout report naming t's current stage and true
// if ctx is already done, else ("", false).
func (t *stageTimer) timeoutReport(ctx context.Context, tool string) (string, bool) {
	select {
	case <-ctx.Done():
		return string(StructuredErrorResponse(ErrTimeout,
			"pipeline timed out during "+t.currentStage(),
			"retry with a narrower scope or longer timeout",
			WithParam(t.currentStage()), WithHint(RecoveryHintForTool(tool)))), true
	default:
		return "", false
	}
}
