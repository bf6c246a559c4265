// transport_http.go — the HTTP JSON-RPC transport (spec.md §6.2): POST /mcp
// for request/response tool calls, a websocket upgrade at /mcp/stream for
// repeated exchanges over one connection (each response, however large, is
// sent as a single message), and
// the health/readiness probe routes. Grounded on the teacher's
// setupHTTPRoutes in cmd/dev-console/main.go (mux.HandleFunc chained
// through corsMiddleware), generalized to PageMap's webmw+ratelimit chain.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"

	"github.com/retio-ai/pagemap/internal/ratelimit"
	"github.com/retio-ai/pagemap/internal/webmw"
)

// httpSessionHeader names the header a caller may set to pin a session
// across requests; callers that omit it get a fresh session for every POST
// to /mcp, or one session per /mcp/stream websocket connection (spec.md §6.2
// doesn't mandate session pinning).
const httpSessionHeader = "X-Pagemap-Session"

// ClientKeyFromRequest derives the rate limiter's per-client bucket key: the
// pinned session header if present, else the remote address.
func ClientKeyFromRequest(r *http.Request) string {
	if v := r.Header.Get(httpSessionHeader); v != "" {
		return v
	}
	return r.RemoteAddr
}

func sessionIDFromRequest(r *http.Request) string {
	if v := r.Header.Get(httpSessionHeader); v != "" {
		return v
	}
	return "http-" + uuid.NewString()
}

// NewHTTPMux builds the full route tree wrapped in the security headers,
// CORS, and rate-limit middleware chain.
func (s *Server) NewHTTPMux(security webmw.SecurityConfig, limiter *ratelimit.Limiter) http.Handler {
	mux := http.NewServeMux()

	rateLimited := ratelimit.Middleware(limiter, ClientKeyFromRequest, s.Sink)
	chain := func(h http.HandlerFunc) http.HandlerFunc {
		return webmw.SecurityHeaders(security, webmw.CORS(security, rateLimited(h)))
	}

	mux.HandleFunc("/mcp", chain(s.handleMCPPost))
	mux.HandleFunc("/mcp/stream", webmw.SecurityHeaders(security, s.handleMCPStream))
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/livez", s.handleLivez)
	mux.HandleFunc("/ready", s.handleReady)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/startupz", s.handleStartup)

	return mux
}

func (s *Server) handleMCPPost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var raw json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxScanTokenSize)).Decode(&raw); err != nil {
		writeJSONRPCError(w, codeParseError, "invalid JSON body")
		return
	}
	req, parseErr := DecodeRequest(raw)
	if parseErr != nil {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(JSONRPCResponse{JSONRPC: "2.0", Error: parseErr})
		return
	}
	resp := s.HandleRequest(r.Context(), req, sessionIDFromRequest(r))
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

func writeJSONRPCError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(JSONRPCResponse{JSONRPC: "2.0", Error: &JSONRPCError{Code: code, Message: msg}})
}

// handleMCPStream upgrades to a websocket and serves an arbitrary number of
// JSON-RPC request/response exchanges over the connection, so a long-lived
// agent session can issue many tool calls (and receive large
// get_page_map/batch_get_page_map bodies) without a new TCP/TLS handshake
// per call.
func (s *Server) handleMCPStream(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer conn.CloseNow()

	ctx := r.Context()
	sessionID := sessionIDFromRequest(r)
	for {
		var req JSONRPCRequest
		if err := wsjson.Read(ctx, conn, &req); err != nil {
			return
		}
		resp := s.HandleRequest(ctx, req, sessionID)
		if err := wsjson.Write(ctx, conn, resp); err != nil {
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, s.Healthy())
}

func (s *Server) handleLivez(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, s.Healthy())
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, s.Ready())
}

func (s *Server) handleStartup(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, s.Startup())
}

func writeHealth(w http.ResponseWriter, status HealthStatus) {
	w.Header().Set("Content-Type", "application/json")
	if status.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(status)
}

// Shutdown marks the server draining, waits until timeout elapses or ctx is
// done (it does not track in-flight tool calls), then closes sessions and
// the pool (spec.md §5 shutdown policy).
func (s *Server) Shutdown(ctx context.Context, timeout time.Duration) {
	s.SetDraining(true)
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	select {
	case <-ctx.Done():
	case <-deadline.C:
	}
	if s.Sessions != nil {
		_ = s.Sessions.Close()
	}
	if s.Pool != nil {
		_ = s.Pool.Close()
	}
}
