package mcpserver

import (
	"time"

	"github.com/retio-ai/pagemap/internal/pagesession"
	"github.com/retio-ai/pagemap/internal/respguard"
	"github.com/retio-ai/pagemap/internal/telemetry"
)

// newTestManager returns a session manager with no backing browser pool,
// suitable for tests that exercise GetOrCreate/cache paths without ever
// calling EnsureBrowser.
func newTestManager() *pagesession.Manager {
	return pagesession.NewManager(nil, time.Hour, pagesession.RecyclePolicy{}, time.Hour, telemetry.NoopSink{})
}

// newTestServer returns a Server wired with a no-op guard and an in-memory
// session manager, with no browser pool — enough to exercise the validation
// and dispatch paths that never touch a real browser.
func newTestServer() *Server {
	s := New()
	s.Sessions = newTestManager()
	s.Guard = respguard.New(respguard.DefaultLimitBytes, telemetry.NoopSink{})
	s.ToolLockTimeout = 50 * time.Millisecond
	return s
}
