// health.go — the five health/readiness probes of spec.md §4.14's
// observability surface. /health and /livez always report process
// liveness; /ready and /readyz additionally reflect browser-pool
// connectivity and the server's draining state; /startupz latches true the
// first time the pool ever connects and never reverts to false.
package mcpserver

// HealthStatus is the body every probe returns.
type HealthStatus struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// Healthy always reports ok: the process is up and able to answer.
func (s *Server) Healthy() HealthStatus {
	return HealthStatus{Status: "ok"}
}

// Ready reports whether the server can currently accept tool calls: the
// browser pool must be connected and the server must not be draining.
func (s *Server) Ready() HealthStatus {
	if s.Draining() {
		return HealthStatus{Status: "draining", Detail: "server is shutting down"}
	}
	if !s.PoolConnected() {
		return HealthStatus{Status: "not_ready", Detail: "browser pool not yet connected"}
	}
	return HealthStatus{Status: "ok"}
}

// Startup reports whether the pool has connected at least once. Once latched
// true it stays true on this Server value, distinguishing "never started"
// from "started, then the browser died" (the latter is /readyz's concern,
// not /startupz's).
func (s *Server) Startup() HealthStatus {
	if s.PoolConnected() {
		s.startupLatch.Store(true)
	}
	if s.startupLatch.Load() {
		return HealthStatus{Status: "ok"}
	}
	return HealthStatus{Status: "starting", Detail: "browser pool has not yet connected"}
}
