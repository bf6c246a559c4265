// Package webmw implements the HTTP security middleware from spec.md §4.3
// and §6.5: OWASP security headers, TLS enforcement, and a CORS layer with
// DNS-rebinding protection. Grounded on the teacher's
// cmd/dev-console/server_middleware.go, which wraps http.HandlerFunc with a
// Host-then-Origin validation chain before CORS-echoing the origin (never a
// wildcard) — the same shape, generalized from "trusted browser extension
// pairing" to PageMap's "explicit --cors-origin allowlist" guardrail.
package webmw

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
)

// SecurityConfig controls the middleware chain.
type SecurityConfig struct {
	// AllowedOrigins is the exact CORS allowlist; "*" is rejected at config
	// load time (spec.md §6.5) and must never appear here.
	AllowedOrigins []string
	// TrustedProxies lists addresses allowed to set X-Forwarded-Proto.
	TrustedProxies []string
	RequireTLS     bool
}

func (c SecurityConfig) originAllowed(origin string) bool {
	for _, o := range c.AllowedOrigins {
		if o == origin {
			return true
		}
	}
	return false
}

func (c SecurityConfig) isTrustedProxy(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	for _, p := range c.TrustedProxies {
		if p == host {
			return true
		}
	}
	return false
}

// securityHeaders are injected exactly once per response, never overwriting
// a header the inner handler already set.
var securityHeaders = map[string]string{
	"X-Content-Type-Options":            "nosniff",
	"X-Frame-Options":                   "DENY",
	"Referrer-Policy":                   "no-referrer",
	"Cross-Origin-Opener-Policy":        "same-origin",
	"Cross-Origin-Resource-Policy":      "same-origin",
	"Permissions-Policy":                "geolocation=(), microphone=(), camera=(), payment=()",
	"Content-Security-Policy":           "default-src 'none'",
}

func writeSecurityHeaders(h http.Header) {
	for k, v := range securityHeaders {
		if h.Get(k) == "" {
			h.Set(k, v)
		}
	}
}

// effectiveScheme returns the scheme the client actually used, trusting
// X-Forwarded-Proto only when the immediate peer is a configured trusted proxy.
func effectiveScheme(r *http.Request, cfg SecurityConfig) string {
	if cfg.isTrustedProxy(r.RemoteAddr) {
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			return proto
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// SecurityHeaders wraps next with the OWASP header injection and, when
// configured, TLS enforcement. A rejected request still carries every
// security header on its error response.
func SecurityHeaders(cfg SecurityConfig, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeSecurityHeaders(w.Header())
		if cfg.RequireTLS && effectiveScheme(r, cfg) != "https" {
			w.Header().Set("Content-Type", "application/problem+json")
			w.WriteHeader(http.StatusMisdirectedRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"type":   "https://www.retio.ai/pagemap/errors/tls-required",
				"title":  "TLS required",
				"status": http.StatusMisdirectedRequest,
			})
			return
		}
		next(w, r)
	}
}

// CORS validates Origin against the exact allowlist (never a wildcard echo)
// and short-circuits preflight requests.
func CORS(cfg SecurityConfig, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			if !cfg.originAllowed(origin) {
				http.Error(w, "origin not allowed", http.StatusForbidden)
				return
			}
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

// isAllowedHost guards against DNS rebinding: the Host header of an
// inbound request must resolve to loopback, since PageMap's HTTP surface is
// meant to be reached from the local machine or a declared trusted proxy.
func isAllowedHost(host string) bool {
	h, _, err := net.SplitHostPort(host)
	if err != nil {
		h = host
	}
	h = strings.Trim(h, "[]")
	return h == "localhost" || h == "127.0.0.1" || h == "::1"
}

// RequireLocalHost rejects requests whose Host header does not name the
// local machine, before any other middleware runs.
func RequireLocalHost(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !isAllowedHost(r.Host) {
			http.Error(w, "host not allowed", http.StatusForbidden)
			return
		}
		next(w, r)
	}
}
