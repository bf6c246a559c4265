package webmw

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSecurityHeadersInjectsOWASPSet(t *testing.T) {
	cfg := SecurityConfig{}
	h := SecurityHeaders(cfg, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	for k, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	} {
		if got := rec.Header().Get(k); got != want {
			t.Errorf("header %s: want %q, got %q", k, want, got)
		}
	}
}

func TestSecurityHeadersNeverOverwritesExisting(t *testing.T) {
	cfg := SecurityConfig{}
	h := SecurityHeaders(cfg, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "SAMEORIGIN")
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h(rec, req)
	if got := rec.Header().Get("X-Frame-Options"); got != "SAMEORIGIN" {
		t.Fatalf("expected handler-set header to survive, got %q", got)
	}
}

func TestSecurityHeadersEnforcesTLSWhenRequired(t *testing.T) {
	cfg := SecurityConfig{RequireTLS: true}
	h := SecurityHeaders(cfg, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not run for a plaintext request")
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusMisdirectedRequest {
		t.Fatalf("expected 421, got %d", rec.Code)
	}
}

func TestSecurityHeadersTrustsForwardedProtoFromTrustedProxy(t *testing.T) {
	cfg := SecurityConfig{RequireTLS: true, TrustedProxies: []string{"203.0.113.5"}}
	ran := false
	h := SecurityHeaders(cfg, func(w http.ResponseWriter, r *http.Request) {
		ran = true
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:54321"
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	h(rec, req)
	if !ran {
		t.Fatalf("expected request to pass TLS enforcement via trusted proxy, got status %d", rec.Code)
	}
}

func TestSecurityHeadersRejectsForwardedProtoFromUntrustedPeer(t *testing.T) {
	cfg := SecurityConfig{RequireTLS: true, TrustedProxies: []string{"203.0.113.5"}}
	h := SecurityHeaders(cfg, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not run; forwarded proto from untrusted peer must not be trusted")
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.9:1234"
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusMisdirectedRequest {
		t.Fatalf("expected 421 for untrusted forwarded-proto, got %d", rec.Code)
	}
}

func TestCORSRejectsOriginNotInAllowlist(t *testing.T) {
	cfg := SecurityConfig{AllowedOrigins: []string{"https://agent.example"}}
	h := CORS(cfg, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not run for a disallowed origin")
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestCORSEchoesAllowedOriginExactly(t *testing.T) {
	cfg := SecurityConfig{AllowedOrigins: []string{"https://agent.example"}}
	h := CORS(cfg, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://agent.example")
	rec := httptest.NewRecorder()
	h(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://agent.example" {
		t.Fatalf("expected origin echoed exactly, got %q", got)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected inner handler to run, got %d", rec.Code)
	}
}

func TestCORSShortCircuitsPreflight(t *testing.T) {
	cfg := SecurityConfig{AllowedOrigins: []string{"https://agent.example"}}
	h := CORS(cfg, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not run for an OPTIONS preflight")
	})
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://agent.example")
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", rec.Code)
	}
}

func TestCORSPassesThroughRequestsWithoutOrigin(t *testing.T) {
	cfg := SecurityConfig{AllowedOrigins: []string{"https://agent.example"}}
	ran := false
	h := CORS(cfg, func(w http.ResponseWriter, r *http.Request) {
		ran = true
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h(rec, req)
	if !ran {
		t.Fatal("expected request without Origin header to pass through")
	}
}

func TestRequireLocalHostAcceptsLoopbackNames(t *testing.T) {
	for _, host := range []string{"localhost", "localhost:8080", "127.0.0.1", "127.0.0.1:8080", "[::1]", "[::1]:8080"} {
		ran := false
		h := RequireLocalHost(func(w http.ResponseWriter, r *http.Request) {
			ran = true
		})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Host = host
		rec := httptest.NewRecorder()
		h(rec, req)
		if !ran {
			t.Errorf("expected host %q to be allowed", host)
		}
	}
}

func TestRequireLocalHostRejectsNonLocalHost(t *testing.T) {
	h := RequireLocalHost(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not run for a non-local Host header")
	})
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "evil.example:8080"
	rec := httptest.NewRecorder()
	h(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}
