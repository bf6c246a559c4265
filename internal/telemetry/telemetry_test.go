package telemetry

import "testing"

func TestResponseSizeExceededFields(t *testing.T) {
	e := ResponseSizeExceeded("get_page_map", 2000, 1000)
	if e.Name != "guard.response_size_exceeded" {
		t.Fatalf("unexpected event name %q", e.Name)
	}
	if e.Fields["tool"] != "get_page_map" || e.Fields["original_bytes"] != 2000 || e.Fields["limit_bytes"] != 1000 {
		t.Fatalf("unexpected fields: %+v", e.Fields)
	}
}

func TestRateLimitWarningFields(t *testing.T) {
	e := RateLimitWarning("client-a", 2, 10)
	if e.Name != "ratelimit.warning" {
		t.Fatalf("unexpected event name %q", e.Name)
	}
	if e.Fields["client"] != "client-a" || e.Fields["remaining"] != 2 || e.Fields["capacity"] != 10 {
		t.Fatalf("unexpected fields: %+v", e.Fields)
	}
}

func TestRateLimitExceededFields(t *testing.T) {
	e := RateLimitExceeded("client-a", "execute_action", 5)
	if e.Name != "ratelimit.exceeded" {
		t.Fatalf("unexpected event name %q", e.Name)
	}
	if e.Fields["client"] != "client-a" || e.Fields["tool"] != "execute_action" || e.Fields["retry_after_seconds"] != 5 {
		t.Fatalf("unexpected fields: %+v", e.Fields)
	}
}

func TestBrowserDeadFields(t *testing.T) {
	e := BrowserDead("sess1", "health_check_failed")
	if e.Name != "session.browser_dead" {
		t.Fatalf("unexpected event name %q", e.Name)
	}
	if e.Fields["session_id"] != "sess1" || e.Fields["reason"] != "health_check_failed" {
		t.Fatalf("unexpected fields: %+v", e.Fields)
	}
}

func TestNoopSinkDiscardsEvents(t *testing.T) {
	var s Sink = NoopSink{}
	s.Emit(Event{Name: "anything"})
}
