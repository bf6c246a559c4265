package mcpserver

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/retio-ai/pagemap/internal/pagesession"
)

func TestToolsListCoversFiveTools(t *testing.T) {
	s := New()
	names := map[string]bool{}
	for _, tool := range s.ToolsList() {
		names[tool.Name] = true
		if tool.Description == "" {
			t.Errorf("tool %s has no description", tool.Name)
		}
		if tool.InputSchema["type"] != "object" {
			t.Errorf("tool %s schema should be an object, got %v", tool.Name, tool.InputSchema["type"])
		}
	}
	for _, want := range []string{"get_page_map", "execute_action", "navigate_back", "take_screenshot", "batch_get_page_map"} {
		if !names[want] {
			t.Errorf("expected tool %s in tools/list", want)
		}
	}
}

func TestInitializeReportsVersion(t *testing.T) {
	s := New()
	init := s.Initialize()
	if init.ServerInfo.Version != Version {
		t.Fatalf("expected version %s, got %s", Version, init.ServerInfo.Version)
	}
}

func TestWithToolLockSerializesSameTool(t *testing.T) {
	s := New()
	s.ToolLockTimeout = time.Second
	e := pagesession.NewOwned("s1", nil)

	var order []int
	var active int
	overlapped := false
	var mu sync.Mutex
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			s.withToolLock(e, "get_page_map", func() string {
				mu.Lock()
				order = append(order, i)
				active++
				if active > 1 {
					overlapped = true
				}
				mu.Unlock()
				time.Sleep(20 * time.Millisecond)
				mu.Lock()
				active--
				mu.Unlock()
				return ""
			})
		}()
	}
	close(start)
	wg.Wait()

	if len(order) != 2 {
		t.Fatalf("expected both calls to run, got %v", order)
	}
	if overlapped {
		t.Fatal("expected calls to the same tool to run one at a time")
	}
}

func TestWithToolLockTimesOutWhenHeld(t *testing.T) {
	s := New()
	s.ToolLockTimeout = 30 * time.Millisecond
	e := pagesession.NewOwned("s1", nil)

	holding := make(chan struct{})
	release := make(chan struct{})
	go s.withToolLock(e, "get_page_map", func() string {
		close(holding)
		<-release
		return ""
	})
	<-holding

	result := s.withToolLock(e, "get_page_map", func() string {
		return "should not run"
	})
	close(release)

	if result == "" {
		t.Fatal("expected a busy/rate_limited response while the lock is held")
	}
	if !contains(result, ErrRateLimited) {
		t.Fatalf("expected rate_limited error kind, got %s", result)
	}
}

func TestStageTimerTimeoutReportNamesCurrentStage(t *testing.T) {
	timer := newStageTimer()
	timer.enter("build")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, timedOut := timer.timeoutReport(ctx, "get_page_map")
	if !timedOut {
		t.Fatal("expected timeout to be reported for a canceled context")
	}
	if !contains(report, "build") {
		t.Fatalf("expected report to name the current stage, got %s", report)
	}
}

func TestStageTimerNoTimeoutWhileContextLive(t *testing.T) {
	timer := newStageTimer()
	timer.enter("build")
	_, timedOut := timer.timeoutReport(context.Background(), "get_page_map")
	if timedOut {
		t.Fatal("did not expect a timeout report for a live context")
	}
}

func TestDrainingGateRejectsNewCalls(t *testing.T) {
	s := newTestServer()
	s.SetDraining(true)

	resp := s.HandleToolCall(context.Background(), "sess1", "get_page_map", nil)
	if !contains(string(resp), ErrResourceExhausted) {
		t.Fatalf("expected resource_exhausted while draining, got %s", resp)
	}
}

func contains(haystack, needle string) bool {
	return strings.Contains(haystack, needle)
}
