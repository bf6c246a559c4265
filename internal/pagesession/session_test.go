package pagesession

import (
	"testing"
	"time"

	"github.com/retio-ai/pagemap/internal/browserpool"
)

func TestNeedsRecycleOnMaxNavigations(t *testing.T) {
	e := NewOwned("s1", &browserpool.Session{})
	policy := RecyclePolicy{MaxNavigations: 2}
	for i := 0; i < 3; i++ {
		e.RecordNavigation()
	}
	if !e.NeedsRecycle(policy) {
		t.Errorf("expected recycle after exceeding MaxNavigations")
	}
}

func TestNeedsRecycleOnAge(t *testing.T) {
	e := NewOwned("s1", &browserpool.Session{})
	e.CreatedAt = time.Now().Add(-time.Hour)
	if !e.NeedsRecycle(RecyclePolicy{MaxAge: time.Minute}) {
		t.Errorf("expected recycle after exceeding MaxAge")
	}
}

func TestAcquireReleaseRefCounting(t *testing.T) {
	e := NewOwned("s1", &browserpool.Session{})
	if err := e.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	e.Release()
	if !e.waitForReferences(10 * time.Millisecond) {
		t.Errorf("expected references drained after Release")
	}
}

func TestAcquireFailsWhenClosing(t *testing.T) {
	e := NewOwned("s1", &browserpool.Session{})
	e.closing.Store(true)
	if err := e.Acquire(); err != ErrDead {
		t.Errorf("expected ErrDead, got %v", err)
	}
}

func TestToolLockIsPerTool(t *testing.T) {
	e := NewOwned("s1", &browserpool.Session{})
	a := e.ToolLock("get_page_map")
	b := e.ToolLock("execute_action")
	if a == b {
		t.Errorf("expected distinct locks per tool")
	}
	same := e.ToolLock("get_page_map")
	if a != same {
		t.Errorf("expected the same lock instance for repeated lookups")
	}
}
