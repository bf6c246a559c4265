package ratelimit

import (
	"testing"
	"time"
)

func TestTokenBucketDeductsWithinCapacity(t *testing.T) {
	b := NewTokenBucket(10, 1)
	ok, remaining := b.tryDeduct(time.Now(), 3)
	if !ok {
		t.Fatal("expected deduction within capacity to succeed")
	}
	if remaining != 7 {
		t.Fatalf("expected 7 tokens remaining, got %v", remaining)
	}
}

func TestTokenBucketRejectsWhenInsufficient(t *testing.T) {
	b := NewTokenBucket(2, 1)
	ok, _ := b.tryDeduct(time.Now(), 5)
	if ok {
		t.Fatal("expected deduction exceeding balance to fail")
	}
}

func TestTokenBucketRefillsOverTime(t *testing.T) {
	b := NewTokenBucket(10, 1)
	b.tryDeduct(time.Now(), 10)
	later := time.Now().Add(5 * time.Second)
	remaining := b.remaining(later)
	if remaining < 4.9 || remaining > 5.1 {
		t.Fatalf("expected ~5 tokens refilled after 5s at 1/s, got %v", remaining)
	}
}

func TestTokenBucketNeverRefillsPastCapacity(t *testing.T) {
	b := NewTokenBucket(5, 100)
	later := time.Now().Add(time.Hour)
	if got := b.remaining(later); got != 5 {
		t.Fatalf("expected refill to cap at capacity 5, got %v", got)
	}
}

func TestCostForToolKnownAndUnknown(t *testing.T) {
	if got := CostForTool("get_page_map"); got != 3 {
		t.Fatalf("expected get_page_map cost 3, got %v", got)
	}
	if got := CostForTool("batch_get_page_map"); got != 5 {
		t.Fatalf("expected batch_get_page_map cost 5, got %v", got)
	}
	if got := CostForTool("unknown_tool"); got != 1 {
		t.Fatalf("expected default cost 1 for unknown tool, got %v", got)
	}
}

func TestLimiterAcquireAllowsWithinBothBuckets(t *testing.T) {
	l := New(10, 1, 100, 10)
	d := l.Acquire("client-a", "execute_action", CostForTool("execute_action"))
	if !d.Allowed {
		t.Fatal("expected acquire to be allowed")
	}
}

func TestLimiterAcquireDeniesWhenCostExceedsCapacity(t *testing.T) {
	l := New(2, 1, 100, 10)
	d := l.Acquire("client-a", "batch_get_page_map", CostForTool("batch_get_page_map"))
	if d.Allowed {
		t.Fatal("expected denial when cost exceeds the client bucket's capacity")
	}
}

func TestLimiterAcquireDeniesOnClientExhaustion(t *testing.T) {
	l := New(3, 0, 100, 100)
	if d := l.Acquire("client-a", "get_page_map", 3); !d.Allowed {
		t.Fatal("expected first call to drain the bucket to be allowed")
	}
	if d := l.Acquire("client-a", "get_page_map", 3); d.Allowed {
		t.Fatal("expected second call to be denied with no refill configured")
	}
}

func TestLimiterAcquireRefundsClientOnGlobalDenial(t *testing.T) {
	l := New(10, 0, 1, 0)
	// First client exhausts the shared global bucket.
	if d := l.Acquire("client-a", "get_page_map", 1); !d.Allowed {
		t.Fatal("expected first acquire to succeed and drain the global bucket")
	}
	// Second client has its own full bucket but the global bucket is now empty.
	d := l.Acquire("client-b", "get_page_map", 1)
	if d.Allowed {
		t.Fatal("expected denial once the shared global bucket is exhausted")
	}
	// The client-b bucket must have been refunded rather than left decremented.
	if ratio := l.RemainingRatio("client-b"); ratio != 1 {
		t.Fatalf("expected client-b's bucket to be refunded to full, got ratio %v", ratio)
	}
}

func TestLimiterClientBucketsAreIndependent(t *testing.T) {
	l := New(1, 0, 100, 100)
	if d := l.Acquire("a", "execute_action", 1); !d.Allowed {
		t.Fatal("expected client a's first call to succeed")
	}
	if d := l.Acquire("b", "execute_action", 1); !d.Allowed {
		t.Fatal("expected client b's bucket to be independent of client a's")
	}
}

func TestRemainingRatioReflectsUsage(t *testing.T) {
	l := New(10, 0, 100, 100)
	l.Acquire("a", "get_page_map", 8)
	if ratio := l.RemainingRatio("a"); ratio > 0.21 || ratio < 0.19 {
		t.Fatalf("expected ~0.2 remaining ratio, got %v", ratio)
	}
}
