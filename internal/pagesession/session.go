// Package pagesession manages the lifecycle of per-client browser sessions
// on top of internal/browserpool: TTL expiry, recycle policy, and reference
// counting so a session can't be torn down while a request is mid-flight.
// Grounded on the Manager/Session split and lock-ordering discipline of
// _examples/other_examples/c21a1cf4_Rorqualx-flaresolverr-go__internal-session-session.go.go
// (opMu before mu, atomic lastUsed, refcounted AcquirePage/ReleasePage,
// two-phase cleanup with errgroup-parallel teardown).
package pagesession

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/retio-ai/pagemap/internal/browserpool"
	"github.com/retio-ai/pagemap/internal/telemetry"
)

var (
	ErrNotFound          = errors.New("pagesession: session not found")
	ErrInUse             = errors.New("pagesession: session still in use")
	ErrDead              = errors.New("pagesession: session browser is dead")
	ErrResourceExhausted = errors.New("pagesession: tab cap reached and session cannot recycle mid-call")
)

// RecyclePolicy bounds how long and how hard a session may be reused before
// it is torn down and replaced, per spec.md §4.6's recycle triggers.
type RecyclePolicy struct {
	MaxAge            time.Duration
	MaxNavigations    int
	MaxTabs           int
}

func (p RecyclePolicy) defaults() RecyclePolicy {
	if p.MaxAge <= 0 {
		p.MaxAge = 900 * time.Second
	}
	if p.MaxNavigations <= 0 {
		p.MaxNavigations = 500
	}
	if p.MaxTabs <= 0 {
		p.MaxTabs = 10
	}
	return p
}

// Entry is one tracked session. ownsBrowser distinguishes a session this
// manager is responsible for releasing back to the pool on destroy from one
// constructed over a caller-supplied, externally-owned *browserpool.Session —
// spec.md §9's redesign flag replacing an implicit boolean flag with two
// explicit constructors (NewOwned/NewBorrowed below).
type Entry struct {
	ID                string
	Session           *browserpool.Session
	CreatedAt         time.Time
	browserAcquiredAt time.Time
	lastUsed          atomic.Int64
	navCount          atomic.Int32
	tabCount          atomic.Int32

	refCount atomic.Int32
	closing  atomic.Bool

	opMu sync.Mutex // held by Acquire across its closing check and refcount increment
	mu   sync.Mutex // guards ToolLock/TemplateCache map access

	ownsBrowser   bool
	toolLock      map[string]*sync.Mutex
	templateCache map[string]any

	// Cache holds this session's PageMap history and active ref-resolution
	// target (spec.md §3).
	Cache *PageMapCache
}

func newEntry(id string, sess *browserpool.Session, ownsBrowser bool) *Entry {
	e := &Entry{
		ID:            id,
		Session:       sess,
		CreatedAt:     time.Now(),
		ownsBrowser:   ownsBrowser,
		toolLock:      make(map[string]*sync.Mutex),
		templateCache: make(map[string]any),
		Cache:         NewPageMapCache(defaultCacheCapacity),
	}
	e.lastUsed.Store(time.Now().UnixNano())
	return e
}

// NewOwned wraps a session this Manager acquired itself and must Release on
// destroy (the common case: one session per client).
func NewOwned(id string, sess *browserpool.Session) *Entry {
	return newEntry(id, sess, true)
}

// NewBorrowed wraps a session owned by a caller outside this Manager (e.g. a
// one-shot CLI invocation reusing an already-open session); destroy never
// calls browserpool.Release on it.
func NewBorrowed(id string, sess *browserpool.Session) *Entry {
	return newEntry(id, sess, false)
}

// Touch records activity; RecordNavigation increments the navigation counter.
func (e *Entry) Touch() {
	e.lastUsed.Store(time.Now().UnixNano())
}

func (e *Entry) RecordNavigation() { e.navCount.Add(1) }
func (e *Entry) RecordTabOpen()    { e.tabCount.Add(1) }

func (e *Entry) LastUsed() time.Time { return time.Unix(0, e.lastUsed.Load()) }

// NeedsRecycle reports whether policy's age/navigation/tab thresholds have
// been exceeded (spec.md §4.6 recycle triggers). Age is measured from the
// browser's acquisition time, not the session entry's creation time, since a
// session may sit with no browser acquired for a while before its first
// navigating call.
func (e *Entry) NeedsRecycle(policy RecyclePolicy) bool {
	policy = policy.defaults()
	if e.Session == nil {
		return false
	}
	age := e.CreatedAt
	if !e.browserAcquiredAt.IsZero() {
		age = e.browserAcquiredAt
	}
	if time.Since(age) >= policy.MaxAge {
		return true
	}
	if int(e.navCount.Load()) >= policy.MaxNavigations {
		return true
	}
	if e.Session.TabCount() >= policy.MaxTabs {
		return true
	}
	return false
}

// ToolLock returns a per-tool-name mutex scoped to this session, so two
// concurrent tool calls that touch different tools on the same session don't
// serialize behind one global opMu, but calls to the SAME tool still do.
func (e *Entry) ToolLock(tool string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.toolLock[tool]
	if !ok {
		l = &sync.Mutex{}
		e.toolLock[tool] = l
	}
	return l
}

// CacheGet/CacheSet back the per-session template cache used by repeated
// get_page_map calls against an unchanged DOM region.
func (e *Entry) CacheGet(key string) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.templateCache[key]
	return v, ok
}

func (e *Entry) CacheSet(key string, v any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templateCache[key] = v
}

// Acquire increments the reference count, blocking new teardown until
// Release is called. Returns ErrDead if the entry is already closing.
func (e *Entry) Acquire() error {
	e.opMu.Lock()
	defer e.opMu.Unlock()
	if e.closing.Load() {
		return ErrDead
	}
	e.refCount.Add(1)
	return nil
}

func (e *Entry) Release() {
	if e.refCount.Add(-1) < 0 {
		e.refCount.Store(0)
	}
}

func (e *Entry) waitForReferences(timeout time.Duration) bool {
	if e.refCount.Load() <= 0 {
		return true
	}
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		if e.refCount.Load() <= 0 {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
	}
	return false
}

// IsAlive probes the underlying page with a cheap no-op evaluation; a failed
// probe means the browser process (or this tab) has died and the session
// must be recycled rather than reused (spec.md §4.6 health check).
func (e *Entry) IsAlive() bool {
	if e.Session == nil || e.Session.Page() == nil {
		return false
	}
	_, err := e.Session.Page().Eval(`() => true`)
	return err == nil
}

// Manager tracks Entry values keyed by session ID, with TTL-based background
// expiry mirroring the teacher's cleanupRoutine/cleanupExpired pair.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Entry
	pool     *browserpool.Pool
	ttl      time.Duration
	policy   RecyclePolicy
	sink     telemetry.Sink

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewManager starts a background TTL-sweep goroutine immediately; call
// Close to stop it and tear down all tracked sessions. sink may be nil, in
// which case recycle events are discarded.
func NewManager(pool *browserpool.Pool, ttl time.Duration, policy RecyclePolicy, cleanupInterval time.Duration, sink telemetry.Sink) *Manager {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	if cleanupInterval <= 0 {
		cleanupInterval = time.Minute
	}
	if sink == nil {
		sink = telemetry.NoopSink{}
	}
	m := &Manager{
		sessions: make(map[string]*Entry),
		pool:     pool,
		ttl:      ttl,
		policy:   policy,
		sink:     sink,
		stopCh:   make(chan struct{}),
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.cleanupRoutine(cleanupInterval)
	}()
	return m
}

func (m *Manager) Put(e *Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[e.ID] = e
}

func (m *Manager) Get(id string) (*Entry, error) {
	m.mu.RLock()
	e, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok || e.closing.Load() {
		return nil, ErrNotFound
	}
	e.Touch()
	return e, nil
}

// GetOrCreate returns the tracked entry for id, creating a bare entry with
// no browser acquired yet if none exists. A read-only tool call (e.g.
// resolving a cached PageMap) can use the returned entry without ever
// touching the pool (spec.md §4.6: "get_context... does not acquire").
func (m *Manager) GetOrCreate(id string) *Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[id]; ok && !e.closing.Load() {
		e.Touch()
		return e
	}
	e := newEntry(id, nil, true)
	m.sessions[id] = e
	return e
}

// EnsureBrowser lazily acquires a browser for e on the first call that needs
// one, recycling an existing browser first if policy's age/navigation/tab
// thresholds are exceeded (spec.md §4.6). Every call counts as one
// get_session() for navigation-count purposes, matching the spec's "every
// get_session() call increments navigation_count".
func (m *Manager) EnsureBrowser(ctx context.Context, e *Entry) error {
	e.RecordNavigation()

	if e.Session != nil && e.NeedsRecycle(m.policy) {
		if err := m.recycle(ctx, e); err != nil {
			return err
		}
	}

	if e.Session == nil {
		sess, err := m.pool.Acquire(ctx)
		if err != nil {
			return fmt.Errorf("pagesession: acquire browser: %w", err)
		}
		e.Session = sess
		e.browserAcquiredAt = time.Now()
		return nil
	}

	policy := m.policy.defaults()
	if e.Session.TabCount() >= policy.MaxTabs {
		// A second concurrent tab would push this session over the cap and
		// recycling wasn't selected above (NeedsRecycle already said no, which
		// only happens if recycle just ran and the fresh session is still at
		// its tab cap — a pathological but possible race).
		return ErrResourceExhausted
	}
	return nil
}

// recycle releases e's current browser back to the pool (suppressing
// cleanup errors), clears the page-map cache, and resets counters so the
// next EnsureBrowser call acquires a fresh one (spec.md §4.6).
func (m *Manager) recycle(ctx context.Context, e *Entry) error {
	old := e.Session
	if e.ownsBrowser && old != nil {
		m.pool.Release(old)
	}
	e.Session = nil
	e.Cache.Clear()
	e.navCount.Store(0)
	e.browserAcquiredAt = time.Time{}
	m.sink.Emit(telemetry.BrowserDead(e.ID, "recycled"))
	return nil
}

// Destroy removes and tears down a single session by ID, waiting up to 5s
// for in-flight references to drain.
func (m *Manager) Destroy(id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if ok {
		e.closing.Store(true)
	}
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}

	if !e.waitForReferences(5 * time.Second) {
		return ErrInUse
	}

	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	m.teardown(e)
	return nil
}

func (m *Manager) teardown(e *Entry) {
	if e.ownsBrowser && e.Session != nil {
		m.pool.Release(e.Session)
	}
}

func (m *Manager) cleanupRoutine(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.cleanupExpired()
		case <-m.stopCh:
			return
		}
	}
}

func (m *Manager) cleanupExpired() {
	now := time.Now()
	m.mu.Lock()
	var expired []*Entry
	for id, e := range m.sessions {
		deadBrowser := e.Session != nil && !e.IsAlive()
		if now.Sub(e.LastUsed()) > m.ttl || e.NeedsRecycle(m.policy) || deadBrowser {
			e.closing.Store(true)
			expired = append(expired, e)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()
	if len(expired) == 0 {
		return
	}

	eg := new(errgroup.Group)
	eg.SetLimit(4)
	for _, e := range expired {
		entry := e
		eg.Go(func() error {
			entry.waitForReferences(2 * time.Second)
			m.teardown(entry)
			return nil
		})
	}
	_ = eg.Wait()
}

// Close stops the cleanup goroutine and tears down every tracked session.
func (m *Manager) Close() error {
	close(m.stopCh)
	m.wg.Wait()

	m.mu.Lock()
	entries := make([]*Entry, 0, len(m.sessions))
	for _, e := range m.sessions {
		entries = append(entries, e)
	}
	m.sessions = make(map[string]*Entry)
	m.mu.Unlock()

	eg := new(errgroup.Group)
	eg.SetLimit(4)
	for _, e := range entries {
		entry := e
		eg.Go(func() error {
			m.teardown(entry)
			return nil
		})
	}
	return eg.Wait()
}

// Count reports the number of tracked sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
