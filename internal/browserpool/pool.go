// Package browserpool owns the single Chromium process PageMap drives and
// hands out semaphore-bounded, SSRF-guarded browser contexts to callers.
// Grounded on the Manager/Session split in
// _examples/other_examples/0a545a79_Freitascorp-devopsclaw__pkg-browser-browser.go.go
// (lazy browser launch, incognito-per-session isolation, page pool) and the
// lock-ordering/cleanup-goroutine discipline in
// _examples/other_examples/c21a1cf4_Rorqualx-flaresolverr-go__internal-session-session.go.go.
package browserpool

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/retio-ai/pagemap/internal/dialogs"
	"github.com/retio-ai/pagemap/internal/domdiff"
	"github.com/retio-ai/pagemap/internal/urlsafety"
)

// Config configures the pool (spec.md §5: concurrency & resource model).
type Config struct {
	Headless              bool
	MaxConcurrentSessions int
	DefaultTimeout        time.Duration
	ViewportWidth         int
	ViewportHeight        int
	UserAgent             string
	BrowserBin            string
	AllowLocalNavigation  bool // overridable SSRF allowance (spec.md §4.2)
}

func (c *Config) defaults() {
	if c.MaxConcurrentSessions <= 0 {
		c.MaxConcurrentSessions = 4
	}
	if c.DefaultTimeout <= 0 {
		c.DefaultTimeout = 30 * time.Second
	}
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 1280
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 800
	}
}

// Pool owns the browser process and bounds concurrent sessions with a
// semaphore sized to MaxConcurrentSessions (spec.md §5's resource ceiling).
type Pool struct {
	config  Config
	mu      sync.Mutex
	browser *rod.Browser
	closed  bool
	sem     chan struct{}
}

// New constructs a Pool. The browser process itself is launched lazily on
// first Acquire, matching the teacher's ensureBrowser pattern, to avoid
// paying Chromium startup cost for a server that never receives a request.
func New(cfg Config) *Pool {
	cfg.defaults()
	return &Pool{
		config: cfg,
		sem:    make(chan struct{}, cfg.MaxConcurrentSessions),
	}
}

func (p *Pool) ensureBrowser() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser != nil {
		return nil
	}
	if p.closed {
		return fmt.Errorf("browserpool: closed")
	}

	l := launcher.New().Headless(p.config.Headless)
	if p.config.BrowserBin != "" {
		l = l.Bin(p.config.BrowserBin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return fmt.Errorf("browserpool: launch failed: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("browserpool: connect failed: %w", err)
	}
	p.browser = browser
	return nil
}

// Session is a single incognito browser context plus its one working page.
// Every navigation on a Session is SSRF-checked before the browser is
// allowed to touch the network (spec.md §4.2). Dialogs are auto-handled per
// internal/dialogs's fixed policy and recorded into a bounded buffer a tool
// call drains after it runs.
type Session struct {
	pool       *Pool
	context    *rod.Browser
	page       *rod.Page
	allowLocal bool
	timeout    time.Duration

	dialogBuf *dialogs.Buffer
	tabCount  atomic.Int32
}

// Acquire blocks on the pool's concurrency semaphore, then creates a fresh
// incognito context and stealth-patched page. Callers MUST call Release.
func (p *Pool) Acquire(ctx context.Context) (*Session, error) {
	if err := p.ensureBrowser(); err != nil {
		return nil, err
	}

	select {
	case p.sem <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	incognito, err := p.browser.Incognito()
	if err != nil {
		<-p.sem
		return nil, fmt.Errorf("browserpool: incognito failed: %w", err)
	}

	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = incognito.Close()
		<-p.sem
		return nil, fmt.Errorf("browserpool: page create failed: %w", err)
	}
	page, err = stealth.Page(incognito)
	if err != nil {
		_ = incognito.Close()
		<-p.sem
		return nil, fmt.Errorf("browserpool: stealth patch failed: %w", err)
	}

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  p.config.ViewportWidth,
		Height: p.config.ViewportHeight,
	}); err != nil {
		_ = incognito.Close()
		<-p.sem
		return nil, fmt.Errorf("browserpool: set viewport failed: %w", err)
	}
	if p.config.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: p.config.UserAgent}); err != nil {
			_ = incognito.Close()
			<-p.sem
			return nil, fmt.Errorf("browserpool: set user agent failed: %w", err)
		}
	}

	s := &Session{
		pool:       p,
		context:    incognito,
		page:       page,
		allowLocal: p.config.AllowLocalNavigation,
		timeout:    p.config.DefaultTimeout,
		dialogBuf:  dialogs.NewBuffer(),
	}
	s.installDialogHandler()
	return s, nil
}

// Release closes the session's incognito context and frees its semaphore slot.
func (p *Pool) Release(s *Session) {
	if s == nil {
		return
	}
	_ = s.context.Close()
	<-p.sem
}

// Connected reports whether the browser process has been launched and
// connected (spec.md §4.14's /ready and /startupz probes). A pool that has
// not yet served a request reports false until ensureBrowser runs.
func (p *Pool) Connected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.browser != nil && !p.closed
}

// Close shuts down the browser process. Any outstanding sessions become
// invalid; callers should drain them before calling Close.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.browser != nil {
		return p.browser.Close()
	}
	return nil
}

// Page returns the session's underlying rod.Page for callers (pagesession,
// actionexec, axdetect) that need direct CDP access.
func (s *Session) Page() *rod.Page { return s.page }

// Timeout returns the configured per-operation timeout.
func (s *Session) Timeout() time.Duration { return s.timeout }

// TabCount reports how many additional tabs this session has opened via
// target-create events, used by pagesession's recycle policy (spec.md §4.6).
func (s *Session) TabCount() int { return int(s.tabCount.Load()) }

// installDialogHandler wires the page's JavaScript dialog event to the fixed
// accept/dismiss policy in internal/dialogs, recording every outcome into
// the session's buffer (spec.md §4.12).
func (s *Session) installDialogHandler() {
	go s.page.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		kind := dialogs.Kind(e.Type)
		accept := dialogs.Decide(kind)
		_ = proto.PageHandleJavaScriptDialog{Accept: accept, PromptText: ""}.Call(s.page)
		s.dialogBuf.Record(kind, e.Message, !accept)
	}, func(e *proto.TargetTargetCreated) {
		if e.TargetInfo.OpenerID != "" {
			s.tabCount.Add(1)
		}
	})()
}

// DrainDialogs returns and clears every dialog auto-handled since the last
// drain (spec.md §4.12; satisfies internal/actionexec.Session).
func (s *Session) DrainDialogs() []dialogs.Record { return s.dialogBuf.Drain() }

// Navigate validates rawURL against the SSRF guard before instructing the
// browser to load it — the guard runs here, not just at the transport edge,
// so every navigation (including client-initiated redirects re-checked by
// callers) goes through the same gate.
func (s *Session) Navigate(ctx context.Context, rawURL string) error {
	if err := urlsafety.ValidateURLWithDNS(ctx, rawURL, s.allowLocal); err != nil {
		return fmt.Errorf("browserpool: %w", err)
	}
	return s.page.Timeout(s.timeout).Navigate(rawURL)
}

// NavigateBack drives the browser's history back one entry, then re-checks
// the resulting URL against the SSRF guard — a page that navigated forward
// into an address only reachable via client-side redirect must still clear
// the same gate before being handed back to the caller (spec.md §4.9).
func (s *Session) NavigateBack(ctx context.Context) error {
	if err := s.page.Timeout(s.timeout).NavigateBack(); err != nil {
		return fmt.Errorf("browserpool: navigate back failed: %w", err)
	}
	info, err := s.page.Info()
	if err != nil {
		return fmt.Errorf("browserpool: post-back info failed: %w", err)
	}
	if err := urlsafety.ValidateURLWithDNS(ctx, info.URL, s.allowLocal); err != nil {
		return fmt.Errorf("browserpool: %w", err)
	}
	return nil
}

// CurrentURL returns the page's current URL.
func (s *Session) CurrentURL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Title returns the page's current document title.
func (s *Session) Title() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.Title
}

// HTML returns the full rendered document HTML.
func (s *Session) HTML() (string, error) {
	return s.page.Timeout(s.timeout).HTML()
}

// Evaluate runs a JS expression on the page and returns its raw JSON value.
func (s *Session) Evaluate(ctx context.Context, expr string) (string, error) {
	res, err := s.page.Context(ctx).Eval(expr)
	if err != nil {
		return "", err
	}
	return res.Value.String(), nil
}

// Screenshot captures the current viewport (or full page) as PNG bytes.
func (s *Session) Screenshot(fullPage bool) ([]byte, error) {
	return s.page.Timeout(s.timeout).Screenshot(fullPage, nil)
}

// Click, Fill, SelectOption and PressKey satisfy internal/actionexec.Session.
// locator is a role=ROLE[name="NAME"] string (see actionexec.Locate) or a
// raw CSS selector; resolveElement turns either into a rod.Element.

func (s *Session) resolveElement(locator string) (*rod.Element, error) {
	if role, name, ok := parseRoleLocator(locator); ok {
		el, err := s.page.Timeout(s.timeout).ElementR(roleToTag(role), name)
		if err == nil {
			return el, nil
		}
		return nil, err
	}
	return s.page.Timeout(s.timeout).Element(locator)
}

func (s *Session) Click(ctx context.Context, locator string) error {
	el, err := s.resolveElement(locator)
	if err != nil {
		return fmt.Errorf("browserpool: resolve %q: %w", locator, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

func (s *Session) Fill(ctx context.Context, locator, value string) error {
	el, err := s.resolveElement(locator)
	if err != nil {
		return fmt.Errorf("browserpool: resolve %q: %w", locator, err)
	}
	if err := el.SelectAllText(); err == nil {
		_ = el.Input("")
	}
	return el.Input(value)
}

func (s *Session) SelectOption(ctx context.Context, locator, value string) error {
	el, err := s.resolveElement(locator)
	if err != nil {
		return fmt.Errorf("browserpool: resolve %q: %w", locator, err)
	}
	return el.Select([]string{value}, true, rod.SelectorTypeCSSSector)
}

func (s *Session) PressKey(ctx context.Context, key string) error {
	if modName, base, ok := splitCombo(key); ok {
		modKey, modOK := comboModifierKeys[modName]
		baseKey, baseOK := comboBaseKeys[base]
		if !modOK || !baseOK {
			return fmt.Errorf("browserpool: unmapped key combo %q", key)
		}
		if err := s.page.Keyboard.Press(modKey); err != nil {
			return err
		}
		defer s.page.Keyboard.Release(modKey)
		if err := s.page.Keyboard.Press(baseKey); err != nil {
			return err
		}
		return s.page.Keyboard.Release(baseKey)
	}

	keyCode, ok := keyInputMap[key]
	if !ok {
		return fmt.Errorf("browserpool: unmapped key %q", key)
	}
	return s.page.Keyboard.Press(keyCode)
}

// splitCombo splits a "Modifier+Key" string into its two parts.
func splitCombo(key string) (modifier, base string, ok bool) {
	return strings.Cut(key, "+")
}

// Settle pauses briefly after an action so a pending new page or DOM update
// has a chance to surface before the caller inspects state (spec.md §4.11).
func (s *Session) Settle(ctx context.Context) {
	select {
	case <-time.After(150 * time.Millisecond):
	case <-ctx.Done():
	}
}

// Fingerprint captures a cheap before/after comparable snapshot of the
// page's observable structure for internal/domdiff (spec.md §4.13).
func (s *Session) Fingerprint(ctx context.Context) (domdiff.Fingerprint, bool) {
	raw, err := s.page.Context(ctx).Eval(fingerprintScript)
	if err != nil {
		return domdiff.Fingerprint{}, false
	}
	var payload struct {
		Counts map[string]int `json:"counts"`
		Total  int            `json:"total"`
		Title  string         `json:"title"`
		Body   int            `json:"bodyChildren"`
		Sample string         `json:"sample"`
	}
	if err := raw.Value.Unmarshal(&payload); err != nil {
		return domdiff.Fingerprint{}, false
	}
	return domdiff.Fingerprint{
		InteractiveCounts: payload.Counts,
		TotalInteractives: payload.Total,
		HasDialog:         len(s.dialogBuf.Drain()) > 0,
		BodyChildCount:    payload.Body,
		Title:             payload.Title,
		ContentHash:       domdiff.ContentHash(payload.Sample),
	}, true
}

// fingerprintScript samples the page's interactive role counts, body child
// count, title and a short text slice for domdiff comparison.
const fingerprintScript = `() => {
	const roles = ["button","link","textbox","searchbox","combobox","listbox","checkbox","radio","tab","menuitem","switch","slider","spinbutton"];
	const counts = {};
	let total = 0;
	for (const r of roles) {
		const n = document.querySelectorAll('[role="' + r + '"]').length;
		counts[r] = n;
		total += n;
	}
	const body = document.body;
	return {
		counts: counts,
		total: total,
		title: document.title,
		bodyChildren: body ? body.children.length : 0,
		sample: (body ? body.innerText : "").slice(0, 2000),
	};
}`
