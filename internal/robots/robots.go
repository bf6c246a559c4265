// Package robots implements the per-origin robots.txt checker from
// spec.md §4.5, wrapping github.com/temoto/robotstxt (adopted from
// manifests/RecoveryAshes-JsFIndcrack/go.mod, a crawler in the retrieval
// pack that pulls it in via colly). The per-origin cache map follows the
// teacher's internal/security/csp.go CSPGenerator{mu, map[string]*Entry}
// shape: one mutex-guarded map keyed by origin.
package robots

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const (
	fetchTimeout   = 5 * time.Second
	maxBodyBytes   = 512 * 1024
	freshnessWindow = 10 * time.Minute
)

type entry struct {
	data      *robotstxt.RobotsData
	fetchedAt time.Time
	allowAll  bool // set on fetch failure / non-2xx: treated as allow
}

// Checker caches parsed robots.txt per origin.
type Checker struct {
	mu      sync.RWMutex
	origins map[string]*entry
	client  *http.Client
}

// New constructs a Checker with a bounded HTTP client.
func New() *Checker {
	return &Checker{
		origins: make(map[string]*entry),
		client:  &http.Client{Timeout: fetchTimeout},
	}
}

func originOf(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), nil
}

// IsAllowed reports whether userAgent may fetch rawURL, per that origin's
// robots.txt. A fetch failure (network error or status >= 400) is treated
// as allow, matching spec.md §4.5.
func (c *Checker) IsAllowed(rawURL, userAgent string) bool {
	origin, err := originOf(rawURL)
	if err != nil {
		return true
	}
	u, _ := url.Parse(rawURL)
	path := u.Path
	if path == "" {
		path = "/"
	}

	e := c.getOrFetch(origin)
	if e.allowAll {
		return true
	}
	group := e.data.FindGroup(userAgent)
	return group.Test(path)
}

func (c *Checker) getOrFetch(origin string) *entry {
	c.mu.RLock()
	e, ok := c.origins[origin]
	c.mu.RUnlock()
	if ok && c.isFresh(e) {
		return e
	}

	fetched := c.fetch(origin)
	c.mu.Lock()
	c.origins[origin] = fetched
	c.mu.Unlock()
	return fetched
}

// isFresh allows a refetch of an allow-all entry (network error, status >= 400,
// or an unreadable or unparsable body) once the freshness window has elapsed;
// a successfully parsed entry never needs refetching within a run.
func (c *Checker) isFresh(e *entry) bool {
	if !e.allowAll {
		return true
	}
	return time.Since(e.fetchedAt) < freshnessWindow
}

func (c *Checker) fetch(origin string) *entry {
	resp, err := c.client.Get(origin + "/robots.txt")
	if err != nil {
		return &entry{allowAll: true, fetchedAt: time.Now()}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return &entry{allowAll: true, fetchedAt: time.Now()}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &entry{allowAll: true, fetchedAt: time.Now()}
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return &entry{allowAll: true, fetchedAt: time.Now()}
	}
	return &entry{data: data, fetchedAt: time.Now()}
}

// UserAgentToken reduces a full UA string to the token robots.txt group
// matching expects, e.g. "PageMapBot/1.0 (+https://...)" -> "PageMapBot".
func UserAgentToken(ua string) string {
	if i := strings.IndexAny(ua, "/ "); i > 0 {
		return ua[:i]
	}
	return ua
}
