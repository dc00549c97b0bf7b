// Package proxy rotates outbound requests across a set of proxy
// endpoints, benching the ones that keep failing.
package proxy

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	defaultMaxFailures = 3
	defaultCooldown    = 5 * time.Minute
)

// Options tunes when a misbehaving proxy gets benched and for how long.
// Zero values fall back to the defaults.
type Options struct {
	MaxFailures int
	Cooldown    time.Duration
}

// entry tracks the health of one proxy. A non-zero benchedUntil means
// the proxy sits out rotation until that time passes.
type entry struct {
	url          *url.URL
	failures     int
	benchedUntil time.Time
}

// Pool hands out proxy URLs round-robin, skipping benched entries.
// All methods are safe for concurrent use.
type Pool struct {
	mu    sync.Mutex
	list  []*entry
	byKey map[string]*entry
	next  int

	maxFailures int
	cooldown    time.Duration
}

// NewPool builds a pool from raw proxy URLs. A URL without a scheme is
// treated as plain HTTP. An empty slice yields a usable pool that Next
// always answers with nil.
func NewPool(rawURLs []string, opts Options) (*Pool, error) {
	if opts.MaxFailures <= 0 {
		opts.MaxFailures = defaultMaxFailures
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = defaultCooldown
	}
	p := &Pool{
		byKey:       make(map[string]*entry),
		maxFailures: opts.MaxFailures,
		cooldown:    opts.Cooldown,
	}
	for _, raw := range rawURLs {
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("bad proxy url %q: %w", raw, err)
		}
		e := &entry{url: u}
		p.list = append(p.list, e)
		p.byKey[u.String()] = e
	}
	return p, nil
}

// FromFile builds a pool from a proxy list file: one URL per line,
// blank lines and '#' comments skipped.
func FromFile(path string, opts Options) (*Pool, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open proxy file: %w", err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read proxy file %s: %w", path, err)
	}
	return NewPool(urls, opts)
}

// Len reports how many proxies the pool holds, benched or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.list)
}

// Next returns the next proxy in rotation, or nil when the pool is
// empty or every proxy is benched. A benched proxy whose cooldown has
// expired rejoins with a clean failure count.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for range p.list {
		e := p.list[p.next]
		p.next = (p.next + 1) % len(p.list)

		if !e.benchedUntil.IsZero() && now.After(e.benchedUntil) {
			e.benchedUntil = time.Time{}
			e.failures = 0
		}
		if e.benchedUntil.IsZero() {
			return e.url
		}
	}
	return nil
}

// MarkSuccess credits a proxy after a request went through, working
// off one earlier failure. Unknown URLs are ignored.
func (p *Pool) MarkSuccess(u *url.URL) {
	if u == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.byKey[u.String()]
	if e == nil {
		return
	}
	if e.failures > 0 {
		e.failures--
	}
}

// MarkFailure charges a proxy for a failed request. Reaching the
// failure limit benches it for the configured cooldown.
func (p *Pool) MarkFailure(u *url.URL) {
	if u == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.byKey[u.String()]
	if e == nil {
		return
	}
	e.failures++
	if e.failures >= p.maxFailures {
		e.benchedUntil = time.Now().Add(p.cooldown)
	}
}
