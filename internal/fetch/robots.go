package fetch

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsAuditor caches parsed robots.txt per host. A nil cache entry means
// the host's robots.txt was unreachable or invalid and the gate fails open
// for that host.
type robotsAuditor struct {
	fetcher *Fetcher
	mu      sync.RWMutex
	cache   map[string]*robotstxt.RobotsData
}

func newRobotsAuditor(f *Fetcher) *robotsAuditor {
	return &robotsAuditor{
		fetcher: f,
		cache:   make(map[string]*robotstxt.RobotsData),
	}
}

func (r *robotsAuditor) isAllowed(ctx context.Context, targetURL, userAgent string) (bool, error) {
	u, err := url.Parse(targetURL)
	if err != nil {
		return false, fmt.Errorf("invalid url: %w", err)
	}

	host := u.Scheme + "://" + u.Host

	data, err := r.getOrFetch(ctx, host)
	if err != nil || data == nil {
		return true, nil
	}

	return data.FindGroup(userAgent).Test(u.Path), nil
}

func (r *robotsAuditor) getOrFetch(ctx context.Context, host string) (*robotstxt.RobotsData, error) {
	r.mu.RLock()
	data, exists := r.cache[host]
	r.mu.RUnlock()
	if exists {
		return data, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if data, exists = r.cache[host]; exists {
		return data, nil
	}

	result, err := r.fetcher.get(ctx, host+"/robots.txt")
	if err != nil {
		r.cache[host] = nil
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	if result.StatusCode >= 400 {
		// No robots.txt means everything is allowed.
		r.cache[host] = nil
		return nil, nil
	}

	parsed, err := robotstxt.FromBytes(result.Body)
	if err != nil {
		r.cache[host] = nil
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.cache[host] = parsed
	return parsed, nil
}
