// Package fetch retrieves candidate pages with a bounded timeout, rotating
// User-Agents, a browser TLS fingerprint, and challenge-page detection.
// An optional robots.txt gate can refuse disallowed paths before fetching.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/greyfort/eventscout/internal/fingerprint"
	"github.com/greyfort/eventscout/internal/metrics"
	"github.com/greyfort/eventscout/pkg/httpclient"
	"github.com/greyfort/eventscout/pkg/proxy"
	"github.com/greyfort/eventscout/pkg/useragent"
)

type contextKey string

// proxyURLKey carries the proxy chosen for a request. Transport.Proxy runs
// per request, so routing the choice through the context lets one shared
// transport rotate proxies without being rebuilt.
const proxyURLKey contextKey = "fetch_proxy_url"

// maxBodyBytes caps how much of a page is read. Event pages past a few MB
// are not worth parsing.
const maxBodyBytes = 4 << 20

// Config sets up a Fetcher.
type Config struct {
	Timeout       time.Duration
	MaxRedirects  int
	UseCookieJar  bool
	UAPool        *useragent.Pool
	Fingerprint   fingerprint.Profile
	ProxyPool     *proxy.Pool
	RespectRobots bool
	RobotsAgent   string
}

// Result is one fetched page.
type Result struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
	FetchedAt  time.Time
	Blocked    bool
	BlockedBy  string // e.g. "Cloudflare", "Akamai"
}

// OK reports whether the response carries usable page content: a 2xx
// status and no detected challenge page.
func (r *Result) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300 && !r.Blocked
}

// Fetcher performs single-page GETs. One Fetcher is shared across a run so
// connection pools and cookie jars persist.
type Fetcher struct {
	cfg     Config
	client  *httpclient.Client
	auditor *robotsAuditor
}

// New creates a Fetcher. The zero Config gets a 15s timeout, the Chrome
// fingerprint, and a matching UA pool.
func New(cfg Config) (*Fetcher, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if string(cfg.Fingerprint) == "" {
		cfg.Fingerprint = fingerprint.ProfileChrome
	}
	if cfg.UAPool == nil {
		cfg.UAPool = useragent.NewPool(useragent.DefaultFor(string(cfg.Fingerprint)))
	}
	if cfg.RobotsAgent == "" {
		cfg.RobotsAgent = "*"
	}

	var proxyFunc func(*http.Request) (*url.URL, error)
	if cfg.ProxyPool != nil {
		proxyFunc = func(req *http.Request) (*url.URL, error) {
			if v, ok := req.Context().Value(proxyURLKey).(*url.URL); ok {
				return v, nil
			}
			return nil, nil
		}
	}

	transport, err := fingerprint.Transport(cfg.Fingerprint, proxyFunc)
	if err != nil {
		return nil, fmt.Errorf("setup transport: %w", err)
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: cfg.MaxRedirects,
		UseCookieJar: cfg.UseCookieJar,
		Transport:    transport,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	f := &Fetcher{cfg: cfg, client: client}
	if cfg.RespectRobots {
		f.auditor = newRobotsAuditor(f)
	}
	return f, nil
}

// Get fetches the URL. Transport-level failures (DNS, timeout, TLS) return
// an error; HTTP responses of any status return a Result, with challenge
// detection already applied. Callers decide what a non-2xx or blocked
// result means for them.
func (f *Fetcher) Get(ctx context.Context, targetURL string) (*Result, error) {
	if f.auditor != nil {
		allowed, err := f.auditor.isAllowed(ctx, targetURL, f.cfg.RobotsAgent)
		if err == nil && !allowed {
			return nil, fmt.Errorf("fetch %s: disallowed by robots.txt", targetURL)
		}
		// A failed robots lookup fails open; the target decides at request
		// time anyway.
	}
	return f.get(ctx, targetURL)
}

// get performs the request without the robots gate. The auditor uses it to
// fetch robots.txt itself.
func (f *Fetcher) get(ctx context.Context, targetURL string) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, f.cfg.Timeout)
	defer cancel()

	var activeProxy *url.URL
	if f.cfg.ProxyPool != nil {
		if activeProxy = f.cfg.ProxyPool.Next(); activeProxy != nil {
			ctx = context.WithValue(ctx, proxyURLKey, activeProxy)
		}
	}

	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", targetURL, err)
	}

	req.Header.Set("User-Agent", f.cfg.UAPool.Next())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.7,de;q=0.5")

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		if activeProxy != nil {
			f.cfg.ProxyPool.MarkFailure(activeProxy)
		}
		metrics.RecordFetch(hostOf(targetURL), 0, time.Since(start), false)
		return nil, fmt.Errorf("fetch %s: %w", targetURL, err)
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		f.cfg.ProxyPool.MarkSuccess(activeProxy)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		metrics.RecordFetch(hostOf(targetURL), resp.StatusCode, time.Since(start), false)
		return nil, fmt.Errorf("read body of %s: %w", targetURL, err)
	}

	result := &Result{
		URL:        targetURL,
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       body,
		Duration:   time.Since(start),
		FetchedAt:  start.UTC(),
	}

	detectChallenge(result)
	metrics.RecordFetch(hostOf(targetURL), resp.StatusCode, result.Duration, result.Blocked)

	return result, nil
}

func hostOf(rawURL string) string {
	if u, err := url.Parse(rawURL); err == nil {
		return u.Hostname()
	}
	return ""
}
