// Package httpclient wraps net/http with the timeout, redirect, and cookie
// policies the fetch layer needs.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Config sets up the client.
type Config struct {
	Timeout      time.Duration
	MaxRedirects int // negative disables redirect following entirely
	UseCookieJar bool
	// Transport overrides the default, e.g. for TLS fingerprinting.
	Transport http.RoundTripper
}

// Client is an http.Client with a bounded redirect policy and optional
// cookie jar.
type Client struct {
	*http.Client
}

// New creates a client from the configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &http.Client{Timeout: cfg.Timeout}

	if cfg.MaxRedirects >= 0 {
		limit := cfg.MaxRedirects
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= limit {
				return fmt.Errorf("httpclient: stopped after %d redirects", limit)
			}
			return nil
		}
	} else {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	if cfg.UseCookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("httpclient: cookie jar: %w", err)
		}
		c.Jar = jar
	}

	if cfg.Transport != nil {
		c.Transport = cfg.Transport
	}

	return &Client{Client: c}, nil
}

// Do executes the request under the given context. The context governs
// cancellation independently of the client-level timeout.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("httpclient: nil context")
	}

	resp, err := c.Client.Do(req.Clone(ctx))
	if err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	return resp, nil
}
