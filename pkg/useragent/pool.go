// Package useragent rotates User-Agent strings for page fetches so a run
// of fetches does not present a single identical client to every site.
package useragent

import (
	"crypto/rand"
	"math/big"
	"sync/atomic"
)

// chromePool and firefoxPool hold current desktop browser strings grouped
// by engine, so a pool can be aligned with the TLS fingerprint profile the
// fetcher presents.
var (
	chromePool = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/132.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
	}
	firefoxPool = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:133.0) Gecko/20100101 Firefox/133.0",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:134.0) Gecko/20100101 Firefox/134.0",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:133.0) Gecko/20100101 Firefox/133.0",
		"Mozilla/5.0 (X11; Linux x86_64; rv:133.0) Gecko/20100101 Firefox/133.0",
	}
)

// DefaultFor returns the User-Agent strings matching a fingerprint profile
// name. Mixing a Firefox UA with a Chrome TLS hello is a detectable
// mismatch, so callers should pass the profile they fetch with. Unknown
// profiles get the combined set.
func DefaultFor(profile string) []string {
	switch profile {
	case "chrome":
		return chromePool
	case "firefox":
		return firefoxPool
	default:
		combined := make([]string, 0, len(chromePool)+len(firefoxPool))
		combined = append(combined, chromePool...)
		combined = append(combined, firefoxPool...)
		return combined
	}
}

// Pool is a rotating collection of User-Agent strings.
type Pool struct {
	uas     []string
	counter atomic.Uint64
}

// NewPool creates a pool from the given strings. An empty slice falls back
// to the Chrome set.
func NewPool(uas []string) *Pool {
	if len(uas) == 0 {
		uas = chromePool
	}
	copied := make([]string, len(uas))
	copy(copied, uas)
	return &Pool{uas: copied}
}

// Next returns the next User-Agent in round-robin order. Safe for
// concurrent use.
func (p *Pool) Next() string {
	if len(p.uas) == 0 {
		return ""
	}
	idx := p.counter.Add(1) - 1
	return p.uas[idx%uint64(len(p.uas))]
}

// Random returns a uniformly random User-Agent from the pool.
func (p *Pool) Random() string {
	if len(p.uas) == 0 {
		return ""
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(p.uas))))
	if err != nil {
		return p.Next()
	}
	return p.uas[n.Int64()]
}

// Size returns the number of strings in the pool.
func (p *Pool) Size() int {
	return len(p.uas)
}
