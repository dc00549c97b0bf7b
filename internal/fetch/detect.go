package fetch

import (
	"bytes"
	"net/http"
	"strings"
)

// detector checks a result for one vendor's challenge or block page.
type detector func(res *Result) (detected bool, vendor string)

var detectors = []detector{
	detectCloudflare,
	detectAkamai,
	detectDataDome,
}

// detectChallenge marks the result blocked when a bot-protection challenge
// page was served instead of the real content. A blocked page parses as
// HTML but carries none of the event fields, so downstream treats it as a
// fetch failure.
func detectChallenge(res *Result) {
	for _, d := range detectors {
		if detected, vendor := d(res); detected {
			res.Blocked = true
			res.BlockedBy = vendor
			return
		}
	}
}

func detectCloudflare(res *Result) (bool, string) {
	if res.StatusCode != http.StatusForbidden && res.StatusCode != http.StatusServiceUnavailable {
		return false, ""
	}
	if strings.Contains(strings.ToLower(res.Headers.Get("Server")), "cloudflare") {
		return true, "Cloudflare"
	}
	for _, sig := range [][]byte{
		[]byte("cf-browser-verification"),
		[]byte("cf-turnstile"),
		[]byte("Attention Required! | Cloudflare"),
	} {
		if bytes.Contains(res.Body, sig) {
			return true, "Cloudflare"
		}
	}
	return false, ""
}

func detectAkamai(res *Result) (bool, string) {
	if res.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if strings.Contains(strings.ToLower(res.Headers.Get("Server")), "akamai") {
		return true, "Akamai"
	}
	if bytes.Contains(res.Body, []byte("Reference #")) && bytes.Contains(res.Body, []byte("Access Denied")) {
		return true, "Akamai"
	}
	return false, ""
}

func detectDataDome(res *Result) (bool, string) {
	if res.StatusCode != http.StatusForbidden {
		return false, ""
	}
	if res.Headers.Get("X-DataDome") != "" || res.Headers.Get("X-DataDome-Response") != "" {
		return true, "DataDome"
	}
	if bytes.Contains(res.Body, []byte("geo.captcha-delivery.com")) {
		return true, "DataDome"
	}
	return false, ""
}
