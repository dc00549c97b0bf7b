package fingerprint

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestTransport_GoProfile(t *testing.T) {
	rt, err := Transport(ProfileGo, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tr, ok := rt.(*http.Transport)
	if !ok {
		t.Fatalf("expected *http.Transport, got %T", rt)
	}
	if tr.DialTLSContext != nil {
		t.Errorf("go profile must not install a custom TLS dialer")
	}
}

func TestTransport_BrowserProfiles(t *testing.T) {
	for _, p := range []Profile{ProfileChrome, ProfileFirefox} {
		rt, err := Transport(p, nil)
		if err != nil {
			t.Fatalf("Transport(%s): %v", p, err)
		}
		tr, ok := rt.(*http.Transport)
		if !ok {
			t.Fatalf("expected *http.Transport, got %T", rt)
		}
		if tr.DialTLSContext == nil {
			t.Errorf("profile %s must install a uTLS dialer", p)
		}
	}
}

func TestTransport_UnknownProfile(t *testing.T) {
	if _, err := Transport(Profile("netscape"), nil); err == nil {
		t.Errorf("expected error for unknown profile")
	}
}

func TestTransport_ProxyFuncInstalled(t *testing.T) {
	want, _ := url.Parse("http://proxy.internal:3128")
	rt, err := Transport(ProfileGo, func(*http.Request) (*url.URL, error) {
		return want, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	tr := rt.(*http.Transport)
	got, err := tr.Proxy(httptest.NewRequest(http.MethodGet, "http://example.com", nil))
	if err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("Proxy() = %v, want %v", got, want)
	}
}

func TestTransport_PlainHTTPStillWorks(t *testing.T) {
	// uTLS only intercepts TLS dials; plain HTTP must pass through.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	rt, err := Transport(ProfileChrome, nil)
	if err != nil {
		t.Fatal(err)
	}

	client := &http.Client{Transport: rt}
	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
}
