package metrics

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestRecordStage(t *testing.T) {
	// Recording must not panic and must accept any stage label.
	RecordStage("parsed", 10, 7, 1200*time.Millisecond)
	RecordStage("extracted", 7, 6, 3*time.Second)
}

func TestRecordFetch(t *testing.T) {
	RecordFetch("example.com", 200, 150*time.Millisecond, false)
	RecordFetch("example.com", 403, 90*time.Millisecond, true)
	RecordFetch("example.com", 0, 15*time.Second, false) // transport failure
}

func TestRecordLLMCall(t *testing.T) {
	RecordLLMCall("prioritize", "ok")
	RecordLLMCall("enhance", "fallback")
}

func TestServer_ServesMetrics(t *testing.T) {
	// Grab a free port first; Start binds by number.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	srv := Start(port)
	defer srv.Stop(context.Background())

	RecordStage("discovered", 5, 4, time.Second)

	var body string
	for attempt := 0; attempt < 20; attempt++ {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/metrics", port))
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			continue
		}
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		body = string(data)
		break
	}

	if !strings.Contains(body, "eventscout_stage_candidates_total") {
		t.Errorf("metrics endpoint missing stage counter, got %d bytes", len(body))
	}
}

func TestServer_StopNil(t *testing.T) {
	var s Server
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("stopping an empty server should be a no-op, got %v", err)
	}
}
