package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/greyfort/eventscout/internal/config"
	"github.com/greyfort/eventscout/internal/event"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.Contains(out.String(), "eventscout") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestDiscoverCommand_RejectsBadDate(t *testing.T) {
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs([]string{"discover", "compliance conference", "--from", "March 2026"})

	if err := cmd.Execute(); err == nil {
		t.Fatal("expected an error for a malformed --from date")
	}
}

func TestRenderEventTable(t *testing.T) {
	events := []*event.PublishedEvent{{
		Title:      "Compliance and Risk Management Summit",
		StartDate:  "2026-11-12",
		City:       "Berlin",
		Country:    "DE",
		Confidence: 0.85,
		Speakers: []event.PublishedSpeaker{
			{Speaker: event.Speaker{Name: "Anna Schmidt"}, Confidence: 0.9},
		},
		Provenance:  event.Provenance{Source: "websearch"},
		PublishedAt: time.Now(),
	}}

	out := renderEventTable(events)
	for _, want := range []string{"Compliance and Risk Management Summit", "2026-11-12", "Berlin", "DE", "0.85", "websearch"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	if got := renderEventTable(nil); got != "No events published." {
		t.Errorf("empty table = %q", got)
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	cfg := config.Default()
	s, err := openStore(ctx, cfg)
	if err != nil {
		t.Fatalf("memory backend: %v", err)
	}
	s.Close()

	cfg.Store.Backend = "jsonl"
	if _, err := openStore(ctx, cfg); err == nil {
		t.Error("jsonl without a path should error")
	}

	cfg.Store.Path = filepath.Join(t.TempDir(), "events.jsonl")
	s, err = openStore(ctx, cfg)
	if err != nil {
		t.Fatalf("jsonl backend: %v", err)
	}
	s.Close()

	cfg.Store.Backend = "cassandra"
	if _, err := openStore(ctx, cfg); err == nil {
		t.Error("unknown backend should error")
	}
}
