// Package report renders a pipeline run into a summary for the CLI:
// aggregated counts plus JSON and plain-text output.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/greyfort/eventscout/internal/event"
	"github.com/greyfort/eventscout/internal/pipeline"
)

// StageLine is one stage's counters, in pipeline order.
type StageLine struct {
	Name       string
	In         int
	Out        int
	Duration   time.Duration
	Efficiency float64
}

// Summary aggregates one run for rendering.
type Summary struct {
	Query          string
	Country        string
	ProvidersTried []string
	Candidates     int
	Published      int
	Rejected       int
	Failed         int
	BySource       map[event.Source]int
	Stages         []StageLine
	Events         []*event.PublishedEvent
}

var stageOrder = []string{"discover", "prioritize", "parse", "extract", "publish"}

// GenerateSummary aggregates a pipeline result.
func GenerateSummary(query, country string, result *pipeline.Result) Summary {
	s := Summary{
		Query:          query,
		Country:        country,
		ProvidersTried: result.ProvidersTried,
		Candidates:     len(result.Candidates),
		Published:      len(result.Published),
		BySource:       make(map[event.Source]int),
		Events:         result.Published,
	}

	for _, c := range result.Candidates {
		switch c.Status {
		case event.StatusRejected:
			s.Rejected++
		case event.StatusFailed:
			s.Failed++
		}
	}
	for _, ev := range result.Published {
		s.BySource[ev.Provenance.Source]++
	}

	for _, name := range stageOrder {
		m, ok := result.Metrics[name]
		if !ok {
			continue
		}
		s.Stages = append(s.Stages, StageLine{
			Name:       name,
			In:         m.In,
			Out:        m.Out,
			Duration:   m.Duration.Round(time.Millisecond),
			Efficiency: m.Efficiency,
		})
	}
	return s
}

// WriteJSON writes the summary to w as indented JSON.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("report: encode summary: %w", err)
	}
	return nil
}

// WriteText writes a human-readable run summary to w.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Eventscout Run Summary
----------------------
Query:       {{.Query}}{{if .Country}} ({{.Country}}){{end}}
Providers:   {{range $i, $p := .ProvidersTried}}{{if $i}}, {{end}}{{$p}}{{end}}
Candidates:  {{.Candidates}}
Published:   {{.Published}}
Rejected:    {{.Rejected}}
Failed:      {{.Failed}}

Stages:
{{- range .Stages}}
  {{printf "%-10s" .Name}} in={{.In}} out={{.Out}} took={{.Duration}} efficiency={{printf "%.2f" .Efficiency}}
{{- else}}
  None
{{- end}}

Events:
{{- range .Events}}
  {{.Title}}{{if .StartDate}} ({{.StartDate}}){{end}}{{if .City}} - {{.City}}{{end}} [{{printf "%.2f" .Confidence}}]
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("report: parse template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("report: render summary: %w", err)
	}
	return nil
}
