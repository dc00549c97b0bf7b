package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/greyfort/eventscout/internal/event"
)

func renderEventTable(events []*event.PublishedEvent) string {
	if len(events) == 0 {
		return "No events published."
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Title", "Date", "City", "Country", "Speakers", "Confidence", "Source"})

	for _, ev := range events {
		title := ev.Title
		if len(title) > 48 {
			title = title[:45] + "..."
		}
		tw.AppendRow(table.Row{
			title,
			ev.StartDate,
			ev.City,
			ev.Country,
			len(ev.Speakers),
			fmt.Sprintf("%.2f", ev.Confidence),
			string(ev.Provenance.Source),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 5, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 6, Align: text.AlignRight, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}
