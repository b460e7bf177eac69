package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/nvr-ai/go-nms/pipeline"
)

// renderResults prints a table of the kept boxes of every result, with one
// row per failed sample and a summary footer.
func renderResults(results []pipeline.Result) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Sample", "#", "CX", "CY", "W", "H", "Score"})

	var decoded, kept, failed int
	for _, r := range results {
		if r.Err != nil {
			failed++
			t.AppendRow(table.Row{r.ID, "", "", "", "", "", fmt.Sprintf("error: %v", r.Err)})
			continue
		}
		decoded += r.Decoded
		kept += len(r.Boxes)
		for i, b := range r.Boxes {
			t.AppendRow(table.Row{
				r.ID,
				i + 1,
				fmt.Sprintf("%.2f", b.CX),
				fmt.Sprintf("%.2f", b.CY),
				fmt.Sprintf("%.2f", b.W),
				fmt.Sprintf("%.2f", b.H),
				fmt.Sprintf("%.4f", b.Score),
			})
		}
	}

	t.AppendFooter(table.Row{
		fmt.Sprintf("%d samples", len(results)),
		"", "", "", "",
		fmt.Sprintf("%d/%d kept", kept, decoded),
		fmt.Sprintf("%d failed", failed),
	})

	return t.Render()
}
