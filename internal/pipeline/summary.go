package pipeline

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Summary renders the end-of-run table printed by the CLI.
func Summary(r *Result) string {
	if r == nil {
		return ""
	}

	rows := [][]string{
		{"Output", r.OutputPath},
		{"Format", string(r.Format)},
		{"Size", humanize.Bytes(uint64(r.OutputBytes))},
		{"Segments", humanize.Comma(int64(len(r.Segments)))},
		{"Chunks", fmt.Sprintf("%d ok / %d total", r.Report.Succeeded(), r.Chunks)},
	}
	if failed := r.Report.Failed(); failed > 0 {
		rows = append(rows, []string{"Failed chunks", fmt.Sprintf("%d (skipped)", failed)})
	}
	if dropped := r.Report.Dropped(); dropped > 0 {
		rows = append(rows, []string{"Dropped segments", fmt.Sprintf("%d", dropped)})
	}
	switch {
	case r.Translated:
		rows = append(rows, []string{"Translation", fmt.Sprintf("%s (%d translated, %d kept original)",
			r.TargetLanguage, r.TranslationStats.Translated, r.TranslationStats.Fallback)})
	case r.TargetLanguage != "":
		rows = append(rows, []string{"Translation", r.TargetLanguage + " (unavailable, original text kept)"})
	default:
		rows = append(rows, []string{"Translation", "none"})
	}
	rows = append(rows, []string{"Elapsed", r.Elapsed.Round(time.Millisecond).String()})

	return renderTable([]string{"Item", "Value"}, rows)
}

func renderTable(headers []string, rows [][]string) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
		{Number: 2, Align: text.AlignLeft, AlignHeader: text.AlignLeft},
	})

	return tw.Render()
}
