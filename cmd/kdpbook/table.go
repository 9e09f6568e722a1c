package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/yuanying/kdpbook/internal/kdp"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
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
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

func renderGeometry(cfg kdp.ExportConfig, l kdp.Layout) string {
	inches := func(v float64) string { return fmt.Sprintf("%.4f\"", v) }
	px := func(w, h int) string { return fmt.Sprintf("%dx%d", w, h) }

	rows := [][]string{
		{"paper type", cfg.PaperType.String(), fmt.Sprintf("%d-%d pages", cfg.Bounds.Min, cfg.Bounds.Max)},
		{"page count", fmt.Sprint(l.PageCount), ""},
		{"trim", fmt.Sprintf("%gx%g\"", cfg.TrimWidth, cfg.TrimHeight), px(l.TrimWidthPx, l.TrimHeightPx)},
		{"bleed", inches(cfg.BleedSize), fmt.Sprint(l.BleedPx)},
		{"spine", inches(l.SpineWidthIn), px(l.SpineWidthPx, l.SpineHeightPx)},
		{"spine text", l.SpineText.String(), l.SpineTextMessage},
		{"full cover", fmt.Sprintf("%.4fx%.4f\"", l.FullCoverWidthIn, l.FullCoverHeightIn), px(l.FullCoverWidthPx, l.FullCoverHeightPx)},
		{"cover panel", "", px(l.CoverPanelWidthPx(), l.SpineHeightPx)},
		{"interior page", "", px(l.PageWidthPx(), l.PageHeightPx())},
		{"color mode", string(cfg.CoverColorMode), ""},
	}
	return renderTable([]string{"Item", "Inches", "Pixels @300 DPI"}, rows, []columnAlignment{alignLeft, alignRight, alignRight})
}
