package utils

import (
	"io"

	"github.com/olekukonko/tablewriter"
)

// RenderTable prints a plain status table to w. Cells with empty values are
// shown as "-" so the operator can tell "empty" from "missing column".
func RenderTable(w io.Writer, header []string, rows [][]string) {
	for _, row := range rows {
		for i, cell := range row {
			if cell == "" {
				row[i] = "-"
			}
		}
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.Render()
}
