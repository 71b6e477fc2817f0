package display

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Table renders an aligned text table. Widths are measured in terminal
// cells, so transliterated month and prayer names line up.
type Table struct {
	headers []string
	rows    [][]string
	// highlight is the 0-based row to emphasise, -1 for none.
	highlight int
	alert     bool
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers, highlight: -1}
}

// AddRow appends a row of cells.
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

// Highlight marks row idx. With alert set the row blinks (Adhan phase).
func (t *Table) Highlight(idx int, alert bool) {
	t.highlight = idx
	t.alert = alert
}

// Render returns the table indented by two spaces.
func (t *Table) Render() string {
	if len(t.headers) == 0 {
		return ""
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], runewidth.StringWidth(cell))
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("  " + Bold(formatRow(t.headers, widths)) + "\n")

	sep := make([]string, len(widths))
	for i, w := range widths {
		sep[i] = strings.Repeat("─", w)
	}
	sb.WriteString(Dim("  "+strings.Join(sep, "  ")) + "\n")

	for i, row := range t.rows {
		line := formatRow(row, widths)
		switch {
		case i == t.highlight && t.alert:
			line = Alert(line)
		case i == t.highlight:
			line = Accent(line)
		}
		sb.WriteString("  " + line + "\n")
	}
	return sb.String()
}

func formatRow(cells []string, widths []int) string {
	parts := make([]string, len(widths))
	for i, w := range widths {
		var cell string
		if i < len(cells) {
			cell = cells[i]
		}
		parts[i] = runewidth.FillRight(cell, w)
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}
