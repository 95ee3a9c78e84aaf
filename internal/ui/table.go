package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table renders rows with space-aligned columns and no borders. Widths are
// measured with lipgloss so styled cells line up.
type Table struct {
	header     []string
	rows       [][]string
	colWidths  []int
	colPadding int
	rightAlign map[int]bool
}

// NewTable creates a new table with the specified number of columns
func NewTable(cols int) *Table {
	return &Table{
		colWidths:  make([]int, cols),
		colPadding: 2,
		rightAlign: make(map[int]bool),
	}
}

// SetHeader sets a header row, rendered bold and underlined by a rule.
func (t *Table) SetHeader(cells ...string) {
	t.header = t.fit(cells)
}

// AlignRight right-aligns column col, e.g. for counts.
func (t *Table) AlignRight(col int) {
	t.rightAlign[col] = true
}

// AddRow adds a row to the table
func (t *Table) AddRow(cells ...string) {
	t.rows = append(t.rows, t.fit(cells))
}

// Len reports the number of rows, header excluded.
func (t *Table) Len() int {
	return len(t.rows)
}

func (t *Table) fit(cells []string) []string {
	row := make([]string, len(t.colWidths))
	for i := 0; i < len(t.colWidths) && i < len(cells); i++ {
		row[i] = cells[i]
		if w := lipgloss.Width(cells[i]); w > t.colWidths[i] {
			t.colWidths[i] = w
		}
	}
	return row
}

// String renders the table as a string
func (t *Table) String() string {
	if len(t.rows) == 0 && t.header == nil {
		return ""
	}

	var sb strings.Builder
	if t.header != nil {
		sb.WriteString(Bold.Render(t.line(t.header)))
		sb.WriteString("\n")
		rules := make([]string, len(t.colWidths))
		for i, w := range t.colWidths {
			rules[i] = strings.Repeat("=", w)
		}
		sb.WriteString(t.line(rules))
		sb.WriteString("\n")
	}
	for _, row := range t.rows {
		sb.WriteString(t.line(row))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (t *Table) line(row []string) string {
	var sb strings.Builder
	padding := strings.Repeat(" ", t.colPadding)
	for i, cell := range row {
		if i > 0 {
			sb.WriteString(padding)
		}
		gap := strings.Repeat(" ", t.colWidths[i]-lipgloss.Width(cell))
		switch {
		case t.rightAlign[i]:
			sb.WriteString(gap)
			sb.WriteString(cell)
		case i < len(row)-1:
			sb.WriteString(cell)
			sb.WriteString(gap)
		default:
			// Last column is never padded.
			sb.WriteString(cell)
		}
	}
	return sb.String()
}
