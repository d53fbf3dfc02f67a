package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column. Right aligns amounts.
type Column struct {
	Title string
	Width int
	Right bool
}

// Row is a slice of cell values.
type Row []string

// Table renders a lipgloss-styled table.
type Table struct {
	Columns []Column
	Rows    []Row
	SelIdx  int // selected row index (-1 = none)
}

// NewTable creates a new table.
func NewTable(cols []Column) *Table {
	return &Table{Columns: cols, SelIdx: -1}
}

// AddRow appends a row.
func (t *Table) AddRow(r Row) {
	t.Rows = append(t.Rows, r)
}

// Render returns the full table as a string. Cells are padded by display
// width before styling so column edges line up with multi-byte glyphs.
func (t *Table) Render() string {
	var sb strings.Builder

	headerStyle := lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)
	cellStyle := lipgloss.NewStyle().Foreground(ColorValue)

	var headers, rule []string
	for _, col := range t.Columns {
		headers = append(headers, headerStyle.Render(fit(col.Title, col.Width, col.Right)))
		rule = append(rule, StyleMeta.Render(strings.Repeat("─", col.Width)))
	}
	sb.WriteString(strings.Join(headers, " ") + "\n")
	sb.WriteString(strings.Join(rule, " ") + "\n")

	for i, row := range t.Rows {
		cells := make([]string, 0, len(t.Columns))
		for j, col := range t.Columns {
			val := ""
			if j < len(row) {
				val = row[j]
			}
			style := cellStyle
			if i == t.SelIdx {
				style = StyleSelected
			}
			cells = append(cells, style.Render(fit(val, col.Width, col.Right)))
		}
		sb.WriteString(strings.Join(cells, " ") + "\n")
	}
	return sb.String()
}

// fit pads or cuts s to exactly width display cells.
func fit(s string, width int, right bool) string {
	if width <= 0 {
		return ""
	}
	w := lipgloss.Width(s)
	if w > width {
		r := []rune(s)
		for lipgloss.Width(string(r)) > width-1 && len(r) > 0 {
			r = r[:len(r)-1]
		}
		s = string(r) + "…"
		w = lipgloss.Width(s)
	}
	gap := strings.Repeat(" ", width-w)
	if right {
		return gap + s
	}
	return s + gap
}

// KeyValueBlock renders key-value pairs in a bordered box.
func KeyValueBlock(title string, pairs [][2]string) string {
	keyWidth := 12
	for _, p := range pairs {
		if w := lipgloss.Width(p[0]) + 1; w > keyWidth {
			keyWidth = w
		}
	}

	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title) + "\n")
	}
	for _, p := range pairs {
		key := StyleMeta.Render(fmt.Sprintf("%-*s", keyWidth, p[0]+":"))
		sb.WriteString("  " + key + " " + StyleValue.Render(p[1]) + "\n")
	}
	return StyleBorder.Render(strings.TrimRight(sb.String(), "\n"))
}
