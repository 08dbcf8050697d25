package report

import "strings"

// Table builds a GitHub-flavored markdown table.
type Table struct {
	headers []string
	rows    [][]string
}

// NewTable creates a table with the given column headers.
func NewTable(headers ...string) *Table {
	return &Table{headers: headers}
}

// AddRow appends a row. Missing cells render empty, extra cells are dropped.
func (t *Table) AddRow(cells ...string) *Table {
	row := make([]string, len(t.headers))
	copy(row, cells)
	t.rows = append(t.rows, row)
	return t
}

// Len returns the number of body rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// String renders the table, one line per row, ending with a newline.
func (t *Table) String() string {
	var b strings.Builder
	writeLine(&b, t.headers)

	sep := make([]string, len(t.headers))
	for i := range sep {
		sep[i] = "---"
	}
	writeLine(&b, sep)

	for _, row := range t.rows {
		writeLine(&b, row)
	}
	return b.String()
}

func writeLine(b *strings.Builder, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" ")
		b.WriteString(escapeCell(c))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

var cellEscaper = strings.NewReplacer(
	"|", `\|`,
	"\r\n", "<br>",
	"\n", "<br>",
	"\r", "",
)

func escapeCell(s string) string {
	return cellEscaper.Replace(s)
}
