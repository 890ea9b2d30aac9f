package models

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ResultSet holds the tabular output of an executed warehouse query.
// It is replaced wholesale on every new query or refinement, never
// mutated in place.
type ResultSet struct {
	Columns []string
	Rows    [][]any
}

// RowCount returns the number of data rows.
func (rs *ResultSet) RowCount() int {
	if rs == nil {
		return 0
	}
	return len(rs.Rows)
}

// IsEmpty reports whether the result set holds no rows.
func (rs *ResultSet) IsEmpty() bool {
	return rs.RowCount() == 0
}

// HasColumn reports whether the result set contains the named column.
func (rs *ResultSet) HasColumn(name string) bool {
	if rs == nil {
		return false
	}
	for _, c := range rs.Columns {
		if strings.EqualFold(c, name) {
			return true
		}
	}
	return false
}

// Preview renders up to maxRows rows as a pipe-separated text block for
// prompt construction. Cell values longer than 50 runes are truncated.
func (rs *ResultSet) Preview(maxRows int) string {
	if rs == nil || len(rs.Columns) == 0 {
		return "(no data)"
	}

	var b strings.Builder
	b.WriteString(strings.Join(rs.Columns, " | "))
	b.WriteByte('\n')

	n := len(rs.Rows)
	if n > maxRows {
		n = maxRows
	}
	for i := 0; i < n; i++ {
		cells := make([]string, len(rs.Rows[i]))
		for j, v := range rs.Rows[i] {
			cells[j] = formatCell(v)
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteByte('\n')
	}
	if len(rs.Rows) > n {
		fmt.Fprintf(&b, "... and %d more rows\n", len(rs.Rows)-n)
	}
	return b.String()
}

func formatCell(v any) string {
	if v == nil {
		return "NULL"
	}
	s := fmt.Sprintf("%v", v)
	if utf8.RuneCountInString(s) > 50 {
		s = string([]rune(s)[:47]) + "..."
	}
	return s
}
