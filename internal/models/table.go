// Package models defines core data structures for uploaded tables, search terms, and match results.
package models

import "strings"

// Table is the first sheet of an uploaded spreadsheet: a header row and the data rows below it.
type Table struct {
	Sheet   string     `json:"sheet"`
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// ColumnIndex returns the position of the named column, or -1 if the table has no such column.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Column returns the trimmed, non-empty cell values of column i in row order.
// Rows shorter than i+1 contribute nothing.
func (t *Table) Column(i int) ReferenceSet {
	refs := make(ReferenceSet, 0, len(t.Rows))
	for _, row := range t.Rows {
		if i >= len(row) {
			continue
		}
		v := strings.TrimSpace(row[i])
		if v == "" {
			continue
		}
		refs = append(refs, v)
	}
	return refs
}

// Clone returns a deep copy of t. A nil table clones to nil.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		Sheet:   t.Sheet,
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// ReferenceSet is the ordered list of reference strings taken from one column.
// Entries are trimmed and never empty.
type ReferenceSet []string
