// Package table provides the tabular structure that downloaded DATRAS
// datasets are assembled into. A Table carries an ordered set of column
// names and a slice of string-valued rows; the column set is the union of
// every field seen across the appended rows, in first-seen order, so
// responses with differing field sets concatenate cleanly.
package table

import (
	"encoding/json"
	"strings"
)

// Row is a single record keyed by column name
type Row map[string]string

// Table holds rows with a shared, ordered column union
type Table struct {
	columns []string
	colSet  map[string]struct{}
	rows    []Row
}

// New creates an empty table
func New() *Table {
	return &Table{
		colSet: make(map[string]struct{}),
	}
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Columns returns the column names in first-seen order
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// Rows returns the underlying rows. The slice is shared, not copied.
func (t *Table) Rows() []Row {
	return t.rows
}

// Row returns the row at index i, or nil if out of range
func (t *Table) Row(i int) Row {
	if i < 0 || i >= len(t.rows) {
		return nil
	}
	return t.rows[i]
}

// Get returns the value at row i, column col. Missing cells are empty strings.
func (t *Table) Get(i int, col string) string {
	row := t.Row(i)
	if row == nil {
		return ""
	}
	return row[col]
}

// Append adds a row, extending the column union with any new fields
func (t *Table) Append(row Row) {
	for col := range row {
		t.addColumn(col)
	}
	t.rows = append(t.rows, row)
}

// AppendTable concatenates all rows of other onto t
func (t *Table) AppendTable(other *Table) {
	if other == nil {
		return
	}
	// Adopt other's column order before its rows so the union stays stable
	for _, col := range other.columns {
		t.addColumn(col)
	}
	t.rows = append(t.rows, other.rows...)
}

func (t *Table) addColumn(col string) {
	if t.colSet == nil {
		t.colSet = make(map[string]struct{})
	}
	if _, ok := t.colSet[col]; ok {
		return
	}
	t.colSet[col] = struct{}{}
	t.columns = append(t.columns, col)
}

// TrimStrings trims leading and trailing whitespace from every cell value.
// The remote service pads fixed-width string fields, so this runs once after
// a download completes.
func (t *Table) TrimStrings() {
	for _, row := range t.rows {
		for col, val := range row {
			row[col] = strings.TrimSpace(val)
		}
	}
}

// UniqueValues returns the distinct non-empty values of col in order of
// first appearance
func (t *Table) UniqueValues(col string) []string {
	seen := make(map[string]struct{})
	var values []string
	for _, row := range t.rows {
		val := row[col]
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		values = append(values, val)
	}
	return values
}

// Merge left-joins other onto t by the given key column. Every row of t is
// kept; rows whose key matches a row in other gain other's remaining
// columns. When other has multiple rows for a key, the first wins.
func (t *Table) Merge(other *Table, key string) *Table {
	lookup := make(map[string]Row, other.Len())
	for _, row := range other.rows {
		k := row[key]
		if k == "" {
			continue
		}
		if _, ok := lookup[k]; !ok {
			lookup[k] = row
		}
	}

	merged := New()
	for _, col := range t.columns {
		merged.addColumn(col)
	}
	for _, col := range other.columns {
		if col != key {
			merged.addColumn(col)
		}
	}

	for _, row := range t.rows {
		out := make(Row, len(row))
		for col, val := range row {
			out[col] = val
		}
		if match, ok := lookup[row[key]]; ok {
			for col, val := range match {
				if col == key {
					continue
				}
				out[col] = val
			}
		}
		merged.rows = append(merged.rows, out)
	}
	return merged
}

// Records returns the rows as string slices in column order, suitable for
// CSV and spreadsheet export. Missing cells become empty strings.
func (t *Table) Records() [][]string {
	records := make([][]string, 0, len(t.rows))
	for _, row := range t.rows {
		record := make([]string, len(t.columns))
		for i, col := range t.columns {
			record[i] = row[col]
		}
		records = append(records, record)
	}
	return records
}

// MarshalJSON renders the table as {"columns": [...], "rows": [...]} with
// each row as an object. Cells absent from a row are omitted.
func (t *Table) MarshalJSON() ([]byte, error) {
	type payload struct {
		Columns []string `json:"columns"`
		Rows    []Row    `json:"rows"`
	}
	rows := t.rows
	if rows == nil {
		rows = []Row{}
	}
	columns := t.columns
	if columns == nil {
		columns = []string{}
	}
	return json.Marshal(payload{Columns: columns, Rows: rows})
}
