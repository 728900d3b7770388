// Package dataset turns per-trial measurement tables into the balanced
// feature matrix and label vector used to train distance classifiers.
//
// Ingestion (ReadCSV) is a thin collaborator; Sample and Builder carry the
// stratification and schema rules.
package dataset

import "fmt"

// Well-known measurement columns.
const (
	ColumnRSSI     = "RSSI"
	ColumnDistance = "DISTANCE"
)

// DefaultDropColumns are the beacon-log columns that carry no signal for
// distance estimation. TEMPERATURE is included because the sensor-board
// reading tracks the CPU rather than the room.
var DefaultDropColumns = []string{
	"ADDRESS", "TIMESTAMP", "UUID", "MAJOR", "MINOR", "TX POWER",
	"TEMPERATURE", "PITCH", "ROLL", "YAW", "SCAN",
}

// Table is an in-memory set of measurement rows with named numeric columns.
// Rows are treated as immutable once appended.
type Table struct {
	Source  string // where the rows came from, for error messages
	Columns []string
	Rows    [][]float64
}

// NewTable creates an empty table with the given column names.
func NewTable(source string, columns ...string) *Table {
	return &Table{Source: source, Columns: append([]string(nil), columns...)}
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Index returns the position of the named column, or -1.
func (t *Table) Index(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Append adds one row. The row length must match the column count.
func (t *Table) Append(row ...float64) error {
	if len(row) != len(t.Columns) {
		return &SchemaError{
			Source: t.Source,
			Reason: fmt.Sprintf("row has %d values, table has %d columns", len(row), len(t.Columns)),
		}
	}
	t.Rows = append(t.Rows, row)
	return nil
}

// Column returns a copy of the named column's values.
func (t *Table) Column(name string) ([]float64, error) {
	idx := t.Index(name)
	if idx < 0 {
		return nil, &SchemaError{Source: t.Source, Column: name, Reason: "missing column"}
	}
	out := make([]float64, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r[idx]
	}
	return out, nil
}

// Drop returns a table without the named columns. Names that are not
// present are ignored.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	var keep []int
	var cols []string
	for i, c := range t.Columns {
		if !drop[c] {
			keep = append(keep, i)
			cols = append(cols, c)
		}
	}
	if len(keep) == len(t.Columns) {
		return t
	}

	out := &Table{Source: t.Source, Columns: cols, Rows: make([][]float64, len(t.Rows))}
	for i, r := range t.Rows {
		nr := make([]float64, len(keep))
		for j, k := range keep {
			nr[j] = r[k]
		}
		out.Rows[i] = nr
	}
	return out
}

// columnOrder maps each of want's columns to its position in t. It fails
// with a SchemaError when the column sets differ.
func (t *Table) columnOrder(want []string) ([]int, error) {
	if len(t.Columns) != len(want) {
		for _, c := range t.Columns {
			if indexOf(want, c) < 0 {
				return nil, &SchemaError{Source: t.Source, Column: c, Reason: "unexpected column"}
			}
		}
	}
	order := make([]int, len(want))
	for i, c := range want {
		idx := t.Index(c)
		if idx < 0 {
			return nil, &SchemaError{Source: t.Source, Column: c, Reason: "missing column"}
		}
		order[i] = idx
	}
	return order, nil
}

func indexOf(xs []string, s string) int {
	for i, x := range xs {
		if x == s {
			return i
		}
	}
	return -1
}
