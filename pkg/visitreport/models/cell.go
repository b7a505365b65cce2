// Package models defines the data structures shared by the report pipeline.
package models

// Row is one spreadsheet row. Cell values are string, int64, float64 or nil
// for an empty cell.
type Row []interface{}

// Cell returns the value at col, or nil when col is out of range.
func (r Row) Cell(col int) interface{} {
	if col < 0 || col >= len(r) {
		return nil
	}
	return r[col]
}

// Pad returns r extended with nil cells up to width. Rows that are already
// wide enough are returned unchanged.
func (r Row) Pad(width int) Row {
	if len(r) >= width {
		return r
	}
	padded := make(Row, width)
	copy(padded, r)
	return padded
}
