package models

// RawTable is the first sheet of an imported file. Rows[0] is the header row
// and defines the canonical column count.
type RawTable struct {
	// Source is the imported file name (no path).
	Source string `json:"source"`
	// Sheet is the sheet name the rows were read from. Empty for CSV input.
	Sheet string `json:"sheet,omitempty"`
	// Rows holds the header row followed by the data rows.
	Rows []Row `json:"rows"`
}

// Header returns the header row, or nil when the table is empty.
func (t *RawTable) Header() Row {
	if t == nil || len(t.Rows) == 0 {
		return nil
	}
	return t.Rows[0]
}

// DataRows returns the rows below the header.
func (t *RawTable) DataRows() []Row {
	if t == nil || len(t.Rows) < 2 {
		return nil
	}
	return t.Rows[1:]
}

// Width returns the canonical column count.
func (t *RawTable) Width() int {
	return len(t.Header())
}
