package models

// BlockKind identifies the type of a document block.
type BlockKind string

const (
	BlockTitle     BlockKind = "title"
	BlockText      BlockKind = "text"
	BlockNotice    BlockKind = "notice"
	BlockRecord    BlockKind = "record"
	BlockSeparator BlockKind = "separator"
	BlockPageBreak BlockKind = "page_break"
	BlockTable     BlockKind = "table"
)

// Field is a labeled value inside a record block or table row.
type Field struct {
	// Label is rendered bold.
	Label string `json:"label"`
	// Value is the display value.
	Value string `json:"value"`
	// Highlight marks the value for visual emphasis.
	Highlight bool `json:"highlight,omitempty"`
}

// Table is a grid with a header row. Each row holds one Field per column.
type Table struct {
	Header []string  `json:"header"`
	Rows   [][]Field `json:"rows"`
}

// Block is one element of a composed document, in output order.
type Block struct {
	Kind BlockKind `json:"kind"`
	// Text is set for title, text and notice blocks.
	Text string `json:"text,omitempty"`
	// Fields is set for record blocks.
	Fields []Field `json:"fields,omitempty"`
	// Table is set for table blocks.
	Table *Table `json:"table,omitempty"`
}

// DateRange is the chronological span of visit dates, in short header form.
type DateRange struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// Document is a composed report ready to be serialized or previewed.
type Document struct {
	// Title is the header text, optionally annotated with the date range.
	Title string `json:"title"`
	// FileName is the suggested export file name including extension.
	FileName string `json:"file_name"`
	// Range is nil when no visit date could be resolved.
	Range *DateRange `json:"range,omitempty"`
	// Records are the visit records in spreadsheet order.
	Records []VisitRecord `json:"records"`
	// Blocks is the declarative layout shared by export and preview.
	Blocks []Block `json:"blocks"`
}

// Count returns the number of blocks of the given kind.
func (d *Document) Count(kind BlockKind) int {
	n := 0
	for _, b := range d.Blocks {
		if b.Kind == kind {
			n++
		}
	}
	return n
}
