// Package compose lays visit records out as a report document.
package compose

import (
	"fmt"
	"strings"
	"time"

	"github.com/ukaji3/visitreport-go/pkg/visitreport/models"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/parser"
)

// Layout selects how records are arranged in the document.
type Layout string

const (
	// LayoutRecords emits one labeled block per record with separators and
	// page breaks.
	LayoutRecords Layout = "records"
	// LayoutTable emits a single table with one row per record.
	LayoutTable Layout = "table"
)

const (
	// ReportTitle is the bare header text.
	ReportTitle = "PATIENT REPORT"
	// NoDataNotice replaces the records when the sheet has no data rows.
	NoDataNotice = "No data available"
	// DefaultPageSize is the number of records per page.
	DefaultPageSize = 5
	// GeneratedAtLayout formats the optional generation timestamp.
	GeneratedAtLayout = "2 January 2006 15:04"
)

// Field labels in output order.
const (
	LabelDate        = "Date"
	LabelFileNumber  = "File Number"
	LabelPatientName = "Patient Name"
	LabelDoctorName  = "Doctor Name"
	LabelRemarks     = "Remarks"
)

// Labels lists the record field labels in output order.
var Labels = []string{LabelDate, LabelFileNumber, LabelPatientName, LabelDoctorName, LabelRemarks}

// Config controls document composition.
type Config struct {
	// Layout defaults to LayoutRecords.
	Layout Layout
	// PageSize is the number of records per page. Values below 1 use DefaultPageSize.
	PageSize int
	// Normalizer formats dates and derives remarks. Nil uses the defaults in time.Local.
	Normalizer *parser.Normalizer
	// GeneratedAt adds a "Generated on" line when non-zero.
	GeneratedAt time.Time
	// Extension is the export file extension without dot, used in FileName.
	Extension string
}

func (c Config) pageSize() int {
	if c.PageSize < 1 {
		return DefaultPageSize
	}
	return c.PageSize
}

func (c Config) normalizer() *parser.Normalizer {
	if c.Normalizer == nil {
		return parser.NewNormalizer(nil)
	}
	return c.Normalizer
}

// Compose resolves the header row, builds the visit records and lays them
// out as a document.
func Compose(table *models.RawTable, cfg Config) *models.Document {
	n := cfg.normalizer()
	cols := parser.ResolveHeaders(table.Header())
	records := parser.BuildRecords(table, cols, n)
	return ComposeRecords(records, cfg)
}

// ComposeRecords lays out already built records.
func ComposeRecords(records []models.VisitRecord, cfg Config) *models.Document {
	n := cfg.normalizer()
	dateRange := DateRange(records, n)

	doc := &models.Document{
		Title:    Title(dateRange),
		FileName: FileName(dateRange, cfg.Extension),
		Range:    dateRange,
		Records:  records,
	}

	doc.Blocks = append(doc.Blocks, models.Block{Kind: models.BlockTitle, Text: doc.Title})
	if !cfg.GeneratedAt.IsZero() {
		doc.Blocks = append(doc.Blocks, models.Block{
			Kind: models.BlockText,
			Text: "Generated on: " + cfg.GeneratedAt.Format(GeneratedAtLayout),
		})
	}

	if len(records) == 0 {
		doc.Blocks = append(doc.Blocks, models.Block{Kind: models.BlockNotice, Text: NoDataNotice})
		return doc
	}

	switch cfg.Layout {
	case LayoutTable:
		doc.Blocks = append(doc.Blocks, tableBlock(records))
	default:
		doc.Blocks = append(doc.Blocks, recordBlocks(records, cfg.pageSize())...)
	}
	return doc
}

// recordBlocks emits a separator between consecutive records and a page
// break after every pageSize-th record that is followed by another one.
func recordBlocks(records []models.VisitRecord, pageSize int) []models.Block {
	blocks := make([]models.Block, 0, len(records)*2)
	for i, rec := range records {
		blocks = append(blocks, models.Block{Kind: models.BlockRecord, Fields: Fields(rec)})
		if i == len(records)-1 {
			break
		}
		blocks = append(blocks, models.Block{Kind: models.BlockSeparator})
		if (i+1)%pageSize == 0 {
			blocks = append(blocks, models.Block{Kind: models.BlockPageBreak})
		}
	}
	return blocks
}

func tableBlock(records []models.VisitRecord) models.Block {
	table := &models.Table{Header: Labels}
	for _, rec := range records {
		table.Rows = append(table.Rows, Fields(rec))
	}
	return models.Block{Kind: models.BlockTable, Table: table}
}

// Fields returns the labeled fields of a record in output order.
func Fields(rec models.VisitRecord) []models.Field {
	return []models.Field{
		{Label: LabelDate, Value: rec.VisitDate},
		{Label: LabelFileNumber, Value: rec.FileNumber},
		{Label: LabelPatientName, Value: rec.PatientName},
		{Label: LabelDoctorName, Value: rec.Doctor},
		{Label: LabelRemarks, Value: rec.Remarks, Highlight: rec.Flagged},
	}
}

// Title returns the header text for a date range.
func Title(r *models.DateRange) string {
	if r == nil {
		return ReportTitle
	}
	return fmt.Sprintf("%s | %s - %s", ReportTitle, r.Min, r.Max)
}

// FileName returns the export file name for a date range.
func FileName(r *models.DateRange, ext string) string {
	span := "Unknown"
	if r != nil {
		span = r.Min + " - " + r.Max
	}
	name := ReportTitle + " _ DATED " + sanitizeFileName(span)
	if ext != "" {
		name += "." + strings.TrimPrefix(ext, ".")
	}
	return name
}

var fileNameReplacer = strings.NewReplacer(
	"/", "-", "\\", "-", ":", "-", "*", "-", "?", "-",
	"\"", "-", "<", "-", ">", "-", "|", "-",
)

func sanitizeFileName(s string) string {
	return fileNameReplacer.Replace(s)
}
