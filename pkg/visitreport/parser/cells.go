package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ukaji3/visitreport-go/pkg/visitreport/models"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Format is an accepted input file format.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
)

// ErrUnsupportedFormat indicates a file extension the reader cannot handle.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrNoHeader indicates a sheet without any rows.
var ErrNoHeader = errors.New("sheet has no header row")

// DetectFormat returns the input format for a file name based on its extension.
func DetectFormat(name string) (Format, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	case ".csv":
		return FormatCSV, nil
	case ".xls":
		return "", fmt.Errorf("%w: legacy .xls workbooks must be saved as .xlsx", ErrUnsupportedFormat)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(name))
	}
}

// ReadTable reads the first sheet of an xlsx or CSV file into a RawTable.
// Data rows shorter than the header are padded with nil cells.
func ReadTable(name string, data []byte) (*models.RawTable, error) {
	format, err := DetectFormat(name)
	if err != nil {
		return nil, err
	}

	var table *models.RawTable
	switch format {
	case FormatXLSX:
		table, err = readWorkbook(data)
	case FormatCSV:
		table, err = readCSV(data)
	}
	if err != nil {
		return nil, err
	}

	table.Source = filepath.Base(name)
	if len(table.Rows) == 0 {
		return nil, ErrNoHeader
	}
	width := table.Width()
	for i := 1; i < len(table.Rows); i++ {
		table.Rows[i] = table.Rows[i].Pad(width)
	}
	return table, nil
}

// readWorkbook extracts cell values from the first sheet of a workbook.
func readWorkbook(data []byte) (*models.RawTable, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheetName := sheets[0]

	// Raw values keep date cells as serial numbers instead of the
	// number-format rendering.
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows from sheet %s: %w", sheetName, err)
	}

	table := &models.RawTable{Sheet: sheetName}
	for rowIdx, row := range rows {
		cells := make(models.Row, len(row))
		for colIdx, cellValue := range row {
			if cellValue == "" {
				continue
			}
			cells[colIdx] = cellValueOf(f, sheetName, colIdx+1, rowIdx+1, cellValue)
		}
		table.Rows = append(table.Rows, cells)
	}
	return table, nil
}

// cellValueOf converts a raw cell value. Only values that read as numbers
// need the stored cell type: string cells keep text such as "007" and
// boolean cells, stored as 1 or 0, read as TRUE or FALSE.
func cellValueOf(f *excelize.File, sheetName string, col, row int, raw string) interface{} {
	value := parseValue(raw)
	if _, ok := value.(string); ok {
		return value
	}

	cellName, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return value
	}
	cellType, err := f.GetCellType(sheetName, cellName)
	if err != nil {
		return value
	}
	switch cellType {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return raw
	case excelize.CellTypeBool:
		if raw == "1" {
			return "TRUE"
		}
		return "FALSE"
	}
	return value
}

// readCSV reads comma separated rows. UTF-8 and UTF-16 byte order marks are
// honored; input without a BOM is treated as UTF-8.
func readCSV(data []byte) (*models.RawTable, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	reader := csv.NewReader(transform.NewReader(bytes.NewReader(data), decoder))
	reader.FieldsPerRecord = -1

	table := &models.RawTable{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		cells := make(models.Row, len(record))
		for i, value := range record {
			if value != "" {
				cells[i] = value
			}
		}
		table.Rows = append(table.Rows, cells)
	}
	return table, nil
}

// parseValue attempts to parse a string value as a number.
// Returns int64 for integers, float64 for decimals, or the original string.
func parseValue(s string) interface{} {
	// Try integer first
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	// Try float
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	// Return as string
	return s
}
