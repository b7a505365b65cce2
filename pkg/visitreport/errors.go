package visitreport

import (
	"errors"
	"fmt"
)

// ErrImportRejected indicates a file of the wrong type, extension or size.
var ErrImportRejected = errors.New("import rejected")

// ErrParseFailure indicates a file that could not be read as tabular data.
var ErrParseFailure = errors.New("parse failure")

// ErrExportFailure indicates a failed serialization or save.
var ErrExportFailure = errors.New("export failure")

// ErrNoTable indicates an operation that needs an imported spreadsheet.
var ErrNoTable = errors.New("no spreadsheet imported")

// ErrWriterUnavailable indicates a session created without a document writer.
var ErrWriterUnavailable = errors.New("document writer unavailable")

// Operation names used in ReportError.
const (
	OpImport  = "import"
	OpRefresh = "refresh"
	OpPreview = "preview"
	OpExport  = "export"
)

// ReportError represents a failed session operation.
type ReportError struct {
	Op     string
	Source string // imported file name, if known
	Err    error
}

func (e *ReportError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Source, e.Err)
}

func (e *ReportError) Unwrap() error {
	return e.Err
}

// NewReportError creates a new ReportError whose error chain contains kind
// and, when non-nil, cause.
func NewReportError(op, source string, kind, cause error) *ReportError {
	err := kind
	if cause != nil {
		err = fmt.Errorf("%w: %w", kind, cause)
	}
	return &ReportError{
		Op:     op,
		Source: source,
		Err:    err,
	}
}
