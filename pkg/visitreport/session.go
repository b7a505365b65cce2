package visitreport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/renameio/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/compose"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/models"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/parser"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/preview"
	"golang.org/x/sync/errgroup"
)

// DocumentWriter serializes a composed document into an export format.
type DocumentWriter interface {
	// Extension returns the file extension without the leading dot.
	Extension() string
	ContentType() string
	Write(ctx context.Context, w io.Writer, doc *models.Document) error
}

// Status describes the current session state.
type Status struct {
	SessionID  string     `json:"session_id"`
	ImportID   string     `json:"import_id,omitempty"`
	Source     string     `json:"source,omitempty"`
	ImportedAt *time.Time `json:"imported_at,omitempty"`
	Records    int        `json:"records"`
	Title      string     `json:"title,omitempty"`
	FileName   string     `json:"file_name,omitempty"`
}

// Session holds the imported spreadsheet and the document derived from it.
// All operations are serialized, so a Session can be shared between
// goroutines.
type Session struct {
	mu     sync.Mutex
	id     string
	opts   Options
	writer DocumentWriter
	log    zerolog.Logger

	table      *models.RawTable
	doc        *models.Document
	importID   string
	importedAt time.Time
}

// NewSession creates an empty session that exports through writer.
func NewSession(opts Options, writer DocumentWriter, log zerolog.Logger) (*Session, error) {
	if writer == nil {
		return nil, ErrWriterUnavailable
	}
	id := uuid.NewString()
	return &Session{
		id:     id,
		opts:   opts,
		writer: writer,
		log:    log.With().Str("session", id).Logger(),
	}, nil
}

// ID returns the session id.
func (s *Session) ID() string {
	return s.id
}

// Import reads the spreadsheet at path and replaces the current table.
func (s *Session) Import(path string) error {
	name := filepath.Base(path)
	if _, err := parser.DetectFormat(name); err != nil {
		return NewReportError(OpImport, name, ErrImportRejected, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return NewReportError(OpImport, name, ErrImportRejected, err)
	}
	defer f.Close()

	return s.ImportReader(name, f)
}

// ImportReader reads a spreadsheet named name from r and replaces the
// current table. A rejected file leaves the session unchanged; a file that
// cannot be parsed clears it.
func (s *Session) ImportReader(name string, r io.Reader) error {
	name = filepath.Base(name)
	format, err := parser.DetectFormat(name)
	if err != nil {
		return NewReportError(OpImport, name, ErrImportRejected, err)
	}

	limit := s.opts.MaxImportSize()
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return NewReportError(OpImport, name, ErrImportRejected, err)
	}
	if int64(len(data)) > limit {
		return NewReportError(OpImport, name, ErrImportRejected,
			fmt.Errorf("file exceeds %d bytes", limit))
	}
	if err := checkSignature(format, data); err != nil {
		return NewReportError(OpImport, name, ErrImportRejected, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := parser.ReadTable(name, data)
	if err != nil {
		s.clear()
		s.log.Error().Err(err).Str("source", name).Msg("Failed to parse spreadsheet")
		return NewReportError(OpImport, name, ErrParseFailure, err)
	}

	s.table = table
	s.importID = uuid.NewString()
	s.importedAt = s.opts.now()

	if missing := parser.ResolveHeaders(table.Header()).Missing(); len(missing) > 0 {
		roles := make([]string, len(missing))
		for i, role := range missing {
			roles[i] = role.String()
		}
		s.log.Warn().Str("source", name).Strs("roles", roles).Msg("Columns not found in header row")
	}

	s.doc = s.compose()
	s.log.Info().
		Str("source", name).
		Str("import", s.importID).
		Int("records", len(s.doc.Records)).
		Msg("Imported spreadsheet")
	return nil
}

// checkSignature verifies that the content matches the declared format.
func checkSignature(format parser.Format, data []byte) error {
	mime := mimetype.Detect(data)
	want := "text/plain"
	if format == parser.FormatXLSX {
		want = "application/zip"
	}
	for m := mime; m != nil; m = m.Parent() {
		if m.Is(want) {
			return nil
		}
	}
	return fmt.Errorf("content type %s does not match a %s file", mime.String(), format)
}

// Refresh recomposes the document from the current table.
func (s *Session) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return NewReportError(OpRefresh, "", ErrNoTable, nil)
	}
	s.doc = s.compose()
	s.log.Debug().Str("source", s.table.Source).Msg("Refreshed document")
	return nil
}

// Document returns the current composed document.
func (s *Session) Document() (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc == nil {
		return nil, NewReportError(OpPreview, "", ErrNoTable, nil)
	}
	return s.doc, nil
}

// Table returns the imported raw table.
func (s *Session) Table() (*models.RawTable, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.table == nil {
		return nil, NewReportError(OpPreview, "", ErrNoTable, nil)
	}
	return s.table, nil
}

// Preview renders the current document in the given format.
func (s *Session) Preview(format preview.Format) ([]byte, error) {
	doc, err := s.Document()
	if err != nil {
		return nil, err
	}
	out, err := preview.Render(doc, format)
	if err != nil {
		return nil, NewReportError(OpPreview, doc.FileName, err, nil)
	}
	return out, nil
}

// Export regenerates the document and saves it into dir under its report
// file name. It returns the path of the written file. On failure no file is
// left behind.
func (s *Session) Export(ctx context.Context, dir string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, data, err := s.render(ctx)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, doc.FileName)
	if err := writeFileAtomic(path, data); err != nil {
		s.log.Error().Err(err).Str("path", path).Msg("Failed to save report")
		return "", NewReportError(OpExport, doc.FileName, ErrExportFailure, err)
	}

	s.log.Info().Str("path", path).Int("bytes", len(data)).Msg("Exported report")
	return path, nil
}

// ExportTo regenerates the document and writes it to w. It returns the
// report file name.
func (s *Session) ExportTo(ctx context.Context, w io.Writer) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, data, err := s.render(ctx)
	if err != nil {
		return "", err
	}
	if _, err := w.Write(data); err != nil {
		return "", NewReportError(OpExport, doc.FileName, ErrExportFailure, err)
	}
	s.log.Info().Str("file", doc.FileName).Int("bytes", len(data)).Msg("Exported report")
	return doc.FileName, nil
}

// ContentType returns the MIME type of exported files.
func (s *Session) ContentType() string {
	return s.writer.ContentType()
}

// Status reports the current session state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{SessionID: s.id}
	if s.table != nil {
		importedAt := s.importedAt
		st.ImportID = s.importID
		st.Source = s.table.Source
		st.ImportedAt = &importedAt
	}
	if s.doc != nil {
		st.Records = len(s.doc.Records)
		st.Title = s.doc.Title
		st.FileName = s.doc.FileName
	}
	return st
}

// render recomposes the document and serializes it in a background
// goroutine. Callers must hold s.mu.
func (s *Session) render(ctx context.Context) (*models.Document, []byte, error) {
	if s.table == nil {
		return nil, nil, NewReportError(OpExport, "", ErrNoTable, nil)
	}
	doc := s.compose()
	s.doc = doc

	var buf bytes.Buffer
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.writer.Write(gctx, &buf, doc)
	})
	if err := g.Wait(); err != nil {
		s.log.Error().Err(err).Str("file", doc.FileName).Msg("Failed to serialize report")
		return nil, nil, NewReportError(OpExport, doc.FileName, ErrExportFailure, err)
	}
	return doc, buf.Bytes(), nil
}

func (s *Session) compose() *models.Document {
	return compose.Compose(s.table, s.opts.composeConfig(s.writer.Extension()))
}

func (s *Session) clear() {
	s.table = nil
	s.doc = nil
	s.importID = ""
	s.importedAt = time.Time{}
}

// writeFileAtomic writes data to a temporary file next to path and renames
// it into place, creating the directory first.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return renameio.WriteFile(path, data, 0644)
}
