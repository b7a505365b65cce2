package visitreport

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/docx"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/models"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/preview"
	"github.com/xuri/excelize/v2"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) Extension() string { return "docx" }
func (m *mockWriter) ContentType() string { return "application/octet-stream" }

func (m *mockWriter) Write(ctx context.Context, w io.Writer, doc *models.Document) error {
	args := m.Called(ctx, w, doc)
	return args.Error(0)
}

func workbook(t *testing.T, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func visitWorkbook(t *testing.T) []byte {
	return workbook(t,
		[]interface{}{"Pt No", "Patient Name (Last, First)", "Visit Date", "Doctor", "Personal Reminders"},
		[]interface{}{"1001", "Doe, Jane", 44562, "Dr. Lee", "needs opg"},
		[]interface{}{"1002", "Roe, John", 44563, "Dr. Kim", "follow up"},
	)
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Location = time.UTC
	return opts
}

func newTestSession(t *testing.T, opts Options, w DocumentWriter) *Session {
	t.Helper()
	s, err := NewSession(opts, w, zerolog.Nop())
	require.NoError(t, err)
	return s
}

func TestNewSessionRequiresWriter(t *testing.T) {
	s, err := NewSession(testOptions(), nil, zerolog.Nop())
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrWriterUnavailable)
}

func TestImportComposesDocument(t *testing.T) {
	s := newTestSession(t, testOptions(), docx.New())
	require.NoError(t, s.ImportReader("visits.xlsx", bytes.NewReader(visitWorkbook(t))))

	doc, err := s.Document()
	require.NoError(t, err)
	assert.Equal(t, "PATIENT REPORT | Jan 1 - Jan 2", doc.Title)
	assert.Equal(t, "PATIENT REPORT _ DATED Jan 1 - Jan 2.docx", doc.FileName)
	require.Len(t, doc.Records, 2)
	assert.Equal(t, "1 January 2022", doc.Records[0].VisitDate)
	assert.Equal(t, "Doe, Jane", doc.Records[0].PatientName)
	assert.Equal(t, "Patient with new OPG", doc.Records[0].Remarks)
	assert.True(t, doc.Records[0].Flagged)
	assert.Equal(t, "", doc.Records[1].Remarks)

	st := s.Status()
	assert.Equal(t, s.ID(), st.SessionID)
	assert.NotEmpty(t, st.ImportID)
	assert.Equal(t, "visits.xlsx", st.Source)
	assert.Equal(t, 2, st.Records)
	assert.NotNil(t, st.ImportedAt)
}

func TestImportFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "visits.csv")
	csvData := "Pt No,Patient Name,Visit Date,Doctor,Personal Reminders\n7,Jane,5 March 2023,Dr. Lee,OPG\n"
	require.NoError(t, os.WriteFile(path, []byte(csvData), 0644))

	s := newTestSession(t, testOptions(), docx.New())
	require.NoError(t, s.Import(path))

	doc, err := s.Document()
	require.NoError(t, err)
	require.Len(t, doc.Records, 1)
	assert.Equal(t, "5 March 2023", doc.Records[0].VisitDate)
	assert.Equal(t, "PATIENT REPORT | 5 March 2023 - 5 March 2023", doc.Title)

	err = s.Import(filepath.Join(dir, "missing.xlsx"))
	assert.ErrorIs(t, err, ErrImportRejected)
}

func TestImportRejectionKeepsState(t *testing.T) {
	opts := testOptions()
	opts.MaxFileSize = 64 << 10
	s := newTestSession(t, opts, docx.New())
	require.NoError(t, s.ImportReader("visits.xlsx", bytes.NewReader(visitWorkbook(t))))
	before := s.Status()

	tests := []struct {
		name string
		file string
		data []byte
	}{
		{"legacy workbook", "visits.xls", []byte{0xD0, 0xCF, 0x11, 0xE0}},
		{"unknown extension", "visits.pdf", []byte("%PDF-1.4")},
		{"csv content named xlsx", "visits.xlsx", []byte("Pt No,Patient Name\n1,Jane\n")},
		{"binary content named csv", "visits.csv", visitWorkbook(t)},
		{"too large", "visits.csv", bytes.Repeat([]byte("a,b\n"), 20<<10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.ImportReader(tt.file, bytes.NewReader(tt.data))
			require.ErrorIs(t, err, ErrImportRejected)

			var reportErr *ReportError
			require.True(t, errors.As(err, &reportErr))
			assert.Equal(t, OpImport, reportErr.Op)
			assert.Equal(t, tt.file, reportErr.Source)

			assert.Equal(t, before, s.Status())
			_, err = s.Document()
			assert.NoError(t, err)
		})
	}
}

func TestImportParseFailureClearsState(t *testing.T) {
	s := newTestSession(t, testOptions(), docx.New())
	require.NoError(t, s.ImportReader("visits.xlsx", bytes.NewReader(visitWorkbook(t))))

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	part, err := zw.Create("notes.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("not a workbook"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	for name, data := range map[string][]byte{
		"broken.xlsx": buf.Bytes(),
		"empty.csv":   {},
	} {
		require.NoError(t, s.ImportReader("visits.xlsx", bytes.NewReader(visitWorkbook(t))))

		err := s.ImportReader(name, bytes.NewReader(data))
		assert.ErrorIs(t, err, ErrParseFailure, name)

		st := s.Status()
		assert.Empty(t, st.ImportID, name)
		assert.Empty(t, st.Source, name)
		assert.Zero(t, st.Records, name)

		_, err = s.Document()
		assert.ErrorIs(t, err, ErrNoTable, name)
		_, err = s.Table()
		assert.ErrorIs(t, err, ErrNoTable, name)
	}
}

func TestSecondImportReplacesTable(t *testing.T) {
	s := newTestSession(t, testOptions(), docx.New())
	require.NoError(t, s.ImportReader("visits.xlsx", bytes.NewReader(visitWorkbook(t))))
	first := s.Status()

	csvData := "Pt No,Patient Name,Visit Date\n9,Solo,44600\n"
	require.NoError(t, s.ImportReader("other.csv", strings.NewReader(csvData)))
	second := s.Status()

	assert.NotEqual(t, first.ImportID, second.ImportID)
	assert.Equal(t, "other.csv", second.Source)
	assert.Equal(t, 1, second.Records)

	table, err := s.Table()
	require.NoError(t, err)
	assert.Equal(t, "other.csv", table.Source)
}

func TestNoTable(t *testing.T) {
	s := newTestSession(t, testOptions(), docx.New())

	assert.ErrorIs(t, s.Refresh(), ErrNoTable)
	_, err := s.Document()
	assert.ErrorIs(t, err, ErrNoTable)
	_, err = s.Preview(preview.FormatMarkdown)
	assert.ErrorIs(t, err, ErrNoTable)
	_, err = s.Export(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoTable)
	_, err = s.ExportTo(context.Background(), io.Discard)
	assert.ErrorIs(t, err, ErrNoTable)

	st := s.Status()
	assert.NotEmpty(t, st.SessionID)
	assert.Nil(t, st.ImportedAt)
}

func TestRefreshRecomposes(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	opts := testOptions()
	opts.ShowGeneratedAt = true
	opts.Now = func() time.Time { return now }

	s := newTestSession(t, opts, docx.New())
	require.NoError(t, s.ImportReader("visits.xlsx", bytes.NewReader(visitWorkbook(t))))

	md, err := s.Preview(preview.FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, string(md), "Generated on: 1 May 2024 09:30")

	now = now.Add(2 * time.Hour)
	require.NoError(t, s.Refresh())

	md, err = s.Preview(preview.FormatMarkdown)
	require.NoError(t, err)
	assert.Contains(t, string(md), "Generated on: 1 May 2024 11:30")
}

func TestExport(t *testing.T) {
	s := newTestSession(t, testOptions(), docx.New())
	require.NoError(t, s.ImportReader("visits.xlsx", bytes.NewReader(visitWorkbook(t))))

	dir := filepath.Join(t.TempDir(), "out")
	path, err := s.Export(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "PATIENT REPORT _ DATED Jan 1 - Jan 2.docx"), path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temporary files left behind")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	body := documentXML(t, data)
	assert.Contains(t, body, "PATIENT REPORT | Jan 1 - Jan 2")
	assert.Contains(t, body, "Doe, Jane")
}

func TestExportReplacesExistingReport(t *testing.T) {
	s := newTestSession(t, testOptions(), docx.New())
	require.NoError(t, s.ImportReader("visits.xlsx", bytes.NewReader(visitWorkbook(t))))

	dir := t.TempDir()
	stale := filepath.Join(dir, "PATIENT REPORT _ DATED Jan 1 - Jan 2.docx")
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0600))

	path, err := s.Export(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, stale, path)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, documentXML(t, data), "Doe, Jane")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "existing permissions are kept")
}

func TestExportIntoFileFails(t *testing.T) {
	s := newTestSession(t, testOptions(), docx.New())
	require.NoError(t, s.ImportReader("visits.xlsx", bytes.NewReader(visitWorkbook(t))))

	blocker := filepath.Join(t.TempDir(), "out")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	path, err := s.Export(context.Background(), blocker)
	assert.Empty(t, path)
	require.ErrorIs(t, err, ErrExportFailure)
}

func TestPreviewAndExportShareDocument(t *testing.T) {
	s := newTestSession(t, testOptions(), docx.New())
	require.NoError(t, s.ImportReader("visits.xlsx", bytes.NewReader(visitWorkbook(t))))

	md, err := s.Preview(preview.FormatMarkdown)
	require.NoError(t, err)

	var buf bytes.Buffer
	name, err := s.ExportTo(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, "PATIENT REPORT _ DATED Jan 1 - Jan 2.docx", name)
	body := documentXML(t, buf.Bytes())

	doc, err := s.Document()
	require.NoError(t, err)
	for _, rec := range doc.Records {
		for _, value := range []string{rec.VisitDate, rec.FileNumber, rec.Doctor} {
			assert.Contains(t, string(md), value)
			assert.Contains(t, body, value)
		}
	}
	assert.Equal(t, doc.Count(models.BlockSeparator), strings.Count(string(md), "\n---\n"))
}

func TestExportFailureLeavesNoFile(t *testing.T) {
	w := new(mockWriter)
	w.On("Write", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(io.Writer).Write([]byte("partial"))
		}).
		Return(errors.New("disk full"))

	s := newTestSession(t, testOptions(), w)
	require.NoError(t, s.ImportReader("visits.xlsx", bytes.NewReader(visitWorkbook(t))))

	dir := t.TempDir()
	path, err := s.Export(context.Background(), dir)
	assert.Empty(t, path)
	require.ErrorIs(t, err, ErrExportFailure)
	assert.Contains(t, err.Error(), "disk full")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	var buf bytes.Buffer
	_, err = s.ExportTo(context.Background(), &buf)
	assert.ErrorIs(t, err, ErrExportFailure)
	assert.Zero(t, buf.Len())

	w.AssertNumberOfCalls(t, "Write", 2)
}

func TestExportCanceled(t *testing.T) {
	s := newTestSession(t, testOptions(), docx.New())
	require.NoError(t, s.ImportReader("visits.xlsx", bytes.NewReader(visitWorkbook(t))))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	dir := t.TempDir()
	_, err := s.Export(ctx, dir)
	assert.ErrorIs(t, err, ErrExportFailure)
	assert.ErrorIs(t, err, context.Canceled)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestReportError(t *testing.T) {
	cause := errors.New("boom")
	err := NewReportError(OpExport, "report.docx", ErrExportFailure, cause)

	assert.Equal(t, `export "report.docx": export failure: boom`, err.Error())
	assert.ErrorIs(t, err, ErrExportFailure)
	assert.ErrorIs(t, err, cause)

	bare := NewReportError(OpRefresh, "", ErrNoTable, nil)
	assert.Equal(t, "refresh: no spreadsheet imported", bare.Error())
}

func documentXML(t *testing.T, data []byte) string {
	t.Helper()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	for _, f := range r.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		require.NoError(t, err)
		defer rc.Close()
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		return string(body)
	}
	t.Fatal("word/document.xml not found")
	return ""
}
