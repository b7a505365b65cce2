// Package server exposes a Session over HTTP: upload a spreadsheet, review
// the report preview, and download the exported document.
package server

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/ukaji3/visitreport-go/pkg/visitreport"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/models"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/parser"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/preview"
)

// DefaultPreviewRows is the number of raw rows returned by /data when no
// limit is given.
const DefaultPreviewRows = 10

// Status values used in JSON responses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusInfo    = "info"
)

// StatusResponse is the JSON body of status and error responses.
type StatusResponse struct {
	Status  string              `json:"status"`
	Message string              `json:"message"`
	Session *visitreport.Status `json:"session,omitempty"`
}

// DataResponse is the JSON body of /data.
type DataResponse struct {
	Source string         `json:"source"`
	Sheet  string         `json:"sheet,omitempty"`
	Header models.Row     `json:"header"`
	Rows   []models.Row   `json:"rows"`
	Total  int            `json:"total"`
	Roles  map[string]int `json:"roles"`
}

// Server represents the preview web server
type Server struct {
	router  *gin.Engine
	session *visitreport.Session
	log     zerolog.Logger
}

// New creates a server over session. Gin's mode is set by the caller.
func New(session *visitreport.Session, log zerolog.Logger) *Server {
	s := &Server{
		router:  gin.New(),
		session: session,
		log:     log,
	}
	s.router.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is canceled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("Preview server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info().Msg("Shutting down preview server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleIndex)
	s.router.GET("/preview.md", s.handlePreviewMarkdown)
	s.router.GET("/data", s.handleData)
	s.router.GET("/status", s.handleStatus)
	s.router.POST("/import", s.handleImport)
	s.router.POST("/refresh", s.handleRefresh)
	s.router.GET("/export", s.handleExport)
}

// requestLogger logs each request with its status and latency.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := s.log.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = s.log.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("Request")
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>{{.Stylesheet}}
.controls { display: flex; gap: 1em; align-items: center; margin-bottom: 1em; }
.status-message { padding: 0.5em; }
.status-message.success { color: #276749; }
.status-message.error { color: #c53030; }
.status-message.info { color: #2b6cb0; }
</style>
</head>
<body>
<div class="controls">
<input type="file" id="file" accept=".xlsx,.xlsm,.csv">
<button id="refresh">Refresh preview</button>
<a href="/export">Export document</a>
</div>
<div id="status" class="status-message {{.Status}}">{{.Message}}</div>
<div id="preview">{{.Body}}</div>
<script>
function show(res) {
  res.json().then(function (body) {
    var el = document.getElementById('status');
    el.textContent = body.message;
    el.className = 'status-message ' + body.status;
    if (body.status === 'success') { location.reload(); }
  });
}
document.getElementById('file').addEventListener('change', function (e) {
  var data = new FormData();
  data.append('file', e.target.files[0]);
  fetch('/import', { method: 'POST', body: data }).then(show);
});
document.getElementById('refresh').addEventListener('click', function () {
  fetch('/refresh', { method: 'POST' }).then(show);
});
</script>
</body>
</html>
`))

type indexData struct {
	Title      string
	Stylesheet template.CSS
	Status     string
	Message    string
	Body       template.HTML
}

func (s *Server) handleIndex(c *gin.Context) {
	data := indexData{
		Title:      "Patient Report Preview",
		Stylesheet: template.CSS(preview.Stylesheet),
		Status:     StatusInfo,
		Message:    "Select a spreadsheet to preview the report.",
	}

	if doc, err := s.session.Document(); err == nil {
		st := s.session.Status()
		data.Title = doc.Title
		data.Message = "Previewing " + st.Source + " (" + strconv.Itoa(st.Records) + " records)"
		data.Body = template.HTML(preview.HTMLFragment(doc))
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, data); err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, preview.FormatHTML.ContentType(), buf.Bytes())
}

func (s *Server) handlePreviewMarkdown(c *gin.Context) {
	out, err := s.session.Preview(preview.FormatMarkdown)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Data(http.StatusOK, preview.FormatMarkdown.ContentType(), out)
}

func (s *Server) handleData(c *gin.Context) {
	limit := DefaultPreviewRows
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, StatusResponse{Status: StatusError, Message: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	table, err := s.session.Table()
	if err != nil {
		s.fail(c, err)
		return
	}

	rows := table.DataRows()
	shown := rows
	if limit > 0 && len(rows) > limit {
		shown = rows[:limit]
	}
	if shown == nil {
		shown = []models.Row{}
	}

	cols := parser.ResolveHeaders(table.Header())
	roles := make(map[string]int, len(models.FieldRoles))
	for _, role := range models.FieldRoles {
		roles[role.String()] = cols.Index(role)
	}

	c.JSON(http.StatusOK, DataResponse{
		Source: table.Source,
		Sheet:  table.Sheet,
		Header: table.Header(),
		Rows:   shown,
		Total:  len(rows),
		Roles:  roles,
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	st := s.session.Status()
	resp := StatusResponse{Status: StatusInfo, Message: "No spreadsheet imported", Session: &st}
	if st.Source != "" {
		resp.Message = "Loaded " + st.Source
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleImport(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, StatusResponse{Status: StatusError, Message: "Please select a valid XLSX or CSV file."})
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()

	if err := s.session.ImportReader(fh.Filename, f); err != nil {
		s.fail(c, err)
		return
	}

	st := s.session.Status()
	c.JSON(http.StatusOK, StatusResponse{Status: StatusSuccess, Message: "File loaded successfully!", Session: &st})
}

func (s *Server) handleRefresh(c *gin.Context) {
	if err := s.session.Refresh(); err != nil {
		s.fail(c, err)
		return
	}
	st := s.session.Status()
	c.JSON(http.StatusOK, StatusResponse{Status: StatusSuccess, Message: "Preview refreshed", Session: &st})
}

func (s *Server) handleExport(c *gin.Context) {
	var buf bytes.Buffer
	name, err := s.session.ExportTo(c.Request.Context(), &buf)
	if err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	c.Data(http.StatusOK, s.session.ContentType(), buf.Bytes())
}

// fail writes an error status response with a code matching the error kind.
func (s *Server) fail(c *gin.Context, err error) {
	code := statusCode(err)
	message := err.Error()
	switch {
	case errors.Is(err, visitreport.ErrNoTable):
		message = "No data to export."
	case code == http.StatusInternalServerError:
		s.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Request failed")
	}
	c.JSON(code, StatusResponse{Status: StatusError, Message: message})
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, visitreport.ErrImportRejected):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, visitreport.ErrParseFailure):
		return http.StatusUnprocessableEntity
	case errors.Is(err, visitreport.ErrNoTable):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
