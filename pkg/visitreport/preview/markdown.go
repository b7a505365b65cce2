// Package preview renders composed documents as Markdown and HTML for review
// before export.
package preview

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ukaji3/visitreport-go/pkg/visitreport/models"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/parser"
)

// Format is a preview output format.
type Format string

const (
	FormatMarkdown Format = "md"
	FormatHTML     Format = "html"
)

// PageBreakMarker stands in for a hard page break.
const PageBreakMarker = `<div class="page-break"></div>`

// ParseFormat maps a user supplied name to a Format.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "md", "markdown":
		return FormatMarkdown, nil
	case "html", "htm":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("invalid preview format: %s (must be md or html)", s)
}

// ContentType returns the MIME type for a format.
func (f Format) ContentType() string {
	if f == FormatHTML {
		return "text/html; charset=utf-8"
	}
	return "text/markdown; charset=utf-8"
}

// Render renders doc in the requested format.
func Render(doc *models.Document, format Format) ([]byte, error) {
	switch format {
	case FormatMarkdown:
		return Markdown(doc), nil
	case FormatHTML:
		return HTML(doc)
	}
	return nil, fmt.Errorf("invalid preview format: %s", format)
}

// Markdown renders the document blocks one to one as Markdown.
func Markdown(doc *models.Document) []byte {
	var buf bytes.Buffer
	for _, block := range doc.Blocks {
		writeBlock(&buf, block)
	}
	return buf.Bytes()
}

func writeBlock(buf *bytes.Buffer, block models.Block) {
	switch block.Kind {
	case models.BlockTitle:
		fmt.Fprintf(buf, "# %s\n\n", escape(block.Text))
	case models.BlockText, models.BlockNotice:
		fmt.Fprintf(buf, "%s\n\n", escape(block.Text))
	case models.BlockRecord:
		for i, field := range block.Fields {
			fmt.Fprintf(buf, "**%s:** %s", escape(field.Label), value(field))
			if i < len(block.Fields)-1 {
				buf.WriteString("\\")
			}
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	case models.BlockSeparator:
		buf.WriteString("---\n\n")
	case models.BlockPageBreak:
		buf.WriteString(PageBreakMarker + "\n\n")
	case models.BlockTable:
		if block.Table != nil {
			writeTable(buf, block.Table)
		}
	}
}

func writeTable(buf *bytes.Buffer, table *models.Table) {
	header := make([]string, len(table.Header))
	for i, label := range table.Header {
		header[i] = escape(label)
	}
	writeTableRow(buf, header)
	rule := make([]string, len(table.Header))
	for i := range rule {
		rule[i] = "---"
	}
	writeTableRow(buf, rule)

	for _, fields := range table.Rows {
		cells := make([]string, len(fields))
		for i, field := range fields {
			cells[i] = value(field)
		}
		writeTableRow(buf, cells)
	}
	buf.WriteString("\n")
}

func writeTableRow(buf *bytes.Buffer, cells []string) {
	buf.WriteString("|")
	for _, cell := range cells {
		buf.WriteString(" " + cell + " |")
	}
	buf.WriteString("\n")
}

func value(field models.Field) string {
	v := escape(field.Value)
	if field.Highlight && v != "" {
		return "<mark>" + v + "</mark>"
	}
	return v
}

// RawRows renders the header and up to limit data rows of the raw sheet as a
// Markdown table. limit below 1 renders every row.
func RawRows(table *models.RawTable, limit int) []byte {
	var buf bytes.Buffer
	headerRow := table.Header()
	if len(headerRow) == 0 {
		buf.WriteString("No data found in the spreadsheet.\n")
		return buf.Bytes()
	}

	header := make([]string, len(headerRow))
	rule := make([]string, len(headerRow))
	for i, cell := range headerRow {
		header[i] = escape(parser.Text(cell))
		rule[i] = "---"
	}
	writeTableRow(&buf, header)
	writeTableRow(&buf, rule)

	rows := table.DataRows()
	shown := rows
	if limit > 0 && len(rows) > limit {
		shown = rows[:limit]
	}
	for _, row := range shown {
		cells := make([]string, len(headerRow))
		for i := range headerRow {
			cells[i] = escape(parser.Text(row.Cell(i)))
		}
		writeTableRow(&buf, cells)
	}

	if len(shown) < len(rows) {
		fmt.Fprintf(&buf, "\nShowing %d of %d rows\n", len(shown), len(rows))
	}
	return buf.Bytes()
}

var markdownEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"`", "\\`",
	"*", "\\*",
	"_", "\\_",
	"[", "\\[",
	"]", "\\]",
	"|", "\\|",
	"~", "\\~",
	"<", "\\<",
	">", "\\>",
	"&", "\\&",
	"\r\n", " ",
	"\n", " ",
	"\r", " ",
)

// escape makes cell text inert in Markdown and in the HTML rendered from it.
func escape(s string) string {
	return markdownEscaper.Replace(s)
}
