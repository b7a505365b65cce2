// Package docx serializes composed report documents as WordprocessingML
// (.docx) packages.
package docx

import (
	"context"
	"fmt"
	"io"

	"github.com/gomutex/godocx"
	docxlib "github.com/gomutex/godocx/docx"
	"github.com/gomutex/godocx/wml/ctypes"
	"github.com/gomutex/godocx/wml/stypes"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/models"
)

// ContentType is the MIME type of a .docx package.
const ContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Style values.
const (
	titleSize      = 16
	bodySize       = 11
	highlightColor = "yellow"
	headerFill     = "CCCCCC"
	tableStyle     = "TableGrid"
)

// Writer produces .docx packages.
type Writer struct {
	// Creator is recorded in the package core properties.
	Creator string
}

// New returns a Writer with default properties.
func New() *Writer {
	return &Writer{Creator: "visitreport"}
}

// Extension returns the file extension without dot.
func (w *Writer) Extension() string { return "docx" }

// ContentType returns the MIME type of the produced files.
func (w *Writer) ContentType() string { return ContentType }

// Write serializes doc to out. The context is checked between blocks and
// before the package is written.
func (w *Writer) Write(ctx context.Context, out io.Writer, doc *models.Document) error {
	if doc == nil {
		return fmt.Errorf("docx: nil document")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	root, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("docx: new document: %w", err)
	}
	setPageGeometry(root)

	for _, block := range doc.Blocks {
		if err := ctx.Err(); err != nil {
			return err
		}
		addBlock(root, block)
	}
	root.FileMap.Store(corePropsPart, corePropsXML(doc.Title, w.Creator))

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := root.Write(out); err != nil {
		return fmt.Errorf("docx: write package: %w", err)
	}
	return nil
}

// setPageGeometry replaces the template's Letter section with A4 portrait.
func setPageGeometry(root *docxlib.RootDoc) {
	body := root.Document.Body
	if body.SectPr == nil {
		body.SectPr = ctypes.NewSectionProper()
	}
	body.SectPr.PageSize = &ctypes.PageSize{
		Width:  ptr(uint64(pageWidth)),
		Height: ptr(uint64(pageHeight)),
	}
	body.SectPr.PageMargin = &ctypes.PageMargin{
		Top:    ptr(pageMargin),
		Right:  ptr(pageMargin),
		Bottom: ptr(pageMargin),
		Left:   ptr(pageMargin),
		Header: ptr(headerSpace),
		Footer: ptr(headerSpace),
		Gutter: ptr(0),
	}
}

// addBlock appends the body elements of one document block.
func addBlock(root *docxlib.RootDoc, block models.Block) {
	switch block.Kind {
	case models.BlockTitle:
		p := root.AddEmptyParagraph()
		p.Style("Title")
		p.Justification(stypes.JustificationCenter)
		setSpacing(p, 0, 15)
		p.AddText(block.Text).Bold(true).Size(titleSize)
	case models.BlockText:
		p := root.AddEmptyParagraph()
		setSpacing(p, 0, 20)
		p.AddText(block.Text).Size(bodySize)
	case models.BlockNotice:
		p := root.AddEmptyParagraph()
		setSpacing(p, 10, 0)
		p.AddText(block.Text).Size(bodySize)
	case models.BlockRecord:
		for _, field := range block.Fields {
			addField(root, field)
		}
	case models.BlockSeparator:
		p := root.AddEmptyParagraph()
		props := setSpacing(p, 6, 6)
		props.Border = &ctypes.ParaBorder{Bottom: singleBorder()}
	case models.BlockPageBreak:
		root.AddPageBreak()
	case models.BlockTable:
		if block.Table != nil {
			addTable(root, block.Table)
		}
	}
}

// addField writes a bold "Label: " run followed by the value.
func addField(root *docxlib.RootDoc, field models.Field) {
	p := root.AddEmptyParagraph()
	setSpacing(p, 0, 3)
	p.AddText(field.Label + ": ").Bold(true).Size(bodySize)
	run := p.AddText(field.Value).Size(bodySize)
	if field.Highlight {
		run.Highlight(highlightColor)
	}
}

func addTable(root *docxlib.RootDoc, table *models.Table) {
	t := root.AddTable()
	t.Style(tableStyle)

	header := t.AddRow()
	for _, label := range table.Header {
		header.AddCell().AddEmptyPara().
			AddText(label).
			Bold(true).
			Size(bodySize).
			Shading(stypes.ShdClear, "auto", headerFill)
	}

	for _, fields := range table.Rows {
		row := t.AddRow()
		for _, field := range fields {
			run := row.AddCell().AddEmptyPara().AddText(field.Value).Size(bodySize)
			if field.Highlight {
				run.Highlight(highlightColor)
			}
		}
	}
}

// setSpacing sets paragraph spacing in points; 0 keeps the style default.
func setSpacing(p *docxlib.Paragraph, before, after float64) *ctypes.ParagraphProp {
	ct := p.GetCT()
	if ct.Property == nil {
		ct.Property = ctypes.DefaultParaProperty()
	}
	spacing := &ctypes.Spacing{}
	if before > 0 {
		spacing.Before = ptr(uint64(PointsToTwips(before)))
	}
	if after > 0 {
		spacing.After = ptr(uint64(PointsToTwips(after)))
	}
	ct.Property.Spacing = spacing
	return ct.Property
}

func singleBorder() *ctypes.Border {
	return &ctypes.Border{Val: stypes.BorderStyleSingle, Color: ptr("auto"), Space: ptr("1")}
}

func ptr[T any](v T) *T {
	return &v
}
