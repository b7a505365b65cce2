package preview

import (
	"bytes"
	"html/template"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	mdparser "github.com/gomarkdown/markdown/parser"
	"github.com/ukaji3/visitreport-go/pkg/visitreport/models"
)

// Stylesheet is shared by the standalone preview page and the preview server.
const Stylesheet = `body { font-family: Calibri, Arial, sans-serif; max-width: 52em; margin: 2em auto; padding: 0 1em; }
h1 { text-align: center; font-size: 1.6em; }
mark { background: #ffff00; }
hr { border: 0; border-top: 1px solid #000; }
.page-break { border-top: 2px dashed #999; margin: 2em 0; }
.page-break::after { content: "page break"; display: block; text-align: center; color: #999; font-size: 0.8em; }
table { border-collapse: collapse; width: 100%; }
th { background: #cccccc; }
td, th { border: 1px solid #000; padding: 4px 6px; text-align: left; }`

var pageTemplate = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>{{.Stylesheet}}</style>
</head>
<body>
{{.Body}}
</body>
</html>
`))

type pageData struct {
	Title      string
	Stylesheet template.CSS
	Body       template.HTML
}

// HTMLFragment renders the document body as HTML, without a page wrapper.
func HTMLFragment(doc *models.Document) []byte {
	return MarkdownToHTML(Markdown(doc))
}

// MarkdownToHTML converts preview Markdown to an HTML fragment.
func MarkdownToHTML(md []byte) []byte {
	extensions := mdparser.Tables | mdparser.NoIntraEmphasis | mdparser.BackslashLineBreak
	p := mdparser.NewWithExtensions(extensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.FlagsNone})
	return markdown.ToHTML(md, p, renderer)
}

// HTML renders the document as a complete HTML page.
func HTML(doc *models.Document) ([]byte, error) {
	var buf bytes.Buffer
	err := pageTemplate.Execute(&buf, pageData{
		Title:      doc.Title,
		Stylesheet: template.CSS(Stylesheet),
		Body:       template.HTML(HTMLFragment(doc)),
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
