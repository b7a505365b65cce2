package docx

import (
	"bytes"
	"encoding/xml"
)

// corePropsPart is the package path of the core properties. The template
// part is copied through unchanged, so it is replaced before writing.
const corePropsPart = "docProps/core.xml"

// corePropsXML renders docProps/core.xml with the report title.
func corePropsXML(title, creator string) []byte {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	buf.WriteString(`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" ` +
		`xmlns:dc="http://purl.org/dc/elements/1.1/">`)
	buf.WriteString("<dc:title>")
	xml.EscapeText(&buf, []byte(title))
	buf.WriteString("</dc:title><dc:creator>")
	xml.EscapeText(&buf, []byte(creator))
	buf.WriteString("</dc:creator></cp:coreProperties>")
	return buf.Bytes()
}
