package render

import (
	"strconv"
	"strings"

	"barangay/internal/documents/models"
)

const (
	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

	packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

	documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
</Relationships>`
)

type defaultLine struct {
	text   string
	center bool
	bold   bool
	size   int
}

var certificationLines = map[models.DocumentType][]string{
	models.TypeBarangayClearance: {
		"This is to certify that {full_name}, born on {birth_date}, is a resident of {full_address}.",
		"",
		"This clearance is issued for the purpose of: {request_purpose}",
	},
	models.TypeCertificateOfResidency: {
		"This is to certify that {full_name}, born on {birth_date}, is a bona fide resident of {full_address}.",
		"",
		"This certification is issued for the purpose of: {request_purpose}",
	},
	models.TypeCertificateOfIndigency: {
		"This is to certify that {full_name}, born on {birth_date}, a resident of {full_address}, belongs to an indigent family of this barangay.",
		"",
		"This certification is issued for the purpose of: {request_purpose}",
	},
}

// DefaultTemplate returns the built-in template for t. Unknown types get the
// barangay clearance layout.
func DefaultTemplate(t models.DocumentType) []byte {
	body, ok := certificationLines[t]
	if !ok {
		t = models.TypeBarangayClearance
		body = certificationLines[t]
	}

	lines := []defaultLine{
		{text: "REPUBLIC OF THE PHILIPPINES", center: true, bold: true},
		{text: "CITY OF CALOOCAN", center: true, bold: true},
		{text: "BARANGAY BAGONG BARRIO", center: true, bold: true},
		{},
		{text: strings.ToUpper(t.DisplayName()), center: true, bold: true, size: 28},
		{},
		{text: "Date: {date_issued}"},
		{},
		{text: "TO WHOM IT MAY CONCERN:", bold: true},
		{},
	}
	for _, l := range body {
		lines = append(lines, defaultLine{text: l})
	}
	lines = append(lines,
		defaultLine{},
		defaultLine{text: "Given this {date_issued} at Barangay Bagong Barrio, Caloocan City."},
		defaultLine{},
		defaultLine{},
		defaultLine{text: "_____________________"},
		defaultLine{text: "Barangay Captain"},
	)

	var doc strings.Builder
	doc.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n")
	doc.WriteString(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>`)
	for _, l := range lines {
		doc.WriteString("<w:p>")
		if l.center {
			doc.WriteString(`<w:pPr><w:jc w:val="center"/></w:pPr>`)
		}
		doc.WriteString("<w:r>")
		if l.bold || l.size > 0 {
			doc.WriteString("<w:rPr>")
			if l.bold {
				doc.WriteString("<w:b/>")
			}
			if l.size > 0 {
				doc.WriteString(`<w:sz w:val="` + strconv.Itoa(l.size) + `"/>`)
			}
			doc.WriteString("</w:rPr>")
		}
		doc.WriteString("<w:t>" + xmlEscaper.Replace(l.text) + "</w:t></w:r></w:p>")
	}
	doc.WriteString(`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/><w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440"/></w:sectPr>`)
	doc.WriteString("</w:body></w:document>")

	c := &container{index: map[string]int{}}
	c.set("[Content_Types].xml", []byte(contentTypesXML))
	c.set("_rels/.rels", []byte(packageRelsXML))
	c.set(documentPart, []byte(doc.String()))
	c.set(relsPart, []byte(documentRelsXML))
	out, err := c.bytes()
	if err != nil {
		// in-memory zip writes do not fail
		panic(err)
	}
	return out
}
