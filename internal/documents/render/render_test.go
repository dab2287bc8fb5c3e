package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	citizen "barangay/internal/citizen/models"
	"barangay/internal/documents/models"
)

const wNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

func docXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:document ` + wNS +
		` xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"` +
		` xmlns:wp="http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing"` +
		` xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main"><w:body>` + body + `</w:body></w:document>`
}

func buildDocx(t *testing.T, parts map[string][]byte) []byte {
	t.Helper()
	c := &container{index: map[string]int{}}
	c.set("[Content_Types].xml", []byte(contentTypesXML))
	c.set("_rels/.rels", []byte(packageRelsXML))
	for _, name := range []string{documentPart, relsPart, "word/header1.xml", "word/media/image1.png"} {
		if data, ok := parts[name]; ok {
			c.set(name, data)
		}
	}
	out, err := c.bytes()
	require.NoError(t, err)
	return out
}

func simpleDocx(t *testing.T, body string) []byte {
	return buildDocx(t, map[string][]byte{documentPart: []byte(docXML(body))})
}

var wtRe = regexp.MustCompile(`(?s)<w:t(?:\s[^>]*)?>(.*?)</w:t>`)

func documentText(t *testing.T, docx []byte) string {
	t.Helper()
	c, err := openContainer(docx)
	require.NoError(t, err)
	data, _ := c.get(documentPart)
	var b strings.Builder
	for _, m := range wtRe.FindAllStringSubmatch(string(data), -1) {
		b.WriteString(m[1])
	}
	return b.String()
}

func documentXML(t *testing.T, docx []byte) string {
	t.Helper()
	c, err := openContainer(docx)
	require.NoError(t, err)
	data, _ := c.get(documentPart)
	return string(data)
}

func testProfile() *citizen.Profile {
	dob := time.Date(1990, time.March, 5, 0, 0, 0, 0, time.UTC)
	return &citizen.Profile{
		FirstName:    "Juan",
		LastName:     "Dela Cruz",
		DateOfBirth:  &dob,
		StreetNumber: "12",
		StreetName:   "Rizal St",
	}
}

func testRequest() *models.Request {
	return &models.Request{Type: models.TypeBarangayClearance, Purpose: "Employment"}
}

var issuedAt = time.Date(2024, time.July, 4, 9, 30, 0, 0, time.UTC)

func TestFillDefaultTemplateRoundTrip(t *testing.T) {
	for _, dt := range models.DocumentTypes {
		t.Run(string(dt), func(t *testing.T) {
			filled, err := Fill(DefaultTemplate(dt), FieldsFor(testProfile(), testRequest(), issuedAt))
			require.NoError(t, err)

			text := documentText(t, filled)
			assert.NotRegexp(t, placeholderRe, text)
			assert.Contains(t, text, "Juan Dela Cruz")
			assert.Contains(t, text, "12 Rizal St, Bagong Barrio, Caloocan City")
			assert.Contains(t, text, "Date: July 4, 2024")

			htmlOut, err := ToHTML(filled)
			require.NoError(t, err)
			s := string(htmlOut)
			assert.Contains(t, s, "Juan Dela Cruz")
			assert.Contains(t, s, "March 5, 1990")
			assert.Contains(t, s, "Employment")
			assert.Contains(t, s, strings.ToUpper(dt.DisplayName()))
			assert.NotContains(t, s, "{full_name}")
		})
	}
}

func TestFillMergesPlaceholdersSplitAcrossRuns(t *testing.T) {
	tpl := simpleDocx(t, `<w:p><w:r><w:t>Hello {full</w:t></w:r><w:r><w:rPr><w:b/></w:rPr><w:t>_na</w:t></w:r><w:r><w:t>me}!</w:t></w:r></w:p>`)

	names, err := Placeholders(tpl)
	require.NoError(t, err)
	assert.Equal(t, []string{"full_name"}, names)

	filled, err := Fill(tpl, map[string]string{"full_name": "Maria Santos"})
	require.NoError(t, err)
	assert.Equal(t, "Hello Maria Santos!", documentText(t, filled))
}

func TestFillDoesNotJoinAcrossParagraphs(t *testing.T) {
	tpl := simpleDocx(t, `<w:p><w:r><w:t>{a</w:t></w:r></w:p><w:p><w:r><w:t>b}</w:t></w:r></w:p>`)

	filled, err := Fill(tpl, map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, "{ab}", documentText(t, filled))
}

func TestFillUnresolvedPlaceholders(t *testing.T) {
	tpl := simpleDocx(t, `<w:p><w:r><w:t>{full_name} {zeta} {alpha}</w:t></w:r></w:p>`)

	_, err := Fill(tpl, map[string]string{"full_name": "Juan"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnresolvedPlaceholders))

	var unresolved *UnresolvedError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, []string{"alpha", "zeta"}, unresolved.Names)
}

func TestFillTreatsEveryBraceTokenAsPlaceholder(t *testing.T) {
	tpl := simpleDocx(t, `<w:p><w:r><w:t>{full name} {Pangalan ñ} {} {</w:t></w:r><w:r><w:t> birth_date }</w:t></w:r></w:p>`)

	names, err := Placeholders(tpl)
	require.NoError(t, err)
	assert.Equal(t, []string{"full name", "Pangalan ñ", "{}", "birth_date"}, names)

	_, err = Fill(tpl, map[string]string{"birth_date": "March 5, 1990"})
	var unresolved *UnresolvedError
	require.True(t, errors.As(err, &unresolved))
	assert.Equal(t, []string{"Pangalan ñ", "full name", "{}"}, unresolved.Names)

	filled, err := Fill(tpl, map[string]string{
		"full name":  "Juan",
		"Pangalan ñ": "Santos",
		"{}":         "-",
		"birth_date": "March 5, 1990",
	})
	require.NoError(t, err)
	text := documentText(t, filled)
	assert.Equal(t, "Juan Santos - March 5, 1990", text)
	assert.NotContains(t, text, "{")
	assert.NotContains(t, text, "}")
}

func TestFillEscapesValuesAndKeepsLineBreaks(t *testing.T) {
	tpl := simpleDocx(t, `<w:p><w:r><w:t>{request_purpose}</w:t></w:r></w:p>`)

	filled, err := Fill(tpl, map[string]string{"request_purpose": "Loan & <bank>\nsecond line"})
	require.NoError(t, err)

	x := documentXML(t, filled)
	assert.Contains(t, x, "Loan &amp; &lt;bank&gt;")
	assert.Contains(t, x, "<w:br/>")
	assert.Contains(t, x, "second line")

	htmlOut, err := ToHTML(filled)
	require.NoError(t, err)
	assert.Contains(t, string(htmlOut), "Loan &amp; &lt;bank&gt;<br/>second line")
}

func TestFillDoesNotRescanSubstitutedValues(t *testing.T) {
	tpl := simpleDocx(t, `<w:p><w:r><w:t>{first_name}</w:t></w:r></w:p>`)

	filled, err := Fill(tpl, map[string]string{"first_name": "{last_name}"})
	require.NoError(t, err)
	assert.Equal(t, "{last_name}", documentText(t, filled))
}

func TestFillHeaderParts(t *testing.T) {
	header := `<?xml version="1.0" encoding="UTF-8"?><w:hdr ` + wNS + `><w:p><w:r><w:t>Issued to {full_name}</w:t></w:r></w:p></w:hdr>`
	tpl := buildDocx(t, map[string][]byte{
		documentPart:       []byte(docXML(`<w:p><w:r><w:t>Body</w:t></w:r></w:p>`)),
		"word/header1.xml": []byte(header),
	})

	filled, err := Fill(tpl, map[string]string{"full_name": "Ana Reyes"})
	require.NoError(t, err)
	c, err := openContainer(filled)
	require.NoError(t, err)
	data, ok := c.get("word/header1.xml")
	require.True(t, ok)
	assert.Contains(t, string(data), "Issued to Ana Reyes")
}

func TestOutputsAreDeterministic(t *testing.T) {
	fields := FieldsFor(testProfile(), testRequest(), issuedAt)
	a, err := Fill(DefaultTemplate(models.TypeCertificateOfResidency), fields)
	require.NoError(t, err)
	b, err := Fill(DefaultTemplate(models.TypeCertificateOfResidency), fields)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	h1, err := ToHTML(a)
	require.NoError(t, err)
	h2, err := ToHTML(b)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	p1, err := ToPDF(h1)
	require.NoError(t, err)
	p2, err := ToPDF(h2)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(p1, []byte("%PDF")))
	assert.Equal(t, p1, p2)
}

func TestPlaceholdersInOrderOfAppearance(t *testing.T) {
	names, err := Placeholders(DefaultTemplate(models.TypeBarangayClearance))
	require.NoError(t, err)
	assert.Equal(t, []string{"date_issued", "full_name", "birth_date", "full_address", "request_purpose"}, names)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(DefaultTemplate(models.TypeBarangayClearance)))
	assert.ErrorIs(t, Validate([]byte("not a zip")), ErrInvalidDocx)

	noDocument := buildDocx(t, map[string][]byte{relsPart: []byte(documentRelsXML)})
	assert.ErrorIs(t, Validate(noDocument), ErrInvalidDocx)
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 30, B: 30, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestImagesAreInlinedAsDataURIs(t *testing.T) {
	rels := `<?xml version="1.0" encoding="UTF-8"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId5" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/image" Target="media/image1.png"/></Relationships>`
	drawing := `<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:drawing><wp:inline><wp:extent cx="952500" cy="476250"/>` +
		`<a:graphic><a:graphicData><a:blip r:embed="rId5"/></a:graphicData></a:graphic></wp:inline></w:drawing></w:r></w:p>` +
		`<w:p><w:r><w:t>{full_name}</w:t></w:r></w:p>`
	tpl := buildDocx(t, map[string][]byte{
		documentPart:            []byte(docXML(drawing)),
		relsPart:                []byte(rels),
		"word/media/image1.png": pngBytes(t, 20, 10),
	})

	images, err := Images(tpl)
	require.NoError(t, err)
	require.Contains(t, images, "word/media/image1.png")
	assert.True(t, strings.HasPrefix(images["word/media/image1.png"], "data:image/png;base64,"))

	filled, err := Fill(tpl, map[string]string{"full_name": "Juan"})
	require.NoError(t, err)
	htmlOut, err := ToHTML(filled)
	require.NoError(t, err)
	s := string(htmlOut)
	assert.Contains(t, s, `src="data:image/png;base64,`)
	assert.Contains(t, s, `width="100"`)
	assert.Contains(t, s, `height="50"`)

	pdf, err := ToPDF(htmlOut)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestToHTMLFormatting(t *testing.T) {
	body := `<w:p><w:pPr><w:jc w:val="right"/></w:pPr><w:r><w:rPr><w:b/></w:rPr><w:t>Bold</w:t></w:r>` +
		`<w:r><w:rPr><w:i/></w:rPr><w:t xml:space="preserve"> italic</w:t></w:r></w:p>` +
		`<w:p/>` +
		`<w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t>Title</w:t></w:r></w:p>` +
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Name</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Value</w:t></w:r></w:p></w:tc></w:tr></w:tbl>`
	htmlOut, err := ToHTML(simpleDocx(t, body))
	require.NoError(t, err)
	s := string(htmlOut)

	assert.Contains(t, s, `<p style="text-align:right"><strong>Bold</strong><em> italic</em></p>`)
	assert.Contains(t, s, `<p><br/></p>`)
	assert.Contains(t, s, `<h1>Title</h1>`)
	assert.Contains(t, s, `<td><p>Name</p></td><td><p>Value</p></td>`)

	pdf, err := ToPDF(htmlOut)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestFieldsFor(t *testing.T) {
	p := testProfile()
	p.StreetNumber, p.StreetName = "", ""
	p.HouseNumber, p.Street = "7", "Mabini"
	fields := FieldsFor(p, testRequest(), time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, "Juan Dela Cruz", fields["full_name"])
	assert.Equal(t, "March 5, 1990", fields["birth_date"])
	assert.Equal(t, "7 Mabini", fields["street_address"])
	assert.Equal(t, "7 Mabini, Bagong Barrio, Caloocan City", fields["full_address"])
	assert.Equal(t, "March 5, 2024", fields["date_issued"])
	assert.Equal(t, "3/5/2024", fields["current_date"])
	assert.Equal(t, "2024", fields["current_year"])
	assert.Equal(t, "Barangay Clearance", fields["document_type"])
}
