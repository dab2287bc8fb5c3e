package render

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif" // register decoders for DecodeConfig
	_ "image/jpeg"
	_ "image/png"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	pdfMargin   = 20.0 // mm
	pdfBaseSize = 12.0 // pt
	ptToMM      = 25.4 / 72
	pxToMM      = 25.4 / 96
	lineFactor  = 1.35
	paraSpacing = 1.5 // mm
)

// pdfEpoch is stamped as creation and modification date.
var pdfEpoch = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

var fontSizeRe = regexp.MustCompile(`font-size:\s*([0-9.]+)pt`)

type inlineStyle struct {
	bold, italic, underline bool
	size                    float64
}

func (s inlineStyle) fontStyle() string {
	var b strings.Builder
	if s.bold {
		b.WriteByte('B')
	}
	if s.italic {
		b.WriteByte('I')
	}
	if s.underline {
		b.WriteByte('U')
	}
	return b.String()
}

// piece is one unbreakable layout item: a word, an image or a forced break.
type piece struct {
	text  string
	style inlineStyle
	space bool // followed by a space
	img   *pdfImage
	br    bool
}

type pdfImage struct {
	name string
	w, h float64 // mm
}

type pdfWriter struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	images map[string]*pdfImage
	width  float64 // usable width in mm
}

// ToPDF lays out HTML produced by ToHTML on A4 pages with 20 mm margins.
// Paragraphs, headings, emphasis, alignment, tables and data URI images are
// supported. Identical input yields identical bytes.
func ToPDF(htmlDoc []byte) ([]byte, error) {
	root, err := html.Parse(bytes.NewReader(htmlDoc))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin)
	pdf.SetCreationDate(pdfEpoch)
	pdf.SetModificationDate(pdfEpoch)
	pdf.SetCatalogSort(true)
	pdf.SetCreator("barangay", false)
	pdf.AddPage()
	pdf.SetFont("Times", "", pdfBaseSize)

	pageW, _ := pdf.GetPageSize()
	w := &pdfWriter{
		pdf:    pdf,
		tr:     pdf.UnicodeTranslatorFromDescriptor(""),
		images: make(map[string]*pdfImage),
		width:  pageW - 2*pdfMargin,
	}
	body := findElement(root, atom.Body)
	if body == nil {
		body = root
	}
	w.blocks(body, pdfMargin, w.width)

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("layout pdf: %w", err)
	}
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if f := findElement(c, a); f != nil {
			return f
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func blockAlign(n *html.Node) string {
	st := attr(n, "style")
	switch {
	case strings.Contains(st, "text-align:center"):
		return "C"
	case strings.Contains(st, "text-align:right"):
		return "R"
	}
	return "L"
}

func headingStyle(a atom.Atom) (inlineStyle, bool) {
	switch a {
	case atom.H1:
		return inlineStyle{bold: true, size: 18}, true
	case atom.H2:
		return inlineStyle{bold: true, size: 15}, true
	case atom.H3:
		return inlineStyle{bold: true, size: 13}, true
	}
	return inlineStyle{size: pdfBaseSize}, false
}

// blocks lays out the block-level children of n inside a column starting at
// x with width colW.
func (w *pdfWriter) blocks(n *html.Node, x, colW float64) {
	var loose []*html.Node
	flush := func() {
		if len(loose) > 0 {
			w.paragraph(loose, inlineStyle{size: pdfBaseSize}, "L", x, colW)
			loose = nil
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			if c.Type == html.TextNode && strings.TrimSpace(c.Data) != "" {
				loose = append(loose, c)
			}
			continue
		}
		switch c.DataAtom {
		case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.Li:
			flush()
			style, _ := headingStyle(c.DataAtom)
			w.paragraph(children(c), style, blockAlign(c), x, colW)
		case atom.Div, atom.Section, atom.Article, atom.Ul, atom.Ol, atom.Tbody:
			flush()
			w.blocks(c, x, colW)
		case atom.Table:
			flush()
			w.table(c, x, colW)
		case atom.Style, atom.Script, atom.Head:
		default:
			loose = append(loose, c)
		}
	}
	flush()
}

func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

// pieces flattens inline nodes into layout pieces.
func (w *pdfWriter) pieces(nodes []*html.Node, style inlineStyle, out []piece) []piece {
	for _, n := range nodes {
		switch n.Type {
		case html.TextNode:
			text := strings.ReplaceAll(n.Data, "\t", "    ")
			words := strings.Fields(text)
			leading := len(text) > 0 && isSpace(text[0])
			if leading && len(out) > 0 {
				out[len(out)-1].space = true
			}
			for i, word := range words {
				trailing := i < len(words)-1 || (len(text) > 0 && isSpace(text[len(text)-1]))
				out = append(out, piece{text: word, style: style, space: trailing})
			}
		case html.ElementNode:
			s := style
			switch n.DataAtom {
			case atom.Br:
				out = append(out, piece{br: true, style: style})
				continue
			case atom.Img:
				if img := w.image(n); img != nil {
					out = append(out, piece{img: img, style: style})
				}
				continue
			case atom.Strong, atom.B:
				s.bold = true
			case atom.Em, atom.I:
				s.italic = true
			case atom.U:
				s.underline = true
			case atom.Span:
				if m := fontSizeRe.FindStringSubmatch(attr(n, "style")); m != nil {
					if v, err := strconv.ParseFloat(m[1], 64); err == nil && v > 0 {
						s.size = v
					}
				}
			}
			out = w.pieces(children(n), s, out)
		}
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\n' || b == '\r' || b == '\t'
}

func (w *pdfWriter) paragraph(nodes []*html.Node, style inlineStyle, align string, x, colW float64) {
	ps := w.pieces(nodes, style, nil)
	pdf := w.pdf
	if len(ps) == 0 {
		return
	}

	var line []piece
	lineW := 0.0
	for _, p := range ps {
		if p.br {
			w.line(line, p.style, align, x, colW)
			line, lineW = nil, 0
			continue
		}
		pw := w.pieceWidth(p)
		if len(line) > 0 && lineW+pw > colW {
			w.line(line, p.style, align, x, colW)
			line, lineW = nil, 0
		}
		line = append(line, p)
		lineW += pw
		if p.space {
			lineW += w.spaceWidth(p.style)
		}
	}
	if len(line) > 0 {
		w.line(line, style, align, x, colW)
	}
	pdf.SetY(pdf.GetY() + paraSpacing)
}

func (w *pdfWriter) setFont(s inlineStyle) {
	w.pdf.SetFont("Times", s.fontStyle(), s.size)
}

func (w *pdfWriter) pieceWidth(p piece) float64 {
	if p.img != nil {
		return p.img.w
	}
	w.setFont(p.style)
	return w.pdf.GetStringWidth(w.tr(p.text))
}

func (w *pdfWriter) spaceWidth(s inlineStyle) float64 {
	w.setFont(s)
	return w.pdf.GetStringWidth(" ")
}

// line draws one laid-out line. An empty line still advances by the height
// of style.
func (w *pdfWriter) line(line []piece, style inlineStyle, align string, x, colW float64) {
	pdf := w.pdf
	height := style.size * ptToMM * lineFactor
	total := 0.0
	for i, p := range line {
		total += w.pieceWidth(p)
		if p.space && i < len(line)-1 {
			total += w.spaceWidth(p.style)
		}
		h := p.style.size * ptToMM * lineFactor
		if p.img != nil {
			h = p.img.h
		}
		if h > height {
			height = h
		}
	}

	_, pageH := pdf.GetPageSize()
	if pdf.GetY()+height > pageH-pdfMargin {
		pdf.AddPage()
	}
	y := pdf.GetY()
	offset := 0.0
	switch align {
	case "C":
		offset = (colW - total) / 2
	case "R":
		offset = colW - total
	}
	if offset < 0 {
		offset = 0
	}
	cx := x + offset
	for i, p := range line {
		if p.img != nil {
			pdf.ImageOptions(p.img.name, cx, y, p.img.w, p.img.h, false, fpdf.ImageOptions{}, 0, "")
			cx += p.img.w
		} else {
			w.setFont(p.style)
			text := w.tr(p.text)
			if p.space && i < len(line)-1 {
				text += " "
			}
			tw := pdf.GetStringWidth(text)
			pdf.SetXY(cx, y+height-p.style.size*ptToMM*lineFactor)
			pdf.CellFormat(tw, p.style.size*ptToMM*lineFactor, text, "", 0, "L", false, 0, "")
			cx += tw
		}
	}
	pdf.SetXY(x, y+height)
}

// image registers the data URI behind an <img> once and returns its size,
// scaled to fit the column. Unsupported formats are skipped.
func (w *pdfWriter) image(n *html.Node) *pdfImage {
	src := attr(n, "src")
	if img, ok := w.images[src]; ok {
		return img
	}
	data, mime, ok := decodeDataURI(src)
	if !ok {
		return nil
	}
	var imageType string
	switch mime {
	case "image/png":
		imageType = "PNG"
	case "image/jpeg":
		imageType = "JPG"
	case "image/gif":
		imageType = "GIF"
	default:
		return nil
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return nil
	}

	name := "img" + strconv.Itoa(len(w.images)+1)
	w.pdf.RegisterImageOptionsReader(name, fpdf.ImageOptions{ImageType: imageType}, bytes.NewReader(data))
	if w.pdf.Err() {
		return nil
	}

	pxW, pxH := float64(cfg.Width), float64(cfg.Height)
	if aw, err := strconv.Atoi(attr(n, "width")); err == nil && aw > 0 {
		if ah, err := strconv.Atoi(attr(n, "height")); err == nil && ah > 0 {
			pxW, pxH = float64(aw), float64(ah)
		}
	}
	img := &pdfImage{name: name, w: pxW * pxToMM, h: pxH * pxToMM}
	if img.w > w.width {
		img.h *= w.width / img.w
		img.w = w.width
	}
	w.images[src] = img
	return img
}

func decodeDataURI(src string) ([]byte, string, bool) {
	rest, ok := strings.CutPrefix(src, "data:")
	if !ok {
		return nil, "", false
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", false
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, "", false
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", false
	}
	return data, mime, true
}

func (w *pdfWriter) table(n *html.Node, x, colW float64) {
	pdf := w.pdf
	var rows []*html.Node
	collectRows(n, &rows)
	_, pageH := pdf.GetPageSize()
	for _, tr := range rows {
		var cells []*html.Node
		for c := tr.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && (c.DataAtom == atom.Td || c.DataAtom == atom.Th) {
				cells = append(cells, c)
			}
		}
		if len(cells) == 0 {
			continue
		}
		cellW := colW / float64(len(cells))
		lineH := pdfBaseSize * ptToMM * lineFactor
		w.setFont(inlineStyle{size: pdfBaseSize})

		texts := make([]string, len(cells))
		rowH := lineH
		for i, c := range cells {
			texts[i] = w.tr(strings.Join(strings.Fields(plainText(c)), " "))
			lines := pdf.SplitText(texts[i], cellW-2)
			if h := float64(max(len(lines), 1)) * lineH; h > rowH {
				rowH = h
			}
		}
		if pdf.GetY()+rowH > pageH-pdfMargin {
			pdf.AddPage()
		}
		y := pdf.GetY()
		for i := range cells {
			cx := x + float64(i)*cellW
			pdf.Rect(cx, y, cellW, rowH, "D")
			pdf.SetXY(cx, y)
			pdf.MultiCell(cellW, lineH, texts[i], "", "L", false)
		}
		pdf.SetXY(x, y+rowH)
	}
	pdf.SetY(pdf.GetY() + paraSpacing)
}

func collectRows(n *html.Node, rows *[]*html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Tr:
			*rows = append(*rows, c)
		case atom.Tbody, atom.Thead, atom.Tfoot:
			collectRows(c, rows)
		}
	}
}

func plainText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && (n.DataAtom == atom.Br || n.DataAtom == atom.P):
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
