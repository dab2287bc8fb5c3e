package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// emuPerPixel converts drawing extents (EMU) to CSS pixels at 96 dpi.
const emuPerPixel = 9525

type block interface{ isBlock() }

type paragraph struct {
	align string
	style string
	runs  []run
}

type run struct {
	text      string
	bold      bool
	italic    bool
	underline bool
	size      int // half-points
	br        bool
	image     *inlineImage
}

type inlineImage struct {
	part          string
	width, height int // px, zero when unknown
}

type table struct {
	rows [][][]block
}

func (*paragraph) isBlock() {}
func (*table) isBlock()     {}

type valAttr struct {
	Val string `xml:"val,attr"`
}

func (v *valAttr) on() bool {
	if v == nil {
		return false
	}
	switch strings.ToLower(v.Val) {
	case "false", "0", "off", "none":
		return false
	}
	return true
}

type paragraphProps struct {
	Jc     *valAttr `xml:"jc"`
	PStyle *valAttr `xml:"pStyle"`
}

type runProps struct {
	B  *valAttr `xml:"b"`
	I  *valAttr `xml:"i"`
	U  *valAttr `xml:"u"`
	Sz *valAttr `xml:"sz"`
}

// ToHTML converts a filled DOCX into a standalone HTML document. Images are
// inlined as data URIs. The output depends only on the input bytes.
func ToHTML(docx []byte) ([]byte, error) {
	c, err := openContainer(docx)
	if err != nil {
		return nil, err
	}
	data, _ := c.get(documentPart)
	blocks, err := parseBody(xml.NewDecoder(bytes.NewReader(data)))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}

	b := &htmlBuilder{c: c, targets: c.imageTargets()}
	doc := b.document(blocks)
	var buf bytes.Buffer
	buf.WriteString("<!DOCTYPE html>\n")
	if err := html.Render(&buf, doc); err != nil {
		return nil, fmt.Errorf("render html: %w", err)
	}
	return buf.Bytes(), nil
}

func parseBody(dec *xml.Decoder) ([]block, error) {
	var blocks []block
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return blocks, nil
		}
		if err != nil {
			return nil, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "p":
			p, err := parseParagraph(dec)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, p)
		case "tbl":
			t, err := parseTable(dec)
			if err != nil {
				return nil, err
			}
			blocks = append(blocks, t)
		case "sectPr":
			if err := dec.Skip(); err != nil {
				return nil, err
			}
		}
	}
}

func parseParagraph(dec *xml.Decoder) (*paragraph, error) {
	p := &paragraph{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "p" {
				return p, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr":
				var props paragraphProps
				if err := dec.DecodeElement(&props, &t); err != nil {
					return nil, err
				}
				if props.Jc != nil {
					p.align = props.Jc.Val
				}
				if props.PStyle != nil {
					p.style = props.PStyle.Val
				}
			case "r":
				runs, err := parseRun(dec)
				if err != nil {
					return nil, err
				}
				p.runs = append(p.runs, runs...)
			case "del", "moveFrom":
				if err := dec.Skip(); err != nil {
					return nil, err
				}
			}
		}
	}
}

func parseRun(dec *xml.Decoder) ([]run, error) {
	var (
		props runProps
		out   []run
	)
	base := func() run {
		r := run{
			bold:      props.B.on(),
			italic:    props.I.on(),
			underline: props.U.on(),
		}
		if props.Sz != nil {
			r.size, _ = strconv.Atoi(props.Sz.Val)
		}
		return r
	}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == "r" {
				return out, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "rPr":
				if err := dec.DecodeElement(&props, &t); err != nil {
					return nil, err
				}
			case "t":
				var s string
				if err := dec.DecodeElement(&s, &t); err != nil {
					return nil, err
				}
				r := base()
				r.text = s
				out = append(out, r)
			case "tab":
				r := base()
				r.text = "\t"
				out = append(out, r)
			case "br", "cr":
				r := base()
				r.br = true
				out = append(out, r)
			case "drawing", "pict":
				img, err := parseDrawing(dec, t.Name.Local)
				if err != nil {
					return nil, err
				}
				if img != nil {
					r := base()
					r.image = img
					out = append(out, r)
				}
			case "Fallback":
				if err := dec.Skip(); err != nil {
					return nil, err
				}
			}
		}
	}
}

// parseDrawing reads a DrawingML or VML image up to the closing tag named
// end and returns the referenced relationship and extent.
func parseDrawing(dec *xml.Decoder, end string) (*inlineImage, error) {
	var img *inlineImage
	var w, h int
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.EndElement:
			if t.Name.Local == end {
				if img != nil {
					img.width, img.height = w, h
				}
				return img, nil
			}
		case xml.StartElement:
			switch t.Name.Local {
			case "extent":
				for _, a := range t.Attr {
					v, _ := strconv.Atoi(a.Value)
					switch a.Name.Local {
					case "cx":
						w = v / emuPerPixel
					case "cy":
						h = v / emuPerPixel
					}
				}
			case "blip", "imagedata":
				for _, a := range t.Attr {
					if (a.Name.Local == "embed" || a.Name.Local == "id") && a.Value != "" && img == nil {
						img = &inlineImage{part: a.Value}
					}
				}
			}
		}
	}
}

func parseTable(dec *xml.Decoder) (*table, error) {
	t := &table{}
	for {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		switch e := tok.(type) {
		case xml.EndElement:
			if e.Name.Local == "tbl" {
				return t, nil
			}
		case xml.StartElement:
			switch e.Name.Local {
			case "tr":
				t.rows = append(t.rows, nil)
			case "tc":
				if len(t.rows) == 0 {
					t.rows = append(t.rows, nil)
				}
				last := len(t.rows) - 1
				t.rows[last] = append(t.rows[last], nil)
			case "p", "tbl":
				var b block
				if e.Name.Local == "p" {
					b, err = parseParagraph(dec)
				} else {
					b, err = parseTable(dec)
				}
				if err != nil {
					return nil, err
				}
				row := len(t.rows) - 1
				if row < 0 || len(t.rows[row]) == 0 {
					continue
				}
				cell := len(t.rows[row]) - 1
				t.rows[row][cell] = append(t.rows[row][cell], b)
			case "tblPr", "tblGrid", "trPr", "tcPr":
				if err := dec.Skip(); err != nil {
					return nil, err
				}
			}
		}
	}
}

type htmlBuilder struct {
	c       *container
	targets map[string]string
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func htmlText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

func (b *htmlBuilder) document(blocks []block) *html.Node {
	root := &html.Node{Type: html.DocumentNode}
	htmlEl := element(atom.Html)
	head := element(atom.Head)
	head.AppendChild(element(atom.Meta, html.Attribute{Key: "charset", Val: "utf-8"}))
	style := element(atom.Style)
	style.AppendChild(htmlText("body{font-family:'Times New Roman',serif;font-size:12pt;margin:20mm}p{margin:0 0 4pt 0}table{border-collapse:collapse}td{border:1px solid #000;padding:2pt 4pt;vertical-align:top}"))
	head.AppendChild(style)
	body := element(atom.Body)
	for _, bl := range blocks {
		body.AppendChild(b.block(bl))
	}
	htmlEl.AppendChild(head)
	htmlEl.AppendChild(body)
	root.AppendChild(htmlEl)
	return root
}

func (b *htmlBuilder) block(bl block) *html.Node {
	switch v := bl.(type) {
	case *table:
		return b.table(v)
	case *paragraph:
		return b.paragraph(v)
	}
	return element(atom.P)
}

func (b *htmlBuilder) table(t *table) *html.Node {
	tbl := element(atom.Table)
	tbody := element(atom.Tbody)
	for _, row := range t.rows {
		tr := element(atom.Tr)
		for _, cell := range row {
			td := element(atom.Td)
			for _, bl := range cell {
				td.AppendChild(b.block(bl))
			}
			tr.AppendChild(td)
		}
		tbody.AppendChild(tr)
	}
	tbl.AppendChild(tbody)
	return tbl
}

func headingFor(p *paragraph) atom.Atom {
	switch strings.ToLower(p.style) {
	case "title", "heading1":
		return atom.H1
	case "heading2":
		return atom.H2
	case "heading3":
		return atom.H3
	}
	maxSize := 0
	hasText := false
	for _, r := range p.runs {
		if strings.TrimSpace(r.text) == "" {
			continue
		}
		hasText = true
		if r.size > maxSize {
			maxSize = r.size
		}
	}
	switch {
	case !hasText:
		return atom.P
	case maxSize >= 32:
		return atom.H1
	case maxSize >= 28:
		return atom.H2
	}
	return atom.P
}

func cssAlign(jc string) string {
	switch jc {
	case "center":
		return "center"
	case "right", "end":
		return "right"
	case "both", "distribute":
		return "justify"
	}
	return ""
}

func (b *htmlBuilder) paragraph(p *paragraph) *html.Node {
	var attrs []html.Attribute
	if a := cssAlign(p.align); a != "" {
		attrs = append(attrs, html.Attribute{Key: "style", Val: "text-align:" + a})
	}
	el := element(headingFor(p), attrs...)
	for _, r := range mergeRuns(p.runs) {
		if n := b.run(r); n != nil {
			el.AppendChild(n)
		}
	}
	if el.FirstChild == nil {
		el.AppendChild(element(atom.Br))
	}
	return el
}

// mergeRuns joins adjacent text runs that share formatting.
func mergeRuns(runs []run) []run {
	var out []run
	for _, r := range runs {
		if n := len(out); n > 0 && r.image == nil && !r.br && out[n-1].image == nil && !out[n-1].br &&
			out[n-1].bold == r.bold && out[n-1].italic == r.italic && out[n-1].underline == r.underline && out[n-1].size == r.size {
			out[n-1].text += r.text
			continue
		}
		out = append(out, r)
	}
	return out
}

func (b *htmlBuilder) run(r run) *html.Node {
	if r.br {
		return element(atom.Br)
	}
	if r.image != nil {
		return b.image(r.image)
	}
	if r.text == "" {
		return nil
	}
	n := htmlText(r.text)
	if r.size > 0 && r.size != 24 {
		span := element(atom.Span, html.Attribute{Key: "style", Val: "font-size:" + strconv.FormatFloat(float64(r.size)/2, 'f', -1, 64) + "pt"})
		span.AppendChild(n)
		n = span
	}
	for _, w := range []struct {
		on bool
		a  atom.Atom
	}{{r.underline, atom.U}, {r.italic, atom.Em}, {r.bold, atom.Strong}} {
		if w.on {
			el := element(w.a)
			el.AppendChild(n)
			n = el
		}
	}
	return n
}

func (b *htmlBuilder) image(img *inlineImage) *html.Node {
	target, ok := b.targets[img.part]
	if !ok {
		return nil
	}
	data, ok := b.c.get(target)
	if !ok {
		return nil
	}
	attrs := []html.Attribute{
		{Key: "src", Val: dataURI(target, data)},
		{Key: "alt", Val: strings.TrimPrefix(target, "word/media/")},
	}
	if img.width > 0 && img.height > 0 {
		attrs = append(attrs,
			html.Attribute{Key: "width", Val: strconv.Itoa(img.width)},
			html.Attribute{Key: "height", Val: strconv.Itoa(img.height)},
		)
	}
	return element(atom.Img, attrs...)
}
