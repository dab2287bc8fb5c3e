// Package render fills DOCX templates and converts the result to HTML and PDF.
//
// A DOCX file is a zip container of XML parts. Placeholders are written in
// the body text as {name}; Word frequently splits them across several runs,
// so filling merges the text of each paragraph before substituting.
package render

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
)

const documentPart = "word/document.xml"

// zipEpoch is the modification time stamped on every rewritten entry so that
// identical inputs produce identical bytes.
var zipEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

var (
	// ErrInvalidDocx reports bytes that are not a readable DOCX container.
	ErrInvalidDocx = errors.New("invalid docx container")
)

// part is one zip entry held in memory.
type part struct {
	name string
	data []byte
}

type container struct {
	parts []part
	index map[string]int
}

func openContainer(b []byte) (*container, error) {
	zr, err := zip.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocx, err)
	}
	c := &container{index: make(map[string]int, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrInvalidDocx, f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrInvalidDocx, f.Name, err)
		}
		c.index[f.Name] = len(c.parts)
		c.parts = append(c.parts, part{name: f.Name, data: data})
	}
	if _, ok := c.index[documentPart]; !ok {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidDocx, documentPart)
	}
	return c, nil
}

func (c *container) get(name string) ([]byte, bool) {
	i, ok := c.index[name]
	if !ok {
		return nil, false
	}
	return c.parts[i].data, true
}

func (c *container) set(name string, data []byte) {
	if i, ok := c.index[name]; ok {
		c.parts[i].data = data
		return
	}
	c.index[name] = len(c.parts)
	c.parts = append(c.parts, part{name: name, data: data})
}

// textParts returns the XML parts that carry user-visible text, in a stable
// order.
func (c *container) textParts() []string {
	var names []string
	for _, p := range c.parts {
		if isTextPart(p.name) {
			names = append(names, p.name)
		}
	}
	sort.Strings(names)
	return names
}

func isTextPart(name string) bool {
	if name == documentPart {
		return true
	}
	if !strings.HasPrefix(name, "word/") || !strings.HasSuffix(name, ".xml") {
		return false
	}
	base := strings.TrimPrefix(name, "word/")
	if strings.Contains(base, "/") {
		return false
	}
	for _, prefix := range []string{"header", "footer", "footnotes", "endnotes"} {
		if strings.HasPrefix(base, prefix) {
			return true
		}
	}
	return false
}

func (c *container) bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, p := range c.parts {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     p.name,
			Method:   zip.Deflate,
			Modified: zipEpoch,
		})
		if err != nil {
			return nil, fmt.Errorf("create %s: %w", p.name, err)
		}
		if _, err := w.Write(p.data); err != nil {
			return nil, fmt.Errorf("write %s: %w", p.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// Validate reports whether b is a DOCX container with a main document part.
func Validate(b []byte) error {
	_, err := openContainer(b)
	return err
}
