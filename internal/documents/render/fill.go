package render

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrUnresolvedPlaceholders is returned when a template references a name
// that the data does not provide.
var ErrUnresolvedPlaceholders = errors.New("unresolved placeholders")

// UnresolvedError lists the placeholder names that had no value.
type UnresolvedError struct {
	Names []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrUnresolvedPlaceholders, strings.Join(e.Names, ", "))
}

func (e *UnresolvedError) Unwrap() error { return ErrUnresolvedPlaceholders }

var (
	placeholderRe = regexp.MustCompile(`\{([^{}]*)\}`)
	textNodeRe    = regexp.MustCompile(`(?s)(<w:t(?:\s[^>/]*)?>)(.*?)(</w:t>)`)
	paragraphEnd  = []byte("</w:p>")

	xmlEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
)

const (
	preserveOpen = `<w:t xml:space="preserve">`
	lineBreak    = `</w:t><w:br/>` + preserveOpen
)

// Placeholders lists the distinct placeholder names in the template, in
// order of first appearance.
func Placeholders(template []byte) ([]string, error) {
	c, err := openContainer(template)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var names []string
	for _, name := range c.textParts() {
		data, _ := c.get(name)
		rewriteParagraphs(data, func(texts []string) []string {
			for _, m := range placeholderRe.FindAllStringSubmatch(strings.Join(texts, ""), -1) {
				key := placeholderKey(m[0], m[1])
				if !seen[key] {
					seen[key] = true
					names = append(names, key)
				}
			}
			return texts
		})
	}
	return names, nil
}

// Fill replaces every {name} in the template's text parts with the
// XML-escaped value from data. Any brace pair within a paragraph is a
// placeholder, so no brace token survives a successful fill. Newlines in values become line breaks.
// Substituted values are not scanned again. Any name missing from data fails
// the whole fill with an *UnresolvedError.
func Fill(template []byte, data map[string]string) ([]byte, error) {
	c, err := openContainer(template)
	if err != nil {
		return nil, err
	}
	missing := make(map[string]bool)
	for _, name := range c.textParts() {
		src, _ := c.get(name)
		out := rewriteParagraphs(src, func(texts []string) []string {
			for i, t := range texts {
				texts[i] = placeholderRe.ReplaceAllStringFunc(t, func(token string) string {
					key := placeholderKey(token, placeholderRe.FindStringSubmatch(token)[1])
					v, ok := data[key]
					if !ok {
						missing[key] = true
						return token
					}
					return escapeValue(v)
				})
			}
			return texts
		})
		c.set(name, out)
	}
	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for n := range missing {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, &UnresolvedError{Names: names}
	}
	return c.bytes()
}

// placeholderKey is the trimmed name inside a brace token. A token with a
// blank name is reported as written.
func placeholderKey(token, inner string) string {
	if key := strings.TrimSpace(inner); key != "" {
		return key
	}
	return token
}

func escapeValue(v string) string {
	v = strings.ReplaceAll(v, "\r\n", "\n")
	lines := strings.Split(v, "\n")
	for i, l := range lines {
		lines[i] = xmlEscaper.Replace(l)
	}
	return strings.Join(lines, lineBreak)
}

type textNode struct {
	start, end int // whole match
	open       string
	text       string
	close      string
	paragraph  int
}

// rewriteParagraphs groups the <w:t> nodes of each paragraph, lets fn
// rewrite their contents after split placeholders have been merged, and
// reassembles the XML. Paragraph membership is decided by the closing
// </w:p> tags between nodes.
func rewriteParagraphs(src []byte, fn func(texts []string) []string) []byte {
	matches := textNodeRe.FindAllSubmatchIndex(src, -1)
	if len(matches) == 0 {
		return src
	}
	nodes := make([]textNode, len(matches))
	para := 0
	prevEnd := 0
	for i, m := range matches {
		para += bytes.Count(src[prevEnd:m[0]], paragraphEnd)
		nodes[i] = textNode{
			start:     m[0],
			end:       m[1],
			open:      string(src[m[2]:m[3]]),
			text:      string(src[m[4]:m[5]]),
			close:     string(src[m[6]:m[7]]),
			paragraph: para,
		}
		prevEnd = m[1]
	}

	for lo := 0; lo < len(nodes); {
		hi := lo
		for hi < len(nodes) && nodes[hi].paragraph == nodes[lo].paragraph {
			hi++
		}
		group := nodes[lo:hi]
		texts := make([]string, len(group))
		for i := range group {
			texts[i] = group[i].text
		}
		texts = mergeSplitPlaceholders(texts)
		texts = fn(texts)
		for i := range group {
			if texts[i] != group[i].text {
				group[i].text = texts[i]
				group[i].open = preserveOpen
			}
		}
		lo = hi
	}

	var b strings.Builder
	b.Grow(len(src))
	prev := 0
	for _, n := range nodes {
		b.Write(src[prev:n.start])
		b.WriteString(n.open)
		b.WriteString(n.text)
		b.WriteString(n.close)
		prev = n.end
	}
	b.Write(src[prev:])
	return []byte(b.String())
}

// mergeSplitPlaceholders moves the characters of any placeholder that spans
// several nodes into the node where it starts. The concatenated text is
// unchanged.
func mergeSplitPlaceholders(texts []string) []string {
	for {
		joined, starts := joinWithOffsets(texts)
		moved := false
		for _, loc := range placeholderRe.FindAllStringIndex(joined, -1) {
			i := nodeAt(starts, loc[0])
			j := nodeAt(starts, loc[1]-1)
			if i == j {
				continue
			}
			endOff := loc[1] - starts[j]
			var b strings.Builder
			b.WriteString(texts[i])
			for k := i + 1; k < j; k++ {
				b.WriteString(texts[k])
				texts[k] = ""
			}
			b.WriteString(texts[j][:endOff])
			texts[i] = b.String()
			texts[j] = texts[j][endOff:]
			moved = true
			break
		}
		if !moved {
			return texts
		}
	}
}

func joinWithOffsets(texts []string) (string, []int) {
	starts := make([]int, len(texts))
	var b strings.Builder
	for i, t := range texts {
		starts[i] = b.Len()
		b.WriteString(t)
	}
	return b.String(), starts
}

// nodeAt returns the index of the node containing byte offset off.
func nodeAt(starts []int, off int) int {
	i := sort.Search(len(starts), func(k int) bool { return starts[k] > off })
	return i - 1
}
