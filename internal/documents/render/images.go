package render

import (
	"encoding/base64"
	"encoding/xml"
	"path"
	"strings"
)

const relsPart = "word/_rels/document.xml.rels"

var mimeByExt = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".bmp":  "image/bmp",
	".svg":  "image/svg+xml",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".emf":  "image/emf",
	".wmf":  "image/wmf",
}

func imageMime(name string) string {
	if m, ok := mimeByExt[strings.ToLower(path.Ext(name))]; ok {
		return m
	}
	return "application/octet-stream"
}

func dataURI(name string, data []byte) string {
	return "data:" + imageMime(name) + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// Images returns every embedded media file keyed by its path in the
// container, encoded as a data URI.
func Images(template []byte) (map[string]string, error) {
	c, err := openContainer(template)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string)
	for _, p := range c.parts {
		if strings.HasPrefix(p.name, "word/media/") {
			out[p.name] = dataURI(p.name, p.data)
		}
	}
	return out, nil
}

type relationships struct {
	Items []struct {
		ID         string `xml:"Id,attr"`
		Target     string `xml:"Target,attr"`
		TargetMode string `xml:"TargetMode,attr"`
	} `xml:"Relationship"`
}

// imageTargets maps relationship ids of the main document to media part
// names.
func (c *container) imageTargets() map[string]string {
	out := make(map[string]string)
	data, ok := c.get(relsPart)
	if !ok {
		return out
	}
	var rels relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return out
	}
	for _, r := range rels.Items {
		if strings.EqualFold(r.TargetMode, "External") {
			continue
		}
		target := strings.TrimPrefix(r.Target, "/")
		if !strings.HasPrefix(target, "word/") {
			target = path.Clean(path.Join("word", target))
		}
		out[r.ID] = target
	}
	return out
}
