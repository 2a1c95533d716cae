package xml

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Header is the declaration written in front of every serialized part.
const Header = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\r\n"

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\n", "&#xA;", "\r", "&#xD;", "\t", "&#x9;")
)

// Parse parses part bytes into a DOM.
func Parse(data []byte) (*Node, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}
	if Root(doc) == nil {
		return nil, fmt.Errorf("parsing XML: no document element")
	}
	return doc, nil
}

// Serialize writes a parsed part back to bytes, declaration included.
func Serialize(doc *Node) []byte {
	var buf bytes.Buffer
	buf.WriteString(Header)
	if doc == nil {
		return buf.Bytes()
	}
	if doc.Type == xmlquery.DocumentNode {
		for c := doc.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == xmlquery.TextNode {
				continue
			}
			writeNode(&buf, c)
		}
	} else {
		writeNode(&buf, doc)
	}
	return buf.Bytes()
}

// Fragment serializes a single node without a declaration.
func Fragment(n *Node) string {
	var buf bytes.Buffer
	writeNode(&buf, n)
	return buf.String()
}

func writeNode(w *bytes.Buffer, n *Node) {
	switch n.Type {
	case xmlquery.DeclarationNode:
		// replaced by Header
	case xmlquery.ElementNode:
		name := qualified(n.Prefix, n.Data)
		w.WriteString("<")
		w.WriteString(name)
		for _, a := range n.Attr {
			w.WriteString(" ")
			w.WriteString(attrName(a))
			w.WriteString(`="`)
			w.WriteString(attrEscaper.Replace(a.Value))
			w.WriteString(`"`)
		}
		if n.FirstChild == nil {
			w.WriteString("/>")
			return
		}
		w.WriteString(">")
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			writeNode(w, c)
		}
		w.WriteString("</")
		w.WriteString(name)
		w.WriteString(">")
	case xmlquery.TextNode:
		w.WriteString(textEscaper.Replace(n.Data))
	case xmlquery.CharDataNode:
		w.WriteString("<![CDATA[")
		w.WriteString(n.Data)
		w.WriteString("]]>")
	case xmlquery.CommentNode:
		w.WriteString("<!--")
		w.WriteString(n.Data)
		w.WriteString("-->")
	}
}

func qualified(prefix, local string) string {
	if prefix == "" {
		return local
	}
	if isURI(prefix) {
		prefix = PrefixFor(prefix)
	}
	return prefix + ":" + local
}

func attrName(a xmlquery.Attr) string {
	switch {
	case a.Name.Space == "":
		return a.Name.Local
	case a.Name.Space == "xmlns":
		return "xmlns:" + a.Name.Local
	case isURI(a.Name.Space):
		return PrefixFor(a.Name.Space) + ":" + a.Name.Local
	default:
		return a.Name.Space + ":" + a.Name.Local
	}
}
