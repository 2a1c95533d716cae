package xml

import (
	"strings"
	"unicode/utf8"

	"github.com/antchfx/xmlquery"
)

// subtrees whose text never shows up in the paragraph text
var opaque = map[string]bool{
	"pPr":              true,
	"rPr":              true,
	"drawing":          true,
	"pict":             true,
	"object":           true,
	"AlternateContent": true,
	"txbxContent":      true,
	"instrText":        true,
}

// IsOpaque reports whether n is a subtree Text never descends into.
func IsOpaque(n *Node) bool {
	return n != nil && n.Type == xmlquery.ElementNode && opaque[n.Data]
}

// IsTextLeaf reports whether n is a w:t or w:delText element.
func IsTextLeaf(n *Node) bool {
	return IsW(n, "t") || IsW(n, "delText")
}

// LeafText returns the character data of a text leaf.
func LeafText(n *Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.TextNode || c.Type == xmlquery.CharDataNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

// SetLeafText replaces the content of a text leaf and keeps surrounding
// whitespace significant.
func SetLeafText(n *Node, s string) {
	RemoveChildren(n)
	if s != "" {
		AppendChild(n, NewText(s))
	}
	if strings.TrimSpace(s) != s {
		SetAttr(n, NSXML, "space", "preserve")
	}
}

// Text concatenates the literal text leaves below n in document order.
func Text(n *Node) string {
	var b strings.Builder
	walkText(n, func(leaf *Node) {
		b.WriteString(LeafText(leaf))
	})
	return b.String()
}

// TextLength is the number of characters in Text(n).
func TextLength(n *Node) int {
	total := 0
	walkText(n, func(leaf *Node) {
		total += utf8.RuneCountInString(LeafText(leaf))
	})
	return total
}

// TextLeaves returns the text leaves below n in document order.
func TextLeaves(n *Node) []*Node {
	var out []*Node
	walkText(n, func(leaf *Node) {
		out = append(out, leaf)
	})
	return out
}

func walkText(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	if IsTextLeaf(n) {
		fn(n)
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != xmlquery.ElementNode || opaque[c.Data] {
			continue
		}
		walkText(c, fn)
	}
}

// SliceRunes returns s[from:to] measured in runes.
func SliceRunes(s string, from, to int) string {
	r := []rune(s)
	if from < 0 {
		from = 0
	}
	if to > len(r) {
		to = len(r)
	}
	if from >= to {
		return ""
	}
	return string(r[from:to])
}
