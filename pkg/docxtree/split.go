package docxtree

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/benjaminschreck/go-docxtree/pkg/docxtree/xml"
)

// splittable elements are cut in two when the split offset falls inside
// them. Everything else with text is atomic.
var splittable = map[string]bool{
	"r":          true,
	"ins":        true,
	"del":        true,
	"moveFrom":   true,
	"moveTo":     true,
	"hyperlink":  true,
	"smartTag":   true,
	"customXml":  true,
	"dir":        true,
	"bdo":        true,
	"sdt":        true,
	"sdtContent": true,
}

// revision wrappers carry a w:id that must stay unique per document
var revisionWrappers = map[string]bool{
	"ins":      true,
	"del":      true,
	"moveFrom": true,
	"moveTo":   true,
}

// SplitParagraph cuts p at offset, counted in characters from the start of
// p's text, and returns the two halves as new detached paragraphs. p itself
// is not modified. An offset of 0 returns (nil, p) and an offset equal to
// the text length returns (p, nil).
//
// Runs are cut at the character boundary with their properties copied to
// both halves. Tracked insertions, deletions, moves, hyperlinks and smart
// tags and inline content controls are split recursively; the right copy of a revision gets a fresh
// w:id. Zero-length elements at the cut go to the right half, except range
// ends (bookmarkEnd, commentRangeEnd, ...) which stay on the left.
func SplitParagraph(p *Paragraph, offset int) (left, right *Paragraph, err error) {
	length := p.TextLength()
	if offset < 0 || offset > length {
		return nil, nil, NewDocumentError("split paragraph", p.ID(), fmt.Errorf("%w: %d of %d", ErrOffsetOutOfRange, offset, length))
	}
	if offset == 0 {
		return nil, p, nil
	}
	if offset == length {
		return p, nil, nil
	}

	s := &splitter{nextRevision: maxRevisionID(p.Node()) + 1}
	l, r, err := s.split(p.Node(), offset)
	if err != nil {
		return nil, nil, NewDocumentError("split paragraph", p.ID(), err)
	}

	xml.RemoveAttr(r, xml.NSW14, "paraId")
	xml.RemoveAttr(r, xml.NSW14, "textId")

	if hasContent(l) {
		left = p.doc.wrap(l, nil).(*Paragraph)
	}
	if hasContent(r) {
		right = p.doc.wrap(r, nil).(*Paragraph)
	}
	p.doc.log.Debug("split paragraph %s at %d of %d", p.ID(), offset, length)
	return left, right, nil
}

type splitter struct {
	nextRevision int
}

// split divides n at offset k, 0 < k < TextLength(n).
func (s *splitter) split(n *xml.Node, k int) (*xml.Node, *xml.Node, error) {
	if xml.IsTextLeaf(n) {
		return splitLeaf(n, k)
	}
	if !xml.IsW(n, n.Data) || !(splittable[n.Data] || xml.IsW(n, "p")) {
		return nil, nil, fmt.Errorf("%w: cannot split <%s> at offset %d", ErrOffsetOutOfRange, n.Data, k)
	}

	l, r := xml.ShallowClone(n), xml.ShallowClone(n)
	if revisionWrappers[n.Data] {
		xml.SetAttr(r, xml.NSW, "id", strconv.Itoa(s.nextRevision))
		s.nextRevision++
	}

	pos := 0
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if isPropertiesNode(c) {
			xml.AppendChild(l, xml.Clone(c))
			xml.AppendChild(r, xml.Clone(c))
			continue
		}
		if !xml.IsElement(c) {
			if pos < k {
				xml.AppendChild(l, xml.Clone(c))
			} else {
				xml.AppendChild(r, xml.Clone(c))
			}
			continue
		}

		length := unitLength(c)
		switch {
		case length == 0 && pos == k:
			if strings.HasSuffix(c.Data, "End") {
				xml.AppendChild(l, xml.Clone(c))
			} else {
				xml.AppendChild(r, xml.Clone(c))
			}
		case pos+length <= k:
			xml.AppendChild(l, xml.Clone(c))
		case pos >= k:
			xml.AppendChild(r, xml.Clone(c))
		default:
			cl, cr, err := s.split(c, k-pos)
			if err != nil {
				return nil, nil, err
			}
			xml.AppendChild(l, cl)
			xml.AppendChild(r, cr)
		}
		pos += length
	}
	return l, r, nil
}

func splitLeaf(n *xml.Node, k int) (*xml.Node, *xml.Node, error) {
	text := xml.LeafText(n)
	l, r := xml.ShallowClone(n), xml.ShallowClone(n)
	xml.SetLeafText(l, xml.SliceRunes(text, 0, k))
	xml.SetLeafText(r, xml.SliceRunes(text, k, len(text)))
	return l, r, nil
}

func unitLength(n *xml.Node) int {
	if xml.IsOpaque(n) {
		return 0
	}
	return xml.TextLength(n)
}

// isPropertiesNode reports whether n is a property element (pPr, rPr,
// smartTagPr, ...) that both halves of a split inherit.
func isPropertiesNode(n *xml.Node) bool {
	return xml.IsElement(n) && strings.HasSuffix(n.Data, "Pr") && xml.IsW(n, n.Data)
}

// hasContent reports whether a split half holds anything besides properties.
func hasContent(p *xml.Node) bool {
	for _, c := range xml.Children(p) {
		if !isPropertiesNode(c) {
			return true
		}
	}
	return false
}

// maxRevisionID scans the tree n belongs to for the highest numeric w:id.
func maxRevisionID(n *xml.Node) int {
	top := n
	for top.Parent != nil {
		top = top.Parent
	}
	highest := 0
	var walk func(*xml.Node)
	walk = func(cur *xml.Node) {
		if xml.IsElement(cur) {
			if v, ok := xml.Attr(cur, xml.NSW, "id"); ok {
				if id, err := strconv.Atoi(v); err == nil && id > highest {
					highest = id
				}
			}
		}
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(top)
	return highest
}
