package docxtree

import (
	"fmt"
	"strconv"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/benjaminschreck/go-docxtree/pkg/docxtree/xml"
)

var (
	styleExpr        = xpath.MustCompile("/*[local-name()='styles']/*[local-name()='style']")
	defaultParaStyle = xpath.MustCompile("/*[local-name()='styles']/*[local-name()='style'][@*[local-name()='type']='paragraph'][@*[local-name()='default']='1' or @*[local-name()='default']='true']")
)

// maxStyleDepth bounds basedOn chains so a cyclic chain terminates.
const maxStyleDepth = 32

// Styles gives access to the style definitions of the styles part.
type Styles struct {
	part *Part
	doc  *xml.Node
}

// Styles loads the styles part. It returns nil without error when the
// document has none.
func (d *Document) Styles() (*Styles, error) {
	related := d.store.Related(d.store.MainPart(), RelStyles)
	if len(related) == 0 {
		return nil, nil
	}
	doc, err := related[0].Document()
	if err != nil {
		return nil, err
	}
	return &Styles{part: related[0], doc: doc}, nil
}

// Part returns the styles part.
func (s *Styles) Part() *Part {
	return s.part
}

// Style returns the w:style element with the given id, or nil.
func (s *Styles) Style(id string) *xml.Node {
	if s == nil || id == "" {
		return nil
	}
	for _, n := range xmlquery.QuerySelectorAll(s.doc, styleExpr) {
		if v, _ := xml.Attr(n, xml.NSW, "styleId"); v == id {
			return n
		}
	}
	return nil
}

// StyleIDs lists every style id in document order.
func (s *Styles) StyleIDs() []string {
	if s == nil {
		return nil
	}
	var out []string
	for _, n := range xmlquery.QuerySelectorAll(s.doc, styleExpr) {
		if v, ok := xml.Attr(n, xml.NSW, "styleId"); ok {
			out = append(out, v)
		}
	}
	return out
}

// DefaultParagraphStyle returns the id of the default paragraph style.
func (s *Styles) DefaultParagraphStyle() string {
	if s == nil {
		return ""
	}
	n := xmlquery.QuerySelector(s.doc, defaultParaStyle)
	if n == nil {
		return ""
	}
	id, _ := xml.Attr(n, xml.NSW, "styleId")
	return id
}

// BasedOn returns the parent style id of a style.
func (s *Styles) BasedOn(id string) string {
	parent, _ := xml.WVal(s.Style(id), "basedOn")
	return parent
}

// styleNumbering finds the numPr a style carries, following basedOn. numID
// is -1 when no style in the chain declares one.
func (s *Styles) styleNumbering(id string) (numID, level int, hasLevel bool) {
	numID = -1
	seen := make(map[string]bool)
	for depth := 0; id != "" && depth < maxStyleDepth && !seen[id]; depth++ {
		seen[id] = true
		style := s.Style(id)
		if style == nil {
			break
		}
		numPr := xml.FirstChild(xml.FirstChild(style, xml.NSW, "pPr"), xml.NSW, "numPr")
		if numPr != nil {
			if !hasLevel {
				level, hasLevel = intVal(numPr, "ilvl")
			}
			if v, ok := intVal(numPr, "numId"); ok {
				return v, level, hasLevel
			}
		}
		id = s.BasedOn(id)
	}
	return numID, level, hasLevel
}

// AddParagraphStyle adds a paragraph style. An existing style with the same
// id is returned unchanged.
func (s *Styles) AddParagraphStyle(id, name, basedOn string) (*xml.Node, error) {
	if s == nil {
		return nil, NewDocumentError("add style", id, fmt.Errorf("%w: styles part", ErrNotFound))
	}
	if existing := s.Style(id); existing != nil {
		return existing, nil
	}
	style := xml.W("style", "type", "paragraph", "styleId", id)
	xml.AppendChild(style, xml.W("name", "val", name))
	if basedOn != "" {
		xml.AppendChild(style, xml.W("basedOn", "val", basedOn))
	}
	xml.AppendChild(style, xml.W("qFormat"))
	xml.AppendChild(xml.Root(s.doc), style)
	return style, nil
}

// SetStyleNumbering makes every paragraph of style id a list item of numID
// at level.
func (s *Styles) SetStyleNumbering(id string, numID, level int) error {
	style := s.Style(id)
	if style == nil {
		return NewDocumentError("set style numbering", id, ErrNotFound)
	}
	pPr := xml.FirstChild(style, xml.NSW, "pPr")
	if pPr == nil {
		pPr = xml.W("pPr")
		xml.AppendChild(style, pPr)
	}
	setNumPr(pPr, numID, level)
	return nil
}

func intVal(n *xml.Node, local string) (int, bool) {
	v, ok := xml.WVal(n, local)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}

func intAttr(n *xml.Node, local string) (int, bool) {
	v, ok := xml.Attr(n, xml.NSW, local)
	if !ok {
		return 0, false
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return i, true
}
