package docxtree

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/antchfx/xmlquery"
	"github.com/antchfx/xpath"

	"github.com/benjaminschreck/go-docxtree/pkg/docxtree/xml"
)

var (
	numExpr         = xpath.MustCompile("/*[local-name()='numbering']/*[local-name()='num']")
	abstractNumExpr = xpath.MustCompile("/*[local-name()='numbering']/*[local-name()='abstractNum']")
	numRefExpr      = xpath.MustCompile("//*[local-name()='numPr']/*[local-name()='numId']")
)

// NumberingLevel is one indent level of a NumberingStyle.
type NumberingLevel struct {
	Level  int
	Format string // decimal, bullet, lowerLetter, ...
	Text   string // e.g. "%1." or "•"
	Start  int
}

// NumberingStyle is a reusable list template (w:abstractNum).
type NumberingStyle struct {
	ID     int
	Levels []NumberingLevel
}

// NumberingDefinition binds a document-unique id to a NumberingStyle
// (w:num), with optional per-level start overrides.
type NumberingDefinition struct {
	ID             int
	StyleID        int
	StartOverrides map[int]int
}

// NumberingRef is the list membership of a paragraph.
type NumberingRef struct {
	NumID int
	Level int
}

func (r NumberingRef) String() string {
	return fmt.Sprintf("(%d, %d)", r.NumID, r.Level)
}

// Numbering gives access to the numbering part.
type Numbering struct {
	part *Part
	doc  *xml.Node
}

// Numbering loads the numbering part. It returns nil without error when
// the document has none; lookups on a nil Numbering fail with
// ErrUndefinedNumbering.
func (d *Document) Numbering() (*Numbering, error) {
	related := d.store.Related(d.store.MainPart(), RelNumbering)
	if len(related) == 0 {
		return nil, nil
	}
	doc, err := related[0].Document()
	if err != nil {
		return nil, err
	}
	return &Numbering{part: related[0], doc: doc}, nil
}

func (d *Document) numberingOrCreate() (*Numbering, error) {
	part, _, err := d.store.GetOrCreatePart(NumberingPart, d.store.MainPart())
	if err != nil {
		return nil, err
	}
	doc, err := part.Document()
	if err != nil {
		return nil, err
	}
	return &Numbering{part: part, doc: doc}, nil
}

func (n *Numbering) partName() string {
	if n == nil {
		return ""
	}
	return n.part.Name
}

func (n *Numbering) undefined(format string, args ...interface{}) error {
	return NewFormatError(n.partName(), fmt.Sprintf(format, args...), ErrUndefinedNumbering)
}

func (n *Numbering) num(numID int) *xml.Node {
	if n == nil {
		return nil
	}
	for _, num := range xmlquery.QuerySelectorAll(n.doc, numExpr) {
		if id, ok := intAttr(num, "numId"); ok && id == numID {
			return num
		}
	}
	return nil
}

func (n *Numbering) abstractNum(abstractID int) *xml.Node {
	if n == nil {
		return nil
	}
	for _, a := range xmlquery.QuerySelectorAll(n.doc, abstractNumExpr) {
		if id, ok := intAttr(a, "abstractNumId"); ok && id == abstractID {
			return a
		}
	}
	return nil
}

// Definition returns the numbering definition numID.
func (n *Numbering) Definition(numID int) (NumberingDefinition, error) {
	num := n.num(numID)
	if num == nil {
		return NumberingDefinition{}, n.undefined("numId %d", numID)
	}
	def := NumberingDefinition{ID: numID, StartOverrides: make(map[int]int)}
	abstractID, ok := intVal(num, "abstractNumId")
	if !ok {
		return NumberingDefinition{}, n.undefined("numId %d has no abstractNumId", numID)
	}
	def.StyleID = abstractID
	for _, o := range xml.ChildrenNamed(num, xml.NSW, "lvlOverride") {
		level, ok := intAttr(o, "ilvl")
		if !ok {
			continue
		}
		if start, ok := overrideStart(o); ok {
			def.StartOverrides[level] = start
		}
	}
	return def, nil
}

// overrideStart reads w:startOverride, or w:start of an override w:lvl.
func overrideStart(o *xml.Node) (int, bool) {
	if start, ok := intVal(o, "startOverride"); ok {
		return start, true
	}
	return intVal(xml.FirstChild(o, xml.NSW, "lvl"), "start")
}

// Style returns the numbering style abstractID.
func (n *Numbering) Style(abstractID int) (NumberingStyle, error) {
	a := n.abstractNum(abstractID)
	if a == nil {
		return NumberingStyle{}, n.undefined("abstractNumId %d", abstractID)
	}
	style := NumberingStyle{ID: abstractID}
	for _, lvl := range xml.ChildrenNamed(a, xml.NSW, "lvl") {
		level, ok := intAttr(lvl, "ilvl")
		if !ok {
			continue
		}
		l := NumberingLevel{Level: level}
		l.Start, _ = intVal(lvl, "start")
		l.Format, _ = xml.WVal(lvl, "numFmt")
		l.Text, _ = xml.WVal(lvl, "lvlText")
		style.Levels = append(style.Levels, l)
	}
	return style, nil
}

// StartNumber returns the first number of level in list numID: the
// definition's override when it declares one, else the style's start. A
// level without a declared start begins at 0.
func (n *Numbering) StartNumber(numID, level int) (int, error) {
	def, err := n.Definition(numID)
	if err != nil {
		return 0, err
	}
	if start, ok := def.StartOverrides[level]; ok {
		return start, nil
	}
	style, err := n.Style(def.StyleID)
	if err != nil {
		return 0, err
	}
	for _, l := range style.Levels {
		if l.Level == level {
			return l.Start, nil
		}
	}
	return 0, nil
}

// Has reports whether numID resolves.
func (n *Numbering) Has(numID int) bool {
	return n.num(numID) != nil
}

// AddStyle appends a numbering style and returns its id.
func (n *Numbering) AddStyle(levels []NumberingLevel) int {
	id := 0
	for _, a := range xmlquery.QuerySelectorAll(n.doc, abstractNumExpr) {
		if v, ok := intAttr(a, "abstractNumId"); ok && v >= id {
			id = v + 1
		}
	}

	abstract := xml.W("abstractNum", "abstractNumId", strconv.Itoa(id))
	xml.AppendChild(abstract, xml.W("multiLevelType", "val", "hybridMultilevel"))
	for _, l := range levels {
		lvl := xml.W("lvl", "ilvl", strconv.Itoa(l.Level))
		xml.AppendChild(lvl, xml.W("start", "val", strconv.Itoa(l.Start)))
		format := l.Format
		if format == "" {
			format = "decimal"
		}
		xml.AppendChild(lvl, xml.W("numFmt", "val", format))
		xml.AppendChild(lvl, xml.W("lvlText", "val", l.Text))
		xml.AppendChild(lvl, xml.W("lvlJc", "val", "left"))
		pPr := xml.W("pPr")
		xml.AppendChild(pPr, xml.W("ind", "left", strconv.Itoa(720*(l.Level+1)), "hanging", "360"))
		xml.AppendChild(lvl, pPr)
		xml.AppendChild(abstract, lvl)
	}

	// abstractNum elements precede num elements
	root := xml.Root(n.doc)
	if first := xml.FirstChild(root, xml.NSW, "num"); first != nil {
		xml.InsertBefore(first, abstract)
	} else {
		xml.AppendChild(root, abstract)
	}
	return id
}

// AddDefinition binds a new numbering id to style abstractID.
func (n *Numbering) AddDefinition(abstractID int, startOverrides map[int]int) (int, error) {
	if n.abstractNum(abstractID) == nil {
		return 0, n.undefined("abstractNumId %d", abstractID)
	}
	id := 1
	for _, num := range xmlquery.QuerySelectorAll(n.doc, numExpr) {
		if v, ok := intAttr(num, "numId"); ok && v >= id {
			id = v + 1
		}
	}

	num := xml.W("num", "numId", strconv.Itoa(id))
	xml.AppendChild(num, xml.W("abstractNumId", "val", strconv.Itoa(abstractID)))
	levels := make([]int, 0, len(startOverrides))
	for level := range startOverrides {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	for _, level := range levels {
		o := xml.W("lvlOverride", "ilvl", strconv.Itoa(level))
		xml.AppendChild(o, xml.W("startOverride", "val", strconv.Itoa(startOverrides[level])))
		xml.AppendChild(num, o)
	}
	xml.AppendChild(xml.Root(n.doc), num)
	return id, nil
}

// AddNumberingStyle adds a numbering style, creating the numbering part on
// first use.
func (d *Document) AddNumberingStyle(levels []NumberingLevel) (int, error) {
	n, err := d.numberingOrCreate()
	if err != nil {
		return 0, err
	}
	return n.AddStyle(levels), nil
}

// AddNumberingDefinition adds a numbering definition for style abstractID.
func (d *Document) AddNumberingDefinition(abstractID int, startOverrides map[int]int) (int, error) {
	n, err := d.numberingOrCreate()
	if err != nil {
		return 0, err
	}
	return n.AddDefinition(abstractID, startOverrides)
}

// EffectiveStartNumber resolves the start number of level in list numID.
func (d *Document) EffectiveStartNumber(numID, level int) (int, error) {
	n, err := d.Numbering()
	if err != nil {
		return 0, err
	}
	return n.StartNumber(numID, level)
}

// SetNumbering makes p a list item of numID at level. numID 0 marks the
// numbering as explicitly removed.
func (p *Paragraph) SetNumbering(numID, level int) {
	setNumPr(p.Properties(true), numID, level)
}

// ClearNumbering removes the paragraph's own numbering properties.
func (p *Paragraph) ClearNumbering() {
	if numPr := xml.FirstChild(p.Properties(false), xml.NSW, "numPr"); numPr != nil {
		xml.Remove(numPr)
	}
}

func setNumPr(pPr *xml.Node, numID, level int) {
	if old := xml.FirstChild(pPr, xml.NSW, "numPr"); old != nil {
		xml.Remove(old)
	}
	numPr := xml.W("numPr")
	xml.AppendChild(numPr, xml.W("ilvl", "val", strconv.Itoa(level)))
	xml.AppendChild(numPr, xml.W("numId", "val", strconv.Itoa(numID)))

	// numPr follows pStyle, keepNext, keepLines, pageBreakBefore, framePr and
	// widowControl
	var after *xml.Node
	for _, c := range xml.Children(pPr) {
		switch c.Data {
		case "pStyle", "keepNext", "keepLines", "pageBreakBefore", "framePr", "widowControl":
			after = c
		}
	}
	if after != nil {
		xml.InsertAfter(after, numPr)
	} else {
		xml.PrependChild(pPr, numPr)
	}
}

// ownNumPr reads a paragraph's own numPr. numID is -1 when absent.
func ownNumPr(p *xml.Node) (numID, level int, hasLevel bool) {
	numPr := xml.FirstChild(xml.FirstChild(p, xml.NSW, "pPr"), xml.NSW, "numPr")
	if numPr == nil {
		return -1, 0, false
	}
	level, hasLevel = intVal(numPr, "ilvl")
	numID, ok := intVal(numPr, "numId")
	if !ok {
		numID = -1
	}
	return numID, level, hasLevel
}

func paragraphStyle(p *xml.Node, styles *Styles) string {
	if id, ok := xml.WVal(xml.FirstChild(p, xml.NSW, "pPr"), "pStyle"); ok {
		return id
	}
	return styles.DefaultParagraphStyle()
}

// IsListItem reports whether p belongs to a list through its own numbering
// properties or its style.
func (d *Document) IsListItem(p *Paragraph) (bool, error) {
	styles, err := d.Styles()
	if err != nil {
		return false, err
	}
	return isListItem(p.Node(), styles), nil
}

func isListItem(p *xml.Node, styles *Styles) bool {
	if numID, _, _ := ownNumPr(p); numID >= 0 {
		return numID != 0
	}
	numID, _, _ := styles.styleNumbering(paragraphStyle(p, styles))
	return numID > 0
}

// EffectiveNumbering resolves the list membership of p. The paragraph's own
// numPr wins; numId 0 there means numbering was removed. Otherwise the
// preceding list-item siblings are searched for a numPr, and finally the
// paragraph style. ok is false when p is not in a list.
func (d *Document) EffectiveNumbering(p *Paragraph) (ref NumberingRef, ok bool, err error) {
	styles, err := d.Styles()
	if err != nil {
		return NumberingRef{}, false, err
	}

	numID, level, hasLevel := ownNumPr(p.Node())
	if numID == 0 {
		return NumberingRef{}, false, nil
	}
	if numID > 0 {
		if !hasLevel {
			_, level, _ = styles.styleNumbering(paragraphStyle(p.Node(), styles))
		}
		return NumberingRef{NumID: numID, Level: level}, true, nil
	}

	for s := xml.PrevElement(p.Node()); s != nil; s = xml.PrevElement(s) {
		// bookmarks, permission and proofing marks between list items
		if !xml.IsW(s, "p") && !xml.IsW(s, "tbl") && xml.TextLength(s) == 0 {
			continue
		}
		if !xml.IsW(s, "p") || !isListItem(s, styles) {
			break
		}
		sibNum, sibLevel, _ := ownNumPr(s)
		if sibNum > 0 {
			if !hasLevel {
				level = sibLevel
			}
			return NumberingRef{NumID: sibNum, Level: level}, true, nil
		}
	}

	styleNum, styleLevel, styleHasLevel := styles.styleNumbering(paragraphStyle(p.Node(), styles))
	if styleNum > 0 {
		if !hasLevel && styleHasLevel {
			level = styleLevel
		}
		return NumberingRef{NumID: styleNum, Level: level}, true, nil
	}
	return NumberingRef{}, false, nil
}

// ValidateNumbering checks that every numId referenced from the body,
// headers, footers and styles resolves in the numbering part.
func (d *Document) ValidateNumbering() error {
	n, err := d.Numbering()
	if err != nil {
		return err
	}
	parts := d.storyParts()
	if styles, err := d.Styles(); err == nil && styles != nil {
		parts = append(parts, styles.part)
	}

	errs := NewMultiError()
	reported := make(map[int]bool)
	for _, part := range parts {
		doc, err := part.Document()
		if err != nil {
			errs.Add(err)
			continue
		}
		for _, ref := range xmlquery.QuerySelectorAll(doc, numRefExpr) {
			id, ok := intAttr(ref, "val")
			if !ok || id == 0 || reported[id] {
				continue
			}
			if !n.Has(id) {
				reported[id] = true
				errs.Add(NewFormatError(part.Name, fmt.Sprintf("numId %d", id), ErrUndefinedNumbering))
			}
		}
	}
	return errs.Err()
}
