package docxtree

import (
	"fmt"
	"strings"

	"github.com/benjaminschreck/go-docxtree/pkg/docxtree/xml"
)

// BlockKind identifies the variant of a Block.
type BlockKind int

const (
	ParagraphBlock BlockKind = iota
	TableBlock
	UnknownBlock
)

func (k BlockKind) String() string {
	switch k {
	case ParagraphBlock:
		return "paragraph"
	case TableBlock:
		return "table"
	case UnknownBlock:
		return "unknown"
	default:
		return fmt.Sprintf("BlockKind(%d)", int(k))
	}
}

// AttachState is the attachment state of a block.
type AttachState int

const (
	// Detached blocks have no parent and may be inserted anywhere.
	Detached AttachState = iota
	// Attached blocks belong to exactly one container.
	Attached
)

func (s AttachState) String() string {
	if s == Attached {
		return "attached"
	}
	return "detached"
}

// Block is a block-level element of a container: *Paragraph, *Table or
// *Unknown. The variant is decided once, when the node is first wrapped.
type Block interface {
	Kind() BlockKind
	Node() *xml.Node
	State() AttachState
	// Container returns the owning container, or nil when detached.
	Container() *Container
	block() *blockState
}

type blockState struct {
	node      *xml.Node
	doc       *Document
	state     AttachState
	container *Container
}

func (b *blockState) Node() *xml.Node { return b.node }
func (b *blockState) State() AttachState { return b.state }
func (b *blockState) block() *blockState { return b }
func (b *blockState) Document() *Document { return b.doc }
func (b *blockState) Container() *Container {
	switch b.state {
	case Attached:
		return b.container
	case Detached:
		return nil
	default:
		panic(fmt.Sprintf("docxtree: invalid attach state %d", b.state))
	}
}

// Paragraph is a w:p block.
type Paragraph struct {
	blockState
}

func (p *Paragraph) Kind() BlockKind { return ParagraphBlock }

// ID returns the paragraph identifier, empty until the paragraph is first
// attached.
func (p *Paragraph) ID() string {
	return ParagraphID(p.node)
}

// Text returns the literal text of the paragraph.
func (p *Paragraph) Text() string {
	return xml.Text(p.node)
}

// TextLength returns the number of characters of Text. It walks the
// paragraph on every call.
func (p *Paragraph) TextLength() int {
	return xml.TextLength(p.node)
}

// Properties returns the w:pPr element, creating it when create is set.
func (p *Paragraph) Properties(create bool) *xml.Node {
	pPr := xml.FirstChild(p.node, xml.NSW, "pPr")
	if pPr == nil && create {
		pPr = xml.W("pPr")
		xml.PrependChild(p.node, pPr)
	}
	return pPr
}

// Style returns the paragraph style id, or "".
func (p *Paragraph) Style() string {
	id, _ := xml.WVal(p.Properties(false), "pStyle")
	return id
}

// SetStyle sets the paragraph style id. An empty id removes the style.
func (p *Paragraph) SetStyle(styleID string) {
	pPr := p.Properties(styleID != "")
	if pPr == nil {
		return
	}
	if existing := xml.FirstChild(pPr, xml.NSW, "pStyle"); existing != nil {
		if styleID == "" {
			xml.Remove(existing)
			return
		}
		xml.SetAttr(existing, xml.NSW, "val", styleID)
		return
	}
	if styleID != "" {
		xml.PrependChild(pPr, xml.W("pStyle", "val", styleID))
	}
}

// AddRun appends a run holding text and returns the run node.
func (p *Paragraph) AddRun(text string) *xml.Node {
	r := newRun(text)
	xml.AppendChild(p.node, r)
	return r
}

// Copy returns a detached deep copy of the paragraph without identifiers.
func (p *Paragraph) Copy() *Paragraph {
	n := xml.Clone(p.node)
	stripIDs(n)
	return p.doc.wrap(n, nil).(*Paragraph)
}

// IsEmpty reports whether the paragraph has no text and no content besides
// its properties.
func (p *Paragraph) IsEmpty() bool {
	for _, c := range xml.Children(p.node) {
		if !xml.IsW(c, "pPr") {
			return false
		}
	}
	return true
}

func (p *Paragraph) String() string {
	return fmt.Sprintf("Paragraph(%q)", p.Text())
}

// Unknown is a block the engine does not interpret, such as w:sdt or
// w:customXml. It is carried through untouched.
type Unknown struct {
	blockState
}

func (u *Unknown) Kind() BlockKind { return UnknownBlock }

// Name returns the qualified element name.
func (u *Unknown) Name() string {
	if u.node.Prefix == "" {
		return u.node.Data
	}
	return xml.PrefixFor(u.node.Prefix) + ":" + u.node.Data
}

// Raw returns the serialized element.
func (u *Unknown) Raw() string {
	return xml.Fragment(u.node)
}

func newRun(text string) *xml.Node {
	r := xml.W("r")
	if text == "" {
		return r
	}
	// line breaks and tabs become w:br and w:tab
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if i > 0 {
			xml.AppendChild(r, xml.W("br"))
		}
		for j, seg := range strings.Split(line, "\t") {
			if j > 0 {
				xml.AppendChild(r, xml.W("tab"))
			}
			if seg == "" {
				continue
			}
			t := xml.W("t")
			xml.SetLeafText(t, seg)
			xml.AppendChild(r, t)
		}
	}
	return r
}

func newParagraphNode(text string) *xml.Node {
	p := xml.W("p")
	if text != "" {
		xml.AppendChild(p, newRun(text))
	}
	return p
}

// stripIDs removes paragraph identifiers from n and everything below it.
func stripIDs(n *xml.Node) {
	for _, p := range paragraphsIn(n) {
		xml.RemoveAttr(p, xml.NSW14, "paraId")
		xml.RemoveAttr(p, xml.NSW14, "textId")
	}
}

// isBlockNode reports whether a child of a container node is content rather
// than the container's own properties.
func isBlockNode(n *xml.Node) bool {
	if !xml.IsElement(n) {
		return false
	}
	return !(xml.IsW(n, "sectPr") || xml.IsW(n, "tcPr"))
}

// wrap returns the one Block for n, creating it on first use. c is the
// container n is attached to, or nil for detached nodes.
func (d *Document) wrap(n *xml.Node, c *Container) Block {
	if b, ok := d.blocks[n]; ok {
		return b
	}
	st := blockState{node: n, doc: d}
	if c != nil {
		st.state = Attached
		st.container = c
	}

	var b Block
	switch {
	case xml.IsW(n, "p"):
		b = &Paragraph{blockState: st}
	case xml.IsW(n, "tbl"):
		b = &Table{blockState: st}
	default:
		b = &Unknown{blockState: st}
	}
	d.blocks[n] = b
	return b
}

// blockFor wraps an attached node, resolving its container from the tree.
func (d *Document) blockFor(n *xml.Node) Block {
	if b, ok := d.blocks[n]; ok {
		return b
	}
	if n.Parent == nil {
		return d.wrap(n, nil)
	}
	return d.wrap(n, d.containerForNode(n.Parent))
}

// release forgets the wrappers of a subtree that left the document.
func (d *Document) release(n *xml.Node) {
	d.unregisterIDs(n)
	var walk func(*xml.Node)
	walk = func(cur *xml.Node) {
		if b, ok := d.blocks[cur]; ok {
			st := b.block()
			st.state = Detached
			st.container = nil
			delete(d.blocks, cur)
		}
		delete(d.containers, cur)
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
}
