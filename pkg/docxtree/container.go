package docxtree

import (
	"fmt"
	"iter"
	"strings"

	"github.com/benjaminschreck/go-docxtree/pkg/docxtree/xml"
)

// ContainerKind identifies what a container holds blocks for.
type ContainerKind int

const (
	BodyContainer ContainerKind = iota
	CellContainer
	HeaderContainer
	FooterContainer
	CommentContainer
)

func (k ContainerKind) String() string {
	switch k {
	case BodyContainer:
		return "body"
	case CellContainer:
		return "cell"
	case HeaderContainer:
		return "header"
	case FooterContainer:
		return "footer"
	case CommentContainer:
		return "comment"
	default:
		return fmt.Sprintf("ContainerKind(%d)", int(k))
	}
}

var containerElements = map[string]ContainerKind{
	"body":    BodyContainer,
	"tc":      CellContainer,
	"hdr":     HeaderContainer,
	"ftr":     FooterContainer,
	"comment": CommentContainer,
}

// Container is an ordered sequence of blocks: the document body, a table
// cell, a header, a footer or a comment.
type Container struct {
	kind      ContainerKind
	node      *xml.Node
	doc       *Document
	iterating int
}

func (c *Container) Kind() ContainerKind { return c.kind }
func (c *Container) Node() *xml.Node { return c.node }
func (c *Container) Document() *Document { return c.doc }

// Part returns the part the container lives in, or nil when the container
// sits inside a detached table.
func (c *Container) Part() *Part {
	return c.doc.partOf(c.node)
}

// containerForNode returns the container rooted at n, or nil when n is not a
// container element.
func (d *Document) containerForNode(n *xml.Node) *Container {
	if c, ok := d.containers[n]; ok {
		return c
	}
	if !xml.IsW(n, n.Data) {
		return nil
	}
	kind, ok := containerElements[n.Data]
	if !ok {
		return nil
	}
	c := &Container{kind: kind, node: n, doc: d}
	d.containers[n] = c
	return c
}

// Blocks iterates the blocks of the container. The sequence is a live view:
// mutating the container while an iteration is suspended fails with
// ErrConcurrentModification.
func (c *Container) Blocks() iter.Seq[Block] {
	return func(yield func(Block) bool) {
		c.iterating++
		defer func() { c.iterating-- }()
		for n := c.node.FirstChild; n != nil; n = n.NextSibling {
			if !isBlockNode(n) {
				continue
			}
			if !yield(c.doc.wrap(n, c)) {
				return
			}
		}
	}
}

// Paragraphs iterates the direct child paragraphs of the container.
func (c *Container) Paragraphs() iter.Seq[*Paragraph] {
	return func(yield func(*Paragraph) bool) {
		for b := range c.Blocks() {
			if p, ok := b.(*Paragraph); ok {
				if !yield(p) {
					return
				}
			}
		}
	}
}

// Tables iterates the direct child tables of the container.
func (c *Container) Tables() iter.Seq[*Table] {
	return func(yield func(*Table) bool) {
		for b := range c.Blocks() {
			if t, ok := b.(*Table); ok {
				if !yield(t) {
					return
				}
			}
		}
	}
}

// BlockList returns the blocks as a slice.
func (c *Container) BlockList() []Block {
	var out []Block
	for b := range c.Blocks() {
		out = append(out, b)
	}
	return out
}

// ParagraphList returns the direct child paragraphs as a slice.
func (c *Container) ParagraphList() []*Paragraph {
	var out []*Paragraph
	for p := range c.Paragraphs() {
		out = append(out, p)
	}
	return out
}

// Len returns the number of blocks.
func (c *Container) Len() int {
	n := 0
	for child := c.node.FirstChild; child != nil; child = child.NextSibling {
		if isBlockNode(child) {
			n++
		}
	}
	return n
}

// Text joins the text of the direct child paragraphs with newlines.
func (c *Container) Text() string {
	var parts []string
	for p := range c.Paragraphs() {
		parts = append(parts, p.Text())
	}
	return strings.Join(parts, "\n")
}

func (c *Container) checkMutable(operation string) error {
	if c.iterating > 0 {
		return NewDocumentError(operation, c.kind.String(), ErrConcurrentModification)
	}
	return nil
}

func (c *Container) owns(b Block) bool {
	return b != nil && b.State() == Attached && b.Container() == c
}

// trailer is the node new blocks are appended before: the final section
// properties of a body, nothing elsewhere.
func (c *Container) trailer() *xml.Node {
	if c.kind != BodyContainer {
		return nil
	}
	for n := c.node.LastChild; n != nil; n = n.PrevSibling {
		if xml.IsElement(n) {
			if xml.IsW(n, "sectPr") {
				return n
			}
			return nil
		}
	}
	return nil
}

// checkAttachable validates b for insertion into c without modifying
// anything.
func (c *Container) checkAttachable(operation string, b Block) error {
	if b == nil {
		return NewDocumentError(operation, c.kind.String(), fmt.Errorf("%w: nil block", ErrNotFound))
	}
	st := b.block()
	switch st.state {
	case Attached:
		return NewDocumentError(operation, c.kind.String(), ErrAlreadyAttached)
	case Detached:
		if st.node.Parent != nil {
			return NewDocumentError(operation, c.kind.String(), ErrAlreadyAttached)
		}
	}
	if st.doc != c.doc {
		return NewDocumentError(operation, c.kind.String(), fmt.Errorf("%w: block belongs to another document", ErrNotFound))
	}
	if b.Node() == c.node || isAncestor(b.Node(), c.node) {
		return NewDocumentError(operation, c.kind.String(), fmt.Errorf("cannot insert a block into itself"))
	}
	return nil
}

func isAncestor(a, n *xml.Node) bool {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur == a {
			return true
		}
	}
	return false
}

// attach splices b in before the node before, or at the end of the container
// node when before is nil. Identifiers are assigned first so a collision
// leaves the tree untouched.
func (c *Container) attach(operation string, b Block, before *xml.Node) error {
	if err := c.checkMutable(operation); err != nil {
		return err
	}
	if err := c.checkAttachable(operation, b); err != nil {
		return err
	}
	if err := c.doc.registerIDs(b.Node(), c.Part()); err != nil {
		return err
	}

	n := b.Node()
	if before != nil {
		xml.InsertBefore(before, n)
	} else {
		xml.AppendChild(c.node, n)
	}
	st := b.block()
	st.state = Attached
	st.container = c

	if b.Kind() == TableBlock {
		return c.separateTables(n)
	}
	return nil
}

// detach unlinks b from c.
func (c *Container) detach(operation string, b Block) error {
	if err := c.checkMutable(operation); err != nil {
		return err
	}
	st := b.block()
	switch st.state {
	case Detached:
		return NewDocumentError(operation, c.kind.String(), ErrNotAttached)
	case Attached:
		if st.container != c {
			return NewDocumentError(operation, c.kind.String(), ErrNotFound)
		}
	}
	c.doc.unregisterIDs(st.node)
	xml.Remove(st.node)
	st.state = Detached
	st.container = nil
	return nil
}

// separateTables keeps a paragraph between the table n and a neighbouring
// table on either side.
func (c *Container) separateTables(n *xml.Node) error {
	if prev := neighbourBlock(n, false); prev != nil && xml.IsW(prev, "tbl") {
		if err := c.attach("insert", c.doc.NewParagraph(""), n); err != nil {
			return err
		}
	}
	if next := neighbourBlock(n, true); next != nil && xml.IsW(next, "tbl") {
		if err := c.attach("insert", c.doc.NewParagraph(""), next); err != nil {
			return err
		}
	}
	return nil
}

// neighbourBlock finds the nearest paragraph or table sibling of n.
func neighbourBlock(n *xml.Node, forward bool) *xml.Node {
	step := xml.PrevElement
	if forward {
		step = xml.NextElement
	}
	for s := step(n); s != nil; s = step(s) {
		if xml.IsW(s, "p") || xml.IsW(s, "tbl") {
			return s
		}
	}
	return nil
}

// Append adds b as the last block. In a body the final section properties
// stay last.
func (c *Container) Append(b Block) error {
	return c.attach("append", b, c.trailer())
}

// Insert places b so that it becomes the block at index.
func (c *Container) Insert(index int, b Block) error {
	blocks := c.nodes()
	if index < 0 || index > len(blocks) {
		return NewDocumentError("insert", c.kind.String(), fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, index, len(blocks)))
	}
	if index == len(blocks) {
		return c.Append(b)
	}
	return c.attach("insert", b, blocks[index])
}

// InsertBefore places b immediately before ref.
func (c *Container) InsertBefore(ref, b Block) error {
	if !c.owns(ref) {
		return NewDocumentError("insert before", c.kind.String(), ErrNotFound)
	}
	return c.attach("insert before", b, ref.Node())
}

// InsertAfter places b immediately after ref.
func (c *Container) InsertAfter(ref, b Block) error {
	if !c.owns(ref) {
		return NewDocumentError("insert after", c.kind.String(), ErrNotFound)
	}
	return c.attach("insert after", b, ref.Node().NextSibling)
}

// Remove detaches b from the container.
func (c *Container) Remove(b Block) error {
	if b == nil || b.State() == Detached {
		return NewDocumentError("remove", c.kind.String(), ErrNotFound)
	}
	return c.detach("remove", b)
}

// InsertAt inserts b at the character offset of the container. Offsets on a
// paragraph boundary insert next to the paragraph; offsets inside a
// paragraph split it around b.
func (c *Container) InsertAt(offset int, b Block) error {
	if err := c.checkMutable("insert at"); err != nil {
		return err
	}
	if err := c.checkAttachable("insert at", b); err != nil {
		return err
	}

	p, start, err := c.ParagraphContaining(offset)
	if err != nil {
		return err
	}
	if p == nil {
		return c.Append(b)
	}

	rel := offset - start
	if rel == p.TextLength() {
		return c.InsertAfter(p, b)
	}
	if rel == 0 {
		return c.InsertBefore(p, b)
	}

	if err := c.doc.checkIDs(b.Node(), c.Part()); err != nil {
		return err
	}
	left, right, err := SplitParagraph(p, rel)
	if err != nil {
		return err
	}

	anchor := p.Node().NextSibling
	if err := c.detach("insert at", p); err != nil {
		return err
	}
	var attached []Block
	for _, part := range []Block{paragraphOrNil(left), b, paragraphOrNil(right)} {
		if part == nil {
			continue
		}
		if err := c.attach("insert at", part, anchor); err != nil {
			c.restoreSplit(attached, p, anchor)
			return err
		}
		attached = append(attached, part)
	}
	c.doc.log.WithFields(Fields{"offset": offset, "split": rel}).Debug("split paragraph for insertion")
	return nil
}

// restoreSplit undoes a partial InsertAt: the pieces already attached are
// detached again and the original paragraph goes back before anchor.
func (c *Container) restoreSplit(attached []Block, p *Paragraph, anchor *xml.Node) {
	for i := len(attached) - 1; i >= 0; i-- {
		if err := c.detach("insert at", attached[i]); err != nil {
			c.doc.log.Error("insert at: cannot detach split piece: %v", err)
		}
	}
	if err := c.attach("insert at", p, anchor); err != nil {
		c.doc.log.Error("insert at: cannot restore paragraph %s: %v", p.ID(), err)
	}
}

func paragraphOrNil(p *Paragraph) Block {
	if p == nil {
		return nil
	}
	return p
}

// AddParagraph appends a new paragraph holding text.
func (c *Container) AddParagraph(text string) (*Paragraph, error) {
	p := c.doc.NewParagraph(text)
	if err := c.Append(p); err != nil {
		return nil, err
	}
	return p, nil
}

// AddTable appends a new rows x cols table. widths, when given, must have
// one entry per column in twentieths of a point.
func (c *Container) AddTable(rows, cols int, widths []int) (*Table, error) {
	t, err := c.doc.NewTable(rows, cols, widths)
	if err != nil {
		return nil, err
	}
	if err := c.Append(t); err != nil {
		return nil, err
	}
	return t, nil
}

func (c *Container) nodes() []*xml.Node {
	var out []*xml.Node
	for n := c.node.FirstChild; n != nil; n = n.NextSibling {
		if isBlockNode(n) {
			out = append(out, n)
		}
	}
	return out
}
