package docxtree

import (
	"fmt"
)

// Offsets are counted in characters over the direct child paragraphs of a
// container. Nothing is cached: every call walks the container, so a loop
// over all paragraphs costs O(n²).

// TextLength returns the total text length of the container's paragraphs.
func (c *Container) TextLength() int {
	total := 0
	for p := range c.Paragraphs() {
		total += p.TextLength()
	}
	return total
}

// StartIndexOf returns the offset at which p's text starts.
func (c *Container) StartIndexOf(p *Paragraph) (int, error) {
	if !c.owns(p) {
		return 0, NewDocumentError("start index", c.kind.String(), ErrNotFound)
	}
	start := 0
	for q := range c.Paragraphs() {
		if q == p {
			return start, nil
		}
		start += q.TextLength()
	}
	return 0, NewDocumentError("start index", c.kind.String(), ErrNotFound)
}

// ParagraphContaining returns the first paragraph whose text range
// [start, start+length) contains offset, together with its start. An offset
// equal to the total length resolves to the last paragraph. In an empty
// container offset 0 yields a nil paragraph.
func (c *Container) ParagraphContaining(offset int) (*Paragraph, int, error) {
	if offset < 0 {
		return nil, 0, NewDocumentError("locate offset", c.kind.String(), fmt.Errorf("%w: %d", ErrOffsetOutOfRange, offset))
	}

	var last *Paragraph
	lastStart := 0
	start := 0
	for p := range c.Paragraphs() {
		length := p.TextLength()
		if offset >= start && offset < start+length {
			return p, start, nil
		}
		last, lastStart = p, start
		start += length
	}

	if last == nil && offset == 0 {
		return nil, 0, nil
	}
	if last != nil && offset == start {
		return last, lastStart, nil
	}
	return nil, 0, NewDocumentError("locate offset", c.kind.String(), fmt.Errorf("%w: %d beyond %d", ErrOffsetOutOfRange, offset, start))
}

// ParagraphOffsets returns every direct child paragraph with its start
// offset, computed in one pass.
func (c *Container) ParagraphOffsets() ([]*Paragraph, []int) {
	var paragraphs []*Paragraph
	var starts []int
	start := 0
	for p := range c.Paragraphs() {
		paragraphs = append(paragraphs, p)
		starts = append(starts, start)
		start += p.TextLength()
	}
	return paragraphs, starts
}
