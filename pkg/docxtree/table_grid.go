package docxtree

import (
	"fmt"

	"github.com/benjaminschreck/go-docxtree/pkg/docxtree/xml"
)

// Every row of a table must cover the grid exactly:
//
//	gridBefore + Σ gridSpan + gridAfter == len(grid)
//
// The operations below may break this while they run and restore it before
// they return.

// ResizeStrategy decides what happens to the width of a removed column.
type ResizeStrategy string

const (
	// ResizeFixed keeps the remaining widths; the table shrinks.
	ResizeFixed ResizeStrategy = "fixed"
	// ResizeRedistribute shares the removed width equally.
	ResizeRedistribute ResizeStrategy = "redistribute"
	// ResizeProportional shares the removed width by current width.
	ResizeProportional ResizeStrategy = "proportional"
)

// ValidateGrid reports every row that does not cover the grid exactly.
func (t *Table) ValidateGrid() error {
	columns := len(t.Grid())
	errs := NewMultiError()
	for i, row := range t.Rows() {
		if width := row.GridWidth(); width != columns {
			errs.Add(NewDocumentError("validate grid", "", fmt.Errorf("%w: row %d spans %d of %d columns", ErrGridMismatch, i, width, columns)))
		}
	}
	return errs.Err()
}

// MergeCells merges count cells of row starting at start into one cell.
func (t *Table) MergeCells(row, start, count int) error {
	r, err := t.Row(row)
	if err != nil {
		return err
	}
	return r.MergeCells(start, count)
}

// MergeCells merges cells [start, start+count) into the cell at start. The
// non-empty content of the later cells moves into it in order, the later
// cells are removed and the merged cell spans all their grid columns.
func (r *Row) MergeCells(start, count int) error {
	cells := r.Cells()
	end := start + count - 1
	if !(0 <= start && start < end && end < len(cells)) {
		return NewDocumentError("merge cells", "", fmt.Errorf("%w: cells %d+%d of %d", ErrIndexOutOfRange, start, count, len(cells)))
	}
	merged := cells[start : end+1]
	for _, c := range merged {
		if err := c.checkMutable("merge cells"); err != nil {
			return err
		}
	}

	dest := merged[0]
	span := dest.GridSpan()
	width, hasWidth := dest.Width()

	var moving []Block
	for _, c := range merged[1:] {
		span += c.GridSpan()
		w, ok := c.Width()
		width += w
		hasWidth = hasWidth && ok
		for b := range c.Blocks() {
			if p, isPara := b.(*Paragraph); isPara && p.IsEmpty() {
				continue
			}
			moving = append(moving, b)
		}
	}

	if len(moving) > 0 && dest.isEmpty() {
		for _, b := range dest.BlockList() {
			if err := dest.detach("merge cells", b); err != nil {
				return err
			}
			r.doc.release(b.Node())
		}
	}
	for _, b := range moving {
		if err := b.Container().detach("merge cells", b); err != nil {
			return err
		}
		if err := dest.attach("merge cells", b, nil); err != nil {
			return err
		}
	}
	for _, c := range merged[1:] {
		xml.Remove(c.node)
		r.doc.release(c.node)
	}
	if err := dest.ensureTrailingParagraph(); err != nil {
		return err
	}

	dest.SetGridSpan(span)
	if hasWidth {
		dest.SetWidth(width)
	}
	r.doc.log.WithFields(Fields{"row": r.Index(), "start": start, "count": count}).Debug("merged cells, span %d", span)
	return nil
}

// ensureTrailingParagraph appends an empty paragraph unless the cell already
// ends with one.
func (c *Cell) ensureTrailingParagraph() error {
	var last *xml.Node
	for n := c.node.LastChild; n != nil; n = n.PrevSibling {
		if isBlockNode(n) {
			last = n
			break
		}
	}
	if last != nil && xml.IsW(last, "p") {
		return nil
	}
	return c.attach("merge cells", c.doc.NewParagraph(""), nil)
}

// SetColumnWidths rewrites the grid and the width of every cell. A cell
// spanning several columns gets the sum of their widths. All rows are
// checked before anything changes.
func (t *Table) SetColumnWidths(widths []int) error {
	columns := len(t.Grid())
	if len(widths) != columns {
		return NewDocumentError("set column widths", "", fmt.Errorf("%w: %d widths for %d columns", ErrGridMismatch, len(widths), columns))
	}

	plan, err := t.foldWidths(widths)
	if err != nil {
		return err
	}
	t.setGrid(widths)
	for cell, w := range plan {
		cell.SetWidth(w)
	}
	t.updateTableWidth(widths)
	return nil
}

// foldWidths sums the grid widths each cell covers.
func (t *Table) foldWidths(widths []int) (map[*Cell]int, error) {
	plan := make(map[*Cell]int)
	for i, row := range t.Rows() {
		pos := row.GridBefore()
		for j, cell := range row.Cells() {
			span := cell.GridSpan()
			if pos+span > len(widths) {
				return nil, NewDocumentError("set column widths", "", fmt.Errorf("%w: cell %d of row %d ends at column %d of %d", ErrGridMismatch, j, i, pos+span, len(widths)))
			}
			sum := 0
			for _, w := range widths[pos : pos+span] {
				sum += w
			}
			plan[cell] = sum
			pos += span
		}
		if pos+row.GridAfter() != len(widths) {
			return nil, NewDocumentError("set column widths", "", fmt.Errorf("%w: row %d covers %d of %d columns", ErrGridMismatch, i, pos+row.GridAfter(), len(widths)))
		}
	}
	return plan, nil
}

func (t *Table) updateTableWidth(widths []int) {
	tblW := xml.FirstChild(xml.FirstChild(t.node, xml.NSW, "tblPr"), xml.NSW, "tblW")
	if tblW == nil {
		return
	}
	if typ, _ := xml.Attr(tblW, xml.NSW, "type"); typ != "dxa" {
		return
	}
	total := 0
	for _, w := range widths {
		total += w
	}
	xml.SetAttr(tblW, xml.NSW, "w", fmt.Sprint(total))
}

// RemoveColumn deletes grid column index from every row. Cells spanning
// the column shrink by one span; cells covering only that column are
// removed, and a row left without cells is removed too.
func (t *Table) RemoveColumn(index int, strategy ResizeStrategy) error {
	grid := t.Grid()
	if index < 0 || index >= len(grid) {
		return NewDocumentError("remove column", "", fmt.Errorf("%w: column %d of %d", ErrIndexOutOfRange, index, len(grid)))
	}
	if len(grid) == 1 {
		return NewDocumentError("remove column", "", fmt.Errorf("%w: cannot remove the only column", ErrIndexOutOfRange))
	}
	switch strategy {
	case "", ResizeFixed, ResizeRedistribute, ResizeProportional:
	default:
		return NewDocumentError("remove column", "", fmt.Errorf("invalid resize strategy '%s' (must be 'redistribute', 'proportional', or 'fixed')", strategy))
	}
	if err := t.ValidateGrid(); err != nil {
		return err
	}

	newWidths := calculateNewGridColumns(grid, map[int]ResizeStrategy{index: strategy})

	for _, row := range t.Rows() {
		before, after := row.GridBefore(), row.GridAfter()
		if index < before {
			row.setGridBefore(before - 1)
			continue
		}
		if index >= len(grid)-after {
			row.setGridAfter(after - 1)
			continue
		}
		pos := before
		for _, cell := range row.Cells() {
			span := cell.GridSpan()
			if index >= pos && index < pos+span {
				if span > 1 {
					cell.SetGridSpan(span - 1)
				} else {
					xml.Remove(cell.node)
					t.doc.release(cell.node)
				}
				break
			}
			pos += span
		}
		if len(row.Cells()) == 0 {
			xml.Remove(row.node)
			t.doc.release(row.node)
		}
	}

	t.setGrid(newWidths)
	plan, err := t.foldWidths(newWidths)
	if err != nil {
		return err
	}
	for cell, w := range plan {
		if _, ok := cell.Width(); ok {
			cell.SetWidth(w)
		}
	}
	t.updateTableWidth(newWidths)
	return nil
}

// calculateNewGridColumns calculates new column widths after removing columns
func calculateNewGridColumns(oldWidths []int, columnsToRemove map[int]ResizeStrategy) []int {
	if len(columnsToRemove) == 0 {
		return oldWidths
	}

	// Determine resize strategy (use first non-empty strategy found)
	strategy := ResizeFixed
	for _, s := range columnsToRemove {
		if s != "" {
			strategy = s
			break
		}
	}

	// Calculate total width being removed
	totalRemoved := 0
	totalRemaining := 0
	remainingCols := 0
	for i, width := range oldWidths {
		if _, remove := columnsToRemove[i]; remove {
			totalRemoved += width
		} else {
			totalRemaining += width
			remainingCols++
		}
	}

	var newWidths []int
	for i, width := range oldWidths {
		if _, remove := columnsToRemove[i]; remove {
			continue
		}
		switch strategy {
		case ResizeRedistribute:
			width += totalRemoved / remainingCols
			if len(newWidths) == remainingCols-1 {
				// the last column absorbs the remainder
				width += totalRemoved % remainingCols
			}
		case ResizeProportional:
			if totalRemaining > 0 {
				width += int(float64(totalRemoved) * float64(width) / float64(totalRemaining))
			} else {
				width += totalRemoved / remainingCols
			}
		}
		newWidths = append(newWidths, width)
	}
	return newWidths
}
