package docxtree

import (
	"fmt"
	"strconv"

	"github.com/benjaminschreck/go-docxtree/pkg/docxtree/xml"
)

// default text width of an A4 page with 1" margins, in twentieths of a point
const defaultTableWidth = 9026

// Table is a w:tbl block. Rows and cells are views over the table's nodes;
// they find their owners through the XML parent links instead of holding
// references back up the tree.
type Table struct {
	blockState
}

func (t *Table) Kind() BlockKind { return TableBlock }

func (t *Table) String() string {
	return fmt.Sprintf("Table(%d rows, %d columns)", len(t.Rows()), len(t.Grid()))
}

func (t *Table) gridNode(create bool) *xml.Node {
	grid := xml.FirstChild(t.node, xml.NSW, "tblGrid")
	if grid == nil && create {
		grid = xml.W("tblGrid")
		if tblPr := xml.FirstChild(t.node, xml.NSW, "tblPr"); tblPr != nil {
			xml.InsertAfter(tblPr, grid)
		} else {
			xml.PrependChild(t.node, grid)
		}
	}
	return grid
}

// Grid returns the declared column widths. Columns without a width report 0.
func (t *Table) Grid() []int {
	var widths []int
	for _, col := range xml.ChildrenNamed(t.gridNode(false), xml.NSW, "gridCol") {
		w, _ := intAttr(col, "w")
		widths = append(widths, w)
	}
	return widths
}

func (t *Table) setGrid(widths []int) {
	grid := t.gridNode(true)
	xml.RemoveChildren(grid)
	for _, w := range widths {
		xml.AppendChild(grid, xml.W("gridCol", "w", strconv.Itoa(w)))
	}
}

// Rows returns the rows of the table.
func (t *Table) Rows() []*Row {
	var rows []*Row
	for _, n := range xml.ChildrenNamed(t.node, xml.NSW, "tr") {
		rows = append(rows, &Row{node: n, doc: t.doc})
	}
	return rows
}

// Row returns row i.
func (t *Table) Row(i int) (*Row, error) {
	rows := t.Rows()
	if i < 0 || i >= len(rows) {
		return nil, NewDocumentError("row", "", fmt.Errorf("%w: row %d of %d", ErrIndexOutOfRange, i, len(rows)))
	}
	return rows[i], nil
}

// Cell returns the cell at row, index. index counts cells, not grid columns.
func (t *Table) Cell(row, index int) (*Cell, error) {
	r, err := t.Row(row)
	if err != nil {
		return nil, err
	}
	cells := r.Cells()
	if index < 0 || index >= len(cells) {
		return nil, NewDocumentError("cell", "", fmt.Errorf("%w: cell %d of %d in row %d", ErrIndexOutOfRange, index, len(cells), row))
	}
	return cells[index], nil
}

// AddRow appends a row with one empty cell per grid column.
func (t *Table) AddRow() (*Row, error) {
	grid := t.Grid()
	if len(grid) == 0 {
		return nil, NewDocumentError("add row", "", fmt.Errorf("%w: table has no grid", ErrGridMismatch))
	}
	tr := newRowNode(grid)
	if t.state == Attached {
		if err := t.doc.registerIDs(tr, t.container.Part()); err != nil {
			return nil, err
		}
	}
	xml.AppendChild(t.node, tr)
	return &Row{node: tr, doc: t.doc}, nil
}

// RemoveRow deletes row i.
func (t *Table) RemoveRow(i int) error {
	row, err := t.Row(i)
	if err != nil {
		return err
	}
	if len(t.Rows()) == 1 {
		return NewDocumentError("remove row", "", fmt.Errorf("%w: cannot remove the only row", ErrIndexOutOfRange))
	}
	for _, c := range row.Cells() {
		if err := c.checkMutable("remove row"); err != nil {
			return err
		}
	}
	xml.Remove(row.node)
	t.doc.release(row.node)
	return nil
}

// Row is a w:tr element.
type Row struct {
	node *xml.Node
	doc  *Document
}

func (r *Row) Node() *xml.Node { return r.node }

// Table returns the table owning the row.
func (r *Row) Table() *Table {
	if r.node.Parent == nil {
		return nil
	}
	t, _ := r.doc.blockFor(r.node.Parent).(*Table)
	return t
}

// Index returns the position of the row in its table.
func (r *Row) Index() int {
	i := 0
	for s := xml.PrevElement(r.node); s != nil; s = xml.PrevElement(s) {
		if xml.IsW(s, "tr") {
			i++
		}
	}
	return i
}

// Cells returns the cells of the row.
func (r *Row) Cells() []*Cell {
	var cells []*Cell
	for _, n := range xml.ChildrenNamed(r.node, xml.NSW, "tc") {
		cells = append(cells, &Cell{Container: r.doc.containerForNode(n)})
	}
	return cells
}

// GridBefore returns the number of grid columns skipped before the first
// cell.
func (r *Row) GridBefore() int {
	v, _ := intVal(xml.FirstChild(r.node, xml.NSW, "trPr"), "gridBefore")
	return v
}

// GridAfter returns the number of grid columns left empty after the last
// cell.
func (r *Row) GridAfter() int {
	v, _ := intVal(xml.FirstChild(r.node, xml.NSW, "trPr"), "gridAfter")
	return v
}

func (r *Row) setGridBefore(n int) { r.setTrPrVal("gridBefore", n) }
func (r *Row) setGridAfter(n int) { r.setTrPrVal("gridAfter", n) }

func (r *Row) setTrPrVal(local string, n int) {
	trPr := xml.FirstChild(r.node, xml.NSW, "trPr")
	existing := xml.FirstChild(trPr, xml.NSW, local)
	if n <= 0 {
		if existing != nil {
			xml.Remove(existing)
		}
		return
	}
	if existing != nil {
		xml.SetAttr(existing, xml.NSW, "val", strconv.Itoa(n))
		return
	}
	if trPr == nil {
		trPr = xml.W("trPr")
		if tblPrEx := xml.FirstChild(r.node, xml.NSW, "tblPrEx"); tblPrEx != nil {
			xml.InsertAfter(tblPrEx, trPr)
		} else {
			xml.PrependChild(r.node, trPr)
		}
	}
	xml.PrependChild(trPr, xml.W(local, "val", strconv.Itoa(n)))
}

// GridWidth returns the number of grid columns the row occupies.
func (r *Row) GridWidth() int {
	total := r.GridBefore() + r.GridAfter()
	for _, c := range r.Cells() {
		total += c.GridSpan()
	}
	return total
}

// Cell is a table cell. It is a container of blocks.
type Cell struct {
	*Container
}

// Row returns the row owning the cell.
func (c *Cell) Row() *Row {
	if c.node.Parent == nil {
		return nil
	}
	return &Row{node: c.node.Parent, doc: c.doc}
}

func (c *Cell) properties(create bool) *xml.Node {
	tcPr := xml.FirstChild(c.node, xml.NSW, "tcPr")
	if tcPr == nil && create {
		tcPr = xml.W("tcPr")
		xml.PrependChild(c.node, tcPr)
	}
	return tcPr
}

// GridSpan returns the number of grid columns the cell spans.
func (c *Cell) GridSpan() int {
	if v, ok := intVal(c.properties(false), "gridSpan"); ok && v > 0 {
		return v
	}
	return 1
}

// SetGridSpan sets the span. A span of 1 removes the gridSpan element.
func (c *Cell) SetGridSpan(span int) {
	tcPr := c.properties(span > 1)
	if tcPr == nil {
		return
	}
	existing := xml.FirstChild(tcPr, xml.NSW, "gridSpan")
	if span <= 1 {
		if existing != nil {
			xml.Remove(existing)
		}
		return
	}
	if existing != nil {
		xml.SetAttr(existing, xml.NSW, "val", strconv.Itoa(span))
		return
	}
	gridSpan := xml.W("gridSpan", "val", strconv.Itoa(span))
	// gridSpan follows cnfStyle and tcW
	if tcW := xml.FirstChild(tcPr, xml.NSW, "tcW"); tcW != nil {
		xml.InsertAfter(tcW, gridSpan)
	} else if cnf := xml.FirstChild(tcPr, xml.NSW, "cnfStyle"); cnf != nil {
		xml.InsertAfter(cnf, gridSpan)
	} else {
		xml.PrependChild(tcPr, gridSpan)
	}
}

// Width returns the preferred cell width in twentieths of a point. ok is
// false when the cell has no absolute width.
func (c *Cell) Width() (width int, ok bool) {
	tcW := xml.FirstChild(c.properties(false), xml.NSW, "tcW")
	if tcW == nil {
		return 0, false
	}
	if typ, _ := xml.Attr(tcW, xml.NSW, "type"); typ != "" && typ != "dxa" {
		return 0, false
	}
	return intAttr(tcW, "w")
}

// SetWidth sets an absolute preferred width.
func (c *Cell) SetWidth(width int) {
	tcPr := c.properties(true)
	tcW := xml.FirstChild(tcPr, xml.NSW, "tcW")
	if tcW == nil {
		tcW = xml.W("tcW")
		if cnf := xml.FirstChild(tcPr, xml.NSW, "cnfStyle"); cnf != nil {
			xml.InsertAfter(cnf, tcW)
		} else {
			xml.PrependChild(tcPr, tcW)
		}
	}
	xml.SetAttr(tcW, xml.NSW, "w", strconv.Itoa(width))
	xml.SetAttr(tcW, xml.NSW, "type", "dxa")
}

// isEmpty reports whether the cell holds only empty paragraphs.
func (c *Cell) isEmpty() bool {
	for b := range c.Blocks() {
		p, ok := b.(*Paragraph)
		if !ok || !p.IsEmpty() {
			return false
		}
	}
	return true
}

// NewTable creates a detached rows x cols table. widths, when given, holds
// one width per column; otherwise the page width is shared evenly.
func (d *Document) NewTable(rows, cols int, widths []int) (*Table, error) {
	if rows < 1 || cols < 1 {
		return nil, NewDocumentError("new table", "", fmt.Errorf("%w: %dx%d table", ErrIndexOutOfRange, rows, cols))
	}
	if widths == nil {
		widths = make([]int, cols)
		for i := range widths {
			widths[i] = defaultTableWidth / cols
		}
	}
	if len(widths) != cols {
		return nil, NewDocumentError("new table", "", fmt.Errorf("%w: %d widths for %d columns", ErrGridMismatch, len(widths), cols))
	}

	tbl := xml.W("tbl")
	tblPr := xml.W("tblPr")
	xml.AppendChild(tblPr, xml.W("tblW", "w", "0", "type", "auto"))
	xml.AppendChild(tblPr, xml.W("tblLook", "val", "04A0", "firstRow", "1", "lastRow", "0", "firstColumn", "1", "lastColumn", "0", "noHBand", "0", "noVBand", "1"))
	xml.AppendChild(tbl, tblPr)

	t := d.wrap(tbl, nil).(*Table)
	t.setGrid(widths)
	for i := 0; i < rows; i++ {
		xml.AppendChild(tbl, newRowNode(widths))
	}
	return t, nil
}

func newRowNode(widths []int) *xml.Node {
	tr := xml.W("tr")
	for _, w := range widths {
		tc := xml.W("tc")
		tcPr := xml.W("tcPr")
		xml.AppendChild(tcPr, xml.W("tcW", "w", strconv.Itoa(w), "type", "dxa"))
		xml.AppendChild(tc, tcPr)
		xml.AppendChild(tc, xml.W("p"))
		xml.AppendChild(tr, tc)
	}
	return tr
}
