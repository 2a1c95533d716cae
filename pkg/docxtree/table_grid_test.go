package docxtree

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableXML builds a table with the given grid. Each row is a list of cells;
// a cell "2:text" spans two columns.
func tableXML(grid []int, rows ...[]string) string {
	var b strings.Builder
	b.WriteString(`<w:tbl><w:tblPr><w:tblW w:w="0" w:type="auto"/></w:tblPr><w:tblGrid>`)
	for _, w := range grid {
		b.WriteString(`<w:gridCol w:w="` + strconv.Itoa(w) + `"/>`)
	}
	b.WriteString(`</w:tblGrid>`)
	for _, row := range rows {
		b.WriteString(`<w:tr>`)
		for _, cell := range row {
			span, text := 1, cell
			if i := strings.Index(cell, ":"); i > 0 {
				span, _ = strconv.Atoi(cell[:i])
				text = cell[i+1:]
			}
			b.WriteString(`<w:tc><w:tcPr>`)
			if span > 1 {
				b.WriteString(`<w:gridSpan w:val="` + strconv.Itoa(span) + `"/>`)
			}
			b.WriteString(`</w:tcPr>`)
			if text == "" {
				b.WriteString(`<w:p/>`)
			} else {
				b.WriteString(para(text))
			}
			b.WriteString(`</w:tc>`)
		}
		b.WriteString(`</w:tr>`)
	}
	b.WriteString(`</w:tbl>`)
	return b.String()
}

func firstTable(t *testing.T, doc *Document) *Table {
	t.Helper()
	for table := range doc.Body().Tables() {
		return table
	}
	t.Fatal("no table in body")
	return nil
}

func cellTexts(t *testing.T, table *Table, row int) []string {
	t.Helper()
	r, err := table.Row(row)
	require.NoError(t, err)
	var out []string
	for _, c := range r.Cells() {
		out = append(out, strings.Join(texts(c.Container), "|"))
	}
	return out
}

func TestMergeThreeOfFourCells(t *testing.T) {
	doc := newTestDocument(t)
	table, err := doc.Body().AddTable(1, 4, []int{1000, 1000, 1000, 1000})
	require.NoError(t, err)

	require.NoError(t, table.MergeCells(0, 0, 3))

	row, err := table.Row(0)
	require.NoError(t, err)
	cells := row.Cells()
	require.Len(t, cells, 2)
	assert.Equal(t, 3, cells[0].GridSpan())
	assert.Equal(t, 1, cells[1].GridSpan())
	width, ok := cells[0].Width()
	assert.True(t, ok)
	assert.Equal(t, 3000, width)
	assert.Equal(t, 4, row.GridWidth())
	assert.NoError(t, table.ValidateGrid())
}

func TestMergeMovesContent(t *testing.T) {
	tests := []struct {
		name  string
		cells []string
		want  []string
	}{
		{"content in every cell", []string{"a", "b", "c"}, []string{"a|b|c"}},
		{"empty cells are dropped", []string{"a", "", "c"}, []string{"a|c"}},
		{"empty destination", []string{"", "b", "c"}, []string{"b|c"}},
		{"all empty", []string{"", "", ""}, []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := openFixture(t, fixture{body: tableXML([]int{100, 100, 100, 100}, append(tt.cells, "keep"))})
			table := firstTable(t, doc)

			require.NoError(t, table.MergeCells(0, 0, 3))
			assert.Equal(t, append(tt.want, "keep"), cellTexts(t, table, 0))
			assert.NoError(t, table.ValidateGrid())
		})
	}
}

func TestMergeKeepsParagraphIdentity(t *testing.T) {
	doc := newTestDocument(t)
	table, err := doc.Body().AddTable(1, 2, nil)
	require.NoError(t, err)
	second, err := table.Cell(0, 1)
	require.NoError(t, err)
	moved, err := second.AddParagraph("moved")
	require.NoError(t, err)
	id := moved.ID()

	require.NoError(t, table.MergeCells(0, 0, 2))
	dest, err := table.Cell(0, 0)
	require.NoError(t, err)

	assert.Same(t, dest.Container, moved.Container())
	assert.Equal(t, id, moved.ID())
	found, ok := doc.ParagraphByID(id)
	require.True(t, ok)
	assert.Same(t, moved, found)
	require.NoError(t, doc.ValidateIDs())
}

func TestMergeMovesNestedTables(t *testing.T) {
	inner := tableXML([]int{50}, []string{"inner"})
	body := `<w:tbl><w:tblGrid><w:gridCol w:w="100"/><w:gridCol w:w="100"/></w:tblGrid><w:tr>` +
		`<w:tc>` + para("a") + `</w:tc><w:tc>` + inner + `<w:p/></w:tc></w:tr></w:tbl>`
	doc := openFixture(t, fixture{body: body})
	table := firstTable(t, doc)

	require.NoError(t, table.MergeCells(0, 0, 2))
	cell, err := table.Cell(0, 0)
	require.NoError(t, err)
	assert.Equal(t, []BlockKind{ParagraphBlock, TableBlock, ParagraphBlock}, kinds(cell.Container), "a cell always ends with a paragraph")

	nested := firstNested(cell)
	require.NotNil(t, nested)
	assert.Same(t, cell.Container, nested.Container())
}

func firstNested(c *Cell) *Table {
	for t := range c.Tables() {
		return t
	}
	return nil
}

func TestMergeRejectsBadRanges(t *testing.T) {
	tests := []struct {
		name         string
		start, count int
	}{
		{"single cell", 0, 1},
		{"zero cells", 0, 0},
		{"negative start", -1, 2},
		{"past the end", 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newTestDocument(t)
			table, err := doc.Body().AddTable(1, 3, nil)
			require.NoError(t, err)

			err = table.MergeCells(0, tt.start, tt.count)
			assert.ErrorIs(t, err, ErrIndexOutOfRange)
			row, _ := table.Row(0)
			assert.Len(t, row.Cells(), 3)
		})
	}

	doc := newTestDocument(t)
	table, err := doc.Body().AddTable(1, 3, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, table.MergeCells(1, 0, 2), ErrIndexOutOfRange)
}

func TestMergeKeepsGridInvariant(t *testing.T) {
	for start := 0; start < 5; start++ {
		for count := 2; start+count <= 5; count++ {
			t.Run(fmt.Sprintf("start %d count %d", start, count), func(t *testing.T) {
				doc := newTestDocument(t)
				table, err := doc.Body().AddTable(2, 5, nil)
				require.NoError(t, err)
				require.NoError(t, table.MergeCells(0, start, count))
				require.NoError(t, table.ValidateGrid())

				row, _ := table.Row(0)
				assert.Len(t, row.Cells(), 5-count+1)
			})
		}
	}
}

func TestSetColumnWidths(t *testing.T) {
	doc := newTestDocument(t)
	table, err := doc.Body().AddTable(2, 3, nil)
	require.NoError(t, err)
	require.NoError(t, table.MergeCells(0, 0, 2))

	require.NoError(t, table.SetColumnWidths([]int{1000, 2000, 3000}))
	assert.Equal(t, []int{1000, 2000, 3000}, table.Grid())

	widthsOf := func(row int) []int {
		r, _ := table.Row(row)
		var out []int
		for _, c := range r.Cells() {
			w, _ := c.Width()
			out = append(out, w)
		}
		return out
	}
	assert.Equal(t, []int{3000, 3000}, widthsOf(0))
	assert.Equal(t, []int{1000, 2000, 3000}, widthsOf(1))
	assert.NoError(t, table.ValidateGrid())
}

func TestSetColumnWidthsRejectsMismatch(t *testing.T) {
	doc := newTestDocument(t)
	table, err := doc.Body().AddTable(1, 3, []int{100, 100, 100})
	require.NoError(t, err)

	err = table.SetColumnWidths([]int{1, 2})
	assert.ErrorIs(t, err, ErrGridMismatch)
	assert.Equal(t, []int{100, 100, 100}, table.Grid())

	// a row that overruns the grid is caught before anything changes
	broken := openFixture(t, fixture{body: tableXML([]int{100, 100}, []string{"a", "b"}, []string{"2:wide", "c"})})
	bt := firstTable(t, broken)
	assert.ErrorIs(t, bt.ValidateGrid(), ErrGridMismatch)
	assert.ErrorIs(t, bt.SetColumnWidths([]int{10, 20}), ErrGridMismatch)
	assert.Equal(t, []int{100, 100}, bt.Grid())
}

func TestRemoveColumn(t *testing.T) {
	tests := []struct {
		name     string
		index    int
		strategy ResizeStrategy
		grid     []int
	}{
		{"fixed", 0, ResizeFixed, []int{2000, 3000}},
		{"redistribute", 0, ResizeRedistribute, []int{2500, 3500}},
		{"proportional", 0, ResizeProportional, []int{2400, 3600}},
		{"default is fixed", 2, "", []int{1000, 2000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := newTestDocument(t)
			table, err := doc.Body().AddTable(2, 3, []int{1000, 2000, 3000})
			require.NoError(t, err)

			require.NoError(t, table.RemoveColumn(tt.index, tt.strategy))
			assert.Equal(t, tt.grid, table.Grid())
			assert.NoError(t, table.ValidateGrid())
			cell, err := table.Cell(1, 1)
			require.NoError(t, err)
			w, ok := cell.Width()
			assert.True(t, ok)
			assert.Equal(t, tt.grid[1], w)
		})
	}
}

func TestRemoveColumnShrinksSpans(t *testing.T) {
	doc := openFixture(t, fixture{body: tableXML([]int{100, 100, 100}, []string{"2:wide", "c"}, []string{"a", "b", "c"})})
	table := firstTable(t, doc)

	require.NoError(t, table.RemoveColumn(1, ResizeFixed))
	assert.Equal(t, []int{100, 100}, table.Grid())
	assert.Equal(t, []string{"wide", "c"}, cellTexts(t, table, 0))
	assert.Equal(t, []string{"a", "c"}, cellTexts(t, table, 1))

	cell, err := table.Cell(0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, cell.GridSpan())
	assert.NoError(t, table.ValidateGrid())
}

func TestRemoveColumnInGridBefore(t *testing.T) {
	body := `<w:tbl><w:tblGrid><w:gridCol w:w="100"/><w:gridCol w:w="100"/><w:gridCol w:w="100"/></w:tblGrid>` +
		`<w:tr><w:trPr><w:gridBefore w:val="1"/></w:trPr><w:tc>` + para("b") + `</w:tc><w:tc>` + para("c") + `</w:tc></w:tr>` +
		`<w:tr><w:tc>` + para("a") + `</w:tc><w:tc>` + para("b") + `</w:tc><w:tc>` + para("c") + `</w:tc></w:tr></w:tbl>`
	doc := openFixture(t, fixture{body: body})
	table := firstTable(t, doc)
	require.NoError(t, table.ValidateGrid())

	require.NoError(t, table.RemoveColumn(0, ResizeFixed))
	rows := table.Rows()
	assert.Equal(t, 0, rows[0].GridBefore())
	assert.Equal(t, []string{"b", "c"}, cellTexts(t, table, 0))
	assert.Equal(t, []string{"b", "c"}, cellTexts(t, table, 1))
	assert.NoError(t, table.ValidateGrid())
}

func TestRemoveColumnRejectsBadInput(t *testing.T) {
	doc := newTestDocument(t)
	table, err := doc.Body().AddTable(1, 2, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, table.RemoveColumn(2, ResizeFixed), ErrIndexOutOfRange)
	assert.Error(t, table.RemoveColumn(0, ResizeStrategy("shrink")))

	single, err := doc.Body().AddTable(1, 1, nil)
	require.NoError(t, err)
	assert.ErrorIs(t, single.RemoveColumn(0, ResizeFixed), ErrIndexOutOfRange)
}

func TestCalculateNewGridColumns(t *testing.T) {
	tests := []struct {
		name   string
		widths []int
		remove map[int]ResizeStrategy
		want   []int
	}{
		{"nothing removed", []int{1, 2}, nil, []int{1, 2}},
		{"fixed", []int{100, 200, 300}, map[int]ResizeStrategy{1: ResizeFixed}, []int{100, 300}},
		{"redistribute", []int{100, 200, 300}, map[int]ResizeStrategy{1: ResizeRedistribute}, []int{200, 400}},
		{"redistribute keeps the total", []int{100, 100, 100, 100}, map[int]ResizeStrategy{0: ResizeRedistribute}, []int{133, 133, 134}},
		{"proportional of zero widths", []int{0, 90, 0}, map[int]ResizeStrategy{1: ResizeProportional}, []int{45, 45}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, calculateNewGridColumns(tt.widths, tt.remove))
		})
	}
}

func TestAddAndRemoveRows(t *testing.T) {
	doc := newTestDocument(t)
	table, err := doc.Body().AddTable(1, 2, []int{500, 700})
	require.NoError(t, err)

	row, err := table.AddRow()
	require.NoError(t, err)
	assert.Equal(t, 1, row.Index())
	assert.Same(t, table, row.Table())
	require.Len(t, row.Cells(), 2)
	w, _ := row.Cells()[1].Width()
	assert.Equal(t, 700, w)
	for p := range row.Cells()[0].Paragraphs() {
		assert.NotEmpty(t, p.ID(), "rows of attached tables get identifiers")
	}

	require.NoError(t, table.RemoveRow(0))
	assert.Len(t, table.Rows(), 1)
	assert.ErrorIs(t, table.RemoveRow(0), ErrIndexOutOfRange)
	assert.ErrorIs(t, table.RemoveRow(3), ErrIndexOutOfRange)
	assert.Equal(t, "Table(1 rows, 2 columns)", table.String())
}

func TestNewTableValidation(t *testing.T) {
	doc := newTestDocument(t)
	_, err := doc.NewTable(0, 2, nil)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = doc.NewTable(1, 2, []int{1})
	assert.ErrorIs(t, err, ErrGridMismatch)

	table, err := doc.NewTable(1, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{defaultTableWidth / 2, defaultTableWidth / 2}, table.Grid())
}
