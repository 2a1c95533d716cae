package docxtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjaminschreck/go-docxtree/pkg/docxtree/xml"
)

func childNames(n *xml.Node) []string {
	var names []string
	for _, c := range xml.Children(n) {
		names = append(names, c.Data)
	}
	return names
}

func firstParagraph(t *testing.T, body string) (*Document, *Paragraph) {
	t.Helper()
	doc := openFixture(t, fixture{body: body})
	paragraphs := doc.Body().ParagraphList()
	require.NotEmpty(t, paragraphs)
	return doc, paragraphs[0]
}

func TestSplitReconstructsText(t *testing.T) {
	body := `<w:p w14:paraId="00000042"><w:pPr><w:jc w:val="center"/></w:pPr>` +
		`<w:r><w:rPr><w:b/></w:rPr><w:t xml:space="preserve">Bold </w:t></w:r>` +
		`<w:hyperlink r:id="rId9"><w:r><w:t>link</w:t></w:r></w:hyperlink>` +
		`<w:ins w:id="3" w:author="a"><w:r><w:t>ins</w:t></w:r></w:ins>` +
		`<w:r><w:t>tail</w:t></w:r></w:p>`
	_, p := firstParagraph(t, body)
	original := xml.Fragment(p.Node())
	text := p.Text()
	require.Equal(t, "Bold linkinstail", text)

	for k := 1; k < p.TextLength(); k++ {
		left, right, err := SplitParagraph(p, k)
		require.NoError(t, err, "offset %d", k)
		require.NotNil(t, left)
		require.NotNil(t, right)

		assert.Equal(t, text, left.Text()+right.Text(), "offset %d", k)
		assert.Equal(t, k, left.TextLength(), "offset %d", k)
		assert.Equal(t, "pPr", childNames(left.Node())[0], "offset %d", k)
		assert.Equal(t, "pPr", childNames(right.Node())[0], "offset %d", k)
		assert.Equal(t, "00000042", left.ID())
		assert.Empty(t, right.ID(), "the right half gets a new identifier when attached")
		assert.Equal(t, Detached, left.State())
		assert.Equal(t, Detached, right.State())
	}
	assert.Equal(t, original, xml.Fragment(p.Node()), "splitting leaves the paragraph untouched")
}

func TestSplitAtEnds(t *testing.T) {
	_, p := firstParagraph(t, para("abc"))

	left, right, err := SplitParagraph(p, 0)
	require.NoError(t, err)
	assert.Nil(t, left)
	assert.Same(t, p, right)

	left, right, err = SplitParagraph(p, 3)
	require.NoError(t, err)
	assert.Same(t, p, left)
	assert.Nil(t, right)

	_, _, err = SplitParagraph(p, 4)
	assert.ErrorIs(t, err, ErrOffsetOutOfRange)
	_, _, err = SplitParagraph(p, -1)
	assert.ErrorIs(t, err, ErrOffsetOutOfRange)
}

func TestSplitCopiesRunProperties(t *testing.T) {
	_, p := firstParagraph(t, `<w:p><w:r><w:rPr><w:i/><w:color w:val="FF0000"/></w:rPr><w:t>abcd</w:t></w:r></w:p>`)

	left, right, err := SplitParagraph(p, 1)
	require.NoError(t, err)

	for _, half := range []*Paragraph{left, right} {
		run := xml.FirstChild(half.Node(), xml.NSW, "r")
		require.NotNil(t, run)
		rPr := xml.FirstChild(run, xml.NSW, "rPr")
		require.NotNil(t, rPr)
		color, ok := xml.WVal(rPr, "color")
		assert.True(t, ok)
		assert.Equal(t, "FF0000", color)
	}
	assert.Equal(t, "a", left.Text())
	assert.Equal(t, "bcd", right.Text())
}

func TestSplitRevisionGetsFreshID(t *testing.T) {
	_, p := firstParagraph(t, `<w:p><w:ins w:id="5" w:author="a"><w:r><w:t>abcd</w:t></w:r></w:ins>`+
		`<w:del w:id="7" w:author="a"><w:r><w:delText>xy</w:delText></w:r></w:del></w:p>`)

	left, right, err := SplitParagraph(p, 2)
	require.NoError(t, err)

	leftIns := xml.FirstChild(left.Node(), xml.NSW, "ins")
	rightIns := xml.FirstChild(right.Node(), xml.NSW, "ins")
	require.NotNil(t, leftIns)
	require.NotNil(t, rightIns)
	leftID, _ := xml.Attr(leftIns, xml.NSW, "id")
	rightID, _ := xml.Attr(rightIns, xml.NSW, "id")
	assert.Equal(t, "5", leftID)
	assert.Equal(t, "8", rightID, "one above the highest id in the document")
	author, _ := xml.Attr(rightIns, xml.NSW, "author")
	assert.Equal(t, "a", author)

	assert.Equal(t, "ab", left.Text())
	assert.Equal(t, "cdxy", right.Text())
	assert.Equal(t, []string{"ins", "del"}, childNames(right.Node()))

	// splitting inside the deletion
	left, right, err = SplitParagraph(p, 5)
	require.NoError(t, err)
	assert.Equal(t, "abcdx", left.Text())
	assert.Equal(t, "y", right.Text())
	assert.Equal(t, []string{"del"}, childNames(right.Node()))
}

func TestSplitNestedWrappers(t *testing.T) {
	_, p := firstParagraph(t, `<w:p><w:hyperlink w:anchor="top"><w:ins w:id="1" w:author="a"><w:r><w:t>abcdef</w:t></w:r></w:ins></w:hyperlink></w:p>`)

	left, right, err := SplitParagraph(p, 3)
	require.NoError(t, err)
	for _, half := range []*Paragraph{left, right} {
		link := xml.FirstChild(half.Node(), xml.NSW, "hyperlink")
		require.NotNil(t, link)
		anchor, _ := xml.Attr(link, xml.NSW, "anchor")
		assert.Equal(t, "top", anchor)
		require.NotNil(t, xml.FirstChild(link, xml.NSW, "ins"))
	}
	assert.Equal(t, "abc", left.Text())
	assert.Equal(t, "def", right.Text())
}

func TestSplitPlacesZeroLengthMarkers(t *testing.T) {
	_, p := firstParagraph(t, `<w:p><w:bookmarkStart w:id="0" w:name="a"/><w:r><w:t>ab</w:t></w:r><w:bookmarkEnd w:id="0"/>`+
		`<w:bookmarkStart w:id="1" w:name="b"/><w:r><w:t>cd</w:t></w:r><w:bookmarkEnd w:id="1"/></w:p>`)

	left, right, err := SplitParagraph(p, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"bookmarkStart", "r", "bookmarkEnd"}, childNames(left.Node()))
	assert.Equal(t, []string{"bookmarkStart", "r", "bookmarkEnd"}, childNames(right.Node()))
}

func TestSplitIgnoresOpaqueContent(t *testing.T) {
	_, p := firstParagraph(t, `<w:p><w:r><w:t>ab</w:t></w:r><w:r><w:drawing><w:t>not counted</w:t></w:drawing></w:r><w:r><w:t>cd</w:t></w:r></w:p>`)
	require.Equal(t, 4, p.TextLength())

	left, right, err := SplitParagraph(p, 2)
	require.NoError(t, err)
	assert.Equal(t, "ab", left.Text())
	assert.Equal(t, "cd", right.Text())
	assert.Len(t, xml.ChildrenNamed(right.Node(), xml.NSW, "r"), 2, "the drawing run starts the right half")
}

func TestSplitRejectsAtomicElements(t *testing.T) {
	_, p := firstParagraph(t, `<w:p><w:fldSimple w:instr="PAGE"><w:r><w:t>12</w:t></w:r></w:fldSimple></w:p>`)

	_, _, err := SplitParagraph(p, 1)
	assert.ErrorIs(t, err, ErrOffsetOutOfRange)

	left, right, err := SplitParagraph(p, 2)
	require.NoError(t, err)
	assert.Same(t, p, left)
	assert.Nil(t, right)
}

func TestSplitThenAttachBothHalves(t *testing.T) {
	doc, p := firstParagraph(t, para("Hello World"))
	left, right, err := SplitParagraph(p, 6)
	require.NoError(t, err)

	body := doc.Body()
	require.NoError(t, body.Remove(p))
	require.NoError(t, body.Append(left))
	require.NoError(t, body.Append(right))

	assert.Equal(t, []string{"Hello ", "World"}, texts(body))
	assert.NotEqual(t, left.ID(), right.ID())
	require.NoError(t, doc.ValidateIDs())
}

func TestSplitInlineContentControl(t *testing.T) {
	_, p := firstParagraph(t, `<w:p><w:r><w:t>ab</w:t></w:r><w:sdt><w:sdtPr><w:tag w:val="field"/></w:sdtPr>`+
		`<w:sdtContent><w:r><w:t>Hello</w:t></w:r></w:sdtContent><w:sdtEndPr/></w:sdt></w:p>`)
	text := p.Text()
	require.Equal(t, "abHello", text)

	for k := 0; k <= p.TextLength(); k++ {
		left, right, err := SplitParagraph(p, k)
		require.NoError(t, err, "offset %d", k)
		var got string
		if left != nil {
			got += left.Text()
		}
		if right != nil {
			got += right.Text()
		}
		assert.Equal(t, text, got, "offset %d", k)
	}

	left, right, err := SplitParagraph(p, 4)
	require.NoError(t, err)
	for _, half := range []*Paragraph{left, right} {
		sdt := xml.FirstChild(half.Node(), xml.NSW, "sdt")
		require.NotNil(t, sdt)
		assert.Equal(t, []string{"sdtPr", "sdtContent", "sdtEndPr"}, childNames(sdt))
	}
	assert.Equal(t, "abHe", left.Text())
	assert.Equal(t, "llo", right.Text())
}
