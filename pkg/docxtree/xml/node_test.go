package xml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships"><w:body><w:p><w:pPr><w:pStyle w:val="Heading1"/></w:pPr><w:r><w:t xml:space="preserve">Hello </w:t></w:r><w:hyperlink r:id="rId4"><w:r><w:t>World</w:t></w:r></w:hyperlink></w:p><w:sectPr/></w:body></w:document>`

func parseSample(t *testing.T) *Node {
	t.Helper()
	doc, err := Parse([]byte(sampleBody))
	require.NoError(t, err)
	return doc
}

func TestParseRejectsMalformedXML(t *testing.T) {
	tests := []struct {
		name string
		xml  string
	}{
		{"unclosed tag", "<w:document><w:body></w:document>"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.xml))
			assert.Error(t, err)
		})
	}
}

func TestSerializeKeepsPrefixes(t *testing.T) {
	doc := parseSample(t)
	out := string(Serialize(doc))

	assert.True(t, strings.HasPrefix(out, Header))
	assert.Contains(t, out, `<w:pStyle w:val="Heading1"/>`)
	assert.Contains(t, out, `<w:hyperlink r:id="rId4">`)
	assert.Contains(t, out, `xml:space="preserve"`)
	assert.Contains(t, out, `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`)

	again, err := Parse([]byte(out))
	require.NoError(t, err)
	assert.Equal(t, out, string(Serialize(again)))
}

func TestTextSkipsProperties(t *testing.T) {
	doc := parseSample(t)
	p := FirstChild(FirstChild(Root(doc), NSW, "body"), NSW, "p")
	require.NotNil(t, p)

	assert.Equal(t, "Hello World", Text(p))
	assert.Equal(t, 11, TextLength(p))
	assert.Len(t, TextLeaves(p), 2)
}

func TestTextCountsRunesAndDeletedText(t *testing.T) {
	p := W("p")
	r := W("r")
	AppendChild(p, r)
	leaf := W("t")
	SetLeafText(leaf, "héllo")
	AppendChild(r, leaf)
	del := W("del")
	dr := W("r")
	dt := W("delText")
	SetLeafText(dt, "✓")
	AppendChild(dr, dt)
	AppendChild(del, dr)
	AppendChild(p, del)
	AppendChild(r, W("br"))

	assert.Equal(t, 6, TextLength(p))
	assert.Equal(t, "héllo✓", Text(p))
}

func TestInsertBeforeAndAfter(t *testing.T) {
	parent := W("body")
	a, b, c := W("p"), W("tbl"), W("sectPr")
	AppendChild(parent, a)
	AppendChild(parent, c)

	InsertBefore(c, b)
	names := func() []string {
		var out []string
		for _, n := range Children(parent) {
			out = append(out, n.Data)
		}
		return out
	}
	assert.Equal(t, []string{"p", "tbl", "sectPr"}, names())

	d := W("p")
	InsertAfter(c, d)
	assert.Equal(t, []string{"p", "tbl", "sectPr", "p"}, names())
	assert.Same(t, d, parent.LastChild)

	e := W("bookmarkStart")
	InsertBefore(a, e)
	assert.Same(t, e, parent.FirstChild)

	Remove(b)
	assert.Nil(t, b.Parent)
	assert.Equal(t, []string{"bookmarkStart", "p", "sectPr", "p"}, names())
	Remove(b)
}

func TestCloneIsDetachedAndDeep(t *testing.T) {
	doc := parseSample(t)
	p := FirstChild(FirstChild(Root(doc), NSW, "body"), NSW, "p")

	c := Clone(p)
	assert.Nil(t, c.Parent)
	assert.Equal(t, Text(p), Text(c))

	SetLeafText(TextLeaves(c)[0], "Bye ")
	assert.Equal(t, "Hello World", Text(p))
	assert.Equal(t, "Bye World", Text(c))
}

func TestAttributes(t *testing.T) {
	n := W("ind", "left", "720")
	v, ok := Attr(n, NSW, "left")
	require.True(t, ok)
	assert.Equal(t, "720", v)

	SetAttr(n, NSW, "left", "1440")
	v, _ = Attr(n, NSW, "left")
	assert.Equal(t, "1440", v)

	SetAttr(n, NSW14, "paraId", "1A2B3C4D")
	assert.Contains(t, Fragment(n), `w14:paraId="1A2B3C4D"`)

	RemoveAttr(n, NSW, "left")
	_, ok = Attr(n, NSW, "left")
	assert.False(t, ok)
}

func TestEnsureNamespace(t *testing.T) {
	doc := parseSample(t)
	root := Root(doc)
	EnsureNamespace(root, "w14", NSW14)
	EnsureNamespace(root, "w14", NSW14)

	out := string(Serialize(doc))
	assert.Equal(t, 1, strings.Count(out, "xmlns:w14="))
}

func TestSliceRunes(t *testing.T) {
	assert.Equal(t, "él", SliceRunes("héllo", 1, 3))
	assert.Equal(t, "", SliceRunes("abc", 2, 1))
	assert.Equal(t, "abc", SliceRunes("abc", -1, 10))
}
