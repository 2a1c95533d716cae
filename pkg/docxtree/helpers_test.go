package docxtree

import (
	"archive/zip"
	"bytes"
	"io"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const (
	testDocumentOpen = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:w14="http://schemas.microsoft.com/office/word/2010/wordml"><w:body>`
	testDocumentClose = `<w:sectPr><w:pgSz w:w="11906" w:h="16838"/></w:sectPr></w:body></w:document>`

	testStylesOpen  = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:styles xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">`
	testStylesClose = `</w:styles>`

	testNumberingOpen  = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><w:numbering xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">`
	testNumberingClose = `</w:numbering>`
)

// fixture describes an in-memory package. styles and numbering hold the
// inner markup of their parts and are omitted when empty.
type fixture struct {
	body      string
	styles    string
	numbering string
	extra     map[string]string
}

func buildPackage(t *testing.T, f fixture) []byte {
	t.Helper()

	overrides := map[string]string{
		"/word/document.xml": CTDocument,
	}
	var rels []string
	if f.styles != "" {
		overrides["/word/styles.xml"] = CTStyles
		rels = append(rels, `<Relationship Id="rId1" Type="`+RelStyles+`" Target="styles.xml"/>`)
	}
	if f.numbering != "" {
		overrides["/word/numbering.xml"] = CTNumbering
		rels = append(rels, `<Relationship Id="rId2" Type="`+RelNumbering+`" Target="numbering.xml"/>`)
	}

	var types strings.Builder
	types.WriteString(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">`)
	types.WriteString(`<Default Extension="rels" ContentType="` + CTRelationships + `"/><Default Extension="xml" ContentType="` + CTXML + `"/>`)
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		types.WriteString(`<Override PartName="` + name + `" ContentType="` + overrides[name] + `"/>`)
	}
	types.WriteString(`</Types>`)

	entries := []struct{ name, data string }{
		{contentTypesPath, types.String()},
		{"_rels/.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"><Relationship Id="rId1" Type="` + RelOfficeDocument + `" Target="word/document.xml"/></Relationships>`},
		{"word/document.xml", testDocumentOpen + f.body + testDocumentClose},
		{"word/_rels/document.xml.rels", `<?xml version="1.0" encoding="UTF-8" standalone="yes"?><Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` + strings.Join(rels, "") + `</Relationships>`},
	}
	if f.styles != "" {
		entries = append(entries, struct{ name, data string }{"word/styles.xml", testStylesOpen + f.styles + testStylesClose})
	}
	if f.numbering != "" {
		entries = append(entries, struct{ name, data string }{"word/numbering.xml", testNumberingOpen + f.numbering + testNumberingClose})
	}
	extra := make([]string, 0, len(f.extra))
	for name := range f.extra {
		extra = append(extra, name)
	}
	sort.Strings(extra)
	for _, name := range extra {
		entries = append(entries, struct{ name, data string }{name, f.extra[name]})
	}

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for _, e := range entries {
		fw, err := w.Create(e.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(e.data))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func quietLogger() *Logger {
	return NewLogger(io.Discard, LogOff)
}

func testOptions(opts ...Option) []Option {
	return append([]Option{
		WithLogger(quietLogger()),
		WithIDSource(NewSequenceIDSource(0x100)),
		WithConfig(DefaultConfig()),
	}, opts...)
}

func openFixture(t *testing.T, f fixture, opts ...Option) *Document {
	t.Helper()
	doc, err := OpenBytes(buildPackage(t, f), testOptions(opts...)...)
	require.NoError(t, err)
	return doc
}

func newTestDocument(t *testing.T, opts ...Option) *Document {
	t.Helper()
	doc, err := New(testOptions(opts...)...)
	require.NoError(t, err)
	return doc
}

// para returns the markup of a paragraph with one run per text.
func para(texts ...string) string {
	var b strings.Builder
	b.WriteString("<w:p>")
	for _, text := range texts {
		b.WriteString(`<w:r><w:t xml:space="preserve">` + text + `</w:t></w:r>`)
	}
	b.WriteString("</w:p>")
	return b.String()
}

func texts(c *Container) []string {
	var out []string
	for p := range c.Paragraphs() {
		out = append(out, p.Text())
	}
	return out
}

func kinds(c *Container) []BlockKind {
	var out []BlockKind
	for b := range c.Blocks() {
		out = append(out, b.Kind())
	}
	return out
}

// reopen saves doc and opens the result.
func reopen(t *testing.T, doc *Document) *Document {
	t.Helper()
	data, err := doc.Bytes()
	require.NoError(t, err)
	again, err := OpenBytes(data, testOptions()...)
	require.NoError(t, err)
	return again
}

func zipEntries(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := make(map[string][]byte)
	for _, f := range zr.File {
		content, err := readZipFile(f)
		require.NoError(t, err)
		out[f.Name] = content
	}
	return out
}
