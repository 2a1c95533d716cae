package docxtree

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func zipOf(t *testing.T, entries map[string]string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	for name, data := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(data))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestOpenPartStoreRejectsBrokenPackages(t *testing.T) {
	valid := zipEntries(t, buildPackage(t, fixture{body: para("x")}))
	without := func(name string) map[string]string {
		out := make(map[string]string)
		for n, data := range valid {
			if n != name {
				out[n] = string(data)
			}
		}
		return out
	}

	tests := []struct {
		name string
		data func(t *testing.T) []byte
	}{
		{
			name: "not a zip archive",
			data: func(t *testing.T) []byte { return []byte("not a zip file") },
		},
		{
			name: "empty archive",
			data: func(t *testing.T) []byte { return zipOf(t, nil) },
		},
		{
			name: "content type manifest missing",
			data: func(t *testing.T) []byte { return zipOf(t, without(contentTypesPath)) },
		},
		{
			name: "package relationships missing",
			data: func(t *testing.T) []byte { return zipOf(t, without("_rels/.rels")) },
		},
		{
			name: "main part missing",
			data: func(t *testing.T) []byte { return zipOf(t, without("word/document.xml")) },
		},
		{
			name: "malformed manifest",
			data: func(t *testing.T) []byte {
				entries := without(contentTypesPath)
				entries[contentTypesPath] = "<Types"
				return zipOf(t, entries)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenPartStore(tt.data(t), nil, quietLogger())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedContainer), "got %v", err)
		})
	}
}

func TestOpenRejectsUnparsableMainPart(t *testing.T) {
	entries := zipEntries(t, buildPackage(t, fixture{body: para("x")}))
	raw := make(map[string]string)
	for name, data := range entries {
		raw[name] = string(data)
	}
	raw["word/document.xml"] = "<w:document><w:body>"

	_, err := OpenBytes(zipOf(t, raw), testOptions()...)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedContainer)
	assert.True(t, IsFormatError(err))
}

func TestSaveKeepsUntouchedPartsByteForByte(t *testing.T) {
	// unusual but valid formatting the serializer would not reproduce
	styles := `<w:style   w:type="paragraph" w:default="1" w:styleId="Normal" ><w:name w:val="Normal"></w:name></w:style>`
	original := buildPackage(t, fixture{body: para("Hello"), styles: styles})
	doc, err := OpenBytes(original, testOptions()...)
	require.NoError(t, err)

	s, err := doc.Styles()
	require.NoError(t, err)
	assert.Equal(t, "Normal", s.DefaultParagraphStyle())
	assert.False(t, s.Part().Changed())

	data, err := doc.Bytes()
	require.NoError(t, err)

	before := zipEntries(t, original)
	after := zipEntries(t, data)
	require.Len(t, after, len(before))
	for name, content := range before {
		assert.Equal(t, string(content), string(after[name]), "entry %s changed", name)
	}
}

func TestSaveWritesEditedParts(t *testing.T) {
	original := buildPackage(t, fixture{body: para("Hello")})
	doc, err := OpenBytes(original, testOptions()...)
	require.NoError(t, err)

	_, err = doc.Body().AddParagraph("World")
	require.NoError(t, err)
	assert.True(t, doc.Store().MainPart().Changed())

	again := reopen(t, doc)
	assert.Equal(t, []string{"Hello", "World"}, texts(again.Body()))

	// entry order is preserved
	data := mustBytes(t, doc)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{contentTypesPath, "_rels/.rels", "word/document.xml", "word/_rels/document.xml.rels"}, names)
}

func mustBytes(t *testing.T, doc *Document) []byte {
	t.Helper()
	data, err := doc.Bytes()
	require.NoError(t, err)
	return data
}

func TestGetOrCreatePartReusesExistingPart(t *testing.T) {
	doc := newTestDocument(t)
	store := doc.Store()
	main := store.MainPart()

	first, id, err := store.GetOrCreatePart(NumberingPart, main)
	require.NoError(t, err)
	assert.Equal(t, "word/numbering.xml", first.Name)
	assert.Equal(t, "rId3", id)
	assert.Equal(t, CTNumbering, store.ContentTypes().ContentTypeFor(first.Name))

	second, id2, err := store.GetOrCreatePart(NumberingPart, main)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, id, id2)

	resolved, err := store.ResolveRelationship(main, id)
	require.NoError(t, err)
	assert.Same(t, first, resolved)
}

func TestCreatePartNumbersRepeatableKinds(t *testing.T) {
	doc := newTestDocument(t)
	store := doc.Store()

	h1, id1, err := store.CreatePart(HeaderPart, store.MainPart())
	require.NoError(t, err)
	h2, id2, err := store.CreatePart(HeaderPart, store.MainPart())
	require.NoError(t, err)

	assert.Equal(t, "word/header1.xml", h1.Name)
	assert.Equal(t, "word/header2.xml", h2.Name)
	assert.NotEqual(t, id1, id2)

	headers, err := store.Parts("word/header*.xml")
	require.NoError(t, err)
	assert.Len(t, headers, 2)
}

func TestDeletePartIsIdempotent(t *testing.T) {
	doc := newTestDocument(t)
	store := doc.Store()
	part, id, err := store.CreatePart(FooterPart, store.MainPart())
	require.NoError(t, err)

	store.DeletePart(part.Name)
	assert.Nil(t, store.Part(part.Name))
	_, err = store.ResolveRelationship(store.MainPart(), id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "application/xml", store.ContentTypes().ContentTypeFor(part.Name))

	assert.NotPanics(t, func() { store.DeletePart(part.Name) })
	assert.NotPanics(t, func() { store.DeletePart("word/never-existed.xml") })

	again := reopen(t, doc)
	assert.Nil(t, again.Store().Part(part.Name))
	for _, r := range again.Store().Relationships(again.Store().MainPart()) {
		assert.NotEqual(t, RelFooter, r.Type)
	}
}

func TestPartsGlob(t *testing.T) {
	doc := newTestDocument(t)

	parts, err := doc.Store().Parts("word/*.xml")
	require.NoError(t, err)
	var names []string
	for _, p := range parts {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"word/document.xml", "word/settings.xml", "word/styles.xml"}, names)

	all, err := doc.Store().Parts("**")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = doc.Store().Parts("word/[")
	assert.Error(t, err)
}

func TestExternalRelationships(t *testing.T) {
	doc := newTestDocument(t)
	store := doc.Store()
	main := store.MainPart()

	id := store.AddRelationship(main, RelHyperlink, "https://example.com/", true)
	rels := store.Relationships(main)
	require.NotEmpty(t, rels)
	last := rels[len(rels)-1]
	assert.Equal(t, id, last.ID)
	assert.True(t, last.External())
	assert.Equal(t, "https://example.com/", last.Target)

	_, err := store.ResolveRelationship(main, id)
	assert.ErrorIs(t, err, ErrNotFound)

	store.RemoveRelationship(main, id)
	for _, r := range store.Relationships(main) {
		assert.NotEqual(t, id, r.ID)
	}
}

func TestRelationshipPaths(t *testing.T) {
	tests := []struct {
		part string
		rels string
	}{
		{"word/document.xml", "word/_rels/document.xml.rels"},
		{"word/header1.xml", "word/_rels/header1.xml.rels"},
		{"", "_rels/.rels"},
	}
	for _, tt := range tests {
		t.Run(tt.rels, func(t *testing.T) {
			assert.Equal(t, tt.rels, relsPathFor(tt.part))
			source, ok := sourceForRels(tt.rels)
			require.True(t, ok)
			assert.Equal(t, tt.part, source)
		})
	}

	assert.Equal(t, "word/styles.xml", resolveTarget("word/document.xml", "styles.xml"))
	assert.Equal(t, "word/media/a.png", resolveTarget("word/document.xml", "/word/media/a.png"))
	assert.Equal(t, "styles.xml", relativeTarget("word/document.xml", "word/styles.xml"))
	assert.Equal(t, "word/document.xml", relativeTarget("", "word/document.xml"))
}
