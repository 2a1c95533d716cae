package docxtree

import (
	"fmt"
	"io"
	"os"

	"github.com/benjaminschreck/go-docxtree/pkg/docxtree/xml"
)

// Additional story relationship types checked for paragraph identifiers.
const (
	RelFootnotes = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footnotes"
	RelEndnotes  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/endnotes"
)

// Document is an open word-processing package. A Document is not safe for
// concurrent use; callers serialize access.
type Document struct {
	store  *PartStore
	config *Config
	log    *Logger
	ids    IDSource

	blocks     map[*xml.Node]Block
	containers map[*xml.Node]*Container
	paraIDs    map[string]*xml.Node
	roots      map[*xml.Node]*Part
	body       *Container
}

// Open reads a document from r.
func Open(r io.Reader, opts ...Option) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, NewDocumentError("open", "", err)
	}
	return OpenBytes(data, opts...)
}

// OpenFile reads a document from disk.
func OpenFile(path string, opts ...Option) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, NewDocumentError("open", path, err)
	}
	return OpenBytes(data, opts...)
}

// OpenBytes reads a document from its zip bytes.
func OpenBytes(data []byte, opts ...Option) (*Document, error) {
	o := newOptions(opts)
	store, err := OpenPartStore(data, o.templates, o.logger)
	if err != nil {
		return nil, err
	}
	return newDocument(store, o)
}

// New creates an empty document from the package skeletons.
func New(opts ...Option) (*Document, error) {
	o := newOptions(opts)
	data, err := blankPackage(o.templates)
	if err != nil {
		return nil, NewDocumentError("new", "", err)
	}
	store, err := OpenPartStore(data, o.templates, o.logger)
	if err != nil {
		return nil, err
	}
	return newDocument(store, o)
}

func newDocument(store *PartStore, o *options) (*Document, error) {
	d := &Document{
		store:      store,
		config:     o.config,
		log:        o.logger,
		ids:        o.ids,
		blocks:     make(map[*xml.Node]Block),
		containers: make(map[*xml.Node]*Container),
		paraIDs:    make(map[string]*xml.Node),
		roots:      make(map[*xml.Node]*Part),
	}

	main := store.MainPart()
	root, err := main.Root()
	if err != nil {
		return nil, err
	}
	body := xml.FirstChild(root, xml.NSW, "body")
	if body == nil {
		return nil, NewDocumentError("open", main.Name, fmt.Errorf("%w: no w:body element", ErrMalformedContainer))
	}
	d.body = d.containerForNode(body)

	if d.config.ValidateIDsOnOpen {
		if err := d.ValidateIDs(); err != nil {
			return nil, err
		}
	}
	d.indexIDs()

	d.log.WithFields(Fields{"main": main.Name, "paragraphIds": len(d.paraIDs)}).Debug("document ready")
	return d, nil
}

// Body returns the main document body.
func (d *Document) Body() *Container {
	return d.body
}

// Store returns the part store backing the document.
func (d *Document) Store() *PartStore {
	return d.store
}

// Config returns the configuration the document was opened with.
func (d *Document) Config() *Config {
	return d.config
}

// Logger returns the document's logger.
func (d *Document) Logger() *Logger {
	return d.log
}

// Text returns the text of the body paragraphs, one per line.
func (d *Document) Text() string {
	return d.body.Text()
}

// NewParagraph creates a detached paragraph holding text.
func (d *Document) NewParagraph(text string) *Paragraph {
	return d.wrap(newParagraphNode(text), nil).(*Paragraph)
}

// Attach inserts a detached block into c so that it becomes block number
// position.
func (d *Document) Attach(b Block, c *Container, position int) error {
	if c == nil || c.doc != d {
		return NewDocumentError("attach", "", fmt.Errorf("%w: container", ErrNotFound))
	}
	return c.Insert(position, b)
}

// Detach removes an attached block from its container.
func (d *Document) Detach(b Block) error {
	if b == nil {
		return NewDocumentError("detach", "", ErrNotAttached)
	}
	switch b.State() {
	case Detached:
		return NewDocumentError("detach", "", ErrNotAttached)
	default:
		return b.Container().detach("detach", b)
	}
}

// Save writes the document as a zip package.
func (d *Document) Save(w io.Writer) error {
	return d.store.Save(w)
}

// Bytes returns the saved package.
func (d *Document) Bytes() ([]byte, error) {
	return d.store.Bytes()
}

// SaveFile writes the document to path.
func (d *Document) SaveFile(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return NewDocumentError("save", path, err)
	}
	d.log.Info("saved %s (%d bytes)", path, len(data))
	return nil
}

// storyParts returns the main part and every part holding its own text
// stories: headers, footers, comments, footnotes and endnotes.
func (d *Document) storyParts() []*Part {
	main := d.store.MainPart()
	parts := []*Part{main}
	for _, relType := range []string{RelHeader, RelFooter, RelComments, RelFootnotes, RelEndnotes} {
		parts = append(parts, d.store.Related(main, relType)...)
	}
	return parts
}

// partOf finds the part whose tree contains n.
func (d *Document) partOf(n *xml.Node) *Part {
	top := n
	for top.Parent != nil {
		top = top.Parent
	}
	if p, ok := d.roots[top]; ok {
		return p
	}
	for _, p := range d.store.parts {
		if p.doc == top {
			d.roots[top] = p
			return p
		}
	}
	return nil
}

// storyContainer returns the container rooted at the document element of
// part.
func (d *Document) storyContainer(part *Part) (*Container, error) {
	root, err := part.Root()
	if err != nil {
		return nil, err
	}
	c := d.containerForNode(root)
	if c == nil {
		return nil, NewFormatError(part.Name, fmt.Sprintf("unexpected root element <%s>", root.Data), ErrMalformedContainer)
	}
	return c, nil
}

// dropPart forgets everything the document knows about part and deletes it
// from the store.
func (d *Document) dropPart(part *Part) {
	if part.doc != nil {
		d.release(part.doc)
		delete(d.roots, part.doc)
	}
	d.store.DeletePart(part.Name)
}
