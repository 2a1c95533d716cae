package docxtree

import (
	"fmt"

	"github.com/benjaminschreck/go-docxtree/pkg/docxtree/xml"
)

// HeaderFooterType selects which pages a header or footer applies to.
type HeaderFooterType string

const (
	HeaderFooterDefault HeaderFooterType = "default"
	HeaderFooterFirst   HeaderFooterType = "first"
	HeaderFooterEven    HeaderFooterType = "even"
)

type storyKind struct {
	reference string
	part      PartKind
}

var (
	headerStory = storyKind{reference: "headerReference", part: HeaderPart}
	footerStory = storyKind{reference: "footerReference", part: FooterPart}
)

// finalSectionProperties returns the body's trailing w:sectPr, creating it
// when create is set.
func (d *Document) finalSectionProperties(create bool) *xml.Node {
	if sectPr := d.body.trailer(); sectPr != nil {
		return sectPr
	}
	if !create {
		return nil
	}
	sectPr := xml.W("sectPr")
	xml.AppendChild(d.body.node, sectPr)
	return sectPr
}

func (d *Document) storyReference(kind storyKind, typ HeaderFooterType) *xml.Node {
	for _, ref := range xml.ChildrenNamed(d.finalSectionProperties(false), xml.NSW, kind.reference) {
		if t, _ := xml.Attr(ref, xml.NSW, "type"); HeaderFooterType(t) == typ {
			return ref
		}
	}
	return nil
}

// Header returns the header of the final section for typ.
func (d *Document) Header(typ HeaderFooterType) (*Container, error) {
	return d.story(headerStory, typ)
}

// Footer returns the footer of the final section for typ.
func (d *Document) Footer(typ HeaderFooterType) (*Container, error) {
	return d.story(footerStory, typ)
}

// AddHeader creates a fresh header for typ, replacing an existing one.
func (d *Document) AddHeader(typ HeaderFooterType) (*Container, error) {
	return d.addStory(headerStory, typ)
}

// AddFooter creates a fresh footer for typ, replacing an existing one.
func (d *Document) AddFooter(typ HeaderFooterType) (*Container, error) {
	return d.addStory(footerStory, typ)
}

// RemoveHeader removes the header for typ. Removing a missing header does
// nothing.
func (d *Document) RemoveHeader(typ HeaderFooterType) error {
	return d.removeStory(headerStory, typ)
}

// RemoveFooter removes the footer for typ. Removing a missing footer does
// nothing.
func (d *Document) RemoveFooter(typ HeaderFooterType) error {
	return d.removeStory(footerStory, typ)
}

func (d *Document) story(kind storyKind, typ HeaderFooterType) (*Container, error) {
	ref := d.storyReference(kind, typ)
	if ref == nil {
		return nil, NewDocumentError(kind.part.Name, string(typ), ErrNotFound)
	}
	id, _ := xml.Attr(ref, xml.NSR, "id")
	part, err := d.store.ResolveRelationship(d.store.MainPart(), id)
	if err != nil {
		return nil, NewFormatError(d.store.MainPart().Name, kind.reference+" "+id, err)
	}
	return d.storyContainer(part)
}

func (d *Document) addStory(kind storyKind, typ HeaderFooterType) (*Container, error) {
	switch typ {
	case HeaderFooterDefault, HeaderFooterFirst, HeaderFooterEven:
	default:
		return nil, NewDocumentError("add "+kind.part.Name, string(typ), fmt.Errorf("unknown %s type", kind.part.Name))
	}
	if err := d.removeStory(kind, typ); err != nil {
		return nil, err
	}

	main := d.store.MainPart()
	part, id, err := d.store.CreatePart(kind.part, main)
	if err != nil {
		return nil, err
	}
	root, err := main.Root()
	if err != nil {
		return nil, err
	}
	xml.EnsureNamespace(root, "r", xml.NSR)

	sectPr := d.finalSectionProperties(true)
	ref := xml.W(kind.reference, "type", string(typ))
	xml.SetAttr(ref, xml.NSR, "id", id)
	// references come first in sectPr
	var firstOther *xml.Node
	for _, c := range xml.Children(sectPr) {
		if !xml.IsW(c, "headerReference") && !xml.IsW(c, "footerReference") {
			firstOther = c
			break
		}
	}
	if firstOther != nil {
		xml.InsertBefore(firstOther, ref)
	} else {
		xml.AppendChild(sectPr, ref)
	}

	switch typ {
	case HeaderFooterFirst:
		if xml.FirstChild(sectPr, xml.NSW, "titlePg") == nil {
			d.insertTitlePage(sectPr)
		}
	case HeaderFooterEven:
		if err := d.enableEvenAndOddHeaders(); err != nil {
			return nil, err
		}
	}

	return d.storyContainer(part)
}

// insertTitlePage adds w:titlePg in schema order, ahead of textDirection,
// bidi, rtlGutter, docGrid and printerSettings.
func (d *Document) insertTitlePage(sectPr *xml.Node) {
	titlePg := xml.W("titlePg")
	for _, c := range xml.Children(sectPr) {
		switch c.Data {
		case "textDirection", "bidi", "rtlGutter", "docGrid", "printerSettings", "sectPrChange":
			xml.InsertBefore(c, titlePg)
			return
		}
	}
	xml.AppendChild(sectPr, titlePg)
}

func (d *Document) enableEvenAndOddHeaders() error {
	settings, _, err := d.store.GetOrCreatePart(SettingsPart, d.store.MainPart())
	if err != nil {
		return err
	}
	root, err := settings.Root()
	if err != nil {
		return err
	}
	if xml.FirstChild(root, xml.NSW, "evenAndOddHeaders") == nil {
		xml.AppendChild(root, xml.W("evenAndOddHeaders"))
	}
	return nil
}

func (d *Document) removeStory(kind storyKind, typ HeaderFooterType) error {
	ref := d.storyReference(kind, typ)
	if ref == nil {
		return nil
	}
	main := d.store.MainPart()
	id, _ := xml.Attr(ref, xml.NSR, "id")
	xml.Remove(ref)

	part, err := d.store.ResolveRelationship(main, id)
	if err != nil {
		// dangling reference; the relationship may still exist
		d.store.RemoveRelationship(main, id)
		return nil
	}
	if d.referenceCount(id) == 0 {
		d.store.RemoveRelationship(main, id)
		d.dropPart(part)
	}
	return nil
}

// referenceCount counts header and footer references to relationship id
// across all sections.
func (d *Document) referenceCount(id string) int {
	root, err := d.store.MainPart().Root()
	if err != nil {
		return 0
	}
	count := 0
	for _, local := range []string{"headerReference", "footerReference"} {
		for _, ref := range xml.Descendants(root, xml.NSW, local) {
			if v, _ := xml.Attr(ref, xml.NSR, "id"); v == id {
				count++
			}
		}
	}
	return count
}
