package docxtree

import (
	"fmt"
	"strconv"
	"time"

	"github.com/benjaminschreck/go-docxtree/pkg/docxtree/xml"
)

// Comment is a w:comment. Its body is a container of blocks.
type Comment struct {
	*Container
}

// ID returns the comment id referenced from the anchored range.
func (c *Comment) ID() int {
	id, _ := intAttr(c.node, "id")
	return id
}

// Author returns the comment author.
func (c *Comment) Author() string {
	v, _ := xml.Attr(c.node, xml.NSW, "author")
	return v
}

// Initials returns the author initials.
func (c *Comment) Initials() string {
	v, _ := xml.Attr(c.node, xml.NSW, "initials")
	return v
}

// Date returns the comment timestamp as written in the document.
func (c *Comment) Date() string {
	v, _ := xml.Attr(c.node, xml.NSW, "date")
	return v
}

// Comments returns every comment of the document in document order.
func (d *Document) Comments() ([]*Comment, error) {
	related := d.store.Related(d.store.MainPart(), RelComments)
	if len(related) == 0 {
		return nil, nil
	}
	root, err := related[0].Root()
	if err != nil {
		return nil, err
	}
	var comments []*Comment
	for _, n := range xml.ChildrenNamed(root, xml.NSW, "comment") {
		comments = append(comments, &Comment{Container: d.containerForNode(n)})
	}
	return comments, nil
}

// Comment returns the comment with the given id.
func (d *Document) Comment(id int) (*Comment, error) {
	comments, err := d.Comments()
	if err != nil {
		return nil, err
	}
	for _, c := range comments {
		if c.ID() == id {
			return c, nil
		}
	}
	return nil, NewDocumentError("comment", strconv.Itoa(id), ErrNotFound)
}

// AddComment anchors a new comment on the whole of paragraph anchor. The
// comments part and the people part are created on first use.
func (d *Document) AddComment(anchor *Paragraph, author, initials, text string) (*Comment, error) {
	if anchor == nil || anchor.State() != Attached {
		return nil, NewDocumentError("add comment", "", ErrNotAttached)
	}
	if anchor.doc != d {
		return nil, NewDocumentError("add comment", "", fmt.Errorf("%w: paragraph belongs to another document", ErrNotFound))
	}

	main := d.store.MainPart()
	part, _, err := d.store.GetOrCreatePart(CommentsPart, main)
	if err != nil {
		return nil, err
	}
	root, err := part.Root()
	if err != nil {
		return nil, err
	}

	id := 0
	for _, n := range xml.ChildrenNamed(root, xml.NSW, "comment") {
		if v, ok := intAttr(n, "id"); ok && v >= id {
			id = v + 1
		}
	}
	idStr := strconv.Itoa(id)

	node := xml.W("comment", "id", idStr, "author", author, "date", time.Now().UTC().Format("2006-01-02T15:04:05Z"))
	if initials != "" {
		xml.SetAttr(node, xml.NSW, "initials", initials)
	}
	xml.AppendChild(root, node)
	comment := &Comment{Container: d.containerForNode(node)}

	para := d.NewParagraph("")
	ref := xml.W("r")
	xml.AppendChild(ref, xml.W("annotationRef"))
	xml.AppendChild(para.Node(), ref)
	para.AddRun(text)
	if err := comment.Append(para); err != nil {
		xml.Remove(node)
		d.release(node)
		return nil, err
	}

	// anchor range around the paragraph content
	start := xml.W("commentRangeStart", "id", idStr)
	if pPr := xml.FirstChild(anchor.node, xml.NSW, "pPr"); pPr != nil {
		xml.InsertAfter(pPr, start)
	} else {
		xml.PrependChild(anchor.node, start)
	}
	xml.AppendChild(anchor.node, xml.W("commentRangeEnd", "id", idStr))
	refRun := xml.W("r")
	xml.AppendChild(refRun, xml.W("commentReference", "id", idStr))
	xml.AppendChild(anchor.node, refRun)

	if author != "" {
		if err := d.addPerson(author); err != nil {
			return nil, err
		}
	}
	d.log.WithFields(Fields{"comment": id, "author": author}).Debug("added comment")
	return comment, nil
}

// addPerson records author in the people part unless already present.
func (d *Document) addPerson(author string) error {
	part, _, err := d.store.GetOrCreatePart(PeoplePart, d.store.MainPart())
	if err != nil {
		return err
	}
	root, err := part.Root()
	if err != nil {
		return err
	}
	for _, p := range xml.ChildrenNamed(root, xml.NSW15, "person") {
		if v, _ := xml.Attr(p, xml.NSW15, "author"); v == author {
			return nil
		}
	}
	person := xml.NewElement(xml.NSW15, "person")
	xml.SetAttr(person, xml.NSW15, "author", author)
	presence := xml.NewElement(xml.NSW15, "presenceInfo")
	xml.SetAttr(presence, xml.NSW15, "providerId", "None")
	xml.SetAttr(presence, xml.NSW15, "userId", author)
	xml.AppendChild(person, presence)
	xml.AppendChild(root, person)
	return nil
}

// People returns the authors recorded in the people part.
func (d *Document) People() ([]string, error) {
	related := d.store.Related(d.store.MainPart(), RelPeople)
	if len(related) == 0 {
		return nil, nil
	}
	root, err := related[0].Root()
	if err != nil {
		return nil, err
	}
	var authors []string
	for _, p := range xml.ChildrenNamed(root, xml.NSW15, "person") {
		if v, ok := xml.Attr(p, xml.NSW15, "author"); ok {
			authors = append(authors, v)
		}
	}
	return authors, nil
}
