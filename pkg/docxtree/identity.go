package docxtree

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/benjaminschreck/go-docxtree/pkg/docxtree/xml"
)

// IDSource generates paragraph identifiers. Identifiers are 8 uppercase hex
// digits below 0x80000000, the range Word accepts for w14:paraId.
type IDSource interface {
	NextID() string
}

// RandomIDSource draws identifiers from random UUIDs. Collisions are possible
// and are reported as ErrDuplicateID, never resolved silently.
type RandomIDSource struct{}

func (RandomIDSource) NextID() string {
	u := uuid.New()
	v := binary.BigEndian.Uint32(u[:4]) & 0x7FFFFFFF
	if v == 0 {
		v = 1
	}
	return formatParaID(v)
}

// SequenceIDSource hands out consecutive identifiers. Tests use it to get
// predictable ids.
type SequenceIDSource struct {
	mu   sync.Mutex
	next uint32
}

// NewSequenceIDSource starts the sequence at start.
func NewSequenceIDSource(start uint32) *SequenceIDSource {
	if start == 0 {
		start = 1
	}
	return &SequenceIDSource{next: start & 0x7FFFFFFF}
}

func (s *SequenceIDSource) NextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.next
	s.next = (s.next + 1) & 0x7FFFFFFF
	if s.next == 0 {
		s.next = 1
	}
	return formatParaID(v)
}

func formatParaID(v uint32) string {
	return fmt.Sprintf("%08X", v)
}

// ParagraphID returns the w14:paraId of a paragraph node.
func ParagraphID(n *xml.Node) string {
	id, _ := xml.Attr(n, xml.NSW14, "paraId")
	return id
}

// paragraphsIn returns n itself when it is a paragraph plus every paragraph
// nested below it.
func paragraphsIn(n *xml.Node) []*xml.Node {
	var out []*xml.Node
	if xml.IsW(n, "p") {
		out = append(out, n)
	}
	return append(out, xml.Descendants(n, xml.NSW, "p")...)
}

// checkIDs reports whether the identifiers already carried by the
// paragraphs in n could be registered. Nothing is modified.
func (d *Document) checkIDs(n *xml.Node, part *Part) error {
	seen := make(map[string]*xml.Node)
	for _, p := range paragraphsIn(n) {
		id := ParagraphID(p)
		if id == "" {
			continue
		}
		if owner, taken := d.paraIDs[id]; taken && owner != p {
			return NewFormatError(partName(part), "paragraph id "+id, ErrDuplicateID)
		}
		if owner, taken := seen[id]; taken && owner != p {
			return NewFormatError(partName(part), "paragraph id "+id, ErrDuplicateID)
		}
		seen[id] = p
	}
	return nil
}

// registerIDs claims identifiers for every paragraph in the subtree n,
// generating the missing ones. Nothing is modified when any identifier
// collides with one already in use.
func (d *Document) registerIDs(n *xml.Node, part *Part) error {
	pending := make(map[string]*xml.Node)
	generated := make(map[*xml.Node]string)

	for _, p := range paragraphsIn(n) {
		id := ParagraphID(p)
		if id == "" {
			id = d.ids.NextID()
			generated[p] = id
		}
		if owner, taken := d.paraIDs[id]; taken && owner != p {
			return NewFormatError(partName(part), "paragraph id "+id, ErrDuplicateID)
		}
		if owner, taken := pending[id]; taken && owner != p {
			return NewFormatError(partName(part), "paragraph id "+id, ErrDuplicateID)
		}
		pending[id] = p
	}

	for p, id := range generated {
		xml.SetAttr(p, xml.NSW14, "paraId", id)
	}
	for id, p := range pending {
		d.paraIDs[id] = p
	}
	if len(pending) > 0 && part != nil {
		if root, err := part.Root(); err == nil {
			xml.EnsureNamespace(root, "w14", xml.NSW14)
		}
	}
	if len(generated) > 0 {
		d.log.Debug("assigned %d paragraph ids", len(generated))
	}
	return nil
}

// unregisterIDs releases the identifiers of the paragraphs in n.
func (d *Document) unregisterIDs(n *xml.Node) {
	for _, p := range paragraphsIn(n) {
		id := ParagraphID(p)
		if owner, ok := d.paraIDs[id]; ok && owner == p {
			delete(d.paraIDs, id)
		}
	}
}

// ParagraphByID finds an attached paragraph by its identifier.
func (d *Document) ParagraphByID(id string) (*Paragraph, bool) {
	n, ok := d.paraIDs[id]
	if !ok {
		return nil, false
	}
	p, ok := d.blockFor(n).(*Paragraph)
	return p, ok
}

// ValidateIDs checks that no two paragraphs of any story part share an
// identifier. Every collision is reported.
func (d *Document) ValidateIDs() error {
	errs := NewMultiError()
	seen := make(map[string]string)
	for _, part := range d.storyParts() {
		root, err := part.Root()
		if err != nil {
			errs.Add(err)
			continue
		}
		for _, p := range xml.Descendants(root, xml.NSW, "p") {
			id := ParagraphID(p)
			if id == "" {
				continue
			}
			if first, dup := seen[id]; dup {
				errs.Add(NewFormatError(part.Name, fmt.Sprintf("paragraph id %s also used in %s", id, first), ErrDuplicateID))
				continue
			}
			seen[id] = part.Name
		}
	}
	return errs.Err()
}

// indexIDs registers the identifiers already present in the story parts.
// The first owner of an identifier wins.
func (d *Document) indexIDs() {
	for _, part := range d.storyParts() {
		root, err := part.Root()
		if err != nil {
			continue
		}
		for _, p := range xml.Descendants(root, xml.NSW, "p") {
			if id := ParagraphID(p); id != "" {
				if _, taken := d.paraIDs[id]; !taken {
					d.paraIDs[id] = p
				}
			}
		}
	}
}

func partName(p *Part) string {
	if p == nil {
		return ""
	}
	return p.Name
}
