package docxtree

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/zeebo/blake3"

	"github.com/benjaminschreck/go-docxtree/pkg/docxtree/xml"
)

// Part is a named unit inside the package. XML parts are parsed on first
// access; parts that are never touched are written back byte for byte.
type Part struct {
	Name        string
	ContentType string

	data     []byte
	doc      *xml.Node
	baseline [32]byte
	created  bool
}

// Document returns the parsed DOM of the part, parsing it on first use.
func (p *Part) Document() (*xml.Node, error) {
	if p.doc != nil {
		return p.doc, nil
	}
	doc, err := xml.Parse(p.data)
	if err != nil {
		return nil, NewFormatError(p.Name, "cannot parse part", fmt.Errorf("%w: %v", ErrMalformedContainer, err))
	}
	p.doc = doc
	p.baseline = blake3.Sum256(xml.Serialize(doc))
	return doc, nil
}

// Root returns the document element of the part.
func (p *Part) Root() (*xml.Node, error) {
	doc, err := p.Document()
	if err != nil {
		return nil, err
	}
	return xml.Root(doc), nil
}

// Loaded reports whether the part has been parsed.
func (p *Part) Loaded() bool {
	return p.doc != nil
}

// Changed reports whether the part differs from what was loaded.
func (p *Part) Changed() bool {
	if p.created {
		return true
	}
	if p.doc == nil {
		return false
	}
	return blake3.Sum256(xml.Serialize(p.doc)) != p.baseline
}

// Bytes returns the payload that Save writes for this part.
func (p *Part) Bytes() []byte {
	if p.doc == nil {
		return p.data
	}
	out := xml.Serialize(p.doc)
	if !p.created && blake3.Sum256(out) == p.baseline {
		return p.data
	}
	return out
}

// PartKind describes a part the engine knows how to create.
type PartKind struct {
	Name        string
	RelType     string
	ContentType string
	// PathFormat is the part name, or a fmt pattern with one %d for kinds
	// that may exist more than once.
	PathFormat string
	// Template names the skeleton requested from the TemplateProvider.
	Template string
}

// Singleton reports whether at most one part of this kind exists per parent.
func (k PartKind) Singleton() bool {
	return !strings.Contains(k.PathFormat, "%d")
}

// Built-in part kinds.
var (
	HeaderPart    = PartKind{Name: "header", RelType: RelHeader, ContentType: CTHeader, PathFormat: "word/header%d.xml", Template: "header.xml"}
	FooterPart    = PartKind{Name: "footer", RelType: RelFooter, ContentType: CTFooter, PathFormat: "word/footer%d.xml", Template: "footer.xml"}
	NumberingPart = PartKind{Name: "numbering", RelType: RelNumbering, ContentType: CTNumbering, PathFormat: "word/numbering.xml", Template: "numbering.xml"}
	StylesPart    = PartKind{Name: "styles", RelType: RelStyles, ContentType: CTStyles, PathFormat: "word/styles.xml", Template: "styles.xml"}
	CommentsPart  = PartKind{Name: "comments", RelType: RelComments, ContentType: CTComments, PathFormat: "word/comments.xml", Template: "comments.xml"}
	PeoplePart    = PartKind{Name: "people", RelType: RelPeople, ContentType: CTPeople, PathFormat: "word/people.xml", Template: "people.xml"}
	SettingsPart  = PartKind{Name: "settings", RelType: RelSettings, ContentType: CTSettings, PathFormat: "word/settings.xml", Template: "settings.xml"}
)

// PartStore owns every part and relationship of an open package.
type PartStore struct {
	parts     map[string]*Part
	order     []string
	raw       map[string][]byte
	types     *ContentTypes
	typesDirt bool
	rels      map[string]*relationshipTable
	main      string
	templates TemplateProvider
	log       *Logger
}

// OpenPartStore reads a package from its zip bytes.
func OpenPartStore(data []byte, templates TemplateProvider, log *Logger) (*PartStore, error) {
	if templates == nil {
		templates = EmbeddedTemplates()
	}
	if log == nil {
		log = GetLogger()
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, NewDocumentError("open", "", fmt.Errorf("%w: %v", ErrMalformedContainer, err))
	}

	s := &PartStore{
		parts:     make(map[string]*Part),
		raw:       make(map[string][]byte),
		rels:      make(map[string]*relationshipTable),
		templates: templates,
		log:       log,
	}

	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		content, err := readZipFile(f)
		if err != nil {
			return nil, NewDocumentError("open", f.Name, fmt.Errorf("%w: %v", ErrMalformedContainer, err))
		}
		s.order = append(s.order, f.Name)

		if f.Name == contentTypesPath {
			s.raw[f.Name] = content
			if s.types, err = parseContentTypes(content); err != nil {
				return nil, NewDocumentError("open", f.Name, fmt.Errorf("%w: %v", ErrMalformedContainer, err))
			}
			continue
		}
		if source, ok := sourceForRels(f.Name); ok {
			s.raw[f.Name] = content
			table, err := parseRelationships(source, content)
			if err != nil {
				return nil, NewDocumentError("open", f.Name, fmt.Errorf("%w: %v", ErrMalformedContainer, err))
			}
			s.rels[source] = table
			continue
		}
		s.parts[f.Name] = &Part{Name: f.Name, data: content}
	}

	if s.types == nil {
		return nil, NewDocumentError("open", contentTypesPath, fmt.Errorf("%w: content type manifest missing", ErrMalformedContainer))
	}
	if _, ok := s.rels[""]; !ok {
		return nil, NewDocumentError("open", "_rels/.rels", fmt.Errorf("%w: package relationships missing", ErrMalformedContainer))
	}
	for name, p := range s.parts {
		p.ContentType = s.types.ContentTypeFor(name)
	}

	s.main = "word/document.xml"
	for _, r := range s.rels[""].rels {
		if r.Type == RelOfficeDocument {
			s.main = resolveTarget("", r.Target)
			break
		}
	}
	if _, ok := s.parts[s.main]; !ok {
		return nil, NewDocumentError("open", s.main, fmt.Errorf("%w: main document part missing", ErrMalformedContainer))
	}

	log.WithFields(Fields{"parts": len(s.parts), "relationships": len(s.rels)}).Debug("opened package, main part %s", s.main)
	return s, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Part returns the part with the given name, or nil.
func (s *PartStore) Part(name string) *Part {
	return s.parts[strings.TrimPrefix(name, "/")]
}

// MainPart returns the main document part.
func (s *PartStore) MainPart() *Part {
	return s.parts[s.main]
}

// ContentTypes returns the package manifest.
func (s *PartStore) ContentTypes() *ContentTypes {
	return s.types
}

// Parts returns the parts whose names match a doublestar glob such as
// "word/header*.xml" or "**/*.xml", sorted by name.
func (s *PartStore) Parts(pattern string) ([]*Part, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid part pattern: %s", pattern)
	}
	var out []*Part
	for name, p := range s.parts {
		if ok, _ := doublestar.Match(pattern, name); ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func sourceName(source *Part) string {
	if source == nil {
		return ""
	}
	return source.Name
}

// Relationships returns a copy of the outgoing relationships of source. A nil
// source means the package itself.
func (s *PartStore) Relationships(source *Part) []Relationship {
	table := s.rels[sourceName(source)]
	if table == nil {
		return nil
	}
	out := make([]Relationship, len(table.rels))
	copy(out, table.rels)
	return out
}

// Related returns the internal parts source points to with relType.
func (s *PartStore) Related(source *Part, relType string) []*Part {
	table := s.rels[sourceName(source)]
	if table == nil {
		return nil
	}
	var out []*Part
	for _, r := range table.rels {
		if r.Type != relType || r.External() {
			continue
		}
		if p := s.parts[resolveTarget(table.source, r.Target)]; p != nil {
			out = append(out, p)
		}
	}
	return out
}

// ResolveRelationship returns the part that relationship id of source
// points to.
func (s *PartStore) ResolveRelationship(source *Part, id string) (*Part, error) {
	name := sourceName(source)
	table := s.rels[name]
	if table == nil {
		return nil, NewDocumentError("resolve relationship", name, fmt.Errorf("%w: %s", ErrNotFound, id))
	}
	r, ok := table.get(id)
	if !ok || r.External() {
		return nil, NewDocumentError("resolve relationship", name, fmt.Errorf("%w: %s", ErrNotFound, id))
	}
	p := s.parts[resolveTarget(name, r.Target)]
	if p == nil {
		return nil, NewDocumentError("resolve relationship", name, fmt.Errorf("%w: target %s of %s", ErrNotFound, r.Target, id))
	}
	return p, nil
}

// RelationshipID returns the id under which source refers to target.
func (s *PartStore) RelationshipID(source, target *Part) (string, bool) {
	name := sourceName(source)
	table := s.rels[name]
	if table == nil || target == nil {
		return "", false
	}
	for _, r := range table.rels {
		if !r.External() && resolveTarget(name, r.Target) == target.Name {
			return r.ID, true
		}
	}
	return "", false
}

func (s *PartStore) table(source string) *relationshipTable {
	table := s.rels[source]
	if table == nil {
		table = &relationshipTable{source: source, dirty: true}
		s.rels[source] = table
		s.order = append(s.order, relsPathFor(source))
	}
	return table
}

// AddRelationship adds an edge from source to target and returns its new id.
// Internal targets are part names; external targets are kept verbatim.
func (s *PartStore) AddRelationship(source *Part, relType, target string, external bool) string {
	name := sourceName(source)
	if !external {
		target = relativeTarget(name, target)
	}
	return s.table(name).add(relType, target, external)
}

// RemoveRelationship deletes relationship id of source. Removing an unknown
// id does nothing.
func (s *PartStore) RemoveRelationship(source *Part, id string) {
	if table := s.rels[sourceName(source)]; table != nil {
		table.remove(func(r Relationship) bool { return r.ID != id })
	}
}

// AddPart registers a new part with the given payload.
func (s *PartStore) AddPart(name, contentType string, data []byte) (*Part, error) {
	name = strings.TrimPrefix(name, "/")
	if _, exists := s.parts[name]; exists {
		return nil, NewDocumentError("add part", name, fmt.Errorf("part already exists"))
	}
	p := &Part{Name: name, ContentType: contentType, data: data, created: true}
	s.parts[name] = p
	s.order = append(s.order, name)
	if contentType != "" && s.types.ContentTypeFor(name) != contentType {
		s.types.setOverride(name, contentType)
		s.typesDirt = true
	}
	return p, nil
}

// GetOrCreatePart returns the part of kind related to parent, creating it
// from its template when there is none. The relationship id parent uses for
// the part is returned alongside.
func (s *PartStore) GetOrCreatePart(kind PartKind, parent *Part) (*Part, string, error) {
	for _, p := range s.Related(parent, kind.RelType) {
		if id, ok := s.RelationshipID(parent, p); ok {
			return p, id, nil
		}
	}
	return s.CreatePart(kind, parent)
}

// CreatePart always creates a new part of kind related to parent.
func (s *PartStore) CreatePart(kind PartKind, parent *Part) (*Part, string, error) {
	name, err := s.nextPartName(kind)
	if err != nil {
		return nil, "", err
	}

	if existing := s.parts[name]; existing != nil {
		// singleton present but unrelated to parent
		id := s.AddRelationship(parent, kind.RelType, name, false)
		return existing, id, nil
	}

	data, err := s.templates.Template(kind.Template)
	if err != nil {
		return nil, "", NewDocumentError("create part", name, err)
	}
	p, err := s.AddPart(name, kind.ContentType, data)
	if err != nil {
		return nil, "", err
	}
	id := s.AddRelationship(parent, kind.RelType, name, false)

	s.log.WithFields(Fields{"part": name, "kind": kind.Name, "relId": id}).Info("created part")
	return p, id, nil
}

func (s *PartStore) nextPartName(kind PartKind) (string, error) {
	if kind.Singleton() {
		return kind.PathFormat, nil
	}
	existing, err := s.Parts(strings.Replace(kind.PathFormat, "%d", "*", 1))
	if err != nil {
		return "", err
	}
	for n := len(existing) + 1; ; n++ {
		name := fmt.Sprintf(kind.PathFormat, n)
		if _, taken := s.parts[name]; !taken {
			return name, nil
		}
	}
}

// DeletePart removes a part, its own relationships, its manifest override
// and every relationship pointing at it. Deleting an absent part is a no-op.
func (s *PartStore) DeletePart(name string) {
	name = strings.TrimPrefix(name, "/")
	if _, ok := s.parts[name]; !ok {
		return
	}
	delete(s.parts, name)
	s.removeFromOrder(name)

	if _, ok := s.rels[name]; ok {
		delete(s.rels, name)
		s.removeFromOrder(relsPathFor(name))
	}
	if s.types.removeOverride(name) {
		s.typesDirt = true
	}
	removed := 0
	for source, table := range s.rels {
		removed += table.remove(func(r Relationship) bool {
			return r.External() || resolveTarget(source, r.Target) != name
		})
	}

	s.log.WithFields(Fields{"part": name, "relationships": removed}).Info("deleted part")
}

func (s *PartStore) removeFromOrder(name string) {
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

// Save writes the package as a zip archive. Entries keep their original
// order; new parts follow.
func (s *PartStore) Save(w io.Writer) error {
	zw := zip.NewWriter(w)
	for _, name := range s.order {
		content, err := s.entryBytes(name)
		if err != nil {
			return NewDocumentError("save", name, err)
		}
		fw, err := zw.Create(name)
		if err != nil {
			return NewDocumentError("save", name, err)
		}
		if _, err := fw.Write(content); err != nil {
			return NewDocumentError("save", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return NewDocumentError("save", "", err)
	}
	return nil
}

// Bytes returns the saved package.
func (s *PartStore) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := s.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *PartStore) entryBytes(name string) ([]byte, error) {
	if name == contentTypesPath {
		if !s.typesDirt {
			return s.raw[name], nil
		}
		return s.types.marshal()
	}
	if p := s.parts[name]; p != nil {
		return p.Bytes(), nil
	}
	if source, ok := sourceForRels(name); ok {
		table := s.rels[source]
		if table == nil {
			return nil, fmt.Errorf("relationships of %s vanished", source)
		}
		if !table.dirty {
			if raw, ok := s.raw[name]; ok {
				return raw, nil
			}
		}
		return table.marshal()
	}
	return nil, fmt.Errorf("unknown package entry %s", path.Clean(name))
}
