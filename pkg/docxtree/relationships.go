package docxtree

import (
	"encoding/xml"
	"fmt"
	"path"
	"strconv"
	"strings"
)

// Relationship types used by the engine.
const (
	RelOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	RelHeader         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/header"
	RelFooter         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/footer"
	RelNumbering      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/numbering"
	RelStyles         = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles"
	RelComments       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/comments"
	RelSettings       = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/settings"
	RelPeople         = "http://schemas.microsoft.com/office/2011/relationships/people"
	RelHyperlink      = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/hyperlink"

	relationshipsNamespace = "http://schemas.openxmlformats.org/package/2006/relationships"
)

// Relationship represents a relationship in the DOCX package
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// External reports whether the relationship points outside the package.
func (r Relationship) External() bool {
	return r.TargetMode == "External"
}

// Relationships represents the collection of relationships
type Relationships struct {
	XMLName      xml.Name       `xml:"Relationships"`
	Namespace    string         `xml:"xmlns,attr"`
	Relationship []Relationship `xml:"Relationship"`
}

// relationshipTable holds the outgoing relationships of one source part.
// The package itself is the source "".
type relationshipTable struct {
	source string
	rels   []Relationship
	dirty  bool
}

func parseRelationships(source string, data []byte) (*relationshipTable, error) {
	var rels Relationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil, fmt.Errorf("failed to parse relationships: %w", err)
	}
	return &relationshipTable{source: source, rels: rels.Relationship}, nil
}

func (t *relationshipTable) marshal() ([]byte, error) {
	output, err := xml.Marshal(&Relationships{
		Namespace:    relationshipsNamespace,
		Relationship: t.rels,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal relationships: %w", err)
	}
	return append([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+"\n"), output...), nil
}

func (t *relationshipTable) get(id string) (Relationship, bool) {
	for _, r := range t.rels {
		if r.ID == id {
			return r, true
		}
	}
	return Relationship{}, false
}

// nextID returns one more than the highest numeric rId in the table.
func (t *relationshipTable) nextID() string {
	highest := 0
	for _, r := range t.rels {
		if n, err := extractRelationshipNumber(r.ID); err == nil && n > highest {
			highest = n
		}
	}
	return "rId" + strconv.Itoa(highest+1)
}

func (t *relationshipTable) add(relType, target string, external bool) string {
	rel := Relationship{ID: t.nextID(), Type: relType, Target: target}
	if external {
		rel.TargetMode = "External"
	}
	t.rels = append(t.rels, rel)
	t.dirty = true
	return rel.ID
}

func (t *relationshipTable) remove(keep func(Relationship) bool) int {
	out := t.rels[:0]
	removed := 0
	for _, r := range t.rels {
		if keep(r) {
			out = append(out, r)
		} else {
			removed++
		}
	}
	t.rels = out
	if removed > 0 {
		t.dirty = true
	}
	return removed
}

// extractRelationshipNumber extracts the numeric ID from a relationship ID like "rId6"
func extractRelationshipNumber(rId string) (int, error) {
	if !strings.HasPrefix(rId, "rId") {
		return 0, fmt.Errorf("invalid relationship ID format: %s", rId)
	}

	numStr := strings.TrimPrefix(rId, "rId")
	num, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, fmt.Errorf("invalid relationship ID number: %s", rId)
	}

	return num, nil
}

// relsPathFor converts a part name to its relationships file name,
// e.g. "word/document.xml" -> "word/_rels/document.xml.rels".
func relsPathFor(partName string) string {
	dir := ""
	base := partName
	if idx := strings.LastIndex(partName, "/"); idx != -1 {
		dir = partName[:idx]
		base = partName[idx+1:]
	}

	if dir == "" {
		return fmt.Sprintf("_rels/%s.rels", base)
	}
	return fmt.Sprintf("%s/_rels/%s.rels", dir, base)
}

// sourceForRels is the inverse of relsPathFor. ok is false for names that are
// not relationships files.
func sourceForRels(relsPath string) (string, bool) {
	if !strings.HasSuffix(relsPath, ".rels") {
		return "", false
	}
	dir, file := path.Split(relsPath)
	if !strings.HasSuffix(dir, "_rels/") {
		return "", false
	}
	parent := strings.TrimSuffix(dir, "_rels/")
	return parent + strings.TrimSuffix(file, ".rels"), true
}

// resolveTarget turns a relationship target into a part name.
func resolveTarget(source, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(path.Dir(source), target))
}

// relativeTarget is the target string a source part uses to reach name.
func relativeTarget(source, name string) string {
	dir := path.Dir(source)
	if dir == "." {
		return name
	}
	if strings.HasPrefix(name, dir+"/") {
		return strings.TrimPrefix(name, dir+"/")
	}
	return "/" + name
}
