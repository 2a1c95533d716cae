package xml

import (
	"encoding/xml"

	"github.com/antchfx/xmlquery"
)

// Node is the DOM node type shared by all parts.
type Node = xmlquery.Node

// NewElement creates a detached element in the given namespace.
func NewElement(space, local string) *Node {
	return &Node{
		Type:         xmlquery.ElementNode,
		Data:         local,
		Prefix:       PrefixFor(space),
		NamespaceURI: space,
	}
}

// W creates a detached w: element. attrs are w: attribute name/value pairs.
func W(local string, attrs ...string) *Node {
	n := NewElement(NSW, local)
	for i := 0; i+1 < len(attrs); i += 2 {
		SetAttr(n, NSW, attrs[i], attrs[i+1])
	}
	return n
}

// NewText creates a detached character data node.
func NewText(s string) *Node {
	return &Node{Type: xmlquery.TextNode, Data: s}
}

// Root returns the document element of a parsed part.
func Root(doc *Node) *Node {
	if doc == nil {
		return nil
	}
	if doc.Type == xmlquery.ElementNode {
		return doc
	}
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			return c
		}
	}
	return nil
}

// Is reports whether n is the element space:local.
func Is(n *Node, space, local string) bool {
	if n == nil || n.Type != xmlquery.ElementNode || n.Data != local {
		return false
	}
	return n.NamespaceURI == space || (n.NamespaceURI == "" && n.Prefix == PrefixFor(space))
}

// IsW reports whether n is the element w:local.
func IsW(n *Node, local string) bool {
	return Is(n, NSW, local)
}

// IsElement reports whether n is an element node.
func IsElement(n *Node) bool {
	return n != nil && n.Type == xmlquery.ElementNode
}

// Children returns the element children of n in document order.
func Children(n *Node) []*Node {
	var out []*Node
	if n == nil {
		return out
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == xmlquery.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// ChildrenNamed returns the space:local element children of n.
func ChildrenNamed(n *Node, space, local string) []*Node {
	var out []*Node
	if n == nil {
		return out
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if Is(c, space, local) {
			out = append(out, c)
		}
	}
	return out
}

// FirstChild returns the first space:local element child of n, or nil.
func FirstChild(n *Node, space, local string) *Node {
	if n == nil {
		return nil
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if Is(c, space, local) {
			return c
		}
	}
	return nil
}

// PrevElement returns the closest preceding element sibling of n.
func PrevElement(n *Node) *Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == xmlquery.ElementNode {
			return s
		}
	}
	return nil
}

// NextElement returns the closest following element sibling of n.
func NextElement(n *Node) *Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == xmlquery.ElementNode {
			return s
		}
	}
	return nil
}

func attrMatches(a xmlquery.Attr, space, local string) bool {
	if a.Name.Local != local {
		return false
	}
	if space == "" {
		return a.Name.Space == "" && a.NamespaceURI == ""
	}
	return a.NamespaceURI == space || a.Name.Space == space || a.Name.Space == PrefixFor(space)
}

// Attr returns the value of attribute space:local on n.
func Attr(n *Node, space, local string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if attrMatches(a, space, local) {
			return a.Value, true
		}
	}
	return "", false
}

// WVal returns the w:val attribute of the first w:local child of n.
func WVal(n *Node, local string) (string, bool) {
	return Attr(FirstChild(n, NSW, local), NSW, "val")
}

// SetAttr sets attribute space:local on n, replacing an existing value.
func SetAttr(n *Node, space, local, value string) {
	for i, a := range n.Attr {
		if attrMatches(a, space, local) {
			n.Attr[i].Value = value
			return
		}
	}
	name := xml.Name{Local: local}
	if space != "" {
		name.Space = PrefixFor(space)
	}
	n.Attr = append(n.Attr, xmlquery.Attr{Name: name, Value: value, NamespaceURI: space})
}

// RemoveAttr deletes attribute space:local from n if present.
func RemoveAttr(n *Node, space, local string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if !attrMatches(a, space, local) {
			out = append(out, a)
		}
	}
	n.Attr = out
}

// EnsureNamespace declares xmlns:prefix on root unless it is already declared.
func EnsureNamespace(root *Node, prefix, uri string) {
	if root == nil {
		return
	}
	for _, a := range root.Attr {
		if a.Name.Space == "xmlns" && a.Name.Local == prefix {
			return
		}
	}
	root.Attr = append(root.Attr, xmlquery.Attr{Name: xml.Name{Space: "xmlns", Local: prefix}, Value: uri})
}

// AppendChild adds n as the last child of parent.
func AppendChild(parent, n *Node) {
	xmlquery.AddChild(parent, n)
}

// InsertBefore splices n in as the preceding sibling of ref.
func InsertBefore(ref, n *Node) {
	parent := ref.Parent
	n.Parent = parent
	n.NextSibling = ref
	n.PrevSibling = ref.PrevSibling
	if ref.PrevSibling != nil {
		ref.PrevSibling.NextSibling = n
	} else if parent != nil {
		parent.FirstChild = n
	}
	ref.PrevSibling = n
}

// InsertAfter splices n in as the following sibling of ref.
func InsertAfter(ref, n *Node) {
	parent := ref.Parent
	n.Parent = parent
	n.PrevSibling = ref
	n.NextSibling = ref.NextSibling
	if ref.NextSibling != nil {
		ref.NextSibling.PrevSibling = n
	} else if parent != nil {
		parent.LastChild = n
	}
	ref.NextSibling = n
}

// PrependChild adds n as the first child of parent.
func PrependChild(parent, n *Node) {
	if parent.FirstChild == nil {
		AppendChild(parent, n)
		return
	}
	InsertBefore(parent.FirstChild, n)
}

// Remove unlinks n from its parent. Removing a detached node is a no-op.
func Remove(n *Node) {
	if n == nil || n.Parent == nil {
		return
	}
	xmlquery.RemoveFromTree(n)
	n.Parent, n.PrevSibling, n.NextSibling = nil, nil, nil
}

// RemoveChildren unlinks every child of n.
func RemoveChildren(n *Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		c.Parent, c.PrevSibling, c.NextSibling = nil, nil, nil
		c = next
	}
	n.FirstChild, n.LastChild = nil, nil
}

// Clone returns a detached deep copy of n.
func Clone(n *Node) *Node {
	if n == nil {
		return nil
	}
	c := &Node{
		Type:         n.Type,
		Data:         n.Data,
		Prefix:       n.Prefix,
		NamespaceURI: n.NamespaceURI,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]xmlquery.Attr, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		AppendChild(c, Clone(child))
	}
	return c
}

// ShallowClone copies n with its attributes but without children.
func ShallowClone(n *Node) *Node {
	c := &Node{
		Type:         n.Type,
		Data:         n.Data,
		Prefix:       n.Prefix,
		NamespaceURI: n.NamespaceURI,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]xmlquery.Attr, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	return c
}

// Descendants returns every space:local element below n in document order.
func Descendants(n *Node, space, local string) []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(cur *Node) {
		for c := cur.FirstChild; c != nil; c = c.NextSibling {
			if Is(c, space, local) {
				out = append(out, c)
			}
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}
