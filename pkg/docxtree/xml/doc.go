// Package xml provides the mutable XML node layer used by docxtree.
//
// Every part of a DOCX package that the engine understands is parsed into an
// xmlquery DOM. Unlike typed encoding/xml structs, the DOM keeps every element
// it does not know about, so a part can be mutated and re-serialized without
// losing markup, and each node carries its parent and sibling links, which the
// engine uses as the physical side of its attachment state.
//
// # Structure Organization
//
//   - types.go: namespace URIs and the URI to prefix table
//   - node.go: element construction, attribute access, splicing and cloning
//   - text.go: literal text extraction and text leaf editing
//   - serialize.go: parse and serialize part bytes
//
// # Key Concepts
//
// Text leaf: a w:t or w:delText element. Only text leaves contribute to text
// length and character offsets; breaks, tabs, drawings and properties do not.
//
// # Usage
//
//	root, err := xml.Parse(partBytes)
//	if err != nil {
//	    return err
//	}
//	body := xml.FirstChild(xml.Root(root), xml.NSW, "body")
//	p := xml.W("p")
//	xml.AppendChild(body, p)
//	out := xml.Serialize(root)
package xml
