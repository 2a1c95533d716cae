package xml

import "strings"

// Namespaces used by the engine when it creates markup.
const (
	NSW   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	NSR   = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	NSW14 = "http://schemas.microsoft.com/office/word/2010/wordml"
	NSW15 = "http://schemas.microsoft.com/office/word/2012/wordml"
	NSMC  = "http://schemas.openxmlformats.org/markup-compatibility/2006"
	NSXML = "http://www.w3.org/XML/1998/namespace"
)

var prefixMap = map[string]string{
	// Core Word namespaces
	NSW:   "w",
	NSR:   "r",
	NSXML: "xml",
	"http://schemas.openxmlformats.org/officeDocument/2006/math": "m",
	// Drawing namespaces
	"http://schemas.openxmlformats.org/drawingml/2006/wordprocessingDrawing": "wp",
	"http://schemas.openxmlformats.org/drawingml/2006/main":                  "a",
	"http://schemas.openxmlformats.org/drawingml/2006/picture":               "pic",
	"http://schemas.microsoft.com/office/word/2010/wordprocessingDrawing":    "wp14",
	"http://schemas.microsoft.com/office/drawing/2010/main":                  "a14",
	// VML namespaces
	"urn:schemas-microsoft-com:vml":           "v",
	"urn:schemas-microsoft-com:office:office": "o",
	"urn:schemas-microsoft-com:office:word":   "w10",
	// Markup compatibility namespace
	NSMC: "mc",
	// Word processing shapes and canvas
	"http://schemas.microsoft.com/office/word/2010/wordprocessingShape":  "wps",
	"http://schemas.microsoft.com/office/word/2010/wordprocessingCanvas": "wpc",
	"http://schemas.microsoft.com/office/word/2010/wordprocessingGroup":  "wpg",
	"http://schemas.microsoft.com/office/word/2010/wordprocessingInk":    "wpi",
	// Extended Word namespaces
	NSW14: "w14",
	NSW15: "w15",
	"http://schemas.microsoft.com/office/word/2015/wordml/symex":       "w16se",
	"http://schemas.microsoft.com/office/word/2016/wordml/cid":         "w16cid",
	"http://schemas.microsoft.com/office/word/2018/wordml":             "w16",
	"http://schemas.microsoft.com/office/word/2018/wordml/cex":         "w16cex",
	"http://schemas.microsoft.com/office/word/2020/wordml/sdtdatahash": "w16sdtdh",
	"http://schemas.microsoft.com/office/word/2023/wordml/word16du":    "w16du",
	"http://schemas.microsoft.com/office/word/2006/wordml":             "wne",
}

// PrefixFor returns the conventional prefix of a namespace URI. Unknown URIs
// are returned unchanged.
func PrefixFor(uri string) string {
	if prefix, ok := prefixMap[uri]; ok {
		return prefix
	}
	return uri
}

// isURI reports whether a name space value is a namespace URI rather than a
// prefix. xmlquery stores prefixes on attributes it could map and URIs on the
// ones it could not.
func isURI(space string) bool {
	return strings.ContainsAny(space, ":/")
}
