package docxtree

import (
	"encoding/xml"
	"fmt"
	"path"
	"strings"
)

// Content types used by the engine.
const (
	CTDocument      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	CTHeader        = "application/vnd.openxmlformats-officedocument.wordprocessingml.header+xml"
	CTFooter        = "application/vnd.openxmlformats-officedocument.wordprocessingml.footer+xml"
	CTNumbering     = "application/vnd.openxmlformats-officedocument.wordprocessingml.numbering+xml"
	CTStyles        = "application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"
	CTComments      = "application/vnd.openxmlformats-officedocument.wordprocessingml.comments+xml"
	CTSettings      = "application/vnd.openxmlformats-officedocument.wordprocessingml.settings+xml"
	CTPeople        = "application/vnd.openxmlformats-officedocument.wordprocessingml.people+xml"
	CTRelationships = "application/vnd.openxmlformats-package.relationships+xml"
	CTXML           = "application/xml"

	contentTypesPath      = "[Content_Types].xml"
	contentTypesNamespace = "http://schemas.openxmlformats.org/package/2006/content-types"
)

// ContentTypes is the package manifest, [Content_Types].xml.
type ContentTypes struct {
	XMLName   xml.Name              `xml:"Types"`
	Namespace string                `xml:"xmlns,attr"`
	Defaults  []ContentTypeDefault  `xml:"Default"`
	Overrides []ContentTypeOverride `xml:"Override"`
}

// ContentTypeDefault maps a file extension to a content type.
type ContentTypeDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

// ContentTypeOverride maps a single part to a content type.
type ContentTypeOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

func parseContentTypes(data []byte) (*ContentTypes, error) {
	var ct ContentTypes
	if err := xml.Unmarshal(data, &ct); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", contentTypesPath, err)
	}
	return &ct, nil
}

func (ct *ContentTypes) marshal() ([]byte, error) {
	output, err := xml.Marshal(&ContentTypes{
		Namespace: contentTypesNamespace,
		Defaults:  ct.Defaults,
		Overrides: ct.Overrides,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", contentTypesPath, err)
	}
	return append([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>`+"\n"), output...), nil
}

// ContentTypeFor resolves the content type of a part name: an override wins
// over the extension default.
func (ct *ContentTypes) ContentTypeFor(name string) string {
	partName := "/" + name
	for _, o := range ct.Overrides {
		if strings.EqualFold(o.PartName, partName) {
			return o.ContentType
		}
	}
	ext := strings.TrimPrefix(path.Ext(name), ".")
	for _, d := range ct.Defaults {
		if strings.EqualFold(d.Extension, ext) {
			return d.ContentType
		}
	}
	return ""
}

func (ct *ContentTypes) setOverride(name, contentType string) {
	partName := "/" + name
	for i, o := range ct.Overrides {
		if strings.EqualFold(o.PartName, partName) {
			ct.Overrides[i].ContentType = contentType
			return
		}
	}
	ct.Overrides = append(ct.Overrides, ContentTypeOverride{PartName: partName, ContentType: contentType})
}

func (ct *ContentTypes) removeOverride(name string) bool {
	partName := "/" + name
	for i, o := range ct.Overrides {
		if strings.EqualFold(o.PartName, partName) {
			ct.Overrides = append(ct.Overrides[:i], ct.Overrides[i+1:]...)
			return true
		}
	}
	return false
}
