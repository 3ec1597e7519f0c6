package epub

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strings"
)

// Well-known entry names of the container layout.
const (
	mimetypePath  = "mimetype"
	containerPath = "META-INF/container.xml"
	packagePath   = "package.opf"
	coverPath     = "cover.xhtml"
	coverSVGPath  = "cover_image.svg"
	navPath       = "nav.xhtml"
	titlePath     = "title.xhtml"
)

// epubMimetype is the fixed content of the "mimetype" entry.
const epubMimetype = "application/epub+zip"

// packageMediaType is the media type of the package document.
const packageMediaType = "application/oebps-package+xml"

// containerXMLContent is the fixed META-INF/container.xml, pointing at
// package.opf in the container root.
const containerXMLContent = `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
    <rootfiles>
        <rootfile full-path="` + packagePath + `" media-type="` + packageMediaType + `"/>
    </rootfiles>
</container>
`

// containerXML models META-INF/container.xml.
type containerXML struct {
	XMLName   xml.Name   `xml:"container"`
	RootFiles []rootFile `xml:"rootfiles>rootfile"`
}

// rootFile represents a single <rootfile> element inside container.xml.
type rootFile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// packageDocumentPath locates the package document of c. It reads
// container.xml when present and falls back to the first ".opf" entry.
func packageDocumentPath(c *Container) (string, error) {
	data, err := c.ReadBinary(containerPath)
	if err == nil {
		return parseContainerXML(data)
	}
	if !errors.Is(err, ErrNotFound) {
		return "", err
	}
	for _, p := range c.Paths() {
		if strings.HasSuffix(strings.ToLower(p), ".opf") {
			return p, nil
		}
	}
	return "", fmt.Errorf("epub: no package document in %s: %w", c.Name(), ErrParse)
}

// parseContainerXML decodes container.xml, returning the full-path of the
// rootfile with the package media type, or the first non-empty one.
func parseContainerXML(data []byte) (string, error) {
	var c containerXML
	if err := xml.Unmarshal(stripBOM(data), &c); err != nil {
		return "", fmt.Errorf("epub: parse container.xml: %w: %w", ErrParse, err)
	}

	var fallbackPath string
	for _, rf := range c.RootFiles {
		fullPath := strings.TrimSpace(rf.FullPath)
		if fullPath == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(rf.MediaType), packageMediaType) {
			return fullPath, nil
		}
		if fallbackPath == "" {
			fallbackPath = fullPath
		}
	}

	if fallbackPath == "" {
		return "", fmt.Errorf("epub: container.xml has no usable rootfile: %w", ErrParse)
	}
	return fallbackPath, nil
}
