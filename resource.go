package epub

import (
	"strings"
)

// Media types used by generated entries.
const (
	MediaTypeXHTML = "application/xhtml+xml"
	MediaTypeSVG   = "image/svg+xml"
	MediaTypeCSS   = "text/css"
	MediaTypeJS    = "text/javascript"
)

// textMediaTypes lists the media types whose payload is transferred as
// text. Everything else is transferred as binary.
var textMediaTypes = map[string]bool{
	MediaTypeXHTML:             true,
	"text/html":                true,
	MediaTypeCSS:               true,
	MediaTypeJS:                true,
	"application/javascript":   true,
	"application/ecmascript":   true,
	"text/ecmascript":          true,
	MediaTypeSVG:               true,
	"application/xml":          true,
	"text/xml":                 true,
	"application/json":         true,
	"application/ld+json":      true,
	"text/plain":               true,
	"application/x-dtbncx+xml": true,
	"application/smil+xml":     true,
}

// IsTextMediaType reports whether a payload of mediaType is transferred as
// text. Media type parameters (e.g. "; charset=utf-8") are ignored.
func IsTextMediaType(mediaType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	return textMediaTypes[mt]
}

// ManifestItem is one <item> of a package document manifest.
type ManifestItem struct {
	// ID is the manifest id, unique within one package document.
	ID string

	// Href is the path of the resource relative to the package document.
	Href string

	// MediaType is the MIME type of the resource.
	MediaType string

	// Properties holds space-separated manifest properties (e.g. "nav",
	// "cover-image", "mathml scripted"). Empty means none.
	Properties string
}

// SpineRef is one <itemref> of a package document spine.
type SpineRef struct {
	// IDRef names the manifest item in the reading order.
	IDRef string

	// NonLinear marks an auxiliary entry (linear="no").
	NonLinear bool
}

// Resource is a manifest item together with its payload.
type Resource struct {
	// Path is the container-internal path of the resource.
	Path string

	// MediaType is the MIME type of the resource.
	MediaType string

	// ID is the manifest id of the resource.
	ID string

	// Properties holds space-separated manifest properties.
	Properties string

	// Text reports whether the payload is textual (see IsTextMediaType).
	Text bool

	// Data is the payload. It is nil until resolved.
	Data []byte
}

// PropertyList returns the manifest properties as a slice.
func (r Resource) PropertyList() []string {
	return strings.Fields(r.Properties)
}

// ManifestItem returns the manifest entry describing r.
func (r Resource) ManifestItem() ManifestItem {
	return ManifestItem{
		ID:         r.ID,
		Href:       r.Path,
		MediaType:  r.MediaType,
		Properties: r.Properties,
	}
}

// storeOptions returns how r is written into a collection container.
func (r Resource) storeOptions() PutOptions {
	return PutOptions{Compress: true, Binary: !r.Text}
}

// resolve reads the payload of r from c at src, in text or binary encoding
// depending on r.Text.
func (r *Resource) resolve(c *Container, src string) error {
	if r.Text {
		text, err := c.ReadText(src)
		if err != nil {
			return err
		}
		r.Data = []byte(text)
		return nil
	}
	data, err := c.ReadBinary(src)
	if err != nil {
		return err
	}
	r.Data = data
	return nil
}
