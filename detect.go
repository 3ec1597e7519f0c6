package epub

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Manifest properties set by DetectProperties.
const (
	PropertyMathML          = "mathml"
	PropertyScripted        = "scripted"
	PropertySVG             = "svg"
	PropertyRemoteResources = "remote-resources"
)

// DefaultPublishingHost is the canonical host of the technical reports;
// media served from it does not count as a remote resource, and absolute
// links to its /TR/ space are candidates for cross-reference rewriting.
const DefaultPublishingHost = "www.w3.org"

// mainDocument is the main content document of every chapter.
const mainDocument = "Overview.xhtml"

// dataBlockTypes are script types that carry data rather than code.
var dataBlockTypes = map[string]bool{
	"application/ld+json":   true,
	"application/json":      true,
	"application/xml":       true,
	"application/n-triples": true,
	"text/turtle":           true,
	"text/html":             true,
	"text/plain":            true,
	"text/xml":              true,
	"text/template":         true,
	"text/x-template":       true,
	"importmap":             true,
	"speculationrules":      true,
}

// isDataBlock reports whether a script type attribute names a data block.
func isDataBlock(scriptType string) bool {
	t := strings.ToLower(strings.TrimSpace(scriptType))
	if i := strings.IndexByte(t, ';'); i >= 0 {
		t = strings.TrimSpace(t[:i])
	}
	return dataBlockTypes[t]
}

// DetectProperties inspects a parsed document and returns the manifest
// properties it requires, in the order mathml, scripted, svg,
// remote-resources. publishingHost is the host whose media is not remote.
func DetectProperties(doc *html.Node, publishingHost string) []string {
	var props []string

	if findElement(doc, atom.Math) != nil || findElementNamed(doc, "math") != nil {
		props = append(props, PropertyMathML)
	}

	if hasActiveScript(doc) || findElement(doc, atom.Form) != nil {
		props = append(props, PropertyScripted)
	}

	if findElement(doc, atom.Svg) != nil || findElementNamed(doc, "svg") != nil {
		props = append(props, PropertySVG)
	}

	if hasRemoteMedia(doc, publishingHost) {
		props = append(props, PropertyRemoteResources)
	}

	return props
}

// hasActiveScript reports a script element that is not a data block.
func hasActiveScript(doc *html.Node) bool {
	for _, s := range findAllElements(doc, atom.Script) {
		t, ok := getAttr(s, "type")
		if !ok || !isDataBlock(t) {
			return true
		}
	}
	return false
}

// hasRemoteMedia reports a video, audio, img, or source element whose src
// is an absolute URL on a host other than publishingHost.
func hasRemoteMedia(doc *html.Node, publishingHost string) bool {
	for _, n := range findAllElements(doc, atom.Video, atom.Audio, atom.Img, atom.Source) {
		src, ok := getAttr(n, "src")
		if !ok {
			continue
		}
		u, err := url.Parse(strings.TrimSpace(src))
		if err != nil {
			continue
		}
		if u.Scheme != "" && u.Host != "" && !strings.EqualFold(u.Host, publishingHost) {
			return true
		}
	}
	return false
}

// WrapBody moves every child of body into a single <div role="main">
// appended as the only child of body. Order and content are preserved. A
// body already holding just that wrapper is left unchanged; the return value
// reports whether the tree was modified.
func WrapBody(doc *html.Node) bool {
	body := findElement(doc, atom.Body)
	if body == nil || isWrapped(body) {
		return false
	}

	main := &html.Node{
		Type:     html.ElementNode,
		Data:     "div",
		DataAtom: atom.Div,
		Attr:     []html.Attribute{{Key: "role", Val: "main"}},
	}
	for body.FirstChild != nil {
		c := body.FirstChild
		body.RemoveChild(c)
		main.AppendChild(c)
	}
	body.AppendChild(main)
	return true
}

// isWrapped reports whether body's only non-blank child is a role="main" div.
func isWrapped(body *html.Node) bool {
	var wrapper *html.Node
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.TextNode:
			if strings.TrimSpace(c.Data) != "" {
				return false
			}
		case html.ElementNode:
			if wrapper != nil {
				return false
			}
			wrapper = c
		case html.CommentNode:
		default:
			return false
		}
	}
	if wrapper == nil || wrapper.DataAtom != atom.Div {
		return false
	}
	role, _ := getAttr(wrapper, "role")
	return role == "main"
}

// OverviewResource builds the manifest record of a rendered main content
// document: it detects the manifest properties, wraps the body, and
// re-serializes the document as XHTML.
func OverviewResource(data []byte, publishingHost string) (Resource, error) {
	doc, err := parseXHTML(data)
	if err != nil {
		return Resource{}, fmt.Errorf("epub: parse %s: %w: %w", mainDocument, ErrParse, err)
	}

	props := DetectProperties(doc, publishingHost)
	WrapBody(doc)

	out, err := renderXHTML(doc)
	if err != nil {
		return Resource{}, fmt.Errorf("epub: render %s: %w", mainDocument, err)
	}

	return Resource{
		Path:       mainDocument,
		MediaType:  MediaTypeXHTML,
		ID:         MainID,
		Properties: strings.Join(props, " "),
		Text:       true,
		Data:       []byte(out),
	}, nil
}
