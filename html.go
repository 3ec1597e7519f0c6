package epub

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// namedEntityPattern matches named character references such as "&mdash;".
var namedEntityPattern = regexp.MustCompile(`&([A-Za-z][A-Za-z0-9]*);`)

// xmlEntities are the named references encoding/xml understands natively.
var xmlEntities = map[string]bool{
	"amp":  true,
	"lt":   true,
	"gt":   true,
	"quot": true,
	"apos": true,
}

// preprocessHTMLEntities replaces HTML named entities with numeric character
// references so that encoding/xml can parse the data. Unknown names are
// left untouched.
func preprocessHTMLEntities(data []byte) []byte {
	return namedEntityPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := string(match[1 : len(match)-1])
		if xmlEntities[name] {
			return match
		}
		decoded := html.UnescapeString(string(match))
		if decoded == string(match) {
			return match
		}
		var b strings.Builder
		for _, r := range decoded {
			fmt.Fprintf(&b, "&#%d;", r)
		}
		return []byte(b.String())
	})
}

// findElement performs a depth-first search for a node with the given atom tag.
func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result := findElement(c, a); result != nil {
			return result
		}
	}
	return nil
}

// findElementNamed is findElement for tags without an atom (or whose atom
// differs between HTML and foreign content), matched by name.
func findElementNamed(n *html.Node, name string) *html.Node {
	if n.Type == html.ElementNode && strings.EqualFold(n.Data, name) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if result := findElementNamed(c, name); result != nil {
			return result
		}
	}
	return nil
}

// findAllElements collects, in document order, every element whose atom is
// one of tags.
func findAllElements(n *html.Node, tags ...atom.Atom) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			for _, a := range tags {
				if n.DataAtom == a {
					out = append(out, n)
					break
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// getAttr returns the value of the attribute key and whether it is present.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}

// hasEpubType reports whether epub:type on n contains typeName.
func hasEpubType(n *html.Node, typeName string) bool {
	v, _ := getAttr(n, "epub:type")
	for _, t := range strings.Fields(v) {
		if t == typeName {
			return true
		}
	}
	return false
}

// firstChildElement returns the first direct child element of n with the
// given atom, or nil.
func firstChildElement(n *html.Node, a atom.Atom) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			return c
		}
	}
	return nil
}

// nodeTextContent returns the concatenated text of n's subtree with
// whitespace runs collapsed.
func nodeTextContent(n *html.Node) string {
	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

// escapeText escapes s for use in XML text and attribute values.
func escapeText(s string) string {
	return html.EscapeString(s)
}
