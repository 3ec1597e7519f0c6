package epub

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	nsXHTML  = "http://www.w3.org/1999/xhtml"
	nsSVG    = "http://www.w3.org/2000/svg"
	nsMathML = "http://www.w3.org/1998/Math/MathML"
	nsXLink  = "http://www.w3.org/1999/xlink"
	nsEPUB   = "http://www.idpf.org/2007/ops"
)

const xmlProlog = `<?xml version="1.0" encoding="UTF-8"?>` + "\n"

// voidElements never have content in HTML and are written self-closed.
var voidElements = map[atom.Atom]bool{
	atom.Area: true, atom.Base: true, atom.Br: true, atom.Col: true,
	atom.Embed: true, atom.Hr: true, atom.Img: true, atom.Input: true,
	atom.Link: true, atom.Meta: true, atom.Param: true, atom.Source: true,
	atom.Track: true, atom.Wbr: true,
}

// parseXHTML parses a content document. Well-formed XML is read as such, so
// self-closed elements and prefixed names keep their structure; anything
// else goes through the HTML5 parser.
func parseXHTML(data []byte) (*html.Node, error) {
	data = stripBOM(data)
	if doc, err := parseXMLTree(preprocessHTMLEntities(data)); err == nil {
		return doc, nil
	}
	return html.Parse(bytes.NewReader(expandSelfClosing(data)))
}

// expandSelfClosing rewrites self-closed HTML elements such as <a id="x"/>
// into an explicit start and end tag, which the HTML5 parser would otherwise
// read as an unclosed start tag. SVG and MathML content is left alone.
func expandSelfClosing(data []byte) []byte {
	z := html.NewTokenizer(bytes.NewReader(data))
	var out bytes.Buffer
	out.Grow(len(data))
	foreign := 0
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			out.Write(z.Raw())
			return out.Bytes()
		}
		// TagName lower-cases the tokenizer's buffer in place.
		raw := append([]byte(nil), z.Raw()...)
		name, _ := z.TagName()
		a := atom.Lookup(name)
		switch tt {
		case html.StartTagToken:
			if a == atom.Svg || a == atom.Math {
				foreign++
			}
		case html.EndTagToken:
			if (a == atom.Svg || a == atom.Math) && foreign > 0 {
				foreign--
			}
		case html.SelfClosingTagToken:
			if foreign == 0 && !voidElements[a] {
				z.NextIsNotRawText()
				out.Write(bytes.TrimRight(raw[:len(raw)-1], " \t\r\n/"))
				out.WriteString("></")
				out.Write(name)
				out.WriteByte('>')
				continue
			}
		}
		out.Write(raw)
	}
}

var errUnbalanced = errors.New("unbalanced element")

// parseXMLTree builds an html.Node tree from a well-formed XML document.
// Names keep their prefixes; elements in the SVG and MathML namespaces are
// marked with the namespace the HTML parser would give them.
func parseXMLTree(data []byte) (*html.Node, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	doc := &html.Node{Type: html.DocumentNode}
	stack := []*html.Node{doc}

	for {
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		top := stack[len(stack)-1]

		switch t := tok.(type) {
		case xml.StartElement:
			n := &html.Node{
				Type:      html.ElementNode,
				Data:      qualifiedName(t.Name),
				DataAtom:  atom.Lookup([]byte(t.Name.Local)),
				Namespace: top.Namespace,
			}
			for _, a := range t.Attr {
				n.Attr = append(n.Attr, html.Attribute{Key: qualifiedName(a.Name), Val: a.Value})
			}
			if ns, ok := getAttr(n, "xmlns"); ok {
				n.Namespace = foreignNamespace(ns)
			} else if t.Name.Space == "" && n.Namespace == "" {
				switch n.DataAtom {
				case atom.Svg:
					n.Namespace = "svg"
				case atom.Math:
					n.Namespace = "math"
				}
			}
			top.AppendChild(n)
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 1 || top.Data != qualifiedName(t.Name) {
				return nil, fmt.Errorf("%w: </%s>", errUnbalanced, qualifiedName(t.Name))
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if top == doc {
				continue
			}
			if last := top.LastChild; last != nil && last.Type == html.TextNode {
				last.Data += string(t)
			} else {
				top.AppendChild(&html.Node{Type: html.TextNode, Data: string(t)})
			}
		case xml.Comment:
			top.AppendChild(&html.Node{Type: html.CommentNode, Data: string(t)})
		case xml.Directive:
			if top == doc && strings.HasPrefix(strings.ToUpper(string(t)), "DOCTYPE") {
				doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})
			}
		}
	}
	if len(stack) != 1 || findElement(doc, atom.Html) == nil {
		return nil, errUnbalanced
	}
	return doc, nil
}

func qualifiedName(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

// foreignNamespace maps a default namespace URI to html.Node's Namespace.
func foreignNamespace(uri string) string {
	switch uri {
	case nsSVG:
		return "svg"
	case nsMathML:
		return "math"
	}
	return ""
}

// renderXHTML serializes doc as an XHTML document with an XML prolog.
// Script and style content containing markup characters is written as
// CDATA.
func renderXHTML(doc *html.Node) (string, error) {
	var b strings.Builder
	b.WriteString(xmlProlog)
	for c := doc.FirstChild; c != nil; c = c.NextSibling {
		switch c.Type {
		case html.DoctypeNode:
			b.WriteString("<!DOCTYPE html>\n")
		case html.CommentNode:
			// The HTML parser turns processing instructions into comments.
			if !strings.HasPrefix(c.Data, "?") {
				writeComment(&b, c.Data)
				b.WriteByte('\n')
			}
		case html.ElementNode:
			writeElement(&b, c, true)
		}
	}
	if findElement(doc, atom.Html) == nil {
		return "", fmt.Errorf("epub: document has no html element: %w", ErrParse)
	}
	return b.String(), nil
}

func writeElement(b *strings.Builder, n *html.Node, root bool) {
	b.WriteByte('<')
	b.WriteString(n.Data)

	seen := make(map[string]bool, len(n.Attr))
	for _, a := range n.Attr {
		key := a.Key
		if a.Namespace != "" {
			key = a.Namespace + ":" + a.Key
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		writeAttr(b, key, a.Val)
	}
	for _, decl := range missingDeclarations(n, root, seen) {
		writeAttr(b, decl[0], decl[1])
	}

	if n.FirstChild == nil && (n.Namespace != "" || voidElements[n.DataAtom]) {
		b.WriteString("/>")
		return
	}
	b.WriteByte('>')

	if n.Namespace == "" && (n.DataAtom == atom.Script || n.DataAtom == atom.Style) {
		writeRawText(b, nodeText(n))
	} else {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			switch c.Type {
			case html.ElementNode:
				writeElement(b, c, false)
			case html.TextNode:
				b.WriteString(escapeText(c.Data))
			case html.CommentNode:
				writeComment(b, c.Data)
			}
		}
	}

	b.WriteString("</")
	b.WriteString(n.Data)
	b.WriteByte('>')
}

// missingDeclarations returns the namespace declarations n needs but does
// not carry: the default namespace of the root and of foreign subtrees, and
// on the root the epub and xlink prefixes its subtree uses.
func missingDeclarations(n *html.Node, root bool, declared map[string]bool) [][2]string {
	var decls [][2]string
	foreignRoot := n.Namespace != "" && (n.Parent == nil || n.Parent.Namespace != n.Namespace)
	if !declared["xmlns"] && !strings.Contains(n.Data, ":") {
		switch {
		case root && n.Namespace == "":
			decls = append(decls, [2]string{"xmlns", nsXHTML})
		case foreignRoot && n.Namespace == "svg":
			decls = append(decls, [2]string{"xmlns", nsSVG})
		case foreignRoot && n.Namespace == "math":
			decls = append(decls, [2]string{"xmlns", nsMathML})
		}
	}
	if root && !declared["xmlns:epub"] && usesPrefix(n, "epub") {
		decls = append(decls, [2]string{"xmlns:epub", nsEPUB})
	}
	if root && !declared["xmlns:xlink"] && usesPrefix(n, "xlink") {
		decls = append(decls, [2]string{"xmlns:xlink", nsXLink})
	}
	return decls
}

// usesPrefix reports an attribute with the given prefix in n's subtree.
func usesPrefix(n *html.Node, prefix string) bool {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Namespace == prefix || strings.HasPrefix(a.Key, prefix+":") {
				return true
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if usesPrefix(c, prefix) {
			return true
		}
	}
	return false
}

func writeAttr(b *strings.Builder, key, val string) {
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteString(`="`)
	b.WriteString(escapeText(val))
	b.WriteByte('"')
}

// writeRawText writes script or style content, as CDATA when it holds
// characters XML would read as markup.
func writeRawText(b *strings.Builder, s string) {
	if !strings.ContainsAny(s, "<&") {
		b.WriteString(s)
		return
	}
	b.WriteString("<![CDATA[")
	b.WriteString(strings.ReplaceAll(s, "]]>", "]]]]><![CDATA[>"))
	b.WriteString("]]>")
}

func writeComment(b *strings.Builder, s string) {
	for strings.Contains(s, "--") {
		s = strings.ReplaceAll(s, "--", "- -")
	}
	if strings.HasSuffix(s, "-") {
		s += " "
	}
	b.WriteString("<!--")
	b.WriteString(s)
	b.WriteString("-->")
}

// nodeText concatenates the text children of n.
func nodeText(n *html.Node) string {
	var s strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			s.WriteString(c.Data)
		}
	}
	return s.String()
}
