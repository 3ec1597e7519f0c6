package epub

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NavItem is one entry of a navigation document list.
type NavItem struct {
	// Title is the entry text.
	Title string

	// Href is the link target, possibly with a fragment. An entry without a
	// link (a <span> heading) has an empty Href.
	Href string

	Children []NavItem
}

// parseNavDocument parses a navigation document and returns its table of
// contents and landmarks lists. Hrefs are returned as written.
func parseNavDocument(data []byte) (toc []NavItem, landmarks []NavItem, err error) {
	doc, err := html.Parse(bytes.NewReader(stripBOM(data)))
	if err != nil {
		return nil, nil, fmt.Errorf("epub: parse navigation document: %w: %w", ErrParse, err)
	}

	for _, nav := range findAllElements(doc, atom.Nav) {
		ol := firstChildElement(nav, atom.Ol)
		if ol == nil {
			continue
		}
		switch {
		case hasEpubType(nav, "toc") && toc == nil:
			toc = parseNavOL(ol)
		case hasEpubType(nav, "landmarks") && landmarks == nil:
			landmarks = parseNavOL(ol)
		}
	}
	return toc, landmarks, nil
}

// parseNavOL returns the <li> children of ol as NavItem entries.
func parseNavOL(ol *html.Node) []NavItem {
	var items []NavItem
	for c := ol.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Li {
			items = append(items, parseNavLI(c))
		}
	}
	return items
}

// parseNavLI reads the first <a> (or a <span> heading) and the nested <ol>
// of a list item.
func parseNavLI(li *html.Node) NavItem {
	var item NavItem
	found := false
	for c := li.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.A:
			if !found {
				item.Href, _ = getAttr(c, "href")
				item.Href = strings.TrimSpace(item.Href)
				item.Title = nodeTextContent(c)
				found = true
			}
		case atom.Span:
			if !found {
				item.Title = nodeTextContent(c)
				found = true
			}
		case atom.Ol:
			item.Children = parseNavOL(c)
		}
	}
	return item
}

// rerootNavItems rewrites the hrefs of a chapter's entries for a navigation
// document at the collection root. Entries leading to files that are not
// transferred are dropped together with their children.
func rerootNavItems(items []NavItem, chapterName string, policy TransferPolicy) []NavItem {
	var out []NavItem
	for _, it := range items {
		if it.Href != "" {
			href, ok := rerootHref(it.Href, chapterName, policy)
			if !ok {
				continue
			}
			it.Href = href
		}
		it.Children = rerootNavItems(it.Children, chapterName, policy)
		out = append(out, it)
	}
	return out
}

// rerootHref maps a link relative to a chapter's package document to one
// relative to the collection root. Absolute URLs are kept.
func rerootHref(href, chapterName string, policy TransferPolicy) (string, bool) {
	u, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	if u.Scheme != "" || u.Host != "" {
		return href, true
	}

	file, fragment, _ := strings.Cut(href, "#")
	if file == "" {
		file = navPath
	}
	if decoded, err := url.PathUnescape(file); err == nil {
		file = decoded
	}
	file = path.Clean(file)
	if !isSafePath(file) || policy.Classify(file) == TransferNever {
		return "", false
	}

	out := policy.TargetPath(chapterName, file)
	if fragment != "" {
		out += "#" + fragment
	}
	return out, true
}

// navChapter is a chapter's contribution to the collection navigation.
type navChapter struct {
	Name  string
	Title string
	Href  string
	Items []NavItem
}

// MergeNavigation builds the collection navigation document. Every chapter
// contributes one top-level entry linking to its main content document,
// with the chapter's own table of contents, re-rooted under the chapter's
// folder, nested below it. A landmarks list points at the cover, the title
// page, the table of contents, and the first chapter.
func MergeNavigation(title string, chapters []*Chapter, policy TransferPolicy) (string, error) {
	entries := make([]navChapter, 0, len(chapters))
	for _, ch := range chapters {
		info, err := ch.Info()
		if err != nil {
			return "", err
		}
		navText, err := ch.NavigationDocument()
		if err != nil {
			return "", err
		}

		entry := navChapter{Name: info.Name, Title: info.Title}
		if entry.Title == "" {
			entry.Title = info.Name
		}
		if ch.hasResource(mainDocument) {
			entry.Href = policy.TargetPath(info.Name, mainDocument)
		}
		if navText != "" {
			toc, _, err := parseNavDocument([]byte(navText))
			if err != nil {
				return "", fmt.Errorf("epub: chapter %s: %w", info.Name, err)
			}
			entry.Items = rerootNavItems(toc, info.Name, policy)
		}
		entries = append(entries, entry)
	}
	return renderNavigation(title, entries), nil
}

// hasResource reports whether href is among the chapter's resources.
func (c *Chapter) hasResource(href string) bool {
	for _, r := range c.resources {
		if r.Path == href {
			return true
		}
	}
	return false
}

func renderNavigation(title string, chapters []navChapter) string {
	var b strings.Builder
	writeXHTMLHead(&b, title)
	b.WriteString("<body>\n")
	b.WriteString("    <nav epub:type=\"toc\" id=\"toc\">\n")
	b.WriteString("        <h1>Table of Contents</h1>\n")
	b.WriteString("        <ol>\n")
	writeNavLink(&b, 3, NavItem{Title: "Title page", Href: titlePath})
	for _, ch := range chapters {
		writeNavEntry(&b, 3, NavItem{Title: ch.Title, Href: ch.Href, Children: ch.Items})
	}
	b.WriteString("        </ol>\n")
	b.WriteString("    </nav>\n")

	b.WriteString("    <nav epub:type=\"landmarks\" id=\"landmarks\" hidden=\"hidden\">\n")
	b.WriteString("        <h2>Landmarks</h2>\n")
	b.WriteString("        <ol>\n")
	writeLandmark(&b, "cover", coverPath, "Cover page")
	writeLandmark(&b, "titlepage", titlePath, "Title page")
	writeLandmark(&b, "toc", navPath+"#toc", "Table of Contents")
	for _, ch := range chapters {
		if ch.Href != "" {
			writeLandmark(&b, "bodymatter", ch.Href, "Start of content")
			break
		}
	}
	b.WriteString("        </ol>\n")
	b.WriteString("    </nav>\n")
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

func writeNavEntry(b *strings.Builder, depth int, it NavItem) {
	if len(it.Children) == 0 {
		writeNavLink(b, depth, it)
		return
	}
	indent := strings.Repeat("    ", depth)
	b.WriteString(indent + "<li>" + navLabel(it) + "\n")
	b.WriteString(indent + "    <ol>\n")
	for _, c := range it.Children {
		writeNavEntry(b, depth+2, c)
	}
	b.WriteString(indent + "    </ol>\n")
	b.WriteString(indent + "</li>\n")
}

func writeNavLink(b *strings.Builder, depth int, it NavItem) {
	b.WriteString(strings.Repeat("    ", depth) + "<li>" + navLabel(it) + "</li>\n")
}

func navLabel(it NavItem) string {
	if it.Href == "" {
		return "<span>" + escapeText(it.Title) + "</span>"
	}
	return fmt.Sprintf("<a href=\"%s\">%s</a>", escapeText(it.Href), escapeText(it.Title))
}

func writeLandmark(b *strings.Builder, epubType, href, label string) {
	fmt.Fprintf(b, "            <li><a epub:type=\"%s\" href=\"%s\">%s</a></li>\n",
		epubType, escapeText(href), escapeText(label))
}

// writeXHTMLHead opens an XHTML content document up to the end of <head>.
func writeXHTMLHead(b *strings.Builder, title string) {
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString("<!DOCTYPE html>\n")
	fmt.Fprintf(b, "<html xmlns=\"http://www.w3.org/1999/xhtml\" xmlns:epub=\"http://www.idpf.org/2007/ops\" lang=\"%s\" xml:lang=\"%s\">\n",
		DefaultLanguage, DefaultLanguage)
	b.WriteString("<head>\n")
	b.WriteString("    <meta charset=\"utf-8\" />\n")
	fmt.Fprintf(b, "    <title>%s</title>\n", escapeText(title))
	b.WriteString("</head>\n")
}
