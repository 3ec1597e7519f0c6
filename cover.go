package epub

import (
	"fmt"
	"strings"
	"time"
)

// Manifest ids of the generated collection documents.
const (
	navID        = "nav"
	coverImageID = "cover"
)

// coverLineWidth is the number of characters per line of the cover title.
const coverLineWidth = 28

// coverSVGTemplate takes, in order, the title lines (as <tspan> elements)
// and the date line.
const coverSVGTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" version="1.1" viewBox="0 0 595 842">
    <desc>Cover page of the publication: the title and the date of publication.</desc>
    <rect width="100%%" height="100%%" fill="#FFFFFF"/>
    <text x="297" y="260" text-anchor="middle" font-family="sans-serif" font-size="40" font-weight="bold" font-style="italic" fill="#005A9C">
%s    </text>
    <text x="297" y="560" text-anchor="middle" font-family="sans-serif" font-size="20" font-weight="bold" fill="#005A9C">%s</text>
    <text x="297" y="740" text-anchor="middle" font-family="sans-serif" font-size="24" fill="#005A9C">W3C</text>
</svg>
`

// coverImage renders cover_image.svg for a publication.
func coverImage(title string, date time.Time) string {
	var lines strings.Builder
	for i, line := range sliceText(title, coverLineWidth) {
		dy := "0"
		if i > 0 {
			dy = "1.2em"
		}
		fmt.Fprintf(&lines, "        <tspan x=\"297\" dy=\"%s\">%s</tspan>\n", dy, escapeText(line))
	}
	return fmt.Sprintf(coverSVGTemplate, lines.String(), escapeText(displayDate(date)))
}

// sliceText breaks s into lines of at most width characters at word
// boundaries. A single longer word gets a line of its own.
func sliceText(s string, width int) []string {
	var (
		lines []string
		cur   string
	)
	for _, w := range strings.Fields(s) {
		switch {
		case cur == "":
			cur = w
		case len([]rune(cur))+1+len([]rune(w)) <= width:
			cur += " " + w
		default:
			lines = append(lines, cur)
			cur = w
		}
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// displayDate formats a publication date for the cover and title pages.
func displayDate(date time.Time) string {
	if date.IsZero() {
		return ""
	}
	return date.UTC().Format("2 January 2006")
}

// coverPage renders cover.xhtml, which shows cover_image.svg.
func coverPage(title string) string {
	var b strings.Builder
	writeXHTMLHead(&b, title)
	b.WriteString("<body epub:type=\"cover\">\n")
	b.WriteString("    <div role=\"main\" style=\"text-align: center\">\n")
	fmt.Fprintf(&b, "        <img src=\"%s\" alt=\"%s\" style=\"height: 100%%\" />\n",
		coverSVGPath, escapeText("Cover page of "+title))
	b.WriteString("    </div>\n")
	b.WriteString("</body>\n</html>\n")
	return b.String()
}

// titleChapter is a line of the title page's chapter list.
type titleChapter struct {
	Title string
	Href  string
}

// titlePage renders title.xhtml: title, editors, date of publication, and
// the chapters of the collection.
func titlePage(title string, editors []string, date time.Time, chapters []titleChapter) string {
	var b strings.Builder
	writeXHTMLHead(&b, title)
	b.WriteString("<body epub:type=\"titlepage\">\n")
	b.WriteString("    <div role=\"main\">\n")
	fmt.Fprintf(&b, "        <h1>%s</h1>\n", escapeText(title))
	if d := displayDate(date); d != "" {
		fmt.Fprintf(&b, "        <p>Published on <time datetime=\"%s\">%s</time></p>\n",
			date.UTC().Format("2006-01-02"), escapeText(d))
	}
	if len(editors) > 0 {
		b.WriteString("        <h2>Editors</h2>\n")
		b.WriteString("        <ul>\n")
		for _, e := range editors {
			fmt.Fprintf(&b, "            <li>%s</li>\n", escapeText(e))
		}
		b.WriteString("        </ul>\n")
	}
	if len(chapters) > 0 {
		b.WriteString("        <h2>Chapters</h2>\n")
		b.WriteString("        <ol>\n")
		for _, ch := range chapters {
			if ch.Href == "" {
				fmt.Fprintf(&b, "            <li>%s</li>\n", escapeText(ch.Title))
				continue
			}
			fmt.Fprintf(&b, "            <li><a href=\"%s\">%s</a></li>\n", escapeText(ch.Href), escapeText(ch.Title))
		}
		b.WriteString("        </ol>\n")
	}
	b.WriteString("    </div>\n")
	b.WriteString("</body>\n</html>\n")
	return b.String()
}
