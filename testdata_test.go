package epub

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
)

// buildTestZip creates an in-memory ZIP archive from the provided files map
// (path → content) and returns a *zip.Reader over the resulting bytes.
// It calls t.Fatal on any error.
func buildTestZip(t testing.TB, files map[string]string) *zip.Reader {
	t.Helper()
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	for name, content := range files {
		fw, err := zw.Create(name)
		if err != nil {
			t.Fatalf("buildTestZip: create %s: %v", name, err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			t.Fatalf("buildTestZip: write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("buildTestZip: close writer: %v", err)
	}

	data := buf.Bytes()
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("buildTestZip: open reader: %v", err)
	}
	return r
}

// zipEntry returns the entry called name of zr, failing the test if absent.
func zipEntry(t testing.TB, zr *zip.Reader, name string) *zip.File {
	t.Helper()
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	t.Fatalf("zip entry %q not found", name)
	return nil
}

// testPNG is a payload that is not valid UTF-8.
var testPNG = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0x00, 0xff, 0xfe}

// chapterFixture describes a chapter archive shaped like the output of the
// single-document converter.
type chapterFixture struct {
	name     string
	title    string
	date     string // dcterms:date value; "" omits it
	editors  []string
	wcag     bool
	overview string // Overview.xhtml; "" uses a default body
	shared   bool   // carries StyleSheets/base.css and Icons/w3c_main.png
	files    map[string]string
}

// transferable is the number of resources the chapter contributes as the
// first chapter (first) or as a later one.
func (f chapterFixture) transferable(first bool) int {
	n := 4 // cover.xhtml, Overview.xhtml, appendix.xhtml, images/fig.png
	if f.shared && first {
		n += 2
	}
	return n
}

func (f chapterFixture) packageDocument() string {
	var md strings.Builder
	fmt.Fprintf(&md, "    <dc:identifier id=\"pub-id\">https://www.w3.org/TR/%s/</dc:identifier>\n", f.name)
	fmt.Fprintf(&md, "    <dc:title id=\"title\">%s</dc:title>\n", escapeText(f.title))
	md.WriteString("    <dc:language>en-us</dc:language>\n")
	for i, e := range f.editors {
		fmt.Fprintf(&md, "    <dc:creator id=\"creator_id_%d\">%s</dc:creator>\n", i, escapeText(e))
		fmt.Fprintf(&md, "    <meta refines=\"#creator_id_%d\" property=\"role\" scheme=\"marc:relators\">edt</meta>\n", i)
	}
	if f.date != "" {
		fmt.Fprintf(&md, "    <meta property=\"dcterms:date\">%sT00:00:00Z</meta>\n", f.date)
		fmt.Fprintf(&md, "    <meta property=\"dcterms:modified\">%sT00:00:00Z</meta>\n", f.date)
	}
	if f.wcag {
		md.WriteString("    <link rel=\"dcterms:conformsTo\" href=\"http://www.idpf.org/epub/a11y/accessibility-20170105.html#wcag-a\"/>\n")
	}

	shared := ""
	if f.shared {
		shared = `    <item id="css" href="StyleSheets/base.css" media-type="text/css"/>
    <item id="logo" href="Icons/w3c_main.png" media-type="image/png"/>
`
	}

	return `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/" unique-identifier="pub-id" version="3.0">
  <metadata>
` + md.String() + `  </metadata>
  <manifest>
    <item id="start" href="cover.xhtml" media-type="application/xhtml+xml"/>
    <item id="cover" href="cover_image.svg" media-type="image/svg+xml" properties="cover-image"/>
    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>
    <item id="title_page" href="title.xhtml" media-type="application/xhtml+xml"/>
    <item id="main" href="Overview.xhtml" media-type="application/xhtml+xml" properties="scripted"/>
    <item id="appendix" href="appendix.xhtml" media-type="application/xhtml+xml"/>
    <item id="fig" href="images/fig.png" media-type="image/png"/>
` + shared + `  </manifest>
  <spine>
    <itemref idref="start"/>
    <itemref idref="main"/>
    <itemref idref="appendix" linear="no"/>
    <itemref idref="nav" linear="no"/>
  </spine>
</package>
`
}

const fixtureNav = `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head><title>Contents</title></head>
<body>
<nav epub:type="toc" id="toc">
<ol>
<li><a href="cover.xhtml">Cover</a></li>
<li><a href="title.xhtml">Title page</a></li>
<li><a href="Overview.xhtml#abstract">Abstract</a>
<ol><li><a href="Overview.xhtml#intro">1. Introduction</a></li></ol>
</li>
</ol>
</nav>
</body>
</html>
`

func (f chapterFixture) overviewDocument() string {
	if f.overview != "" {
		return f.overview
	}
	return `<?xml version="1.0" encoding="UTF-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>` + escapeText(f.title) + `</title></head>
<body><div role="main"><h1 id="abstract">` + escapeText(f.title) + `</h1></div></body></html>
`
}

// archive serializes the chapter fixture.
func (f chapterFixture) archive(t testing.TB) []byte {
	t.Helper()
	c := NewContainer(f.name + ".epub")
	put := func(p, text string) {
		if err := c.PutText(p, text, PutOptions{Compress: true}); err != nil {
			t.Fatalf("put %s: %v", p, err)
		}
	}
	put(packagePath, f.packageDocument())
	put(coverPath, `<html xmlns="http://www.w3.org/1999/xhtml"><body><img src="cover_image.svg" alt=""/></body></html>`)
	put(coverSVGPath, `<svg xmlns="http://www.w3.org/2000/svg"/>`)
	put(navPath, fixtureNav)
	put(titlePath, `<html xmlns="http://www.w3.org/1999/xhtml"><body><h1>Title</h1></body></html>`)
	put(mainDocument, f.overviewDocument())
	put("appendix.xhtml", `<html xmlns="http://www.w3.org/1999/xhtml"><body><p>Appendix</p></body></html>`)
	if err := c.Put("images/fig.png", testPNG, PutOptions{Compress: true, Binary: true}); err != nil {
		t.Fatalf("put fig.png: %v", err)
	}
	if f.shared {
		put("StyleSheets/base.css", "body { margin: 0 }\n")
		if err := c.Put("Icons/w3c_main.png", testPNG, PutOptions{Compress: true, Binary: true}); err != nil {
			t.Fatalf("put logo: %v", err)
		}
	}
	for p, text := range f.files {
		put(p, text)
	}

	data, err := c.Bytes()
	if err != nil {
		t.Fatalf("serialize chapter %s: %v", f.name, err)
	}
	return data
}

// fakeConverter serves pre-built chapter archives by URL.
type fakeConverter struct {
	mu       sync.Mutex
	archives map[string][]byte
	names    map[string]string
	errs     map[string]error
	calls    []string
}

func newFakeConverter() *fakeConverter {
	return &fakeConverter{
		archives: make(map[string][]byte),
		names:    make(map[string]string),
		errs:     make(map[string]error),
	}
}

// add registers f under url and returns url.
func (fc *fakeConverter) add(t testing.TB, url string, f chapterFixture) string {
	t.Helper()
	fc.archives[url] = f.archive(t)
	fc.names[url] = f.name + ".epub"
	return url
}

func (fc *fakeConverter) Create(_ context.Context, url string, _ ConvertOptions) (*Container, error) {
	fc.mu.Lock()
	fc.calls = append(fc.calls, url)
	fc.mu.Unlock()

	if err, ok := fc.errs[url]; ok {
		return nil, err
	}
	data, ok := fc.archives[url]
	if !ok {
		return nil, fmt.Errorf("no document at %s", url)
	}
	return ReadContainer(data, fc.names[url])
}

// extractFixture runs a full extraction of f.
func extractFixture(t testing.TB, f chapterFixture, first bool) *Chapter {
	t.Helper()
	fc := newFakeConverter()
	url := fc.add(t, "https://www.w3.org/TR/"+f.name+"/", f)
	ch, err := NewPendingChapter(ChapterSource{URL: url}, first).Extract(context.Background(), fc, DefaultTransferPolicy())
	if err != nil {
		t.Fatalf("Extract(%s): %v", f.name, err)
	}
	return ch
}
