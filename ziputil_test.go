package epub

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"
)

func TestResolveRelativePath(t *testing.T) {
	tests := []struct {
		name     string
		basePath string
		href     string
		want     string
	}{
		{"same directory", "OEBPS/content.opf", "toc.ncx", "OEBPS/toc.ncx"},
		{"parent directory", "OEBPS/content.opf", "../images/cover.jpg", "images/cover.jpg"},
		{"nested path", "OEBPS/content.opf", "text/chapter1.xhtml", "OEBPS/text/chapter1.xhtml"},
		{"absolute-like href", "OEBPS/content.opf", "OEBPS/images/fig.png", "OEBPS/OEBPS/images/fig.png"},
		{"root base", "content.opf", "chapter1.xhtml", "chapter1.xhtml"},
		{"deeply nested", "a/b/c/d.opf", "../../e/f.html", "a/e/f.html"},
		{"dot href", "OEBPS/content.opf", "./styles/main.css", "OEBPS/styles/main.css"},
		{"escaped href", "package.opf", "images/fig%201.png", "images/fig 1.png"},
		{"traversal escapes root", "OEBPS/content.opf", "../../../secret.txt", ""},
		{"absolute href dropped", "OEBPS/content.opf", "/etc/passwd", ""},
		{"multi-level traversal dropped", "a/b/c/d.opf", "../../../../x.txt", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveRelativePath(tt.basePath, tt.href)
			if got != tt.want {
				t.Errorf("resolveRelativePath(%q, %q) = %q; want %q", tt.basePath, tt.href, got, tt.want)
			}
		})
	}
}

func TestIsSafePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		safe bool
	}{
		{"normal path", "OEBPS/content.opf", true},
		{"root file", "mimetype", true},
		{"nested", "a/b/c/d.txt", true},
		{"dot", ".", true},
		{"double dot", "..", false},
		{"traversal prefix", "../etc/passwd", false},
		{"deep traversal", "a/../../etc/passwd", false},
		{"absolute path", "/etc/passwd", false},
		{"traversal with trailing", "../", false},
		{"clean traversal", "OEBPS/../../secret", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isSafePath(tt.path)
			if got != tt.safe {
				t.Errorf("isSafePath(%q) = %v; want %v", tt.path, got, tt.safe)
			}
		})
	}
}

func TestStripBOM(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  []byte
	}{
		{"with BOM", []byte{0xEF, 0xBB, 0xBF, 'h', 'e', 'l', 'l', 'o'}, []byte("hello")},
		{"without BOM", []byte("hello"), []byte("hello")},
		{"empty", []byte{}, []byte{}},
		{"BOM only", []byte{0xEF, 0xBB, 0xBF}, []byte{}},
		{"partial BOM 1 byte", []byte{0xEF}, []byte{0xEF}},
		{"partial BOM 2 bytes", []byte{0xEF, 0xBB}, []byte{0xEF, 0xBB}},
		{"BOM in middle (not stripped)", []byte{'a', 0xEF, 0xBB, 0xBF, 'b'}, []byte{'a', 0xEF, 0xBB, 0xBF, 'b'}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripBOM(tt.input)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("stripBOM(%v) = %v; want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestReadZipFile(t *testing.T) {
	zr := buildTestZip(t, map[string]string{
		"test.txt":    "hello world",
		"empty.txt":   "",
		"subdir/a.md": "# Title",
	})

	tests := []struct {
		name    string
		entry   string
		want    string
		wantErr bool
	}{
		{"normal file", "test.txt", "hello world", false},
		{"empty file", "empty.txt", "", false},
		{"nested file", "subdir/a.md", "# Title", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readZipFile(zipEntry(t, zr, tt.entry))
			if (err != nil) != tt.wantErr {
				t.Fatalf("readZipFile(%q) err = %v; wantErr = %v", tt.entry, err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if string(got) != tt.want {
				t.Errorf("readZipFile(%q) = %q; want %q", tt.entry, string(got), tt.want)
			}
		})
	}
}

func TestReadZipFile_ZipBomb(t *testing.T) {
	// Create a ZIP entry whose content exceeds a small limit.
	content := strings.Repeat("A", 200)
	zr := buildTestZip(t, map[string]string{
		"big.txt": content,
	})

	_, err := readZipFileWithLimit(zipEntry(t, zr, "big.txt"), 100)
	if err == nil {
		t.Fatal("readZipFileWithLimit should have returned an error for oversized entry")
	}
	if !strings.Contains(err.Error(), "too large") && !strings.Contains(err.Error(), "exceeds limit") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestWriteZipEntry(t *testing.T) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)
	if err := writeZipEntry(zw, "stored.txt", []byte("stored"), false); err != nil {
		t.Fatalf("writeZipEntry(stored): %v", err)
	}
	if err := writeZipEntry(zw, "deflated.txt", []byte(strings.Repeat("x", 100)), true); err != nil {
		t.Fatalf("writeZipEntry(deflated): %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	tests := []struct {
		name   string
		method uint16
	}{
		{"stored.txt", zip.Store},
		{"deflated.txt", zip.Deflate},
	}
	for _, tt := range tests {
		f := zipEntry(t, zr, tt.name)
		if f.Method != tt.method {
			t.Errorf("%s: method = %d; want %d", tt.name, f.Method, tt.method)
		}
		if !f.Modified.Equal(archiveTime) {
			t.Errorf("%s: modified = %v; want %v", tt.name, f.Modified, archiveTime)
		}
	}
}
