package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"
)

// maxDecompressSize is the maximum allowed decompressed size for a single
// entry of a chapter archive. Defaults to 256 MB.
const maxDecompressSize int64 = 256 * 1024 * 1024

// archiveTime is the modification time written for every entry, so that
// serializing the same container twice yields identical bytes.
var archiveTime = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// resolveRelativePath resolves href relative to the directory of basePath.
// Both are container-internal paths (forward-slash separated). The result
// is cleaned; an absolute href or one escaping the root yields "".
func resolveRelativePath(basePath, href string) string {
	href = strings.TrimSpace(href)
	if strings.HasPrefix(href, "/") {
		return ""
	}
	if decoded, err := url.PathUnescape(href); err == nil {
		href = decoded
	}
	cleaned := path.Clean(path.Join(path.Dir(basePath), href))
	if !isSafePath(cleaned) {
		return ""
	}
	return cleaned
}

// isSafePath checks whether p is a container-internal path that does not
// escape the archive root via traversal (e.g. "../../etc/passwd").
func isSafePath(p string) bool {
	cleaned := path.Clean(p)
	if strings.HasPrefix(cleaned, "/") {
		return false
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	return true
}

// stripBOM removes a leading UTF-8 BOM (0xEF 0xBB 0xBF) from data, if present.
func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// readZipFile reads the full contents of a zip entry, enforcing
// maxDecompressSize.
func readZipFile(f *zip.File) ([]byte, error) {
	return readZipFileWithLimit(f, maxDecompressSize)
}

// readZipFileWithLimit is readZipFile with a configurable size limit, so
// tests can use a smaller one.
func readZipFileWithLimit(f *zip.File, limit int64) ([]byte, error) {
	if !isSafePath(f.Name) {
		return nil, fmt.Errorf("epub: unsafe zip entry path: %s", f.Name)
	}

	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("epub: zip entry %s too large: %d bytes (max %d)", f.Name, f.UncompressedSize64, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("epub: open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	// The declared size may be forged; read one byte past the limit to tell.
	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("epub: read zip entry %s: %w", f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("epub: zip entry %s decompressed size exceeds limit (%d bytes)", f.Name, limit)
	}

	return data, nil
}

// writeZipEntry appends one entry to zw, stored or deflated.
func writeZipEntry(zw *zip.Writer, name string, data []byte, compress bool) error {
	method := zip.Store
	if compress {
		method = zip.Deflate
	}
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   method,
		Modified: archiveTime,
	})
	if err != nil {
		return fmt.Errorf("epub: create zip entry %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("epub: write zip entry %s: %w", name, err)
	}
	return nil
}
