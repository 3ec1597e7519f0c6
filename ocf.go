package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"
	"unicode/utf8"
)

// layoutOrder lists the entries that open the serialized archive, in order.
// Every other entry follows in first-insertion order.
var layoutOrder = []string{
	mimetypePath,
	containerPath,
	packagePath,
	coverPath,
	coverSVGPath,
	navPath,
	titlePath,
}

// PutOptions controls how an entry is stored in a Container.
type PutOptions struct {
	// Compress stores the entry with DEFLATE instead of uncompressed.
	Compress bool

	// Binary marks the payload as binary content rather than text.
	Binary bool
}

// entry is one named payload of a Container. Entries read from an archive
// keep their zip file handle and are decompressed on demand.
type entry struct {
	data     []byte
	file     *zip.File
	compress bool
	binary   bool
}

// Container is an addressable store of named entries that serializes to a
// single EPUB (OCF) archive. Paths are unique; a later Put to an existing
// path replaces the earlier entry.
//
// Reads may run concurrently. Writes are meant for a single owner and must
// not overlap with reads or serialization. After the first successful
// serialization the container is sealed and further writes fail with
// ErrContainerSealed.
type Container struct {
	name     string
	mu       sync.RWMutex
	entries  map[string]*entry
	lower    map[string]string // lowercase path -> path, first one wins
	order    []string
	sealed   bool
	warnings []string
}

// NewContainer creates a container with the given target file name. The
// mandatory "mimetype" and META-INF/container.xml entries are written at
// creation.
func NewContainer(name string) *Container {
	c := newEmptyContainer(name)
	c.entries[mimetypePath] = &entry{data: []byte(epubMimetype)}
	c.order = append(c.order, mimetypePath)
	c.lower[mimetypePath] = mimetypePath
	c.entries[containerPath] = &entry{data: []byte(containerXMLContent), compress: true}
	c.order = append(c.order, containerPath)
	c.lower[strings.ToLower(containerPath)] = containerPath
	return c
}

func newEmptyContainer(name string) *Container {
	return &Container{
		name:    name,
		entries: make(map[string]*entry),
		lower:   make(map[string]string),
	}
}

// OpenContainer reads a serialized EPUB archive from r. Entry payloads are
// decompressed lazily. A missing, misplaced, or unexpected "mimetype" entry
// is recorded as a warning rather than an error.
func OpenContainer(r io.ReaderAt, size int64, name string) (*Container, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("epub: open zip %s: %w: %w", name, ErrParse, err)
	}

	c := newEmptyContainer(name)
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		if !isSafePath(f.Name) {
			return nil, fmt.Errorf("epub: unsafe zip entry path %s in %s: %w", f.Name, name, ErrParse)
		}
		if _, exists := c.entries[f.Name]; exists {
			continue // first match wins
		}
		c.entries[f.Name] = &entry{file: f, compress: f.Method != zip.Store}
		c.order = append(c.order, f.Name)
		lower := strings.ToLower(f.Name)
		if _, exists := c.lower[lower]; !exists {
			c.lower[lower] = f.Name
		}
	}
	c.validateMimetype(zr)
	return c, nil
}

// ReadContainer is OpenContainer over an in-memory archive.
func ReadContainer(data []byte, name string) (*Container, error) {
	return OpenContainer(bytes.NewReader(data), int64(len(data)), name)
}

// validateMimetype checks that the first zip entry is "mimetype" and holds
// the EPUB media type. Deviations are recorded as warnings.
func (c *Container) validateMimetype(zr *zip.Reader) {
	if len(zr.File) == 0 {
		c.warnings = append(c.warnings, "empty zip archive; mimetype entry missing")
		return
	}

	first := zr.File[0]
	if first.Name != mimetypePath {
		c.warnings = append(c.warnings, "first zip entry is not \"mimetype\"")
		return
	}

	data, err := readZipFile(first)
	if err != nil {
		c.warnings = append(c.warnings, fmt.Sprintf("cannot read mimetype entry: %v", err))
		return
	}
	if string(data) != epubMimetype {
		c.warnings = append(c.warnings, fmt.Sprintf("unexpected mimetype: %q", string(data)))
	}
}

// Name returns the suggested output file name of the publication.
func (c *Container) Name() string {
	return c.name
}

// Warnings returns the non-fatal problems found when the container was
// opened from an archive.
func (c *Container) Warnings() []string {
	return append([]string(nil), c.warnings...)
}

// Put stores data at p, replacing any existing entry with that path.
func (c *Container) Put(p string, data []byte, opts PutOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sealed {
		return fmt.Errorf("epub: put %s: %w", p, ErrContainerSealed)
	}
	if _, exists := c.entries[p]; !exists {
		c.order = append(c.order, p)
		lower := strings.ToLower(p)
		if _, taken := c.lower[lower]; !taken {
			c.lower[lower] = p
		}
	}
	c.entries[p] = &entry{
		data:     append([]byte(nil), data...),
		compress: opts.Compress && p != mimetypePath,
		binary:   opts.Binary,
	}
	return nil
}

// PutText stores a textual entry.
func (c *Container) PutText(p, text string, opts PutOptions) error {
	opts.Binary = false
	return c.Put(p, []byte(text), opts)
}

// Has reports whether an entry exists at p (exact match).
func (c *Container) Has(p string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.entries[p]
	return ok
}

// Paths returns the entry paths in insertion order.
func (c *Container) Paths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// ReadBinary returns the payload stored at p. The lookup tries an exact
// match first, then falls back to a case-insensitive one.
func (c *Container) ReadBinary(p string) ([]byte, error) {
	c.mu.RLock()
	e := c.findEntry(p)
	c.mu.RUnlock()

	if e == nil {
		return nil, fmt.Errorf("epub: %s in %s: %w", p, c.name, ErrNotFound)
	}
	if e.file != nil {
		return readZipFile(e.file)
	}
	return append([]byte(nil), e.data...), nil
}

// ReadText returns the entry at p as text. A leading UTF-8 BOM is stripped;
// content that is not valid UTF-8 is rejected with ErrParse.
func (c *Container) ReadText(p string) (string, error) {
	data, err := c.ReadBinary(p)
	if err != nil {
		return "", err
	}
	data = stripBOM(data)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("epub: %s in %s is not valid UTF-8: %w", p, c.name, ErrParse)
	}
	return string(data), nil
}

// findEntry looks up an entry; callers hold c.mu.
func (c *Container) findEntry(p string) *entry {
	if e, ok := c.entries[p]; ok {
		return e
	}
	if exact, ok := c.lower[strings.ToLower(p)]; ok {
		return c.entries[exact]
	}
	return nil
}

// serializationOrder returns every path in archive order: the fixed layout
// entries first, the remaining ones by insertion.
func (c *Container) serializationOrder() []string {
	out := make([]string, 0, len(c.order))
	fixed := make(map[string]bool, len(layoutOrder))
	for _, p := range layoutOrder {
		fixed[p] = true
		if _, ok := c.entries[p]; ok {
			out = append(out, p)
		}
	}
	for _, p := range c.order {
		if !fixed[p] {
			out = append(out, p)
		}
	}
	return out
}

// WriteTo serializes the container as an EPUB archive. The "mimetype" entry
// comes first and is always stored uncompressed. The output is the same for
// every call; the first successful call seals the container.
func (c *Container) WriteTo(w io.Writer) (int64, error) {
	data, err := c.Bytes()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

// Bytes serializes the container and returns the archive bytes.
func (c *Container) Bytes() ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	mt := epubMimetype
	if e, ok := c.entries[mimetypePath]; ok && e.file == nil && len(e.data) > 0 {
		mt = string(e.data)
	}
	if err := writeZipEntry(zw, mimetypePath, []byte(mt), false); err != nil {
		return nil, err
	}

	for _, p := range c.serializationOrder() {
		if p == mimetypePath {
			continue
		}
		e := c.entries[p]
		data := e.data
		if e.file != nil {
			var err error
			if data, err = readZipFile(e.file); err != nil {
				return nil, err
			}
		}
		if err := writeZipEntry(zw, p, data, e.compress); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("epub: close archive %s: %w", c.name, err)
	}
	c.sealed = true
	return buf.Bytes(), nil
}
