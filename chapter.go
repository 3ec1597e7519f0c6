package epub

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/sync/errgroup"
)

// ChapterSource identifies one chapter of a collection: the document URL
// and the options passed to the converter rendering it.
type ChapterSource struct {
	URL     string
	Options ConvertOptions
}

// ChapterInfo is the publication-level information of an extracted chapter.
type ChapterInfo struct {
	// URL is the source document URL.
	URL string

	// Name is the chapter's short name: the converter's output file name
	// without the ".epub" suffix. It names the chapter's folder in a
	// collection and is the target of cross references.
	Name string

	Title      string
	Identifier string

	// Editors holds the dc:creator values, in document order.
	Editors []string

	// Date is the publication date as "YYYY-MM-DD", or "" if absent.
	Date string

	// WCAGConforms reports a dcterms:conformsTo link in the chapter.
	WCAGConforms bool

	// NonLinear lists the chapter's spine idrefs marked linear="no".
	NonLinear []string

	// First marks the collection's first chapter.
	First bool
}

// PendingChapter is a chapter that has not been extracted yet. It only
// carries the chapter's identity; Extract performs the I/O.
type PendingChapter struct {
	source ChapterSource
	first  bool
}

// NewPendingChapter records a chapter to extract. first marks the
// collection's first chapter, the one contributing shared assets.
func NewPendingChapter(src ChapterSource, first bool) PendingChapter {
	return PendingChapter{source: src, first: first}
}

// Source returns the chapter's source.
func (p PendingChapter) Source() ChapterSource {
	return p.source
}

// First reports whether this is the collection's first chapter.
func (p PendingChapter) First() bool {
	return p.first
}

// Chapter is an extracted chapter. Only chapters returned by
// PendingChapter.Extract are usable; the accessors of any other Chapter
// value fail with ErrNotInitialized. A Chapter is immutable.
type Chapter struct {
	ready     bool
	info      ChapterInfo
	resources []Resource
	spine     []SpineRef
	nav       string
}

// Extract renders the chapter with conv and recovers its transferable
// resources, metadata, spine, and navigation document. Resource payloads are
// read concurrently; the first failure is returned once every read has
// finished.
func (p PendingChapter) Extract(ctx context.Context, conv Converter, policy TransferPolicy) (*Chapter, error) {
	c, err := conv.Create(ctx, p.source.URL, p.source.Options)
	if err != nil {
		if errors.Is(err, ErrFetch) || errors.Is(err, ErrParse) {
			return nil, err
		}
		return nil, fmt.Errorf("epub: convert %s: %w: %w", p.source.URL, ErrFetch, err)
	}

	name, err := chapterName(c.Name())
	if err != nil {
		return nil, err
	}
	if err := checkTransferable(c); err != nil {
		return nil, err
	}

	opfPath, err := packageDocumentPath(c)
	if err != nil {
		return nil, err
	}
	opfData, err := c.ReadBinary(opfPath)
	if err != nil {
		return nil, err
	}
	pkg, err := parseOPF(opfData)
	if err != nil {
		return nil, fmt.Errorf("epub: chapter %s: %w", name, err)
	}

	resources, sources := transferableResources(pkg.manifestItems(), opfPath, policy, p.first)

	var g errgroup.Group
	for i := range resources {
		g.Go(func() error {
			return resources[i].resolve(c, sources[i])
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("epub: chapter %s: %w", name, err)
	}

	nav, err := navigationText(c, pkg, opfPath)
	if err != nil {
		return nil, fmt.Errorf("epub: chapter %s: %w", name, err)
	}

	md := extractMetadata(pkg)
	return &Chapter{
		ready: true,
		info: ChapterInfo{
			URL:          p.source.URL,
			Name:         name,
			Title:        md.Title,
			Identifier:   md.Identifier,
			Editors:      md.Editors,
			Date:         md.Date,
			WCAGConforms: md.WCAGConforms,
			NonLinear:    md.NonLinear,
			First:        p.first,
		},
		resources: resources,
		spine:     pkg.spineRefs(),
		nav:       nav,
	}, nil
}

// chapterName derives the chapter's short name from the container name.
func chapterName(containerName string) (string, error) {
	name := strings.TrimSuffix(path.Base(containerName), ".epub")
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("epub: unusable chapter name %q: %w", containerName, ErrParse)
	}
	return name, nil
}

// transferableResources filters the manifest with policy and returns the
// kept resources, with paths relative to the package document, together
// with their container-internal source paths. Remote items are skipped.
func transferableResources(items []ManifestItem, opfPath string, policy TransferPolicy, first bool) ([]Resource, []string) {
	var (
		resources []Resource
		sources   []string
	)
	for _, it := range items {
		href := strings.TrimSpace(it.Href)
		if href == "" {
			continue
		}
		if u, err := url.Parse(href); err == nil && u.Scheme != "" {
			continue
		}
		if decoded, err := url.PathUnescape(href); err == nil {
			href = decoded
		}
		href = path.Clean(href)
		if !policy.Transferable(href, first) {
			continue
		}
		src := resolveRelativePath(opfPath, href)
		if src == "" {
			continue
		}
		resources = append(resources, Resource{
			Path:       href,
			MediaType:  it.MediaType,
			ID:         it.ID,
			Properties: strings.Join(strings.Fields(it.Properties), " "),
			Text:       IsTextMediaType(it.MediaType),
		})
		sources = append(sources, src)
	}
	return resources, sources
}

// navigationText returns the chapter's navigation document: the manifest
// item with the "nav" property, else nav.xhtml next to the package
// document. A chapter without one yields "".
func navigationText(c *Container, pkg *opfPackage, opfPath string) (string, error) {
	href := navPath
	for _, it := range pkg.manifestItems() {
		if hasProperty(it.Properties, "nav") {
			href = it.Href
			break
		}
	}
	src := resolveRelativePath(opfPath, href)
	if src == "" || !c.Has(src) {
		return "", nil
	}
	return c.ReadText(src)
}

// hasProperty reports whether the space-separated list props contains p.
func hasProperty(props, p string) bool {
	for _, f := range strings.Fields(props) {
		if f == p {
			return true
		}
	}
	return false
}

// Info returns the chapter's publication information.
func (c *Chapter) Info() (ChapterInfo, error) {
	if c == nil || !c.ready {
		return ChapterInfo{}, ErrNotInitialized
	}
	info := c.info
	info.Editors = append([]string(nil), c.info.Editors...)
	info.NonLinear = append([]string(nil), c.info.NonLinear...)
	return info, nil
}

// Resources returns the transferable resources with their payloads. Paths
// are relative to the chapter's package document.
func (c *Chapter) Resources() ([]Resource, error) {
	if c == nil || !c.ready {
		return nil, ErrNotInitialized
	}
	return append([]Resource(nil), c.resources...), nil
}

// Spine returns the chapter's full reading order.
func (c *Chapter) Spine() ([]SpineRef, error) {
	if c == nil || !c.ready {
		return nil, ErrNotInitialized
	}
	return append([]SpineRef(nil), c.spine...), nil
}

// NavigationDocument returns the raw text of the chapter's navigation
// document.
func (c *Chapter) NavigationDocument() (string, error) {
	if c == nil || !c.ready {
		return "", ErrNotInitialized
	}
	return c.nav, nil
}
