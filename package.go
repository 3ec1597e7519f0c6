package epub

import (
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Fixed values of the package documents produced by this package.
const (
	opfNamespace    = "http://www.idpf.org/2007/opf"
	dcNamespace     = "http://purl.org/dc/elements/1.1/"
	packagePrefixes = "cc: http://creativecommons.org/ns#"
	packageVersion  = "3.0"
	uniqueIDRef     = "pub-id"
	titleID         = "title"

	// DefaultLanguage is the publication language unless SetLanguage is used.
	DefaultLanguage = "en-us"

	licenseHref          = "https://www.w3.org/Consortium/Legal/2015/doc-license"
	attributionURL       = "https://www.w3.org"
	publisherName        = "World Wide Web Consortium"
	wcagConformanceHref  = "http://www.idpf.org/epub/a11y/accessibility-20170105.html#wcag-a"
	accessibilitySummary = "Visual elements have captions and alternate descriptions. They are always non-normative and used for illustrative purposes only."
)

// Spine ids every package document starts with: the title (or cover) page
// and the main content.
const (
	StartID = "start"
	MainID  = "main"
)

// Creator is a dc:creator entry with the id used by its role refinement.
type Creator struct {
	ID   string
	Name string
}

// PackageDocument is the intermediate tree of a package document. It is
// assembled field by field by a PackageBuilder and projected to XML by
// PackageBuilder.Serialize.
type PackageDocument struct {
	Identifier string
	Title      string
	Language   string
	Creators   []Creator

	// Date is used for both dcterms:date and dcterms:modified; the zero
	// value omits both.
	Date time.Time

	// ConformsTo holds the hrefs of dcterms:conformsTo links.
	ConformsTo []string

	Manifest []ManifestItem
	Spine    []SpineRef
}

// PackageBuilder accumulates the metadata, manifest, and spine of a package
// document. A builder is owned by one goroutine.
type PackageBuilder struct {
	doc        PackageDocument
	ids        map[string]bool
	creatorSeq int
}

// NewPackageBuilder creates a builder for a publication with the given
// identifier and title. The spine starts with the StartID and MainID
// references, which the caller must back with manifest items.
func NewPackageBuilder(identifier, title string) *PackageBuilder {
	return &PackageBuilder{
		doc: PackageDocument{
			Identifier: identifier,
			Title:      title,
			Language:   DefaultLanguage,
			Spine:      []SpineRef{{IDRef: StartID}, {IDRef: MainID}},
		},
		ids: make(map[string]bool),
	}
}

// SetLanguage sets the publication language. The tag must be a valid BCP 47
// language tag.
func (b *PackageBuilder) SetLanguage(tag string) error {
	tag = strings.TrimSpace(tag)
	if _, err := language.Parse(tag); err != nil {
		return fmt.Errorf("epub: invalid language tag %q: %w", tag, err)
	}
	b.doc.Language = strings.ToLower(tag)
	return nil
}

// AddManifestItem appends item to the manifest. With addToSpine, a
// non-linear spine entry referencing it is appended too. An id already in
// the manifest is rejected with ErrDuplicateID.
func (b *PackageBuilder) AddManifestItem(item ManifestItem, addToSpine bool) error {
	if item.ID == "" {
		return fmt.Errorf("epub: manifest item %s has no id: %w", item.Href, ErrParse)
	}
	if b.ids[item.ID] {
		return fmt.Errorf("epub: manifest item %s: id %q: %w", item.Href, item.ID, ErrDuplicateID)
	}
	b.ids[item.ID] = true
	item.Properties = strings.Join(strings.Fields(item.Properties), " ")
	b.doc.Manifest = append(b.doc.Manifest, item)
	if addToSpine {
		b.doc.Spine = append(b.doc.Spine, SpineRef{IDRef: item.ID, NonLinear: true})
	}
	return nil
}

// AddSpineItem appends a reference to the reading order.
func (b *PackageBuilder) AddSpineItem(idref string, nonLinear bool) {
	b.doc.Spine = append(b.doc.Spine, SpineRef{IDRef: idref, NonLinear: nonLinear})
}

// AddCreators appends one creator per name, each refined with the editor
// role.
func (b *PackageBuilder) AddCreators(names ...string) {
	for _, name := range names {
		b.doc.Creators = append(b.doc.Creators, Creator{
			ID:   fmt.Sprintf("creator_id_%d", b.creatorSeq),
			Name: name,
		})
		b.creatorSeq++
	}
}

// AddDates sets the publication date, used for both the original
// publication and the last modification.
func (b *PackageBuilder) AddDates(date time.Time) {
	b.doc.Date = date
}

// AddWCAGLink declares conformance to WCAG level A.
func (b *PackageBuilder) AddWCAGLink() {
	b.doc.ConformsTo = append(b.doc.ConformsTo, wcagConformanceHref)
}

// Document returns a copy of the accumulated tree.
func (b *PackageBuilder) Document() PackageDocument {
	doc := b.doc
	doc.Creators = append([]Creator(nil), b.doc.Creators...)
	doc.ConformsTo = append([]string(nil), b.doc.ConformsTo...)
	doc.Manifest = append([]ManifestItem(nil), b.doc.Manifest...)
	doc.Spine = append([]SpineRef(nil), b.doc.Spine...)
	return doc
}

// Serialize renders the package document as indented XML. Every spine
// reference must name a manifest item, otherwise ErrDanglingSpineRef is
// returned.
func (b *PackageBuilder) Serialize() (string, error) {
	for _, ref := range b.doc.Spine {
		if !b.ids[ref.IDRef] {
			return "", fmt.Errorf("epub: spine idref %q: %w", ref.IDRef, ErrDanglingSpineRef)
		}
	}

	out, err := xml.MarshalIndent(b.doc.toXML(), "", "    ")
	if err != nil {
		return "", fmt.Errorf("epub: marshal package document: %w", err)
	}
	return xml.Header + string(out) + "\n", nil
}

// xmlPackage and the types below are the serialized form of a
// PackageDocument.
type xmlPackage struct {
	XMLName          xml.Name     `xml:"package"`
	Xmlns            string       `xml:"xmlns,attr"`
	XmlnsDC          string       `xml:"xmlns:dc,attr"`
	Prefix           string       `xml:"prefix,attr"`
	UniqueIdentifier string       `xml:"unique-identifier,attr"`
	Version          string       `xml:"version,attr"`
	Lang             string       `xml:"xml:lang,attr"`
	Metadata         xmlMetadata  `xml:"metadata"`
	Manifest         []xmlItem    `xml:"manifest>item"`
	Spine            []xmlItemRef `xml:"spine>itemref"`
}

type xmlMetadata struct {
	Identifier xmlDC     `xml:"dc:identifier"`
	Title      xmlDC     `xml:"dc:title"`
	Language   xmlDC     `xml:"dc:language"`
	Creators   []xmlDC   `xml:"dc:creator"`
	Publisher  string    `xml:"dc:publisher"`
	Rights     string    `xml:"dc:rights"`
	Metas      []xmlMeta `xml:"meta"`
	Links      []xmlLink `xml:"link"`
}

type xmlDC struct {
	ID    string `xml:"id,attr,omitempty"`
	Value string `xml:",chardata"`
}

type xmlMeta struct {
	Property string `xml:"property,attr"`
	Refines  string `xml:"refines,attr,omitempty"`
	Scheme   string `xml:"scheme,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type xmlLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

type xmlItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

type xmlItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr,omitempty"`
}

// toXML projects the tree to its serialized form. Fixed metadata is always
// present.
func (d PackageDocument) toXML() xmlPackage {
	lang := d.Language
	if lang == "" {
		lang = DefaultLanguage
	}

	md := xmlMetadata{
		Identifier: xmlDC{ID: uniqueIDRef, Value: d.Identifier},
		Title:      xmlDC{ID: titleID, Value: d.Title},
		Language:   xmlDC{Value: lang},
		Publisher:  publisherName,
		Rights:     licenseHref,
		Metas: []xmlMeta{
			{Property: "title-type", Refines: "#" + titleID, Value: "main"},
			{Property: "cc:attributionURL", Value: attributionURL},
			{Property: "schema:accessibilityFeature", Value: "tableOfContents"},
			{Property: "schema:accessibilityHazard", Value: "none"},
			{Property: "schema:accessMode", Value: "textual"},
			{Property: "schema:accessibilitySummary", Value: accessibilitySummary},
		},
		Links: []xmlLink{{Rel: "cc:license", Href: licenseHref}},
	}

	for _, c := range d.Creators {
		md.Creators = append(md.Creators, xmlDC{ID: c.ID, Value: c.Name})
		md.Metas = append(md.Metas, xmlMeta{
			Property: "role",
			Refines:  "#" + c.ID,
			Scheme:   "marc:relators",
			Value:    "edt",
		})
	}

	if !d.Date.IsZero() {
		stamp := d.Date.UTC().Format("2006-01-02") + "T00:00:00Z"
		md.Metas = append(md.Metas,
			xmlMeta{Property: propertyDate, Value: stamp},
			xmlMeta{Property: propertyModified, Value: stamp},
		)
	}

	for _, href := range d.ConformsTo {
		md.Links = append(md.Links, xmlLink{Rel: relConformsTo, Href: href})
	}

	pkg := xmlPackage{
		Xmlns:            opfNamespace,
		XmlnsDC:          dcNamespace,
		Prefix:           packagePrefixes,
		UniqueIdentifier: uniqueIDRef,
		Version:          packageVersion,
		Lang:             lang,
		Metadata:         md,
	}
	for _, it := range d.Manifest {
		pkg.Manifest = append(pkg.Manifest, xmlItem(it))
	}
	for _, ref := range d.Spine {
		ir := xmlItemRef{IDRef: ref.IDRef}
		if ref.NonLinear {
			ir.Linear = "no"
		}
		pkg.Spine = append(pkg.Spine, ir)
	}
	return pkg
}
