package epub

import (
	"encoding/xml"
	"fmt"
)

// opfPackage represents the root <package> element of a parsed package
// document.
type opfPackage struct {
	XMLName          xml.Name    `xml:"package"`
	Version          string      `xml:"version,attr"`
	UniqueIdentifier string      `xml:"unique-identifier,attr"`
	Metadata         opfMetadata `xml:"metadata"`
	Manifest         opfManifest `xml:"manifest"`
	Spine            opfSpine    `xml:"spine"`
}

// opfMetadata holds the raw metadata elements of a package document.
type opfMetadata struct {
	Titles      []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creators    []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Identifiers []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ identifier"`
	Dates       []opfDCElement `xml:"http://purl.org/dc/elements/1.1/ date"`
	Metas       []opfMeta      `xml:"meta"`
	Links       []opfLink      `xml:"link"`
}

// opfDCElement holds a Dublin Core element.
type opfDCElement struct {
	Value string `xml:",chardata"`
	ID    string `xml:"id,attr"`
}

// opfMeta represents an EPUB 3 <meta property="..." refines="..."> element.
type opfMeta struct {
	Property string `xml:"property,attr"`
	Refines  string `xml:"refines,attr"`
	Scheme   string `xml:"scheme,attr"`
	Value    string `xml:",chardata"`
}

// opfLink represents a metadata <link> element.
type opfLink struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

// opfManifest wraps the <manifest> element.
type opfManifest struct {
	Items []opfManifestItem `xml:"item"`
}

// opfManifestItem represents a single <item> in the manifest.
type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

// opfSpine wraps the <spine> element.
type opfSpine struct {
	ItemRefs []opfSpineItemRef `xml:"itemref"`
}

// opfSpineItemRef represents a single <itemref> in the spine.
type opfSpineItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

// parseOPF parses package document content.
func parseOPF(data []byte) (*opfPackage, error) {
	data = preprocessHTMLEntities(stripBOM(data))

	var pkg opfPackage
	if err := xml.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("epub: parse package document: %w: %w", ErrParse, err)
	}
	return &pkg, nil
}

// manifestItems converts the parsed manifest into ManifestItem values, in
// document order.
func (p *opfPackage) manifestItems() []ManifestItem {
	items := make([]ManifestItem, 0, len(p.Manifest.Items))
	for _, it := range p.Manifest.Items {
		items = append(items, ManifestItem{
			ID:         it.ID,
			Href:       it.Href,
			MediaType:  it.MediaType,
			Properties: it.Properties,
		})
	}
	return items
}

// spineRefs converts the parsed spine into SpineRef values. Only an
// explicit linear="no" makes an entry non-linear.
func (p *opfPackage) spineRefs() []SpineRef {
	refs := make([]SpineRef, 0, len(p.Spine.ItemRefs))
	for _, ref := range p.Spine.ItemRefs {
		refs = append(refs, SpineRef{
			IDRef:     ref.IDRef,
			NonLinear: ref.Linear == "no",
		})
	}
	return refs
}
