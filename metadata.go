package epub

import (
	"strings"
)

// Metadata property and relation names read from chapter package documents.
const (
	propertyDate     = "dcterms:date"
	propertyModified = "dcterms:modified"
	relConformsTo    = "dcterms:conformsTo"
)

// Metadata is the publication-level information recovered from a chapter's
// package document.
type Metadata struct {
	// Title is the first dc:title value.
	Title string

	// Identifier is the first dc:identifier value.
	Identifier string

	// Editors contains every dc:creator value, in document order.
	Editors []string

	// Date is the dcterms:date value, else the first dc:date, with the time
	// of day discarded ("YYYY-MM-DD"); empty if the document carries none.
	Date string

	// WCAGConforms reports a dcterms:conformsTo link in the metadata.
	WCAGConforms bool

	// NonLinear lists the idrefs of spine entries marked linear="no".
	NonLinear []string
}

// extractMetadata converts the raw package metadata into Metadata.
func extractMetadata(pkg *opfPackage) Metadata {
	om := &pkg.Metadata
	var md Metadata

	md.Title = firstValue(om.Titles)
	md.Identifier = firstValue(om.Identifiers)

	for _, c := range om.Creators {
		if v := strings.TrimSpace(c.Value); v != "" {
			md.Editors = append(md.Editors, v)
		}
	}

	for _, m := range om.Metas {
		if m.Property == propertyDate {
			md.Date = datePart(m.Value)
			break
		}
	}
	if md.Date == "" {
		md.Date = datePart(firstValue(om.Dates))
	}

	for _, l := range om.Links {
		if l.Rel == relConformsTo {
			md.WCAGConforms = true
			break
		}
	}

	for _, ref := range pkg.spineRefs() {
		if ref.NonLinear {
			md.NonLinear = append(md.NonLinear, ref.IDRef)
		}
	}

	return md
}

// firstValue returns the trimmed value of the first element, or "".
func firstValue(elems []opfDCElement) string {
	if len(elems) == 0 {
		return ""
	}
	return strings.TrimSpace(elems[0].Value)
}

// datePart keeps the calendar part of an ISO date-time ("2021-03-04T00:00:00Z"
// becomes "2021-03-04").
func datePart(v string) string {
	v = strings.TrimSpace(v)
	if i := strings.IndexByte(v, 'T'); i >= 0 {
		return v[:i]
	}
	return v
}
