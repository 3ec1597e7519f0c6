package epub

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newTestBuilder(t *testing.T) *PackageBuilder {
	t.Helper()
	b := NewPackageBuilder("urn:uuid:1234", "A & B")
	for _, it := range []ManifestItem{
		{ID: StartID, Href: coverPath, MediaType: MediaTypeXHTML},
		{ID: MainID, Href: titlePath, MediaType: MediaTypeXHTML},
	} {
		if err := b.AddManifestItem(it, false); err != nil {
			t.Fatalf("AddManifestItem(%s): %v", it.ID, err)
		}
	}
	return b
}

func TestNewPackageBuilder_SeedsSpine(t *testing.T) {
	doc := NewPackageBuilder("id", "title").Document()

	want := []SpineRef{{IDRef: StartID}, {IDRef: MainID}}
	if len(doc.Spine) != len(want) {
		t.Fatalf("Spine = %v, want %v", doc.Spine, want)
	}
	for i := range want {
		if doc.Spine[i] != want[i] {
			t.Errorf("Spine[%d] = %+v, want %+v", i, doc.Spine[i], want[i])
		}
	}
	if doc.Language != DefaultLanguage {
		t.Errorf("Language = %q, want %q", doc.Language, DefaultLanguage)
	}
}

func TestPackageBuilder_DuplicateID(t *testing.T) {
	b := newTestBuilder(t)
	err := b.AddManifestItem(ManifestItem{ID: MainID, Href: "other.xhtml", MediaType: MediaTypeXHTML}, false)
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("AddManifestItem error = %v, want ErrDuplicateID", err)
	}
	if got := len(b.Document().Manifest); got != 2 {
		t.Errorf("manifest has %d items after the rejected add, want 2", got)
	}
}

func TestPackageBuilder_EmptyID(t *testing.T) {
	b := newTestBuilder(t)
	if err := b.AddManifestItem(ManifestItem{Href: "x.xhtml"}, false); !errors.Is(err, ErrParse) {
		t.Errorf("AddManifestItem error = %v, want ErrParse", err)
	}
}

func TestPackageBuilder_AddToSpineIsNonLinear(t *testing.T) {
	b := newTestBuilder(t)
	if err := b.AddManifestItem(ManifestItem{ID: "extra", Href: "extra.xhtml", MediaType: MediaTypeXHTML}, true); err != nil {
		t.Fatal(err)
	}
	spine := b.Document().Spine
	last := spine[len(spine)-1]
	if last.IDRef != "extra" || !last.NonLinear {
		t.Errorf("last spine ref = %+v, want non-linear extra", last)
	}
}

func TestPackageBuilder_DanglingSpineRef(t *testing.T) {
	b := newTestBuilder(t)
	b.AddSpineItem("ghost", false)
	if _, err := b.Serialize(); !errors.Is(err, ErrDanglingSpineRef) {
		t.Errorf("Serialize error = %v, want ErrDanglingSpineRef", err)
	}

	// A builder whose seeded refs are not backed fails too.
	if _, err := NewPackageBuilder("id", "t").Serialize(); !errors.Is(err, ErrDanglingSpineRef) {
		t.Errorf("Serialize of an empty builder: error = %v, want ErrDanglingSpineRef", err)
	}
}

func TestPackageBuilder_Serialize(t *testing.T) {
	b := newTestBuilder(t)
	b.AddCreators("Ada Editor", "Bob Editor")
	b.AddDates(time.Date(2022, 5, 6, 15, 0, 0, 0, time.UTC))
	b.AddWCAGLink()
	if err := b.AddManifestItem(ManifestItem{ID: "ch_main", Href: "ch/Overview.xhtml", MediaType: MediaTypeXHTML, Properties: " scripted  mathml "}, false); err != nil {
		t.Fatal(err)
	}
	b.AddSpineItem("ch_main", false)
	b.AddSpineItem(MainID, true)

	out, err := b.Serialize()
	if err != nil {
		t.Fatalf("Serialize: %v", err)
	}

	wants := []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<package xmlns="http://www.idpf.org/2007/opf" xmlns:dc="http://purl.org/dc/elements/1.1/"`,
		`unique-identifier="pub-id" version="3.0" xml:lang="en-us"`,
		`<dc:identifier id="pub-id">urn:uuid:1234</dc:identifier>`,
		`<dc:title id="title">A &amp; B</dc:title>`,
		`<dc:creator id="creator_id_0">Ada Editor</dc:creator>`,
		`<dc:creator id="creator_id_1">Bob Editor</dc:creator>`,
		`<meta property="role" refines="#creator_id_1" scheme="marc:relators">edt</meta>`,
		`<meta property="dcterms:date">2022-05-06T00:00:00Z</meta>`,
		`<meta property="dcterms:modified">2022-05-06T00:00:00Z</meta>`,
		`<link rel="dcterms:conformsTo" href="` + wcagConformanceHref + `"></link>`,
		`<item id="ch_main" href="ch/Overview.xhtml" media-type="application/xhtml+xml" properties="scripted mathml"></item>`,
		`<itemref idref="ch_main"></itemref>`,
		`<itemref idref="main" linear="no"></itemref>`,
	}
	for _, w := range wants {
		if !strings.Contains(out, w) {
			t.Errorf("serialized package document missing %q", w)
		}
	}

	// The item without properties carries no empty attribute.
	if strings.Contains(out, `properties=""`) {
		t.Error("empty properties attribute serialized")
	}

	pkg, err := parseOPF([]byte(out))
	if err != nil {
		t.Fatalf("serialized document does not parse: %v", err)
	}
	if got := len(pkg.spineRefs()); got != 4 {
		t.Errorf("reparsed spine has %d refs, want 4", got)
	}
	md := extractMetadata(pkg)
	if md.Date != "2022-05-06" || !md.WCAGConforms || len(md.Editors) != 2 {
		t.Errorf("reparsed metadata = %+v", md)
	}
}

func TestPackageBuilder_NoDateOmitsDateMetas(t *testing.T) {
	out, err := newTestBuilder(t).Serialize()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(out, propertyDate) || strings.Contains(out, propertyModified) {
		t.Error("dates serialized for a builder without a date")
	}
}

func TestPackageBuilder_SetLanguage(t *testing.T) {
	b := newTestBuilder(t)
	if err := b.SetLanguage("en-GB"); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	if got := b.Document().Language; got != "en-gb" {
		t.Errorf("Language = %q, want %q", got, "en-gb")
	}
	if err := b.SetLanguage("not a tag!"); err == nil {
		t.Error("SetLanguage accepted an invalid tag")
	}
}

func TestPackageBuilder_DocumentIsCopy(t *testing.T) {
	b := newTestBuilder(t)
	doc := b.Document()
	doc.Manifest[0].ID = "changed"
	doc.Spine[0].IDRef = "changed"
	if b.Document().Manifest[0].ID != StartID || b.Document().Spine[0].IDRef != StartID {
		t.Error("Document() shares state with the builder")
	}
}
