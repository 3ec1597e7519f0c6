package epub

import (
	"reflect"
	"testing"
)

func TestRewriteCrossReferences(t *testing.T) {
	siblings := []string{"vc-data-model", "did-core"}
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"double quotes",
			`<a href="https://www.w3.org/TR/did-core/#intro">DID</a>`,
			`<a href="../did-core/Overview.xhtml#intro">DID</a>`,
		},
		{
			"single quotes and http",
			`<a href='http://www.w3.org/TR/did-core/'>DID</a>`,
			`<a href='../did-core/Overview.xhtml'>DID</a>`,
		},
		{
			"case insensitive",
			`<a HREF="HTTPS://WWW.W3.ORG/TR/did-core/">DID</a>`,
			`<a href="../did-core/Overview.xhtml">DID</a>`,
		},
		{
			"self link kept",
			`<a href="https://www.w3.org/TR/vc-imp/">self</a>`,
			`<a href="https://www.w3.org/TR/vc-imp/">self</a>`,
		},
		{
			"prefix of a longer name kept",
			`<a href="https://www.w3.org/TR/did-core-2/">other</a>`,
			`<a href="https://www.w3.org/TR/did-core-2/">other</a>`,
		},
		{
			"other host kept",
			`<a href="https://example.org/TR/did-core/">mirror</a>`,
			`<a href="https://example.org/TR/did-core/">mirror</a>`,
		},
		{
			"without trailing slash kept",
			`<a href="https://www.w3.org/TR/did-core">DID</a>`,
			`<a href="https://www.w3.org/TR/did-core">DID</a>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RewriteCrossReferences(tt.in, "vc-imp", append(siblings, "vc-imp"), "")
			if got != tt.want {
				t.Errorf("RewriteCrossReferences() =\n%s\nwant\n%s", got, tt.want)
			}
		})
	}
}

func TestRewriteCrossReferences_Idempotent(t *testing.T) {
	in := `<p><a href="https://www.w3.org/TR/a/">a</a> <a href='https://www.w3.org/TR/b/#x'>b</a></p>`
	once := RewriteCrossReferences(in, "c", []string{"a", "b"}, DefaultPublishingHost)
	twice := RewriteCrossReferences(once, "c", []string{"a", "b"}, DefaultPublishingHost)
	if once != twice {
		t.Errorf("second rewrite changed the text:\n%s\n%s", once, twice)
	}
	want := `<p><a href="../a/Overview.xhtml">a</a> <a href='../b/Overview.xhtml#x'>b</a></p>`
	if once != want {
		t.Errorf("rewrite = %s, want %s", once, want)
	}
}

func TestRewriteCrossReferences_SelfExcludedEvenWhenListed(t *testing.T) {
	in := `<a href="https://www.w3.org/TR/a/">a</a>`
	if got := RewriteCrossReferences(in, "a", []string{"a"}, ""); got != in {
		t.Errorf("self link rewritten: %s", got)
	}
}

func TestRewriteCrossReferences_CustomHost(t *testing.T) {
	in := `<a href="https://w3c.github.io/TR/a/">a</a>`
	got := RewriteCrossReferences(in, "b", []string{"a"}, "w3c.github.io")
	if want := `<a href="../a/Overview.xhtml">a</a>`; got != want {
		t.Errorf("rewrite = %s, want %s", got, want)
	}
}

func TestSiblingNames(t *testing.T) {
	got := siblingNames([]string{"a", "B", "c"}, "b")
	if want := []string{"a", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("siblingNames() = %v, want %v", got, want)
	}
}
