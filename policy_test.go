package epub

import "testing"

func TestTransferPolicy_Classify(t *testing.T) {
	p := DefaultTransferPolicy()
	tests := []struct {
		href string
		want Transfer
	}{
		{"mimetype", TransferNever},
		{"META-INF/container.xml", TransferNever},
		{"package.opf", TransferNever},
		{"nav.xhtml", TransferNever},
		{"title.xhtml", TransferNever},
		{"cover_image.svg", TransferNever},
		{"./nav.xhtml", TransferNever},
		{"StyleSheets/base.css", TransferOnce},
		{"Icons/w3c_main.png", TransferOnce},
		{"cover.xhtml", TransferAlways},
		{"Overview.xhtml", TransferAlways},
		{"images/fig.png", TransferAlways},
		{"StyleSheets/other.css", TransferAlways},
	}
	for _, tt := range tests {
		if got := p.Classify(tt.href); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.href, got, tt.want)
		}
	}
}

func TestTransferPolicy_Transferable(t *testing.T) {
	p := DefaultTransferPolicy()
	tests := []struct {
		href  string
		first bool
		want  bool
	}{
		{"Overview.xhtml", true, true},
		{"Overview.xhtml", false, true},
		{"StyleSheets/base.css", true, true},
		{"StyleSheets/base.css", false, false},
		{"nav.xhtml", true, false},
		{"package.opf", false, false},
	}
	for _, tt := range tests {
		if got := p.Transferable(tt.href, tt.first); got != tt.want {
			t.Errorf("Transferable(%q, %v) = %v, want %v", tt.href, tt.first, got, tt.want)
		}
	}
}

func TestTransferPolicy_TargetPath(t *testing.T) {
	p := DefaultTransferPolicy()
	tests := []struct {
		href, want string
	}{
		{"Overview.xhtml", "vc-data-model/Overview.xhtml"},
		{"images/./fig.png", "vc-data-model/images/fig.png"},
		{"StyleSheets/base.css", "StyleSheets/base.css"},
		{"Icons/w3c_main.png", "Icons/w3c_main.png"},
	}
	for _, tt := range tests {
		if got := p.TargetPath("vc-data-model", tt.href); got != tt.want {
			t.Errorf("TargetPath(%q) = %q, want %q", tt.href, got, tt.want)
		}
	}
}

func TestTransferPolicy_Custom(t *testing.T) {
	p := TransferPolicy{TransferOnce: []string{"shared.css"}}
	if p.Classify("nav.xhtml") != TransferAlways {
		t.Error("custom policy without a never list still suppresses nav.xhtml")
	}
	if p.TargetPath("a", "shared.css") != "shared.css" {
		t.Error("custom shared asset moved under the chapter folder")
	}
}

func TestTransfer_String(t *testing.T) {
	for tr, want := range map[Transfer]string{
		TransferAlways: "always",
		TransferOnce:   "once",
		TransferNever:  "never",
	} {
		if got := tr.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", tr, got, want)
		}
	}
}
