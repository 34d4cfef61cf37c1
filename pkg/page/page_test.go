package page

import (
	"strings"
	"testing"

	"github.com/krrishhack/Social-Hunter-Extension/pkg/model"
)

const samplePage = `<html><head>
<meta property="og:see_also" content="https://twitter.com/acme">
<meta name="description" content="Acme widgets">
</head><body>
<a href="https://www.facebook.com/acme">fb</a>
<a href="/about">about</a>
<a href="">empty</a>
<a>no href</a>
</body></html>`

func TestPage_AnchorHrefsResolved(t *testing.T) {
	p, err := Parse("https://acme.example/shop/", samplePage)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	hrefs := p.AnchorHrefs()
	expected := []string{"https://www.facebook.com/acme", "https://acme.example/about"}
	if len(hrefs) != len(expected) {
		t.Fatalf("Expected %d hrefs, got %d: %v", len(expected), len(hrefs), hrefs)
	}
	for i := range expected {
		if hrefs[i] != expected[i] {
			t.Errorf("href %d: expected %q, got %q", i, expected[i], hrefs[i])
		}
	}
	if p.Domain() != "acme.example" {
		t.Errorf("Expected domain acme.example, got %q", p.Domain())
	}
}

func TestPage_AnchorHrefsWithoutBase(t *testing.T) {
	hrefs, err := AnchorHrefs(samplePage, "")
	if err != nil {
		t.Fatalf("AnchorHrefs error: %v", err)
	}
	if len(hrefs) != 2 || hrefs[1] != "/about" {
		t.Errorf("Expected unresolved relative href, got %v", hrefs)
	}
}

func TestMetaContent(t *testing.T) {
	got := MetaContent(samplePage)
	if got != "https://twitter.com/acme Acme widgets" {
		t.Errorf("Unexpected meta content: %q", got)
	}
}

func TestBlobs_Order(t *testing.T) {
	blobs := Blobs("https://acme.example/", samplePage)

	if len(blobs) != 2 {
		t.Fatalf("Expected 2 blobs, got %d", len(blobs))
	}
	if blobs[0].Kind != model.SourceAnchor || blobs[1].Kind != model.SourcePageSource {
		t.Errorf("Unexpected blob kinds: %s, %s", blobs[0].Kind, blobs[1].Kind)
	}
	if !strings.Contains(blobs[0].Text, "https://www.facebook.com/acme\nhttps://acme.example/about") {
		t.Errorf("Anchor blob should join hrefs by newline, got %q", blobs[0].Text)
	}
	if blobs[1].Text != samplePage {
		t.Error("Page source blob should be the raw html")
	}
}

func TestRemoteBlob_AppendsMeta(t *testing.T) {
	b := RemoteBlob(samplePage)

	if b.Kind != model.SourceRemote {
		t.Errorf("Expected remote-fetch kind, got %s", b.Kind)
	}
	if !strings.HasPrefix(b.Text, samplePage) || !strings.HasSuffix(b.Text, " https://twitter.com/acme Acme widgets") {
		t.Errorf("Expected html followed by meta content, got %q", b.Text)
	}
}

func TestParse_Garbage(t *testing.T) {
	p, err := Parse("", "not <<< really html")
	if err != nil {
		t.Fatalf("Parse should tolerate garbage: %v", err)
	}
	if len(p.AnchorHrefs()) != 0 {
		t.Error("Expected no anchors")
	}
}

func TestHost(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://shop.example:8443/about", "shop.example:8443"},
		{"https://shop.example/", "shop.example"},
		{"shop.example", "shop.example"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Host(tt.in); got != tt.want {
			t.Errorf("Host(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	p, err := Parse("https://shop.example:8443/about", "")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if p.Domain() != Host("https://shop.example:8443/about") {
		t.Errorf("Page domain %q disagrees with Host", p.Domain())
	}
}
