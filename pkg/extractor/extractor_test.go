package extractor

import (
	"errors"
	"strings"
	"testing"

	"github.com/krrishhack/Social-Hunter-Extension/pkg/catalog"
)

func TestExtract_Basic(t *testing.T) {
	html := `<p>Follow <a href="https://twitter.com/acme">us</a> for updates.</p>`

	links := Extract(html)

	if len(links) != 1 {
		t.Fatalf("Expected 1 link, got %d", len(links))
	}
	if links[0] != "https://twitter.com/acme" {
		t.Errorf("Expected https://twitter.com/acme, got %s", links[0])
	}
}

func TestExtract_TrailingQuoteExcluded(t *testing.T) {
	blob := `<a href="https://www.facebook.com/acme">x</a> junk https://instagram.com/acme2?ref=1 "`

	links := Extract(blob)

	want := []string{"https://www.facebook.com/acme", "https://instagram.com/acme2?ref=1"}
	if len(links) != len(want) {
		t.Fatalf("Expected %v, got %v", want, links)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("Link %d: expected %s, got %s", i, want[i], links[i])
		}
	}
}

func TestExtract_NoLinks(t *testing.T) {
	links := Extract(`<p>Just plain text with <a href="https://example.com">a link</a>.</p>`)

	if len(links) != 0 {
		t.Errorf("Expected 0 links, got %d", len(links))
	}
}

func TestExtract_EmptyInput(t *testing.T) {
	links := Extract("")

	if links == nil {
		t.Fatal("Expected empty slice, got nil")
	}
	if len(links) != 0 {
		t.Errorf("Expected 0 links for empty input, got %d", len(links))
	}
}

func TestExtract_DeduplicatesLiteralStrings(t *testing.T) {
	html := `
		<a href="https://github.com/acme">First</a>
		<a href="https://github.com/acme">Second</a>
		<a href="https://github.com/acme/">Third with slash</a>
	`

	links := Extract(html)

	// Only exact repeats collapse; the trailing slash variant is distinct.
	if len(links) != 2 {
		t.Fatalf("Expected 2 links, got %d: %v", len(links), links)
	}
	if links[0] != "https://github.com/acme" || links[1] != "https://github.com/acme/" {
		t.Errorf("Unexpected order: %v", links)
	}
}

func TestExtract_FindsLinksInScripts(t *testing.T) {
	html := `
		<div class="footer">
			<script>window.__DATA__ = {"yt":"https://youtu.be/abc123","x":'https://x.com/acme'};</script>
		</div>
	`

	links := Extract(html)

	if len(links) != 2 {
		t.Fatalf("Expected 2 links from script, got %d: %v", len(links), links)
	}
}

func TestExtract_RepeatedCallsAreIndependent(t *testing.T) {
	blob := strings.Repeat("https://reddit.com/r/golang ", 3) + "https://vimeo.com/123"
	e := New()

	first := e.Extract(blob)
	second := e.Extract(blob)

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("Expected 2 links both times, got %v and %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Call results differ at %d: %s vs %s", i, first[i], second[i])
		}
	}
}

func TestExtract_ResultsRematchInIsolation(t *testing.T) {
	blob := `<meta content="https://www.linkedin.com/company/acme"><a href='https://apps.apple.com/app/id1'>` +
		"https://t.me/acme\thttps://pinterest.com/acme>https://medium.com/@acme<"
	c := catalog.Default()

	links := New(WithCatalog(c)).Extract(blob)

	if len(links) != 5 {
		t.Fatalf("Expected 5 links, got %d: %v", len(links), links)
	}
	seen := map[string]bool{}
	for _, l := range links {
		if seen[l] {
			t.Errorf("Duplicate link %s", l)
		}
		seen[l] = true
		if !c.IsCandidate(l) {
			t.Errorf("Expected %s to re-match the generic pattern", l)
		}
	}
}

func TestExtract_MalformedInputDoesNotPanic(t *testing.T) {
	for _, blob := range []string{"\xff\xfe\x00https://", "https://facebook.com\x00/", "<<<'\"https://"} {
		_ = Extract(blob)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestExtractReader_ReadFailureIsEmpty(t *testing.T) {
	links := New().ExtractReader(failingReader{})

	if links == nil || len(links) != 0 {
		t.Errorf("Expected empty result, got %v", links)
	}
}

func TestExtractReader(t *testing.T) {
	links := New().ExtractReader(strings.NewReader("see https://tiktok.com/@acme"))

	if len(links) != 1 || links[0] != "https://tiktok.com/@acme" {
		t.Errorf("Expected tiktok link, got %v", links)
	}
}
