package scanner

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/krrishhack/Social-Hunter-Extension/pkg/fetcher"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/model"
)

type fakeFetcher struct {
	mu     sync.Mutex
	pages  map[string]string
	delays map[string]time.Duration
	calls  []string
}

func (f *fakeFetcher) FetchText(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	body, ok := f.pages[url]
	delay := f.delays[url]
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if !ok {
		return "", errors.New("unreachable")
	}
	return body, nil
}

func TestNormalizeTarget(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"good.example.com", "https://good.example.com"},
		{"  good.example.com  ", "https://good.example.com"},
		{"http://plain.example", "http://plain.example"},
		{"HTTPS://Shout.example", "HTTPS://Shout.example"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeTarget(tt.in); got != tt.want {
			t.Errorf("NormalizeTarget(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScanAll_PartialFailure(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://good.example.com": `<a href="https://facebook.com/good">fb</a>`,
	}}
	s := New(f)

	res := s.ScanAll(context.Background(), []string{"good.example.com", "bad.example.com"})

	if res.Len() != 2 {
		t.Fatalf("Expected 2 targets, got %d", res.Len())
	}
	good, _ := res.Get("good.example.com")
	if good.Failed() || len(good.Links) != 1 || good.Links[0].URL != "https://facebook.com/good" {
		t.Errorf("Unexpected good result: %+v", good)
	}
	bad, _ := res.Get("bad.example.com")
	if !bad.Failed() {
		t.Errorf("Expected error marker for bad target, got %+v", bad)
	}
	if len(f.calls) != 2 {
		t.Errorf("Expected both targets fetched, got %v", f.calls)
	}
}

func TestScan_ErrorDistinctFromEmpty(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"https://empty.example": "<p>nothing here</p>"}}
	s := New(f)

	empty := s.Scan(context.Background(), "empty.example")
	if empty.Failed() || empty.Links == nil || len(empty.Links) != 0 {
		t.Errorf("Expected empty non-nil links without error, got %+v", empty)
	}

	missing := s.Scan(context.Background(), "missing.example")
	if !missing.Failed() || missing.Links != nil {
		t.Errorf("Expected error marker with nil links, got %+v", missing)
	}
}

func TestScan_FindsMetaOnlyLinks(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{
		"https://meta.example": `<meta name="twitter:site" content="https://twitter.com/metaonly">`,
	}}

	res := New(f).Scan(context.Background(), "meta.example")
	if len(res.Links) != 1 || res.Links[0].Platform != "Twitter/X" {
		t.Errorf("Expected the meta link, got %+v", res.Links)
	}
}

func TestScanAll_SkipsBlankAndDuplicates(t *testing.T) {
	f := &fakeFetcher{pages: map[string]string{"https://a.example": ""}}

	res := New(f).ScanAll(context.Background(), []string{"a.example", " ", "https://a.example", "a.example "})

	keys := res.Keys()
	if len(keys) != 1 || keys[0] != "a.example" {
		t.Errorf("Expected a single key a.example, got %v", keys)
	}
	if len(f.calls) != 1 {
		t.Errorf("Expected one fetch, got %v", f.calls)
	}
}

func TestScanAll_PoolKeepsInputOrder(t *testing.T) {
	f := &fakeFetcher{
		pages: map[string]string{
			"https://slow.example": `https://github.com/slow`,
			"https://mid.example":  `https://github.com/mid`,
			"https://fast.example": `https://github.com/fast`,
		},
		delays: map[string]time.Duration{
			"https://slow.example": 60 * time.Millisecond,
			"https://mid.example":  30 * time.Millisecond,
		},
	}
	s := New(f, WithConcurrency(3))

	res := s.ScanAll(context.Background(), []string{"slow.example", "mid.example", "fast.example"})

	keys := res.Keys()
	expected := []string{"slow.example", "mid.example", "fast.example"}
	for i := range expected {
		if keys[i] != expected[i] {
			t.Fatalf("Expected order %v, got %v", expected, keys)
		}
	}
	for _, k := range expected {
		r, _ := res.Get(k)
		if r.Failed() || len(r.Links) != 1 {
			t.Errorf("Unexpected result for %s: %+v", k, r)
		}
	}
}

func TestScanAll_CanceledTargetsMarked(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &fakeFetcher{pages: map[string]string{}}
	res := New(f).ScanAll(ctx, []string{"a.example", "b.example"})

	if res.Len() != 2 {
		t.Fatalf("Expected both targets in result, got %d", res.Len())
	}
	res.Each(func(key string, r *model.TargetResult) {
		if !errors.Is(r.Err, context.Canceled) {
			t.Errorf("Expected %s to carry context.Canceled, got %v", key, r.Err)
		}
	})
	if len(f.calls) != 0 {
		t.Errorf("Expected no fetches after cancel, got %v", f.calls)
	}
}

func TestScanPage_AnchorsBeforeSource(t *testing.T) {
	html := `<a href="https://facebook.com/a">fb</a><script>var x = "https://twitter.com/b";</script>`

	res := New(&fakeFetcher{}).ScanPage("shop.example", html)

	if res.URL != "https://shop.example" {
		t.Errorf("Expected normalized URL, got %q", res.URL)
	}
	if len(res.Links) != 2 {
		t.Fatalf("Expected 2 links, got %+v", res.Links)
	}
	if res.Links[0].URL != "https://facebook.com/a" || res.Links[0].Source != "anchor" {
		t.Errorf("Expected anchor link first, got %+v", res.Links[0])
	}
	if res.Links[1].URL != "https://twitter.com/b" || res.Links[1].Source != "page-source" {
		t.Errorf("Expected page source link second, got %+v", res.Links[1])
	}
}

func TestScan_WithHTTPFetcher(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`<a href="https://play.google.com/store/apps/details?id=com.acme">app</a>`))
	}))
	defer server.Close()

	s := New(fetcher.New())
	res := s.ScanAll(context.Background(), []string{server.URL, server.URL + "/missing"})

	ok, _ := res.Get(server.URL)
	if ok.Failed() || len(ok.Links) != 1 || ok.Links[0].Platform != "Play Store" {
		t.Errorf("Unexpected result: %+v", ok)
	}
	missing, _ := res.Get(server.URL + "/missing")
	var fe *fetcher.FetchError
	if !errors.As(missing.Err, &fe) || fe.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 FetchError, got %v", missing.Err)
	}
}
