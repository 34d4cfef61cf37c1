package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/krrishhack/Social-Hunter-Extension/pkg/scanner"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/store"
)

type stubFetcher map[string]string

func (f stubFetcher) FetchText(ctx context.Context, url string) (string, error) {
	body, ok := f[url]
	if !ok {
		return "", errors.New("connection refused")
	}
	return body, nil
}

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryBackend) {
	t.Helper()
	sc := scanner.New(stubFetcher{
		"https://good.example.com": `<a href="https://facebook.com/good">fb</a> https://apps.apple.com/app/id1`,
	})
	backend := store.NewMemoryBackend(nil)
	st := store.New(backend)
	if err := st.Load(context.Background()); err != nil {
		t.Fatalf("Load error: %v", err)
	}

	ts := httptest.NewServer(New(sc, st, zerolog.Nop()).Handler())
	t.Cleanup(ts.Close)
	return ts, backend
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s error: %v", method, url, err)
	}
	defer resp.Body.Close()

	var out map[string]any
	json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestServer_Scan(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, out := do(t, http.MethodPost, ts.URL+"/scan", `{"targets":["good.example.com","bad.example.com"]}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	good := out["good.example.com"].(map[string]any)
	links := good["links"].([]any)
	if len(links) != 2 {
		t.Errorf("Expected 2 links for good target, got %v", links)
	}
	bad := out["bad.example.com"].(map[string]any)
	if bad["error"] == nil {
		t.Errorf("Expected error marker for bad target, got %v", bad)
	}
}

func TestServer_ScanRequiresTargets(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := do(t, http.MethodPost, ts.URL+"/scan", `{"targets":[]}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodPost, ts.URL+"/scan", `not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad JSON, got %d", resp.StatusCode)
	}
}

func TestServer_MessageScanNow(t *testing.T) {
	ts, _ := newTestServer(t)

	body := `{"type":"scan-now","url":"https://shop.example/","html":"<a href=\"https://t.me/acme\">tg</a>"}`
	resp, out := do(t, http.MethodPost, ts.URL+"/message", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if out["domain"] != "shop.example" {
		t.Errorf("Unexpected domain: %v", out["domain"])
	}
	links := out["links"].([]any)
	if len(links) != 1 || links[0].(map[string]any)["platform"] != "Telegram" {
		t.Errorf("Unexpected links: %v", links)
	}

	resp, _ = do(t, http.MethodPost, ts.URL+"/message", `{"type":"bogus"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown message, got %d", resp.StatusCode)
	}
}

func TestServer_SavedLifecycle(t *testing.T) {
	ts, backend := newTestServer(t)

	_, out := do(t, http.MethodPost, ts.URL+"/saved", `{"domain":"acme.com","link":"https://github.com/acme"}`)
	if out["added"] != true {
		t.Errorf("Expected added=true, got %v", out)
	}
	_, out = do(t, http.MethodPost, ts.URL+"/saved", `{"domain":"acme.com","link":"https://github.com/acme"}`)
	if out["added"] != false {
		t.Errorf("Expected added=false on duplicate, got %v", out)
	}

	_, out = do(t, http.MethodPost, ts.URL+"/saved/all", `{"a.com":["u1","u2"],"b.com":[]}`)
	if out["added"] != true {
		t.Errorf("Expected added=true from save all, got %v", out)
	}

	_, out = do(t, http.MethodGet, ts.URL+"/saved", "")
	if len(out) != 2 || out["b.com"] != nil {
		t.Errorf("Unexpected saved links: %v", out)
	}

	_, out = do(t, http.MethodDelete, ts.URL+"/saved?domain=acme.com&index=0", "")
	if out["removed"] != true {
		t.Errorf("Expected removed=true, got %v", out)
	}
	_, out = do(t, http.MethodDelete, ts.URL+"/saved?domain=acme.com&index=0", "")
	if out["removed"] != false {
		t.Errorf("Expected removed=false for missing domain, got %v", out)
	}

	resp, _ := do(t, http.MethodDelete, ts.URL+"/saved/all", "")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 from clear, got %d", resp.StatusCode)
	}
	if string(backend.Data()) != "{}" {
		t.Errorf("Expected empty document after clear, got %s", backend.Data())
	}
}

func TestServer_SaveValidation(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := do(t, http.MethodPost, ts.URL+"/saved", `{"domain":"","link":"u"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for blank domain, got %d", resp.StatusCode)
	}
	resp, _ = do(t, http.MethodDelete, ts.URL+"/saved?domain=a.com&index=x", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad index, got %d", resp.StatusCode)
	}
}

func TestServer_WriteFailureKeepsChange(t *testing.T) {
	ts, backend := newTestServer(t)
	backend.FailWrite(errors.New("read-only filesystem"))

	resp, out := do(t, http.MethodPost, ts.URL+"/saved", `{"domain":"acme.com","link":"u1"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", resp.StatusCode)
	}
	if out["kept_in_memory"] != true {
		t.Errorf("Expected kept_in_memory marker, got %v", out)
	}

	_, out = do(t, http.MethodGet, ts.URL+"/saved", "")
	if out["acme.com"] == nil {
		t.Errorf("Expected in-memory change to be visible, got %v", out)
	}
}

func TestServer_RequestID(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := do(t, http.MethodGet, ts.URL+"/status", "")
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("Expected generated X-Request-ID")
	}

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/status", nil)
	req.Header.Set("X-Request-ID", "fixed-id")
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	resp2.Body.Close()
	if resp2.Header.Get("X-Request-ID") != "fixed-id" {
		t.Errorf("Expected request id to be echoed, got %q", resp2.Header.Get("X-Request-ID"))
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	s := &Server{log: zerolog.Nop()}
	h := s.recoveryMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rec.Code)
	}
}
