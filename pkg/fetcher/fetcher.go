// Package fetcher provides HTTP fetching of pages to scan.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxBody caps how much of a response body is read.
const DefaultMaxBody int64 = 5 << 20

// FetchError reports a transport failure or a non-success status.
type FetchError struct {
	URL        string
	StatusCode int
	Message    string
	Err        error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.URL, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.URL, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Fetcher downloads pages over HTTP.
type Fetcher struct {
	client     *http.Client
	timeout    time.Duration
	timeoutSet bool
	userAgent  string
	maxBody   int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the HTTP timeout. It applies to a copy of any client
// given with WithClient, whatever the option order.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
		f.timeoutSet = true
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithClient sets the HTTP client. The client is never modified; without
// WithTimeout its own timeout is kept.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithMaxBody sets the body size cap in bytes.
func WithMaxBody(n int64) Option {
	return func(f *Fetcher) {
		if n > 0 {
			f.maxBody = n
		}
	}
}

// New creates a new Fetcher with the given options.
func New(opts ...Option) *Fetcher {
	base := &http.Client{}
	f := &Fetcher{
		client:    base,
		timeout:   30 * time.Second,
		userAgent: "social-hunter/1.0",
		maxBody:   DefaultMaxBody,
	}
	for _, opt := range opts {
		opt(f)
	}

	switch {
	case f.client == base:
		base.Timeout = f.timeout
	case f.timeoutSet:
		c := *f.client
		c.Timeout = f.timeout
		f.client = &c
	}
	return f
}

// FetchText downloads the page at url and returns its body as text.
// Every failure is a *FetchError.
func (f *Fetcher) FetchText(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", &FetchError{URL: url, Message: "creating request", Err: err}
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html, application/xhtml+xml, */*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: url, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return "", &FetchError{URL: url, StatusCode: resp.StatusCode, Message: "reading response", Err: err}
	}

	return string(body), nil
}
