// Package extractor finds social-media and app-store links in text.
package extractor

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/krrishhack/Social-Hunter-Extension/pkg/catalog"
)

// Extractor runs a catalog's generic matcher over text blobs.
// It keeps no state between calls.
type Extractor struct {
	catalog *catalog.Catalog
	log     zerolog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithCatalog sets the pattern catalog.
func WithCatalog(c *catalog.Catalog) Option {
	return func(e *Extractor) {
		if c != nil {
			e.catalog = c
		}
	}
}

// WithLogger sets the logger used for absorbed read failures.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Extractor) {
		e.log = l
	}
}

// New creates an Extractor using the default catalog unless overridden.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		catalog: catalog.Default(),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the catalog the extractor matches against.
func (e *Extractor) Catalog() *catalog.Catalog {
	return e.catalog
}

// Extract returns every supported link in blob, deduplicated by the literal
// matched string, in first-occurrence order.
func (e *Extractor) Extract(blob string) []string {
	if blob == "" {
		return []string{}
	}

	matches := e.catalog.FindAll(blob)

	seen := make(map[string]bool, len(matches))
	links := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		links = append(links, m)
	}
	return links
}

// ExtractReader reads r fully and extracts from its contents.
// A read failure is treated as an empty blob.
func (e *Extractor) ExtractReader(r io.Reader) []string {
	if r == nil {
		return []string{}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		e.log.Debug().Err(err).Msg("blob unreadable, treating as empty")
		return []string{}
	}
	return e.Extract(string(data))
}

var defaultExtractor = New()

// Extract runs the default extractor over blob.
func Extract(blob string) []string {
	return defaultExtractor.Extract(blob)
}
