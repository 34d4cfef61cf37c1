// Package classifier labels links with the platform they belong to.
package classifier

import (
	"github.com/krrishhack/Social-Hunter-Extension/pkg/catalog"
)

// Classifier labels URLs using a catalog's ordered rules.
type Classifier struct {
	catalog *catalog.Catalog
}

// New returns a classifier over c, or the default catalog when c is nil.
func New(c *catalog.Catalog) *Classifier {
	if c == nil {
		c = catalog.Default()
	}
	return &Classifier{catalog: c}
}

// Classify returns the name of the first matching rule. Without a match it
// falls back to the bare host, and to rawURL itself when no host parses.
// It never fails.
func (c *Classifier) Classify(rawURL string) string {
	for _, r := range c.catalog.Rules() {
		if r.Match(rawURL) {
			return r.Name
		}
	}
	return catalog.FallbackLabel(rawURL)
}

var defaultClassifier = New(nil)

// Classify labels rawURL with the default catalog.
func Classify(rawURL string) string {
	return defaultClassifier.Classify(rawURL)
}
