// Package aggregator merges links extracted from several sources of one
// target into a single labeled list.
package aggregator

import (
	"github.com/rs/zerolog"
	om "github.com/wk8/go-ordered-map/v2"

	"github.com/krrishhack/Social-Hunter-Extension/pkg/classifier"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/extractor"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/model"
)

// Aggregator extracts, deduplicates and labels links across blobs.
type Aggregator struct {
	extractor  *extractor.Extractor
	classifier *classifier.Classifier
	log        zerolog.Logger
}

// New creates an Aggregator. Nil arguments fall back to the defaults.
func New(ex *extractor.Extractor, cl *classifier.Classifier, log zerolog.Logger) *Aggregator {
	if ex == nil {
		ex = extractor.New()
	}
	if cl == nil {
		cl = classifier.New(ex.Catalog())
	}
	return &Aggregator{extractor: ex, classifier: cl, log: log}
}

// Aggregate runs extraction over blobs in the given order and returns the
// union keyed by literal URL, first-seen order kept across all blobs.
// A blob carrying an error contributes nothing.
func (a *Aggregator) Aggregate(target string, blobs []model.Blob) []model.LabeledLink {
	firstSource := om.New[string, model.SourceKind]()

	for _, b := range blobs {
		if b.Err != nil {
			a.log.Warn().Err(b.Err).
				Str("target", target).
				Str("source", string(b.Kind)).
				Msg("source unavailable, skipping")
			continue
		}
		for _, u := range a.extractor.Extract(b.Text) {
			if _, ok := firstSource.Get(u); ok {
				continue
			}
			firstSource.Set(u, b.Kind)
		}
	}

	links := make([]model.LabeledLink, 0, firstSource.Len())
	for pair := firstSource.Oldest(); pair != nil; pair = pair.Next() {
		links = append(links, model.LabeledLink{
			URL:      pair.Key,
			Platform: a.classifier.Classify(pair.Key),
			Source:   pair.Value,
		})
	}

	a.log.Debug().Str("target", target).Int("blobs", len(blobs)).Int("links", len(links)).Msg("aggregated")
	return links
}
