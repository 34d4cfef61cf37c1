// Package model defines the values passed between the scanning components.
package model

import (
	"encoding/json"
	"errors"

	om "github.com/wk8/go-ordered-map/v2"
)

// SourceKind names where a text blob came from.
type SourceKind string

const (
	SourceAnchor     SourceKind = "anchor"
	SourcePageSource SourceKind = "page-source"
	SourceRemote     SourceKind = "remote-fetch"
)

// Blob is a text buffer for one target and one source kind.
// A non-nil Err marks a source that could not be read; it yields no links.
type Blob struct {
	Kind SourceKind
	Text string
	Err  error
}

// LabeledLink is a candidate URL with its platform label.
type LabeledLink struct {
	URL      string     `json:"url"`
	Platform string     `json:"platform"`
	Source   SourceKind `json:"source,omitempty"`
}

// TargetResult is the outcome of scanning one target.
// Err set means the target failed and Links is nil; a target that was
// scanned but had no matches has a nil Err and an empty Links.
type TargetResult struct {
	Target string
	URL    string
	Links  []LabeledLink
	Err    error
}

// Failed reports whether the target carries an error marker.
func (r *TargetResult) Failed() bool {
	return r.Err != nil
}

// URLs returns the bare link strings.
func (r *TargetResult) URLs() []string {
	out := make([]string, 0, len(r.Links))
	for _, l := range r.Links {
		out = append(out, l.URL)
	}
	return out
}

// MarshalJSON renders either the links or the error marker.
func (r *TargetResult) MarshalJSON() ([]byte, error) {
	type wire struct {
		URL   string        `json:"url,omitempty"`
		Links []LabeledLink `json:"links"`
		Error string        `json:"error,omitempty"`
	}
	w := wire{URL: r.URL, Links: r.Links}
	if r.Err != nil {
		w.Error = r.Err.Error()
		w.Links = nil
	} else if w.Links == nil {
		w.Links = []LabeledLink{}
	}
	return json.Marshal(w)
}

// ScanResult maps target keys to their results in scan order.
type ScanResult struct {
	entries *om.OrderedMap[string, *TargetResult]
}

// NewScanResult returns an empty result set.
func NewScanResult() *ScanResult {
	return &ScanResult{entries: om.New[string, *TargetResult]()}
}

// Set stores the result for key. An existing key keeps its position.
func (s *ScanResult) Set(key string, r *TargetResult) {
	s.entries.Set(key, r)
}

// Get returns the result for key.
func (s *ScanResult) Get(key string) (*TargetResult, bool) {
	return s.entries.Get(key)
}

// Len returns the number of targets.
func (s *ScanResult) Len() int {
	return s.entries.Len()
}

// Keys returns the target keys in order.
func (s *ScanResult) Keys() []string {
	keys := make([]string, 0, s.entries.Len())
	for pair := s.entries.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Each calls fn for every target in order.
func (s *ScanResult) Each(fn func(key string, r *TargetResult)) {
	for pair := s.entries.Oldest(); pair != nil; pair = pair.Next() {
		fn(pair.Key, pair.Value)
	}
}

// TotalLinks counts links across all successful targets.
func (s *ScanResult) TotalLinks() int {
	n := 0
	s.Each(func(_ string, r *TargetResult) {
		n += len(r.Links)
	})
	return n
}

// HasLinks reports whether any target has at least one link.
func (s *ScanResult) HasLinks() bool {
	return s.TotalLinks() > 0
}

// MarshalJSON keeps target order in the output object.
func (s *ScanResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.entries)
}

// UnmarshalJSON accepts either {"target": ["url", ...]} or the object form
// produced by MarshalJSON. Unknown shapes are skipped.
func (s *ScanResult) UnmarshalJSON(data []byte) error {
	raw := om.New[string, json.RawMessage]()
	if err := json.Unmarshal(data, raw); err != nil {
		return err
	}

	s.entries = om.New[string, *TargetResult]()
	for pair := raw.Oldest(); pair != nil; pair = pair.Next() {
		var urls []string
		if err := json.Unmarshal(pair.Value, &urls); err == nil {
			r := &TargetResult{Target: pair.Key, Links: make([]LabeledLink, 0, len(urls))}
			for _, u := range urls {
				r.Links = append(r.Links, LabeledLink{URL: u})
			}
			s.entries.Set(pair.Key, r)
			continue
		}

		var w struct {
			URL   string        `json:"url"`
			Links []LabeledLink `json:"links"`
			Error string        `json:"error"`
		}
		if err := json.Unmarshal(pair.Value, &w); err != nil {
			continue
		}
		r := &TargetResult{Target: pair.Key, URL: w.URL, Links: w.Links}
		if w.Error != "" {
			r.Err = errors.New(w.Error)
			r.Links = nil
		}
		s.entries.Set(pair.Key, r)
	}
	return nil
}
