// Package store keeps the user's saved links: a per-domain, insertion-ordered
// list of unique link strings, loaded once at startup and written through to
// a Backend on every change.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	om "github.com/wk8/go-ordered-map/v2"

	"github.com/krrishhack/Social-Hunter-Extension/pkg/model"
)

var (
	// ErrNotLoaded is returned by mutations made before Load.
	ErrNotLoaded = errors.New("store: not loaded")
	// ErrEmptyValue is returned when a domain or link is blank.
	ErrEmptyValue = errors.New("store: empty domain or link")
)

// StorageError reports a failed backend read or write.
// On write failures the in-memory change has been kept.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Backend moves the persisted JSON document in and out of durable storage.
// Load returns nil data when nothing has been written yet.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
}

// State is the persistence state of a Store.
type State int

const (
	StateUninitialized State = iota
	StateLoaded
	StateDirty
	StatePersisted
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoaded:
		return "loaded"
	case StateDirty:
		return "dirty"
	case StatePersisted:
		return "persisted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Entry is one domain and its saved links.
type Entry struct {
	Domain string
	Links  []string
}

// Snapshot is a point-in-time copy of the store in domain order.
type Snapshot []Entry

// MarshalJSON renders the persisted layout: {"domain": ["link", ...]}.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	m := om.New[string, []string]()
	for _, e := range s {
		m.Set(e.Domain, e.Links)
	}
	return json.Marshal(m)
}

// Count returns the number of links across all domains.
func (s Snapshot) Count() int {
	n := 0
	for _, e := range s {
		n += len(e.Links)
	}
	return n
}

// Store is the saved-link collection. It is safe for concurrent use; each
// mutation is applied and written through under one lock.
type Store struct {
	mu      sync.Mutex
	backend Backend
	data    *om.OrderedMap[string, []string]
	state   State
	subs    []func(Snapshot)
	log     zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// New creates an uninitialized Store over b. Call Load before mutating.
func New(b Backend, opts ...Option) *Store {
	s := &Store{
		backend: b,
		data:    om.New[string, []string](),
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the persisted collection. A read failure or an unreadable
// document leaves the store empty but usable and is returned as a
// *StorageError so the caller can warn. Only the first call reads the
// backend; later calls are no-ops so unpersisted changes are never replaced.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateUninitialized {
		s.mu.Unlock()
		return nil
	}

	var loadErr error
	raw, err := s.backend.Load(ctx)
	if err == nil {
		s.data, err = decode(raw)
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("could not load saved links, starting empty")
		s.data = om.New[string, []string]()
		loadErr = &StorageError{Op: "load", Err: err}
	}
	s.state = StateLoaded
	snap, subs := s.snapshotLocked(), s.subscribersLocked()
	s.mu.Unlock()

	s.log.Debug().Int("domains", len(snap)).Int("links", snap.Count()).Msg("saved links loaded")
	notify(subs, snap)
	return loadErr
}

// Save appends link to domain unless it is already there.
// added is false when nothing changed; in that case nothing is written.
func (s *Store) Save(ctx context.Context, domain, link string) (added bool, err error) {
	domain, link = strings.TrimSpace(domain), strings.TrimSpace(link)
	if domain == "" || link == "" {
		return false, ErrEmptyValue
	}
	return s.mutate(ctx, "save", func() bool {
		return s.appendLocked(domain, link)
	})
}

// SaveAll saves every link of every successful target in res under the
// target's key and writes once. Targets without links create no entry.
func (s *Store) SaveAll(ctx context.Context, res *model.ScanResult) (added bool, err error) {
	if res == nil {
		return false, nil
	}
	return s.mutate(ctx, "save all", func() bool {
		changed := false
		res.Each(func(key string, r *model.TargetResult) {
			domain := strings.TrimSpace(key)
			if domain == "" || r == nil || r.Failed() {
				return
			}
			for _, l := range r.Links {
				if l.URL == "" {
					continue
				}
				if s.appendLocked(domain, l.URL) {
					changed = true
				}
			}
		})
		return changed
	})
}

// Delete removes the link at index from domain, dropping the domain once it
// has no links. An unknown domain or out-of-range index is a no-op.
// domain is trimmed the same way Save trims it.
func (s *Store) Delete(ctx context.Context, domain string, index int) (removed bool, err error) {
	domain = strings.TrimSpace(domain)
	return s.mutate(ctx, "delete", func() bool {
		links, ok := s.data.Get(domain)
		if !ok || index < 0 || index >= len(links) {
			return false
		}
		if len(links) == 1 {
			s.data.Delete(domain)
			return true
		}
		next := make([]string, 0, len(links)-1)
		next = append(next, links[:index]...)
		next = append(next, links[index+1:]...)
		s.data.Set(domain, next)
		return true
	})
}

// ClearAll replaces the collection with an empty one.
func (s *Store) ClearAll(ctx context.Context) error {
	_, err := s.mutate(ctx, "clear", func() bool {
		s.data = om.New[string, []string]()
		return true
	})
	return err
}

// Flush retries a pending write. It does nothing unless the store is dirty.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateUninitialized:
		return ErrNotLoaded
	case StateDirty:
		return s.persistLocked(ctx, "flush")
	}
	return nil
}

// Subscribe registers fn to receive a snapshot after load and after every
// change. fn runs outside the store lock.
func (s *Store) Subscribe(fn func(Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Links returns a copy of domain's links.
func (s *Store) Links(domain string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	links, _ := s.data.Get(strings.TrimSpace(domain))
	return append([]string(nil), links...)
}

// Domains returns the saved domains in insertion order.
func (s *Store) Domains() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, s.data.Len())
	for pair := s.data.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Key)
	}
	return out
}

// Snapshot returns a copy of the whole collection.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// State returns the current persistence state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Store) mutate(ctx context.Context, op string, fn func() bool) (bool, error) {
	s.mu.Lock()
	if s.state == StateUninitialized {
		s.mu.Unlock()
		return false, ErrNotLoaded
	}
	if !fn() {
		s.mu.Unlock()
		return false, nil
	}

	s.state = StateDirty
	err := s.persistLocked(ctx, op)
	snap, subs := s.snapshotLocked(), s.subscribersLocked()
	s.mu.Unlock()

	notify(subs, snap)
	return true, err
}

func (s *Store) appendLocked(domain, link string) bool {
	links, _ := s.data.Get(domain)
	for _, l := range links {
		if l == link {
			return false
		}
	}
	next := make([]string, len(links), len(links)+1)
	copy(next, links)
	s.data.Set(domain, append(next, link))
	return true
}

func (s *Store) persistLocked(ctx context.Context, op string) error {
	data, err := json.Marshal(s.data)
	if err != nil {
		return &StorageError{Op: op, Err: err}
	}
	if err := s.backend.Write(ctx, data); err != nil {
		s.log.Warn().Err(err).Str("op", op).Msg("write failed, change kept in memory")
		return &StorageError{Op: op, Err: err}
	}
	s.state = StatePersisted
	return nil
}

func (s *Store) snapshotLocked() Snapshot {
	snap := make(Snapshot, 0, s.data.Len())
	for pair := s.data.Oldest(); pair != nil; pair = pair.Next() {
		snap = append(snap, Entry{Domain: pair.Key, Links: append([]string(nil), pair.Value...)})
	}
	return snap
}

func (s *Store) subscribersLocked() []func(Snapshot) {
	return slices.Clone(s.subs)
}

func notify(subs []func(Snapshot), snap Snapshot) {
	for _, fn := range subs {
		fn(snap)
	}
}

// decode reads the persisted layout. Values that are not arrays of strings
// are ignored, and so are blank or repeated links within a domain.
func decode(raw []byte) (*om.OrderedMap[string, []string], error) {
	out := om.New[string, []string]()
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return out, nil
	}

	doc := om.New[string, json.RawMessage]()
	if err := json.Unmarshal(raw, doc); err != nil {
		return nil, fmt.Errorf("decode saved links: %w", err)
	}

	for pair := doc.Oldest(); pair != nil; pair = pair.Next() {
		var links []string
		if err := json.Unmarshal(pair.Value, &links); err != nil {
			continue
		}
		seen := make(map[string]bool, len(links))
		kept := make([]string, 0, len(links))
		for _, l := range links {
			if l == "" || seen[l] {
				continue
			}
			seen[l] = true
			kept = append(kept, l)
		}
		if len(kept) > 0 {
			out.Set(pair.Key, kept)
		}
	}
	return out, nil
}
