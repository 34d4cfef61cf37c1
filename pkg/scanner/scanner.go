// Package scanner resolves targets into labeled links: it fetches each
// target, builds the source blobs and hands them to the aggregator.
package scanner

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/krrishhack/Social-Hunter-Extension/pkg/aggregator"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/model"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/page"
)

// TextFetcher downloads the body of a URL as text.
type TextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Scanner scans single targets, target lists and already-loaded pages.
type Scanner struct {
	fetcher     TextFetcher
	agg         *aggregator.Aggregator
	concurrency int
	log         zerolog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithAggregator replaces the default aggregator.
func WithAggregator(a *aggregator.Aggregator) Option {
	return func(s *Scanner) {
		if a != nil {
			s.agg = a
		}
	}
}

// WithConcurrency sets how many targets ScanAll fetches at once.
// Values below 2 keep the scan sequential.
func WithConcurrency(n int) Option {
	return func(s *Scanner) {
		s.concurrency = n
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scanner) {
		s.log = l
	}
}

// New creates a Scanner backed by f.
func New(f TextFetcher, opts ...Option) *Scanner {
	s := &Scanner{
		fetcher:     f,
		concurrency: 1,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.agg == nil {
		s.agg = aggregator.New(nil, nil, s.log)
	}
	return s
}

// NormalizeTarget trims s and adds an https:// scheme when it has no
// http or https scheme.
func NormalizeTarget(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return s
	}
	return "https://" + s
}

// Scan fetches one target and extracts its links. A fetch failure is
// recorded on the result, never returned.
func (s *Scanner) Scan(ctx context.Context, target string) *model.TargetResult {
	target = strings.TrimSpace(target)
	u := NormalizeTarget(target)
	res := &model.TargetResult{Target: target, URL: u}

	body, err := s.fetcher.FetchText(ctx, u)
	if err != nil {
		s.log.Warn().Err(err).Str("target", u).Msg("fetch failed")
		res.Err = err
		return res
	}

	res.Links = s.agg.Aggregate(u, []model.Blob{page.RemoteBlob(body)})
	s.log.Info().Str("target", u).Int("links", len(res.Links)).Msg("scanned")
	return res
}

// ScanPage extracts links from HTML that is already loaded, using its anchors
// and page source. No fetch is made.
func (s *Scanner) ScanPage(target, rawHTML string) *model.TargetResult {
	target = strings.TrimSpace(target)
	u := target
	if u != "" {
		u = NormalizeTarget(u)
	}
	return &model.TargetResult{
		Target: target,
		URL:    u,
		Links:  s.agg.Aggregate(u, page.Blobs(u, rawHTML)),
	}
}

type job struct {
	index int
	key   string
}

// ScanAll scans every target and returns the results in input order.
// Blank entries are skipped and a target repeated under the same normalized
// URL is scanned once under the first key it appeared as. When ctx is done,
// targets that were never started carry the context error.
func (s *Scanner) ScanAll(ctx context.Context, targets []string) *model.ScanResult {
	jobs := planJobs(targets)
	results := make([]*model.TargetResult, len(jobs))

	if s.concurrency <= 1 {
		for _, j := range jobs {
			if ctx.Err() != nil {
				break
			}
			results[j.index] = s.Scan(ctx, j.key)
		}
	} else {
		s.scanPool(ctx, jobs, results)
	}

	out := model.NewScanResult()
	for _, j := range jobs {
		r := results[j.index]
		if r == nil {
			r = &model.TargetResult{
				Target: j.key,
				URL:    NormalizeTarget(j.key),
				Err:    fmt.Errorf("scan not started: %w", ctx.Err()),
			}
		}
		out.Set(j.key, r)
	}

	s.log.Debug().Int("targets", len(jobs)).Int("links", out.TotalLinks()).Msg("bulk scan finished")
	return out
}

func (s *Scanner) scanPool(ctx context.Context, jobs []job, results []*model.TargetResult) {
	queue := make(chan job)

	workers := s.concurrency
	if workers > len(jobs) {
		workers = len(jobs)
	}

	var wg sync.WaitGroup
	worker := func() {
		defer wg.Done()
		for j := range queue {
			results[j.index] = s.Scan(ctx, j.key)
		}
	}

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go worker()
	}

feed:
	for _, j := range jobs {
		if ctx.Err() != nil {
			break
		}
		select {
		case queue <- j:
		case <-ctx.Done():
			break feed
		}
	}
	close(queue)
	wg.Wait()
}

func planJobs(targets []string) []job {
	seen := make(map[string]bool, len(targets))
	jobs := make([]job, 0, len(targets))
	for _, t := range targets {
		key := strings.TrimSpace(t)
		if key == "" {
			continue
		}
		id := NormalizeTarget(key)
		if seen[id] {
			continue
		}
		seen[id] = true
		jobs = append(jobs, job{index: len(jobs), key: key})
	}
	return jobs
}
