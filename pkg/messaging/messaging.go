// Package messaging implements the page-context side of the extension
// message contract: a "scan-now" request answered with the page's links, and
// one unsolicited "page-links" push once the page has settled.
package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/krrishhack/Social-Hunter-Extension/pkg/model"
	"github.com/krrishhack/Social-Hunter-Extension/pkg/page"
)

// Message types.
const (
	TypeScanNow   = "scan-now"
	TypePageLinks = "page-links"
)

// DefaultSettle is how long the agent waits before pushing page links.
const DefaultSettle = 300 * time.Millisecond

// ErrUnknownMessage is returned for request types the agent does not handle.
var ErrUnknownMessage = errors.New("messaging: unknown message type")

// Request is a message sent to the page agent.
type Request struct {
	Type string `json:"type"`
}

// Reply answers a scan-now request.
type Reply struct {
	Domain string              `json:"domain"`
	Links  []model.LabeledLink `json:"links"`
}

// Push is sent by the agent without being asked.
type Push struct {
	Type   string              `json:"type"`
	Domain string              `json:"domain"`
	Links  []model.LabeledLink `json:"links"`
}

// PageScanner extracts links from an already-loaded page.
type PageScanner interface {
	ScanPage(target, rawHTML string) *model.TargetResult
}

// Agent answers messages for one loaded page.
type Agent struct {
	scanner PageScanner
	pageURL string
	html    string
	domain  string
	settle  time.Duration
	log     zerolog.Logger
	started atomic.Bool
}

// Option configures an Agent.
type Option func(*Agent)

// WithSettle sets the delay before the page-links push.
func WithSettle(d time.Duration) Option {
	return func(a *Agent) {
		if d >= 0 {
			a.settle = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Agent) {
		a.log = l
	}
}

// NewAgent creates an agent for the page at pageURL with the given HTML.
func NewAgent(s PageScanner, pageURL, rawHTML string, opts ...Option) *Agent {
	a := &Agent{
		scanner: s,
		pageURL: pageURL,
		html:    rawHTML,
		domain:  page.Host(pageURL),
		settle:  DefaultSettle,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Domain returns the page's host, port included.
func (a *Agent) Domain() string {
	return a.domain
}

// Handle answers req. Only scan-now is understood.
func (a *Agent) Handle(req Request) (Reply, error) {
	switch req.Type {
	case TypeScanNow:
		return Reply{Domain: a.domain, Links: a.links()}, nil
	default:
		a.log.Debug().Str("type", req.Type).Msg("ignoring unknown message")
		return Reply{}, fmt.Errorf("%w: %q", ErrUnknownMessage, req.Type)
	}
}

// Run waits for the page to settle, then sends one page-links push.
// Later calls return immediately without sending. If ctx is done first,
// nothing is sent and the context error is returned.
func (a *Agent) Run(ctx context.Context, send func(Push)) error {
	if !a.started.CompareAndSwap(false, true) {
		return nil
	}

	timer := time.NewTimer(a.settle)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	p := Push{Type: TypePageLinks, Domain: a.domain, Links: a.links()}
	a.log.Debug().Str("domain", p.Domain).Int("links", len(p.Links)).Msg("pushing page links")
	send(p)
	return nil
}

func (a *Agent) links() []model.LabeledLink {
	res := a.scanner.ScanPage(a.pageURL, a.html)
	if res.Links == nil {
		return []model.LabeledLink{}
	}
	return res.Links
}
