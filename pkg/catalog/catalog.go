// Package catalog holds the ordered set of platform rules used to find and
// label social-media and app-store links.
package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// Platform describes one platform rule as data.
// Hosts are matched case-insensitively with an optional "www." prefix.
// Path is a case-sensitive regular expression that must follow the host;
// it defaults to "/".
type Platform struct {
	Name  string   `yaml:"name" json:"name"`
	Hosts []string `yaml:"hosts" json:"hosts"`
	Path  string   `yaml:"path,omitempty" json:"path,omitempty"`
}

// Rule is a compiled Platform.
type Rule struct {
	Name     string
	matcher  *regexp.Regexp
	platform Platform
}

// Match reports whether rawURL belongs to the rule's platform.
func (r Rule) Match(rawURL string) bool {
	return r.matcher.MatchString(rawURL)
}

// Catalog is an immutable, ordered list of rules plus the generic matcher
// built from the union of every rule's hosts.
type Catalog struct {
	rules   []Rule
	hosts   []string
	generic *regexp.Regexp
	exact   *regexp.Regexp
}

// urlTail is the part of a link after the host. It stops at quotes, angle
// brackets and whitespace so trailing markup is never swallowed.
const urlTail = `(?:[/?#][^\s"'<>]*)?`

// hostPort is an optional port after the host.
const hostPort = `(?::\d{1,5})?`

// DefaultPlatforms returns the built-in platforms in classification order.
func DefaultPlatforms() []Platform {
	return []Platform{
		{Name: "YouTube", Hosts: []string{"youtube.com"}, Path: `/(?:(?:channel|user|c)/|@)[^/\s?&#]+`},
		{Name: "YouTube", Hosts: []string{"youtu.be"}},
		{Name: "Facebook", Hosts: []string{"facebook.com"}},
		{Name: "Twitter/X", Hosts: []string{"twitter.com", "x.com"}},
		{Name: "Instagram", Hosts: []string{"instagram.com"}},
		{Name: "LinkedIn", Hosts: []string{"linkedin.com"}, Path: `/(?:in|company)/`},
		{Name: "TikTok", Hosts: []string{"tiktok.com"}},
		{Name: "Reddit", Hosts: []string{"reddit.com"}},
		{Name: "Pinterest", Hosts: []string{"pinterest.com"}},
		{Name: "Snapchat", Hosts: []string{"snapchat.com"}},
		{Name: "Vimeo", Hosts: []string{"vimeo.com"}},
		{Name: "Quora", Hosts: []string{"quora.com"}},
		{Name: "Medium", Hosts: []string{"medium.com"}},
		{Name: "Tumblr", Hosts: []string{"tumblr.com"}},
		{Name: "Flickr", Hosts: []string{"flickr.com"}},
		{Name: "GitHub", Hosts: []string{"github.com"}},
		{Name: "Play Store", Hosts: []string{"play.google.com"}, Path: `/store/apps/`},
		{Name: "App Store", Hosts: []string{"apps.apple.com"}},
		{Name: "Threads", Hosts: []string{"threads.net", "threads.com"}},
		{Name: "Discord", Hosts: []string{"discord.com", "discord.gg"}},
		{Name: "Telegram", Hosts: []string{"t.me", "telegram.me", "telegram.com"}},
	}
}

var defaultCatalog = MustNew(DefaultPlatforms())

// Default returns the catalog built from DefaultPlatforms.
func Default() *Catalog {
	return defaultCatalog
}

// New compiles platforms into a Catalog. Rule order is kept as given.
func New(platforms []Platform) (*Catalog, error) {
	if len(platforms) == 0 {
		return nil, errors.New("catalog: no platforms")
	}

	c := &Catalog{rules: make([]Rule, 0, len(platforms))}
	seenHost := make(map[string]bool)

	for i, p := range platforms {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("catalog: platform %d has no name", i)
		}
		if len(p.Hosts) == 0 {
			return nil, fmt.Errorf("catalog: platform %q has no hosts", p.Name)
		}

		hosts := make([]string, 0, len(p.Hosts))
		for _, h := range p.Hosts {
			h = strings.ToLower(strings.TrimSpace(h))
			h = strings.TrimPrefix(h, "www.")
			if h == "" {
				return nil, fmt.Errorf("catalog: platform %q has an empty host", p.Name)
			}
			hosts = append(hosts, h)
			if !seenHost[h] {
				seenHost[h] = true
				c.hosts = append(c.hosts, h)
			}
		}

		path := p.Path
		if path == "" {
			path = "/"
		}
		re, err := regexp.Compile("^" + hostPrefix(hosts) + hostPort + "(?:" + path + ")")
		if err != nil {
			return nil, fmt.Errorf("catalog: platform %q: %w", p.Name, err)
		}
		c.rules = append(c.rules, Rule{
			Name:     p.Name,
			matcher:  re,
			platform: Platform{Name: p.Name, Hosts: hosts, Path: p.Path},
		})
	}

	generic := hostPrefix(c.hosts) + hostPort + `\b` + urlTail
	c.generic = regexp.MustCompile(generic)
	c.exact = regexp.MustCompile("^(?:" + generic + ")$")
	return c, nil
}

// MustNew is like New but panics on error.
func MustNew(platforms []Platform) *Catalog {
	c, err := New(platforms)
	if err != nil {
		panic(err)
	}
	return c
}

// With returns a new catalog with extra platforms appended after the
// receiver's rules.
func (c *Catalog) With(extra ...Platform) (*Catalog, error) {
	if len(extra) == 0 {
		return c, nil
	}
	return New(append(c.Platforms(), extra...))
}

// Platforms returns the rule data the catalog was built from.
func (c *Catalog) Platforms() []Platform {
	out := make([]Platform, 0, len(c.rules))
	for _, r := range c.rules {
		p := r.platform
		p.Hosts = append([]string(nil), p.Hosts...)
		out = append(out, p)
	}
	return out
}

// Rules returns the ordered rules.
func (c *Catalog) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Hosts returns every host the generic matcher recognizes, in rule order.
func (c *Catalog) Hosts() []string {
	out := make([]string, len(c.hosts))
	copy(out, c.hosts)
	return out
}

// Generic returns the matcher that finds any supported link inside text.
// Regexp values carry no match position, so sharing it is safe.
func (c *Catalog) Generic() *regexp.Regexp {
	return c.generic
}

// FindAll returns every supported link in text in order, repeats included.
// A match whose host runs on into a longer name, as in
// "https://facebook.com.evil.net", is not a link to the platform and is
// dropped.
func (c *Catalog) FindAll(text string) []string {
	locs := c.generic.FindAllStringIndex(text, -1)
	out := make([]string, 0, len(locs))
	for _, loc := range locs {
		if continuesHost(text, loc[1]) {
			continue
		}
		out = append(out, text[loc[0]:loc[1]])
	}
	return out
}

// continuesHost reports whether the text at i extends the host just matched:
// a hyphen, or a dot or colon followed by a letter or digit.
func continuesHost(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	switch text[i] {
	case '-':
		return true
	case '.', ':':
		return i+1 < len(text) && isAlnum(text[i+1])
	}
	return false
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' || b >= '0' && b <= '9'
}

// IsCandidate reports whether s, taken as a whole, is a supported link.
func (c *Catalog) IsCandidate(s string) bool {
	return c.exact.MatchString(s)
}

// FallbackLabel labels a URL by its host without a leading "www.".
// It returns rawURL unchanged when no host can be parsed.
func FallbackLabel(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return rawURL
	}
	return strings.TrimPrefix(host, "www.")
}

func hostPrefix(hosts []string) string {
	quoted := make([]string, len(hosts))
	for i, h := range hosts {
		quoted[i] = regexp.QuoteMeta(h)
	}
	return `(?i:https?://(?:www\.)?(?:` + strings.Join(quoted, "|") + `))`
}
