// Package page gives the scanner DOM-level access to an HTML document:
// anchor hrefs, meta tag content, and the blobs built from them.
package page

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/krrishhack/Social-Hunter-Extension/pkg/model"
)

// Page is a parsed HTML document with the URL it was loaded from.
type Page struct {
	url  *url.URL
	raw  string
	host string
	doc  *goquery.Document
}

// Parse builds a Page from raw HTML. pageURL resolves relative hrefs and may
// be empty.
func Parse(pageURL, rawHTML string) (*Page, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	p := &Page{raw: rawHTML, doc: goquery.NewDocumentFromNode(root)}
	if pageURL != "" {
		u, err := url.Parse(pageURL)
		if err != nil {
			return nil, fmt.Errorf("parse page url: %w", err)
		}
		p.url = u
		p.host = Host(pageURL)
	}
	return p, nil
}

// Domain returns the page host as given, port included.
func (p *Page) Domain() string {
	return p.host
}

// AnchorHrefs returns the href of every anchor, resolved against the page URL
// the way a browser reports a.href. Empty hrefs are skipped.
func (p *Page) AnchorHrefs() []string {
	var hrefs []string
	p.doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return
		}
		hrefs = append(hrefs, p.resolve(href))
	})
	return hrefs
}

// MetaContent joins the content attribute of every meta tag with spaces.
func (p *Page) MetaContent() string {
	var parts []string
	p.doc.Find("meta[content]").Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok && v != "" {
			parts = append(parts, v)
		}
	})
	return strings.Join(parts, " ")
}

// Source returns the raw HTML.
func (p *Page) Source() string {
	return p.raw
}

// Blobs returns the in-page sources in scan order: anchors, then page source.
func (p *Page) Blobs() []model.Blob {
	return []model.Blob{
		{Kind: model.SourceAnchor, Text: strings.Join(p.AnchorHrefs(), "\n")},
		{Kind: model.SourcePageSource, Text: p.raw},
	}
}

func (p *Page) resolve(href string) string {
	if p.url == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return p.url.ResolveReference(ref).String()
}

// RemoteBlob builds the blob for a remotely fetched page: the HTML followed by
// its meta tag content, so links only present in meta tags are found too.
// If the HTML cannot be parsed the blob is the HTML alone.
func RemoteBlob(rawHTML string) model.Blob {
	p, err := Parse("", rawHTML)
	if err != nil {
		return model.Blob{Kind: model.SourceRemote, Text: rawHTML}
	}
	return model.Blob{Kind: model.SourceRemote, Text: rawHTML + " " + p.MetaContent()}
}

// Host returns the host of rawURL with any port, as location.host reports it.
// A bare domain without a scheme is read as https. It returns "" when no
// host can be found.
func Host(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		return u.Host
	}
	if u, err := url.Parse("https://" + rawURL); err == nil {
		return u.Host
	}
	return ""
}

// AnchorHrefs parses rawHTML and returns its resolved anchor hrefs.
func AnchorHrefs(rawHTML, baseURL string) ([]string, error) {
	p, err := Parse(baseURL, rawHTML)
	if err != nil {
		return nil, err
	}
	return p.AnchorHrefs(), nil
}

// MetaContent parses rawHTML and returns its joined meta content.
func MetaContent(rawHTML string) string {
	p, err := Parse("", rawHTML)
	if err != nil {
		return ""
	}
	return p.MetaContent()
}

// Blobs parses rawHTML and returns its in-page blobs. A page that cannot be
// parsed still yields its raw source.
func Blobs(pageURL, rawHTML string) []model.Blob {
	p, err := Parse(pageURL, rawHTML)
	if err != nil {
		return []model.Blob{
			{Kind: model.SourceAnchor, Err: err},
			{Kind: model.SourcePageSource, Text: rawHTML},
		}
	}
	return p.Blobs()
}
