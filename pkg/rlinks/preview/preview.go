// Package preview fetches title, description and image metadata for a URL.
// Failures are the caller's to absorb: a link is created with empty metadata
// rather than not at all.
package preview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"

	"github.com/mikepea/rlinks/pkg/rlinks/urlcheck"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// maxBodyBytes caps how much of a page is read looking for <head> metadata.
const maxBodyBytes = 1 << 20

// Metadata is the preview shown next to a link.
type Metadata struct {
	Title       string
	Description string
	Image       string
}

// Fetcher loads preview metadata for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Metadata, error)
}

// Noop returns empty metadata without any I/O.
type Noop struct{}

func (Noop) Fetch(context.Context, string) (Metadata, error) {
	return Metadata{}, nil
}

// ErrBlockedAddress is returned when a fetch would reach a loopback,
// private or link-local address.
var ErrBlockedAddress = errors.New("preview: address not allowed")

// HTTPFetcher reads OpenGraph tags, falling back to <title> and
// <meta name="description">.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string

	allowURL  func(rawURL string) bool
	allowAddr func(addr netip.Addr) bool
}

// Option configures an HTTPFetcher.
type Option func(*HTTPFetcher)

// WithURLCheck replaces the check applied to every redirect target.
// It defaults to urlcheck.IsValid.
func WithURLCheck(allow func(rawURL string) bool) Option {
	return func(f *HTTPFetcher) { f.allowURL = allow }
}

// WithAddrCheck replaces the check applied to every address the fetcher
// dials, after DNS resolution. It defaults to PublicAddr.
func WithAddrCheck(allow func(addr netip.Addr) bool) Option {
	return func(f *HTTPFetcher) { f.allowAddr = allow }
}

// NewHTTPFetcher creates a fetcher whose requests are bounded by timeout.
// It never follows a redirect to a URL the shortener itself would reject,
// and never connects to a non-public address, whatever a hostname
// resolves to.
func NewHTTPFetcher(timeout time.Duration, opts ...Option) *HTTPFetcher {
	f := &HTTPFetcher{
		userAgent: "rlinks-preview/1.0",
		allowURL:  urlcheck.IsValid,
		allowAddr: PublicAddr,
	}
	for _, opt := range opts {
		opt(f)
	}

	dialer := &net.Dialer{
		Timeout: timeout,
		Control: func(network, address string, _ syscall.RawConn) error {
			ap, err := netip.ParseAddrPort(address)
			if err != nil {
				return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
			}
			if !f.allowAddr(ap.Addr().Unmap()) {
				return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
			}
			return nil
		},
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// a proxy would be dialed instead of the target, bypassing the check
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	f.client = &http.Client{
		Timeout:   timeout,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if !f.allowURL(req.URL.String()) {
				return fmt.Errorf("%w: redirect to %s", ErrBlockedAddress, req.URL.Redacted())
			}
			if len(via) >= 5 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return f
}

// PublicAddr reports whether addr is globally routable: not loopback,
// private, link-local, carrier-grade NAT, multicast or unspecified.
func PublicAddr(addr netip.Addr) bool {
	if !addr.IsValid() || addr.IsLoopback() || addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() || addr.IsMulticast() || addr.IsUnspecified() {
		return false
	}
	return !sharedAddressSpace.Contains(addr)
}

var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (Metadata, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Metadata{}, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return Metadata{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Metadata{}, fmt.Errorf("preview: unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "html") {
		return Metadata{}, nil
	}

	md := Parse(io.LimitReader(resp.Body, maxBodyBytes))
	md.Image = resolve(resp.Request.URL, md.Image)
	return md, nil
}

// Parse extracts metadata from an HTML document. It stops at </head>.
func Parse(r io.Reader) Metadata {
	var (
		md      Metadata
		ogTitle string
		ogDesc  string
		inTitle bool
	)

	z := html.NewTokenizer(r)
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return finish(md, ogTitle, ogDesc)
		case html.EndTagToken:
			name, _ := z.TagName()
			switch atom.Lookup(name) {
			case atom.Title:
				inTitle = false
			case atom.Head:
				return finish(md, ogTitle, ogDesc)
			}
		case html.TextToken:
			if inTitle && md.Title == "" {
				md.Title = strings.TrimSpace(string(z.Text()))
			}
		case html.StartTagToken, html.SelfClosingTagToken:
			name, hasAttr := z.TagName()
			switch atom.Lookup(name) {
			case atom.Title:
				inTitle = tt == html.StartTagToken
			case atom.Body:
				return finish(md, ogTitle, ogDesc)
			case atom.Meta:
				if !hasAttr {
					continue
				}
				key, content := metaAttrs(z)
				switch key {
				case "og:title":
					ogTitle = content
				case "og:description":
					ogDesc = content
				case "og:image", "og:image:url":
					if md.Image == "" {
						md.Image = content
					}
				case "description":
					if md.Description == "" {
						md.Description = content
					}
				}
			}
		}
	}
}

func finish(md Metadata, ogTitle, ogDesc string) Metadata {
	if ogTitle != "" {
		md.Title = ogTitle
	}
	if ogDesc != "" {
		md.Description = ogDesc
	}
	return md
}

// metaAttrs returns the property/name of a <meta> tag and its content.
func metaAttrs(z *html.Tokenizer) (key, content string) {
	for {
		k, v, more := z.TagAttr()
		switch strings.ToLower(string(k)) {
		case "property", "name":
			if key == "" {
				key = strings.ToLower(strings.TrimSpace(string(v)))
			}
		case "content":
			content = strings.TrimSpace(string(v))
		}
		if !more {
			return key, content
		}
	}
}

func resolve(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
