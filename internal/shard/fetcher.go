package shard

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"syscall"
	"time"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/model"
	"github.com/go-shiori/go-readability"
)

const (
	maxBodySize  = 10 * 1024 * 1024
	maxRedirects = 5
	dialTimeout  = 10 * time.Second
)

// carrier-grade NAT range, not covered by netip.Addr.IsPrivate
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// Fetcher downloads an article and extracts its readable text. Only public addresses are dialed,
// including on redirects.
type Fetcher struct {
	client *http.Client
}

func NewFetcher(timeout time.Duration) *Fetcher {
	return newFetcher(timeout, publicAddr)
}

func newFetcher(timeout time.Duration, allow func(netip.Addr) bool) *Fetcher {
	dialer := &net.Dialer{
		Timeout: dialTimeout,
		Control: func(_, address string, _ syscall.RawConn) error {
			host, _, err := net.SplitHostPort(address)
			if err != nil {
				return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
			}
			addr, err := netip.ParseAddr(host)
			if err != nil || !allow(addr.Unmap()) {
				return fmt.Errorf("%w: %s", ErrBlockedAddress, host)
			}
			return nil
		},
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	// a proxy would be dialed instead of the target and hide its address
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	return &Fetcher{client: &http.Client{
		Timeout:       timeout,
		Transport:     transport,
		CheckRedirect: checkRedirect,
	}}
}

func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("%w: redirect to %q", ErrInvalidURL, req.URL.String())
	}
	return nil
}

func publicAddr(a netip.Addr) bool {
	return a.IsValid() &&
		!a.IsLoopback() &&
		!a.IsPrivate() &&
		!a.IsUnspecified() &&
		!a.IsLinkLocalUnicast() &&
		!a.IsLinkLocalMulticast() &&
		!a.IsInterfaceLocalMulticast() &&
		!a.IsMulticast() &&
		!sharedAddressSpace.Contains(a)
}

func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (Shard, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Shard{}, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Shard{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; museum-shards/1.0)")
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return Shard{}, fmt.Errorf("fetch url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Shard{}, fmt.Errorf("fetch url: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize+1))
	if err != nil {
		return Shard{}, fmt.Errorf("read body: %w", err)
	}
	if len(body) > maxBodySize {
		return Shard{}, fmt.Errorf("body exceeds %d bytes", maxBodySize)
	}

	// readers would otherwise get the furigana glued to the base text
	body = []byte(model.StripPronunciation(string(body)))

	article, err := readability.FromReader(bytes.NewReader(body), u)
	if err != nil {
		return Shard{}, fmt.Errorf("extract article: %w", err)
	}

	text := Clip(article.TextContent)
	if text == "" {
		return Shard{}, ErrEmpty
	}

	return Shard{
		URL:      u.String(),
		Title:    article.Title,
		Byline:   article.Byline,
		SiteName: article.SiteName,
		Text:     text,
	}, nil
}
