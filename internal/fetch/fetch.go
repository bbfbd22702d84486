// Package fetch implements the outbound document fetcher: a minimal HTTP/1.1
// GET client over plaintext or TLS transports, redirect following, response
// classification by Content-Type, and incremental bounded-memory extraction
// of the HTML <title> element.
package fetch

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/apohrebniak/paket/internal/common/urlutil"
)

const (
	// maxRedirects bounds redirect following per top-level fetch.
	maxRedirects = 5

	// userAgent is the fixed product token sent with every request.
	userAgent = "paket"

	acceptHeader = "text/html,application/xhtml+xml,application/pdf,*/*;q=0"
)

// Config controls optional client behavior.
type Config struct {
	// Trust overrides the process default trust configuration. Nil falls
	// back to the default on the first HTTPS fetch.
	Trust *TrustConfig

	// BlockPrivateHosts resolves each host before dialing and refuses
	// targets whose addresses fall in private or reserved ranges.
	BlockPrivateHosts bool
}

// Client fetches URLs and classifies the resulting documents. It is safe for
// concurrent use; each fetch owns its transport and buffer end-to-end.
type Client struct {
	trust        *TrustConfig
	blockPrivate bool
	logger       *zap.Logger
}

// NewClient creates a fetch client.
func NewClient(cfg Config, logger *zap.Logger) *Client {
	return &Client{trust: cfg.Trust, blockPrivate: cfg.BlockPrivateHosts, logger: logger}
}

// Fetch retrieves rawurl, following up to maxRedirects redirect hops, and
// returns the classified document. The context deadline covers connection
// setup and all reads; cancelling it tears down the current connection.
func (c *Client) Fetch(ctx context.Context, rawurl string) (*Document, error) {
	u, err := url.Parse(rawurl)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	// maxRedirects bounds the number of Location hops followed, so the worst
	// case is the initial attempt plus five redirected ones.
	for hop := 0; hop <= maxRedirects; hop++ {
		doc, next, err := c.fetchOnce(ctx, u)
		if err != nil {
			return nil, err
		}
		if next != nil {
			c.logger.Debug("Following redirect",
				zap.String("from", u.String()),
				zap.String("to", next.String()),
				zap.Int("hop", hop+1))
			u = next
			continue
		}
		return doc, nil
	}

	return nil, fmt.Errorf("%w: gave up after %d hops at %s", ErrTooManyRedirects, maxRedirects, u)
}

// fetchOnce performs a single hop: connect, send the request, classify the
// response. Exactly one of doc and next is non-nil on success.
func (c *Client) fetchOnce(ctx context.Context, u *url.URL) (doc *Document, next *url.URL, err error) {
	var useTLS bool
	switch u.Scheme {
	case "http":
	case "https":
		useTLS = true
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, nil, fmt.Errorf("%w: missing host in %s", ErrInvalidURL, u)
	}

	port := u.Port()
	if port == "" {
		if useTLS {
			port = "443"
		} else {
			port = "80"
		}
	}

	t, err := c.connect(ctx, host, port, useTLS)
	if err != nil {
		return nil, nil, err
	}

	return httpGet(t, u)
}

// connect dials the host, optionally pinning the connection to an address
// that was validated against private ranges so a second DNS resolution
// cannot swap in a different one.
func (c *Client) connect(ctx context.Context, host, port string, useTLS bool) (*Transport, error) {
	if !c.blockPrivate {
		return Connect(ctx, host, port, useTLS, c.trust)
	}

	ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve %s: %v", ErrConnect, host, err)
	}
	for _, ip := range ips {
		if err := urlutil.ValidateResolvedIP(ip); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrConnect, host, err)
		}
	}

	return connectAddr(ctx, ips[0].String(), port, host, useTLS, c.trust)
}

type expectedHeader uint8

const (
	expectContentType expectedHeader = iota
	expectLocation
)

// httpGet takes ownership of the transport: it either hands it to an HTML
// document's extractor or closes it before returning.
func httpGet(t *Transport, u *url.URL) (*Document, *url.URL, error) {
	req := make([]byte, 0, bufferSize)
	req = append(req, "GET "...)
	req = append(req, requestTarget(u)...)
	req = append(req, " HTTP/1.1\r\nHost: "...)
	req = append(req, u.Hostname()...)
	req = append(req, "\r\nConnection: close\r\nAccept-Encoding: \r\nAccept: "+acceptHeader+"\r\nUser-Agent: "+userAgent+"\r\n\r\n"...)

	if err := t.writeAll(req); err != nil {
		t.Close()
		return nil, nil, err
	}

	// The request buffer is done; reuse its allocation for reading.
	lines := newLineReader(t, req[:0])

	statusLine, err := lines.nextLine()
	if err != nil {
		t.Close()
		return nil, nil, err
	}

	proto, rest, _ := strings.Cut(statusLine, " ")
	if proto != "HTTP/1.1" {
		t.Close()
		return nil, nil, fmt.Errorf("%w: expected HTTP/1.1, got %q", ErrProtocol, proto)
	}

	status, _, _ := strings.Cut(rest, " ")
	if status == "" {
		t.Close()
		return nil, nil, fmt.Errorf("%w: status line %q has no status code", ErrProtocol, statusLine)
	}

	var expect expectedHeader
	switch status {
	case "200", "203":
		expect = expectContentType
	case "300", "301", "302", "303", "307", "308":
		expect = expectLocation
	default:
		t.Close()
		return nil, nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, status)
	}

	for {
		line, err := lines.nextLine()
		if err != nil {
			t.Close()
			return nil, nil, err
		}
		if line == "" {
			t.Close()
			return nil, nil, fmt.Errorf("%w: headers ended before %s", ErrMissingHeader, expect.name())
		}

		// Header name matching is a narrow exact check against the two
		// spellings seen on the wire, not a general case-fold.
		name, value, wellFormed := strings.Cut(line, ": ")

		var found bool
		switch expect {
		case expectContentType:
			found = name == "Content-Type" || name == "content-type"
		case expectLocation:
			found = name == "Location" || name == "location"
		}
		if !found {
			continue
		}
		if !wellFormed {
			t.Close()
			return nil, nil, fmt.Errorf("%w: malformed header %q", ErrProtocol, line)
		}

		if expect == expectLocation {
			t.Close()
			loc, err := url.Parse(value)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %q: %v", ErrInvalidRedirect, value, err)
			}
			// Relative targets resolve against the current hop's URL.
			return nil, u.ResolveReference(loc), nil
		}

		mediaType := value
		if i := strings.IndexByte(value, ';'); i >= 0 {
			mediaType = value[:i]
		}

		switch mediaType {
		case "text/html", "TEXT/HTML", "application/xhtml+xml", "APPLICATION/XHTML+XML":
			body := NewTitleExtractor(t, lines.rest())
			return &Document{Kind: DocHTML, URL: u, Body: body}, nil, nil
		case "application/pdf", "APPLICATION/PDF":
			t.Close()
			return &Document{Kind: DocPDF, URL: u}, nil, nil
		default:
			t.Close()
			return &Document{Kind: DocUnsupported, URL: u}, nil, nil
		}
	}
}

func (e expectedHeader) name() string {
	if e == expectLocation {
		return "Location"
	}
	return "Content-Type"
}

func requestTarget(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		return path + "?" + u.RawQuery
	}
	return path
}
