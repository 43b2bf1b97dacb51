// Package harvest collects Articles from the platform's JSON endpoints.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	tls "github.com/refraction-networking/utls"
	"github.com/tidwall/gjson"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to http/1.1
// only. Computed once at init time and reused for every connection; when the
// spec cannot be built, connections fall back to standard TLS instead of
// failing one by one with an unexplained preset error.
var (
	chromeH1Spec tls.ClientHelloSpec
	chromeSpecOK bool
)

func init() {
	spec, err := buildChromeH1Spec()
	if err != nil {
		slog.Warn("chrome TLS fingerprint unavailable, falling back to standard TLS", "error", err)
		return
	}
	chromeH1Spec = spec
	chromeSpecOK = true
}

// buildChromeH1Spec derives the Chrome hello and replaces h2 with http/1.1
// only in the ALPN extension, so the server never negotiates HTTP/2 (which
// Go's http.Transport cannot handle over a utls connection).
func buildChromeH1Spec() (tls.ClientHelloSpec, error) {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return tls.ClientHelloSpec{}, err
	}
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	return spec, nil
}

// ErrInvalidJSON reports a 2xx response whose body did not parse as JSON.
// The origin answered, so callers may still try their other fallbacks; only
// genuine transport failures mean it is unreachable.
var ErrInvalidJSON = errors.New("harvest: invalid JSON")

// StatusError reports a non-2xx response. The enricher uses it to tell a
// reachable-but-unhelpful origin apart from a network-level failure.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("harvest: HTTP %d for %s", e.StatusCode, e.URL)
}

// Client fetches platform JSON and HTML with a Chrome TLS fingerprint,
// carrying the ambient headers (cookies, UA) of the hosting browser context.
// It is safe for concurrent use.
type Client struct {
	httpClient *http.Client

	mu      sync.RWMutex
	ambient map[string]string
}

// NewClient creates a Client with a Chrome-like TLS fingerprint. ALPN is
// locked to http/1.1 to avoid the HTTP/2 framing mismatch that occurs when
// utls negotiates h2 but Go's http.Transport only speaks h1.
func NewClient() *Client {
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			if !chromeSpecOK {
				tlsConn := tls.Client(conn, &tls.Config{ServerName: host})
				if err := tlsConn.HandshakeContext(ctx); err != nil {
					conn.Close()
					return nil, err
				}
				return tlsConn, nil
			}
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("harvest: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		ambient: map[string]string{},
	}
}

// SetAmbientHeaders replaces the headers applied to every request, typically
// the Cookie header exported from the live browser page so API calls are
// authenticated exactly like the page itself.
func (c *Client) SetAmbientHeaders(headers map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ambient = make(map[string]string, len(headers))
	for k, v := range headers {
		c.ambient[k] = v
	}
}

// RequestContext bounds ctx by timeout when positive; a zero timeout leaves
// ctx unbounded. Callers release the cancel once the request is done.
func RequestContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// GetJSON fetches url and parses the body as JSON. A non-2xx status yields a
// *StatusError; an unparsable body yields an error wrapping ErrInvalidJSON.
func (c *Client) GetJSON(ctx context.Context, url string) (gjson.Result, error) {
	body, err := c.get(ctx, url, "application/json")
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w from %s", ErrInvalidJSON, url)
	}
	return gjson.ParseBytes(body), nil
}

// GetHTML fetches url and returns the body as a string. A non-2xx status
// yields a *StatusError.
func (c *Client) GetHTML(ctx context.Context, url string) (string, error) {
	body, err := c.get(ctx, url, "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("harvest: build request: %w", err)
	}
	req.Header.Set("User-Agent", chromeUA)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "ja,en-US;q=0.9,en;q=0.8")
	req.Header.Set("Accept-Encoding", "identity")

	c.mu.RLock()
	for k, v := range c.ambient {
		req.Header.Set(k, v)
	}
	c.mu.RUnlock()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("harvest: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	// 10 MB cap to prevent unbounded memory use.
	const maxBody = 10 << 20
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("harvest: read body: %w", err)
	}
	return body, nil
}
