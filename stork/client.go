// Package stork is the oracle-service boundary: signed price fetches,
// validation submissions, and user stats, all over bearer-authenticated
// HTTP with the service's required browser-extension client identity.
package stork

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	pricesPath      = "/v1/stork_signed_prices"
	validationsPath = "/v1/stork_signed_prices/validations"
	profilePath     = "/v1/me"
)

// Options configures a Client. Zero values fall back to the hosted
// service's defaults.
type Options struct {
	BaseURL   string
	Origin    string
	UserAgent string
	Timeout   time.Duration
	Proxies   []string
}

// Client talks to the oracle service. A single client may serve
// concurrent submissions; the proxy rotation cursor is the only mutable
// state and is guarded by its own lock.
type Client struct {
	baseURL   string
	origin    string
	userAgent string
	base      *http.Client
	log       *zap.SugaredLogger

	proxyMu  sync.Mutex
	proxies  []string
	proxyIdx int
}

func NewClient(opts Options, log *zap.SugaredLogger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://app-api.jp.stork-oracle.network"
	}
	if opts.Origin == "" {
		opts.Origin = "chrome-extension://knnliglhgkmlblppdejchidfihjnockl"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/133.0.0.0 Safari/537.36"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Client{
		baseURL:   opts.BaseURL,
		origin:    opts.Origin,
		userAgent: opts.UserAgent,
		base:      &http.Client{Timeout: opts.Timeout},
		log:       log,
		proxies:   opts.Proxies,
	}
}

// NextProxy advances the rotation cursor and returns the proxy to use
// for the next outbound call, or "" when the list is empty.
func (c *Client) NextProxy() string {
	c.proxyMu.Lock()
	defer c.proxyMu.Unlock()
	if len(c.proxies) == 0 {
		return ""
	}
	p := c.proxies[c.proxyIdx]
	c.proxyIdx = (c.proxyIdx + 1) % len(c.proxies)
	return p
}

// httpClientFor returns the client for one call. Proxied calls get a
// dedicated transport; proxyless calls share the base client.
func (c *Client) httpClientFor(proxy string) *http.Client {
	if proxy == "" {
		return c.base
	}
	proxyURL, err := url.Parse(proxy)
	if err != nil {
		c.log.Warnw("Ignoring unparseable proxy", "proxy", proxy, "error", err)
		return c.base
	}
	return &http.Client{
		Timeout:   c.base.Timeout,
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
	}
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", c.origin)
	req.Header.Set("User-Agent", c.userAgent)
	return req, nil
}

// drainBody reads a bounded error snippet for log lines.
func drainBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, 512))
	return string(b)
}
