// Package fetcher performs the upstream HTTP calls on behalf of the
// resolver. It owns the bounded timeout, per-host rate limiting, and
// credential application; it knows nothing about protocols or caching.
package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/geocontext/internal/protocol"
)

// Options configures the HTTP client.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	// RateLimits throttles requests per upstream host. Hosts without an
	// entry are not throttled.
	RateLimits map[string]*rate.Limiter
}

// Client sends resolved protocol requests over HTTP.
type Client struct {
	client   *http.Client
	opts     Options
	limiters map[string]*rate.Limiter
}

// New creates a Client with the given options.
func New(opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "geocontext/1.0"
	}
	limiters := make(map[string]*rate.Limiter)
	for host, limiter := range opts.RateLimits {
		limiters[host] = limiter
	}
	transport := &http.Transport{
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &Client{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: limiters,
	}
}

// Send performs the GET and returns the body plus the final URL after
// redirects, which the resolver records as provenance.
func (c *Client) Send(ctx context.Context, req *protocol.Request) ([]byte, string, error) {
	u, err := url.Parse(req.URL)
	if err != nil {
		return nil, "", eris.Wrapf(err, "fetcher: parse url %q", req.URL)
	}
	if limiter, ok := c.limiters[u.Host]; ok {
		if err := limiter.Wait(ctx); err != nil {
			return nil, "", eris.Wrap(err, "fetcher: rate limit")
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, "", eris.Wrap(err, "fetcher: build request")
	}
	httpReq.Header.Set("User-Agent", c.opts.UserAgent)
	if req.Username != "" {
		httpReq.SetBasicAuth(req.Username, req.Password)
	}
	if req.APIKey != "" {
		httpReq.Header.Set("X-Api-Key", req.APIKey)
	}

	start := time.Now()
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, "", eris.Wrapf(err, "fetcher: GET %s", req.URL)
	}
	defer resp.Body.Close() //nolint:errcheck

	resolvedURL := resp.Request.URL.String()
	if resp.StatusCode != http.StatusOK {
		return nil, resolvedURL, eris.Errorf("fetcher: GET %s returned status %d", resolvedURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resolvedURL, eris.Wrapf(err, "fetcher: read body from %s", resolvedURL)
	}

	zap.L().Debug("upstream fetch",
		zap.String("host", u.Host),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return body, resolvedURL, nil
}
