// Package storefront is the HTTP client for the storefront REST API.
package storefront

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// maxBodySize caps how much of a response body is read.
const maxBodySize = 4 << 20

// Config holds non-dependency configuration for the Client.
type Config struct {
	// BaseURL is the backend origin, e.g. https://shop.example.com.
	BaseURL string
	// Timeout bounds a single request. Zero disables the timeout.
	Timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTransport sets the RoundTripper used for requests. It is wrapped with
// otelhttp instrumentation.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.transport = rt }
}

// WithHTTPClient replaces the underlying http.Client as is.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// Client issues authenticated JSON requests against the storefront API.
// Authentication is attached by the transport (see roundtrip.BearerToken).
type Client struct {
	http      *http.Client
	transport http.RoundTripper
	baseURL   *url.URL
}

// New creates a Client for cfg.BaseURL.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/"))
	if err != nil {
		return nil, errors.Wrap(err, "parse base URL")
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base URL %q must be absolute", cfg.BaseURL)
	}

	c := &Client{baseURL: u}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		rt := c.transport
		if rt == nil {
			rt = http.DefaultTransport
		}
		c.http = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(rt),
		}
	}
	return c, nil
}

// BaseURL returns the backend origin.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Ping checks that the backend answers HTTP at all. Any response below 500
// counts, since unauthenticated probes are expected to be rejected.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("/api/cart"), nil)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "ping")
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))

	if resp.StatusCode >= http.StatusInternalServerError {
		return errors.Errorf("ping: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) url(path string) string {
	return c.baseURL.String() + path
}

// do sends a JSON request and decodes a JSON response into out. in and out
// may be nil. op names the operation in errors.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "%s: encode request", op)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return errors.Wrapf(err, "%s: create request", op)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, op)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return errors.Wrapf(err, "%s: read response", op)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newHTTPError(op, resp.StatusCode, data)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if !isJSON(resp.Header.Get("Content-Type")) {
		return errors.Errorf("%s: unexpected content type %q", op, resp.Header.Get("Content-Type"))
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrapf(err, "%s: decode response", op)
	}
	return nil
}

func isJSON(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
