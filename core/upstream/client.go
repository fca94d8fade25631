package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/oppwatch/gateway/core/logger"
)

// maxResponseBytes bounds how much of an upstream body is read.
const maxResponseBytes = 10 << 20 // 10MB

// Config holds upstream client configuration with environment variable support.
type Config struct {
	BaseURL string `env:"UPSTREAM_BASE_URL,required"`
	APIKey  string `env:"UPSTREAM_API_KEY"`

	ConnectTimeout time.Duration `env:"UPSTREAM_CONNECT_TIMEOUT" envDefault:"5s"`
	RequestTimeout time.Duration `env:"UPSTREAM_REQUEST_TIMEOUT" envDefault:"15s"`

	// MaxRetries bounds additional attempts for transient failures. The
	// budget is fixed so retries never amplify load on a struggling or
	// quota-constrained upstream.
	MaxRetries    uint64        `env:"UPSTREAM_MAX_RETRIES" envDefault:"2"`
	RetryInterval time.Duration `env:"UPSTREAM_RETRY_INTERVAL" envDefault:"200ms"`
}

// Caller is the gateway-facing contract of the upstream client.
type Caller interface {
	Get(ctx context.Context, path string, params url.Values) ([]byte, error)
}

// Client calls the upstream listings API.
type Client struct {
	http          *http.Client
	baseURL       *url.URL
	apiKey        string
	maxRetries    uint64
	retryInterval time.Duration
	log           *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Intended for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithLogger sets the logger for retry attempts.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates an upstream client from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid upstream base URL %q", cfg.BaseURL)
	}

	c := &Client{
		http: &http.Client{
			Timeout: cfg.RequestTimeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
				TLSHandshakeTimeout: cfg.ConnectTimeout,
				MaxIdleConnsPerHost: 16,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL:       base,
		apiKey:        cfg.APIKey,
		maxRetries:    cfg.MaxRetries,
		retryInterval: cfg.RetryInterval,
		log:           logger.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get performs a single upstream call against path with params. Transient
// failures are retried with exponential backoff up to the configured budget;
// every other class returns immediately. The returned error, when non-nil,
// is always a classified *Error.
func (c *Client) Get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL.JoinPath(path)
	u.RawQuery = params.Encode()

	var payload []byte
	attempt := 0
	operation := func() error {
		attempt++
		body, err := c.do(ctx, u.String())
		if err != nil {
			if IsTransient(err) {
				c.log.WarnContext(ctx, "transient upstream failure",
					logger.Component("upstream"),
					logger.RetryCount(attempt-1),
					logger.Error(err))
				return err
			}
			return backoff.Permanent(err)
		}
		payload = body
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.retryInterval
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, c.maxRetries), ctx))
	if err != nil {
		var ue *Error
		if errors.As(err, &ue) {
			return nil, ue
		}
		// Context cancellation surfaced by the backoff wrapper.
		return nil, &Error{Class: ClassTransient, Err: err}
	}
	return payload, nil
}

func (c *Client) do(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{Class: ClassLocal, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Timeouts, DNS failures, refused connections.
		return nil, &Error{Class: ClassTransient, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &Error{Class: ClassTransient, StatusCode: resp.StatusCode, Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &Error{
			Class:      ClassAuth,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("credentials rejected with status %d", resp.StatusCode),
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{
			Class:      ClassRateLimited,
			StatusCode: resp.StatusCode,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Err:        fmt.Errorf("upstream quota exhausted"),
		}
	case resp.StatusCode >= 500:
		return nil, &Error{
			Class:      ClassTransient,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("server error status %d", resp.StatusCode),
		}
	case resp.StatusCode != http.StatusOK:
		return nil, &Error{
			Class:      ClassLocal,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	if !json.Valid(body) {
		return nil, &Error{
			Class:      ClassLocal,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("response body is not valid JSON"),
		}
	}
	return body, nil
}

// parseRetryAfter handles both delta-seconds and HTTP-date forms.
// A missing or unparseable header yields a conservative default.
func parseRetryAfter(header string) time.Duration {
	const defaultRetryAfter = 30 * time.Second

	if header == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(header); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
		return 0
	}
	return defaultRetryAfter
}
