package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/rezonia/pohoda-xml/internal/model"
)

const (
	// DefaultTimeout bounds one feed request
	DefaultTimeout = 30 * time.Second
	// HashParam is the query parameter carrying the feed token
	HashParam = "hash"
	// maxBodySize caps the feed body read into memory
	maxBodySize = 64 << 20
)

// Client fetches the product feed over HTTP
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures the client
type ClientOption func(*clientConfig)

type clientConfig struct {
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
}

// WithTimeout sets the HTTP timeout
func WithTimeout(timeout time.Duration) ClientOption {
	return func(cfg *clientConfig) {
		cfg.timeout = timeout
	}
}

// WithHTTPClient replaces the HTTP client. Its timeout is kept as is.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(cfg *clientConfig) {
		cfg.httpClient = c
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) ClientOption {
	return func(cfg *clientConfig) {
		cfg.logger = l
	}
}

// NewClient creates a new feed client
func NewClient(opts ...ClientOption) *Client {
	cfg := &clientConfig{
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	httpClient := cfg.httpClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.timeout}
	}

	return &Client{
		httpClient: httpClient,
		logger:     cfg.logger,
	}
}

// FetchProducts downloads and parses the feed. Every failure, including a
// timeout, a non-2xx status and an unreadable body, is a
// *model.FeedUnavailableError.
func (c *Client) FetchProducts(ctx context.Context, feedURL, hash string) (*Catalog, error) {
	reqURL, err := buildURL(feedURL, hash)
	if err != nil {
		return nil, model.NewFeedUnavailableError(feedURL, 0, "invalid feed URL", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, model.NewFeedUnavailableError(feedURL, 0, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/xml, text/xml")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		msg := "request failed"
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			msg = "request timed out"
		}
		return nil, model.NewFeedUnavailableError(feedURL, 0, msg, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, model.NewFeedUnavailableError(feedURL, resp.StatusCode, "unexpected status", nil)
	}

	products, skipped, err := Parse(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, model.NewFeedUnavailableError(feedURL, resp.StatusCode, "malformed feed body", err)
	}

	for _, s := range skipped {
		c.logger.WarnContext(ctx, "feed product skipped", "code", s.Code, "reason", s.Reason)
	}
	c.logger.InfoContext(ctx, "product feed fetched",
		"products", len(products),
		"skipped", len(skipped),
		"duration", time.Since(start),
	)

	return NewCatalog(products), nil
}

func buildURL(feedURL, hash string) (string, error) {
	if feedURL == "" {
		return "", errors.New("feed URL is not configured")
	}
	u, err := url.Parse(feedURL)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set(HashParam, hash)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
