package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default configuration values.
const (
	DefaultTimeout      = 8 * time.Second
	DefaultMaxBodyBytes = 16 << 20
	DefaultUserAgent    = "solana-token-scanner/1.0"
)

var (
	// ErrRateLimited is returned when the provider answers 429.
	ErrRateLimited = errors.New("rate limited (429)")

	// ErrBodyTooLarge is returned when a response exceeds the body cap.
	ErrBodyTooLarge = errors.New("response body exceeds limit")
)

// Fetcher performs a single GET request and returns the response body.
type Fetcher interface {
	Get(ctx context.Context, url string, header http.Header) ([]byte, error)
}

// HTTPClient implements Fetcher. It never retries: polling connectors own
// their schedule.
type HTTPClient struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithTimeout sets HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// WithHTTPClient sets custom http.Client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *HTTPClient) {
		c.client = client
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(c *HTTPClient) {
		c.userAgent = ua
	}
}

// WithMaxBodyBytes caps the size of a response body.
func WithMaxBodyBytes(n int64) ClientOption {
	return func(c *HTTPClient) {
		c.maxBodyBytes = n
	}
}

// NewHTTPClient creates a new polling HTTP client.
func NewHTTPClient(opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		client:       &http.Client{Timeout: DefaultTimeout},
		userAgent:    DefaultUserAgent,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues one GET request.
func (c *HTTPClient) Get(ctx context.Context, url string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("%w: more than %d bytes from %s", ErrBodyTooLarge, c.maxBodyBytes, url)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 256))
	}

	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
