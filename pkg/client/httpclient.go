package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v3"
)

const (
	// DefaultBaseURL is the production Odos API endpoint
	DefaultBaseURL = "https://api.odos.xyz"

	DefaultTimeout       = 30 * time.Second
	DefaultMaxRetries    = 3
	DefaultRetryInterval = 500 * time.Millisecond
)

// ClientConfig controls the HTTP transport behavior
type ClientConfig struct {
	BaseURL       string
	Timeout       time.Duration
	MaxRetries    uint64
	RetryInterval time.Duration
}

// DefaultConfig returns the configuration used by New
func DefaultConfig() ClientConfig {
	return ClientConfig{
		BaseURL:       DefaultBaseURL,
		Timeout:       DefaultTimeout,
		MaxRetries:    DefaultMaxRetries,
		RetryInterval: DefaultRetryInterval,
	}
}

// HTTPClient wraps a single http.Client and retries transient failures.
// It holds no per-call state and is safe for concurrent use.
type HTTPClient struct {
	client *http.Client
	config ClientConfig
}

// NewHTTPClient creates an HTTP client with the default configuration
func NewHTTPClient() (*HTTPClient, error) {
	return NewHTTPClientWithConfig(DefaultConfig())
}

// NewHTTPClientWithConfig creates an HTTP client with the given configuration
func NewHTTPClientWithConfig(config ClientConfig) (*HTTPClient, error) {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", config.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL %q: scheme must be http or https", config.BaseURL)
	}

	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = DefaultRetryInterval
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}, nil
}

// Config returns the client configuration
func (c *HTTPClient) Config() ClientConfig {
	return c.config
}

// endpoint joins a path onto the configured base URL
func (c *HTTPClient) endpoint(path string) string {
	return c.config.BaseURL + path
}

// ExecuteWithRetry sends the request produced by build, retrying network
// failures and 5xx responses with exponential backoff. The request builder
// is invoked once per attempt so request bodies are fresh on every retry.
// Responses below 500, and the last 5xx response once retries are exhausted,
// are returned to the caller undrained; status branching is the caller's
// judgment.
func (c *HTTPClient) ExecuteWithRetry(ctx context.Context, build func() (*http.Request, error)) (*http.Response, error) {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.config.RetryInterval
	retrier := backoff.WithMaxRetries(policy, c.config.MaxRetries)
	retrier.Reset()

	for {
		req, err := build()
		if err != nil {
			return nil, fmt.Errorf("failed to build request: %w", err)
		}

		resp, doErr := c.client.Do(req.WithContext(ctx))
		if doErr == nil && resp.StatusCode < http.StatusInternalServerError {
			return resp, nil
		}

		wait := retrier.NextBackOff()
		if wait == backoff.Stop {
			if doErr != nil {
				return nil, fmt.Errorf("request failed after retries: %w", doErr)
			}
			return resp, nil
		}

		if resp != nil {
			// Drain so the connection can be reused by the next attempt
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
