// Package fetch provides the HTTP client used for all page and image requests.
//
// The client wraps net/http with:
// - Configurable timeouts and a custom User-Agent
// - Retry with exponential backoff for transient failures
// - A politeness delay between requests to the scraped site
// - Structured logging and body size limits
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"

	scrapeerrors "bookscrape/internal/errors"
	"bookscrape/internal/logging"

	"go.uber.org/zap"
)

// DefaultUserAgent identifies the scraper to the site.
const DefaultUserAgent = "bookscrape/1.0 (+https://books.toscrape.com)"

// Config holds HTTP client configuration.
type Config struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration

	// UserAgent is sent on every request.
	UserAgent string

	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int

	// RetryBackoff is the initial backoff duration between retries.
	RetryBackoff time.Duration

	// MaxBackoff is the maximum backoff duration.
	MaxBackoff time.Duration

	// MaxBodySize caps how many bytes of a response body are read.
	MaxBodySize int64

	// Delay is the politeness pause enforced between consecutive requests.
	// Zero disables it.
	Delay time.Duration

	// Logger is the logger instance.
	Logger *zap.Logger
}

// DefaultConfig returns the default fetch configuration.
func DefaultConfig() *Config {
	return &Config{
		Timeout:      30 * time.Second,
		UserAgent:    DefaultUserAgent,
		MaxRetries:   3,
		RetryBackoff: 100 * time.Millisecond,
		MaxBackoff:   5 * time.Second,
		MaxBodySize:  10 * 1024 * 1024, // 10MB
		Delay:        0,
		Logger:       logging.L(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return scrapeerrors.NewConfigValidationError("Timeout", c.Timeout, "must be positive")
	}
	if c.MaxRetries < 0 {
		return scrapeerrors.NewConfigValidationError("MaxRetries", c.MaxRetries, "must be non-negative")
	}
	if c.RetryBackoff <= 0 {
		return scrapeerrors.NewConfigValidationError("RetryBackoff", c.RetryBackoff, "must be positive")
	}
	if c.MaxBodySize <= 0 {
		return scrapeerrors.NewConfigValidationError("MaxBodySize", c.MaxBodySize, "must be positive")
	}
	if c.Delay < 0 {
		return scrapeerrors.NewConfigValidationError("Delay", c.Delay, "must be non-negative")
	}
	return nil
}

// Client fetches pages with retry and rate limiting.
type Client struct {
	config *Config
	http   *http.Client
	logger *zap.Logger

	mu          sync.Mutex
	nextAllowed time.Time
}

// NewClient creates a new fetch client with the given configuration.
func NewClient(cfg *Config) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.L()
	}

	return &Client{
		config: cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With(zap.String("component", "fetch_client")),
	}, nil
}

// Get fetches the URL and returns the response body.
// Transport errors, HTTP 429 and 5xx are retried with exponential backoff;
// other non-2xx statuses fail immediately.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	var body []byte
	err := c.withRetry(ctx, url, func() error {
		var err error
		body, err = c.doGet(ctx, url)
		return err
	})
	return body, err
}

// doGet performs a single GET request.
func (c *Client) doGet(ctx context.Context, url string) ([]byte, error) {
	if err := c.waitTurn(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, scrapeerrors.NewFetchRequestError(url, err)
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,image/*")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if os.IsTimeout(err) {
			return nil, scrapeerrors.NewFetchTimeoutError(url, c.config.Timeout.Seconds())
		}
		return nil, scrapeerrors.NewFetchRequestError(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		// Drain a little so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, scrapeerrors.NewFetchStatusError(url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.config.MaxBodySize))
	if err != nil {
		return nil, scrapeerrors.NewFetchRequestError(url, err)
	}

	c.logger.Debug("page_fetched",
		logging.URL(url),
		zap.Int("status", resp.StatusCode),
		zap.Int("bytes", len(body)),
		logging.Duration(time.Since(start)),
	)

	return body, nil
}

// waitTurn enforces the politeness delay between consecutive requests.
func (c *Client) waitTurn(ctx context.Context) error {
	if c.config.Delay <= 0 {
		return nil
	}

	c.mu.Lock()
	now := time.Now()
	wait := c.nextAllowed.Sub(now)
	if wait < 0 {
		wait = 0
	}
	c.nextAllowed = now.Add(wait + c.config.Delay)
	c.mu.Unlock()

	if wait == 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// withRetry executes a function with retry logic.
func (c *Client) withRetry(ctx context.Context, url string, fn func() error) error {
	var lastErr error
	backoff := c.config.RetryBackoff

	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying_fetch",
				logging.URL(url),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}

			// Exponential backoff with cap
			backoff *= 2
			if backoff > c.config.MaxBackoff {
				backoff = c.config.MaxBackoff
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if !scrapeerrors.IsRetryableError(err) {
			c.logger.Debug("non_retryable_fetch_error",
				logging.URL(url),
				zap.Error(err),
			)
			return err
		}

		c.logger.Warn("fetch_failed_retrying",
			logging.URL(url),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}

	return fmt.Errorf("fetch failed after %d attempts: %w", c.config.MaxRetries+1, lastErr)
}
