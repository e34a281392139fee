package render

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// HTTPClientConfig configures the HTTP client.
type HTTPClientConfig struct {
	// Timeout is the request timeout. Rendering a long paper can take a while.
	Timeout time.Duration

	// RateLimit is the maximum requests per second.
	RateLimit float64

	// BurstSize is the maximum burst of requests allowed.
	BurstSize int

	// MaxRetries is the maximum number of retry attempts.
	MaxRetries int

	// RetryServerErrors extends retries to 5xx responses and transport
	// errors. Without it only 429 is retried.
	RetryServerErrors bool

	// RetryDelay is the base delay between retries.
	RetryDelay time.Duration

	// UserAgent is the User-Agent header sent with requests.
	UserAgent string
}

// HTTPClient wraps http.Client with a token bucket limiter and retries.
// It is safe for concurrent use.
type HTTPClient struct {
	client  *http.Client
	limiter *rate.Limiter
	config  HTTPClientConfig
}

// NewHTTPClient creates a rate-limited HTTP client. Requests are retried on
// 429 responses, and on 5xx responses and transport errors when
// RetryServerErrors is set.
func NewHTTPClient(cfg HTTPClientConfig) *HTTPClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = 5
	}
	if cfg.BurstSize == 0 {
		cfg.BurstSize = 5
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "Helixir-PaperAssistant/1.0"
	}

	return &HTTPClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.BurstSize),
		config:  cfg,
	}
}

// Do executes req, waiting on the limiter before every attempt.
//
// Requests with a body must have GetBody set to be retried; requests built
// with http.NewRequest over a *bytes.Reader get it automatically.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := resetRequestBody(req); err != nil {
				return nil, fmt.Errorf("cannot retry request: %w", err)
			}
		}

		if err := c.limiter.Wait(req.Context()); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			lastErr = fmt.Errorf("request failed: %w", err)
			if c.config.RetryServerErrors && attempt < c.config.MaxRetries {
				if err := waitForRetry(req.Context(), c.config.RetryDelay); err != nil {
					return nil, err
				}
				continue
			}
			return nil, lastErr
		}

		if !c.shouldRetry(resp.StatusCode) {
			return resp, nil
		}

		delay := c.retryDelay(resp)
		if attempt == c.config.MaxRetries {
			// Hand the last response back so the caller can report its body.
			return resp, nil
		}
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		lastErr = fmt.Errorf("server returned status %d", resp.StatusCode)
		if err := waitForRetry(req.Context(), delay); err != nil {
			return nil, err
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	return nil, errors.New("unexpected error: no response received")
}

func (c *HTTPClient) shouldRetry(statusCode int) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	return c.config.RetryServerErrors && statusCode >= 500 && statusCode < 600
}

// retryDelay honours Retry-After in seconds or HTTP-date form.
func (c *HTTPClient) retryDelay(resp *http.Response) time.Duration {
	retryAfter := resp.Header.Get("Retry-After")
	if retryAfter == "" {
		return c.config.RetryDelay
	}

	if seconds, err := strconv.ParseInt(retryAfter, 10, 64); err == nil {
		if seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
		return c.config.RetryDelay
	}

	if t, err := http.ParseTime(retryAfter); err == nil {
		if delay := time.Until(t); delay > 0 {
			return delay
		}
	}

	return c.config.RetryDelay
}

func waitForRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func resetRequestBody(req *http.Request) error {
	if req.Body == nil || req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("failed to get request body for retry: %w", err)
	}
	req.Body = body
	return nil
}
