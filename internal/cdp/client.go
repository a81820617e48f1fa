package cdp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cdpops/segment-copier/internal/metrics"
)

// MediaType is the vendor media type the CDP entity API expects.
const MediaType = "application/vnd.treasuredata.v1+json"

// Statuses that are retried with backoff before giving up.
var retryStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// APIError is a non-retryable HTTP failure, carrying enough of the response
// for callers to branch on the rejection reason.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.Status, truncate(e.Body, 200))
}

// IsNameConflict reports whether the rejection is a duplicate-name error.
func (e *APIError) IsNameConflict() bool {
	return e.Status == http.StatusBadRequest && strings.Contains(e.Body, "Name has already been taken")
}

// IsPredictiveReference reports whether the rejection is caused by a rule
// referencing a predictive segment, which the API refuses to copy.
func (e *APIError) IsPredictiveReference() bool {
	return e.Status == http.StatusBadRequest && strings.Contains(e.Body, "Referencing predictive segment")
}

// IsRejection reports whether the failure is an expected per-entity 400.
func (e *APIError) IsRejection() bool {
	return e.Status == http.StatusBadRequest
}

// RetryPolicy controls transient-failure retries at the transport layer.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
}

// DefaultRetryPolicy matches the production tuning: backoff 3s doubling-ish
// per attempt, bounded by a fixed attempt count.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 8, BaseDelay: 3 * time.Second, Factor: 2}
}

// rateLimiter spaces calls so one client never exceeds its per-instance
// request budget. Single-threaded use only; the copier is one linear pass.
type rateLimiter struct {
	interval time.Duration
	last     time.Time
}

func newRateLimiter(callsPerSecond float64) *rateLimiter {
	if callsPerSecond <= 0 {
		callsPerSecond = 2
	}
	return &rateLimiter{interval: time.Duration(float64(time.Second) / callsPerSecond)}
}

func (r *rateLimiter) wait(ctx context.Context) error {
	if elapsed := time.Since(r.last); elapsed < r.interval {
		metrics.RateLimitWaits.Inc()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.interval - elapsed):
		}
	}
	r.last = time.Now()
	return nil
}

// Client is the gateway to one CDP instance: authenticated, rate-limited,
// retrying. Source and destination each get their own Client so reads and
// writes do not share a rate-limit budget.
type Client struct {
	baseURL    string
	apiKey     string
	mediaType  string
	httpClient *http.Client
	limiter    *rateLimiter
	retry      RetryPolicy
	logger     *zap.Logger
	sleep      func(context.Context, time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit overrides the default 2 calls/second budget.
func WithRateLimit(callsPerSecond float64) Option {
	return func(c *Client) { c.limiter = newRateLimiter(callsPerSecond) }
}

// WithRetryPolicy overrides the default transient-retry tuning.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.retry = p }
}

// WithMediaType overrides the request Content-Type. The workflow and
// connection APIs take plain JSON rather than the vendor entity type.
func WithMediaType(mt string) Option {
	return func(c *Client) { c.mediaType = mt }
}

// WithHTTPClient replaces the underlying transport (used in tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a gateway for one instance.
func NewClient(baseURL, apiKey string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		mediaType:  MediaType,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		limiter:    newRateLimiter(2),
		retry:      DefaultRetryPolicy(),
		logger:     logger,
		sleep: func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request issues one call, marshaling payload as JSON when non-nil. Transient
// statuses and connection errors are retried with exponential backoff; any
// other non-2xx returns *APIError. An empty 2xx body yields nil.
func (c *Client) Request(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var body []byte
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshaling body: %w", err)
		}
		body = data
	}
	return c.Do(ctx, method, path, c.mediaType, body)
}

// Do is the raw request primitive: caller-supplied content type and body.
func (c *Client) Do(ctx context.Context, method, path, contentType string, body []byte) ([]byte, error) {
	u := c.baseURL + "/" + strings.TrimPrefix(path, "/")

	var lastErr error
	for attempt := 0; attempt < c.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			metrics.APIRetriesTotal.Inc()
			delay := time.Duration(float64(c.retry.BaseDelay) * pow(c.retry.Factor, attempt-1))
			c.logger.Warn("retrying request",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
				zap.Error(lastErr))
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
		if err := c.limiter.wait(ctx); err != nil {
			return nil, err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return nil, fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "TD1 "+c.apiKey)
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%s %s: %w", method, path, err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("reading response: %w", err)
			continue
		}
		metrics.APIRequestsTotal.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

		if retryStatuses[resp.StatusCode] {
			lastErr = &APIError{Status: resp.StatusCode, Body: string(respBody)}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.logger.Error("request rejected",
				zap.String("method", method),
				zap.String("path", path),
				zap.Int("status", resp.StatusCode),
				zap.String("body", truncate(string(respBody), 500)))
			return nil, &APIError{Status: resp.StatusCode, Body: string(respBody)}
		}
		if len(respBody) == 0 {
			return nil, nil
		}
		return respBody, nil
	}
	return nil, fmt.Errorf("%s %s: retries exhausted: %w", method, path, lastErr)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.Request(ctx, http.MethodGet, path, nil)
}

// GetJSON performs a GET and unmarshals the response into dest.
func (c *Client) GetJSON(ctx context.Context, path string, dest interface{}) error {
	body, err := c.Get(ctx, path)
	if err != nil {
		return err
	}
	if body == nil {
		return fmt.Errorf("GET %s: empty response", path)
	}
	return json.Unmarshal(body, dest)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	return c.Request(ctx, http.MethodPost, path, payload)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	return c.Request(ctx, http.MethodPut, path, payload)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) ([]byte, error) {
	return c.Request(ctx, http.MethodDelete, path, nil)
}

func pow(base float64, exp int) float64 {
	result := 1.0
	for i := 0; i < exp; i++ {
		result *= base
	}
	return result
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
