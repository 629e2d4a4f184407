package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"goamr/adapters/payload"
	"goamr/domain/core"
	"goamr/domain/metrics"
	apperrors "goamr/internal/errors"
	"goamr/ports"

	"github.com/tidwall/gjson"
)

// maxBodyBytes caps how much of a response is read
const maxBodyBytes = 32 << 20

// APIReader fetches metrics collections from a REST endpoint
type APIReader struct {
	config      *MetricsEndpoint
	httpClient  *http.Client
	rateLimiter *RateLimiter
	decoder     *payload.Decoder

	mu   sync.Mutex
	last FetchMetadata
}

var _ ports.MetricsSource = (*APIReader)(nil)

// NewAPIReader creates a new API reader for an endpoint
func NewAPIReader(config *MetricsEndpoint) (*APIReader, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &APIReader{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		rateLimiter: NewRateLimiter(config.RateLimit),
		decoder:     payload.NewDecoder(config.DataPath),
	}, nil
}

// Name identifies the source in reports
func (r *APIReader) Name() string {
	if r.config.Name != "" {
		return r.config.Name
	}
	return "http"
}

// LastFetch returns metadata about the most recent fetch
func (r *APIReader) LastFetch() FetchMetadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last
}

// Close stops the rate limiter's refill timer
func (r *APIReader) Close() {
	r.rateLimiter.Stop()
}

// FetchMetrics retrieves and decodes the metrics collection. Transport
// failures, 429 and 5xx responses are retried with exponential backoff;
// other statuses fail immediately.
func (r *APIReader) FetchMetrics(ctx context.Context) (map[string]metrics.RawMetricsRecord, error) {
	startTime := time.Now()

	var (
		body    []byte
		meta    FetchMetadata
		lastErr error
	)
	for attempt := 0; attempt <= r.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			backoff := r.config.RetryBackoff * time.Duration(1<<(attempt-1))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, r.sourceError(ctx.Err())
			}
		}

		if err := r.rateLimiter.Wait(ctx); err != nil {
			return nil, r.sourceError(fmt.Errorf("rate limit wait: %w", err))
		}

		var retryable bool
		body, meta, retryable, lastErr = r.fetchOnce(ctx)
		meta.Attempts = attempt + 1
		if lastErr == nil || !retryable {
			break
		}
	}

	meta.FetchedAt = startTime
	meta.ResponseTime = time.Since(startTime)
	defer func() {
		r.mu.Lock()
		r.last = meta
		r.mu.Unlock()
	}()

	if lastErr != nil {
		return nil, r.sourceError(lastErr)
	}

	records, err := r.decoder.Decode(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	meta.RecordsCount = len(records)
	return records, nil
}

// sourceError classifies a fetch failure as an external service error that
// still matches core.ErrSourceUnavailable.
func (r *APIReader) sourceError(err error) error {
	return apperrors.ExternalServiceError(r.Name(), core.NewSourceError(r.Name(), err))
}

// fetchOnce performs a single request. retryable reports whether a failure
// is worth another attempt.
func (r *APIReader) fetchOnce(ctx context.Context) ([]byte, FetchMetadata, bool, error) {
	meta := FetchMetadata{URL: r.config.BaseURL}

	req, err := r.buildRequest(ctx)
	if err != nil {
		return nil, meta, false, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, meta, false, err
		}
		return nil, meta, true, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, meta, true, fmt.Errorf("failed to read response: %w", err)
	}

	meta.StatusCode = resp.StatusCode
	meta.ContentType = resp.Header.Get("Content-Type")
	readRateLimitHeaders(resp.Header, &meta)

	if resp.StatusCode != http.StatusOK {
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, meta, retryable, fmt.Errorf("API returned status %d: %s", resp.StatusCode, errorMessage(body))
	}
	return body, meta, false, nil
}

// buildRequest creates an HTTP request with authentication
func (r *APIReader) buildRequest(ctx context.Context) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.config.BaseURL, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	for k, v := range r.config.Headers {
		req.Header.Set(k, v)
	}

	switch r.config.AuthMethod {
	case "bearer":
		req.Header.Set("Authorization", "Bearer "+r.config.AuthToken)
	case "api_key":
		req.Header.Set("X-API-Key", r.config.AuthToken)
	case "basic":
		req.SetBasicAuth(r.config.Username, r.config.Password)
	}

	return req, nil
}

// errorMessage pulls a readable message out of an error response body
func errorMessage(body []byte) string {
	for _, field := range []string{"error", "message", "detail"} {
		if v := gjson.GetBytes(body, field); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	if len(body) > 200 {
		return string(body[:200]) + "..."
	}
	return string(body)
}

func readRateLimitHeaders(h http.Header, meta *FetchMetadata) {
	if remaining := h.Get("X-RateLimit-Remaining"); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			meta.RateLimitRemaining = val
		}
	}
	if reset := h.Get("X-RateLimit-Reset"); reset != "" {
		if val, err := strconv.ParseInt(reset, 10, 64); err == nil {
			meta.RateLimitReset = time.Unix(val, 0)
		}
	}
}

// RateLimiter implements token bucket rate limiting
type RateLimiter struct {
	rate       int // requests per minute
	tokens     chan struct{}
	resetTimer *time.Timer
	stopOnce   sync.Once
	stopped    chan struct{}
}

func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute < 1 {
		requestsPerMinute = 1
	}
	rl := &RateLimiter{
		rate:    requestsPerMinute,
		tokens:  make(chan struct{}, requestsPerMinute),
		stopped: make(chan struct{}),
	}
	rl.fill()

	rl.resetTimer = time.AfterFunc(time.Minute, rl.resetTokens)
	return rl
}

// Wait blocks until a token is available or ctx is done
func (rl *RateLimiter) Wait(ctx context.Context) error {
	select {
	case <-rl.tokens:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop halts the refill timer
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopped)
		rl.resetTimer.Stop()
	})
}

func (rl *RateLimiter) fill() {
	for i := 0; i < rl.rate; i++ {
		select {
		case rl.tokens <- struct{}{}:
		default:
			return
		}
	}
}

func (rl *RateLimiter) resetTokens() {
	select {
	case <-rl.stopped:
		return
	default:
	}
	rl.fill()
	rl.resetTimer.Reset(time.Minute)
}
