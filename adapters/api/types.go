package api

import (
	"time"
)

// MetricsEndpoint represents a remote metrics endpoint configuration
type MetricsEndpoint struct {
	Name    string            `json:"name"`
	BaseURL string            `json:"base_url"`
	Headers map[string]string `json:"headers,omitempty"`

	// Authentication
	AuthMethod string `json:"auth_method"` // "none", "bearer", "api_key", "basic"
	AuthToken  string `json:"-"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"-"`

	// DataPath is a gjson path to the collection (e.g. "data.models")
	DataPath string `json:"data_path"`

	RateLimit     int           `json:"rate_limit"` // requests per minute
	Timeout       time.Duration `json:"timeout"`
	RetryAttempts int           `json:"retry_attempts"`
	RetryBackoff  time.Duration `json:"retry_backoff"`
}

// FetchMetadata describes the most recent fetch
type FetchMetadata struct {
	URL                string        `json:"url"`
	StatusCode         int           `json:"status_code"`
	ContentType        string        `json:"content_type"`
	Attempts           int           `json:"attempts"`
	RecordsCount       int           `json:"records_count"`
	ResponseTime       time.Duration `json:"response_time"`
	FetchedAt          time.Time     `json:"fetched_at"`
	RateLimitRemaining int           `json:"rate_limit_remaining,omitempty"`
	RateLimitReset     time.Time     `json:"rate_limit_reset,omitempty"`
}
