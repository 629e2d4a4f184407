package api

import (
	"fmt"
	"net/url"
	"time"
)

// DefaultEndpoint returns sensible defaults for a metrics endpoint
func DefaultEndpoint(baseURL string) *MetricsEndpoint {
	return &MetricsEndpoint{
		Name:          "http",
		BaseURL:       baseURL,
		AuthMethod:    "none",
		RateLimit:     60,
		Timeout:       10 * time.Second,
		RetryAttempts: 2,
		RetryBackoff:  500 * time.Millisecond,
	}
}

// WithToken switches the endpoint to bearer authentication. An empty token
// leaves the endpoint unchanged.
func (e *MetricsEndpoint) WithToken(token string) *MetricsEndpoint {
	if token != "" {
		e.AuthMethod = "bearer"
		e.AuthToken = token
	}
	return e
}

// Validate checks if the configuration is valid
func (e *MetricsEndpoint) Validate() error {
	u, err := url.Parse(e.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ValidationError{Field: "BaseURL", Message: fmt.Sprintf("must be an http(s) URL, got %q", e.BaseURL)}
	}

	if e.Timeout <= 0 {
		return &ValidationError{Field: "Timeout", Message: "must be positive"}
	}

	if e.RateLimit <= 0 {
		return &ValidationError{Field: "RateLimit", Message: "must be positive"}
	}

	if e.RetryAttempts < 0 {
		return &ValidationError{Field: "RetryAttempts", Message: "cannot be negative"}
	}

	switch e.AuthMethod {
	case "", "none", "bearer", "api_key", "basic":
	default:
		return &ValidationError{Field: "AuthMethod", Message: fmt.Sprintf("unsupported method %q", e.AuthMethod)}
	}

	return nil
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}
