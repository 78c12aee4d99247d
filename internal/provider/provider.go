package provider

import (
	"context"
	"errors"
	"fmt"
)

// Query is the normalized quote request forwarded upstream.
// Symbols is kept as the comma separated list the caller sent.
type Query struct {
	Symbols string
	Slug    string
	Convert string
}

// Empty reports whether neither symbols nor slug were supplied.
func (q Query) Empty() bool { return q.Symbols == "" && q.Slug == "" }

// Provider fetches the latest quotes and returns the upstream JSON untouched.
//
//go:generate mockgen -package=server_test -destination=../server/mock_provider_test.go -source=provider.go Provider
type Provider interface {
	Name() string
	Latest(ctx context.Context, q Query) ([]byte, error)
}

// NetworkError means the upstream could not be reached or timed out.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string { return e.Err.Error() }
func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError means the upstream answered with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("unexpected status code: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// APIError is an application-level error reported inside a 2xx payload.
type APIError struct {
	Code    int64
	Message string
}

func (e *APIError) Error() string { return e.Message }

// PayloadError means a 2xx body could not be understood.
type PayloadError struct {
	Err error
}

func (e *PayloadError) Error() string { return "decoding response: " + e.Err.Error() }
func (e *PayloadError) Unwrap() error { return e.Err }

// Kind classifies an upstream error for logs and metrics.
func Kind(err error) string {
	var (
		netErr     *NetworkError
		statusErr  *StatusError
		apiErr     *APIError
		payloadErr *PayloadError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &statusErr):
		return "status"
	case errors.As(err, &apiErr):
		return "api"
	case errors.As(err, &payloadErr):
		return "payload"
	case errors.As(err, &netErr):
		return "network"
	}
	return "network"
}
