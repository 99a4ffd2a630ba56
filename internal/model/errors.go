package model

import "fmt"

// ValidationError is a request-level error: malformed input, unknown type,
// out-of-range coordinates. Maps to HTTP 400.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// AuthError is a request-level error: missing/invalid key, expired key,
// insufficient permission. Maps to HTTP 401.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string { return e.Message }

// RateLimitError indicates a per-key quota was exceeded. Maps to HTTP 429.
type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string { return e.Message }

// GeocodingError indicates an address could not be resolved to coordinates.
// Request-level, HTTP 500-equivalent with a diagnostic message.
type GeocodingError struct {
	Address string
	Message string
}

func (e *GeocodingError) Error() string {
	return fmt.Sprintf("geocoding %q: %s", e.Address, e.Message)
}

// CheckerError represents any failure inside a single checker (timeout,
// data store error, unexpected exception). Scoped to the checker — it
// never fails the request, it surfaces as CheckerResult{Status: ERROR}.
type CheckerError struct {
	Checker string
	Message string
}

func (e *CheckerError) Error() string {
	return fmt.Sprintf("checker %s: %s", e.Checker, e.Message)
}

// CacheError is demoted to a warning by callers; it never propagates as a
// request failure.
type CacheError struct {
	Op      string
	Message string
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s: %s", e.Op, e.Message)
}

// PersistenceError (audit) is demoted to a warning by callers.
type PersistenceError struct {
	Message string
}

func (e *PersistenceError) Error() string { return e.Message }

// InfraError indicates critical infrastructure (DB, cache) is unreachable.
// Surfaced on GET /health as HTTP 503.
type InfraError struct {
	Component string
	Message   string
}

func (e *InfraError) Error() string {
	return fmt.Sprintf("infra %s: %s", e.Component, e.Message)
}
