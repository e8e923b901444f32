package services

// Custom errors
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type UnauthorizedError struct{ Message string }

func (e *UnauthorizedError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }

// UpstreamError wraps a failed call to the reply backend.
type UpstreamError struct{ Err error }

func (e *UpstreamError) Error() string { return "reply backend failed: " + e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }
