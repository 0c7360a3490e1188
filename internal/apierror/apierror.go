// Package apierror provides standardized error response structures for the API.
// Transport level failures (bad JSON, auth, rate limits, panics) go through this
// package so clients never see stack traces or driver errors. Allocation outcomes
// use the action result shape instead.
package apierror

// APIError is the canonical error envelope for 4xx/5xx transport responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Validation error", Fields: fields}
}
