package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeHTTPStatus represents a non-2xx response from the target site
	ErrorTypeHTTPStatus ErrorType = "http_status"
	// ErrorTypeTransport represents connection, DNS and timeout failures
	ErrorTypeTransport ErrorType = "transport"
	// ErrorTypeRateLimit represents a fetch suppressed by an active rate-limit block
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeExtraction represents a per-container structural mismatch
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypePersistence represents dedup store failures
	ErrorTypePersistence ErrorType = "persistence"
	// ErrorTypeNotify represents notification delivery failures
	ErrorTypeNotify ErrorType = "notify"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// PipelineError represents an ingestion pipeline error
type PipelineError struct {
	Type       ErrorType
	Source     string
	Message    string
	StatusCode int
	Err        error
	Time       time.Time
}

// Error implements the error interface
func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *PipelineError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether the failed work should be picked up again on the
// next tick. Nothing is retried in place.
func (e *PipelineError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeHTTPStatus, ErrorTypeTransport, ErrorTypeRateLimit,
		ErrorTypePersistence, ErrorTypeNotify:
		return true
	default:
		return false
	}
}

// New creates a new PipelineError
func New(errType ErrorType, source, message string, err error) *PipelineError {
	return &PipelineError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewHTTPStatus creates an error for an unexpected response status
func NewHTTPStatus(source string, statusCode int) *PipelineError {
	e := New(ErrorTypeHTTPStatus, source, fmt.Sprintf("unexpected status code: %d", statusCode), nil)
	e.StatusCode = statusCode
	return e
}

// NewTransport creates a new transport error
func NewTransport(source, message string, err error) *PipelineError {
	return New(ErrorTypeTransport, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, duration time.Duration) *PipelineError {
	message := fmt.Sprintf("rate limited for %v", duration)
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewParsing creates a new parsing error
func NewParsing(source, message string, err error) *PipelineError {
	return New(ErrorTypeParsing, source, message, err)
}

// NewExtraction creates a new extraction error
func NewExtraction(source, message string, err error) *PipelineError {
	return New(ErrorTypeExtraction, source, message, err)
}

// NewPersistence creates a new persistence error
func NewPersistence(source, message string, err error) *PipelineError {
	return New(ErrorTypePersistence, source, message, err)
}

// NewNotify creates a new notify error
func NewNotify(source, message string, err error) *PipelineError {
	return New(ErrorTypeNotify, source, message, err)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *PipelineError {
	return New(ErrorTypeConfiguration, "", message, err)
}

// TypeOf returns the ErrorType of the first PipelineError in err's chain,
// or an empty type when there is none.
func TypeOf(err error) ErrorType {
	var pe *PipelineError
	if stderrors.As(err, &pe) {
		return pe.Type
	}
	return ""
}

// Is reports whether err carries a PipelineError of the given type
func Is(err error, errType ErrorType) bool {
	return TypeOf(err) == errType
}

// Retryable reports whether err carries a PipelineError that may clear up on
// the next tick
func Retryable(err error) bool {
	var pe *PipelineError
	return stderrors.As(err, &pe) && pe.IsRetryable()
}

// StatusCode extracts the HTTP status code from an http_status error
func StatusCode(err error) (int, bool) {
	var pe *PipelineError
	if stderrors.As(err, &pe) && pe.Type == ErrorTypeHTTPStatus {
		return pe.StatusCode, true
	}
	return 0, false
}
