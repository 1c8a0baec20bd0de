package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrBackendUnavailable indicates a search backend could not be reached
	ErrBackendUnavailable = errors.New("search backend unavailable")

	// ErrRerankFailed indicates the rerank/compress call failed
	ErrRerankFailed = errors.New("rerank failed")

	// ErrCacheUnavailable indicates the query cache could not be reached.
	// Callers treat this as an unconditional cache miss.
	ErrCacheUnavailable = errors.New("cache unavailable")

	// ErrJobNotFound indicates the ingestion job does not exist
	ErrJobNotFound = errors.New("job not found")

	// ErrIngestionFailed indicates an ingestion step failed.
	// The corpus version is left untouched.
	ErrIngestionFailed = errors.New("ingestion failed")

	// ErrServiceUnavailable indicates the AI service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")
)

// AdmissionError is returned when the admission controller rejects a call.
// RetryAfter is the time until enough tokens will have accrued for the
// rejected cost. Rejection is a deliberate backpressure signal and is never
// retried internally.
type AdmissionError struct {
	CallerID   string
	Cost       int
	RetryAfter time.Duration
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("admission rejected for caller %s (cost %d): retry after %s", e.CallerID, e.Cost, e.RetryAfter)
}

// IsAdmissionRejected reports whether err is an admission rejection and
// returns the rejection details if so.
func IsAdmissionRejected(err error) (*AdmissionError, bool) {
	var ae *AdmissionError
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}
