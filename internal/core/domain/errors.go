package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTransition indicates a task status change that breaks
	// the queued -> running -> {complete, error} ordering.
	ErrInvalidTransition = errors.New("invalid task status transition")

	// ErrTaskInProgress indicates a driver is already running for the task.
	ErrTaskInProgress = errors.New("task already in progress")

	// Storage Errors.

	// ErrStorageUnavailable indicates the durable backend could not be reached
	// (connection refused, server selection timeout, busy database).
	// Callers of the storage adapter never see it: it triggers fallback.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrDurableStore indicates the durable backend answered but the operation failed.
	// Unlike ErrStorageUnavailable it is propagated, not recovered.
	ErrDurableStore = errors.New("durable store error")

	// Provider Errors.

	// ErrProviderNotConfigured indicates no research provider credentials are set.
	ErrProviderNotConfigured = errors.New("research provider not configured")
)

// SubmissionError is returned when the research provider rejects job creation
// or returns no job identifier.
type SubmissionError struct {
	Message string
	Cause   error
}

func (e *SubmissionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("submit research job: %s: %v", e.Message, e.Cause)
	}
	return "submit research job: " + e.Message
}

func (e *SubmissionError) Unwrap() error {
	return e.Cause
}

// JobFailedError is returned when the provider reports a terminal failure.
// Message is the provider's own error text when one was supplied.
type JobFailedError struct {
	RunID   string
	Message string
}

func (e *JobFailedError) Error() string {
	return e.Message
}

// TimeoutError is returned when the poll budget is exhausted before the
// provider reaches a terminal state. The provider-side run is abandoned.
type TimeoutError struct {
	RunID   string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %s did not complete within %s", e.RunID, e.Timeout)
}

// ProviderError represents an unexpected HTTP response from the research provider.
type ProviderError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("research provider: API error %d: %s (URL: %s)", e.StatusCode, e.Message, e.URL)
}

// Transient reports whether retrying the same request may succeed.
func (e *ProviderError) Transient() bool {
	return e.StatusCode == 429 || e.StatusCode >= 500
}

// IsSubmissionError checks if the error is a job submission failure.
func IsSubmissionError(err error) bool {
	var target *SubmissionError
	return errors.As(err, &target)
}

// IsJobFailed checks if the error is a provider-reported job failure.
func IsJobFailed(err error) bool {
	var target *JobFailedError
	return errors.As(err, &target)
}

// IsTimeout checks if the error is a poll budget timeout.
func IsTimeout(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target)
}

// IsProviderError checks if the error is an HTTP error from the research provider.
func IsProviderError(err error) bool {
	var target *ProviderError
	return errors.As(err, &target)
}

// IsTransientProviderError checks if the error is a provider error worth retrying.
func IsTransientProviderError(err error) bool {
	var target *ProviderError
	if errors.As(err, &target) {
		return target.Transient()
	}
	return false
}
