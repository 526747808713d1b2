package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrInvalidTransition", ErrInvalidTransition},
		{"ErrTaskInProgress", ErrTaskInProgress},
		{"ErrStorageUnavailable", ErrStorageUnavailable},
		{"ErrDurableStore", ErrDurableStore},
		{"ErrProviderNotConfigured", ErrProviderNotConfigured},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestStorageErrors_Distinct(t *testing.T) {
	wrapped := fmt.Errorf("%w: %w", ErrStorageUnavailable, errors.New("server selection timeout"))

	assert.True(t, errors.Is(wrapped, ErrStorageUnavailable))
	assert.False(t, errors.Is(wrapped, ErrDurableStore))
}

func TestSubmissionError(t *testing.T) {
	cause := errors.New("connection reset")
	err := &SubmissionError{Message: "provider rejected request", Cause: cause}

	assert.Equal(t, "submit research job: provider rejected request: connection reset", err.Error())
	assert.ErrorIs(t, err, cause)
	assert.True(t, IsSubmissionError(fmt.Errorf("run: %w", err)))
	assert.False(t, IsSubmissionError(cause))

	noCause := &SubmissionError{Message: "no run id returned"}
	assert.Equal(t, "submit research job: no run id returned", noCause.Error())
}

func TestJobFailedError(t *testing.T) {
	err := &JobFailedError{RunID: "run_1", Message: "rate limited"}

	// The provider message is surfaced verbatim as the task error.
	assert.Equal(t, "rate limited", err.Error())
	assert.True(t, IsJobFailed(fmt.Errorf("poll: %w", err)))
	assert.False(t, IsTimeout(err))
}

func TestTimeoutError(t *testing.T) {
	err := &TimeoutError{RunID: "run_1", Timeout: 90 * time.Second}

	assert.Equal(t, "task run_1 did not complete within 1m30s", err.Error())
	assert.True(t, IsTimeout(err))
	assert.False(t, IsJobFailed(err))
}

func TestProviderError_Transient(t *testing.T) {
	tests := []struct {
		code      int
		transient bool
	}{
		{400, false},
		{401, false},
		{404, false},
		{429, true},
		{500, true},
		{503, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d", tt.code), func(t *testing.T) {
			err := &ProviderError{StatusCode: tt.code, Message: "x", URL: "https://api.test"}
			assert.Equal(t, tt.transient, err.Transient())
			assert.Equal(t, tt.transient, IsTransientProviderError(fmt.Errorf("wrap: %w", err)))
		})
	}

	assert.False(t, IsTransientProviderError(errors.New("plain")))
	assert.True(t, IsProviderError(fmt.Errorf("wrap: %w", &ProviderError{StatusCode: 401})))
	assert.False(t, IsProviderError(errors.New("plain")))
}
