package driven

import (
	"time"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

// Metrics records orchestration activity.
// This is an optional port: services fall back to NopMetrics when nil.
type Metrics interface {
	// TaskStarted marks a driver picking up a task.
	TaskStarted()

	// TaskFinished marks a driver reaching a terminal status.
	TaskFinished(status domain.TaskStatus, elapsed time.Duration)

	// PollObserved records one provider status check.
	PollObserved(status domain.JobStatus)

	// StorageFallback records an operation demoted to the in-memory backend.
	StorageFallback(collection, op string)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) TaskStarted() {}

func (NopMetrics) TaskFinished(domain.TaskStatus, time.Duration) {}

func (NopMetrics) PollObserved(domain.JobStatus) {}

func (NopMetrics) StorageFallback(string, string) {}
