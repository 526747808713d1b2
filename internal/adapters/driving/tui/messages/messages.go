// Package messages defines Bubbletea message types for the TUI.
package messages

import (
	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

// PollRequested asks the watcher to read the task again.
type PollRequested struct{}

// TaskPolled carries the latest task state back to the model.
// Task is nil when the task does not exist.
type TaskPolled struct {
	Task *domain.Task
	Err  error
}

// Terminal reports whether the polled task has finished.
func (m TaskPolled) Terminal() bool {
	return m.Task != nil && m.Task.Status.IsTerminal()
}
