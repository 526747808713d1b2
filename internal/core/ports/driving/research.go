package driving

import (
	"context"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

// ResearchService is the refresh consumer boundary.
type ResearchService interface {
	// Refresh creates a queued task and drives it in the background.
	// It returns as soon as the task is recorded; failures surface later
	// through the task's terminal error status.
	Refresh(ctx context.Context, topicID, query string) (string, error)

	// Task returns the current state of a task.
	// Returns nil and no error if the task does not exist.
	Task(ctx context.Context, taskID string) (*domain.Task, error)

	// Result returns the latest research for a topic.
	// Returns nil and no error if no research has been stored.
	Result(ctx context.Context, topicID string) (*domain.ResearchRecord, error)
}

// TaskRegistry creates, reads and updates task records and owns the task
// state machine.
type TaskRegistry interface {
	// CreateTask records a queued task and returns its id.
	CreateTask(ctx context.Context, topicID, query string) (string, error)

	// GetTask returns the task, or nil and no error if it does not exist.
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// UpdateTask merges update into the task. Storage failures are absorbed;
	// only domain.ErrInvalidTransition is returned.
	UpdateTask(ctx context.Context, taskID string, update domain.TaskUpdate) error

	// AdvanceTask applies update to task, the caller's latest copy, and
	// writes the whole record. A transition is checked against task rather
	// than the stored record, so an earlier write that was lost cannot block
	// a later one. Storage failures are absorbed; only
	// domain.ErrInvalidTransition is returned.
	AdvanceTask(ctx context.Context, task *domain.Task, update domain.TaskUpdate) error
}

// JobRunner executes one research job end to end: submit, poll, normalise.
type JobRunner interface {
	Run(ctx context.Context, query string, policy domain.ResearchPolicy) (*domain.ResearchResult, error)

	// Policy returns the currently configured poll policy.
	Policy() domain.ResearchPolicy
}

// ResultSink persists canonical results keyed by topic.
type ResultSink interface {
	// UpsertResult overwrites the research record for a topic.
	UpsertResult(ctx context.Context, topicID string, result domain.ResearchResult) error

	// GetResult returns the record, or nil and no error if absent.
	GetResult(ctx context.Context, topicID string) (*domain.ResearchRecord, error)
}
