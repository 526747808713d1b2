package domain

import "time"

// TaskStatus is the lifecycle state of a research task.
type TaskStatus string

// Task statuses. Transitions are one-directional:
// queued -> running -> complete, or queued -> running -> error.
const (
	TaskQueued   TaskStatus = "queued"
	TaskRunning  TaskStatus = "running"
	TaskComplete TaskStatus = "complete"
	TaskError    TaskStatus = "error"
)

// IsTerminal reports whether no further transitions are possible.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskComplete || s == TaskError
}

// IsValid reports whether s is a known task status.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskQueued, TaskRunning, TaskComplete, TaskError:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether a task in status s may move to next.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskQueued:
		return next == TaskRunning
	case TaskRunning:
		return next == TaskComplete || next == TaskError
	default:
		return false
	}
}

// Task tracks one research refresh attempt.
// Tasks are never deleted; they accumulate as an audit trail.
type Task struct {
	// ID is the opaque unique identifier generated at creation.
	ID string `json:"task_id"`

	// TopicID is the topic the research is refreshed for.
	TopicID string `json:"topic_id"`

	// Query is the effective search text. Defaults to TopicID.
	Query string `json:"query"`

	// Status is the current lifecycle state.
	Status TaskStatus `json:"status"`

	// Result is set only when Status is TaskComplete.
	Result *ResearchResult `json:"result"`

	// Error is set only when Status is TaskError.
	Error string `json:"error"`

	// CreatedAt is when the task was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is refreshed on every write.
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTask returns a queued task. An empty query defaults to the topic id.
func NewTask(id, topicID, query string, now time.Time) *Task {
	if query == "" {
		query = topicID
	}
	return &Task{
		ID:        id,
		TopicID:   topicID,
		Query:     query,
		Status:    TaskQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TaskUpdate is a set of fields merged into an existing task.
// A zero Status leaves the status unchanged.
type TaskUpdate struct {
	Status TaskStatus
	Result *ResearchResult
	Error  string
}

// Running marks a task as picked up by a driver.
func Running() TaskUpdate {
	return TaskUpdate{Status: TaskRunning}
}

// Completed marks a task as finished with result.
func Completed(result ResearchResult) TaskUpdate {
	return TaskUpdate{Status: TaskComplete, Result: &result}
}

// Failed marks a task as finished with an error message.
func Failed(message string) TaskUpdate {
	return TaskUpdate{Status: TaskError, Error: message}
}

// Apply merges u into t and stamps UpdatedAt. Result and Error stay mutually
// exclusive: a complete task has no error and a failed task has no result.
// UpdatedAt never moves backwards.
func (t *Task) Apply(u TaskUpdate, now time.Time) error {
	if u.Status != "" && u.Status != t.Status {
		if !u.Status.IsValid() || !t.Status.CanTransitionTo(u.Status) {
			return ErrInvalidTransition
		}
		t.Status = u.Status
	}

	switch t.Status {
	case TaskComplete:
		if u.Result != nil {
			t.Result = u.Result
		}
		t.Error = ""
	case TaskError:
		if u.Error != "" {
			t.Error = u.Error
		}
		t.Result = nil
	default:
		if u.Result != nil || u.Error != "" {
			return ErrInvalidTransition
		}
	}

	if now.After(t.UpdatedAt) {
		t.UpdatedAt = now
	}
	return nil
}
