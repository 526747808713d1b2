package domain

import "strings"

// JobStatus is a provider job state normalised from the provider's own vocabulary.
type JobStatus string

// Normalised provider job states.
const (
	JobQueued   JobStatus = "queued"
	JobRunning  JobStatus = "running"
	JobComplete JobStatus = "complete"
	JobError    JobStatus = "error"
	JobUnknown  JobStatus = "unknown"
)

// IsTerminal reports whether the poll loop should stop on this status.
// JobUnknown is transient: providers may add vocabulary at any time.
func (s JobStatus) IsTerminal() bool {
	return s == JobComplete || s == JobError
}

var jobStatusSynonyms = map[string]JobStatus{
	"queued":      JobQueued,
	"pending":     JobQueued,
	"submitted":   JobQueued,
	"created":     JobQueued,
	"waiting":     JobQueued,
	"scheduled":   JobQueued,
	"running":     JobRunning,
	"in_progress": JobRunning,
	"in-progress": JobRunning,
	"processing":  JobRunning,
	"active":      JobRunning,
	"started":     JobRunning,
	"complete":    JobComplete,
	"completed":   JobComplete,
	"succeeded":   JobComplete,
	"success":     JobComplete,
	"successful":  JobComplete,
	"done":        JobComplete,
	"finished":    JobComplete,
	"error":       JobError,
	"errored":     JobError,
	"failed":      JobError,
	"failure":     JobError,
	"cancelled":   JobError,
	"canceled":    JobError,
	"expired":     JobError,
	"rejected":    JobError,
}

// NormalizeJobStatus maps a provider status string onto a JobStatus using
// case-insensitive synonym matching. Unrecognised values yield JobUnknown.
func NormalizeJobStatus(raw string) JobStatus {
	key := strings.ToLower(strings.TrimSpace(raw))
	if s, ok := jobStatusSynonyms[key]; ok {
		return s
	}
	return JobUnknown
}

// RawPayload is a provider response decoded without a fixed schema.
// Required keys are "status" or "state"; on success an "output" or
// "result" value carries the research.
type RawPayload map[string]any

// Status returns the provider's raw status string.
func (p RawPayload) Status() string {
	for _, key := range []string{"status", "state"} {
		if s, ok := p[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

// JobStatus returns the normalised status of the payload.
func (p RawPayload) JobStatus() JobStatus {
	return NormalizeJobStatus(p.Status())
}

// ErrorMessage returns the provider's error message, if any.
// Both plain strings and {"message": ...} objects are recognised.
func (p RawPayload) ErrorMessage() string {
	switch v := p["error"].(type) {
	case string:
		return v
	case map[string]any:
		for _, key := range []string{"message", "detail", "error"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
	}
	if s, ok := p["error_message"].(string); ok {
		return s
	}
	return ""
}

// Output returns the result value of a finished job, if present.
func (p RawPayload) Output() (any, bool) {
	for _, key := range []string{"output", "result"} {
		if v, ok := p[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
