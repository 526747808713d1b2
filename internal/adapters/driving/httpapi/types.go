package httpapi

import (
	"time"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

// RefreshRequest is the POST /research/refresh body.
type RefreshRequest struct {
	TopicID string `json:"topic_id"`
	Query   string `json:"query,omitempty"`
}

// RefreshResponse acknowledges a queued refresh.
type RefreshResponse struct {
	TaskID  string `json:"task_id"`
	TopicID string `json:"topic_id"`
	Status  string `json:"status"`
}

// TaskResponse reports a task's state.
type TaskResponse struct {
	TaskID string                 `json:"task_id"`
	Status string                 `json:"status"`
	Result *domain.ResearchResult `json:"result,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// ResultResponse is the stored research for a topic.
type ResultResponse struct {
	TopicID     string          `json:"topic_id"`
	Summary     string          `json:"summary"`
	Sources     []domain.Source `json:"sources"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the GET /health body.
type HealthResponse struct {
	Status string `json:"status"`
}
