package mcp

import (
	"context"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driving"
)

// mockResearchService is a mock implementation of driving.ResearchService.
type mockResearchService struct {
	taskID string
	task   *domain.Task
	record *domain.ResearchRecord
	err    error

	refreshedTopic string
	refreshedQuery string
}

var _ driving.ResearchService = (*mockResearchService)(nil)

func (m *mockResearchService) Refresh(_ context.Context, topicID, query string) (string, error) {
	m.refreshedTopic = topicID
	m.refreshedQuery = query
	return m.taskID, m.err
}

func (m *mockResearchService) Task(_ context.Context, _ string) (*domain.Task, error) {
	return m.task, m.err
}

func (m *mockResearchService) Result(_ context.Context, _ string) (*domain.ResearchRecord, error) {
	return m.record, m.err
}
