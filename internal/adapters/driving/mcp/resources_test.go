package mcp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

// Helper to create a ReadResourceRequest with the given URI.
func makeReadResourceRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{
		Params: &mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

func TestServer_handleTopicResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns record as json", func(t *testing.T) {
		server := newTestServer(t, &mockResearchService{record: &domain.ResearchRecord{
			TopicID:     "climate",
			Summary:     "S",
			Sources:     []domain.Source{},
			GeneratedAt: time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC),
		}})

		result, err := server.handleTopicResource(ctx, makeReadResourceRequest("research://topics/climate"))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)

		var record domain.ResearchRecord
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &record))
		assert.Equal(t, "climate", record.TopicID)
		assert.Equal(t, "S", record.Summary)
	})

	t.Run("absent record is not found", func(t *testing.T) {
		server := newTestServer(t, &mockResearchService{})

		_, err := server.handleTopicResource(ctx, makeReadResourceRequest("research://topics/climate"))
		assert.Error(t, err)
	})

	t.Run("malformed uri is not found", func(t *testing.T) {
		server := newTestServer(t, &mockResearchService{})

		_, err := server.handleTopicResource(ctx, makeReadResourceRequest("research://topics/"))
		assert.Error(t, err)
	})
}

func TestServer_handleTaskResource(t *testing.T) {
	ctx := context.Background()
	server := newTestServer(t, &mockResearchService{task: &domain.Task{ID: "task-1", Status: domain.TaskRunning}})

	result, err := server.handleTaskResource(ctx, makeReadResourceRequest("research://tasks/task-1"))
	require.NoError(t, err)
	assert.Contains(t, result.Contents[0].Text, `"status": "running"`)
}

func TestExtractID(t *testing.T) {
	assert.Equal(t, "climate", extractID("research://topics/climate", "topics/"))
	assert.Equal(t, "", extractID("research://topics/", "topics/"))
	assert.Equal(t, "", extractID("research://topics/a/b", "topics/"))
	assert.Equal(t, "", extractID("other://topics/a", "topics/"))
	assert.Equal(t, "t1", extractID("research://tasks/t1", "tasks/"))
}
