package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

// RefreshInput is the input schema for the research_refresh tool.
type RefreshInput struct {
	TopicID string `json:"topic_id" jsonschema:"the topic to refresh research for"`
	Query   string `json:"query,omitempty" jsonschema:"search text for the research job (defaults to the topic id)"`
}

// RefreshOutput is the output schema for the research_refresh tool.
type RefreshOutput struct {
	TaskID  string `json:"task_id"`
	TopicID string `json:"topic_id"`
	Status  string `json:"status"`
}

// StatusInput is the input schema for the research_status tool.
type StatusInput struct {
	TaskID string `json:"task_id" jsonschema:"the task id returned by research_refresh"`
}

// StatusOutput is the output schema for the research_status tool.
type StatusOutput struct {
	TaskID  string                 `json:"task_id"`
	TopicID string                 `json:"topic_id,omitempty"`
	Found   bool                   `json:"found"`
	Status  string                 `json:"status,omitempty"`
	Result  *domain.ResearchResult `json:"result,omitempty"`
	Error   string                 `json:"error,omitempty"`
}

// ResultInput is the input schema for the research_result tool.
type ResultInput struct {
	TopicID string `json:"topic_id" jsonschema:"the topic to read research for"`
}

// ResultOutput is the output schema for the research_result tool.
type ResultOutput struct {
	TopicID     string          `json:"topic_id"`
	Found       bool            `json:"found"`
	Summary     string          `json:"summary,omitempty"`
	Sources     []domain.Source `json:"sources,omitempty"`
	GeneratedAt string          `json:"generated_at,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "research_refresh",
		Description: "Start a background deep-research refresh for a topic and return its task id",
	}, s.handleRefresh)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "research_status",
		Description: "Get the status of a research refresh task, including its result once complete",
	}, s.handleStatus)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "research_result",
		Description: "Get the latest stored research summary and sources for a topic",
	}, s.handleResult)
}

func (s *Server) handleRefresh(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RefreshInput,
) (*mcp.CallToolResult, RefreshOutput, error) {
	topicID := strings.TrimSpace(input.TopicID)
	if topicID == "" {
		return nil, RefreshOutput{}, errTopicRequired
	}

	taskID, err := s.ports.Research.Refresh(ctx, topicID, strings.TrimSpace(input.Query))
	if err != nil {
		return nil, RefreshOutput{}, fmt.Errorf("refresh %s: %w", topicID, err)
	}

	return nil, RefreshOutput{
		TaskID:  taskID,
		TopicID: topicID,
		Status:  string(domain.TaskQueued),
	}, nil
}

func (s *Server) handleStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	task, err := s.ports.Research.Task(ctx, input.TaskID)
	if err != nil {
		return nil, StatusOutput{}, err
	}

	output := StatusOutput{TaskID: input.TaskID}
	if task == nil {
		return nil, output, nil
	}
	output.Found = true
	output.TopicID = task.TopicID
	output.Status = string(task.Status)
	output.Result = task.Result
	output.Error = task.Error
	return nil, output, nil
}

func (s *Server) handleResult(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ResultInput,
) (*mcp.CallToolResult, ResultOutput, error) {
	topicID := strings.TrimSpace(input.TopicID)
	if topicID == "" {
		return nil, ResultOutput{}, errTopicRequired
	}

	record, err := s.ports.Research.Result(ctx, topicID)
	if err != nil {
		return nil, ResultOutput{}, err
	}

	output := ResultOutput{TopicID: topicID}
	if record == nil {
		return nil, output, nil
	}
	output.Found = true
	output.Summary = record.Summary
	output.Sources = record.Sources
	output.GeneratedAt = record.GeneratedAt.Format(time.RFC3339)
	return nil, output, nil
}
