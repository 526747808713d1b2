package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/logger"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleRefresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	topicID := strings.TrimSpace(req.TopicID)
	if topicID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "topic_id is required"})
		return
	}

	taskID, err := s.research.Refresh(c.Request.Context(), topicID, strings.TrimSpace(req.Query))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, RefreshResponse{
		TaskID:  taskID,
		TopicID: topicID,
		Status:  string(domain.TaskQueued),
	})
}

func (s *Server) handleTask(c *gin.Context) {
	taskID := c.Param("task_id")
	task, err := s.research.Task(c.Request.Context(), taskID)
	if err != nil {
		writeError(c, err)
		return
	}
	if task == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "task not found"})
		return
	}

	if s.backends != nil {
		c.Header(StorageBackendHeader, s.backends(domain.CollectionTasks, taskID))
	}
	c.JSON(http.StatusOK, TaskResponse{
		TaskID: task.ID,
		Status: string(task.Status),
		Result: task.Result,
		Error:  task.Error,
	})
}

func (s *Server) handleResult(c *gin.Context) {
	topicID := c.Param("topic_id")
	record, err := s.research.Result(c.Request.Context(), topicID)
	if err != nil {
		writeError(c, err)
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no research for topic"})
		return
	}

	sources := record.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	c.JSON(http.StatusOK, ResultResponse{
		TopicID:     record.TopicID,
		Summary:     record.Summary,
		Sources:     sources,
		GeneratedAt: record.GeneratedAt,
	})
}

// writeError maps service errors to HTTP statuses.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrStorageUnavailable), errors.Is(err, domain.ErrDurableStore):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		logger.Error("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	c.JSON(status, ErrorResponse{Error: err.Error()})
}
