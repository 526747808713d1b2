package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driving"
)

// MockResearchService serves canned tasks and research records.
type MockResearchService struct {
	mu      sync.Mutex
	tasks   map[string]*domain.Task
	records map[string]*domain.ResearchRecord

	// progress lists statuses a refreshed task moves through on each read.
	progress []domain.TaskStatus
	reads    int
	outcome  domain.TaskUpdate

	RefreshErr error
	queries    []string
}

var _ driving.ResearchService = (*MockResearchService)(nil)

func newMockResearchService() *MockResearchService {
	return &MockResearchService{
		tasks:   make(map[string]*domain.Task),
		records: make(map[string]*domain.ResearchRecord),
		outcome: domain.Completed(domain.ResearchResult{
			Summary: "Global emissions fell.",
			Sources: []domain.Source{{Title: "Report", URL: "https://example.test/report"}},
		}),
	}
}

func (m *MockResearchService) Refresh(_ context.Context, topicID, query string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.RefreshErr != nil {
		return "", m.RefreshErr
	}
	m.queries = append(m.queries, query)
	now := time.Now()
	m.tasks["task-1"] = &domain.Task{ID: "task-1", TopicID: topicID, Query: query, Status: domain.TaskQueued, CreatedAt: now, UpdatedAt: now}
	return "task-1", nil
}

func (m *MockResearchService) Task(_ context.Context, taskID string) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	task, ok := m.tasks[taskID]
	if !ok {
		return nil, nil
	}
	if m.reads < len(m.progress) {
		task.Status = m.progress[m.reads]
		m.reads++
		if task.Status.IsTerminal() {
			m.applyOutcome(task)
		}
	}
	cp := *task
	return &cp, nil
}

func (m *MockResearchService) Result(_ context.Context, topicID string) (*domain.ResearchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[topicID], nil
}

// finish moves every task to the configured outcome, standing in for the
// background driver.
func (m *MockResearchService) finish(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, task := range m.tasks {
		if !task.Status.IsTerminal() {
			task.Status = m.outcome.Status
			m.applyOutcome(task)
		}
	}
	return nil
}

func (m *MockResearchService) applyOutcome(task *domain.Task) {
	task.Result = m.outcome.Result
	task.Error = m.outcome.Error
	task.UpdatedAt = time.Now()
}

// testApp records the lifecycle calls made by commands.
type testApp struct {
	*App
	mu      sync.Mutex
	waited  bool
	closed  bool
	watched bool
}

func newTestApp(research *MockResearchService) *testApp {
	ta := &testApp{}
	ta.App = &App{
		Config:   domain.DefaultConfig(),
		Research: research,
		Wait: func(ctx context.Context) error {
			ta.mu.Lock()
			ta.waited = true
			ta.mu.Unlock()
			return research.finish(ctx)
		},
		Close: func(context.Context) error {
			ta.mu.Lock()
			defer ta.mu.Unlock()
			ta.closed = true
			return nil
		},
	}
	return ta
}

func (ta *testApp) state() (waited, closed, watched bool) {
	ta.mu.Lock()
	defer ta.mu.Unlock()
	return ta.waited, ta.closed, ta.watched
}

// useApp installs a factory returning app and restores the previous one.
func useApp(t *testing.T, app *App) {
	t.Helper()
	previous := appFactory
	SetAppFactory(func(context.Context, string) (*App, error) {
		return app, nil
	})
	t.Cleanup(func() { appFactory = previous })
}

// execute runs the root command with args and fresh flag values.
func execute(ctx context.Context, args ...string) (string, error) {
	refreshQuery, refreshWait, refreshJSON = "", false, false
	statusJSON, resultJSON = false, false
	mcpHTTPAddr, serveAddr, configPath = "", "", ""

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	// Subcommands keep the first context they were executed with.
	for _, c := range rootCmd.Commands() {
		c.SetContext(ctx)
	}

	err := rootCmd.ExecuteContext(ctx)
	return buf.String(), err
}
