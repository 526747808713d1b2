package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/deepresearchpod/internal/async"
	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driven"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driving"
	"github.com/custodia-labs/deepresearchpod/internal/logger"
)

// Ensure Orchestrator implements the interface.
var _ driving.ResearchService = (*Orchestrator)(nil)

var panicLog = async.LoggerFunc(logger.Error)

// Orchestrator creates refresh tasks and drives each one through
// queued -> running -> complete|error in the background.
type Orchestrator struct {
	registry driving.TaskRegistry
	runner   driving.JobRunner
	sink     driving.ResultSink
	metrics  driven.Metrics

	// ctx outlives the requests that start drivers.
	ctx context.Context

	mu       sync.Mutex
	inflight map[string]struct{}
	wg       sync.WaitGroup
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithOrchestratorMetrics records task starts and outcomes.
func WithOrchestratorMetrics(m driven.Metrics) OrchestratorOption {
	return func(o *Orchestrator) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithDriverContext sets the context background drivers run under.
// Defaults to context.Background().
func WithDriverContext(ctx context.Context) OrchestratorOption {
	return func(o *Orchestrator) {
		if ctx != nil {
			o.ctx = ctx
		}
	}
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(
	registry driving.TaskRegistry,
	runner driving.JobRunner,
	sink driving.ResultSink,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		registry: registry,
		runner:   runner,
		sink:     sink,
		metrics:  driven.NopMetrics{},
		ctx:      context.Background(),
		inflight: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Refresh records a queued task and starts its driver. It returns once the
// task exists; the outcome is only visible through the task's status.
func (o *Orchestrator) Refresh(ctx context.Context, topicID, query string) (string, error) {
	if topicID == "" {
		return "", domain.ErrInvalidInput
	}
	taskID, err := o.registry.CreateTask(ctx, topicID, query)
	if err != nil {
		return "", err
	}
	o.Start(taskID)
	return taskID, nil
}

// Task returns the current state of a task, or nil if it does not exist.
func (o *Orchestrator) Task(ctx context.Context, taskID string) (*domain.Task, error) {
	return o.registry.GetTask(ctx, taskID)
}

// Result returns the latest research for a topic, or nil if none exists.
func (o *Orchestrator) Result(ctx context.Context, topicID string) (*domain.ResearchRecord, error) {
	return o.sink.GetResult(ctx, topicID)
}

// Start runs the driver for taskID in a background goroutine.
// A panicking driver marks its task as failed.
func (o *Orchestrator) Start(taskID string) {
	name := "driver " + taskID

	o.wg.Add(1)
	async.Go(panicLog, name, func() {
		defer o.wg.Done()
		defer async.Recover(panicLog, name, o.failStored(o.ctx, taskID))
		_ = o.Run(o.ctx, taskID)
	})
}

// Run drives a single task to a terminal status. A panic after the task
// starts running marks it failed. A task that does not exist
// is skipped without error. Only one driver may run per task id; a second
// concurrent call returns domain.ErrTaskInProgress.
//
// Transitions are applied to the copy loaded here, so a status write that
// was lost does not prevent the terminal write.
func (o *Orchestrator) Run(ctx context.Context, taskID string) error {
	if !o.claim(taskID) {
		return domain.ErrTaskInProgress
	}
	defer o.release(taskID)

	log := logger.With("task_id", taskID)

	task, err := o.registry.GetTask(ctx, taskID)
	if err != nil {
		log.Warnf("loading task: %v", err)
		return err
	}
	if task == nil {
		log.Debugf("task not found, nothing to drive")
		return nil
	}
	log = log.With("topic_id", task.TopicID)

	if err := o.registry.AdvanceTask(ctx, task, domain.Running()); err != nil {
		log.Warnf("cannot start task in status %s: %v", task.Status, err)
		return err
	}
	o.metrics.TaskStarted()
	started := time.Now()
	defer async.Recover(panicLog, "driver "+taskID, func(r any) {
		_ = o.finish(ctx, task, started, panicFailure(r))
	})

	result, err := o.runner.Run(ctx, task.Query, o.runner.Policy())
	if err != nil {
		log.Warnf("research failed: %v", err)
		return o.finish(ctx, task, started, domain.Failed(errorMessage(err)))
	}

	if err := o.sink.UpsertResult(ctx, task.TopicID, *result); err != nil {
		log.Warnf("storing research result: %v", err)
	}

	log.Infof("research complete with %d sources", len(result.Sources))
	return o.finish(ctx, task, started, domain.Completed(*result))
}

// Wait blocks until all background drivers have returned or ctx is done.
func (o *Orchestrator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) finish(ctx context.Context, task *domain.Task, started time.Time, update domain.TaskUpdate) error {
	elapsed := time.Duration(0)
	if !started.IsZero() {
		elapsed = time.Since(started)
	}
	o.metrics.TaskFinished(update.Status, elapsed)
	return o.registry.AdvanceTask(ctx, task, update)
}

// failStored fails a task whose driver panicked before loading it. A queued
// task is moved through running first so the failure is a valid transition.
func (o *Orchestrator) failStored(ctx context.Context, taskID string) func(any) {
	return func(r any) {
		task, err := o.registry.GetTask(ctx, taskID)
		if err != nil || task == nil || task.Status.IsTerminal() {
			return
		}
		if task.Status == domain.TaskQueued {
			if err := o.registry.AdvanceTask(ctx, task, domain.Running()); err != nil {
				return
			}
		}
		_ = o.finish(ctx, task, time.Time{}, panicFailure(r))
	}
}

func panicFailure(r any) domain.TaskUpdate {
	return domain.Failed(fmt.Sprintf("internal error: %v", r))
}

func (o *Orchestrator) claim(taskID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.inflight[taskID]; busy {
		return false
	}
	o.inflight[taskID] = struct{}{}
	return true
}

func (o *Orchestrator) release(taskID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.inflight, taskID)
}
