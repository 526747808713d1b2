package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driven"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driving"
	"github.com/custodia-labs/deepresearchpod/internal/logger"
)

// Ensure JobRunner implements the interface.
var _ driving.JobRunner = (*JobRunner)(nil)

// JobRunner submits research jobs and polls them to completion.
type JobRunner struct {
	provider   driven.ResearchProvider
	normaliser driven.Normaliser
	metrics    driven.Metrics
	now        func() time.Time

	mu     sync.RWMutex
	policy domain.ResearchPolicy
}

// RunnerOption configures a JobRunner.
type RunnerOption func(*JobRunner)

// WithRunnerMetrics records every observed poll status.
func WithRunnerMetrics(m driven.Metrics) RunnerOption {
	return func(r *JobRunner) {
		if m != nil {
			r.metrics = m
		}
	}
}

// NewJobRunner creates a runner. provider may be nil, in which case every
// run fails with a submission error.
func NewJobRunner(
	provider driven.ResearchProvider,
	normaliser driven.Normaliser,
	policy domain.ResearchPolicy,
	opts ...RunnerOption,
) *JobRunner {
	r := &JobRunner{
		provider:   provider,
		normaliser: normaliser,
		metrics:    driven.NopMetrics{},
		now:        time.Now,
		policy:     policy,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the current poll policy.
func (r *JobRunner) Policy() domain.ResearchPolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.policy
}

// SetPolicy replaces the poll policy used by subsequent runs.
func (r *JobRunner) SetPolicy(policy domain.ResearchPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policy = policy
}

// Run submits query and polls until the job completes, fails or exceeds
// policy.Timeout. Unknown statuses and transient fetch failures are retried;
// more than policy.MaxFetchErrors consecutive fetch failures end the run.
// A provider error that is not transient, such as 401 or 404, ends it at once.
func (r *JobRunner) Run(ctx context.Context, query string, policy domain.ResearchPolicy) (*domain.ResearchResult, error) {
	if r.provider == nil {
		return nil, &domain.SubmissionError{Message: "research provider not configured", Cause: domain.ErrProviderNotConfigured}
	}

	runID, err := r.provider.Submit(ctx, query, policy.Processor)
	if err != nil {
		if domain.IsSubmissionError(err) {
			return nil, err
		}
		return nil, &domain.SubmissionError{Message: "provider rejected the request", Cause: err}
	}
	if runID == "" {
		return nil, &domain.SubmissionError{Message: "provider returned no job identifier"}
	}

	log := logger.With("run_id", runID, "processor", policy.Processor)
	log.Infof("research job submitted")

	start := r.now()
	fetchErrors := 0
	for {
		elapsed := r.now().Sub(start)

		payload, err := r.provider.FetchStatus(ctx, runID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if domain.IsProviderError(err) && !domain.IsTransientProviderError(err) {
				return nil, fmt.Errorf("fetch status of %s: %w", runID, err)
			}
			fetchErrors++
			if fetchErrors > policy.MaxFetchErrors {
				return nil, fmt.Errorf("fetch status of %s: %w", runID, err)
			}
			log.Warnf("status fetch failed (%d/%d): %v", fetchErrors, policy.MaxFetchErrors, err)

		default:
			fetchErrors = 0
			status := payload.JobStatus()
			r.metrics.PollObserved(status)
			log.Debugf("status %q -> %s (elapsed %s)", payload.Status(), status, elapsed.Round(time.Millisecond))

			switch status {
			case domain.JobComplete:
				return r.complete(ctx, payload, policy.Limit)
			case domain.JobError:
				msg := payload.ErrorMessage()
				if msg == "" {
					msg = "research job failed"
				}
				return nil, &domain.JobFailedError{RunID: runID, Message: msg}
			case domain.JobUnknown:
				log.Warnf("unknown status %q, attempting to fetch result", payload.Status())
				if result, ok := r.tryResult(ctx, runID, policy.Limit); ok {
					return result, nil
				}
			}
		}

		remaining := policy.Timeout - r.now().Sub(start)
		if remaining <= 0 {
			log.Warnf("research job abandoned after %s", policy.Timeout)
			return nil, &domain.TimeoutError{RunID: runID, Timeout: policy.Timeout}
		}
		if err := sleep(ctx, min(policy.PollInterval, remaining)); err != nil {
			return nil, err
		}
	}
}

func (r *JobRunner) complete(ctx context.Context, payload domain.RawPayload, limit int) (*domain.ResearchResult, error) {
	result, err := r.normaliser.Normalise(ctx, payload)
	if err != nil {
		return nil, fmt.Errorf("normalise output: %w", err)
	}
	if limit > 0 && len(result.Sources) > limit {
		result.Sources = result.Sources[:limit]
	}
	return result, nil
}

// tryResult asks the provider for output directly. It reports false when the
// provider cannot serve results independently or has none yet.
func (r *JobRunner) tryResult(ctx context.Context, runID string, limit int) (*domain.ResearchResult, bool) {
	fetcher, ok := r.provider.(driven.ResultFetcher)
	if !ok {
		return nil, false
	}
	payload, err := fetcher.FetchResult(ctx, runID)
	if err != nil {
		logger.Debug("result for %s not available: %v", runID, err)
		return nil, false
	}
	if _, ok := payload.Output(); !ok {
		return nil, false
	}
	result, err := r.complete(ctx, payload, limit)
	if err != nil {
		return nil, false
	}
	return result, true
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// errorMessage is the text recorded on a failed task.
func errorMessage(err error) string {
	var failed *domain.JobFailedError
	if errors.As(err, &failed) {
		return failed.Message
	}
	return err.Error()
}
