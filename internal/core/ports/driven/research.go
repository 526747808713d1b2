package driven

import (
	"context"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

// ResearchProvider is the boundary to a third-party long-running research job API.
// Its wire schema is provider-defined and returned loosely typed.
type ResearchProvider interface {
	// Submit enqueues a research job and returns the provider's job id.
	// Returns a *domain.SubmissionError if the provider rejects the request
	// or returns no identifier.
	Submit(ctx context.Context, query, processor string) (string, error)

	// FetchStatus retrieves the current state of a job. Once the job reports a
	// complete status the payload also carries its output.
	FetchStatus(ctx context.Context, runID string) (domain.RawPayload, error)
}

// ResultFetcher is optionally implemented by providers that can return a job's
// output independently of its status. It is used when the provider reports a
// status outside the known vocabulary.
type ResultFetcher interface {
	FetchResult(ctx context.Context, runID string) (domain.RawPayload, error)
}
