package driven

import (
	"context"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

// Normaliser converts a completed job's loosely typed payload into a
// canonical result. Unexpected shapes degrade to best-effort extraction
// rather than failing.
type Normaliser interface {
	// Normalise extracts {summary, sources} from a complete payload.
	// Returns domain.ErrInvalidInput only for a nil payload.
	Normalise(ctx context.Context, payload domain.RawPayload) (*domain.ResearchResult, error)
}
