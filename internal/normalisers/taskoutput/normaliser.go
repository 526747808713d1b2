package taskoutput

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driven"
	"github.com/custodia-labs/deepresearchpod/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles research job payloads.
type Normaliser struct{}

// New creates a new task output normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Normalise extracts the canonical result from a complete payload. The
// payload's output (or result) is preferred; without one, the payload
// itself is searched for summary fields.
func (n *Normaliser) Normalise(_ context.Context, payload domain.RawPayload) (*domain.ResearchResult, error) {
	if payload == nil {
		return nil, domain.ErrInvalidInput
	}

	var result domain.ResearchResult
	if output, ok := payload.Output(); ok {
		result = Extract(output)
	} else {
		logger.Debug("payload has no output, searching top-level fields")
		result = Extract(map[string]any(payload))
	}
	return &result, nil
}

// Extract converts any output shape into a canonical result.
// Sources is never nil.
func Extract(output any) domain.ResearchResult {
	var result domain.ResearchResult
	switch v := output.(type) {
	case nil:
	case map[string]any:
		result = fromMap(v)
	case domain.RawPayload:
		result = fromMap(v)
	case string:
		result = fromString(v)
	default:
		logger.Debug("unexpected output type %T, using its string form", output)
		result.Summary = fmt.Sprint(v)
	}
	if result.Sources == nil {
		result.Sources = []domain.Source{}
	}
	return result
}

func fromMap(output map[string]any) domain.ResearchResult {
	var result domain.ResearchResult

	if summary := firstNonEmpty(str(output["summary"]), str(output["answer"])); summary != "" {
		result.Summary = summary
	} else {
		switch content := output["content"].(type) {
		case string:
			inner := fromString(content)
			result.Summary = inner.Summary
			result.Sources = append(result.Sources, inner.Sources...)
		case map[string]any:
			inner := fromMap(content)
			result.Summary = inner.Summary
			result.Sources = append(result.Sources, inner.Sources...)
		default:
			result.Summary = str(output["text"])
		}
	}

	result.Sources = append(result.Sources, structuredSources(output)...)
	result.Sources = append(result.Sources, basisSources(output)...)
	return result
}

func fromString(text string) domain.ResearchResult {
	trimmed := strings.TrimSpace(text)

	if strings.HasPrefix(trimmed, "{") {
		if obj, ok := decodeObject(trimmed); ok {
			return fromMap(obj)
		}
	}

	if LooksComposite(text) {
		parsed := ParseComposite(text)
		return domain.ResearchResult{
			Summary: parsed.Content,
			Sources: citationSources(parsed.Citations),
		}
	}

	return domain.ResearchResult{Summary: text}
}

// decodeObject parses a JSON object, repairing it first if it is malformed.
func decodeObject(text string) (map[string]any, bool) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err == nil {
		return obj, true
	}

	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		logger.Debug("output looks like JSON but could not be repaired: %v", err)
		return nil, false
	}
	if err := json.Unmarshal([]byte(repaired), &obj); err != nil {
		logger.Debug("repaired output is not a JSON object: %v", err)
		return nil, false
	}
	return obj, true
}
