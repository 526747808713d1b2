package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driven"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driving"
)

// Ensure ResultSink implements the interface.
var _ driving.ResultSink = (*ResultSink)(nil)

// ResultSink persists the latest research per topic.
type ResultSink struct {
	store driven.DocumentStore
	now   func() time.Time
}

// NewResultSink creates a sink over the given store.
func NewResultSink(store driven.DocumentStore) *ResultSink {
	return &ResultSink{store: store, now: time.Now}
}

// UpsertResult overwrites summary, sources and generated_at for the topic.
// The topic id is the document key, so there is at most one record per topic.
func (s *ResultSink) UpsertResult(ctx context.Context, topicID string, result domain.ResearchResult) error {
	if topicID == "" {
		return domain.ErrInvalidInput
	}

	sources := result.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	record := domain.ResearchRecord{
		TopicID:     topicID,
		Summary:     result.Summary,
		Sources:     sources,
		GeneratedAt: s.now().UTC(),
	}

	value, err := toValue(record)
	if err != nil {
		return fmt.Errorf("encode research: %w", err)
	}
	fields, ok := value.(map[string]any)
	if !ok {
		return fmt.Errorf("encode research: unexpected %T", value)
	}
	set := driven.Document(fields)

	filter := driven.Filter{driven.IDField: topicID}
	if err := s.store.UpdateOne(ctx, domain.CollectionResearch, filter, set, true); err != nil {
		return fmt.Errorf("upsert research %s: %w", topicID, err)
	}
	return nil
}

// GetResult returns the research for a topic, or nil if none is stored.
func (s *ResultSink) GetResult(ctx context.Context, topicID string) (*domain.ResearchRecord, error) {
	if topicID == "" {
		return nil, nil
	}
	doc, err := s.store.FindOne(ctx, domain.CollectionResearch, driven.Filter{driven.IDField: topicID})
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get research %s: %w", topicID, err)
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("decode research: %w", err)
	}
	var record domain.ResearchRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode research: %w", err)
	}
	if record.TopicID == "" {
		record.TopicID = topicID
	}
	if record.Sources == nil {
		record.Sources = []domain.Source{}
	}
	return &record, nil
}
