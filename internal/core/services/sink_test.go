package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deepresearchpod/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

func TestResultSink_UpsertTwiceKeepsOneRecord(t *testing.T) {
	store := memory.NewDocumentStore()
	sink := NewResultSink(store)
	ctx := context.Background()

	first := time.Date(2026, 1, 18, 12, 0, 0, 0, time.UTC)
	sink.now = func() time.Time { return first }
	require.NoError(t, sink.UpsertResult(ctx, "climate", domain.ResearchResult{
		Summary: "old",
		Sources: []domain.Source{{Title: "Old", URL: "https://old.test/"}, {Title: "Older", URL: "https://older.test/"}},
	}))

	second := first.Add(time.Hour)
	sink.now = func() time.Time { return second }
	require.NoError(t, sink.UpsertResult(ctx, "climate", domain.ResearchResult{
		Summary: "new",
		Sources: []domain.Source{{Title: "New", URL: "https://new.test/"}},
	}))

	assert.Equal(t, 1, store.Len(domain.CollectionResearch))

	record, err := sink.GetResult(ctx, "climate")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, "climate", record.TopicID)
	assert.Equal(t, "new", record.Summary)
	require.Len(t, record.Sources, 1)
	assert.Equal(t, "https://new.test/", record.Sources[0].URL)
	assert.True(t, second.Equal(record.GeneratedAt))
}

func TestResultSink_EmptySourcesOverwrite(t *testing.T) {
	sink := NewResultSink(memory.NewDocumentStore())
	ctx := context.Background()

	require.NoError(t, sink.UpsertResult(ctx, "tech", domain.ResearchResult{
		Summary: "S", Sources: []domain.Source{{URL: "https://a.test/"}},
	}))
	require.NoError(t, sink.UpsertResult(ctx, "tech", domain.ResearchResult{Summary: "S2"}))

	record, err := sink.GetResult(ctx, "tech")
	require.NoError(t, err)
	assert.Equal(t, "S2", record.Summary)
	assert.NotNil(t, record.Sources)
	assert.Empty(t, record.Sources)
}

func TestResultSink_TopicsAreIndependent(t *testing.T) {
	store := memory.NewDocumentStore()
	sink := NewResultSink(store)
	ctx := context.Background()

	require.NoError(t, sink.UpsertResult(ctx, "a", domain.ResearchResult{Summary: "A"}))
	require.NoError(t, sink.UpsertResult(ctx, "b", domain.ResearchResult{Summary: "B"}))
	assert.Equal(t, 2, store.Len(domain.CollectionResearch))

	a, err := sink.GetResult(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "A", a.Summary)
}

func TestResultSink_Absent(t *testing.T) {
	sink := NewResultSink(memory.NewDocumentStore())

	record, err := sink.GetResult(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, record)
}

func TestResultSink_RequiresTopic(t *testing.T) {
	sink := NewResultSink(memory.NewDocumentStore())

	err := sink.UpsertResult(context.Background(), "", domain.ResearchResult{Summary: "S"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestResultSink_PropagatesDurableErrors(t *testing.T) {
	durable := &outageStore{DocumentStore: memory.NewDocumentStore()}
	durable.down.Store(true)
	sink := NewResultSink(durable)

	err := sink.UpsertResult(context.Background(), "climate", domain.ResearchResult{Summary: "S"})
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}
