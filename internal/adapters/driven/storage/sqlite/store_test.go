package sqlite

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driven"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, func()) {
	t.Helper()

	tempDir, err := os.MkdirTemp("", "deepresearchpod-test-*")
	require.NoError(t, err)

	store, err := NewStore(tempDir, 5*time.Second)
	require.NoError(t, err)
	require.NotNil(t, store)

	cleanup := func() {
		assert.NoError(t, store.Close(context.Background()))
		assert.NoError(t, os.RemoveAll(tempDir))
	}

	return store, cleanup
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := os.Stat(store.Path())
	assert.NoError(t, err)

	var version int
	require.NoError(t, store.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version))
	assert.Equal(t, 1, version)
}

func TestNewStore_Reopen(t *testing.T) {
	tempDir := t.TempDir()
	ctx := context.Background()

	store, err := NewStore(tempDir, time.Second)
	require.NoError(t, err)
	require.NoError(t, store.InsertOne(ctx, domain.CollectionTasks, driven.Document{"_id": "t1"}))
	require.NoError(t, store.Close(ctx))

	// Migrations are not re-applied and data survives.
	store, err = NewStore(tempDir, time.Second)
	require.NoError(t, err)
	defer store.Close(ctx)

	found, err := store.FindOne(ctx, domain.CollectionTasks, driven.Filter{"_id": "t1"})
	require.NoError(t, err)
	assert.Equal(t, "t1", found.ID())
}

func TestStore_InsertAndFind(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := driven.Document{"_id": "t1", "topic_id": "climate", "status": "queued", "attempts": 2}
	require.NoError(t, store.InsertOne(ctx, domain.CollectionTasks, doc))

	found, err := store.FindOne(ctx, domain.CollectionTasks, driven.Filter{"_id": "t1"})
	require.NoError(t, err)
	assert.Equal(t, "climate", found["topic_id"])
	assert.Equal(t, "queued", found["status"])

	found, err = store.FindOne(ctx, domain.CollectionTasks, driven.Filter{"topic_id": "climate", "attempts": 2})
	require.NoError(t, err)
	assert.Equal(t, "t1", found.ID())
}

func TestStore_FindOne_NotFound(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.FindOne(ctx, domain.CollectionTasks, driven.Filter{"_id": "missing"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Same id in another collection is invisible.
	require.NoError(t, store.InsertOne(ctx, domain.CollectionResearch, driven.Document{"_id": "t1"}))
	_, err = store.FindOne(ctx, domain.CollectionTasks, driven.Filter{"_id": "t1"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_FindOne_InvalidField(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	_, err := store.FindOne(context.Background(), domain.CollectionTasks, driven.Filter{"status') OR 1=1 --": "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_FindOne_CompositeFilter(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.InsertOne(ctx, domain.CollectionResearch, driven.Document{
		"_id": "r1", "tags": []any{"a", "b"},
	}))

	found, err := store.FindOne(ctx, domain.CollectionResearch, driven.Filter{"tags": []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "r1", found.ID())

	_, err = store.FindOne(ctx, domain.CollectionResearch, driven.Filter{"tags": []string{"a"}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_InsertOne_RequiresID(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.InsertOne(context.Background(), domain.CollectionTasks, driven.Document{"topic_id": "climate"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_InsertOne_Duplicate(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.InsertOne(ctx, domain.CollectionTasks, driven.Document{"_id": "t1"}))
	err := store.InsertOne(ctx, domain.CollectionTasks, driven.Document{"_id": "t1"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStore_UpdateOne_Merges(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.InsertOne(ctx, domain.CollectionTasks, driven.Document{
		"_id": "t1", "topic_id": "climate", "status": "queued",
	}))

	err := store.UpdateOne(ctx, domain.CollectionTasks,
		driven.Filter{"_id": "t1"}, driven.Document{"status": "running", "_id": "ignored"}, false)
	require.NoError(t, err)

	found, err := store.FindOne(ctx, domain.CollectionTasks, driven.Filter{"_id": "t1"})
	require.NoError(t, err)
	assert.Equal(t, "running", found["status"])
	assert.Equal(t, "climate", found["topic_id"])
	assert.Equal(t, "t1", found.ID())
}

func TestStore_UpdateOne_MissingWithoutUpsert(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	err := store.UpdateOne(context.Background(), domain.CollectionTasks,
		driven.Filter{"_id": "t1"}, driven.Document{"status": "running"}, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_UpdateOne_Upsert(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	filter := driven.Filter{"_id": "climate"}
	require.NoError(t, store.UpdateOne(ctx, domain.CollectionResearch, filter, driven.Document{"summary": "first"}, true))
	require.NoError(t, store.UpdateOne(ctx, domain.CollectionResearch, filter, driven.Document{"summary": "second"}, true))

	var count int
	require.NoError(t, store.db.QueryRow(
		"SELECT COUNT(*) FROM documents WHERE collection = ?", domain.CollectionResearch).Scan(&count))
	assert.Equal(t, 1, count)

	found, err := store.FindOne(ctx, domain.CollectionResearch, filter)
	require.NoError(t, err)
	assert.Equal(t, "second", found["summary"])
}

func TestStore_UpdateOne_UpsertGeneratesID(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.UpdateOne(ctx, domain.CollectionResearch,
		driven.Filter{"topic_id": "tech"}, driven.Document{"summary": "S"}, true))

	found, err := store.FindOne(ctx, domain.CollectionResearch, driven.Filter{"topic_id": "tech"})
	require.NoError(t, err)
	assert.NotEmpty(t, found.ID())
	assert.Equal(t, "S", found["summary"])
}

func TestStore_ConcurrentUpdates(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			errs <- store.UpdateOne(ctx, domain.CollectionTasks,
				driven.Filter{"_id": fmt.Sprintf("t%d", n)}, driven.Document{"status": "queued"}, true)
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	for i := 0; i < 20; i++ {
		_, err := store.FindOne(ctx, domain.CollectionTasks, driven.Filter{"_id": fmt.Sprintf("t%d", i)})
		assert.NoError(t, err)
	}
}

func TestStore_ClosedIsUnavailable(t *testing.T) {
	store, err := NewStore(t.TempDir(), time.Second)
	require.NoError(t, err)
	require.NoError(t, store.Close(context.Background()))

	_, err = store.FindOne(context.Background(), domain.CollectionTasks, driven.Filter{"_id": "t1"})
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestClassify(t *testing.T) {
	assert.Nil(t, classify("find", nil))
	assert.Equal(t, domain.ErrNotFound, classify("find", domain.ErrNotFound))

	err := classify("find", context.DeadlineExceeded)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	err = classify("insert", fmt.Errorf("no such table: documents"))
	assert.ErrorIs(t, err, domain.ErrDurableStore)
	assert.NotErrorIs(t, err, domain.ErrStorageUnavailable)
}
