package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

func TestNewWatcher_Validation(t *testing.T) {
	_, err := NewWatcher(nil, func(domain.Config) {})
	assert.Error(t, err)

	l := setupTestLoader(t, "", nil)
	_, err = NewWatcher(l, nil)
	assert.Error(t, err)
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	l := setupTestLoader(t, "[research]\nprocessor = \"core\"\n", nil)

	changes := make(chan domain.Config, 4)
	w, err := NewWatcher(l, func(cfg domain.Config) { changes <- cfg }, WithDebounce(20*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(l.Path(), []byte("[research]\nprocessor = \"ultra\"\npoll_interval_seconds = 7\n"), 0600))

	select {
	case cfg := <-changes:
		assert.Equal(t, "ultra", cfg.Research.Processor)
		assert.Equal(t, 7*time.Second, cfg.Research.PollInterval)
	case <-time.After(5 * time.Second):
		t.Fatal("config change not observed")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_IgnoresOtherFiles(t *testing.T) {
	l := setupTestLoader(t, "", nil)

	changes := make(chan domain.Config, 1)
	w, err := NewWatcher(l, func(cfg domain.Config) { changes <- cfg }, WithDebounce(10*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(l.Path()), "other.toml"), []byte("x = 1"), 0600))

	select {
	case <-changes:
		t.Fatal("unexpected reload")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcher_KeepsPreviousOnInvalidFile(t *testing.T) {
	l := setupTestLoader(t, "", nil)

	var calls int
	w, err := NewWatcher(l, func(domain.Config) { calls++ })
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(l.Path(), []byte("not = [valid"), 0600))
	w.reload()
	assert.Equal(t, 0, calls)

	require.NoError(t, os.WriteFile(l.Path(), []byte("[research]\nlimit = 3\n"), 0600))
	w.reload()
	assert.Equal(t, 1, calls)
}
