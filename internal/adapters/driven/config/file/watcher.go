package file

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/logger"
)

// DefaultDebounce coalesces the burst of events an editor save produces.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads the configuration file when it changes and hands the
// result to a callback.
type Watcher struct {
	loader   *Loader
	debounce time.Duration
	onChange func(domain.Config)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the delay between the last file event and the reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher over the loader's file.
func NewWatcher(loader *Loader, onChange func(domain.Config), opts ...WatcherOption) (*Watcher, error) {
	if loader == nil {
		return nil, errors.New("config loader required")
	}
	if onChange == nil {
		return nil, errors.New("config change callback required")
	}
	w := &Watcher{loader: loader, debounce: DefaultDebounce, onChange: onChange}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches until ctx is done. The parent directory is watched so that
// editors replacing the file atomically are still observed.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer fsw.Close()

	path := w.loader.Path()
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}
	logger.Debug("watching %s for changes", path)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher: %v", err)
		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := w.loader.Load()
	if err != nil {
		logger.Warn("config reload failed, keeping previous settings: %v", err)
		return
	}
	policy := cfg.Research.Policy()
	logger.Info("config reloaded: processor=%s poll=%s timeout=%s",
		policy.Processor, policy.PollInterval, policy.Timeout)
	w.onChange(cfg)
}
