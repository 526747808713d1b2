// Package bootstrap wires configuration, storage, the research provider and
// the driving adapters into a runnable application.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/custodia-labs/deepresearchpod/internal/adapters/driven/config/file"
	promMetrics "github.com/custodia-labs/deepresearchpod/internal/adapters/driven/metrics/prometheus"
	"github.com/custodia-labs/deepresearchpod/internal/adapters/driven/research/parallel"
	"github.com/custodia-labs/deepresearchpod/internal/adapters/driven/storage/fallback"
	"github.com/custodia-labs/deepresearchpod/internal/adapters/driven/storage/mongo"
	"github.com/custodia-labs/deepresearchpod/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/deepresearchpod/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/deepresearchpod/internal/adapters/driving/mcp"
	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driven"
	"github.com/custodia-labs/deepresearchpod/internal/core/services"
	"github.com/custodia-labs/deepresearchpod/internal/logger"
	"github.com/custodia-labs/deepresearchpod/internal/normalisers/taskoutput"
)

// Container holds the wired application.
type Container struct {
	Config       domain.Config
	Loader       *file.Loader
	Store        *fallback.Store
	Runner       *services.JobRunner
	Orchestrator *services.Orchestrator
	Metrics      *promMetrics.Metrics
	HTTP         *httpapi.Server
	MCP          *mcp.Server
}

// Build loads configuration from path and wires every component.
// Background drivers run under ctx.
func Build(ctx context.Context, path string) (*Container, error) {
	loader, err := file.NewLoader(path)
	if err != nil {
		return nil, err
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	return BuildWithConfig(ctx, loader, cfg)
}

// BuildWithConfig wires every component from an already loaded cfg.
func BuildWithConfig(ctx context.Context, loader *file.Loader, cfg domain.Config) (*Container, error) {
	durable, err := openDurable(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	metrics := promMetrics.MustNewMetrics(prometheus.NewRegistry())
	store := fallback.NewStore(durable, fallback.WithMetrics(metrics))

	provider := parallel.NewClient(parallel.Config{
		APIKey:            cfg.Research.APIKey,
		BaseURL:           cfg.Research.BaseURL,
		RequestsPerSecond: cfg.Research.RequestsPerSecond,
	})
	if cfg.Research.APIKey == "" {
		logger.Warn("PARALLEL_API_KEY is not set; refreshes will fail")
	}

	runner := services.NewJobRunner(provider, taskoutput.New(), cfg.Research.Policy(),
		services.WithRunnerMetrics(metrics))
	orchestrator := services.NewOrchestrator(
		services.NewTaskRegistry(store),
		runner,
		services.NewResultSink(store),
		services.WithOrchestratorMetrics(metrics),
		services.WithDriverContext(ctx),
	)

	httpServer, err := httpapi.NewServer(orchestrator,
		httpapi.WithMetricsHandler(metrics.Handler()),
		httpapi.WithBackendReporter(func(collection, id string) string {
			return string(store.Backend(collection, id))
		}),
		httpapi.WithCORSOrigins(cfg.Server.CORSOrigins),
		httpapi.WithDebug(cfg.Server.Debug),
	)
	if err != nil {
		return nil, fmt.Errorf("creating http server: %w", err)
	}

	mcpServer, err := mcp.NewServer(&mcp.Ports{Research: orchestrator})
	if err != nil {
		return nil, fmt.Errorf("creating mcp server: %w", err)
	}

	return &Container{
		Config:       cfg,
		Loader:       loader,
		Store:        store,
		Runner:       runner,
		Orchestrator: orchestrator,
		Metrics:      metrics,
		HTTP:         httpServer,
		MCP:          mcpServer,
	}, nil
}

// openDurable connects the configured durable backend. It returns a nil
// store when the driver is memory or no client can be created, in which case
// every document is kept in memory. A MongoDB server that is down at startup
// keeps its client, so each operation tries it again.
func openDurable(ctx context.Context, cfg domain.StorageConfig) (driven.DocumentStore, error) {
	switch cfg.Driver {
	case domain.StorageDriverMemory:
		logger.Info("using in-memory storage")
		return nil, nil

	case domain.StorageDriverSQLite:
		store, err := sqlite.NewStore(cfg.DataDir, cfg.ConnectTimeout)
		if err != nil {
			logger.Warn("sqlite unavailable, using in-memory storage: %v", err)
			return nil, nil
		}
		logger.Info("using sqlite storage at %s", store.Path())
		return store, nil

	case domain.StorageDriverMongo, "":
		if cfg.URI == "" {
			logger.Warn("MONGODB_URI is not set; using in-memory storage")
			return nil, nil
		}
		store, err := mongo.NewStore(ctx, cfg.URI, cfg.Database, cfg.ConnectTimeout)
		if errors.Is(err, domain.ErrInvalidInput) {
			return nil, err
		}
		if err != nil {
			logger.Warn("mongodb client unavailable, using in-memory storage: %v", err)
			return nil, nil
		}
		if err := store.Ping(ctx); err != nil {
			logger.Warn("mongodb not reachable yet, operations fall back to memory until it is: %v", err)
		}
		logger.Info("using mongodb database %s", cfg.Database)
		return store, nil

	default:
		return nil, fmt.Errorf("%w: unknown storage driver %q", domain.ErrInvalidInput, cfg.Driver)
	}
}

// ApplyConfig pushes reloaded settings into the running components.
// Storage and listen addresses are only read at startup.
func (c *Container) ApplyConfig(cfg domain.Config) {
	policy := cfg.Research.Policy()
	c.Runner.SetPolicy(policy)
	c.Config.Research = cfg.Research
	logger.Info("research policy updated: processor=%s poll=%s timeout=%s",
		policy.Processor, policy.PollInterval, policy.Timeout)
}

// Watch reloads the config file on change until ctx is done. It returns
// immediately when the config directory does not exist.
func (c *Container) Watch(ctx context.Context) error {
	if c.Loader == nil {
		return nil
	}
	if _, err := os.Stat(filepath.Dir(c.Loader.Path())); err != nil {
		logger.Debug("not watching config: %v", err)
		return nil
	}
	watcher, err := file.NewWatcher(c.Loader, c.ApplyConfig)
	if err != nil {
		return err
	}
	return watcher.Run(ctx)
}

// Wait blocks until in-flight research tasks finish or ctx is done.
func (c *Container) Wait(ctx context.Context) error {
	return c.Orchestrator.Wait(ctx)
}

// Close releases the durable store.
func (c *Container) Close(ctx context.Context) error {
	return c.Store.Close(ctx)
}
