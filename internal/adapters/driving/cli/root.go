// Package cli provides the deepresearchpod command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/deepresearchpod/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/deepresearchpod/internal/adapters/driving/mcp"
	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driving"
	"github.com/custodia-labs/deepresearchpod/internal/logger"
)

// version is set at build time.
var version = "dev"

var (
	configPath string
	verbose    bool
)

// App holds the wired application the commands operate on.
type App struct {
	Config domain.Config

	// Research is the refresh consumer boundary.
	Research driving.ResearchService

	// HTTP serves the REST endpoints. Required by serve.
	HTTP *httpapi.Server

	// MCP serves the MCP tools. Required by serve and mcp.
	MCP *mcp.Server

	// Wait blocks until background drivers finish or ctx is done.
	Wait func(ctx context.Context) error

	// Watch reloads configuration until ctx is done. Optional.
	Watch func(ctx context.Context) error

	// Close releases storage connections. Optional.
	Close func(ctx context.Context) error
}

// AppFactory builds an App from the config file at path.
type AppFactory func(ctx context.Context, path string) (*App, error)

var appFactory AppFactory

// errNotConfigured is returned when no AppFactory has been set.
var errNotConfigured = errors.New("application not configured")

var rootCmd = &cobra.Command{
	Use:   "deepresearchpod",
	Short: "Refresh and serve deep research for topics",
	Long: `deepresearchpod runs long deep-research jobs against an external provider
and stores the latest summary and sources for each topic.

A refresh returns a task id immediately. The job is polled in the background
until it completes, fails or times out, and the result replaces the topic's
previous research.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default ~/.deepresearchpod/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetAppFactory sets the factory used by commands to build the application.
func SetAppFactory(f AppFactory) {
	appFactory = f
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadApp(ctx context.Context) (*App, error) {
	if appFactory == nil {
		return nil, errNotConfigured
	}
	app, err := appFactory(ctx, configPath)
	if err != nil {
		return nil, fmt.Errorf("starting: %w", err)
	}
	if app == nil || app.Research == nil {
		return nil, errNotConfigured
	}
	return app, nil
}

// drain waits for in-flight drivers and releases storage.
func (a *App) drain(ctx context.Context) {
	if a.Wait != nil {
		if err := a.Wait(ctx); err != nil {
			logger.Warn("drivers still running at shutdown: %v", err)
		}
	}
	if a.Close != nil {
		if err := a.Close(ctx); err != nil {
			logger.Warn("closing storage: %v", err)
		}
	}
}
