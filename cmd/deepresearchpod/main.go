package main

import (
	"context"
	"os"

	"github.com/custodia-labs/deepresearchpod/internal/adapters/driving/cli"
	"github.com/custodia-labs/deepresearchpod/internal/bootstrap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.SetVersion(version)
	cli.SetAppFactory(newApp)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

func newApp(ctx context.Context, path string) (*cli.App, error) {
	c, err := bootstrap.Build(ctx, path)
	if err != nil {
		return nil, err
	}
	return &cli.App{
		Config:   c.Config,
		Research: c.Orchestrator,
		HTTP:     c.HTTP,
		MCP:      c.MCP,
		Wait:     c.Wait,
		Watch:    c.Watch,
		Close:    c.Close,
	}, nil
}
