package mcp

import (
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the MCP server.
type Ports struct {
	// Research refreshes topics and reads tasks and results.
	Research driving.ResearchService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Research == nil {
		return ErrMissingResearchService
	}
	return nil
}
