// Package tui renders a live terminal view of a research task as it moves
// through queued, running and its terminal status.
package tui

import (
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driving"
)

// Ports aggregates the driving ports required by the TUI.
type Ports struct {
	// Research reads task state.
	Research driving.ResearchService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Research == nil {
		return ErrMissingResearchService
	}
	return nil
}
