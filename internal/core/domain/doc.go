// Package domain defines the core business entities for DeepResearchPod.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Task: One tracked research refresh attempt and its lifecycle
//   - ResearchRecord: The latest persisted research for a topic
//   - Source: An external citation attached to research
//   - ResearchResult: The canonical {summary, sources} shape of a finished job
//   - RawPayload: Loosely typed provider output prior to normalisation
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
