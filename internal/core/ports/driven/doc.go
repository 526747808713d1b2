// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - DocumentStore: Task and research persistence (durable, in-memory, or the
//     fallback composite of both)
//   - ResearchProvider: Third-party long-running research job API
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - ResultFetcher: Direct result retrieval, used for unrecognised job statuses
//   - Metrics: Orchestration metrics. Without it, NopMetrics is used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
