// Package parallel implements the research provider port against the
// Parallel Task API.
//
// A run is created with POST /v1/tasks/runs and polled with
// GET /v1/tasks/runs/{run_id}. Once the run reports completion the client
// fetches GET /v1/tasks/runs/{run_id}/result and merges its output into the
// status payload, so callers see a single loosely typed document.
//
// Requests are throttled with a token bucket and back off after 429
// responses, honouring Retry-After when the API supplies it.
package parallel
