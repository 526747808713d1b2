// Package mcp exposes research refresh as MCP (Model Context Protocol) tools
// and resources so assistants can trigger and read topic research.
package mcp

import "errors"

// ErrMissingResearchService is returned when the research service is not provided.
var ErrMissingResearchService = errors.New("mcp: research service is required")

// errTopicRequired is returned by tools called without a topic id.
var errTopicRequired = errors.New("topic_id is required")
