package tui

import "errors"

// ErrMissingResearchService is returned when the research service is not provided.
var ErrMissingResearchService = errors.New("tui: research service is required")

// ErrMissingTaskID is returned when no task is given to watch.
var ErrMissingTaskID = errors.New("tui: task id is required")
