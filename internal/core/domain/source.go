package domain

import "time"

// Source is an external citation attached to research output.
// Sources have no identity beyond field equality and are not deduplicated.
type Source struct {
	// Title is the citation title.
	Title string `json:"title"`

	// URL is the only required field.
	URL string `json:"url"`

	// Snippet is an optional excerpt.
	Snippet string `json:"snippet,omitempty"`

	// SourceName is the optional publisher name.
	SourceName string `json:"source_name,omitempty"`

	// PublishedAt is the optional publication time.
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// ResearchResult is the canonical {summary, sources} shape produced by a
// finished research job regardless of the provider's response variant.
type ResearchResult struct {
	Summary string   `json:"summary"`
	Sources []Source `json:"sources"`
}

// ResearchRecord is the latest known research for a topic.
// There is at most one record per TopicID; later writes supersede earlier ones.
type ResearchRecord struct {
	TopicID     string    `json:"topic_id"`
	Summary     string    `json:"summary"`
	Sources     []Source  `json:"sources"`
	GeneratedAt time.Time `json:"generated_at"`
}
