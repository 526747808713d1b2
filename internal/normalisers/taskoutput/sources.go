package taskoutput

import (
	"strings"
	"time"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
)

// sourceKeys are the output fields that may carry a source list, in order
// of preference.
var sourceKeys = []string{"sources", "results", "items", "articles", "citations"}

// publishedLayouts are the accepted published_at formats.
var publishedLayouts = []string{time.RFC3339, time.RFC3339Nano, "2006-01-02"}

// Sources converts a loosely typed list into sources. Entries that are not
// objects or lack a url are skipped.
func Sources(raw any) []domain.Source {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	var out []domain.Source
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if src, ok := toSource(entry); ok {
			out = append(out, src)
		}
	}
	return out
}

// structuredSources returns the first non-empty source list under any of
// the recognised keys.
func structuredSources(output map[string]any) []domain.Source {
	for _, key := range sourceKeys {
		if sources := Sources(output[key]); len(sources) > 0 {
			return sources
		}
	}
	return nil
}

// basisSources mines basis[].citations[] of a text output.
func basisSources(output map[string]any) []domain.Source {
	basis, ok := output["basis"].([]any)
	if !ok {
		return nil
	}
	var out []domain.Source
	for _, b := range basis {
		field, ok := b.(map[string]any)
		if !ok {
			continue
		}
		for _, src := range Sources(field["citations"]) {
			if src.Title == "" {
				src.Title = DefaultCitationTitle
			}
			out = append(out, src)
		}
	}
	return out
}

func toSource(entry map[string]any) (domain.Source, bool) {
	url := strings.TrimSpace(str(entry["url"]))
	if url == "" {
		return domain.Source{}, false
	}

	src := domain.Source{
		Title:      str(entry["title"]),
		URL:        url,
		Snippet:    firstNonEmpty(str(entry["snippet"]), str(entry["summary"]), firstExcerpt(entry["excerpts"])),
		SourceName: firstNonEmpty(str(entry["source_name"]), str(entry["source"])),
	}
	if ts, ok := parsePublished(str(entry["published_at"])); ok {
		src.PublishedAt = &ts
	}
	return src, true
}

func parsePublished(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range publishedLayouts {
		if ts, err := time.Parse(layout, v); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}

func firstExcerpt(v any) string {
	excerpts, ok := v.([]any)
	if !ok {
		return ""
	}
	for _, e := range excerpts {
		if s := str(e); s != "" {
			return s
		}
	}
	return ""
}

func citationSources(citations []Citation) []domain.Source {
	if len(citations) == 0 {
		return nil
	}
	out := make([]domain.Source, 0, len(citations))
	for _, c := range citations {
		out = append(out, domain.Source{Title: c.Title, URL: c.URL})
	}
	return out
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
