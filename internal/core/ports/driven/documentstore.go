package driven

import "context"

// IDField is the key under which every stored document carries its identity.
const IDField = "_id"

// Document is a schemaless record. Values are JSON-compatible
// (string, float64, bool, nil, []any, map[string]any).
type Document map[string]any

// Filter selects documents by field equality. All fields must match.
type Filter map[string]any

// ID returns the document key, or "" when absent.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// ID returns the key the filter pins, or "" when it does not pin one.
func (f Filter) ID() string {
	id, _ := f[IDField].(string)
	return id
}

// DocumentStore provides key/filter based access to named collections.
// Implementations include a durable backend and an in-memory fallback.
type DocumentStore interface {
	// FindOne returns the first document matching filter.
	// Returns domain.ErrNotFound if nothing matches.
	FindOne(ctx context.Context, collection string, filter Filter) (Document, error)

	// InsertOne stores a new document. The document must carry IDField.
	InsertOne(ctx context.Context, collection string, doc Document) error

	// UpdateOne merges set into the first document matching filter.
	// With upsert, a missing document is created from filter and set;
	// without it, domain.ErrNotFound is returned.
	UpdateOne(ctx context.Context, collection string, filter Filter, set Document, upsert bool) error

	// Close releases backend resources.
	Close(ctx context.Context) error
}
