package memory

import (
	"context"
	"reflect"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// It maps collection name -> document key -> document. Documents are copied
// on the way in and out so callers never share mutable state with the store.
type DocumentStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]driven.Document
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		collections: make(map[string]map[string]driven.Document),
	}
}

// FindOne returns the first document matching filter.
func (s *DocumentStore) FindOne(_ context.Context, collection string, filter driven.Filter) (driven.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.find(collection, filter)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyDocument(doc), nil
}

// InsertOne stores a new document keyed by its IDField.
func (s *DocumentStore) InsertOne(_ context.Context, collection string, doc driven.Document) error {
	id := doc.ID()
	if id == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.collection(collection)
	if _, exists := docs[id]; exists {
		return domain.ErrInvalidInput
	}
	docs[id] = copyDocument(doc)
	return nil
}

// UpdateOne merges set into the first document matching filter.
func (s *DocumentStore) UpdateOne(
	_ context.Context,
	collection string,
	filter driven.Filter,
	set driven.Document,
	upsert bool,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc, ok := s.find(collection, filter); ok {
		for k, v := range set {
			if k == driven.IDField {
				continue
			}
			doc[k] = copyValue(v)
		}
		return nil
	}

	if !upsert {
		return domain.ErrNotFound
	}

	doc := make(driven.Document, len(filter)+len(set)+1)
	for k, v := range filter {
		doc[k] = copyValue(v)
	}
	for k, v := range set {
		doc[k] = copyValue(v)
	}
	id := doc.ID()
	if id == "" {
		id = uuid.New().String()
		doc[driven.IDField] = id
	}
	s.collection(collection)[id] = doc
	return nil
}

// Close is a no-op for the in-memory store.
func (s *DocumentStore) Close(_ context.Context) error {
	return nil
}

// Len returns the number of documents in a collection.
func (s *DocumentStore) Len(collection string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.collections[collection])
}

// collection returns the named collection, creating it (caller must hold write lock).
func (s *DocumentStore) collection(name string) map[string]driven.Document {
	docs, ok := s.collections[name]
	if !ok {
		docs = make(map[string]driven.Document)
		s.collections[name] = docs
	}
	return docs
}

// find locates a matching document (caller must hold lock).
// Keyed lookups are direct; other filters scan in key order so the
// "first" match is deterministic.
func (s *DocumentStore) find(collection string, filter driven.Filter) (driven.Document, bool) {
	docs := s.collections[collection]
	if docs == nil {
		return nil, false
	}

	if id := filter.ID(); id != "" {
		doc, ok := docs[id]
		if !ok || !matches(doc, filter) {
			return nil, false
		}
		return doc, true
	}

	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if matches(docs[k], filter) {
			return docs[k], true
		}
	}
	return nil, false
}

// matches reports whether every filter field equals the document's field.
func matches(doc driven.Document, filter driven.Filter) bool {
	for k, want := range filter {
		got, ok := doc[k]
		if !ok || !reflect.DeepEqual(got, want) {
			return false
		}
	}
	return true
}

func copyDocument(doc driven.Document) driven.Document {
	out := make(driven.Document, len(doc))
	for k, v := range doc {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, inner := range t {
			m[k] = copyValue(inner)
		}
		return m
	case driven.Document:
		return map[string]any(copyDocument(t))
	case []any:
		s := make([]any, len(t))
		for i, inner := range t {
			s[i] = copyValue(inner)
		}
		return s
	default:
		return v
	}
}
