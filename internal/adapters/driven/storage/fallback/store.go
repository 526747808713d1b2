// Package fallback composes a durable document store with an in-memory one.
//
// Every operation is attempted against the durable backend first. When it
// fails with domain.ErrStorageUnavailable the operation is retried against
// memory and the document key is pinned there in a routing table; all later
// operations on that key go straight to memory so a single task is never
// split across backends. Other durable failures are returned unchanged.
package fallback

import (
	"context"
	"errors"
	"sync"

	"github.com/custodia-labs/deepresearchpod/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driven"
	"github.com/custodia-labs/deepresearchpod/internal/logger"
)

// Backend names the store serving a document.
type Backend string

const (
	BackendDurable Backend = "durable"
	BackendMemory  Backend = "memory"
)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

type routeKey struct {
	collection string
	id         string
}

// Store routes document operations between a durable and a memory backend.
type Store struct {
	durable driven.DocumentStore
	memory  *memory.DocumentStore
	metrics driven.Metrics

	mu     sync.RWMutex
	routes map[routeKey]Backend
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics records fallback demotions.
func WithMetrics(m driven.Metrics) Option {
	return func(s *Store) {
		if m != nil {
			s.metrics = m
		}
	}
}

// NewStore creates a fallback store. durable may be nil, in which case every
// operation is served from memory.
func NewStore(durable driven.DocumentStore, opts ...Option) *Store {
	s := &Store{
		durable: durable,
		memory:  memory.NewDocumentStore(),
		metrics: driven.NopMetrics{},
		routes:  make(map[routeKey]Backend),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend reports which backend serves the document with the given id.
func (s *Store) Backend(collection, id string) Backend {
	if s.durable == nil || s.pinned(collection, id) {
		return BackendMemory
	}
	return BackendDurable
}

// Memory exposes the in-memory backend.
func (s *Store) Memory() *memory.DocumentStore {
	return s.memory
}

// FindOne looks the document up in memory when its id is pinned there,
// otherwise in the durable backend.
func (s *Store) FindOne(ctx context.Context, collection string, filter driven.Filter) (driven.Document, error) {
	id := filter.ID()
	if s.useMemory(collection, id) {
		return s.memory.FindOne(ctx, collection, filter)
	}

	doc, err := s.durable.FindOne(ctx, collection, filter)
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		return doc, err
	}

	s.demoted(collection, "find", err)
	doc, err = s.memory.FindOne(ctx, collection, filter)
	if err == nil {
		s.pin(collection, doc.ID())
	}
	return doc, err
}

// InsertOne writes to the durable backend, demoting to memory on outage.
func (s *Store) InsertOne(ctx context.Context, collection string, doc driven.Document) error {
	id := doc.ID()
	if s.useMemory(collection, id) {
		return s.memory.InsertOne(ctx, collection, doc)
	}

	err := s.durable.InsertOne(ctx, collection, doc)
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		return err
	}

	s.demoted(collection, "insert", err)
	if err := s.memory.InsertOne(ctx, collection, doc); err != nil {
		return err
	}
	s.pin(collection, id)
	return nil
}

// UpdateOne updates in the durable backend, demoting to memory on outage.
func (s *Store) UpdateOne(
	ctx context.Context,
	collection string,
	filter driven.Filter,
	set driven.Document,
	upsert bool,
) error {
	id := filter.ID()
	if s.useMemory(collection, id) {
		return s.memory.UpdateOne(ctx, collection, filter, set, upsert)
	}

	err := s.durable.UpdateOne(ctx, collection, filter, set, upsert)
	if !errors.Is(err, domain.ErrStorageUnavailable) {
		return err
	}

	s.demoted(collection, "update", err)
	if err := s.memory.UpdateOne(ctx, collection, filter, set, upsert); err != nil {
		return err
	}
	s.pin(collection, id)
	return nil
}

// Close closes the durable backend.
func (s *Store) Close(ctx context.Context) error {
	if s.durable == nil {
		return nil
	}
	return s.durable.Close(ctx)
}

func (s *Store) useMemory(collection, id string) bool {
	return s.durable == nil || s.pinned(collection, id)
}

func (s *Store) pinned(collection, id string) bool {
	if id == "" {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.routes[routeKey{collection, id}] == BackendMemory
}

// pin routes id to memory for the rest of the process lifetime.
func (s *Store) pin(collection, id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[routeKey{collection, id}] = BackendMemory
}

func (s *Store) demoted(collection, op string, err error) {
	s.metrics.StorageFallback(collection, op)
	logger.With("collection", collection, "op", op).Warnf("durable store unavailable, using memory: %v", err)
}
