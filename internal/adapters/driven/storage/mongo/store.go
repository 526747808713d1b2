package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driven"
)

// DefaultTimeout bounds server selection and connection when unset.
const DefaultTimeout = 5 * time.Second

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// Store is a MongoDB-backed document store.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
}

// NewStore creates a client for uri. The client connects lazily, so an
// unreachable server does not fail construction; use Ping to check it.
// Every operation then reports an unreachable server as
// domain.ErrStorageUnavailable.
func NewStore(ctx context.Context, uri, database string, timeout time.Duration) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("%w: mongodb uri is empty", domain.ErrInvalidInput)
	}
	if database == "" {
		return nil, fmt.Errorf("%w: mongodb database is empty", domain.ErrInvalidInput)
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout)
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("%w: mongodb uri: %w", domain.ErrInvalidInput, err)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, classify("connect", err)
	}

	return &Store{client: client, db: client.Database(database), timeout: timeout}, nil
}

// Ping checks that the deployment is reachable within the store's timeout.
func (s *Store) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return classify("ping", s.client.Ping(pingCtx, nil))
}

// FindOne returns the first document matching filter.
func (s *Store) FindOne(ctx context.Context, collection string, filter driven.Filter) (driven.Document, error) {
	res := s.db.Collection(collection).FindOne(ctx, bson.M(filter))
	raw, err := res.Raw()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, classify("find", err)
	}
	return decode(raw)
}

// InsertOne stores a new document keyed by its IDField.
func (s *Store) InsertOne(ctx context.Context, collection string, doc driven.Document) error {
	if doc.ID() == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.db.Collection(collection).InsertOne(ctx, bson.M(doc))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrInvalidInput
		}
		return classify("insert", err)
	}
	return nil
}

// UpdateOne applies set with $set to the first document matching filter.
// Upserts without an _id in the filter get a generated string id so every
// stored key stays a plain string.
func (s *Store) UpdateOne(
	ctx context.Context,
	collection string,
	filter driven.Filter,
	set driven.Document,
	upsert bool,
) error {
	fields := bson.M{}
	for k, v := range set {
		if k == driven.IDField {
			continue
		}
		fields[k] = v
	}

	update := bson.M{"$set": fields}
	if upsert && filter.ID() == "" {
		update["$setOnInsert"] = bson.M{driven.IDField: uuid.New().String()}
	}

	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M(filter), update,
		options.Update().SetUpsert(upsert))
	if err != nil {
		return classify("update", err)
	}
	if !upsert && res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// decode converts a BSON document into plain JSON-compatible values.
func decode(raw bson.Raw) (driven.Document, error) {
	data, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding document: %w", domain.ErrDurableStore, err)
	}
	var doc driven.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: decoding document: %w", domain.ErrDurableStore, err)
	}
	return doc, nil
}

// classify maps a driver failure onto the storage error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUnavailable(err) {
		return fmt.Errorf("%w: mongodb %s: %w", domain.ErrStorageUnavailable, op, err)
	}
	return fmt.Errorf("%w: mongodb %s: %w", domain.ErrDurableStore, op, err)
}

// isUnavailable reports timeout-class failures: server selection, network
// and deadline errors, or a client that has already disconnected.
func isUnavailable(err error) bool {
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, mongo.ErrClientDisconnected),
		errors.Is(err, topology.ErrServerSelectionTimeout),
		mongo.IsTimeout(err),
		mongo.IsNetworkError(err):
		return true
	}
	return strings.Contains(err.Error(), "server selection error")
}
