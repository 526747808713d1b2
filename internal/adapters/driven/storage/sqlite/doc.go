// Package sqlite provides an SQLite-based durable implementation of driven.DocumentStore.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. Documents are stored as JSON bodies in a
// single table keyed by (collection, id); non-key filters use json_extract.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.deepresearchpod/data/research.db
//
// # Failure Classification
//
// Busy, locked, unopenable and I/O failures, and operations exceeding the
// configured timeout, are reported as domain.ErrStorageUnavailable so the
// fallback store can demote to memory. Everything else is domain.ErrDurableStore.
package sqlite
