package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/custodia-labs/deepresearchpod/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/deepresearchpod/internal/core/domain"
	"github.com/custodia-labs/deepresearchpod/internal/core/ports/driven"
)

// DefaultTimeout bounds every operation when no timeout is configured.
const DefaultTimeout = 5 * time.Second

// fieldPattern restricts filter field names interpolated into JSON paths.
var fieldPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// Store is an SQLite-backed document store.
type Store struct {
	db      *sql.DB
	path    string
	timeout time.Duration
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.deepresearchpod/data/research.db.
// The timeout bounds the busy wait and every operation.
func NewStore(dataDir string, timeout time.Duration) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".deepresearchpod", "data")
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "research.db")

	// Open database with WAL mode for better concurrency
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)", dbPath, timeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// Single writer; UpdateOne upgrades a read transaction to a write.
	db.SetMaxOpenConns(1)

	s := &Store{
		db:      db,
		path:    dbPath,
		timeout: timeout,
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, classify("ping", err)
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close(_ context.Context) error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".up.sql") {
			upFiles = append(upFiles, entry.Name())
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_documents.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// FindOne returns the first document matching filter.
func (s *Store) FindOne(ctx context.Context, collection string, filter driven.Filter) (driven.Document, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, doc, err := s.find(ctx, s.db, collection, filter)
	if err != nil {
		return nil, classify("find", err)
	}
	return doc, nil
}

// InsertOne stores a new document keyed by its IDField.
func (s *Store) InsertOne(ctx context.Context, collection string, doc driven.Document) error {
	id := doc.ID()
	if id == "" {
		return domain.ErrInvalidInput
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshalling document: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (collection, id, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, collection, id, string(body), now, now)
	if err != nil {
		var se *sqlite.Error
		if errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT {
			return domain.ErrInvalidInput
		}
		return classify("insert", err)
	}
	return nil
}

// UpdateOne merges set into the first document matching filter.
// The read-modify-write runs in a single transaction.
func (s *Store) UpdateOne(
	ctx context.Context,
	collection string,
	filter driven.Filter,
	set driven.Document,
	upsert bool,
) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	id, doc, err := s.find(ctx, tx, collection, filter)
	switch {
	case err == nil:
		for k, v := range set {
			if k == driven.IDField {
				continue
			}
			doc[k] = v
		}
	case errors.Is(err, domain.ErrNotFound) && upsert:
		doc = make(driven.Document, len(filter)+len(set)+1)
		for k, v := range filter {
			doc[k] = v
		}
		for k, v := range set {
			doc[k] = v
		}
		id = doc.ID()
		if id == "" {
			id = uuid.New().String()
			doc[driven.IDField] = id
		}
	default:
		return classify("find", err)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshalling document: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (collection, id, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			body = excluded.body,
			updated_at = excluded.updated_at
	`, collection, id, string(body), now, now)
	if err != nil {
		return classify("update", err)
	}

	if err := tx.Commit(); err != nil {
		return classify("commit", err)
	}
	return nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// find returns the id and body of the first match, ordered by id.
// Scalar filter values are pushed into SQL; composite values are compared in Go.
func (s *Store) find(ctx context.Context, q queryer, collection string, filter driven.Filter) (string, driven.Document, error) {
	var (
		clauses  = []string{"collection = ?"}
		args     = []any{collection}
		residual = driven.Filter{}
	)

	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		v := filter[k]
		if k == driven.IDField {
			clauses = append(clauses, "id = ?")
			args = append(args, v)
			continue
		}
		if !fieldPattern.MatchString(k) {
			return "", nil, domain.ErrInvalidInput
		}
		path := "json_extract(body, '$." + k + "')"
		switch t := v.(type) {
		case nil:
			clauses = append(clauses, path+" IS NULL")
		case string, float64, float32, int, int64:
			clauses = append(clauses, path+" = ?")
			args = append(args, t)
		case bool:
			clauses = append(clauses, path+" = ?")
			args = append(args, boolToInt(t))
		default:
			residual[k] = v
		}
	}

	rows, err := q.QueryContext(ctx,
		"SELECT id, body FROM documents WHERE "+strings.Join(clauses, " AND ")+" ORDER BY id", args...)
	if err != nil {
		return "", nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, body string
		if err := rows.Scan(&id, &body); err != nil {
			return "", nil, fmt.Errorf("scanning document: %w", err)
		}
		var doc driven.Document
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			return "", nil, fmt.Errorf("unmarshalling document %s: %w", id, err)
		}
		if matchesResidual(doc, residual) {
			return id, doc, nil
		}
	}
	if err := rows.Err(); err != nil {
		return "", nil, fmt.Errorf("iterating documents: %w", err)
	}
	return "", nil, domain.ErrNotFound
}

// matchesResidual compares composite filter values after a JSON round trip
// so they share the decoded representation of stored bodies.
func matchesResidual(doc driven.Document, residual driven.Filter) bool {
	for k, want := range residual {
		raw, err := json.Marshal(want)
		if err != nil {
			return false
		}
		var normalised any
		if err := json.Unmarshal(raw, &normalised); err != nil {
			return false
		}
		if !reflect.DeepEqual(doc[k], normalised) {
			return false
		}
	}
	return true
}

// classify maps a backend failure onto the storage error taxonomy.
func classify(op string, err error) error {
	if err == nil || errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidInput) {
		return err
	}
	if isUnavailable(err) {
		return fmt.Errorf("%w: sqlite %s: %w", domain.ErrStorageUnavailable, op, err)
	}
	return fmt.Errorf("%w: sqlite %s: %w", domain.ErrDurableStore, op, err)
}

// isUnavailable reports timeout-class failures.
func isUnavailable(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED, sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_IOERR:
			return true
		}
	}
	return strings.Contains(err.Error(), "database is closed")
}

// boolToInt converts a bool to 1 (true) or 0 (false).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
