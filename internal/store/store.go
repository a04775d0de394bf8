package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS products (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	name          TEXT NOT NULL,
	barcode       TEXT UNIQUE,
	location      TEXT NOT NULL DEFAULT '',
	unit_price    TEXT NOT NULL DEFAULT '0',
	initial_price TEXT NOT NULL DEFAULT '0',
	created_at    TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS stock_movements (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id     INTEGER NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	change         INTEGER NOT NULL CHECK (change <> 0),
	reason         TEXT NOT NULL CHECK (reason IN ('SALE','PURCHASE','ADJUST')),
	purchase_price TEXT,
	created_at     TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_products_barcode  ON products(barcode);
CREATE INDEX IF NOT EXISTS idx_movements_created ON stock_movements(created_at);
CREATE INDEX IF NOT EXISTS idx_movements_product ON stock_movements(product_id);
`

// Store owns the durable movement log and the product catalog. One
// instance owns the database file for the life of the process; all
// mutations serialize on the store mutex.
type Store struct {
	mu       sync.Mutex
	db       *sqlx.DB
	path     string
	onCommit func()
}

// NewStore opens (or creates) the database file and ensures the schema
func NewStore(path string) (*Store, error) {
	db, err := open(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func open(path string) (*sqlx.DB, error) {
	// WAL journaling so checkpoints control when the log reaches the
	// main database file.
	dsn := "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=busy_timeout(5000)" +
		"&_pragma=synchronous(NORMAL)"

	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrStorageUnavailable, path, err)
	}

	// Single-writer embedded store: one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ensure schema: %v", ErrStorageUnavailable, err)
	}
	return db, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// DB returns the current database handle. Reads must fetch it per call
// because RefreshConnection replaces the handle.
func (s *Store) DB() *sqlx.DB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db
}

// Path returns the database file location
func (s *Store) Path() string {
	return s.path
}

// SetCommitHook registers fn to run after every successful mutation.
// The durability manager uses this to count operations between forced
// checkpoints.
func (s *Store) SetCommitHook(fn func()) {
	s.mu.Lock()
	s.onCommit = fn
	s.mu.Unlock()
}

func (s *Store) notifyCommit() {
	s.mu.Lock()
	fn := s.onCommit
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Checkpoint forces buffered WAL writes into the main database file.
// Safe to invoke back-to-back; a checkpoint with nothing to flush is a
// no-op.
func (s *Store) Checkpoint(ctx context.Context) error {
	// The pragma reports (busy, log pages, checkpointed pages).
	var busy, logPages, moved int
	row := s.DB().QueryRowContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	if err := row.Scan(&busy, &logPages, &moved); err != nil {
		return fmt.Errorf("%w: checkpoint: %v", ErrStorageUnavailable, err)
	}
	return nil
}

// BackupTo writes a consistent copy of the store to path
func (s *Store) BackupTo(ctx context.Context, path string) error {
	if _, err := s.DB().ExecContext(ctx, "VACUUM INTO ?", path); err != nil {
		return fmt.Errorf("%w: backup to %s: %v", ErrStorageUnavailable, path, err)
	}
	return nil
}

// Reopen flushes, closes, and reopens the database handle on the same
// file. Recovery path for writes that did not read back as applied.
func (s *Store) Reopen() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var busy, logPages, moved int
	_ = s.db.QueryRow("PRAGMA wal_checkpoint(TRUNCATE)").Scan(&busy, &logPages, &moved)
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("%w: close before reopen: %v", ErrStorageUnavailable, err)
	}

	db, err := open(s.path)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
