// Package orderstore persists the order book snapshot, users, and sessions in
// a local sqlite database.
package orderstore

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

// Open connects to the sqlite database at path, creating it and its schema as
// needed. Opening retries with exponential backoff so the API server and the
// CLI can start while another process briefly holds the file.
func Open(path string, logger *zap.Logger) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)

	var db *sql.DB
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 2 * time.Second
	bo.MaxElapsedTime = 15 * time.Second

	err := backoff.RetryNotify(func() error {
		handle, err := sql.Open("sqlite", dsn)
		if err != nil {
			return err
		}
		if err := handle.Ping(); err != nil {
			_ = handle.Close()
			return err
		}
		db = handle
		return nil
	}, bo, func(err error, _ time.Duration) {
		logger.Sugar().Infof("retrying order db open: %v", err)
	})
	if err != nil {
		return nil, fmt.Errorf("open order db: %w", err)
	}

	// A single connection serializes writers inside the process; the busy
	// timeout covers writers in other processes, such as a CLI import while
	// the API server runs.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			is_admin INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS user_customer_names (
			user_id INTEGER NOT NULL,
			customer_name TEXT NOT NULL,
			PRIMARY KEY(user_id, customer_name),
			FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			csrf_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			last_seen_at INTEGER NOT NULL,
			FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);`,
		`CREATE TABLE IF NOT EXISTS orders (
			position INTEGER PRIMARY KEY,
			wo TEXT NOT NULL DEFAULT '',
			quote TEXT NOT NULL DEFAULT '',
			po_number TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			customer_name TEXT NOT NULL DEFAULT '',
			model_description TEXT NOT NULL DEFAULT '',
			scheduled_date TEXT,
			price REAL,
			extra TEXT NOT NULL DEFAULT '',
			updated_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_wo ON orders(wo);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_scheduled_date ON orders(scheduled_date);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_customer_name ON orders(customer_name);`,
		`CREATE TABLE IF NOT EXISTS order_book_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			columns TEXT NOT NULL DEFAULT '',
			uploaded_name TEXT NOT NULL DEFAULT '',
			signature TEXT NOT NULL DEFAULT '',
			imported_at INTEGER NOT NULL DEFAULT 0
		);`,
	}
	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// WithRetry reruns fn while sqlite reports the database as locked or busy,
// which happens when another process writes concurrently.
func WithRetry(fn func() error) error {
	const maxAttempts = 3
	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		lower := strings.ToLower(err.Error())
		if !strings.Contains(lower, "database is locked") && !strings.Contains(lower, "database is busy") {
			return err
		}
		if attempt < maxAttempts {
			time.Sleep(time.Duration(attempt) * 125 * time.Millisecond)
		}
	}
	return err
}
