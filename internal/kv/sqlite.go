package kv

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/sirupsen/logrus"

	"github.com/intorma/torma/internal/logging"
)

// DefaultPollInterval is how often SQLite watchers check for new writes.
const DefaultPollInterval = 500 * time.Millisecond

// SQLiteOptions configures OpenSQLite.
type SQLiteOptions struct {
	// Path is the database file. It is created if missing.
	Path string
	// PollInterval defaults to DefaultPollInterval.
	PollInterval time.Duration
	Logger       logrus.FieldLogger
}

// SQLite stores values in a single kv table.
type SQLite struct {
	db       *sql.DB
	interval time.Duration
	logger   logrus.FieldLogger

	mu     sync.Mutex
	closed bool
	stops  []func() error
}

// OpenSQLite opens (or creates) the database at opts.Path.
func OpenSQLite(ctx context.Context, opts SQLiteOptions) (*SQLite, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("sqlite: database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("sqlite: create data dir: %w", err)
	}

	db, err := sql.Open("sqlite3", opts.Path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", opts.Path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS kv (
			key TEXT PRIMARY KEY,
			value BLOB NOT NULL,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: create kv table: %w", err)
	}

	interval := opts.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	return &SQLite{db: db, interval: interval, logger: logging.OrDiscard(opts.Logger)}, nil
}

// Get returns the value stored under key.
func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	var value []byte
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get %s: %w", key, err)
	}
	return value, nil
}

// Set upserts value under key.
func (s *SQLite) Set(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if s.isClosed() {
		return ErrClosed
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("sqlite: set %s: %w", key, err)
	}
	return nil
}

// Watch polls PRAGMA data_version on a dedicated connection. The version
// moves whenever another connection commits, so any write to the database
// triggers onChange and callers compare contents themselves.
func (s *SQLite) Watch(ctx context.Context, key string, onChange func()) (func() error, error) {
	if s.isClosed() {
		return nil, ErrClosed
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("sqlite: watch connection: %w", err)
	}

	version, err := dataVersion(ctx, conn)
	if err != nil {
		conn.Close()
		return nil, err
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	var once sync.Once
	stop := func() error {
		once.Do(func() {
			close(done)
			<-stopped
		})
		return nil
	}

	go func() {
		defer close(stopped)
		defer conn.Close()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				current, err := dataVersion(context.Background(), conn)
				if err != nil {
					s.logger.WithError(err).WithField("key", key).Warn("sqlite watch error")
					continue
				}
				if current != version {
					version = current
					onChange()
				}
			}
		}
	}()

	s.mu.Lock()
	s.stops = append(s.stops, stop)
	s.mu.Unlock()

	return stop, nil
}

func dataVersion(ctx context.Context, conn *sql.Conn) (int64, error) {
	var version int64
	if err := conn.QueryRowContext(ctx, `PRAGMA data_version`).Scan(&version); err != nil {
		return 0, fmt.Errorf("sqlite: read data_version: %w", err)
	}
	return version, nil
}

// Close stops watchers and closes the database.
func (s *SQLite) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	stops := s.stops
	s.stops = nil
	s.mu.Unlock()

	for _, stop := range stops {
		_ = stop()
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("sqlite: close: %w", err)
	}
	return nil
}

func (s *SQLite) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
