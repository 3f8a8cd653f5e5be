// Package kv provides the key-value backends that hold the task list.
//
// Every backend stores opaque byte values under string keys. Backends that
// can observe writes made by other processes also implement Watcher.
package kv

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/intorma/torma/internal/logging"
)

var (
	// ErrNotFound is returned by Get when the key has no value.
	ErrNotFound = errors.New("key not found")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("backend closed")
	// ErrInvalidKey is returned for keys that cannot be stored.
	ErrInvalidKey = errors.New("invalid key")
	// ErrUnknownBackend is returned by Open for an unrecognized backend name.
	ErrUnknownBackend = errors.New("unknown backend")
)

// Backend reads and writes values by key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Close() error
}

// Watcher reports writes to a key, including writes from other processes.
//
// onChange runs on a goroutine owned by the backend and carries no payload;
// callers re-read the key. stop is idempotent.
type Watcher interface {
	Watch(ctx context.Context, key string, onChange func()) (stop func() error, err error)
}

// Options selects and configures a backend for Open.
type Options struct {
	// Backend is one of file, sqlite, redis, memory.
	Backend string
	// Path is the directory for file or the database file for sqlite.
	Path string
	// RedisAddr is the host:port of the redis server.
	RedisAddr string
	Logger    logrus.FieldLogger
}

// Open returns the backend described by opts.
func Open(ctx context.Context, opts Options) (Backend, error) {
	logger := logging.OrDiscard(opts.Logger).WithField("backend", opts.Backend)

	switch strings.ToLower(opts.Backend) {
	case "file":
		return NewFile(opts.Path, logger)
	case "sqlite":
		return OpenSQLite(ctx, SQLiteOptions{Path: opts.Path, Logger: logger})
	case "redis":
		return OpenRedis(ctx, RedisOptions{Addr: opts.RedisAddr, Logger: logger})
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
