package kv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/intorma/torma/internal/logging"
)

// File stores each key as <dir>/<key>.json.
type File struct {
	dir    string
	logger logrus.FieldLogger

	mu     sync.Mutex
	closed bool
	stops  []func() error
}

// NewFile returns a file backend rooted at dir. The directory is created on
// first write.
func NewFile(dir string, logger logrus.FieldLogger) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("file backend: directory is empty")
	}
	return &File{dir: dir, logger: logging.OrDiscard(logger)}, nil
}

// Path returns the file that holds key.
func (f *File) Path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

// Get reads the file for key.
func (f *File) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if f.isClosed() {
		return nil, ErrClosed
	}

	data, err := os.ReadFile(f.Path(key))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return data, nil
}

// Set writes value atomically via a temp file and rename.
func (f *File) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}
	if f.isClosed() {
		return ErrClosed
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	path := f.Path(key)
	tmpFile, err := os.CreateTemp(f.dir, filepath.Base(path)+".tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	name := tmpFile.Name()
	_, err = tmpFile.Write(value)
	if err1 := tmpFile.Close(); err1 != nil && err == nil {
		err = err1
	}
	if err != nil {
		os.Remove(name)
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename %s: %w", path, err)
	}

	return nil
}

// Watch reports changes to the file for key. The directory is watched
// rather than the file, since every write replaces the file.
func (f *File) Watch(ctx context.Context, key string, onChange func()) (func() error, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if f.isClosed() {
		return nil, ErrClosed
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(f.dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", f.dir, err)
	}

	target := filepath.Clean(f.Path(key))
	done := make(chan struct{})
	var once sync.Once
	var closeErr error
	stop := func() error {
		once.Do(func() {
			close(done)
			closeErr = watcher.Close()
		})
		return closeErr
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				_ = stop()
				return
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
					onChange()
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				f.logger.WithError(err).WithField("key", key).Warn("file watch error")
			}
		}
	}()

	f.mu.Lock()
	f.stops = append(f.stops, stop)
	f.mu.Unlock()

	return stop, nil
}

// Close stops every watcher.
func (f *File) Close() error {
	f.mu.Lock()
	f.closed = true
	stops := f.stops
	f.stops = nil
	f.mu.Unlock()

	var firstErr error
	for _, stop := range stops {
		if err := stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f *File) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
