package task

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/intorma/torma/internal/ids"
	"github.com/intorma/torma/internal/kv"
	"github.com/intorma/torma/internal/logging"
)

// DefaultKey is the storage key holding the task list.
const DefaultKey = "in.torma.tasks"

const backendTimeout = 10 * time.Second

// Options configures Open.
type Options struct {
	// Key is the storage key. Defaults to DefaultKey.
	Key string

	// Watch reloads the list when another process writes the key. It only
	// has an effect when the backend implements kv.Watcher.
	Watch bool

	// Logger receives persistence and decode failures.
	Logger logrus.FieldLogger

	// NewID mints task IDs. Defaults to a random 12 character ID.
	NewID func() string
}

// Store is the single source of truth for the task list.
//
// Every mutation re-reads the list from the backend, applies the change,
// writes the whole list back and then notifies subscribers. Subscriber
// callbacks run outside the store lock, one notification at a time; they
// must not call mutating Store methods synchronously.
type Store struct {
	backend kv.Backend
	key     string
	logger  logrus.FieldLogger
	newID   func() string

	mu          sync.Mutex
	tasks       []Task
	lastData    []byte
	corrupt     []byte
	dirty       bool
	persistErr  error
	subscribers map[int]func([]Task)
	nextSub     int
	closed      bool
	stopWatch   func() error
	cancelWatch context.CancelFunc

	notifyMu sync.Mutex
}

// Open loads the task list from backend. The caller keeps ownership of the
// backend and closes it after the store.
func Open(backend kv.Backend, opts Options) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("open task store: backend is nil")
	}
	if opts.Key == "" {
		opts.Key = DefaultKey
	}
	if opts.NewID == nil {
		opts.NewID = func() string { return ids.MustGenerate(ids.DefaultLength) }
	}

	s := &Store{
		backend:     backend,
		key:         opts.Key,
		logger:      logging.OrDiscard(opts.Logger).WithField("key", opts.Key),
		newID:       opts.NewID,
		subscribers: make(map[int]func([]Task)),
	}

	s.mu.Lock()
	s.tasks = s.readLocked()
	s.mu.Unlock()

	if opts.Watch {
		if watcher, ok := backend.(kv.Watcher); ok {
			ctx, cancel := context.WithCancel(context.Background())
			stop, err := watcher.Watch(ctx, s.key, s.reload)
			if err != nil {
				cancel()
				s.logger.WithError(err).Warn("watch task list; changes from other processes will not be seen")
			} else {
				s.stopWatch = stop
				s.cancelWatch = cancel
			}
		}
	}

	return s, nil
}

// Key returns the storage key.
func (s *Store) Key() string {
	return s.key
}

// List returns all tasks in persisted order.
func (s *Store) List() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneTasks(s.tasks)
}

// Subscribe registers fn. It is called once immediately with the current
// list and again after every change, local or external. The returned
// function deregisters fn and may be called more than once.
func (s *Store) Subscribe(fn func([]Task)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	s.mu.Unlock()

	s.notifyMu.Lock()
	s.mu.Lock()
	_, still := s.subscribers[id]
	snapshot := cloneTasks(s.tasks)
	s.mu.Unlock()
	if still {
		fn(snapshot)
	}
	s.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

// PersistError returns the last write failure, or nil once a later write
// succeeds.
func (s *Store) PersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistErr
}

// Close stops watching the backend and drops all subscribers.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.subscribers = make(map[int]func([]Task))
	stop := s.stopWatch
	cancel := s.cancelWatch
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if stop != nil {
		if err := stop(); err != nil {
			return fmt.Errorf("stop watching %s: %w", s.key, err)
		}
	}
	return nil
}

// mutate runs fn against a fresh copy of the list, persists the result and
// notifies subscribers. fn returning an error leaves the list unchanged.
func (s *Store) mutate(fn func(tasks []Task) ([]Task, error)) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrStoreClosed
	}

	current := s.tasks
	if !s.dirty {
		current = s.readLocked()
		s.tasks = current
	}

	next, err := fn(cloneTasks(current))
	if err != nil {
		s.mu.Unlock()
		return err
	}

	s.tasks = next
	s.writeLocked(next)
	s.mu.Unlock()

	s.notify()
	return nil
}

// readLocked reads and decodes the list. Missing data is an empty list.
// Corrupt records are logged and dropped. A failed read keeps the cached
// list.
func (s *Store) readLocked() []Task {
	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()

	data, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, kv.ErrNotFound) {
		s.lastData = nil
		s.corrupt = nil
		return []Task{}
	}
	if err != nil {
		s.logger.WithError(err).Warn("read task list; using cached copy")
		return cloneTasks(s.tasks)
	}

	s.lastData = data
	return s.decode(data)
}

// CorruptKeySuffix is appended to the storage key to hold a copy of a list
// that did not decode cleanly. The copy is written before the first write
// that would replace it.
const CorruptKeySuffix = ".corrupt"

// decode reads the list record by record. A record with an unreadable due
// date keeps its other fields; any other unreadable record is skipped. When
// anything was dropped the raw bytes are kept for backup.
func (s *Store) decode(data []byte) []Task {
	s.corrupt = nil
	if len(bytes.TrimSpace(data)) == 0 {
		return []Task{}
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		s.logger.WithError(err).Warn("task list is corrupt; treating as empty")
		s.corrupt = data
		return []Task{}
	}

	tasks := make([]Task, 0, len(records))
	for i, record := range records {
		t, err := decodeTask(record)
		if err == nil {
			tasks = append(tasks, t)
			continue
		}
		s.corrupt = data
		log := s.logger.WithError(err).WithField("index", i)
		if t, lenientErr := decodeTaskWithoutDueDate(record); lenientErr == nil {
			log.WithField("id", t.ID).Warn("task has an unreadable due date; clearing it")
			tasks = append(tasks, t)
			continue
		}
		log.Warn("task record is corrupt; skipping it")
	}
	return tasks
}

func decodeTask(record json.RawMessage) (Task, error) {
	var t Task
	if err := json.Unmarshal(record, &t); err != nil {
		return Task{}, err
	}
	return t, nil
}

func decodeTaskWithoutDueDate(record json.RawMessage) (Task, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(record, &fields); err != nil {
		return Task{}, err
	}
	if _, ok := fields["dueDate"]; !ok {
		return Task{}, fmt.Errorf("record has no due date to clear")
	}
	delete(fields, "dueDate")
	stripped, err := json.Marshal(fields)
	if err != nil {
		return Task{}, err
	}
	return decodeTask(stripped)
}

// backupCorruptLocked copies bytes that did not decode cleanly aside so the
// next write does not destroy them.
func (s *Store) backupCorruptLocked(ctx context.Context) error {
	if s.corrupt == nil {
		return nil
	}
	if err := s.backend.Set(ctx, s.key+CorruptKeySuffix, s.corrupt); err != nil {
		return fmt.Errorf("back up unreadable task list: %w", err)
	}
	s.logger.WithField("backup", s.key+CorruptKeySuffix).Warn("saved a copy of the unreadable task list")
	s.corrupt = nil
	return nil
}

// writeLocked persists tasks. Failures are recorded, not returned: the
// in-memory list stays authoritative until a later write succeeds.
func (s *Store) writeLocked(tasks []Task) {
	data, err := json.Marshal(tasks)
	if err != nil {
		s.failLocked(fmt.Errorf("encode task list: %w", err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	defer cancel()

	if err := s.backupCorruptLocked(ctx); err != nil {
		s.failLocked(err)
		return
	}
	if err := s.backend.Set(ctx, s.key, data); err != nil {
		s.failLocked(err)
		return
	}

	s.lastData = data
	s.dirty = false
	s.persistErr = nil
}

func (s *Store) failLocked(err error) {
	perr := &PersistenceError{Key: s.key, Err: err}
	s.dirty = true
	s.persistErr = perr
	s.logger.WithError(err).Error("persist task list; change kept in memory only")
}

// reload is the watcher callback. Writes made by this store come back with
// the bytes it last wrote and are ignored.
func (s *Store) reload() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), backendTimeout)
	data, err := s.backend.Get(ctx, s.key)
	cancel()
	if errors.Is(err, kv.ErrNotFound) {
		data, err = nil, nil
	}
	if err != nil {
		s.mu.Unlock()
		s.logger.WithError(err).Warn("reload task list")
		return
	}
	if bytes.Equal(data, s.lastData) {
		s.mu.Unlock()
		return
	}

	s.lastData = data
	s.tasks = s.decode(data)
	s.dirty = false
	s.mu.Unlock()

	s.logger.Debug("task list changed externally")
	s.notify()
}

// notify delivers the current list to every subscriber. Notifications are
// serialized so a subscriber never sees an older list after a newer one.
func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	subIDs := make([]int, 0, len(s.subscribers))
	for id := range s.subscribers {
		subIDs = append(subIDs, id)
	}
	slices.Sort(subIDs)
	callbacks := make([]func([]Task), 0, len(subIDs))
	for _, id := range subIDs {
		callbacks = append(callbacks, s.subscribers[id])
	}
	snapshot := s.tasks
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(cloneTasks(snapshot))
	}
}
