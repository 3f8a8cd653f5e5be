package kv

import (
	"context"
	"sync"
)

// Memory is an in-process backend. Watchers registered on the same Memory
// see every Set, which makes two stores sharing one Memory behave like two
// browser tabs sharing local storage.
type Memory struct {
	mu       sync.Mutex
	values   map[string][]byte
	watchers map[string]map[int]func()
	nextID   int
	closed   bool
}

// NewMemory returns an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{
		values:   make(map[string][]byte),
		watchers: make(map[string]map[int]func()),
	}
}

// Get returns a copy of the value stored under key.
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	value, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

// Set stores a copy of value and notifies watchers of key asynchronously.
func (m *Memory) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	m.values[key] = append([]byte(nil), value...)
	callbacks := make([]func(), 0, len(m.watchers[key]))
	for _, fn := range m.watchers[key] {
		callbacks = append(callbacks, fn)
	}
	m.mu.Unlock()

	for _, fn := range callbacks {
		go fn()
	}
	return nil
}

// Watch registers onChange for writes to key.
func (m *Memory) Watch(ctx context.Context, key string, onChange func()) (func() error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	id := m.nextID
	m.nextID++
	if m.watchers[key] == nil {
		m.watchers[key] = make(map[int]func())
	}
	m.watchers[key][id] = onChange

	done := make(chan struct{})
	var once sync.Once
	stop := func() error {
		once.Do(func() {
			close(done)
			m.mu.Lock()
			delete(m.watchers[key], id)
			m.mu.Unlock()
		})
		return nil
	}

	go func() {
		select {
		case <-ctx.Done():
			_ = stop()
		case <-done:
		}
	}()

	return stop, nil
}

// Close drops all values and watchers.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	m.values = make(map[string][]byte)
	m.watchers = make(map[string]map[int]func())
	return nil
}
