package task

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/intorma/torma/internal/kv"
)

func sequentialIDs() func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("t%02d", n)
	}
}

func openTestStore(t *testing.T, backend kv.Backend) *Store {
	t.Helper()

	store, err := Open(backend, Options{NewID: sequentialIDs()})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func validFields(customer string) Fields {
	return Fields{
		CustomerName: customer,
		Description:  "Desain banner " + customer,
		Status:       StatusDesign,
		Source:       SourceCS,
	}
}

func mustCreate(t *testing.T, store *Store, fields Fields) string {
	t.Helper()

	id, err := store.Create(fields)
	if err != nil {
		t.Fatalf("create %q: %v", fields.CustomerName, err)
	}
	return id
}

func taskIDs(tasks []Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

var errWriteFailed = errors.New("disk full")

// flakyBackend wraps a Memory and fails writes while failing is set.
type flakyBackend struct {
	*kv.Memory

	mu      sync.Mutex
	failing bool
	writes  int
}

func newFlakyBackend() *flakyBackend {
	return &flakyBackend{Memory: kv.NewMemory()}
}

func (b *flakyBackend) setFailing(failing bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failing = failing
}

func (b *flakyBackend) Set(ctx context.Context, key string, value []byte) error {
	b.mu.Lock()
	failing := b.failing
	b.writes++
	b.mu.Unlock()

	if failing {
		return errWriteFailed
	}
	return b.Memory.Set(ctx, key, value)
}
