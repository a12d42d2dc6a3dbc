package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// MemoryStore keeps blobs in a map. It backs tests and the demo deployment.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
	dir   string
}

// NewMemoryStore returns an empty store. When dir is set, absent keys are
// looked up once as <dir>/<key>.json, which lets a demo start from fixtures.
func NewMemoryStore(dir string) *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte), dir: dir}
}

func (m *MemoryStore) Load(ctx context.Context, key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	b, ok := m.blobs[key.String()]
	m.mu.RUnlock()
	if ok {
		return slices.Clone(b), nil
	}
	if m.dir == "" {
		return nil, nil
	}

	b, err := os.ReadFile(filepath.Join(m.dir, key.String()+".json"))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.blobs[key.String()]; ok {
		return slices.Clone(existing), nil
	}
	m.blobs[key.String()] = b
	return slices.Clone(b), nil
}

func (m *MemoryStore) Save(ctx context.Context, key Key, data []byte) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	m.blobs[key.String()] = slices.Clone(data)
	m.mu.Unlock()
	return nil
}

// Len reports how many keys hold a blob.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blobs)
}
