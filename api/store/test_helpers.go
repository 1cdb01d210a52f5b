/* test_helpers.go
 * Contains an in-memory BlobStore for tests in this and other packages
 */

package store

import (
	"context"
	"sync"
	"time"
)

// MemoryBlobStore keeps blobs in a map. Err, when set, is returned by every call
type MemoryBlobStore struct {
	mu       sync.Mutex
	blobs    map[string][]byte
	types    map[string]string
	modified map[string]time.Time
	Err      error
	Gets     int
	Puts     int
}

var (
	_ BlobStore = (*MemoryBlobStore)(nil)
	_ Statter   = (*MemoryBlobStore)(nil)
)

// NewMemoryBlobStore creates an empty in-memory store
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{
		blobs:    make(map[string][]byte),
		types:    make(map[string]string),
		modified: make(map[string]time.Time),
	}
}

func (m *MemoryBlobStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	if m.Err != nil {
		return nil, m.Err
	}
	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryBlobStore) Put(_ context.Context, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Puts++
	if m.Err != nil {
		return m.Err
	}
	m.blobs[key] = append([]byte(nil), data...)
	m.types[key] = contentType
	m.modified[key] = time.Now()
	return nil
}

func (m *MemoryBlobStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.blobs, key)
	delete(m.types, key)
	delete(m.modified, key)
	return nil
}

func (m *MemoryBlobStore) Stat(_ context.Context, key string) (BlobInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return BlobInfo{}, m.Err
	}
	data, ok := m.blobs[key]
	if !ok {
		return BlobInfo{}, ErrNotFound
	}
	return BlobInfo{Key: key, Size: int64(len(data)), LastModified: m.modified[key]}, nil
}

// Raw returns the stored bytes and content type without counting a read
func (m *MemoryBlobStore) Raw(key string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	return data, m.types[key], ok
}

// Keys returns the number of stored blobs
func (m *MemoryBlobStore) Keys() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}
