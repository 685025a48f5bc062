package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
)

// MemoryBucket keeps objects in memory. It backs tests and dry runs.
type MemoryBucket struct {
	mu      sync.Mutex
	name    string
	objects map[string][]byte
	types   map[string]string
}

func NewMemoryBucket(name string) *MemoryBucket {
	return &MemoryBucket{name: name, objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *MemoryBucket) EnsureBucket(context.Context) error {
	return nil
}

func (m *MemoryBucket) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	m.types[key] = contentType
	return nil
}

func (m *MemoryBucket) Get(_ context.Context, key string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("object %q not found", key)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Keys lists stored object keys in order.
func (m *MemoryBucket) Keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ContentType returns the content type an object was stored with.
func (m *MemoryBucket) ContentType(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.types[key]
}

func (m *MemoryBucket) Name() string {
	return m.name
}

func (m *MemoryBucket) Close() error {
	return nil
}
