// mock_storage.go - In-memory blob store for testing
package testutil

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/docstager/backend/internal/storage"
)

// MockBlobStore implements storage.BlobStore in memory
type MockBlobStore struct {
	mu     sync.RWMutex
	nextID int
	data   map[string][]byte
	names  map[string]string // handle -> original name
}

// NewMockBlobStore creates an empty mock blob store
func NewMockBlobStore() *MockBlobStore {
	return &MockBlobStore{
		data:  make(map[string][]byte),
		names: make(map[string]string),
	}
}

func (m *MockBlobStore) Save(name string, r io.Reader) (*storage.Blob, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	handle := fmt.Sprintf("blob-%d", m.nextID)
	m.data[handle] = content
	m.names[handle] = name

	return &storage.Blob{Handle: handle, Size: int64(len(content))}, nil
}

func (m *MockBlobStore) Open(handle string) (io.ReadCloser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	content, ok := m.data[handle]
	if !ok {
		return nil, fmt.Errorf("blob not found: %s", handle)
	}
	return io.NopCloser(bytes.NewReader(content)), nil
}

func (m *MockBlobStore) Delete(handle string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.data[handle]; !ok {
		return fmt.Errorf("blob not found: %s", handle)
	}
	delete(m.data, handle)
	delete(m.names, handle)
	return nil
}

func (m *MockBlobStore) Path(handle string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if _, ok := m.data[handle]; !ok {
		return "", fmt.Errorf("blob not found: %s", handle)
	}
	return "/mock/" + handle, nil
}

// Len returns the number of stored blobs
func (m *MockBlobStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Content returns the stored bytes for a handle
func (m *MockBlobStore) Content(handle string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	content, ok := m.data[handle]
	return content, ok
}
