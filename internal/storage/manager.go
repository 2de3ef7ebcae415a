package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Blob describes stored content referenced by an opaque handle. Staged files
// point at blobs; bytes are written once on ingestion and only read again by
// the submission collaborator.
type Blob struct {
	Handle    string
	Size      int64
	MediaType string
}

// BlobStore defines the content-handle interface the staging pipeline needs.
type BlobStore interface {
	Save(name string, r io.Reader) (*Blob, error)
	Open(handle string) (io.ReadCloser, error)
	Delete(handle string) error
	Path(handle string) (string, error)
}

// LocalBlobStore implements BlobStore on the local filesystem. Each blob is
// a file named by its uuid handle under the data directory.
type LocalBlobStore struct {
	mu      sync.RWMutex
	dataDir string
	blobs   map[string]*Blob
}

// NewLocalBlobStore creates the store and its data directory.
func NewLocalBlobStore(dataDir string) (*LocalBlobStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating blob directory: %w", err)
	}

	return &LocalBlobStore{
		dataDir: dataDir,
		blobs:   make(map[string]*Blob),
	}, nil
}

// Save writes the content to disk under a fresh handle. The media type is
// sniffed from the leading bytes and recorded as metadata; it never gates
// acceptance, that is the validator's job over the declared descriptor.
func (s *LocalBlobStore) Save(name string, r io.Reader) (*Blob, error) {
	handle := uuid.New().String()
	path := filepath.Join(s.dataDir, handle)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating blob: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing blob: %w", err)
	}

	blob := &Blob{Handle: handle, Size: size}
	if mtype, err := mimetype.DetectFile(path); err == nil {
		blob.MediaType = mtype.String()
	}

	s.mu.Lock()
	s.blobs[handle] = blob
	s.mu.Unlock()

	return blob, nil
}

// Open returns a reader over the blob content.
func (s *LocalBlobStore) Open(handle string) (io.ReadCloser, error) {
	path, err := s.Path(handle)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

// Delete removes the blob and its bytes. Unknown handles are an error so
// leaks are noticed; a missing file under a known handle is tolerated.
func (s *LocalBlobStore) Delete(handle string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[handle]; !ok {
		return fmt.Errorf("blob not found: %s", handle)
	}

	path := filepath.Join(s.dataDir, handle)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting blob: %w", err)
	}

	delete(s.blobs, handle)
	return nil
}

// Path returns the absolute path to the blob content.
func (s *LocalBlobStore) Path(handle string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.blobs[handle]; !ok {
		return "", fmt.Errorf("blob not found: %s", handle)
	}

	return filepath.Join(s.dataDir, handle), nil
}
