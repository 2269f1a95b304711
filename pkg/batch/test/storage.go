package test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/tigerroll/orgdigestor/pkg/batch/adapter/storage"
)

// MemoryStorage is a StorageConnection backed by a map. Setting DownloadErr or
// UploadErr makes the matching operation fail for every object whose name contains the key.
type MemoryStorage struct {
	mu          sync.Mutex
	objects     map[string][]byte
	DownloadErr map[string]error
	UploadErr   map[string]error
	Deleted     []string
}

var _ storage.StorageConnection = (*MemoryStorage)(nil)

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		objects:     make(map[string][]byte),
		DownloadErr: make(map[string]error),
		UploadErr:   make(map[string]error),
	}
}

func (m *MemoryStorage) Close() error { return nil }
func (m *MemoryStorage) Type() string { return "memory" }
func (m *MemoryStorage) Name() string { return "memory" }

func (m *MemoryStorage) Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := matching(m.UploadErr, objectName); err != nil {
		return err
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	m.objects[objectName] = b
	return nil
}

func (m *MemoryStorage) Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := matching(m.DownloadErr, objectName); err != nil {
		return nil, err
	}
	b, ok := m.objects[objectName]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (m *MemoryStorage) ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error {
	for _, name := range m.Names() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if err := fn(name); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStorage) DeleteObject(ctx context.Context, bucket, objectName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, objectName)
	m.Deleted = append(m.Deleted, objectName)
	return nil
}

// Put stores an object directly.
func (m *MemoryStorage) Put(objectName, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[objectName] = []byte(content)
}

// Get returns the content of an object.
func (m *MemoryStorage) Get(objectName string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[objectName]
	return string(b), ok
}

// Names returns the sorted object names.
func (m *MemoryStorage) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.objects))
	for name := range m.objects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func matching(errs map[string]error, objectName string) error {
	for key, err := range errs {
		if strings.Contains(objectName, key) {
			return err
		}
	}
	return nil
}

// ErrInjected is a generic failure for fault injection.
var ErrInjected = errors.New("injected failure")
