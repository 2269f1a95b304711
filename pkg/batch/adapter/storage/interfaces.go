// Package storage defines the object storage boundary used for chunk files.
// Backends (local file system, GCS) implement StorageConnection and are selected by
// the "type" of their named configuration.
package storage

import (
	"context"
	"errors"
	"io"

	coreAdapter "github.com/tigerroll/orgdigestor/pkg/batch/core/adapter"
)

// ErrObjectNotFound is returned by Download when the object does not exist.
var ErrObjectNotFound = errors.New("storage object not found")

// StorageExecutor defines the object operations. An empty bucket selects the
// connection's configured default bucket.
type StorageExecutor interface {
	Upload(ctx context.Context, bucket, objectName string, data io.Reader, contentType string) error
	// Download returns a reader the caller must close.
	Download(ctx context.Context, bucket, objectName string) (io.ReadCloser, error)
	// ListObjects calls fn for every object name under prefix.
	ListObjects(ctx context.Context, bucket, prefix string, fn func(objectName string) error) error
	// DeleteObject removes the object. Deleting a missing object is not an error.
	DeleteObject(ctx context.Context, bucket, objectName string) error
}

// StorageConnection is a named storage backend.
type StorageConnection interface {
	coreAdapter.ResourceConnection
	StorageExecutor
}

// StorageProvider creates and caches connections of one backend type.
type StorageProvider interface {
	GetConnection(name string) (StorageConnection, error)
	CloseAll() error
	Type() string
}
