// Package adapter declares what every external resource connection has in common.
package adapter

// ResourceConnection is a named connection to a database or storage backend.
type ResourceConnection interface {
	Close() error
	// Type returns the backend kind (e.g. "sqlite", "local", "gcs").
	Type() string
	// Name returns the configured connection name (e.g. "organizations", "chunks").
	Name() string
}
