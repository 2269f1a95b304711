// Package database declares the relational connection boundary.
package database

import (
	"database/sql"

	dbconfig "github.com/tigerroll/orgdigestor/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/orgdigestor/pkg/batch/core/adapter"
)

// DBConnection is a named, pooled database connection.
type DBConnection interface {
	coreAdapter.ResourceConnection

	// IsTableNotExistError reports whether err means a table is missing (schema not migrated).
	IsTableNotExistError(err error) bool
	// Config returns the settings the connection was opened with.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying pool.
	GetSQLDB() (*sql.DB, error)
}

// DBProvider opens and caches connections of one database type.
type DBProvider interface {
	GetConnection(name string) (DBConnection, error)
	CloseAll() error
	Type() string
}

// DBProviderGroup is the fx value group collecting every DBProvider.
const DBProviderGroup = "db_providers"
