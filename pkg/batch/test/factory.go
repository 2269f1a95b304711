// Package test holds shared helpers for package tests: database fixtures, fake
// storage, store mocks and CSV builders.
package test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/orgdigestor/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/orgdigestor/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/orgdigestor/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/orgdigestor/pkg/batch/infrastructure/migration"
)

// NewSQLiteConnection opens a SQLite database in a temporary directory.
// The pool is limited to one connection so concurrent test writers queue instead of
// failing with SQLITE_BUSY. The connection is closed when the test ends.
func NewSQLiteConnection(t *testing.T) gormadapter.GormConnection {
	t.Helper()

	cfg := dbconfig.DatabaseConfig{
		Type:     "sqlite",
		Database: filepath.Join(t.TempDir(), "digestor.db"),
		Pool:     dbconfig.PoolConfig{MaxOpenConns: 1},
	}
	db, err := gormadapter.Open(cfg)
	require.NoError(t, err)

	conn := gormadapter.NewGormDBAdapter(db, cfg, "test")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// NewMigratedSQLiteConnection opens a SQLite database with every migration applied.
func NewMigratedSQLiteConnection(t *testing.T) gormadapter.GormConnection {
	t.Helper()

	conn := NewSQLiteConnection(t)
	require.NoError(t, migration.NewMigrator(conn).Up())
	return conn
}
