// Package migration applies the embedded schema migrations with golang-migrate.
package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/orgdigestor/pkg/batch/adapter/database"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/logger"
)

// MigrationsTable tracks applied schema versions.
const MigrationsTable = "digestor_schema_migrations"

//go:embed resources
var resources embed.FS

// Resources returns the embedded migration files of dbType.
func Resources(dbType string) (fs.FS, error) {
	dir := "resources/" + dbType
	if _, err := fs.Stat(resources, dir); err != nil {
		return nil, fmt.Errorf("no migrations for database type '%s': %w", dbType, err)
	}
	sub, err := fs.Sub(resources, dir)
	if err != nil {
		return nil, fmt.Errorf("no migrations for database type '%s': %w", dbType, err)
	}
	return sub, nil
}

// Migrator applies migrations to one connection.
type Migrator struct {
	conn database.DBConnection
}

// NewMigrator creates a Migrator for conn.
func NewMigrator(conn database.DBConnection) *Migrator {
	return &Migrator{conn: conn}
}

// Up applies every pending migration. An up-to-date schema is not an error.
func (m *Migrator) Up() error {
	return m.run("up", func(mi *migrate.Migrate) error { return mi.Up() })
}

// Down rolls back every applied migration.
func (m *Migrator) Down() error {
	return m.run("down", func(mi *migrate.Migrate) error { return mi.Down() })
}

// Version returns the applied schema version; 0 when nothing was applied yet.
func (m *Migrator) Version() (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)
	err := m.run("version", func(mi *migrate.Migrate) error {
		var verr error
		version, dirty, verr = mi.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			return nil
		}
		return verr
	})
	return version, dirty, err
}

func (m *Migrator) run(command string, fn func(*migrate.Migrate) error) error {
	dbType := m.conn.Type()
	source, err := Resources(dbType)
	if err != nil {
		return err
	}
	sourceDriver, err := iofs.New(source, ".")
	if err != nil {
		return fmt.Errorf("failed to open migration source for %s: %w", dbType, err)
	}
	defer sourceDriver.Close()

	sqlDB, err := m.conn.GetSQLDB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	dbDriver, err := databaseDriver(dbType, sqlDB)
	if err != nil {
		return err
	}

	// The migrate instance is not closed: its database driver would close the shared pool.
	mi, err := migrate.NewWithInstance("iofs", sourceDriver, dbType, dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	logger.Debugf("Running migration '%s' on '%s' (%s).", command, m.conn.Name(), dbType)
	if err := fn(mi); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration '%s' failed on '%s': %w", command, m.conn.Name(), err)
	}
	return nil
}

func databaseDriver(dbType string, sqlDB *sql.DB) (migratedb.Driver, error) {
	switch dbType {
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: MigrationsTable})
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: MigrationsTable})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: MigrationsTable})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", dbType)
	}
}
