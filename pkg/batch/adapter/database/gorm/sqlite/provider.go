// Package sqlite registers the SQLite dialect (mattn/go-sqlite3 through gorm.io/driver/sqlite).
package sqlite

import (
	"errors"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/orgdigestor/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/orgdigestor/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/orgdigestor/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/config"
)

// ProviderType is the database type handled by this package.
const ProviderType = "sqlite"

func init() {
	gormadapter.RegisterDialector(ProviderType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString returns the database path with a busy timeout so that concurrent
// writers wait for the lock instead of failing immediately.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	if strings.Contains(c.Database, "?") {
		return c.Database
	}
	return c.Database + "?_busy_timeout=5000"
}

// NewProvider creates the SQLite DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg.Digestor.DatabaseConfigs, ProviderType)
}
