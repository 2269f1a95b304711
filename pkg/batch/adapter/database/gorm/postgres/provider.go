// Package postgres registers the PostgreSQL dialect (pgx through gorm.io/driver/postgres).
package postgres

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tigerroll/orgdigestor/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/orgdigestor/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/orgdigestor/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/config"
)

// ProviderType is the database type handled by this package.
const ProviderType = "postgres"

func init() {
	gormadapter.RegisterDialector(ProviderType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return postgres.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds a key/value DSN. sslmode defaults to "disable".
func ConnectionString(c dbconfig.DatabaseConfig) string {
	sslmode := c.Sslmode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslmode)
}

// NewProvider creates the PostgreSQL DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg.Digestor.DatabaseConfigs, ProviderType)
}
