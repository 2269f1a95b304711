// Package mysql registers the MySQL dialect (go-sql-driver/mysql through gorm.io/driver/mysql).
package mysql

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/orgdigestor/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/orgdigestor/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/orgdigestor/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/config"
)

// ProviderType is the database type handled by this package.
const ProviderType = "mysql"

func init() {
	gormadapter.RegisterDialector(ProviderType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds user:password@tcp(host:port)/db with parseTime enabled.
// multiStatements is required by the migrator.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	auth := ""
	if c.User != "" {
		auth = c.User
		if c.Password != "" {
			auth += ":" + c.Password
		}
		auth += "@"
	}
	return fmt.Sprintf("%stcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC&multiStatements=true",
		auth, c.Host, c.Port, c.Database)
}

// NewProvider creates the MySQL DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg.Digestor.DatabaseConfigs, ProviderType)
}
