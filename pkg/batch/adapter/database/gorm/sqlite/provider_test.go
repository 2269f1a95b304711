package sqlite

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/orgdigestor/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/orgdigestor/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/config"
)

func TestConnectionString(t *testing.T) {
	assert.Equal(t, "orgs.db?_busy_timeout=5000", ConnectionString(dbconfig.DatabaseConfig{Database: "orgs.db"}))
	assert.Equal(t, "file::memory:?cache=shared", ConnectionString(dbconfig.DatabaseConfig{Database: "file::memory:?cache=shared"}))
}

func TestProviderOpensAndCachesConnection(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Digestor.DatabaseConfigs["organizations"] = map[string]interface{}{
		"type":     "sqlite",
		"database": filepath.Join(t.TempDir(), "orgs.db"),
		"pool":     map[string]interface{}{"max_open_conns": 1},
	}

	resolver := gormadapter.NewConnectionResolverFor(cfg.Digestor.DatabaseConfigs, NewProvider(cfg))
	conn, err := resolver.Resolve("organizations")
	require.NoError(t, err)
	again, err := resolver.Resolve("organizations")
	require.NoError(t, err)
	assert.Same(t, conn, again)
	assert.Equal(t, "sqlite", conn.Type())

	sqlDB, err := conn.GetSQLDB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)

	err = conn.GetGormDB().Exec("SELECT * FROM missing_table").Error
	assert.True(t, conn.IsTableNotExistError(err))

	require.NoError(t, resolver.CloseAll())
}
