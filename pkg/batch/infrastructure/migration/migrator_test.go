package migration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/orgdigestor/pkg/batch/infrastructure/migration"
	"github.com/tigerroll/orgdigestor/pkg/batch/test"
)

func TestMigratorUpDown(t *testing.T) {
	conn := test.NewSQLiteConnection(t)
	m := migration.NewMigrator(conn)

	version, _, err := m.Version()
	require.NoError(t, err)
	assert.EqualValues(t, 0, version)

	require.NoError(t, m.Up())
	require.NoError(t, m.Up(), "an up-to-date schema is not an error")

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.EqualValues(t, 2, version)
	assert.False(t, dirty)
	assert.True(t, conn.GetGormDB().Migrator().HasTable("organizations"))
	assert.True(t, conn.GetGormDB().Migrator().HasTable("digest_job_executions"))

	require.NoError(t, m.Down())
	assert.False(t, conn.GetGormDB().Migrator().HasTable("organizations"))
}

func TestResourcesUnknownType(t *testing.T) {
	_, err := migration.Resources("oracle")
	assert.Error(t, err)

	fsys, err := migration.Resources("postgres")
	require.NoError(t, err)
	assert.NotNil(t, fsys)
}
