package db

import (
	"testing"
	"testing/fstest"

	"procurement-engine/migrations"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverMigrations_SortsAndFilters(t *testing.T) {
	fsys := fstest.MapFS{
		"002_second.sql": {Data: []byte("SELECT 2;")},
		"001_first.sql":  {Data: []byte("SELECT 1;")},
		"README.md":      {Data: []byte("docs")},
	}

	names, err := discoverMigrations(fsys)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_first.sql", "002_second.sql"}, names)
}

func TestDiscoverMigrations_RejectsDuplicateVersion(t *testing.T) {
	fsys := fstest.MapFS{
		"001_a.sql": {Data: []byte("SELECT 1;")},
		"001_b.sql": {Data: []byte("SELECT 1;")},
	}

	_, err := discoverMigrations(fsys)
	assert.ErrorContains(t, err, "duplicate migration version")
}

func TestDiscoverMigrations_RejectsBadName(t *testing.T) {
	fsys := fstest.MapFS{"schema.sql": {Data: []byte("SELECT 1;")}}

	_, err := discoverMigrations(fsys)
	assert.ErrorContains(t, err, "invalid migration filename")
}

func TestEmbeddedMigrationsAreWellFormed(t *testing.T) {
	names, err := discoverMigrations(migrations.FS)
	require.NoError(t, err)
	assert.NotEmpty(t, names)
	assert.Equal(t, "001_catalog.sql", names[0])
}
