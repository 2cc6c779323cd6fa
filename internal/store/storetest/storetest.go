// Package storetest provides a migrated entity store backed by a temporary SQLite file.
package storetest

import (
	"path/filepath"
	"testing"

	"github.com/goran-ethernal/StarkIndexor/internal/db"
	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/internal/store"
	"github.com/stretchr/testify/require"
)

// NewStore returns a fresh store that is closed when the test ends.
func NewStore(t *testing.T) *store.Store {
	t.Helper()

	sqlDB, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "store.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	migrations, err := store.Migrations()
	require.NoError(t, err)

	log := logger.NewNopLogger()
	require.NoError(t, db.RunMigrationsDB(log, sqlDB, migrations))

	return store.New(sqlDB, nil, log)
}
