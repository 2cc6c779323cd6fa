package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/goran-ethernal/StarkIndexor/internal/logger"
	"github.com/goran-ethernal/StarkIndexor/pkg/config"
	migrate "github.com/rubenv/sql-migrate"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T, journal string) (*sql.DB, string) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "nested", "store.sqlite")

	dbConfig := config.DatabaseConfig{Path: dbPath, JournalMode: journal}
	dbConfig.ApplyDefaults()

	sqlDB, err := NewSQLiteDBFromConfig(dbConfig)
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	_, err = sqlDB.Exec(`CREATE TABLE IF NOT EXISTS test_table (id INTEGER PRIMARY KEY, value TEXT);`)
	require.NoError(t, err)

	for i := range 2000 {
		_, err = sqlDB.Exec(`INSERT INTO test_table (value) VALUES (?);`, fmt.Sprintf("value_%d", i))
		require.NoError(t, err)
	}

	return sqlDB, dbPath
}

func TestVacuum_Modes(t *testing.T) {
	t.Parallel()

	for _, mode := range []string{"WAL", "TRUNCATE"} {
		t.Run(mode, func(t *testing.T) {
			t.Parallel()

			sqlDB, dbPath := setupTestDB(t, mode)

			_, err := sqlDB.Exec(`DELETE FROM test_table WHERE id % 2 = 0`)
			require.NoError(t, err)

			initialSize, err := DBTotalSize(dbPath)
			require.NoError(t, err)

			require.NoError(t, Vacuum(sqlDB))

			finalSize, err := DBTotalSize(dbPath)
			require.NoError(t, err)
			require.LessOrEqual(t, finalSize, initialSize)
		})
	}
}

func TestDBTotalSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		files map[string]string // suffix -> content
		want  int64
	}{
		{
			name:  "main only",
			files: map[string]string{"": "main-db-content"},
			want:  int64(len("main-db-content")),
		},
		{
			name:  "with wal and shm",
			files: map[string]string{"": "main-db", "-wal": "wal-content", "-shm": "shm-content"},
			want:  int64(len("main-db") + len("wal-content") + len("shm-content")),
		},
		{
			name: "missing files",
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mainPath := filepath.Join(t.TempDir(), "main.db")
			for suffix, content := range tt.files {
				require.NoError(t, os.WriteFile(mainPath+suffix, []byte(content), 0o600))
			}

			size, err := DBTotalSize(mainPath)
			require.NoError(t, err)
			require.Equal(t, tt.want, size)
		})
	}
}

func TestLoadAndRunMigrations(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"migrations/0002_b.sql": {Data: []byte("-- +migrate Down\nDROP TABLE b;\n-- +migrate Up\nCREATE TABLE b (id INTEGER);")},
		"migrations/0001_a.sql": {Data: []byte("-- +migrate Down\nDROP TABLE a;\n-- +migrate Up\nCREATE TABLE a (id INTEGER);")},
		"migrations/README.md":  {Data: []byte("ignored")},
	}

	migs, err := LoadMigrations(fsys, "migrations")
	require.NoError(t, err)
	require.Len(t, migs, 2)
	require.Equal(t, "0001_a", migs[0].ID)
	require.Equal(t, "0002_b", migs[1].ID)

	sqlDB, err := NewSQLiteDB(filepath.Join(t.TempDir(), "mig.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	log := logger.NewNopLogger()
	require.NoError(t, RunMigrationsDB(log, sqlDB, migs))
	// applying twice is a no-op
	require.NoError(t, RunMigrationsDB(log, sqlDB, migs))

	_, err = sqlDB.Exec(`INSERT INTO b (id) VALUES (1)`)
	require.NoError(t, err)

	require.NoError(t, RunMigrationsDBExtended(log, sqlDB, migs, migrate.Down, 1))
	_, err = sqlDB.Exec(`INSERT INTO b (id) VALUES (1)`)
	require.Error(t, err)
	_, err = sqlDB.Exec(`INSERT INTO a (id) VALUES (1)`)
	require.NoError(t, err)
}

func TestRunMigrations_MissingSeparator(t *testing.T) {
	t.Parallel()

	sqlDB, err := NewSQLiteDB(filepath.Join(t.TempDir(), "bad.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	err = RunMigrationsDB(logger.NewNopLogger(), sqlDB, []Migration{{ID: "0001", SQL: "CREATE TABLE x (id INTEGER);"}})
	require.ErrorContains(t, err, "missing")
}
