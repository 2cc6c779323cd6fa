package store

import (
	"embed"

	"github.com/goran-ethernal/StarkIndexor/internal/db"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrations returns the entity store schema migrations in apply order.
func Migrations() ([]db.Migration, error) {
	return db.LoadMigrations(migrationsFS, "migrations")
}
