// Package migrations holds the shared catalog schema, applied with
// goose. Tenant schema migrations live in
// modules/core/infrastructure/schema and are applied per schema by the
// migrator instead.
package migrations

import (
	"database/sql"
	"embed"

	"github.com/pressly/goose/v3"
)

//go:embed catalog/*.sql
var catalogFS embed.FS

const catalogDir = "catalog"

func setup() error {
	goose.SetBaseFS(catalogFS)
	return goose.SetDialect("postgres")
}

// UpCatalog applies all pending catalog migrations.
func UpCatalog(db *sql.DB) error {
	if err := setup(); err != nil {
		return err
	}
	return goose.Up(db, catalogDir)
}

// DownCatalog rolls back the most recent catalog migration.
func DownCatalog(db *sql.DB) error {
	if err := setup(); err != nil {
		return err
	}
	return goose.Down(db, catalogDir)
}

// StatusCatalog prints the applied and pending catalog migrations.
func StatusCatalog(db *sql.DB) error {
	if err := setup(); err != nil {
		return err
	}
	return goose.Status(db, catalogDir)
}
