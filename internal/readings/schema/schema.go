// Package schema owns the readings table migrations.
package schema

import (
	"database/sql"
	"embed"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver for database/sql
	"github.com/pressly/goose/v3"
)

// TableName is the goose version table used for the readings schema.
const TableName = "goose_readings"

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies pending migrations to db.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(migrations)
	goose.SetTableName(TableName)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	return nil
}

// RunMigrations opens a temporary database/sql connection to databaseURL and
// applies pending migrations. goose requires database/sql, so this cannot
// share a pgxpool.
func RunMigrations(databaseURL string) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database for migration: %w", err)
	}
	defer db.Close()

	return Migrate(db)
}
