// Package migrations holds the goose migrations for the students and training sessions schema.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/noah-isme/weeklyworks-api/pkg/config"
)

//go:embed *.go
var sources embed.FS

// Up applies every pending migration for the given driver.
func Up(ctx context.Context, db *sql.DB, driver string) error {
	goose.SetBaseFS(sources)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect(dialectFor(driver)); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func dialectFor(driver string) string {
	if driver == config.DriverPostgres {
		return "postgres"
	}
	return "sqlite3"
}

func execAll(ctx context.Context, tx *sql.Tx, statements ...string) error {
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
