package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/iliyamo/contacts-api/internal/database/migrations"
)

// gooseRun is a seam for testing goose.RunContext.
var gooseRun = func(ctx context.Context, command string, db *sql.DB, dir string) error {
	return goose.RunContext(ctx, command, db, dir)
}

// Migrate applies a goose command ("up", "down" or "status") using the
// migrations embedded in the binary.
func Migrate(ctx context.Context, db *sql.DB, command string) error {
	switch command {
	case "up", "down", "status":
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("mysql"); err != nil {
		return err
	}
	return gooseRun(ctx, command, db, ".")
}
