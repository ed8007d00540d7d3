package migrations

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	"github.com/Simplici0/cotizador/internal/db"
)

//go:embed sqlite/*.sql postgres/*.sql
var embedded embed.FS

// Up runs all pending SQL migrations for the dialect.
func Up(database *sql.DB, dialect db.Dialect) error {
	gooseDialect, dir, err := gooseTarget(dialect)
	if err != nil {
		return err
	}

	goose.SetBaseFS(embedded)
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.Up(database, dir); err != nil {
		return fmt.Errorf("run goose up migrations: %w", err)
	}

	return nil
}

func gooseTarget(dialect db.Dialect) (string, string, error) {
	switch dialect {
	case db.SQLite:
		return "sqlite3", "sqlite", nil
	case db.Postgres:
		return "postgres", "postgres", nil
	}
	return "", "", fmt.Errorf("no migrations for dialect %q", dialect)
}
