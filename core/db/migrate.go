package db

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const (
	upMarker   = "-- +goose Up"
	downMarker = "-- +goose Down"
)

// Migrate applies every embedded migration not yet recorded in
// schema_migrations, each in its own transaction. The files stay in goose
// format so they can also be run with the goose CLI.
func (db *DB) Migrate(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("listing migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		version := strings.TrimSuffix(path.Base(name), ".sql")

		var applied string
		err := db.pool.QueryRow(ctx, `SELECT version FROM schema_migrations WHERE version = $1`, version).Scan(&applied)
		if err == nil {
			continue
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("checking migration %s: %w", version, err)
		}

		raw, err := migrationFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", version, err)
		}

		if err := db.WithTx(ctx, func(tx DBTX) error {
			if _, err := tx.Exec(ctx, UpSection(string(raw))); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
			return err
		}); err != nil {
			return fmt.Errorf("applying migration %s: %w", version, err)
		}

		slog.InfoContext(ctx, "migration applied", "version", version)
	}

	return nil
}

// UpSection returns the statements between the goose Up and Down markers.
// A file without markers is returned whole.
func UpSection(sql string) string {
	if i := strings.Index(sql, upMarker); i >= 0 {
		sql = sql[i+len(upMarker):]
	}
	if i := strings.Index(sql, downMarker); i >= 0 {
		sql = sql[:i]
	}
	return strings.TrimSpace(sql)
}
