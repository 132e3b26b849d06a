// Command migrate applies the SQL files in migrations/ to PostgreSQL and
// records each applied version in schema_migrations.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

const createTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version    TEXT PRIMARY KEY,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// migration is one numbered pair of up and down files.
type migration struct {
	Version string
	Name    string
	Up      string
	Down    string
}

func main() {
	var (
		databaseURL = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		dir         = flag.String("dir", "migrations", "Directory holding NNNNNN_name.{up,down}.sql files")
		direction   = flag.String("direction", "up", "up or down")
		steps       = flag.Int("steps", 0, "Number of migrations to apply or revert; 0 means all pending (up) or one (down)")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if *databaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	migrations, err := load(os.DirFS(*dir))
	if err != nil {
		logger.Error("failed to read migrations", "dir", *dir, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := sql.Open("postgres", *databaseURL)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	if _, err := db.ExecContext(ctx, createTable); err != nil {
		logger.Error("failed to create schema_migrations", "error", err)
		os.Exit(1)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		logger.Error("failed to read schema_migrations", "error", err)
		os.Exit(1)
	}

	switch *direction {
	case "up":
		for _, m := range limit(pending(migrations, applied), *steps) {
			if err := apply(ctx, db, m.Up, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
				logger.Error("migration failed", "version", m.Version, "name", m.Name, "error", err)
				os.Exit(1)
			}
			logger.Info("migration applied", "version", m.Version, "name", m.Name)
		}
	case "down":
		n := *steps
		if n <= 0 {
			n = 1
		}
		for _, m := range limit(revertible(migrations, applied), n) {
			if m.Down == "" {
				logger.Error("migration has no down file", "version", m.Version)
				os.Exit(1)
			}
			if err := apply(ctx, db, m.Down, `DELETE FROM schema_migrations WHERE version = $1`, m.Version); err != nil {
				logger.Error("revert failed", "version", m.Version, "name", m.Name, "error", err)
				os.Exit(1)
			}
			logger.Info("migration reverted", "version", m.Version, "name", m.Name)
		}
	default:
		logger.Error("invalid direction; use up or down", "direction", *direction)
		os.Exit(1)
	}
}

// load reads every NNNNNN_name.up.sql file and its optional down file,
// ordered by version.
func load(fsys fs.FS) ([]migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	byVersion := make(map[string]*migration)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}

		base, kind, ok := splitName(name)
		if !ok {
			return nil, fmt.Errorf("unexpected migration file name %q", name)
		}
		version, label, _ := strings.Cut(base, "_")

		body, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}

		m := byVersion[version]
		if m == nil {
			m = &migration{Version: version, Name: label}
			byVersion[version] = m
		}
		if kind == "up" {
			m.Up = string(body)
		} else {
			m.Down = string(body)
		}
	}

	out := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.Up == "" {
			return nil, fmt.Errorf("migration %s has no up file", m.Version)
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out, nil
}

func splitName(name string) (base, kind string, ok bool) {
	trimmed := strings.TrimSuffix(name, ".sql")
	if b, found := strings.CutSuffix(trimmed, ".up"); found {
		return b, "up", b != ""
	}
	if b, found := strings.CutSuffix(trimmed, ".down"); found {
		return b, "down", b != ""
	}
	return "", "", false
}

// pending returns migrations not yet applied, oldest first.
func pending(all []migration, applied map[string]bool) []migration {
	var out []migration
	for _, m := range all {
		if !applied[m.Version] {
			out = append(out, m)
		}
	}
	return out
}

// revertible returns applied migrations, newest first.
func revertible(all []migration, applied map[string]bool) []migration {
	var out []migration
	for i := len(all) - 1; i >= 0; i-- {
		if applied[all[i].Version] {
			out = append(out, all[i])
		}
	}
	return out
}

func limit(ms []migration, n int) []migration {
	if n > 0 && n < len(ms) {
		return ms[:n]
	}
	return ms
}

func appliedVersions(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

// apply runs body and the bookkeeping statement in one transaction.
func apply(ctx context.Context, db *sql.DB, body, record, version string) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, tx.Rollback())
		}
	}()

	if _, err = tx.ExecContext(ctx, body); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, record, version); err != nil {
		return err
	}
	return tx.Commit()
}
