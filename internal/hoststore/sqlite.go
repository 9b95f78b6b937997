package hoststore

import (
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/mattn/go-sqlite3"

	"github.com/1broseidon/vdmctl/internal/ipc"
	"github.com/1broseidon/vdmctl/internal/mode"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// SQLite persists the registry in a SQLite database so it survives host
// restarts. Each batch runs in one transaction.
type SQLite struct {
	db   *sql.DB
	path string
}

// OpenSQLite opens (creating if needed) the database at path and applies any
// pending schema migrations.
func OpenSQLite(path string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	if err := runMigrations(path); err != nil {
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	// One connection keeps batches strictly serialised.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &SQLite{db: db, path: path}, nil
}

func runMigrations(path string) error {
	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, "sqlite3://"+path)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *SQLite) Kind() string { return KindSQLite }

// Path returns the database file backing the store.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Close() error { return s.db.Close() }

// Snapshot returns every stored monitor ordered by id.
func (s *SQLite) Snapshot() ([]ipc.Monitor, error) {
	rows, err := s.db.Query(`SELECT id, enabled, name, modes FROM monitors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query monitors: %w", err)
	}
	defer rows.Close()

	var out []ipc.Monitor
	for rows.Next() {
		var (
			m       ipc.Monitor
			id      int64
			enabled int
			modes   string
		)
		if err := rows.Scan(&id, &enabled, &m.Name, &modes); err != nil {
			return nil, fmt.Errorf("scan monitor: %w", err)
		}
		m.ID = ipc.ID(id)
		m.Enabled = enabled != 0
		if err := json.Unmarshal([]byte(modes), &m.Modes); err != nil {
			return nil, fmt.Errorf("decode modes of monitor %d: %w", id, err)
		}
		if m.Modes == nil {
			m.Modes = []mode.Mode{}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// Apply upserts every monitor of the batch in one transaction.
func (s *SQLite) Apply(monitors []ipc.Monitor) error {
	if err := ipc.ValidateBatch(monitors); err != nil {
		return err
	}

	return s.inTx(func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`
			INSERT INTO monitors (id, enabled, name, modes, updated_at)
			VALUES (?, ?, ?, ?, datetime('now'))
			ON CONFLICT(id) DO UPDATE SET
				enabled = excluded.enabled,
				name = excluded.name,
				modes = excluded.modes,
				updated_at = excluded.updated_at`)
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, m := range monitors {
			modes := m.Modes
			if modes == nil {
				modes = []mode.Mode{}
			}
			encoded, err := json.Marshal(modes)
			if err != nil {
				return fmt.Errorf("encode modes of monitor %d: %w", m.ID, err)
			}
			if _, err := stmt.Exec(int64(m.ID), boolToInt(m.Enabled), m.Name, string(encoded)); err != nil {
				return fmt.Errorf("upsert monitor %d: %w", m.ID, err)
			}
		}
		return nil
	})
}

// Delete removes every id of the batch, or none of them if any is unknown.
func (s *SQLite) Delete(ids []ipc.ID) error {
	return s.inTx(func(tx *sql.Tx) error {
		present := make(map[ipc.ID]bool, len(ids))
		for _, id := range ids {
			var one int
			err := tx.QueryRow(`SELECT 1 FROM monitors WHERE id = ?`, int64(id)).Scan(&one)
			switch {
			case errors.Is(err, sql.ErrNoRows):
			case err != nil:
				return fmt.Errorf("lookup monitor %d: %w", id, err)
			default:
				present[id] = true
			}
		}
		if missing := missingIDs(ids, func(id ipc.ID) bool { return present[id] }); len(missing) > 0 {
			return &ipc.UnknownIDsError{IDs: missing}
		}

		for _, id := range ids {
			if _, err := tx.Exec(`DELETE FROM monitors WHERE id = ?`, int64(id)); err != nil {
				return fmt.Errorf("delete monitor %d: %w", id, err)
			}
		}
		return nil
	})
}

// Clear removes every monitor.
func (s *SQLite) Clear() error {
	return s.inTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`DELETE FROM monitors`); err != nil {
			return fmt.Errorf("clear monitors: %w", err)
		}
		return nil
	})
}

func (s *SQLite) inTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
