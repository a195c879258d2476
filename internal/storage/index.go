/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	_ "modernc.org/sqlite"

	applog "gofountain/internal/log"
	"gofountain/internal/version"
)

// schemaVersion is the current index schema. Version 2 added the codec column
// on script_snapshots so snapshot text can be stored zstd compressed.
const schemaVersion = 2

// ErrNotFound is returned when a named script is not in the index.
var ErrNotFound = errors.New("storage: script not found")

// Index is an embedded SQLite database holding tokenized scripts and their
// snapshot history. It is safe for concurrent use; SQLite access is
// serialized over a single connection.
type Index struct {
	db   *sql.DB
	path string
	enc  *zstd.Encoder
	dec  *zstd.Decoder
}

// Open creates or opens the index database at path, applying pragmas and
// schema migrations.
func Open(path string) (*Index, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("storage: index path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	if err != nil {
		_ = enc.Close()
		_ = db.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	applog.WithComponent("storage").Debug("index opened", "path", path)
	return &Index{db: db, path: path, enc: enc, dec: dec}, nil
}

func openDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps WAL writers from tripping over each other.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, p := range []string{`PRAGMA journal_mode=WAL;`, `PRAGMA foreign_keys=ON;`} {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma: %w", err)
		}
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureIndexSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Path returns the database file path.
func (ix *Index) Path() string { return ix.path }

// Close releases the database and codec resources.
func (ix *Index) Close() error {
	if ix == nil {
		return nil
	}
	_ = ix.enc.Close()
	ix.dec.Close()
	return ix.db.Close()
}

// SchemaVersion reports the schema version recorded in the database.
func (ix *Index) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := ix.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

// Verify runs SQLite's quick_check and probes the core tables.
func (ix *Index) Verify(ctx context.Context) error {
	var chk string
	if err := ix.db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil {
		return fmt.Errorf("quick_check: %w", err)
	}
	if !strings.EqualFold(strings.TrimSpace(chk), "ok") {
		return fmt.Errorf("quick_check: %s", chk)
	}
	for _, q := range []string{`SELECT 1 FROM scripts LIMIT 1;`, `SELECT 1 FROM tokens LIMIT 1;`} {
		if _, err := ix.db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("probe schema: %w", err)
		}
	}
	return nil
}

// OpenOrReset opens the index and, when the file cannot be opened or fails
// Verify, moves it to a timestamped backup next to it and starts a fresh
// index. reset reports whether that happened.
func OpenOrReset(ctx context.Context, path string) (ix *Index, reset bool, err error) {
	ix, err = Open(path)
	if err == nil {
		if err = ix.Verify(ctx); err == nil {
			return ix, false, nil
		}
		_ = ix.Close()
	}
	applog.WithComponent("storage").Warn("index unusable, resetting", "path", path, "err", err)
	backupIndexFile(path)
	for _, p := range []string{path, path + "-wal", path + "-shm"} {
		_ = os.Remove(p)
	}
	ix, err = Open(path)
	if err != nil {
		return nil, false, fmt.Errorf("reopen after reset: %w", err)
	}
	return ix, true, nil
}

// backupIndexFile copies the current index file into a timestamped backup in a
// backups directory beside it.
func backupIndexFile(indexPath string) {
	bdir := filepath.Join(filepath.Dir(indexPath), "backups")
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(indexPath), stamp))
	if data, err := os.ReadFile(indexPath); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	// meta table for arbitrary key/value pairs
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`); err != nil {
		return fmt.Errorf("ensure meta: %w", err)
	}
	// single-row version table
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS version (
		id INTEGER PRIMARY KEY CHECK(id=1),
		schema INTEGER NOT NULL,
		app TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);`); err != nil {
		return fmt.Errorf("ensure version: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	app := version.String()
	res, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1;`, app, now)
	if err != nil {
		return fmt.Errorf("update version: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := db.ExecContext(ctx, `INSERT INTO version(id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?);`, schemaVersion, app, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO meta(key, value) VALUES('created_by', ?) ON CONFLICT(key) DO NOTHING;`, app); err != nil {
		return fmt.Errorf("meta created_by: %w", err)
	}
	return nil
}

// runMigrations upgrades the schema one version at a time, each step in its
// own transaction.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var current int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for current < schemaVersion {
		next := current + 1
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration tx: %w", err)
		}
		switch next {
		case 2:
			if err := addColumnIfMissing(ctx, tx, "script_snapshots", "codec", `TEXT NOT NULL DEFAULT 'plain'`); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migrate to v2: %w", err)
			}
		default:
			_ = tx.Rollback()
			return fmt.Errorf("no migration to schema %d", next)
		}
		now := time.Now().UTC().Format(time.RFC3339)
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, now); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("bump schema version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", next, err)
		}
		current = next
	}
	return nil
}

func addColumnIfMissing(ctx context.Context, tx *sql.Tx, table, column, decl string) error {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s);`, table))
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notnull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	_ = rows.Close()
	_, err = tx.ExecContext(ctx, fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s;`, table, column, decl))
	return err
}

func ensureIndexSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS scripts (
			name       TEXT PRIMARY KEY,
			title      TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL
		);`,

		// One row per token, in document order (seq).
		`CREATE TABLE IF NOT EXISTS tokens (
			id           INTEGER PRIMARY KEY,
			name         TEXT    NOT NULL REFERENCES scripts(name) ON DELETE CASCADE,
			seq          INTEGER NOT NULL,
			kind         TEXT    NOT NULL,
			text         TEXT    NOT NULL DEFAULT '',
			line         INTEGER NOT NULL,
			scene_number TEXT    NOT NULL DEFAULT '',
			depth        INTEGER NOT NULL DEFAULT 0,
			dual         TEXT    NOT NULL DEFAULT '',
			title_page   INTEGER NOT NULL DEFAULT 0,
			UNIQUE(name, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tokens_kind ON tokens(kind);`,

		// Script snapshots (history of script text for change tracking)
		`CREATE TABLE IF NOT EXISTS script_snapshots (
			id    TEXT PRIMARY KEY,
			name  TEXT NOT NULL,
			ts    TEXT NOT NULL,
			codec TEXT NOT NULL DEFAULT 'plain',
			text  BLOB
		);`,
		`CREATE INDEX IF NOT EXISTS idx_script_snapshots_name_ts ON script_snapshots(name, ts);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure index schema: %w", err)
		}
	}
	return nil
}
