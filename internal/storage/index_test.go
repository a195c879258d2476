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
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func openTestIndex(t *testing.T) *Index {
	t.Helper()
	ix, err := Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func TestOpenCreatesWALAndSchema(t *testing.T) {
	ix := openTestIndex(t)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var mode string
	if err := ix.db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("read journal_mode: %v", err)
	}
	if mode != "wal" && mode != "WAL" {
		t.Fatalf("expected WAL mode, got %s", mode)
	}
	var cnt int
	if err := ix.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('meta','version','scripts','tokens','script_snapshots')").Scan(&cnt); err != nil {
		t.Fatalf("query sqlite_master: %v", err)
	}
	if cnt != 5 {
		t.Fatalf("expected 5 tables, got %d", cnt)
	}
	v, err := ix.SchemaVersion(ctx)
	if err != nil || v != schemaVersion {
		t.Fatalf("SchemaVersion = %d, %v; want %d", v, err, schemaVersion)
	}
	if err := ix.Verify(ctx); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ctx := context.Background()
	ix, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := ix.Put(ctx, "brick", brickAndSteel); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := ix.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	ix, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer ix.Close()
	infos, err := ix.Scripts(ctx)
	if err != nil || len(infos) != 1 || infos[0].Name != "brick" {
		t.Fatalf("Scripts after reopen = %+v, %v", infos, err)
	}
}

// TestMigrationFromV1 opens a database written before snapshots had a codec
// column and expects the old rows to stay readable.
func TestMigrationFromV1(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(2000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT NOT NULL);`,
		`CREATE TABLE version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version(id, schema, app, created_at, updated_at) VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
		`CREATE TABLE scripts (name TEXT PRIMARY KEY, title TEXT NOT NULL DEFAULT '', updated_at TEXT NOT NULL);`,
		`CREATE TABLE tokens (id INTEGER PRIMARY KEY, name TEXT NOT NULL, seq INTEGER NOT NULL, kind TEXT NOT NULL, text TEXT NOT NULL DEFAULT '', line INTEGER NOT NULL, scene_number TEXT NOT NULL DEFAULT '', depth INTEGER NOT NULL DEFAULT 0, dual TEXT NOT NULL DEFAULT '', title_page INTEGER NOT NULL DEFAULT 0, UNIQUE(name, seq));`,
		`CREATE TABLE script_snapshots (id TEXT PRIMARY KEY, name TEXT NOT NULL, ts TEXT NOT NULL, text BLOB);`,
		`INSERT INTO scripts(name, title, updated_at) VALUES('old', '', '2020-01-01T00:00:00Z');`,
		`INSERT INTO script_snapshots(id, name, ts, text) VALUES('s1', 'old', '2020-01-01T00:00:00Z', 'FADE OUT.');`,
	}
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1 schema: %v (q=%s)", err, q)
		}
	}
	_ = db.Close()

	ix, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer ix.Close()
	v, err := ix.SchemaVersion(ctx)
	if err != nil || v != 2 {
		t.Fatalf("schema after migration = %d, %v", v, err)
	}
	snap, err := ix.Latest(ctx, "old")
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if snap.Text != "FADE OUT." || snap.ID != "s1" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	// the old snapshot is enough to rebuild the token rows
	n, err := ix.Reindex(ctx)
	if err != nil || n != 1 {
		t.Fatalf("Reindex = %d, %v", n, err)
	}
	toks, err := ix.Tokens(ctx, "old")
	if err != nil || len(toks) != 1 || toks[0].Text != "FADE OUT." {
		t.Fatalf("Tokens after reindex = %+v, %v", toks, err)
	}
}

func TestOpenOrResetOnCorruption(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")
	if err := os.WriteFile(path, []byte("THIS IS NOT SQLITE, NOT EVEN CLOSE TO A DATABASE HEADER"), 0o644); err != nil {
		t.Fatalf("write corrupt: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ix, reset, err := OpenOrReset(ctx, path)
	if err != nil {
		t.Fatalf("OpenOrReset: %v", err)
	}
	defer ix.Close()
	if !reset {
		t.Fatalf("expected reset to occur")
	}
	if err := ix.Verify(ctx); err != nil {
		t.Fatalf("Verify after reset: %v", err)
	}
	entries, _ := os.ReadDir(filepath.Join(dir, "backups"))
	if len(entries) == 0 {
		t.Fatalf("expected backup file in %s", filepath.Join(dir, "backups"))
	}
}

func TestOpenOrResetHealthy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	ix, reset, err := OpenOrReset(context.Background(), path)
	if err != nil {
		t.Fatalf("OpenOrReset: %v", err)
	}
	defer ix.Close()
	if reset {
		t.Fatalf("fresh index should not be reset")
	}
	if ix.Path() != path {
		t.Fatalf("Path = %q", ix.Path())
	}
}
