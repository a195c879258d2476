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
	"strings"
	"time"

	applog "gofountain/internal/log"
	"gofountain/internal/render"
	"gofountain/internal/script"
)

// ScriptInfo describes one indexed script.
type ScriptInfo struct {
	Name      string
	Title     string
	UpdatedAt time.Time
	Tokens    int
}

// Scene is a scene heading as stored in the index.
type Scene struct {
	Seq     int
	Line    int
	Heading string
	Number  string
}

// language=SQL
// dialect=SQLite
const upsertScriptSQL = `INSERT INTO scripts(name, title, updated_at) VALUES(?, ?, ?)
ON CONFLICT(name) DO UPDATE SET title=excluded.title, updated_at=excluded.updated_at`

// language=SQL
// dialect=SQLite
const insertTokenSQL = `INSERT INTO tokens(name, seq, kind, text, line, scene_number, depth, dual, title_page)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`

// Put tokenizes text and stores it under name: the script's token rows are
// replaced and a new snapshot of the raw text is recorded, all in one
// transaction.
func (ix *Index) Put(ctx context.Context, name, text string) (Snapshot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Snapshot{}, errors.New("storage: script name is required")
	}
	l := applog.WithOperation(applog.WithComponent("storage"), "put")
	ctx = applog.ContextWithScript(ctx, name)

	parsed, err := render.Parse(text, render.Options{})
	if err != nil {
		return Snapshot{}, err
	}
	ts := time.Now().UTC()

	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("begin tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, upsertScriptSQL, name, parsed.Title, ts.Format(time.RFC3339Nano)); err != nil {
		_ = tx.Rollback()
		return Snapshot{}, fmt.Errorf("upsert script: %w", err)
	}
	if err := replaceTokens(ctx, tx, name, parsed.Tokens); err != nil {
		_ = tx.Rollback()
		return Snapshot{}, err
	}
	snap, err := ix.insertSnapshot(ctx, tx, name, text, ts)
	if err != nil {
		_ = tx.Rollback()
		return Snapshot{}, err
	}
	if err := tx.Commit(); err != nil {
		return Snapshot{}, fmt.Errorf("commit: %w", err)
	}
	l.InfoContext(ctx, "script indexed", "tokens", len(parsed.Tokens), "snapshot", snap.ID)
	return snap, nil
}

func replaceTokens(ctx context.Context, tx *sql.Tx, name string, toks []script.Token) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM tokens WHERE name=?`, name); err != nil {
		return fmt.Errorf("clear tokens: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, insertTokenSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for i, t := range toks {
		if _, err := ins.ExecContext(ctx, name, i, t.Kind.String(), t.Text, t.LineNumber,
			t.SceneNumber, t.Depth, t.Dual.String(), boolInt(t.IsTitlePage)); err != nil {
			return fmt.Errorf("insert token: %w", err)
		}
	}
	return nil
}

// Tokens loads the stored tokens of a script in document order.
func (ix *Index) Tokens(ctx context.Context, name string) ([]script.Token, error) {
	if err := ix.requireScript(ctx, name); err != nil {
		return nil, err
	}
	rows, err := ix.db.QueryContext(ctx, `SELECT kind, text, line, scene_number, depth, dual, title_page
		FROM tokens WHERE name=? ORDER BY seq`, name)
	if err != nil {
		return nil, fmt.Errorf("tokens query: %w", err)
	}
	defer rows.Close()
	var out []script.Token
	for rows.Next() {
		var (
			t     script.Token
			kind  string
			dual  string
			title int
		)
		if err := rows.Scan(&kind, &t.Text, &t.LineNumber, &t.SceneNumber, &t.Depth, &dual, &title); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		k, ok := script.ParseKind(kind)
		if !ok {
			return nil, fmt.Errorf("unknown token kind %q", kind)
		}
		t.Kind = k
		t.Dual = script.ParseDual(dual)
		t.IsTitlePage = title != 0
		out = append(out, t)
	}
	return out, rows.Err()
}

// Scripts lists every indexed script ordered by name.
func (ix *Index) Scripts(ctx context.Context) ([]ScriptInfo, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT s.name, s.title, s.updated_at,
		(SELECT COUNT(*) FROM tokens t WHERE t.name = s.name)
		FROM scripts s ORDER BY s.name`)
	if err != nil {
		return nil, fmt.Errorf("scripts query: %w", err)
	}
	defer rows.Close()
	var out []ScriptInfo
	for rows.Next() {
		var (
			si ScriptInfo
			ts string
		)
		if err := rows.Scan(&si.Name, &si.Title, &ts, &si.Tokens); err != nil {
			return nil, fmt.Errorf("scan script: %w", err)
		}
		si.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, si)
	}
	return out, rows.Err()
}

// Remove deletes a script with its tokens and snapshots.
func (ix *Index) Remove(ctx context.Context, name string) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM scripts WHERE name=?`, name)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete script: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_ = tx.Rollback()
		return ErrNotFound
	}
	for _, q := range []string{`DELETE FROM tokens WHERE name=?`, `DELETE FROM script_snapshots WHERE name=?`} {
		if _, err := tx.ExecContext(ctx, q, name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("delete script rows: %w", err)
		}
	}
	return tx.Commit()
}

// Scenes returns the scene headings of a script in order.
func (ix *Index) Scenes(ctx context.Context, name string) ([]Scene, error) {
	if err := ix.requireScript(ctx, name); err != nil {
		return nil, err
	}
	rows, err := ix.db.QueryContext(ctx, `SELECT seq, line, text, scene_number FROM tokens
		WHERE name=? AND kind=? ORDER BY seq`, name, script.KindSceneHeading.String())
	if err != nil {
		return nil, fmt.Errorf("scenes query: %w", err)
	}
	defer rows.Close()
	var out []Scene
	for rows.Next() {
		var sc Scene
		if err := rows.Scan(&sc.Seq, &sc.Line, &sc.Heading, &sc.Number); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// Reindex re-tokenizes every script from its latest snapshot. It returns the
// number of scripts processed.
func (ix *Index) Reindex(ctx context.Context) (int, error) {
	infos, err := ix.Scripts(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, si := range infos {
		snap, err := ix.Latest(ctx, si.Name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return n, err
		}
		parsed, err := render.Parse(snap.Text, render.Options{})
		if err != nil {
			return n, err
		}
		tx, err := ix.db.BeginTx(ctx, nil)
		if err != nil {
			return n, fmt.Errorf("begin tx: %w", err)
		}
		if err := replaceTokens(ctx, tx, si.Name, parsed.Tokens); err != nil {
			_ = tx.Rollback()
			return n, err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE scripts SET title=? WHERE name=?`, parsed.Title, si.Name); err != nil {
			_ = tx.Rollback()
			return n, fmt.Errorf("update title: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return n, fmt.Errorf("commit: %w", err)
		}
		n++
	}
	return n, nil
}

func (ix *Index) requireScript(ctx context.Context, name string) error {
	var one int
	err := ix.db.QueryRowContext(ctx, `SELECT 1 FROM scripts WHERE name=?`, name).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup script: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
