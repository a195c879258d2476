/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	applog "gofountain/internal/log"
	"gofountain/internal/render"
	"gofountain/internal/script"
)

// ErrNotFound is returned when a script has not been published.
var ErrNotFound = errors.New("backend: script not published")

// Revision identifies one published version of a script.
type Revision struct {
	ID        string
	ScriptID  int64
	Number    int
	Tokens    int
	CreatedAt time.Time
}

// Publish stores tokens as the current state of the named script and records
// a new revision. The script row is upserted and its tokens are replaced in a
// single transaction.
func Publish(ctx context.Context, db *sql.DB, name string, tokens []script.Token) (Revision, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Revision{}, errors.New("backend: script name is required")
	}
	l := applog.WithOperation(applog.WithComponent("backend"), "publish")
	ctx = applog.ContextWithScript(ctx, name)
	title, _ := render.Title(tokens)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Revision{}, fmt.Errorf("begin tx: %w", err)
	}
	rollback := func(err error) (Revision, error) {
		_ = tx.Rollback()
		return Revision{}, err
	}

	rev := Revision{ID: uuid.NewString(), Tokens: len(tokens)}
	// dialect=PostgreSQL
	if err := tx.QueryRowContext(ctx, `INSERT INTO scripts(name, title) VALUES($1, $2)
		ON CONFLICT (name) DO UPDATE SET title = EXCLUDED.title, updated_at = now()
		RETURNING id`, name, title).Scan(&rev.ScriptID); err != nil {
		return rollback(fmt.Errorf("upsert script: %w", err))
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tokens WHERE script_id = $1`, rev.ScriptID); err != nil {
		return rollback(fmt.Errorf("clear tokens: %w", err))
	}
	ins, err := tx.PrepareContext(ctx, `INSERT INTO tokens(script_id, seq, kind, text, line, scene_number, depth, dual, title_page)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)`)
	if err != nil {
		return rollback(fmt.Errorf("prepare insert: %w", err))
	}
	defer ins.Close()
	for i, t := range tokens {
		if _, err := ins.ExecContext(ctx, rev.ScriptID, i, t.Kind.String(), t.Text, t.LineNumber,
			t.SceneNumber, t.Depth, t.Dual.String(), t.IsTitlePage); err != nil {
			return rollback(fmt.Errorf("insert token: %w", err))
		}
	}
	if err := tx.QueryRowContext(ctx, `INSERT INTO revisions(id, script_id, number, token_count)
		VALUES($1, $2, (SELECT COALESCE(MAX(number), 0) + 1 FROM revisions WHERE script_id = $2), $3)
		RETURNING number, created_at`, rev.ID, rev.ScriptID, rev.Tokens).Scan(&rev.Number, &rev.CreatedAt); err != nil {
		return rollback(fmt.Errorf("insert revision: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return Revision{}, fmt.Errorf("commit: %w", err)
	}
	l.InfoContext(ctx, "script published", "revision", rev.Number, "id", rev.ID, "tokens", rev.Tokens)
	return rev, nil
}

// Revisions lists the revisions of a published script, newest first.
func Revisions(ctx context.Context, db *sql.DB, name string) ([]Revision, error) {
	rows, err := db.QueryContext(ctx, `SELECT r.id, r.script_id, r.number, r.token_count, r.created_at
		FROM revisions r JOIN scripts s ON s.id = r.script_id
		WHERE s.name = $1 ORDER BY r.number DESC`, name)
	if err != nil {
		return nil, fmt.Errorf("revisions query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Revision
	for rows.Next() {
		var r Revision
		if err := rows.Scan(&r.ID, &r.ScriptID, &r.Number, &r.Tokens, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan revision: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// Tokens loads the published tokens of a script in document order.
func Tokens(ctx context.Context, db *sql.DB, name string) ([]script.Token, error) {
	var id int64
	err := db.QueryRowContext(ctx, `SELECT id FROM scripts WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup script: %w", err)
	}
	rows, err := db.QueryContext(ctx, `SELECT kind, text, line, scene_number, depth, dual, title_page
		FROM tokens WHERE script_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("tokens query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []script.Token
	for rows.Next() {
		var (
			t    script.Token
			kind string
			dual string
		)
		if err := rows.Scan(&kind, &t.Text, &t.LineNumber, &t.SceneNumber, &t.Depth, &dual, &t.IsTitlePage); err != nil {
			return nil, fmt.Errorf("scan token: %w", err)
		}
		k, ok := script.ParseKind(kind)
		if !ok {
			return nil, fmt.Errorf("unknown token kind %q", kind)
		}
		t.Kind, t.Dual = k, script.ParseDual(dual)
		out = append(out, t)
	}
	return out, rows.Err()
}
