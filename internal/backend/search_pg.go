/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package backend

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"gofountain/internal/script"
	"gofountain/internal/storage"
)

// dialect=PostgreSQL
const searchBasePG = `SELECT s.name, t.seq, t.kind, t.text, t.line,
	COALESCE(sc.text, ''), COALESCE(sc.scene_number, ''), COALESCE(cu.text, '')
FROM tokens t
JOIN scripts s ON s.id = t.script_id
LEFT JOIN LATERAL (
	SELECT x.text, x.scene_number FROM tokens x
	WHERE x.script_id = t.script_id AND x.kind = 'scene_heading' AND x.seq <= t.seq
	ORDER BY x.seq DESC LIMIT 1
) sc ON true
LEFT JOIN LATERAL (
	SELECT x.text FROM tokens x
	WHERE x.script_id = t.script_id AND x.kind = 'character' AND x.seq < t.seq
		AND t.kind IN ('dialogue', 'parenthetical')
	ORDER BY x.seq DESC LIMIT 1
) cu ON true
WHERE true`

// buildSearchPG renders q as a Postgres query with numbered placeholders.
func buildSearchPG(q storage.Query) (string, []any) {
	q = q.Clean()
	var (
		args []any
		b    strings.Builder
	)
	// Helper to add parameter and return placeholder like $n
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	b.WriteString(searchBasePG)
	if q.Text != "" {
		b.WriteString(" AND lower(t.text) LIKE " + place("%"+storage.EscapeLike(strings.ToLower(q.Text))+"%") + ` ESCAPE '\'`)
	}
	if len(q.Kinds) > 0 {
		b.WriteString(" AND t.kind = ANY (" + place(storage.KindNames(q.Kinds)) + ")")
	}
	if q.Script != "" {
		b.WriteString(" AND s.name = " + place(q.Script))
	}
	if q.Character != "" {
		cc := strings.ToLower(q.Character)
		b.WriteString(" AND (lower(COALESCE(cu.text, '')) = " + place(cc) +
			" OR lower(COALESCE(cu.text, '')) LIKE " + place(storage.EscapeLike(cc)+" (%") + ` ESCAPE '\')`)
	}
	// byte order on names, matching SQLite's BINARY collation
	b.WriteString(` ORDER BY s.name COLLATE "C", t.seq`)
	b.WriteString(" LIMIT " + place(q.Limit) + " OFFSET " + place(q.Offset))
	return b.String(), args
}

// SearchPG runs a token search against the published scripts and returns the
// same hits the local index would for the same data.
func SearchPG(ctx context.Context, db *sql.DB, q storage.Query) ([]storage.Hit, error) {
	query, args := buildSearchPG(q)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []storage.Hit
	for rows.Next() {
		var (
			h    storage.Hit
			kind string
		)
		if err := rows.Scan(&h.Script, &h.Seq, &kind, &h.Text, &h.Line, &h.Scene, &h.SceneNumber, &h.Cue); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		k, ok := script.ParseKind(kind)
		if !ok {
			return nil, fmt.Errorf("unknown token kind %q", kind)
		}
		h.Kind = k
		out = append(out, h)
	}
	return out, rows.Err()
}
