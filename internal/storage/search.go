/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package storage

import (
	"context"
	"fmt"
	"strings"

	"gofountain/internal/script"
)

// Query describes a token search.
// Text is matched case-insensitively as a substring of the token text.
// Kinds restricts the token kinds; empty means all.
// Character restricts results to dialogue and parentheticals spoken by that
// cue; a cue extension such as "(V.O.)" is ignored.
// Script restricts results to one script name.
// Limit/Offset implement pagination; reasonable defaults applied if zero.
type Query struct {
	Text      string
	Kinds     []script.Kind
	Character string
	Script    string
	Limit     int
	Offset    int
}

// Hit is a single matching token with its surroundings.
type Hit struct {
	Script      string
	Seq         int
	Kind        script.Kind
	Text        string
	Line        int
	Scene       string // heading of the enclosing scene, if any
	SceneNumber string
	Cue         string // speaking character for dialogue and parentheticals
}

// DefaultLimit is applied when a query has no limit.
const DefaultLimit = 100

// Clean trims the query strings and applies the paging defaults.
func (q Query) Clean() Query {
	q.Text = strings.TrimSpace(q.Text)
	q.Character = strings.TrimSpace(q.Character)
	q.Script = strings.TrimSpace(q.Script)
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return q
}

// EscapeLike escapes the LIKE wildcards in s using backslash as the escape
// character.
func EscapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// KindNames returns the String names of kinds.
func KindNames(kinds []script.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = k.String()
	}
	return out
}

// language=SQL
// dialect=SQLite
const searchBaseSQL = `WITH hits AS (
	SELECT t.name, t.seq, t.kind, t.text, t.line,
		COALESCE((SELECT s.text FROM tokens s WHERE s.name = t.name AND s.kind = 'scene_heading' AND s.seq <= t.seq ORDER BY s.seq DESC LIMIT 1), '') AS scene,
		COALESCE((SELECT s.scene_number FROM tokens s WHERE s.name = t.name AND s.kind = 'scene_heading' AND s.seq <= t.seq ORDER BY s.seq DESC LIMIT 1), '') AS scene_number,
		CASE WHEN t.kind IN ('dialogue', 'parenthetical')
			THEN COALESCE((SELECT c.text FROM tokens c WHERE c.name = t.name AND c.kind = 'character' AND c.seq < t.seq ORDER BY c.seq DESC LIMIT 1), '')
			ELSE '' END AS cue
	FROM tokens t
)
SELECT name, seq, kind, text, line, scene, scene_number, cue FROM hits WHERE 1=1
`

// Search finds tokens matching q across the index, ordered by script name and
// document position.
func (ix *Index) Search(ctx context.Context, q Query) ([]Hit, error) {
	q = q.Clean()
	var args []any
	var sb strings.Builder
	sb.WriteString(searchBaseSQL)
	if q.Text != "" {
		sb.WriteString(" AND lower(text) LIKE ? ESCAPE '\\'\n")
		args = append(args, "%"+EscapeLike(strings.ToLower(q.Text))+"%")
	}
	if len(q.Kinds) > 0 {
		sb.WriteString(" AND kind IN (" + placeholders(len(q.Kinds)) + ")\n")
		for _, k := range KindNames(q.Kinds) {
			args = append(args, k)
		}
	}
	if q.Script != "" {
		sb.WriteString(" AND name = ?\n")
		args = append(args, q.Script)
	}
	if q.Character != "" {
		cc := strings.ToLower(q.Character)
		sb.WriteString(" AND (lower(cue) = ? OR lower(cue) LIKE ? ESCAPE '\\')\n")
		args = append(args, cc, EscapeLike(cc)+" (%")
	}
	sb.WriteString("ORDER BY name, seq\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, q.Limit, q.Offset)

	rows, err := ix.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []Hit
	for rows.Next() {
		var (
			h    Hit
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

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	b := strings.Builder{}
	for i := 0; i < n; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString("?")
	}
	return b.String()
}
