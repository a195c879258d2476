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
	"time"

	"github.com/google/uuid"
)

// Snapshot is one recorded version of a script's raw text.
type Snapshot struct {
	ID   string
	Name string
	TS   time.Time
	Text string
}

const (
	codecPlain = "plain"
	codecZstd  = "zstd"
)

// language=SQL
// dialect=SQLite
const insertScriptSnapshotSQL = `INSERT INTO script_snapshots(id, name, ts, codec, text) VALUES (?, ?, ?, ?, ?)`

// language=SQL
// dialect=SQLite
const listScriptSnapshotsSQL = `SELECT id, ts, codec, text FROM script_snapshots
WHERE name = ? ORDER BY ts DESC, rowid DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldScriptSnapshotsSQL = `DELETE FROM script_snapshots WHERE name = ? AND id NOT IN (
	SELECT id FROM script_snapshots WHERE name = ? ORDER BY ts DESC, rowid DESC LIMIT ?
)`

// insertSnapshot stores text compressed when that makes it smaller.
func (ix *Index) insertSnapshot(ctx context.Context, tx *sql.Tx, name, text string, ts time.Time) (Snapshot, error) {
	codec, blob := codecPlain, []byte(text)
	if z := ix.enc.EncodeAll(blob, nil); len(z) < len(blob) {
		codec, blob = codecZstd, z
	}
	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx, insertScriptSnapshotSQL, id, name, ts.UTC().Format(time.RFC3339Nano), codec, blob); err != nil {
		return Snapshot{}, fmt.Errorf("insert snapshot: %w", err)
	}
	return Snapshot{ID: id, Name: name, TS: ts, Text: text}, nil
}

func (ix *Index) decode(codec string, blob []byte) (string, error) {
	switch codec {
	case codecPlain, "":
		return string(blob), nil
	case codecZstd:
		b, err := ix.dec.DecodeAll(blob, nil)
		if err != nil {
			return "", fmt.Errorf("decode snapshot: %w", err)
		}
		return string(b), nil
	default:
		return "", fmt.Errorf("unknown snapshot codec %q", codec)
	}
}

// Latest returns the most recent snapshot of a script, or ErrNotFound.
func (ix *Index) Latest(ctx context.Context, name string) (Snapshot, error) {
	snaps, err := ix.Snapshots(ctx, name, 1)
	if err != nil {
		return Snapshot{}, err
	}
	if len(snaps) == 0 {
		return Snapshot{}, ErrNotFound
	}
	return snaps[0], nil
}

// Snapshots returns up to limit most recent snapshots of a script, newest
// first. A limit of zero or less means 50.
func (ix *Index) Snapshots(ctx context.Context, name string, limit int) ([]Snapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := ix.db.QueryContext(ctx, listScriptSnapshotsSQL, name, limit)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()
	var out []Snapshot
	for rows.Next() {
		var (
			s     = Snapshot{Name: name}
			tsStr string
			codec string
			blob  []byte
		)
		if err := rows.Scan(&s.ID, &tsStr, &codec, &blob); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		s.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
		if s.Text, err = ix.decode(codec, blob); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Prune keeps at most keepLast snapshots of a script and deletes older ones.
// It returns the number of deleted snapshots; keepLast <= 0 is a no-op.
func (ix *Index) Prune(ctx context.Context, name string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := ix.db.ExecContext(ctx, pruneOldScriptSnapshotsSQL, name, name, keepLast)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

// Snapshot looks up a single snapshot by id.
func (ix *Index) Snapshot(ctx context.Context, id string) (Snapshot, error) {
	var (
		s     = Snapshot{ID: id}
		tsStr string
		codec string
		blob  []byte
	)
	err := ix.db.QueryRowContext(ctx, `SELECT name, ts, codec, text FROM script_snapshots WHERE id=?`, id).
		Scan(&s.Name, &tsStr, &codec, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("get snapshot: %w", err)
	}
	s.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
	if s.Text, err = ix.decode(codec, blob); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}
