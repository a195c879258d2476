/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gofountain/internal/backend"
	applog "gofountain/internal/log"
	"gofountain/internal/script"
	"gofountain/internal/storage"
)

// openIndex opens the configured index, resetting it when it is unusable.
func (a *app) openIndex(ctx context.Context) (*storage.Index, error) {
	if a.cfg.Storage.IndexPath == "" {
		return nil, errors.New("no index path configured (use --index)")
	}
	ix, reset, err := storage.OpenOrReset(ctx, a.cfg.Storage.IndexPath)
	if err != nil {
		return nil, err
	}
	if reset {
		applog.WithComponent("cli").Warn("index was unusable and has been reset", "path", a.cfg.Storage.IndexPath)
	}
	return ix, nil
}

func newIndexCmd(a *app) *cobra.Command {
	var (
		name    string
		reindex bool
	)
	cmd := &cobra.Command{
		Use:   "index [flags] [file.fountain...]",
		Short: "Add scripts to the local index, or list indexed scripts",
		Long: `Index tokenizes each file and stores its tokens and a snapshot of its text.
Without files it lists the indexed scripts. --reindex rebuilds every script's tokens from its latest snapshot.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if name != "" && len(args) != 1 {
				return errors.New("--name needs exactly one file")
			}
			ctx := cmd.Context()
			ix, err := a.openIndex(ctx)
			if err != nil {
				return err
			}
			defer ix.Close()
			w := cmd.OutOrStdout()

			if reindex {
				n, err := ix.Reindex(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "reindexed %d scripts\n", n)
			}
			if len(args) == 0 && !reindex {
				return listScripts(ctx, w, ix)
			}
			for _, path := range args {
				text, base, err := a.readInput(cmd, path)
				if err != nil {
					return err
				}
				if name != "" {
					base = name
				}
				snap, err := ix.Put(ctx, base, text)
				if err != nil {
					return fmt.Errorf("index %s: %w", path, err)
				}
				if _, err := ix.Prune(ctx, base, a.cfg.Storage.KeepSnapshots); err != nil {
					return err
				}
				fmt.Fprintf(w, "indexed %s (snapshot %s)\n", base, snap.ID)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "script name in the index (default: file name)")
	cmd.Flags().BoolVar(&reindex, "reindex", false, "rebuild tokens of all scripts from their latest snapshots")
	return cmd
}

func listScripts(ctx context.Context, w io.Writer, ix *storage.Index) error {
	infos, err := ix.Scripts(ctx)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		fmt.Fprintln(w, "no scripts indexed")
		return nil
	}
	for _, si := range infos {
		title := si.Title
		if title == "" {
			title = "-"
		}
		fmt.Fprintf(w, "%-24s %5d tokens  %s  %s\n", si.Name, si.Tokens, si.UpdatedAt.Local().Format(time.DateTime), title)
	}
	return nil
}

func newSearchCmd(a *app) *cobra.Command {
	var (
		q      storage.Query
		kinds  []string
		remote bool
	)
	cmd := &cobra.Command{
		Use:   "search [flags] [text]",
		Short: "Search token text across indexed scripts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				q.Text = args[0]
			}
			for _, k := range kinds {
				kind, ok := script.ParseKind(strings.TrimSpace(k))
				if !ok {
					return fmt.Errorf("unknown token kind %q", k)
				}
				q.Kinds = append(q.Kinds, kind)
			}
			ctx := cmd.Context()
			var hits []storage.Hit
			if remote {
				ctx, cancel := context.WithTimeout(ctx, a.cfg.Backend.Timeout())
				defer cancel()
				db, err := backend.Open(ctx, a.cfg.Backend.DSN)
				if err != nil {
					return err
				}
				defer db.Close()
				hits, err = backend.SearchPG(ctx, db, q)
				if err != nil {
					return err
				}
			} else {
				ix, err := a.openIndex(ctx)
				if err != nil {
					return err
				}
				defer ix.Close()
				hits, err = ix.Search(ctx, q)
				if err != nil {
					return err
				}
			}
			return printHits(cmd.OutOrStdout(), hits)
		},
	}
	f := cmd.Flags()
	f.StringSliceVar(&kinds, "kind", nil, "restrict to token kinds (e.g. dialogue,scene_heading)")
	f.StringVar(&q.Character, "character", "", "only dialogue and parentheticals spoken by this character")
	f.StringVar(&q.Script, "script", "", "only this script")
	f.IntVar(&q.Limit, "limit", storage.DefaultLimit, "maximum number of hits")
	f.IntVar(&q.Offset, "offset", 0, "number of hits to skip")
	f.BoolVar(&remote, "remote", false, "search the published scripts in Postgres instead of the local index")
	return cmd
}

func printHits(w io.Writer, hits []storage.Hit) error {
	if len(hits) == 0 {
		_, err := fmt.Fprintln(w, "no matches")
		return err
	}
	for _, h := range hits {
		loc := fmt.Sprintf("%s:%d", h.Script, h.Line)
		fmt.Fprintf(w, "%s  %s", colorMeta.Sprint(loc), h.Kind)
		if h.Scene != "" && h.Kind != script.KindSceneHeading {
			fmt.Fprintf(w, "  [%s]", colorScene.Sprint(h.Scene))
		}
		if h.Cue != "" {
			fmt.Fprintf(w, "  %s:", colorCharacter.Sprint(h.Cue))
		}
		if _, err := fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(h.Text, "\n", " / ")); err != nil {
			return err
		}
	}
	return nil
}

func newScenesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scenes name",
		Short: "List the scene headings of an indexed script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ix, err := a.openIndex(ctx)
			if err != nil {
				return err
			}
			defer ix.Close()
			scenes, err := ix.Scenes(ctx, args[0])
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for i, sc := range scenes {
				num := sc.Number
				if num == "" {
					num = "-"
				}
				fmt.Fprintf(w, "%3d  %-5s line %-5d %s\n", i+1, num, sc.Line, colorScene.Sprint(sc.Heading))
			}
			return nil
		},
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var (
		show  string
		limit int
		prune int
	)
	cmd := &cobra.Command{
		Use:   "history [flags] name",
		Short: "List, show or prune the snapshots of an indexed script",
		Args:  cobra.RangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			ix, err := a.openIndex(ctx)
			if err != nil {
				return err
			}
			defer ix.Close()
			w := cmd.OutOrStdout()

			if show != "" {
				snap, err := ix.Snapshot(ctx, show)
				if err != nil {
					return err
				}
				_, err = io.WriteString(w, snap.Text)
				return err
			}
			if len(args) != 1 {
				return errors.New("history needs a script name")
			}
			if prune > 0 {
				n, err := ix.Prune(ctx, args[0], prune)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "pruned %d snapshots\n", n)
				return nil
			}
			snaps, err := ix.Snapshots(ctx, args[0], limit)
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				return storage.ErrNotFound
			}
			for _, s := range snaps {
				fmt.Fprintf(w, "%s  %s  %d bytes\n", s.ID, s.TS.Local().Format(time.DateTime), len(s.Text))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&show, "show", "", "print the text of the snapshot with this id")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of snapshots to list")
	cmd.Flags().IntVar(&prune, "prune", 0, "keep only this many most recent snapshots")
	return cmd
}
