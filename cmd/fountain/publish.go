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

	"github.com/spf13/cobra"

	"gofountain/internal/backend"
	"gofountain/internal/script"
)

func newPublishCmd(a *app) *cobra.Command {
	var (
		name      string
		fromIndex bool
	)
	cmd := &cobra.Command{
		Use:   "publish [flags] file.fountain|name",
		Short: "Publish a script's tokens to the shared Postgres database",
		Long: `Publish tokenizes the file (or, with --from-index, loads the tokens of an indexed script)
and stores them as a new revision in the database configured under backend.dsn or FTN_PG_DSN.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Backend.DSN == "" {
				return errors.New("no backend configured: set backend.dsn in the config or FTN_PG_DSN")
			}
			ctx := cmd.Context()
			var tokens []script.Token
			if fromIndex {
				ix, err := a.openIndex(ctx)
				if err != nil {
					return err
				}
				tokens, err = ix.Tokens(ctx, args[0])
				_ = ix.Close()
				if err != nil {
					return err
				}
				if name == "" {
					name = args[0]
				}
			} else {
				s, base, err := a.parse(cmd, args[0])
				if err != nil {
					return err
				}
				tokens = s.Tokens
				if name == "" {
					name = base
				}
			}

			ctx, cancel := context.WithTimeout(ctx, a.cfg.Backend.Timeout())
			defer cancel()
			db, err := backend.Open(ctx, a.cfg.Backend.DSN)
			if err != nil {
				return err
			}
			defer db.Close()
			rev, err := backend.Publish(ctx, db, name, tokens)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "published %s revision %d (%s, %d tokens)\n", name, rev.Number, rev.ID, rev.Tokens)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "script name in the database (default: file or index name)")
	cmd.Flags().BoolVar(&fromIndex, "from-index", false, "publish the tokens of an indexed script instead of a file")
	return cmd
}
