/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"gofountain/internal/export"
	"gofountain/internal/script"
)

func newTokensCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "tokens [flags] file.fountain",
		Short: "Print the token stream of a script",
		Long:  `Tokens breaks a Fountain script down into its classified tokens; use - to read stdin`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := a.parse(cmd, args[0])
			if err != nil {
				return err
			}
			switch format {
			case "pretty":
				return formatTokensPretty(cmd.OutOrStdout(), s.Tokens)
			case "json":
				return export.JSON(cmd.OutOrStdout(), s.Tokens, s.Title)
			default:
				return fmt.Errorf("unknown format: %s", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "pretty", "output format (pretty|json)")
	return cmd
}

var (
	colorTitle     = color.New(color.FgMagenta)
	colorScene     = color.New(color.FgCyan, color.Bold)
	colorCharacter = color.New(color.FgYellow)
	colorMarker    = color.New(color.Faint)
	colorMeta      = color.New(color.FgGreen)
)

func kindColor(t script.Token) *color.Color {
	switch {
	case t.IsTitlePage:
		return colorTitle
	case t.Kind == script.KindSceneHeading, t.Kind == script.KindSection:
		return colorScene
	case t.Kind == script.KindCharacter:
		return colorCharacter
	case t.Text == "":
		return colorMarker
	}
	return nil
}

// formatTokensPretty prints one token per line: index, kind, line and text,
// followed by the attributes only some kinds carry.
func formatTokensPretty(w io.Writer, tokens []script.Token) error {
	for i, tok := range tokens {
		kind := fmt.Sprintf("%-22s", tok.Kind.String())
		if c := kindColor(tok); c != nil {
			kind = c.Sprint(kind)
		}
		if _, err := fmt.Fprintf(w, "%3d: %s line %-4d", i+1, kind, tok.LineNumber); err != nil {
			return err
		}
		if tok.Text != "" {
			fmt.Fprintf(w, " %q", tok.Text)
		}
		var meta []string
		if tok.SceneNumber != "" {
			meta = append(meta, "scene #"+tok.SceneNumber)
		}
		if tok.Depth > 0 {
			meta = append(meta, fmt.Sprintf("depth %d", tok.Depth))
		}
		if tok.Dual != script.DualNone {
			meta = append(meta, "dual "+tok.Dual.String())
		}
		if len(meta) > 0 {
			fmt.Fprintf(w, " (%s)", colorMeta.Sprint(strings.Join(meta, ", ")))
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
