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
	"strings"

	"github.com/spf13/cobra"

	"gofountain/internal/export"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		preset  string
		formats []string
		outDir  string
		name    string
	)
	cmd := &cobra.Command{
		Use:   "export [flags] file.fountain",
		Short: "Export a script into several formats at once",
		Long: fmt.Sprintf(`Export writes <out>/<name>.<format> for every requested format.
Presets pick the formats when --format is not given: %s.`, strings.Join(export.Presets(), ", ")),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, base, err := a.readInput(cmd, args[0])
			if err != nil {
				return err
			}
			if preset == "" {
				preset = a.cfg.Export.Preset
			}
			if outDir == "" {
				outDir = a.cfg.Export.OutDir
			}
			if name == "" {
				name = base
			}
			paths, err := export.BatchExport(cmd.Context(), text, export.BatchOptions{
				Preset:      export.PresetName(preset),
				Formats:     formats,
				OutDir:      outDir,
				Name:        name,
				LineNumbers: a.cfg.Render.LineNumbers,
				PDF: export.PDFOptions{
					PageSize:    a.cfg.Export.PageSize,
					FontSize:    a.cfg.Export.FontSize,
					LineNumbers: a.cfg.Render.LineNumbers,
				},
				Text: export.TextOptions{Width: a.cfg.Export.WrapWidth},
			})
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&preset, "preset", "", "export preset (web|print), default from config")
	cmd.Flags().StringSliceVar(&formats, "format", nil, "formats to write (html,json,pdf,txt); overrides the preset")
	cmd.Flags().StringVar(&outDir, "out", "", "output directory, default from config")
	cmd.Flags().StringVar(&name, "name", "", "base name of the output files (default: input file name)")
	return cmd
}
