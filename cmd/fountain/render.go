/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"gofountain/internal/export"
)

func newHTMLCmd(a *app) *cobra.Command {
	var (
		out      string
		fragment bool
	)
	cmd := &cobra.Command{
		Use:   "html [flags] file.fountain",
		Short: "Render a script as HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, name, err := a.parse(cmd, args[0])
			if err != nil {
				return err
			}
			return writeTo(cmd, out, func(w io.Writer) error {
				if fragment {
					_, err := io.WriteString(w, s.HTML.TitlePage+s.HTML.Script+"\n")
					return err
				}
				title := s.Title
				if title == "" {
					title = name
				}
				return export.HTMLPage(w, s.HTML, title)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "-", "output file")
	cmd.Flags().BoolVar(&fragment, "fragment", false, "write only the title page and script markup, without the page around it")
	return cmd
}

func newPDFCmd(a *app) *cobra.Command {
	var (
		out      string
		pageSize string
		fontSize float64
	)
	cmd := &cobra.Command{
		Use:   "pdf [flags] file.fountain",
		Short: "Render a script as a screenplay formatted PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, name, err := a.parse(cmd, args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = name + ".pdf"
			}
			opt := export.PDFOptions{
				PageSize:    a.cfg.Export.PageSize,
				FontSize:    a.cfg.Export.FontSize,
				LineNumbers: a.cfg.Render.LineNumbers,
				Title:       s.Title,
			}
			if pageSize != "" {
				opt.PageSize = pageSize
			}
			if fontSize > 0 {
				opt.FontSize = fontSize
			}
			return writeTo(cmd, out, func(w io.Writer) error { return export.PDF(w, s.Tokens, opt) })
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "output file (default <name>.pdf, - for stdout)")
	cmd.Flags().StringVar(&pageSize, "page-size", "", "page size (Letter|A4), default from config")
	cmd.Flags().Float64Var(&fontSize, "font-size", 0, "font size in points, default from config")
	return cmd
}

func newTextCmd(a *app) *cobra.Command {
	var (
		out    string
		width  int
		margin uint
	)
	cmd := &cobra.Command{
		Use:   "text [flags] file.fountain",
		Short: "Render a script as formatted plain text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, _, err := a.parse(cmd, args[0])
			if err != nil {
				return err
			}
			if width <= 0 {
				width = a.cfg.Export.WrapWidth
			}
			return writeTo(cmd, out, func(w io.Writer) error {
				return export.Text(w, s.Tokens, export.TextOptions{Width: width, Margin: margin})
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "-", "output file")
	cmd.Flags().IntVar(&width, "width", 0, "action line width in columns, default from config")
	cmd.Flags().UintVar(&margin, "margin", 0, "spaces before every line")
	return cmd
}

func newJSONCmd(a *app) *cobra.Command {
	var (
		out      string
		query    string
		validate bool
	)
	cmd := &cobra.Command{
		Use:   "json [flags] file",
		Short: "Dump the tokens of a script as JSON, or validate a dump",
		Long: `Json writes the token stream of a Fountain script as a JSON document.
With --validate the input is read as such a document and checked against the token schema.
With --query only the value at a gjson path (e.g. "tokens.#.kind") is printed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			if validate {
				b, err := readFileOrStdin(cmd, args[0])
				if err != nil {
					return err
				}
				if err := export.ValidateJSON(b); err != nil {
					return err
				}
				buf.Write(b)
			} else {
				s, _, err := a.parse(cmd, args[0])
				if err != nil {
					return err
				}
				if err := export.JSON(&buf, s.Tokens, s.Title); err != nil {
					return err
				}
			}
			return writeTo(cmd, out, func(w io.Writer) error {
				if query != "" {
					res := gjson.GetBytes(buf.Bytes(), query)
					if !res.Exists() {
						return fmt.Errorf("query %q matched nothing", query)
					}
					_, err := fmt.Fprintln(w, res.Raw)
					return err
				}
				if validate {
					_, err := fmt.Fprintf(w, "ok: %d tokens\n", gjson.GetBytes(buf.Bytes(), "tokens.#").Int())
					return err
				}
				_, err := w.Write(buf.Bytes())
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "-", "output file")
	cmd.Flags().StringVar(&query, "query", "", "print only the value at this gjson path")
	cmd.Flags().BoolVar(&validate, "validate", false, "validate a JSON token dump instead of tokenizing")
	return cmd
}

func readFileOrStdin(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return b, nil
}
