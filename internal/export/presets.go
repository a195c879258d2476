/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	applog "gofountain/internal/log"
	"gofountain/internal/render"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// Formats understood by BatchExport.
const (
	FormatHTML = "html"
	FormatJSON = "json"
	FormatPDF  = "pdf"
	FormatText = "txt"
)

// BatchOptions controls batch export of one script into several formats.
//
// Output files are <OutDir>/<Name>.<format>. OutDir is created if missing;
// an empty Name falls back to "script".
type BatchOptions struct {
	Preset      PresetName
	Formats     []string // html, json, pdf, txt; empty means preset defaults
	OutDir      string
	Name        string
	LineNumbers bool // data-line attributes in HTML, margin numbers in PDF
	PDF         PDFOptions
	Text        TextOptions
}

// BatchExport parses text once and writes every requested format. Formats
// are written concurrently; the first failure cancels the rest. It returns
// the written paths in format order.
func BatchExport(ctx context.Context, text string, opt BatchOptions) ([]string, error) {
	formats, err := resolveFormats(opt.Preset, opt.Formats)
	if err != nil {
		return nil, err
	}
	parsed, err := render.Parse(text, render.Options{LineNumbers: opt.LineNumbers})
	if err != nil {
		return nil, err
	}
	outDir := opt.OutDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	name := opt.Name
	if name == "" {
		name = "script"
	}

	l := applog.WithOperation(applog.WithComponent("export"), "batch")
	paths := make([]string, len(formats))
	g, ctx := errgroup.WithContext(ctx)
	for i, f := range formats {
		f := f // per-iteration copy for the goroutine (go 1.21 loop semantics)
		path := filepath.Join(outDir, name+"."+f)
		paths[i] = path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			err := writeFileAtomic(path, func(w io.Writer) error {
				switch f {
				case FormatHTML:
					return HTMLPage(w, parsed.HTML, parsed.Title)
				case FormatJSON:
					return JSON(w, parsed.Tokens, parsed.Title)
				case FormatPDF:
					po := opt.PDF
					po.LineNumbers = po.LineNumbers || opt.LineNumbers
					return PDF(w, parsed.Tokens, po)
				default:
					return Text(w, parsed.Tokens, opt.Text)
				}
			})
			if err != nil {
				return fmt.Errorf("%s: %w", f, err)
			}
			l.DebugContext(ctx, "written", "format", f, "path", path)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	l.Info("batch export done", "preset", string(opt.Preset), "formats", strings.Join(formats, ","), "dir", outDir)
	return paths, nil
}

func resolveFormats(p PresetName, formats []string) ([]string, error) {
	if len(formats) == 0 {
		formats = presetDefaultFormats(p)
	}
	seen := make(map[string]bool, len(formats))
	out := make([]string, 0, len(formats))
	for _, f := range formats {
		f = strings.ToLower(strings.TrimSpace(f))
		if f == "text" {
			f = FormatText
		}
		switch f {
		case FormatHTML, FormatJSON, FormatPDF, FormatText:
		default:
			return nil, fmt.Errorf("unknown format: %s", f)
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{FormatHTML, FormatJSON}
	case PresetPrint:
		return []string{FormatPDF, FormatText}
	default:
		return []string{FormatHTML}
	}
}

// Presets lists the known preset names.
func Presets() []string {
	out := []string{string(PresetWeb), string(PresetPrint)}
	sort.Strings(out)
	return out
}

// writeFileAtomic renders into memory, writes a temp file next to path,
// syncs it and renames it over path.
func writeFileAtomic(path string, fill func(io.Writer) error) (err error) {
	var buf bytes.Buffer
	if err := fill(&buf); err != nil {
		return err
	}
	temp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	f, err := os.OpenFile(temp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = os.Remove(temp)
		}
	}()
	if _, err = f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	// Windows will not rename over an existing file
	if _, serr := os.Stat(path); serr == nil {
		_ = os.Remove(path)
	}
	return os.Rename(temp, path)
}
