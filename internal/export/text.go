/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bufio"
	"io"
	"sort"
	"strings"

	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/indent"

	"gofountain/internal/script"
)

// TextOptions controls plain text export.
type TextOptions struct {
	Width  int  // action line length in columns; 0 means 60
	Margin uint // spaces prepended to every line
}

// Text writes tokens as a plain text screenplay. Columns follow the PDF
// layout scaled to Width; page breaks become form feeds.
func Text(w io.Writer, tokens []script.Token, opt TextOptions) error {
	width := opt.Width
	if width <= 0 {
		width = gridWidth
	}
	bw := bufio.NewWriter(w)
	var b strings.Builder

	center, corner := titlePage(tokens)
	if len(center) > 0 || len(corner) > 0 {
		for i, f := range center {
			if i > 0 {
				b.WriteString("\n")
			}
			text := f.text
			if f.kind == script.KindTitle {
				text = strings.ToUpper(text)
			}
			for _, ln := range strings.Split(text, "\n") {
				b.WriteString(centerLine(strings.TrimSpace(ln), width))
				b.WriteString("\n")
			}
		}
		if len(corner) > 0 {
			b.WriteString("\n\n")
		}
		for _, f := range corner {
			for _, ln := range strings.Split(f.text, "\n") {
				b.WriteString(strings.TrimSpace(ln))
				b.WriteString("\n")
			}
		}
		b.WriteString("\f\n")
	}

	for _, r := range rows(chunks(tokens), width) {
		if r.pageBreak {
			b.WriteString("\f\n")
			continue
		}
		b.WriteString(renderRow(r))
		b.WriteString("\n")
	}

	out := b.String()
	if opt.Margin > 0 {
		out = indent.String(out, opt.Margin)
	}
	if _, err := bw.WriteString(out); err != nil {
		return err
	}
	return bw.Flush()
}

// renderRow pads cells out to their columns.
func renderRow(r row) string {
	cells := append([]cell(nil), r.cells...)
	sort.Slice(cells, func(i, j int) bool { return cells[i].col < cells[j].col })
	var b strings.Builder
	pos := 0
	for _, c := range cells {
		if c.col > pos {
			b.WriteString(strings.Repeat(" ", c.col-pos))
			pos = c.col
		} else if pos > 0 && c.col < pos {
			b.WriteString(" ")
			pos++
		}
		b.WriteString(c.text)
		pos += ansi.PrintableRuneWidth(c.text)
	}
	return strings.TrimRight(b.String(), " ")
}

func centerLine(s string, width int) string {
	pad := (width - ansi.PrintableRuneWidth(s)) / 2
	if pad <= 0 {
		return s
	}
	return strings.Repeat(" ", pad) + s
}
