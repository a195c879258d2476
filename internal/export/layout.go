/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export writes tokenized screenplays as PDF, plain text, JSON and
// HTML files.
//
// PDF and text share one layout: the body is set on a grid of monospaced
// character cells, 10 per inch at 12pt Courier, with the usual screenplay
// columns measured from the action margin.
package export

import (
	"math"
	"regexp"
	"strings"

	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"gofountain/internal/script"
)

// gridWidth is the action line length in characters at 12pt.
const gridWidth = 60

type style uint8

const (
	styleAction style = iota
	styleScene
	styleCharacter
	styleParenthetical
	styleDialogue
	styleTransition
	styleCentered
	styleLyrics
)

type align uint8

const (
	alignLeft align = iota
	alignRight
	alignCenter
)

// column is a text column in inches relative to the action margin.
type column struct {
	indent, width float64
	align         align
}

func columnFor(st style) column {
	switch st {
	case styleCharacter:
		return column{indent: 2.2, width: 3.8}
	case styleParenthetical:
		return column{indent: 1.6, width: 2.4}
	case styleDialogue:
		return column{indent: 1.0, width: 3.5}
	case styleTransition:
		return column{width: 6.0, align: alignRight}
	case styleCentered:
		return column{width: 6.0, align: alignCenter}
	default:
		return column{width: 6.0}
	}
}

// dualColumnFor splits the page in two halves for side by side dialogue.
func dualColumnFor(st style, right bool) column {
	base, half := 0.0, 2.9
	if right {
		base = 3.1
	}
	switch st {
	case styleCharacter:
		return column{indent: base + 0.9, width: half - 0.9}
	case styleParenthetical:
		return column{indent: base + 0.4, width: half - 0.4}
	default:
		return column{indent: base, width: half}
	}
}

// para is one printable paragraph with its text already stripped of markup.
type para struct {
	style style
	text  string
	line  int
	scene string
}

// chunk is a unit separated from its neighbours by a blank row: a single
// paragraph, a dialogue group or a dual dialogue pair.
type chunk struct {
	paras       []para
	left, right []para
	pageBreak   bool
}

func (c chunk) dual() bool { return len(c.left) > 0 || len(c.right) > 0 }

// chunks groups body tokens. Title page fields, sections, synopses, notes
// and boneyard markers do not print.
func chunks(tokens []script.Token) []chunk {
	var (
		out  []chunk
		cur  *chunk
		side *[]para
	)
	add := func(p para) {
		switch {
		case side != nil:
			*side = append(*side, p)
		case cur != nil:
			cur.paras = append(cur.paras, p)
		default:
			out = append(out, chunk{paras: []para{p}})
		}
	}
	for _, t := range tokens {
		if t.IsTitlePage {
			continue
		}
		switch t.Kind {
		case script.KindDualDialogueBegin:
			cur = &chunk{}
		case script.KindDualDialogueEnd:
			if cur != nil {
				out = append(out, *cur)
			}
			cur, side = nil, nil
		case script.KindDialogueBegin:
			switch {
			case cur != nil && t.Dual == script.DualRight:
				side = &cur.right
			case cur != nil:
				side = &cur.left
			default:
				cur = &chunk{}
			}
		case script.KindDialogueEnd:
			if side != nil {
				side = nil
			} else if cur != nil {
				out = append(out, *cur)
				cur = nil
			}
		case script.KindCharacter:
			add(para{style: styleCharacter, text: plain(t.Text), line: t.LineNumber})
		case script.KindParenthetical:
			add(para{style: styleParenthetical, text: plain(t.Text), line: t.LineNumber})
		case script.KindDialogue:
			add(para{style: styleDialogue, text: plain(t.Text), line: t.LineNumber})
		case script.KindSceneHeading:
			add(para{style: styleScene, text: strings.ToUpper(plain(t.Text)), line: t.LineNumber, scene: t.SceneNumber})
		case script.KindTransition:
			add(para{style: styleTransition, text: strings.ToUpper(plain(t.Text)), line: t.LineNumber})
		case script.KindCentered:
			add(para{style: styleCentered, text: plain(t.Text), line: t.LineNumber})
		case script.KindLyrics:
			add(para{style: styleLyrics, text: plain(t.Text), line: t.LineNumber})
		case script.KindAction:
			add(para{style: styleAction, text: plain(t.Text), line: t.LineNumber})
		case script.KindLineBreak:
			add(para{style: styleAction, line: t.LineNumber})
		case script.KindPageBreak:
			out = append(out, chunk{pageBreak: true})
		}
	}
	return out
}

// row is one printed line of the body.
type row struct {
	cells     []cell
	pageBreak bool
	line      int    // source line; set on the first row of a paragraph
	scene     string // scene number; set on the first row of a heading
}

type cell struct {
	col   int
	text  string
	style style
}

func (r row) blank() bool { return len(r.cells) == 0 && !r.pageBreak }

// rows sets chunks on a grid width characters wide.
func rows(cs []chunk, width int) []row {
	cpi := float64(width) / 6.0
	var out []row
	for i, c := range cs {
		if c.pageBreak {
			out = append(out, row{pageBreak: true})
			continue
		}
		if i > 0 && !cs[i-1].pageBreak {
			out = append(out, row{})
		}
		if !c.dual() {
			for _, p := range c.paras {
				out = append(out, paraRows(p, columnFor(p.style), cpi)...)
			}
			continue
		}
		var left, right []row
		for _, p := range c.left {
			left = append(left, paraRows(p, dualColumnFor(p.style, false), cpi)...)
		}
		for _, p := range c.right {
			right = append(right, paraRows(p, dualColumnFor(p.style, true), cpi)...)
		}
		for j := 0; j < len(left) || j < len(right); j++ {
			var r row
			if j < len(left) {
				r.cells = append(r.cells, left[j].cells...)
				r.line = left[j].line
			}
			if j < len(right) {
				r.cells = append(r.cells, right[j].cells...)
				if r.line == 0 {
					r.line = right[j].line
				}
			}
			out = append(out, r)
		}
	}
	return out
}

func paraRows(p para, c column, cpi float64) []row {
	indent := int(math.Round(c.indent * cpi))
	width := int(math.Round(c.width * cpi))
	if width < 1 {
		width = 1
	}
	if p.text == "" {
		return []row{{line: p.line}}
	}
	var out []row
	for i, ln := range strings.Split(wrapText(p.text, width), "\n") {
		col := indent
		switch c.align {
		case alignRight:
			col = indent + width - ansi.PrintableRuneWidth(ln)
		case alignCenter:
			col = indent + (width-ansi.PrintableRuneWidth(ln))/2
		}
		if col < 0 {
			col = 0
		}
		r := row{cells: []cell{{col: col, text: ln, style: p.style}}}
		if i == 0 {
			r.line, r.scene = p.line, p.scene
		}
		out = append(out, r)
	}
	return out
}

// wrapText word wraps s to width and hard wraps words that are still too long.
func wrapText(s string, width int) string {
	return wrap.String(wordwrap.String(s, width), width)
}

var (
	reHTMLComment = regexp.MustCompile(`<!--(?s:.*?)-->`)
	reHTMLTag     = regexp.MustCompile(`<[^<>]*>`)
)

// plain resolves inline markup and drops the resulting HTML, leaving the
// text a reader would see. Notes vanish and line breaks stay.
func plain(text string) string {
	s := script.Reconstruct(text, false)
	s = reHTMLComment.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "<br />", "\n")
	s = reHTMLTag.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// titleField is a printable title page entry.
type titleField struct {
	kind script.Kind
	text string
}

// titlePage splits title page tokens into the centered block (title, credit,
// authors, source) and the corner block (dates, contact, notes, copyright).
func titlePage(tokens []script.Token) (center, corner []titleField) {
	for _, t := range tokens {
		if !t.IsTitlePage {
			continue
		}
		f := titleField{kind: t.Kind, text: plain(t.Text)}
		switch t.Kind {
		case script.KindTitle, script.KindCredit, script.KindAuthor, script.KindAuthors, script.KindSource:
			center = append(center, f)
		default:
			corner = append(corner, f)
		}
	}
	return center, corner
}
