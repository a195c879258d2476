/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"gofountain/internal/script"
)

// PDFOptions controls PDF export behavior. Units are inches.
//
// Text is set in the built-in Courier so nothing needs embedding. The body
// uses a 1.5in left margin and 1in elsewhere; with other font sizes the grid
// gets wider or narrower but the margins stay.
type PDFOptions struct {
	PageSize    string  // "Letter" (default) or "A4"
	FontSize    float64 // points; 0 means 12
	LineNumbers bool    // print source line numbers in the left margin
	Title       string  // document metadata; defaults to the title page title
	Author      string
}

const (
	marginLeft   = 1.5
	marginTop    = 1.0
	marginBottom = 1.0
	marginRight  = 1.0
)

// PDF writes tokens as a screenplay formatted PDF to w. A title page is
// emitted when the tokens carry title page fields.
func PDF(w io.Writer, tokens []script.Token, opt PDFOptions) error {
	size := opt.PageSize
	switch strings.ToLower(size) {
	case "", "letter":
		size = "Letter"
	case "a4":
		size = "A4"
	default:
		return fmt.Errorf("unknown page size %q", opt.PageSize)
	}
	fs := opt.FontSize
	if fs <= 0 {
		fs = 12
	}

	pdf := gofpdf.New("P", "in", size, "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(false, marginBottom)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	center, corner := titlePage(tokens)
	title, author := opt.Title, opt.Author
	for _, f := range center {
		switch {
		case f.kind == script.KindTitle && title == "":
			title = strings.ReplaceAll(f.text, "\n", " ")
		case (f.kind == script.KindAuthor || f.kind == script.KindAuthors) && author == "":
			author = strings.ReplaceAll(f.text, "\n", ", ")
		}
	}
	if title != "" {
		pdf.SetTitle(title, true)
	}
	if author != "" {
		pdf.SetAuthor(author, true)
	}
	pdf.SetCreator("gofountain", false)

	p := &pdfWriter{pdf: pdf, tr: tr, fontSize: fs, lineH: fs / 72, charW: 0.6 * fs / 72, lineNumbers: opt.LineNumbers}
	p.pageW, p.pageH = pdf.GetPageSize()

	if len(center) > 0 || len(corner) > 0 {
		p.titlePage(center, corner)
	}
	body := rows(chunks(tokens), p.gridWidth())
	p.body(body)

	if pdf.PageNo() == 0 {
		pdf.AddPage()
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

type pdfWriter struct {
	pdf          *gofpdf.Fpdf
	tr           func(string) string
	fontSize     float64
	lineH, charW float64
	pageW, pageH float64
	lineNumbers  bool

	y        float64
	bodyPage int
}

// gridWidth is the number of character cells across the action column.
func (p *pdfWriter) gridWidth() int {
	return int(math.Floor((p.pageW-marginLeft-marginRight)/p.charW + 1e-9))
}

func (p *pdfWriter) setStyle(st style) {
	fontStyle := ""
	switch st {
	case styleScene:
		fontStyle = "B"
	case styleLyrics:
		fontStyle = "I"
	}
	p.pdf.SetFont("Courier", fontStyle, p.fontSize)
}

func (p *pdfWriter) titlePage(center, corner []titleField) {
	p.pdf.AddPage()
	p.pdf.SetTextColor(0, 0, 0)
	p.setStyle(styleAction)

	y := p.pageH * 0.35
	for i, f := range center {
		if i > 0 {
			y += p.lineH
		}
		text := f.text
		if f.kind == script.KindTitle {
			text = strings.ToUpper(text)
		}
		for _, ln := range strings.Split(text, "\n") {
			ln = strings.TrimSpace(ln)
			w := p.pdf.GetStringWidth(p.tr(ln))
			p.pdf.Text((p.pageW-w)/2, y, p.tr(ln))
			y += p.lineH
		}
	}

	var lines []string
	for _, f := range corner {
		for _, ln := range strings.Split(f.text, "\n") {
			lines = append(lines, strings.TrimSpace(ln))
		}
	}
	y = p.pageH - marginBottom - float64(len(lines)-1)*p.lineH
	for _, ln := range lines {
		p.pdf.Text(marginLeft, y, p.tr(ln))
		y += p.lineH
	}
}

func (p *pdfWriter) newBodyPage() {
	p.pdf.AddPage()
	p.bodyPage++
	p.y = marginTop
	if p.bodyPage > 1 {
		p.setStyle(styleAction)
		num := strconv.Itoa(p.bodyPage) + "."
		p.pdf.Text(p.pageW-marginRight-p.pdf.GetStringWidth(num), marginTop/2, num)
	}
}

func (p *pdfWriter) body(rs []row) {
	if len(rs) == 0 {
		return
	}
	p.newBodyPage()
	lastY := p.pageH - marginBottom
	for _, r := range rs {
		if r.pageBreak {
			p.newBodyPage()
			continue
		}
		if r.blank() && p.y == marginTop {
			continue
		}
		if p.y+p.lineH > lastY+1e-9 {
			p.newBodyPage()
			if r.blank() {
				continue
			}
		}
		p.row(r)
		p.y += p.lineH
	}
}

func (p *pdfWriter) row(r row) {
	baseline := p.y + p.lineH*0.8
	for _, c := range r.cells {
		p.setStyle(c.style)
		p.pdf.Text(marginLeft+float64(c.col)*p.charW, baseline, p.tr(c.text))
	}
	if r.scene != "" {
		p.setStyle(styleAction)
		p.pdf.Text(marginLeft-0.75, baseline, p.tr(r.scene))
		p.pdf.Text(p.pageW-marginRight+0.25, baseline, p.tr(r.scene))
	}
	if p.lineNumbers && r.line > 0 && len(r.cells) > 0 {
		p.pdf.SetFont("Courier", "", p.fontSize*0.6)
		p.pdf.SetTextColor(128, 128, 128)
		p.pdf.Text(0.3, baseline, strconv.Itoa(r.line))
		p.pdf.SetTextColor(0, 0, 0)
	}
}
