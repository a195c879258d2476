/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package render maps scanner tokens to HTML fragments and wraps the whole
// text -> tokens -> HTML pipeline behind Parse.
package render

import (
	"regexp"
	"strconv"
	"strings"

	"gofountain/internal/script"
)

// Options controls HTML output.
type Options struct {
	// LineNumbers adds a data-line="N" attribute to every element that has one.
	LineNumbers bool
}

// Document is the rendered HTML split into the title page and the script body.
type Document struct {
	TitlePage string
	Script    string
}

// HTML renders tokens. Title page tokens go to Document.TitlePage, all others
// to Document.Script, both in token order.
func HTML(tokens []script.Token, opts Options) Document {
	var title, body strings.Builder
	for _, t := range tokens {
		if t.IsTitlePage {
			title.WriteString(Token(t, opts))
		} else {
			body.WriteString(Token(t, opts))
		}
	}
	return Document{TitlePage: title.String(), Script: body.String()}
}

// Token renders a single token. Its text is run through script.Reconstruct
// first.
func Token(t script.Token, opts Options) string {
	text := script.Reconstruct(t.Text, false)
	ln := ""
	if opts.LineNumbers {
		ln = ` data-line="` + strconv.Itoa(t.LineNumber) + `"`
	}
	switch t.Kind {
	case script.KindTitle:
		return "<h1" + ln + ">" + text + "</h1>"
	case script.KindCredit:
		return paragraph("credit", ln, text)
	case script.KindAuthor, script.KindAuthors:
		return paragraph("authors", ln, text)
	case script.KindSource:
		return paragraph("source", ln, text)
	case script.KindNotes:
		return paragraph("notes", ln, text)
	case script.KindDraftDate:
		return paragraph("draft-date", ln, text)
	case script.KindDate:
		return paragraph("date", ln, text)
	case script.KindContact:
		return paragraph("contact", ln, text)
	case script.KindCopyright:
		return paragraph("copyright", ln, text)

	case script.KindSceneHeading:
		id := ""
		if t.SceneNumber != "" {
			id = ` id="` + t.SceneNumber + `"`
		}
		return "<h3" + ln + id + ">" + text + "</h3>"
	case script.KindTransition:
		return "<h2" + ln + ">" + text + "</h2>"

	case script.KindDualDialogueBegin:
		return `<div class="dual-dialogue"` + ln + ">"
	case script.KindDialogueBegin:
		class := "dialogue"
		if t.Dual != script.DualNone {
			class += " " + t.Dual.String()
		}
		return `<div class="` + class + `"` + ln + ">"
	case script.KindCharacter:
		return "<h4" + ln + ">" + text + "</h4>"
	case script.KindParenthetical:
		return paragraph("parenthetical", ln, text)
	case script.KindDialogue:
		return "<p" + ln + ">" + text + "</p>"
	case script.KindDialogueEnd, script.KindDualDialogueEnd:
		return "</div>"

	case script.KindSection:
		return ""
	case script.KindSynopsis:
		return paragraph("synopsis", ln, text)

	case script.KindNote:
		return "<!-- " + text + " -->"
	case script.KindBoneyardBegin:
		return "<!-- "
	case script.KindBoneyardEnd:
		return " -->"

	case script.KindAction:
		return "<p" + ln + ">" + text + "</p>"
	case script.KindCentered:
		return paragraph("centered", ln, text)
	case script.KindLyrics:
		return paragraph("lyrics", ln, text)

	case script.KindPageBreak:
		return "<hr" + ln + " />"
	case script.KindLineBreak:
		return "<br" + ln + " />"
	}
	return ""
}

func paragraph(class, ln, text string) string {
	return `<p class="` + class + `"` + ln + ">" + text + "</p>"
}

var reTag = regexp.MustCompile(`<(?s:.*?)>`)

// Title returns the document title as plain text: inline markup resolved,
// line breaks turned into spaces and any remaining tags dropped.
func Title(tokens []script.Token) (string, bool) {
	for _, t := range tokens {
		if t.Kind != script.KindTitle {
			continue
		}
		s := script.Reconstruct(t.Text, false)
		s = strings.ReplaceAll(s, "<br />", " ")
		return reTag.ReplaceAllString(s, ""), true
	}
	return "", false
}
