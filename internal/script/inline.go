/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"regexp"
	"strings"
)

const (
	// private use runes stand in for escaped markers while emphasis is resolved
	starPlaceholder      = "\uE000"
	underlinePlaceholder = "\uE001"

	lineBreakHTML = "<br />"
	nbsp          = "&nbsp;"
)

var (
	reInlineNote = regexp.MustCompile(`\[\[([^\[](?s:.*?))\]\]`)
	reIndent     = regexp.MustCompile(`(?m)^( +)`)
)

// emphasis is one inline style. Each opener/closer pair is tried in order.
type emphasis struct {
	class string
	pairs [][2]string
}

// Combined markers come before their parts so "***x***" is never read as
// "*" around "**x**".
var emphases = []emphasis{
	{"bold italic underline", [][2]string{{"_***", "***_"}, {"***_", "_***"}}},
	{"bold underline", [][2]string{{"_**", "**_"}, {"**_", "_**"}}},
	{"italic underline", [][2]string{{"_*", "*_"}, {"*_", "_*"}}},
	{"bold italic", [][2]string{{"***", "***"}}},
	{"bold", [][2]string{{"**", "**"}}},
	{"italic", [][2]string{{"*", "*"}}},
	{"underline", [][2]string{{"_", "_"}}},
}

// Reconstruct resolves inline markup in a token's raw text into HTML:
// [[notes]] become comments, \* and \_ stay literal, newlines become <br />
// and emphasis markers become spans. With preserveIndentation, leading
// spaces of each line turn into &nbsp; entities.
//
// Each style is applied once, in a fixed order, so nesting is resolved
// outside-in without recursion. Unterminated markers are left as they are.
func Reconstruct(text string, preserveIndentation bool) string {
	text = Normalize(text)
	text = replaceNotes(text)
	text = strings.NewReplacer(`\*`, starPlaceholder, `\_`, underlinePlaceholder).Replace(text)
	if preserveIndentation {
		text = reIndent.ReplaceAllStringFunc(text, func(spaces string) string {
			return strings.Repeat(nbsp, len(spaces))
		})
	}
	text = strings.ReplaceAll(text, "\n", lineBreakHTML)
	for _, e := range emphases {
		text = e.apply(text)
	}
	text = strings.NewReplacer(starPlaceholder, "*", underlinePlaceholder, "_").Replace(text)
	return strings.TrimSpace(text)
}

// replaceNotes turns [[note]] into an HTML comment. A [[ that is part of a
// longer run of brackets never opens a note, so reconstructed text is stable.
func replaceNotes(s string) string {
	if !strings.Contains(s, "[[") {
		return s
	}
	var b strings.Builder
	last := 0
	for _, m := range reInlineNote.FindAllStringSubmatchIndex(s, -1) {
		if m[0] > 0 && s[m[0]-1] == '[' {
			continue
		}
		b.WriteString(s[last:m[0]])
		b.WriteString("<!-- ")
		b.WriteString(s[m[2]:m[3]])
		b.WriteString(" -->")
		last = m[1]
	}
	b.WriteString(s[last:])
	return b.String()
}

func isMarker(c byte) bool { return c == '*' || c == '_' }

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// apply wraps every well-formed span of e in a single left to right pass.
// A span needs a non-space, non-marker byte right inside both markers, and
// its opener must not be glued to a run of markers on the outside. The
// closer may be followed by markers: those belong to an enclosing span.
func (e emphasis) apply(s string) string {
	if !strings.ContainsAny(s, "*_") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	i := 0
	for i < len(s) {
		if start, end, next, ok := e.span(s, i); ok {
			b.WriteString(`<span class="`)
			b.WriteString(e.class)
			b.WriteString(`">`)
			b.WriteString(s[start:end])
			b.WriteString("</span>")
			i = next
			continue
		}
		b.WriteByte(s[i])
		i++
	}
	return b.String()
}

// span reports the content bounds of a span opening at i and the index
// just past its closing marker.
func (e emphasis) span(s string, i int) (start, end, next int, ok bool) {
	if i > 0 && isMarker(s[i-1]) {
		return 0, 0, 0, false
	}
	for _, p := range e.pairs {
		open, closer := p[0], p[1]
		if !strings.HasPrefix(s[i:], open) {
			continue
		}
		start = i + len(open)
		if start >= len(s) || isSpace(s[start]) || isMarker(s[start]) {
			continue
		}
		for j := start + 1; j+len(closer) <= len(s); j++ {
			if !strings.HasPrefix(s[j:], closer) {
				continue
			}
			if isSpace(s[j-1]) || isMarker(s[j-1]) {
				continue
			}
			return start, j, j + len(closer), true
		}
	}
	return 0, 0, 0, false
}
