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

// Patterns. Go's regexp has no lookahead, so the "not followed by" parts of
// the markup rules live in the classifier functions below.
var (
	reTitleKey      = regexp.MustCompile(`(?i)^(title|credit|authors?|source|notes|draft date|date|contact|copyright):`)
	reSceneHeading  = regexp.MustCompile(`(?i)^((?:\*{0,3}_?)?(?:int|ext|est|i/e)[. ].+)`)
	reForcedScene   = regexp.MustCompile(`^\.([^.\n].*)`)
	reSceneNumber   = regexp.MustCompile(`( *#(.+)# *)`)
	reCentered      = regexp.MustCompile(`^> *.+ *<(?:\n.+)*`)
	reTransition    = regexp.MustCompile(`^((?:FADE (?:TO BLACK|OUT)|CUT TO BLACK)\.|.+ TO:)|^> *(.+)`)
	reDialogue      = regexp.MustCompile(`^(?:([A-Z*_][0-9A-Z ._\-']*(?:\(.*\))? *)|@([A-Za-z*_][0-9A-Za-z (._\-')]*))(\^?)\n((?s:.+))`)
	reParenthetical = regexp.MustCompile(`^\(.+\)$`)
	reSection       = regexp.MustCompile(`^(#+) *(.*)`)
	rePageBreak     = regexp.MustCompile(`^={3,}$`)
	reLineBreak     = regexp.MustCompile(`^ {2}$`)
)

// block is one blank-line delimited chunk of normalized text.
type block struct {
	text  string
	line  int  // 1-based line of the first character
	first bool // the first non-empty block of the document
}

// lastLine returns the line number of the block's final line.
func (b block) lastLine() int { return b.line + strings.Count(b.text, "\n") }

// A classifier inspects a block and returns its tokens in document order.
// ok=false hands the block to the next rule.
type classifier func(b block) (toks []Token, ok bool)

type rule struct {
	name     string
	classify classifier
}

// rules is the classification precedence; the first match wins.
var rules = []rule{
	{"title_page", classifyTitlePage},
	{"scene_heading", classifySceneHeading},
	{"centered", classifyCentered},
	{"transition", classifyTransition},
	{"dialogue", classifyDialogue},
	{"section", classifySection},
	{"synopsis", classifySynopsis},
	{"note", classifyNote},
	{"boneyard", classifyBoneyard},
	{"lyrics", classifyLyrics},
	{"page_break", classifyPageBreak},
	{"line_break", classifyLineBreak},
	{"action", classifyAction},
}

// Rules returns the names of the classification rules in precedence order.
func Rules() []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.name
	}
	return out
}

// classify runs the rule table against b and reports which rule matched.
func classify(b block) ([]Token, string) {
	for _, r := range rules {
		if toks, ok := r.classify(b); ok {
			return toks, r.name
		}
	}
	return nil, ""
}

// escaped reports the two-trailing-space escape that forces a line out of
// its natural classification.
func escaped(s string) bool { return strings.HasSuffix(s, "  ") }

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func classifyTitlePage(b block) ([]Token, bool) {
	if !b.first {
		return nil, false
	}
	type field struct {
		key   string
		value strings.Builder
		line  int
	}
	var fields []*field
	for i, ln := range strings.Split(b.text, "\n") {
		if m := reTitleKey.FindStringSubmatch(ln); m != nil {
			f := &field{key: m[1], line: b.line + i}
			f.value.WriteString(ln[len(m[0]):])
			fields = append(fields, f)
			continue
		}
		// values may continue on indented lines below their key
		if len(fields) == 0 || (ln != "" && ln[0] != ' ' && ln[0] != '\t') {
			return nil, false
		}
		cur := fields[len(fields)-1]
		cur.value.WriteByte('\n')
		cur.value.WriteString(ln)
	}
	toks := make([]Token, 0, len(fields))
	for _, f := range fields {
		k, ok := KindFromTitleKey(f.key)
		if !ok {
			return nil, false
		}
		toks = append(toks, Token{Kind: k, Text: strings.TrimSpace(f.value.String()), LineNumber: f.line, IsTitlePage: true})
	}
	return toks, len(toks) > 0
}

func classifySceneHeading(b block) ([]Token, bool) {
	var text string
	if m := reSceneHeading.FindStringSubmatch(b.text); m != nil {
		text = m[1]
	} else if m := reForcedScene.FindStringSubmatch(b.text); m != nil {
		text = m[1]
	} else {
		return nil, false
	}
	if escaped(text) {
		return nil, false
	}
	tok := Token{Kind: KindSceneHeading, LineNumber: b.line}
	if loc := reSceneNumber.FindStringSubmatchIndex(text); loc != nil {
		tok.SceneNumber = text[loc[4]:loc[5]]
		text = text[:loc[0]] + text[loc[1]:]
	}
	tok.Text = text
	return []Token{tok}, true
}

func classifyCentered(b block) ([]Token, bool) {
	m := reCentered.FindString(b.text)
	if m == "" {
		return nil, false
	}
	text := strings.NewReplacer(">", "", "<", "").Replace(m)
	return []Token{{Kind: KindCentered, Text: text, LineNumber: b.line}}, true
}

func classifyTransition(b block) ([]Token, bool) {
	m := reTransition.FindStringSubmatch(b.text)
	if m == nil {
		return nil, false
	}
	text := m[1]
	if text == "" {
		text = m[2]
	}
	return []Token{{Kind: KindTransition, Text: text, LineNumber: b.line}}, true
}

// classifyDialogue emits dialogue_begin, character, the body parts and
// dialogue_end. A trailing ^ on the cue tags dialogue_begin DualRight; the
// scanner pairs it with the dialogue block above it.
func classifyDialogue(b block) ([]Token, bool) {
	m := reDialogue.FindStringSubmatch(b.text)
	if m == nil {
		return nil, false
	}
	name := m[1]
	if name == "" {
		name = m[2]
	}
	if escaped(name) {
		return nil, false
	}
	begin := Token{Kind: KindDialogueBegin, LineNumber: b.line}
	if m[3] != "" {
		begin.Dual = DualRight
	}
	toks := []Token{begin, {Kind: KindCharacter, Text: strings.TrimSpace(name), LineNumber: b.line}}
	toks = append(toks, dialogueParts(m[4], b.line+1)...)
	toks = append(toks, Token{Kind: KindDialogueEnd, LineNumber: b.lastLine()})
	return toks, true
}

// dialogueParts splits a dialogue body into parenthetical lines and runs of
// spoken lines, each starting at its own source line.
func dialogueParts(body string, line int) []Token {
	var (
		toks  []Token
		run   []string
		start int
	)
	flush := func() {
		if len(run) > 0 {
			toks = append(toks, Token{Kind: KindDialogue, Text: strings.Join(run, "\n"), LineNumber: start})
			run = nil
		}
	}
	for i, ln := range strings.Split(body, "\n") {
		if reParenthetical.MatchString(ln) {
			flush()
			toks = append(toks, Token{Kind: KindParenthetical, Text: ln, LineNumber: line + i})
			continue
		}
		if ln == "" {
			continue
		}
		if len(run) == 0 {
			start = line + i
		}
		run = append(run, ln)
	}
	flush()
	return toks
}

func classifySection(b block) ([]Token, bool) {
	m := reSection.FindStringSubmatch(b.text)
	if m == nil {
		return nil, false
	}
	return []Token{{Kind: KindSection, Text: m[2], Depth: len(m[1]), LineNumber: b.line}}, true
}

func classifySynopsis(b block) ([]Token, bool) {
	if !strings.HasPrefix(b.text, "=") || strings.HasPrefix(b.text, "==") {
		return nil, false
	}
	text := strings.TrimLeft(firstLine(b.text)[1:], " ")
	return []Token{{Kind: KindSynopsis, Text: text, LineNumber: b.line}}, true
}

// classifyNote matches a single-line block wrapped in [[ ]].
func classifyNote(b block) ([]Token, bool) {
	t := b.text
	if strings.Contains(t, "\n") || len(t) < 5 {
		return nil, false
	}
	if !strings.HasPrefix(t, "[[") || strings.HasPrefix(t, "[[[") || !strings.HasSuffix(t, "]]") {
		return nil, false
	}
	return []Token{{Kind: KindNote, Text: t[2 : len(t)-2], LineNumber: b.line}}, true
}

// classifyBoneyard catches boneyard markers Normalize could not pair up.
func classifyBoneyard(b block) ([]Token, bool) {
	switch b.text {
	case "/*":
		return []Token{{Kind: KindBoneyardBegin, LineNumber: b.line}}, true
	case "*/":
		return []Token{{Kind: KindBoneyardEnd, LineNumber: b.line}}, true
	}
	return nil, false
}

func classifyLyrics(b block) ([]Token, bool) {
	if len(b.text) < 2 || b.text[0] != '~' || b.text[1] == ' ' || b.text[1] == '\n' {
		return nil, false
	}
	lines := strings.Split(b.text, "\n")
	for i, ln := range lines {
		if strings.HasPrefix(ln, "~") && !strings.HasPrefix(ln, "~ ") {
			lines[i] = ln[1:]
		}
	}
	return []Token{{Kind: KindLyrics, Text: strings.Join(lines, "\n"), LineNumber: b.line}}, true
}

func classifyPageBreak(b block) ([]Token, bool) {
	if !rePageBreak.MatchString(b.text) {
		return nil, false
	}
	return []Token{{Kind: KindPageBreak, LineNumber: b.line}}, true
}

// classifyLineBreak matches a block of exactly two spaces. Normalize empties
// whitespace-only lines, so Tokenize never hands it such a block; the rule
// stays so the table matches the documented precedence for callers of classify.
func classifyLineBreak(b block) ([]Token, bool) {
	if !reLineBreak.MatchString(b.text) {
		return nil, false
	}
	return []Token{{Kind: KindLineBreak, LineNumber: b.line}}, true
}

// classifyAction is the fallback. A leading ! forces action and is removed;
// blocks that end up empty produce no token but still count as matched.
func classifyAction(b block) ([]Token, bool) {
	lines := strings.Split(b.text, "\n")
	for i, ln := range lines {
		if strings.HasPrefix(ln, "!") && !strings.HasPrefix(ln, "! ") {
			lines[i] = ln[1:]
		}
	}
	text := strings.Join(lines, "\n")
	if strings.TrimSpace(text) == "" {
		return nil, true
	}
	return []Token{{Kind: KindAction, Text: text, LineNumber: b.line}}, true
}
