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

var reBlockSeparator = regexp.MustCompile(`\n{2,}`)

// Tokenize turns screenplay text into an ordered token list.
//
// The text is normalized and cut into blank-line separated blocks. Blocks are
// classified bottom-up so that a dual dialogue cue (NAME^) is seen before the
// dialogue block it pairs with; the per-block results are then flipped back
// into document order. Tokenize never fails: anything no rule claims is action.
func Tokenize(text string) []Token {
	norm := Normalize(text)
	pieces := splitBlocks(norm)

	first := -1
	for i, p := range pieces {
		if !isSeparator(p) && strings.TrimSpace(p) != "" {
			first = i
			break
		}
	}

	// line starts one past the last line and walks upwards block by block
	line := strings.Count(norm, "\n") + 2
	var s scan
	for i := len(pieces) - 1; i >= 0; i-- {
		p := pieces[i]
		n := strings.Count(p, "\n")
		if isSeparator(p) {
			line -= n - 1
			continue
		}
		line -= n + 1
		// only the first piece can start with a (single) newline
		body := strings.TrimLeft(p, "\n")
		start := line + len(p) - len(body)
		toks, _ := classify(block{text: body, line: start, first: i == first})
		s.push(toks)
	}
	return s.tokens()
}

// splitBlocks splits on runs of two or more newlines and keeps the runs, so
// that the line bookkeeping in Tokenize can account for them.
func splitBlocks(text string) []string {
	var out []string
	last := 0
	for _, loc := range reBlockSeparator.FindAllStringIndex(text, -1) {
		out = append(out, text[last:loc[0]], text[loc[0]:loc[1]])
		last = loc[1]
	}
	return append(out, text[last:])
}

func isSeparator(p string) bool { return len(p) >= 2 && strings.Trim(p, "\n") == "" }

type scanState uint8

const (
	stateNone scanState = iota
	// statePendingDual: the block just processed (the next one in the
	// document) was a dual dialogue cue still waiting for its left partner.
	statePendingDual
)

// scan accumulates per-block token groups in bottom-up order.
type scan struct {
	groups  [][]Token
	state   scanState
	pending int // index in groups of the waiting right half
}

func (s *scan) push(toks []Token) {
	dialogue := len(toks) > 0 && toks[0].Kind == KindDialogueBegin
	switch {
	case dialogue && s.state == statePendingDual:
		// left half: its own ^, if any, is ignored so pairs never overlap
		toks[0].Dual = DualLeft
		toks = append([]Token{{Kind: KindDualDialogueBegin, LineNumber: toks[0].LineNumber}}, toks...)
		right := s.groups[s.pending]
		s.groups[s.pending] = append(right, Token{Kind: KindDualDialogueEnd, LineNumber: right[len(right)-1].LineNumber})
		s.state = stateNone
	case dialogue && toks[0].Dual == DualRight:
		s.pending = len(s.groups)
		s.state = statePendingDual
	default:
		s.dropPending()
	}
	s.groups = append(s.groups, toks)
}

// dropPending demotes a right half that found no partner to plain dialogue.
func (s *scan) dropPending() {
	if s.state != statePendingDual {
		return
	}
	s.groups[s.pending][0].Dual = DualNone
	s.state = stateNone
}

func (s *scan) tokens() []Token {
	s.dropPending()
	n := 0
	for _, g := range s.groups {
		n += len(g)
	}
	out := make([]Token, 0, n)
	for i := len(s.groups) - 1; i >= 0; i-- {
		out = append(out, s.groups[i]...)
	}
	return out
}
