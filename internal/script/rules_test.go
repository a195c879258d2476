/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesOrder(t *testing.T) {
	assert.Equal(t, []string{
		"title_page", "scene_heading", "centered", "transition", "dialogue",
		"section", "synopsis", "note", "boneyard", "lyrics",
		"page_break", "line_break", "action",
	}, Rules())
}

func TestClassifyReportsRule(t *testing.T) {
	cases := []struct {
		text string
		rule string
		kind Kind
	}{
		{"INT. HOUSE - DAY", "scene_heading", KindSceneHeading},
		{"> THE END <", "centered", KindCentered},
		{"SMASH CUT TO:", "transition", KindTransition},
		{"BOB\nHi.", "dialogue", KindDialogueBegin},
		{"# Act", "section", KindSection},
		{"= summary", "synopsis", KindSynopsis},
		{"[[note]]", "note", KindNote},
		{"*/", "boneyard", KindBoneyardEnd},
		{"~la la", "lyrics", KindLyrics},
		{"====", "page_break", KindPageBreak},
		{"  ", "line_break", KindLineBreak},
		{"Just action.", "action", KindAction},
	}
	for _, tc := range cases {
		toks, rule := classify(block{text: tc.text, line: 1})
		assert.Equal(t, tc.rule, rule, "block %q", tc.text)
		require.NotEmpty(t, toks, "block %q", tc.text)
		assert.Equal(t, tc.kind, toks[0].Kind, "block %q", tc.text)
	}
}

func TestClassifyTitlePageNeedsFirstBlock(t *testing.T) {
	_, rule := classify(block{text: "Title: X", line: 1, first: true})
	assert.Equal(t, "title_page", rule)
	_, rule = classify(block{text: "Title: X", line: 1})
	assert.Equal(t, "action", rule)
}

func TestClassifyTitlePageRejectsStrayLines(t *testing.T) {
	// an unindented non-key line means this is not a title page
	toks, rule := classify(block{text: "Title: X\nNot a key", line: 1, first: true})
	assert.Equal(t, "action", rule)
	require.Len(t, toks, 1)
	assert.Equal(t, "Title: X\nNot a key", toks[0].Text)
}

func TestDialogueParts(t *testing.T) {
	toks := dialogueParts("(beat)\nLine one.\nLine two.\n(softly)\nLast.", 3)
	require.Len(t, toks, 4)
	assert.Equal(t, Token{Kind: KindParenthetical, Text: "(beat)", LineNumber: 3}, toks[0])
	assert.Equal(t, Token{Kind: KindDialogue, Text: "Line one.\nLine two.", LineNumber: 4}, toks[1])
	assert.Equal(t, Token{Kind: KindParenthetical, Text: "(softly)", LineNumber: 6}, toks[2])
	assert.Equal(t, Token{Kind: KindDialogue, Text: "Last.", LineNumber: 7}, toks[3])
}

func TestKindNamesRoundTrip(t *testing.T) {
	for _, k := range Kinds() {
		got, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, got)
	}
	_, ok := ParseKind("nope")
	assert.False(t, ok)
	assert.Equal(t, "kind(200)", Kind(200).String())
}

func TestKindFromTitleKey(t *testing.T) {
	k, ok := KindFromTitleKey("Draft date")
	require.True(t, ok)
	assert.Equal(t, KindDraftDate, k)
	_, ok = KindFromTitleKey("scene heading")
	assert.False(t, ok)
}
