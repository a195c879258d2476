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

const brickAndSteel = `Title:
    _**BRICK & STEEL**_
    _**FULL RETIRED**_
Credit: Written by
Author: Stu Maschwitz
Draft date: 1/27/2012

EXT. BRICK'S PATIO - DAY #1#

A gorgeous day.

BRICK
(quietly)
Hello there.
How are you?

STEEL
Fine.

BRICK^
Good.

CUT TO:

> THE END <
`

// kinds extracts the kind sequence for compact assertions.
func kinds(toks []Token) []Kind {
	out := make([]Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestTokenizeSceneHeading(t *testing.T) {
	toks := Tokenize("INT. HOUSE - DAY")
	require.Len(t, toks, 1)
	assert.Equal(t, KindSceneHeading, toks[0].Kind)
	assert.Equal(t, "INT. HOUSE - DAY", toks[0].Text)
	assert.Equal(t, "", toks[0].SceneNumber)
	assert.Equal(t, 1, toks[0].LineNumber)
	assert.False(t, toks[0].IsTitlePage)
}

func TestTokenizeSceneNumberAndForcedHeading(t *testing.T) {
	toks := Tokenize("EXT. BRICK'S PATIO - DAY #1A#\n\n.SNIPER SCOPE POV\n\n...and then")
	require.Len(t, toks, 3)
	assert.Equal(t, Token{Kind: KindSceneHeading, Text: "EXT. BRICK'S PATIO - DAY", SceneNumber: "1A", LineNumber: 1}, toks[0])
	assert.Equal(t, Token{Kind: KindSceneHeading, Text: "SNIPER SCOPE POV", LineNumber: 3}, toks[1])
	assert.Equal(t, Token{Kind: KindAction, Text: "...and then", LineNumber: 5}, toks[2])
}

func TestTokenizeTitlePage(t *testing.T) {
	toks := Tokenize("Title: My Script\nAuthor: Me\n\n")
	require.Len(t, toks, 2)
	assert.Equal(t, Token{Kind: KindTitle, Text: "My Script", LineNumber: 1, IsTitlePage: true}, toks[0])
	assert.Equal(t, Token{Kind: KindAuthor, Text: "Me", LineNumber: 2, IsTitlePage: true}, toks[1])
}

func TestTokenizeTitlePageOnlyAsFirstBlock(t *testing.T) {
	toks := Tokenize("INT. HOUSE - DAY\n\nTitle: Late")
	require.Len(t, toks, 2)
	assert.Equal(t, KindAction, toks[1].Kind)
	assert.Equal(t, "Title: Late", toks[1].Text)
	assert.False(t, toks[1].IsTitlePage)
}

func TestTokenizeTitlePageAfterLeadingBlankLines(t *testing.T) {
	toks := Tokenize("\n\nTitle: Late Start")
	require.Len(t, toks, 1)
	assert.Equal(t, KindTitle, toks[0].Kind)
	assert.Equal(t, 3, toks[0].LineNumber)
}

func TestTokenizeSingleLeadingNewline(t *testing.T) {
	toks := Tokenize("\nTitle: My Script\nAuthor: Me\n\nINT. HOUSE - DAY")
	require.Len(t, toks, 3)
	assert.Equal(t, Token{Kind: KindTitle, Text: "My Script", LineNumber: 2, IsTitlePage: true}, toks[0])
	assert.Equal(t, Token{Kind: KindAuthor, Text: "Me", LineNumber: 3, IsTitlePage: true}, toks[1])
	assert.Equal(t, Token{Kind: KindSceneHeading, Text: "INT. HOUSE - DAY", LineNumber: 5}, toks[2])

	toks = Tokenize("\nINT. HOUSE - DAY\n\nBOB\nHi.")
	assert.Equal(t, []Kind{KindSceneHeading, KindDialogueBegin, KindCharacter, KindDialogue, KindDialogueEnd}, kinds(toks))
	assert.Equal(t, 2, toks[0].LineNumber)
	assert.Equal(t, 4, toks[1].LineNumber)
}

func TestTokenizeWhitespaceOnlyBlockEmitsNothing(t *testing.T) {
	toks := Tokenize("a\n\n  \n\nb")
	require.Len(t, toks, 2)
	assert.Equal(t, Token{Kind: KindAction, Text: "a", LineNumber: 1}, toks[0])
	assert.Equal(t, Token{Kind: KindAction, Text: "b", LineNumber: 5}, toks[1])
}

func TestTokenizeFullDocument(t *testing.T) {
	toks := Tokenize(brickAndSteel)
	assert.Equal(t, []Kind{
		KindTitle, KindCredit, KindAuthor, KindDraftDate,
		KindSceneHeading,
		KindAction,
		KindDialogueBegin, KindCharacter, KindParenthetical, KindDialogue, KindDialogueEnd,
		KindDualDialogueBegin,
		KindDialogueBegin, KindCharacter, KindDialogue, KindDialogueEnd,
		KindDialogueBegin, KindCharacter, KindDialogue, KindDialogueEnd,
		KindDualDialogueEnd,
		KindTransition,
		KindCentered,
	}, kinds(toks))

	title := toks[0]
	assert.Equal(t, "_**BRICK & STEEL**_\n    _**FULL RETIRED**_", title.Text)
	assert.Equal(t, 1, title.LineNumber)
	assert.Equal(t, 4, toks[1].LineNumber)
	assert.Equal(t, "Written by", toks[1].Text)
	assert.Equal(t, 6, toks[3].LineNumber)
	assert.Equal(t, "1/27/2012", toks[3].Text)

	scene := toks[4]
	assert.Equal(t, "EXT. BRICK'S PATIO - DAY", scene.Text)
	assert.Equal(t, "1", scene.SceneNumber)
	assert.Equal(t, 8, scene.LineNumber)

	assert.Equal(t, 10, toks[5].LineNumber)

	assert.Equal(t, "BRICK", toks[7].Text)
	assert.Equal(t, 12, toks[7].LineNumber)
	assert.Equal(t, "(quietly)", toks[8].Text)
	assert.Equal(t, 13, toks[8].LineNumber)
	assert.Equal(t, "Hello there.\nHow are you?", toks[9].Text)
	assert.Equal(t, 14, toks[9].LineNumber)
	assert.Equal(t, 15, toks[10].LineNumber)
	assert.Equal(t, DualNone, toks[6].Dual)

	assert.Equal(t, DualLeft, toks[12].Dual)
	assert.Equal(t, "STEEL", toks[13].Text)
	assert.Equal(t, DualRight, toks[16].Dual)
	assert.Equal(t, "BRICK", toks[17].Text)
	assert.Equal(t, 21, toks[20].LineNumber)

	assert.Equal(t, "CUT TO:", toks[21].Text)
	assert.Equal(t, 23, toks[21].LineNumber)
	assert.Equal(t, " THE END ", toks[22].Text)
	assert.Equal(t, 25, toks[22].LineNumber)
}

func TestTokenizeDualDialogue(t *testing.T) {
	toks := Tokenize("JOE\nHello.\n\nANN^\nHi!")
	want := []Token{
		{Kind: KindDualDialogueBegin, LineNumber: 1},
		{Kind: KindDialogueBegin, Dual: DualLeft, LineNumber: 1},
		{Kind: KindCharacter, Text: "JOE", LineNumber: 1},
		{Kind: KindDialogue, Text: "Hello.", LineNumber: 2},
		{Kind: KindDialogueEnd, LineNumber: 2},
		{Kind: KindDialogueBegin, Dual: DualRight, LineNumber: 4},
		{Kind: KindCharacter, Text: "ANN", LineNumber: 4},
		{Kind: KindDialogue, Text: "Hi!", LineNumber: 5},
		{Kind: KindDialogueEnd, LineNumber: 5},
		{Kind: KindDualDialogueEnd, LineNumber: 5},
	}
	assert.Equal(t, want, toks)
}

func TestTokenizeDualWithoutPartnerIsPlainDialogue(t *testing.T) {
	toks := Tokenize("Some action.\n\nANN^\nHi!")
	assert.Equal(t, []Kind{KindAction, KindDialogueBegin, KindCharacter, KindDialogue, KindDialogueEnd}, kinds(toks))
	assert.Equal(t, DualNone, toks[1].Dual)

	// an action block between the two cues breaks the pair
	toks = Tokenize("JOE\nHello.\n\nA pause.\n\nANN^\nHi!")
	for _, tok := range toks {
		assert.NotEqual(t, KindDualDialogueBegin, tok.Kind)
		assert.NotEqual(t, KindDualDialogueEnd, tok.Kind)
		assert.Equal(t, DualNone, tok.Dual)
	}
}

func TestTokenizeChainedDualCuesDoNotOverlap(t *testing.T) {
	toks := Tokenize("A\nOne.\n\nB^\nTwo.\n\nC^\nThree.")
	var depth, pairs int
	for _, tok := range toks {
		switch tok.Kind {
		case KindDualDialogueBegin:
			depth++
			pairs++
			require.Equal(t, 1, depth, "dual dialogue must not nest")
		case KindDualDialogueEnd:
			depth--
		}
	}
	assert.Equal(t, 0, depth)
	assert.Equal(t, 1, pairs)
}

func TestTokenizeDialogueVariants(t *testing.T) {
	toks := Tokenize("BRICK (V.O.)\nHi.\n\n@McCLANE\nYippie ki-yay.")
	require.Len(t, toks, 8)
	assert.Equal(t, "BRICK (V.O.)", toks[1].Text)
	assert.Equal(t, "McCLANE", toks[5].Text)
	assert.Equal(t, "Yippie ki-yay.", toks[6].Text)
}

func TestTokenizeTwoSpaceEscapeFallsThroughToAction(t *testing.T) {
	toks := Tokenize("INT. HOUSE - DAY  ")
	require.Len(t, toks, 1)
	assert.Equal(t, KindAction, toks[0].Kind)

	toks = Tokenize("JOE  \nHello.")
	require.Len(t, toks, 1)
	assert.Equal(t, KindAction, toks[0].Kind)
	assert.Equal(t, "JOE  \nHello.", toks[0].Text)
}

func TestTokenizeSimpleBlocks(t *testing.T) {
	cases := []struct {
		in   string
		want Token
	}{
		{"CUT TO:", Token{Kind: KindTransition, Text: "CUT TO:", LineNumber: 1}},
		{"FADE OUT.", Token{Kind: KindTransition, Text: "FADE OUT.", LineNumber: 1}},
		{"> BURN TO WHITE.", Token{Kind: KindTransition, Text: "BURN TO WHITE.", LineNumber: 1}},
		{"> THE END <", Token{Kind: KindCentered, Text: " THE END ", LineNumber: 1}},
		{"## Act Two", Token{Kind: KindSection, Text: "Act Two", Depth: 2, LineNumber: 1}},
		{"= Brick meets Steel", Token{Kind: KindSynopsis, Text: "Brick meets Steel", LineNumber: 1}},
		{"[[This is a note]]", Token{Kind: KindNote, Text: "This is a note", LineNumber: 1}},
		{"~Willy Wonka!\n~Willy Wonka!", Token{Kind: KindLyrics, Text: "Willy Wonka!\nWilly Wonka!", LineNumber: 1}},
		{"===", Token{Kind: KindPageBreak, LineNumber: 1}},
		{"/*", Token{Kind: KindBoneyardBegin, LineNumber: 1}},
		{"*/", Token{Kind: KindBoneyardEnd, LineNumber: 1}},
		{"!SCANNING THE AISLES...", Token{Kind: KindAction, Text: "SCANNING THE AISLES...", LineNumber: 1}},
		{"He walks in.", Token{Kind: KindAction, Text: "He walks in.", LineNumber: 1}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			toks := Tokenize(tc.in)
			require.Len(t, toks, 1)
			assert.Equal(t, tc.want, toks[0])
		})
	}
}

func TestTokenizeEmptyForcedActionEmitsNothing(t *testing.T) {
	assert.Empty(t, Tokenize("!"))
	assert.Empty(t, Tokenize(""))
	assert.Empty(t, Tokenize("\n\n\n"))
}

func TestTokenizeLineNumbers(t *testing.T) {
	toks := Tokenize("A\r\n\r\n\r\n\r\nB")
	require.Len(t, toks, 2)
	assert.Equal(t, 1, toks[0].LineNumber)
	assert.Equal(t, 5, toks[1].LineNumber)

	// boneyard content disappears but keeps its lines
	toks = Tokenize("/* hidden\nstill hidden */\n\nAfter")
	require.Len(t, toks, 1)
	assert.Equal(t, "After", toks[0].Text)
	assert.Equal(t, 4, toks[0].LineNumber)
}

func TestTokenizeLineNumbersNonDecreasing(t *testing.T) {
	inputs := []string{
		brickAndSteel,
		"JOE\nHello.\n\nANN^\nHi!\n\n\n\nINT. X - DAY\n\n~la\n~la\n\n===\n\n!",
		"\n\n\nTitle: T\n\n\n\nA\r\nB\rC\n\n  \n\nD",
		"/*\n\nX\n\n*/\n\n/* a\nb */",
	}
	for _, in := range inputs {
		toks := Tokenize(in)
		for i := 1; i < len(toks); i++ {
			require.LessOrEqual(t, toks[i-1].LineNumber, toks[i].LineNumber, "token %d (%s) in %q", i, toks[i].Kind, in)
		}
	}
}

func TestTokenizeDialogueBalanced(t *testing.T) {
	toks := Tokenize(brickAndSteel + "\n\nA\nx\n\nB^\ny\n\nC\nz")
	open := 0
	for _, tok := range toks {
		switch tok.Kind {
		case KindDialogueBegin:
			require.Equal(t, 0, open)
			open++
		case KindDialogueEnd:
			require.Equal(t, 1, open)
			open--
		}
	}
	assert.Equal(t, 0, open)
}
