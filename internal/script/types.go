/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"strconv"
	"strings"
)

// Kind indicates the type of a token produced by the scanner.
// Title page kinds come first, body kinds follow in roughly the order
// a reader meets them in a screenplay.
type Kind uint8

const (
	KindTitle Kind = iota
	KindCredit
	KindAuthor
	KindAuthors
	KindSource
	KindNotes
	KindDraftDate
	KindDate
	KindContact
	KindCopyright

	KindSceneHeading
	KindTransition
	KindDialogueBegin
	KindDualDialogueBegin
	KindCharacter
	KindParenthetical
	KindDialogue
	KindDialogueEnd
	KindDualDialogueEnd
	KindSection
	KindSynopsis
	KindNote
	KindBoneyardBegin
	KindBoneyardEnd
	KindAction
	KindCentered
	KindLyrics
	KindPageBreak
	KindLineBreak

	kindCount
)

var kindNames = [kindCount]string{
	KindTitle:             "title",
	KindCredit:            "credit",
	KindAuthor:            "author",
	KindAuthors:           "authors",
	KindSource:            "source",
	KindNotes:             "notes",
	KindDraftDate:         "draft_date",
	KindDate:              "date",
	KindContact:           "contact",
	KindCopyright:         "copyright",
	KindSceneHeading:      "scene_heading",
	KindTransition:        "transition",
	KindDialogueBegin:     "dialogue_begin",
	KindDualDialogueBegin: "dual_dialogue_begin",
	KindCharacter:         "character",
	KindParenthetical:     "parenthetical",
	KindDialogue:          "dialogue",
	KindDialogueEnd:       "dialogue_end",
	KindDualDialogueEnd:   "dual_dialogue_end",
	KindSection:           "section",
	KindSynopsis:          "synopsis",
	KindNote:              "note",
	KindBoneyardBegin:     "boneyard_begin",
	KindBoneyardEnd:       "boneyard_end",
	KindAction:            "action",
	KindCentered:          "centered",
	KindLyrics:            "lyrics",
	KindPageBreak:         "page_break",
	KindLineBreak:         "line_break",
}

// String returns the snake_case name of the kind, e.g. "scene_heading".
func (k Kind) String() string {
	if k < kindCount {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// Kinds returns every token kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, kindCount)
	for k := Kind(0); k < kindCount; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind is the inverse of Kind.String.
func ParseKind(name string) (Kind, bool) {
	for k, n := range kindNames {
		if n == name {
			return Kind(k), true
		}
	}
	return 0, false
}

// IsTitlePage reports whether k is one of the title page field kinds.
func (k Kind) IsTitlePage() bool { return k <= KindCopyright }

// KindFromTitleKey maps a title page key such as "Draft date" to its kind.
func KindFromTitleKey(key string) (Kind, bool) {
	name := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(key)), " ", "_")
	k, ok := ParseKind(name)
	if !ok || !k.IsTitlePage() {
		return 0, false
	}
	return k, true
}

// Dual marks a dialogue_begin token that belongs to a side-by-side pair.
type Dual uint8

const (
	DualNone Dual = iota
	DualLeft
	DualRight
)

func (d Dual) String() string {
	switch d {
	case DualLeft:
		return "left"
	case DualRight:
		return "right"
	default:
		return ""
	}
}

// Token is a single classified piece of a screenplay.
// Text holds raw markup; inline emphasis is resolved later by Reconstruct.
// Structural markers (dialogue_end, page_break, ...) carry no text.
type Token struct {
	Kind        Kind
	Text        string
	LineNumber  int // 1-based line where the content starts
	IsTitlePage bool
	SceneNumber string // scene_heading only
	Depth       int    // section only
	Dual        Dual   // dialogue_begin only
}

// ParseDual is the inverse of Dual.String; unknown values map to DualNone.
func ParseDual(s string) Dual {
	switch s {
	case "left":
		return DualLeft
	case "right":
		return DualRight
	default:
		return DualNone
	}
}
