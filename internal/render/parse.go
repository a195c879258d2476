/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package render

import (
	"fmt"

	"gofountain/internal/log"
	"gofountain/internal/script"
)

// Script is the result of Parse.
type Script struct {
	Title    string // empty when the document has no title field
	HasTitle bool
	HTML     Document
	Tokens   []script.Token
}

// tokenize is swapped out in tests.
var tokenize = script.Tokenize

// Parse tokenizes text and renders it. The core is total, so an error here
// means something panicked underneath; it comes back wrapped instead of
// unwinding the caller.
func Parse(text string, opts Options) (s Script, err error) {
	l := log.WithOperation(log.WithComponent("render"), "parse")
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = fmt.Errorf("render: parse: %w", e)
			} else {
				err = fmt.Errorf("render: parse: %v", r)
			}
			l.Error("parse failed", "err", err)
			s = Script{}
		}
	}()

	toks := tokenize(text)
	s = Script{Tokens: toks, HTML: HTML(toks, opts)}
	s.Title, s.HasTitle = Title(toks)
	l.Debug("parsed", "bytes", len(text), "tokens", len(toks), "title", s.Title)
	return s, nil
}
