/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"gofountain/internal/script"
	"gofountain/internal/version"
)

//go:embed token.schema.json
var tokenSchema []byte

// Schema returns the JSON Schema that JSON output conforms to.
func Schema() []byte { return append([]byte(nil), tokenSchema...) }

// Document is the JSON form of a tokenized script.
type Document struct {
	Title     string      `json:"title,omitempty"`
	Generator string      `json:"generator,omitempty"`
	Tokens    []TokenJSON `json:"tokens"`
}

// TokenJSON mirrors script.Token with wire names.
type TokenJSON struct {
	Kind        string `json:"kind"`
	Text        string `json:"text,omitempty"`
	Line        int    `json:"line"`
	TitlePage   bool   `json:"title_page,omitempty"`
	SceneNumber string `json:"scene_number,omitempty"`
	Depth       int    `json:"depth,omitempty"`
	Dual        string `json:"dual,omitempty"`
}

// NewDocument converts tokens to their JSON form.
func NewDocument(tokens []script.Token, title string) Document {
	doc := Document{Title: title, Generator: version.String(), Tokens: make([]TokenJSON, 0, len(tokens))}
	for _, t := range tokens {
		doc.Tokens = append(doc.Tokens, TokenJSON{
			Kind:        t.Kind.String(),
			Text:        t.Text,
			Line:        t.LineNumber,
			TitlePage:   t.IsTitlePage,
			SceneNumber: t.SceneNumber,
			Depth:       t.Depth,
			Dual:        t.Dual.String(),
		})
	}
	return doc
}

// ScriptTokens converts the document back to scanner tokens.
func (d Document) ScriptTokens() ([]script.Token, error) {
	out := make([]script.Token, 0, len(d.Tokens))
	for i, t := range d.Tokens {
		k, ok := script.ParseKind(t.Kind)
		if !ok {
			return nil, fmt.Errorf("token %d: unknown kind %q", i, t.Kind)
		}
		out = append(out, script.Token{
			Kind:        k,
			Text:        t.Text,
			LineNumber:  t.Line,
			IsTitlePage: t.TitlePage,
			SceneNumber: t.SceneNumber,
			Depth:       t.Depth,
			Dual:        script.ParseDual(t.Dual),
		})
	}
	return out, nil
}

// JSON writes tokens as an indented JSON document.
func JSON(w io.Writer, tokens []script.Token, title string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(NewDocument(tokens, title)); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// ErrInvalidJSON is returned by ValidateJSON when the document does not match the schema.
var ErrInvalidJSON = errors.New("json does not match token schema")

// ValidateJSON checks b against the embedded token schema.
func ValidateJSON(b []byte) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(tokenSchema), gojsonschema.NewBytesLoader(b))
	if err != nil {
		return fmt.Errorf("validate json: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidJSON, strings.Join(msgs, "; "))
}

// ReadJSON decodes and validates a JSON document.
func ReadJSON(r io.Reader) (Document, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Document{}, err
	}
	if err := ValidateJSON(b); err != nil {
		return Document{}, err
	}
	var doc Document
	if err := json.Unmarshal(b, &doc); err != nil {
		return Document{}, fmt.Errorf("decode json: %w", err)
	}
	return doc, nil
}
