/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"strings"
	"testing"

	"gofountain/internal/render"
)

func TestHTMLPageWrapsFragments(t *testing.T) {
	doc := render.Document{
		TitlePage: "<h1>Brick &amp; Steel</h1>",
		Script:    `<h3>EXT. PATIO - DAY</h3><p>A gorgeous day.</p>`,
	}
	var buf bytes.Buffer
	if err := HTMLPage(&buf, doc, "Brick & Steel"); err != nil {
		t.Fatalf("HTMLPage: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Brick &amp; Steel</title>",
		`<div id="title-page"><h1>Brick &amp; Steel</h1></div>`,
		`<div id="script"><h3>EXT. PATIO - DAY</h3><p>A gorgeous day.</p></div>`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("page misses %q:\n%s", want, out)
		}
	}
}

func TestHTMLPageWithoutTitlePage(t *testing.T) {
	var buf bytes.Buffer
	if err := HTMLPage(&buf, render.Document{Script: "<p>x</p>"}, ""); err != nil {
		t.Fatalf("HTMLPage: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, `id="title-page"`) {
		t.Fatalf("empty title page must be omitted:\n%s", out)
	}
	if !strings.Contains(out, "<title>Untitled</title>") {
		t.Fatalf("default title missing:\n%s", out)
	}
}
