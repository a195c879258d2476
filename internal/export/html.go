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
	"fmt"
	"html/template"
	"io"

	"gofountain/internal/render"
	"gofountain/internal/version"
)

//go:embed page.html.tmpl
var pageTemplate string

var pageTmpl = template.Must(template.New("page").Parse(pageTemplate))

// HTMLPage wraps rendered fragments in a standalone, styled HTML page.
func HTMLPage(w io.Writer, doc render.Document, title string) error {
	if title == "" {
		title = "Untitled"
	}
	data := struct {
		Title, Generator  string
		TitlePage, Script template.HTML
	}{
		Title:     title,
		Generator: version.String(),
		// fragments are produced by render and trusted as is
		TitlePage: template.HTML(doc.TitlePage),
		Script:    template.HTML(doc.Script),
	}
	if err := pageTmpl.Execute(w, data); err != nil {
		return fmt.Errorf("render page: %w", err)
	}
	return nil
}
