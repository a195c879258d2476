/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gofountain/internal/crash"
)

const patio = `Title: Brick and Steel
Author: Stu Maschwitz

EXT. PATIO - DAY

A gorgeous day.

STEEL
Beer is ready!
`

type cli struct {
	dir    string
	script string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	t.Setenv("FTN_PG_DSN", "")
	t.Setenv("FTN_INDEX_PATH", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "brick.fountain")
	require.NoError(t, os.WriteFile(path, []byte(patio), 0o644))
	return &cli{dir: dir, script: path}
}

// run executes one invocation of the root command with isolated config,
// index and colors.
func (c *cli) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(&app{crash: &crash.Context{}})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{
		"--config", filepath.Join(c.dir, "config.yaml"),
		"--index", filepath.Join(c.dir, "index.db"),
		"--color", "off",
		"--log-level", "error",
	}, args...))
	err := root.Execute()
	return out.String(), err
}

func TestTokensPretty(t *testing.T) {
	c := newCLI(t)
	out, err := c.run(t, "tokens", c.script)
	require.NoError(t, err)
	assert.Contains(t, out, "scene_heading")
	assert.Contains(t, out, `"EXT. PATIO - DAY"`)
	assert.Contains(t, out, "character")
	assert.Contains(t, out, `"Beer is ready!"`)
	assert.NotContains(t, out, "\x1b[", "colors are off")
}

func TestTokensJSON(t *testing.T) {
	c := newCLI(t)
	out, err := c.run(t, "tokens", "--format", "json", c.script)
	require.NoError(t, err)
	assert.Contains(t, out, `"kind": "scene_heading"`)
	assert.Contains(t, out, `"title": "Brick and Steel"`)
}

func TestTokensUnknownFormat(t *testing.T) {
	c := newCLI(t)
	_, err := c.run(t, "tokens", "--format", "yaml", c.script)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestHTMLFragmentAndPage(t *testing.T) {
	c := newCLI(t)
	frag, err := c.run(t, "html", "--fragment", c.script)
	require.NoError(t, err)
	assert.Contains(t, frag, "Beer is ready!")
	assert.NotContains(t, frag, "<html")

	page, err := c.run(t, "html", c.script)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "<title>Brick and Steel</title>")
}

func TestJSONQueryAndValidate(t *testing.T) {
	c := newCLI(t)
	out, err := c.run(t, "json", "--query", "tokens.#", c.script)
	require.NoError(t, err)
	n, err := strconv.Atoi(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Greater(t, n, 5)

	dump := filepath.Join(c.dir, "brick.json")
	_, err = c.run(t, "json", "-o", dump, c.script)
	require.NoError(t, err)
	out, err = c.run(t, "json", "--validate", dump)
	require.NoError(t, err)
	assert.Equal(t, "ok: "+strconv.Itoa(n)+" tokens\n", out)

	_, err = c.run(t, "json", "--query", "nothing.here", c.script)
	assert.Error(t, err)
}

func TestPDFToFile(t *testing.T) {
	c := newCLI(t)
	dst := filepath.Join(c.dir, "out.pdf")
	_, err := c.run(t, "pdf", "-o", dst, "--page-size", "A4", c.script)
	require.NoError(t, err)
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF")))
}

func TestText(t *testing.T) {
	c := newCLI(t)
	out, err := c.run(t, "text", c.script)
	require.NoError(t, err)
	assert.Contains(t, out, "EXT. PATIO - DAY")
	assert.Contains(t, out, "STEEL")
}

func TestExportFormats(t *testing.T) {
	c := newCLI(t)
	outDir := filepath.Join(c.dir, "out")
	out, err := c.run(t, "export", "--format", "html,json", "--out", outDir, c.script)
	require.NoError(t, err)
	for _, name := range []string{"brick.html", "brick.json"} {
		assert.FileExists(t, filepath.Join(outDir, name))
		assert.Contains(t, out, name)
	}
}

func TestIndexSearchHistory(t *testing.T) {
	c := newCLI(t)

	out, err := c.run(t, "index", c.script)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "indexed brick (snapshot "), out)
	id := strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(out), "indexed brick (snapshot "), ")")

	out, err = c.run(t, "index")
	require.NoError(t, err)
	assert.Contains(t, out, "brick")
	assert.Contains(t, out, "Brick and Steel")

	out, err = c.run(t, "search", "ready")
	require.NoError(t, err)
	assert.Contains(t, out, "brick:")
	assert.Contains(t, out, "Beer is ready!")
	assert.Contains(t, out, "STEEL:")

	out, err = c.run(t, "search", "--kind", "scene_heading", "ready")
	require.NoError(t, err)
	assert.Equal(t, "no matches\n", out)

	_, err = c.run(t, "search", "--kind", "monologue", "ready")
	assert.Error(t, err)

	out, err = c.run(t, "scenes", "brick")
	require.NoError(t, err)
	assert.Contains(t, out, "EXT. PATIO - DAY")

	out, err = c.run(t, "history", "brick")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "bytes")

	out, err = c.run(t, "history", "--show", id)
	require.NoError(t, err)
	assert.Equal(t, patio, out)

	_, err = c.run(t, "scenes", "missing")
	assert.Error(t, err)
}

func TestPublishWithoutBackend(t *testing.T) {
	c := newCLI(t)
	_, err := c.run(t, "publish", c.script)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no backend configured")
}

func TestVersion(t *testing.T) {
	c := newCLI(t)
	out, err := c.run(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "gofountain "))

	out, err = c.run(t, "version", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"tool": "fountain"`)
	assert.Contains(t, out, `"rules": [`)
}

func TestInvalidColorFlag(t *testing.T) {
	c := newCLI(t)
	_, err := c.run(t, "tokens", "--color", "sometimes", c.script)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --color")
}
