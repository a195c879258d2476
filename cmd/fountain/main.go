/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"gofountain/internal/config"
	"gofountain/internal/crash"
	applog "gofountain/internal/log"
	"gofountain/internal/render"
	"gofountain/internal/telemetry"
	"gofountain/internal/version"
)

// app carries state shared by all subcommands of one invocation.
type app struct {
	cfg      config.AppConfig
	crash    *crash.Context
	useColor bool
}

func main() {
	cc := crash.Context{}
	defer crash.Recover(&cc)

	start := time.Now()
	err := newRootCmd(&app{crash: &cc}).Execute()
	if cc.Command != "" {
		telemetry.Send("command", map[string]any{
			"cmd": cc.Command,
			"ok":  err == nil,
			"ms":  time.Since(start).Milliseconds(),
		})
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		telemetry.Flush(ctx)
		cancel()
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:               "fountain",
		Short:             "Fountain screenplay tokenizer and renderer",
		Long:              `fountain turns Fountain screenplay text into tokens, HTML, PDF, plain text and JSON, and keeps a searchable index of scripts`,
		Version:           version.Version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
	}
	pf := root.PersistentFlags()
	pf.String("config", "", "config file (default: per-user config dir)")
	pf.String("color", "auto", "colorize output (auto|on|off)")
	pf.String("log-level", "", "log level override (debug|info|warn|error)")
	pf.String("index", "", "index database path (default from config)")
	pf.Bool("line-numbers", false, "annotate output with source line numbers")

	root.AddCommand(
		newTokensCmd(a),
		newHTMLCmd(a),
		newPDFCmd(a),
		newTextCmd(a),
		newJSONCmd(a),
		newExportCmd(a),
		newIndexCmd(a),
		newSearchCmd(a),
		newScenesCmd(a),
		newHistoryCmd(a),
		newPublishCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads the configuration, applies global flags and initializes logging.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	a.crash.Command = cmd.CommandPath()
	flags := cmd.Flags()

	path, _ := flags.GetString("config")
	var err error
	if path == "" {
		a.cfg, err = config.Load()
	} else {
		a.cfg, err = config.LoadFrom(path)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if lvl, _ := flags.GetString("log-level"); lvl != "" {
		a.cfg.Logging.Level = lvl
	}
	if p, _ := flags.GetString("index"); p != "" {
		a.cfg.Storage.IndexPath = p
	}
	if flags.Changed("line-numbers") {
		a.cfg.Render.LineNumbers, _ = flags.GetBool("line-numbers")
	}
	if a.cfg.Storage.IndexPath != "" {
		a.crash.Dir = filepath.Dir(a.cfg.Storage.IndexPath)
	}

	colorFlag, _ := flags.GetString("color")
	switch strings.ToLower(colorFlag) {
	case "on":
		a.useColor = true
	case "off":
		a.useColor = false
	case "auto":
		a.useColor = isTerminal(os.Stdout)
	default:
		return fmt.Errorf("invalid --color %q (want auto|on|off)", colorFlag)
	}
	color.NoColor = !a.useColor

	opts := a.cfg.Logging.LogOptions()
	opts.Writer = cmd.ErrOrStderr()
	opts.Color = colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stderr))
	applog.Init(opts)
	applog.WithComponent("cli").Debug("start", "cmd", a.crash.Command)

	if t := a.cfg.Telemetry; t.OptIn {
		telemetry.Install(telemetry.New(telemetry.Config{
			OptIn:     true,
			EventsURL: t.EventsURL,
			CrashURL:  t.CrashURL,
			Timeout:   t.Timeout(),
		}))
	}
	return nil
}

// readInput reads a script from path, or from stdin when path is "-". name
// is the file name without extension and is used for output files and the
// index.
func (a *app) readInput(cmd *cobra.Command, path string) (text, name string, err error) {
	a.crash.Input = path
	var b []byte
	if path == "-" {
		b, err = io.ReadAll(cmd.InOrStdin())
		name = "stdin"
	} else {
		b, err = os.ReadFile(path)
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err != nil {
		return "", "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), name, nil
}

// parse reads and parses a script file with the configured render options.
func (a *app) parse(cmd *cobra.Command, path string) (render.Script, string, error) {
	text, name, err := a.readInput(cmd, path)
	if err != nil {
		return render.Script{}, "", err
	}
	s, err := render.Parse(text, render.Options{LineNumbers: a.cfg.Render.LineNumbers})
	return s, name, err
}

// output opens the destination for -o; "" and "-" mean the command's stdout.
func output(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, f.Close, nil
}

// writeTo runs fill against the -o destination and closes it.
func writeTo(cmd *cobra.Command, path string, fill func(io.Writer) error) error {
	w, closeFn, err := output(cmd, path)
	if err != nil {
		return err
	}
	if err := fill(w); err != nil {
		_ = closeFn()
		return err
	}
	return closeFn()
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
