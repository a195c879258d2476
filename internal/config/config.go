/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gofountain/internal/log"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are read-only overrides applied at load time.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.
type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	Logging       LoggingConfig   `yaml:"logging"`
	Render        RenderConfig    `yaml:"render"`
	Export        ExportConfig    `yaml:"export"`
	Storage       StorageConfig   `yaml:"storage"`
	Backend       BackendConfig   `yaml:"backend"`
	Telemetry     TelemetryConfig `yaml:"telemetry"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type RenderConfig struct {
	LineNumbers bool `yaml:"line_numbers"`
}

type ExportConfig struct {
	PageSize  string  `yaml:"page_size"` // "Letter" or "A4"
	FontSize  float64 `yaml:"font_size"`
	WrapWidth int     `yaml:"wrap_width"` // columns for plain text output
	Preset    string  `yaml:"preset"`     // "web" or "print"
	OutDir    string  `yaml:"out_dir"`
}

type StorageConfig struct {
	IndexPath     string `yaml:"index_path"` // empty: index.db next to the config file
	KeepSnapshots int    `yaml:"keep_snapshots"`
}

type BackendConfig struct {
	DSN       string `yaml:"dsn"` // Postgres DSN; empty disables publishing
	TimeoutMs int    `yaml:"timeout_ms"`
}

// Defaults returns the application defaults.
// TelemetryConfig controls anonymous usage events and crash uploads. Both
// are off unless opt_in is set and the matching URL is configured.
type TelemetryConfig struct {
	OptIn     bool   `yaml:"opt_in"`
	EventsURL string `yaml:"events_url"`
	CrashURL  string `yaml:"crash_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Logging:       LoggingConfig{Level: "info", Format: "console"},
		Render:        RenderConfig{LineNumbers: false},
		Export:        ExportConfig{PageSize: "Letter", FontSize: 12, WrapWidth: 60, Preset: "web", OutDir: "."},
		Storage:       StorageConfig{KeepSnapshots: 20},
		Backend:       BackendConfig{TimeoutMs: 15000},
		Telemetry:     TelemetryConfig{TimeoutMs: 1500},
	}
}

// Env var names used as overrides.
const (
	EnvLogLevel         = "FTN_LOG_LEVEL"
	EnvLogFormat        = "FTN_LOG_FORMAT"
	EnvLogSource        = "FTN_LOG_SOURCE"
	EnvLogFile          = "FTN_LOG_FILE"
	EnvLineNumbers      = "FTN_LINE_NUMBERS"
	EnvPageSize         = "FTN_PAGE_SIZE"
	EnvFontSize         = "FTN_FONT_SIZE"
	EnvWrapWidth        = "FTN_WRAP_WIDTH"
	EnvIndexPath        = "FTN_INDEX_PATH"
	EnvBackendDSN       = "FTN_PG_DSN"
	EnvBackendTimeoutMs = "FTN_BACKEND_TIMEOUT_MS"
	EnvTelemetryOptIn   = "FTN_TELEMETRY_OPT_IN"
	EnvTelemetryURL     = "FTN_TELEMETRY_URL"
	EnvCrashUploadURL   = "FTN_CRASH_UPLOAD_URL"
)

// envKeys maps dotted config keys to the env var overriding them.
var envKeys = map[string]string{
	"logging.level":        EnvLogLevel,
	"logging.format":       EnvLogFormat,
	"logging.source":       EnvLogSource,
	"logging.file":         EnvLogFile,
	"render.line_numbers":  EnvLineNumbers,
	"export.page_size":     EnvPageSize,
	"export.font_size":     EnvFontSize,
	"export.wrap_width":    EnvWrapWidth,
	"storage.index_path":   EnvIndexPath,
	"backend.dsn":          EnvBackendDSN,
	"backend.timeout_ms":   EnvBackendTimeoutMs,
	"telemetry.opt_in":     EnvTelemetryOptIn,
	"telemetry.events_url": EnvTelemetryURL,
	"telemetry.crash_url":  EnvCrashUploadURL,
}

// Dir returns the per-user config directory.
func Dir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoFountain")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoFountain")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "gofountain")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "gofountain")
		}
	}
	if base == "" || base == "gofountain" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges environment overrides.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file path. A missing file is not an
// error; a malformed one is.
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	if cfg.Storage.IndexPath == "" {
		cfg.Storage.IndexPath = filepath.Join(filepath.Dir(path), "index.db")
	}
	return cfg, nil
}

// Save writes cfg as YAML to the user config path.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes cfg as YAML to path, creating parent directories.
func SaveTo(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	// the backend DSN may carry a password
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.Render.LineNumbers = src.Render.LineNumbers
	if src.Export.PageSize != "" {
		dst.Export.PageSize = src.Export.PageSize
	}
	if src.Export.FontSize > 0 {
		dst.Export.FontSize = src.Export.FontSize
	}
	if src.Export.WrapWidth > 0 {
		dst.Export.WrapWidth = src.Export.WrapWidth
	}
	if src.Export.Preset != "" {
		dst.Export.Preset = strings.ToLower(src.Export.Preset)
	}
	if src.Export.OutDir != "" {
		dst.Export.OutDir = src.Export.OutDir
	}
	if strings.TrimSpace(src.Storage.IndexPath) != "" {
		dst.Storage.IndexPath = strings.TrimSpace(src.Storage.IndexPath)
	}
	if src.Storage.KeepSnapshots != 0 {
		dst.Storage.KeepSnapshots = src.Storage.KeepSnapshots
	}
	if src.Backend.DSN != "" {
		dst.Backend.DSN = src.Backend.DSN
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	dst.Telemetry.OptIn = src.Telemetry.OptIn
	if u := strings.TrimSpace(src.Telemetry.EventsURL); u != "" {
		dst.Telemetry.EventsURL = u
	}
	if u := strings.TrimSpace(src.Telemetry.CrashURL); u != "" {
		dst.Telemetry.CrashURL = u
	}
	if src.Telemetry.TimeoutMs > 0 {
		dst.Telemetry.TimeoutMs = src.Telemetry.TimeoutMs
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLineNumbers)); v != "" {
		cfg.Render.LineNumbers = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvPageSize)); v != "" {
		cfg.Export.PageSize = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvFontSize)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Export.FontSize = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvWrapWidth)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Export.WrapWidth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvIndexPath)); v != "" {
		cfg.Storage.IndexPath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendDSN)); v != "" {
		cfg.Backend.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.Telemetry.OptIn = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryURL)); v != "" {
		cfg.Telemetry.EventsURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCrashUploadURL)); v != "" {
		cfg.Telemetry.CrashURL = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// LogOptions converts the logging section for log.Init.
func (l LoggingConfig) LogOptions() log.Options {
	return log.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}

// Timeout returns the backend timeout, falling back to the default for non-positive values.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// Timeout returns the telemetry request timeout.
func (t TelemetryConfig) Timeout() time.Duration {
	if t.TimeoutMs <= 0 {
		return time.Duration(Defaults().Telemetry.TimeoutMs) * time.Millisecond
	}
	return time.Duration(t.TimeoutMs) * time.Millisecond
}
