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
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
// Minimal schema to start; can evolve with config_version migrations.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields should be preserved when possible (yaml handles this by ignoring extras on unmarshal).

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark" (informational for now)
}

type ThumbnailConfig struct {
	MaxWidth      int    `yaml:"max_width"`
	MaxHeight     int    `yaml:"max_height"`
	CachePath     string `yaml:"cache_path"` // empty = default user cache location
	CacheMaxBytes int64  `yaml:"cache_max_bytes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int             `yaml:"config_version"`
	General       GeneralConfig   `yaml:"general"`
	Thumbnails    ThumbnailConfig `yaml:"thumbnails"`
	Logging       LoggingConfig   `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system"},
		Thumbnails:    ThumbnailConfig{MaxWidth: 250, MaxHeight: 160, CachePath: "", CacheMaxBytes: 256 * 1024 * 1024},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvTelemetryOptIn = "PT_TELEMETRY_OPT_IN"
	EnvThumbMaxWidth  = "PT_THUMB_MAX_WIDTH"
	EnvThumbMaxHeight = "PT_THUMB_MAX_HEIGHT"
	EnvThumbCachePath = "PT_THUMB_CACHE_PATH"
	EnvThumbCacheMax  = "PT_THUMB_CACHE_MAX_BYTES"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "PT_LOG_LEVEL"
	EnvLogFormat = "PT_LOG_FORMAT"
	EnvLogSource = "PT_LOG_SOURCE"
	EnvLogFile   = "PT_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PageTailor")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PageTailor")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "pagetailor")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// DefaultCachePath returns the per-user thumbnail cache file path, used when
// thumbnails.cache_path is empty.
func DefaultCachePath() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "pagetailor", "thumbs.sqlite"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
func Load() (AppConfig, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	if src.Thumbnails.MaxWidth > 0 {
		dst.Thumbnails.MaxWidth = src.Thumbnails.MaxWidth
	}
	if src.Thumbnails.MaxHeight > 0 {
		dst.Thumbnails.MaxHeight = src.Thumbnails.MaxHeight
	}
	if strings.TrimSpace(src.Thumbnails.CachePath) != "" {
		dst.Thumbnails.CachePath = strings.TrimSpace(src.Thumbnails.CachePath)
	}
	if src.Thumbnails.CacheMaxBytes > 0 {
		dst.Thumbnails.CacheMaxBytes = src.Thumbnails.CacheMaxBytes
	}
	// logging
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
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		lv := strings.ToLower(v)
		cfg.General.TelemetryOptIn = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvThumbMaxWidth)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Thumbnails.MaxWidth = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvThumbMaxHeight)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Thumbnails.MaxHeight = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvThumbCachePath)); v != "" {
		cfg.Thumbnails.CachePath = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvThumbCacheMax)); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Thumbnails.CacheMaxBytes = n
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		lv := strings.ToLower(v)
		cfg.Logging.Source = lv == "1" || lv == "true" || lv == "on" || lv == "yes"
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	switch key {
	case "general.telemetry_opt_in":
		if os.Getenv(EnvTelemetryOptIn) != "" {
			return EnvTelemetryOptIn, true
		}
	case "thumbnails.max_width":
		if os.Getenv(EnvThumbMaxWidth) != "" {
			return EnvThumbMaxWidth, true
		}
	case "thumbnails.max_height":
		if os.Getenv(EnvThumbMaxHeight) != "" {
			return EnvThumbMaxHeight, true
		}
	case "thumbnails.cache_path":
		if os.Getenv(EnvThumbCachePath) != "" {
			return EnvThumbCachePath, true
		}
	case "thumbnails.cache_max_bytes":
		if os.Getenv(EnvThumbCacheMax) != "" {
			return EnvThumbCacheMax, true
		}
	case "logging.level":
		if os.Getenv(EnvLogLevel) != "" {
			return EnvLogLevel, true
		}
	case "logging.format":
		if os.Getenv(EnvLogFormat) != "" {
			return EnvLogFormat, true
		}
	case "logging.source":
		if os.Getenv(EnvLogSource) != "" {
			return EnvLogSource, true
		}
	case "logging.file":
		if os.Getenv(EnvLogFile) != "" {
			return EnvLogFile, true
		}
	}
	return "", false
}

// EffectiveCachePath resolves the thumbnail cache location, falling back to
// the per-user default when unset.
func (t ThumbnailConfig) EffectiveCachePath() (string, error) {
	if strings.TrimSpace(t.CachePath) != "" {
		return t.CachePath, nil
	}
	return DefaultCachePath()
}
