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
	"os"
	"strings"
	"testing"
)

func TestEnvOverridesTelemetry(t *testing.T) {
	old := os.Getenv(EnvTelemetryOptIn)
	_ = os.Setenv(EnvTelemetryOptIn, "true")
	t.Cleanup(func() { _ = os.Setenv(EnvTelemetryOptIn, old) })
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("General.TelemetryOptIn expected true from env override")
	}
}

func TestEnvOverridesThumbnails(t *testing.T) {
	oldW := os.Getenv(EnvThumbMaxWidth)
	oldH := os.Getenv(EnvThumbMaxHeight)
	oldMax := os.Getenv(EnvThumbCacheMax)
	_ = os.Setenv(EnvThumbMaxWidth, "320")
	_ = os.Setenv(EnvThumbMaxHeight, "200")
	_ = os.Setenv(EnvThumbCacheMax, "1048576")
	t.Cleanup(func() {
		_ = os.Setenv(EnvThumbMaxWidth, oldW)
		_ = os.Setenv(EnvThumbMaxHeight, oldH)
		_ = os.Setenv(EnvThumbCacheMax, oldMax)
	})
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Thumbnails.MaxWidth != 320 || cfg.Thumbnails.MaxHeight != 200 {
		t.Fatalf("thumbnail box not overridden: %#v", cfg.Thumbnails)
	}
	if cfg.Thumbnails.CacheMaxBytes != 1048576 {
		t.Fatalf("cache cap not overridden: %d", cfg.Thumbnails.CacheMaxBytes)
	}
}

func TestEnvOverrideInvalidNumberIgnored(t *testing.T) {
	old := os.Getenv(EnvThumbMaxWidth)
	_ = os.Setenv(EnvThumbMaxWidth, "not-a-number")
	t.Cleanup(func() { _ = os.Setenv(EnvThumbMaxWidth, old) })
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Thumbnails.MaxWidth != Defaults().Thumbnails.MaxWidth {
		t.Fatalf("invalid env value must keep the default, got %d", cfg.Thumbnails.MaxWidth)
	}
}

func TestMergeIncludesThumbnails(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Thumbnails.MaxWidth = 300
	src.Thumbnails.CachePath = "/var/cache/pt/thumbs.sqlite"
	src.Thumbnails.CacheMaxBytes = 1024
	mergeInto(&dst, &src)
	if dst.Thumbnails.MaxWidth != 300 || dst.Thumbnails.CachePath != "/var/cache/pt/thumbs.sqlite" || dst.Thumbnails.CacheMaxBytes != 1024 {
		t.Fatalf("thumbnail fields not merged correctly: %#v", dst.Thumbnails)
	}
}

func TestMergeIgnoresZeroValues(t *testing.T) {
	dst := Defaults()
	src := AppConfig{}
	mergeInto(&dst, &src)
	def := Defaults()
	if dst.Thumbnails.MaxWidth != def.Thumbnails.MaxWidth || dst.Logging.Level != def.Logging.Level {
		t.Fatalf("zero-value file config must keep defaults: %#v", dst)
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "Debug "
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/pt.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/pt.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	oldLevel := os.Getenv(EnvLogLevel)
	oldFile := os.Getenv(EnvLogFile)
	_ = os.Setenv(EnvLogLevel, "error")
	_ = os.Setenv(EnvLogFile, "/tmp/pt-test.log")
	t.Cleanup(func() {
		_ = os.Setenv(EnvLogLevel, oldLevel)
		_ = os.Setenv(EnvLogFile, oldFile)
	})
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.File != "/tmp/pt-test.log" {
		t.Fatalf("logging env overrides not applied: %#v", cfg.Logging)
	}
}

func TestEnvOverrideFor(t *testing.T) {
	old := os.Getenv(EnvThumbCachePath)
	_ = os.Setenv(EnvThumbCachePath, "/elsewhere/thumbs.sqlite")
	t.Cleanup(func() { _ = os.Setenv(EnvThumbCachePath, old) })
	name, ok := EnvOverrideFor("thumbnails.cache_path")
	if !ok || name != EnvThumbCachePath {
		t.Fatalf("EnvOverrideFor = %q/%v", name, ok)
	}
	if _, ok := EnvOverrideFor("thumbnails.unknown"); ok {
		t.Fatalf("unknown key must not report an override")
	}
}

func TestEffectiveCachePath(t *testing.T) {
	tc := ThumbnailConfig{CachePath: "/explicit/thumbs.sqlite"}
	p, err := tc.EffectiveCachePath()
	if err != nil || p != "/explicit/thumbs.sqlite" {
		t.Fatalf("explicit path: %q / %v", p, err)
	}
	tc.CachePath = ""
	p, err = tc.EffectiveCachePath()
	if err != nil {
		t.Skipf("no user cache dir in this environment: %v", err)
	}
	if !strings.Contains(p, "pagetailor") {
		t.Fatalf("default cache path should live under the app dir: %q", p)
	}
}
