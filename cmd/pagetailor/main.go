/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"pagetailor/internal/crash"
	applog "pagetailor/internal/log"
	"pagetailor/internal/page"
	"pagetailor/internal/project"
	"pagetailor/internal/thumbseq"
	"pagetailor/internal/ui"
	"pagetailor/internal/vector"
	"pagetailor/internal/version"
)

func usage() {
	fmt.Println("PageTailor — scanned page post-processing")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pagetailor version|-v|--version        Show version")
	fmt.Println("  pagetailor init <manifest>              Create an empty page manifest at <manifest>")
	fmt.Println("  pagetailor open <manifest>              Open manifest and print a page summary")
	fmt.Println("  pagetailor ui [<manifest>]              Launch desktop UI (build with -tags fyne for full UI)")
}

func main() {
	// initialize structured logging using environment defaults
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("cli")
	var manifestPath string
	defer func() { crash.Recover(manifestPath) }()

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) > 1 {
		switch args[1] {
		case "version", "--version", "-v":
			fmt.Println("PageTailor — scanned page post-processing")
			fmt.Println(version.String())
			return
		case "init":
			if len(args) < 3 {
				fmt.Println("init requires <manifest>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			manifestPath = abs
			l.Info("init manifest", slog.String("path", abs))
			if _, err := os.Stat(abs); err == nil {
				fmt.Println("Error: manifest already exists at", abs)
				os.Exit(1)
			}
			m := &project.Manifest{Version: project.ManifestVersion, Pages: []project.PageEntry{}}
			if err := project.Save(abs, m); err != nil {
				l.Error("init failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			fmt.Println("Created manifest at", abs)
			return
		case "open":
			if len(args) < 3 {
				fmt.Println("open requires <manifest>")
				usage()
				os.Exit(2)
			}
			abs, _ := filepath.Abs(args[2])
			manifestPath = abs
			l.Info("open manifest", slog.String("path", abs))
			m, err := project.Load(abs)
			if err != nil {
				l.Error("open failed", slog.Any("err", err))
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			snap := m.Snapshot()
			fmt.Printf("Opened manifest: %s\n", abs)
			fmt.Printf("Pages: %d\n", snap.NumPages())
			for i, info := range snap.Pages {
				marker := ""
				switch info.ID.SubPage {
				case page.LeftPage:
					marker = " (left)"
				case page.RightPage:
					marker = " (right)"
				}
				fmt.Printf("  %3d  %s%s\n", i+1, info.Label(), marker)
			}
			if !snap.CurPage.IsNil() {
				fmt.Println("Current page:", snap.CurPage.String())
			}

			// Lay the sequence out headlessly for a geometry summary.
			seq := thumbseq.New(vector.Size{W: 250, H: 160}, thumbseq.Callbacks{})
			seq.Reset(snap, thumbseq.ResetSelection, nil)
			r := seq.Scene().Rect()
			fmt.Printf("Scene: %.0fx%.0f\n", r.W, r.H)
			fmt.Printf("Selected: %d\n", len(seq.SelectedItems()))
			return
		case "ui":
			if len(args) >= 3 {
				abs, _ := filepath.Abs(args[2])
				manifestPath = abs
			}
			if err := ui.Run(manifestPath); err != nil {
				fmt.Println("Error:", err)
				os.Exit(1)
			}
			return
		}
	}

	usage()
}
