/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package project reads and writes the page manifest: the ordered list of
// scanned pages a document is made of, plus the page the user last worked
// on. The manifest is human-readable JSON validated against an embedded
// schema on load.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"pagetailor/internal/page"
)

const ManifestFileName = "pages.json"

// manifestSchema validates the on-disk shape before unmarshalling, so a
// corrupt or foreign JSON file fails with a pointed message instead of a
// half-populated document.
const manifestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["version", "pages"],
  "properties": {
    "version": { "type": "integer", "minimum": 1 },
    "currentPage": { "$ref": "#/definitions/pageRef" },
    "pages": {
      "type": "array",
      "items": { "$ref": "#/definitions/pageEntry" }
    }
  },
  "definitions": {
    "pageEntry": {
      "type": "object",
      "required": ["path"],
      "properties": {
        "path": { "type": "string", "minLength": 1 },
        "pageInFile": { "type": "integer", "minimum": 0 },
        "subPage": { "enum": ["single", "left", "right"] },
        "multiPageFile": { "type": "boolean" }
      }
    },
    "pageRef": {
      "type": "object",
      "required": ["path"],
      "properties": {
        "path": { "type": "string", "minLength": 1 },
        "pageInFile": { "type": "integer", "minimum": 0 },
        "subPage": { "enum": ["single", "left", "right"] }
      }
    }
  }
}`

// ManifestVersion is the current manifest format version.
const ManifestVersion = 1

// PageEntry is one page of the document as stored on disk.
type PageEntry struct {
	Path          string `json:"path"`
	PageInFile    int    `json:"pageInFile,omitempty"`
	SubPage       string `json:"subPage,omitempty"`
	MultiPageFile bool   `json:"multiPageFile,omitempty"`
}

// PageRef identifies a page without display metadata.
type PageRef struct {
	Path       string `json:"path"`
	PageInFile int    `json:"pageInFile,omitempty"`
	SubPage    string `json:"subPage,omitempty"`
}

// Manifest is the on-disk document description.
type Manifest struct {
	Version     int         `json:"version"`
	Pages       []PageEntry `json:"pages"`
	CurrentPage *PageRef    `json:"currentPage,omitempty"`
}

const (
	subPageSingle = "single"
	subPageLeft   = "left"
	subPageRight  = "right"
)

func subPageFromString(s string) page.SubPage {
	switch s {
	case subPageLeft:
		return page.LeftPage
	case subPageRight:
		return page.RightPage
	default:
		return page.SinglePage
	}
}

func subPageToString(s page.SubPage) string {
	switch s {
	case page.LeftPage:
		return subPageLeft
	case page.RightPage:
		return subPageRight
	default:
		return subPageSingle
	}
}

// Snapshot converts the manifest into the in-memory page list the sequence
// consumes.
func (m *Manifest) Snapshot() page.Snapshot {
	snap := page.Snapshot{}
	for _, e := range m.Pages {
		snap.Pages = append(snap.Pages, page.Info{
			ID: page.ID{
				Image:   page.ImageID{Path: e.Path, Page: e.PageInFile},
				SubPage: subPageFromString(e.SubPage),
			},
			MultiPageFile: e.MultiPageFile,
		})
	}
	if m.CurrentPage != nil {
		snap.CurPage = page.ID{
			Image:   page.ImageID{Path: m.CurrentPage.Path, Page: m.CurrentPage.PageInFile},
			SubPage: subPageFromString(m.CurrentPage.SubPage),
		}
	}
	return snap
}

// FromSnapshot builds a manifest from the in-memory page list.
func FromSnapshot(snap page.Snapshot) *Manifest {
	m := &Manifest{Version: ManifestVersion}
	for _, info := range snap.Pages {
		m.Pages = append(m.Pages, PageEntry{
			Path:          info.ID.Image.Path,
			PageInFile:    info.ID.Image.Page,
			SubPage:       subPageToString(info.ID.SubPage),
			MultiPageFile: info.MultiPageFile,
		})
	}
	if !snap.CurPage.IsNil() {
		m.CurrentPage = &PageRef{
			Path:       snap.CurPage.Image.Path,
			PageInFile: snap.CurPage.Image.Page,
			SubPage:    subPageToString(snap.CurPage.SubPage),
		}
	}
	return m
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	if err := validate(data); err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	return &m, nil
}

func validate(data []byte) error {
	schemaLoader := gojsonschema.NewStringLoader(manifestSchema)
	docLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return fmt.Errorf("validate manifest: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("invalid manifest: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// Save writes the manifest with transactional semantics: temp file in the
// same directory, fsync, then rename over the target.
func Save(path string, m *Manifest) error {
	if m == nil {
		return errors.New("nil manifest")
	}
	if strings.TrimSpace(path) == "" {
		return errors.New("manifest path is required")
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp manifest: %w", werr)
	}
	// On Windows, replace by removing the destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace manifest: %w", rerr)
	}
	return nil
}

// writeFileSync writes data to a file and ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	return nil
}
