/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package page defines the identity and metadata value types for logical
// pages of a scanned document. A physical image may carry one logical page
// (a single scan) or two (a left/right spread that was split), so page
// identity is the image reference plus a sub-page designator.
package page

import (
	"fmt"
	"path/filepath"
)

// SubPage designates which part of a source image a logical page covers.
type SubPage uint8

const (
	SinglePage SubPage = iota
	LeftPage
	RightPage
)

func (s SubPage) String() string {
	switch s {
	case SinglePage:
		return "single"
	case LeftPage:
		return "left"
	case RightPage:
		return "right"
	default:
		return fmt.Sprintf("subpage(%d)", uint8(s))
	}
}

// ImageID identifies a source image: a file path plus a zero-based page
// index for multi-page files (TIFF). The zero value is the nil image.
type ImageID struct {
	Path string
	Page int
}

// IsNil reports whether the id references no image at all.
func (id ImageID) IsNil() bool { return id.Path == "" }

// ID is the stable identity of a logical page. It is unique within a
// sequence and usable as a map key.
type ID struct {
	Image   ImageID
	SubPage SubPage
}

// IsNil reports whether the id is the zero identity.
func (id ID) IsNil() bool { return id.Image.IsNil() }

func (id ID) String() string {
	return fmt.Sprintf("%s#%d/%s", id.Image.Path, id.Image.Page, id.SubPage)
}

// Info is the immutable metadata a sequence stores per page. Copies are
// cheap; the owning project model remains authoritative.
type Info struct {
	ID            ID
	MultiPageFile bool
}

// Label returns the display label for the page: the image file name, with a
// page suffix when the source file holds more than one image.
func (in Info) Label() string {
	name := filepath.Base(in.ID.Image.Path)
	if in.MultiPageFile || in.ID.Image.Page > 0 {
		return fmt.Sprintf("%s (page %d)", name, in.ID.Image.Page+1)
	}
	return name
}

// Range is a contiguous run of selected pages in display order.
type Range struct {
	// FirstIdx is the zero-based display index of the first page of the run.
	FirstIdx int
	Pages    []ID
}

// Snapshot is an ordered view of the page sequence taken at reset time,
// along with the page currently shown in the main editor.
type Snapshot struct {
	Pages   []Info
	CurPage ID
}

// NumPages returns the number of pages in the snapshot.
func (s Snapshot) NumPages() int { return len(s.Pages) }
