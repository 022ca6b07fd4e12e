//go:build fyne

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// These tests validate the Fyne-based UI components. They are gated behind the
// "fyne" build tag so CI (which is headless) does not need Fyne or a display.
// To run locally:
//
//	go test -tags fyne ./internal/ui
//
// Ensure you have the Fyne dependencies installed and a working OS driver.
package ui

import (
	"fmt"
	"testing"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	fynetest "fyne.io/fyne/v2/test"

	"pagetailor/internal/page"
	"pagetailor/internal/thumbseq"
	"pagetailor/internal/vector"
)

func stripWithPages(n int) (*ThumbStrip, *thumbseq.Sequence) {
	seq := thumbseq.New(vector.Size{W: 160, H: 160}, thumbseq.Callbacks{})
	snap := page.Snapshot{}
	for i := 0; i < n; i++ {
		snap.Pages = append(snap.Pages, page.Info{
			ID: page.ID{Image: page.ImageID{Path: fmt.Sprintf("/scans/p%03d.png", i)}},
		})
	}
	seq.Reset(snap, thumbseq.ResetSelection, nil)
	return NewThumbStrip(seq), seq
}

func TestThumbStrip_MinSizeTracksScene(t *testing.T) {
	strip, seq := stripWithPages(4)
	r := seq.Scene().Rect()
	sz := strip.MinSize()
	if sz.Width != r.W || sz.Height != r.H {
		t.Fatalf("MinSize %v does not match scene rect %v", sz, r)
	}
}

func TestThumbStrip_SceneToWidgetMapsOrigin(t *testing.T) {
	strip, seq := stripWithPages(2)
	r := seq.Scene().Rect()
	pos, size := strip.SceneToWidget(r)
	if pos.X != 0 || pos.Y != 0 {
		t.Fatalf("scene rect origin should map to widget origin, got %v", pos)
	}
	if size.Width != r.W || size.Height != r.H {
		t.Fatalf("size changed in mapping: %v vs %v", size, r)
	}
}

func TestThumbStrip_RendererCoversAllPages(t *testing.T) {
	strip, seq := stripWithPages(3)
	rnd := strip.CreateRenderer()
	// One background plus at least a thumb and a label per page.
	want := 1 + 2*seq.Scene().Len()
	if got := len(rnd.Objects()); got < want {
		t.Fatalf("renderer has %d objects, want at least %d", got, want)
	}
}

func TestThumbStrip_MouseDownSelects(t *testing.T) {
	// Refresh after a click needs a current app with a driver.
	_ = fynetest.NewApp()
	strip, seq := stripWithPages(3)

	var first *thumbseq.CompositeItem
	seq.Scene().Each(func(c *thumbseq.CompositeItem) {
		if first == nil {
			first = c
		}
	})
	if first == nil {
		t.Fatal("no composite items")
	}

	sr := first.SceneRect()
	pos, size := strip.SceneToWidget(sr)
	center := fyne.NewPos(pos.X+size.Width/2, pos.Y+size.Height/2)

	strip.MouseDown(&desktop.MouseEvent{
		PointEvent: fyne.PointEvent{Position: center},
		Button:     desktop.MouseButtonPrimary,
	})

	sel := seq.SelectedItems()
	if len(sel) != 1 {
		t.Fatalf("expected single selection, got %d", len(sel))
	}
	if _, ok := sel[first.PageInfo().ID]; !ok {
		t.Fatalf("selected set %v misses clicked page %v", sel, first.PageInfo().ID)
	}
}
