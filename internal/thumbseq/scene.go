/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package thumbseq

import (
	"unicode/utf8"

	"pagetailor/internal/page"
	"pagetailor/internal/vector"
)

// Drawable is a rendered thumbnail surface. The core only needs a bounding
// box in local coordinates; how it gets painted is the front end's business.
type Drawable interface {
	Bounds() vector.Rect
}

// Factory produces a drawable thumbnail for a page. It may return nil when
// no thumbnail is available yet; the sequence then shows a placeholder.
// pageNumHint is the item's display number, useful for progress reporting;
// it is a hint only and carries no ordering meaning.
type Factory interface {
	Get(info page.Info, pageNumHint int) Drawable
}

// PlaceholderThumb stands in for a thumbnail that has not been produced yet.
// It occupies the maximum logical thumbnail size so the layout does not jump
// when the real thumbnail arrives at a similar size.
type PlaceholderThumb struct {
	MaxSize vector.Size
}

func (p PlaceholderThumb) Bounds() vector.Rect {
	return vector.R(0, 0, p.MaxSize.W, p.MaxSize.H)
}

// Modifiers are the keyboard modifiers attached to a pointer click.
type Modifiers uint8

const (
	ModControl Modifiers = 1 << iota
	ModShift
)

// SelectionFlags qualify a selection-leader notification.
type SelectionFlags uint8

const (
	// SelectedByUser marks notifications triggered by pointer input rather
	// than programmatic selection.
	SelectedByUser SelectionFlags = 1 << iota
	// RedundantSelection marks notifications that report no real change.
	RedundantSelection
	// AvoidScrollingTo asks the view not to scroll the leader into view.
	AvoidScrollingTo
)

// DefaultSelectionFlags is the empty flag set used by programmatic changes.
const DefaultSelectionFlags SelectionFlags = 0

// Callbacks is the notification surface of the sequence. Nil members are
// skipped. All callbacks fire synchronously on the owning thread.
type Callbacks struct {
	NewSelectionLeader      func(info page.Info, sceneRect vector.Rect, flags SelectionFlags)
	PageContextMenu         func(info page.Info, screenPos vector.Pt, selected bool)
	PastLastPageContextMenu func(screenPos vector.Pt)
}

// Label layout uses flat metrics so the logical scene stays independent of
// any font engine; front ends render the real text inside the reserved box.
const (
	labelHeight    = 14
	labelCharWidth = 7
	markerWidth    = 18
	markerGap      = 5
	thumbLabelGap  = 1
)

// Composite hit/highlight padding around the content, in scene units.
const (
	boundsPadX      = 100
	boundsPadTop    = 5
	boundsPadBottom = 3
)

// labelGroup is the text row under a thumbnail: the page label plus an
// optional left/right half marker.
type labelGroup struct {
	text   string
	marker page.SubPage
	pos    vector.Pt
	size   vector.Size
}

func newLabelGroup(info page.Info) labelGroup {
	text := info.Label()
	w := float32(utf8.RuneCountInString(text)) * labelCharWidth
	if info.ID.SubPage != page.SinglePage {
		w += markerGap + markerWidth
	}
	return labelGroup{
		text:   text,
		marker: info.ID.SubPage,
		size:   vector.Size{W: w, H: labelHeight},
	}
}

// CompositeItem is the drawable handle of one sequence item: the thumbnail
// surface plus its label, positioned as one unit in the scene. It is created
// whole and replaced whole; stacked visual layers are not patched in place.
type CompositeItem struct {
	seq   *Sequence
	item  *Item
	thumb Drawable
	label labelGroup

	thumbPos vector.Pt
	pos      vector.Pt

	selected bool
	leader   bool
}

func newCompositeItem(seq *Sequence, thumb Drawable, label labelGroup) *CompositeItem {
	c := &CompositeItem{seq: seq, thumb: thumb, label: label}
	ts := thumb.Bounds().Size()
	c.thumbPos = vector.Pt{X: -0.5 * ts.W, Y: 0}
	c.label.pos = vector.Pt{
		X: c.thumbPos.X + ts.W - label.size.W,
		Y: ts.H + thumbLabelGap,
	}
	return c
}

// Bounds returns the local bounding rectangle, padded so row highlights and
// hit areas extend past the thumbnail itself.
func (c *CompositeItem) Bounds() vector.Rect {
	content := c.thumb.Bounds().Translated(c.thumbPos)
	content = content.Union(vector.Rect{
		X: c.label.pos.X, Y: c.label.pos.Y,
		W: c.label.size.W, H: c.label.size.H,
	})
	return content.Adjusted(-boundsPadX, -boundsPadTop, boundsPadX, boundsPadBottom)
}

// Pos is the item's position in scene coordinates.
func (c *CompositeItem) Pos() vector.Pt { return c.pos }

func (c *CompositeItem) setPos(x, y float32) { c.pos = vector.Pt{X: x, Y: y} }

func (c *CompositeItem) translate(dy float32) { c.pos.Y += dy }

// SceneRect is the padded bounding rectangle in scene coordinates.
func (c *CompositeItem) SceneRect() vector.Rect {
	return c.Bounds().Translated(c.pos)
}

// ThumbSceneRect is the thumbnail surface rectangle in scene coordinates,
// without the padding.
func (c *CompositeItem) ThumbSceneRect() vector.Rect {
	return c.thumb.Bounds().Translated(c.thumbPos).Translated(c.pos)
}

// LabelSceneRect is the label box in scene coordinates.
func (c *CompositeItem) LabelSceneRect() vector.Rect {
	r := vector.Rect{X: c.label.pos.X, Y: c.label.pos.Y, W: c.label.size.W, H: c.label.size.H}
	return r.Translated(c.pos)
}

// Thumb exposes the drawable for rendering.
func (c *CompositeItem) Thumb() Drawable { return c.thumb }

// LabelText is the text rendered under the thumbnail.
func (c *CompositeItem) LabelText() string { return c.label.text }

// LabelMarker is the sub-page marker shown next to the label, if any.
func (c *CompositeItem) LabelMarker() page.SubPage { return c.label.marker }

// PageInfo returns the owning item's page metadata.
func (c *CompositeItem) PageInfo() page.Info { return c.item.pageInfo }

// Selected reports the appearance state for renderers.
func (c *CompositeItem) Selected() bool { return c.selected }

// SelectionLeader reports whether the label renders in leader style.
func (c *CompositeItem) SelectionLeader() bool { return c.leader }

func (c *CompositeItem) updateAppearance(selected, leader bool) {
	c.selected = selected
	c.leader = leader
}

// updateSceneRect grows the accumulated scene bounds by this item's extent:
// horizontally only as far as the thumbnail reaches, vertically over the
// full padded bounds, matching how rows are highlighted.
func (c *CompositeItem) updateSceneRect(sr *sceneBounds) {
	r := c.ThumbSceneRect()
	b := c.SceneRect()
	sr.add(r.WithVerticalSpan(b.Top(), b.Bottom()))
}

// sceneBounds is the cumulative bounding rectangle of all items, with an
// explicit empty state so a zero-positioned first item still registers.
type sceneBounds struct {
	r     vector.Rect
	valid bool
}

func (s *sceneBounds) reset() { *s = sceneBounds{} }

func (s *sceneBounds) add(r vector.Rect) {
	if !s.valid {
		s.r = r
		s.valid = true
		return
	}
	s.r = s.r.Union(r)
}

// Scene owns the drawable canvas contents on behalf of the sequence and
// translates raw pointer input into selection and context-menu actions. It
// decides nothing about selection semantics itself.
type Scene struct {
	seq  *Sequence
	rect vector.Rect
}

// Rect is the committed scene rectangle; never empty, so views always have
// a valid canvas extent to work with.
func (sc *Scene) Rect() vector.Rect { return sc.rect }

// Len returns the number of items on the scene.
func (sc *Scene) Len() int { return sc.seq.reg.len() }

// Each visits every composite in display order, top to bottom.
func (sc *Scene) Each(fn func(*CompositeItem)) {
	for it := sc.seq.reg.ordHead; it != nil; it = it.ordNext {
		fn(it.composite)
	}
}

// ItemAt returns the composite whose padded bounds contain the scene
// position, or nil.
func (sc *Scene) ItemAt(pos vector.Pt) *CompositeItem {
	for it := sc.seq.reg.ordHead; it != nil; it = it.ordNext {
		r := it.composite.SceneRect()
		if pos.Y < r.Top() {
			break // items are stacked by ascending Y
		}
		if r.Contains(pos) {
			return it.composite
		}
	}
	return nil
}

// MousePress routes a primary-button press at the given scene position into
// the selection engine. Reports whether an item consumed the click.
func (sc *Scene) MousePress(pos vector.Pt, mods Modifiers) bool {
	c := sc.ItemAt(pos)
	if c == nil {
		return false
	}
	sc.seq.itemSelectedByUser(c.item, mods)
	return true
}

// ContextMenu routes a context-menu event. On an item it requests the page
// menu with the page identity and selection state attached; below the last
// item it requests the append/insert-at-end menu; anywhere else it is
// ignored.
func (sc *Scene) ContextMenu(scenePos, screenPos vector.Pt) {
	if c := sc.ItemAt(scenePos); c != nil {
		if sc.seq.cb.PageContextMenu != nil {
			sc.seq.cb.PageContextMenu(c.item.pageInfo, screenPos, c.item.selected)
		}
		return
	}
	if last := sc.seq.reg.ordTail; last != nil {
		if scenePos.Y <= last.composite.SceneRect().Bottom() {
			return
		}
	}
	if sc.seq.cb.PastLastPageContextMenu != nil {
		sc.seq.cb.PastLastPageContextMenu(screenPos)
	}
}
