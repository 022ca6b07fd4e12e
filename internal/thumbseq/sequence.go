/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package thumbseq maintains the ordered, selectable collection of page
// thumbnails: a multi-view item registry, an incrementally repaired vertical
// layout, and click/ctrl/shift selection semantics with a selection leader.
//
// Everything here is single-threaded by contract: all mutations run
// synchronously on the thread owning the visual surface. Asynchronous
// thumbnail producers hand their results over externally and land here as a
// plain InvalidateThumbnail call.
package thumbseq

import (
	"log/slog"
	"sort"

	applog "pagetailor/internal/log"
	"pagetailor/internal/page"
	"pagetailor/internal/vector"
)

// spacing is the fixed vertical gap between stacked items, in scene units.
const spacing = 10

// SelectionAction tells Reset what to do with the current selection.
type SelectionAction int

const (
	KeepSelection SelectionAction = iota
	ResetSelection
)

// BeforeOrAfter positions an inserted page relative to its reference image.
type BeforeOrAfter int

const (
	Before BeforeOrAfter = iota
	After
)

// Sequence is the thumbnail collection core. Create it with New; the zero
// value is not usable.
type Sequence struct {
	maxThumbSize vector.Size
	reg          *registry
	leader       *Item
	factory      Factory
	order        page.OrderProvider
	scene        *Scene
	sceneRect    sceneBounds
	cb           Callbacks
	log          *slog.Logger
}

// New creates an empty sequence. maxThumbSize bounds the logical size of
// thumbnails and sizes the placeholder shown while a real thumbnail is
// pending.
func New(maxThumbSize vector.Size, cb Callbacks) *Sequence {
	s := &Sequence{
		maxThumbSize: maxThumbSize,
		reg:          newRegistry(),
		cb:           cb,
		log:          applog.WithComponent("thumbseq"),
	}
	s.scene = &Scene{seq: s}
	s.commitSceneRect()
	return s
}

// SetThumbnailFactory installs the thumbnail producer. A nil factory means
// every item shows the placeholder.
func (s *Sequence) SetThumbnailFactory(f Factory) { s.factory = f }

// Scene returns the drawable canvas adapter for attaching to a view.
func (s *Sequence) Scene() *Scene { return s.scene }

// Reset replaces the whole sequence with the given snapshot. KeepSelection
// carries over the selection and leader for pages that survive; the leader
// falls back to the snapshot's current page when nothing survives.
func (s *Sequence) Reset(pages page.Snapshot, action SelectionAction, provider page.OrderProvider) {
	s.order = provider

	selected := make(map[page.ID]struct{})
	var leaderID page.ID
	if action == KeepSelection {
		selected = s.SelectedItems()
		if s.leader != nil {
			leaderID = s.leader.pageID()
		}
	}

	s.clear()

	if pages.NumPages() == 0 {
		return
	}

	sorted := make([]page.Info, len(pages.Pages))
	copy(sorted, pages.Pages)
	page.StableSort(sorted, s.order)

	var someSelected *Item
	var offset float32

	for i, info := range sorted {
		composite := s.getCompositeItem(nil, info, i)
		composite.setPos(0, offset)
		composite.updateSceneRect(&s.sceneRect)
		offset += composite.Bounds().H + spacing

		item := &Item{pageInfo: info, pageNum: i, composite: composite}
		composite.item = item
		if !s.reg.insertBefore(item, nil) {
			s.log.Error("duplicate page id in snapshot", slog.String("page", info.ID.String()))
			continue
		}

		if _, ok := selected[info.ID]; ok {
			item.setSelected(true)
			s.reg.moveToSelected(item)
			someSelected = item
		}
		if info.ID == leaderID {
			s.leader = item
		}
	}

	s.commitSceneRect()

	if s.leader == nil {
		if someSelected != nil {
			s.leader = someSelected
		} else if it := s.reg.lookup(pages.CurPage); it != nil {
			s.leader = it
			s.reg.moveToSelected(it)
		}
	}

	if s.leader != nil {
		s.leader.setSelectionLeader(true)
		s.emitNewSelectionLeader(s.leader, DefaultSelectionFlags)
	}
}

// InvalidateThumbnail replaces the page's drawable with a freshly produced
// one and repairs the layout incrementally: the item is re-slotted via the
// order provider starting from its old position, and only the affected
// sub-range of items is repositioned. Unknown ids are a silent no-op, since
// producers may race with page removal.
func (s *Sequence) InvalidateThumbnail(id page.ID) {
	it := s.reg.lookup(id)
	if it == nil {
		s.log.Debug("invalidate for absent page", slog.String("page", id.String()))
		return
	}

	newComposite := s.getCompositeItem(it, it.pageInfo, it.pageNum)
	oldComposite := it.composite
	oldSize := oldComposite.Bounds().Size()
	newSize := newComposite.Bounds().Size()
	oldPos := oldComposite.Pos()

	newComposite.updateAppearance(it.selected, it.leader)
	it.composite = newComposite

	// Take the item out of the order view so the position search runs over
	// the others only, then re-slot it. afterOld marks where it used to sit.
	afterOld := it.ordNext
	s.reg.unlinkOrder(it)
	var dist int
	afterNew := s.itemInsertPosition(id, afterOld, &dist)
	s.reg.linkOrderBefore(it, afterNew)

	// [ordIt, ordEnd) covers every item between the old and new positions,
	// with the new position included.
	var ordIt, ordEnd *Item
	if dist <= 0 {
		ordIt = it
		ordEnd = afterOld
	} else {
		ordIt = afterOld
		ordEnd = afterNew
	}

	var offset float32
	if prev := ordIt.ordPrev; prev != nil {
		offset = prev.composite.Pos().Y + prev.composite.Bounds().H + spacing
	}
	for n := ordIt; n != ordEnd; n = n.ordNext {
		n.composite.setPos(0, offset)
		offset += n.composite.Bounds().H + spacing
	}

	// A size change shifts everything below both positions as well.
	if oldSize != newSize {
		for n := ordEnd; n != nil; n = n.ordNext {
			n.composite.setPos(0, offset)
			offset += n.composite.Bounds().H + spacing
		}
	}

	// The vertical edges of the cumulative rect follow from the first and
	// last item alone; the horizontal extent only needs the changed item.
	s.recomputeVerticalEdges()
	it.composite.updateSceneRect(&s.sceneRect)
	s.commitSceneRect()

	if s.leader == it {
		if oldSize != newSize || oldPos != it.composite.Pos() {
			s.emitNewSelectionLeader(it, RedundantSelection)
		}
	}
}

// InvalidateAllThumbnails rebuilds every drawable and the full layout in one
// pass, re-sorting the order view first when an order provider is active.
func (s *Sequence) InvalidateAllThumbnails() {
	s.sceneRect.reset()

	if s.order != nil {
		s.sortOrderView()
	}

	var offset float32
	for it := s.reg.ordHead; it != nil; it = it.ordNext {
		composite := s.getCompositeItem(it, it.pageInfo, it.pageNum)
		composite.setPos(0, offset)
		composite.updateSceneRect(&s.sceneRect)
		composite.updateAppearance(it.selected, it.leader)
		offset += composite.Bounds().H + spacing
		it.composite = composite
	}

	s.commitSceneRect()
}

// Insert adds a new page before or after the pages of the reference image.
// With After and no order provider, insertion lands past both halves of a
// split reference. An active order provider overrides the position. Insert
// with an unresolvable reference is a silent no-op.
func (s *Sequence) Insert(info page.Info, beforeOrAfter BeforeOrAfter, image page.ImageID) {
	var ordIt *Item // nil means insert at the end

	if beforeOrAfter == Before && image.IsNil() {
		ordIt = nil
	} else {
		ref := s.reg.lookupImage(image)
		if ref == nil {
			s.log.Debug("insert with unresolved reference image", slog.String("image", image.Path))
			return
		}
		ordIt = ref
		if beforeOrAfter == After {
			ordIt = ordIt.ordNext
			if s.order == nil {
				// Advance past not only the reference page but also its
				// other half, if it follows.
				for ordIt != nil && ordIt.pageInfo.ID.Image == image {
					ordIt = ordIt.ordNext
				}
			}
		}
	}

	// With no order provider this leaves ordIt untouched.
	ordIt = s.itemInsertPosition(info.ID, ordIt, nil)

	pageNum := 0
	var offset float32
	if !s.reg.empty() {
		// Numbering is a display hint only; continuing past the last item
		// is the best available policy even under a custom order.
		pageNum = s.reg.ordTail.pageNum + 1
		if ordIt != nil {
			offset = ordIt.composite.Pos().Y
		} else {
			last := s.reg.ordTail
			offset = last.composite.Pos().Y + last.composite.Bounds().H + spacing
		}
	}

	composite := s.getCompositeItem(nil, info, pageNum)
	composite.setPos(0, offset)
	composite.updateSceneRect(&s.sceneRect)

	delta := composite.Bounds().H + spacing

	item := &Item{pageInfo: info, pageNum: pageNum, composite: composite}
	composite.item = item
	if !s.reg.insertBefore(item, ordIt) {
		s.log.Debug("insert of already present page", slog.String("page", info.ID.String()))
		return
	}

	for n := ordIt; n != nil; n = n.ordNext {
		n.composite.translate(delta)
		n.composite.updateSceneRect(&s.sceneRect)
	}

	s.commitSceneRect()
}

// RemovePages deletes every present page of the given set in one
// left-to-right pass, shifting survivors up by the cumulative height of what
// was removed before them. When one half of a split page survives its
// counterpart, its identity converts to a single page afterwards; the
// conversion runs post-pass so both halves can be removed together without
// colliding identities mid-pass.
func (s *Sequence) RemovePages(toRemove map[page.ID]struct{}) {
	s.sceneRect.reset()

	var singularize []page.ImageID
	var posDelta float32

	it := s.reg.ordHead
	for it != nil {
		next := it.ordNext
		if _, remove := toRemove[it.pageID()]; !remove {
			if posDelta != 0 {
				it.composite.translate(posDelta)
			}
			it.composite.updateSceneRect(&s.sceneRect)
		} else {
			if s.leader == it {
				s.leader = nil
			}
			switch it.pageID().SubPage {
			case page.LeftPage, page.RightPage:
				singularize = append(singularize, it.pageID().Image)
			}
			posDelta -= it.composite.Bounds().H + spacing
			s.reg.erase(it)
		}
		it = next
	}

	for _, image := range singularize {
		for _, sub := range [...]page.SubPage{page.LeftPage, page.RightPage} {
			if half := s.reg.lookup(page.ID{Image: image, SubPage: sub}); half != nil {
				s.reg.changeID(half, page.ID{Image: image, SubPage: page.SinglePage})
			}
		}
	}

	s.commitSceneRect()
}

// SelectedItems returns the set of selected page ids.
func (s *Sequence) SelectedItems() map[page.ID]struct{} {
	selection := make(map[page.ID]struct{})
	for it := s.reg.selHead; it != nil && it.selected; it = it.selNext {
		selection[it.pageID()] = struct{}{}
	}
	return selection
}

// SelectedRanges returns the selection as contiguous display-order runs.
func (s *Sequence) SelectedRanges() []page.Range {
	var ranges []page.Range

	it := s.reg.ordHead
	idx := 0
	for {
		for ; it != nil && !it.selected; it = it.ordNext {
			idx++
		}
		if it == nil {
			break
		}
		r := page.Range{FirstIdx: idx}
		for ; it != nil && it.selected; it = it.ordNext {
			r.Pages = append(r.Pages, it.pageID())
			idx++
		}
		ranges = append(ranges, r)
	}
	return ranges
}

// SelectionLeaderRect returns the leader's scene rectangle. ok is false when
// no leader exists.
func (s *Sequence) SelectionLeaderRect() (rect vector.Rect, ok bool) {
	if s.leader == nil {
		return vector.Rect{}, false
	}
	return s.leader.composite.SceneRect(), true
}

// itemInsertPosition finds where a page belongs in the order view according
// to the order provider. The search starts at hint (nil meaning the end) and
// scans backward while the page must precede its neighbor, then forward
// while it must follow; when the rest of the order is consistent this is a
// single pass. distOut, if non-nil, receives the signed element distance
// from hint to the result. Without a provider the hint is returned as is.
func (s *Sequence) itemInsertPosition(id page.ID, hint *Item, distOut *int) *Item {
	if s.order == nil {
		if distOut != nil {
			*distOut = 0
		}
		return hint
	}

	ins := hint
	dist := 0

	if ins != s.reg.ordHead {
		if ins == nil {
			ins = s.reg.ordTail
			dist--
		}
		for ins != nil && ins != s.reg.ordHead {
			if s.order.Precedes(id, ins.pageID()) {
				ins = ins.ordPrev
				dist--
			} else {
				break
			}
		}
	}

	for ins != nil {
		if s.order.Precedes(id, ins.pageID()) {
			break
		}
		ins = ins.ordNext
		dist++
	}

	if distOut != nil {
		*distOut = dist
	}
	return ins
}

// sortOrderView stable-sorts the order view by the order provider.
func (s *Sequence) sortOrderView() {
	items := make([]*Item, 0, s.reg.len())
	for it := s.reg.ordHead; it != nil; it = it.ordNext {
		items = append(items, it)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return s.order.Precedes(items[i].pageID(), items[j].pageID())
	})
	s.reg.ordHead, s.reg.ordTail = nil, nil
	for _, it := range items {
		it.ordPrev, it.ordNext = nil, nil
		s.reg.linkOrderBefore(it, nil)
	}
}

func (s *Sequence) getCompositeItem(item *Item, info page.Info, pageNum int) *CompositeItem {
	var thumb Drawable
	if s.factory != nil {
		thumb = s.factory.Get(info, pageNum)
	}
	if thumb == nil {
		thumb = PlaceholderThumb{MaxSize: s.maxThumbSize}
	}
	composite := newCompositeItem(s, thumb, newLabelGroup(info))
	composite.item = item
	return composite
}

// recomputeVerticalEdges re-derives the top and bottom of the cumulative
// scene rect from the first and last item, keeping the horizontal extent.
func (s *Sequence) recomputeVerticalEdges() {
	if !s.sceneRect.valid || s.reg.empty() {
		return
	}
	var front, back sceneBounds
	s.reg.ordHead.composite.updateSceneRect(&front)
	s.reg.ordTail.composite.updateSceneRect(&back)

	r := s.sceneRect.r.WithVerticalSpan(front.r.Top(), back.r.Bottom())
	s.sceneRect.r = r.UnionX(front.r).UnionX(back.r)
}

func (s *Sequence) clear() {
	s.leader = nil
	s.reg.clear()
	s.sceneRect.reset()
	s.commitSceneRect()
}

func (s *Sequence) commitSceneRect() {
	if !s.sceneRect.valid {
		s.scene.rect = vector.R(0, 0, 1, 1)
		return
	}
	s.scene.rect = s.sceneRect.r
}

func (s *Sequence) emitNewSelectionLeader(it *Item, flags SelectionFlags) {
	if s.cb.NewSelectionLeader == nil {
		return
	}
	s.cb.NewSelectionLeader(it.pageInfo, it.composite.SceneRect(), flags)
}
