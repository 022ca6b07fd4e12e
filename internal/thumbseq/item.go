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

import "pagetailor/internal/page"

// Item is the per-page record of the sequence. One Item exists per distinct
// page identity; its address stays stable across reorderings, so callers may
// hold *Item across registry mutations.
//
// The display-order view and the selected-then-unselected view are intrusive
// doubly-linked lists threaded through the Item itself. Together with the
// by-identity map in registry they form three permutations of the same set,
// updated atomically inside each registry mutation.
type Item struct {
	pageInfo  page.Info
	pageNum   int // display hint only, never used for ordering
	composite *CompositeItem

	selected bool
	leader   bool

	ordPrev, ordNext *Item
	selPrev, selNext *Item
}

func (it *Item) pageID() page.ID { return it.pageInfo.ID }

// PageInfo returns the stored page metadata.
func (it *Item) PageInfo() page.Info { return it.pageInfo }

// Selected reports whether the item is part of the current selection.
func (it *Item) Selected() bool { return it.selected }

// SelectionLeader reports whether the item is the selection leader.
// leader implies selected at all times.
func (it *Item) SelectionLeader() bool { return it.leader }

// setSelected updates the selection flag. Deselecting also revokes
// leadership, since a leader must be selected.
func (it *Item) setSelected(selected bool) {
	wasSelected := it.selected
	wasLeader := it.leader
	it.selected = selected
	it.leader = it.leader && selected

	if wasSelected != it.selected || wasLeader != it.leader {
		it.composite.updateAppearance(it.selected, it.leader)
	}
}

// setSelectionLeader updates leadership. Granting leadership also selects
// the item.
func (it *Item) setSelectionLeader(leader bool) {
	wasSelected := it.selected
	wasLeader := it.leader
	it.selected = it.selected || leader
	it.leader = leader

	if wasSelected != it.selected || wasLeader != it.leader {
		it.composite.updateAppearance(it.selected, it.leader)
	}
}

// registry is the multi-view item store: a by-identity map plus the two
// intrusive list views. Every mutation keeps all three views in agreement on
// membership; no partial states are observable between operations.
type registry struct {
	byID             map[page.ID]*Item
	ordHead, ordTail *Item
	selHead, selTail *Item
}

func newRegistry() *registry {
	return &registry{byID: make(map[page.ID]*Item)}
}

func (r *registry) len() int    { return len(r.byID) }
func (r *registry) empty() bool { return len(r.byID) == 0 }

func (r *registry) lookup(id page.ID) *Item { return r.byID[id] }

// lookupImage finds the identity-least item referencing the given image,
// regardless of its sub-page designator.
func (r *registry) lookupImage(image page.ImageID) *Item {
	for _, sub := range [...]page.SubPage{page.SinglePage, page.LeftPage, page.RightPage} {
		if it := r.byID[page.ID{Image: image, SubPage: sub}]; it != nil {
			return it
		}
	}
	return nil
}

// insertBefore adds the item to all three views: into the order view just
// before the given item (nil appends at the end), at the unselected end of
// the selection view, and into the identity map. It refuses duplicates and
// reports whether the item was inserted.
func (r *registry) insertBefore(it, before *Item) bool {
	if _, dup := r.byID[it.pageID()]; dup {
		return false
	}
	r.byID[it.pageID()] = it
	r.linkOrderBefore(it, before)
	r.pushBackSel(it)
	return true
}

// erase removes the item from all three views.
func (r *registry) erase(it *Item) {
	delete(r.byID, it.pageID())
	r.unlinkOrder(it)
	r.unlinkSel(it)
}

// changeID re-keys the item under a new page identity in place, leaving both
// list positions untouched. Reports false without mutating if the new
// identity is already taken by another item.
func (r *registry) changeID(it *Item, newID page.ID) bool {
	if newID == it.pageID() {
		return true
	}
	if _, taken := r.byID[newID]; taken {
		return false
	}
	delete(r.byID, it.pageID())
	it.pageInfo.ID = newID
	r.byID[newID] = it
	return true
}

func (r *registry) clear() {
	r.byID = make(map[page.ID]*Item)
	r.ordHead, r.ordTail = nil, nil
	r.selHead, r.selTail = nil, nil
}

// linkOrderBefore inserts an unlinked item into the order view before the
// given neighbor (nil appends at the tail).
func (r *registry) linkOrderBefore(it, before *Item) {
	if before == nil {
		it.ordPrev = r.ordTail
		it.ordNext = nil
		if r.ordTail != nil {
			r.ordTail.ordNext = it
		} else {
			r.ordHead = it
		}
		r.ordTail = it
		return
	}
	it.ordNext = before
	it.ordPrev = before.ordPrev
	if before.ordPrev != nil {
		before.ordPrev.ordNext = it
	} else {
		r.ordHead = it
	}
	before.ordPrev = it
}

func (r *registry) unlinkOrder(it *Item) {
	if it.ordPrev != nil {
		it.ordPrev.ordNext = it.ordNext
	} else {
		r.ordHead = it.ordNext
	}
	if it.ordNext != nil {
		it.ordNext.ordPrev = it.ordPrev
	} else {
		r.ordTail = it.ordPrev
	}
	it.ordPrev, it.ordNext = nil, nil
}

func (r *registry) unlinkSel(it *Item) {
	if it.selPrev != nil {
		it.selPrev.selNext = it.selNext
	} else {
		r.selHead = it.selNext
	}
	if it.selNext != nil {
		it.selNext.selPrev = it.selPrev
	} else {
		r.selTail = it.selPrev
	}
	it.selPrev, it.selNext = nil, nil
}

func (r *registry) pushFrontSel(it *Item) {
	it.selNext = r.selHead
	it.selPrev = nil
	if r.selHead != nil {
		r.selHead.selPrev = it
	} else {
		r.selTail = it
	}
	r.selHead = it
}

func (r *registry) pushBackSel(it *Item) {
	it.selPrev = r.selTail
	it.selNext = nil
	if r.selTail != nil {
		r.selTail.selNext = it
	} else {
		r.selHead = it
	}
	r.selTail = it
}

// moveToSelected relocates the item to the selected block at the front of
// the selection-partition view.
func (r *registry) moveToSelected(it *Item) {
	if r.selHead == it {
		return
	}
	r.unlinkSel(it)
	r.pushFrontSel(it)
}

// moveToUnselected relocates the item to the unselected block at the back of
// the selection-partition view.
func (r *registry) moveToUnselected(it *Item) {
	if r.selTail == it {
		return
	}
	r.unlinkSel(it)
	r.pushBackSel(it)
}
