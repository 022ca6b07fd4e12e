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
	"log/slog"

	"pagetailor/internal/page"
)

// SetSelection makes the page the sole selection and the leader, as used by
// programmatic page navigation. Selecting an absent page is a silent no-op.
// A second call for the current leader re-notifies with RedundantSelection.
func (s *Sequence) SetSelection(id page.ID) {
	it := s.reg.lookup(id)
	if it == nil {
		s.log.Debug("select of absent page", slog.String("page", id.String()))
		return
	}

	wasLeader := s.leader == it

	// Deselect everything but the requested item. The selected block sits at
	// the front of the partition view, so stop at the first unselected item.
	sel := s.reg.selHead
	for sel != nil && sel.selected {
		next := sel.selNext
		if sel != it {
			sel.setSelected(false)
			s.reg.moveToUnselected(sel)
			if s.leader == sel {
				s.leader = nil
			}
		}
		sel = next
	}

	if !wasLeader {
		s.leader = it
		s.leader.setSelectionLeader(true)
		s.reg.moveToSelected(s.leader)
	}

	flags := DefaultSelectionFlags
	if wasLeader {
		flags |= RedundantSelection
	}
	s.emitNewSelectionLeader(it, flags)
}

// ItemClicked is the entry point for pointer selection coming from the view
// adapter. Clicking an absent page is a silent no-op.
func (s *Sequence) ItemClicked(id page.ID, mods Modifiers) {
	it := s.reg.lookup(id)
	if it == nil {
		s.log.Debug("click on absent page", slog.String("page", id.String()))
		return
	}
	s.itemSelectedByUser(it, mods)
}

func (s *Sequence) itemSelectedByUser(it *Item, mods Modifiers) {
	switch {
	case mods&ModControl != 0:
		s.selectItemWithControl(it)
	case mods&ModShift != 0:
		s.selectItemWithShift(it)
	default:
		s.selectItemNoModifiers(it)
	}
}

// MultipleItemsSelected reports whether at least two items are selected,
// checked against the first two entries of the selection-partition view.
func (s *Sequence) MultipleItemsSelected() bool {
	it := s.reg.selHead
	for i := 0; i < 2; i++ {
		if it == nil || !it.selected {
			return false
		}
		it = it.selNext
	}
	return true
}

func (s *Sequence) selectItemWithControl(it *Item) {
	flags := SelectedByUser

	if !it.selected {
		// Toggling on: the clicked item becomes the leader unconditionally.
		if s.leader != nil {
			s.leader.setSelectionLeader(false)
		}
		s.leader = it
		s.leader.setSelectionLeader(true)
		s.reg.moveToSelected(s.leader)
		s.emitNewSelectionLeader(s.leader, flags)
		return
	}

	if !s.MultipleItemsSelected() {
		// Ctrl-click on the only selected item keeps it selected; an empty
		// selection must not be reachable this way.
		flags |= RedundantSelection
		if s.leader == nil {
			// A selection without a leader is a broken invariant; repair it
			// with the clicked item instead of crashing.
			s.log.Error("selection without leader", slog.String("page", it.pageID().String()))
			s.leader = it
			s.leader.setSelectionLeader(true)
		}
		s.emitNewSelectionLeader(s.leader, flags)
		return
	}

	// Toggling off one of several selected items.
	it.setSelected(false)
	s.reg.moveToUnselected(it)

	if s.leader != it {
		return
	}

	// The leader was deselected; succession goes to the nearest remaining
	// selected item by display-order distance, the backward side checked
	// first at equal distance.
	s.leader = nil
	flags |= AvoidScrollingTo
	back, fwd := it, it
	for s.leader == nil {
		moved := false
		if back.ordPrev != nil {
			back = back.ordPrev
			moved = true
			if back.selected {
				s.leader = back
				break
			}
		}
		if fwd.ordNext != nil {
			fwd = fwd.ordNext
			moved = true
			if fwd.selected {
				s.leader = fwd
				break
			}
		}
		if !moved {
			break
		}
	}
	if s.leader == nil {
		// Unreachable while the partition invariant holds: multiple items
		// were selected a moment ago. Fail closed with no leader.
		s.log.Error("no leader successor among selected items",
			slog.String("page", it.pageID().String()))
		return
	}

	s.leader.setSelectionLeader(true)
	// Already in the selected block; no relocation needed.

	s.emitNewSelectionLeader(s.leader, flags)
}

func (s *Sequence) selectItemWithShift(it *Item) {
	if s.leader == nil {
		s.selectItemNoModifiers(it)
		return
	}

	flags := SelectedByUser
	if s.leader == it {
		flags |= RedundantSelection
	}

	first, last := s.leader, it
	if first == last {
		// One-element range, already selected.
		return
	}

	// Neither endpoint knows whether it precedes the other; find out by
	// scanning outward from the leader in both directions at once.
	back, fwd := first, first
	for {
		moved := false
		if back.ordPrev != nil {
			back = back.ordPrev
			moved = true
			if back == last {
				first, last = last, first
				break
			}
		}
		if fwd.ordNext != nil {
			fwd = fwd.ordNext
			moved = true
			if fwd == last {
				break
			}
		}
		if !moved {
			// The clicked item is not on the order view; registry views
			// disagree, which is a programming error. Fail closed.
			s.log.Error("shift-select endpoint not reachable in display order",
				slog.String("page", it.pageID().String()))
			return
		}
	}

	// Select the closed interval [first, last].
	for n := first; ; n = n.ordNext {
		n.setSelected(true)
		s.reg.moveToSelected(n)
		if n == last {
			break
		}
	}

	// The clicked endpoint takes over leadership.
	s.leader.setSelectionLeader(false)
	s.leader = it
	s.leader.setSelectionLeader(true)

	s.emitNewSelectionLeader(it, flags)
}

func (s *Sequence) selectItemNoModifiers(it *Item) {
	flags := SelectedByUser
	if s.leader == it {
		flags |= RedundantSelection
	}

	s.clearSelection()

	s.leader = it
	s.leader.setSelectionLeader(true)
	s.reg.moveToSelected(s.leader)

	s.emitNewSelectionLeader(it, flags)
}

func (s *Sequence) clearSelection() {
	s.leader = nil
	for it := s.reg.selHead; it != nil && it.selected; it = it.selNext {
		it.setSelected(false)
	}
}
