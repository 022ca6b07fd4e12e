/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package page

import "sort"

// OrderProvider supplies an externally defined total preorder over pages.
// A nil provider means insertion order is authoritative.
//
// Precedes must be a strict weak ordering: irreflexive, transitive, and with
// transitive incomparability. Callers use it both as a sort comparator and to
// locate single-element insertion points.
type OrderProvider interface {
	Precedes(a, b ID) bool
}

// StableSort orders pages in place according to the provider, keeping the
// relative order of pages the provider considers equivalent. A nil provider
// leaves the slice untouched.
func StableSort(pages []Info, provider OrderProvider) {
	if provider == nil {
		return
	}
	sort.SliceStable(pages, func(i, j int) bool {
		return provider.Precedes(pages[i].ID, pages[j].ID)
	})
}
