/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Basic 2D geometry for resolution-independent thumbnail layout.
// Float values use float32 for compactness and to align with many UI libs.

// Pt is a 2D point.
type Pt struct{ X, Y float32 }

// Add returns p shifted by d.
func (p Pt) Add(d Pt) Pt { return Pt{p.X + d.X, p.Y + d.Y} }

// Size is a width/height pair.
type Size struct{ W, H float32 }

// Rect is an axis-aligned rectangle defined by min corner and size.
type Rect struct {
	X, Y float32
	W, H float32
}

func R(x, y, w, h float32) Rect { return Rect{X: x, Y: y, W: w, H: h} }

func (r Rect) Min() Pt    { return Pt{r.X, r.Y} }
func (r Rect) Max() Pt    { return Pt{r.X + r.W, r.Y + r.H} }
func (r Rect) Size() Size { return Size{r.W, r.H} }

func (r Rect) Top() float32    { return r.Y }
func (r Rect) Bottom() float32 { return r.Y + r.H }

func (r Rect) Contains(p Pt) bool {
	return p.X >= r.X && p.Y >= r.Y && p.X <= r.X+r.W && p.Y <= r.Y+r.H
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool { return r.W <= 0 || r.H <= 0 }

// Translated returns the rectangle shifted by d.
func (r Rect) Translated(d Pt) Rect { return Rect{X: r.X + d.X, Y: r.Y + d.Y, W: r.W, H: r.H} }

// Adjusted grows the rectangle by moving the min corner by (dx1,dy1) and the
// max corner by (dx2,dy2). Negative dx1/dy1 grow the rect leftwards/upwards.
func (r Rect) Adjusted(dx1, dy1, dx2, dy2 float32) Rect {
	return Rect{X: r.X + dx1, Y: r.Y + dy1, W: r.W - dx1 + dx2, H: r.H - dy1 + dy2}
}

// WithVerticalSpan returns the rectangle with its vertical extent replaced
// while keeping the horizontal extent intact.
func (r Rect) WithVerticalSpan(top, bottom float32) Rect {
	return Rect{X: r.X, Y: top, W: r.W, H: bottom - top}
}

// Union returns the minimal rect containing both.
func (r Rect) Union(o Rect) Rect {
	minX := min(r.X, o.X)
	minY := min(r.Y, o.Y)
	maxX := max(r.X+r.W, o.X+o.W)
	maxY := max(r.Y+r.H, o.Y+o.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// UnionX widens r horizontally to cover o, leaving the vertical span alone.
func (r Rect) UnionX(o Rect) Rect {
	minX := min(r.X, o.X)
	maxX := max(r.X+r.W, o.X+o.W)
	return Rect{X: minX, Y: r.Y, W: maxX - minX, H: r.H}
}

func min(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
func max(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}
