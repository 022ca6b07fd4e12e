//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"pagetailor/internal/config"
	"pagetailor/internal/crash"
	applog "pagetailor/internal/log"
	"pagetailor/internal/page"
	"pagetailor/internal/project"
	"pagetailor/internal/telemetry"
	"pagetailor/internal/thumb"
	"pagetailor/internal/thumbcache"
	"pagetailor/internal/thumbseq"
	"pagetailor/internal/vector"
)

// Strip colors. Selection follows the row, not just the thumbnail.
var (
	stripBackground = color.RGBA{R: 60, G: 60, B: 64, A: 255}
	rowSelected     = color.RGBA{R: 70, G: 100, B: 140, A: 255}
	rowLeader       = color.RGBA{R: 90, G: 130, B: 180, A: 255}
	thumbBorder     = color.RGBA{R: 20, G: 20, B: 20, A: 255}
	placeholderFill = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	labelColor      = color.RGBA{R: 230, G: 230, B: 230, A: 255}
)

// ThumbStrip renders the thumbnail sequence's scene and feeds pointer input
// back into it. Scene coordinates are shifted so the scene rectangle's origin
// maps to the widget origin.
type ThumbStrip struct {
	widget.BaseWidget
	seq *thumbseq.Sequence

	// OnMutated is invoked after any click that may have changed selection,
	// so the surrounding chrome can refresh.
	OnMutated func()
}

func NewThumbStrip(seq *thumbseq.Sequence) *ThumbStrip {
	ts := &ThumbStrip{seq: seq}
	ts.ExtendBaseWidget(ts)
	return ts
}

func (ts *ThumbStrip) sceneOrigin() vector.Pt {
	r := ts.seq.Scene().Rect()
	return vector.Pt{X: r.X, Y: r.Y}
}

func (ts *ThumbStrip) toScene(pos fyne.Position) vector.Pt {
	o := ts.sceneOrigin()
	return vector.Pt{X: float32(pos.X) + o.X, Y: float32(pos.Y) + o.Y}
}

// SceneToWidget maps a scene rectangle into widget coordinates.
func (ts *ThumbStrip) SceneToWidget(r vector.Rect) (fyne.Position, fyne.Size) {
	o := ts.sceneOrigin()
	return fyne.NewPos(r.X-o.X, r.Y-o.Y), fyne.NewSize(r.W, r.H)
}

func (ts *ThumbStrip) MinSize() fyne.Size {
	r := ts.seq.Scene().Rect()
	return fyne.NewSize(r.W, r.H)
}

// MouseDown routes presses with their keyboard modifiers into the selection
// engine. Secondary presses open context menus via the sequence callbacks.
func (ts *ThumbStrip) MouseDown(ev *desktop.MouseEvent) {
	scenePos := ts.toScene(ev.Position)
	switch ev.Button {
	case desktop.MouseButtonPrimary:
		var mods thumbseq.Modifiers
		if ev.Modifier&fyne.KeyModifierControl != 0 {
			mods |= thumbseq.ModControl
		}
		if ev.Modifier&fyne.KeyModifierShift != 0 {
			mods |= thumbseq.ModShift
		}
		if ts.seq.Scene().MousePress(scenePos, mods) {
			ts.Refresh()
			if ts.OnMutated != nil {
				ts.OnMutated()
			}
		}
	case desktop.MouseButtonSecondary:
		screen := vector.Pt{X: float32(ev.AbsolutePosition.X), Y: float32(ev.AbsolutePosition.Y)}
		ts.seq.Scene().ContextMenu(scenePos, screen)
	}
}

func (ts *ThumbStrip) MouseUp(*desktop.MouseEvent) {}

func (ts *ThumbStrip) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(stripBackground)
	r := &thumbStripRenderer{strip: ts, bg: bg}
	r.rebuild()
	return r
}

type thumbStripRenderer struct {
	strip   *ThumbStrip
	bg      *canvas.Rectangle
	objects []fyne.CanvasObject
}

// rebuild regenerates the object list from the scene. The strip has at most
// a few hundred items; regenerating on refresh keeps the mapping trivial.
func (r *thumbStripRenderer) rebuild() {
	objs := []fyne.CanvasObject{r.bg}
	r.strip.seq.Scene().Each(func(c *thumbseq.CompositeItem) {
		if c.Selected() {
			row := canvas.NewRectangle(rowSelected)
			if c.SelectionLeader() {
				row.FillColor = rowLeader
			}
			pos, size := r.strip.SceneToWidget(c.SceneRect())
			row.Move(pos)
			row.Resize(size)
			objs = append(objs, row)
		}

		tpos, tsize := r.strip.SceneToWidget(c.ThumbSceneRect())
		if d, ok := c.Thumb().(*thumb.ImageDrawable); ok {
			img := canvas.NewImageFromImage(d.Image())
			img.FillMode = canvas.ImageFillContain
			img.Move(tpos)
			img.Resize(tsize)
			objs = append(objs, img)
		} else {
			ph := canvas.NewRectangle(placeholderFill)
			ph.StrokeColor = thumbBorder
			ph.StrokeWidth = 1
			ph.Move(tpos)
			ph.Resize(tsize)
			objs = append(objs, ph)
		}

		text := c.LabelText()
		switch c.LabelMarker() {
		case page.LeftPage:
			text += "  ◧" // left-half square
		case page.RightPage:
			text += "  ◨" // right-half square
		}
		lbl := canvas.NewText(text, labelColor)
		lbl.TextSize = 12
		lbl.TextStyle = fyne.TextStyle{Bold: c.SelectionLeader()}
		lpos, lsize := r.strip.SceneToWidget(c.LabelSceneRect())
		lbl.Move(lpos)
		lbl.Resize(lsize)
		objs = append(objs, lbl)
	})
	r.objects = objs
}

func (r *thumbStripRenderer) Layout(size fyne.Size) {
	r.bg.Move(fyne.NewPos(0, 0))
	r.bg.Resize(size)
}

func (r *thumbStripRenderer) MinSize() fyne.Size           { return r.strip.MinSize() }
func (r *thumbStripRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *thumbStripRenderer) Destroy()                     {}

func (r *thumbStripRenderer) Refresh() {
	r.rebuild()
	r.Layout(r.strip.Size())
	canvas.Refresh(r.strip)
}

// Run starts the Fyne-based desktop UI with the thumbnail strip.
func Run(manifestPath string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	defer func() { crash.Recover(manifestPath) }()
	telemetry.InitDefault()

	cfg, err := config.Load()
	if err != nil {
		l.Warn("config load failed, using defaults", slog.Any("err", err))
		cfg = config.Defaults()
	}

	var cache *thumbcache.Store
	if cpath, cerr := cfg.Thumbnails.EffectiveCachePath(); cerr == nil {
		if cache, cerr = thumbcache.Open(cpath); cerr != nil {
			l.Warn("thumb cache unavailable", slog.Any("err", cerr))
			cache = nil
		} else {
			cache.SetMaxBytes(cfg.Thumbnails.CacheMaxBytes)
			defer cache.Close()
		}
	}

	maxSize := vector.Size{W: float32(cfg.Thumbnails.MaxWidth), H: float32(cfg.Thumbnails.MaxHeight)}

	fyneApp := app.NewWithID("pagetailor")
	w := fyneApp.NewWindow("PageTailor")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1000)
	winH := prefs.IntWithFallback("window.height", 700)
	if winW < 600 {
		winW = 600
	}
	if winH < 400 {
		winH = 400
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")

	var seq *thumbseq.Sequence
	var strip *ThumbStrip
	var scroll *container.Scroll

	cb := thumbseq.Callbacks{
		NewSelectionLeader: func(info page.Info, rect vector.Rect, flags thumbseq.SelectionFlags) {
			status.SetText(info.Label())
			if flags&thumbseq.AvoidScrollingTo == 0 && scroll != nil && strip != nil {
				pos, _ := strip.SceneToWidget(rect)
				scroll.Offset = fyne.NewPos(0, pos.Y)
				scroll.Refresh()
			}
		},
		PageContextMenu: func(info page.Info, screenPos vector.Pt, selected bool) {
			items := []*fyne.MenuItem{
				fyne.NewMenuItem("Remove page", func() {
					victims := map[page.ID]struct{}{info.ID: {}}
					if selected {
						victims = seq.SelectedItems()
					}
					seq.RemovePages(victims)
					strip.Refresh()
				}),
				fyne.NewMenuItem("Regenerate thumbnail", func() {
					if cache != nil {
						// Stale cached variants would resurrect the old pixels.
						ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
						_ = cache.Remove(ctx, info.ID.Image)
						cancel()
					}
					seq.InvalidateThumbnail(info.ID)
					strip.Refresh()
				}),
			}
			m := fyne.NewMenu("", items...)
			widget.ShowPopUpMenuAtPosition(m, w.Canvas(), fyne.NewPos(screenPos.X, screenPos.Y))
		},
		PastLastPageContextMenu: func(screenPos vector.Pt) {
			m := fyne.NewMenu("", fyne.NewMenuItem("Append pages...", func() {
				dialog.ShowFileOpen(func(rc fyne.URIReadCloser, err error) {
					if err != nil || rc == nil {
						return
					}
					_ = rc.Close()
					seq.Insert(page.Info{ID: page.ID{Image: page.ImageID{Path: rc.URI().Path()}}},
						thumbseq.Before, page.ImageID{})
					strip.Refresh()
				}, w)
			}))
			widget.ShowPopUpMenuAtPosition(m, w.Canvas(), fyne.NewPos(screenPos.X, screenPos.Y))
		},
	}

	seq = thumbseq.New(maxSize, cb)
	seq.SetThumbnailFactory(thumb.NewCacheFactory(maxSize, cache))
	strip = NewThumbStrip(seq)
	scroll = container.NewVScroll(strip)

	openManifest := func(path string) {
		m, err := project.Load(path)
		if err != nil {
			dialog.ShowError(fmt.Errorf("open manifest: %w", err), w)
			return
		}
		manifestPath = path
		seq.Reset(m.Snapshot(), thumbseq.ResetSelection, nil)
		strip.Refresh()
		status.SetText(fmt.Sprintf("%d pages", m.Snapshot().NumPages()))
		telemetry.Event("manifest_opened", map[string]any{"pages": len(m.Pages)})
	}

	saveManifest := func() {
		if manifestPath == "" {
			return
		}
		snap := page.Snapshot{}
		seq.Scene().Each(func(c *thumbseq.CompositeItem) {
			snap.Pages = append(snap.Pages, c.PageInfo())
			if c.SelectionLeader() {
				snap.CurPage = c.PageInfo().ID
			}
		})
		if err := project.Save(manifestPath, project.FromSnapshot(snap)); err != nil {
			dialog.ShowError(err, w)
			return
		}
		status.SetText("Saved")
	}

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open...", func() {
			dialog.ShowFileOpen(func(rc fyne.URIReadCloser, err error) {
				if err != nil || rc == nil {
					return
				}
				_ = rc.Close()
				openManifest(rc.URI().Path())
			}, w)
		}),
		fyne.NewMenuItem("Save", saveManifest),
	)
	w.SetMainMenu(fyne.NewMainMenu(fileMenu))

	w.SetContent(container.NewBorder(nil, status, nil, nil, scroll))
	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
	})

	if manifestPath != "" {
		openManifest(manifestPath)
	}

	w.ShowAndRun()
	return nil
}
