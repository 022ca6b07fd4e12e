/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package thumb renders page thumbnails from scanned source images. It
// decodes the source, crops the requested half for split pages, downscales
// into the logical thumbnail box, and round-trips PNG bytes through the
// persistent cache so subsequent sessions skip the decode entirely.
package thumb

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"time"

	// Source image formats. TIFF comes from x/image; scanned pages are
	// commonly TIFF or PNG.
	_ "image/gif"
	_ "image/jpeg"

	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"

	applog "pagetailor/internal/log"
	"pagetailor/internal/page"
	"pagetailor/internal/thumbcache"
	"pagetailor/internal/thumbseq"
	"pagetailor/internal/vector"
)

// renderTimeout bounds a single decode-and-scale round trip including the
// cache write.
const renderTimeout = 30 * time.Second

// ImageDrawable is a decoded thumbnail ready for display.
type ImageDrawable struct {
	img image.Image
}

// Image returns the decoded pixels for rendering.
func (d *ImageDrawable) Image() image.Image { return d.img }

func (d *ImageDrawable) Bounds() vector.Rect {
	b := d.img.Bounds()
	return vector.R(0, 0, float32(b.Dx()), float32(b.Dy()))
}

// CacheFactory produces thumbnails on demand, consulting the persistent
// cache first. A nil cache store is allowed; the factory then renders every
// request from the source image. Any failure yields nil so the sequence
// falls back to its placeholder.
type CacheFactory struct {
	maxW, maxH int
	cache      *thumbcache.Store
	log        *slog.Logger
}

// NewCacheFactory builds a factory rendering into the given logical
// thumbnail box.
func NewCacheFactory(maxSize vector.Size, cache *thumbcache.Store) *CacheFactory {
	return &CacheFactory{
		maxW:  int(maxSize.W),
		maxH:  int(maxSize.H),
		cache: cache,
		log:   applog.WithComponent("thumb"),
	}
}

// Get implements thumbseq.Factory.
func (f *CacheFactory) Get(info page.Info, pageNumHint int) thumbseq.Drawable {
	ctx, cancel := context.WithTimeout(context.Background(), renderTimeout)
	defer cancel()

	l := f.log.With(slog.String("page", info.ID.String()), slog.Int("num", pageNumHint))

	var data []byte
	var err error
	if f.cache != nil {
		data, err = f.cache.GetOrCreate(ctx, info.ID, f.maxW, f.maxH, func(ctx context.Context) ([]byte, error) {
			return f.renderPNG(info.ID)
		})
	} else {
		data, err = f.renderPNG(info.ID)
	}
	if err != nil {
		l.Warn("thumbnail render failed", slog.Any("err", err))
		return nil
	}
	if data == nil {
		return nil
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		// A corrupt cache row; drop it and render fresh next time.
		l.Warn("cached thumbnail corrupt", slog.Any("err", err))
		if f.cache != nil {
			_ = f.cache.Remove(ctx, info.ID.Image)
		}
		return nil
	}
	return &ImageDrawable{img: img}
}

// renderPNG decodes the source image, crops the requested half, downscales
// into the thumbnail box, and returns the PNG bytes.
func (f *CacheFactory) renderPNG(id page.ID) ([]byte, error) {
	src, err := f.loadSource(id.Image)
	if err != nil {
		return nil, err
	}
	src = cropSubPage(src, id.SubPage)
	dst := scaleToFit(src, f.maxW, f.maxH)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}

func (f *CacheFactory) loadSource(img page.ImageID) (image.Image, error) {
	// Stdlib decoders see one image per file; further pages of a
	// multi-page file cannot be rendered and fall back to the placeholder.
	if img.Page > 0 {
		return nil, fmt.Errorf("multi-page image %s: page %d not decodable", img.Path, img.Page)
	}
	file, err := os.Open(img.Path)
	if err != nil {
		return nil, fmt.Errorf("open source image: %w", err)
	}
	defer file.Close()
	decoded, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", img.Path, err)
	}
	return decoded, nil
}

// cropSubPage returns the half of the source the sub-page refers to. The
// split is a plain vertical halving; precise split lines are the page
// splitting stage's concern, this is only for preview purposes.
func cropSubPage(src image.Image, sub page.SubPage) image.Image {
	if sub == page.SinglePage {
		return src
	}
	b := src.Bounds()
	half := b
	mid := b.Min.X + b.Dx()/2
	if sub == page.LeftPage {
		half.Max.X = mid
	} else {
		half.Min.X = mid
	}
	type subImager interface {
		SubImage(image.Rectangle) image.Image
	}
	if si, ok := src.(subImager); ok {
		return si.SubImage(half)
	}
	// Decoder types without SubImage get copied.
	out := image.NewRGBA(image.Rect(0, 0, half.Dx(), half.Dy()))
	xdraw.Copy(out, image.Point{}, src, half, xdraw.Src, nil)
	return out
}

// scaleToFit downscales into the w*h box preserving aspect ratio. Images
// already inside the box are returned unchanged; thumbnails are never
// upscaled.
func scaleToFit(src image.Image, w, h int) image.Image {
	b := src.Bounds()
	sw, sh := b.Dx(), b.Dy()
	if sw <= 0 || sh <= 0 || w <= 0 || h <= 0 {
		return src
	}
	if sw <= w && sh <= h {
		return src
	}
	tw, th := w, sh*w/sw
	if th > h {
		tw, th = sw*h/sh, h
	}
	if tw < 1 {
		tw = 1
	}
	if th < 1 {
		th = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, xdraw.Src, nil)
	return dst
}
