/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package thumbcache

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"pagetailor/internal/page"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), CacheFileName))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func cacheID(path string, sub page.SubPage) page.ID {
	return page.ID{Image: page.ImageID{Path: path}, SubPage: sub}
}

func TestPutGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	id := cacheID("/scans/scan-01.png", page.SinglePage)
	blob := []byte("not really a png")
	if err := s.Put(ctx, id, 160, 120, blob); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, id, 160, 120)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !bytes.Equal(got, blob) {
		t.Fatalf("blob mismatch: %q", got)
	}
}

func TestGetMissReturnsNil(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	got, err := s.Get(ctx, cacheID("/scans/absent.png", page.SinglePage), 160, 120)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil on miss, got %d bytes", len(got))
	}
}

func TestVariantsAreDistinct(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := cacheID("/scans/spread.png", page.LeftPage)
	other := cacheID("/scans/spread.png", page.RightPage)
	if err := s.Put(ctx, id, 100, 100, []byte("left")); err != nil {
		t.Fatalf("put left: %v", err)
	}
	if err := s.Put(ctx, other, 100, 100, []byte("right")); err != nil {
		t.Fatalf("put right: %v", err)
	}
	if err := s.Put(ctx, id, 200, 200, []byte("left-big")); err != nil {
		t.Fatalf("put left big: %v", err)
	}

	got, err := s.Get(ctx, id, 100, 100)
	if err != nil || string(got) != "left" {
		t.Fatalf("left 100: %q / %v", got, err)
	}
	got, err = s.Get(ctx, other, 100, 100)
	if err != nil || string(got) != "right" {
		t.Fatalf("right 100: %q / %v", got, err)
	}
	got, err = s.Get(ctx, id, 200, 200)
	if err != nil || string(got) != "left-big" {
		t.Fatalf("left 200: %q / %v", got, err)
	}
}

func TestPutOverwritesVariant(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := cacheID("/scans/scan-02.png", page.SinglePage)
	if err := s.Put(ctx, id, 100, 100, []byte("v1")); err != nil {
		t.Fatalf("put v1: %v", err)
	}
	if err := s.Put(ctx, id, 100, 100, []byte("v2-longer")); err != nil {
		t.Fatalf("put v2: %v", err)
	}
	got, err := s.Get(ctx, id, 100, 100)
	if err != nil || string(got) != "v2-longer" {
		t.Fatalf("expected overwrite, got %q / %v", got, err)
	}
	total, err := s.TotalBytes(ctx)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != int64(len("v2-longer")) {
		t.Fatalf("size accounting must follow the overwrite, got %d", total)
	}
}

func TestEvictionEnforcesCap(t *testing.T) {
	s := openTestStore(t)
	s.SetMaxBytes(64)
	ctx := context.Background()

	// Three 40-byte blobs against a 64-byte cap.
	for i, p := range []string{"/scans/a.png", "/scans/b.png", "/scans/c.png"} {
		if err := s.Put(ctx, cacheID(p, page.SinglePage), 100, 100, make([]byte, 40)); err != nil {
			t.Fatalf("put %d: %v", i, err)
		}
	}
	total, err := s.TotalBytes(ctx)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total > 64 {
		t.Fatalf("expected eviction to <=64 bytes, got %d", total)
	}
	// The most recent insert always survives.
	got, err := s.Get(ctx, cacheID("/scans/c.png", page.SinglePage), 100, 100)
	if err != nil || got == nil {
		t.Fatalf("latest insert must survive eviction: %v / %v", got, err)
	}
}

func TestGetOrCreateGeneratesOnce(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	id := cacheID("/scans/scan-03.png", page.SinglePage)
	calls := 0
	gen := func(context.Context) ([]byte, error) {
		calls++
		return []byte("generated"), nil
	}
	for i := 0; i < 2; i++ {
		got, err := s.GetOrCreate(ctx, id, 160, 120, gen)
		if err != nil || string(got) != "generated" {
			t.Fatalf("round %d: %q / %v", i, got, err)
		}
	}
	if calls != 1 {
		t.Fatalf("generator must run once, ran %d times", calls)
	}
}

func TestGetOrCreatePropagatesGeneratorError(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	wantErr := errors.New("decode failed")
	_, err := s.GetOrCreate(ctx, cacheID("/scans/bad.png", page.SinglePage), 160, 120,
		func(context.Context) ([]byte, error) { return nil, wantErr })
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected generator error, got %v", err)
	}
	// The failure must not poison the cache with an empty row.
	got, err := s.Get(ctx, cacheID("/scans/bad.png", page.SinglePage), 160, 120)
	if err != nil || got != nil {
		t.Fatalf("failed generation must not be cached: %v / %v", got, err)
	}
}

func TestRemoveDropsAllVariants(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	img := page.ImageID{Path: "/scans/spread.png"}
	for _, sub := range []page.SubPage{page.LeftPage, page.RightPage} {
		if err := s.Put(ctx, page.ID{Image: img, SubPage: sub}, 100, 100, []byte("x")); err != nil {
			t.Fatalf("put %v: %v", sub, err)
		}
	}
	if err := s.Remove(ctx, img); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	total, err := s.TotalBytes(ctx)
	if err != nil || total != 0 {
		t.Fatalf("expected empty cache, total=%d err=%v", total, err)
	}
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Fatalf("empty path must be rejected")
	}
}
