/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package thumbcache persists rendered thumbnails in a local SQLite database
// so reopening a document does not re-decode every source image. The cache is
// keyed by source image identity plus the rendered size, and is bounded by a
// byte cap enforced with least-recently-used eviction.
package thumbcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	applog "pagetailor/internal/log"
	"pagetailor/internal/page"
	"log/slog"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// CacheFileName is the default database file name inside the cache dir.
	CacheFileName = "thumbs.sqlite"

	// schemaVersion tracks the local SQLite schema of the cache.
	// Bump this when you perform breaking schema changes.
	schemaVersion = 1
)

// DefaultMaxBytes caps the cache when no explicit limit is configured.
const DefaultMaxBytes = 256 * 1024 * 1024 // 256MB

// Store is a size-bounded thumbnail cache backed by a single SQLite file.
// It is safe for use from one goroutine at a time; the sequence accesses it
// from the UI thread only.
type Store struct {
	db       *sql.DB
	maxBytes int64
	log      *slog.Logger
}

// Open creates or opens the cache database at the given file path, enables
// WAL mode, and ensures the schema is current. Callers own the returned
// store and must Close it.
func Open(path string) (*Store, error) {
	l := applog.WithOperation(applog.WithComponent("thumbcache"), "open").With(
		slog.String("path", path),
	)
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("cache path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create cache dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	// Use a URI with shared cache and a busy timeout. Convert to forward
	// slashes for the SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Embedded usage: a single connection avoids writer contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure schema failed", slog.Any("err", err))
		return nil, err
	}

	l.Info("thumb cache ready")
	return &Store{db: db, maxBytes: MaxBytesFromEnv(), log: applog.WithComponent("thumbcache")}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error { return s.db.Close() }

// SetMaxBytes overrides the eviction cap. Zero or negative disables eviction.
func (s *Store) SetMaxBytes(n int64) { s.maxBytes = n }

func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS thumbs (
			id           INTEGER PRIMARY KEY,
			path         TEXT    NOT NULL,
			page         INTEGER NOT NULL DEFAULT 0,
			sub_page     INTEGER NOT NULL DEFAULT 0,
			w            INTEGER NOT NULL DEFAULT 0,
			h            INTEGER NOT NULL DEFAULT 0,
			blob         BLOB,
			size         INTEGER NOT NULL DEFAULT 0,
			updated_at   TEXT    NOT NULL,
			last_access  TEXT
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_thumbs_variant ON thumbs(path, page, sub_page, w, h);`,
		`CREATE INDEX IF NOT EXISTS idx_thumbs_access ON thumbs(last_access);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure thumbs schema: %w", err)
		}
	}
	if _, err := db.ExecContext(ctx,
		`INSERT INTO meta(key,value) VALUES('schema',?) ON CONFLICT(key) DO UPDATE SET value=excluded.value`,
		strconv.Itoa(schemaVersion)); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

// Get returns the cached blob for the page at the given rendered size and
// updates its access time. A miss returns (nil, nil).
func (s *Store) Get(ctx context.Context, id page.ID, w, h int) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT blob FROM thumbs WHERE path=? AND page=? AND sub_page=? AND w=? AND h=?`,
		id.Image.Path, id.Image.Page, int(id.SubPage), w, h).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query thumb: %w", err)
	}
	// touch
	now := time.Now().UTC().Format(time.RFC3339)
	_, _ = s.db.ExecContext(ctx,
		`UPDATE thumbs SET last_access=? WHERE path=? AND page=? AND sub_page=? AND w=? AND h=?`,
		now, id.Image.Path, id.Image.Page, int(id.SubPage), w, h)
	return blob, nil
}

// Put upserts a blob for the page at the given rendered size and enforces
// the byte cap via LRU eviction.
func (s *Store) Put(ctx context.Context, id page.ID, w, h int, blob []byte) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO thumbs(path,page,sub_page,w,h,blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?,?,?)
		ON CONFLICT(path,page,sub_page,w,h) DO UPDATE SET blob=excluded.blob, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		id.Image.Path, id.Image.Page, int(id.SubPage), w, h, blob, len(blob), now, now)
	if err != nil {
		return fmt.Errorf("upsert thumb: %w", err)
	}
	if s.maxBytes > 0 {
		if err := s.evictToFit(ctx, s.maxBytes); err != nil {
			return err
		}
	}
	return nil
}

// GetOrCreate fetches a cached blob or generates and stores one using the
// provided generator. A nil generator turns a miss into (nil, nil).
func (s *Store) GetOrCreate(ctx context.Context, id page.ID, w, h int, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	if b, err := s.Get(ctx, id, w, h); err != nil {
		return nil, err
	} else if b != nil {
		return b, nil
	}
	if gen == nil {
		return nil, nil
	}
	data, err := gen(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	if err := s.Put(ctx, id, w, h, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Remove drops every cached variant of the page's source image. Used when
// the source file changed on disk.
func (s *Store) Remove(ctx context.Context, img page.ImageID) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM thumbs WHERE path=? AND page=?`, img.Path, img.Page); err != nil {
		return fmt.Errorf("remove thumbs: %w", err)
	}
	return nil
}

// TotalBytes returns the total blob bytes tracked by thumbs.size.
func (s *Store) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM thumbs`).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// evictToFit deletes least-recently-used rows until total size <= capBytes.
func (s *Store) evictToFit(ctx context.Context, capBytes int64) error {
	total, err := s.TotalBytes(ctx)
	if err != nil {
		return fmt.Errorf("sum thumbs size: %w", err)
	}
	if total <= capBytes {
		return nil
	}
	// Victims ordered by last_access asc (oldest first), NULLs first.
	rows, err := s.db.QueryContext(ctx, `SELECT id, size FROM thumbs ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	toDelete := make([]int64, 0, 32)
	cur := total
	for rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		toDelete = append(toDelete, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// Close the cursor before attempting to write.
	if err := rows.Close(); err != nil {
		return err
	}
	if len(toDelete) == 0 {
		return nil
	}
	q := `DELETE FROM thumbs WHERE id IN (`
	args := make([]any, len(toDelete))
	for i, v := range toDelete {
		if i > 0 {
			q += ","
		}
		q += "?"
		args[i] = v
	}
	q += ")"
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	s.log.Debug("evicted thumbs", slog.Int("count", len(toDelete)), slog.Int64("total_before", total))
	return nil
}

// MaxBytesFromEnv reads PT_THUMB_CACHE_MAX_BYTES, defaulting to 256MB if
// unset or invalid.
func MaxBytesFromEnv() int64 {
	v := os.Getenv("PT_THUMB_CACHE_MAX_BYTES")
	if v == "" {
		return DefaultMaxBytes
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return DefaultMaxBytes
	}
	return n
}
