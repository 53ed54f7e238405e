// Package index implements the Incremental Indexer: the scanner that
// brings the Read Cache Store into agreement with the source music
// directory, preserving the stable IDs written into audio tags and
// sidecar files across re-scans. It is the only package that writes
// to the releases/tracks/collages/playlists tables; every other
// package reads through internal/cache or mutates source files
// through internal/library, which both call back into here to
// re-index after a change.
package index

import (
	"context"
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nucle0tides/rosefs/internal/config"
	"github.com/nucle0tides/rosefs/internal/store"
)

// reservedDirNames are source-tree entries the indexer never treats as
// release directories.
var reservedDirNames = map[string]bool{
	"!collages":  true,
	"!playlists": true,
}

// lockTimeout bounds how long indexing waits for a release's named
// lock before giving up on that one release (and continuing the batch).
const lockTimeout = 5 * time.Second

// multiprocessingThreshold is the batch size at which the indexer
// switches from a plain sequential loop to the errgroup worker path.
// force_multiprocessing skips this check and always takes the worker
// path, so tests can exercise it on a batch of any size.
const multiprocessingThreshold = 4

// Indexer owns the configuration and cache database the incremental
// indexing operations act on.
type Indexer struct {
	Config *config.Config
	Store  *store.Store
}

// New builds an Indexer.
func New(cfg *config.Config, st *store.Store) *Indexer {
	return &Indexer{Config: cfg, Store: st}
}

// UpdateCache runs every indexing step to fixpoint: releases, then
// collages, then playlists, then eviction of releases whose source
// directory has disappeared entirely (collages/playlists evict
// per-entry as part of their own pass, since membership is what goes
// stale there, not the list itself).
func (ix *Indexer) UpdateCache(ctx context.Context, force bool) error {
	if err := ix.UpdateCacheForReleases(ctx, nil, force, false); err != nil {
		return err
	}
	if err := ix.UpdateCacheForCollages(ctx, nil, force); err != nil {
		return err
	}
	if err := ix.UpdateCacheForPlaylists(ctx, nil, force); err != nil {
		return err
	}
	return ix.UpdateCacheEvictNonexistentReleases(ctx)
}

// UpdateCacheForReleases indexes the given release directories (every
// directory under music_source_dir if dirs is nil). Directory-level
// I/O and tag reads run concurrently, bounded by Config.MaxProc; the
// disambiguation and database write happen in a short serial phase
// afterward so that virtual_dirname collisions are resolved in a
// single deterministic order regardless of how much of the scan ran
// in parallel.
func (ix *Indexer) UpdateCacheForReleases(ctx context.Context, dirs []string, force, forceMultiprocessing bool) error {
	if dirs == nil {
		found, err := ix.discoverReleaseDirs()
		if err != nil {
			return err
		}
		dirs = found
	}
	sort.Strings(dirs)

	pending := make([]*pendingRelease, len(dirs))

	scanAt := func(idx int) error {
		p, err := ix.scanReleaseDir(ctx, dirs[idx], force)
		if err != nil {
			log.Printf("[index] release %s: %v", dirs[idx], err)
			return nil
		}
		pending[idx] = p
		return nil
	}

	if len(dirs) >= multiprocessingThreshold || forceMultiprocessing {
		g, _ := errgroup.WithContext(ctx)
		limit := ix.Config.MaxProc
		if limit < 1 {
			limit = 1
		}
		g.SetLimit(limit)
		for i := range dirs {
			i := i
			g.Go(func() error { return scanAt(i) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
	} else {
		for i := range dirs {
			if err := scanAt(i); err != nil {
				return err
			}
		}
	}

	return ix.commitReleases(ctx, pending)
}

// UpdateCacheEvictNonexistentReleases removes every release row whose
// source_path no longer exists on disk.
func (ix *Indexer) UpdateCacheEvictNonexistentReleases(ctx context.Context) error {
	rows, err := ix.Store.DB().QueryContext(ctx, `SELECT id, source_path FROM releases`)
	if err != nil {
		return err
	}
	type rel struct{ id, path string }
	var stale []rel
	for rows.Next() {
		var r rel
		if err := rows.Scan(&r.id, &r.path); err != nil {
			rows.Close()
			return err
		}
		if _, err := os.Stat(r.path); os.IsNotExist(err) {
			stale = append(stale, r)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, r := range stale {
		if err := ix.evictRelease(ctx, r.id); err != nil {
			log.Printf("[index] evict %s: %v", r.id, err)
		}
	}
	return nil
}

func (ix *Indexer) evictRelease(ctx context.Context, releaseID string) error {
	return ix.Store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM releases_fts WHERE release_id = ?`, releaseID); err != nil {
			return err
		}
		// child rows in releases_genres/labels/artists and tracks (+
		// tracks_artists via its own cascade) are removed by the
		// foreign-key ON DELETE CASCADE declared in schema.sql.
		_, err := tx.ExecContext(ctx, `DELETE FROM releases WHERE id = ?`, releaseID)
		return err
	})
}

// discoverReleaseDirs lists every immediate subdirectory of
// music_source_dir, excluding the reserved !collages/!playlists
// directories and any directory listed in ignore_release_directories.
func (ix *Indexer) discoverReleaseDirs() ([]string, error) {
	entries, err := os.ReadDir(ix.Config.MusicSourceDir)
	if err != nil {
		return nil, err
	}

	ignore := map[string]bool{}
	for _, name := range ix.Config.IgnoreReleaseDirectories {
		ignore[name] = true
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if reservedDirNames[name] || strings.HasPrefix(name, ".") || ignore[name] {
			continue
		}
		dirs = append(dirs, filepath.Join(ix.Config.MusicSourceDir, name))
	}
	return dirs, nil
}
