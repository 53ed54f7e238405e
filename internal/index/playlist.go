package index

import (
	"context"
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/nucle0tides/rosefs/internal/playlistfile"
)

func (ix *Indexer) playlistsDir() string {
	return filepath.Join(ix.Config.MusicSourceDir, "!playlists")
}

// UpdateCacheForPlaylists is symmetric to UpdateCacheForCollages but
// over tracks, and additionally scans for a cover image sibling file.
func (ix *Indexer) UpdateCacheForPlaylists(ctx context.Context, names []string, force bool) error {
	dir := ix.playlistsDir()
	if names == nil {
		found, err := listTOMLNames(dir)
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		names = found
	}

	for _, name := range names {
		if err := ix.indexOnePlaylist(ctx, name); err != nil {
			log.Printf("[index] playlist %s: %v", name, err)
		}
	}
	return nil
}

func (ix *Indexer) indexOnePlaylist(ctx context.Context, name string) error {
	path := filepath.Join(ix.playlistsDir(), name+".toml")
	f, err := playlistfile.Read(path)
	if err != nil {
		return err
	}

	changed := false
	for i, e := range f.Tracks {
		filename, ok, err := ix.trackVirtualFilename(ctx, e.UUID)
		if err != nil {
			return err
		}
		if ok {
			if e.Missing || e.DescriptionMeta != filename {
				f.Tracks[i].Missing = false
				f.Tracks[i].DescriptionMeta = filename
				changed = true
			}
		} else if !e.Missing {
			f.Tracks[i].Missing = true
			changed = true
		}
	}
	if changed {
		if err := playlistfile.Write(path, f); err != nil {
			return err
		}
	}

	coverPath := ix.findPlaylistCover(name)

	return ix.Store.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO playlists (name, cover_path) VALUES (?, ?)
			ON CONFLICT(name) DO UPDATE SET cover_path = excluded.cover_path`,
			name, coverPath,
		)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM playlists_tracks WHERE playlist_name = ?`, name); err != nil {
			return err
		}
		for i, e := range f.Tracks {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO playlists_tracks (playlist_name, track_id, description_meta, missing, position)
				VALUES (?, ?, ?, ?, ?)`,
				name, e.UUID, e.DescriptionMeta, e.Missing, i+1,
			)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (ix *Indexer) trackVirtualFilename(ctx context.Context, trackID string) (string, bool, error) {
	row := ix.Store.DB().QueryRowContext(ctx, `SELECT virtual_filename FROM tracks WHERE id = ?`, trackID)
	var filename string
	if err := row.Scan(&filename); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return filename, true, nil
}

// findPlaylistCover looks for "{name}.{ext}" directly inside
// !playlists, ext case-folded and checked against valid_art_exts.
func (ix *Indexer) findPlaylistCover(name string) string {
	exts := map[string]bool{}
	for _, e := range ix.Config.ValidArtExts {
		exts[strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}
	entries, err := os.ReadDir(ix.playlistsDir())
	if err != nil {
		return ""
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(e.Name()), "."))
		if stem == name && exts[ext] {
			return filepath.Join(ix.playlistsDir(), e.Name())
		}
	}
	return ""
}
