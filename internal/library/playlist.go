package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nucle0tides/rosefs/internal/errs"
	"github.com/nucle0tides/rosefs/internal/playlistfile"
)

func (m *Mutators) playlistsDir() string {
	return filepath.Join(m.Config.MusicSourceDir, "!playlists")
}

func (m *Mutators) playlistPath(name string) string {
	return filepath.Join(m.playlistsDir(), name+".toml")
}

// CreatePlaylist writes an empty playlist TOML file, idempotently.
func (m *Mutators) CreatePlaylist(ctx context.Context, name string) error {
	unlock, err := m.Store.Lock(ctx, "playlist:"+name, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	path := m.playlistPath(name)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(m.playlistsDir(), 0o755); err != nil {
		return fmt.Errorf("library: create playlists dir: %w", err)
	}
	if err := playlistfile.Write(path, &playlistfile.File{}); err != nil {
		return err
	}
	return m.Index.UpdateCacheForPlaylists(ctx, []string{name}, false)
}

// RenamePlaylist renames the playlist's TOML file and its cover image
// (if any), then re-indexes under the new name.
func (m *Mutators) RenamePlaylist(ctx context.Context, oldName, newName string) error {
	unlock, err := m.Store.Lock(ctx, "playlist:"+oldName, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := os.Stat(m.playlistPath(oldName)); os.IsNotExist(err) {
		return errs.PlaylistDoesNotExist(oldName)
	}
	if err := renameSameStemFiles(m.playlistsDir(), oldName, newName); err != nil {
		return fmt.Errorf("library: rename playlist %s: %w", oldName, err)
	}
	if err := m.evictPlaylist(ctx, oldName); err != nil {
		return err
	}
	return m.Index.UpdateCacheForPlaylists(ctx, []string{newName}, true)
}

// DeletePlaylist trashes the playlist's TOML and cover image, then
// evicts it from the cache.
func (m *Mutators) DeletePlaylist(ctx context.Context, name string) error {
	unlock, err := m.Store.Lock(ctx, "playlist:"+name, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := os.Stat(m.playlistPath(name)); os.IsNotExist(err) {
		return errs.PlaylistDoesNotExist(name)
	}
	if err := m.trashSameStemFiles(m.playlistsDir(), name); err != nil {
		return err
	}
	return m.evictPlaylist(ctx, name)
}

func (m *Mutators) evictPlaylist(ctx context.Context, name string) error {
	return m.Store.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM playlists WHERE name = ?`, name)
		return err
	})
}

// AddTrackToPlaylist appends trackID to playlist's TOML. If trackID
// isn't in the cache (the file-creation special op dropped a track
// whose tag carried no ID), the call is a silent no-op, mirroring the
// VFS core's own "tag lacks an ID → drop" contract.
func (m *Mutators) AddTrackToPlaylist(ctx context.Context, playlist, trackID string) error {
	unlock, err := m.Store.Lock(ctx, "playlist:"+playlist, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	filename, ok, err := m.Cache.GetTrackFilename(ctx, trackID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	path := m.playlistPath(playlist)
	f, err := playlistfile.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errs.PlaylistDoesNotExist(playlist)
		}
		return err
	}
	for _, e := range f.Tracks {
		if e.UUID == trackID {
			return nil
		}
	}
	f.Tracks = append(f.Tracks, playlistfile.Entry{UUID: trackID, DescriptionMeta: filename})
	if err := playlistfile.Write(path, f); err != nil {
		return err
	}
	return m.Index.UpdateCacheForPlaylists(ctx, []string{playlist}, false)
}

// RemoveTrackFromPlaylist removes trackID from playlist's TOML (a
// no-op if it isn't listed).
func (m *Mutators) RemoveTrackFromPlaylist(ctx context.Context, playlist, trackID string) error {
	unlock, err := m.Store.Lock(ctx, "playlist:"+playlist, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	path := m.playlistPath(playlist)
	f, err := playlistfile.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errs.PlaylistDoesNotExist(playlist)
		}
		return err
	}
	kept := f.Tracks[:0]
	for _, e := range f.Tracks {
		if e.UUID != trackID {
			kept = append(kept, e)
		}
	}
	f.Tracks = kept
	if err := playlistfile.Write(path, f); err != nil {
		return err
	}
	return m.Index.UpdateCacheForPlaylists(ctx, []string{playlist}, false)
}

// SetPlaylistCoverArt replaces playlist's cover image sibling file with
// a copy of srcPath.
func (m *Mutators) SetPlaylistCoverArt(ctx context.Context, name, srcPath string) error {
	ext := strings.TrimPrefix(filepath.Ext(srcPath), ".")
	if !m.validArtExt(ext) {
		return errs.InvalidCoverArtFile(filepath.Base(srcPath))
	}

	unlock, err := m.Store.Lock(ctx, "playlist:"+name, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	if err := m.removePlaylistCoverFiles(name); err != nil {
		return err
	}
	dest := filepath.Join(m.playlistsDir(), name+"."+strings.ToLower(ext))
	if err := copyFile(srcPath, dest); err != nil {
		return err
	}
	return m.Index.UpdateCacheForPlaylists(ctx, []string{name}, false)
}

// RemovePlaylistCoverArt deletes playlist's cover image sibling file,
// if any.
func (m *Mutators) RemovePlaylistCoverArt(ctx context.Context, name string) error {
	unlock, err := m.Store.Lock(ctx, "playlist:"+name, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	if err := m.removePlaylistCoverFiles(name); err != nil {
		return err
	}
	return m.Index.UpdateCacheForPlaylists(ctx, []string{name}, false)
}

func (m *Mutators) removePlaylistCoverFiles(name string) error {
	dir := m.playlistsDir()
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.TrimPrefix(filepath.Ext(e.Name()), ".")
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		if stem == name && m.validArtExt(ext) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

// EditPlaylistInEditor is EditCollageInEditor's counterpart over tracks.
func (m *Mutators) EditPlaylistInEditor(ctx context.Context, name string) error {
	unlock, err := m.Store.Lock(ctx, "playlist:"+name, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	path := m.playlistPath(name)
	f, err := playlistfile.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errs.PlaylistDoesNotExist(name)
		}
		return err
	}

	var b strings.Builder
	for _, e := range f.Tracks {
		b.WriteString(e.DescriptionMeta)
		b.WriteString("\n")
	}
	edited, err := openInEditor(b.String())
	if err != nil {
		return err
	}

	byDescription := make(map[string]playlistfile.Entry, len(f.Tracks))
	for _, e := range f.Tracks {
		byDescription[e.DescriptionMeta] = e
	}
	var kept []playlistfile.Entry
	seen := map[string]bool{}
	for _, line := range strings.Split(edited, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		e, ok := byDescription[line]
		if !ok || seen[e.UUID] {
			continue
		}
		seen[e.UUID] = true
		kept = append(kept, e)
	}
	f.Tracks = kept
	if err := playlistfile.Write(path, f); err != nil {
		return err
	}
	return m.Index.UpdateCacheForPlaylists(ctx, []string{name}, false)
}
