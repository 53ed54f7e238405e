package library

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nucle0tides/rosefs/internal/errs"
	"github.com/nucle0tides/rosefs/internal/sidecar"
	"github.com/nucle0tides/rosefs/internal/trash"
)

// DeleteRelease trashes the release's source directory, evicts it from
// the cache, and refreshes every collage so any membership pointing at
// it is flagged missing.
func (m *Mutators) DeleteRelease(ctx context.Context, idOrVDir string) error {
	release, err := m.Cache.GetRelease(ctx, idOrVDir)
	if err != nil {
		return err
	}
	if release == nil {
		return errs.ReleaseDoesNotExist(idOrVDir)
	}

	unlock, err := m.Store.Lock(ctx, "release:"+release.ID, lockTimeout)
	if err != nil {
		return err
	}
	_, trashErr := trash.MoveToTrash(m.Config.CacheDir, release.SourcePath)
	unlock()
	if trashErr != nil {
		return trashErr
	}

	if err := m.Index.UpdateCacheEvictNonexistentReleases(ctx); err != nil {
		return err
	}
	return m.Index.UpdateCacheForCollages(ctx, nil, false)
}

// ToggleReleaseNew flips the release's sidecar `new` flag and
// re-indexes it.
func (m *Mutators) ToggleReleaseNew(ctx context.Context, idOrVDir string) error {
	release, err := m.Cache.GetRelease(ctx, idOrVDir)
	if err != nil {
		return err
	}
	if release == nil {
		return errs.ReleaseDoesNotExist(idOrVDir)
	}

	unlock, err := m.Store.Lock(ctx, "release:"+release.ID, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	path, _, ok := sidecar.FindIn(release.SourcePath)
	if !ok {
		return fmt.Errorf("library: release %s has no sidecar", release.ID)
	}
	body, err := sidecar.Read(path)
	if err != nil {
		return err
	}
	body.New = !body.New
	if err := sidecar.Write(path, body); err != nil {
		return err
	}

	return m.Index.UpdateCacheForReleases(ctx, []string{release.SourcePath}, true, false)
}

// SetReleaseCoverArt removes any existing cover.* file from the
// release's directory and copies srcPath in as the new one.
func (m *Mutators) SetReleaseCoverArt(ctx context.Context, idOrVDir, srcPath string) error {
	ext := strings.TrimPrefix(filepath.Ext(srcPath), ".")
	if !m.validArtExt(ext) {
		return errs.InvalidCoverArtFile(filepath.Base(srcPath))
	}

	release, err := m.Cache.GetRelease(ctx, idOrVDir)
	if err != nil {
		return err
	}
	if release == nil {
		return errs.ReleaseDoesNotExist(idOrVDir)
	}

	unlock, err := m.Store.Lock(ctx, "release:"+release.ID, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	if err := m.removeReleaseCoverFiles(release.SourcePath); err != nil {
		return err
	}
	dest := filepath.Join(release.SourcePath, "cover."+strings.ToLower(ext))
	if err := copyFile(srcPath, dest); err != nil {
		return err
	}

	return m.Index.UpdateCacheForReleases(ctx, []string{release.SourcePath}, true, false)
}

// RemoveReleaseCoverArt deletes the release's cover.* file, if any.
func (m *Mutators) RemoveReleaseCoverArt(ctx context.Context, idOrVDir string) error {
	release, err := m.Cache.GetRelease(ctx, idOrVDir)
	if err != nil {
		return err
	}
	if release == nil {
		return errs.ReleaseDoesNotExist(idOrVDir)
	}

	unlock, err := m.Store.Lock(ctx, "release:"+release.ID, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	if err := m.removeReleaseCoverFiles(release.SourcePath); err != nil {
		return err
	}
	return m.Index.UpdateCacheForReleases(ctx, []string{release.SourcePath}, true, false)
}

// removeReleaseCoverFiles deletes every "cover.{ext}"-shaped file (ext
// in valid_art_exts) directly inside dir.
func (m *Mutators) removeReleaseCoverFiles(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))
		ext := strings.TrimPrefix(filepath.Ext(e.Name()), ".")
		if strings.EqualFold(stem, "cover") && m.validArtExt(ext) {
			if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}
