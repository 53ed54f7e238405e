package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/nucle0tides/rosefs/internal/collagefile"
	"github.com/nucle0tides/rosefs/internal/errs"
)

// CreateCollage writes an empty collage TOML file, idempotently: an
// already-existing collage of the same name is left untouched.
func (m *Mutators) CreateCollage(ctx context.Context, name string) error {
	unlock, err := m.Store.Lock(ctx, "collage:"+name, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	path := m.collagePath(name)
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(m.collagesDir(), 0o755); err != nil {
		return fmt.Errorf("library: create collages dir: %w", err)
	}
	if err := collagefile.Write(path, &collagefile.File{}); err != nil {
		return err
	}
	return m.Index.UpdateCacheForCollages(ctx, []string{name}, false)
}

// RenameCollage renames the collage's TOML file and any same-stem
// auxiliary files, then re-indexes under the new name.
func (m *Mutators) RenameCollage(ctx context.Context, oldName, newName string) error {
	unlock, err := m.Store.Lock(ctx, "collage:"+oldName, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := os.Stat(m.collagePath(oldName)); os.IsNotExist(err) {
		return errs.CollageDoesNotExist(oldName)
	}
	if err := renameSameStemFiles(m.collagesDir(), oldName, newName); err != nil {
		return fmt.Errorf("library: rename collage %s: %w", oldName, err)
	}
	if err := m.evictCollage(ctx, oldName); err != nil {
		return err
	}
	return m.Index.UpdateCacheForCollages(ctx, []string{newName}, true)
}

// DeleteCollage trashes the collage's TOML and any same-stem auxiliary
// files, then evicts it from the cache.
func (m *Mutators) DeleteCollage(ctx context.Context, name string) error {
	unlock, err := m.Store.Lock(ctx, "collage:"+name, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	if _, err := os.Stat(m.collagePath(name)); os.IsNotExist(err) {
		return errs.CollageDoesNotExist(name)
	}
	if err := m.trashSameStemFiles(m.collagesDir(), name); err != nil {
		return err
	}
	return m.evictCollage(ctx, name)
}

func (m *Mutators) evictCollage(ctx context.Context, name string) error {
	return m.Store.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `DELETE FROM collages WHERE name = ?`, name)
		return err
	})
}

// AddReleaseToCollage appends release to collage's TOML, refusing a
// duplicate, then re-indexes the collage.
func (m *Mutators) AddReleaseToCollage(ctx context.Context, collage, releaseIDOrVDir string) error {
	unlock, err := m.Store.Lock(ctx, "collage:"+collage, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	release, err := m.Cache.GetRelease(ctx, releaseIDOrVDir)
	if err != nil {
		return err
	}
	if release == nil {
		return errs.ReleaseDoesNotExist(releaseIDOrVDir)
	}

	path := m.collagePath(collage)
	f, err := collagefile.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errs.CollageDoesNotExist(collage)
		}
		return err
	}
	for _, e := range f.Releases {
		if e.UUID == release.ID {
			return nil
		}
	}
	f.Releases = append(f.Releases, collagefile.Entry{UUID: release.ID, DescriptionMeta: release.VirtualDirname})
	if err := collagefile.Write(path, f); err != nil {
		return err
	}
	return m.Index.UpdateCacheForCollages(ctx, []string{collage}, false)
}

// RemoveReleaseFromCollage removes release from collage's TOML (a
// no-op if it isn't listed), then re-indexes the collage.
func (m *Mutators) RemoveReleaseFromCollage(ctx context.Context, collage, releaseID string) error {
	unlock, err := m.Store.Lock(ctx, "collage:"+collage, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	path := m.collagePath(collage)
	f, err := collagefile.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errs.CollageDoesNotExist(collage)
		}
		return err
	}
	kept := f.Releases[:0]
	for _, e := range f.Releases {
		if e.UUID != releaseID {
			kept = append(kept, e)
		}
	}
	f.Releases = kept
	if err := collagefile.Write(path, f); err != nil {
		return err
	}
	return m.Index.UpdateCacheForCollages(ctx, []string{collage}, false)
}

// EditCollageInEditor opens collage's member list, one description per
// line, in $EDITOR. The user may reorder or delete lines; a line that
// doesn't match a known member's description (an attempted rename) is
// dropped rather than honored, since collage membership is keyed by
// release UUID, not by the line's text.
func (m *Mutators) EditCollageInEditor(ctx context.Context, name string) error {
	unlock, err := m.Store.Lock(ctx, "collage:"+name, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	path := m.collagePath(name)
	f, err := collagefile.Read(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errs.CollageDoesNotExist(name)
		}
		return err
	}

	var b strings.Builder
	for _, e := range f.Releases {
		b.WriteString(e.DescriptionMeta)
		b.WriteString("\n")
	}
	edited, err := openInEditor(b.String())
	if err != nil {
		return err
	}

	byDescription := make(map[string]collagefile.Entry, len(f.Releases))
	for _, e := range f.Releases {
		byDescription[e.DescriptionMeta] = e
	}

	var kept []collagefile.Entry
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
	f.Releases = kept
	if err := collagefile.Write(path, f); err != nil {
		return err
	}
	return m.Index.UpdateCacheForCollages(ctx, []string{name}, false)
}
