// Package library implements the Library Mutators: every write path
// that changes the source tree (or a sidecar/collage/playlist file)
// acquires the entity's named lock, makes the change on disk, and
// triggers a targeted re-index before returning — so by the time a
// mutator call returns, the Read Cache Store already reflects it.
package library

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nucle0tides/rosefs/internal/cache"
	"github.com/nucle0tides/rosefs/internal/config"
	"github.com/nucle0tides/rosefs/internal/index"
	"github.com/nucle0tides/rosefs/internal/store"
	"github.com/nucle0tides/rosefs/internal/trash"
)

// lockTimeout bounds how long a mutator waits for its entity's named
// lock before giving up.
const lockTimeout = 5 * time.Second

// Mutators owns everything a library operation needs: the
// configuration, the cache database, a read-only query handle, and the
// indexer it calls back into after mutating the source tree.
type Mutators struct {
	Config *config.Config
	Store  *store.Store
	Cache  *cache.API
	Index  *index.Indexer
}

// New builds a Mutators over cfg and st.
func New(cfg *config.Config, st *store.Store) *Mutators {
	return &Mutators{
		Config: cfg,
		Store:  st,
		Cache:  cache.New(st),
		Index:  index.New(cfg, st),
	}
}

func (m *Mutators) collagesDir() string {
	return filepath.Join(m.Config.MusicSourceDir, "!collages")
}

func (m *Mutators) collagePath(name string) string {
	return filepath.Join(m.collagesDir(), name+".toml")
}

// renameSameStemFiles renames every file directly inside dir whose stem
// (filename without extension) equals oldStem to use newStem instead,
// preserving each file's extension. Used by collage/playlist rename,
// which must carry a cover image (or any other same-stem auxiliary
// file) along with the renamed TOML.
func renameSameStemFiles(dir, oldStem, newStem string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if strings.TrimSuffix(e.Name(), ext) != oldStem {
			continue
		}
		if err := os.Rename(filepath.Join(dir, e.Name()), filepath.Join(dir, newStem+ext)); err != nil {
			return fmt.Errorf("library: rename %s: %w", e.Name(), err)
		}
	}
	return nil
}

// trashSameStemFiles moves every file directly inside dir whose stem
// equals stem into the trash, one at a time (so a cover image is
// trashed alongside the TOML it describes).
func (m *Mutators) trashSameStemFiles(dir, stem string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if strings.TrimSuffix(e.Name(), ext) != stem {
			continue
		}
		if _, err := trash.MoveToTrash(m.Config.CacheDir, filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}

// validArtExt reports whether ext (no leading dot, any case) is one of
// the configured valid_art_exts.
func (m *Mutators) validArtExt(ext string) bool {
	ext = strings.ToLower(ext)
	for _, e := range m.Config.ValidArtExts {
		if strings.ToLower(strings.TrimPrefix(e, ".")) == ext {
			return true
		}
	}
	return false
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("library: open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("library: create %s: %w", dest, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("library: copy %s to %s: %w", src, dest, err)
	}
	return out.Close()
}
