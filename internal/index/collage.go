package index

import (
	"context"
	"database/sql"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/nucle0tides/rosefs/internal/collagefile"
)

func (ix *Indexer) collagesDir() string {
	return filepath.Join(ix.Config.MusicSourceDir, "!collages")
}

// UpdateCacheForCollages re-parses the given collage TOML files (every
// `!collages/*.toml` if names is nil), resolves each entry's uuid
// against the releases table, and rewrites the TOML when any entry's
// missing flag or description_meta changed.
func (ix *Indexer) UpdateCacheForCollages(ctx context.Context, names []string, force bool) error {
	dir := ix.collagesDir()
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
		if err := ix.indexOneCollage(ctx, name); err != nil {
			log.Printf("[index] collage %s: %v", name, err)
		}
	}
	return nil
}

func (ix *Indexer) indexOneCollage(ctx context.Context, name string) error {
	path := filepath.Join(ix.collagesDir(), name+".toml")
	f, err := collagefile.Read(path)
	if err != nil {
		return err
	}

	changed := false
	for i, e := range f.Releases {
		dirname, ok, err := ix.releaseVirtualDirname(ctx, e.UUID)
		if err != nil {
			return err
		}
		if ok {
			if e.Missing || e.DescriptionMeta != dirname {
				f.Releases[i].Missing = false
				f.Releases[i].DescriptionMeta = dirname
				changed = true
			}
		} else if !e.Missing {
			f.Releases[i].Missing = true
			changed = true
		}
	}
	if changed {
		if err := collagefile.Write(path, f); err != nil {
			return err
		}
	}

	return ix.Store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO collages (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM collages_releases WHERE collage_name = ?`, name); err != nil {
			return err
		}
		for i, e := range f.Releases {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO collages_releases (collage_name, release_id, description_meta, missing, position)
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

func (ix *Indexer) releaseVirtualDirname(ctx context.Context, releaseID string) (string, bool, error) {
	row := ix.Store.DB().QueryRowContext(ctx, `SELECT virtual_dirname FROM releases WHERE id = ?`, releaseID)
	var dirname string
	if err := row.Scan(&dirname); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return dirname, true, nil
}

func listTOMLNames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.HasSuffix(e.Name(), ".toml") {
			names = append(names, strings.TrimSuffix(e.Name(), ".toml"))
		}
	}
	return names, nil
}
