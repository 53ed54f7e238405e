package index

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/nucle0tides/rosefs/internal/artiststr"
	"github.com/nucle0tides/rosefs/internal/model"
	"github.com/nucle0tides/rosefs/internal/sanitize"
)

// commitReleases runs step 7 (virtual_dirname assignment, which needs
// visibility into every other release already named, in and out of
// this batch) and steps 9-10 (the transactional per-release write,
// including alias expansion and the full-text index) for every
// successfully scanned release, in deterministic (sorted source
// directory) order.
func (ix *Indexer) commitReleases(ctx context.Context, pending []*pendingRelease) error {
	reserved, err := ix.reservedDirnames(ctx, pending)
	if err != nil {
		return err
	}

	for _, p := range pending {
		if p == nil {
			continue
		}
		base := buildVirtualDirnameBase(p)
		reserved[base]++
		p.virtualDirname = sanitize.Disambiguate(base, reserved[base])

		if err := ix.writeRelease(ctx, p); err != nil {
			log.Printf("[index] write release %s (%s): %v", p.id, p.dir, err)
		}
	}
	return nil
}

// reservedDirnames seeds the disambiguation counters with the
// virtual_dirname of every release NOT in this batch, so a collision
// against a release the batch isn't touching still gets a suffix.
func (ix *Indexer) reservedDirnames(ctx context.Context, pending []*pendingRelease) (map[string]int, error) {
	batchIDs := map[string]bool{}
	for _, p := range pending {
		if p != nil {
			batchIDs[p.id] = true
		}
	}

	rows, err := ix.Store.DB().QueryContext(ctx, `SELECT id, virtual_dirname FROM releases`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reserved := map[string]int{}
	for rows.Next() {
		var id, dirname string
		if err := rows.Scan(&id, &dirname); err != nil {
			return nil, err
		}
		if batchIDs[id] {
			continue
		}
		// a bare name counts as occurrence 1; a " [N]" suffix is split
		// off so the highest N seen is recorded against the *base* name,
		// which is all disambiguation ever compares against.
		base, n := splitDisambiguated(dirname)
		if n > reserved[base] {
			reserved[base] = n
		}
	}
	return reserved, rows.Err()
}

// splitDisambiguated reverses sanitize.Disambiguate: "Foo [3]" -> ("Foo", 3).
func splitDisambiguated(name string) (string, int) {
	if i := strings.LastIndex(name, " ["); i >= 0 && strings.HasSuffix(name, "]") {
		var n int
		if _, err := fmt.Sscanf(name[i+2:len(name)-1], "%d", &n); err == nil && n > 0 {
			return name[:i], n
		}
	}
	return name, 1
}

func (ix *Indexer) writeRelease(ctx context.Context, p *pendingRelease) error {
	unlock, err := ix.Store.Lock(ctx, "release:"+p.id, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	return ix.Store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM releases_fts WHERE release_id = ?`, p.id); err != nil {
			return err
		}
		// releases_genres/labels/artists and tracks (+ tracks_artists
		// via its own cascade) are wiped by ON DELETE CASCADE once the
		// parent row is replaced below.
		if _, err := tx.ExecContext(ctx, `DELETE FROM releases WHERE id = ?`, p.id); err != nil {
			return err
		}

		var year any
		if p.year != nil {
			year = *p.year
		}
		formattedArtists := artiststr.Format(refsToArtists(p.artistRefs), p.genres)

		_, err := tx.ExecContext(ctx, `
			INSERT INTO releases (
				id, source_path, sidecar_mtime, added_at, new, title,
				release_type, year, multidisc, formatted_artists,
				cover_image_path, virtual_dirname
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.id, p.dir, p.sidecarMtime, p.addedAt, p.new, p.title,
			p.releaseType, year, p.multidisc, formattedArtists,
			p.coverImagePath, p.virtualDirname,
		)
		if err != nil {
			return fmt.Errorf("insert release: %w", err)
		}

		for _, g := range p.genres {
			if _, err := tx.ExecContext(ctx, `INSERT INTO releases_genres (release_id, genre) VALUES (?, ?)`, p.id, g); err != nil {
				return err
			}
		}
		for _, l := range p.labels {
			if _, err := tx.ExecContext(ctx, `INSERT INTO releases_labels (release_id, label) VALUES (?, ?)`, p.id, l); err != nil {
				return err
			}
		}
		if err := writeArtistRows(ctx, tx, "releases_artists", "release_id", p.id, p.artistRefs, ix.Config.ParentsOf); err != nil {
			return err
		}

		for _, t := range p.tracks {
			trackArtists := artiststr.Format(refsToArtists(t.artistRefs), p.genres)
			_, err := tx.ExecContext(ctx, `
				INSERT INTO tracks (
					id, release_id, source_path, source_mtime, virtual_filename,
					title, disc_number, track_number, duration_seconds,
					formatted_artists, formatted_release_position
				) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				t.id, p.id, t.sourcePath, t.sourceMtime, t.virtualFilename,
				t.title, t.discNumber, t.trackNumber, t.durationSeconds,
				trackArtists, formattedReleasePosition(t),
			)
			if err != nil {
				return fmt.Errorf("insert track %s: %w", t.id, err)
			}
			if err := writeArtistRows(ctx, tx, "tracks_artists", "track_id", t.id, t.artistRefs, ix.Config.ParentsOf); err != nil {
				return err
			}
		}

		content := ftsTokenize(formattedArtists, p.title, strings.Join(p.genres, " "), strings.Join(p.labels, " "))
		if _, err := tx.ExecContext(ctx, `INSERT INTO releases_fts (release_id, content) VALUES (?, ?)`, p.id, content); err != nil {
			return err
		}
		return nil
	})
}

func formattedReleasePosition(t *pendingTrack) string {
	if t.discNumber != "" {
		return t.discNumber + "." + t.trackNumber
	}
	return t.trackNumber
}

// writeArtistRows inserts the direct (alias=false) credit rows, then
// expands each into its configured alias parents (alias=true),
// ignoring any insert that collides with an already-direct credit for
// the same (name, role) pair — a direct credit always wins.
func writeArtistRows(ctx context.Context, tx *sql.Tx, table, idCol, id string, refs []model.ArtistRef, parentsOf func(string) []string) error {
	insert := fmt.Sprintf(`INSERT INTO %s (%s, artist_name, role, alias) VALUES (?, ?, ?, ?)`, table, idCol)
	insertIgnore := fmt.Sprintf(`INSERT OR IGNORE INTO %s (%s, artist_name, role, alias) VALUES (?, ?, ?, ?)`, table, idCol)

	for _, r := range refs {
		if _, err := tx.ExecContext(ctx, insert, id, r.Name, r.Role, false); err != nil {
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	for _, r := range refs {
		for _, parent := range parentsOf(r.Name) {
			if _, err := tx.ExecContext(ctx, insertIgnore, id, parent, r.Role, true); err != nil {
				return fmt.Errorf("insert alias %s: %w", table, err)
			}
		}
	}
	return nil
}

func refsToArtists(refs []model.ArtistRef) artiststr.Artists {
	var a artiststr.Artists
	for _, r := range refs {
		switch r.Role {
		case "main":
			a.Main = append(a.Main, r.Name)
		case "guest":
			a.Guest = append(a.Guest, r.Name)
		case "remixer":
			a.Remixer = append(a.Remixer, r.Name)
		case "producer":
			a.Producer = append(a.Producer, r.Name)
		case "composer":
			a.Composer = append(a.Composer, r.Name)
		case "djmixer":
			a.DJMixer = append(a.DJMixer, r.Name)
		}
	}
	return a
}

// ftsTokenize inserts a space between every character of the joined
// fields, per spec.md's substring-MATCH tokenizer requirement.
func ftsTokenize(fields ...string) string {
	joined := strings.Join(fields, " ")
	var b strings.Builder
	for i, r := range []rune(joined) {
		if i > 0 {
			b.WriteRune(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}
