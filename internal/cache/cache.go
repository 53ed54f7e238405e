// Package cache is the Cache Query API: pure-read operations over the
// Read Cache Store, returning pre-joined, fully hydrated records ready
// for the VFS Logical Core to render as directory listings. Nothing in
// this package writes to the database; every mutation flows through
// internal/index.
package cache

import (
	"context"
	"database/sql"
	"path/filepath"

	"github.com/nucle0tides/rosefs/internal/model"
	"github.com/nucle0tides/rosefs/internal/store"
)

// API is the Cache Query API surface, bound to one cache database.
type API struct {
	Store *store.Store
}

// New builds an API over st.
func New(st *store.Store) *API {
	return &API{Store: st}
}

// ReleaseFilter narrows ListReleases. A nil field means "no filter on
// that dimension".
type ReleaseFilter struct {
	Artist *string
	Genre  *string
	Label  *string
	New    *bool
}

// ListReleases returns every release matching filter, ordered by
// virtual_dirname for stable directory listings.
func (a *API) ListReleases(ctx context.Context, filter ReleaseFilter) ([]*model.Release, error) {
	query := `SELECT DISTINCT r.id FROM releases r`
	var args []any
	var where []string

	if filter.Artist != nil {
		query += ` JOIN releases_artists ra ON ra.release_id = r.id`
		where = append(where, `ra.artist_name = ?`)
		args = append(args, *filter.Artist)
	}
	if filter.Genre != nil {
		query += ` JOIN releases_genres rg ON rg.release_id = r.id`
		where = append(where, `rg.genre = ?`)
		args = append(args, *filter.Genre)
	}
	if filter.Label != nil {
		query += ` JOIN releases_labels rl ON rl.release_id = r.id`
		where = append(where, `rl.label = ?`)
		args = append(args, *filter.Label)
	}
	if filter.New != nil {
		where = append(where, `r.new = ?`)
		args = append(args, *filter.New)
	}
	if len(where) > 0 {
		query += " WHERE " + joinAnd(where)
	}
	query += ` ORDER BY r.virtual_dirname`

	rows, err := a.Store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	releases := make([]*model.Release, 0, len(ids))
	for _, id := range ids {
		r, err := a.hydrateRelease(ctx, id)
		if err != nil {
			return nil, err
		}
		releases = append(releases, r)
	}
	return releases, nil
}

// GetRelease resolves idOrVirtualDirname (tried as an ID first, then
// as a virtual_dirname) and returns the fully hydrated release, or nil
// if neither matches.
func (a *API) GetRelease(ctx context.Context, idOrVirtualDirname string) (*model.Release, error) {
	id, ok, err := a.resolveReleaseID(ctx, idOrVirtualDirname)
	if err != nil || !ok {
		return nil, err
	}
	return a.hydrateRelease(ctx, id)
}

func (a *API) resolveReleaseID(ctx context.Context, idOrVirtualDirname string) (string, bool, error) {
	row := a.Store.DB().QueryRowContext(ctx, `SELECT id FROM releases WHERE id = ? OR virtual_dirname = ?`, idOrVirtualDirname, idOrVirtualDirname)
	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return id, true, nil
}

func (a *API) hydrateRelease(ctx context.Context, id string) (*model.Release, error) {
	r := &model.Release{ID: id}
	var year sql.NullInt64
	row := a.Store.DB().QueryRowContext(ctx, `
		SELECT source_path, sidecar_mtime, added_at, new, title, release_type,
		       year, multidisc, formatted_artists, cover_image_path, virtual_dirname
		FROM releases WHERE id = ?`, id)
	if err := row.Scan(
		&r.SourcePath, &r.SidecarMtime, &r.AddedAt, &r.New, &r.Title, &r.ReleaseType,
		&year, &r.Multidisc, &r.Artists, &r.CoverImagePath, &r.VirtualDirname,
	); err != nil {
		return nil, err
	}
	if year.Valid {
		y := int(year.Int64)
		r.Year = &y
	}

	var err error
	if r.Genres, err = a.queryStrings(ctx, `SELECT genre FROM releases_genres WHERE release_id = ? ORDER BY genre`, id); err != nil {
		return nil, err
	}
	if r.Labels, err = a.queryStrings(ctx, `SELECT label FROM releases_labels WHERE release_id = ? ORDER BY label`, id); err != nil {
		return nil, err
	}
	if r.ArtistRefs, err = a.queryArtistRefs(ctx, `SELECT artist_name, role, alias FROM releases_artists WHERE release_id = ? ORDER BY role, artist_name`, id); err != nil {
		return nil, err
	}
	if r.Tracks, err = a.hydrateTracks(ctx, id); err != nil {
		return nil, err
	}
	return r, nil
}

func (a *API) hydrateTracks(ctx context.Context, releaseID string) ([]model.Track, error) {
	rows, err := a.Store.DB().QueryContext(ctx, `
		SELECT id, source_path, source_mtime, virtual_filename, title, disc_number,
		       track_number, duration_seconds, formatted_artists, formatted_release_position
		FROM tracks WHERE release_id = ? ORDER BY disc_number, track_number`, releaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tracks []model.Track
	for rows.Next() {
		var t model.Track
		t.ReleaseID = releaseID
		if err := rows.Scan(
			&t.ID, &t.SourcePath, &t.SourceMtime, &t.VirtualFilename, &t.Title, &t.DiscNumber,
			&t.TrackNumber, &t.DurationSeconds, &t.Artists, &t.FormattedReleasePosition,
		); err != nil {
			return nil, err
		}
		refs, err := a.queryArtistRefs(ctx, `SELECT artist_name, role, alias FROM tracks_artists WHERE track_id = ? ORDER BY role, artist_name`, t.ID)
		if err != nil {
			return nil, err
		}
		t.ArtistRefs = refs
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func (a *API) queryStrings(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := a.Store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (a *API) queryArtistRefs(ctx context.Context, query string, args ...any) ([]model.ArtistRef, error) {
	rows, err := a.Store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.ArtistRef
	for rows.Next() {
		var r model.ArtistRef
		if err := rows.Scan(&r.Name, &r.Role, &r.Alias); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListArtists returns every distinct artist name credited on any
// release (direct credits and alias expansions alike).
func (a *API) ListArtists(ctx context.Context) ([]string, error) {
	return a.queryStrings(ctx, `SELECT DISTINCT artist_name FROM releases_artists ORDER BY artist_name`)
}

// ListGenres returns every distinct genre across all releases.
func (a *API) ListGenres(ctx context.Context) ([]string, error) {
	return a.queryStrings(ctx, `SELECT DISTINCT genre FROM releases_genres ORDER BY genre`)
}

// ListLabels returns every distinct label across all releases.
func (a *API) ListLabels(ctx context.Context) ([]string, error) {
	return a.queryStrings(ctx, `SELECT DISTINCT label FROM releases_labels ORDER BY label`)
}

// ListCollages returns every collage name.
func (a *API) ListCollages(ctx context.Context) ([]string, error) {
	return a.queryStrings(ctx, `SELECT name FROM collages ORDER BY name`)
}

// ListCollageReleases returns name's entries in position order (1..N,
// contiguous per spec.md's invariant) as stored in collages_releases:
// release ID, description_meta, the missing flag and the position. The
// member releases themselves are not loaded.
func (a *API) ListCollageReleases(ctx context.Context, name string) ([]model.CollageEntry, error) {
	rows, err := a.Store.DB().QueryContext(ctx, `
		SELECT release_id, description_meta, missing, position
		FROM collages_releases WHERE collage_name = ? ORDER BY position`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []model.CollageEntry
	for rows.Next() {
		var e model.CollageEntry
		if err := rows.Scan(&e.ReleaseID, &e.DescriptionMeta, &e.Missing, &e.Position); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListPlaylists returns every playlist name.
func (a *API) ListPlaylists(ctx context.Context) ([]string, error) {
	return a.queryStrings(ctx, `SELECT name FROM playlists ORDER BY name`)
}

// GetPlaylist hydrates name's track list plus its cover path, or nil
// if no such playlist exists.
func (a *API) GetPlaylist(ctx context.Context, name string) (*model.Playlist, error) {
	row := a.Store.DB().QueryRowContext(ctx, `SELECT cover_path FROM playlists WHERE name = ?`, name)
	p := &model.Playlist{Name: name}
	if err := row.Scan(&p.CoverPath); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}

	rows, err := a.Store.DB().QueryContext(ctx, `
		SELECT track_id, description_meta, missing, position
		FROM playlists_tracks WHERE playlist_name = ? ORDER BY position`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var e model.PlaylistEntry
		if err := rows.Scan(&e.TrackID, &e.DescriptionMeta, &e.Missing, &e.Position); err != nil {
			return nil, err
		}
		p.Entries = append(p.Entries, e)
	}
	return p, rows.Err()
}

// ReleaseExists reports whether idOrVirtualDirname resolves to a release.
func (a *API) ReleaseExists(ctx context.Context, idOrVirtualDirname string) (bool, error) {
	_, ok, err := a.resolveReleaseID(ctx, idOrVirtualDirname)
	return ok, err
}

// TrackExists reports whether release has a track with the given
// virtual filename.
func (a *API) TrackExists(ctx context.Context, releaseIDOrDirname, virtualFilename string) (bool, error) {
	id, ok, err := a.resolveReleaseID(ctx, releaseIDOrDirname)
	if err != nil || !ok {
		return false, err
	}
	return a.exists(ctx, `SELECT 1 FROM tracks WHERE release_id = ? AND virtual_filename = ?`, id, virtualFilename)
}

// CoverExists reports whether release's cover image has the given filename.
func (a *API) CoverExists(ctx context.Context, releaseIDOrDirname, filename string) (bool, error) {
	r, err := a.GetRelease(ctx, releaseIDOrDirname)
	if err != nil || r == nil {
		return false, err
	}
	return r.CoverImagePath != "" && filepath.Base(r.CoverImagePath) == filename, nil
}

func (a *API) ArtistExists(ctx context.Context, name string) (bool, error) {
	return a.exists(ctx, `SELECT 1 FROM releases_artists WHERE artist_name = ?`, name)
}

func (a *API) GenreExists(ctx context.Context, name string) (bool, error) {
	return a.exists(ctx, `SELECT 1 FROM releases_genres WHERE genre = ?`, name)
}

func (a *API) LabelExists(ctx context.Context, name string) (bool, error) {
	return a.exists(ctx, `SELECT 1 FROM releases_labels WHERE label = ?`, name)
}

func (a *API) CollageExists(ctx context.Context, name string) (bool, error) {
	return a.exists(ctx, `SELECT 1 FROM collages WHERE name = ?`, name)
}

func (a *API) PlaylistExists(ctx context.Context, name string) (bool, error) {
	return a.exists(ctx, `SELECT 1 FROM playlists WHERE name = ?`, name)
}

func (a *API) exists(ctx context.Context, query string, args ...any) (bool, error) {
	row := a.Store.DB().QueryRowContext(ctx, query+" LIMIT 1", args...)
	var one int
	if err := row.Scan(&one); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetReleaseIDFromVirtualDirname resolves a directory name to a release ID.
func (a *API) GetReleaseIDFromVirtualDirname(ctx context.Context, virtualDirname string) (string, bool, error) {
	row := a.Store.DB().QueryRowContext(ctx, `SELECT id FROM releases WHERE virtual_dirname = ?`, virtualDirname)
	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return id, true, nil
}

// GetReleaseVirtualDirnameFromID resolves a release ID to its current
// directory name.
func (a *API) GetReleaseVirtualDirnameFromID(ctx context.Context, id string) (string, bool, error) {
	row := a.Store.DB().QueryRowContext(ctx, `SELECT virtual_dirname FROM releases WHERE id = ?`, id)
	var name string
	if err := row.Scan(&name); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return name, true, nil
}

// GetReleaseSourcePathFromID resolves a release ID to its on-disk directory.
func (a *API) GetReleaseSourcePathFromID(ctx context.Context, id string) (string, bool, error) {
	row := a.Store.DB().QueryRowContext(ctx, `SELECT source_path FROM releases WHERE id = ?`, id)
	var path string
	if err := row.Scan(&path); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return path, true, nil
}

// GetTrackFilename resolves a track ID to its current virtual filename.
func (a *API) GetTrackFilename(ctx context.Context, trackID string) (string, bool, error) {
	row := a.Store.DB().QueryRowContext(ctx, `SELECT virtual_filename FROM tracks WHERE id = ?`, trackID)
	var name string
	if err := row.Scan(&name); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return name, true, nil
}

// GetTrackSourcePath resolves a track ID to its on-disk file path.
func (a *API) GetTrackSourcePath(ctx context.Context, trackID string) (string, bool, error) {
	row := a.Store.DB().QueryRowContext(ctx, `SELECT source_path FROM tracks WHERE id = ?`, trackID)
	var path string
	if err := row.Scan(&path); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return path, true, nil
}

// GetTrackReleaseSourceDir resolves a track ID to the on-disk directory
// of the release it belongs to, for re-indexing after a write made
// through a view (e.g. Playlists) that doesn't already know the
// release.
func (a *API) GetTrackReleaseSourceDir(ctx context.Context, trackID string) (string, bool, error) {
	row := a.Store.DB().QueryRowContext(ctx, `
		SELECT r.source_path FROM tracks t
		JOIN releases r ON r.id = t.release_id
		WHERE t.id = ?`, trackID)
	var path string
	if err := row.Scan(&path); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return path, true, nil
}

func joinAnd(clauses []string) string {
	out := clauses[0]
	for _, c := range clauses[1:] {
		out += " AND " + c
	}
	return out
}

