package cache

import (
	"context"
	"testing"
	"time"

	"github.com/nucle0tides/rosefs/internal/store"
)

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), t.TempDir()+"/cache.sqlite3", "test")
	if err != nil {
		t.Fatalf("store.Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// seedRelease inserts one release with one track, one genre, one label
// and one direct artist credit, bypassing the indexer entirely.
func seedRelease(t *testing.T, st *store.Store, id, virtualDirname, artist, genre, label string, isNew bool) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := st.DB().ExecContext(ctx, `
		INSERT INTO releases (id, source_path, sidecar_mtime, added_at, new, title, release_type, year, multidisc, formatted_artists, cover_image_path, virtual_dirname)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, "/music/"+id, now, now, isNew, "Title "+id, "album", 2020, false, artist, "/music/"+id+"/cover.jpg", virtualDirname,
	)
	if err != nil {
		t.Fatalf("insert release: %v", err)
	}
	if _, err := st.DB().ExecContext(ctx, `INSERT INTO releases_genres (release_id, genre) VALUES (?, ?)`, id, genre); err != nil {
		t.Fatalf("insert genre: %v", err)
	}
	if _, err := st.DB().ExecContext(ctx, `INSERT INTO releases_labels (release_id, label) VALUES (?, ?)`, id, label); err != nil {
		t.Fatalf("insert label: %v", err)
	}
	if _, err := st.DB().ExecContext(ctx, `INSERT INTO releases_artists (release_id, artist_name, role, alias) VALUES (?, ?, 'main', 0)`, id, artist); err != nil {
		t.Fatalf("insert artist: %v", err)
	}
	trackID := id + "-t1"
	if _, err := st.DB().ExecContext(ctx, `
		INSERT INTO tracks (id, release_id, source_path, source_mtime, virtual_filename, title, disc_number, track_number, duration_seconds, formatted_artists, formatted_release_position)
		VALUES (?, ?, ?, ?, ?, ?, '1', '1', 120, ?, '1')`,
		trackID, id, "/music/"+id+"/01.mp3", now, artist+" - Opener.mp3", "Opener", artist,
	); err != nil {
		t.Fatalf("insert track: %v", err)
	}
	if _, err := st.DB().ExecContext(ctx, `INSERT INTO tracks_artists (track_id, artist_name, role, alias) VALUES (?, ?, 'main', 0)`, trackID, artist); err != nil {
		t.Fatalf("insert track artist: %v", err)
	}
}

func TestGetReleaseByIDAndVirtualDirname(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	seedRelease(t, st, "rel-1", "Artist - 2020. Title rel-1 [Pop]", "Artist", "Pop", "Some Label", false)
	a := New(st)
	ctx := context.Background()

	byID, err := a.GetRelease(ctx, "rel-1")
	if err != nil || byID == nil {
		t.Fatalf("GetRelease(by id) = %v, %v", byID, err)
	}
	byDirname, err := a.GetRelease(ctx, "Artist - 2020. Title rel-1 [Pop]")
	if err != nil || byDirname == nil {
		t.Fatalf("GetRelease(by dirname) = %v, %v", byDirname, err)
	}
	if byID.ID != byDirname.ID {
		t.Errorf("resolved different releases: %q vs %q", byID.ID, byDirname.ID)
	}
	if len(byID.Tracks) != 1 || byID.Tracks[0].Title != "Opener" {
		t.Errorf("hydrated tracks = %+v, want one track titled Opener", byID.Tracks)
	}
	if len(byID.ArtistRefs) != 1 || byID.ArtistRefs[0].Name != "Artist" {
		t.Errorf("hydrated artist refs = %+v", byID.ArtistRefs)
	}
	if byID.Year == nil || *byID.Year != 2020 {
		t.Errorf("Year = %v, want 2020", byID.Year)
	}

	missing, err := a.GetRelease(ctx, "does-not-exist")
	if err != nil || missing != nil {
		t.Errorf("GetRelease(missing) = %v, %v, want nil, nil", missing, err)
	}
}

func TestListReleasesFilterDimensions(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	seedRelease(t, st, "rel-1", "A - 2020. One [Pop]", "Artist One", "Pop", "Label One", true)
	seedRelease(t, st, "rel-2", "B - 2020. Two [Rock]", "Artist Two", "Rock", "Label Two", false)
	a := New(st)
	ctx := context.Background()

	byArtist, err := a.ListReleases(ctx, ReleaseFilter{Artist: strPtr("Artist One")})
	if err != nil || len(byArtist) != 1 || byArtist[0].ID != "rel-1" {
		t.Fatalf("ListReleases(artist) = %+v, %v", byArtist, err)
	}

	byGenre, err := a.ListReleases(ctx, ReleaseFilter{Genre: strPtr("Rock")})
	if err != nil || len(byGenre) != 1 || byGenre[0].ID != "rel-2" {
		t.Fatalf("ListReleases(genre) = %+v, %v", byGenre, err)
	}

	byLabel, err := a.ListReleases(ctx, ReleaseFilter{Label: strPtr("Label One")})
	if err != nil || len(byLabel) != 1 || byLabel[0].ID != "rel-1" {
		t.Fatalf("ListReleases(label) = %+v, %v", byLabel, err)
	}

	isNew := true
	byNew, err := a.ListReleases(ctx, ReleaseFilter{New: &isNew})
	if err != nil || len(byNew) != 1 || byNew[0].ID != "rel-1" {
		t.Fatalf("ListReleases(new) = %+v, %v", byNew, err)
	}

	all, err := a.ListReleases(ctx, ReleaseFilter{})
	if err != nil || len(all) != 2 {
		t.Fatalf("ListReleases(no filter) = %+v, %v", all, err)
	}
}

func TestExistenceProbes(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	seedRelease(t, st, "rel-1", "Artist - 2020. Title rel-1 [Pop]", "Artist", "Pop", "Label", false)
	a := New(st)
	ctx := context.Background()

	cases := []struct {
		name string
		got  func() (bool, error)
		want bool
	}{
		{"release exists", func() (bool, error) { return a.ReleaseExists(ctx, "rel-1") }, true},
		{"release missing", func() (bool, error) { return a.ReleaseExists(ctx, "nope") }, false},
		{"track exists", func() (bool, error) { return a.TrackExists(ctx, "rel-1", "Artist - Opener.mp3") }, true},
		{"track missing", func() (bool, error) { return a.TrackExists(ctx, "rel-1", "nope.mp3") }, false},
		{"cover exists", func() (bool, error) { return a.CoverExists(ctx, "rel-1", "cover.jpg") }, true},
		{"cover missing", func() (bool, error) { return a.CoverExists(ctx, "rel-1", "nope.jpg") }, false},
		{"artist exists", func() (bool, error) { return a.ArtistExists(ctx, "Artist") }, true},
		{"genre exists", func() (bool, error) { return a.GenreExists(ctx, "Pop") }, true},
		{"label exists", func() (bool, error) { return a.LabelExists(ctx, "Label") }, true},
		{"label missing", func() (bool, error) { return a.LabelExists(ctx, "Nope") }, false},
	}
	for _, tc := range cases {
		got, err := tc.got()
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
			continue
		}
		if got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestResolvers(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	seedRelease(t, st, "rel-1", "Artist - 2020. Title rel-1 [Pop]", "Artist", "Pop", "Label", false)
	a := New(st)
	ctx := context.Background()

	id, ok, err := a.GetReleaseIDFromVirtualDirname(ctx, "Artist - 2020. Title rel-1 [Pop]")
	if err != nil || !ok || id != "rel-1" {
		t.Fatalf("GetReleaseIDFromVirtualDirname() = %q, %v, %v", id, ok, err)
	}

	dirname, ok, err := a.GetReleaseVirtualDirnameFromID(ctx, "rel-1")
	if err != nil || !ok || dirname != "Artist - 2020. Title rel-1 [Pop]" {
		t.Fatalf("GetReleaseVirtualDirnameFromID() = %q, %v, %v", dirname, ok, err)
	}

	path, ok, err := a.GetReleaseSourcePathFromID(ctx, "rel-1")
	if err != nil || !ok || path != "/music/rel-1" {
		t.Fatalf("GetReleaseSourcePathFromID() = %q, %v, %v", path, ok, err)
	}

	filename, ok, err := a.GetTrackFilename(ctx, "rel-1-t1")
	if err != nil || !ok || filename != "Artist - Opener.mp3" {
		t.Fatalf("GetTrackFilename() = %q, %v, %v", filename, ok, err)
	}

	if _, ok, err := a.GetReleaseIDFromVirtualDirname(ctx, "nope"); err != nil || ok {
		t.Errorf("GetReleaseIDFromVirtualDirname(missing) = ok=%v, err=%v", ok, err)
	}
}

func TestListCollageReleasesPositionOrder(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	seedRelease(t, st, "rel-1", "A - 2020. One [Pop]", "Artist One", "Pop", "Label", false)
	seedRelease(t, st, "rel-2", "B - 2020. Two [Pop]", "Artist Two", "Pop", "Label", false)
	ctx := context.Background()

	if _, err := st.DB().ExecContext(ctx, `INSERT INTO collages (name) VALUES ('Favorites')`); err != nil {
		t.Fatalf("insert collage: %v", err)
	}
	if _, err := st.DB().ExecContext(ctx, `
		INSERT INTO collages_releases (collage_name, release_id, description_meta, missing, position)
		VALUES ('Favorites', 'rel-2', 'B - 2020. Two [Pop]', 0, 1), ('Favorites', 'rel-1', 'A - 2020. One [Pop]', 0, 2)`); err != nil {
		t.Fatalf("insert collage releases: %v", err)
	}

	a := New(st)
	entries, err := a.ListCollageReleases(ctx, "Favorites")
	if err != nil {
		t.Fatalf("ListCollageReleases() error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %+v, want 2", entries)
	}
	if entries[0].Position != 1 || entries[0].ReleaseID != "rel-2" {
		t.Errorf("entries[0] = %+v, want position 1 / rel-2", entries[0])
	}
	if entries[1].Position != 2 || entries[1].ReleaseID != "rel-1" {
		t.Errorf("entries[1] = %+v, want position 2 / rel-1", entries[1])
	}
}

func TestGetPlaylist(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	seedRelease(t, st, "rel-1", "A - 2020. One [Pop]", "Artist", "Pop", "Label", false)
	ctx := context.Background()

	if _, err := st.DB().ExecContext(ctx, `INSERT INTO playlists (name, cover_path) VALUES ('Mix', '/music/!playlists/Mix.jpg')`); err != nil {
		t.Fatalf("insert playlist: %v", err)
	}
	if _, err := st.DB().ExecContext(ctx, `
		INSERT INTO playlists_tracks (playlist_name, track_id, description_meta, missing, position)
		VALUES ('Mix', 'rel-1-t1', 'Artist - Opener.mp3', 0, 1)`); err != nil {
		t.Fatalf("insert playlist track: %v", err)
	}

	a := New(st)
	p, err := a.GetPlaylist(ctx, "Mix")
	if err != nil || p == nil {
		t.Fatalf("GetPlaylist() = %v, %v", p, err)
	}
	if p.CoverPath != "/music/!playlists/Mix.jpg" {
		t.Errorf("CoverPath = %q", p.CoverPath)
	}
	if len(p.Entries) != 1 || p.Entries[0].TrackID != "rel-1-t1" {
		t.Errorf("Entries = %+v", p.Entries)
	}

	none, err := a.GetPlaylist(ctx, "nope")
	if err != nil || none != nil {
		t.Errorf("GetPlaylist(missing) = %v, %v, want nil, nil", none, err)
	}
}

func TestListArtistsGenresLabelsCollagesPlaylists(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	seedRelease(t, st, "rel-1", "A - 2020. One [Pop]", "Artist One", "Pop", "Label One", false)
	seedRelease(t, st, "rel-2", "B - 2020. Two [Rock]", "Artist Two", "Rock", "Label Two", false)
	ctx := context.Background()
	a := New(st)

	artists, err := a.ListArtists(ctx)
	if err != nil || len(artists) != 2 {
		t.Fatalf("ListArtists() = %+v, %v", artists, err)
	}
	genres, err := a.ListGenres(ctx)
	if err != nil || len(genres) != 2 {
		t.Fatalf("ListGenres() = %+v, %v", genres, err)
	}
	labels, err := a.ListLabels(ctx)
	if err != nil || len(labels) != 2 {
		t.Fatalf("ListLabels() = %+v, %v", labels, err)
	}

	if _, err := st.DB().ExecContext(ctx, `INSERT INTO collages (name) VALUES ('Favorites')`); err != nil {
		t.Fatalf("insert collage: %v", err)
	}
	if _, err := st.DB().ExecContext(ctx, `INSERT INTO playlists (name) VALUES ('Mix')`); err != nil {
		t.Fatalf("insert playlist: %v", err)
	}
	collages, err := a.ListCollages(ctx)
	if err != nil || len(collages) != 1 || collages[0] != "Favorites" {
		t.Errorf("ListCollages() = %+v, %v", collages, err)
	}
	playlists, err := a.ListPlaylists(ctx)
	if err != nil || len(playlists) != 1 || playlists[0] != "Mix" {
		t.Errorf("ListPlaylists() = %+v, %v", playlists, err)
	}
}

func strPtr(s string) *string { return &s }
