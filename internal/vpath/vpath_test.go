package vpath

import "testing"

func TestParseRoot(t *testing.T) {
	p, err := Parse("/")
	if err != nil || p.View != ViewRoot {
		t.Fatalf("Parse(/) = %+v, %v, want ViewRoot", p, err)
	}
}

func TestParseReleasesDepths(t *testing.T) {
	cases := []struct {
		path    string
		release string
		file    string
	}{
		{"/1. Releases", "", ""},
		{"/1. Releases/Artist - 2020. Title [Pop]", "Artist - 2020. Title [Pop]", ""},
		{"/1. Releases/Artist - 2020. Title [Pop]/01.mp3", "Artist - 2020. Title [Pop]", "01.mp3"},
	}
	for _, c := range cases {
		p, err := Parse(c.path)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", c.path, err)
		}
		if p.View != ViewReleases {
			t.Errorf("Parse(%q).View = %v, want ViewReleases", c.path, p.View)
		}
		gotRelease := ""
		if p.Release != nil {
			gotRelease = *p.Release
		}
		if gotRelease != c.release {
			t.Errorf("Parse(%q).Release = %q, want %q", c.path, gotRelease, c.release)
		}
		gotFile := ""
		if p.File != nil {
			gotFile = *p.File
		}
		if gotFile != c.file {
			t.Errorf("Parse(%q).File = %q, want %q", c.path, gotFile, c.file)
		}
	}
}

func TestParseReleasesTooDeepNotFound(t *testing.T) {
	_, err := Parse("/1. Releases/Album/file/extra")
	if err != ErrNotFound {
		t.Errorf("Parse(too deep) error = %v, want ErrNotFound", err)
	}
}

func TestParseUnknownTopLevelNotFound(t *testing.T) {
	_, err := Parse("/Nonexistent")
	if err != ErrNotFound {
		t.Errorf("Parse(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestParseRecentlyAddedStripsDatePrefix(t *testing.T) {
	p, err := Parse("/3. Releases - Recently Added/[2024-05-01] Artist - 2020. Title [Pop]")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if p.View != ViewRecentlyAdded {
		t.Fatalf("View = %v, want ViewRecentlyAdded", p.View)
	}
	if p.ReleasePosition == nil || *p.ReleasePosition != "2024-05-01" {
		t.Errorf("ReleasePosition = %v, want 2024-05-01", p.ReleasePosition)
	}
	if p.Release == nil || *p.Release != "Artist - 2020. Title [Pop]" {
		t.Errorf("Release = %v, want stripped dirname", p.Release)
	}
}

func TestParseRecentlyAddedWithoutPrefixKeepsWholeName(t *testing.T) {
	p, err := Parse("/3. Releases - Recently Added/Artist - 2020. Title [Pop]")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if p.ReleasePosition != nil {
		t.Errorf("ReleasePosition = %v, want nil", p.ReleasePosition)
	}
	if p.Release == nil || *p.Release != "Artist - 2020. Title [Pop]" {
		t.Errorf("Release = %v, want unstripped dirname", p.Release)
	}
}

func TestParseArtistsGenresLabelsDepths(t *testing.T) {
	p, err := Parse("/4. Artists/Some Artist/Album/track.mp3")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if p.View != ViewArtists || p.Artist == nil || *p.Artist != "Some Artist" {
		t.Fatalf("got %+v", p)
	}
	if p.Release == nil || *p.Release != "Album" || p.File == nil || *p.File != "track.mp3" {
		t.Fatalf("got %+v", p)
	}

	p, err = Parse("/5. Genres/Pop")
	if err != nil || p.View != ViewGenres || p.Genre == nil || *p.Genre != "Pop" {
		t.Fatalf("Parse(genres) = %+v, %v", p, err)
	}

	p, err = Parse("/6. Labels/Some Label")
	if err != nil || p.View != ViewLabels || p.Label == nil || *p.Label != "Some Label" {
		t.Fatalf("Parse(labels) = %+v, %v", p, err)
	}
}

func TestParseCollagesStripsPositionPrefix(t *testing.T) {
	p, err := Parse("/7. Collages/Favorites/03. Artist - 2020. Title [Pop]/01.mp3")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if p.View != ViewCollages || p.Collage == nil || *p.Collage != "Favorites" {
		t.Fatalf("got %+v", p)
	}
	if p.ReleasePosition == nil || *p.ReleasePosition != "03" {
		t.Errorf("ReleasePosition = %v, want 03", p.ReleasePosition)
	}
	if p.Release == nil || *p.Release != "Artist - 2020. Title [Pop]" {
		t.Errorf("Release = %v, want stripped dirname", p.Release)
	}
	if p.File == nil || *p.File != "01.mp3" {
		t.Errorf("File = %v, want 01.mp3", p.File)
	}
}

func TestParsePlaylistsStripsPositionPrefix(t *testing.T) {
	p, err := Parse("/8. Playlists/Commute/2. Artist - Track.mp3")
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if p.View != ViewPlaylists || p.Playlist == nil || *p.Playlist != "Commute" {
		t.Fatalf("got %+v", p)
	}
	if p.FilePosition == nil || *p.FilePosition != "2" {
		t.Errorf("FilePosition = %v, want 2", p.FilePosition)
	}
	if p.File == nil || *p.File != "Artist - Track.mp3" {
		t.Errorf("File = %v, want stripped filename", p.File)
	}
}

func TestParsePlaylistsTooDeepNotFound(t *testing.T) {
	_, err := Parse("/8. Playlists/Commute/1. Track.mp3/extra")
	if err != ErrNotFound {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestFormatRecentlyAdded(t *testing.T) {
	got := FormatRecentlyAdded("2024-05-01", "Artist - 2020. Title [Pop]")
	want := "[2024-05-01] Artist - 2020. Title [Pop]"
	if got != want {
		t.Errorf("FormatRecentlyAdded() = %q, want %q", got, want)
	}
}

func TestFormatCollagePositionZeroPads(t *testing.T) {
	got := FormatCollagePosition(3, CollageWidth(120), "Title")
	want := "003. Title"
	if got != want {
		t.Errorf("FormatCollagePosition() = %q, want %q", got, want)
	}
}

func TestCollageWidth(t *testing.T) {
	cases := []struct {
		count int
		want  int
	}{
		{1, 1}, {9, 1}, {10, 2}, {99, 2}, {100, 3}, {999, 3}, {1000, 4},
	}
	for _, c := range cases {
		if got := CollageWidth(c.count); got != c.want {
			t.Errorf("CollageWidth(%d) = %d, want %d", c.count, got, c.want)
		}
	}
}

func TestFormatPlaylistPosition(t *testing.T) {
	got := FormatPlaylistPosition(7, "track.mp3")
	if got != "7. track.mp3" {
		t.Errorf("FormatPlaylistPosition() = %q, want %q", got, "7. track.mp3")
	}
}
