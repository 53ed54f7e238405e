package index

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nucle0tides/rosefs/internal/config"
	"github.com/nucle0tides/rosefs/internal/model"
	"github.com/nucle0tides/rosefs/internal/store"
)

func TestPickMajorityFirstOccurrenceTiebreak(t *testing.T) {
	t.Parallel()
	got := pickMajority([]string{"B", "A", "B", "A"})
	if got != "B" {
		t.Errorf("pickMajority() = %q, want B (first to reach the max count)", got)
	}
	if got := pickMajority([]string{"", "", "Only"}); got != "Only" {
		t.Errorf("pickMajority() should ignore empty strings, got %q", got)
	}
}

func TestPickMajorityIntTiebreak(t *testing.T) {
	t.Parallel()
	if got := pickMajorityInt([]int{2020, 2021, 2020}); got != 2020 {
		t.Errorf("pickMajorityInt() = %d, want 2020", got)
	}
	if got := pickMajorityInt(nil); got != 0 {
		t.Errorf("pickMajorityInt(nil) = %d, want 0", got)
	}
}

func TestSplitDisambiguatedRoundTrip(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name     string
		wantBase string
		wantN    int
	}{
		{"Artist - 2020. Title", "Artist - 2020. Title", 1},
		{"Artist - 2020. Title [2]", "Artist - 2020. Title", 2},
		{"Artist - 2020. Title [10]", "Artist - 2020. Title", 10},
	}
	for _, tc := range cases {
		base, n := splitDisambiguated(tc.name)
		if base != tc.wantBase || n != tc.wantN {
			t.Errorf("splitDisambiguated(%q) = (%q, %d), want (%q, %d)", tc.name, base, n, tc.wantBase, tc.wantN)
		}
	}
}

func TestBuildVirtualDirnameBase(t *testing.T) {
	t.Parallel()
	year := 2020
	p := &pendingRelease{
		title:  "Title",
		year:   &year,
		genres: []string{"Pop", "Dance"},
		new:    true,
		artistRefs: []model.ArtistRef{
			{Name: "Artist", Role: "main"},
		},
	}
	got := buildVirtualDirnameBase(p)
	want := "{NEW} Artist - 2020. Title [Pop, Dance]"
	if got != want {
		t.Errorf("buildVirtualDirnameBase() = %q, want %q", got, want)
	}
}

func TestFtsTokenizeInsertsSpaceBetweenEveryCharacter(t *testing.T) {
	t.Parallel()
	got := ftsTokenize("AB", "C")
	want := "A B   C"
	if got != want {
		t.Errorf("ftsTokenize() = %q, want %q", got, want)
	}
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(context.Background(), t.TempDir()+"/cache.sqlite3", "test")
	if err != nil {
		t.Fatalf("store.Open() error: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWriteReleaseAndAliasExpansion(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	cfgHome := t.TempDir()
	if err := os.MkdirAll(filepath.Join(cfgHome, "rosefs"), 0o755); err != nil {
		t.Fatalf("create config dir: %v", err)
	}
	aliasConfig := "[[artist_aliases]]\nartist = \"Parent Group\"\naliases = [\"Solo Artist\"]\n"
	if err := os.WriteFile(filepath.Join(cfgHome, "rosefs", "config.toml"), []byte(aliasConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := config.LoadWithEnv(func(key string) string {
		if key == "XDG_CONFIG_HOME" {
			return cfgHome
		}
		return ""
	})
	if err != nil {
		t.Fatalf("config.LoadWithEnv() error: %v", err)
	}

	ix := New(cfg, st)
	year := 2022
	p := &pendingRelease{
		dir:            "/music/r1",
		id:             "rel-1",
		sidecarMtime:   time.Now().UTC().Format(time.RFC3339Nano),
		addedAt:        time.Now().UTC(),
		title:          "Debut",
		year:           &year,
		genres:         []string{"Pop"},
		artistRefs:     []model.ArtistRef{{Name: "Solo Artist", Role: "main"}},
		virtualDirname: "Solo Artist - 2022. Debut [Pop]",
		tracks: []*pendingTrack{
			{
				id:              "trk-1",
				sourcePath:      "/music/r1/01.mp3",
				sourceMtime:     time.Now().UTC().Format(time.RFC3339Nano),
				title:           "Opener",
				trackNumber:     "1",
				artistRefs:      []model.ArtistRef{{Name: "Solo Artist", Role: "main"}},
				virtualFilename: "Solo Artist - Opener.mp3",
			},
		},
	}

	ctx := context.Background()
	if err := ix.writeRelease(ctx, p); err != nil {
		t.Fatalf("writeRelease() error: %v", err)
	}

	rows, err := st.DB().QueryContext(ctx, `SELECT artist_name, alias FROM releases_artists WHERE release_id = ? ORDER BY artist_name`, p.id)
	if err != nil {
		t.Fatalf("query releases_artists: %v", err)
	}
	defer rows.Close()

	type row struct {
		name  string
		alias bool
	}
	var got []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.name, &r.alias); err != nil {
			t.Fatalf("scan: %v", err)
		}
		got = append(got, r)
	}

	want := []row{{"Parent Group", true}, {"Solo Artist", false}}
	if len(got) != len(want) {
		t.Fatalf("releases_artists rows = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("releases_artists[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestUpdateCacheEvictNonexistentReleases(t *testing.T) {
	t.Parallel()
	st := openTestStore(t)
	ix := New(config.DefaultConfig(), st)
	ctx := context.Background()

	p := &pendingRelease{
		dir:            "/does/not/exist",
		id:             "rel-gone",
		sidecarMtime:   time.Now().UTC().Format(time.RFC3339Nano),
		addedAt:        time.Now().UTC(),
		title:          "Ghost",
		virtualDirname: "Ghost",
	}
	if err := ix.writeRelease(ctx, p); err != nil {
		t.Fatalf("writeRelease() error: %v", err)
	}

	if err := ix.UpdateCacheEvictNonexistentReleases(ctx); err != nil {
		t.Fatalf("UpdateCacheEvictNonexistentReleases() error: %v", err)
	}

	row := st.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM releases WHERE id = ?`, p.id)
	var count int
	if err := row.Scan(&count); err != nil {
		t.Fatalf("scan count: %v", err)
	}
	if count != 0 {
		t.Errorf("release should have been evicted, found %d rows", count)
	}
}
