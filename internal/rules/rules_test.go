package rules

import (
	"bytes"
	"context"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/nucle0tides/rosefs/internal/audiotags"
	"github.com/nucle0tides/rosefs/internal/config"
	"github.com/nucle0tides/rosefs/internal/errs"
	"github.com/nucle0tides/rosefs/internal/store"
)

func TestToLikePatternAnchors(t *testing.T) {
	cases := []struct {
		matcher string
		want    string
	}{
		{"foo", "%foo%"},
		{"^foo", "foo%"},
		{"foo$", "%foo"},
		{"^foo$", "foo"},
		{"50%", `%50\%%`},
		{"a_b", `%a\_b%`},
	}
	for _, c := range cases {
		if got := ToLikePattern(c.matcher); got != c.want {
			t.Errorf("ToLikePattern(%q) = %q, want %q", c.matcher, got, c.want)
		}
	}
}

func TestMatches(t *testing.T) {
	cases := []struct {
		matcher, value string
		want           bool
	}{
		{"rock", "Classic Rock", true},
		{"^Classic", "Classic Rock", true},
		{"^Rock", "Classic Rock", false},
		{"Rock$", "Classic Rock", true},
		{"Rock$", "Rock Classic", false},
		{"^Classic Rock$", "Classic Rock", true},
		{"^Classic Rock$", "Classic Rock ", false},
	}
	for _, c := range cases {
		if got := Matches(c.matcher, c.value); got != c.want {
			t.Errorf("Matches(%q, %q) = %v, want %v", c.matcher, c.value, got, c.want)
		}
	}
}

func TestMatchesAny(t *testing.T) {
	if !MatchesAny("^Pop", []string{"Rock", "Pop Rock"}) {
		t.Error("MatchesAny should match Pop Rock")
	}
	if MatchesAny("^Pop$", []string{"Rock", "Pop Rock"}) {
		t.Error("MatchesAny should not match anchored Pop against Pop Rock")
	}
}

func TestParseActionKinds(t *testing.T) {
	a, err := ParseAction("replace:New Title")
	if err != nil || a.Kind != ActionReplace || a.Replacement != "New Title" {
		t.Fatalf("replace parse = %+v, %v", a, err)
	}

	a, err = ParseAction("replace_all:Rock;Pop;Jazz")
	if err != nil || a.Kind != ActionReplaceAll || len(a.ReplacementAll) != 3 {
		t.Fatalf("replace_all parse = %+v, %v", a, err)
	}

	a, err = ParseAction("sed:^The (.*):$1")
	if err != nil || a.Kind != ActionSed || a.SedPattern == nil || a.SedReplacement != "$1" {
		t.Fatalf("sed parse = %+v, %v", a, err)
	}

	a, err = ParseAction("split:;")
	if err != nil || a.Kind != ActionSplit || a.SplitDelimiter != ";" {
		t.Fatalf("split parse = %+v, %v", a, err)
	}

	a, err = ParseAction("delete")
	if err != nil || a.Kind != ActionDelete {
		t.Fatalf("delete parse = %+v, %v", a, err)
	}

	if _, err := ParseAction("sed:missing-replacement"); err == nil {
		t.Error("sed without replacement should error")
	}
	if _, err := ParseAction("split:"); err == nil {
		t.Error("split without delimiter should error")
	}
	if _, err := ParseAction("bogus:x"); err == nil {
		t.Error("unknown action kind should error")
	}
}

func TestParseRuleRejectsMultiValueActionsOnScalarFields(t *testing.T) {
	if _, err := ParseRule("x", []string{"tracktitle"}, "replace_all:a;b"); err == nil {
		t.Error("replace_all on tracktitle should error")
	}
	if _, err := ParseRule("x", []string{"year"}, "split:;"); err == nil {
		t.Error("split on year should error")
	}
	if _, err := ParseRule("x", []string{"genre"}, "replace_all:Rock;Pop"); err != nil {
		t.Errorf("replace_all on genre should be valid, got %v", err)
	}
	if _, err := ParseRule("x", []string{"bogus"}, "delete"); err == nil {
		t.Error("unknown tag field should error")
	}
}

func TestApplySingleValueReplace(t *testing.T) {
	action := Action{Kind: ActionReplace, Replacement: "New"}
	got, changed, err := applySingleValue(action, TagTrackTitle, "Old")
	if err != nil || !changed || got != "New" {
		t.Fatalf("applySingleValue(replace) = %q, %v, %v", got, changed, err)
	}
}

func TestApplySingleValueYearRejectsNonInteger(t *testing.T) {
	action := Action{Kind: ActionReplace, Replacement: "not-a-year"}
	if _, _, err := applySingleValue(action, TagYear, "2020"); err == nil {
		t.Error("non-integer year replacement should error")
	}
}

func TestApplySingleValueSed(t *testing.T) {
	action := Action{Kind: ActionSed, SedPattern: regexp.MustCompile(`^The `), SedReplacement: ""}
	got, changed, err := applySingleValue(action, TagAlbumTitle, "The Wall")
	if err != nil || !changed || got != "Wall" {
		t.Fatalf("applySingleValue(sed) = %q, %v, %v", got, changed, err)
	}
}

func TestApplySingleValueDelete(t *testing.T) {
	action := Action{Kind: ActionDelete}
	got, changed, err := applySingleValue(action, TagReleaseType, "album")
	if err != nil || !changed || got != "" {
		t.Fatalf("applySingleValue(delete) = %q, %v, %v", got, changed, err)
	}
	if _, changed, _ := applySingleValue(action, TagReleaseType, ""); changed {
		t.Error("deleting an already-empty value should report unchanged")
	}
}

func TestApplyMultiValueReplaceAll(t *testing.T) {
	action := Action{Kind: ActionReplaceAll, ReplacementAll: []string{"Rock", "Pop"}}
	got, changed, err := applyMultiValue("", action, TagGenre, []string{"Jazz"})
	if err != nil || !changed || len(got) != 2 || got[0] != "Rock" || got[1] != "Pop" {
		t.Fatalf("applyMultiValue(replace_all) = %v, %v, %v", got, changed, err)
	}
}

func TestApplyMultiValueSplit(t *testing.T) {
	action := Action{Kind: ActionSplit, SplitDelimiter: ","}
	got, changed, err := applyMultiValue("", action, TagGenre, []string{"Rock,Pop", "Jazz"})
	if err != nil || !changed {
		t.Fatalf("applyMultiValue(split) error = %v", err)
	}
	want := []string{"Rock", "Pop", "Jazz"}
	if len(got) != len(want) {
		t.Fatalf("applyMultiValue(split) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("applyMultiValue(split)[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestApplyMultiValueSplitOnlyTouchesMatchingElements(t *testing.T) {
	action := Action{Kind: ActionSplit, SplitDelimiter: ","}
	got, changed, err := applyMultiValue("^rock,pop$", action, TagGenre, []string{"Rock,Pop", "Jazz"})
	if err != nil || !changed {
		t.Fatalf("applyMultiValue(split) error = %v", err)
	}
	want := []string{"Rock", "Pop", "Jazz"}
	if len(got) != len(want) {
		t.Fatalf("applyMultiValue(split) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("applyMultiValue(split)[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// With a trailing part that has leading/trailing whitespace, it
	// must come out trimmed.
	got, _, err = applyMultiValue("^rock, pop $", action, TagGenre, []string{"Rock, Pop "})
	if err != nil {
		t.Fatalf("applyMultiValue(split) error = %v", err)
	}
	if len(got) != 2 || got[0] != "Rock" || got[1] != "Pop" {
		t.Fatalf("applyMultiValue(split) trimming = %v, want [Rock Pop]", got)
	}
}

func TestApplyMultiValueFallsBackToSingleValuePerElement(t *testing.T) {
	action := Action{Kind: ActionDelete}
	got, changed, err := applyMultiValue("", action, TagGenre, []string{"Rock", "Pop"})
	if err != nil || !changed || len(got) != 0 {
		t.Fatalf("applyMultiValue(delete) = %v, %v, %v", got, changed, err)
	}
}

func TestApplyYearSedToNonIntegerRaisesInvalidReplacement(t *testing.T) {
	action := Action{Kind: ActionSed, SedPattern: regexp.MustCompile(`^\d+`), SedReplacement: "nineteen"}
	tags := &audiotags.Tags{Year: 1999}
	_, err := applyYear(action, tags)
	if err == nil {
		t.Fatal("applyYear(sed -> non-integer) should error")
	}
	if !errs.Is(err, errs.KindInvalidReplacement) {
		t.Errorf("applyYear(sed -> non-integer) error = %v, want KindInvalidReplacement", err)
	}
	if tags.Year != 1999 {
		t.Errorf("applyYear(sed -> non-integer) mutated tags.Year to %d, want unchanged 1999", tags.Year)
	}
}

func TestApplyMultiValueDoesNotClobberNonMatchingElements(t *testing.T) {
	action := Action{Kind: ActionReplace, Replacement: "K-Pop"}
	got, changed, err := applyMultiValue("^kpop$", action, TagGenre, []string{"kpop", "rock"})
	if err != nil || !changed {
		t.Fatalf("applyMultiValue(replace) error = %v", err)
	}
	want := []string{"K-Pop", "rock"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("applyMultiValue(replace) = %v, want %v", got, want)
	}
}

// newTestEngine opens an isolated cache database and returns an Engine
// over it, with no source tree on disk (these tests only exercise the
// cache-side candidate query, never audiotags.Load).
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cacheDir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.MusicSourceDir = t.TempDir()
	cfg.CacheDir = cacheDir

	st, err := store.Open(context.Background(), store.DefaultDBPath(cacheDir), cfg.Hash())
	if err != nil {
		t.Fatalf("store.Open() error: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	return New(cfg, st)
}

// seedCandidateFixture inserts one release with one track plus genre,
// label and artist rows, directly via SQL, so candidates() can be
// exercised without real audio fixtures.
func seedCandidateFixture(t *testing.T, e *Engine) {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := e.Store.DB().ExecContext(ctx, `
		INSERT INTO releases (id, source_path, sidecar_mtime, added_at, new, title, release_type, year, multidisc, formatted_artists, cover_image_path, virtual_dirname)
		VALUES ('rel1', '/music/rel1', ?, ?, 0, 'Classic Rock Anthology', 'album', 1999, 0, '', '', 'Classic Rock Anthology')`,
		now, now,
	)
	if err != nil {
		t.Fatalf("insert release: %v", err)
	}
	_, err = e.Store.DB().ExecContext(ctx, `
		INSERT INTO tracks (id, release_id, source_path, source_mtime, virtual_filename, title, disc_number, track_number, duration_seconds, formatted_artists, formatted_release_position)
		VALUES ('trk1', 'rel1', '/music/rel1/01.mp3', ?, '01.mp3', 'Opening Riff', '1', '1', 120, '', '')`,
		now,
	)
	if err != nil {
		t.Fatalf("insert track: %v", err)
	}
	if _, err := e.Store.DB().ExecContext(ctx, `INSERT INTO releases_genres (release_id, genre) VALUES ('rel1', 'Rock')`); err != nil {
		t.Fatalf("insert genre: %v", err)
	}
	if _, err := e.Store.DB().ExecContext(ctx, `INSERT INTO releases_labels (release_id, label) VALUES ('rel1', 'Big Label')`); err != nil {
		t.Fatalf("insert label: %v", err)
	}
	if _, err := e.Store.DB().ExecContext(ctx, `INSERT INTO releases_artists (release_id, artist_name, role, alias) VALUES ('rel1', 'The Band', 'main', 0)`); err != nil {
		t.Fatalf("insert release artist: %v", err)
	}
}

func TestCandidatesMatchesOnTrackTitle(t *testing.T) {
	e := newTestEngine(t)
	seedCandidateFixture(t, e)

	rule, err := ParseRule("Riff", []string{"tracktitle"}, "delete")
	if err != nil {
		t.Fatalf("ParseRule() error: %v", err)
	}
	cands, err := e.candidates(context.Background(), rule)
	if err != nil {
		t.Fatalf("candidates() error: %v", err)
	}
	if len(cands) != 1 || cands[0].trackSourcePath != "/music/rel1/01.mp3" {
		t.Fatalf("candidates() = %+v, want one match on trk1", cands)
	}
}

func TestCandidatesMatchesOnGenreAndLabelIndependently(t *testing.T) {
	e := newTestEngine(t)
	seedCandidateFixture(t, e)

	genreRule, err := ParseRule("Rock", []string{"genre"}, "delete")
	if err != nil {
		t.Fatalf("ParseRule() error: %v", err)
	}
	cands, err := e.candidates(context.Background(), genreRule)
	if err != nil {
		t.Fatalf("candidates(genre) error: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("candidates(genre) = %+v, want one match via releases_genres", cands)
	}

	labelRule, err := ParseRule("Big Label", []string{"label"}, "delete")
	if err != nil {
		t.Fatalf("ParseRule() error: %v", err)
	}
	cands, err = e.candidates(context.Background(), labelRule)
	if err != nil {
		t.Fatalf("candidates(label) error: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("candidates(label) = %+v, want one match via releases_labels joined on its own release_id", cands)
	}

	noMatchRule, err := ParseRule("Nonexistent", []string{"label"}, "delete")
	if err != nil {
		t.Fatalf("ParseRule() error: %v", err)
	}
	cands, err = e.candidates(context.Background(), noMatchRule)
	if err != nil {
		t.Fatalf("candidates(no match) error: %v", err)
	}
	if len(cands) != 0 {
		t.Fatalf("candidates(no match) = %+v, want none", cands)
	}
}

// TestCandidatesLabelMatchesOnReleaseWithNoGenre guards against the
// join-alias bug present in original_source/rose/rules.py's candidate
// query: there, releases_labels is joined using releases_genres's
// alias, so a release with a label but no genre row at all would fail
// to match any label rule (its LEFT JOIN'd genre row is NULL, and the
// mistaken join condition compares against that NULL). rel2 here
// carries a label and deliberately no genre row.
func TestCandidatesLabelMatchesOnReleaseWithNoGenre(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	now := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := e.Store.DB().ExecContext(ctx, `
		INSERT INTO releases (id, source_path, sidecar_mtime, added_at, new, title, release_type, year, multidisc, formatted_artists, cover_image_path, virtual_dirname)
		VALUES ('rel2', '/music/rel2', ?, ?, 0, 'Quiet Pressing', '', NULL, 0, '', '', 'Quiet Pressing')`,
		now, now,
	)
	if err != nil {
		t.Fatalf("insert release: %v", err)
	}
	_, err = e.Store.DB().ExecContext(ctx, `
		INSERT INTO tracks (id, release_id, source_path, source_mtime, virtual_filename, title, disc_number, track_number, duration_seconds, formatted_artists, formatted_release_position)
		VALUES ('trk2', 'rel2', '/music/rel2/01.mp3', ?, '01.mp3', 'Side A', '1', '1', 120, '', '')`,
		now,
	)
	if err != nil {
		t.Fatalf("insert track: %v", err)
	}
	if _, err := e.Store.DB().ExecContext(ctx, `INSERT INTO releases_labels (release_id, label) VALUES ('rel2', 'Quiet Label')`); err != nil {
		t.Fatalf("insert label: %v", err)
	}

	rule, err := ParseRule("Quiet Label", []string{"label"}, "delete")
	if err != nil {
		t.Fatalf("ParseRule() error: %v", err)
	}
	cands, err := e.candidates(ctx, rule)
	if err != nil {
		t.Fatalf("candidates() error: %v", err)
	}
	if len(cands) != 1 || cands[0].trackSourcePath != "/music/rel2/01.mp3" {
		t.Fatalf("candidates() = %+v, want one match on trk2's label despite no genre row", cands)
	}
}

func TestCandidatesMatchesOnArtist(t *testing.T) {
	e := newTestEngine(t)
	seedCandidateFixture(t, e)

	rule, err := ParseRule("^The Band$", []string{"artist"}, "delete")
	if err != nil {
		t.Fatalf("ParseRule() error: %v", err)
	}
	cands, err := e.candidates(context.Background(), rule)
	if err != nil {
		t.Fatalf("candidates(artist) error: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("candidates(artist) = %+v, want one match via releases_artists", cands)
	}
}

func TestCandidatesNoTargetFieldsReturnsEmpty(t *testing.T) {
	e := newTestEngine(t)
	seedCandidateFixture(t, e)

	cands, err := e.candidates(context.Background(), Rule{Matcher: "anything"})
	if err != nil {
		t.Fatalf("candidates() error: %v", err)
	}
	if len(cands) != 0 {
		t.Fatalf("candidates() with no tag fields = %+v, want empty", cands)
	}
}

func TestConfirmBelowThresholdRespectsYesNo(t *testing.T) {
	changes := make([]Change, 3)
	for i := range changes {
		changes[i] = Change{TrackSourcePath: string(rune('a' + i))}
	}

	var out bytes.Buffer
	ok, err := confirm(changes, RunOptions{Stdin: strings.NewReader("y\n"), Stdout: &out})
	if err != nil || !ok {
		t.Fatalf("confirm(y) = %v, %v", ok, err)
	}
}

func TestConfirmBelowThresholdRejectsNo(t *testing.T) {
	changes := []Change{{TrackSourcePath: "a"}}

	var out bytes.Buffer
	ok, err := confirm(changes, RunOptions{Stdin: strings.NewReader("n\n"), Stdout: &out})
	if err != nil || ok {
		t.Fatalf("confirm(n) = %v, %v", ok, err)
	}
}

func TestConfirmAboveThresholdRequiresExactCount(t *testing.T) {
	changes := make([]Change, confirmThreshold+1)
	for i := range changes {
		changes[i] = Change{TrackSourcePath: "track" + string(rune(i))}
	}

	var out bytes.Buffer
	ok, err := confirm(changes, RunOptions{Stdin: strings.NewReader("not the count\n"), Stdout: &out})
	if err != nil || ok {
		t.Fatal("confirm() above threshold should reject a non-matching response")
	}

	ok, err = confirm(changes, RunOptions{Stdin: strings.NewReader("26\n"), Stdout: &out})
	if err != nil || !ok {
		t.Fatalf("confirm() above threshold should accept the exact count, got %v, %v", ok, err)
	}
}

func TestConfirmYesSkipsPrompt(t *testing.T) {
	ok, err := confirm(nil, RunOptions{ConfirmYes: true})
	if err != nil || !ok {
		t.Fatalf("confirm(ConfirmYes) = %v, %v", ok, err)
	}
}
