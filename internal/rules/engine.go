package rules

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/nucle0tides/rosefs/internal/artiststr"
	"github.com/nucle0tides/rosefs/internal/audiotags"
	"github.com/nucle0tides/rosefs/internal/config"
	"github.com/nucle0tides/rosefs/internal/errs"
	"github.com/nucle0tides/rosefs/internal/index"
	"github.com/nucle0tides/rosefs/internal/store"
)

// confirmThreshold is the changed-track count above which ExecuteRule demands
// the user type the exact count back rather than a plain yes/no,
// mirroring original_source/rose/rules.py's confirmation gate.
const confirmThreshold = 25

// Engine runs metadata rules against the Read Cache Store and the
// audio files it mirrors. Grounded on
// original_source/rose/rules.py's execute_metadata_rule /
// execute_stored_metadata_rules: a cheap cache-side candidate search
// followed by a strict disk-side re-match before anything is written.
type Engine struct {
	Config *config.Config
	Store  *store.Store
	Index  *index.Indexer
}

// New builds an Engine over cfg and st.
func New(cfg *config.Config, st *store.Store) *Engine {
	return &Engine{Config: cfg, Store: st, Index: index.New(cfg, st)}
}

// Change records one tag field actually rewritten on one track.
type Change struct {
	ReleaseSourcePath string
	TrackSourcePath   string
	Field             TagField
	Before            string
	After             string
}

// RunOptions configures ExecuteRule's confirmation and output
// behavior.
type RunOptions struct {
	DryRun     bool
	ConfirmYes bool
	Stdin      io.Reader
	Stdout     io.Writer
}

type candidate struct {
	releaseSourcePath string
	trackSourcePath   string
}

// candidateColumns maps each TagField to the cache columns a candidate
// search should scan. artist checks both the release-level and
// track-level artist tables, since a rule's "artist" field matches a
// credit at either level.
func candidateColumns(field TagField) []string {
	switch field {
	case TagTrackTitle:
		return []string{"t.title"}
	case TagYear:
		return []string{"CAST(r.year AS TEXT)"}
	case TagTrackNumber:
		return []string{"t.track_number"}
	case TagDiscNumber:
		return []string{"t.disc_number"}
	case TagAlbumTitle:
		return []string{"r.title"}
	case TagReleaseType:
		return []string{"r.release_type"}
	case TagGenre:
		return []string{"rg.genre"}
	case TagLabel:
		return []string{"rl.label"}
	case TagArtist:
		return []string{"ra.artist_name", "ta.artist_name"}
	default:
		return nil
	}
}

// candidates runs the cheap SQL LIKE pass: a candidate track qualifies
// if any of the rule's target tag fields contains a value the matcher
// could plausibly match. The releases_labels join uses rl.release_id =
// r.id, unlike original_source/rose/rules.py's candidate query, which
// joins it against the releases_genres alias (rg) by copy-paste
// mistake; see DESIGN.md.
func (e *Engine) candidates(ctx context.Context, rule Rule) ([]candidate, error) {
	pattern := ToLikePattern(rule.Matcher)

	var clauses []string
	var args []any
	for _, field := range rule.Tags {
		for _, col := range candidateColumns(field) {
			clauses = append(clauses, fmt.Sprintf("%s LIKE ? ESCAPE '\\'", col))
			args = append(args, pattern)
		}
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	query := `
		SELECT DISTINCT r.source_path, t.source_path
		FROM tracks t
		JOIN releases r ON t.release_id = r.id
		LEFT JOIN releases_genres rg ON rg.release_id = r.id
		LEFT JOIN releases_labels rl ON rl.release_id = r.id
		LEFT JOIN releases_artists ra ON ra.release_id = r.id
		LEFT JOIN tracks_artists ta ON ta.track_id = t.id
		WHERE ` + strings.Join(clauses, " OR ")

	rows, err := e.Store.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("rules: candidate query: %w", err)
	}
	defer rows.Close()

	var out []candidate
	for rows.Next() {
		var c candidate
		if err := rows.Scan(&c.releaseSourcePath, &c.trackSourcePath); err != nil {
			return nil, fmt.Errorf("rules: scan candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ExecuteRule runs rule once: cheap candidate search, strict disk
// re-match, then (unless DryRun) a confirm prompt and the actual tag
// rewrite + targeted re-index.
func (e *Engine) ExecuteRule(ctx context.Context, rule Rule, opts RunOptions) ([]Change, error) {
	cands, err := e.candidates(ctx, rule)
	if err != nil {
		return nil, err
	}

	loaded := make(map[string]*audiotags.Tags)
	releaseOf := make(map[string]string)
	var changes []Change

	for _, c := range cands {
		tags, ok := loaded[c.trackSourcePath]
		if !ok {
			tags, err = audiotags.Load(c.trackSourcePath)
			if err != nil {
				continue
			}
			loaded[c.trackSourcePath] = tags
			releaseOf[c.trackSourcePath] = c.releaseSourcePath
		}

		trackChanges, err := applyRuleToTags(rule, tags)
		if err != nil {
			return nil, err
		}
		for i := range trackChanges {
			trackChanges[i].ReleaseSourcePath = c.releaseSourcePath
			trackChanges[i].TrackSourcePath = c.trackSourcePath
		}
		changes = append(changes, trackChanges...)
	}

	if len(changes) == 0 || opts.DryRun {
		return changes, nil
	}

	ok, err := confirm(changes, opts)
	if err != nil || !ok {
		return changes, err
	}

	releaseDirs := map[string]bool{}
	for path, tags := range loaded {
		if !trackHasChange(changes, path) {
			continue
		}
		if err := tags.Flush(); err != nil {
			return nil, fmt.Errorf("rules: write %s: %w", path, err)
		}
		releaseDirs[releaseOf[path]] = true
	}
	if len(releaseDirs) == 0 {
		return changes, nil
	}

	dirs := make([]string, 0, len(releaseDirs))
	for d := range releaseDirs {
		dirs = append(dirs, d)
	}
	return changes, e.Index.UpdateCacheForReleases(ctx, dirs, true, false)
}

// ExecuteStoredRules runs every rule persisted in config, in order,
// stopping at the first error.
func (e *Engine) ExecuteStoredRules(ctx context.Context, opts RunOptions) ([]Change, error) {
	var all []Change
	for _, sr := range e.Config.StoredMetadataRules {
		rule, err := ParseRule(sr.Matcher, sr.Tags, sr.Action)
		if err != nil {
			return all, err
		}
		changes, err := e.ExecuteRule(ctx, rule, opts)
		all = append(all, changes...)
		if err != nil {
			return all, err
		}
	}
	return all, nil
}

func trackHasChange(changes []Change, path string) bool {
	for _, c := range changes {
		if c.TrackSourcePath == path {
			return true
		}
	}
	return false
}

// confirm asks the user to approve a pending set of changes. Up to
// confirmThreshold it's a plain yes/no; above it, the user must
// type the exact changed-track count back, matching
// original_source/rose/rules.py's confirmation gate.
func confirm(changes []Change, opts RunOptions) (bool, error) {
	if opts.ConfirmYes {
		return true, nil
	}
	stdout := opts.Stdout
	stdin := opts.Stdin
	if stdout == nil || stdin == nil {
		return false, nil
	}

	tracks := map[string]bool{}
	for _, c := range changes {
		tracks[c.TrackSourcePath] = true
	}
	count := len(tracks)

	reader := bufio.NewReader(stdin)
	if count > confirmThreshold {
		fmt.Fprintf(stdout, "This will affect %d tracks. Type %d to confirm: ", count, count)
		line, _ := reader.ReadString('\n')
		return strings.TrimSpace(line) == strconv.Itoa(count), nil
	}

	fmt.Fprintf(stdout, "This will affect %d tracks. Continue? [y/N] ", count)
	line, _ := reader.ReadString('\n')
	line = strings.ToLower(strings.TrimSpace(line))
	return line == "y" || line == "yes", nil
}

// applyRuleToTags checks whether rule's matcher matches any of its
// target fields on tags, and if so, applies rule's action to every
// target field, returning the changes actually made.
func applyRuleToTags(rule Rule, tags *audiotags.Tags) ([]Change, error) {
	if !ruleMatchesTags(rule, tags) {
		return nil, nil
	}

	var changes []Change
	for _, field := range rule.Tags {
		fieldChanges, err := applyActionToField(rule.Matcher, rule.Action, field, tags)
		if err != nil {
			return nil, err
		}
		changes = append(changes, fieldChanges...)
	}
	return changes, nil
}

func ruleMatchesTags(rule Rule, tags *audiotags.Tags) bool {
	for _, field := range rule.Tags {
		if field.multiValue() {
			if MatchesAny(rule.Matcher, multiValueOf(field, tags)) {
				return true
			}
			continue
		}
		if Matches(rule.Matcher, singleValueOf(field, tags)) {
			return true
		}
	}
	return false
}

func singleValueOf(field TagField, tags *audiotags.Tags) string {
	switch field {
	case TagTrackTitle:
		return tags.Title
	case TagYear:
		if tags.Year == 0 {
			return ""
		}
		return strconv.Itoa(tags.Year)
	case TagTrackNumber:
		return tags.TrackNumber
	case TagDiscNumber:
		return tags.DiscNumber
	case TagAlbumTitle:
		return tags.Album
	case TagReleaseType:
		return tags.ReleaseType
	default:
		return ""
	}
}

func multiValueOf(field TagField, tags *audiotags.Tags) []string {
	switch field {
	case TagGenre:
		return tags.Genres
	case TagLabel:
		return tags.Labels
	case TagArtist:
		return append(append([]string{}, tags.Artists.All()...), tags.AlbumArtists.All()...)
	default:
		return nil
	}
}

// applyActionToField applies action to field's value(s) on tags,
// mutating tags in place and returning the change(s) actually made.
// matcher is threaded down to the multi-valued fields so each list
// element is gated by the rule's own match, not just the track.
func applyActionToField(matcher string, action Action, field TagField, tags *audiotags.Tags) ([]Change, error) {
	switch field {
	case TagTrackTitle:
		return applyScalar(action, field, &tags.Title)
	case TagYear:
		return applyYear(action, tags)
	case TagTrackNumber:
		return applyScalar(action, field, &tags.TrackNumber)
	case TagDiscNumber:
		return applyScalar(action, field, &tags.DiscNumber)
	case TagAlbumTitle:
		return applyScalar(action, field, &tags.Album)
	case TagReleaseType:
		return applyScalar(action, field, &tags.ReleaseType)
	case TagGenre:
		return applyList(matcher, action, field, &tags.Genres)
	case TagLabel:
		return applyList(matcher, action, field, &tags.Labels)
	case TagArtist:
		var changes []Change
		for _, roles := range []*artiststr.Artists{&tags.Artists, &tags.AlbumArtists} {
			for _, role := range artiststr.Roles {
				c, err := applyArtistRole(matcher, action, roles, role)
				if err != nil {
					return nil, err
				}
				changes = append(changes, c...)
			}
		}
		return changes, nil
	default:
		return nil, nil
	}
}

func applyScalar(action Action, field TagField, value *string) ([]Change, error) {
	newVal, changed, err := applySingleValue(action, field, *value)
	if err != nil || !changed {
		return nil, err
	}
	before := *value
	*value = newVal
	return []Change{{Field: field, Before: before, After: newVal}}, nil
}

func applyYear(action Action, tags *audiotags.Tags) ([]Change, error) {
	before := ""
	if tags.Year != 0 {
		before = strconv.Itoa(tags.Year)
	}
	newVal, changed, err := applySingleValue(action, TagYear, before)
	if err != nil || !changed {
		return nil, err
	}
	year := 0
	if newVal != "" {
		year, err = strconv.Atoi(newVal)
		if err != nil {
			return nil, errs.InvalidReplacementValue(string(TagYear), newVal)
		}
	}
	tags.Year = year
	return []Change{{Field: TagYear, Before: before, After: newVal}}, nil
}

func applyList(matcher string, action Action, field TagField, values *[]string) ([]Change, error) {
	newVals, changed, err := applyMultiValue(matcher, action, field, *values)
	if err != nil || !changed {
		return nil, err
	}
	before := strings.Join(*values, ";")
	*values = newVals
	return []Change{{Field: field, Before: before, After: strings.Join(newVals, ";")}}, nil
}

func applyArtistRole(matcher string, action Action, artists *artiststr.Artists, role string) ([]Change, error) {
	before := artists.ByRole(role)
	after, changed, err := applyMultiValue(matcher, action, TagArtist, before)
	if err != nil || !changed {
		return nil, err
	}
	setArtistRole(artists, role, after)
	return []Change{{Field: TagArtist, Before: strings.Join(before, ";"), After: strings.Join(after, ";")}}, nil
}

func setArtistRole(a *artiststr.Artists, role string, names []string) {
	switch role {
	case "main":
		a.Main = names
	case "guest":
		a.Guest = names
	case "remixer":
		a.Remixer = names
	case "producer":
		a.Producer = names
	case "composer":
		a.Composer = names
	case "djmixer":
		a.DJMixer = names
	}
}
