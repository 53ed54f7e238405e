package library

import (
	"context"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/nucle0tides/rosefs/internal/artiststr"
	"github.com/nucle0tides/rosefs/internal/audiotags"
	"github.com/nucle0tides/rosefs/internal/errs"
	"github.com/nucle0tides/rosefs/internal/model"
)

// nullYear is the sentinel the release-metadata-edit TOML format uses
// for an absent year, preserved from the original implementation's
// wire format.
const nullYear = -9999

// editableArtist is one {name, role} pair of the edit format's artist
// lists.
type editableArtist struct {
	Name string `toml:"name"`
	Role string `toml:"role"`
}

// editableTrack is one entry of the edit format's tracks table, keyed
// by track ID.
type editableTrack struct {
	DiscNumber  string           `toml:"disc_number"`
	TrackNumber string           `toml:"track_number"`
	Title       string           `toml:"title"`
	Artists     []editableArtist `toml:"artists"`
}

// editableRelease is the TOML shape rendered to $EDITOR by EditRelease.
type editableRelease struct {
	Title       string                   `toml:"title"`
	ReleaseType string                   `toml:"releasetype"`
	Year        int                      `toml:"year"`
	Genres      []string                 `toml:"genres"`
	Labels      []string                 `toml:"labels"`
	Artists     []editableArtist         `toml:"artists"`
	Tracks      map[string]editableTrack `toml:"tracks"`
}

// EditRelease renders a TOML metadata view of the release to $EDITOR,
// then writes every field back onto each track's audio tags and
// re-indexes. Direct artist credits only: alias-expansion rows never
// round-trip into the edit view or back out to the tags.
func (m *Mutators) EditRelease(ctx context.Context, idOrVDir string) error {
	release, err := m.Cache.GetRelease(ctx, idOrVDir)
	if err != nil {
		return err
	}
	if release == nil {
		return errs.ReleaseDoesNotExist(idOrVDir)
	}

	unlock, err := m.Store.Lock(ctx, "release:"+release.ID, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(releaseToEditable(release)); err != nil {
		return fmt.Errorf("library: encode release metadata: %w", err)
	}
	edited, err := openInEditor(buf.String())
	if err != nil {
		return err
	}

	var after editableRelease
	if _, err := toml.Decode(edited, &after); err != nil {
		return fmt.Errorf("library: parse edited release metadata: %w", err)
	}

	if err := applyReleaseEdits(release, after); err != nil {
		return err
	}

	return m.Index.UpdateCacheForReleases(ctx, []string{release.SourcePath}, true, false)
}

func releaseToEditable(r *model.Release) editableRelease {
	year := nullYear
	if r.Year != nil {
		year = *r.Year
	}
	tracks := make(map[string]editableTrack, len(r.Tracks))
	for _, t := range r.Tracks {
		tracks[t.ID] = editableTrack{
			DiscNumber:  t.DiscNumber,
			TrackNumber: t.TrackNumber,
			Title:       t.Title,
			Artists:     refsToEditable(t.ArtistRefs),
		}
	}
	return editableRelease{
		Title:       r.Title,
		ReleaseType: r.ReleaseType,
		Year:        year,
		Genres:      r.Genres,
		Labels:      r.Labels,
		Artists:     refsToEditable(r.ArtistRefs),
		Tracks:      tracks,
	}
}

// refsToEditable keeps direct credits only: a synthesized alias row has
// no home in the edit format, since writing it back to a track's tags
// would duplicate a credit the indexer already derives on its own.
func refsToEditable(refs []model.ArtistRef) []editableArtist {
	out := make([]editableArtist, 0, len(refs))
	for _, r := range refs {
		if r.Alias {
			continue
		}
		out = append(out, editableArtist{Name: r.Name, Role: r.Role})
	}
	return out
}

func editableToArtists(list []editableArtist) artiststr.Artists {
	var a artiststr.Artists
	for _, e := range list {
		switch e.Role {
		case "main":
			a.Main = append(a.Main, e.Name)
		case "guest":
			a.Guest = append(a.Guest, e.Name)
		case "remixer":
			a.Remixer = append(a.Remixer, e.Name)
		case "producer":
			a.Producer = append(a.Producer, e.Name)
		case "composer":
			a.Composer = append(a.Composer, e.Name)
		case "djmixer":
			a.DJMixer = append(a.DJMixer, e.Name)
		}
	}
	return a
}

// applyReleaseEdits writes after's release-level fields onto every
// track's tags, then overlays any track-level override present in
// after.Tracks, and flushes each file.
func applyReleaseEdits(release *model.Release, after editableRelease) error {
	year := after.Year
	if year == nullYear {
		year = 0
	}
	albumArtists := editableToArtists(after.Artists)

	for _, t := range release.Tracks {
		tags, err := audiotags.Load(t.SourcePath)
		if err != nil {
			return err
		}

		tags.Album = after.Title
		tags.ReleaseType = after.ReleaseType
		tags.Year = year
		tags.Genres = after.Genres
		tags.Labels = after.Labels
		tags.AlbumArtists = albumArtists

		if et, ok := after.Tracks[t.ID]; ok {
			tags.Title = et.Title
			tags.DiscNumber = et.DiscNumber
			tags.TrackNumber = et.TrackNumber
			tags.Artists = editableToArtists(et.Artists)
		}

		if err := tags.Flush(); err != nil {
			return err
		}
	}
	return nil
}
