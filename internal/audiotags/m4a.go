package audiotags

import (
	"fmt"
	"strconv"

	mp4tag "github.com/Sorrow446/go-mp4tag"

	"github.com/nucle0tides/rosefs/internal/artiststr"
)

// writeM4A rewrites the MP4 container's standard iTunes atoms plus a
// handful of freeform atoms for fields the standard atom set has no
// room for, including rosefs's own track/release ID.
func writeM4A(t *Tags) error {
	mp4, err := mp4tag.Open(t.path)
	if err != nil {
		return fmt.Errorf("audiotags: open m4a %s: %w", t.path, err)
	}
	defer mp4.Close()

	custom := map[string]string{}
	if t.ReleaseType != "" {
		custom["RELEASETYPE"] = t.ReleaseType
	}
	if len(t.Labels) > 0 {
		custom["LABEL"] = joinMultiValue(t.Labels)
	}
	if t.TrackID != "" {
		custom[m4aTrackIDAtom] = t.TrackID
	}
	if t.ReleaseID != "" {
		custom[m4aReleaseIDAtom] = t.ReleaseID
	}

	tags := &mp4tag.MP4Tags{
		Title:       t.Title,
		Artist:      artiststr.Format(t.Artists, t.Genres),
		Album:       t.Album,
		AlbumArtist: artiststr.Format(t.AlbumArtists, t.Genres),
		TrackNumber: safeInt16(atoiOrZero(t.TrackNumber)),
		TrackTotal:  safeInt16(t.TrackTotal),
		DiscNumber:  safeInt16(atoiOrZero(t.DiscNumber)),
		DiscTotal:   safeInt16(t.DiscTotal),
		CustomGenre: joinMultiValue(t.Genres),
		Custom:      custom,
	}
	if t.Year != 0 {
		tags.Date = strconv.Itoa(t.Year)
	}
	if len(t.CoverData) > 0 {
		tags.Pictures = []*mp4tag.MP4Picture{{Data: t.CoverData}}
	}

	if err := mp4.Write(tags, nil); err != nil {
		return fmt.Errorf("audiotags: write m4a %s: %w", t.path, err)
	}
	return nil
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func safeInt16(n int) int16 {
	if n > 32767 {
		return 32767
	}
	if n < -32768 {
		return -32768
	}
	return int16(n)
}
