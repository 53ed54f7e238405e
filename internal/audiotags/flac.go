package audiotags

import (
	"fmt"

	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"

	"github.com/nucle0tides/rosefs/internal/artiststr"
)

// writeFLAC rebuilds the FLAC file's Vorbis comment block from
// scratch (dropping whatever comments existed before, same rationale
// as the MP3 writer) and replaces the picture block if cover data is
// present.
func writeFLAC(t *Tags) error {
	f, err := flac.ParseFile(t.path)
	if err != nil {
		return fmt.Errorf("audiotags: parse flac %s: %w", t.path, err)
	}

	cmt := flacvorbis.New()
	add := func(key, value string) error {
		if value == "" {
			return nil
		}
		return cmt.Add(key, value)
	}
	addMulti := func(key string, values []string) error {
		for _, v := range values {
			if err := cmt.Add(key, v); err != nil {
				return err
			}
		}
		return nil
	}

	if err := add("TITLE", t.Title); err != nil {
		return err
	}
	if err := add("ALBUM", t.Album); err != nil {
		return err
	}
	if err := add("ARTIST", artiststr.Format(t.Artists, t.Genres)); err != nil {
		return err
	}
	if err := add("ALBUMARTIST", artiststr.Format(t.AlbumArtists, t.Genres)); err != nil {
		return err
	}
	if t.Year != 0 {
		if err := add("DATE", fmt.Sprintf("%d", t.Year)); err != nil {
			return err
		}
	}
	if err := add("TRACKNUMBER", t.TrackNumber); err != nil {
		return err
	}
	if t.TrackTotal > 0 {
		if err := add("TOTALTRACKS", fmt.Sprintf("%d", t.TrackTotal)); err != nil {
			return err
		}
	}
	if err := add("DISCNUMBER", t.DiscNumber); err != nil {
		return err
	}
	if t.DiscTotal > 0 {
		if err := add("TOTALDISCS", fmt.Sprintf("%d", t.DiscTotal)); err != nil {
			return err
		}
	}
	if err := addMulti("GENRE", t.Genres); err != nil {
		return err
	}
	if err := addMulti("LABEL", t.Labels); err != nil {
		return err
	}
	if err := add("RELEASETYPE", t.ReleaseType); err != nil {
		return err
	}
	if err := add(flacTrackIDComment, t.TrackID); err != nil {
		return err
	}
	if err := add(flacReleaseIDComment, t.ReleaseID); err != nil {
		return err
	}

	cmtBlock := cmt.Marshal()

	var newMeta []*flac.MetaDataBlock
	for _, meta := range f.Meta {
		if meta.Type == flac.VorbisComment {
			continue
		}
		if meta.Type == flac.Picture && len(t.CoverData) > 0 {
			continue
		}
		newMeta = append(newMeta, meta)
	}
	newMeta = append(newMeta, &cmtBlock)

	if len(t.CoverData) > 0 {
		pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front Cover", t.CoverData, coverMime(t))
		if err != nil {
			return fmt.Errorf("audiotags: build flac picture: %w", err)
		}
		picBlock := pic.Marshal()
		newMeta = append(newMeta, &picBlock)
	}
	f.Meta = newMeta

	if err := f.Save(t.path); err != nil {
		return fmt.Errorf("audiotags: save flac %s: %w", t.path, err)
	}
	return nil
}
