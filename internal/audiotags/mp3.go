package audiotags

import (
	"fmt"
	"strconv"

	"github.com/bogem/id3v2/v2"

	"github.com/nucle0tides/rosefs/internal/artiststr"
)

// writeMP3 rewrites every standard and rosefs-custom frame on an ID3v2
// tag, replacing whatever was there before to avoid accumulating stale
// duplicate frames across repeated writes.
func writeMP3(t *Tags) error {
	tg, err := id3v2.Open(t.path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("audiotags: open mp3 %s: %w", t.path, err)
	}
	defer tg.Close()

	tg.SetVersion(4)
	tg.SetDefaultEncoding(id3v2.EncodingUTF8)
	tg.DeleteAllFrames()

	tg.SetTitle(t.Title)
	tg.SetAlbum(t.Album)
	tg.SetArtist(artiststr.Format(t.Artists, t.Genres))
	tg.SetGenre(joinMultiValue(t.Genres))

	if t.Year != 0 {
		tg.AddTextFrame("TDRC", id3v2.EncodingUTF8, strconv.Itoa(t.Year))
	}

	trackStr := t.TrackNumber
	if trackStr != "" && t.TrackTotal > 0 {
		trackStr = trackStr + "/" + strconv.Itoa(t.TrackTotal)
	}
	if trackStr != "" {
		tg.AddTextFrame(tg.CommonID("Track number/Position in set"), id3v2.EncodingUTF8, trackStr)
	}

	discStr := t.DiscNumber
	if discStr != "" && t.DiscTotal > 0 {
		discStr = discStr + "/" + strconv.Itoa(t.DiscTotal)
	}
	if discStr != "" {
		tg.AddTextFrame(tg.CommonID("Part of a set"), id3v2.EncodingUTF8, discStr)
	}

	if albumArtists := artiststr.Format(t.AlbumArtists, t.Genres); albumArtists != "" {
		tg.AddTextFrame(tg.CommonID("Band/Orchestra/Accompaniment"), id3v2.EncodingUTF8, albumArtists)
	}
	if len(t.Labels) > 0 {
		tg.AddTextFrame("TPUB", id3v2.EncodingUTF8, joinMultiValue(t.Labels))
	}
	addTXXX(tg, "RELEASETYPE", t.ReleaseType)
	addTXXX(tg, mp3TrackIDFrame, t.TrackID)
	addTXXX(tg, mp3ReleaseIDFrame, t.ReleaseID)

	if len(t.CoverData) > 0 {
		tg.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    coverMime(t),
			PictureType: id3v2.PTFrontCover,
			Description: "Front Cover",
			Picture:     t.CoverData,
		})
	}

	if err := tg.Save(); err != nil {
		return fmt.Errorf("audiotags: save mp3 %s: %w", t.path, err)
	}
	return nil
}

func addTXXX(tg *id3v2.Tag, description, value string) {
	if value == "" {
		return
	}
	tg.AddUserDefinedTextFrame(id3v2.UserDefinedTextFrame{
		Encoding:    id3v2.EncodingUTF8,
		Description: description,
		Value:       value,
	})
}

func coverMime(t *Tags) string {
	if t.CoverMime != "" {
		return t.CoverMime
	}
	return "image/jpeg"
}
