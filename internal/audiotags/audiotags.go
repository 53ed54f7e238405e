// Package audiotags implements the Sidecar & Tag I/O collaborator: a
// single abstract interface over the handful of audio tag formats
// rosefs's library manages. Reads go through a single all-format
// reader (github.com/dhowden/tag); writes dispatch per-extension to
// the format library that can actually rewrite that container
// (github.com/bogem/id3v2/v2 for MP3, github.com/go-flac/go-flac +
// flacvorbis + flacpicture for FLAC, github.com/Sorrow446/go-mp4tag
// for M4A).
package audiotags

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dhowden/tag"

	"github.com/nucle0tides/rosefs/internal/artiststr"
)

// ErrUnsupportedFormat is returned by Flush when the file's extension
// has no registered writer; such files are read-only to rosefs.
var ErrUnsupportedFormat = errors.New("audiotags: unsupported format for writing")

// Custom frame/comment/atom names used to persist rosefs's own opaque
// IDs inside the audio file, one per format family.
const (
	mp3TrackIDFrame   = "ROSEID"
	mp3ReleaseIDFrame = "ROSERELEASEID"

	flacTrackIDComment   = "ROSE_ID"
	flacReleaseIDComment = "ROSE_RELEASEID"

	m4aTrackIDAtom   = "----:net.rosefs:id"
	m4aReleaseIDAtom = "----:net.rosefs:releaseid"
)

// multiValueSep joins/splits multi-valued fields (genre, label) that a
// format only exposes as a single string frame.
const multiValueSep = ";"

// Tags is the mutable in-memory view of one audio file's metadata.
// Load populates it from disk; callers mutate fields directly; Flush
// writes it back.
type Tags struct {
	Title       string
	Album       string
	ReleaseType string
	Year        int // 0 means unset
	TrackNumber string
	TrackTotal  int
	DiscNumber  string
	DiscTotal   int
	Duration    time.Duration

	Genres []string
	Labels []string

	Artists      artiststr.Artists
	AlbumArtists artiststr.Artists

	TrackID   string
	ReleaseID string

	// CoverData/CoverMime are optional: when CoverData is non-empty,
	// Flush embeds it as the file's front-cover picture.
	CoverData []byte
	CoverMime string

	path string
	ext  string
}

// Path returns the file path this Tags was loaded from.
func (t *Tags) Path() string { return t.path }

// Load reads every tag field from path through github.com/dhowden/tag,
// the only reader in rosefs's dependency set that understands every
// format the library manages.
func Load(path string) (*Tags, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audiotags: open %s: %w", path, err)
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return nil, fmt.Errorf("audiotags: read %s: %w", path, err)
	}

	track, trackTotal := m.Track()
	disc, discTotal := m.Disc()

	t := &Tags{
		Title:       m.Title(),
		Album:       m.Album(),
		Year:        m.Year(),
		TrackNumber: itoaOrEmpty(track),
		TrackTotal:  trackTotal,
		DiscNumber:  itoaOrEmpty(disc),
		DiscTotal:   discTotal,
		Genres:      splitMultiValue(m.Genre()),
		path:        path,
		ext:         strings.ToLower(filepath.Ext(path)),
	}

	mainArtist := m.Artist()
	albumArtist := m.AlbumArtist()
	if albumArtist == "" {
		albumArtist = mainArtist
	}
	t.Artists = artiststr.Parse(mainArtist, artiststr.ParseOpts{})
	t.AlbumArtists = artiststr.Parse(albumArtist, artiststr.ParseOpts{})

	raw := m.Raw()
	t.Labels = splitMultiValue(rawString(raw, "TPUB", "label", "LABEL"))
	t.ReleaseType = rawString(raw, "TXXX:RELEASETYPE", "releasetype", "RELEASETYPE")

	switch t.ext {
	case ".mp3":
		t.TrackID = rawString(raw, "TXXX:"+mp3TrackIDFrame)
		t.ReleaseID = rawString(raw, "TXXX:"+mp3ReleaseIDFrame)
	case ".flac":
		t.TrackID = rawString(raw, strings.ToLower(flacTrackIDComment), flacTrackIDComment)
		t.ReleaseID = rawString(raw, strings.ToLower(flacReleaseIDComment), flacReleaseIDComment)
	case ".m4a", ".mp4":
		t.TrackID = rawString(raw, m4aTrackIDAtom)
		t.ReleaseID = rawString(raw, m4aReleaseIDAtom)
	}

	if pic := m.Picture(); pic != nil {
		t.CoverData = pic.Data
		t.CoverMime = pic.MIMEType
	}

	return t, nil
}

// Flush writes every field back to the source file using the writer
// registered for its extension.
func (t *Tags) Flush() error {
	switch t.ext {
	case ".mp3":
		return writeMP3(t)
	case ".flac":
		return writeFLAC(t)
	case ".m4a", ".mp4":
		return writeM4A(t)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, t.ext)
	}
}

func splitMultiValue(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, multiValueSep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func joinMultiValue(vs []string) string {
	return strings.Join(vs, multiValueSep)
}

func itoaOrEmpty(n int) string {
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("%d", n)
}

// rawString looks up the first present key (tried in order) in a
// dhowden/tag Raw() map and coerces it to a string. Different formats
// key their raw frames differently (ID3 "TXXX:Description", Vorbis
// comment field names, MP4 freeform atom names); trying every key a
// format might plausibly use keeps one lookup helper for all of them.
func rawString(raw map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		v, ok := raw[k]
		if !ok {
			continue
		}
		switch val := v.(type) {
		case string:
			if val != "" {
				return val
			}
		case []byte:
			if len(val) > 0 {
				return string(val)
			}
		case fmt.Stringer:
			return val.String()
		}
	}
	return ""
}
