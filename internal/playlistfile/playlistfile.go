// Package playlistfile reads and writes a playlist's
// `!playlists/{name}.toml` file: an ordered array of track references.
// The cover image, if any, is a sibling file `{name}.{ext}`, not part
// of this TOML document.
package playlistfile

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Entry is one track reference inside a playlist file.
type Entry struct {
	UUID            string `toml:"uuid"`
	DescriptionMeta string `toml:"description_meta"`
	Missing         bool   `toml:"missing,omitempty"`
}

// File is the parsed contents of a playlist TOML file.
type File struct {
	Tracks []Entry `toml:"tracks"`
}

// Read parses the playlist TOML at path. BurntSushi/toml decodes the
// inline-table-array form (`tracks = [{...}, ...]`) and the
// array-of-tables form (`[[tracks]]`) identically into File.Tracks, so
// no format-specific branch is needed here; only the writer cares
// which form it emits.
func Read(path string) (*File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("playlistfile: parse %s: %w", path, err)
	}
	return &f, nil
}

// Write serializes f using the inline-table-array form
// (`tracks = [{ uuid = "...", ... }, ...]`). The generic TOML encoder
// only emits the array-of-tables form for a struct slice, so the
// inline form is built by hand.
func Write(path string, f *File) error {
	var b strings.Builder
	b.WriteString("tracks = [")
	for i, e := range f.Tracks {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("{ uuid = ")
		b.WriteString(strconv.Quote(e.UUID))
		b.WriteString(", description_meta = ")
		b.WriteString(strconv.Quote(e.DescriptionMeta))
		if e.Missing {
			b.WriteString(", missing = true")
		}
		b.WriteString(" }")
	}
	b.WriteString("]\n")

	return os.WriteFile(path, []byte(b.String()), 0o644)
}
