// Package collagefile reads and writes a collage's `!collages/{name}.toml`
// file: an ordered array of release references, each carrying a cached
// human-readable description and a "missing" flag set when the
// referenced release isn't currently indexed.
package collagefile

import (
	"bytes"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Entry is one release reference inside a collage file.
type Entry struct {
	UUID            string `toml:"uuid"`
	DescriptionMeta string `toml:"description_meta"`
	Missing         bool   `toml:"missing,omitempty"`
}

// File is the parsed contents of a collage TOML file.
type File struct {
	Releases []Entry `toml:"releases"`
}

// Read parses the collage TOML at path.
func Read(path string) (*File, error) {
	var f File
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("collagefile: parse %s: %w", path, err)
	}
	return &f, nil
}

// Write serializes f as an array of `[[releases]]` tables, the form
// spec.md's collage TOML uses (unlike the playlist format, a collage
// file has no inline-table writer requirement).
func Write(path string, f *File) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return fmt.Errorf("collagefile: encode %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}
