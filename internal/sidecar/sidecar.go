// Package sidecar reads and writes a release's `.rose.{id}.toml`
// sidecar file: the durable home of a release's opaque ID plus the
// handful of fields (new, added_at) that live outside audio tags.
package sidecar

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// filenamePattern recognizes a sidecar file and extracts its ID.
var filenamePattern = regexp.MustCompile(`^\.rose\.([^.]+)\.toml$`)

// Body is the parsed contents of a sidecar file. Unknown keys read
// from disk are preserved in Extra and rewritten verbatim, so a future
// rosefs version (or a human editing the file) can add fields without
// this version clobbering them.
type Body struct {
	New     bool      `toml:"new"`
	AddedAt time.Time `toml:"added_at"`
	Extra   map[string]any `toml:"-"`
}

type wireBody struct {
	New     bool      `toml:"new"`
	AddedAt time.Time `toml:"added_at"`
}

// FindIn looks for a `.rose.{id}.toml` file directly inside dir and
// returns its path and the ID parsed from its filename. ok is false
// if no such file exists.
func FindIn(dir string) (path, id string, ok bool) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", false
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		m := filenamePattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		return filepath.Join(dir, e.Name()), m[1], true
	}
	return "", "", false
}

// Path returns the sidecar path for a release with the given ID inside
// dir, whether or not it currently exists.
func Path(dir, id string) string {
	return filepath.Join(dir, fmt.Sprintf(".rose.%s.toml", id))
}

// Read parses the sidecar at path. A present-but-unparsable sidecar
// (the "legacy/invalid" case from the indexing algorithm: an ID in the
// filename but an unparsable body) is reported via the returned error;
// the caller decides whether to upgrade it.
func Read(path string) (*Body, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if _, err := toml.Decode(string(data), &raw); err != nil {
		return nil, fmt.Errorf("sidecar: parse %s: %w", path, err)
	}

	var wire wireBody
	meta, err := toml.Decode(string(data), &wire)
	if err != nil {
		return nil, fmt.Errorf("sidecar: parse %s: %w", path, err)
	}

	extra := map[string]any{}
	for k, v := range raw {
		if k == "new" || k == "added_at" {
			continue
		}
		extra[k] = v
	}
	_ = meta

	return &Body{New: wire.New, AddedAt: wire.AddedAt, Extra: extra}, nil
}

// Write serializes body and writes it to path, preserving any unknown
// keys captured in body.Extra.
func Write(path string, body *Body) error {
	out := map[string]any{
		"new":      body.New,
		"added_at": body.AddedAt,
	}
	for k, v := range body.Extra {
		out[k] = v
	}

	var buf strings.Builder
	if err := toml.NewEncoder(&buf).Encode(out); err != nil {
		return fmt.Errorf("sidecar: encode %s: %w", path, err)
	}
	return os.WriteFile(path, []byte(buf.String()), 0o644)
}

// New returns a fresh Body for a release discovered for the first
// time, or being upgraded from a legacy/invalid sidecar.
func New() *Body {
	return &Body{New: true, AddedAt: time.Now().UTC(), Extra: map[string]any{}}
}

// Mtime returns path's modification time formatted the way the
// indexer compares cached sidecar mtimes (RFC3339Nano, UTC).
func Mtime(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return info.ModTime().UTC().Format(time.RFC3339Nano), nil
}
