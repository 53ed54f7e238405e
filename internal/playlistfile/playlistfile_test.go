package playlistfile

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "Lala.toml")

	f := &File{Tracks: []Entry{
		{UUID: "t1", DescriptionMeta: "Artist - Title.m4a"},
		{UUID: "ghost", DescriptionMeta: "Unknown (missing)", Missing: true},
	}}

	if err := Write(path, f); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(got.Tracks) != 2 {
		t.Fatalf("Read() len = %d, want 2", len(got.Tracks))
	}
	if got.Tracks[0].UUID != "t1" || got.Tracks[0].Missing {
		t.Errorf("Read() Tracks[0] = %+v", got.Tracks[0])
	}
	if got.Tracks[1].UUID != "ghost" || !got.Tracks[1].Missing {
		t.Errorf("Read() Tracks[1] = %+v", got.Tracks[1])
	}
}

func TestWriteEmitsInlineForm(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "Inline.toml")
	f := &File{Tracks: []Entry{{UUID: "t1", DescriptionMeta: "A"}}}
	if err := Write(path, f); err != nil {
		t.Fatalf("Write() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if strings.Contains(string(data), "[[tracks]]") {
		t.Errorf("Write() should emit inline form, got array-of-tables:\n%s", data)
	}
	if !strings.HasPrefix(string(data), "tracks = [") {
		t.Errorf("Write() should start with 'tracks = [', got:\n%s", data)
	}
}

func TestReadArrayOfTablesForm(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "Legacy.toml")
	content := "[[tracks]]\nuuid = \"t1\"\ndescription_meta = \"A\"\n\n[[tracks]]\nuuid = \"t2\"\ndescription_meta = \"B\"\nmissing = true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write legacy playlist: %v", err)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(got.Tracks) != 2 {
		t.Fatalf("Read() len = %d, want 2", len(got.Tracks))
	}
	if got.Tracks[1].UUID != "t2" || !got.Tracks[1].Missing {
		t.Errorf("Read() Tracks[1] = %+v", got.Tracks[1])
	}
}
