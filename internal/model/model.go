// Package model holds the data types shared across rosefs's store,
// index, cache, library, and rules packages: the in-memory shapes that
// mirror the Read Cache Store's tables. Keeping them in one leaf
// package avoids import cycles between the packages that produce them
// (the indexer) and the packages that consume them (the cache query
// API, the rules engine, the VFS core).
package model

import "time"

// ArtistRef attaches a single artist credit, in a single role, to a
// release or track. Aliases are synthesized from the configured
// parent/alias map during indexing and never round-trip back into the
// audio tag or sidecar.
type ArtistRef struct {
	Name  string
	Role  string
	Alias bool
}

// Release mirrors one row (plus its joined children) of the releases
// table.
type Release struct {
	ID             string
	SourcePath     string
	SidecarMtime   string
	AddedAt        time.Time
	New            bool
	Title          string
	ReleaseType    string
	Year           *int
	Multidisc      bool
	Artists        string // formatted-artists string
	CoverImagePath string // empty if none
	VirtualDirname string

	Genres  []string
	Labels  []string
	ArtistRefs []ArtistRef
	Tracks  []Track
}

// Track mirrors one row of the tracks table.
type Track struct {
	ID                       string
	ReleaseID                string
	SourcePath               string
	SourceMtime              string
	VirtualFilename          string
	Title                    string
	DiscNumber               string
	TrackNumber              string
	DurationSeconds          int
	Artists                  string // formatted-artists string
	FormattedReleasePosition string

	ArtistRefs []ArtistRef
}

// CollageEntry is one line of a collage's release list.
type CollageEntry struct {
	ReleaseID       string
	DescriptionMeta string
	Missing         bool
	Position        int
}

// Collage is a named, ordered list of releases.
type Collage struct {
	Name    string
	Entries []CollageEntry
}

// PlaylistEntry is one line of a playlist's track list.
type PlaylistEntry struct {
	TrackID         string
	DescriptionMeta string
	Missing         bool
	Position        int
}

// Playlist is a named, ordered list of tracks plus an optional cover.
type Playlist struct {
	Name      string
	CoverPath string // empty if none
	Entries   []PlaylistEntry
}
