// Package vpath implements the bijection between an absolute virtual
// path under the FUSE mount and a tagged path record the VFS Logical
// Core can switch on. Grounded on
// original_source/rose/virtualfs.py's parse_virtual_path/ParsedPath
// (split on "/", switch on the first segment, raise not-found past
// each view's supported depth), generalized from that file's 4-view
// minimal grammar (albums/artists/genres/labels) to the 9-view grammar
// spec.md demands (Releases, Releases - New, Releases - Recently
// Added, Artists, Genres, Labels, Collages, Playlists, plus Root).
package vpath

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// View identifies which of the eight top-level folders (or the root
// itself) a parsed path falls under.
type View int

const (
	ViewRoot View = iota
	ViewReleases
	ViewNew
	ViewRecentlyAdded
	ViewArtists
	ViewGenres
	ViewLabels
	ViewCollages
	ViewPlaylists
)

func (v View) String() string {
	switch v {
	case ViewRoot:
		return "root"
	case ViewReleases:
		return "releases"
	case ViewNew:
		return "new"
	case ViewRecentlyAdded:
		return "recently_added"
	case ViewArtists:
		return "artists"
	case ViewGenres:
		return "genres"
	case ViewLabels:
		return "labels"
	case ViewCollages:
		return "collages"
	case ViewPlaylists:
		return "playlists"
	default:
		return "unknown"
	}
}

// Top-level view folder names, numbered for stable display order in
// any file manager that doesn't otherwise sort directory entries.
const (
	FolderReleases      = "1. Releases"
	FolderNew           = "2. Releases - New"
	FolderRecentlyAdded = "3. Releases - Recently Added"
	FolderArtists       = "4. Artists"
	FolderGenres        = "5. Genres"
	FolderLabels        = "6. Labels"
	FolderCollages      = "7. Collages"
	FolderPlaylists     = "8. Playlists"
)

// RootEntries lists the eight top-level folders in their display order.
var RootEntries = []string{
	FolderReleases, FolderNew, FolderRecentlyAdded,
	FolderArtists, FolderGenres, FolderLabels,
	FolderCollages, FolderPlaylists,
}

// ErrNotFound is returned for any path deeper than its view supports.
var ErrNotFound = errors.New("vpath: path not found")

// ParsedPath is the tagged record spec.md §4.F names: a view plus
// whichever of the optional fields that view's depth populated.
type ParsedPath struct {
	View            View
	Artist          *string
	Genre           *string
	Label           *string
	Collage         *string
	Playlist        *string
	Release         *string
	ReleasePosition *string
	File            *string
	FilePosition    *string
}

var (
	recentlyAddedPrefix = regexp.MustCompile(`^\[(\d{4}-\d{2}-\d{2})\] (.*)$`)
	positionPrefix      = regexp.MustCompile(`^(\d+)\. (.*)$`)
)

// Parse splits an absolute virtual path into a ParsedPath, or returns
// ErrNotFound if its depth exceeds what its view supports.
func Parse(path string) (*ParsedPath, error) {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return &ParsedPath{View: ViewRoot}, nil
	}
	parts := strings.Split(trimmed, "/")

	switch parts[0] {
	case FolderReleases:
		return parseReleaseLike(ViewReleases, parts[1:])
	case FolderNew:
		return parseReleaseLike(ViewNew, parts[1:])
	case FolderRecentlyAdded:
		return parseRecentlyAdded(parts[1:])
	case FolderArtists:
		return parseFiltered(ViewArtists, parts[1:])
	case FolderGenres:
		return parseFiltered(ViewGenres, parts[1:])
	case FolderLabels:
		return parseFiltered(ViewLabels, parts[1:])
	case FolderCollages:
		return parseCollage(parts[1:])
	case FolderPlaylists:
		return parsePlaylist(parts[1:])
	default:
		return nil, ErrNotFound
	}
}

func parseReleaseLike(view View, rest []string) (*ParsedPath, error) {
	p := &ParsedPath{View: view}
	switch len(rest) {
	case 0:
		return p, nil
	case 1:
		p.Release = &rest[0]
		return p, nil
	case 2:
		p.Release = &rest[0]
		p.File = &rest[1]
		return p, nil
	default:
		return nil, ErrNotFound
	}
}

func parseRecentlyAdded(rest []string) (*ParsedPath, error) {
	p := &ParsedPath{View: ViewRecentlyAdded}
	switch len(rest) {
	case 0:
		return p, nil
	case 1:
		setReleaseWithDate(p, rest[0])
		return p, nil
	case 2:
		setReleaseWithDate(p, rest[0])
		p.File = &rest[1]
		return p, nil
	default:
		return nil, ErrNotFound
	}
}

func setReleaseWithDate(p *ParsedPath, entry string) {
	if m := recentlyAddedPrefix.FindStringSubmatch(entry); m != nil {
		date, release := m[1], m[2]
		p.ReleasePosition = &date
		p.Release = &release
		return
	}
	p.Release = &entry
}

func parseFiltered(view View, rest []string) (*ParsedPath, error) {
	p := &ParsedPath{View: view}
	if len(rest) == 0 {
		return p, nil
	}
	switch view {
	case ViewArtists:
		p.Artist = &rest[0]
	case ViewGenres:
		p.Genre = &rest[0]
	case ViewLabels:
		p.Label = &rest[0]
	}
	switch len(rest) {
	case 1:
		return p, nil
	case 2:
		p.Release = &rest[1]
		return p, nil
	case 3:
		p.Release = &rest[1]
		p.File = &rest[2]
		return p, nil
	default:
		return nil, ErrNotFound
	}
}

func parseCollage(rest []string) (*ParsedPath, error) {
	p := &ParsedPath{View: ViewCollages}
	switch len(rest) {
	case 0:
		return p, nil
	case 1:
		p.Collage = &rest[0]
		return p, nil
	case 2:
		p.Collage = &rest[0]
		setReleaseWithPosition(p, rest[1])
		return p, nil
	case 3:
		p.Collage = &rest[0]
		setReleaseWithPosition(p, rest[1])
		p.File = &rest[2]
		return p, nil
	default:
		return nil, ErrNotFound
	}
}

func setReleaseWithPosition(p *ParsedPath, entry string) {
	if m := positionPrefix.FindStringSubmatch(entry); m != nil {
		pos, release := m[1], m[2]
		p.ReleasePosition = &pos
		p.Release = &release
		return
	}
	p.Release = &entry
}

func parsePlaylist(rest []string) (*ParsedPath, error) {
	p := &ParsedPath{View: ViewPlaylists}
	switch len(rest) {
	case 0:
		return p, nil
	case 1:
		p.Playlist = &rest[0]
		return p, nil
	case 2:
		p.Playlist = &rest[0]
		if m := positionPrefix.FindStringSubmatch(rest[1]); m != nil {
			pos, file := m[1], m[2]
			p.FilePosition = &pos
			p.File = &file
		} else {
			p.File = &rest[1]
		}
		return p, nil
	default:
		return nil, ErrNotFound
	}
}

// FormatRecentlyAdded renders the "[YYYY-MM-DD] {dirname}" entry name
// Recently Added uses, where date is already formatted as YYYY-MM-DD.
func FormatRecentlyAdded(date, dirname string) string {
	return fmt.Sprintf("[%s] %s", date, dirname)
}

// FormatCollagePosition renders the "N. {dirname}" entry name Collages
// uses, zero-padded to width digits so entries sort lexically in
// position order.
func FormatCollagePosition(position, width int, dirname string) string {
	return fmt.Sprintf("%0*d. %s", width, position, dirname)
}

// FormatPlaylistPosition renders the "N. {filename}" entry name
// Playlists uses.
func FormatPlaylistPosition(position int, filename string) string {
	return fmt.Sprintf("%d. %s", position, filename)
}

// CollageWidth returns the zero-pad width FormatCollagePosition needs
// to keep every position in a collage of the given size the same
// digit count.
func CollageWidth(count int) int {
	width := 1
	for n := count; n >= 10; n /= 10 {
		width++
	}
	return width
}

// ParseRecentlyAddedEntry strips a "[YYYY-MM-DD] " prefix off a single
// directory entry name (as returned by a prior Readdir, not a full
// path), for the VFS core's Lookup to reverse the formatting
// FormatRecentlyAdded applied.
func ParseRecentlyAddedEntry(entry string) (date, dirname string, ok bool) {
	if m := recentlyAddedPrefix.FindStringSubmatch(entry); m != nil {
		return m[1], m[2], true
	}
	return "", entry, false
}

// ParsePositionEntry strips a "N. " prefix off a single directory
// entry name, reversing FormatCollagePosition/FormatPlaylistPosition
// for the VFS core's Lookup.
func ParsePositionEntry(entry string) (position, rest string, ok bool) {
	if m := positionPrefix.FindStringSubmatch(entry); m != nil {
		return m[1], m[2], true
	}
	return "", entry, false
}
