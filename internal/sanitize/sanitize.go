// Package sanitize strips filesystem-hostile characters from the
// human-readable names rosefs synthesizes for releases, tracks, artists,
// genres, and labels.
package sanitize

import (
	"strconv"
	"strings"
)

// illegalReplacer mirrors the characters forbidden (or awkward) across the
// filesystems rosefs targets: / is a path separator everywhere, the rest
// trip up Windows-compatible tools that may later touch the same tree.
var illegalReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
)

// maxNameLength bounds a single sanitized path component.
const maxNameLength = 240

// Filename sanitizes a single path component: forbidden characters are
// replaced with underscores, leading/trailing whitespace and dots are
// trimmed (trailing dots confuse some tools), and the result is
// truncated to a safe length.
func Filename(s string) string {
	s = illegalReplacer.Replace(s)
	s = strings.TrimSpace(s)
	s = strings.Trim(s, ".")
	if s == "" {
		s = "_"
	}
	if len(s) > maxNameLength {
		s = s[:maxNameLength]
	}
	return s
}

// Disambiguate appends " [N]" the way the indexer disambiguates
// collisions among virtual dirnames/filenames: the first occurrence of a
// name is left bare, the second becomes "name [2]", the third "name [3]",
// and so on, continuing a counter that the caller tracks per namespace.
func Disambiguate(base string, n int) string {
	if n <= 1 {
		return base
	}
	return base + " [" + strconv.Itoa(n) + "]"
}
