// Package errs defines the typed error kinds surfaced by rosefs's core
// subsystems. The VFS Logical Core translates these into errno values;
// the CLI prints them as diagnostics.
package errs

import "fmt"

// Kind identifies a category of RoseError.
type Kind string

const (
	KindReleaseDoesNotExist Kind = "release_does_not_exist"
	KindCollageDoesNotExist Kind = "collage_does_not_exist"
	KindPlaylistDoesNotExist Kind = "playlist_does_not_exist"
	KindInvalidCoverArtFile  Kind = "invalid_cover_art_file"
	KindUnknownArtistRole    Kind = "unknown_artist_role"
	KindInvalidRuleAction    Kind = "invalid_rule_action"
	KindInvalidReplacement   Kind = "invalid_replacement_value"
	KindLockTimeout          Kind = "lock_timeout"
	KindSchemaMismatch       Kind = "schema_mismatch"
	KindUnknownFileHandle    Kind = "unknown_file_handle"
)

// RoseError is the shared root every rosefs error kind satisfies.
type RoseError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *RoseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *RoseError) Unwrap() error { return e.Err }

// New builds a RoseError of the given kind.
func New(kind Kind, message string) *RoseError {
	return &RoseError{Kind: kind, Message: message}
}

// Wrap builds a RoseError of the given kind wrapping a lower-level error.
func Wrap(kind Kind, message string, err error) *RoseError {
	return &RoseError{Kind: kind, Message: message, Err: err}
}

// Is reports whether err is a RoseError of the given kind.
func Is(err error, kind Kind) bool {
	re, ok := err.(*RoseError)
	if !ok {
		return false
	}
	return re.Kind == kind
}

func ReleaseDoesNotExist(idOrDirname string) error {
	return New(KindReleaseDoesNotExist, fmt.Sprintf("release %q does not exist", idOrDirname))
}

func CollageDoesNotExist(name string) error {
	return New(KindCollageDoesNotExist, fmt.Sprintf("collage %q does not exist", name))
}

func PlaylistDoesNotExist(name string) error {
	return New(KindPlaylistDoesNotExist, fmt.Sprintf("playlist %q does not exist", name))
}

func InvalidCoverArtFile(name string) error {
	return New(KindInvalidCoverArtFile, fmt.Sprintf("%q is not a valid cover art file", name))
}

func UnknownArtistRole(role string) error {
	return New(KindUnknownArtistRole, fmt.Sprintf("unknown artist role %q", role))
}

func InvalidRuleAction(action, tagKind string) error {
	return New(KindInvalidRuleAction, fmt.Sprintf("invalid action %s for %s tag", action, tagKind))
}

func InvalidReplacementValue(field, value string) error {
	return New(KindInvalidReplacement, fmt.Sprintf("failed to assign value %q to %s: value must be an integer", value, field))
}

func LockTimeout(name string) error {
	return New(KindLockTimeout, fmt.Sprintf("timed out acquiring lock %q", name))
}

func SchemaMismatch() error {
	return New(KindSchemaMismatch, "cache schema or config hash changed; full rebuild required")
}

func UnknownFileHandle(fh uint64) error {
	return New(KindUnknownFileHandle, fmt.Sprintf("unknown file handle %d", fh))
}
