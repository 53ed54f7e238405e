package rules

import "strings"

// ParseMatcher splits a matcher into its literal text and the anchors
// (^ prefix, $ suffix) it carries, mirroring
// original_source/rose/rules.py's matcher parsing: a leading ^ anchors
// at the start of the value, a trailing $ anchors at the end, and
// either's absence means that side is unanchored (substring match).
func ParseMatcher(matcher string) (text string, anchorStart, anchorEnd bool) {
	text = matcher
	if strings.HasPrefix(text, "^") {
		anchorStart = true
		text = text[1:]
	}
	if strings.HasSuffix(text, "$") {
		anchorEnd = true
		text = text[:len(text)-1]
	}
	return text, anchorStart, anchorEnd
}

// likeEscaper escapes the two SQL LIKE metacharacters so a matcher's
// literal text can't smuggle in a wildcard of its own.
var likeEscaper = strings.NewReplacer("%", `\%`, "_", `\_`)

// ToLikePattern converts a matcher into a SQL LIKE pattern (to be used
// with `LIKE ? ESCAPE '\'`), dropping the % wildcard on whichever side
// carries an anchor.
func ToLikePattern(matcher string) string {
	text, anchorStart, anchorEnd := ParseMatcher(matcher)
	escaped := likeEscaper.Replace(text)

	prefix, suffix := "%", "%"
	if anchorStart {
		prefix = ""
	}
	if anchorEnd {
		suffix = ""
	}
	return prefix + escaped + suffix
}

// Matches is the strict, disk-side re-check run against a candidate's
// real tag value after the SQL LIKE pass has narrowed the search,
// since the cache can be stale relative to the file on disk.
func Matches(matcher, value string) bool {
	text, anchorStart, anchorEnd := ParseMatcher(matcher)
	text = strings.ToLower(text)
	value = strings.ToLower(value)

	switch {
	case anchorStart && anchorEnd:
		return value == text
	case anchorStart:
		return strings.HasPrefix(value, text)
	case anchorEnd:
		return strings.HasSuffix(value, text)
	default:
		return strings.Contains(value, text)
	}
}

// MatchesAny reports whether matcher matches any of values, the form
// Matches takes for multi-valued tags (genre, label, artist).
func MatchesAny(matcher string, values []string) bool {
	for _, v := range values {
		if Matches(matcher, v) {
			return true
		}
	}
	return false
}
