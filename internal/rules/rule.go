// Package rules implements the Rules Engine: matcher-to-SQL conversion
// for a fast cache-side candidate search, followed by a disk re-read
// and a strict re-match before any tag is actually touched. Grounded
// directly on original_source/rose/rules.py's
// execute_metadata_rule/execute_stored_metadata_rules.
package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/nucle0tides/rosefs/internal/errs"
)

// TagField names one of the tag fields a rule can target.
type TagField string

const (
	TagTrackTitle  TagField = "tracktitle"
	TagYear        TagField = "year"
	TagTrackNumber TagField = "tracknumber"
	TagDiscNumber  TagField = "discnumber"
	TagAlbumTitle  TagField = "albumtitle"
	TagReleaseType TagField = "releasetype"
	TagGenre       TagField = "genre"
	TagLabel       TagField = "label"
	TagArtist      TagField = "artist"
)

// multiValueFields is every TagField whose tag is a list rather than a
// scalar.
var multiValueFields = map[TagField]bool{
	TagGenre:  true,
	TagLabel:  true,
	TagArtist: true,
}

func (f TagField) multiValue() bool { return multiValueFields[f] }

func parseTagField(s string) (TagField, error) {
	switch TagField(s) {
	case TagTrackTitle, TagYear, TagTrackNumber, TagDiscNumber, TagAlbumTitle,
		TagReleaseType, TagGenre, TagLabel, TagArtist:
		return TagField(s), nil
	default:
		return "", fmt.Errorf("rules: unknown tag field %q", s)
	}
}

// ActionKind identifies which transform an Action applies.
type ActionKind string

const (
	ActionReplace    ActionKind = "replace"
	ActionReplaceAll ActionKind = "replace_all"
	ActionSed        ActionKind = "sed"
	ActionSplit      ActionKind = "split"
	ActionDelete     ActionKind = "delete"
)

// Action is one rule's effect: Replace/Sed/Delete apply to single-value
// tags, ReplaceAll/Split apply to multi-value tags, and the single-value
// actions also apply per-element within a multi-value tag.
type Action struct {
	Kind ActionKind

	Replacement    string   // Replace
	ReplacementAll []string // ReplaceAll

	SedPattern      *regexp.Regexp // Sed
	SedReplacement  string         // Sed

	SplitDelimiter string // Split
}

// ParseAction parses the config wire form of an action:
//
//	replace:VALUE
//	replace_all:VALUE1;VALUE2;...
//	sed:PATTERN:REPLACEMENT
//	split:DELIMITER
//	delete
func ParseAction(s string) (Action, error) {
	kind, rest, _ := strings.Cut(s, ":")
	switch ActionKind(kind) {
	case ActionReplace:
		return Action{Kind: ActionReplace, Replacement: rest}, nil
	case ActionReplaceAll:
		return Action{Kind: ActionReplaceAll, ReplacementAll: splitNonEmpty(rest, ";")}, nil
	case ActionSed:
		pattern, replacement, ok := strings.Cut(rest, ":")
		if !ok {
			return Action{}, fmt.Errorf("rules: sed action %q missing replacement", s)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return Action{}, fmt.Errorf("rules: sed pattern %q: %w", pattern, err)
		}
		return Action{Kind: ActionSed, SedPattern: re, SedReplacement: replacement}, nil
	case ActionSplit:
		if rest == "" {
			return Action{}, fmt.Errorf("rules: split action %q missing delimiter", s)
		}
		return Action{Kind: ActionSplit, SplitDelimiter: rest}, nil
	case ActionDelete:
		return Action{Kind: ActionDelete}, nil
	default:
		return Action{}, fmt.Errorf("rules: unknown action kind %q", kind)
	}
}

func splitNonEmpty(s, sep string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, sep) {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Rule is a fully parsed metadata rule: a matcher, the tag fields it
// targets, and the action to apply to matching values.
type Rule struct {
	Matcher string
	Tags    []TagField
	Action  Action
}

// ParseRule builds a Rule from a matcher string, a list of tag field
// names, and an action wire string.
func ParseRule(matcher string, tagNames []string, actionStr string) (Rule, error) {
	tags := make([]TagField, 0, len(tagNames))
	for _, name := range tagNames {
		f, err := parseTagField(name)
		if err != nil {
			return Rule{}, err
		}
		tags = append(tags, f)
	}
	action, err := ParseAction(actionStr)
	if err != nil {
		return Rule{}, err
	}
	for _, f := range tags {
		if !f.multiValue() && (action.Kind == ActionReplaceAll || action.Kind == ActionSplit) {
			return Rule{}, errs.InvalidRuleAction(string(action.Kind), string(f))
		}
	}
	return Rule{Matcher: matcher, Tags: tags, Action: action}, nil
}
