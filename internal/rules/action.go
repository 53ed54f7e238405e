package rules

import (
	"strconv"
	"strings"

	"github.com/nucle0tides/rosefs/internal/errs"
)

// applySingleValue applies a Replace/Sed/Delete action to one scalar
// value, returning the new value and whether it actually changed.
// field is only used to give Replace's year integer check a name for
// the error it raises.
func applySingleValue(action Action, field TagField, value string) (string, bool, error) {
	switch action.Kind {
	case ActionReplace:
		if field == TagYear {
			if _, err := strconv.Atoi(action.Replacement); err != nil {
				return "", false, errs.InvalidReplacementValue(string(field), action.Replacement)
			}
		}
		return action.Replacement, action.Replacement != value, nil
	case ActionSed:
		newVal := action.SedPattern.ReplaceAllString(value, action.SedReplacement)
		return newVal, newVal != value, nil
	case ActionDelete:
		return "", value != "", nil
	default:
		return "", false, errs.InvalidRuleAction(string(action.Kind), string(field))
	}
}

// applyMultiValue applies an action to a multi-valued tag (genre,
// label, or one artist role list). ReplaceAll replaces the whole list
// unconditionally; every other action kind only touches the elements
// matcher matches, appending the rest unchanged, mirroring
// original_source/rose/rules.py:162-181 (execute_multi_value_action):
// Split replaces a matching element with value.split(delimiter)'s
// trimmed non-empty parts; everything else falls back to
// applySingleValue per matching element, dropping elements Delete
// empties.
func applyMultiValue(matcher string, action Action, field TagField, values []string) ([]string, bool, error) {
	switch action.Kind {
	case ActionReplaceAll:
		return action.ReplacementAll, !stringSliceEqual(values, action.ReplacementAll), nil
	case ActionSplit:
		var out []string
		changed := false
		for _, v := range values {
			if !Matches(matcher, v) {
				out = append(out, v)
				continue
			}
			changed = true
			for _, part := range strings.Split(v, action.SplitDelimiter) {
				part = strings.TrimSpace(part)
				if part != "" {
					out = append(out, part)
				}
			}
		}
		return out, changed, nil
	default:
		out := make([]string, 0, len(values))
		changed := false
		for _, v := range values {
			if !Matches(matcher, v) {
				out = append(out, v)
				continue
			}
			newVal, elementChanged, err := applySingleValue(action, field, v)
			if err != nil {
				return nil, false, err
			}
			if elementChanged {
				changed = true
			}
			if newVal != "" {
				out = append(out, newVal)
			}
		}
		return out, changed, nil
	}
}

func stringSliceEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
