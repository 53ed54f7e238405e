// Package artiststr parses and formats the artist-credit strings stored
// in audio tags, following the same splitting/role grammar as rosefs's
// Python predecessor: a bare "artist" tag can embed "feat.", "remixed
// by", "pres.", and "performed by" sub-credits, and multi-artist tags
// split on a small family of separators.
package artiststr

import (
	"regexp"
	"strings"
)

// tagSplitter matches the separators historically used to delimit
// multiple artists packed into a single tag value.
var tagSplitter = regexp.MustCompile(`\s\\\\\s|\s/\s|;\s?|\svs\.\s`)

// Artists holds every artist role a release or track can carry.
type Artists struct {
	Main     []string
	Guest    []string
	Remixer  []string
	Producer []string
	Composer []string
	DJMixer  []string
}

// Roles enumerates the artist roles the data model tracks.
var Roles = []string{"main", "guest", "remixer", "producer", "composer", "djmixer"}

func splitTag(t string) []string {
	if t == "" {
		return nil
	}
	parts := tagSplitter.Split(t, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseOpts carries the auxiliary tag fields (beyond the bare "artist"
// tag) that some formats expose directly.
type ParseOpts struct {
	Remixer  string
	Composer string
	Producer string
	DJMixer  string
}

// Parse builds an Artists value from a main artist tag string plus any
// auxiliary role tags the format exposes directly. It mirrors the
// sub-string extraction rules of the original implementation: "remixed
// by X" inside main moves X to Remixer, "feat. X" moves X to Guest,
// "X pres. main" moves X (the text before "pres.") to DJMixer, and
// "X performed by main" moves X (the text before "performed by") to
// Composer.
func Parse(main string, opts ParseOpts) Artists {
	liGuest := []string{}
	liRemixer := splitTag(opts.Remixer)
	liComposer := splitTag(opts.Composer)
	liProducer := splitTag(opts.Producer)
	liDJ := splitTag(opts.DJMixer)

	if main != "" {
		if idx := strings.Index(main, "remixed by "); idx >= 0 {
			rest := main[idx+len("remixed by "):]
			main = strings.TrimSpace(main[:idx])
			liRemixer = append(liRemixer, splitTag(rest)...)
		} else if idx := indexAny(main, " remixed by "); idx >= 0 {
			rest := main[idx+len(" remixed by "):]
			main = strings.TrimSpace(main[:idx])
			liRemixer = append(liRemixer, splitTag(rest)...)
		}
	}
	if main != "" {
		if idx := strings.Index(main, "feat. "); idx >= 0 {
			rest := main[idx+len("feat. "):]
			main = strings.TrimSpace(main[:idx])
			liGuest = append(liGuest, splitTag(rest)...)
		} else if idx := indexAny(main, " feat. "); idx >= 0 {
			rest := main[idx+len(" feat. "):]
			main = strings.TrimSpace(main[:idx])
			liGuest = append(liGuest, splitTag(rest)...)
		}
	}
	if main != "" {
		if idx := strings.Index(main, "pres. "); idx >= 0 {
			dj := main[:idx]
			main = strings.TrimSpace(main[idx+len("pres. "):])
			liDJ = append(liDJ, splitTag(dj)...)
		} else if idx := indexAny(main, " pres. "); idx >= 0 {
			dj := main[:idx]
			main = strings.TrimSpace(main[idx+len(" pres. "):])
			liDJ = append(liDJ, splitTag(dj)...)
		}
	}
	if main != "" {
		if idx := strings.Index(main, "performed by "); idx >= 0 {
			composer := main[:idx]
			main = strings.TrimSpace(main[idx+len("performed by "):])
			liComposer = append(liComposer, splitTag(composer)...)
		} else if idx := indexAny(main, " performed by "); idx >= 0 {
			composer := main[:idx]
			main = strings.TrimSpace(main[idx+len(" performed by "):])
			liComposer = append(liComposer, splitTag(composer)...)
		}
	}

	mainList := splitTag(main)

	return Artists{
		Main:     mainList,
		Guest:    liGuest,
		Remixer:  liRemixer,
		Producer: liProducer,
		Composer: liComposer,
		DJMixer:  liDJ,
	}
}

func indexAny(s, sub string) int {
	return strings.Index(s, sub)
}

// Format renders an Artists value back into the single display string
// used for a release/track's "formatted-artists" attribute. Classical
// releases (by genre) prefix the composer credit; a DJ-mix prefixes the
// DJ credit with "pres."; guest and remixer credits are suffixed.
func Format(a Artists, genres []string) string {
	var parts []string
	parts = append(parts, a.Producer...)
	parts = append(parts, a.Main...)
	parts = append(parts, a.Remixer...)
	r := strings.Join(parts, ";")

	if len(a.Composer) > 0 && containsFold(genres, "classical") {
		r = strings.Join(a.Composer, ";") + " performed by " + r
	}
	if len(a.DJMixer) > 0 {
		r = strings.Join(a.DJMixer, ";") + " pres. " + r
	}
	if len(a.Guest) > 0 {
		r += " feat. " + strings.Join(a.Guest, ";")
	}
	if len(a.Remixer) > 0 {
		r += " remixed by " + strings.Join(a.Remixer, ";")
	}
	return r
}

func containsFold(list []string, target string) bool {
	for _, s := range list {
		if strings.EqualFold(s, target) {
			return true
		}
	}
	return false
}

// All returns every artist name across every role, deduplicated, for
// callers (the indexer) that need the flat set attached to a release or
// track regardless of role.
func (a Artists) All() []string {
	seen := map[string]bool{}
	var out []string
	for _, role := range [][]string{a.Main, a.Guest, a.Remixer, a.Producer, a.Composer, a.DJMixer} {
		for _, name := range role {
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}

// ByRole returns the slice for a given role name, or nil if the role is
// unrecognized.
func (a Artists) ByRole(role string) []string {
	switch role {
	case "main":
		return a.Main
	case "guest":
		return a.Guest
	case "remixer":
		return a.Remixer
	case "producer":
		return a.Producer
	case "composer":
		return a.Composer
	case "djmixer":
		return a.DJMixer
	default:
		return nil
	}
}
