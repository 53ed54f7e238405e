// Package config loads rosefs's TOML configuration file the way the
// teacher's own config package loads YAML: a typed struct, a
// default-filled constructor, and a testable LoadWithEnv that accepts
// an injected environment lookup so tests never touch the real
// process environment.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/adrg/xdg"
)

// ArtistAlias is one entry of the configured alias table: an artist
// name and the aliases that should be expanded alongside it whenever
// that artist is credited.
type ArtistAlias struct {
	Artist  string   `toml:"artist"`
	Aliases []string `toml:"aliases"`
}

// StoredRule is the TOML shape of a persisted metadata rule, run by
// `rosefs rules-exec-stored`. The rules engine owns the richer,
// parsed representation; config only needs enough structure to
// round-trip the TOML.
type StoredRule struct {
	Matcher string   `toml:"matcher"`
	Tags    []string `toml:"tags"`
	Action  string   `toml:"action"`
}

// Config is rosefs's full set of external options (spec.md §6).
type Config struct {
	MusicSourceDir    string `toml:"music_source_dir"`
	FuseMountDir      string `toml:"fuse_mount_dir"`
	CacheDir          string `toml:"cache_dir"`
	CacheDatabasePath string `toml:"cache_database_path"`
	MaxProc           int    `toml:"max_proc"`

	ArtistAliases []ArtistAlias `toml:"artist_aliases"`

	FuseArtistsWhitelist []string `toml:"fuse_artists_whitelist"`
	FuseArtistsBlacklist []string `toml:"fuse_artists_blacklist"`
	FuseGenresWhitelist  []string `toml:"fuse_genres_whitelist"`
	FuseGenresBlacklist  []string `toml:"fuse_genres_blacklist"`
	FuseLabelsWhitelist  []string `toml:"fuse_labels_whitelist"`
	FuseLabelsBlacklist  []string `toml:"fuse_labels_blacklist"`

	IgnoreReleaseDirectories []string `toml:"ignore_release_directories"`

	StoredMetadataRules []StoredRule `toml:"stored_metadata_rules"`

	ValidArtExts   []string `toml:"valid_art_exts"`
	ValidCoverArts []string `toml:"valid_cover_arts"`

	// aliasesMap and aliasesParentsMap are derived from ArtistAliases
	// at load time: aliasesMap[artist] lists its configured aliases;
	// aliasesParentsMap[alias] lists the artists that claim it, the
	// reverse index the indexer needs to flag alias=true rows.
	aliasesMap       map[string][]string
	aliasesParentsMap map[string][]string
}

// DefaultConfig returns a Config with every option at its documented
// default. Callers normally get one of these back from Load/LoadWithEnv
// with file and environment overrides already applied.
func DefaultConfig() *Config {
	c := &Config{
		MaxProc:        1,
		CacheDir:       filepath.Join(xdg.CacheHome, "rosefs"),
		ValidArtExts:   []string{"jpg", "jpeg", "png"},
		ValidCoverArts: []string{"cover", "folder", "art", "front"},
	}
	c.buildAliasMaps()
	return c
}

// buildAliasMaps derives aliasesMap/aliasesParentsMap from
// ArtistAliases. Call after any change to ArtistAliases (Load does
// this once after parsing the TOML).
func (c *Config) buildAliasMaps() {
	c.aliasesMap = make(map[string][]string, len(c.ArtistAliases))
	c.aliasesParentsMap = make(map[string][]string)
	for _, a := range c.ArtistAliases {
		c.aliasesMap[a.Artist] = a.Aliases
		for _, alias := range a.Aliases {
			c.aliasesParentsMap[alias] = append(c.aliasesParentsMap[alias], a.Artist)
		}
	}
}

// AliasesFor returns the configured aliases of artist (nil if none).
func (c *Config) AliasesFor(artist string) []string {
	return c.aliasesMap[artist]
}

// ParentsOf returns the artists that list alias as one of their
// aliases (nil if none claim it).
func (c *Config) ParentsOf(alias string) []string {
	return c.aliasesParentsMap[alias]
}

// Load loads configuration using the real process environment.
func Load() (*Config, error) {
	return LoadWithEnv(os.Getenv)
}

// LoadWithEnv loads configuration using the provided environment
// lookup function, so tests can supply an isolated environment
// instead of mutating the real one.
func LoadWithEnv(getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPathWithEnv(getenv)
	if data, err := os.ReadFile(configPath); err == nil {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", configPath, err)
		}
	}
	cfg.buildAliasMaps()

	if dir := getenv("ROSEFS_MUSIC_SOURCE_DIR"); dir != "" {
		cfg.MusicSourceDir = dir
	}

	return cfg, nil
}

// Hash digests every field that invalidates the cache if it changes:
// the source directory, the alias map, and the ignore list. Passed to
// store.Open as configHash so a config edit triggers a rebuild the
// same way a schema change does.
func (c *Config) Hash() string {
	var b strings.Builder
	b.WriteString(c.MusicSourceDir)
	b.WriteString("\x00")
	aliases := append([]ArtistAlias(nil), c.ArtistAliases...)
	sort.Slice(aliases, func(i, j int) bool { return aliases[i].Artist < aliases[j].Artist })
	for _, a := range aliases {
		b.WriteString(a.Artist)
		b.WriteString("=")
		b.WriteString(strings.Join(a.Aliases, ","))
		b.WriteString("\x00")
	}
	ignore := append([]string(nil), c.IgnoreReleaseDirectories...)
	sort.Strings(ignore)
	b.WriteString(strings.Join(ignore, ","))
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// ConfigPath returns where rosefs expects its config file, resolved
// through the standard XDG base directory rules.
func ConfigPath() string {
	path, err := xdg.ConfigFile(filepath.Join("rosefs", "config.toml"))
	if err != nil {
		return filepath.Join(xdg.ConfigHome, "rosefs", "config.toml")
	}
	return path
}

func getConfigPathWithEnv(getenv func(string) string) string {
	if xdgConfig := getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "rosefs", "config.toml")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "rosefs", "config.toml")
}
