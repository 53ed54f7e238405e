package index

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nucle0tides/rosefs/internal/audiotags"
	"github.com/nucle0tides/rosefs/internal/config"
	"github.com/nucle0tides/rosefs/internal/model"
	"github.com/nucle0tides/rosefs/internal/sanitize"
	"github.com/nucle0tides/rosefs/internal/sidecar"
)

// audioExtensions are the containers rosefs can mint/read IDs for.
// Anything else is invisible to the indexer (never becomes a track).
var audioExtensions = map[string]bool{
	".mp3":  true,
	".flac": true,
	".m4a":  true,
	".mp4":  true,
}

// IsAudioFile reports whether name's extension is one rosefs indexes as
// a track. Shared with internal/rosefs, which uses it to recognize the
// add-track-to-playlist special operation.
func IsAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// pendingRelease is one release's fully-scanned state, before
// virtual_dirname assignment and the database write.
type pendingRelease struct {
	dir          string
	id           string
	sidecarPath  string
	sidecarMtime string
	new          bool
	addedAt      time.Time

	title       string
	releaseType string
	year        *int
	multidisc   bool

	genres     []string
	labels     []string
	artistRefs []model.ArtistRef

	coverImagePath string
	tracks         []*pendingTrack

	virtualDirname string
}

type pendingTrack struct {
	id              string
	sourcePath      string
	sourceMtime     string
	title           string
	discNumber      string
	trackNumber     string
	durationSeconds int
	artistRefs      []model.ArtistRef

	virtualFilename string
}

// scanReleaseDir runs steps 1-6 and 8 of the release-indexing
// algorithm for a single directory: sidecar resolution, tag I/O,
// attribute computation and per-track filename disambiguation (which
// only needs this release's own tracks). Naming the release itself
// (step 7, which needs to see every other release in the batch) and
// the transactional write (steps 9-10) happen afterward in
// commitReleases. A nil, nil return means "nothing to index" (an
// ignored or empty directory, already handled here).
func (ix *Indexer) scanReleaseDir(ctx context.Context, dir string, force bool) (*pendingRelease, error) {
	base := filepath.Base(dir)
	for _, pattern := range ix.Config.IgnoreReleaseDirectories {
		if pattern == base {
			return nil, nil
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var audioFiles []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if IsAudioFile(e.Name()) {
			audioFiles = append(audioFiles, filepath.Join(dir, e.Name()))
		}
	}
	if len(audioFiles) == 0 {
		if err := ix.evictBySourcePath(ctx, dir); err != nil {
			log.Printf("[index] evict empty dir %s: %v", dir, err)
		}
		return nil, nil
	}
	sort.Strings(audioFiles)

	id, sidecarPath, body, err := ix.resolveSidecar(dir)
	if err != nil {
		return nil, fmt.Errorf("sidecar %s: %w", dir, err)
	}
	sidecarMtime, err := sidecar.Mtime(sidecarPath)
	if err != nil {
		return nil, fmt.Errorf("stat sidecar %s: %w", sidecarPath, err)
	}

	if !force {
		upToDate, err := ix.releaseUpToDate(ctx, id, sidecarMtime, audioFiles)
		if err != nil {
			return nil, err
		}
		if upToDate {
			return nil, nil
		}
	}

	p := &pendingRelease{
		dir:          dir,
		id:           id,
		sidecarPath:  sidecarPath,
		sidecarMtime: sidecarMtime,
		new:          body.New,
		addedAt:      body.AddedAt,
	}

	var (
		albums, types     []string
		years             []int
		genreSet, labelSet = map[string]bool{}, map[string]bool{}
		artistSet          = map[string]model.ArtistRef{}
		discNumbers        = map[string]bool{}
	)

	for _, path := range audioFiles {
		tags, err := audiotags.Load(path)
		if err != nil {
			log.Printf("[index] read tags %s: %v", path, err)
			continue
		}

		dirty := false
		if tags.TrackID == "" {
			tags.TrackID = uuid.New().String()
			dirty = true
		}
		if tags.ReleaseID == "" {
			tags.ReleaseID = id
			dirty = true
		}
		if dirty {
			if err := tags.Flush(); err != nil {
				log.Printf("[index] write tags %s: %v", path, err)
			}
		}

		mtime, err := fileMtime(path)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", path, err)
		}

		refs := trackArtistRefs(tags)
		for _, r := range refs {
			artistSet[r.Name+"|"+r.Role] = r
		}
		for _, g := range tags.Genres {
			genreSet[g] = true
		}
		for _, l := range tags.Labels {
			labelSet[l] = true
		}
		if tags.DiscNumber != "" {
			discNumbers[tags.DiscNumber] = true
		}

		albums = append(albums, tags.Album)
		types = append(types, tags.ReleaseType)
		if tags.Year != 0 {
			years = append(years, tags.Year)
		}

		t := &pendingTrack{
			id:              tags.TrackID,
			sourcePath:      path,
			sourceMtime:     mtime,
			title:           tags.Title,
			discNumber:      tags.DiscNumber,
			trackNumber:     tags.TrackNumber,
			durationSeconds: int(tags.Duration.Seconds()),
			artistRefs:      refs,
		}
		p.tracks = append(p.tracks, t)
	}

	p.title = pickMajority(albums)
	p.releaseType = pickMajority(types)
	if y := pickMajorityInt(years); y != 0 {
		p.year = &y
	}
	p.multidisc = len(discNumbers) > 1
	p.genres = sortedKeys(genreSet)
	p.labels = sortedKeys(labelSet)
	for _, r := range artistSet {
		p.artistRefs = append(p.artistRefs, r)
	}
	sort.Slice(p.artistRefs, func(i, j int) bool {
		if p.artistRefs[i].Role != p.artistRefs[j].Role {
			return p.artistRefs[i].Role < p.artistRefs[j].Role
		}
		return p.artistRefs[i].Name < p.artistRefs[j].Name
	})

	p.coverImagePath = findCoverImage(ix.Config, entries, dir)

	disambiguateTrackFilenames(p)

	return p, nil
}

// resolveSidecar implements step 3 of the release-indexing algorithm.
func (ix *Indexer) resolveSidecar(dir string) (id, path string, body *sidecar.Body, err error) {
	foundPath, foundID, ok := sidecar.FindIn(dir)
	if !ok {
		id := uuid.New().String()
		path := sidecar.Path(dir, id)
		body := sidecar.New()
		if err := sidecar.Write(path, body); err != nil {
			return "", "", nil, err
		}
		return id, path, body, nil
	}

	body, err = sidecar.Read(foundPath)
	if err != nil {
		// legacy/invalid sidecar: keep the filename ID, mint a fresh body.
		body = sidecar.New()
		if werr := sidecar.Write(foundPath, body); werr != nil {
			return "", "", nil, werr
		}
	}
	return foundID, foundPath, body, nil
}

// releaseUpToDate implements step 4: the release is skipped when its
// sidecar mtime and every audio file's mtime match what's in the
// cache, and the set of audio files hasn't changed.
func (ix *Indexer) releaseUpToDate(ctx context.Context, id, sidecarMtime string, audioFiles []string) (bool, error) {
	row := ix.Store.DB().QueryRowContext(ctx, `SELECT sidecar_mtime FROM releases WHERE id = ?`, id)
	var cachedSidecarMtime string
	if err := row.Scan(&cachedSidecarMtime); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, err
	}
	if cachedSidecarMtime != sidecarMtime {
		return false, nil
	}

	rows, err := ix.Store.DB().QueryContext(ctx, `SELECT source_path, source_mtime FROM tracks WHERE release_id = ?`, id)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	cached := map[string]string{}
	for rows.Next() {
		var path, mtime string
		if err := rows.Scan(&path, &mtime); err != nil {
			return false, err
		}
		cached[path] = mtime
	}
	if err := rows.Err(); err != nil {
		return false, err
	}

	if len(cached) != len(audioFiles) {
		return false, nil
	}
	for _, path := range audioFiles {
		cachedMtime, ok := cached[path]
		if !ok {
			return false, nil
		}
		mtime, err := fileMtime(path)
		if err != nil {
			return false, err
		}
		if mtime != cachedMtime {
			return false, nil
		}
	}
	return true, nil
}

func fileMtime(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	return info.ModTime().UTC().Format(time.RFC3339Nano), nil
}

// evictBySourcePath removes a cached release whose directory no
// longer contains any audio file (step 2's "previously cached" case).
func (ix *Indexer) evictBySourcePath(ctx context.Context, dir string) error {
	row := ix.Store.DB().QueryRowContext(ctx, `SELECT id FROM releases WHERE source_path = ?`, dir)
	var id string
	if err := row.Scan(&id); err != nil {
		if err == sql.ErrNoRows {
			return nil
		}
		return err
	}
	return ix.evictRelease(ctx, id)
}

// trackArtistRefs flattens a Tags value's Artists (falling back to
// AlbumArtists.Main only when Artists.Main is empty; the other roles
// have no fallback) into ArtistRef
// rows, alias=false (alias expansion happens later, against the
// configured map, not per-track).
func trackArtistRefs(tags *audiotags.Tags) []model.ArtistRef {
	var refs []model.ArtistRef
	seen := map[string]bool{}
	add := func(role string, names []string) {
		for _, n := range names {
			key := n + "|" + role
			if seen[key] {
				continue
			}
			seen[key] = true
			refs = append(refs, model.ArtistRef{Name: n, Role: role})
		}
	}
	add("main", tags.Artists.Main)
	add("guest", tags.Artists.Guest)
	add("remixer", tags.Artists.Remixer)
	add("producer", tags.Artists.Producer)
	add("composer", tags.Artists.Composer)
	add("djmixer", tags.Artists.DJMixer)
	if len(tags.Artists.Main) == 0 {
		add("main", tags.AlbumArtists.Main)
	}
	return refs
}

// pickMajority implements the "most-common value, first-occurrence
// tiebreak" rule (SPEC_FULL.md §4.C supplement) for release-level
// string attributes picked from heterogeneous track tags.
func pickMajority(values []string) string {
	counts := map[string]int{}
	var order []string
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	best, bestCount := "", 0
	for _, v := range order {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

func pickMajorityInt(values []int) int {
	counts := map[int]int{}
	var order []int
	for _, v := range values {
		if v == 0 {
			continue
		}
		if _, ok := counts[v]; !ok {
			order = append(order, v)
		}
		counts[v]++
	}
	best, bestCount := 0, 0
	for _, v := range order {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func findCoverImage(cfg *config.Config, entries []os.DirEntry, dir string) string {
	names := map[string]bool{}
	for _, n := range cfg.ValidCoverArts {
		names[strings.ToLower(n)] = true
	}
	exts := map[string]bool{}
	for _, e := range cfg.ValidArtExts {
		exts["."+strings.ToLower(strings.TrimPrefix(e, "."))] = true
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		stem := strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name)))
		if names[stem] && exts[ext] {
			return filepath.Join(dir, name)
		}
	}
	return ""
}

// disambiguateTrackFilenames implements step 8: per-track
// virtual_filename, sanitized and disambiguated within this release
// only (unlike virtual_dirname, which must be unique across every
// cached release and is resolved later in commitReleases).
func disambiguateTrackFilenames(p *pendingRelease) {
	used := map[string]int{}
	for _, t := range p.tracks {
		ext := filepath.Ext(t.sourcePath)
		artists := artistRefsDisplayName(t.artistRefs)
		base := sanitize.Filename(fmt.Sprintf("%s - %s%s", artists, t.title, ext))
		used[base]++
		t.virtualFilename = sanitize.Disambiguate(base, used[base])
	}
}

// artistRefsDisplayName renders a plain ";"-joined display string for
// filename construction (release/track-level formatted_artists, a
// richer rendering via artiststr.Format, is computed separately when
// the row is written).
func artistRefsDisplayName(refs []model.ArtistRef) string {
	var main []string
	for _, r := range refs {
		if r.Role == "main" {
			main = append(main, r.Name)
		}
	}
	if len(main) == 0 {
		for _, r := range refs {
			main = append(main, r.Name)
		}
	}
	return strings.Join(main, ";")
}

// buildVirtualDirnameBase implements the naming half of step 7:
// "{NEW} " prefix, "{artists} - {year}. {title} [{genres}]", sanitized.
func buildVirtualDirnameBase(p *pendingRelease) string {
	artists := artistRefsDisplayName(p.artistRefs)
	var b strings.Builder
	b.WriteString(artists)
	b.WriteString(" - ")
	if p.year != nil {
		b.WriteString(strconv.Itoa(*p.year))
		b.WriteString(". ")
	}
	b.WriteString(p.title)
	if len(p.genres) > 0 {
		b.WriteString(" [")
		b.WriteString(strings.Join(p.genres, ", "))
		b.WriteString("]")
	}
	name := b.String()
	if p.new {
		name = "{NEW} " + name
	}
	return sanitize.Filename(name)
}
