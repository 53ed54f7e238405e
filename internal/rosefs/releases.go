package rosefs

import (
	"context"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/nucle0tides/rosefs/internal/cache"
	"github.com/nucle0tides/rosefs/internal/model"
	"github.com/nucle0tides/rosefs/internal/vpath"
)

const newDirnamePrefix = "{NEW} "

// ReleaseListNode renders a flat list of releases: the "1. Releases"
// and "2. Releases - New" top-level views, and the release list nested
// one level under an artist/genre/label filter.
type ReleaseListNode struct {
	BaseNode
	view   vpath.View
	filter cache.ReleaseFilter // pre-set dimension (artist/genre/label), if any
}

var (
	_ fs.NodeReaddirer = (*ReleaseListNode)(nil)
	_ fs.NodeLookuper  = (*ReleaseListNode)(nil)
	_ fs.NodeGetattrer = (*ReleaseListNode)(nil)
	_ fs.NodeRmdirer   = (*ReleaseListNode)(nil)
	_ fs.NodeRenamer   = (*ReleaseListNode)(nil)
)

func (n *ReleaseListNode) Getattr(_ context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o755
	n.SetOwner(out)
	return 0
}

func (n *ReleaseListNode) effectiveFilter() cache.ReleaseFilter {
	f := n.filter
	if n.view == vpath.ViewNew {
		isNew := true
		f.New = &isNew
	}
	return f
}

func (n *ReleaseListNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	releases, err := n.fsys.Cache.ListReleases(ctx, n.effectiveFilter())
	if err != nil {
		return nil, syscall.EIO
	}
	entries := make([]fuse.DirEntry, 0, len(releases))
	for _, r := range releases {
		entries = append(entries, fuse.DirEntry{Name: r.VirtualDirname, Mode: syscall.S_IFDIR})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *ReleaseListNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	release, err := n.fsys.Cache.GetRelease(ctx, name)
	if err != nil {
		return nil, syscall.EIO
	}
	if release == nil || (n.view == vpath.ViewNew && !release.New) {
		return nil, syscall.ENOENT
	}
	return spawnReleaseDir(ctx, n, release, out), 0
}

// Rmdir deletes a release directory, everywhere except under Collages
// (which implements its own Rmdir for "remove release from collage").
func (n *ReleaseListNode) Rmdir(ctx context.Context, name string) syscall.Errno {
	if err := n.fsys.Library.DeleteRelease(ctx, name); err != nil {
		return syscall.ENOENT
	}
	n.fsys.invalidate(name)
	return 0
}

// Rename recognizes exactly one semantic here: flipping the "{NEW} "
// prefix on a release dirname, which toggles the release's new flag.
// Everything else is refused.
func (n *ReleaseListNode) Rename(ctx context.Context, oldName string, newParent fs.InodeEmbedder, newName string, _ uint32) syscall.Errno {
	if !isNewToggle(oldName, newName) {
		return syscall.EACCES
	}
	if _, ok := newParent.(*ReleaseListNode); !ok {
		return syscall.EACCES
	}
	release, err := n.fsys.Cache.GetRelease(ctx, oldName)
	if err != nil || release == nil {
		return syscall.ENOENT
	}
	if err := n.fsys.Library.ToggleReleaseNew(ctx, release.ID); err != nil {
		return syscall.EIO
	}
	n.fsys.invalidate(oldName)
	n.fsys.invalidate(newName)
	return 0
}

// isNewToggle reports whether a and b are the same dirname except one
// carries the "{NEW} " prefix and the other doesn't.
func isNewToggle(a, b string) bool {
	aBase := strings.TrimPrefix(a, newDirnamePrefix)
	bBase := strings.TrimPrefix(b, newDirnamePrefix)
	if aBase != bBase {
		return false
	}
	return (a == newDirnamePrefix+aBase) != (b == newDirnamePrefix+bBase)
}

// RecentlyAddedNode renders "3. Releases - Recently Added": every
// release, named with a "[YYYY-MM-DD] " prefix taken from its added_at
// date.
type RecentlyAddedNode struct {
	BaseNode
}

var (
	_ fs.NodeReaddirer = (*RecentlyAddedNode)(nil)
	_ fs.NodeLookuper  = (*RecentlyAddedNode)(nil)
	_ fs.NodeGetattrer = (*RecentlyAddedNode)(nil)
)

func (n *RecentlyAddedNode) Getattr(_ context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o755
	n.SetOwner(out)
	return 0
}

func (n *RecentlyAddedNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	releases, err := n.fsys.Cache.ListReleases(ctx, cache.ReleaseFilter{})
	if err != nil {
		return nil, syscall.EIO
	}
	entries := make([]fuse.DirEntry, 0, len(releases))
	for _, r := range releases {
		name := vpath.FormatRecentlyAdded(r.AddedAt.Format("2006-01-02"), r.VirtualDirname)
		entries = append(entries, fuse.DirEntry{Name: name, Mode: syscall.S_IFDIR})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *RecentlyAddedNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	_, dirname, _ := vpath.ParseRecentlyAddedEntry(name)
	release, err := n.fsys.Cache.GetRelease(ctx, dirname)
	if err != nil {
		return nil, syscall.EIO
	}
	if release == nil {
		return nil, syscall.ENOENT
	}
	return spawnReleaseDir(ctx, n, release, out), 0
}

// spawnReleaseDir mints (or refreshes) a ReleaseDirNode child of
// parent for release.
func spawnReleaseDir(ctx context.Context, parent interface {
	fs.InodeEmbedder
	FS() *RoseFS
}, release *model.Release, out *fuse.EntryOut) *fs.Inode {
	child := &ReleaseDirNode{BaseNode: BaseNode{fsys: parent.FS()}, releaseID: release.ID}
	out.Mode = syscall.S_IFDIR | 0o755
	return parent.EmbeddedInode().NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFDIR})
}

// ReleaseDirNode is one release's directory: its tracks plus an
// optional cover image.
type ReleaseDirNode struct {
	BaseNode
	releaseID string
}

var (
	_ fs.NodeReaddirer = (*ReleaseDirNode)(nil)
	_ fs.NodeLookuper  = (*ReleaseDirNode)(nil)
	_ fs.NodeGetattrer = (*ReleaseDirNode)(nil)
	_ fs.NodeUnlinker  = (*ReleaseDirNode)(nil)
	_ fs.NodeCreater   = (*ReleaseDirNode)(nil)
)

func (n *ReleaseDirNode) Getattr(_ context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o755
	n.SetOwner(out)
	return 0
}

func (n *ReleaseDirNode) release(ctx context.Context) (*model.Release, syscall.Errno) {
	release, err := n.fsys.Cache.GetRelease(ctx, n.releaseID)
	if err != nil {
		return nil, syscall.EIO
	}
	if release == nil {
		return nil, syscall.ENOENT
	}
	return release, 0
}

func (n *ReleaseDirNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	release, errno := n.release(ctx)
	if errno != 0 {
		return nil, errno
	}
	entries := make([]fuse.DirEntry, 0, len(release.Tracks)+1)
	for _, t := range release.Tracks {
		entries = append(entries, fuse.DirEntry{Name: t.VirtualFilename, Mode: syscall.S_IFREG})
	}
	if release.CoverImagePath != "" {
		entries = append(entries, fuse.DirEntry{Name: filepath.Base(release.CoverImagePath), Mode: syscall.S_IFREG})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *ReleaseDirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	release, errno := n.release(ctx)
	if errno != 0 {
		return nil, errno
	}
	for _, t := range release.Tracks {
		if t.VirtualFilename == name {
			out.Mode = syscall.S_IFREG | 0o644
			n.SetOwner(out)
			child := &TrackFileNode{BaseNode: n.BaseNode, sourcePath: t.SourcePath, reindexDir: release.SourcePath}
			return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG}), 0
		}
	}
	if release.CoverImagePath != "" && filepath.Base(release.CoverImagePath) == name {
		out.Mode = syscall.S_IFREG | 0o644
		n.SetOwner(out)
		child := &TrackFileNode{BaseNode: n.BaseNode, sourcePath: release.CoverImagePath, reindexDir: release.SourcePath}
		return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG}), 0
	}
	if gf, ok := n.fsys.ghostFileAt(n.virtualChildPath(name)); ok {
		out.Mode = syscall.S_IFREG | 0o644
		out.Size = gf.size
		n.SetOwner(out)
		child := &TrackFileNode{BaseNode: n.BaseNode, sourcePath: filepath.Join(release.SourcePath, name), reindexDir: release.SourcePath}
		return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG}), 0
	}
	return nil, syscall.ENOENT
}

func (n *ReleaseDirNode) virtualChildPath(name string) string {
	return n.releaseID + "/" + name
}

// Unlink inside a release directory only ever targets the cover image;
// any other target (e.g. rm on a track, which is never exposed) is
// silently accepted so that `rm -r` of the whole release directory
// succeeds, with the actual deletion happening at the enclosing Rmdir.
func (n *ReleaseDirNode) Unlink(ctx context.Context, name string) syscall.Errno {
	release, errno := n.release(ctx)
	if errno != 0 {
		return 0
	}
	if release.CoverImagePath != "" && filepath.Base(release.CoverImagePath) == name {
		if err := n.fsys.Library.RemoveReleaseCoverArt(ctx, release.ID); err != nil {
			return syscall.EIO
		}
		n.fsys.invalidate(n.virtualChildPath(name))
	}
	return 0
}

// Create handles open(O_CREAT) of a new-cover-art filename directly
// under a release directory.
func (n *ReleaseDirNode) Create(ctx context.Context, name string, _ uint32, _ uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	if !isCoverArtName(n.fsys, name) {
		return nil, nil, 0, syscall.EACCES
	}
	releaseID := n.releaseID
	child := &SpecialOpNode{
		fsys:        n.fsys,
		virtualPath: n.virtualChildPath(name),
		commit: func(content []byte) error {
			path, cleanup, err := writeTempFile(content, filepath.Ext(name))
			if err != nil {
				return err
			}
			defer cleanup()
			return n.fsys.Library.SetReleaseCoverArt(ctx, releaseID, path)
		},
	}
	out.Mode = syscall.S_IFREG | 0o644
	n.SetOwner(out)
	inode := n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG})
	return inode, nil, fuse.FOPEN_DIRECT_IO, 0
}

// isCoverArtName reports whether name (case-folded) is one of the
// configured valid_cover_arts with any valid_art_exts extension.
func isCoverArtName(fsys *RoseFS, name string) bool {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	for _, cand := range fsys.Config.ValidCoverArts {
		if strings.EqualFold(cand, stem) {
			for _, validExt := range fsys.Config.ValidArtExts {
				if strings.EqualFold(strings.TrimPrefix(validExt, "."), ext) {
					return true
				}
			}
		}
	}
	return false
}

// TrackFileNode is a leaf: a real audio file or cover image, read and
// written through the underlying host file. reindexDir is the
// release directory to re-scan if the file is written to, resolved
// once at Lookup time regardless of which view exposed this file.
type TrackFileNode struct {
	BaseNode
	sourcePath string
	reindexDir string
}

var (
	_ fs.NodeGetattrer = (*TrackFileNode)(nil)
	_ fs.NodeOpener    = (*TrackFileNode)(nil)
)

func (n *TrackFileNode) Getattr(_ context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFREG | 0o644
	n.SetOwner(out)
	return 0
}

func (n *TrackFileNode) Open(_ context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	fsys := n.fsys
	dir := n.reindexDir
	h, fuseFlags, errno := fsys.openHostFile(n.sourcePath, flags, func() error {
		if dir == "" {
			return nil
		}
		return fsys.Index.UpdateCacheForReleases(context.Background(), []string{dir}, true, false)
	})
	if errno != 0 {
		return nil, fuseFlags, errno
	}
	return h, fuseFlags, errno
}
