package rosefs

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/nucle0tides/rosefs/internal/vpath"
)

// RootNode is the mountpoint's top-level directory: the eight virtual
// view folders spec.md's Virtual Path Parser names. Grounded on the teacher's
// internal/fs/root.go RootNode, generalized from a hardcoded
// teams/users/my/initiatives listing to vpath.RootEntries.
type RootNode struct {
	BaseNode
}

var (
	_ fs.NodeReaddirer = (*RootNode)(nil)
	_ fs.NodeLookuper  = (*RootNode)(nil)
	_ fs.NodeGetattrer = (*RootNode)(nil)
)

func (r *RootNode) Getattr(_ context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o755
	r.SetOwner(out)
	return 0
}

func (r *RootNode) Readdir(_ context.Context) (fs.DirStream, syscall.Errno) {
	entries := make([]fuse.DirEntry, 0, len(vpath.RootEntries))
	for _, name := range vpath.RootEntries {
		entries = append(entries, fuse.DirEntry{Name: name, Mode: syscall.S_IFDIR})
	}
	return fs.NewListDirStream(entries), 0
}

func (r *RootNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	var child fs.InodeEmbedder
	switch name {
	case vpath.FolderReleases:
		child = &ReleaseListNode{BaseNode: BaseNode{fsys: r.fsys}, view: vpath.ViewReleases}
	case vpath.FolderNew:
		child = &ReleaseListNode{BaseNode: BaseNode{fsys: r.fsys}, view: vpath.ViewNew}
	case vpath.FolderRecentlyAdded:
		child = &RecentlyAddedNode{BaseNode: BaseNode{fsys: r.fsys}}
	case vpath.FolderArtists:
		child = &FilterListNode{BaseNode: BaseNode{fsys: r.fsys}, view: vpath.ViewArtists}
	case vpath.FolderGenres:
		child = &FilterListNode{BaseNode: BaseNode{fsys: r.fsys}, view: vpath.ViewGenres}
	case vpath.FolderLabels:
		child = &FilterListNode{BaseNode: BaseNode{fsys: r.fsys}, view: vpath.ViewLabels}
	case vpath.FolderCollages:
		child = &CollageListNode{BaseNode: BaseNode{fsys: r.fsys}}
	case vpath.FolderPlaylists:
		child = &PlaylistListNode{BaseNode: BaseNode{fsys: r.fsys}}
	default:
		return nil, syscall.ENOENT
	}

	out.Mode = syscall.S_IFDIR | 0o755
	r.SetOwner(out)
	return r.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFDIR}), 0
}
