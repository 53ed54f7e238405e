package rosefs

import (
	"context"
	"strings"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/nucle0tides/rosefs/internal/cache"
	"github.com/nucle0tides/rosefs/internal/vpath"
)

// FilterListNode renders "4. Artists", "5. Genres", and "6. Labels":
// one directory per distinct value on that dimension, subject to the
// configured whitelist/blacklist, each containing the releases
// carrying that value.
type FilterListNode struct {
	BaseNode
	view vpath.View
}

var (
	_ fs.NodeReaddirer = (*FilterListNode)(nil)
	_ fs.NodeLookuper  = (*FilterListNode)(nil)
	_ fs.NodeGetattrer = (*FilterListNode)(nil)
)

func (n *FilterListNode) Getattr(_ context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o755
	n.SetOwner(out)
	return 0
}

func (n *FilterListNode) list(ctx context.Context) ([]string, error) {
	switch n.view {
	case vpath.ViewGenres:
		return n.fsys.Cache.ListGenres(ctx)
	case vpath.ViewLabels:
		return n.fsys.Cache.ListLabels(ctx)
	default:
		return n.fsys.Cache.ListArtists(ctx)
	}
}

func (n *FilterListNode) whitelist() []string {
	switch n.view {
	case vpath.ViewGenres:
		return n.fsys.Config.FuseGenresWhitelist
	case vpath.ViewLabels:
		return n.fsys.Config.FuseLabelsWhitelist
	default:
		return n.fsys.Config.FuseArtistsWhitelist
	}
}

func (n *FilterListNode) blacklist() []string {
	switch n.view {
	case vpath.ViewGenres:
		return n.fsys.Config.FuseGenresBlacklist
	case vpath.ViewLabels:
		return n.fsys.Config.FuseLabelsBlacklist
	default:
		return n.fsys.Config.FuseArtistsBlacklist
	}
}

// visible applies the dimension's whitelist (if non-empty, only listed
// names show) then its blacklist (listed names never show), purely a
// VFS display filter: the underlying cache rows are untouched.
func (n *FilterListNode) visible(name string) bool {
	if wl := n.whitelist(); len(wl) > 0 && !containsFold(wl, name) {
		return false
	}
	if containsFold(n.blacklist(), name) {
		return false
	}
	return true
}

func containsFold(list []string, name string) bool {
	for _, v := range list {
		if strings.EqualFold(v, name) {
			return true
		}
	}
	return false
}

func (n *FilterListNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	values, err := n.list(ctx)
	if err != nil {
		return nil, syscall.EIO
	}
	entries := make([]fuse.DirEntry, 0, len(values))
	for _, v := range values {
		if !n.visible(v) {
			continue
		}
		entries = append(entries, fuse.DirEntry{Name: v, Mode: syscall.S_IFDIR})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *FilterListNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if !n.visible(name) {
		return nil, syscall.ENOENT
	}
	var exists bool
	var err error
	switch n.view {
	case vpath.ViewGenres:
		exists, err = n.fsys.Cache.GenreExists(ctx, name)
	case vpath.ViewLabels:
		exists, err = n.fsys.Cache.LabelExists(ctx, name)
	default:
		exists, err = n.fsys.Cache.ArtistExists(ctx, name)
	}
	if err != nil {
		return nil, syscall.EIO
	}
	if !exists {
		return nil, syscall.ENOENT
	}

	filter := cache.ReleaseFilter{}
	switch n.view {
	case vpath.ViewGenres:
		filter.Genre = &name
	case vpath.ViewLabels:
		filter.Label = &name
	default:
		filter.Artist = &name
	}

	out.Mode = syscall.S_IFDIR | 0o755
	n.SetOwner(out)
	child := &ReleaseListNode{BaseNode: n.BaseNode, view: vpath.ViewReleases, filter: filter}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFDIR}), 0
}
