package rosefs

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/nucle0tides/rosefs/internal/vpath"
)

// CollageListNode renders "7. Collages": one directory per collage.
// mkdir creates a collage, rmdir deletes one, rename renames one.
type CollageListNode struct {
	BaseNode
}

var (
	_ fs.NodeReaddirer = (*CollageListNode)(nil)
	_ fs.NodeLookuper  = (*CollageListNode)(nil)
	_ fs.NodeGetattrer = (*CollageListNode)(nil)
	_ fs.NodeMkdirer   = (*CollageListNode)(nil)
	_ fs.NodeRmdirer   = (*CollageListNode)(nil)
	_ fs.NodeRenamer   = (*CollageListNode)(nil)
)

func (n *CollageListNode) Getattr(_ context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o755
	n.SetOwner(out)
	return 0
}

func (n *CollageListNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names, err := n.fsys.Cache.ListCollages(ctx)
	if err != nil {
		return nil, syscall.EIO
	}
	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, fuse.DirEntry{Name: name, Mode: syscall.S_IFDIR})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *CollageListNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	exists, err := n.fsys.Cache.CollageExists(ctx, name)
	if err != nil {
		return nil, syscall.EIO
	}
	if !exists {
		return nil, syscall.ENOENT
	}
	out.Mode = syscall.S_IFDIR | 0o755
	n.SetOwner(out)
	child := &CollageDirNode{BaseNode: n.BaseNode, name: name}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFDIR}), 0
}

func (n *CollageListNode) Mkdir(ctx context.Context, name string, _ uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if err := n.fsys.Library.CreateCollage(ctx, name); err != nil {
		return nil, syscall.EIO
	}
	out.Mode = syscall.S_IFDIR | 0o755
	n.SetOwner(out)
	child := &CollageDirNode{BaseNode: n.BaseNode, name: name}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFDIR}), 0
}

func (n *CollageListNode) Rmdir(ctx context.Context, name string) syscall.Errno {
	if err := n.fsys.Library.DeleteCollage(ctx, name); err != nil {
		return syscall.ENOENT
	}
	n.fsys.invalidate(name)
	return 0
}

func (n *CollageListNode) Rename(ctx context.Context, oldName string, newParent fs.InodeEmbedder, newName string, _ uint32) syscall.Errno {
	if _, ok := newParent.(*CollageListNode); !ok {
		return syscall.EACCES
	}
	if err := n.fsys.Library.RenameCollage(ctx, oldName, newName); err != nil {
		return syscall.EIO
	}
	n.fsys.invalidate(oldName)
	n.fsys.invalidate(newName)
	return 0
}

// CollageDirNode is one collage's member list: releases, named with
// a "N. " position prefix, zero-padded to the collage's width.
type CollageDirNode struct {
	BaseNode
	name string
}

var (
	_ fs.NodeReaddirer = (*CollageDirNode)(nil)
	_ fs.NodeLookuper  = (*CollageDirNode)(nil)
	_ fs.NodeGetattrer = (*CollageDirNode)(nil)
	_ fs.NodeMkdirer   = (*CollageDirNode)(nil)
	_ fs.NodeRmdirer   = (*CollageDirNode)(nil)
)

func (n *CollageDirNode) Getattr(_ context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o755
	n.SetOwner(out)
	return 0
}

func (n *CollageDirNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	members, err := n.fsys.Cache.ListCollageReleases(ctx, n.name)
	if err != nil {
		return nil, syscall.EIO
	}
	width := vpath.CollageWidth(len(members))
	entries := make([]fuse.DirEntry, 0, len(members))
	for _, m := range members {
		name := vpath.FormatCollagePosition(m.Position, width, m.DescriptionMeta)
		entries = append(entries, fuse.DirEntry{Name: name, Mode: syscall.S_IFDIR})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *CollageDirNode) findMember(ctx context.Context, name string) (dirname string, found bool, errno syscall.Errno) {
	members, err := n.fsys.Cache.ListCollageReleases(ctx, n.name)
	if err != nil {
		return "", false, syscall.EIO
	}
	_, stripped, _ := vpath.ParsePositionEntry(name)
	for _, m := range members {
		if m.DescriptionMeta == stripped {
			return m.DescriptionMeta, !m.Missing, 0
		}
	}
	return "", false, syscall.ENOENT
}

func (n *CollageDirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	dirname, live, errno := n.findMember(ctx, name)
	if errno != 0 {
		return nil, errno
	}
	if !live {
		return nil, syscall.ENOENT
	}
	release, err := n.fsys.Cache.GetRelease(ctx, dirname)
	if err != nil {
		return nil, syscall.EIO
	}
	if release == nil {
		return nil, syscall.ENOENT
	}
	out.Mode = syscall.S_IFDIR | 0o755
	n.SetOwner(out)
	return spawnReleaseDir(ctx, n, release, out), 0
}

// Mkdir here means "add this release to the collage": name must be an
// existing release's current virtual_dirname, typed without a
// position prefix.
func (n *CollageDirNode) Mkdir(ctx context.Context, name string, _ uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	release, err := n.fsys.Cache.GetRelease(ctx, name)
	if err != nil {
		return nil, syscall.EIO
	}
	if release == nil {
		return nil, syscall.ENOENT
	}
	if err := n.fsys.Library.AddReleaseToCollage(ctx, n.name, release.ID); err != nil {
		return nil, syscall.EIO
	}
	virtualPath := n.name + "/" + name
	n.fsys.registerGhostDir(virtualPath)
	n.fsys.invalidate(n.name)
	out.Mode = syscall.S_IFDIR | 0o755
	n.SetOwner(out)
	child := &GhostDirNode{fsys: n.fsys}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFDIR}), 0
}

// Rmdir here means "remove this release from the collage".
func (n *CollageDirNode) Rmdir(ctx context.Context, name string) syscall.Errno {
	dirname, _, errno := n.findMember(ctx, name)
	if errno != 0 {
		return errno
	}
	release, err := n.fsys.Cache.GetRelease(ctx, dirname)
	if err != nil {
		return syscall.EIO
	}
	releaseID := dirname
	if release != nil {
		releaseID = release.ID
	}
	if err := n.fsys.Library.RemoveReleaseFromCollage(ctx, n.name, releaseID); err != nil {
		return syscall.EIO
	}
	n.fsys.invalidate(n.name)
	return 0
}
