package rosefs

import (
	"context"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"
)

// ghostFile is what a directory node fakes existing for ghostFileTTL
// after a file-creation special op completes: a plain regular file of
// the given size, so that a tool chaining a stat/chmod/utimes call
// right after create (cp -p) doesn't see ENOENT on the path it just
// wrote.
type ghostFile struct {
	size uint64
}

// registerGhostFile marks virtualPath as a ghost regular file of size
// bytes for the next ghostFileTTL.
func (r *RoseFS) registerGhostFile(virtualPath string, size uint64) {
	r.ghostFiles.Set(virtualPath, ghostFile{size: size})
}

// ghostFileAt returns the ghost entry for virtualPath, if any remains
// unexpired.
func (r *RoseFS) ghostFileAt(virtualPath string) (ghostFile, bool) {
	return r.ghostFiles.Get(virtualPath)
}

// registerGhostDir marks virtualPath as a ghost, writable, empty
// directory for the next ghostDirTTL, so a tool can drop files into a
// just-added collage member directory without error. Writes into it
// are accepted and dropped: the collage stores a release reference,
// not copies of its files.
func (r *RoseFS) registerGhostDir(virtualPath string) {
	r.ghostDirs.Set(virtualPath, true)
}

// isGhostDir reports whether virtualPath is still a live ghost
// directory.
func (r *RoseFS) isGhostDir(virtualPath string) bool {
	_, ok := r.ghostDirs.Get(virtualPath)
	return ok
}

// GhostDirNode is the directory a just-added collage member pretends
// to be: empty, writable, and every write into it silently dropped,
// since a collage stores a release reference rather than copies of
// its files.
type GhostDirNode struct {
	fs.Inode
	fsys *RoseFS
}

var (
	_ fs.NodeGetattrer = (*GhostDirNode)(nil)
	_ fs.NodeReaddirer = (*GhostDirNode)(nil)
	_ fs.NodeCreater   = (*GhostDirNode)(nil)
)

func (n *GhostDirNode) Getattr(_ context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o755
	if n.fsys != nil {
		out.Uid = n.fsys.uid
		out.Gid = n.fsys.gid
	}
	return 0
}

func (n *GhostDirNode) Readdir(_ context.Context) (fs.DirStream, syscall.Errno) {
	return fs.NewListDirStream(nil), 0
}

func (n *GhostDirNode) Create(ctx context.Context, name string, _ uint32, _ uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	child := &sinkFileNode{}
	out.Mode = syscall.S_IFREG | 0o644
	if n.fsys != nil {
		out.Uid = n.fsys.uid
		out.Gid = n.fsys.gid
	}
	inode := n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG})
	return inode, nil, fuse.FOPEN_DIRECT_IO, 0
}

// sinkFileNode accepts and discards every write, for files dropped
// into a ghost directory.
type sinkFileNode struct {
	fs.Inode
}

var (
	_ fs.NodeGetattrer = (*sinkFileNode)(nil)
	_ fs.NodeOpener    = (*sinkFileNode)(nil)
	_ fs.NodeWriter    = (*sinkFileNode)(nil)
)

func (n *sinkFileNode) Getattr(_ context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = 0o644
	return 0
}

func (n *sinkFileNode) Open(_ context.Context, _ uint32) (fs.FileHandle, uint32, syscall.Errno) {
	return nil, fuse.FOPEN_DIRECT_IO, 0
}

func (n *sinkFileNode) Write(_ context.Context, _ fs.FileHandle, data []byte, _ int64) (uint32, syscall.Errno) {
	return uint32(len(data)), 0
}
