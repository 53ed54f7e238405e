package rosefs

import (
	"context"
	"path/filepath"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/nucle0tides/rosefs/internal/audiotags"
	"github.com/nucle0tides/rosefs/internal/index"
	"github.com/nucle0tides/rosefs/internal/model"
	"github.com/nucle0tides/rosefs/internal/vpath"
)

// PlaylistListNode renders "8. Playlists": one directory per playlist.
type PlaylistListNode struct {
	BaseNode
}

var (
	_ fs.NodeReaddirer = (*PlaylistListNode)(nil)
	_ fs.NodeLookuper  = (*PlaylistListNode)(nil)
	_ fs.NodeGetattrer = (*PlaylistListNode)(nil)
	_ fs.NodeMkdirer   = (*PlaylistListNode)(nil)
	_ fs.NodeRmdirer   = (*PlaylistListNode)(nil)
	_ fs.NodeRenamer   = (*PlaylistListNode)(nil)
)

func (n *PlaylistListNode) Getattr(_ context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o755
	n.SetOwner(out)
	return 0
}

func (n *PlaylistListNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	names, err := n.fsys.Cache.ListPlaylists(ctx)
	if err != nil {
		return nil, syscall.EIO
	}
	entries := make([]fuse.DirEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, fuse.DirEntry{Name: name, Mode: syscall.S_IFDIR})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *PlaylistListNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	exists, err := n.fsys.Cache.PlaylistExists(ctx, name)
	if err != nil {
		return nil, syscall.EIO
	}
	if !exists {
		return nil, syscall.ENOENT
	}
	out.Mode = syscall.S_IFDIR | 0o755
	n.SetOwner(out)
	child := &PlaylistDirNode{BaseNode: n.BaseNode, name: name}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFDIR}), 0
}

func (n *PlaylistListNode) Mkdir(ctx context.Context, name string, _ uint32, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if err := n.fsys.Library.CreatePlaylist(ctx, name); err != nil {
		return nil, syscall.EIO
	}
	out.Mode = syscall.S_IFDIR | 0o755
	n.SetOwner(out)
	child := &PlaylistDirNode{BaseNode: n.BaseNode, name: name}
	return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFDIR}), 0
}

func (n *PlaylistListNode) Rmdir(ctx context.Context, name string) syscall.Errno {
	if err := n.fsys.Library.DeletePlaylist(ctx, name); err != nil {
		return syscall.ENOENT
	}
	n.fsys.invalidate(name)
	return 0
}

func (n *PlaylistListNode) Rename(ctx context.Context, oldName string, newParent fs.InodeEmbedder, newName string, _ uint32) syscall.Errno {
	if _, ok := newParent.(*PlaylistListNode); !ok {
		return syscall.EACCES
	}
	if err := n.fsys.Library.RenamePlaylist(ctx, oldName, newName); err != nil {
		return syscall.EIO
	}
	n.fsys.invalidate(oldName)
	n.fsys.invalidate(newName)
	return 0
}

// PlaylistDirNode is one playlist's track list plus optional cover
// image. Unlink removes a track (or the cover); Create of a supported
// audio file or a valid_cover_arts name starts the matching
// file-creation special operation.
type PlaylistDirNode struct {
	BaseNode
	name string
}

var (
	_ fs.NodeReaddirer = (*PlaylistDirNode)(nil)
	_ fs.NodeLookuper  = (*PlaylistDirNode)(nil)
	_ fs.NodeGetattrer = (*PlaylistDirNode)(nil)
	_ fs.NodeUnlinker  = (*PlaylistDirNode)(nil)
	_ fs.NodeCreater   = (*PlaylistDirNode)(nil)
)

func (n *PlaylistDirNode) Getattr(_ context.Context, _ fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Mode = syscall.S_IFDIR | 0o755
	n.SetOwner(out)
	return 0
}

func (n *PlaylistDirNode) playlist(ctx context.Context) (*model.Playlist, syscall.Errno) {
	p, err := n.fsys.Cache.GetPlaylist(ctx, n.name)
	if err != nil {
		return nil, syscall.EIO
	}
	if p == nil {
		return nil, syscall.ENOENT
	}
	return p, 0
}

func (n *PlaylistDirNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	p, errno := n.playlist(ctx)
	if errno != 0 {
		return nil, errno
	}
	entries := make([]fuse.DirEntry, 0, len(p.Entries)+1)
	for _, e := range p.Entries {
		entries = append(entries, fuse.DirEntry{Name: vpath.FormatPlaylistPosition(e.Position, e.DescriptionMeta), Mode: syscall.S_IFREG})
	}
	if p.CoverPath != "" {
		entries = append(entries, fuse.DirEntry{Name: filepath.Base(p.CoverPath), Mode: syscall.S_IFREG})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *PlaylistDirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	p, errno := n.playlist(ctx)
	if errno != 0 {
		return nil, errno
	}
	_, stripped, _ := vpath.ParsePositionEntry(name)
	for _, e := range p.Entries {
		if e.DescriptionMeta == stripped {
			if e.Missing {
				return nil, syscall.ENOENT
			}
			sourcePath, ok, err := n.fsys.Cache.GetTrackSourcePath(ctx, e.TrackID)
			if err != nil || !ok {
				return nil, syscall.ENOENT
			}
			reindexDir, _, err := n.fsys.Cache.GetTrackReleaseSourceDir(ctx, e.TrackID)
			if err != nil {
				return nil, syscall.EIO
			}
			out.Mode = syscall.S_IFREG | 0o644
			n.SetOwner(out)
			child := &TrackFileNode{BaseNode: n.BaseNode, sourcePath: sourcePath, reindexDir: reindexDir}
			return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG}), 0
		}
	}
	if p.CoverPath != "" && filepath.Base(p.CoverPath) == name {
		out.Mode = syscall.S_IFREG | 0o644
		n.SetOwner(out)
		child := &TrackFileNode{BaseNode: n.BaseNode, sourcePath: p.CoverPath}
		return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG}), 0
	}
	if gf, ok := n.fsys.ghostFileAt(n.virtualChildPath(name)); ok {
		// Best-effort: the committed track now lives under its release's
		// own source directory, not under the playlist. Stat-only ghost
		// window; a real open of this path will fail until the caller
		// re-looks-up through the playlist's entry list.
		out.Mode = syscall.S_IFREG | 0o644
		out.Size = gf.size
		n.SetOwner(out)
		child := &TrackFileNode{BaseNode: n.BaseNode, sourcePath: name}
		return n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG}), 0
	}
	return nil, syscall.ENOENT
}

func (n *PlaylistDirNode) virtualChildPath(name string) string {
	return n.name + "/" + name
}

func (n *PlaylistDirNode) Unlink(ctx context.Context, name string) syscall.Errno {
	p, errno := n.playlist(ctx)
	if errno != 0 {
		return 0
	}
	_, stripped, _ := vpath.ParsePositionEntry(name)
	for _, e := range p.Entries {
		if e.DescriptionMeta == stripped {
			if err := n.fsys.Library.RemoveTrackFromPlaylist(ctx, n.name, e.TrackID); err != nil {
				return syscall.EIO
			}
			n.fsys.invalidate(n.name)
			return 0
		}
	}
	if p.CoverPath != "" && filepath.Base(p.CoverPath) == name {
		if err := n.fsys.Library.RemovePlaylistCoverArt(ctx, n.name); err != nil {
			return syscall.EIO
		}
		n.fsys.invalidate(n.virtualChildPath(name))
	}
	return 0
}

// Create recognizes the two file-creation special operations this
// view supports: dropping a supported audio file in to add it as a
// track, or a valid_cover_arts-named file to set the playlist cover.
func (n *PlaylistDirNode) Create(ctx context.Context, name string, _ uint32, _ uint32, out *fuse.EntryOut) (*fs.Inode, fs.FileHandle, uint32, syscall.Errno) {
	playlistName := n.name
	var child *SpecialOpNode
	switch {
	case index.IsAudioFile(name):
		child = &SpecialOpNode{
			fsys:        n.fsys,
			virtualPath: n.virtualChildPath(name),
			commit: func(content []byte) error {
				path, cleanup, err := writeTempFile(content, filepath.Ext(name))
				if err != nil {
					return err
				}
				defer cleanup()
				tags, err := audiotags.Load(path)
				if err != nil || tags.TrackID == "" {
					return nil // not a recognized, indexed audio file; silently drop
				}
				return n.fsys.Library.AddTrackToPlaylist(ctx, playlistName, tags.TrackID)
			},
		}
	case isCoverArtName(n.fsys, name):
		child = &SpecialOpNode{
			fsys:        n.fsys,
			virtualPath: n.virtualChildPath(name),
			commit: func(content []byte) error {
				path, cleanup, err := writeTempFile(content, filepath.Ext(name))
				if err != nil {
					return err
				}
				defer cleanup()
				return n.fsys.Library.SetPlaylistCoverArt(ctx, playlistName, path)
			},
		}
	default:
		return nil, nil, 0, syscall.EACCES
	}

	out.Mode = syscall.S_IFREG | 0o644
	n.SetOwner(out)
	inode := n.NewInode(ctx, child, fs.StableAttr{Mode: syscall.S_IFREG})
	return inode, nil, fuse.FOPEN_DIRECT_IO, 0
}
