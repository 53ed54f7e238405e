// Package rosefs implements the VFS Logical Core: a FUSE binding, over
// github.com/hanwen/go-fuse/v2's high-level fs.Inode API, that maps the
// nine FUSE operations onto the Cache Query API for reads and the
// Library Mutators for writes. Grounded on the teacher's
// internal/fs/linearfs.go and internal/fs/root.go (BaseNode embedding,
// fs.Mount wiring, kernel cache invalidation), generalized from a
// read-mostly issue tracker view onto a read/write music library tree.
package rosefs

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/nucle0tides/rosefs/internal/cache"
	"github.com/nucle0tides/rosefs/internal/config"
	"github.com/nucle0tides/rosefs/internal/index"
	"github.com/nucle0tides/rosefs/internal/library"
	"github.com/nucle0tides/rosefs/internal/store"
	"github.com/nucle0tides/rosefs/internal/ttlcache"
)

// lookupTTL is the attribute and entry timeout Mount hands the kernel,
// bounding how long a getattr/lookup result is reused before the next
// call re-queries the cache database. It is also lookupCache's TTL;
// nothing stores into lookupCache, invalidate only prunes it.
const lookupTTL = time.Second

// ghostFileTTL/ghostDirTTL are how long a just-completed special
// operation or collage-add mkdir pretends its target still exists, so
// that a tool issuing a metadata syscall right after create/rename
// (cp -p, mv) doesn't see ENOENT on a path it just touched.
const (
	ghostFileTTL = 2 * time.Second
	ghostDirTTL  = 5 * time.Second
)

// RoseFS owns every shared resource the FUSE node tree reads from: the
// configuration, the read-only Cache Query API, the Library Mutators
// (which themselves own the indexer), plus the process-local caches
// and handle table the operations above FUSE's own caching rely on.
type RoseFS struct {
	Config  *config.Config
	Store   *store.Store
	Cache   *cache.API
	Library *library.Mutators
	Index   *index.Indexer

	server *fuse.Server
	uid    uint32
	gid    uint32

	handles *handleTable

	lookupCache *ttlcache.Cache[bool]
	ghostFiles  *ttlcache.Cache[ghostFile]
	ghostDirs   *ttlcache.Cache[bool]
}

// New builds a RoseFS over cfg and st. Call Mount to bind it to a
// mountpoint.
func New(cfg *config.Config, st *store.Store) *RoseFS {
	return &RoseFS{
		Config:  cfg,
		Store:   st,
		Cache:   cache.New(st),
		Library: library.New(cfg, st),
		Index:   index.New(cfg, st),

		uid: uint32(os.Getuid()),
		gid: uint32(os.Getgid()),

		handles: newHandleTable(),

		lookupCache: ttlcache.New[bool](lookupTTL, 0),
		ghostFiles:  ttlcache.New[ghostFile](ghostFileTTL, 0),
		ghostDirs:   ttlcache.New[bool](ghostDirTTL, 0),
	}
}

// invalidate drops every in-process cache entry under path (and path
// itself), the way every mutating syscall must before it returns
// success to the kernel.
func (r *RoseFS) invalidate(path string) {
	r.lookupCache.DeleteByPrefix(path)
}

// BaseNode provides common functionality for every rosefs node: owner
// UID/GID on Getattr, and a handle back to the shared RoseFS.
type BaseNode struct {
	fs.Inode
	fsys *RoseFS
}

// SetOwner sets the UID and GID on the given AttrOut. Call this in
// every Getattr implementation.
func (b *BaseNode) SetOwner(out *fuse.AttrOut) {
	if b.fsys != nil {
		out.Uid = b.fsys.uid
		out.Gid = b.fsys.gid
	}
}

// FS returns the owning RoseFS.
func (b *BaseNode) FS() *RoseFS { return b.fsys }

// Mount mounts a new RoseFS at mountpoint.
func Mount(ctx context.Context, mountpoint string, cfg *config.Config, st *store.Store, debug bool) (*fuse.Server, *RoseFS, error) {
	rfs := New(cfg, st)

	root := &RootNode{BaseNode: BaseNode{fsys: rfs}}

	attrTimeout := lookupTTL
	entryTimeout := lookupTTL

	opts := &fs.Options{
		AttrTimeout:  &attrTimeout,
		EntryTimeout: &entryTimeout,
		MountOptions: fuse.MountOptions{
			Name:   "rosefs",
			FsName: "rose",
			Debug:  debug,
		},
	}

	if debug {
		log.Println("[rosefs] mounting with debug enabled")
	}

	server, err := fs.Mount(mountpoint, root, opts)
	if err != nil {
		return nil, nil, err
	}
	rfs.server = server
	return server, rfs, nil
}
