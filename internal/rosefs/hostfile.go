package rosefs

import (
	"context"
	"log"
	"os"
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fuse"
)

// roseHandle is a Rose-owned file handle wrapping a real, already-open
// host file. It backs every plain audio/cover read or write: the core
// opens the underlying source file and returns this wrapped handle,
// recording the owning release so a dirty handle triggers a targeted
// re-index on release, per the ordering guarantee that a mutation
// observed through a FUSE write is reflected in the cache before the
// kernel sees the release() call succeed.
type roseHandle struct {
	id    uint64
	kind  handleKind
	table *handleTable

	mu    sync.Mutex
	file  *os.File
	dirty bool

	// onDirtyRelease re-indexes whatever entity owns this file if dirty
	// is set. Left nil for read-only opens, which have nothing to flush.
	onDirtyRelease func() error
}

var _ interface {
	Read(ctx context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno)
	Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno)
	Flush(ctx context.Context) syscall.Errno
	Release(ctx context.Context) syscall.Errno
} = (*roseHandle)(nil)

func (h *roseHandle) Read(_ context.Context, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	n, err := h.file.ReadAt(dest, off)
	if err != nil && n == 0 {
		return nil, syscall.EIO
	}
	return fuse.ReadResultData(dest[:n]), 0
}

func (h *roseHandle) Write(_ context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()

	n, err := h.file.WriteAt(data, off)
	if err != nil {
		return uint32(n), syscall.EIO
	}
	h.dirty = true
	return uint32(n), 0
}

func (h *roseHandle) Flush(_ context.Context) syscall.Errno {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.flushLocked()
}

func (h *roseHandle) flushLocked() syscall.Errno {
	if !h.dirty {
		return 0
	}
	if h.onDirtyRelease != nil {
		if err := h.onDirtyRelease(); err != nil {
			log.Printf("[rosefs] re-index after write failed: %v", err)
			return syscall.EIO
		}
	}
	h.dirty = false
	return 0
}

func (h *roseHandle) Release(ctx context.Context) syscall.Errno {
	h.mu.Lock()
	errno := h.flushLocked()
	file := h.file
	h.mu.Unlock()

	h.table.release(h.id)
	if file != nil {
		if err := file.Close(); err != nil && errno == 0 {
			errno = syscall.EIO
		}
	}
	return errno
}

// openHostFile opens path on the host filesystem and mints a Rose
// handle for it. onDirtyRelease is called from Flush or Release, only
// if the handle saw a write since the last successful call.
func (r *RoseFS) openHostFile(path string, flags uint32, onDirtyRelease func() error) (*roseHandle, uint32, syscall.Errno) {
	f, err := os.OpenFile(path, int(flags), 0o644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, syscall.ENOENT
		}
		return nil, 0, syscall.EIO
	}
	h := r.handles.alloc(handleWrappedHost)
	h.file = f
	h.onDirtyRelease = onDirtyRelease
	return h, 0, 0
}
