package stream

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/streamcache/audiocache/internal/cache"
)

// Registry is the process-wide map of stream-id to Context. The registry
// lock protects only the id -> Context map itself; each Context carries its
// own lock for its fields and cache, so a lookup never holds the registry
// lock across a write or read.
type Registry struct {
	mu       sync.Mutex
	cacheDir string
	streams  map[string]*Context
	pending  map[string]struct{}
}

// NewRegistry creates an empty registry rooted at cacheDir, creating the
// directory if it does not already exist.
func NewRegistry(cacheDir string) (*Registry, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, errors.Wrapf(err, "stream: create cache directory %s", cacheDir)
	}
	return &Registry{
		cacheDir: cacheDir,
		streams:  make(map[string]*Context),
		pending:  make(map[string]struct{}),
	}, nil
}

func (r *Registry) cachePath(streamID string) string {
	return filepath.Join(r.cacheDir, fmt.Sprintf("%s.cache", streamID))
}

// CreateStream registers a new stream, failing if the id is already
// present. The stream's cache file is created empty (initial size 0).
func (r *Registry) CreateStream(streamID string) error {
	r.mu.Lock()
	_, exists := r.streams[streamID]
	_, reserved := r.pending[streamID]
	if exists || reserved {
		r.mu.Unlock()
		return ErrDuplicateStream
	}
	// Reserve the id before releasing the lock so a racing duplicate
	// CreateStream can't slip in while we set up the cache file. The id
	// is invisible to GetStream until the Context is fully built.
	r.pending[streamID] = struct{}{}
	r.mu.Unlock()

	path := r.cachePath(streamID)
	mf := cache.New(path)
	if err := mf.Create(0); err != nil {
		r.mu.Lock()
		delete(r.pending, streamID)
		r.mu.Unlock()
		return errors.Wrapf(err, "stream: create cache for %s", streamID)
	}

	ctx := newContext(streamID, path, mf)

	r.mu.Lock()
	delete(r.pending, streamID)
	r.streams[streamID] = ctx
	r.mu.Unlock()
	return nil
}

// GetStream returns the Context for streamID, touching its access time. The
// bool result reports whether the stream was found.
func (r *Registry) GetStream(streamID string) (*Context, bool) {
	r.mu.Lock()
	ctx, ok := r.streams[streamID]
	r.mu.Unlock()

	if !ok {
		return nil, false
	}
	ctx.Touch()
	return ctx, true
}

// WriteChunk appends data to streamID's write cursor. It rejects the write
// unless the stream is UPLOADING.
func (r *Registry) WriteChunk(streamID string, data []byte) error {
	ctx, ok := r.GetStream(streamID)
	if !ok {
		return ErrNotFound
	}
	_, err := ctx.appendWrite(data)
	return err
}

// ReadChunk returns up to length bytes starting at offset for streamID. It
// returns an empty slice for any failure: missing stream, no cache, or a
// read past the end.
func (r *Registry) ReadChunk(streamID string, offset int64, length int) []byte {
	ctx, ok := r.GetStream(streamID)
	if !ok {
		return []byte{}
	}
	return ctx.readAt(offset, length)
}

// FinalizeStream transitions streamID from UPLOADING to READY, trimming its
// cache file to the exact number of bytes written.
func (r *Registry) FinalizeStream(streamID string) error {
	ctx, ok := r.GetStream(streamID)
	if !ok {
		return ErrNotFound
	}
	return ctx.finalize()
}

// DeleteStream closes the stream's cache, unlinks its on-disk file, and
// removes it from the registry.
func (r *Registry) DeleteStream(streamID string) error {
	r.mu.Lock()
	ctx, ok := r.streams[streamID]
	if ok {
		delete(r.streams, streamID)
	}
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	if err := ctx.close(); err != nil {
		return errors.Wrapf(err, "stream: close cache for %s", streamID)
	}
	if err := os.Remove(ctx.CachePath()); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "stream: remove cache file for %s", streamID)
	}
	return nil
}

// ListActiveStreams returns a snapshot of the currently-registered ids.
func (r *Registry) ListActiveStreams() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.streams))
	for id := range r.streams {
		ids = append(ids, id)
	}
	return ids
}

// CleanupOldStreams deletes every stream whose last access is older than
// maxAge. It snapshots the candidate ids before issuing any delete, so the
// registry lock is never held while I/O happens.
func (r *Registry) CleanupOldStreams(maxAge time.Duration) []string {
	cutoff := time.Now().Add(-maxAge)

	r.mu.Lock()
	var stale []string
	for id, ctx := range r.streams {
		if ctx.LastAccessedAt().Before(cutoff) {
			stale = append(stale, id)
		}
	}
	r.mu.Unlock()

	var deleted []string
	for _, id := range stale {
		if err := r.DeleteStream(id); err == nil {
			deleted = append(deleted, id)
		}
	}
	return deleted
}

// Count returns the number of currently-registered streams.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.streams)
}
