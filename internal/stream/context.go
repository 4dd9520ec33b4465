// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package stream holds the per-stream metadata (Context) and the
// process-wide registry (Registry) that creates, looks up, finalizes and
// evicts streams backed by a cache.MappedFile each.
package stream

import (
	"sync"
	"time"

	"github.com/streamcache/audiocache/internal/cache"
)

// Status is the lifecycle state of a Context.
type Status int

const (
	// Uploading is the initial state: writes are legal, reads see a prefix.
	Uploading Status = iota
	// Ready means finalize succeeded; the stream is read-only from here on.
	Ready
	// Error is terminal: an unrecoverable write failure occurred.
	Error
)

// String renders the status as its upper-case name.
func (s Status) String() string {
	switch s {
	case Uploading:
		return "UPLOADING"
	case Ready:
		return "READY"
	case Error:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Context is the per-stream metadata record. All mutators update
// lastAccessedAt. It exclusively owns its cache for its whole lifetime.
type Context struct {
	mu sync.Mutex

	streamID  string
	cachePath string
	cache     *cache.MappedFile

	writeCursor int64
	totalSize   int64

	status Status

	createdAt      time.Time
	lastAccessedAt time.Time
}

// newContext constructs a fresh Context in the UPLOADING state.
func newContext(streamID, cachePath string, mf *cache.MappedFile) *Context {
	now := time.Now()
	return &Context{
		streamID:       streamID,
		cachePath:      cachePath,
		cache:          mf,
		status:         Uploading,
		createdAt:      now,
		lastAccessedAt: now,
	}
}

// StreamID returns the immutable stream identifier.
func (c *Context) StreamID() string {
	return c.streamID
}

// CachePath returns the immutable on-disk cache path.
func (c *Context) CachePath() string {
	return c.cachePath
}

// Status returns the current lifecycle status.
func (c *Context) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// TotalSize returns the current total byte count (write cursor during
// UPLOADING, frozen payload size once READY).
func (c *Context) TotalSize() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalSize
}

// WriteCursor returns the next offset an appended chunk will land at.
func (c *Context) WriteCursor() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writeCursor
}

// CreatedAt returns the creation timestamp.
func (c *Context) CreatedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.createdAt
}

// LastAccessedAt returns the last-touched timestamp, used by eviction.
func (c *Context) LastAccessedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastAccessedAt
}

// touch refreshes lastAccessedAt. Callers must hold c.mu.
func (c *Context) touch() {
	c.lastAccessedAt = time.Now()
}

// Touch refreshes lastAccessedAt without any other side effect; used for
// plain lookups (GET/peek) that must still count as an access.
func (c *Context) Touch() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.touch()
}

// appendWrite writes data at the current write cursor and advances it. It
// rejects the write unless the stream is UPLOADING.
func (c *Context) appendWrite(data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != Uploading {
		return 0, errNotUploading
	}

	n := c.cache.Write(c.writeCursor, data)
	if n == 0 && len(data) > 0 {
		return 0, errWriteFailed
	}

	c.writeCursor += int64(n)
	c.totalSize += int64(n)
	c.touch()
	return n, nil
}

// readAt reads length bytes at offset from the underlying cache and
// refreshes the access time regardless of outcome.
func (c *Context) readAt(offset int64, length int) []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	data := c.cache.Read(offset, length)
	c.touch()
	return data
}

// finalize transitions UPLOADING -> READY, trimming the cache file to the
// exact payload size.
func (c *Context) finalize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != Uploading {
		return errNotUploading
	}

	if err := c.cache.Finalize(c.totalSize); err != nil {
		c.status = Error
		return err
	}

	c.status = Ready
	c.touch()
	return nil
}

// close releases the underlying cache's file handle and mapping.
func (c *Context) close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cache.Close()
}
