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

// Package cache implements the memory-mapped backing store for a single
// audio stream: a file on disk that is mapped into the process address
// space and grown on demand as chunks are appended.
package cache

import (
	"os"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// MappedFile is the on-disk backing store for one stream. All state is
// guarded by a single lock: resize must be seen by readers as atomic,
// never as a torn mapping.
type MappedFile struct {
	mu sync.Mutex

	path string

	file   *os.File
	data   []byte // active mmap, nil when mappedSize == 0 or closed
	isOpen bool
}

// New returns an unopened MappedFile bound to path. Nothing is created on
// disk until Create or Open is called.
func New(path string) *MappedFile {
	return &MappedFile{path: path}
}

// Path returns the backing file path.
func (m *MappedFile) Path() string {
	return m.path
}

// Create deletes any existing file at path, creates an empty file, truncates
// it to initialSize, and establishes a mapping if initialSize > 0.
func (m *MappedFile) Create(initialSize int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(initialSize)
}

func (m *MappedFile) createLocked(initialSize int64) error {
	m.closeLocked()

	if err := os.Remove(m.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "cache: remove existing file %s", m.path)
	}

	f, err := os.OpenFile(m.path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return errors.Wrapf(err, "cache: create file %s", m.path)
	}

	if initialSize > 0 {
		if err := f.Truncate(initialSize); err != nil {
			f.Close()
			return errors.Wrapf(err, "cache: truncate %s to %d", m.path, initialSize)
		}
	}

	m.file = f
	m.isOpen = true

	if initialSize > 0 {
		if err := m.mapLocked(initialSize); err != nil {
			m.closeLocked()
			return err
		}
	}
	return nil
}

// Open opens an existing file read-write and maps it if non-empty. It fails
// if the path does not exist.
func (m *MappedFile) Open() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.openLocked()
}

func (m *MappedFile) openLocked() error {
	f, err := os.OpenFile(m.path, os.O_RDWR, 0644)
	if err != nil {
		return errors.Wrapf(err, "cache: open %s", m.path)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return errors.Wrapf(err, "cache: stat %s", m.path)
	}

	m.closeLocked()
	m.file = f
	m.isOpen = true

	if info.Size() > 0 {
		if err := m.mapLocked(info.Size()); err != nil {
			m.closeLocked()
			return err
		}
	}
	return nil
}

// Write copies data into the mapping at offset, growing the file first if
// necessary. It returns the number of bytes written, or 0 on any failure.
func (m *MappedFile) Write(offset int64, data []byte) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isOpen {
		if err := m.createLocked(offset + int64(len(data))); err != nil {
			return 0
		}
	}

	required := offset + int64(len(data))
	if required > int64(len(m.data)) || m.data == nil {
		newSize := required
		if int64(len(m.data)) > newSize {
			newSize = int64(len(m.data))
		}
		if err := m.resizeLocked(newSize); err != nil {
			return 0
		}
	}

	if offset < 0 || required > int64(len(m.data)) {
		return 0
	}
	copy(m.data[offset:required], data)
	return len(data)
}

// Read returns a freshly-owned copy of mapping[offset:offset+min(length,
// mappedSize-offset)]. It returns an empty slice if offset is past the
// mapped size. If the file is not open, it is opened first.
func (m *MappedFile) Read(offset int64, length int) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isOpen {
		if err := m.openLocked(); err != nil {
			return []byte{}
		}
	}

	if offset < 0 || offset >= int64(len(m.data)) {
		return []byte{}
	}

	remaining := int64(len(m.data)) - offset
	actual := int64(length)
	if actual > remaining {
		actual = remaining
	}

	out := make([]byte, actual)
	copy(out, m.data[offset:offset+actual])
	return out
}

// Resize drops the current mapping, truncates the file to newSize, and
// remaps it if newSize > 0. Resize holds the lock across the whole
// unmap-truncate-remap sequence so a concurrent reader never observes a
// torn view.
func (m *MappedFile) Resize(newSize int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resizeLocked(newSize)
}

func (m *MappedFile) resizeLocked(newSize int64) error {
	if !m.isOpen {
		return errors.Errorf("cache: resize on closed file %s", m.path)
	}

	m.unmapLocked()

	if err := m.file.Truncate(newSize); err != nil {
		return errors.Wrapf(err, "cache: truncate %s to %d", m.path, newSize)
	}

	if newSize > 0 {
		if err := m.mapLocked(newSize); err != nil {
			return err
		}
	}
	return nil
}

// Flush msyncs the active mapping.
func (m *MappedFile) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushLocked()
}

func (m *MappedFile) flushLocked() error {
	if !m.isOpen {
		return errors.Errorf("cache: flush on closed file %s", m.path)
	}
	if m.data == nil {
		return nil
	}
	if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
		return errors.Wrapf(err, "cache: msync %s", m.path)
	}
	return nil
}

// Finalize resizes the file to exactly finalSize and flushes it. After
// Finalize, the on-disk length is exactly finalSize.
func (m *MappedFile) Finalize(finalSize int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.resizeLocked(finalSize); err != nil {
		return err
	}
	return m.flushLocked()
}

// Close drops the mapping and the file handle. Calling Close twice is a
// no-op.
func (m *MappedFile) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
	return nil
}

func (m *MappedFile) closeLocked() {
	m.unmapLocked()
	if m.file != nil {
		m.file.Close()
		m.file = nil
	}
	m.isOpen = false
}

// mapLocked establishes a read-write shared mapping covering [0, size).
// Callers must hold mu.
func (m *MappedFile) mapLocked(size int64) error {
	data, err := unix.Mmap(int(m.file.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return errors.Wrapf(err, "cache: mmap %s (%d bytes)", m.path, size)
	}
	m.data = data
	return nil
}

// unmapLocked drops the active mapping, if any. Callers must hold mu.
func (m *MappedFile) unmapLocked() {
	if m.data != nil {
		unix.Munmap(m.data)
		m.data = nil
	}
}

// Size returns the current mapped size (== on-disk length while open).
func (m *MappedFile) Size() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.data))
}

// IsOpen reports whether the file handle is currently open.
func (m *MappedFile) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.isOpen
}
