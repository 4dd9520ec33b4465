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

// Package bufpool bounds per-chunk allocation for incoming binary frames. A
// system-wide pool of equal-size buffers is shared among all connections to
// mitigate high-frequency allocation under concurrent uploads.
package bufpool

import (
	"log"
	"sync"
)

// Pool is a bounded reservoir of equal-length byte buffers. Acquire never
// blocks: once the pool is empty it allocates fresh buffers on demand,
// tracking the running total issued.
type Pool struct {
	mu         sync.Mutex
	bufferSize int
	capacity   int
	available  [][]byte
	totalIssued int
}

// New creates a pool of buffers of bufferSize bytes, eagerly pre-filling it
// with capacity zeroed buffers.
func New(bufferSize, capacity int) *Pool {
	p := &Pool{
		bufferSize: bufferSize,
		capacity:   capacity,
	}
	p.available = make([][]byte, 0, capacity)
	for i := 0; i < capacity; i++ {
		p.available = append(p.available, make([]byte, bufferSize))
	}
	p.totalIssued = capacity
	return p
}

// Acquire pops a buffer from the pool. If empty, it allocates a fresh
// buffer and counts it toward the total-issued counter. Never blocks.
func (p *Pool) Acquire() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := len(p.available)
	if n == 0 {
		p.totalIssued++
		return make([]byte, p.bufferSize)
	}

	buf := p.available[n-1]
	p.available = p.available[:n-1]
	return buf
}

// Release returns buf to the pool after zeroing it. Buffers of the wrong
// size are dropped with a warning. Once the pool holds capacity buffers,
// further releases are dropped silently — the pool is lossy by design.
func (p *Pool) Release(buf []byte) {
	if len(buf) != p.bufferSize {
		log.Printf("bufpool: dropping buffer of size %d, want %d", len(buf), p.bufferSize)
		return
	}

	for i := range buf {
		buf[i] = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.available) < p.capacity {
		p.available = append(p.available, buf)
	}
}

// Available returns the number of buffers currently held by the pool.
func (p *Pool) Available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.available)
}

// TotalIssued returns the running count of buffers ever allocated,
// including the initial pre-fill and any overflow allocations.
func (p *Pool) TotalIssued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.totalIssued
}

// BufferSize returns the fixed buffer length managed by this pool.
func (p *Pool) BufferSize() int {
	return p.bufferSize
}
