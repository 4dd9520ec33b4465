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

// Package metrics counts server-wide activity (connections, bytes, stream
// lifecycle events) and can dump running totals to a CSV log on a fixed
// interval.
package metrics

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// Stats holds process-wide counters. All fields are accessed only through
// atomic operations so the hot read/write paths in wsserver never take a
// lock just to bump a counter.
type Stats struct {
	connectionsOpened int64
	connectionsActive int64
	bytesWritten      int64
	bytesRead         int64
	streamsCreated    int64
	streamsFinalized  int64
}

// New returns a zeroed Stats.
func New() *Stats {
	return &Stats{}
}

func (s *Stats) ConnectionOpened() {
	atomic.AddInt64(&s.connectionsOpened, 1)
	atomic.AddInt64(&s.connectionsActive, 1)
}

func (s *Stats) ConnectionClosed() {
	atomic.AddInt64(&s.connectionsActive, -1)
}

func (s *Stats) BytesWritten(n int) {
	atomic.AddInt64(&s.bytesWritten, int64(n))
}

func (s *Stats) BytesRead(n int) {
	atomic.AddInt64(&s.bytesRead, int64(n))
}

func (s *Stats) StreamCreated() {
	atomic.AddInt64(&s.streamsCreated, 1)
}

func (s *Stats) StreamFinalized() {
	atomic.AddInt64(&s.streamsFinalized, 1)
}

// Snapshot is a point-in-time copy of every counter, suitable for logging
// or serving from a status endpoint.
type Snapshot struct {
	ConnectionsOpened int64
	ConnectionsActive int64
	BytesWritten      int64
	BytesRead         int64
	StreamsCreated    int64
	StreamsFinalized  int64
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		ConnectionsOpened: atomic.LoadInt64(&s.connectionsOpened),
		ConnectionsActive: atomic.LoadInt64(&s.connectionsActive),
		BytesWritten:      atomic.LoadInt64(&s.bytesWritten),
		BytesRead:         atomic.LoadInt64(&s.bytesRead),
		StreamsCreated:    atomic.LoadInt64(&s.streamsCreated),
		StreamsFinalized:  atomic.LoadInt64(&s.streamsFinalized),
	}
}

func (sn Snapshot) Header() []string {
	return []string{
		"ConnectionsOpened", "ConnectionsActive", "BytesWritten", "BytesRead",
		"StreamsCreated", "StreamsFinalized",
	}
}

func (sn Snapshot) ToSlice() []string {
	return []string{
		fmt.Sprint(sn.ConnectionsOpened),
		fmt.Sprint(sn.ConnectionsActive),
		fmt.Sprint(sn.BytesWritten),
		fmt.Sprint(sn.BytesRead),
		fmt.Sprint(sn.StreamsCreated),
		fmt.Sprint(sn.StreamsFinalized),
	}
}

// RunLogger appends one CSV row of s's snapshot to path every interval,
// until stop is closed. path is passed through time.Format before each
// write, so a pattern like "stats-20060102.csv" rolls to a new file per
// day the same way the stream cache's predecessor rotated its KCP SNMP
// logs.
func RunLogger(s *Stats, path string, interval time.Duration, stop <-chan struct{}) {
	if path == "" || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if err := appendRow(s, path); err != nil {
				log.Println("metrics:", err)
			}
		}
	}
}

func appendRow(s *Stats, path string) error {
	logdir, logfile := filepath.Split(path)
	resolved := filepath.Join(logdir, time.Now().Format(logfile))

	f, err := os.OpenFile(resolved, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return err
	}
	defer f.Close()

	snap := s.Snapshot()
	w := csv.NewWriter(f)
	if stat, err := f.Stat(); err == nil && stat.Size() == 0 {
		if err := w.Write(append([]string{"Unix"}, snap.Header()...)); err != nil {
			return err
		}
	}
	if err := w.Write(append([]string{fmt.Sprint(time.Now().Unix())}, snap.ToSlice()...)); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
