package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSnapshotReflectsCounters(t *testing.T) {
	s := New()
	s.ConnectionOpened()
	s.ConnectionOpened()
	s.ConnectionClosed()
	s.BytesWritten(100)
	s.BytesRead(40)
	s.StreamCreated()
	s.StreamFinalized()

	snap := s.Snapshot()
	if snap.ConnectionsOpened != 2 {
		t.Fatalf("ConnectionsOpened = %d, want 2", snap.ConnectionsOpened)
	}
	if snap.ConnectionsActive != 1 {
		t.Fatalf("ConnectionsActive = %d, want 1", snap.ConnectionsActive)
	}
	if snap.BytesWritten != 100 || snap.BytesRead != 40 {
		t.Fatalf("byte counters = %d/%d, want 100/40", snap.BytesWritten, snap.BytesRead)
	}
	if snap.StreamsCreated != 1 || snap.StreamsFinalized != 1 {
		t.Fatalf("stream counters = %d/%d, want 1/1", snap.StreamsCreated, snap.StreamsFinalized)
	}
}

func TestRunLoggerAppendsCSVRows(t *testing.T) {
	s := New()
	s.ConnectionOpened()

	dir := t.TempDir()
	path := filepath.Join(dir, "stats.csv")
	stop := make(chan struct{})

	done := make(chan struct{})
	go func() {
		RunLogger(s, path, 10*time.Millisecond, stop)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	close(stop)
	<-done

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) < 2 {
		t.Fatalf("expected header + at least one row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Unix,ConnectionsOpened") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
}

func TestRunLoggerNoopWithoutPath(t *testing.T) {
	s := New()
	stop := make(chan struct{})
	close(stop)
	RunLogger(s, "", time.Second, stop)
}
