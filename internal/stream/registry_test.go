package stream

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r, err := NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}
	return r
}

func TestCreateStreamRejectsDuplicate(t *testing.T) {
	r := newTestRegistry(t)

	if err := r.CreateStream("s1"); err != nil {
		t.Fatalf("first CreateStream returned error: %v", err)
	}
	if err := r.CreateStream("s1"); err != ErrDuplicateStream {
		t.Fatalf("second CreateStream = %v, want ErrDuplicateStream", err)
	}

	ctx, ok := r.GetStream("s1")
	if !ok {
		t.Fatalf("original stream missing after duplicate attempt")
	}
	if ctx.Status() != Uploading {
		t.Fatalf("original stream status = %v, want UPLOADING", ctx.Status())
	}
}

func TestWriteFinalizeReadRoundTrip(t *testing.T) {
	r := newTestRegistry(t)
	r.CreateStream("s1")

	payload := make([]byte, 128)
	for i := range payload {
		payload[i] = byte(i)
	}
	if err := r.WriteChunk("s1", payload); err != nil {
		t.Fatalf("WriteChunk returned error: %v", err)
	}

	if err := r.FinalizeStream("s1"); err != nil {
		t.Fatalf("FinalizeStream returned error: %v", err)
	}

	ctx, _ := r.GetStream("s1")
	if ctx.Status() != Ready {
		t.Fatalf("status after finalize = %v, want READY", ctx.Status())
	}
	if ctx.TotalSize() != int64(len(payload)) {
		t.Fatalf("TotalSize = %d, want %d", ctx.TotalSize(), len(payload))
	}

	got := r.ReadChunk("s1", 0, len(payload))
	if !bytes.Equal(got, payload) {
		t.Fatalf("ReadChunk = %v, want %v", got, payload)
	}

	info, err := os.Stat(ctx.CachePath())
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != int64(len(payload)) {
		t.Fatalf("on-disk size = %d, want %d", info.Size(), len(payload))
	}
}

func TestWriteAfterFinalizeFails(t *testing.T) {
	r := newTestRegistry(t)
	r.CreateStream("s1")
	r.WriteChunk("s1", []byte("abc"))
	r.FinalizeStream("s1")

	if err := r.WriteChunk("s1", []byte("more")); err == nil {
		t.Fatalf("expected write after finalize to fail")
	}
}

func TestReadPastEndReturnsEmpty(t *testing.T) {
	r := newTestRegistry(t)
	r.CreateStream("s1")
	r.WriteChunk("s1", bytes.Repeat([]byte{1}, 100))
	r.FinalizeStream("s1")

	got := r.ReadChunk("s1", 200, 10)
	if len(got) != 0 {
		t.Fatalf("expected empty read past end, got %d bytes", len(got))
	}
}

func TestDeleteStreamRemovesFile(t *testing.T) {
	r := newTestRegistry(t)
	r.CreateStream("s1")
	r.WriteChunk("s1", []byte("data"))

	ctx, _ := r.GetStream("s1")
	path := ctx.CachePath()

	if err := r.DeleteStream("s1"); err != nil {
		t.Fatalf("DeleteStream returned error: %v", err)
	}
	if _, ok := r.GetStream("s1"); ok {
		t.Fatalf("stream still present after delete")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("cache file still exists after delete: %v", err)
	}
}

func TestListActiveStreams(t *testing.T) {
	r := newTestRegistry(t)
	r.CreateStream("a")
	r.CreateStream("b")

	ids := r.ListActiveStreams()
	if len(ids) != 2 {
		t.Fatalf("ListActiveStreams returned %d ids, want 2", len(ids))
	}
}

func TestCleanupOldStreamsEvictsOnlyStale(t *testing.T) {
	r := newTestRegistry(t)
	r.CreateStream("old")
	r.CreateStream("fresh")

	// Force "old" to look stale by rewriting its access time far in the past.
	ctx, _ := r.GetStream("old")
	ctx.mu.Lock()
	ctx.lastAccessedAt = time.Now().Add(-time.Hour)
	ctx.mu.Unlock()

	deleted := r.CleanupOldStreams(time.Minute)
	if len(deleted) != 1 || deleted[0] != "old" {
		t.Fatalf("CleanupOldStreams deleted %v, want [old]", deleted)
	}

	if _, ok := r.GetStream("old"); ok {
		t.Fatalf("old stream still present after cleanup")
	}
	if _, ok := r.GetStream("fresh"); !ok {
		t.Fatalf("fresh stream was incorrectly evicted")
	}
}

func TestCachePathLayout(t *testing.T) {
	dir := t.TempDir()
	r, err := NewRegistry(dir)
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}
	r.CreateStream("s1")
	ctx, _ := r.GetStream("s1")

	want := filepath.Join(dir, "s1.cache")
	if ctx.CachePath() != want {
		t.Fatalf("CachePath() = %s, want %s", ctx.CachePath(), want)
	}
}
