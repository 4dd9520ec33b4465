package clientdriver

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/streamcache/audiocache/internal/bufpool"
	"github.com/streamcache/audiocache/internal/config"
	"github.com/streamcache/audiocache/internal/metrics"
	"github.com/streamcache/audiocache/internal/protocol"
	"github.com/streamcache/audiocache/internal/stream"
	"github.com/streamcache/audiocache/internal/wsserver"
)

func TestRunEndToEndUploadDownloadVerify(t *testing.T) {
	reg, err := stream.NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	stats := metrics.New()
	handler := protocol.New(reg, stats)
	pool := bufpool.New(4096, 8)
	srv := wsserver.New(wsserver.Config{Path: "/audio"}, handler, pool, stats)

	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()

	cfg := config.DefaultClient()
	cfg.ServerAddr = strings.TrimPrefix(httpSrv.URL, "http://")
	cfg.ChunkSize = 16
	cfg.GetLength = 32

	input := strings.Repeat("the quick brown fox jumps over the lazy dog ", 20)
	var output bytes.Buffer

	res, err := Run(cfg, strings.NewReader(input), &output)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if output.String() != input {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", output.Len(), len(input))
	}
	if !res.Match {
		t.Fatalf("expected checksum match, got want=%s got=%s", res.WantSum, res.GotSum)
	}
	if res.Upload.Bytes != int64(len(input)) {
		t.Fatalf("Upload.Bytes = %d, want %d", res.Upload.Bytes, len(input))
	}
}

func TestRunReportsServerError(t *testing.T) {
	reg, err := stream.NewRegistry(t.TempDir())
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	stats := metrics.New()
	handler := protocol.New(reg, stats)
	pool := bufpool.New(4096, 8)
	srv := wsserver.New(wsserver.Config{Path: "/audio"}, handler, pool, stats)

	httpSrv := httptest.NewServer(srv.Handler())
	defer httpSrv.Close()

	// Pre-create the stream id the driver will also try to START, forcing
	// a duplicate-stream ERROR reply.
	reg.CreateStream("taken")

	cfg := config.DefaultClient()
	cfg.ServerAddr = strings.TrimPrefix(httpSrv.URL, "http://")
	cfg.StreamID = "taken"

	_, err = Run(cfg, strings.NewReader("data"), &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected error for duplicate stream id")
	}
}
