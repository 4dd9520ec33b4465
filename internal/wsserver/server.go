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

// Package wsserver accepts WebSocket connections and runs one sequential
// read loop per connection, dispatching every frame through a
// protocol.Handler. It owns nothing about streams itself — only the
// connection lifecycle and the per-connection active-stream binding.
package wsserver

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/streamcache/audiocache/internal/bufpool"
	"github.com/streamcache/audiocache/internal/metrics"
	"github.com/streamcache/audiocache/internal/protocol"
)

// Config configures the connection server.
type Config struct {
	Addr string // host:port to listen on
	Path string // WebSocket endpoint path, e.g. "/audio"
}

// Server accepts WebSocket connections on Config.Addr/Config.Path and runs
// one worker per connection.
type Server struct {
	cfg      Config
	handler  *protocol.Handler
	pool     *bufpool.Pool
	stats    *metrics.Stats
	upgrader websocket.Upgrader

	nextConnID int64
}

// New returns a Server dispatching through handler, using pool to bound
// per-chunk allocation while draining binary frames.
func New(cfg Config, handler *protocol.Handler, pool *bufpool.Pool, stats *metrics.Stats) *Server {
	return &Server{
		cfg:     cfg,
		handler: handler,
		pool:    pool,
		stats:   stats,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Handler returns the http.Handler that serves the WebSocket upgrade
// endpoint, so callers can embed it in their own mux or test server
// instead of going through ListenAndServe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(s.cfg.Path, s.handleUpgrade)
	return mux
}

// ListenAndServe blocks, serving the WebSocket endpoint until the process
// is terminated or the underlying HTTP server errors out.
func (s *Server) ListenAndServe() error {
	log.Println("listening on:", s.cfg.Addr)
	log.Println("path:", s.cfg.Path)
	return http.ListenAndServe(s.cfg.Addr, s.Handler())
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("upgrade:", err)
		return
	}

	connID := atomic.AddInt64(&s.nextConnID, 1)
	c := &connection{
		id: connID,
		ws: conn,
	}
	s.stats.ConnectionOpened()
	log.Println("connection opened:", connID, conn.RemoteAddr())

	go s.serve(c)
}

// serve runs the strictly-sequential per-connection read loop: one
// dispatch per frame, in arrival order. Ownership of c's binding is
// exclusive to this goroutine.
func (s *Server) serve(c *connection) {
	defer func() {
		c.ws.Close()
		s.stats.ConnectionClosed()
		log.Println("connection closed:", c.id)
		// Unfinalized streams belonging to this connection are NOT deleted
		// here; they remain in the registry until cleanup_old_streams ages
		// them out. See the connection binding note in the design notes.
	}()

	for {
		mt, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		switch mt {
		case websocket.TextMessage:
			s.handler.HandleText(c, data)
		case websocket.BinaryMessage:
			s.dispatchBinary(c, data)
		case websocket.CloseMessage:
			return
		default:
			// Ping/pong are handled transparently by gorilla/websocket.
		}
	}
}

// dispatchBinary drains a single binary frame through the buffer pool in
// bufferSize-sized pieces, so one oversized frame never allocates more
// than one pooled buffer at a time.
func (s *Server) dispatchBinary(c *connection, data []byte) {
	bufSize := s.pool.BufferSize()
	if bufSize <= 0 || len(data) <= bufSize {
		s.handler.HandleBinary(c, data)
		s.stats.BytesWritten(len(data))
		return
	}

	for off := 0; off < len(data); off += bufSize {
		end := off + bufSize
		if end > len(data) {
			end = len(data)
		}
		buf := s.pool.Acquire()
		n := copy(buf, data[off:end])
		s.handler.HandleBinary(c, buf[:n])
		s.stats.BytesWritten(n)
		s.pool.Release(buf)
	}
}

// connection binds one WebSocket to its currently-active stream id. The
// binding field is touched only from this connection's own read loop, so
// it needs no lock of its own — but SendJSON/SendBinary may be called back
// from the handler on the same goroutine, and writeMu guards concurrent
// writes from any future out-of-band sender (e.g. a keepalive ticker).
type connection struct {
	id     int64
	ws     *websocket.Conn
	active string

	writeMu sync.Mutex
}

func (c *connection) Active() string     { return c.active }
func (c *connection) SetActive(id string) { c.active = id }
func (c *connection) ClearActive()        { c.active = "" }

func (c *connection) SendJSON(msg protocol.ControlMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.ws.WriteMessage(websocket.TextMessage, b)
}

func (c *connection) SendBinary(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(30 * time.Second))
	return c.ws.WriteMessage(websocket.BinaryMessage, data)
}
