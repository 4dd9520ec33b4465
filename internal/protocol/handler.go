package protocol

import (
	"encoding/json"
	"log"

	"github.com/streamcache/audiocache/internal/metrics"
	"github.com/streamcache/audiocache/internal/stream"
)

// Sender is the narrow surface the handler needs from a connection in
// order to reply: one text (JSON) frame, or one binary frame.
type Sender interface {
	SendJSON(ControlMessage) error
	SendBinary([]byte) error
}

// Binding is the per-connection active-stream-id slot. Ownership of a
// Binding is exclusive to the connection's own read loop; the handler
// never needs to lock it.
type Binding interface {
	Active() string
	SetActive(streamID string)
	ClearActive()
}

// Handler parses control messages and dispatches START/STOP/GET/binary
// frames against a shared stream.Registry. A Handler has no per-connection
// state of its own; it is safe to share across every connection.
type Handler struct {
	registry *stream.Registry
	stats    *metrics.Stats
}

// New returns a Handler bound to registry, counting stream lifecycle and
// download-path events against stats.
func New(registry *stream.Registry, stats *metrics.Stats) *Handler {
	return &Handler{registry: registry, stats: stats}
}

// HandleText parses raw as a ControlMessage and dispatches it. conn
// supplies both the reply sink and the connection's active-stream binding.
func (h *Handler) HandleText(conn interface {
	Sender
	Binding
}, raw []byte) {
	var msg ControlMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		h.sendError(conn, "Invalid JSON format")
		return
	}

	switch msg.Type {
	case TypeStart:
		h.handleStart(conn, msg)
	case TypeStop:
		h.handleStop(conn, msg)
	case TypeGet:
		h.handleGet(conn, msg)
	default:
		h.sendError(conn, "Unknown message type: "+string(msg.Type))
	}
}

func (h *Handler) handleStart(conn interface {
	Sender
	Binding
}, msg ControlMessage) {
	if msg.StreamID == "" {
		h.sendError(conn, "Missing streamId")
		return
	}

	if err := h.registry.CreateStream(msg.StreamID); err != nil {
		h.sendError(conn, "Failed to create stream: "+msg.StreamID)
		return
	}
	h.stats.StreamCreated()

	// The binding must be visible before STARTED is sent, so the client's
	// very next binary frame is never dropped for lack of an active id.
	conn.SetActive(msg.StreamID)
	if err := conn.SendJSON(started(msg.StreamID, "Stream created")); err != nil {
		log.Printf("protocol: send STARTED for %s: %v", msg.StreamID, err)
	}
}

func (h *Handler) handleStop(conn interface {
	Sender
	Binding
}, msg ControlMessage) {
	if msg.StreamID == "" {
		h.sendError(conn, "Missing streamId")
		return
	}

	if err := h.registry.FinalizeStream(msg.StreamID); err != nil {
		h.sendError(conn, "Failed to finalize stream: "+msg.StreamID)
		return
	}
	h.stats.StreamFinalized()

	conn.ClearActive()
	if err := conn.SendJSON(stopped(msg.StreamID, "Stream finalized")); err != nil {
		log.Printf("protocol: send STOPPED for %s: %v", msg.StreamID, err)
	}
}

func (h *Handler) handleGet(conn interface {
	Sender
	Binding
}, msg ControlMessage) {
	if msg.StreamID == "" {
		h.sendError(conn, "Missing streamId")
		return
	}

	offset := msg.offsetOr(0)
	length := msg.lengthOr(defaultGetLength)

	data := h.registry.ReadChunk(msg.StreamID, int64(offset), int(length))
	if len(data) == 0 {
		h.sendError(conn, "Failed to read from stream: "+msg.StreamID)
		return
	}

	if err := conn.SendBinary(data); err != nil {
		log.Printf("protocol: send GET payload for %s: %v", msg.StreamID, err)
		return
	}
	h.stats.BytesRead(len(data))
}

// HandleBinary appends data to the stream currently bound to conn. If the
// connection has no active stream, the frame is discarded and logged —
// there is no metadata in the frame itself to recover a target from.
func (h *Handler) HandleBinary(conn Binding, data []byte) {
	streamID := conn.Active()
	if streamID == "" {
		log.Printf("protocol: discarding %d binary bytes with no active stream", len(data))
		return
	}

	if err := h.registry.WriteChunk(streamID, data); err != nil {
		log.Printf("protocol: write_chunk for %s: %v", streamID, err)
	}
}

func (h *Handler) sendError(conn Sender, message string) {
	if err := conn.SendJSON(errMessage(message)); err != nil {
		log.Printf("protocol: send ERROR %q: %v", message, err)
	}
}
