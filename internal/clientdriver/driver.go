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

package clientdriver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/streamcache/audiocache/internal/config"
	"github.com/streamcache/audiocache/internal/protocol"
)

// Result summarizes a full upload/download/verify run.
type Result struct {
	StreamID string
	Upload   PerformanceReport
	Download PerformanceReport
	Match    bool
	WantSum  string
	GotSum   string
}

// Run uploads input to the server described by cfg, reads it back in
// GetLength-sized pulls, and optionally verifies the round trip by
// checksum. It mirrors the control-channel sequence: START, binary frames,
// STOP, GET*.
func Run(cfg config.Client, input io.Reader, output io.Writer) (Result, error) {
	streamID := cfg.StreamID
	if streamID == "" {
		id, err := NewStreamID()
		if err != nil {
			return Result{}, err
		}
		streamID = id
	}

	u := url.URL{Scheme: "ws", Host: cfg.ServerAddr, Path: cfg.Path}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return Result{}, errors.Wrap(err, "clientdriver: dial server")
	}
	defer conn.Close()

	uploadBuf := &bytes.Buffer{}
	tee := io.TeeReader(input, uploadBuf)

	if err := sendControl(conn, protocol.ControlMessage{Type: protocol.TypeStart, StreamID: streamID}); err != nil {
		return Result{}, errors.Wrap(err, "clientdriver: send START")
	}
	if err := expectType(conn, protocol.TypeStarted); err != nil {
		return Result{}, err
	}
	color.Green("stream %s started", streamID)

	upload := NewPerformanceMonitor()
	cr := NewChunkReader(tee, cfg.ChunkSize)
	for {
		chunk, readErr := cr.Next()
		if len(chunk) > 0 {
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				return Result{}, errors.Wrap(err, "clientdriver: write binary frame")
			}
			upload.Record(len(chunk))
		}
		if readErr != nil {
			if readErr != io.EOF && readErr != io.ErrUnexpectedEOF {
				return Result{}, errors.Wrap(readErr, "clientdriver: read input")
			}
			break
		}
	}
	uploadReport := upload.Finish()

	if err := sendControl(conn, protocol.ControlMessage{Type: protocol.TypeStop, StreamID: streamID}); err != nil {
		return Result{}, errors.Wrap(err, "clientdriver: send STOP")
	}
	if err := expectType(conn, protocol.TypeStopped); err != nil {
		return Result{}, err
	}
	color.Green("stream %s finalized, uploaded %d bytes in %s (%.2f Mbps)",
		streamID, uploadReport.Bytes, uploadReport.Duration, uploadReport.Mbps())

	download := NewPerformanceMonitor()
	downloadBuf := &bytes.Buffer{}
	offset := uint64(0)
	length := uint32(cfg.GetLength)
	for {
		if err := sendControl(conn, protocol.ControlMessage{
			Type:     protocol.TypeGet,
			StreamID: streamID,
			Offset:   &offset,
			Length:   &length,
		}); err != nil {
			return Result{}, errors.Wrap(err, "clientdriver: send GET")
		}

		mt, data, msg, err := readFrame(conn)
		if err != nil {
			return Result{}, err
		}
		if mt == websocket.TextMessage {
			if msg.Type == protocol.TypeError {
				// No more data to read; the server reports EOF this way.
				break
			}
			return Result{}, fmt.Errorf("clientdriver: unexpected control reply during GET: %+v", msg)
		}

		downloadBuf.Write(data)
		download.Record(len(data))
		offset += uint64(len(data))
		if len(data) < int(length) {
			break
		}
	}
	downloadReport := download.Finish()
	color.Green("downloaded %d bytes in %s (%.2f Mbps)", downloadReport.Bytes, downloadReport.Duration, downloadReport.Mbps())

	if _, err := io.Copy(output, bytes.NewReader(downloadBuf.Bytes())); err != nil {
		return Result{}, errors.Wrap(err, "clientdriver: write output")
	}

	res := Result{
		StreamID: streamID,
		Upload:   uploadReport,
		Download: downloadReport,
		Match:    true,
	}
	if cfg.Verify {
		match, wantSum, gotSum, err := VerifyMatch(bytes.NewReader(uploadBuf.Bytes()), bytes.NewReader(downloadBuf.Bytes()))
		if err != nil {
			return Result{}, errors.Wrap(err, "clientdriver: verify")
		}
		res.Match, res.WantSum, res.GotSum = match, wantSum, gotSum
		if !match {
			color.Red("checksum mismatch: want %s got %s", wantSum, gotSum)
		} else {
			color.Green("checksum verified: %s", wantSum)
		}
	}

	return res, nil
}

func sendControl(conn *websocket.Conn, msg protocol.ControlMessage) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, b)
}

func expectType(conn *websocket.Conn, want protocol.MessageType) error {
	var msg protocol.ControlMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return errors.Wrapf(err, "clientdriver: read reply, want %s", want)
	}
	if msg.Type == protocol.TypeError {
		return fmt.Errorf("clientdriver: server returned ERROR: %s", msg.Message)
	}
	if msg.Type != want {
		return fmt.Errorf("clientdriver: reply type = %s, want %s", msg.Type, want)
	}
	return nil
}

// readFrame reads one frame and classifies it: binary frames return their
// payload, text frames are decoded into a ControlMessage.
func readFrame(conn *websocket.Conn) (int, []byte, protocol.ControlMessage, error) {
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	mt, data, err := conn.ReadMessage()
	if err != nil {
		return 0, nil, protocol.ControlMessage{}, errors.Wrap(err, "clientdriver: read frame")
	}
	if mt == websocket.TextMessage {
		var msg protocol.ControlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return 0, nil, protocol.ControlMessage{}, errors.Wrap(err, "clientdriver: decode control reply")
		}
		return mt, nil, msg, nil
	}
	return mt, data, protocol.ControlMessage{}, nil
}
