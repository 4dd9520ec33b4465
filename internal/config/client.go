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

package config

// Client configures the driver binary used to exercise a cache server: it
// uploads a file as a stream, waits for it to settle, downloads it back and
// verifies the round trip.
type Client struct {
	ServerAddr string `json:"serveraddr"`
	Path       string `json:"path"`
	StreamID   string `json:"streamid"` // empty means auto-generate
	InputFile  string `json:"inputfile"`
	OutputFile string `json:"outputfile"`
	ChunkSize  int    `json:"chunksize"`
	GetLength  int    `json:"getlength"`
	Verify     bool   `json:"verify"`
}

// DefaultClient returns conservative defaults for the driver binary.
func DefaultClient() Client {
	return Client{
		ServerAddr: "127.0.0.1:9000",
		Path:       "/audio",
		ChunkSize:  32 * 1024,
		GetLength:  64 * 1024,
		Verify:     true,
	}
}
