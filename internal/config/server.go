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

// Package config holds the flag/JSON-backed configuration structs for the
// server and client binaries.
package config

import (
	"encoding/json"
	"os"
	"time"
)

// Server configures the cache server process.
type Server struct {
	Listen         string `json:"listen"`
	Path           string `json:"path"`
	CacheDir       string `json:"cachedir"`
	BufferSize     int    `json:"buffersize"`
	BufferPoolCap  int    `json:"bufferpoolcap"`
	CleanupMaxAge  int    `json:"cleanupmaxage"`  // seconds
	CleanupPeriod  int    `json:"cleanupperiod"`  // seconds
	SnmpLog        string `json:"snmplog"`
	SnmpPeriod     int    `json:"snmpperiod"` // seconds
	Quiet          bool   `json:"quiet"`
}

// DefaultServer returns a Server populated with the same kind of
// conservative defaults the cache used to ship with before any flag or
// config file is applied.
func DefaultServer() Server {
	return Server{
		Listen:        ":9000",
		Path:          "/audio",
		CacheDir:      "./cache-data",
		BufferSize:    64 * 1024,
		BufferPoolCap: 64,
		CleanupMaxAge: 3600,
		CleanupPeriod: 300,
		SnmpPeriod:    60,
	}
}

func (s Server) CleanupMaxAgeDuration() time.Duration {
	return time.Duration(s.CleanupMaxAge) * time.Second
}

func (s Server) CleanupPeriodDuration() time.Duration {
	return time.Duration(s.CleanupPeriod) * time.Second
}

func (s Server) SnmpPeriodDuration() time.Duration {
	return time.Duration(s.SnmpPeriod) * time.Second
}

// ParseJSON overlays the contents of a JSON config file at path onto cfg.
// Fields absent from the file are left untouched.
func ParseJSON(cfg *Server, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return json.NewDecoder(file).Decode(cfg)
}
