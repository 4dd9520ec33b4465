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

package main

import (
	"io"
	"log"
	"os"

	"github.com/fatih/color"
	"github.com/urfave/cli"

	"github.com/streamcache/audiocache/internal/clientdriver"
	"github.com/streamcache/audiocache/internal/config"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "audiocache-client"
	myApp.Usage = "upload a file as a stream, read it back, and verify the round trip"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "serveraddr,s",
			Value: "127.0.0.1:9000",
			Usage: "server address, eg: 127.0.0.1:9000",
		},
		cli.StringFlag{
			Name:  "path",
			Value: "/audio",
			Usage: "HTTP path the server's WebSocket endpoint is served on",
		},
		cli.StringFlag{
			Name:  "streamid",
			Value: "",
			Usage: "explicit stream id to use; auto-generated if empty",
		},
		cli.StringFlag{
			Name:  "in",
			Value: "",
			Usage: "input file to upload; reads stdin if empty",
		},
		cli.StringFlag{
			Name:  "out",
			Value: "",
			Usage: "output file for the downloaded stream; discarded if empty",
		},
		cli.IntFlag{
			Name:  "chunksize",
			Value: 32 * 1024,
			Usage: "size in bytes of each uploaded binary frame",
		},
		cli.IntFlag{
			Name:  "getlength",
			Value: 64 * 1024,
			Usage: "size in bytes requested per GET pull",
		},
		cli.BoolFlag{
			Name:  "noverify",
			Usage: "skip the SHA-256 round-trip verification",
		},
	}
	myApp.Action = run
	if err := myApp.Run(os.Args); err != nil {
		checkError(err)
	}
}

func run(c *cli.Context) error {
	cfg := config.DefaultClient()
	cfg.ServerAddr = c.String("serveraddr")
	cfg.Path = c.String("path")
	cfg.StreamID = c.String("streamid")
	cfg.InputFile = c.String("in")
	cfg.OutputFile = c.String("out")
	cfg.ChunkSize = c.Int("chunksize")
	cfg.GetLength = c.Int("getlength")
	cfg.Verify = !c.Bool("noverify")

	input := os.Stdin
	if cfg.InputFile != "" {
		f, err := os.Open(cfg.InputFile)
		checkError(err)
		defer f.Close()
		input = f
	}

	var output io.Writer = io.Discard
	if cfg.OutputFile != "" {
		f, err := os.OpenFile(cfg.OutputFile, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		checkError(err)
		defer f.Close()
		output = f
	}

	res, err := clientdriver.Run(cfg, input, output)
	checkError(err)

	color.Cyan("stream: %s", res.StreamID)
	color.Cyan("upload: %d bytes in %s (%.2f Mbps)", res.Upload.Bytes, res.Upload.Duration, res.Upload.Mbps())
	color.Cyan("download: %d bytes in %s (%.2f Mbps)", res.Download.Bytes, res.Download.Duration, res.Download.Mbps())
	if cfg.Verify {
		if res.Match {
			color.Green("verification passed: %s", res.WantSum)
		} else {
			color.Red("verification FAILED: want %s got %s", res.WantSum, res.GotSum)
			os.Exit(1)
		}
	}
	return nil
}

func checkError(err error) {
	if err != nil {
		log.Printf("%+v\n", err)
		os.Exit(-1)
	}
}
