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
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli"

	"github.com/streamcache/audiocache/internal/bufpool"
	"github.com/streamcache/audiocache/internal/config"
	"github.com/streamcache/audiocache/internal/metrics"
	"github.com/streamcache/audiocache/internal/protocol"
	"github.com/streamcache/audiocache/internal/stream"
	"github.com/streamcache/audiocache/internal/wsserver"
)

// VERSION is populated via build flags when packaging official binaries.
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "audiocache-server"
	myApp.Usage = "WebSocket-fronted byte-stream cache server"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "listen,l",
			Value: ":9000",
			Usage: "listen address for the WebSocket endpoint",
		},
		cli.StringFlag{
			Name:  "path",
			Value: "/audio",
			Usage: "HTTP path the WebSocket endpoint is served on",
		},
		cli.StringFlag{
			Name:  "cachedir",
			Value: "./cache-data",
			Usage: "directory holding one memory-mapped file per active stream",
		},
		cli.IntFlag{
			Name:  "buffersize",
			Value: 64 * 1024,
			Usage: "size in bytes of each pooled buffer used to drain binary frames",
		},
		cli.IntFlag{
			Name:  "bufferpoolcap",
			Value: 64,
			Usage: "number of pooled buffers to keep in reserve",
		},
		cli.IntFlag{
			Name:  "cleanupmaxage",
			Value: 3600,
			Usage: "seconds a stream may sit idle before CleanupOldStreams evicts it",
		},
		cli.IntFlag{
			Name:  "cleanupperiod",
			Value: 300,
			Usage: "seconds between cleanup sweeps",
		},
		cli.StringFlag{
			Name:  "snmplog",
			Value: "",
			Usage: "collect stats to a CSV file, aware of timeformat in golang, like: ./stats-20060102.csv",
		},
		cli.IntFlag{
			Name:  "snmpperiod",
			Value: 60,
			Usage: "stats collection period, in seconds",
		},
		cli.BoolFlag{
			Name:  "quiet",
			Usage: "suppress cleanup sweep log lines",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "specify a log file to output, default goes to stderr",
		},
		cli.StringFlag{
			Name:  "c",
			Value: "",
			Usage: "config from json file, which will override the command from shell",
		},
	}
	myApp.Action = run
	if err := myApp.Run(os.Args); err != nil {
		checkError(err)
	}
}

func run(c *cli.Context) error {
	cfg := config.DefaultServer()
	cfg.Listen = c.String("listen")
	cfg.Path = c.String("path")
	cfg.CacheDir = c.String("cachedir")
	cfg.BufferSize = c.Int("buffersize")
	cfg.BufferPoolCap = c.Int("bufferpoolcap")
	cfg.CleanupMaxAge = c.Int("cleanupmaxage")
	cfg.CleanupPeriod = c.Int("cleanupperiod")
	cfg.SnmpLog = c.String("snmplog")
	cfg.SnmpPeriod = c.Int("snmpperiod")
	cfg.Quiet = c.Bool("quiet")

	if c.String("c") != "" {
		// Only JSON configuration files are supported at the moment.
		if err := config.ParseJSON(&cfg, c.String("c")); err != nil {
			checkError(err)
		}
	}

	if logPath := c.String("log"); logPath != "" {
		f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		checkError(err)
		defer f.Close()
		log.SetOutput(f)
	}

	registry, err := stream.NewRegistry(cfg.CacheDir)
	checkError(err)

	stats := metrics.New()
	handler := protocol.New(registry, stats)
	pool := bufpool.New(cfg.BufferSize, cfg.BufferPoolCap)
	server := wsserver.New(wsserver.Config{Addr: cfg.Listen, Path: cfg.Path}, handler, pool, stats)

	statsStop := make(chan struct{})
	go metrics.RunLogger(stats, cfg.SnmpLog, cfg.SnmpPeriodDuration(), statsStop)

	sched := cron.New()
	cleanupSpec := every(cfg.CleanupPeriodDuration())
	if _, err := sched.AddFunc(cleanupSpec, func() {
		ids := registry.CleanupOldStreams(cfg.CleanupMaxAgeDuration())
		if len(ids) > 0 && !cfg.Quiet {
			log.Printf("cleaned up %d idle streams: %v", len(ids), ids)
		}
	}); err != nil {
		checkError(err)
	}
	sched.Start()

	go func() {
		if err := server.ListenAndServe(); err != nil {
			log.Println("server exited:", err)
		}
	}()

	go dumpStatsOnSIGUSR1(stats)

	waitForShutdown()

	close(statsStop)
	sched.Stop()
	return nil
}

// dumpStatsOnSIGUSR1 logs a snapshot of the running counters whenever the
// process receives SIGUSR1, for inspecting a live server without restarting
// it or waiting for the next CSV tick.
func dumpStatsOnSIGUSR1(stats *metrics.Stats) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)
	for range ch {
		log.Printf("stats: %+v", stats.Snapshot())
	}
}

// every turns a Go duration into a robfig/cron "@every" spec.
func every(d time.Duration) string {
	if d <= 0 {
		d = time.Minute
	}
	return "@every " + d.String()
}

func waitForShutdown() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	log.Println("shutting down")
}

func checkError(err error) {
	if err != nil {
		log.Printf("%+v\n", err)
		os.Exit(-1)
	}
}
