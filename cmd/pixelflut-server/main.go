// Copyright © 2025 Texelation contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/pixelflut-server/main.go
// Summary: Implements main capabilities for the pixelflut server CLI harness.
// Usage: Executed by operators to start a pixelflut canvas server.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/framegrace/pixelflut/config"
	"github.com/framegrace/pixelflut/internal/canvasview"
	"github.com/framegrace/pixelflut/internal/command"
	"github.com/framegrace/pixelflut/internal/pixmap"
	"github.com/framegrace/pixelflut/internal/statsink"
	"github.com/framegrace/pixelflut/internal/stats"
	"github.com/framegrace/pixelflut/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Printf("warning: failed to load config: %v, using defaults", err)
		cfg = config.Default()
	}

	host := flag.String("host", cfg.Host, "host:port to bind the TCP listener to")
	width := flag.Int("width", cfg.Width, "canvas width in pixels")
	height := flag.Int("height", cfg.Height, "canvas height in pixels")
	noRender := flag.Bool("no-render", cfg.NoRender, "disable the local display renderer")
	fullscreen := flag.Bool("fullscreen", cfg.Fullscreen, "request a fullscreen display window when rendering")
	noBinary := flag.Bool("no-binary", cfg.NoBinaryCmd, "disable the PB binary pixel command")
	bwLimit := flag.Uint64("bw-limit", cfg.BandwidthLimitBitsPerSec, "per-connection inbound rate limit in bits/sec (0 = unlimited)")
	statsPath := flag.String("stats-file", cfg.StatsSavePath, "path to persist cumulative stats (empty disables persistence)")
	statsSaveIntervalMS := flag.Int("stats-save-interval-ms", cfg.StatsSaveIntervalMS, "stats persistence interval in milliseconds (0 disables)")
	statsStdoutIntervalMS := flag.Int("stats-stdout-interval-ms", cfg.StatsStdoutIntervalMS, "stdout stats interval in milliseconds (0 disables)")
	statsScreenIntervalMS := flag.Int("stats-screen-interval-ms", cfg.StatsScreenIntervalMS, "on-screen stats interval in milliseconds (0 disables)")
	flag.Parse()

	if *width <= 0 || *height <= 0 {
		fmt.Fprintln(os.Stderr, "width and height must be positive")
		os.Exit(1)
	}

	pm := pixmap.New(*width, *height)

	var persister statsink.Persister
	var seed stats.Raw
	if *statsPath != "" {
		fp := statsink.NewFilePersister(*statsPath)
		persister = fp
		if raw, err := fp.Load(); err == nil {
			seed = raw
		} else if !os.IsNotExist(err) {
			log.Printf("warning: failed to load persisted stats: %v", err)
		}
	}
	st := stats.FromRaw(seed)

	var renderer canvasview.Renderer = canvasview.NewNopRenderer()
	if !*noRender {
		mode := "windowed"
		if *fullscreen {
			mode = "fullscreen"
		}
		log.Printf("warning: no %s display renderer is wired into this build, running headless", mode)
	}

	opts := command.Options{AllowBinaryCmd: !*noBinary}
	if *bwLimit > 0 {
		opts.RateLimitBitsPerSec = *bwLimit
	}

	srv := server.New(*host, pm, st, opts, nil)
	if err := srv.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}

	reporterCtx, cancelReporter := context.WithCancel(context.Background())
	reporter := &server.Reporter{
		Stats:          st,
		Renderer:       renderer,
		Persister:      persister,
		ScreenInterval: time.Duration(*statsScreenIntervalMS) * time.Millisecond,
		StdoutInterval: time.Duration(*statsStdoutIntervalMS) * time.Millisecond,
		SaveInterval:   time.Duration(*statsSaveIntervalMS) * time.Millisecond,
	}
	go reporter.Run(reporterCtx)

	fmt.Printf("pixelflut server listening on %s (%dx%d)\n", *host, *width, *height)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	cancelReporter()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		log.Printf("server: shutdown error: %v", err)
	}
	_ = renderer.Close()

	if persister != nil {
		if err := persister.Save(st.ToRaw()); err != nil {
			log.Printf("warning: final stats save failed: %v", err)
		}
	}

	fmt.Println("server stopped")
}
