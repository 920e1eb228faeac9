package server

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/framegrace/pixelflut/internal/canvasview"
	"github.com/framegrace/pixelflut/internal/statsink"
	"github.com/framegrace/pixelflut/internal/stats"
)

// Reporter periodically publishes Stats to a Renderer's status line, to
// stdout, and to a Persister, each on its own independent interval. A zero
// Duration disables that sink entirely.
type Reporter struct {
	Stats    *stats.Stats
	Renderer canvasview.Renderer

	ScreenInterval time.Duration
	StdoutInterval time.Duration
	SaveInterval   time.Duration

	Persister statsink.Persister
	Logger    *log.Logger
}

// Run blocks, reporting on each configured interval, until ctx is
// cancelled. If no interval is set it returns immediately.
func (r *Reporter) Run(ctx context.Context) {
	if r.ScreenInterval <= 0 && r.StdoutInterval <= 0 && r.SaveInterval <= 0 {
		return
	}
	logger := r.Logger
	if logger == nil {
		logger = log.Default()
	}

	screenLast := time.Now()
	stdoutLast := time.Now()
	saveLast := time.Now()

	for {
		nextUpdate := time.Second

		if r.ScreenInterval > 0 {
			elapsed := time.Since(screenLast)
			if elapsed >= r.ScreenInterval {
				if r.Renderer != nil {
					r.Renderer.SetStatusText(r.screenText())
				}
				screenLast = time.Now()
				elapsed = 0
			}
			nextUpdate = minDuration(nextUpdate, r.ScreenInterval-elapsed)
		}

		if r.StdoutInterval > 0 {
			elapsed := time.Since(stdoutLast)
			if elapsed >= r.StdoutInterval {
				fmt.Print(r.stdoutText())
				stdoutLast = time.Now()
				elapsed = 0
			}
			nextUpdate = minDuration(nextUpdate, r.StdoutInterval-elapsed)
		}

		if r.SaveInterval > 0 && r.Persister != nil {
			elapsed := time.Since(saveLast)
			if elapsed >= r.SaveInterval {
				if err := r.Persister.Save(r.Stats.ToRaw()); err != nil {
					logger.Printf("server: stats save failed: %v", err)
				}
				saveLast = time.Now()
				elapsed = 0
			}
			nextUpdate = minDuration(nextUpdate, r.SaveInterval-elapsed)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(nextUpdate):
		}
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if b < a {
		return b
	}
	return a
}

func (r *Reporter) screenText() string {
	return fmt.Sprintf(
		"CONNECT WITH:        \tpx:\t%s\t%s\tclients: %d\npixelflut server      \tin:\t%s\t%s",
		r.Stats.PixelsHuman(), r.Stats.PixelsPerSecHuman(), r.Stats.Clients(),
		r.Stats.BytesReadHuman(), r.Stats.BytesReadPerSecHuman(),
	)
}

func (r *Reporter) stdoutText() string {
	return fmt.Sprintf(
		"%-7s %-15s %-12s\n%-7s %-15s %-12s\n%-7s %-15s %-12s\n",
		"STATS", "Total:", "Per sec:",
		"Pixels:", r.Stats.PixelsHuman(), r.Stats.PixelsPerSecHuman(),
		"Input:", r.Stats.BytesReadHuman(), r.Stats.BytesReadPerSecHuman(),
	)
}
