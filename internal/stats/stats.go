// Package stats tracks the process-wide counters the data plane hot paths
// increment, and derives approximate per-second rates and human-readable
// totals from them.
package stats

import (
	"fmt"
	"sync/atomic"

	"github.com/dustin/go-humanize"
)

// Stats holds the three process-wide counters (clients, pixels, bytes read)
// and the two rate monitors (pixels, bytes read) described in spec.md §3.
// All increments are fire-and-forget relaxed atomics from hot paths.
type Stats struct {
	clients   atomic.Int64
	pixels    atomic.Uint64
	bytesRead atomic.Uint64

	pixelsMonitor    *monitor
	bytesReadMonitor *monitor
}

// New constructs an empty Stats.
func New() *Stats {
	return &Stats{
		pixelsMonitor:    newMonitor(),
		bytesReadMonitor: newMonitor(),
	}
}

// Raw is the subset of counters that may be persisted across restarts.
type Raw struct {
	Pixels    uint64 `json:"pixels"`
	BytesRead uint64 `json:"bytesRead"`
}

// FromRaw constructs a Stats pre-seeded with persisted counters. Rate
// monitors always start fresh: a restored cumulative total says nothing
// about the rate it was changing at before the restart.
func FromRaw(raw Raw) *Stats {
	s := New()
	s.pixels.Store(raw.Pixels)
	s.bytesRead.Store(raw.BytesRead)
	return s
}

// ToRaw snapshots the persistable counters.
func (s *Stats) ToRaw() Raw {
	return Raw{Pixels: s.Pixels(), BytesRead: s.BytesRead()}
}

// IncClients increments the live connection count. Called on accept.
func (s *Stats) IncClients() { s.clients.Add(1) }

// DecClients decrements the live connection count. Called on disconnect.
func (s *Stats) DecClients() { s.clients.Add(-1) }

// Clients returns the current number of live connections.
func (s *Stats) Clients() int64 { return s.clients.Load() }

// IncPixelsByN adds n to the cumulative successful SetPixel count. Called
// once per connection processing batch, never per-pixel, to keep the hot
// path's atomic traffic low.
func (s *Stats) IncPixelsByN(n uint64) {
	if n == 0 {
		return
	}
	s.pixels.Add(n)
}

// Pixels returns the cumulative number of pixels set.
func (s *Stats) Pixels() uint64 { return s.pixels.Load() }

// IncBytesRead adds amount to the cumulative bytes read from sockets.
func (s *Stats) IncBytesRead(amount uint64) {
	if amount == 0 {
		return
	}
	s.bytesRead.Add(amount)
}

// BytesRead returns the cumulative number of bytes read from all sockets.
func (s *Stats) BytesRead() uint64 { return s.bytesRead.Load() }

// PixelsPerSec returns the approximate current pixels/sec rate, or false
// if not enough samples have been collected yet.
func (s *Stats) PixelsPerSec() (float64, bool) {
	return s.pixelsMonitor.update(s.Pixels())
}

// BytesReadPerSec returns the approximate current bytes/sec read rate, or
// false if not enough samples have been collected yet.
func (s *Stats) BytesReadPerSec() (float64, bool) {
	return s.bytesReadMonitor.update(s.BytesRead())
}

// formatDecimalDigits picks the fractional digit count the spec mandates:
// 2 digits below 10, 1 below 100, 0 otherwise.
func formatDecimalDigits(n float64) int {
	switch {
	case n < 10:
		return 2
	case n < 100:
		return 1
	default:
		return 0
	}
}

// formatSI renders value in decimal (SI) prefixes with the spec's
// magnitude-dependent precision, e.g. "2.00 kpx", "512 px".
func formatSI(value float64, unit string) string {
	scaled, prefix := humanize.ComputeSI(value)
	if prefix == "" {
		return fmt.Sprintf("%.0f %s", scaled, unit)
	}
	digits := formatDecimalDigits(scaled)
	return fmt.Sprintf("%.*f %s%s", digits, scaled, prefix, unit)
}

// iecPrefixes are the binary (IEC) magnitude prefixes for byte counts.
var iecPrefixes = [...]string{"", "Ki", "Mi", "Gi", "Ti", "Pi", "Ei"}

// formatIEC renders a byte count in binary (1024-based) prefixes with the
// spec's magnitude-dependent precision. go-humanize's IBytes has a fixed
// format and does not expose the (value, prefix) pair this needs, so the
// 1024-scale walk is done directly here.
func formatIEC(value float64, unit string) string {
	idx := 0
	for value >= 1024 && idx < len(iecPrefixes)-1 {
		value /= 1024
		idx++
	}
	if idx == 0 {
		return fmt.Sprintf("%.0f %s", value, unit)
	}
	digits := formatDecimalDigits(value)
	return fmt.Sprintf("%.*f %s%s", digits, value, iecPrefixes[idx], unit)
}

// PixelsHuman formats the cumulative pixel count, e.g. "1.23 Mpx".
func (s *Stats) PixelsHuman() string {
	return formatSI(float64(s.Pixels()), "px")
}

// PixelsPerSecHuman formats the current pixels/sec rate, or "~" if unknown.
func (s *Stats) PixelsPerSecHuman() string {
	rate, ok := s.PixelsPerSec()
	if !ok {
		return "~"
	}
	return formatSI(rate, "px/s")
}

// BytesReadHuman formats the cumulative bytes-read count in IEC units,
// e.g. "4.00 MiB".
func (s *Stats) BytesReadHuman() string {
	return formatIEC(float64(s.BytesRead()), "B")
}

// BytesReadPerSecHuman formats the current inbound rate in decimal bits
// per second, or "~" if unknown.
func (s *Stats) BytesReadPerSecHuman() string {
	rate, ok := s.BytesReadPerSec()
	if !ok {
		return "~"
	}
	return formatSI(rate*8, "b/s")
}
