package stats

import (
	"testing"
	"time"
)

func TestClientsIncDec(t *testing.T) {
	s := New()
	s.IncClients()
	s.IncClients()
	s.DecClients()
	if got := s.Clients(); got != 1 {
		t.Fatalf("Clients() = %d, want 1", got)
	}
}

func TestPixelsAndBytesAccumulate(t *testing.T) {
	s := New()
	s.IncPixelsByN(5)
	s.IncPixelsByN(3)
	s.IncBytesRead(100)
	if got := s.Pixels(); got != 8 {
		t.Fatalf("Pixels() = %d, want 8", got)
	}
	if got := s.BytesRead(); got != 100 {
		t.Fatalf("BytesRead() = %d, want 100", got)
	}
}

func TestRawRoundTrip(t *testing.T) {
	s := New()
	s.IncPixelsByN(42)
	s.IncBytesRead(1000)
	restored := FromRaw(s.ToRaw())
	if restored.Pixels() != 42 || restored.BytesRead() != 1000 {
		t.Fatalf("restored stats mismatch: %+v", restored.ToRaw())
	}
	if _, ok := restored.PixelsPerSec(); ok {
		t.Fatal("restored stats should not carry a rate estimate")
	}
}

func TestMonitorNeedsTwoSamples(t *testing.T) {
	m := newMonitor()
	base := time.Now()
	m.now = func() time.Time { return base }
	if _, ok := m.update(10); ok {
		t.Fatal("single sample should not yield a rate")
	}
}

func TestMonitorComputesRate(t *testing.T) {
	m := newMonitor()
	base := time.Now()
	cur := base
	m.now = func() time.Time { return cur }

	if _, ok := m.update(0); ok {
		t.Fatal("first sample should not yield a rate yet")
	}
	cur = base.Add(200 * time.Millisecond)
	rate, ok := m.update(100)
	if !ok {
		t.Fatal("expected a rate after a second sample")
	}
	if rate <= 0 {
		t.Fatalf("expected positive rate, got %f", rate)
	}
}

func TestFormatDecimalDigits(t *testing.T) {
	cases := []struct {
		n    float64
		want int
	}{{1, 2}, {9.99, 2}, {10, 1}, {99, 1}, {100, 0}, {1000, 0}}
	for _, tc := range cases {
		if got := formatDecimalDigits(tc.n); got != tc.want {
			t.Fatalf("formatDecimalDigits(%v) = %d, want %d", tc.n, got, tc.want)
		}
	}
}

func TestFormatIECScalesBy1024(t *testing.T) {
	got := formatIEC(1024*1024, "B")
	if got != "1.00 MiB" {
		t.Fatalf("formatIEC(1MiB) = %q", got)
	}
}

func TestPixelsHumanUnknownRate(t *testing.T) {
	s := New()
	if got := s.PixelsPerSecHuman(); got != "~" {
		t.Fatalf("expected ~ for unknown rate, got %q", got)
	}
}
