package server

import (
	"context"
	"testing"
	"time"

	"github.com/framegrace/pixelflut/internal/pixmap"
	"github.com/framegrace/pixelflut/internal/stats"
)

type stubRenderer struct {
	texts []string
}

func (r *stubRenderer) Upload(*pixmap.Pixmap)     {}
func (r *stubRenderer) SetStatusText(text string) { r.texts = append(r.texts, text) }
func (r *stubRenderer) Close() error              { return nil }

func TestReporterNoIntervalsReturnsImmediately(t *testing.T) {
	r := &Reporter{Stats: stats.New()}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() { r.Run(ctx); close(done) }()
	select {
	case <-done:
	case <-time.After(200 * time.Millisecond):
		t.Fatal("Run did not return immediately with no configured intervals")
	}
}

func TestReporterStopsOnContextCancel(t *testing.T) {
	r := &Reporter{Stats: stats.New(), StdoutInterval: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() { r.Run(ctx); close(done) }()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("Run did not stop after context cancellation")
	}
}

func TestReporterUpdatesRendererOnScreenInterval(t *testing.T) {
	st := stats.New()
	st.IncClients()
	renderer := &stubRenderer{}
	r := &Reporter{Stats: st, Renderer: renderer, ScreenInterval: 10 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	r.Run(ctx)

	if len(renderer.texts) == 0 {
		t.Fatal("expected at least one status text update")
	}
	if want := "clients: 1"; !contains(renderer.texts[0], want) {
		t.Fatalf("expected status text to contain %q, got %q", want, renderer.texts[0])
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
