package server

import (
	"bufio"
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/framegrace/pixelflut/internal/command"
	"github.com/framegrace/pixelflut/internal/pixmap"
	"github.com/framegrace/pixelflut/internal/stats"
)

type recordingSnapshotter struct {
	mu    sync.Mutex
	calls int
}

func (r *recordingSnapshotter) Snapshot(pm *pixmap.Pixmap) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return nil
}

func (r *recordingSnapshotter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func TestServerAcceptsAndServesAConnection(t *testing.T) {
	pm := pixmap.New(4, 4)
	st := stats.New()
	srv := New("127.0.0.1:0", pm, st, command.Options{}, nil)
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Stop(ctx)
	}()

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	if _, err := conn.Write([]byte("SIZE\r\n")); err != nil {
		t.Fatal(err)
	}
	reader := bufio.NewReader(conn)
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatal(err)
	}
	if got, want := line, "SIZE 4 4\r\n"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}

	if got := st.Clients(); got != 1 {
		t.Fatalf("Clients() = %d, want 1", got)
	}
}

func TestServerStopWaitsForConnectionsToDrain(t *testing.T) {
	pm := pixmap.New(2, 2)
	st := stats.New()
	srv := New("127.0.0.1:0", pm, st, command.Options{}, nil)
	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	time.Sleep(20 * time.Millisecond) // let the accept loop register the connection
	if _, err := conn.Write([]byte("QUIT\r\n")); err != nil {
		t.Fatal(err)
	}
	conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Fatalf("Stop returned %v", err)
	}
}

func TestServerTicksSnapshotterOnInterval(t *testing.T) {
	pm := pixmap.New(2, 2)
	st := stats.New()
	srv := New("127.0.0.1:0", pm, st, command.Options{}, nil)

	snap := &recordingSnapshotter{}
	srv.SetSnapshotter(snap, 10*time.Millisecond)

	if err := srv.Start(); err != nil {
		t.Fatal(err)
	}

	deadline := time.After(time.Second)
	for snap.count() < 2 {
		select {
		case <-deadline:
			t.Fatalf("snapshotter ticked %d times, want at least 2", snap.count())
		case <-time.After(5 * time.Millisecond):
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		t.Fatalf("Stop returned %v", err)
	}
}
