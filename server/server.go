// Package server runs the pixelflut TCP acceptor and the background stats
// reporter.
package server

import (
	"context"
	"log"
	"net"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/framegrace/pixelflut/internal/command"
	"github.com/framegrace/pixelflut/internal/netpixel"
	"github.com/framegrace/pixelflut/internal/pixmap"
	"github.com/framegrace/pixelflut/internal/snapshot"
	"github.com/framegrace/pixelflut/internal/stats"
)

// socketBufSize sizes the kernel socket buffers on every accepted
// connection to match the codec's own read buffer, so the kernel doesn't
// become the throughput bottleneck ahead of the application.
const socketBufSize = 1024 * 1024

// Server listens on a TCP address and spawns one connection loop per
// accepted socket.
type Server struct {
	addr     string
	pixmap   *pixmap.Pixmap
	stats    *stats.Stats
	opts     command.Options
	listener net.Listener
	quit     chan struct{}
	wg       sync.WaitGroup
	logger   *log.Logger

	snapshotter      snapshot.Snapshotter
	snapshotInterval time.Duration
	snapshotQuit     chan struct{}
}

// New constructs a Server. logger defaults to log.Default() when nil.
func New(addr string, pm *pixmap.Pixmap, st *stats.Stats, opts command.Options, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{
		addr:   addr,
		pixmap: pm,
		stats:  st,
		opts:   opts,
		quit:   make(chan struct{}),
		logger: logger,
	}
}

// SetSnapshotter wires a periodic canvas snapshot sink, ticked every
// interval once Start runs. A nil snapshotter or non-positive interval
// disables snapshotting.
func (s *Server) SetSnapshotter(snapshotter snapshot.Snapshotter, interval time.Duration) {
	s.snapshotter = snapshotter
	if interval > 0 {
		s.snapshotInterval = interval
	}
}

// Start binds the listening socket and begins accepting connections in the
// background.
func (s *Server) Start() error {
	lc := net.ListenConfig{Control: tuneListenSocket}
	l, err := lc.Listen(context.Background(), "tcp", s.addr)
	if err != nil {
		return err
	}
	s.listener = l
	s.wg.Add(1)
	go s.acceptLoop()
	s.startSnapshotLoop()
	return nil
}

// Addr returns the bound listener address, useful when addr was ":0".
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.quit:
				return
			default:
				s.logger.Printf("server: accept error: %v", err)
				continue
			}
		}

		s.wg.Add(1)
		go func(c net.Conn) {
			defer s.wg.Done()
			defer c.Close()

			pc := netpixel.NewConn(c, s.pixmap, s.stats, s.opts)
			id := shortID(pc.ID().String())
			s.logger.Printf("server: connection %s connected", id)
			if err := pc.Serve(); err != nil {
				s.logger.Printf("server: connection %s closed: %v", id, err)
			} else {
				s.logger.Printf("server: connection %s disconnected", id)
			}
		}(conn)
	}
}

func (s *Server) startSnapshotLoop() {
	if s.snapshotter == nil || s.snapshotInterval <= 0 {
		return
	}
	s.snapshotQuit = make(chan struct{})
	ticker := time.NewTicker(s.snapshotInterval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.persistSnapshot()
			case <-s.snapshotQuit:
				return
			case <-s.quit:
				return
			}
		}
	}()
}

func (s *Server) persistSnapshot() {
	clone := s.pixmap.Clone()
	if err := s.snapshotter.Snapshot(clone); err != nil {
		s.logger.Printf("server: snapshot failed: %v", err)
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Stop closes the listener and waits for in-flight connections to finish,
// or for ctx to expire first.
func (s *Server) Stop(ctx context.Context) error {
	close(s.quit)
	if s.snapshotQuit != nil {
		close(s.snapshotQuit)
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// tuneListenSocket widens the kernel's receive/send buffers on every
// accepted connection before the application ever reads from it.
func tuneListenSocket(_, _ string, c syscall.RawConn) error {
	var ctrlErr error
	err := c.Control(func(fd uintptr) {
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_RCVBUF, socketBufSize); e != nil {
			ctrlErr = e
			return
		}
		if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_SNDBUF, socketBufSize); e != nil {
			ctrlErr = e
			return
		}
	})
	if err != nil {
		return err
	}
	return ctrlErr
}
