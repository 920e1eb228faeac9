// Package netpixel implements the per-connection read/decode/invoke loop of
// the pixelflut wire protocol: ASCII line commands, the optional binary PB
// frame, and inbound rate limiting.
package netpixel

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/google/uuid"

	"github.com/framegrace/pixelflut/internal/color"
	"github.com/framegrace/pixelflut/internal/command"
	"github.com/framegrace/pixelflut/internal/pixmap"
	"github.com/framegrace/pixelflut/internal/stats"
)

const (
	// bufSize is the size of the read buffer kept in front of the socket,
	// matching the original's BUF_SIZE fixed inbound ring capacity.
	bufSize = 1024 * 1024

	// lineMaxLength bounds how long an ASCII command line may be before the
	// connection is dropped. Must stay well below bufSize so a maxed-out
	// line is always found within one buffer's worth of data.
	lineMaxLength = 1024

	// rateLimitChunk caps how many bytes a single throttled Read call may
	// request at once, so the token bucket doles out traffic smoothly
	// instead of in bufSize-sized bursts.
	rateLimitChunk = 16 * 1024

	// pxbCmdSize is the length of the binary pixel frame: 2-byte prefix,
	// 2-byte LE x, 2-byte LE y, and one byte each of r, g, b, a.
	pxbCmdSize = 10
)

var pxbPrefix = [2]byte{'P', 'B'}

var errLineTooLong = errors.New("Line length >1024")

// Options controls per-connection codec behavior: whether the binary frame
// is accepted, and the inbound rate limit (0 disables limiting).
type Options = command.Options

// Conn drives a single client connection's command loop.
type Conn struct {
	id     uuid.UUID
	conn   net.Conn
	r      *bufio.Reader
	pixmap *pixmap.Pixmap
	stats  *stats.Stats
	opts   Options
}

// NewConn wraps conn for the protocol loop. pm and st are shared across all
// connections on the server.
func NewConn(conn net.Conn, pm *pixmap.Pixmap, st *stats.Stats, opts Options) *Conn {
	var reader io.Reader = conn
	if opts.RateLimitBitsPerSec > 0 {
		reader = &rateLimitedReader{conn: conn, tb: newTokenBucket(opts.RateLimitBitsPerSec)}
	}
	return &Conn{
		id:     uuid.New(),
		conn:   conn,
		r:      bufio.NewReaderSize(&countingReader{r: reader, stats: st}, bufSize),
		pixmap: pm,
		stats:  st,
		opts:   opts,
	}
}

// ID returns the connection's correlation identifier, for logging.
func (c *Conn) ID() uuid.UUID { return c.id }

// Serve runs the command loop until the client disconnects, sends QUIT, or
// a protocol violation occurs. A nil return means the client left on its
// own terms (EOF or QUIT); a non-nil error names why the connection was
// dropped.
func (c *Conn) Serve() error {
	c.stats.IncClients()
	defer c.stats.DecClients()

	var pixelsSet uint64
	defer func() { c.stats.IncPixelsByN(pixelsSet) }()

	for {
		if c.opts.AllowBinaryCmd {
			prefix, err := c.r.Peek(len(pxbPrefix))
			if err == nil && prefix[0] == pxbPrefix[0] && prefix[1] == pxbPrefix[1] {
				if err := c.handleBinary(&pixelsSet); err != nil {
					return err
				}
				c.flushPixelsIfIdle(&pixelsSet)
				continue
			}
		}

		line, err := c.readLine()
		if err != nil {
			switch {
			case errors.Is(err, errLineTooLong):
				c.writeLine("ERR " + errLineTooLong.Error())
				return errors.New("client line length too long")
			case errors.Is(err, io.EOF):
				return nil
			default:
				return fmt.Errorf("client disconnected: %w", err)
			}
		}

		cmd, err := command.Decode(line)
		if err != nil {
			c.writeLine("ERR " + err.Error())
			return fmt.Errorf("command decoding failed: %w", err)
		}

		result := command.Invoke(cmd, c.pixmap, &pixelsSet, c.opts)
		switch result.Kind {
		case command.ResultOK:
		case command.ResultResponse:
			c.writeLine(result.Response)
		case command.ResultClientErr:
			c.writeLine("ERR " + result.Err)
			return fmt.Errorf("client error: %s", result.Err)
		case command.ResultQuit:
			return nil
		}

		c.flushPixelsIfIdle(&pixelsSet)
	}
}

// flushPixelsIfIdle publishes the batched pixel count to Stats once the
// read buffer has been drained, rather than on every single command, to
// keep the hot path's atomic traffic low.
func (c *Conn) flushPixelsIfIdle(pixelsSet *uint64) {
	if c.r.Buffered() == 0 && *pixelsSet > 0 {
		c.stats.IncPixelsByN(*pixelsSet)
		*pixelsSet = 0
	}
}

func (c *Conn) handleBinary(pixelsSet *uint64) error {
	buf, err := c.r.Peek(pxbCmdSize)
	if err != nil {
		return fmt.Errorf("client disconnected: %w", err)
	}

	const off = len(pxbPrefix)
	x := binary.LittleEndian.Uint16(buf[off : off+2])
	y := binary.LittleEndian.Uint16(buf[off+2 : off+4])
	r, g, b, a := buf[off+4], buf[off+5], buf[off+6], buf[off+7]

	if _, err := c.r.Discard(pxbCmdSize); err != nil {
		return fmt.Errorf("client disconnected: %w", err)
	}

	cmd := command.Cmd{Kind: command.KindSetPixel, X: int(x), Y: int(y), Color: color.FromRGBA(r, g, b, a)}
	result := command.Invoke(cmd, c.pixmap, pixelsSet, c.opts)
	if result.Kind == command.ResultClientErr {
		c.writeLine("ERR " + result.Err)
		return fmt.Errorf("client error: %s", result.Err)
	}
	return nil
}

// readLine reads one line, stripping its \n, \r, or \r\n terminator.
// It stalls and reports errLineTooLong if no terminator is found within
// lineMaxLength bytes.
func (c *Conn) readLine() ([]byte, error) {
	var line []byte
	for {
		b, err := c.r.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == '\n' || b == '\r' {
			// Only look at a byte that is already buffered: peeking an
			// empty buffer would block the reply until the client sends more.
			if c.r.Buffered() > 0 {
				if next, err := c.r.Peek(1); err == nil && (next[0] == '\n' || next[0] == '\r') {
					_, _ = c.r.Discard(1)
				}
			}
			return line, nil
		}
		line = append(line, b)
		if len(line) > lineMaxLength {
			return nil, errLineTooLong
		}
	}
}

// writeLine writes s followed by a CRLF terminator directly to the socket.
// Errors are ignored: a failed write here means the client is already gone
// and the read side will observe that on its next call.
func (c *Conn) writeLine(s string) {
	_, _ = io.WriteString(c.conn, s+"\r\n")
}

// countingReader tallies bytes read from the socket into Stats.
type countingReader struct {
	r     io.Reader
	stats *stats.Stats
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.stats.IncBytesRead(uint64(n))
	}
	return n, err
}

// rateLimitedReader throttles Read to the token bucket's configured rate.
type rateLimitedReader struct {
	conn net.Conn
	tb   *tokenBucket
}

func (rl *rateLimitedReader) Read(p []byte) (int, error) {
	n := len(p)
	if n > rateLimitChunk {
		n = rateLimitChunk
	}
	// Never ask for more than the bucket can hold, or acquire would wait
	// forever when the limit is below rateLimitChunk bytes per second.
	if c := int(rl.tb.capacity); c > 0 && n > c {
		n = c
	}
	rl.tb.acquire(n)
	return rl.conn.Read(p[:n])
}
