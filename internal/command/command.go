// Package command decodes pixelflut wire commands and applies them to a
// canvas.
package command

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/framegrace/pixelflut/internal/color"
	"github.com/framegrace/pixelflut/internal/pixmap"
)

// Kind identifies which variant a Cmd holds.
type Kind int

const (
	// KindNone is the result of an empty line; it has no effect.
	KindNone Kind = iota
	// KindGetPixel reads back a pixel's color.
	KindGetPixel
	// KindSetPixel blends a color into a pixel.
	KindSetPixel
	// KindSize requests the canvas dimensions.
	KindSize
	// KindHelp requests the command reference.
	KindHelp
	// KindQuit closes the connection.
	KindQuit
)

// Cmd is a decoded client request. Only the fields relevant to Kind are
// populated.
type Cmd struct {
	Kind  Kind
	X, Y  int
	Color color.Color
}

// DecodeError is returned by Decode; its Error() text is the exact string
// the wire protocol sends back to the client after an "ERR " prefix.
type DecodeError struct {
	msg string
}

func (e *DecodeError) Error() string { return e.msg }

func decodeErr(msg string) error { return &DecodeError{msg: msg} }

// Decode parses a single ASCII command line (without its line terminator).
func Decode(line []byte) (Cmd, error) {
	fields := splitFields(line)
	if len(fields) == 0 {
		return Cmd{Kind: KindNone}, nil
	}

	switch string(fields[0]) {
	case "PX":
		return decodePX(fields[1:])
	case "SIZE":
		return Cmd{Kind: KindSize}, nil
	case "HELP":
		return Cmd{Kind: KindHelp}, nil
	case "QUIT":
		return Cmd{Kind: KindQuit}, nil
	default:
		return Cmd{}, decodeErr("unknown command, use HELP")
	}
}

// splitFields tokenizes on single spaces, discarding empty tokens —
// mirroring the original's split-and-filter-empty behavior.
func splitFields(line []byte) [][]byte {
	var out [][]byte
	for _, part := range bytes.Split(line, []byte{' '}) {
		if len(part) > 0 {
			out = append(out, part)
		}
	}
	return out
}

func decodePX(rest [][]byte) (Cmd, error) {
	if len(rest) < 1 {
		return Cmd{}, decodeErr("missing x coordinate")
	}
	x, ok := parseCoord(rest[0])
	if !ok {
		return Cmd{}, decodeErr("invalid x coordinate")
	}

	if len(rest) < 2 {
		return Cmd{}, decodeErr("missing y coordinate")
	}
	y, ok := parseCoord(rest[1])
	if !ok {
		return Cmd{}, decodeErr("invalid y coordinate")
	}

	if len(rest) < 3 {
		return Cmd{Kind: KindGetPixel, X: x, Y: y}, nil
	}

	col, err := color.FromHexASCII(rest[2])
	if err != nil {
		return Cmd{}, decodeErr("invalid color value")
	}
	return Cmd{Kind: KindSetPixel, X: x, Y: y, Color: col}, nil
}

// parseCoord parses an unsigned decimal coordinate, rejecting a leading
// '-' up front the way the original's atoi::<usize> does, rather than
// accepting it and failing later as out-of-bounds.
func parseCoord(b []byte) (int, bool) {
	v, err := strconv.ParseUint(string(b), 10, 64)
	if err != nil {
		return 0, false
	}
	return int(v), true
}

// Result is the outcome of invoking a Cmd.
type Result struct {
	// Kind selects which field is meaningful; see the ResultXxx constants.
	Kind ResultKind
	// Response holds the reply text for ResultResponse (without a line
	// terminator; the caller appends "\r\n").
	Response string
	// Err holds the client-facing message for ResultClientErr.
	Err string
}

// ResultKind identifies the outcome variant of an invoked command.
type ResultKind int

const (
	// ResultOK means the command succeeded with no reply due.
	ResultOK ResultKind = iota
	// ResultResponse means Response should be sent back to the client.
	ResultResponse
	// ResultClientErr means the command failed due to bad client input;
	// Err should be sent back as "ERR <Err>\r\n" and the connection closed.
	ResultClientErr
	// ResultQuit means the client asked to disconnect.
	ResultQuit
)

// Options controls which optional command surfaces are advertised/enabled.
// The connection codec uses the same type (netpixel.Options is an alias).
type Options struct {
	// RateLimitBitsPerSec is > 0 when inbound bytes are throttled; Help
	// text mentions the limit when set.
	RateLimitBitsPerSec uint64
	// AllowBinaryCmd controls whether Help advertises the PB binary frame.
	AllowBinaryCmd bool
}

// Invoke applies cmd to pixmap and returns the outcome. pixelsSet is
// incremented by one on every successful SetPixel — callers batch many
// Invoke calls and publish pixelsSet to Stats once per pass.
func Invoke(cmd Cmd, pm *pixmap.Pixmap, pixelsSet *uint64, opts Options) Result {
	switch cmd.Kind {
	case KindSetPixel:
		if err := pm.SetPixel(cmd.X, cmd.Y, cmd.Color); err != nil {
			return Result{Kind: ResultClientErr, Err: err.Error()}
		}
		*pixelsSet++
		return Result{Kind: ResultOK}

	case KindGetPixel:
		c, err := pm.Pixel(cmd.X, cmd.Y)
		if err != nil {
			return Result{Kind: ResultClientErr, Err: err.Error()}
		}
		return Result{Kind: ResultResponse, Response: fmt.Sprintf("PX %d %d %s", cmd.X, cmd.Y, c.ToHex6())}

	case KindSize:
		w, h := pm.Dimensions()
		return Result{Kind: ResultResponse, Response: fmt.Sprintf("SIZE %d %d", w, h)}

	case KindHelp:
		return Result{Kind: ResultResponse, Response: HelpText(opts)}

	case KindQuit:
		return Result{Kind: ResultQuit}

	default: // KindNone
		return Result{Kind: ResultOK}
	}
}

// HelpText renders the HELP response, advertising only the command
// surfaces enabled by opts.
func HelpText(opts Options) string {
	var b bytes.Buffer
	b.WriteString("HELP pixelflut server\r\n")
	b.WriteString("HELP Commands:\r\n")
	b.WriteString("HELP - PX <x> <y> <RRGGBB[AA]>\r\n")
	b.WriteString("HELP - PX <x> <y>   >>  PX <x> <y> <RRGGBB>\r\n")
	b.WriteString("HELP - SIZE         >>  SIZE <width> <height>\r\n")
	b.WriteString("HELP - HELP         >>  HELP ...")
	if opts.AllowBinaryCmd {
		b.WriteString("\r\nHELP - PBxyrgba (NO newline, x, y = 2 byte LE u16, r, g, b, a = single byte)")
	}
	b.WriteString("\r\nHELP - QUIT         >> (Disconnect)")
	if opts.RateLimitBitsPerSec > 0 {
		fmt.Fprintf(&b, "\r\nHELP - Input from a single client is limited to %d bits per second", opts.RateLimitBitsPerSec)
	}
	return b.String()
}
