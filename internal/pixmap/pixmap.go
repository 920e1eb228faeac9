// Package pixmap implements the shared, lock-free canvas. Every cell is an
// atomically-addressable 32-bit word; writers trade cross-channel isolation
// for throughput, as documented on Pixmap.SetPixel.
package pixmap

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/framegrace/pixelflut/internal/color"
)

// OutOfBoundErr is returned by Pixel and SetPixel when a coordinate falls
// outside the canvas.
type OutOfBoundErr struct {
	// Axis is "x" or "y".
	Axis string
}

func (e *OutOfBoundErr) Error() string {
	return fmt.Sprintf("%s coordinate out of bound", e.Axis)
}

// Pixmap is a fixed (width, height) grid of packed RGBA cells. It has no
// single owner: the acceptor, every connection, the renderer and the
// snapshotter all read and write it concurrently without a mutex.
type Pixmap struct {
	cells  []atomic.Uint32
	width  int
	height int
}

// New allocates a width x height canvas, every cell initialized to opaque
// black.
func New(width, height int) *Pixmap {
	p := &Pixmap{
		cells:  make([]atomic.Uint32, width*height),
		width:  width,
		height: height,
	}
	black := color.Black().Raw()
	for i := range p.cells {
		p.cells[i].Store(black)
	}
	return p
}

// Width returns the canvas width.
func (p *Pixmap) Width() int { return p.width }

// Height returns the canvas height.
func (p *Pixmap) Height() int { return p.height }

// Dimensions returns (width, height).
func (p *Pixmap) Dimensions() (int, int) { return p.width, p.height }

func (p *Pixmap) index(x, y int) (int, error) {
	if x < 0 || x >= p.width {
		return 0, &OutOfBoundErr{Axis: "x"}
	}
	if y < 0 || y >= p.height {
		return 0, &OutOfBoundErr{Axis: "y"}
	}
	return y*p.width + x, nil
}

// Pixel returns the color at (x, y) via a relaxed atomic load.
func (p *Pixmap) Pixel(x, y int) (color.Color, error) {
	idx, err := p.index(x, y)
	if err != nil {
		return color.Color{}, err
	}
	return color.New(p.cells[idx].Load()), nil
}

// SetPixel blends src into the cell at (x, y): it loads the current value,
// blends src on top, and stores the result back — a non-atomic
// read-blend-write cycle.
//
// Two concurrent writers to the same cell may race: the observable result
// is one of the two blends, or a tear across channels. This is accepted —
// the design trades per-cell isolation for lock-free throughput.
func (p *Pixmap) SetPixel(x, y int, src color.Color) error {
	idx, err := p.index(x, y)
	if err != nil {
		return err
	}
	current := color.New(p.cells[idx].Load())
	current.Blend(src)
	p.cells[idx].Store(current.Raw())
	return nil
}

// AsBytes returns a zero-copy view of the cell array as 4*width*height
// bytes, suitable for direct texture upload. Each pixel reads R,G,B,A on
// little-endian hosts; on big-endian hosts it reads A,B,G,R, since cells
// are stored in host byte order.
// Readers may observe intermediate states while writers are active; that
// is acceptable for display purposes.
func (p *Pixmap) AsBytes() []byte {
	if len(p.cells) == 0 {
		return nil
	}
	ptr := (*uint32)(unsafe.Pointer(&p.cells[0]))
	return unsafe.Slice((*byte)(unsafe.Pointer(ptr)), len(p.cells)*4)
}

// Clone snapshots every cell with a relaxed atomic load. Used by the
// snapshot collaborator to get a stable image to encode.
func (p *Pixmap) Clone() *Pixmap {
	out := &Pixmap{
		cells:  make([]atomic.Uint32, len(p.cells)),
		width:  p.width,
		height: p.height,
	}
	for i := range p.cells {
		out.cells[i].Store(p.cells[i].Load())
	}
	return out
}
