// Package canvasview defines the display-side collaborator a server wires
// in to show the canvas and a short status line. Actual GPU/window code is
// out of scope; NopRenderer is the default when no display is attached.
package canvasview

import "github.com/framegrace/pixelflut/internal/pixmap"

// Renderer receives canvas updates and status text to display. Upload is
// called on every render tick with the current canvas; SetStatusText is
// called by the stats reporter on its own interval.
type Renderer interface {
	Upload(pm *pixmap.Pixmap)
	SetStatusText(text string)
	Close() error
}

// NopRenderer discards everything. It is the default renderer for
// headless deployments (`--no-render`).
type NopRenderer struct{}

// NewNopRenderer returns a Renderer that does nothing.
func NewNopRenderer() *NopRenderer { return &NopRenderer{} }

func (*NopRenderer) Upload(*pixmap.Pixmap) {}
func (*NopRenderer) SetStatusText(string)  {}
func (*NopRenderer) Close() error          { return nil }
