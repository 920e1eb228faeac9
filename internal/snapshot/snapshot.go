// Package snapshot defines the periodic canvas-image collaborator. Actual
// image encoding is a deployment concern (PNG, S3 upload, etc.) and is out
// of scope here; callers supply their own Snapshotter.
package snapshot

import "github.com/framegrace/pixelflut/internal/pixmap"

// Snapshotter is notified on a fixed interval with the current canvas and
// decides whether and how to persist it.
type Snapshotter interface {
	Snapshot(pm *pixmap.Pixmap) error
}
