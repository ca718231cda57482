// Package framechan implements a fixed-layout, latest-wins frame channel
// over a shared byte arena. One process creates the arena; every other
// participant attaches to it by name.
//
// Arena layout (native byte order, int32 cells):
//
//	[0]                 sequence (even = stable, odd = write in progress)
//	[1]                 box count
//	[2 .. 2+4*MaxBoxes) x1,y1,x2,y2 per box, unused slots zero
//	[MetaSize ..)       image, Width*Height*3 bytes, BGR, row-major
package framechan

import "fmt"

const (
	// Channels is the number of bytes per pixel; order is B, G, R.
	Channels = 3

	metaHeaderInts = 2
	boxInts        = 4
	int32Size      = 4

	// DefaultReadAttempts bounds the reader's optimistic retry loop.
	DefaultReadAttempts = 3
)

// Layout fixes the geometry of a channel. Every participant must agree on it.
type Layout struct {
	Width    int
	Height   int
	MaxBoxes int
}

// DefaultLayout is the 640x640, 256-box layout.
func DefaultLayout() Layout { return Layout{Width: 640, Height: 640, MaxBoxes: 256} }

// Validate reports whether the layout is usable.
func (l Layout) Validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("framechan: invalid frame size %dx%d", l.Width, l.Height)
	}
	if l.MaxBoxes <= 0 {
		return fmt.Errorf("framechan: invalid max boxes %d", l.MaxBoxes)
	}
	return nil
}

// ImageSize is the byte length of the image region.
func (l Layout) ImageSize() int { return l.Width * l.Height * Channels }

// MetaInts is the number of int32 cells in the metadata region.
func (l Layout) MetaInts() int { return metaHeaderInts + l.MaxBoxes*boxInts }

// MetaSize is the byte length of the metadata region.
func (l Layout) MetaSize() int { return l.MetaInts() * int32Size }

// Size is the total arena length.
func (l Layout) Size() int { return l.MetaSize() + l.ImageSize() }

// Center is the fixed reference point of the frame.
func (l Layout) Center() (float64, float64) {
	return float64(l.Width / 2), float64(l.Height / 2)
}
