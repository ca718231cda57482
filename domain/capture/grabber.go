// Package capture grabs a fixed-size screen region and feeds it into the
// frame channel.
package capture

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	"github.com/vova616/screenshot"

	"github.com/soocke/pixel-aim-go/domain/framechan"
)

// Grabber is the screen-capture capability.
type Grabber interface {
	// Bounds returns the primary screen rectangle.
	Bounds() (image.Rectangle, error)
	// Grab captures r, which lies within Bounds.
	Grab(r image.Rectangle) (*image.RGBA, error)
}

// DPIMode is the process DPI awareness EnableDPIAwareness settled on.
type DPIMode string

const (
	DPIUnaware      DPIMode = "unaware"
	DPISystem       DPIMode = "system"
	DPIPerMonitorV2 DPIMode = "per_monitor_v2"
)

// CenteredRegion returns the w x h rectangle centred on screen, clipped to it.
func CenteredRegion(screen image.Rectangle, w, h int) image.Rectangle {
	c := image.Pt(screen.Min.X+screen.Dx()/2, screen.Min.Y+screen.Dy()/2)
	r := image.Rect(c.X-w/2, c.Y-h/2, c.X-w/2+w, c.Y-h/2+h)
	return r.Intersect(screen)
}

// GrabFrame captures the w x h region centred on the grabber's screen and
// converts it to a BGR frame. Images returned at a different size (HiDPI
// scaling) are centre-cropped to w x h.
func GrabFrame(g Grabber, w, h int) (framechan.Frame, error) {
	screen, err := g.Bounds()
	if err != nil {
		return framechan.Frame{}, fmt.Errorf("capture: screen bounds: %w", err)
	}
	r := CenteredRegion(screen, w, h)
	if r.Empty() {
		return framechan.Frame{}, fmt.Errorf("capture: empty region for screen %v", screen)
	}
	img, err := g.Grab(r)
	if err != nil {
		return framechan.Frame{}, err
	}
	if img == nil {
		return framechan.Frame{}, errors.New("capture: grabber returned no image")
	}
	b := img.Bounds()
	if b.Dx() > w || b.Dy() > h {
		return framechan.FromImage(imaging.CropCenter(img, min(w, b.Dx()), min(h, b.Dy()))), nil
	}
	return framechan.FromImage(img), nil
}

// ScreenGrabber captures through github.com/vova616/screenshot.
type ScreenGrabber struct{}

func (ScreenGrabber) Bounds() (image.Rectangle, error) {
	r, err := screenshot.ScreenRect()
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("capture: screen rect: %w", err)
	}
	if r.Empty() {
		return r, errors.New("capture: no screen")
	}
	return r, nil
}

func (ScreenGrabber) Grab(r image.Rectangle) (*image.RGBA, error) {
	img, err := screenshot.CaptureRect(r)
	if err != nil {
		return nil, fmt.Errorf("capture: %v: %w", r, err)
	}
	return img, nil
}
