package images

import (
	"errors"
	"image"

	"github.com/disintegration/imaging"
)

// ExtractROI crops a square of side size centred at (cx, cy), shifted and
// clamped to stay inside the frame. It returns the crop and its rectangle in
// frame coordinates.
func ExtractROI(frame image.Image, cx, cy, size int) (*image.NRGBA, image.Rectangle, error) {
	if frame == nil {
		return nil, image.Rectangle{}, errors.New("images: nil frame")
	}
	b := frame.Bounds()
	if b.Empty() {
		return nil, image.Rectangle{}, errors.New("images: empty frame")
	}
	size = max(size, 1)
	w, h := min(size, b.Dx()), min(size, b.Dy())
	x0 := min(max(b.Min.X+cx-size/2, b.Min.X), b.Max.X-w)
	y0 := min(max(b.Min.Y+cy-size/2, b.Min.Y), b.Max.Y-h)
	roi := image.Rect(x0, y0, x0+w, y0+h)
	return imaging.Crop(frame, roi), roi, nil
}

// Zoom returns the centre ROI of frame enlarged by factor, used for the
// crosshair close-up.
func Zoom(frame image.Image, size, factor int) image.Image {
	if frame == nil {
		return nil
	}
	b := frame.Bounds()
	roi, _, err := ExtractROI(frame, b.Dx()/2, b.Dy()/2, size)
	if err != nil {
		return nil
	}
	factor = max(factor, 1)
	rb := roi.Bounds()
	return imaging.Resize(roi, rb.Dx()*factor, rb.Dy()*factor, imaging.NearestNeighbor)
}
