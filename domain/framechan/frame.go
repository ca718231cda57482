package framechan

import (
	"image"
	"image/color"
)

// Box is an axis-aligned detection rectangle in frame pixel coordinates.
type Box struct {
	X1, Y1, X2, Y2 int
}

// Rect converts the box to an image.Rectangle.
func (b Box) Rect() image.Rectangle { return image.Rect(b.X1, b.Y1, b.X2, b.Y2) }

// Center returns the box midpoint.
func (b Box) Center() (float64, float64) {
	return float64(b.X1+b.X2) / 2, float64(b.Y1+b.Y2) / 2
}

// Frame is a BGR, row-major image. Stride may exceed Width*3 for frames that
// are views into a larger buffer; zero means tightly packed.
type Frame struct {
	Width  int
	Height int
	Stride int
	Pix    []byte
}

// NewFrame allocates a zeroed, tightly packed frame.
func NewFrame(w, h int) Frame {
	return Frame{Width: w, Height: h, Stride: w * Channels, Pix: make([]byte, w*h*Channels)}
}

func (f Frame) stride() int {
	if f.Stride > 0 {
		return f.Stride
	}
	return f.Width * Channels
}

// Empty reports whether the frame holds no pixels.
func (f Frame) Empty() bool { return f.Width <= 0 || f.Height <= 0 || len(f.Pix) == 0 }

// Clone returns a tightly packed deep copy.
func (f Frame) Clone() Frame {
	out := NewFrame(f.Width, f.Height)
	s := f.stride()
	row := f.Width * Channels
	for y := 0; y < f.Height; y++ {
		off := y * s
		if off >= len(f.Pix) {
			break
		}
		copy(out.Pix[y*row:(y+1)*row], f.Pix[off:min(off+row, len(f.Pix))])
	}
	return out
}

// BGR returns the pixel at (x, y).
func (f Frame) BGR(x, y int) (b, g, r uint8) {
	i := y*f.stride() + x*Channels
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2]
}

// SetBGR writes the pixel at (x, y); out-of-range writes are ignored.
func (f Frame) SetBGR(x, y int, b, g, r uint8) {
	if x < 0 || y < 0 || x >= f.Width || y >= f.Height {
		return
	}
	i := y*f.stride() + x*Channels
	f.Pix[i], f.Pix[i+1], f.Pix[i+2] = b, g, r
}

// FromImage converts img into a tightly packed BGR frame. *image.RGBA takes a
// direct path; other image types go through color conversion.
func FromImage(img image.Image) Frame {
	if img == nil {
		return Frame{}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := NewFrame(w, h)
	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < h; y++ {
			src := rgba.Pix[(b.Min.Y-rgba.Rect.Min.Y+y)*rgba.Stride+(b.Min.X-rgba.Rect.Min.X)*4:]
			dst := out.Pix[y*w*Channels:]
			for x := 0; x < w; x++ {
				dst[x*3+0] = src[x*4+2]
				dst[x*3+1] = src[x*4+1]
				dst[x*3+2] = src[x*4+0]
			}
		}
		return out
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.RGBA)
			out.SetBGR(x, y, c.B, c.G, c.R)
		}
	}
	return out
}

// ToRGBA converts the frame into an opaque *image.RGBA for display or encoding.
func (f Frame) ToRGBA() *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	s := f.stride()
	if f.Empty() || len(f.Pix) < (f.Height-1)*s+f.Width*Channels {
		return dst
	}
	for y := 0; y < f.Height; y++ {
		row := f.Pix[y*s:]
		out := dst.Pix[y*dst.Stride:]
		for x := 0; x < f.Width; x++ {
			out[x*4+0] = row[x*3+2]
			out[x*4+1] = row[x*3+1]
			out[x*4+2] = row[x*3+0]
			out[x*4+3] = 0xFF
		}
	}
	return dst
}
