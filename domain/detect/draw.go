package detect

import "github.com/soocke/pixel-aim-go/domain/framechan"

// boxColor is green in BGR order.
var boxColor = [3]uint8{0, 255, 0}

// drawRect outlines b on f with the given line thickness, clipped to the frame.
func drawRect(f framechan.Frame, b Box, thickness int) {
	for t := 0; t < thickness; t++ {
		for x := b.X1; x <= b.X2; x++ {
			f.SetBGR(x, b.Y1+t, boxColor[0], boxColor[1], boxColor[2])
			f.SetBGR(x, b.Y2-t, boxColor[0], boxColor[1], boxColor[2])
		}
		for y := b.Y1; y <= b.Y2; y++ {
			f.SetBGR(b.X1+t, y, boxColor[0], boxColor[1], boxColor[2])
			f.SetBGR(b.X2-t, y, boxColor[0], boxColor[1], boxColor[2])
		}
	}
}
