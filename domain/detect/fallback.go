package detect

import "github.com/soocke/pixel-aim-go/domain/framechan"

// Fallback reports a single box centred in the frame, a quarter of the
// shorter side wide. It ignores confidence and class filters and exists so
// the full chain can run without a model.
type Fallback struct{}

func (Fallback) Name() string { return "fallback" }

func (Fallback) Detect(f framechan.Frame, _ float64, _ []int) ([]Box, framechan.Frame, error) {
	drawn := f.Clone()
	if f.Empty() {
		return nil, drawn, nil
	}
	size := min(f.Width, f.Height) / 4
	x1 := f.Width/2 - size/2
	y1 := f.Height/2 - size/2
	b := Box{X1: x1, Y1: y1, X2: x1 + size, Y2: y1 + size}
	drawRect(drawn, b, 2)
	return []Box{b}, drawn, nil
}
