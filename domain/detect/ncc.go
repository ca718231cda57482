package detect

import (
	"image"
	"math"

	"github.com/soocke/pixel-aim-go/domain/framechan"
)

// grayPrecomp stores per-frame luminance and its summed-area tables
// (integral images) so window sums and variances are O(1).
type grayPrecomp struct {
	gray       []float64
	integral   []float64
	integralSq []float64
	W, H       int
}

// templatePrecomp caches template luminance and summary statistics.
// Transparent template pixels are stored as zero and excluded from the stats.
type templatePrecomp struct {
	gray  []float32
	W, H  int
	meanT float64
	stdT  float64
}

func luma(r, g, b float64) float64 { return 0.2126*r + 0.7152*g + 0.0722*b }

// buildGrayPrecomp converts a BGR frame into luminance plus integrals.
func buildGrayPrecomp(f framechan.Frame) *grayPrecomp {
	if f.Empty() {
		return nil
	}
	W, H := f.Width, f.Height
	need := W * H
	p := &grayPrecomp{
		gray:       make([]float64, need),
		integral:   make([]float64, need),
		integralSq: make([]float64, need),
		W:          W,
		H:          H,
	}
	for y := 0; y < H; y++ {
		var rowSum, rowSum2 float64
		for x := 0; x < W; x++ {
			b, g, r := f.BGR(x, y)
			gray := luma(float64(r), float64(g), float64(b))
			off := y*W + x
			p.gray[off] = gray
			rowSum += gray
			rowSum2 += gray * gray
			if y == 0 {
				p.integral[off] = rowSum
				p.integralSq[off] = rowSum2
			} else {
				p.integral[off] = p.integral[(y-1)*W+x] + rowSum
				p.integralSq[off] = p.integralSq[(y-1)*W+x] + rowSum2
			}
		}
	}
	return p
}

// buildTemplatePrecomp converts a template image into 8-bit-range luminance.
// Uniform templates cannot be correlated and yield nil.
func buildTemplatePrecomp(tmpl image.Image) *templatePrecomp {
	if tmpl == nil {
		return nil
	}
	b := tmpl.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 2 || h < 2 {
		return nil
	}
	gray := make([]float32, w*h)
	var sumT, sumT2 float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bb, a := tmpl.At(b.Min.X+x, b.Min.Y+y).RGBA()
			if a == 0 {
				continue
			}
			v := luma(float64(r>>8), float64(g>>8), float64(bb>>8))
			gray[y*w+x] = float32(v)
			sumT += v
			sumT2 += v * v
		}
	}
	n := float64(w * h)
	meanT := sumT / n
	varT := (sumT2 - sumT*sumT/n) / n
	if varT <= 1e-9 {
		return nil
	}
	stdT := math.Sqrt(varT)
	return &templatePrecomp{gray: gray, W: w, H: h, meanT: meanT, stdT: stdT}
}

// nccMatch is the best window found by matchNCC.
type nccMatch struct {
	X, Y  int
	Score float64
}

// matchNCC scans the frame with the given stride and returns the window with
// the highest normalized cross-correlation. With refine set and stride > 1 a
// dense pass runs around the coarse best. Score is -1 when nothing matched.
func matchNCC(pre *grayPrecomp, pc *templatePrecomp, stride int, refine bool) nccMatch {
	best := nccMatch{Score: -1}
	if pre == nil || pc == nil || pc.stdT <= 1e-9 {
		return best
	}
	if pre.W < pc.W || pre.H < pc.H {
		return best
	}
	if stride <= 0 {
		stride = 1
	}
	scan := func(minX, maxX, minY, maxY, step int) {
		for y := minY; y <= maxY; y += step {
			for x := minX; x <= maxX; x += step {
				if s, ok := windowScore(pre, pc, x, y); ok && s > best.Score {
					best = nccMatch{X: x, Y: y, Score: s}
				}
			}
		}
	}
	scan(0, pre.W-pc.W, 0, pre.H-pc.H, stride)
	if refine && stride > 1 && best.Score > -1 {
		bx, by := best.X, best.Y
		scan(max(0, bx-stride), min(pre.W-pc.W, bx+stride), max(0, by-stride), min(pre.H-pc.H, by+stride), 1)
	}
	return best
}

func windowScore(pre *grayPrecomp, pc *templatePrecomp, x, y int) (float64, bool) {
	w, h := pc.W, pc.H
	n := float64(w * h)
	sumF := integralSum(pre.integral, pre.W, x, y, x+w-1, y+h-1)
	sumF2 := integralSum(pre.integralSq, pre.W, x, y, x+w-1, y+h-1)
	meanF := sumF / n
	varF := (sumF2 - sumF*sumF/n) / n
	if varF <= 1e-9 {
		return 0, false
	}
	var sumFT float64
	for ty := 0; ty < h; ty++ {
		row := pre.gray[(y+ty)*pre.W+x:]
		trow := pc.gray[ty*w : ty*w+w]
		for tx, tv := range trow {
			sumFT += row[tx] * float64(tv)
		}
	}
	denom := n * math.Sqrt(varF) * pc.stdT
	if denom <= 0 {
		return 0, false
	}
	return (sumFT - n*meanF*pc.meanT) / denom, true
}

// integralSum returns the inclusive sum over [x0..x1] x [y0..y1].
func integralSum(I []float64, W int, x0, y0, x1, y1 int) float64 {
	if x0 > x1 || y0 > y1 {
		return 0
	}
	A := func(x, y int) float64 {
		if x < 0 || y < 0 {
			return 0
		}
		return I[y*W+x]
	}
	return A(x1, y1) - A(x0-1, y1) - A(x1, y0-1) + A(x0-1, y0-1)
}
