package detect

import (
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/soocke/pixel-aim-go/domain/framechan"
)

// DefaultScales are the template scale factors tried on every frame.
var DefaultScales = []float64{0.8, 1.0, 1.2}

// TemplateOptions tunes the multi-scale matcher.
type TemplateOptions struct {
	Scales []float64
	Stride int
	Refine bool
}

// TemplateDetector finds the single best match of an image template using
// multi-scale normalized cross-correlation. A match reports class 0.
type TemplateDetector struct {
	path  string
	opts  TemplateOptions
	tmpls []*templatePrecomp
}

// NewTemplateDetector loads the template at path with default options.
func NewTemplateDetector(path string) (*TemplateDetector, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("detect: open template %s: %w", path, err)
	}
	return NewTemplateDetectorFromImage(path, img, TemplateOptions{Scales: DefaultScales, Stride: 2, Refine: true})
}

// NewTemplateDetectorFromImage precomputes every scaled template of img.
func NewTemplateDetectorFromImage(name string, img image.Image, opts TemplateOptions) (*TemplateDetector, error) {
	if len(opts.Scales) == 0 {
		opts.Scales = []float64{1}
	}
	b := img.Bounds()
	d := &TemplateDetector{path: name, opts: opts}
	for _, s := range opts.Scales {
		if s <= 0 {
			continue
		}
		scaled := img
		if s != 1 {
			scaled = imaging.Resize(img, int(float64(b.Dx())*s), int(float64(b.Dy())*s), imaging.Linear)
		}
		if pc := buildTemplatePrecomp(scaled); pc != nil {
			d.tmpls = append(d.tmpls, pc)
		}
	}
	if len(d.tmpls) == 0 {
		return nil, fmt.Errorf("detect: template %s too small or uniform", name)
	}
	return d, nil
}

func (d *TemplateDetector) Name() string { return "template:" + d.path }

// Detect evaluates every scale in parallel and keeps the best score.
func (d *TemplateDetector) Detect(f framechan.Frame, confidence float64, classes []int) ([]Box, framechan.Frame, error) {
	drawn := f.Clone()
	if !classAllowed(classes, 0) || f.Empty() {
		return nil, drawn, nil
	}
	pre := buildGrayPrecomp(drawn)

	type scored struct {
		m  nccMatch
		pc *templatePrecomp
	}
	results := make([]scored, len(d.tmpls))
	var wg sync.WaitGroup
	sem := make(chan struct{}, runtime.NumCPU())
	for i, pc := range d.tmpls {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, pc *templatePrecomp) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = scored{m: matchNCC(pre, pc, d.opts.Stride, d.opts.Refine), pc: pc}
		}(i, pc)
	}
	wg.Wait()

	best := scored{m: nccMatch{Score: -1}}
	for _, r := range results {
		if r.pc != nil && r.m.Score > best.m.Score {
			best = r
		}
	}
	if best.pc == nil || best.m.Score < confidence {
		return nil, drawn, nil
	}
	b := Box{X1: best.m.X, Y1: best.m.Y, X2: best.m.X + best.pc.W, Y2: best.m.Y + best.pc.H}
	drawRect(drawn, b, 2)
	return []Box{b}, drawn, nil
}
