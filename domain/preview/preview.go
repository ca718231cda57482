// Package preview renders the latest channel frame at a throttled cadence.
package preview

import (
	"bytes"
	"image"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"

	"github.com/soocke/pixel-aim-go/domain/framechan"
	"github.com/soocke/pixel-aim-go/domain/worker"
)

const statsLogInterval = 5 * time.Second

// Renderer is the display capability. Show is called for every new frame;
// Continue is polled only every few frames and returning false ends the
// preview.
type Renderer interface {
	Show(img image.Image)
	Continue() bool
}

// Settings control the preview cadence.
type Settings struct {
	Interval   time.Duration
	CheckEvery int
}

// Stats counts preview activity.
type Stats struct {
	Shown   uint64
	Skipped uint64
}

// Worker feeds a Renderer from the channel.
type Worker struct {
	src      interface{ Read() framechan.Sample }
	renderer Renderer
	settings Settings
	logger   *slog.Logger

	shown, skipped atomic.Uint64
}

// NewWorker returns a preview worker reading from ch.
func NewWorker(ch *framechan.Channel, r Renderer, s Settings, logger *slog.Logger) *Worker {
	if s.CheckEvery <= 0 {
		s.CheckEvery = 60
	}
	return &Worker{src: ch, renderer: r, settings: s, logger: logger}
}

// Run renders until flag clears or the renderer asks to exit, in which case
// the worker clears its own flag.
func (w *Worker) Run(flag *worker.RunFlag) error {
	logTicker := time.NewTicker(statsLogInterval)
	defer logTicker.Stop()
	lastSeq, seen := uint32(0), false
	for frames := 1; flag.Active(); frames++ {
		s := w.src.Read()
		if seen && s.Sequence == lastSeq {
			w.skipped.Add(1)
		} else {
			w.renderer.Show(s.Frame.ToRGBA())
			w.shown.Add(1)
			lastSeq, seen = s.Sequence, true
		}
		if frames%w.settings.CheckEvery == 0 && !w.renderer.Continue() {
			if w.logger != nil {
				w.logger.Info("preview.closed_by_renderer")
			}
			flag.Clear()
			break
		}
		select {
		case <-logTicker.C:
			w.logStats()
		default:
		}
		worker.Sleep(flag, w.settings.Interval)
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (w *Worker) Stats() Stats {
	return Stats{Shown: w.shown.Load(), Skipped: w.skipped.Load()}
}

func (w *Worker) logStats() {
	if w.logger == nil {
		return
	}
	st := w.Stats()
	w.logger.Debug("preview.stats", "shown", st.Shown, "skipped", st.Skipped)
}

// Latest is a Renderer that keeps the most recent image for pull-based
// consumers such as the HTTP preview endpoint.
type Latest struct {
	img  atomic.Pointer[image.Image]
	exit atomic.Bool
}

// NewLatest returns an empty Latest renderer.
func NewLatest() *Latest { return &Latest{} }

func (l *Latest) Show(img image.Image) { l.img.Store(&img) }

func (l *Latest) Continue() bool { return !l.exit.Swap(false) }

// RequestExit makes the next Continue poll end the preview.
func (l *Latest) RequestExit() { l.exit.Store(true) }

// Image returns the latest frame, if any.
func (l *Latest) Image() (image.Image, bool) {
	p := l.img.Load()
	if p == nil {
		return nil, false
	}
	return *p, true
}

// JPEG encodes the latest frame.
func (l *Latest) JPEG(quality int) ([]byte, bool, error) {
	img, ok := l.Image()
	if !ok {
		return nil, false, nil
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, true, err
	}
	return buf.Bytes(), true, nil
}
