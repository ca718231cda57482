package capture

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/soocke/pixel-aim-go/domain/framechan"
	"github.com/soocke/pixel-aim-go/domain/worker"
)

const statsLogInterval = 5 * time.Second

// Stats summarises capture loop behaviour for instrumentation.
type Stats struct {
	Captures   uint64
	Failures   uint64
	Dropped    uint64
	AvgCapture time.Duration
	LastFrame  time.Time
}

// Worker captures frames and writes them to the channel with an empty box
// list. It runs at the grabber's native rate; slower consumers miss frames.
type Worker struct {
	grabber Grabber
	channel *framechan.Channel
	logger  *slog.Logger

	captures     atomic.Uint64
	failures     atomic.Uint64
	dropped      atomic.Uint64
	captureNanos atomic.Uint64
	last         atomic.Int64
}

// NewWorker returns a capture worker writing into ch.
func NewWorker(g Grabber, ch *framechan.Channel, logger *slog.Logger) *Worker {
	return &Worker{grabber: g, channel: ch, logger: logger}
}

// Run loops until flag is cleared. Grab failures and grabber panics are
// logged and retried.
func (w *Worker) Run(flag *worker.RunFlag) error {
	logTicker := time.NewTicker(statsLogInterval)
	defer logTicker.Stop()
	l := w.channel.Layout()
	var lastErrLog time.Time
	for flag.Active() {
		start := time.Now()
		f, err := w.grab(l)
		if err != nil {
			n := w.failures.Add(1)
			if w.logger != nil && time.Since(lastErrLog) >= statsLogInterval {
				w.logger.Error("capture.grab", "error", err, "failures", n)
				lastErrLog = time.Now()
			}
			worker.Sleep(flag, 10*time.Millisecond)
			continue
		}
		w.captureNanos.Add(uint64(time.Since(start).Nanoseconds()))
		if w.channel.Write(f, nil) {
			w.captures.Add(1)
			w.last.Store(time.Now().UnixNano())
		} else {
			w.dropped.Add(1)
		}

		select {
		case <-logTicker.C:
			w.logStats()
		default:
		}
	}
	return nil
}

func (w *Worker) grab(l framechan.Layout) (f framechan.Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("capture: grabber panicked: %v", r)
		}
	}()
	return GrabFrame(w.grabber, l.Width, l.Height)
}

// Stats returns a snapshot of the loop counters.
func (w *Worker) Stats() Stats {
	captures := w.captures.Load()
	dropped := w.dropped.Load()
	var avg time.Duration
	if n := captures + dropped; n > 0 {
		avg = time.Duration(w.captureNanos.Load() / n)
	}
	var last time.Time
	if ns := w.last.Load(); ns > 0 {
		last = time.Unix(0, ns)
	}
	return Stats{
		Captures:   captures,
		Failures:   w.failures.Load(),
		Dropped:    dropped,
		AvgCapture: avg,
		LastFrame:  last,
	}
}

func (w *Worker) logStats() {
	if w.logger == nil {
		return
	}
	stats := w.Stats()
	w.logger.Debug("capture.stats",
		"captures", stats.Captures,
		"failures", stats.Failures,
		"dropped", stats.Dropped,
		"avg_capture", stats.AvgCapture,
	)
}
