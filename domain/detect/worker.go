package detect

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/soocke/pixel-aim-go/domain/framechan"
	"github.com/soocke/pixel-aim-go/domain/worker"
)

const statsLogInterval = 5 * time.Second

// Settings are the detector parameters snapshotted when the worker starts.
type Settings struct {
	Confidence float64
	Classes    []int
}

// Stats summarises inference loop behaviour.
type Stats struct {
	Inferences   uint64
	Failures     uint64
	Skipped      uint64
	Dropped      uint64
	AvgInference time.Duration
}

// Worker reads the latest frame, runs the detector and writes the annotated
// frame and boxes back. A frame it already annotated is never processed again.
type Worker struct {
	detector Detector
	channel  *framechan.Channel
	settings Settings
	logger   *slog.Logger

	inferences atomic.Uint64
	failures   atomic.Uint64
	skipped    atomic.Uint64
	dropped    atomic.Uint64
	inferNanos atomic.Uint64
}

// NewWorker returns an inference worker over ch.
func NewWorker(d Detector, ch *framechan.Channel, s Settings, logger *slog.Logger) *Worker {
	return &Worker{detector: d, channel: ch, settings: s, logger: logger}
}

// Run loops until flag is cleared. Detector failures, panics included, pass
// the frame through unchanged with no boxes. Whatever the channel holds when
// Run starts counts as already annotated.
func (w *Worker) Run(flag *worker.RunFlag) error {
	logTicker := time.NewTicker(statsLogInterval)
	defer logTicker.Stop()
	last := w.channel.Sequence()
	for flag.Active() {
		sample := w.channel.Read()
		if sample.Sequence == last {
			w.skipped.Add(1)
			time.Sleep(time.Millisecond)
			continue
		}
		start := time.Now()
		boxes, drawn, err := w.detect(sample.Frame)
		w.inferNanos.Add(uint64(time.Since(start).Nanoseconds()))
		if err != nil {
			w.failures.Add(1)
			if w.logger != nil {
				w.logger.Error("inference.detect", "detector", w.detector.Name(), "error", err)
			}
			boxes, drawn = nil, sample.Frame
		}
		w.inferences.Add(1)
		if seq, ok := w.channel.Publish(drawn, boxes); ok {
			last = seq
		} else {
			w.dropped.Add(1)
			last = sample.Sequence
		}

		select {
		case <-logTicker.C:
			w.logStats()
		default:
		}
	}
	return nil
}

func (w *Worker) detect(f framechan.Frame) (boxes []Box, drawn framechan.Frame, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("detector %s panicked: %v", w.detector.Name(), r)
		}
	}()
	return w.detector.Detect(f, w.settings.Confidence, w.settings.Classes)
}

// Stats returns a snapshot of the loop counters.
func (w *Worker) Stats() Stats {
	n := w.inferences.Load()
	var avg time.Duration
	if n > 0 {
		avg = time.Duration(w.inferNanos.Load() / n)
	}
	return Stats{
		Inferences:   n,
		Failures:     w.failures.Load(),
		Skipped:      w.skipped.Load(),
		Dropped:      w.dropped.Load(),
		AvgInference: avg,
	}
}

func (w *Worker) logStats() {
	if w.logger == nil {
		return
	}
	stats := w.Stats()
	w.logger.Debug("inference.stats",
		"detector", w.detector.Name(),
		"inferences", stats.Inferences,
		"failures", stats.Failures,
		"skipped", stats.Skipped,
		"avg_inference", stats.AvgInference,
	)
}
