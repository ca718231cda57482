// Package debug runs a periodic runtime logger, started only when the debug
// flag is set. It correlates goroutine and heap growth with process RSS and
// the pipeline's role states.
package debug

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"

	"github.com/soocke/pixel-aim-go/domain/pipeline"
)

// Sample is one runtime snapshot.
type Sample struct {
	Goroutines uint64
	StackInuse uint64
	HeapAlloc  uint64
	HeapInuse  uint64
	HeapSys    uint64
	NextGC     uint64
	NumGC      uint32
	RSS        uint64
}

// Read takes a snapshot. RSS is zero when the platform query fails.
func Read() (Sample, error) {
	samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
	metrics.Read(samples)
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s := Sample{
		StackInuse: ms.StackInuse,
		HeapAlloc:  ms.HeapAlloc,
		HeapInuse:  ms.HeapInuse,
		HeapSys:    ms.HeapSys,
		NextGC:     ms.NextGC,
		NumGC:      ms.NumGC,
	}
	if samples[0].Value.Kind() == metrics.KindUint64 {
		s.Goroutines = samples[0].Value.Uint64()
	} else {
		s.Goroutines = uint64(runtime.NumGoroutine())
	}
	rss, err := processRSS()
	s.RSS = rss
	return s, err
}

// Start logs a Sample every interval until ctx is done. status, when not
// nil, adds the pipeline role states to each line.
func Start(ctx context.Context, interval time.Duration, logger *slog.Logger, status func() pipeline.Status) {
	if logger == nil {
		return
	}
	if interval <= 0 {
		interval = 2 * time.Second
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		var rssErrLogged bool
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			s, err := Read()
			if err != nil && !rssErrLogged {
				logger.Warn("debug.rss_unavailable", "error", err)
				rssErrLogged = true
			}
			attrs := []any{
				slog.Uint64("goroutines", s.Goroutines),
				slog.Uint64("stack_inuse", s.StackInuse),
				slog.Uint64("heap_alloc", s.HeapAlloc),
				slog.Uint64("heap_inuse", s.HeapInuse),
				slog.Uint64("heap_sys", s.HeapSys),
				slog.Uint64("next_gc", s.NextGC),
				slog.Uint64("num_gc", uint64(s.NumGC)),
				slog.Uint64("rss", s.RSS),
			}
			if status != nil {
				st := status()
				roles := make([]any, 0, len(st.Roles))
				for name, r := range st.Roles {
					roles = append(roles, slog.String(name, r.State))
				}
				attrs = append(attrs,
					slog.Group("roles", roles...),
					slog.Uint64("channel_writes", st.Stats.Writes),
					slog.Uint64("channel_torn_reads", st.Stats.TornReads),
				)
			}
			logger.Info("debug.runtime", attrs...)
		}
	}()
}
