package aim

import (
	"log/slog"
	"sync"
	"time"

	"github.com/soocke/pixel-aim-go/domain/action"
)

// IntervalSource is the activation fallback used when no hotkey backend is
// available: it reports pressed once per interval.
type IntervalSource struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewIntervalSource fires at most once per interval, starting immediately.
func NewIntervalSource(interval time.Duration) *IntervalSource {
	if interval <= 0 {
		interval = time.Second
	}
	return &IntervalSource{interval: interval, now: time.Now}
}

func (s *IntervalSource) Pressed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if !s.last.IsZero() && now.Sub(s.last) < s.interval {
		return false
	}
	s.last = now
	return true
}

func (s *IntervalSource) Close() error { return nil }

// Activation binds hotkey through state, falling back to an IntervalSource
// when the key state backend or identifier is unusable.
func Activation(state action.KeyState, hotkey string, fallback time.Duration, logger *slog.Logger) action.HotkeySource {
	src, err := action.NewHotkeySource(state, hotkey)
	if err == nil {
		return src
	}
	if logger != nil {
		logger.Warn("control.hotkey_fallback", "hotkey", hotkey, "interval", fallback, "error", err)
	}
	return NewIntervalSource(fallback)
}
