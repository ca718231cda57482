package aim

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/soocke/pixel-aim-go/domain/action"
	"github.com/soocke/pixel-aim-go/domain/framechan"
	"github.com/soocke/pixel-aim-go/domain/worker"
)

// Snapshotter is the read side of the frame channel.
type Snapshotter interface {
	Read() framechan.Sample
	Center() (float64, float64)
}

// Stats counts controller activity.
type Stats struct {
	Ticks     uint64
	Triggers  uint64
	Empty     uint64
	Failures  uint64
	LastMoveX int64
	LastMoveY int64
}

// Controller turns the latest detections into pointer moves while the
// activation source is engaged.
type Controller struct {
	src      Snapshotter
	hotkey   action.HotkeySource
	actuator action.Actuator
	settings Settings
	logger   *slog.Logger

	last  time.Time
	fired bool

	ticks, triggers, empty, failures atomic.Uint64
	lastX, lastY                     atomic.Int64
}

// NewController wires a controller. hotkey and actuator must be non-nil; use
// NewIntervalSource when no real activation source exists.
func NewController(src Snapshotter, hotkey action.HotkeySource, act action.Actuator, s Settings, logger *slog.Logger) *Controller {
	if s.PollInterval <= 0 {
		s.PollInterval = 10 * time.Millisecond
	}
	return &Controller{src: src, hotkey: hotkey, actuator: act, settings: s, logger: logger}
}

// Tick runs one polling step at now and reports whether a move was issued.
func (c *Controller) Tick(now time.Time) bool {
	c.ticks.Add(1)
	if !c.hotkey.Pressed() {
		return false
	}
	if c.fired && now.Sub(c.last) < c.settings.Cooldown {
		return false
	}
	sample := c.src.Read()
	cx, cy := c.src.Center()
	box, _, ok := SelectNearest(sample.Boxes, cx, cy)
	if !ok {
		c.empty.Add(1)
		return false
	}
	ax, ay := AimPoint(box, c.settings.XTargetOffset, c.settings.YTargetOffset)
	mx, my := MapDelta(ax-cx, ay-cy, c.settings)
	if err := c.move(mx, my); err != nil {
		c.failures.Add(1)
		if c.logger != nil {
			c.logger.Error("control.move", "dx", mx, "dy", my, "error", err)
		}
	}
	c.last, c.fired = now, true
	c.triggers.Add(1)
	c.lastX.Store(int64(mx))
	c.lastY.Store(int64(my))
	return true
}

func (c *Controller) move(dx, dy int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("actuator panicked: %v", r)
		}
	}()
	return c.actuator.MoveRelative(dx, dy)
}

// Run polls until flag clears, then closes the activation source.
func (c *Controller) Run(flag *worker.RunFlag) error {
	defer func() {
		if err := c.hotkey.Close(); err != nil && c.logger != nil {
			c.logger.Warn("control.hotkey_close", "error", err)
		}
	}()
	t := time.NewTicker(c.settings.PollInterval)
	defer t.Stop()
	for flag.Active() {
		c.Tick(time.Now())
		<-t.C
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (c *Controller) Stats() Stats {
	return Stats{
		Ticks:     c.ticks.Load(),
		Triggers:  c.triggers.Load(),
		Empty:     c.empty.Load(),
		Failures:  c.failures.Load(),
		LastMoveX: c.lastX.Load(),
		LastMoveY: c.lastY.Load(),
	}
}
