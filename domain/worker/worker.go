// Package worker runs cooperative background loops. A worker owns a RunFlag
// it polls between iterations; stopping clears the flag and waits a bounded
// time for the loop to return.
package worker

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// RunFlag is the shared stop signal between a supervisor and one worker.
type RunFlag struct {
	active atomic.Bool
}

// NewRunFlag returns a flag that is already set.
func NewRunFlag() *RunFlag {
	f := &RunFlag{}
	f.active.Store(true)
	return f
}

// Active reports whether the worker should keep running. A nil flag is never active.
func (f *RunFlag) Active() bool { return f != nil && f.active.Load() }

// Clear asks the worker to stop. Workers may clear their own flag on exit.
func (f *RunFlag) Clear() {
	if f != nil {
		f.active.Store(false)
	}
}

// Func is a worker body. It must return soon after flag.Active reports false.
type Func func(flag *RunFlag) error

// Handle tracks one spawned worker.
type Handle struct {
	id      string
	role    string
	flag    *RunFlag
	done    chan struct{}
	err     atomic.Pointer[error]
	started time.Time
	logger  *slog.Logger
}

// Spawn starts fn on its own goroutine. Panics are recovered and reported as
// the worker's exit error; the flag is cleared whenever the worker returns.
func Spawn(role string, logger *slog.Logger, fn Func) *Handle {
	h := &Handle{
		id:      uuid.NewString(),
		role:    role,
		flag:    NewRunFlag(),
		done:    make(chan struct{}),
		started: time.Now(),
		logger:  logger,
	}
	go h.run(fn)
	return h
}

func (h *Handle) run(fn Func) {
	defer close(h.done)
	defer h.flag.Clear()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("worker %s panicked: %v", h.role, r)
			h.err.Store(&err)
			if h.logger != nil {
				h.logger.Error("worker.panic", "role", h.role, "id", h.id, "panic", r, "stack", string(debug.Stack()))
			}
		}
	}()
	if h.logger != nil {
		h.logger.Debug("worker.start", "role", h.role, "id", h.id)
	}
	if err := fn(h.flag); err != nil {
		h.err.Store(&err)
		if h.logger != nil {
			h.logger.Error("worker.exit", "role", h.role, "id", h.id, "error", err)
		}
		return
	}
	if h.logger != nil {
		h.logger.Debug("worker.exit", "role", h.role, "id", h.id, "uptime", time.Since(h.started))
	}
}

// ID is a unique identifier for log correlation.
func (h *Handle) ID() string { return h.id }

// Role names what the worker does.
func (h *Handle) Role() string { return h.role }

// Started is when the worker was spawned.
func (h *Handle) Started() time.Time { return h.started }

// Flag returns the worker's run flag.
func (h *Handle) Flag() *RunFlag { return h.flag }

// Exited reports whether the worker has returned.
func (h *Handle) Exited() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Alive reports whether the worker is still running.
func (h *Handle) Alive() bool { return h != nil && !h.Exited() }

// Done is closed when the worker returns.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Err returns the worker's exit error, if any.
func (h *Handle) Err() error {
	if p := h.err.Load(); p != nil {
		return *p
	}
	return nil
}

// Stop clears the flag and waits up to timeout. It reports whether the worker
// exited; a worker that overruns is abandoned and left to finish on its own.
func (h *Handle) Stop(timeout time.Duration) bool {
	if h == nil {
		return true
	}
	h.flag.Clear()
	return h.Join(timeout)
}

// Join waits up to timeout for the worker to return.
func (h *Handle) Join(timeout time.Duration) bool {
	if h == nil {
		return true
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-h.done:
		return true
	case <-t.C:
		if h.logger != nil {
			h.logger.Warn("worker.join_timeout", "role", h.role, "id", h.id, "timeout", timeout)
		}
		return false
	}
}

// Sleep waits for d or until flag is cleared, polling in small steps so a
// long interval does not delay shutdown. It returns flag.Active().
func Sleep(flag *RunFlag, d time.Duration) bool {
	const step = 10 * time.Millisecond
	for d > 0 && flag.Active() {
		s := min(d, step)
		time.Sleep(s)
		d -= s
	}
	return flag.Active()
}
