// Package pipeline supervises the capture, inference, control and preview
// workers that share one frame channel.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/soocke/pixel-aim-go/domain/aim"
	"github.com/soocke/pixel-aim-go/domain/capture"
	"github.com/soocke/pixel-aim-go/domain/detect"
	"github.com/soocke/pixel-aim-go/domain/framechan"
	"github.com/soocke/pixel-aim-go/domain/preview"
	"github.com/soocke/pixel-aim-go/domain/worker"
)

// ErrClosed is returned by start operations after Close.
var ErrClosed = errors.New("pipeline: supervisor closed")

type slot struct {
	state   State
	handle  *worker.Handle
	channel *framechan.Channel
	stats   func(*Status)
}

// Supervisor owns the frame channel and one slot per role. Start and stop
// operations are serialized; each role has at most one live worker.
type Supervisor struct {
	opMu sync.Mutex
	mu   sync.Mutex

	cfg     ConfigSource
	caps    Capabilities
	backend framechan.Backend
	channel *framechan.Channel
	layout  framechan.Layout
	logger  *slog.Logger

	slots     [numRoles]slot
	listeners []RoleListener
	closed    bool
}

// New creates the frame channel from the current configuration. Workers
// attach to it by name when they start.
func New(cfg ConfigSource, caps Capabilities, opts Options, logger *slog.Logger) (*Supervisor, error) {
	snap := cfg.Read()
	layout := framechan.Layout{Width: snap.FrameWidth, Height: snap.FrameHeight, MaxBoxes: snap.MaxBoxes}
	if opts.Backend == nil {
		opts.Backend = framechan.NewSharedMemory()
	}
	if opts.Name == "" {
		opts.Name = framechan.NewName()
	}
	ch, err := framechan.Create(opts.Backend, opts.Name, layout)
	if err != nil {
		return nil, fmt.Errorf("pipeline: create channel: %w", err)
	}
	if caps.Grabber == nil {
		caps.Grabber = capture.NewPlatformGrabber()
	}
	if caps.NewDetector == nil {
		caps.NewDetector = detect.New
	}
	if caps.Actuator == nil {
		caps.Actuator = discardActuator{}
	}
	if caps.Renderer == nil {
		caps.Renderer = preview.NewLatest()
	}
	if logger != nil {
		logger.Info("pipeline.channel_created", "name", ch.Name(), "width", layout.Width, "height", layout.Height, "max_boxes", layout.MaxBoxes)
	}
	return &Supervisor{cfg: cfg, caps: caps, backend: opts.Backend, channel: ch, layout: layout, logger: logger}, nil
}

// ChannelName is the arena name workers attach to.
func (s *Supervisor) ChannelName() string { return s.channel.Name() }

// AddListener registers l for role transitions.
func (s *Supervisor) AddListener(l RoleListener) {
	if l == nil {
		return
	}
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// StartDetect starts capture, inference and control. Roles that are still
// alive are left alone and any that died are respawned. It returns false
// without spawning anything when all three are already running.
func (s *Supervisor) StartDetect() (bool, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.isClosed() {
		return false, ErrClosed
	}
	var missing []Role
	for _, r := range detectRoles {
		if !s.alive(r) {
			missing = append(missing, r)
		}
	}
	if len(missing) == 0 {
		return false, nil
	}
	cfg := s.cfg.Read()
	var started []Role
	for _, r := range missing {
		if err := s.spawn(r); err != nil {
			s.stopRoles(started, cfg.JoinTimeout())
			return false, err
		}
		started = append(started, r)
	}
	return true, nil
}

// StopDetect stops the detection roles and then preview. It reports whether
// any of them was running; stopping nothing is a no-op.
func (s *Supervisor) StopDetect() bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	timeout := s.cfg.Read().JoinTimeout()
	stopped := s.stopRoles(detectRoles, timeout)
	if s.stopRoles([]Role{RolePreview}, timeout) {
		stopped = true
	}
	return stopped
}

// StartPreview starts the preview role. It returns false when it is
// already running.
func (s *Supervisor) StartPreview() (bool, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	if s.isClosed() {
		return false, ErrClosed
	}
	if s.alive(RolePreview) {
		return false, nil
	}
	if err := s.spawn(RolePreview); err != nil {
		return false, err
	}
	return true, nil
}

// StopPreview stops the preview role and reports whether it was running.
func (s *Supervisor) StopPreview() bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	return s.stopRoles([]Role{RolePreview}, s.cfg.Read().JoinTimeout())
}

// Close stops every role and releases the channel. The arena is removed
// once every worker handle, including abandoned ones, has detached.
func (s *Supervisor) Close() error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	timeout := s.cfg.Read().JoinTimeout()
	s.stopRoles(detectRoles, timeout)
	s.stopRoles([]Role{RolePreview}, timeout)
	return s.channel.Release()
}

// RoleState returns the effective state of r. A role whose worker returned
// on its own reports stopped.
func (s *Supervisor) RoleState(r Role) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effective(r)
}

// Status reports role states, worker stats and aggregated channel counters.
func (s *Supervisor) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := Status{Channel: s.channel.Name(), Roles: make(map[string]RoleStatus, numRoles)}
	for r := Role(0); r < numRoles; r++ {
		sl := s.slots[r]
		rs := RoleStatus{State: s.effective(r).String()}
		if sl.handle != nil {
			rs.WorkerID = sl.handle.ID()
			rs.Uptime = time.Since(sl.handle.Started()).Round(time.Millisecond).String()
			if err := sl.handle.Err(); err != nil {
				rs.Error = err.Error()
			}
		}
		if sl.channel != nil {
			cs := sl.channel.Stats()
			st.Stats.Writes += cs.Writes
			st.Stats.DroppedWrites += cs.DroppedWrites
			st.Stats.Reads += cs.Reads
			st.Stats.ReadRetries += cs.ReadRetries
			st.Stats.TornReads += cs.TornReads
		}
		if sl.stats != nil {
			sl.stats(&st)
		}
		st.Roles[r.String()] = rs
	}
	st.Detecting = s.effective(RoleCapture) == StateRunning
	st.Previewing = s.effective(RolePreview) == StateRunning
	return st
}

func (s *Supervisor) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// effective must be called with mu held.
func (s *Supervisor) effective(r Role) State {
	sl := s.slots[r]
	if sl.state == StateRunning && sl.handle != nil && sl.handle.Exited() {
		return StateStopped
	}
	return sl.state
}

func (s *Supervisor) alive(r Role) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.effective(r) == StateRunning
}

func (s *Supervisor) transition(r Role, next State) {
	s.mu.Lock()
	prev := s.slots[r].state
	s.slots[r].state = next
	listeners := append([]RoleListener(nil), s.listeners...)
	s.mu.Unlock()
	s.notify(listeners, r, prev, next)
}

func (s *Supervisor) notify(listeners []RoleListener, r Role, prev, next State) {
	if prev == next {
		return
	}
	if s.logger != nil {
		s.logger.Debug("pipeline.transition", "role", r.String(), "from", prev.String(), "to", next.String())
	}
	for _, l := range listeners {
		l(r, prev, next)
	}
}

// watch moves r to stopped when h returns on its own. A worker that was
// replaced or is already being stopped is ignored.
func (s *Supervisor) watch(r Role, h *worker.Handle) {
	<-h.Done()
	s.mu.Lock()
	sl := s.slots[r]
	if sl.handle != h || sl.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.slots[r].state = StateStopped
	listeners := append([]RoleListener(nil), s.listeners...)
	s.mu.Unlock()
	if s.logger != nil {
		if err := h.Err(); err != nil {
			s.logger.Error("pipeline.worker_died", "role", r.String(), "worker_id", h.ID(), "error", err)
		} else {
			s.logger.Info("pipeline.worker_exited", "role", r.String(), "worker_id", h.ID())
		}
	}
	s.notify(listeners, r, StateRunning, StateStopped)
}

// spawn attaches a fresh channel handle and starts the worker for r with a
// configuration snapshot taken now.
func (s *Supervisor) spawn(r Role) error {
	cfg := s.cfg.Read()
	s.transition(r, StateStarting)
	ch, err := framechan.Attach(s.backend, s.channel.Name(), s.layout)
	if err != nil {
		s.transition(r, StateStopped)
		return fmt.Errorf("pipeline: attach %s: %w", r, err)
	}
	ch.SetReadAttempts(cfg.ReadAttempts)
	var logger *slog.Logger
	if s.logger != nil {
		logger = s.logger.With("role", r.String())
	}

	var run worker.Func
	var stats func(*Status)
	switch r {
	case RoleCapture:
		w := capture.NewWorker(s.caps.Grabber, ch, logger)
		run = w.Run
		stats = func(st *Status) { v := w.Stats(); st.Capture = &v }
	case RoleInference:
		det := s.caps.NewDetector(cfg.ModelPath, logger)
		w := detect.NewWorker(det, ch, detect.Settings{Confidence: cfg.Confidence, Classes: cfg.Classes}, logger)
		run = w.Run
		stats = func(st *Status) { v := w.Stats(); st.Inference = &v }
	case RoleControl:
		hk := aim.Activation(s.caps.Keys, cfg.Hotkey, cfg.FallbackInterval(), logger)
		c := aim.NewController(ch, hk, s.caps.Actuator, aim.SettingsFromConfig(cfg), logger)
		run = c.Run
		stats = func(st *Status) { v := c.Stats(); st.Control = &v }
	case RolePreview:
		w := preview.NewWorker(ch, s.caps.Renderer, preview.Settings{Interval: cfg.PreviewInterval(), CheckEvery: cfg.PreviewCheckFrames}, logger)
		run = w.Run
		stats = func(st *Status) { v := w.Stats(); st.Preview = &v }
	default:
		_ = ch.Detach()
		s.transition(r, StateStopped)
		return fmt.Errorf("pipeline: unknown role %d", r)
	}

	h := worker.Spawn(r.String(), logger, func(flag *worker.RunFlag) error {
		defer ch.Detach()
		return run(flag)
	})
	s.mu.Lock()
	s.slots[r].handle = h
	s.slots[r].channel = ch
	s.slots[r].stats = stats
	s.mu.Unlock()
	s.transition(r, StateRunning)
	go s.watch(r, h)
	if s.logger != nil {
		s.logger.Info("pipeline.started", "role", r.String(), "worker_id", h.ID())
	}
	return nil
}

// stopRoles clears every flag first, then joins each worker with the
// timeout. Workers that overrun are abandoned. It reports whether any role
// was running.
func (s *Supervisor) stopRoles(roles []Role, timeout time.Duration) bool {
	var stopping []Role
	wasRunning := false
	for _, r := range roles {
		s.mu.Lock()
		h := s.slots[r].handle
		if h != nil && s.slots[r].state == StateStopped {
			// exited on its own and already reported
			s.slots[r] = slot{state: StateStopped}
			h = nil
		}
		if h != nil && s.effective(r) == StateRunning {
			wasRunning = true
		}
		s.mu.Unlock()
		if h == nil {
			continue
		}
		s.transition(r, StateStopping)
		h.Flag().Clear()
		stopping = append(stopping, r)
	}
	for _, r := range stopping {
		s.mu.Lock()
		h := s.slots[r].handle
		s.mu.Unlock()
		if !h.Join(timeout) && s.logger != nil {
			s.logger.Warn("pipeline.worker_abandoned", "role", r.String(), "worker_id", h.ID(), "timeout", timeout)
		}
		s.mu.Lock()
		s.slots[r] = slot{state: s.slots[r].state}
		s.mu.Unlock()
		s.transition(r, StateStopped)
	}
	return wasRunning
}
