// Package action wraps the OS input capabilities: relative pointer motion,
// key and button state, and one-shot hotkey capture.
package action

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable is returned when the platform has no input backend.
	ErrUnavailable = errors.New("action: capability unavailable on this platform")
	// ErrCaptureTimeout is returned when no key was pressed in time.
	ErrCaptureTimeout = errors.New("action: no key pressed before timeout")
)

// DefaultCaptureTimeout bounds CaptureHotkey when the caller sets no deadline.
const DefaultCaptureTimeout = 10 * time.Second

// Actuator moves the pointer relative to its current position.
type Actuator interface {
	MoveRelative(dx, dy int) error
}

// KeyState reports whether a virtual key or mouse button is held.
type KeyState interface {
	Down(vk uint16) bool
}

// HotkeySource reports whether the activation control is engaged.
type HotkeySource interface {
	Pressed() bool
	Close() error
}

// keyHotkey polls one key through a KeyState.
type keyHotkey struct {
	state KeyState
	key   Key
}

// NewHotkeySource binds the named key to state.
func NewHotkeySource(state KeyState, name string) (HotkeySource, error) {
	if state == nil {
		return nil, ErrUnavailable
	}
	k, err := ParseHotkey(name)
	if err != nil {
		return nil, err
	}
	return &keyHotkey{state: state, key: k}, nil
}

func (h *keyHotkey) Pressed() bool { return h.state.Down(h.key.VK) }
func (h *keyHotkey) Close() error  { return nil }

// CaptureHotkey waits for the first key that goes down after the call and
// returns its identifier. Keys already held when the capture starts are
// ignored until released. Without a deadline on ctx it waits at most
// DefaultCaptureTimeout.
func CaptureHotkey(ctx context.Context, state KeyState, poll time.Duration) (string, error) {
	if state == nil {
		return "", ErrUnavailable
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCaptureTimeout)
		defer cancel()
	}
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	held := map[uint16]bool{}
	for _, k := range keys {
		if state.Down(k.VK) {
			held[k.VK] = true
		}
	}
	t := time.NewTicker(poll)
	defer t.Stop()
	for {
		for _, k := range keys {
			down := state.Down(k.VK)
			if down && !held[k.VK] {
				return k.Name, nil
			}
			if !down {
				delete(held, k.VK)
			}
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", ErrCaptureTimeout
			}
			return "", ctx.Err()
		case <-t.C:
		}
	}
}
