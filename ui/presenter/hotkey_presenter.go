package presenter

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/soocke/pixel-aim-go/domain/action"
)

// HotkeyView shows capture progress and the bound hotkey.
type HotkeyView interface {
	SetMessage(string)
	SetHotkey(string)
}

type hotkeyResult struct {
	name string
	err  error
}

// HotkeyPresenter captures one key press off the UI thread and applies the
// result on the next Tick.
type HotkeyPresenter struct {
	capture func(ctx context.Context) (string, error)
	store   ConfigStore
	view    HotkeyView
	logger  *slog.Logger

	busy    atomic.Bool
	results chan hotkeyResult
}

func NewHotkeyPresenter(capture func(ctx context.Context) (string, error), store ConfigStore, view HotkeyView, logger *slog.Logger) *HotkeyPresenter {
	return &HotkeyPresenter{capture: capture, store: store, view: view, logger: logger, results: make(chan hotkeyResult, 1)}
}

// Begin starts a capture unless one is already in flight.
func (p *HotkeyPresenter) Begin() {
	if p == nil || p.view == nil {
		return
	}
	if p.capture == nil {
		p.view.SetMessage("Hotkey capture unavailable")
		return
	}
	if !p.busy.CompareAndSwap(false, true) {
		return
	}
	p.view.SetMessage("Press the new hotkey...")
	go func() {
		name, err := p.capture(context.Background())
		p.results <- hotkeyResult{name: name, err: err}
	}()
}

// Busy reports whether a capture is in flight.
func (p *HotkeyPresenter) Busy() bool { return p != nil && p.busy.Load() }

func (p *HotkeyPresenter) Tick() {
	if p == nil || p.view == nil {
		return
	}
	var r hotkeyResult
	select {
	case r = <-p.results:
	default:
		return
	}
	p.busy.Store(false)
	switch {
	case errors.Is(r.err, action.ErrCaptureTimeout):
		p.view.SetMessage("No key pressed")
		return
	case r.err != nil:
		if p.logger != nil {
			p.logger.Error("ui.hotkey_capture", "error", r.err)
		}
		p.view.SetMessage("Hotkey capture failed: " + r.err.Error())
		return
	}
	if p.store != nil {
		if _, err := p.store.Update(map[string]any{"hotkey": r.name}); err != nil {
			p.view.SetMessage("Save failed: " + err.Error())
			return
		}
	}
	p.view.SetHotkey(r.name)
	p.view.SetMessage("Hotkey set to " + r.name + " (applies on next start)")
}
