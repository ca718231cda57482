package presenter

import (
	"log/slog"
)

// Pipeline is the subset of the supervisor the window drives.
type Pipeline interface {
	StartDetect() (bool, error)
	StopDetect() bool
	StartPreview() (bool, error)
	StopPreview() bool
}

// RoleModel reports role activity as last seen by the UI.
type RoleModel interface {
	Detecting() bool
	Previewing() bool
}

// PreviewExit asks a running preview to close on its next exit poll.
type PreviewExit interface {
	RequestExit()
}

// ControlView shows operator feedback and clears the preview panel.
type ControlView interface {
	SetMessage(string)
	PreviewReset()
}

// ControlPresenter maps the start/stop buttons onto the supervisor.
type ControlPresenter struct {
	pipeline Pipeline
	roles    RoleModel
	preview  PreviewExit
	view     ControlView
	logger   *slog.Logger
}

func NewControlPresenter(p Pipeline, roles RoleModel, preview PreviewExit, view ControlView, logger *slog.Logger) *ControlPresenter {
	return &ControlPresenter{pipeline: p, roles: roles, preview: preview, view: view, logger: logger}
}

// ToggleDetect stops detection when it is running and starts it otherwise.
// Stopping detection also stops the preview.
func (c *ControlPresenter) ToggleDetect() {
	if c == nil || c.pipeline == nil || c.roles == nil || c.view == nil {
		return
	}
	if c.roles.Detecting() {
		c.pipeline.StopDetect()
		c.view.PreviewReset()
		c.view.SetMessage("Detection stopped")
		return
	}
	started, err := c.pipeline.StartDetect()
	switch {
	case err != nil:
		if c.logger != nil {
			c.logger.Error("ui.start_detect", "error", err)
		}
		c.view.SetMessage("Start failed: " + err.Error())
	case !started:
		c.view.SetMessage("Detection already running")
	default:
		c.view.SetMessage("Detection started")
	}
}

// TogglePreview stops the preview when it is running and starts it otherwise.
func (c *ControlPresenter) TogglePreview() {
	if c == nil || c.pipeline == nil || c.roles == nil || c.view == nil {
		return
	}
	if c.roles.Previewing() {
		c.pipeline.StopPreview()
		c.view.PreviewReset()
		c.view.SetMessage("Preview stopped")
		return
	}
	started, err := c.pipeline.StartPreview()
	switch {
	case err != nil:
		if c.logger != nil {
			c.logger.Error("ui.start_preview", "error", err)
		}
		c.view.SetMessage("Preview failed: " + err.Error())
	case !started:
		c.view.SetMessage("Preview already running")
	default:
		c.view.SetMessage("Preview started")
	}
}

// ClosePreview is the Escape key. The preview worker notices the request on
// its next exit poll and stops itself; idle previews are left untouched.
func (c *ControlPresenter) ClosePreview() {
	if c == nil || c.preview == nil || c.roles == nil || c.view == nil {
		return
	}
	if !c.roles.Previewing() {
		return
	}
	c.preview.RequestExit()
	c.view.PreviewReset()
	c.view.SetMessage("Preview closing")
}
