package app

import (
	"context"
	"log/slog"

	"github.com/soocke/pixel-aim-go/api"
	"github.com/soocke/pixel-aim-go/config"
	"github.com/soocke/pixel-aim-go/domain/action"
	"github.com/soocke/pixel-aim-go/domain/capture"
	"github.com/soocke/pixel-aim-go/domain/detect"
	"github.com/soocke/pixel-aim-go/domain/framechan"
	"github.com/soocke/pixel-aim-go/domain/pipeline"
	"github.com/soocke/pixel-aim-go/domain/preview"
	"github.com/soocke/pixel-aim-go/ui/model"
)

// Options are the command-line overrides.
type Options struct {
	ConfigPath string
	// Listen overrides the configured API address when not empty.
	Listen   string
	Headless bool
	Debug    bool
	// ShmName fixes the frame channel name; a unique one is generated when empty.
	ShmName string
}

// Platform bundles the OS capabilities. Tests substitute fakes.
type Platform struct {
	Grabber  capture.Grabber
	Actuator action.Actuator
	Keys     action.KeyState
	Backend  framechan.Backend
}

// AppContainer holds the long-lived components.
type AppContainer struct {
	Options    Options
	Logger     *slog.Logger
	Store      *config.Store
	Supervisor *pipeline.Supervisor
	Preview    *preview.Latest
	Roles      *model.RolesModel
	API        *api.Server
	Keys       action.KeyState
}

// DetectPlatform looks up the OS capabilities. Missing input injection is not
// fatal: moves are discarded and activation falls back to the interval source.
func DetectPlatform(logger *slog.Logger) Platform {
	// Must run before any window exists so screen metrics are physical pixels.
	if mode, err := capture.EnableDPIAwareness(); err != nil {
		logger.Warn("app.dpi_awareness", "error", err)
	} else {
		logger.Debug("app.dpi_awareness", "mode", string(mode))
	}
	p := Platform{Grabber: capture.NewPlatformGrabber()}
	act, keys, err := action.Platform()
	if err != nil {
		logger.Warn("app.input_unavailable", "error", err)
		return p
	}
	p.Actuator, p.Keys = act, keys
	return p
}

// BuildContainer constructs all components. Nothing is started.
func BuildContainer(opts Options, p Platform, logger *slog.Logger) (*AppContainer, error) {
	store, err := config.OpenStore(opts.ConfigPath)
	if err != nil {
		logger.Warn("app.config_load", "path", opts.ConfigPath, "error", err)
	}
	cfg := store.Read()

	latest := preview.NewLatest()
	sup, err := pipeline.New(store, pipeline.Capabilities{
		Grabber:  p.Grabber,
		Actuator: p.Actuator,
		Keys:     p.Keys,
		Renderer: latest,
	}, pipeline.Options{Backend: p.Backend, Name: opts.ShmName}, logger)
	if err != nil {
		return nil, err
	}

	roles := model.NewRolesModel()
	sup.AddListener(roles.OnTransition)

	c := &AppContainer{
		Options:    opts,
		Logger:     logger,
		Store:      store,
		Supervisor: sup,
		Preview:    latest,
		Roles:      roles,
		Keys:       p.Keys,
	}

	listen := cfg.Listen
	if opts.Listen != "" {
		listen = opts.Listen
	}
	c.API = api.NewServer(api.Deps{
		Pipeline:      sup,
		Config:        store,
		Preview:       latest,
		CaptureHotkey: c.CaptureHotkey,
		ClassLabels:   detect.LoadClassLabels,
	}, api.ServerOptions{Addr: listen, Logger: logger})
	return c, nil
}

// CaptureHotkey waits for the next key press using the platform key state.
func (c *AppContainer) CaptureHotkey(ctx context.Context) (string, error) {
	poll := c.Store.Read().PollInterval()
	return action.CaptureHotkey(ctx, c.Keys, poll)
}
