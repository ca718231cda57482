// Package app wires configuration, the pipeline supervisor, the control API
// and the optional desktop window, and runs them until exit.
package app

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/soocke/pixel-aim-go/debug"
)

const debugInterval = 2 * time.Second

// WindowFunc runs a desktop window on the calling goroutine until it is
// closed or ctx is done.
type WindowFunc func(ctx context.Context, c *AppContainer)

// App runs one container.
type App struct {
	c      *AppContainer
	window WindowFunc
}

// NewApp returns an App. A nil window runs headless.
func NewApp(c *AppContainer, window WindowFunc) *App { return &App{c: c, window: window} }

// Run serves the API and blocks until the window closes or, when headless,
// until ctx is done or SIGINT or SIGTERM arrives. Workers are stopped and the
// channel released on return.
func (a *App) Run(ctx context.Context) error {
	c := a.c
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c.API.Start()
	if c.Options.Debug || c.Store.Read().Debug {
		debug.Start(ctx, debugInterval, c.Logger, c.Supervisor.Status)
	}
	c.Logger.Info("app.started", "channel", c.Supervisor.ChannelName(), "window", a.window != nil)

	if a.window != nil {
		a.window(ctx, c)
	} else {
		<-ctx.Done()
	}
	return a.shutdown()
}

func (a *App) shutdown() error {
	c := a.c
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.API.Stop(stopCtx); err != nil {
		c.Logger.Warn("app.api_stop", "error", err)
	}
	err := c.Supervisor.Close()
	if err != nil {
		c.Logger.Error("app.close", "error", err)
	}
	c.Logger.Info("app.stopped")
	return err
}
