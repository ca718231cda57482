// Package window runs the Tk desktop window on top of an app container.
package window

import (
	"context"
	"fmt"
	"time"

	"github.com/soocke/pixel-aim-go/app"
	"github.com/soocke/pixel-aim-go/ui/model"
	"github.com/soocke/pixel-aim-go/ui/presenter"
	"github.com/soocke/pixel-aim-go/ui/theme"
	"github.com/soocke/pixel-aim-go/ui/view"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

const (
	tick   = 50 * time.Millisecond
	width  = 760
	height = 900
)

// Run builds the window and blocks in the Tk event loop until the window is
// closed or ctx is done. It must be called from the main goroutine.
func Run(ctx context.Context, c *app.AppContainer) {
	theme.Init(theme.Light)
	App.WmTitle("Pixel Aim")
	WmGeometry(App, fmt.Sprintf("%dx%d+100+100", width, height))

	rv := view.NewRootView(c.Logger)
	control := presenter.NewControlPresenter(c.Supervisor, c.Roles, c.Preview, rv, c.Logger)
	cfg := presenter.NewConfigPresenter(c.Store, rv, c.Logger)
	hotkey := presenter.NewHotkeyPresenter(c.CaptureHotkey, c.Store, rv, c.Logger)

	var afterID string
	exit := func() {
		if afterID != "" {
			TclAfterCancel(afterID)
		}
		Destroy(App)
	}
	rv.Build(cfg.Values(), view.Handlers{
		ToggleDetect:  control.ToggleDetect,
		TogglePreview: control.TogglePreview,
		ClosePreview:  control.ClosePreview,
		ChangeHotkey:  hotkey.Begin,
		ApplyConfig:   cfg.Apply,
		ModelChosen:   cfg.SetModelPath,
		Exit:          exit,
	})
	WmProtocol(App, "WM_DELETE_WINDOW", exit)

	loop := presenter.NewLoop(
		presenter.NewSessionPresenter(model.NewSessionModel(), c.Roles, rv),
		presenter.NewStatusPresenter(c.Roles, rv),
		presenter.NewPreviewPresenter(c.Preview, c.Roles, rv),
		nil,
	)
	loop.Hotkey = hotkey
	loop.Schedule = func() {
		if ctx.Err() != nil {
			exit()
			return
		}
		afterID = TclAfter(tick, loop.Tick)
	}
	loop.Schedule()

	App.Wait()
}
