package view

import (
	"image"
	"log/slog"
	"time"

	"github.com/soocke/pixel-aim-go/ui/theme"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Handlers are the user actions the root view forwards to presenters.
type Handlers struct {
	ToggleDetect  func()
	TogglePreview func()
	ClosePreview  func()
	ChangeHotkey  func()
	ApplyConfig   func(texts map[string]string)
	ModelChosen   func(path string)
	Exit          func()
}

// RootView composes the window: control buttons, state and message labels,
// the config form and the preview panel.
type RootView struct {
	logger *slog.Logger

	Session     SessionStats
	ConfigPanel ConfigPanel
	CapturePrev CapturePreview

	StateLabel   *TLabelWidget
	MessageLabel *LabelWidget
}

func NewRootView(logger *slog.Logger) *RootView {
	return &RootView{logger: logger}
}

// Build constructs the layout. values seeds the config form.
func (rv *RootView) Build(values map[string]string, h Handlers) {
	if rv == nil {
		return
	}
	rv.StateLabel = TLabel(Txt("capture: stopped"), Style(theme.StyleStateLabel))
	Grid(rv.StateLabel, Row(0), Column(0), Columnspan(3), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	rv.Session = NewSessionStats(nil, 0, 3)

	btnFrame := Frame()
	Grid(btnFrame, Row(1), Column(0), Columnspan(5), Sticky("we"), Padx("0.3m"), Pady("0.3m"))
	buttons := []struct {
		text  string
		style string
		fn    func()
	}{
		{"Start/Stop Detect", theme.StylePrimaryButton, h.ToggleDetect},
		{"Start/Stop Preview", theme.StylePrimaryButton, h.TogglePreview},
		{"Change Hotkey", theme.StylePrimaryButton, h.ChangeHotkey},
		{"Exit", theme.StyleDangerButton, h.Exit},
	}
	for i, b := range buttons {
		fn := b.fn
		btn := TButton(Txt(b.text), Style(b.style), Command(func() {
			if fn != nil {
				fn()
			}
		}))
		Grid(btn, In(btnFrame), Row(0), Column(i), Sticky("we"), Padx("0.2m"), Pady("0.2m"))
	}

	rv.MessageLabel = Label(Txt("Ready"), Anchor("w"))
	Grid(rv.MessageLabel, Row(2), Column(0), Columnspan(5), Sticky("we"), Padx("0.4m"), Pady("0.2m"))

	rv.ConfigPanel = NewConfigPanel(rv.logger)
	endRow := rv.ConfigPanel.Build(3, values, h.ApplyConfig, func() {
		files := GetOpenFile(Title("Select model"))
		if len(files) == 0 || files[0] == "" {
			return
		}
		rv.ConfigPanel.SetValue("model_path", files[0])
		if h.ModelChosen != nil {
			h.ModelChosen(files[0])
		}
	})
	rv.CapturePrev = NewCapturePreview(endRow, h.ClosePreview)
}

// SetStateLabel updates the role summary.
func (rv *RootView) SetStateLabel(text string) {
	if rv != nil && rv.StateLabel != nil {
		rv.StateLabel.Configure(Txt(text))
	}
}

// SetMessage shows one line of operator feedback.
func (rv *RootView) SetMessage(text string) {
	if rv != nil && rv.MessageLabel != nil {
		rv.MessageLabel.Configure(Txt(text))
	}
}

// SetHotkey reflects a newly captured hotkey in the form.
func (rv *RootView) SetHotkey(name string) {
	if rv != nil && rv.ConfigPanel != nil {
		rv.ConfigPanel.SetValue("hotkey", name)
	}
}

func (rv *RootView) UpdateCapture(img image.Image) {
	if rv != nil && rv.CapturePrev != nil {
		rv.CapturePrev.UpdateCapture(img)
	}
}

func (rv *RootView) UpdateZoom(img image.Image) {
	if rv != nil && rv.CapturePrev != nil {
		rv.CapturePrev.UpdateZoom(img)
	}
}

// PreviewReset clears the preview panel.
func (rv *RootView) PreviewReset() {
	if rv != nil && rv.CapturePrev != nil {
		rv.CapturePrev.Reset()
	}
}

// SetSession updates the session and total detection durations.
func (rv *RootView) SetSession(session, total time.Duration) {
	if rv == nil || rv.Session == nil {
		return
	}
	rv.Session.SetSession(session)
	rv.Session.SetTotal(total)
}
