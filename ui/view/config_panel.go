package view

import (
	"log/slog"
	"strings"

	"github.com/soocke/pixel-aim-go/ui/model"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// ConfigPanel is the configuration form. It only holds widgets; parsing and
// persistence belong to the config presenter.
type ConfigPanel interface {
	Build(startRow int, values map[string]string, onApply func(map[string]string), onBrowse func()) (endRow int)
	Texts() map[string]string
	SetValue(key, value string)
}

type configPanel struct {
	logger  *slog.Logger
	widgets map[string]*TextWidget
}

func NewConfigPanel(logger *slog.Logger) ConfigPanel {
	return &configPanel{logger: logger, widgets: make(map[string]*TextWidget)}
}

func (v *configPanel) Build(startRow int, values map[string]string, onApply func(map[string]string), onBrowse func()) (row int) {
	row = startRow
	for _, f := range model.FormFields {
		lbl := Label(Txt(f.Label), Anchor("w"))
		Grid(lbl, Row(row), Column(0), Sticky("w"), Padx("0.4m"), Pady("0.15m"))
		w := Text(Height(1), Width(28))
		Grid(w, Row(row), Column(1), Columnspan(3), Sticky("we"), Padx("0.4m"), Pady("0.15m"))
		w.Insert("1.0", values[f.Key])
		v.widgets[f.Key] = w
		if f.Key == "model_path" && onBrowse != nil {
			Grid(Button(Txt("Browse..."), Command(onBrowse)), Row(row), Column(4), Sticky("w"), Padx("0.2m"))
		}
		row++
	}
	apply := Button(Txt("Apply Changes"), Command(func() {
		if onApply != nil {
			onApply(v.Texts())
		}
	}))
	Grid(apply, Row(row), Column(0), Columnspan(2), Sticky("we"), Padx("0.4m"), Pady("0.3m"))
	return row + 1
}

// Texts returns the trimmed text of every field.
func (v *configPanel) Texts() map[string]string {
	out := make(map[string]string, len(v.widgets))
	for k, w := range v.widgets {
		out[k] = strings.TrimSpace(strings.Join(w.Get("1.0", END), ""))
	}
	return out
}

func (v *configPanel) SetValue(key, value string) {
	w := v.widgets[key]
	if w == nil {
		return
	}
	w.Delete("1.0", END)
	w.Insert("1.0", value)
}
