package presenter

import (
	"log/slog"
	"strings"

	"github.com/soocke/pixel-aim-go/config"
	"github.com/soocke/pixel-aim-go/ui/model"
)

// ConfigStore reads and persists the flat configuration.
type ConfigStore interface {
	Mapping() (map[string]any, error)
	Update(changes map[string]any) (config.Config, error)
}

// MessageView shows a one-line status message.
type MessageView interface{ SetMessage(string) }

// ConfigPresenter loads form values from the store and applies edits.
// Running workers keep their snapshot; edits apply on the next start.
type ConfigPresenter struct {
	store  ConfigStore
	view   MessageView
	logger *slog.Logger
}

func NewConfigPresenter(store ConfigStore, view MessageView, logger *slog.Logger) *ConfigPresenter {
	return &ConfigPresenter{store: store, view: view, logger: logger}
}

// Values returns the display text of every form field.
func (p *ConfigPresenter) Values() map[string]string {
	out := make(map[string]string, len(model.FormFields))
	if p == nil || p.store == nil {
		return out
	}
	m, err := p.store.Mapping()
	if err != nil {
		if p.logger != nil {
			p.logger.Error("ui.config_read", "error", err)
		}
		return out
	}
	for _, f := range model.FormFields {
		out[f.Key] = model.FormatValue(m[f.Key])
	}
	return out
}

// Apply parses texts and persists the valid fields.
func (p *ConfigPresenter) Apply(texts map[string]string) {
	if p == nil || p.store == nil || p.view == nil {
		return
	}
	changes, invalid := model.ParseChanges(texts)
	if len(changes) == 0 {
		p.view.SetMessage("Nothing to save")
		return
	}
	if _, err := p.store.Update(changes); err != nil {
		if p.logger != nil {
			p.logger.Error("ui.config_save", "error", err)
		}
		p.view.SetMessage("Save failed: " + err.Error())
		return
	}
	if p.logger != nil {
		p.logger.Info("ui.config_saved", "keys", len(changes))
	}
	if len(invalid) > 0 {
		p.view.SetMessage("Saved; ignored invalid " + strings.Join(invalid, ", "))
		return
	}
	p.view.SetMessage("Config saved")
}

// SetModelPath persists a model path chosen from the file dialog.
func (p *ConfigPresenter) SetModelPath(path string) {
	if p == nil || p.store == nil || p.view == nil || path == "" {
		return
	}
	if _, err := p.store.Update(map[string]any{"model_path": path}); err != nil {
		p.view.SetMessage("Save failed: " + err.Error())
		return
	}
	p.view.SetMessage("Model set to " + path)
}
