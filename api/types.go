package api

import (
	"context"

	"github.com/soocke/pixel-aim-go/config"
	"github.com/soocke/pixel-aim-go/domain/detect"
	"github.com/soocke/pixel-aim-go/domain/pipeline"
)

// Envelope is the body of every JSON response. Error is 0 on success and 1
// on failure; clients branch on it rather than on the HTTP status.
type Envelope struct {
	Error int    `json:"error"`
	Msg   string `json:"msg"`
	Data  any    `json:"data"`
}

// Pipeline is the supervisor surface the API drives.
type Pipeline interface {
	StartDetect() (bool, error)
	StopDetect() bool
	StartPreview() (bool, error)
	StopPreview() bool
	Status() pipeline.Status
}

// ConfigStore reads and persists configuration.
type ConfigStore interface {
	Mapping() (map[string]any, error)
	Update(changes map[string]any) (config.Config, error)
}

// PreviewSource serves the latest preview frame.
type PreviewSource interface {
	JPEG(quality int) ([]byte, bool, error)
}

// Deps are the collaborators behind the routes. Preview, CaptureHotkey and
// ClassLabels are optional; their routes report an error when unset.
type Deps struct {
	Pipeline      Pipeline
	Config        ConfigStore
	Preview       PreviewSource
	CaptureHotkey func(ctx context.Context) (string, error)
	ClassLabels   func(modelPath string) ([]detect.Label, error)
}

// ModelClassesRequest is the body of POST /model/classes.
type ModelClassesRequest struct {
	ModelPath string `json:"model_path"`
}

// HotkeyView is the data of a successful POST /hotkey/change.
type HotkeyView struct {
	Hotkey string `json:"hotkey"`
}
