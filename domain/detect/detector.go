// Package detect turns frames into detection boxes. Detectors are
// capabilities; the inference worker drives one against the frame channel.
package detect

import (
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/soocke/pixel-aim-go/domain/framechan"
)

// Box is a detection rectangle in frame pixels.
type Box = framechan.Box

// Detector finds objects in a frame. It returns the boxes and an annotated
// copy of the frame; the input frame is never modified.
type Detector interface {
	Detect(f framechan.Frame, confidence float64, classes []int) ([]Box, framechan.Frame, error)
	Name() string
}

var templateExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// IsTemplateModel reports whether path names an image template.
func IsTemplateModel(path string) bool {
	return templateExts[strings.ToLower(filepath.Ext(path))]
}

// New returns the detector for modelPath. Paths that cannot be loaded fall
// back to the centre-box detector so the pipeline keeps running.
func New(modelPath string, logger *slog.Logger) Detector {
	if IsTemplateModel(modelPath) {
		d, err := NewTemplateDetector(modelPath)
		if err == nil {
			return d
		}
		if logger != nil {
			logger.Warn("detect.template_unavailable", "model_path", modelPath, "error", err)
		}
	} else if logger != nil {
		logger.Warn("detect.model_unsupported", "model_path", modelPath)
	}
	return Fallback{}
}

// classAllowed reports whether class id passes the filter; an empty filter
// allows every class.
func classAllowed(classes []int, id int) bool {
	if len(classes) == 0 {
		return true
	}
	for _, c := range classes {
		if c == id {
			return true
		}
	}
	return false
}
