package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/soocke/pixel-aim-go/domain/action"
)

const previewJPEGQuality = 80

func (s *Server) handleStartDetect(w http.ResponseWriter, r *http.Request) {
	started, err := s.deps.Pipeline.StartDetect()
	switch {
	case err != nil:
		fail(w, "failed to start detection: "+err.Error(), nil)
	case !started:
		fail(w, "detection already running", nil)
	default:
		ok(w, "detection started", nil)
	}
}

func (s *Server) handleStopDetect(w http.ResponseWriter, r *http.Request) {
	s.deps.Pipeline.StopDetect()
	ok(w, "detection stopped (preview stopped too, if it was running)", nil)
}

func (s *Server) handleStartPreview(w http.ResponseWriter, r *http.Request) {
	started, err := s.deps.Pipeline.StartPreview()
	switch {
	case err != nil:
		fail(w, "failed to start preview: "+err.Error(), nil)
	case !started:
		fail(w, "preview already running", nil)
	default:
		ok(w, "preview started", nil)
	}
}

func (s *Server) handleStopPreview(w http.ResponseWriter, r *http.Request) {
	s.deps.Pipeline.StopPreview()
	ok(w, "preview stopped", nil)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ok(w, "status", s.deps.Pipeline.Status())
}

func (s *Server) handleConfigGet(w http.ResponseWriter, r *http.Request) {
	m, err := s.deps.Config.Mapping()
	if err != nil {
		fail(w, "failed to read config: "+err.Error(), nil)
		return
	}
	ok(w, "config loaded", m)
}

// handleConfigSet merges the request body, a flat JSON object, into the
// stored configuration. Running workers keep their snapshot until restarted.
func (s *Server) handleConfigSet(w http.ResponseWriter, r *http.Request) {
	var changes map[string]any
	if err := json.NewDecoder(r.Body).Decode(&changes); err != nil && !errors.Is(err, io.EOF) {
		fail(w, "invalid JSON: "+err.Error(), nil)
		return
	}
	if len(changes) == 0 {
		fail(w, "no config changes supplied", nil)
		return
	}
	if _, err := s.deps.Config.Update(changes); err != nil {
		fail(w, "failed to save config: "+err.Error(), nil)
		return
	}
	m, err := s.deps.Config.Mapping()
	if err != nil {
		fail(w, "failed to read config: "+err.Error(), nil)
		return
	}
	s.logger.Info("api.config_updated", "keys", len(changes))
	ok(w, "config saved", m)
}

func (s *Server) handleHotkeyChange(w http.ResponseWriter, r *http.Request) {
	if s.deps.CaptureHotkey == nil {
		fail(w, "hotkey capture unavailable", nil)
		return
	}
	name, err := s.deps.CaptureHotkey(r.Context())
	switch {
	case errors.Is(err, action.ErrCaptureTimeout):
		fail(w, "no key pressed before timeout", nil)
	case err != nil:
		fail(w, "hotkey capture failed: "+err.Error(), nil)
	default:
		ok(w, "hotkey captured", HotkeyView{Hotkey: name})
	}
}

func (s *Server) handleModelClasses(w http.ResponseWriter, r *http.Request) {
	var req ModelClassesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ModelPath == "" {
		fail(w, "model_path is required", nil)
		return
	}
	if s.deps.ClassLabels == nil {
		fail(w, "class listing unavailable", nil)
		return
	}
	labels, err := s.deps.ClassLabels(req.ModelPath)
	if err != nil {
		fail(w, "failed to load classes: "+err.Error(), nil)
		return
	}
	ok(w, "classes loaded", labels)
}

func (s *Server) handlePreviewJPEG(w http.ResponseWriter, r *http.Request) {
	if s.deps.Preview == nil {
		http.Error(w, "preview unavailable", http.StatusNotFound)
		return
	}
	data, have, err := s.deps.Preview.JPEG(previewJPEGQuality)
	if err != nil {
		s.logger.Error("api.preview_encode", "error", err)
		http.Error(w, "encode failed", http.StatusInternalServerError)
		return
	}
	if !have {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(data)
}
