package model

import (
	"testing"

	"github.com/soocke/pixel-aim-go/domain/pipeline"
)

func TestRolesModel_TracksTransitions(t *testing.T) {
	m := NewRolesModel()
	text, changed := m.Snapshot()
	if !changed {
		t.Fatalf("first snapshot should report a change")
	}
	if text != "capture: stopped | inference: stopped | control: stopped | preview: stopped" {
		t.Fatalf("unexpected initial text %q", text)
	}
	if _, changed := m.Snapshot(); changed {
		t.Fatalf("second snapshot without transitions should not report a change")
	}

	m.OnTransition(pipeline.RoleCapture, pipeline.StateStarting, pipeline.StateRunning)
	if !m.Detecting() || m.Previewing() {
		t.Fatalf("expected detecting only")
	}
	text, changed = m.Snapshot()
	if !changed || text != "capture: running | inference: stopped | control: stopped | preview: stopped" {
		t.Fatalf("unexpected snapshot %q changed=%v", text, changed)
	}

	m.OnTransition(pipeline.RoleCapture, pipeline.StateStarting, pipeline.StateRunning)
	if _, changed := m.Snapshot(); changed {
		t.Fatalf("repeated state should not report a change")
	}
}
