package model

import (
	"strings"
	"sync"

	"github.com/soocke/pixel-aim-go/domain/pipeline"
)

// RolesModel mirrors the supervisor's role states. OnTransition is called
// from supervisor goroutines; the UI thread polls Snapshot.
type RolesModel struct {
	mu      sync.Mutex
	states  map[pipeline.Role]pipeline.State
	changed bool
}

// NewRolesModel returns a model with every role stopped.
func NewRolesModel() *RolesModel {
	return &RolesModel{states: map[pipeline.Role]pipeline.State{}, changed: true}
}

// OnTransition records a role transition. It satisfies pipeline.RoleListener.
func (m *RolesModel) OnTransition(role pipeline.Role, _, next pipeline.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.states[role] != next {
		m.states[role] = next
		m.changed = true
	}
}

// State returns the last recorded state of role.
func (m *RolesModel) State(role pipeline.Role) pipeline.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[role]
}

// Detecting reports whether the capture role is running.
func (m *RolesModel) Detecting() bool { return m.State(pipeline.RoleCapture) == pipeline.StateRunning }

// Previewing reports whether the preview role is running.
func (m *RolesModel) Previewing() bool { return m.State(pipeline.RolePreview) == pipeline.StateRunning }

// Snapshot returns a one-line summary and whether anything changed since
// the previous call.
func (m *RolesModel) Snapshot() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	roles := []pipeline.Role{pipeline.RoleCapture, pipeline.RoleInference, pipeline.RoleControl, pipeline.RolePreview}
	parts := make([]string, 0, len(roles))
	for _, r := range roles {
		parts = append(parts, r.String()+": "+m.states[r].String())
	}
	changed := m.changed
	m.changed = false
	return strings.Join(parts, " | "), changed
}
