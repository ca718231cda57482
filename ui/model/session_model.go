package model

import "time"

// SessionModel accumulates detection run time. A session starts on the
// first tick that sees detection running and ends on the first tick that
// does not. The zero value is ready to use.
type SessionModel struct {
	running  bool
	start    time.Time
	last     time.Duration
	finished time.Duration
	sessions int
}

// NewSessionModel returns an empty SessionModel.
func NewSessionModel() *SessionModel { return &SessionModel{} }

// OnTick advances the model to now.
func (m *SessionModel) OnTick(detecting bool, now time.Time) {
	if m == nil {
		return
	}
	switch {
	case detecting && !m.running:
		m.running, m.start, m.last = true, now, 0
		m.sessions++
	case detecting:
		m.last = now.Sub(m.start)
	case m.running:
		m.last = now.Sub(m.start)
		m.finished += m.last
		m.running = false
	}
}

// Values returns the current (or last) session length and the total across
// sessions, including the one in progress.
func (m *SessionModel) Values() (session, total time.Duration) {
	if m == nil {
		return 0, 0
	}
	total = m.finished
	if m.running {
		total += m.last
	}
	return m.last, total
}

// Sessions returns how many sessions have started.
func (m *SessionModel) Sessions() int {
	if m == nil {
		return 0
	}
	return m.sessions
}
