package presenter

import "time"

// Loop drives the periodic presenters and reschedules itself through
// Schedule. The zero value is usable (methods are nil-safe).
type Loop struct {
	Session  *SessionPresenter
	Status   *StatusPresenter
	Preview  *PreviewPresenter
	Hotkey   *HotkeyPresenter
	Schedule func()
}

func NewLoop(sess *SessionPresenter, status *StatusPresenter, prev *PreviewPresenter, schedule func()) *Loop {
	return &Loop{Session: sess, Status: status, Preview: prev, Schedule: schedule}
}

func (l *Loop) Tick() {
	if l == nil {
		return
	}
	l.Status.Tick()
	l.Session.Tick(time.Now())
	l.Preview.Tick()
	l.Hotkey.Tick()
	if l.Schedule != nil {
		l.Schedule()
	}
}
