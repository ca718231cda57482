package presenter

import (
	"time"

	"github.com/soocke/pixel-aim-go/ui/model"
)

// DetectingSource reports whether detection is running.
type DetectingSource interface{ Detecting() bool }

// SessionView displays formatted session and total durations.
type SessionView interface {
	SetSession(session, total time.Duration)
}

// SessionPresenter advances the session model and pushes its values.
type SessionPresenter struct {
	sess *model.SessionModel
	src  DetectingSource
	view SessionView
}

func NewSessionPresenter(sess *model.SessionModel, src DetectingSource, view SessionView) *SessionPresenter {
	return &SessionPresenter{sess: sess, src: src, view: view}
}

func (p *SessionPresenter) Tick(now time.Time) {
	if p == nil || p.sess == nil || p.src == nil || p.view == nil {
		return
	}
	p.sess.OnTick(p.src.Detecting(), now)
	p.view.SetSession(p.sess.Values())
}
