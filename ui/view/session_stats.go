package view

import (
	"fmt"
	"time"

	//lint:ignore ST1001 Dot import for concise Tk widget DSL.
	. "modernc.org/tk9.0"
)

// SessionStats shows how long detection has been running.
type SessionStats interface {
	SetSession(d time.Duration)
	SetTotal(d time.Duration)
}

type sessionStats struct {
	sessionLbl *LabelWidget
	totalLbl   *LabelWidget
}

// NewSessionStats places the session label at (row, startCol) and the total
// at (row, startCol+1), inside parent when it is not nil.
func NewSessionStats(parent *FrameWidget, row, startCol int) SessionStats {
	s := &sessionStats{
		sessionLbl: Label(Width(16), Txt("Aiming: 00:00")),
		totalLbl:   Label(Width(16), Txt("Total: 00:00")),
	}
	for i, l := range []*LabelWidget{s.sessionLbl, s.totalLbl} {
		opts := []Opt{Row(row), Column(startCol + i), Sticky("w"), Padx("0.2m")}
		if parent != nil {
			opts = append(opts, In(parent))
		}
		Grid(l, opts...)
	}
	return s
}

// SetSession shows the current session length.
func (s *sessionStats) SetSession(d time.Duration) {
	if s == nil || s.sessionLbl == nil {
		return
	}
	s.sessionLbl.Configure(Txt("Aiming: " + clock(d)))
}

// SetTotal shows the accumulated length.
func (s *sessionStats) SetTotal(d time.Duration) {
	if s == nil || s.totalLbl == nil {
		return
	}
	s.totalLbl.Configure(Txt("Total: " + clock(d)))
}

func clock(d time.Duration) string {
	seconds := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
