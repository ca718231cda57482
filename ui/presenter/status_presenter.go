package presenter

// RoleSnapshot yields the role summary and whether it changed.
type RoleSnapshot interface {
	Snapshot() (string, bool)
}

// StateView sets the state label in the view.
type StateView interface{ SetStateLabel(string) }

// StatusPresenter reflects role transitions in the state label. Transitions
// arrive on supervisor goroutines; the label is only touched from Tick.
type StatusPresenter struct {
	roles RoleSnapshot
	view  StateView
}

func NewStatusPresenter(roles RoleSnapshot, view StateView) *StatusPresenter {
	return &StatusPresenter{roles: roles, view: view}
}

// Tick pushes the summary when it changed since the last tick.
func (p *StatusPresenter) Tick() {
	if p == nil || p.roles == nil || p.view == nil {
		return
	}
	if text, changed := p.roles.Snapshot(); changed {
		p.view.SetStateLabel(text)
	}
}
