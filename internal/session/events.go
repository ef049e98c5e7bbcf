package session

import "github.com/KyousabaMC/VeinMiner/internal/pattern"

type Cause int

const (
	CauseClient Cause = iota
	CauseCommand
	CauseOther
)

func (c Cause) String() string {
	switch c {
	case CauseClient:
		return "CLIENT"
	case CauseCommand:
		return "COMMAND"
	default:
		return "OTHER"
	}
}

// PatternChangeEvent is offered to Events before a pattern change commits.
// Handlers may cancel it or swap NewPattern.
type PatternChangeEvent struct {
	Player     Player
	OldPattern pattern.Pattern
	NewPattern pattern.Pattern
	Cause      Cause
	Cancelled  bool
}

// ClientActivateEvent is offered before the client's activation key state
// is recorded. Handlers may cancel it or change Activated.
type ClientActivateEvent struct {
	Player    Player
	Activated bool
	Cancelled bool
}

type Events interface {
	PatternChange(ev *PatternChangeEvent)
	ClientActivate(ev *ClientActivateEvent)
}

// NopEvents accepts every change unmodified.
type NopEvents struct{}

func (NopEvents) PatternChange(*PatternChangeEvent)   {}
func (NopEvents) ClientActivate(*ClientActivateEvent) {}

// EventFuncs adapts plain functions to Events. Nil fields accept.
type EventFuncs struct {
	OnPatternChange  func(ev *PatternChangeEvent)
	OnClientActivate func(ev *ClientActivateEvent)
}

func (f EventFuncs) PatternChange(ev *PatternChangeEvent) {
	if f.OnPatternChange != nil {
		f.OnPatternChange(ev)
	}
}

func (f EventFuncs) ClientActivate(ev *ClientActivateEvent) {
	if f.OnClientActivate != nil {
		f.OnClientActivate(ev)
	}
}
