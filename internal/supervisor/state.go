package supervisor

import "time"

// State is a lifecycle phase of one launcher run.
type State int

const (
	Provisioning State = iota
	Installing
	Launching
	AwaitingReady
	Ready
	ShuttingDown
	Stopped
	FailedToStart
)

func (s State) String() string {
	switch s {
	case Provisioning:
		return "provisioning"
	case Installing:
		return "installing"
	case Launching:
		return "launching"
	case AwaitingReady:
		return "awaiting-ready"
	case Ready:
		return "ready"
	case ShuttingDown:
		return "shutting-down"
	case Stopped:
		return "stopped"
	case FailedToStart:
		return "failed-to-start"
	}
	return "unknown"
}

// Budgets bounds every waiting step.
type Budgets struct {
	ReadyTimeout     time.Duration // whole awaiting-ready phase
	PollInterval     time.Duration // between readiness probes
	DialTimeout      time.Duration // per readiness probe
	DotInterval      time.Duration // progress dot cadence
	LivenessInterval time.Duration // monitor poll
	GraceTimeout     time.Duration // after terminate
	KillTimeout      time.Duration // after kill
}

// DefaultBudgets matches a first start that may download model weights.
func DefaultBudgets() Budgets {
	return Budgets{
		ReadyTimeout:     1800 * time.Second,
		PollInterval:     500 * time.Millisecond,
		DialTimeout:      time.Second,
		DotInterval:      2 * time.Second,
		LivenessInterval: time.Second,
		GraceTimeout:     5 * time.Second,
		KillTimeout:      3 * time.Second,
	}
}

// Transition is one entry of the lifecycle log.
type Transition struct {
	From   State
	To     State
	At     time.Time
	Budget time.Duration
}
