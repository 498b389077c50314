package thermal

import "time"

// Outcome is the terminal state of a polling loop.
type Outcome uint8

const (
	// OutcomeSteady means the temperature settled within tolerance of the target.
	OutcomeSteady Outcome = iota + 1
	// OutcomeTriggered means the temperature came within tolerance of the poll point.
	OutcomeTriggered
	// OutcomeCrossed means the temperature moved past the poll point in the
	// ramp direction without being sampled inside the tolerance band.
	OutcomeCrossed
	// OutcomeTimedOut means the time limit elapsed first.
	OutcomeTimedOut
	// OutcomeCompleted means an incubation ran for its full duration.
	OutcomeCompleted
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSteady:
		return "steady"
	case OutcomeTriggered:
		return "triggered"
	case OutcomeCrossed:
		return "crossed"
	case OutcomeTimedOut:
		return "timed_out"
	case OutcomeCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Result summarizes a finished polling loop.
type Result struct {
	Outcome Outcome
	// Target is the temperature the loop was waiting for; zero for incubation.
	Target float64
	// Temperature is the last control temperature read.
	Temperature float64
	// Elapsed is the time spent in the loop, including the final sleep.
	Elapsed time.Duration
	// Samples is the number of control temperature reads.
	Samples int
}
