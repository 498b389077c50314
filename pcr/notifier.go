package pcr

// Event identifies a point of a run worth announcing to the operator.
type Event uint8

const (
	EventRunStart Event = iota + 1
	EventStage
	EventCycle
	EventWaitSteadyState
	EventIncubate
	EventRunEnd
	EventExitPrompt
)

func (e Event) String() string {
	switch e {
	case EventRunStart:
		return "run_start"
	case EventStage:
		return "stage"
	case EventCycle:
		return "cycle"
	case EventWaitSteadyState:
		return "wait_steady_state"
	case EventIncubate:
		return "incubate"
	case EventRunEnd:
		return "run_end"
	case EventExitPrompt:
		return "exit_prompt"
	default:
		return "unknown"
	}
}

// Notification is delivered to a Notifier.
type Notification struct {
	Event Event
	// Stage is set for EventStage.
	Stage string
	// Cycle is the cycle number at the time of the event.
	Cycle int
}

// Notifier receives run events, e.g. for audio narration. Notify must not
// block the run for long and has no way to fail it.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to a Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

type nopNotifier struct{}

func (nopNotifier) Notify(Notification) {}
