package lifecycle

import "fmt"

// State is a point in a service's lifecycle. States only move forward:
//
//	New -> Starting -> Running -> Stopping -> Terminated
//
// Failed is terminal and reachable from Starting. A service that is stopped before it
// was ever started moves from New straight to Terminated.
type State int

const (
	New State = iota
	Starting
	Running
	Stopping
	Terminated
	Failed
)

var stateNames = [...]string{
	New:        "NEW",
	Starting:   "STARTING",
	Running:    "RUNNING",
	Stopping:   "STOPPING",
	Terminated: "TERMINATED",
	Failed:     "FAILED",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// IsTerminal reports whether no further transition can happen from s.
func (s State) IsTerminal() bool {
	return s == Terminated || s == Failed
}

// States lists every state in lifecycle order.
func States() []State {
	return []State{New, Starting, Running, Stopping, Terminated, Failed}
}

// Transition records a single state change. Cause is set when To is Failed.
type Transition struct {
	From  State
	To    State
	Cause error
}
