// Package fabric implements the per-stage worker state machine and
// graceful-shutdown plumbing shared by every stage's main loop (§4.1,
// §5). It sits above store's raw pub/sub primitives.
package fabric

import "fmt"

// State is one node of the per-stage worker state machine:
// INIT → CONNECTED → (IDLE ⇄ PROCESSING) → DRAINING → STOPPED.
type State int

const (
	StateInit State = iota
	StateConnected
	StateIdle
	StateProcessing
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateConnected:
		return "connected"
	case StateIdle:
		return "idle"
	case StateProcessing:
		return "processing"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// validTransitions encodes the allowed edges of the state machine.
var validTransitions = map[State][]State{
	StateInit:       {StateConnected},
	StateConnected:  {StateIdle},
	StateIdle:       {StateProcessing, StateDraining},
	StateProcessing: {StateIdle, StateDraining},
	StateDraining:   {StateStopped},
	StateStopped:    {},
}

// Worker tracks one stage's current state and rejects illegal
// transitions rather than silently clobbering state.
type Worker struct {
	name  string
	state State
}

// NewWorker starts a worker in StateInit.
func NewWorker(name string) *Worker {
	return &Worker{name: name, state: StateInit}
}

// State returns the worker's current state.
func (w *Worker) State() State { return w.state }

// Transition moves the worker to `to`, returning an error if the edge
// is not in the state machine (§4.1).
func (w *Worker) Transition(to State) error {
	for _, allowed := range validTransitions[w.state] {
		if allowed == to {
			w.state = to
			return nil
		}
	}
	return fmt.Errorf("worker %s: illegal transition %s -> %s", w.name, w.state, to)
}
