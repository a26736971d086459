package engine

import "fmt"

// Transition is one cell of the lifecycle transition table. A cell either
// names the next state and the success message, or carries the reason the
// operation is rejected in the current state.
type Transition struct {
	From      State
	Operation Operation
	To        State
	// Outcome is a format string taking the resource name.
	Outcome string
	// Rejection is set for cells that fail with InvalidTransition.
	Rejection string
}

// Allowed returns true if the cell describes a successful transition.
func (t Transition) Allowed() bool {
	return t.Rejection == ""
}

// Transitions is the complete lifecycle table: every state paired with every
// operation exactly once.
var Transitions = []Transition{
	{From: StateCreated, Operation: OperationStart, To: StateStarted, Outcome: "%s started."},
	{From: StateCreated, Operation: OperationStop, Rejection: "Cannot stop: not started."},
	{From: StateCreated, Operation: OperationDelete, To: StateDeleted, Outcome: "%s deleted."},

	{From: StateStarted, Operation: OperationStart, Rejection: "Already started."},
	{From: StateStarted, Operation: OperationStop, To: StateStopped, Outcome: "%s stopped."},
	{From: StateStarted, Operation: OperationDelete, Rejection: "Stop first before deleting."},

	{From: StateStopped, Operation: OperationStart, To: StateStarted, Outcome: "%s started again."},
	{From: StateStopped, Operation: OperationStop, Rejection: "Already stopped."},
	{From: StateStopped, Operation: OperationDelete, To: StateDeleted, Outcome: "%s deleted."},

	{From: StateDeleted, Operation: OperationStart, Rejection: "Cannot start deleted resource."},
	{From: StateDeleted, Operation: OperationStop, Rejection: "Cannot stop deleted resource."},
	{From: StateDeleted, Operation: OperationDelete, Rejection: "Already deleted."},
}

type transitionKey struct {
	from State
	op   Operation
}

var transitionIndex = func() map[transitionKey]Transition {
	idx := make(map[transitionKey]Transition, len(Transitions))
	for _, t := range Transitions {
		idx[transitionKey{from: t.From, op: t.Operation}] = t
	}
	return idx
}()

// Lookup returns the table cell for the given state and operation.
func Lookup(from State, op Operation) (Transition, bool) {
	t, ok := transitionIndex[transitionKey{from: from, op: op}]
	return t, ok
}

// Apply runs one operation through the state machine. It is a pure function:
// on success it returns the next state and the outcome message for the named
// resource; on failure it returns an InvalidTransition error and the caller
// keeps its current state.
func Apply(from State, op Operation, name string) (State, string, error) {
	t, ok := Lookup(from, op)
	if !ok {
		return from, "", Errorf(CodeInvalidTransition, "unsupported operation %q in state %q", op, from).
			WithResource(name).
			WithOperation(string(op))
	}
	if !t.Allowed() {
		return from, "", NewError(CodeInvalidTransition, t.Rejection).
			WithResource(name).
			WithOperation(string(op))
	}
	return t.To, fmt.Sprintf(t.Outcome, name), nil
}
