package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// State represents the lifecycle state of a resource.
type State string

const (
	// StateCreated is the initial state of every constructed resource.
	StateCreated State = "created"

	// StateStarted indicates the resource is running.
	StateStarted State = "started"

	// StateStopped indicates the resource was started and then stopped.
	StateStopped State = "stopped"

	// StateDeleted is the terminal state. No operation leaves it.
	StateDeleted State = "deleted"
)

// States lists every lifecycle state in declaration order.
var States = []State{StateCreated, StateStarted, StateStopped, StateDeleted}

// String returns the state label.
func (s State) String() string {
	return string(s)
}

// IsTerminal returns true if no operation can leave the state.
func (s State) IsTerminal() bool {
	return s == StateDeleted
}

// IsActive returns true if the state is anything but deleted.
func (s State) IsActive() bool {
	return s != StateDeleted
}

// Validate checks if the state is valid.
func (s State) Validate() error {
	switch s {
	case StateCreated, StateStarted, StateStopped, StateDeleted:
		return nil
	default:
		return fmt.Errorf("invalid resource state: %s", s)
	}
}

// MarshalJSON implements custom JSON marshaling for type-safe enum serialization.
func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(s))
}

// UnmarshalJSON implements custom JSON unmarshaling with validation.
func (s *State) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	*s = State(str)
	return s.Validate()
}

// Operation is a lifecycle operation applied through the state machine.
type Operation string

const (
	// OperationStart moves a created or stopped resource to started.
	OperationStart Operation = "start"

	// OperationStop moves a started resource to stopped.
	OperationStop Operation = "stop"

	// OperationDelete moves a created or stopped resource to deleted.
	OperationDelete Operation = "delete"
)

// Operations lists every lifecycle operation.
var Operations = []Operation{OperationStart, OperationStop, OperationDelete}

// PastTense returns the action label used in observation records
// (started, stopped, deleted).
func (o Operation) PastTense() string {
	switch o {
	case OperationStart:
		return "started"
	case OperationStop:
		return "stopped"
	case OperationDelete:
		return "deleted"
	default:
		return string(o)
	}
}

// Validate checks if the operation is valid.
func (o Operation) Validate() error {
	switch o {
	case OperationStart, OperationStop, OperationDelete:
		return nil
	default:
		return fmt.Errorf("invalid operation: %s", o)
	}
}

// ParseOperation parses an operation name case-insensitively.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToLower(strings.TrimSpace(s)))
	if err := op.Validate(); err != nil {
		return "", err
	}
	return op, nil
}

// Family groups kinds that share a configuration defaulting and bounding policy.
type Family string

const (
	// FamilyApp groups application hosting kinds.
	FamilyApp Family = "app"

	// FamilyStorage groups storage kinds.
	FamilyStorage Family = "storage"

	// FamilyCache groups cache kinds.
	FamilyCache Family = "cache"

	// FamilyDatabase groups database kinds. It shares the cache policy.
	FamilyDatabase Family = "database"
)

// Validate checks if the family is valid.
func (f Family) Validate() error {
	switch f {
	case FamilyApp, FamilyStorage, FamilyCache, FamilyDatabase:
		return nil
	default:
		return fmt.Errorf("invalid family: %s", f)
	}
}

// ParseFamily parses a family name case-insensitively.
func ParseFamily(s string) (Family, error) {
	f := Family(strings.ToLower(strings.TrimSpace(s)))
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f, nil
}
