package engine_test

import (
	"errors"
	"fmt"

	"github.com/cloudconnect/cloudconnect/pkg/engine"
)

// Example_stateMachine walks a resource through its lifecycle using the pure
// transition function.
func Example_stateMachine() {
	state := engine.StateCreated

	for _, op := range []engine.Operation{
		engine.OperationStart,
		engine.OperationDelete,
		engine.OperationStop,
		engine.OperationDelete,
	} {
		next, msg, err := engine.Apply(state, op, "web1")
		if err != nil {
			fmt.Printf("%s rejected: %v\n", op, err)
			continue
		}
		state = next
		fmt.Println(msg)
	}

	// Output:
	// web1 started.
	// delete rejected: Stop first before deleting.
	// web1 stopped.
	// web1 deleted.
}

// Example_errorHandling demonstrates error classification.
func Example_errorHandling() {
	_, _, err := engine.Apply(engine.StateDeleted, engine.OperationStart, "web1")
	wrapped := engine.Wrap(err, "start", "web1")

	fmt.Println(wrapped)
	fmt.Println(errors.Is(wrapped, engine.ErrInvalidTransition))
	fmt.Println(engine.CodeOf(wrapped))

	// Output:
	// failed to start 'web1': Cannot start deleted resource.
	// true
	// INVALID_TRANSITION
}
