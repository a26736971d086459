package engine

import (
	"errors"
	"testing"
)

func TestApply_TransitionTable(t *testing.T) {
	tests := []struct {
		from      State
		op        Operation
		wantState State
		wantMsg   string
		wantErr   string
	}{
		{StateCreated, OperationStart, StateStarted, "web started.", ""},
		{StateCreated, OperationStop, StateCreated, "", "Cannot stop: not started."},
		{StateCreated, OperationDelete, StateDeleted, "web deleted.", ""},
		{StateStarted, OperationStart, StateStarted, "", "Already started."},
		{StateStarted, OperationStop, StateStopped, "web stopped.", ""},
		{StateStarted, OperationDelete, StateStarted, "", "Stop first before deleting."},
		{StateStopped, OperationStart, StateStarted, "web started again.", ""},
		{StateStopped, OperationStop, StateStopped, "", "Already stopped."},
		{StateStopped, OperationDelete, StateDeleted, "web deleted.", ""},
		{StateDeleted, OperationStart, StateDeleted, "", "Cannot start deleted resource."},
		{StateDeleted, OperationStop, StateDeleted, "", "Cannot stop deleted resource."},
		{StateDeleted, OperationDelete, StateDeleted, "", "Already deleted."},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"_"+string(tt.op), func(t *testing.T) {
			next, msg, err := Apply(tt.from, tt.op, "web")

			if next != tt.wantState {
				t.Errorf("Expected state %s, got %s", tt.wantState, next)
			}

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected no error, got: %v", err)
				}
				if msg != tt.wantMsg {
					t.Errorf("Expected message %q, got %q", tt.wantMsg, msg)
				}
				return
			}

			if !errors.Is(err, ErrInvalidTransition) {
				t.Fatalf("Expected InvalidTransition, got: %v", err)
			}
			if err.Error() != tt.wantErr {
				t.Errorf("Expected error %q, got %q", tt.wantErr, err.Error())
			}
			if msg != "" {
				t.Errorf("Expected empty message on rejection, got %q", msg)
			}
		})
	}
}

func TestTransitions_Complete(t *testing.T) {
	if len(Transitions) != len(States)*len(Operations) {
		t.Fatalf("Expected %d cells, got %d", len(States)*len(Operations), len(Transitions))
	}

	for _, s := range States {
		for _, op := range Operations {
			if _, ok := Lookup(s, op); !ok {
				t.Errorf("Missing cell for %s/%s", s, op)
			}
		}
	}

	for _, op := range Operations {
		cell, _ := Lookup(StateDeleted, op)
		if cell.Allowed() {
			t.Errorf("Expected %s to be rejected on deleted resources", op)
		}
	}
}

func TestApply_UnknownOperation(t *testing.T) {
	next, _, err := Apply(StateCreated, Operation("restart"), "web")

	if next != StateCreated {
		t.Errorf("Expected state to stay created, got %s", next)
	}
	if !IsInvalidTransition(err) {
		t.Errorf("Expected InvalidTransition, got: %v", err)
	}
}
