package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

type stubKind struct {
	validateErr error
}

func (stubKind) Name() string   { return "Stub" }
func (stubKind) Family() Family { return FamilyApp }

func (k stubKind) Validate(map[string]interface{}) error { return k.validateErr }

func (stubKind) Describe(name string, config map[string]interface{}) string {
	return fmt.Sprintf("%s (%v)", name, config["size"])
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"simple", "web1", "web1", false},
		{"trimmed", "  web1  ", "web1", false},
		{"empty", "", "", true},
		{"whitespace", "   ", "", true},
		{"max length", strings.Repeat("a", 50), strings.Repeat("a", 50), false},
		{"too long", strings.Repeat("a", 51), "", true},
		{"long before trimming", "  " + strings.Repeat("a", 50) + "  ", strings.Repeat("a", 50), false},
		{"multibyte", strings.Repeat("é", 50), strings.Repeat("é", 50), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateName(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidName) {
					t.Errorf("Expected InvalidName, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNewResource_InitialState(t *testing.T) {
	r, err := NewResource(stubKind{}, " db ", map[string]interface{}{"size": 3})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if r.Name() != "db" {
		t.Errorf("Expected trimmed name, got %q", r.Name())
	}
	if r.State() != StateCreated {
		t.Errorf("Expected created, got %s", r.State())
	}
	if r.Deleted() {
		t.Error("Expected deleted=false")
	}
	if r.Details() != "db (3)" {
		t.Errorf("Unexpected details: %q", r.Details())
	}
}

func TestNewResource_NilKind(t *testing.T) {
	if _, err := NewResource(nil, "db", nil); !errors.Is(err, ErrUnknownResourceKind) {
		t.Errorf("Expected UnknownResourceKind, got: %v", err)
	}
}

func TestResource_ValidateAddsResourceName(t *testing.T) {
	kind := stubKind{validateErr: NewInvalidConfigError("size", "size is required")}
	r, err := NewResource(kind, "db", nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	err = r.Validate()
	var ee *EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("Expected EngineError, got: %v", err)
	}
	if ee.Code != CodeInvalidConfig || ee.Field != "size" || ee.Resource != "db" {
		t.Errorf("Unexpected error context: %+v", ee)
	}
}

func TestResource_ConfigIsolation(t *testing.T) {
	nested := map[string]interface{}{"zone": "a"}
	input := map[string]interface{}{"size": 1, "placement": nested, "tags": []interface{}{"x"}}

	r, err := NewResource(stubKind{}, "db", input)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	input["size"] = 99
	nested["zone"] = "b"

	cfg := r.Config()
	if cfg["size"] != 1 {
		t.Errorf("Caller mutation leaked into resource: %v", cfg["size"])
	}
	if cfg["placement"].(map[string]interface{})["zone"] != "a" {
		t.Error("Nested caller mutation leaked into resource")
	}

	cfg["size"] = 42
	cfg["tags"].([]interface{})[0] = "y"
	again := r.Config()
	if again["size"] != 1 || again["tags"].([]interface{})[0] != "x" {
		t.Errorf("Read copy mutation leaked into resource: %v", again)
	}
}

func TestResource_Lifecycle(t *testing.T) {
	ctx := context.Background()
	r, _ := NewResource(stubKind{}, "web", nil)

	steps := []struct {
		op      Operation
		wantMsg string
		wantErr bool
		state   State
	}{
		{OperationStart, "web started.", false, StateStarted},
		{OperationDelete, "", true, StateStarted},
		{OperationStop, "web stopped.", false, StateStopped},
		{OperationStart, "web started again.", false, StateStarted},
		{OperationStop, "web stopped.", false, StateStopped},
		{OperationDelete, "web deleted.", false, StateDeleted},
		{OperationStart, "", true, StateDeleted},
	}

	for i, step := range steps {
		msg, err := Invoke(ctx, r, step.op)
		if step.wantErr != (err != nil) {
			t.Fatalf("step %d (%s): unexpected error state: %v", i, step.op, err)
		}
		if msg != step.wantMsg {
			t.Errorf("step %d (%s): expected %q, got %q", i, step.op, step.wantMsg, msg)
		}
		if r.State() != step.state {
			t.Errorf("step %d (%s): expected state %s, got %s", i, step.op, step.state, r.State())
		}
	}

	if !r.Deleted() {
		t.Error("Expected deleted=true")
	}
}

func TestResource_ConcurrentStart(t *testing.T) {
	r, _ := NewResource(stubKind{}, "web", nil)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Start(context.Background()); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Errorf("Expected exactly one successful start, got %d", successes)
	}
}

func TestSummarize(t *testing.T) {
	views := []View{
		{Name: "a", Type: "AppService", Status: StateStarted},
		{Name: "b", Type: "AppService", Status: StateDeleted, Deleted: true},
		{Name: "c", Type: "CacheDB", Status: StateCreated},
	}

	s := Summarize(views)
	if s.Total != 3 || s.Active != 2 || s.Deleted != 1 {
		t.Errorf("Unexpected totals: %+v", s)
	}
	if s.ByType["AppService"] != 2 || s.ByType["CacheDB"] != 1 {
		t.Errorf("Unexpected by_type: %v", s.ByType)
	}
	if s.ByStatus["started"] != 1 || s.ByStatus["deleted"] != 1 || s.ByStatus["created"] != 1 {
		t.Errorf("Unexpected by_status: %v", s.ByStatus)
	}
}
