package engine

import (
	"context"
	"strings"
	"sync"
	"unicode/utf8"
)

// MaxNameLength is the maximum resource name length, counted in characters
// after trimming surrounding whitespace.
const MaxNameLength = 50

// Resource is a named, typed resource with a lifecycle. It is safe for
// concurrent use; at most one transition runs at a time.
type Resource struct {
	mu      sync.RWMutex
	name    string
	kind    Kind
	config  map[string]interface{}
	state   State
	deleted bool
}

// NewResource instantiates a resource of the given kind in StateCreated. The
// name is trimmed and validated; the configuration is copied but not
// validated (see Validate).
func NewResource(kind Kind, name string, config map[string]interface{}) (*Resource, error) {
	if kind == nil {
		return nil, NewError(CodeUnknownResourceKind, "resource kind is required")
	}

	trimmed, err := ValidateName(name)
	if err != nil {
		return nil, err
	}

	return &Resource{
		name:   trimmed,
		kind:   kind,
		config: CopyConfig(config),
		state:  StateCreated,
	}, nil
}

// ValidateName trims the name and checks it is non-empty and at most
// MaxNameLength characters long.
func ValidateName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		if name == "" {
			return "", NewError(CodeInvalidName, "Resource name must be a non-empty string")
		}
		return "", NewError(CodeInvalidName, "Resource name cannot be empty or whitespace")
	}
	if utf8.RuneCountInString(trimmed) > MaxNameLength {
		return "", Errorf(CodeInvalidName, "Resource name cannot exceed %d characters", MaxNameLength).
			WithResource(trimmed)
	}
	return trimmed, nil
}

// Validate runs the kind's configuration validator.
func (r *Resource) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if err := r.kind.Validate(r.config); err != nil {
		if e, ok := err.(*EngineError); ok && e.Resource == "" {
			e.Resource = r.name
		}
		return err
	}
	return nil
}

// Name returns the resource name.
func (r *Resource) Name() string {
	return r.name
}

// Kind returns the kind name.
func (r *Resource) Kind() string {
	return r.kind.Name()
}

// Family returns the kind's family.
func (r *Resource) Family() Family {
	return r.kind.Family()
}

// Config returns a copy of the configuration.
func (r *Resource) Config() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return CopyConfig(r.config)
}

// State returns the current lifecycle state.
func (r *Resource) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// Deleted reports whether the resource has been deleted.
func (r *Resource) Deleted() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.deleted
}

// Details returns the kind-specific detail string.
func (r *Resource) Details() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.kind.Describe(r.name, r.config)
}

// View returns the serialized view of the resource.
func (r *Resource) View() View {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return View{
		Name:    r.name,
		Type:    r.kind.Name(),
		Status:  r.state,
		Deleted: r.deleted,
		Details: r.kind.Describe(r.name, r.config),
		Config:  CopyConfig(r.config),
	}
}

// Start runs the start transition.
func (r *Resource) Start(_ context.Context) (string, error) {
	return r.transition(OperationStart)
}

// Stop runs the stop transition.
func (r *Resource) Stop(_ context.Context) (string, error) {
	return r.transition(OperationStop)
}

// Delete runs the delete transition.
func (r *Resource) Delete(_ context.Context) (string, error) {
	return r.transition(OperationDelete)
}

// transition replaces the current state with the state machine's result.
// A rejected operation leaves the state untouched.
func (r *Resource) transition(op Operation) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, msg, err := Apply(r.state, op, r.name)
	if err != nil {
		return "", err
	}

	r.state = next
	if next == StateDeleted {
		r.deleted = true
	}
	return msg, nil
}

// CopyConfig returns a deep copy of a configuration mapping. Nested maps and
// slices are copied; scalar values are shared. A nil mapping copies to an
// empty one.
func CopyConfig(config map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(config))
	for k, v := range config {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		return CopyConfig(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, item := range val {
			out[i] = copyValue(item)
		}
		return out
	case []string:
		return append([]string(nil), val...)
	case map[string]string:
		out := make(map[string]string, len(val))
		for k, s := range val {
			out[k] = s
		}
		return out
	default:
		return v
	}
}
