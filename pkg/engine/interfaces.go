package engine

import "context"

// Kind describes one concrete resource type. Kinds are stateless: the same
// value validates and describes every resource of that kind.
type Kind interface {
	// Name returns the canonical kind name (e.g., "AppService").
	Name() string

	// Family returns the family whose defaulting policy applies to the kind.
	Family() Family

	// Validate checks the configuration against the kind's invariants. It is
	// called once, at construction. It returns nil or an InvalidConfig error
	// naming the rejected field.
	Validate(config map[string]interface{}) error

	// Describe returns the kind-specific human-readable detail string.
	Describe(name string, config map[string]interface{}) string
}

// Handle is the operation surface shared by resources and their
// instrumentation wrappers. Callers cannot tell the two apart.
type Handle interface {
	// Name returns the trimmed, immutable resource name.
	Name() string

	// Kind returns the kind name.
	Kind() string

	// Config returns a copy of the configuration.
	Config() map[string]interface{}

	// State returns the current lifecycle state.
	State() State

	// Deleted reports whether a delete transition has succeeded.
	Deleted() bool

	// Details returns the kind-specific detail string.
	Details() string

	// View returns the serialized view of the resource.
	View() View

	// Start runs the start transition and returns its outcome message.
	Start(ctx context.Context) (string, error)

	// Stop runs the stop transition and returns its outcome message.
	Stop(ctx context.Context) (string, error)

	// Delete runs the delete transition and returns its outcome message.
	Delete(ctx context.Context) (string, error)
}

// LogSink appends observation lines to a per-resource destination. The
// destination is created on first append and never truncated.
type LogSink interface {
	Append(ctx context.Context, resourceName, line string) error
}

// LogSinkFunc adapts a function to the LogSink interface.
type LogSinkFunc func(ctx context.Context, resourceName, line string) error

// Append calls f.
func (f LogSinkFunc) Append(ctx context.Context, resourceName, line string) error {
	return f(ctx, resourceName, line)
}

// Invoke dispatches op to the matching Handle method.
func Invoke(ctx context.Context, h Handle, op Operation) (string, error) {
	switch op {
	case OperationStart:
		return h.Start(ctx)
	case OperationStop:
		return h.Stop(ctx)
	case OperationDelete:
		return h.Delete(ctx)
	default:
		return "", op.Validate()
	}
}
