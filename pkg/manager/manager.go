package manager

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudconnect/cloudconnect/pkg/auditlog"
	"github.com/cloudconnect/cloudconnect/pkg/engine"
	"github.com/cloudconnect/cloudconnect/pkg/factory"
	"github.com/cloudconnect/cloudconnect/pkg/instrument"
	"github.com/cloudconnect/cloudconnect/pkg/telemetry"
)

// Options configures a Manager.
type Options struct {
	// Sink receives creation audit records and, through the instrumentation
	// wrapper, observation records. A nil sink discards them.
	Sink engine.LogSink

	// DisableInstrumentation stores bare resources instead of wrapped ones.
	// Creation audit records are still written.
	DisableInstrumentation bool

	// Echo, when set, also receives every record the manager and its
	// wrappers write.
	Echo io.Writer

	// Clock timestamps records. Defaults to time.Now.
	Clock func() time.Time

	Logger    *zerolog.Logger
	Telemetry *telemetry.Telemetry
}

// Manager owns resources by name. It is safe for concurrent use.
type Manager struct {
	pipeline *factory.Pipeline
	opts     Options
	logger   zerolog.Logger
	tel      *telemetry.Telemetry
	sinkName string

	mu        sync.RWMutex
	resources map[string]engine.Handle
	order     []string
}

// New creates a manager that constructs resources with pipeline.
func New(pipeline *factory.Pipeline, opts Options) *Manager {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "manager").Logger()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	tel := opts.Telemetry
	if tel == nil {
		tel = telemetry.NewNoop()
	}

	sinkName := "custom"
	if named, ok := opts.Sink.(auditlog.Sink); ok {
		sinkName = named.Name()
	}

	return &Manager{
		pipeline:  pipeline,
		opts:      opts,
		logger:    logger,
		tel:       tel,
		sinkName:  sinkName,
		resources: make(map[string]engine.Handle),
	}
}

// Instrumented reports whether stored resources are wrapped.
func (m *Manager) Instrumented() bool {
	return !m.opts.DisableInstrumentation
}

// Create constructs, stores and audits a new resource and returns a
// confirmation message.
func (m *Manager) Create(ctx context.Context, kind, name string, config map[string]interface{}) (string, error) {
	trimmed := strings.TrimSpace(name)

	handle, err := m.construct(ctx, kind, name, config)
	if err == nil {
		err = m.register(trimmed, handle)
	}
	if err != nil {
		m.tel.Metrics.RecordError(string(engine.CodeOf(err)))
		_ = m.tel.Events.PublishResourceCreateFailed(trimmed, kind, string(engine.CodeOf(err)), err.Error())
		m.logger.Debug().Err(err).Str("kind", kind).Str("resource", trimmed).Msg("Create rejected")
		return "", err
	}

	m.audit(ctx, handle.Name(), auditlog.CreatedLine(m.opts.Clock(), handle.Kind(), handle.Name(), handle.Config()))
	_ = m.tel.Events.PublishResourceCreated(handle.Name(), handle.Kind(), handle.Config())
	m.refreshGauges()

	m.logger.Info().Str("kind", handle.Kind()).Str("resource", handle.Name()).Msg("Resource created")
	return fmt.Sprintf("%s '%s' created successfully.", handle.Kind(), handle.Name()), nil
}

// construct rejects names already registered, then builds and wraps the
// resource without holding the map lock. A failed construction of a valid
// name is audited.
func (m *Manager) construct(ctx context.Context, kind, raw string, config map[string]interface{}) (engine.Handle, error) {
	name := strings.TrimSpace(raw)

	m.mu.RLock()
	_, exists := m.resources[name]
	m.mu.RUnlock()
	if exists {
		return nil, duplicateName(name)
	}

	res, err := m.pipeline.Construct(ctx, kind, raw, config)
	if err != nil {
		if _, nameErr := engine.ValidateName(name); nameErr == nil {
			m.audit(ctx, name, auditlog.CreateFailedLine(m.opts.Clock(), m.kindLabel(kind), name, err))
		}
		return nil, engine.Wrap(err, "create", name)
	}

	if !m.Instrumented() {
		return res, nil
	}
	return instrument.Wrap(res, m.opts.Sink,
		instrument.WithClock(m.opts.Clock),
		instrument.WithLogger(&m.logger),
		instrument.WithTelemetry(m.tel),
		instrument.WithEcho(m.opts.Echo),
	), nil
}

// register holds the map lock across the duplicate check and the insert so
// two creates of the same name cannot both succeed.
func (m *Manager) register(name string, handle engine.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.resources[name]; exists {
		return duplicateName(name)
	}
	m.resources[name] = handle
	m.order = append(m.order, name)
	return nil
}

func duplicateName(name string) error {
	return engine.Errorf(engine.CodeDuplicateName, "Resource '%s' already exists", name).
		WithResource(name).
		WithOperation("create")
}

// kindLabel returns the canonical kind name when kind resolves, otherwise
// the requested name.
func (m *Manager) kindLabel(kind string) string {
	if k, err := m.pipeline.Catalog().Lookup(kind); err == nil {
		return k.Name()
	}
	return kind
}

// Start starts the named resource.
func (m *Manager) Start(ctx context.Context, name string) (string, error) {
	return m.invoke(ctx, name, engine.OperationStart)
}

// Stop stops the named resource.
func (m *Manager) Stop(ctx context.Context, name string) (string, error) {
	return m.invoke(ctx, name, engine.OperationStop)
}

// Delete deletes the named resource. The entry stays registered.
func (m *Manager) Delete(ctx context.Context, name string) (string, error) {
	return m.invoke(ctx, name, engine.OperationDelete)
}

// Invoke runs op on the named resource.
func (m *Manager) Invoke(ctx context.Context, name string, op engine.Operation) (string, error) {
	if err := op.Validate(); err != nil {
		return "", err
	}
	return m.invoke(ctx, name, op)
}

func (m *Manager) invoke(ctx context.Context, name string, op engine.Operation) (string, error) {
	handle, err := m.Get(name)
	if err != nil {
		return "", err
	}

	msg, err := engine.Invoke(ctx, handle, op)
	if err != nil {
		if !m.Instrumented() {
			m.tel.Metrics.RecordError(string(engine.CodeOf(err)))
		}
		return "", engine.Wrap(err, string(op), handle.Name())
	}

	m.refreshGauges()
	return msg, nil
}

// Get returns the stored handle for name.
func (m *Manager) Get(name string) (engine.Handle, error) {
	trimmed := strings.TrimSpace(name)

	m.mu.RLock()
	handle, ok := m.resources[trimmed]
	m.mu.RUnlock()

	if !ok {
		return nil, engine.Errorf(engine.CodeNotFound, "Resource '%s' not found", trimmed).WithResource(trimmed)
	}
	return handle, nil
}

// Len returns the number of stored resources, deleted ones included.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}

// ListAll returns the view of every stored resource in creation order,
// deleted ones included.
func (m *Manager) ListAll() []engine.View {
	handles := m.snapshot()
	views := make([]engine.View, len(handles))
	for i, h := range handles {
		views[i] = h.View()
	}
	return views
}

// CountSummary aggregates the stored resources in a single pass.
func (m *Manager) CountSummary() engine.Summary {
	return engine.Summarize(m.ListAll())
}

func (m *Manager) snapshot() []engine.Handle {
	m.mu.RLock()
	defer m.mu.RUnlock()

	handles := make([]engine.Handle, len(m.order))
	for i, name := range m.order {
		handles[i] = m.resources[name]
	}
	return handles
}

func (m *Manager) audit(ctx context.Context, name, line string) {
	if m.opts.Echo != nil {
		fmt.Fprintln(m.opts.Echo, line)
	}
	if m.opts.Sink == nil {
		return
	}

	err := m.opts.Sink.Append(ctx, name, line)
	m.tel.Metrics.RecordLogAppend(m.sinkName, err)
	if err != nil {
		m.logger.Warn().Err(err).Str("resource", name).Str("sink", m.sinkName).Msg("Failed to append audit record")
		_ = m.tel.Events.PublishLogAppendFailed(name, err.Error())
	}
}

// refreshGauges republishes the resources_managed gauge from a fresh summary.
func (m *Manager) refreshGauges() {
	if m.tel.Metrics.Registry() == nil {
		return
	}

	counts := make(map[[2]string]int)
	for _, v := range m.ListAll() {
		counts[[2]string{v.Type, v.Status.String()}]++
	}

	m.tel.Metrics.ResetResourceCounts()
	for key, n := range counts {
		m.tel.Metrics.SetResourceCount(key[0], key[1], float64(n))
	}
}
