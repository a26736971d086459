package instrument

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudconnect/cloudconnect/pkg/auditlog"
	"github.com/cloudconnect/cloudconnect/pkg/engine"
	"github.com/cloudconnect/cloudconnect/pkg/telemetry"
)

// Wrapper decorates an engine.Handle with observation records.
type Wrapper struct {
	inner engine.Handle
	sink  engine.LogSink

	clock    func() time.Time
	logger   zerolog.Logger
	tel      *telemetry.Telemetry
	echo     io.Writer
	sinkName string
}

var _ engine.Handle = (*Wrapper)(nil)

// Option configures a Wrapper.
type Option func(*Wrapper)

// WithClock sets the clock used to timestamp records.
func WithClock(clock func() time.Time) Option {
	return func(w *Wrapper) {
		if clock != nil {
			w.clock = clock
		}
	}
}

// WithLogger sets the logger used to report sink failures.
func WithLogger(logger *zerolog.Logger) Option {
	return func(w *Wrapper) {
		if logger != nil {
			w.logger = logger.With().Str("component", "instrument").Logger()
		}
	}
}

// WithTelemetry enables spans, metrics and events for mutating calls.
func WithTelemetry(tel *telemetry.Telemetry) Option {
	return func(w *Wrapper) {
		if tel != nil {
			w.tel = tel
		}
	}
}

// WithEcho also writes every record to out, as the interactive shell does.
func WithEcho(out io.Writer) Option {
	return func(w *Wrapper) {
		w.echo = out
	}
}

// Wrap returns h decorated with observation records written to sink. A nil
// sink discards records.
func Wrap(h engine.Handle, sink engine.LogSink, opts ...Option) *Wrapper {
	w := &Wrapper{
		inner:    h,
		sink:     sink,
		clock:    time.Now,
		logger:   zerolog.Nop(),
		tel:      telemetry.NewNoop(),
		sinkName: "custom",
	}
	if named, ok := sink.(auditlog.Sink); ok {
		w.sinkName = named.Name()
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Unwrap returns the wrapped handle.
func (w *Wrapper) Unwrap() engine.Handle { return w.inner }

// Name implements engine.Handle.
func (w *Wrapper) Name() string { return w.inner.Name() }

// Kind implements engine.Handle.
func (w *Wrapper) Kind() string { return w.inner.Kind() }

// Config implements engine.Handle.
func (w *Wrapper) Config() map[string]interface{} { return w.inner.Config() }

// State implements engine.Handle.
func (w *Wrapper) State() engine.State { return w.inner.State() }

// Deleted implements engine.Handle.
func (w *Wrapper) Deleted() bool { return w.inner.Deleted() }

// Details implements engine.Handle.
func (w *Wrapper) Details() string { return w.inner.Details() }

// View implements engine.Handle.
func (w *Wrapper) View() engine.View { return w.inner.View() }

// Start implements engine.Handle.
func (w *Wrapper) Start(ctx context.Context) (string, error) {
	return w.observe(ctx, engine.OperationStart)
}

// Stop implements engine.Handle.
func (w *Wrapper) Stop(ctx context.Context) (string, error) {
	return w.observe(ctx, engine.OperationStop)
}

// Delete implements engine.Handle.
func (w *Wrapper) Delete(ctx context.Context) (string, error) {
	return w.observe(ctx, engine.OperationDelete)
}

func (w *Wrapper) observe(ctx context.Context, op engine.Operation) (string, error) {
	name, kind := w.inner.Name(), w.inner.Kind()

	ctx, span := w.tel.Tracer.StartTransitionSpan(ctx, kind, name, string(op))
	defer span.End()
	timer := telemetry.NewTimer()

	from := w.inner.State()
	msg, err := engine.Invoke(ctx, w.inner, op)
	if err != nil {
		telemetry.RecordError(span, err)
		span.SetAttributes(telemetry.AttrErrorCode.String(string(engine.CodeOf(err))))
		w.tel.Metrics.RecordTransition(kind, string(op), telemetry.ResultFailure, timer.Duration())
		w.tel.Metrics.RecordError(string(engine.CodeOf(err)))
		_ = w.tel.Events.PublishTransitionFailed(name, kind, string(op), err.Error())
		return msg, err
	}

	to := w.inner.State()
	span.SetAttributes(
		telemetry.AttrFromState.String(string(from)),
		telemetry.AttrToState.String(string(to)),
	)
	telemetry.RecordSuccess(span)
	w.tel.Metrics.RecordTransition(kind, string(op), telemetry.ResultSuccess, timer.Duration())
	_ = w.tel.Events.PublishTransition(name, kind, string(op), string(from), string(to))

	w.emit(ctx, auditlog.ObservationLine(w.clock(), kind, name, op.PastTense(), msg))
	return msg, nil
}

// emit appends a record. The transition has already happened, so a sink
// failure is reported but never turned into an operation failure.
func (w *Wrapper) emit(ctx context.Context, line string) {
	if w.echo != nil {
		fmt.Fprintln(w.echo, line)
	}
	if w.sink == nil {
		return
	}

	err := w.sink.Append(ctx, w.inner.Name(), line)
	w.tel.Metrics.RecordLogAppend(w.sinkName, err)
	if err != nil {
		w.logger.Warn().
			Err(err).
			Str("resource", w.inner.Name()).
			Str("sink", w.sinkName).
			Msg("Failed to append observation record")
		_ = w.tel.Events.PublishLogAppendFailed(w.inner.Name(), err.Error())
	}
}
