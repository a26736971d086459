package auditlog

import (
	"context"
	"errors"
	"strings"
)

// MultiSink appends every line to each of its sinks in order. A failure in
// one sink does not stop the others; the failures are joined.
type MultiSink struct {
	sinks []Sink
}

var _ Sink = (*MultiSink)(nil)

// NewMultiSink creates a fan-out sink. Nil sinks are skipped.
func NewMultiSink(sinks ...Sink) *MultiSink {
	m := &MultiSink{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// Name implements Sink.
func (m *MultiSink) Name() string {
	names := make([]string, len(m.sinks))
	for i, s := range m.sinks {
		names[i] = s.Name()
	}
	return "multi(" + strings.Join(names, ",") + ")"
}

// Append implements engine.LogSink.
func (m *MultiSink) Append(ctx context.Context, name, line string) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Append(ctx, name, line); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Reader returns the first sink that can be read back, or nil.
func (m *MultiSink) Reader() Reader {
	for _, s := range m.sinks {
		if r, ok := s.(Reader); ok {
			return r
		}
	}
	return nil
}
