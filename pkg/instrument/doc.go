// Package instrument provides the instrumentation wrapper: an engine.Handle
// that forwards every call to the handle it wraps and, after each successful
// start, stop or delete, appends one observation record to a log sink.
//
// Failed operations return the inner error unchanged and emit no record. Read
// accessors are forwarded with no side effects, so callers cannot tell a
// wrapped handle from an unwrapped one except through the log.
//
// When telemetry is supplied the wrapper also opens a span per mutating call,
// records transition metrics and publishes transition events.
package instrument
