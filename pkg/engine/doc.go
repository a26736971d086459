// Package engine provides the core types of the CloudConnect resource
// lifecycle engine.
//
// # Overview
//
// A resource is a named, typed unit with a configuration and a lifecycle
// state. Every lifecycle operation goes through a single pure transition
// function driven by a static table:
//
//	Created --start--> Started --stop--> Stopped --start--> Started
//	Created --delete--> Deleted
//	Stopped --delete--> Deleted
//
// Deleted is absorbing: every operation on a deleted resource fails and the
// resource stays deleted.
//
// # Core Types
//
//   - Kind: validates and describes one concrete resource type
//   - Resource: the stateful entity, safe for concurrent use
//   - Handle: the operation surface shared by resources and wrappers
//   - View and Summary: serialized read models
//   - LogSink: the append-only destination for observation records
//
// # Error Classification
//
// Every failure is an *EngineError carrying an ErrorCode. Codes are matched
// with errors.Is against the package sentinels:
//
//	if errors.Is(err, engine.ErrInvalidTransition) {
//	    // state unchanged
//	}
//
// No error is retryable. A failed construction stores nothing and a failed
// transition leaves the prior state in place.
package engine
