// Package auditlog provides the append-only, per-resource log streams that
// lifecycle observations and creation audit records are written to.
//
// A stream is identified by a resource name. Appending to a stream that does
// not exist creates it; nothing in this package truncates or rewrites a
// stream. Four sinks are provided:
//
//   - FileSink writes one file per resource under a directory.
//   - StoreSink writes rows to a stores.Store (SQLite).
//   - MemorySink keeps lines in process memory.
//   - MultiSink fans a line out to several sinks.
//
// Every sink except MultiSink also implements Reader so streams can be listed
// and read back.
//
// Record formats:
//
//	[2024-05-01 02:04:05 PM] AppService 'web1' started - web1 started.
//	[2024-05-01 02:04:05 PM] AppService 'web1' created with config {"region":"EastUS"}
//	[2024-05-01 02:04:05 PM] Failed to create AppService 'web1': Invalid runtime.
package auditlog
