// Package stores provides the SQLite persistence layer for CloudConnect.
// It stores the append-only observation log and persisted telemetry events,
// with WAL mode and schema migrations embedded in the binary.
package stores
