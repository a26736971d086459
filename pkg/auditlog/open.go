package auditlog

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cloudconnect/cloudconnect/pkg/stores"
)

// Sink types accepted by Open.
const (
	TypeFile   = "file"
	TypeSQLite = "sqlite"
	TypeMemory = "memory"
)

// Options selects and configures a sink for Open.
type Options struct {
	// Type is one of TypeFile, TypeSQLite or TypeMemory.
	Type string

	// Dir is the log directory for the file sink.
	Dir string

	// DatabasePath is the SQLite database file for the sqlite sink.
	DatabasePath string

	Logger *zerolog.Logger
}

// Open builds the sink named by opts.Type. The returned close function
// releases any resources the sink holds and is never nil.
func Open(ctx context.Context, opts Options) (ReadableSink, func() error, error) {
	noop := func() error { return nil }

	switch opts.Type {
	case TypeFile, "":
		sink, err := NewFileSink(opts.Dir, opts.Logger)
		if err != nil {
			return nil, noop, err
		}
		return sink, noop, nil

	case TypeSQLite:
		store, err := stores.Open(ctx, stores.Config{Path: opts.DatabasePath})
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open log store: %w", err)
		}
		return NewStoreSink(store), store.Close, nil

	case TypeMemory:
		return NewMemorySink(), noop, nil

	default:
		return nil, noop, fmt.Errorf("unsupported sink type: %s", opts.Type)
	}
}
