package auditlog

import (
	"context"
	"fmt"

	"github.com/cloudconnect/cloudconnect/pkg/stores"
)

// StoreSink appends streams as rows of a stores.Store.
type StoreSink struct {
	store stores.Store
}

var _ ReadableSink = (*StoreSink)(nil)

// NewStoreSink creates a sink over an initialized and migrated store.
func NewStoreSink(store stores.Store) *StoreSink {
	return &StoreSink{store: store}
}

// Name implements Sink.
func (s *StoreSink) Name() string { return "sqlite" }

// Append implements engine.LogSink.
func (s *StoreSink) Append(ctx context.Context, name, line string) error {
	if _, err := s.store.AppendLine(ctx, name, singleLine(line)); err != nil {
		return fmt.Errorf("failed to append to stream %s: %w", name, err)
	}
	return nil
}

// Streams implements Reader.
func (s *StoreSink) Streams(ctx context.Context) ([]string, error) {
	return s.store.ListResourceNames(ctx)
}

// Read implements Reader.
func (s *StoreSink) Read(ctx context.Context, name string) ([]string, error) {
	rows, err := s.store.ListLines(ctx, name)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, streamNotFound(name)
	}

	lines := make([]string, len(rows))
	for i, row := range rows {
		lines[i] = row.Line
	}
	return lines, nil
}
