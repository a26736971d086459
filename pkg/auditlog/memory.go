package auditlog

import (
	"context"
	"sort"
	"sync"
)

// MemorySink keeps streams in memory. It is used by tests and by the CLI
// when no log directory is wanted.
type MemorySink struct {
	mu      sync.RWMutex
	streams map[string][]string
}

var _ ReadableSink = (*MemorySink)(nil)

// NewMemorySink creates an empty memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{streams: make(map[string][]string)}
}

// Name implements Sink.
func (s *MemorySink) Name() string { return "memory" }

// Append implements engine.LogSink.
func (s *MemorySink) Append(_ context.Context, name, line string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.streams[name] = append(s.streams[name], singleLine(line))
	return nil
}

// Streams implements Reader.
func (s *MemorySink) Streams(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.streams))
	for name := range s.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Read implements Reader.
func (s *MemorySink) Read(_ context.Context, name string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lines, ok := s.streams[name]
	if !ok {
		return nil, streamNotFound(name)
	}
	return append([]string(nil), lines...), nil
}

// Lines returns a copy of a stream, or nil if it was never written.
func (s *MemorySink) Lines(name string) []string {
	lines, _ := s.Read(context.Background(), name)
	return lines
}

// Len returns the number of lines in a stream.
func (s *MemorySink) Len(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.streams[name])
}
