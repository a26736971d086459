package stores

import (
	"context"
	"time"
)

// LogLine is one appended observation line.
type LogLine struct {
	ID           int64     `json:"id"`
	ResourceName string    `json:"resource_name"`
	Line         string    `json:"line"`
	CreatedAt    time.Time `json:"created_at"`
}

// EventRecord is a persisted telemetry event.
type EventRecord struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Source       string    `json:"source"`
	ResourceName *string   `json:"resource_name,omitempty"`
	Kind         *string   `json:"kind,omitempty"`
	Level        string    `json:"level"`
	Message      string    `json:"message"`
	Data         *string   `json:"data,omitempty"` // JSON blob
	Timestamp    time.Time `json:"timestamp"`
}

// Store is the persistence interface for observation logs and events.
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error
	HealthCheck(ctx context.Context) error

	// Observation log operations (append-only)
	AppendLine(ctx context.Context, resourceName, line string) (*LogLine, error)
	ListLines(ctx context.Context, resourceName string) ([]*LogLine, error)
	ListResourceNames(ctx context.Context) ([]string, error)

	// Event operations (append-only)
	AppendEvent(ctx context.Context, event *EventRecord) error
	ListEvents(ctx context.Context, resourceName *string, eventType *string, limit int) ([]*EventRecord, error)
}
