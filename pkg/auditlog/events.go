package auditlog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cloudconnect/cloudconnect/pkg/stores"
	"github.com/cloudconnect/cloudconnect/pkg/telemetry"
)

// EventRecorder persists telemetry events next to the observation streams.
type EventRecorder interface {
	RecordEvent(ctx context.Context, event telemetry.Event) error
	Events(ctx context.Context, resourceName string, limit int) ([]telemetry.Event, error)
}

var _ EventRecorder = (*StoreSink)(nil)

// RecordEvent implements EventRecorder.
func (s *StoreSink) RecordEvent(ctx context.Context, event telemetry.Event) error {
	record := &stores.EventRecord{
		ID:        event.ID,
		Type:      event.Type,
		Source:    event.Source,
		Level:     event.Level,
		Message:   event.Message,
		Timestamp: event.Timestamp,
	}
	if event.Resource != "" {
		record.ResourceName = &event.Resource
	}
	if event.Kind != "" {
		record.Kind = &event.Kind
	}
	if len(event.Data) > 0 {
		data, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal event data: %w", err)
		}
		blob := string(data)
		record.Data = &blob
	}

	if err := s.store.AppendEvent(ctx, record); err != nil {
		return fmt.Errorf("failed to record event %s: %w", event.Type, err)
	}
	return nil
}

// Events implements EventRecorder. An empty resourceName returns events for
// every resource; limit <= 0 means no limit.
func (s *StoreSink) Events(ctx context.Context, resourceName string, limit int) ([]telemetry.Event, error) {
	var filter *string
	if resourceName != "" {
		filter = &resourceName
	}

	records, err := s.store.ListEvents(ctx, filter, nil, limit)
	if err != nil {
		return nil, err
	}

	events := make([]telemetry.Event, 0, len(records))
	for _, r := range records {
		e := telemetry.Event{
			ID:        r.ID,
			Timestamp: r.Timestamp,
			Type:      r.Type,
			Source:    r.Source,
			Message:   r.Message,
			Level:     r.Level,
		}
		if r.ResourceName != nil {
			e.Resource = *r.ResourceName
		}
		if r.Kind != nil {
			e.Kind = *r.Kind
		}
		if r.Data != nil {
			if err := json.Unmarshal([]byte(*r.Data), &e.Data); err != nil {
				return nil, fmt.Errorf("failed to decode event %s: %w", r.ID, err)
			}
		}
		events = append(events, e)
	}
	return events, nil
}

// PersistEvents subscribes rec to every event the publisher delivers.
// Failures are logged and never reach the publisher.
func PersistEvents(ctx context.Context, publisher *telemetry.EventPublisher, rec EventRecorder, logger *zerolog.Logger) {
	if publisher == nil || rec == nil {
		return
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	publisher.Subscribe(func(e telemetry.Event) {
		if err := rec.RecordEvent(ctx, e); err != nil {
			logger.Warn().Err(err).Str("event_type", e.Type).Msg("Failed to persist event")
		}
	}, nil)
}
