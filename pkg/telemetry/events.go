package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in the CloudConnect system.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// Resource is the associated resource name, if applicable.
	Resource string `json:"resource,omitempty"`

	// Kind is the associated resource kind, if applicable.
	Kind string `json:"kind,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeResourceCreated          = "resource.created"
	EventTypeResourceCreateFailed     = "resource.create_failed"
	EventTypeResourceTransitioned     = "resource.transitioned"
	EventTypeResourceTransitionFailed = "resource.transition_failed"
	EventTypePolicyViolation          = "policy.violation"
	EventTypePolicyReloaded           = "policy.reloaded"
	EventTypeLogAppendFailed          = "log.append_failed"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions. Subscribers are
// called sequentially in publish order; with EnableAsync they run on the
// publisher's goroutine, otherwise on the caller's.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	if cfg.MaxBatchSize <= 0 {
		cfg.MaxBatchSize = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	if cfg.EnableAsync {
		ep.buffer = make(chan Event, cfg.BufferSize)
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if ep == nil || !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil
		}
	}
	ep.mu.RUnlock()

	if ep.config.EnableAsync {
		select {
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
		}
		select {
		case ep.buffer <- event:
			return nil
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	ep.deliverEvent(event)
	return nil
}

// PublishResourceCreated publishes a resource created event.
func (ep *EventPublisher) PublishResourceCreated(name, kind string, config map[string]interface{}) error {
	return ep.Publish(Event{
		Type:     EventTypeResourceCreated,
		Source:   "manager",
		Resource: name,
		Kind:     kind,
		Message:  fmt.Sprintf("%s '%s' created", kind, name),
		Level:    EventLevelInfo,
		Data: map[string]interface{}{
			"config": config,
		},
	})
}

// PublishResourceCreateFailed publishes a failed construction event.
func (ep *EventPublisher) PublishResourceCreateFailed(name, kind, code, reason string) error {
	return ep.Publish(Event{
		Type:     EventTypeResourceCreateFailed,
		Source:   "manager",
		Resource: name,
		Kind:     kind,
		Message:  fmt.Sprintf("Failed to create %s '%s': %s", kind, name, reason),
		Level:    EventLevelError,
		Data: map[string]interface{}{
			"code":   code,
			"reason": reason,
		},
	})
}

// PublishTransition publishes a successful lifecycle transition.
func (ep *EventPublisher) PublishTransition(name, kind, operation, fromState, toState string) error {
	return ep.Publish(Event{
		Type:     EventTypeResourceTransitioned,
		Source:   "instrument",
		Resource: name,
		Kind:     kind,
		Message:  fmt.Sprintf("Resource %s state changed from %s to %s", name, fromState, toState),
		Level:    EventLevelInfo,
		Data: map[string]interface{}{
			"operation": operation,
			"old_state": fromState,
			"new_state": toState,
		},
	})
}

// PublishTransitionFailed publishes a rejected lifecycle operation.
func (ep *EventPublisher) PublishTransitionFailed(name, kind, operation, reason string) error {
	return ep.Publish(Event{
		Type:     EventTypeResourceTransitionFailed,
		Source:   "instrument",
		Resource: name,
		Kind:     kind,
		Message:  fmt.Sprintf("Cannot %s resource %s: %s", operation, name, reason),
		Level:    EventLevelWarning,
		Data: map[string]interface{}{
			"operation": operation,
			"reason":    reason,
		},
	})
}

// PublishPolicyViolation publishes a family policy rejection.
func (ep *EventPublisher) PublishPolicyViolation(name, kind, policyName, reason string) error {
	return ep.Publish(Event{
		Type:     EventTypePolicyViolation,
		Source:   "factory",
		Resource: name,
		Kind:     kind,
		Message:  fmt.Sprintf("Policy violation on resource %s: %s - %s", name, policyName, reason),
		Level:    EventLevelError,
		Data: map[string]interface{}{
			"policy": policyName,
			"reason": reason,
		},
	})
}

// PublishPolicyReloaded publishes a policy reload.
func (ep *EventPublisher) PublishPolicyReloaded(source string, count int) error {
	return ep.Publish(Event{
		Type:    EventTypePolicyReloaded,
		Source:  "policy",
		Message: fmt.Sprintf("Reloaded %d policies from %s", count, source),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"source": source,
			"count":  count,
		},
	})
}

// PublishLogAppendFailed publishes a failed observation append.
func (ep *EventPublisher) PublishLogAppendFailed(name, reason string) error {
	return ep.Publish(Event{
		Type:     EventTypeLogAppendFailed,
		Source:   "instrument",
		Resource: name,
		Message:  fmt.Sprintf("Failed to append log line for %s: %s", name, reason),
		Level:    EventLevelWarning,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// Subscribe adds a new event subscriber. A nil filter accepts every event.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	if ep == nil {
		return
	}
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	if ep == nil {
		return
	}
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents delivers buffered events in batches. A partial batch is
// delivered when the buffer is momentarily empty or the flush interval
// elapses.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	interval := ep.config.FlushInterval
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	batch := make([]Event, 0, ep.config.MaxBatchSize)
	flush := func() {
		if len(batch) > 0 {
			ep.flushBatch(batch)
			batch = make([]Event, 0, ep.config.MaxBatchSize)
		}
	}

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)
			if len(batch) >= ep.config.MaxBatchSize || len(ep.buffer) == 0 {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-ep.ctx.Done():
			// Drain what was accepted before shutdown.
			for {
				select {
				case event := <-ep.buffer:
					batch = append(batch, event)
				default:
					flush()
					return
				}
			}
		}
	}
}

// flushBatch delivers a batch of events to subscribers.
func (ep *EventPublisher) flushBatch(events []Event) {
	for _, event := range events {
		ep.deliverEvent(event)
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	subscribers := make([]subscriberEntry, len(ep.subscribers))
	copy(subscribers, ep.subscribers)
	ep.mu.RUnlock()

	for _, entry := range subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher, delivering events that
// were already accepted.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if ep == nil || !ep.config.Enabled {
		return nil
	}

	ep.cancel()

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByResource creates a filter that only allows events for a specific resource.
func FilterByResource(name string) EventFilter {
	return func(event Event) bool {
		return event.Resource == name
	}
}
