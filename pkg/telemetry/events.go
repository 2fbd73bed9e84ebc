package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one observable moment in a packaging run.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies the component that emitted the event.
	Source string `json:"source"`

	// RunID is the associated run ID, if applicable.
	RunID string `json:"run_id,omitempty"`

	// Resource is the associated resource name, if applicable.
	Resource string `json:"resource,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific fields.
	Data map[string]interface{} `json:"data,omitempty"`
}

// Event types emitted across a packaging run.
const (
	EventTypeRunStarted        = "run.started"
	EventTypeRunCompleted      = "run.completed"
	EventTypeRunFailed         = "run.failed"
	EventTypeResourceDecided   = "resource.decided"
	EventTypePlacementConflict = "resource.conflict"
	EventTypeCallbackFailed    = "callback.failed"
	EventTypeAuditFinding      = "audit.finding"
	EventTypeReplanTriggered   = "watch.replan"
)

// Event severity levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events. Subscribers run on
// the delivery goroutine in publish order; keep them fast.
type EventSubscriber func(event Event)

// EventFilter decides whether an event is delivered.
type EventFilter func(event Event) bool

// EventPublisher fans events out to subscribers, optionally buffering
// them on a background goroutine.
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

// NewEventPublisher creates an event publisher. A disabled configuration
// yields a no-op publisher.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	return ep, nil
}

// Publish delivers an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
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
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	ep.deliverEvent(event)
	return nil
}

// PublishRunStarted publishes a run started event.
func (ep *EventPublisher) PublishRunStarted(runID, command string) error {
	return ep.Publish(Event{
		Type:    EventTypeRunStarted,
		Source:  "collector",
		RunID:   runID,
		Message: fmt.Sprintf("run %s started (%s)", runID, command),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"command": command,
		},
	})
}

// PublishRunCompleted publishes a run completed event.
func (ep *EventPublisher) PublishRunCompleted(runID, status string, duration time.Duration) error {
	return ep.Publish(Event{
		Type:    EventTypeRunCompleted,
		Source:  "collector",
		RunID:   runID,
		Message: fmt.Sprintf("run %s completed: %s", runID, status),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"status":   status,
			"duration": duration.Seconds(),
		},
	})
}

// PublishRunFailed publishes a run failed event.
func (ep *EventPublisher) PublishRunFailed(runID, reason string) error {
	return ep.Publish(Event{
		Type:    EventTypeRunFailed,
		Source:  "collector",
		RunID:   runID,
		Message: fmt.Sprintf("run %s failed: %s", runID, reason),
		Level:   EventLevelError,
		Data: map[string]interface{}{
			"reason": reason,
		},
	})
}

// PublishResourceDecided publishes a per-resource decision event.
func (ep *EventPublisher) PublishResourceDecided(runID, resource, outcome, location string) error {
	return ep.Publish(Event{
		Type:     EventTypeResourceDecided,
		Source:   "collector",
		RunID:    runID,
		Resource: resource,
		Message:  fmt.Sprintf("resource %s: %s", resource, outcome),
		Level:    EventLevelInfo,
		Data: map[string]interface{}{
			"outcome":  outcome,
			"location": location,
		},
	})
}

// PublishPlacementConflict publishes a placement conflict event.
func (ep *EventPublisher) PublishPlacementConflict(runID, resource, detail string) error {
	return ep.Publish(Event{
		Type:     EventTypePlacementConflict,
		Source:   "collector",
		RunID:    runID,
		Resource: resource,
		Message:  fmt.Sprintf("placement conflict on %s: %s", resource, detail),
		Level:    EventLevelWarning,
		Data: map[string]interface{}{
			"detail": detail,
		},
	})
}

// PublishCallbackFailed publishes a callback failure event.
func (ep *EventPublisher) PublishCallbackFailed(runID, resource, callback, reason string) error {
	return ep.Publish(Event{
		Type:     EventTypeCallbackFailed,
		Source:   "collector",
		RunID:    runID,
		Resource: resource,
		Message:  fmt.Sprintf("callback %s failed on %s: %s", callback, resource, reason),
		Level:    EventLevelError,
		Data: map[string]interface{}{
			"callback": callback,
			"reason":   reason,
		},
	})
}

// PublishAuditFinding publishes a guardrail finding event.
func (ep *EventPublisher) PublishAuditFinding(runID, resource, policy, severity, message string) error {
	level := EventLevelWarning
	if severity == "error" {
		level = EventLevelError
	}
	return ep.Publish(Event{
		Type:     EventTypeAuditFinding,
		Source:   "audit",
		RunID:    runID,
		Resource: resource,
		Message:  fmt.Sprintf("audit %s on %s: %s", policy, resource, message),
		Level:    level,
		Data: map[string]interface{}{
			"policy":   policy,
			"severity": severity,
		},
	})
}

// PublishReplanTriggered publishes a watch-mode replan event.
func (ep *EventPublisher) PublishReplanTriggered(path string) error {
	return ep.Publish(Event{
		Type:    EventTypeReplanTriggered,
		Source:  "watch",
		Message: fmt.Sprintf("change detected in %s, replanning", path),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"path": path,
		},
	})
}

// Subscribe adds an event subscriber. A nil filter receives everything.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter applied before buffering.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents drains the buffer on a background goroutine, delivering
// in batches of MaxBatchSize or every FlushInterval, whichever comes
// first.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	ticker := time.NewTicker(ep.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, ep.config.MaxBatchSize)

	flush := func() {
		for _, event := range batch {
			ep.deliverEvent(event)
		}
		batch = batch[:0]
	}

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)
			if len(batch) >= ep.config.MaxBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ep.ctx.Done():
			// Drain whatever is still buffered before stopping.
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

// deliverEvent delivers an event to all matching subscribers, in
// subscription order.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Shutdown stops the publisher, delivering buffered events first.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
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

// FilterByLevel allows events of the given level or higher.
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

// FilterByType allows events of the given types only.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByRunID allows events of a single run.
func FilterByRunID(runID string) EventFilter {
	return func(event Event) bool {
		return event.RunID == runID
	}
}

// FilterByResource allows events of a single resource.
func FilterByResource(name string) EventFilter {
	return func(event Event) bool {
		return event.Resource == name
	}
}
