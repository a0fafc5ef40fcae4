package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a governance event delivered to subscribers. The notify
// action and fired deny rules surface through this channel so external
// systems (chat hooks, ticketing, audit) can react without polling.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// PolicyID is the associated policy or framework ID, if applicable.
	PolicyID string `json:"policy_id,omitempty"`

	// ResourceID is the associated resource ID, if applicable.
	ResourceID string `json:"resource_id,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeDenial           = "policy.denied"
	EventTypeWarning          = "policy.warning"
	EventTypeNotification     = "policy.notification"
	EventTypeApprovalRequired = "policy.approval_required"
	EventTypeViolation        = "policy.violation"
	EventTypeScanCompleted    = "scan.completed"
	EventTypeReportGenerated  = "compliance.report"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be delivered.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given
// configuration. A disabled publisher accepts and drops everything.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config: cfg,
		buffer: make(chan Event, cfg.BufferSize),
		ctx:    ctx,
		cancel: cancel,
	}

	if cfg.EnableAsync {
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

// PublishDenial publishes a fired deny rule.
func (ep *EventPublisher) PublishDenial(policyID, resourceID, message string) error {
	return ep.Publish(Event{
		Type:       EventTypeDenial,
		Source:     "policy_engine",
		PolicyID:   policyID,
		ResourceID: resourceID,
		Message:    fmt.Sprintf("Policy %s denied resource %s: %s", policyID, resourceID, message),
		Level:      EventLevelError,
	})
}

// PublishNotification publishes a fired notify rule.
func (ep *EventPublisher) PublishNotification(policyID, resourceID, message string) error {
	return ep.Publish(Event{
		Type:       EventTypeNotification,
		Source:     "policy_engine",
		PolicyID:   policyID,
		ResourceID: resourceID,
		Message:    message,
		Level:      EventLevelInfo,
	})
}

// PublishApprovalRequired publishes a fired require_approval rule.
func (ep *EventPublisher) PublishApprovalRequired(policyID, resourceID, message string) error {
	return ep.Publish(Event{
		Type:       EventTypeApprovalRequired,
		Source:     "policy_engine",
		PolicyID:   policyID,
		ResourceID: resourceID,
		Message:    message,
		Level:      EventLevelWarning,
	})
}

// PublishViolation publishes a scan violation.
func (ep *EventPublisher) PublishViolation(policyID, resourceID, severity, message string) error {
	return ep.Publish(Event{
		Type:       EventTypeViolation,
		Source:     "scanner",
		PolicyID:   policyID,
		ResourceID: resourceID,
		Message:    fmt.Sprintf("Violation of %s on resource %s: %s", policyID, resourceID, message),
		Level:      EventLevelWarning,
		Data: map[string]interface{}{
			"severity": severity,
		},
	})
}

// PublishScanCompleted publishes a scan summary.
func (ep *EventPublisher) PublishScanCompleted(resources, violations int) error {
	return ep.Publish(Event{
		Type:    EventTypeScanCompleted,
		Source:  "scanner",
		Message: fmt.Sprintf("Scan completed: %d resources, %d violations", resources, violations),
		Level:   EventLevelInfo,
		Data: map[string]interface{}{
			"resources":  resources,
			"violations": violations,
		},
	})
}

// PublishReportGenerated publishes a compliance report summary.
func (ep *EventPublisher) PublishReportGenerated(frameworkID string, score int, grade string) error {
	return ep.Publish(Event{
		Type:     EventTypeReportGenerated,
		Source:   "compliance",
		PolicyID: frameworkID,
		Message:  fmt.Sprintf("Framework %s scored %d (%s)", frameworkID, score, grade),
		Level:    EventLevelInfo,
		Data: map[string]interface{}{
			"score": score,
			"grade": grade,
		},
	})
}

// Subscribe adds a new event subscriber. A nil filter receives everything.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	for {
		select {
		case event := <-ep.buffer:
			ep.deliverEvent(event)
		case <-ep.ctx.Done():
			// Drain remaining events before shutting down
			for {
				select {
				case event := <-ep.buffer:
					ep.deliverEvent(event)
				default:
					return
				}
			}
		}
	}
}

// deliverEvent delivers an event to all subscribers.
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

// Shutdown gracefully shuts down the event publisher.
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

// FilterByLevel creates a filter that only allows events at or above a
// minimum level.
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
