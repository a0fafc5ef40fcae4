package telemetry

import (
	"testing"
)

func syncPublisher(t *testing.T) *EventPublisher {
	t.Helper()
	ep, err := NewEventPublisher(EventsConfig{Enabled: true, BufferSize: 16})
	if err != nil {
		t.Fatalf("NewEventPublisher() error = %v", err)
	}
	return ep
}

func TestEventPublisherSyncDelivery(t *testing.T) {
	ep := syncPublisher(t)

	var got []Event
	ep.Subscribe(func(e Event) { got = append(got, e) }, nil)

	if err := ep.PublishDenial("no-public-buckets", "bucket-1", "bucket is public"); err != nil {
		t.Fatalf("PublishDenial() error = %v", err)
	}
	if err := ep.PublishScanCompleted(10, 2); err != nil {
		t.Fatalf("PublishScanCompleted() error = %v", err)
	}

	if len(got) != 2 {
		t.Fatalf("delivered %d events, want 2", len(got))
	}

	denial := got[0]
	if denial.Type != EventTypeDenial || denial.Level != EventLevelError {
		t.Errorf("denial event = %+v", denial)
	}
	if denial.PolicyID != "no-public-buckets" || denial.ResourceID != "bucket-1" {
		t.Errorf("denial identity = %s / %s", denial.PolicyID, denial.ResourceID)
	}
	if denial.ID == "" || denial.Timestamp.IsZero() {
		t.Error("event identity fields not defaulted")
	}

	scan := got[1]
	if scan.Type != EventTypeScanCompleted || scan.Data["violations"] != 2 {
		t.Errorf("scan event = %+v", scan)
	}
}

func TestEventPublisherFilters(t *testing.T) {
	ep := syncPublisher(t)

	var errorsOnly, violationsOnly int
	ep.Subscribe(func(Event) { errorsOnly++ }, FilterByLevel(EventLevelError))
	ep.Subscribe(func(Event) { violationsOnly++ }, FilterByType(EventTypeViolation))

	_ = ep.PublishDenial("p1", "r1", "denied")
	_ = ep.PublishNotification("p1", "r1", "note")
	_ = ep.PublishViolation("p1", "r1", "high", "open finding")

	if errorsOnly != 1 {
		t.Errorf("error-level subscriber saw %d events, want 1", errorsOnly)
	}
	if violationsOnly != 1 {
		t.Errorf("violation-type subscriber saw %d events, want 1", violationsOnly)
	}
}

func TestEventPublisherDisabled(t *testing.T) {
	ep, err := NewEventPublisher(EventsConfig{Enabled: false})
	if err != nil {
		t.Fatalf("NewEventPublisher() error = %v", err)
	}

	delivered := 0
	ep.Subscribe(func(Event) { delivered++ }, nil)

	if err := ep.PublishDenial("p1", "r1", "denied"); err != nil {
		t.Fatalf("Publish on a disabled publisher errored: %v", err)
	}
	if delivered != 0 {
		t.Errorf("disabled publisher delivered %d events", delivered)
	}

	// A nil publisher is also safe.
	var nilPub *EventPublisher
	if err := nilPub.PublishDenial("p1", "r1", "denied"); err != nil {
		t.Errorf("nil publisher errored: %v", err)
	}
}
