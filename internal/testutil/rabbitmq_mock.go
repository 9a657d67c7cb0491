package testutil

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/WailSalutem-Health-Care/clinic-service/internal/messaging"
)

var _ messaging.PublisherInterface = (*MockPublisher)(nil)

// PublishedEvent is one message captured by MockPublisher
type PublishedEvent struct {
	RoutingKey string
	EventData  interface{}
	RawJSON    []byte
}

// Patient returns the captured payload as a patient event
func (e PublishedEvent) Patient(t *testing.T) messaging.PatientEvent {
	t.Helper()

	var event messaging.PatientEvent
	if err := json.Unmarshal(e.RawJSON, &event); err != nil {
		t.Fatalf("Event %s is not a patient event: %v", e.RoutingKey, err)
	}
	return event
}

// MockPublisher keeps published events in memory instead of sending them to
// RabbitMQ. Setting Err makes every Publish call fail without recording.
type MockPublisher struct {
	mu     sync.Mutex
	events []PublishedEvent

	Err error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish marshals eventData the way the real publisher does and records it
func (m *MockPublisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	raw, err := json.Marshal(eventData)
	if err != nil {
		return err
	}

	m.events = append(m.events, PublishedEvent{
		RoutingKey: routingKey,
		EventData:  eventData,
		RawJSON:    raw,
	})
	return nil
}

func (m *MockPublisher) Close() error {
	return nil
}

// Events returns the recorded events for routingKey, or all of them when
// routingKey is empty.
func (m *MockPublisher) Events(routingKey string) []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []PublishedEvent
	for _, e := range m.events {
		if routingKey == "" || e.RoutingKey == routingKey {
			out = append(out, e)
		}
	}
	return out
}

// GetEventCount returns the total number of events published
func (m *MockPublisher) GetEventCount() int {
	return len(m.Events(""))
}

// GetLastEventByKey returns the latest event with routingKey, or nil
func (m *MockPublisher) GetLastEventByKey(routingKey string) *PublishedEvent {
	events := m.Events(routingKey)
	if len(events) == 0 {
		return nil
	}
	return &events[len(events)-1]
}

func (m *MockPublisher) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

func (m *MockPublisher) AssertEventCount(t *testing.T, routingKey string, expected int) {
	t.Helper()
	assert.Len(t, m.Events(routingKey), expected, "events with routing key %q", routingKey)
}

func (m *MockPublisher) AssertEventNotPublished(t *testing.T, routingKey string) {
	t.Helper()
	m.AssertEventCount(t, routingKey, 0)
}
