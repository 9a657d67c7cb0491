package messaging

import (
	"time"

	"github.com/google/uuid"
)

// ServiceName identifies this service as the source of published events
const ServiceName = "clinic-service"

// Event routing keys
const (
	EventPatientCreated     = "patient.created"
	EventPatientUpdated     = "patient.updated"
	EventPatientDeactivated = "patient.deactivated"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// PatientEvent is published for every patient lifecycle change
type PatientEvent struct {
	BaseEvent
	Data PatientEventData `json:"data"`
}

type PatientEventData struct {
	PatientID     int64      `json:"patient_id"`
	Name          string     `json:"nome"`
	Email         string     `json:"email"`
	Phone         string     `json:"telefone"`
	Active        bool       `json:"ativo"`
	ChangedFields []string   `json:"changed_fields,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

// NewBaseEvent creates a base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: ServiceName,
	}
}

// NewPatientEvent wraps data in an event of the given type
func NewPatientEvent(eventType string, data PatientEventData) PatientEvent {
	return PatientEvent{
		BaseEvent: NewBaseEvent(eventType),
		Data:      data,
	}
}

// ID returns the event id, used as the AMQP message id
func (e BaseEvent) ID() string {
	return e.EventID
}
