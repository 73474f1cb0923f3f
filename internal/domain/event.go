package domain

import "time"

// EventType names an audited state change
type EventType string

const (
	EventBoxCleaningCanceled   EventType = "box_cleaning_canceled"
	EventBoxCleaningCompleted  EventType = "box_cleaning_completed"
	EventBoxCleaningReserved   EventType = "box_cleaning_reserved"
	EventBoxCleaningStarted    EventType = "box_cleaning_started"
	EventBoxMaintenanceCleared EventType = "box_maintenance_cleared"
	EventBoxMaintenanceSet     EventType = "box_maintenance_set"
	EventBoxReserved           EventType = "box_reserved"
	EventBoxUnreserved         EventType = "box_unreserved"
	EventSessionAssigned       EventType = "session_assigned"
	EventSessionCanceled       EventType = "session_canceled"
	EventSessionChemistryOn    EventType = "session_chemistry_on"
	EventSessionCompleted      EventType = "session_completed"
	EventSessionCreated        EventType = "session_created"
	EventSessionExpired        EventType = "session_expired"
	EventSessionExtended       EventType = "session_extended"
	EventSessionPaymentFailed  EventType = "session_payment_failed"
	EventSessionQueued         EventType = "session_queued"
	EventSessionReassigned     EventType = "session_reassigned"
	EventSessionStarted        EventType = "session_started"
)

// Event is an audit record of a successful command
type Event struct {
	Actor     Actor
	BoxID     *string
	CreatedAt time.Time
	Details   map[string]any
	ID        string
	SessionID *string
	Type      EventType
}

// SessionFilter narrows a session listing
type SessionFilter struct {
	BoxID    string
	Since    *time.Time
	Statuses []SessionStatus
}

// BoxFilter narrows a box listing
type BoxFilter struct {
	ServiceType ServiceType
	Statuses    []BoxStatus
}
