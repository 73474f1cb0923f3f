package ports

import (
	"context"
	"time"

	"washbay/internal/domain"
)

// EventFilter specifies criteria for filtering audit events
type EventFilter struct {
	BoxID     string
	Limit     int
	SessionID string
	Since     time.Time
	Type      domain.EventType
}

// EventRepository appends and reads the audit trail
type EventRepository interface {
	AppendEvent(ctx context.Context, e *domain.Event) error
	ListEvents(ctx context.Context, filter EventFilter) ([]domain.Event, error)
}
