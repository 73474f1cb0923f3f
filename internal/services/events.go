package services

import (
	"context"
	"time"

	"washbay/internal/domain"
	"washbay/internal/ports"
)

// record appends an audit event inside the caller's transaction
func record(
	ctx context.Context,
	repo ports.Repository,
	now time.Time,
	actor domain.Actor,
	typ domain.EventType,
	sessionID *string,
	boxID *string,
	details map[string]any,
) error {
	return repo.AppendEvent(ctx, &domain.Event{
		Actor:     actor,
		BoxID:     boxID,
		CreatedAt: now,
		Details:   details,
		SessionID: sessionID,
		Type:      typ,
	})
}

// EventService exposes the audit trail
type EventService struct {
	events ports.EventRepository
}

// NewEventService creates a new EventService
func NewEventService(events ports.EventRepository) *EventService {
	return &EventService{events: events}
}

// List returns audit events matching filter, oldest first
func (s *EventService) List(ctx context.Context, filter ports.EventFilter) ([]domain.Event, error) {
	return s.events.ListEvents(ctx, filter)
}
