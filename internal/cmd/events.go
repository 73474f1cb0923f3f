package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"washbay/internal/domain"
	"washbay/internal/ports"
)

// EventsCmd inspects the audit trail
type EventsCmd struct {
	List EventsListCmd `cmd:"list" help:"List audit events, oldest first" default:"1"`
}

// EventsListCmd lists audit events
type EventsListCmd struct {
	Box     int    `help:"Only events for this box number"`
	Format  string `help:"Output format" enum:"table,json,yaml" default:"table"`
	Limit   int    `help:"Show only the most recent N events (0 = all)" default:"50"`
	Session string `help:"Only events for this session id"`
	Since   string `help:"Only events at or after this time (RFC3339 or relative, e.g. 30m)"`
	Type    string `help:"Only events of this type"`
}

type eventRecord struct {
	ActorID   string         `json:"actor_id,omitempty" yaml:"actor_id,omitempty"`
	ActorRole string         `json:"actor_role" yaml:"actor_role"`
	BoxID     *string        `json:"box_id,omitempty" yaml:"box_id,omitempty"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
	Details   map[string]any `json:"details,omitempty" yaml:"details,omitempty"`
	ID        string         `json:"id" yaml:"id"`
	SessionID *string        `json:"session_id,omitempty" yaml:"session_id,omitempty"`
	Type      string         `json:"type" yaml:"type"`
}

// Run executes the list command
func (e *EventsListCmd) Run(cli *CLI) error {
	ctx := context.Background()
	since, err := parseTimeFlag(e.Since, cli.Container.Now())
	if err != nil {
		return err
	}
	filter := ports.EventFilter{
		Limit:     e.Limit,
		SessionID: e.Session,
		Type:      domain.EventType(e.Type),
	}
	if since != nil {
		filter.Since = *since
	}
	if e.Box > 0 {
		box, err := cli.Container.BoxRegistry.GetByNumber(ctx, e.Box)
		if err != nil {
			return err
		}
		filter.BoxID = box.ID
	}

	events, err := cli.Container.EventService.List(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}
	if e.Format == formatTable {
		renderEvents(os.Stdout, events)
		return nil
	}

	records := make([]eventRecord, len(events))
	for i, ev := range events {
		records[i] = eventRecord{
			ActorID:   ev.Actor.ID,
			ActorRole: string(ev.Actor.Role),
			BoxID:     ev.BoxID,
			CreatedAt: ev.CreatedAt,
			Details:   ev.Details,
			ID:        ev.ID,
			SessionID: ev.SessionID,
			Type:      string(ev.Type),
		}
	}
	return writeStructured(os.Stdout, e.Format, records)
}
