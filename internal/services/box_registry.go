package services

import (
	"context"
	"time"

	"washbay/internal/domain"
	"washbay/internal/ports"
	"washbay/logging"
)

// BoxRegistry owns box queries and operator holds
type BoxRegistry struct {
	boxes     ports.BoxRepository
	runner    *Runner
	scheduler *Scheduler
}

// NewBoxRegistry creates a new BoxRegistry
func NewBoxRegistry(runner *Runner, scheduler *Scheduler, boxes ports.BoxRepository) *BoxRegistry {
	return &BoxRegistry{
		boxes:     boxes,
		runner:    runner,
		scheduler: scheduler,
	}
}

// Get returns a box by id
func (r *BoxRegistry) Get(ctx context.Context, id string) (*domain.Box, error) {
	return r.boxes.GetBox(ctx, id)
}

// GetByNumber returns a box by its display number
func (r *BoxRegistry) GetByNumber(ctx context.Context, number int) (*domain.Box, error) {
	return r.boxes.GetBoxByNumber(ctx, number)
}

// List returns boxes matching filter ordered by number
func (r *BoxRegistry) List(ctx context.Context, filter domain.BoxFilter) ([]domain.Box, error) {
	return r.boxes.ListBoxes(ctx, filter)
}

// FindCompatible returns the free boxes able to serve the request,
// lowest number first.
func (r *BoxRegistry) FindCompatible(ctx context.Context, serviceType domain.ServiceType, requireChemistry bool) ([]domain.Box, error) {
	free, err := r.boxes.ListBoxes(ctx, domain.BoxFilter{
		ServiceType: serviceType,
		Statuses:    []domain.BoxStatus{domain.BoxFree},
	})
	if err != nil {
		return nil, err
	}
	return compatibleBoxes(free, serviceType, requireChemistry), nil
}

// SyncFleet upserts the configured fleet and runs the scheduler so that
// newly added boxes pick up waiting sessions.
func (r *BoxRegistry) SyncFleet(ctx context.Context, fleet []domain.Box) (int, error) {
	created, err := r.boxes.SyncFleet(ctx, fleet)
	if err != nil {
		return 0, err
	}
	if created > 0 {
		logging.Logger.Info("Fleet synchronised", "created", created, "total", len(fleet))
		if _, err := r.scheduler.Tick(ctx); err != nil {
			logging.Logger.Warn("Scheduler tick after fleet sync failed", "error", err)
		}
	}
	return created, nil
}

// Reserve places an operator hold on a free box
func (r *BoxRegistry) Reserve(ctx context.Context, actor domain.Actor, id string) (*domain.Box, error) {
	return mutateBox(ctx, r.runner, nil, actor, "reserve", id, domain.EventBoxReserved, nil,
		func(_ ports.Repository, b *domain.Box, now time.Time) error { return b.Reserve(now) })
}

// Unreserve lifts an operator hold and lets the scheduler use the box
func (r *BoxRegistry) Unreserve(ctx context.Context, actor domain.Actor, id string) (*domain.Box, error) {
	return mutateBox(ctx, r.runner, r.scheduler, actor, "unreserve", id, domain.EventBoxUnreserved, nil,
		func(_ ports.Repository, b *domain.Box, now time.Time) error { return b.Unreserve(now) })
}

// SetMaintenance takes a free box out of service
func (r *BoxRegistry) SetMaintenance(ctx context.Context, actor domain.Actor, id, reason string) (*domain.Box, error) {
	return mutateBox(ctx, r.runner, nil, actor, "set maintenance", id, domain.EventBoxMaintenanceSet,
		map[string]any{"reason": reason},
		func(_ ports.Repository, b *domain.Box, now time.Time) error { return b.SetMaintenance(reason, now) })
}

// ClearMaintenance returns a box to service and runs the scheduler
func (r *BoxRegistry) ClearMaintenance(ctx context.Context, actor domain.Actor, id string) (*domain.Box, error) {
	return mutateBox(ctx, r.runner, r.scheduler, actor, "clear maintenance", id, domain.EventBoxMaintenanceCleared, nil,
		func(_ ports.Repository, b *domain.Box, now time.Time) error { return b.ClearMaintenance(now) })
}

// mutateBox applies one privileged box transition in a transaction and
// records the event. When scheduler is set and the box ends up free, a
// tick follows the commit.
func mutateBox(
	ctx context.Context,
	runner *Runner,
	scheduler *Scheduler,
	actor domain.Actor,
	op string,
	id string,
	eventType domain.EventType,
	details map[string]any,
	apply func(repo ports.Repository, b *domain.Box, now time.Time) error,
) (*domain.Box, error) {
	if err := domain.RequirePrivileged(actor, op); err != nil {
		return nil, err
	}

	var box *domain.Box
	err := runner.Run(ctx, func(repo ports.Repository, now time.Time) error {
		b, err := repo.GetBox(ctx, id)
		if err != nil {
			return err
		}
		from := b.Status
		if err := apply(repo, b, now); err != nil {
			return err
		}
		if err := repo.UpdateBox(ctx, b); err != nil {
			return err
		}
		eventDetails := map[string]any{"box_number": b.Number, "from": string(from), "to": string(b.Status)}
		for k, v := range details {
			eventDetails[k] = v
		}
		box = b
		return record(ctx, repo, now, actor, eventType, b.OccupiedBy, &b.ID, eventDetails)
	})
	if err != nil {
		logFailure(op, id, actor, err)
		return nil, err
	}

	logging.Logger.Info("Box transition",
		"box_id", box.ID,
		"box_number", box.Number,
		"event", eventType,
		"status", box.Status,
		"actor", actor.String())

	if scheduler != nil && box.Status == domain.BoxFree {
		if _, err := scheduler.Tick(ctx); err != nil {
			logging.Logger.Warn("Scheduler tick after box transition failed", "error", err)
		}
		if fresh, err := getBoxFresh(ctx, runner, id); err == nil {
			box = fresh
		}
	}
	return box, nil
}

func getBoxFresh(ctx context.Context, runner *Runner, id string) (*domain.Box, error) {
	var box *domain.Box
	err := runner.Run(ctx, func(repo ports.Repository, _ time.Time) error {
		b, err := repo.GetBox(ctx, id)
		box = b
		return err
	})
	return box, err
}
