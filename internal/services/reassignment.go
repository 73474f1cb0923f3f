package services

import (
	"context"
	"fmt"
	"time"

	"washbay/internal/domain"
	"washbay/internal/ports"
	"washbay/logging"
)

// ReassignmentCoordinator moves a session off a faulty box. The old box is
// quarantined in maintenance and the session goes back to the queue with its
// original queue priority.
type ReassignmentCoordinator struct {
	runner    *Runner
	scheduler *Scheduler
	sessions  ports.SessionReader
}

// NewReassignmentCoordinator creates a new ReassignmentCoordinator
func NewReassignmentCoordinator(runner *Runner, scheduler *Scheduler, sessions ports.SessionReader) *ReassignmentCoordinator {
	return &ReassignmentCoordinator{
		runner:    runner,
		scheduler: scheduler,
		sessions:  sessions,
	}
}

// Reassign evicts an assigned or active session from its box. Release,
// quarantine and requeue commit together; the follow-up tick is separate
// and any later tick can redo it if this one fails.
func (c *ReassignmentCoordinator) Reassign(ctx context.Context, actor domain.Actor, sessionID, reason string) (*domain.Session, error) {
	if err := domain.RequirePrivileged(actor, "reassign"); err != nil {
		return nil, err
	}

	var oldBoxID string
	err := c.runner.Run(ctx, func(repo ports.Repository, now time.Time) error {
		s, err := repo.GetSession(ctx, sessionID)
		if err != nil {
			return err
		}
		from := s.Status
		boxID := s.BoxID
		if err := s.Requeue(now); err != nil {
			return err
		}
		if boxID == nil {
			return fmt.Errorf("%w: session %s is %s without a box", domain.ErrInvalidState, s.ID, from)
		}

		box, err := repo.GetBox(ctx, *boxID)
		if err != nil {
			return err
		}
		details := map[string]any{
			"box_number": box.Number,
			"from":       string(from),
			"reason":     reason,
		}
		if box.CleaningReservedBy != nil {
			details["canceled_cleaning_by"] = *box.CleaningReservedBy
			if err := box.CancelCleaning(now); err != nil {
				return err
			}
		}
		if err := box.Release(s.ID, now); err != nil {
			return err
		}
		if err := box.SetMaintenance(maintenanceReason(reason), now); err != nil {
			return err
		}

		if err := repo.UpdateSession(ctx, s); err != nil {
			return err
		}
		if err := repo.UpdateBox(ctx, box); err != nil {
			return err
		}
		if err := record(ctx, repo, now, actor, domain.EventSessionReassigned, &s.ID, &box.ID, details); err != nil {
			return err
		}
		oldBoxID = box.ID
		return record(ctx, repo, now, actor, domain.EventBoxMaintenanceSet, nil, &box.ID, map[string]any{
			"box_number": box.Number,
			"from":       string(domain.BoxBusy),
			"reason":     box.MaintenanceReason,
			"to":         string(domain.BoxMaintenance),
		})
	})
	if err != nil {
		logFailure("reassign", sessionID, actor, err)
		return nil, err
	}

	logging.Logger.Info("Session reassigned",
		"session_id", sessionID,
		"old_box_id", oldBoxID,
		"actor", actor.String())

	if _, err := c.scheduler.Tick(ctx); err != nil {
		logging.Logger.Warn("Scheduler tick after reassignment failed", "session_id", sessionID, "error", err)
	}
	return c.sessions.GetSession(ctx, sessionID)
}

func maintenanceReason(reason string) string {
	if reason == "" {
		return "reassigned"
	}
	return reason
}
