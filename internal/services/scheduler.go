package services

import (
	"context"
	"time"

	"washbay/internal/domain"
	"washbay/internal/ports"
	"washbay/logging"
)

// Assignment is one queue match made by the scheduler
type Assignment struct {
	BoxID     string `json:"box_id" yaml:"box_id"`
	BoxNumber int    `json:"box_number" yaml:"box_number"`
	SessionID string `json:"session_id" yaml:"session_id"`
}

// TickResult reports what a scheduler pass changed
type TickResult struct {
	Assigned []Assignment `json:"assigned" yaml:"assigned"`
	Expired  []string     `json:"expired" yaml:"expired"`
}

// Scheduler expires overdue sessions and matches the queue against free boxes
type Scheduler struct {
	assignTimeout time.Duration
	runner        *Runner
}

// NewScheduler creates a new Scheduler. A zero assignTimeout disables
// expiry of sessions that were assigned but never started.
func NewScheduler(runner *Runner, assignTimeout time.Duration) *Scheduler {
	return &Scheduler{
		assignTimeout: assignTimeout,
		runner:        runner,
	}
}

// Tick expires overdue sessions, then assigns queued sessions in FIFO order
// to the lowest-numbered compatible free box until no match remains. Each
// match commits on its own; a failure stops the pass and leaves the rest of
// the queue for the next tick.
func (s *Scheduler) Tick(ctx context.Context) (TickResult, error) {
	var result TickResult

	err := s.runner.Run(ctx, func(repo ports.Repository, now time.Time) error {
		expired, err := expireOverdue(ctx, repo, s.assignTimeout, now)
		result.Expired = expired
		return err
	})
	if err != nil {
		logging.Logger.Warn("Tick aborted while expiring sessions", "error", err)
		return TickResult{}, err
	}

	for {
		var match *Assignment
		err := s.runner.Run(ctx, func(repo ports.Repository, now time.Time) error {
			m, err := assignNext(ctx, repo, now)
			match = m
			return err
		})
		if err != nil {
			logging.Logger.Warn("Tick aborted while assigning", "error", err, "assigned", len(result.Assigned))
			return result, err
		}
		if match == nil {
			break
		}
		logging.Logger.Info("Session assigned",
			"session_id", match.SessionID,
			"box_id", match.BoxID,
			"box_number", match.BoxNumber)
		result.Assigned = append(result.Assigned, *match)
	}

	return result, nil
}

// assignNext makes the first FIFO match, or returns nil when none exists
func assignNext(ctx context.Context, repo ports.Repository, now time.Time) (*Assignment, error) {
	queue, err := repo.ListQueue(ctx)
	if err != nil || len(queue) == 0 {
		return nil, err
	}
	free, err := repo.ListBoxes(ctx, domain.BoxFilter{Statuses: []domain.BoxStatus{domain.BoxFree}})
	if err != nil || len(free) == 0 {
		return nil, err
	}

	for i := range queue {
		session := &queue[i]
		candidates := compatibleBoxes(free, session.ServiceType, session.WithChemistry)
		if len(candidates) == 0 {
			continue
		}
		box := &candidates[0]
		if err := occupyAndAssign(ctx, repo, session, box, domain.SystemActor, now); err != nil {
			return nil, err
		}
		return &Assignment{BoxID: box.ID, BoxNumber: box.Number, SessionID: session.ID}, nil
	}
	return nil, nil
}

// compatibleBoxes filters boxes, keeping their order
func compatibleBoxes(boxes []domain.Box, serviceType domain.ServiceType, requireChemistry bool) []domain.Box {
	var out []domain.Box
	for _, b := range boxes {
		if b.CompatibleWith(serviceType, requireChemistry) {
			out = append(out, b)
		}
	}
	return out
}

// occupyAndAssign binds session and box in the caller's transaction
func occupyAndAssign(
	ctx context.Context,
	repo ports.Repository,
	session *domain.Session,
	box *domain.Box,
	actor domain.Actor,
	now time.Time,
) error {
	if err := box.Occupy(session.ID, now); err != nil {
		return err
	}
	if err := session.Assign(box.ID, now); err != nil {
		return err
	}
	if err := repo.UpdateBox(ctx, box); err != nil {
		return err
	}
	if err := repo.UpdateSession(ctx, session); err != nil {
		return err
	}
	return record(ctx, repo, now, actor, domain.EventSessionAssigned, &session.ID, &box.ID, map[string]any{
		"box_number": box.Number,
	})
}
