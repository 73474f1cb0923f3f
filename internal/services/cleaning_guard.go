package services

import (
	"context"
	"time"

	"washbay/internal/domain"
	"washbay/internal/ports"
)

// CleaningGuard enforces that at most one box in the facility is reserved
// for cleaning or being cleaned at any time. The check runs inside the same
// transaction as the write, and the store's unique cleaning-slot index
// rejects a second holder written by another process.
type CleaningGuard struct {
	runner    *Runner
	scheduler *Scheduler
}

// NewCleaningGuard creates a new CleaningGuard
func NewCleaningGuard(runner *Runner, scheduler *Scheduler) *CleaningGuard {
	return &CleaningGuard{runner: runner, scheduler: scheduler}
}

// ReserveCleaning claims the cleaning slot for a box. A busy box stays busy
// until its session ends and then waits in reserved for the cleaner.
func (g *CleaningGuard) ReserveCleaning(ctx context.Context, actor domain.Actor, boxID string) (*domain.Box, error) {
	operator := operatorID(actor)
	return mutateBox(ctx, g.runner, nil, actor, "reserve cleaning", boxID, domain.EventBoxCleaningReserved,
		map[string]any{"operator": operator},
		func(repo ports.Repository, b *domain.Box, now time.Time) error {
			if err := checkSlot(ctx, repo, b.ID); err != nil {
				return err
			}
			return b.ReserveCleaning(operator, now)
		})
}

// StartCleaning begins cleaning a vacant box. A free box with no
// reservation can be started directly if the slot is open.
func (g *CleaningGuard) StartCleaning(ctx context.Context, actor domain.Actor, boxID string) (*domain.Box, error) {
	operator := operatorID(actor)
	return mutateBox(ctx, g.runner, nil, actor, "start cleaning", boxID, domain.EventBoxCleaningStarted,
		map[string]any{"operator": operator},
		func(repo ports.Repository, b *domain.Box, now time.Time) error {
			if err := checkSlot(ctx, repo, b.ID); err != nil {
				return err
			}
			return b.StartCleaning(operator, now)
		})
}

// CancelCleaning drops a reservation that has not started
func (g *CleaningGuard) CancelCleaning(ctx context.Context, actor domain.Actor, boxID string) (*domain.Box, error) {
	return mutateBox(ctx, g.runner, g.scheduler, actor, "cancel cleaning", boxID, domain.EventBoxCleaningCanceled, nil,
		func(_ ports.Repository, b *domain.Box, now time.Time) error { return b.CancelCleaning(now) })
}

// CompleteCleaning returns the cleaned box to service and frees the slot
func (g *CleaningGuard) CompleteCleaning(ctx context.Context, actor domain.Actor, boxID string) (*domain.Box, error) {
	return mutateBox(ctx, g.runner, g.scheduler, actor, "complete cleaning", boxID, domain.EventBoxCleaningCompleted, nil,
		func(_ ports.Repository, b *domain.Box, now time.Time) error { return b.CompleteCleaning(now) })
}

// Holder returns the box currently holding the cleaning slot, or nil
func (g *CleaningGuard) Holder(ctx context.Context) (*domain.Box, error) {
	var holder *domain.Box
	err := g.runner.Run(ctx, func(repo ports.Repository, _ time.Time) error {
		boxes, err := repo.ListBoxes(ctx, domain.BoxFilter{})
		if err != nil {
			return err
		}
		for i := range boxes {
			if boxes[i].HoldsCleaningSlot() {
				holder = &boxes[i]
				return nil
			}
		}
		return nil
	})
	return holder, err
}

func checkSlot(ctx context.Context, repo ports.Repository, boxID string) error {
	boxes, err := repo.ListBoxes(ctx, domain.BoxFilter{})
	if err != nil {
		return err
	}
	return domain.CheckCleaningSlot(boxes, boxID)
}

func operatorID(actor domain.Actor) string {
	if actor.ID != "" {
		return actor.ID
	}
	return string(actor.Role)
}
