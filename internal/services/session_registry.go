package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"washbay/internal/domain"
	"washbay/internal/ports"
	"washbay/logging"
)

// CreateSessionParams contains parameters for creating a new session.
// A zero ChemistryTimeMinutes uses the facility default.
type CreateSessionParams struct {
	CarNumber            string
	ChemistryTimeMinutes int
	RentalTimeMinutes    int
	ServiceType          domain.ServiceType
	WithChemistry        bool
}

// SessionRegistry owns the session lifecycle. Every transition that frees a
// box or grows the queue is followed by a scheduler tick.
type SessionRegistry struct {
	assignTimeout    time.Duration
	chemistryMinutes int
	runner           *Runner
	scheduler        *Scheduler
	sessions         ports.SessionReader
}

// NewSessionRegistry creates a new SessionRegistry
func NewSessionRegistry(
	runner *Runner,
	scheduler *Scheduler,
	sessions ports.SessionReader,
	chemistryMinutes int,
	assignTimeout time.Duration,
) *SessionRegistry {
	return &SessionRegistry{
		assignTimeout:    assignTimeout,
		chemistryMinutes: chemistryMinutes,
		runner:           runner,
		scheduler:        scheduler,
		sessions:         sessions,
	}
}

// Get returns a session by id
func (r *SessionRegistry) Get(ctx context.Context, id string) (*domain.Session, error) {
	return r.sessions.GetSession(ctx, id)
}

// List returns sessions matching filter, oldest first
func (r *SessionRegistry) List(ctx context.Context, filter domain.SessionFilter) ([]domain.Session, error) {
	return r.sessions.ListSessions(ctx, filter)
}

// Create books a new session in status created
func (r *SessionRegistry) Create(ctx context.Context, actor domain.Actor, p CreateSessionParams) (*domain.Session, error) {
	chemistryMinutes := p.ChemistryTimeMinutes
	if chemistryMinutes == 0 {
		chemistryMinutes = r.chemistryMinutes
	}

	var session *domain.Session
	err := r.runner.Run(ctx, func(repo ports.Repository, now time.Time) error {
		s, err := domain.NewSession(domain.NewID(), domain.NewSessionParams{
			CarNumber:            p.CarNumber,
			ChemistryTimeMinutes: chemistryMinutes,
			RentalTimeMinutes:    p.RentalTimeMinutes,
			ServiceType:          p.ServiceType,
			WithChemistry:        p.WithChemistry,
		}, now)
		if err != nil {
			return err
		}
		if err := repo.CreateSession(ctx, s); err != nil {
			return err
		}
		session = s
		return record(ctx, repo, now, actor, domain.EventSessionCreated, &s.ID, nil, map[string]any{
			"rental_time_minutes": s.RentalTimeMinutes,
			"service_type":        string(s.ServiceType),
			"with_chemistry":      s.WithChemistry,
		})
	})
	if err != nil {
		logging.Logger.Warn("Failed to create session", "error", err, "actor", actor.String())
		return nil, err
	}

	logging.Logger.Info("Session created",
		"session_id", session.ID,
		"service_type", session.ServiceType,
		"with_chemistry", session.WithChemistry)
	return session, nil
}

// MarkQueued admits a paid session into the queue and runs the scheduler
func (r *SessionRegistry) MarkQueued(ctx context.Context, actor domain.Actor, id string) (*domain.Session, error) {
	return r.transition(ctx, actor, id, domain.EventSessionQueued, true, nil,
		func(s *domain.Session, now time.Time) error { return s.MarkQueued(now) })
}

// MarkFailed records a failed payment
func (r *SessionRegistry) MarkFailed(ctx context.Context, actor domain.Actor, id string) (*domain.Session, error) {
	return r.transition(ctx, actor, id, domain.EventSessionPaymentFailed, false, nil,
		func(s *domain.Session, now time.Time) error { return s.MarkFailed(now) })
}

// Start begins the rental on the assigned box
func (r *SessionRegistry) Start(ctx context.Context, actor domain.Actor, id string) (*domain.Session, error) {
	return r.transition(ctx, actor, id, domain.EventSessionStarted, false, nil,
		func(s *domain.Session, now time.Time) error { return s.Start(now) })
}

// EnableChemistry switches on the paid chemistry add-on
func (r *SessionRegistry) EnableChemistry(ctx context.Context, actor domain.Actor, id string) (*domain.Session, error) {
	return r.transition(ctx, actor, id, domain.EventSessionChemistryOn, false, nil,
		func(s *domain.Session, now time.Time) error { return s.EnableChemistry(now) })
}

// Extend adds paid minutes to an active session
func (r *SessionRegistry) Extend(ctx context.Context, actor domain.Actor, id string, minutes int) (*domain.Session, error) {
	return r.transition(ctx, actor, id, domain.EventSessionExtended, false, map[string]any{"minutes": minutes},
		func(s *domain.Session, now time.Time) error { return s.Extend(minutes, now) })
}

// Complete finishes an active session and frees its box
func (r *SessionRegistry) Complete(ctx context.Context, actor domain.Actor, id string) (*domain.Session, error) {
	if err := domain.RequirePrivileged(actor, "complete"); err != nil {
		return nil, err
	}
	return r.transition(ctx, actor, id, domain.EventSessionCompleted, false, nil,
		func(s *domain.Session, now time.Time) error { return s.Complete(now) })
}

// Cancel aborts a session that has not started. Which statuses may be
// canceled depends on the caller's role.
func (r *SessionRegistry) Cancel(ctx context.Context, actor domain.Actor, id string) (*domain.Session, error) {
	return r.transition(ctx, actor, id, domain.EventSessionCanceled, false, nil,
		func(s *domain.Session, now time.Time) error { return s.Cancel(actor, now) })
}

// Expire ends an assigned or active session whose time has run out.
// A session with time left is rejected with ErrInvalidState.
func (r *SessionRegistry) Expire(ctx context.Context, actor domain.Actor, id string) (*domain.Session, error) {
	if err := domain.RequirePrivileged(actor, "expire"); err != nil {
		return nil, err
	}
	var session *domain.Session
	err := r.runner.Run(ctx, func(repo ports.Repository, now time.Time) error {
		s, err := repo.GetSession(ctx, id)
		if err != nil {
			return err
		}
		if s.HoldsBox() && !domain.IsOverdue(s, r.assignTimeout, now) {
			return fmt.Errorf("%w: session %s still has time left", domain.ErrInvalidState, id)
		}
		if err := expireSession(ctx, repo, s, actor, now); err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		logFailure("expire", id, actor, err)
		return nil, err
	}
	logging.Logger.Info("Session expired", "session_id", id, "actor", actor.String())
	r.tick(ctx)
	return session, nil
}

// Assign manually binds a queued session to a chosen box. The box may be
// free or under an operator hold, and must be compatible with the session.
func (r *SessionRegistry) Assign(ctx context.Context, actor domain.Actor, id, boxID string) (*domain.Session, error) {
	if err := domain.RequirePrivileged(actor, "assign"); err != nil {
		return nil, err
	}
	var session *domain.Session
	err := r.runner.Run(ctx, func(repo ports.Repository, now time.Time) error {
		s, err := repo.GetSession(ctx, id)
		if err != nil {
			return err
		}
		box, err := repo.GetBox(ctx, boxID)
		if err != nil {
			return err
		}
		if !box.CompatibleWith(s.ServiceType, s.WithChemistry) {
			return fmt.Errorf("%w: box %d (%s, chemistry=%t) cannot serve session %s (%s, chemistry=%t)",
				domain.ErrIncompatibleResource, box.Number, box.ServiceType, box.ChemistryEnabled,
				s.ID, s.ServiceType, s.WithChemistry)
		}
		if err := occupyAndAssign(ctx, repo, s, box, actor, now); err != nil {
			return err
		}
		session = s
		return nil
	})
	if err != nil {
		logFailure("assign", id, actor, err)
		return nil, err
	}
	logging.Logger.Info("Session assigned manually", "session_id", id, "box_id", boxID, "actor", actor.String())
	return session, nil
}

// transition loads a session, applies one domain transition, frees its box
// when the session let go of it, and records the event, all in one
// transaction. The scheduler runs afterwards if a box was freed or tick is set.
func (r *SessionRegistry) transition(
	ctx context.Context,
	actor domain.Actor,
	id string,
	eventType domain.EventType,
	tick bool,
	details map[string]any,
	apply func(s *domain.Session, now time.Time) error,
) (*domain.Session, error) {
	var (
		session *domain.Session
		freed   bool
	)
	err := r.runner.Run(ctx, func(repo ports.Repository, now time.Time) error {
		s, err := repo.GetSession(ctx, id)
		if err != nil {
			return err
		}
		from := s.Status
		boxID := s.BoxID
		if err := apply(s, now); err != nil {
			return err
		}
		if err := repo.UpdateSession(ctx, s); err != nil {
			return err
		}
		freed = boxID != nil && s.BoxID == nil
		if freed {
			if _, err := releaseBox(ctx, repo, *boxID, s.ID, now); err != nil {
				return err
			}
		}

		eventDetails := map[string]any{"from": string(from), "to": string(s.Status)}
		for k, v := range details {
			eventDetails[k] = v
		}
		if boxID == nil {
			boxID = s.BoxID
		}
		session = s
		return record(ctx, repo, now, actor, eventType, &s.ID, boxID, eventDetails)
	})
	if err != nil {
		logFailure(string(eventType), id, actor, err)
		return nil, err
	}

	logging.Logger.Info("Session transition",
		"session_id", id,
		"event", eventType,
		"status", session.Status,
		"actor", actor.String())

	if freed || tick {
		r.tick(ctx)
		if tick {
			if fresh, err := r.sessions.GetSession(ctx, id); err == nil {
				session = fresh
			}
		}
	}
	return session, nil
}

// tick runs the scheduler after a committed change. Its failure does not
// undo that change; the next tick picks up the work.
func (r *SessionRegistry) tick(ctx context.Context) {
	if _, err := r.scheduler.Tick(ctx); err != nil {
		logging.Logger.Warn("Scheduler tick after transition failed", "error", err)
	}
}

// logFailure logs domain rejections at Warn and everything else at Error
func logFailure(op, id string, actor domain.Actor, err error) {
	if isDomainError(err) {
		logging.Logger.Warn("Operation rejected", "op", op, "id", id, "actor", actor.String(), "error", err)
		return
	}
	logging.Logger.Error("Operation failed", "op", op, "id", id, "actor", actor.String(), "error", err)
}

func isDomainError(err error) bool {
	for _, target := range []error{
		domain.ErrAlreadyTerminal,
		domain.ErrBoxNotFound,
		domain.ErrCleaningSlotTaken,
		domain.ErrConflict,
		domain.ErrIncompatibleResource,
		domain.ErrInvalidInput,
		domain.ErrInvalidState,
		domain.ErrNotPermitted,
		domain.ErrSessionNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
