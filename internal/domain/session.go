package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// MaxSessionMinutes bounds rental, chemistry and extended rental time
const MaxSessionMinutes = 24 * 60

// SessionStatus represents the lifecycle status of a wash session
type SessionStatus string

const (
	SessionActive        SessionStatus = "active"
	SessionAssigned      SessionStatus = "assigned"
	SessionCanceled      SessionStatus = "canceled"
	SessionComplete      SessionStatus = "complete"
	SessionCreated       SessionStatus = "created"
	SessionExpired       SessionStatus = "expired"
	SessionInQueue       SessionStatus = "in_queue"
	SessionPaymentFailed SessionStatus = "payment_failed"
)

// SessionStatuses lists all statuses in lifecycle order.
var SessionStatuses = []SessionStatus{
	SessionCreated,
	SessionInQueue,
	SessionPaymentFailed,
	SessionAssigned,
	SessionActive,
	SessionComplete,
	SessionCanceled,
	SessionExpired,
}

// LiveStatuses are the statuses in which a session holds a box.
var LiveStatuses = []SessionStatus{SessionAssigned, SessionActive}

// ParseSessionStatus validates a session status name
func ParseSessionStatus(s string) (SessionStatus, error) {
	for _, st := range SessionStatuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: unknown session status %q", ErrInvalidInput, s)
}

// IsTerminal reports whether no further transition can leave the status.
func (st SessionStatus) IsTerminal() bool {
	switch st {
	case SessionCanceled, SessionComplete, SessionExpired, SessionPaymentFailed:
		return true
	default:
		return false
	}
}

// Session is one customer's wash request (domain entity)
type Session struct {
	AssignedAt           *time.Time
	BoxID                *string
	CanceledAt           *time.Time
	CanceledBy           Role
	CarNumber            string
	ChemistryEndedAt     *time.Time
	ChemistryStartedAt   *time.Time
	ChemistryTimeMinutes int
	CompletedAt          *time.Time
	CreatedAt            time.Time
	ExpiredAt            *time.Time
	ExtensionTimeMinutes int
	FailedAt             *time.Time
	ID                   string
	ReassignCount        int
	RentalTimeMinutes    int
	ServiceType          ServiceType
	StartedAt            *time.Time
	Status               SessionStatus
	UpdatedAt            time.Time
	Version              int64
	WasChemistryOn       bool
	WithChemistry        bool
}

// NewSessionParams holds the booking request data
type NewSessionParams struct {
	CarNumber            string
	ChemistryTimeMinutes int
	RentalTimeMinutes    int
	ServiceType          ServiceType
	WithChemistry        bool
}

// NewSession validates a booking request and returns a session in status created.
func NewSession(id string, p NewSessionParams, now time.Time) (*Session, error) {
	if _, err := ParseServiceType(string(p.ServiceType)); err != nil {
		return nil, err
	}
	if p.RentalTimeMinutes <= 0 {
		return nil, fmt.Errorf("%w: rental time must be positive, got %d", ErrInvalidInput, p.RentalTimeMinutes)
	}
	if p.RentalTimeMinutes > MaxSessionMinutes {
		return nil, fmt.Errorf("%w: rental time exceeds %d minutes, got %d", ErrInvalidInput, MaxSessionMinutes, p.RentalTimeMinutes)
	}
	if p.WithChemistry && !p.ServiceType.OffersChemistry() {
		return nil, fmt.Errorf("%w: chemistry is only offered for %s, not %s", ErrInvalidInput, ServiceWash, p.ServiceType)
	}
	chemistryMinutes := 0
	if p.WithChemistry {
		if p.ChemistryTimeMinutes <= 0 {
			return nil, fmt.Errorf("%w: chemistry time must be positive, got %d", ErrInvalidInput, p.ChemistryTimeMinutes)
		}
		if p.ChemistryTimeMinutes > MaxSessionMinutes {
			return nil, fmt.Errorf("%w: chemistry time exceeds %d minutes, got %d", ErrInvalidInput, MaxSessionMinutes, p.ChemistryTimeMinutes)
		}
		chemistryMinutes = p.ChemistryTimeMinutes
	}

	return &Session{
		CarNumber:            strings.TrimSpace(p.CarNumber),
		ChemistryTimeMinutes: chemistryMinutes,
		CreatedAt:            now,
		ID:                   id,
		RentalTimeMinutes:    p.RentalTimeMinutes,
		ServiceType:          p.ServiceType,
		Status:               SessionCreated,
		UpdatedAt:            now,
		WithChemistry:        p.WithChemistry,
	}, nil
}

// IsTerminal reports whether the session has finished
func (s *Session) IsTerminal() bool {
	return s.Status.IsTerminal()
}

// HoldsBox reports whether the session currently occupies a box
func (s *Session) HoldsBox() bool {
	return slices.Contains(LiveStatuses, s.Status)
}

// FinishedAt returns the terminal timestamp, or nil for a live session.
func (s *Session) FinishedAt() *time.Time {
	switch s.Status {
	case SessionComplete:
		return s.CompletedAt
	case SessionCanceled:
		return s.CanceledAt
	case SessionExpired:
		return s.ExpiredAt
	case SessionPaymentFailed:
		return s.FailedAt
	}
	return nil
}

// RentalLimit is the paid rental time including extensions
func (s *Session) RentalLimit() time.Duration {
	return time.Duration(s.RentalTimeMinutes+s.ExtensionTimeMinutes) * time.Minute
}

// ChemistryLimit is the chemistry activation window
func (s *Session) ChemistryLimit() time.Duration {
	return time.Duration(s.ChemistryTimeMinutes) * time.Minute
}

func (s *Session) require(op string, allowed ...SessionStatus) error {
	if slices.Contains(allowed, s.Status) {
		return nil
	}
	if s.IsTerminal() {
		return fmt.Errorf("%w: cannot %s session %s, status is %s", ErrAlreadyTerminal, op, s.ID, s.Status)
	}
	return fmt.Errorf("%w: cannot %s session %s, status is %s", ErrInvalidState, op, s.ID, s.Status)
}

// MarkQueued moves a paid session into the queue
func (s *Session) MarkQueued(now time.Time) error {
	if err := s.require("queue", SessionCreated); err != nil {
		return err
	}
	s.Status = SessionInQueue
	s.UpdatedAt = now
	return nil
}

// MarkFailed records a failed payment. The session never leaves payment_failed.
func (s *Session) MarkFailed(now time.Time) error {
	if err := s.require("fail", SessionCreated, SessionInQueue); err != nil {
		return err
	}
	s.Status = SessionPaymentFailed
	s.FailedAt = &now
	s.UpdatedAt = now
	return nil
}

// Assign binds a queued session to a box
func (s *Session) Assign(boxID string, now time.Time) error {
	if err := s.require("assign", SessionInQueue); err != nil {
		return err
	}
	if boxID == "" {
		return fmt.Errorf("%w: empty box id", ErrInvalidInput)
	}
	s.Status = SessionAssigned
	s.BoxID = &boxID
	s.AssignedAt = &now
	s.UpdatedAt = now
	return nil
}

// Start begins the rental clock
func (s *Session) Start(now time.Time) error {
	if err := s.require("start", SessionAssigned); err != nil {
		return err
	}
	s.Status = SessionActive
	s.StartedAt = &now
	s.UpdatedAt = now
	return nil
}

// EnableChemistry turns on the paid chemistry add-on. It can happen at most
// once per session and only while the session is active.
func (s *Session) EnableChemistry(now time.Time) error {
	if err := s.require("enable chemistry for", SessionActive); err != nil {
		return err
	}
	if !s.WithChemistry {
		return fmt.Errorf("%w: session %s was booked without chemistry", ErrInvalidState, s.ID)
	}
	if s.WasChemistryOn {
		return fmt.Errorf("%w: chemistry already used for session %s", ErrInvalidState, s.ID)
	}
	end := now.Add(s.ChemistryLimit())
	s.ChemistryStartedAt = &now
	s.ChemistryEndedAt = &end
	s.WasChemistryOn = true
	s.UpdatedAt = now
	return nil
}

// Extend adds paid minutes to an active rental
func (s *Session) Extend(minutes int, now time.Time) error {
	if err := s.require("extend", SessionActive); err != nil {
		return err
	}
	if minutes <= 0 {
		return fmt.Errorf("%w: extension must be positive, got %d", ErrInvalidInput, minutes)
	}
	if minutes > MaxSessionMinutes-s.RentalTimeMinutes-s.ExtensionTimeMinutes {
		return fmt.Errorf("%w: extended rental would exceed %d minutes", ErrInvalidInput, MaxSessionMinutes)
	}
	s.ExtensionTimeMinutes += minutes
	s.UpdatedAt = now
	return nil
}

// Complete finishes an active session
func (s *Session) Complete(now time.Time) error {
	if err := s.require("complete", SessionActive); err != nil {
		return err
	}
	s.Status = SessionComplete
	s.CompletedAt = &now
	s.finish(now)
	return nil
}

// Cancel aborts a session that has not started. Operators may cancel created,
// queued and assigned sessions; customers may only cancel a created one.
func (s *Session) Cancel(actor Actor, now time.Time) error {
	if err := s.require("cancel", SessionCreated, SessionInQueue, SessionAssigned); err != nil {
		return err
	}
	if !actor.IsPrivileged() && s.Status != SessionCreated {
		return fmt.Errorf("%w: %s may only cancel a created session, session %s is %s",
			ErrNotPermitted, actor.Role, s.ID, s.Status)
	}
	s.Status = SessionCanceled
	s.CanceledAt = &now
	s.CanceledBy = actor.Role
	s.finish(now)
	return nil
}

// Expire ends an assigned or active session whose time ran out
func (s *Session) Expire(now time.Time) error {
	if err := s.require("expire", SessionAssigned, SessionActive); err != nil {
		return err
	}
	s.Status = SessionExpired
	s.ExpiredAt = &now
	s.finish(now)
	return nil
}

// Requeue takes a session off its box and puts it back in the queue. The
// rental clock restarts on the next box; chemistry state and extensions are kept.
func (s *Session) Requeue(now time.Time) error {
	if err := s.require("reassign", SessionAssigned, SessionActive); err != nil {
		return err
	}
	s.Status = SessionInQueue
	s.BoxID = nil
	s.AssignedAt = nil
	s.StartedAt = nil
	s.ReassignCount++
	s.UpdatedAt = now
	return nil
}

func (s *Session) finish(now time.Time) {
	s.BoxID = nil
	if s.ChemistryEndedAt != nil && s.ChemistryEndedAt.After(now) {
		s.ChemistryEndedAt = &now
	}
	s.UpdatedAt = now
}

// Validate checks the box reference invariant
func (s *Session) Validate() error {
	if s.HoldsBox() != (s.BoxID != nil) {
		return fmt.Errorf("%w: session %s in status %s has box reference %v",
			ErrInvalidState, s.ID, s.Status, s.BoxID != nil)
	}
	return nil
}
