package domain

import "time"

// DefaultCleaningTimeout is the facility-wide cleaning window
const DefaultCleaningTimeout = 3 * time.Minute

// Countdown is a remaining-time reading derived from a start instant and a
// limit. Nothing here is stored; every read recomputes it.
type Countdown struct {
	Expired   bool
	Limit     time.Duration
	Remaining time.Duration
	Running   bool
}

func countdown(start *time.Time, limit time.Duration, now time.Time) Countdown {
	c := Countdown{Limit: limit, Remaining: limit}
	if start == nil {
		return c
	}
	c.Running = true
	c.Remaining = limit - now.Sub(*start)
	if c.Remaining <= 0 {
		c.Remaining = 0
		c.Expired = true
	}
	return c
}

// clockFor freezes the clock at the terminal instant of a finished session so
// that its timers stop counting down.
func clockFor(s *Session, now time.Time) time.Time {
	if end := s.FinishedAt(); end != nil && end.Before(now) {
		return *end
	}
	return now
}

// RentalRemaining is (rental + extensions) minus the time since started_at.
func RentalRemaining(s *Session, now time.Time) Countdown {
	return countdown(s.StartedAt, s.RentalLimit(), clockFor(s, now))
}

// ChemistryRemaining is the chemistry window minus the time since it was
// enabled. Chemistry cut short by the end of the session reports expired.
func ChemistryRemaining(s *Session, now time.Time) Countdown {
	c := countdown(s.ChemistryStartedAt, s.ChemistryLimit(), clockFor(s, now))
	if c.Running && s.ChemistryEndedAt != nil && !now.Before(*s.ChemistryEndedAt) {
		c.Remaining = 0
		c.Expired = true
	}
	return c
}

// AssignRemaining is how long an assigned session may wait before starting.
func AssignRemaining(s *Session, timeout time.Duration, now time.Time) Countdown {
	if s.Status != SessionAssigned {
		return Countdown{Limit: timeout, Remaining: timeout}
	}
	return countdown(s.AssignedAt, timeout, now)
}

// CleaningRemaining is the cleaning window minus the time since cleaning started.
func CleaningRemaining(b *Box, timeout time.Duration, now time.Time) Countdown {
	if timeout <= 0 {
		timeout = DefaultCleaningTimeout
	}
	return countdown(b.CleaningStartedAt, timeout, now)
}

// IsOverdue reports whether a live session has run out of time: an active
// session past its rental, or an assigned one past the assignment timeout.
// A zero assignTimeout disables the assigned check.
func IsOverdue(s *Session, assignTimeout time.Duration, now time.Time) bool {
	switch s.Status {
	case SessionActive:
		return RentalRemaining(s, now).Expired
	case SessionAssigned:
		return assignTimeout > 0 && AssignRemaining(s, assignTimeout, now).Expired
	default:
		return false
	}
}
