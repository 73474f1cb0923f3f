package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newWashSession(t *testing.T, withChemistry bool) *Session {
	t.Helper()
	s, err := NewSession("s-1", NewSessionParams{
		ChemistryTimeMinutes: 5,
		RentalTimeMinutes:    10,
		ServiceType:          ServiceWash,
		WithChemistry:        withChemistry,
	}, t0)
	require.NoError(t, err)
	return s
}

func activeSession(t *testing.T, withChemistry bool) *Session {
	t.Helper()
	s := newWashSession(t, withChemistry)
	require.NoError(t, s.MarkQueued(t0))
	require.NoError(t, s.Assign("box-1", t0))
	require.NoError(t, s.Start(t0))
	return s
}

func TestNewSession_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params NewSessionParams
	}{
		{"unknown service", NewSessionParams{ServiceType: "polish", RentalTimeMinutes: 10}},
		{"zero rental", NewSessionParams{ServiceType: ServiceWash, RentalTimeMinutes: 0}},
		{"chemistry on vacuum", NewSessionParams{ServiceType: ServiceVacuum, RentalTimeMinutes: 10, WithChemistry: true, ChemistryTimeMinutes: 5}},
		{"chemistry without time", NewSessionParams{ServiceType: ServiceWash, RentalTimeMinutes: 10, WithChemistry: true}},
		{"rental over a day", NewSessionParams{ServiceType: ServiceWash, RentalTimeMinutes: MaxSessionMinutes + 1}},
		{"chemistry over a day", NewSessionParams{ServiceType: ServiceWash, RentalTimeMinutes: 10, WithChemistry: true, ChemistryTimeMinutes: MaxSessionMinutes + 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSession("x", tt.params, t0)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestNewSession_Created(t *testing.T) {
	s := newWashSession(t, true)

	assert.Equal(t, SessionCreated, s.Status)
	assert.Nil(t, s.BoxID)
	assert.Equal(t, 5, s.ChemistryTimeMinutes)
	assert.NoError(t, s.Validate())
}

func TestSession_HappyPath(t *testing.T) {
	s := newWashSession(t, false)

	require.NoError(t, s.MarkQueued(t0))
	assert.Equal(t, SessionInQueue, s.Status)

	require.NoError(t, s.Assign("box-1", t0.Add(time.Minute)))
	assert.Equal(t, SessionAssigned, s.Status)
	require.NotNil(t, s.BoxID)
	assert.Equal(t, "box-1", *s.BoxID)
	assert.NoError(t, s.Validate())

	require.NoError(t, s.Start(t0.Add(2*time.Minute)))
	assert.Equal(t, SessionActive, s.Status)
	require.NotNil(t, s.StartedAt)

	require.NoError(t, s.Complete(t0.Add(10*time.Minute)))
	assert.Equal(t, SessionComplete, s.Status)
	assert.Nil(t, s.BoxID)
	assert.NotNil(t, s.CompletedAt)
	assert.NoError(t, s.Validate())
}

func TestSession_TerminalRejectsEverything(t *testing.T) {
	s := activeSession(t, true)
	require.NoError(t, s.Complete(t0.Add(time.Minute)))

	ops := map[string]func() error{
		"queue":     func() error { return s.MarkQueued(t0) },
		"fail":      func() error { return s.MarkFailed(t0) },
		"assign":    func() error { return s.Assign("box-2", t0) },
		"start":     func() error { return s.Start(t0) },
		"chemistry": func() error { return s.EnableChemistry(t0) },
		"extend":    func() error { return s.Extend(5, t0) },
		"complete":  func() error { return s.Complete(t0) },
		"cancel":    func() error { return s.Cancel(Actor{Role: RoleCashier}, t0) },
		"expire":    func() error { return s.Expire(t0) },
		"requeue":   func() error { return s.Requeue(t0) },
	}

	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, op(), ErrAlreadyTerminal)
			assert.Equal(t, SessionComplete, s.Status)
		})
	}
}

func TestSession_MarkFailed(t *testing.T) {
	s := newWashSession(t, false)
	require.NoError(t, s.MarkQueued(t0))
	require.NoError(t, s.MarkFailed(t0))

	assert.Equal(t, SessionPaymentFailed, s.Status)
	assert.True(t, s.IsTerminal())
	assert.NotNil(t, s.FailedAt)
}

func TestSession_EnableChemistryOnce(t *testing.T) {
	s := activeSession(t, true)

	require.NoError(t, s.EnableChemistry(t0.Add(2*time.Minute)))
	assert.True(t, s.WasChemistryOn)
	require.NotNil(t, s.ChemistryStartedAt)
	assert.Equal(t, t0.Add(7*time.Minute), *s.ChemistryEndedAt)

	err := s.EnableChemistry(t0.Add(3 * time.Minute))
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, t0.Add(2*time.Minute), *s.ChemistryStartedAt, "second call must not restart chemistry")
}

func TestSession_EnableChemistryRequiresPurchase(t *testing.T) {
	s := activeSession(t, false)

	assert.ErrorIs(t, s.EnableChemistry(t0), ErrInvalidState)
	assert.False(t, s.WasChemistryOn)
}

func TestSession_EnableChemistryRequiresActive(t *testing.T) {
	s := newWashSession(t, true)
	require.NoError(t, s.MarkQueued(t0))

	assert.ErrorIs(t, s.EnableChemistry(t0), ErrInvalidState)
}

func TestSession_Extend(t *testing.T) {
	s := activeSession(t, false)

	require.NoError(t, s.Extend(5, t0))
	require.NoError(t, s.Extend(3, t0))
	assert.Equal(t, 8, s.ExtensionTimeMinutes)
	assert.Equal(t, 18*time.Minute, s.RentalLimit())

	assert.ErrorIs(t, s.Extend(0, t0), ErrInvalidInput)
}

func TestSession_CancelPermissions(t *testing.T) {
	cashier := Actor{ID: "c1", Role: RoleCashier}
	customer := Actor{ID: "u1", Role: RoleCustomer}

	tests := []struct {
		name    string
		prepare func(s *Session)
		actor   Actor
		wantErr error
	}{
		{"customer cancels created", func(s *Session) {}, customer, nil},
		{"customer cannot cancel queued", func(s *Session) { _ = s.MarkQueued(t0) }, customer, ErrNotPermitted},
		{"customer cannot cancel assigned", func(s *Session) {
			_ = s.MarkQueued(t0)
			_ = s.Assign("box-1", t0)
		}, customer, ErrNotPermitted},
		{"cashier cancels created", func(s *Session) {}, cashier, nil},
		{"cashier cancels queued", func(s *Session) { _ = s.MarkQueued(t0) }, cashier, nil},
		{"cashier cancels assigned", func(s *Session) {
			_ = s.MarkQueued(t0)
			_ = s.Assign("box-1", t0)
		}, cashier, nil},
		{"cashier cannot cancel active", func(s *Session) {
			_ = s.MarkQueued(t0)
			_ = s.Assign("box-1", t0)
			_ = s.Start(t0)
		}, cashier, ErrInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newWashSession(t, false)
			tt.prepare(s)
			before := s.Status

			err := s.Cancel(tt.actor, t0.Add(time.Minute))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, before, s.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, SessionCanceled, s.Status)
			assert.Equal(t, tt.actor.Role, s.CanceledBy)
			assert.Nil(t, s.BoxID)
		})
	}
}

func TestSession_RequeueKeepsChemistryAndExtensions(t *testing.T) {
	s := activeSession(t, true)
	require.NoError(t, s.EnableChemistry(t0.Add(time.Minute)))
	require.NoError(t, s.Extend(5, t0.Add(time.Minute)))

	require.NoError(t, s.Requeue(t0.Add(2*time.Minute)))

	assert.Equal(t, SessionInQueue, s.Status)
	assert.Nil(t, s.BoxID)
	assert.Nil(t, s.StartedAt)
	assert.Nil(t, s.AssignedAt)
	assert.True(t, s.WasChemistryOn)
	assert.NotNil(t, s.ChemistryStartedAt)
	assert.Equal(t, 5, s.ExtensionTimeMinutes)
	assert.Equal(t, 1, s.ReassignCount)
	assert.NoError(t, s.Validate())
}

func TestSession_RequeueRequiresLive(t *testing.T) {
	s := newWashSession(t, false)
	require.NoError(t, s.MarkQueued(t0))

	assert.ErrorIs(t, s.Requeue(t0), ErrInvalidState)
}

func TestSession_FinishTruncatesChemistry(t *testing.T) {
	s := activeSession(t, true)
	require.NoError(t, s.EnableChemistry(t0.Add(time.Minute)))

	require.NoError(t, s.Complete(t0.Add(2*time.Minute)))

	assert.Equal(t, t0.Add(2*time.Minute), *s.ChemistryEndedAt)
}

func TestSession_Expire(t *testing.T) {
	s := activeSession(t, false)

	require.NoError(t, s.Expire(t0.Add(11*time.Minute)))
	assert.Equal(t, SessionExpired, s.Status)
	assert.Nil(t, s.BoxID)

	assert.ErrorIs(t, s.Complete(t0.Add(12*time.Minute)), ErrAlreadyTerminal)
}

func TestSession_ExtendBounds(t *testing.T) {
	tests := []struct {
		name    string
		minutes int
		wantErr bool
	}{
		{"up to a day", MaxSessionMinutes - 10, false},
		{"one minute over a day", MaxSessionMinutes - 9, true},
		{"huge extension", 200_000_000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := activeSession(t, false)
			err := s.Extend(tt.minutes, t0)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				assert.Equal(t, 0, s.ExtensionTimeMinutes)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, 24*time.Hour, s.RentalLimit())
		})
	}
}

func TestNewSession_AcceptsFullDay(t *testing.T) {
	s, err := NewSession("x", NewSessionParams{
		ChemistryTimeMinutes: MaxSessionMinutes,
		RentalTimeMinutes:    MaxSessionMinutes,
		ServiceType:          ServiceWash,
		WithChemistry:        true,
	}, t0)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, s.RentalLimit())
}
