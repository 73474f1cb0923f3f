package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"washbay/internal/domain"
	"washbay/internal/ports"
)

func TestReassign_ActiveSessionMovesToAnotherBox(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	s := h.book(t, domain.ServiceWash, true, 10)
	_, err := h.sessions.Start(ctx, customer, s.ID)
	require.NoError(t, err)
	h.clock.Advance(time.Minute)
	_, err = h.sessions.EnableChemistry(ctx, customer, s.ID)
	require.NoError(t, err)
	_, err = h.sessions.Extend(ctx, customer, s.ID, 5)
	require.NoError(t, err)
	box1 := h.box(t, 1).ID

	h.clock.Advance(time.Minute)
	moved, err := h.reassign.Reassign(ctx, cashier, s.ID, "foam nozzle broken")
	require.NoError(t, err)

	old := h.box(t, 1)
	assert.Equal(t, domain.BoxMaintenance, old.Status, "old box is quarantined, not freed")
	assert.Equal(t, "foam nozzle broken", old.MaintenanceReason)

	assert.Equal(t, domain.SessionAssigned, moved.Status)
	require.NotNil(t, moved.BoxID)
	assert.NotEqual(t, box1, *moved.BoxID)
	assert.Equal(t, h.box(t, 2).ID, *moved.BoxID)
	assert.Nil(t, moved.StartedAt, "rental clock restarts on the new box")
	assert.True(t, moved.WasChemistryOn, "chemistry is not refunded")
	assert.NotNil(t, moved.ChemistryStartedAt)
	assert.Equal(t, 5, moved.ExtensionTimeMinutes)
	assert.Equal(t, 1, moved.ReassignCount)
	h.assertInvariants(t)

	events, err := h.store.ListEvents(ctx, ports.EventFilter{SessionID: s.ID, Type: domain.EventSessionReassigned})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "foam nozzle broken", events[0].Details["reason"])
}

func TestReassign_NoOtherBoxLeavesSessionQueued(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := h.book(t, domain.ServiceVacuum, false, 10)
	require.Equal(t, domain.SessionAssigned, s.Status)

	moved, err := h.reassign.Reassign(ctx, cashier, s.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.SessionInQueue, moved.Status, "never re-matched to the quarantined box")
	assert.Equal(t, domain.BoxMaintenance, h.box(t, 8).Status)
	assert.Equal(t, "reassigned", h.box(t, 8).MaintenanceReason)

	_, err = h.boxes.ClearMaintenance(ctx, cashier, h.box(t, 8).ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionAssigned, h.session(t, s.ID).Status)
	h.assertInvariants(t)
}

func TestReassign_CancelsPendingCleaning(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	s := h.book(t, domain.ServiceWash, false, 10)
	box1 := h.box(t, 1).ID
	_, err := h.cleaning.ReserveCleaning(ctx, cleaner, box1)
	require.NoError(t, err)

	_, err = h.reassign.Reassign(ctx, cashier, s.ID, "leak")
	require.NoError(t, err)

	old := h.box(t, 1)
	assert.Equal(t, domain.BoxMaintenance, old.Status)
	assert.Nil(t, old.CleaningReservedBy)

	holder, err := h.cleaning.Holder(ctx)
	require.NoError(t, err)
	assert.Nil(t, holder, "the cleaning slot is released")
	h.assertInvariants(t)
}

func TestReassign_Rejections(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	created, err := h.sessions.Create(ctx, customer, CreateSessionParams{ServiceType: domain.ServiceWash, RentalTimeMinutes: 10})
	require.NoError(t, err)
	_, err = h.reassign.Reassign(ctx, cashier, created.ID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	s := h.book(t, domain.ServiceWash, false, 10)
	_, err = h.reassign.Reassign(ctx, customer, s.ID, "")
	assert.ErrorIs(t, err, domain.ErrNotPermitted)

	_, err = h.sessions.Cancel(ctx, cashier, s.ID)
	require.NoError(t, err)
	_, err = h.reassign.Reassign(ctx, cashier, s.ID, "")
	assert.ErrorIs(t, err, domain.ErrAlreadyTerminal)

	assert.Equal(t, domain.BoxFree, h.box(t, 1).Status, "failed reassignment changes nothing")
	h.assertInvariants(t)
}

func TestReassign_RacesWithCompletion(t *testing.T) {
	tests := []struct {
		name   string
		start  bool
		finish func(h *harness, id string) error
		// finishAlwaysWins is set when the competing call is valid both
		// before and after the reassignment commits.
		finishAlwaysWins bool
		want             domain.SessionStatus
	}{
		{
			name:  "complete",
			start: true,
			finish: func(h *harness, id string) error {
				_, err := h.sessions.Complete(context.Background(), cashier, id)
				return err
			},
			want: domain.SessionComplete,
		},
		{
			name: "cancel",
			finish: func(h *harness, id string) error {
				_, err := h.sessions.Cancel(context.Background(), cashier, id)
				return err
			},
			finishAlwaysWins: true,
			want:             domain.SessionCanceled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()

			s := h.book(t, domain.ServiceWash, false, 10)
			if tt.start {
				_, err := h.sessions.Start(ctx, customer, s.ID)
				require.NoError(t, err)
			}

			var reassignErr, finishErr error
			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, reassignErr = h.reassign.Reassign(ctx, cashier, s.ID, "race")
			}()
			go func() {
				defer wg.Done()
				finishErr = tt.finish(h, s.ID)
			}()
			wg.Wait()

			if tt.finishAlwaysWins {
				require.NoError(t, finishErr)
				assert.Equal(t, tt.want, h.session(t, s.ID).Status)
				if reassignErr != nil {
					assert.ErrorIs(t, reassignErr, domain.ErrAlreadyTerminal)
				}
			} else {
				switch {
				case reassignErr == nil:
					assert.ErrorIs(t, finishErr, domain.ErrInvalidState, "reassigned session is no longer active")
					assert.Equal(t, domain.SessionAssigned, h.session(t, s.ID).Status)
				case finishErr == nil:
					assert.ErrorIs(t, reassignErr, domain.ErrAlreadyTerminal)
					assert.Equal(t, tt.want, h.session(t, s.ID).Status)
				default:
					t.Fatalf("both calls failed: reassign=%v finish=%v", reassignErr, finishErr)
				}
			}
			h.assertInvariants(t)
		})
	}
}
