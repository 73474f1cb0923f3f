package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"washbay/internal/domain"
)

func TestCleaningGuard_SingleSlot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	box3, box7 := h.box(t, 3).ID, h.box(t, 7).ID

	reserved, err := h.cleaning.ReserveCleaning(ctx, cleaner, box7)
	require.NoError(t, err)
	assert.Equal(t, domain.BoxReserved, reserved.Status)

	_, err = h.cleaning.ReserveCleaning(ctx, cleaner, box3)
	assert.ErrorIs(t, err, domain.ErrCleaningSlotTaken)
	_, err = h.cleaning.StartCleaning(ctx, cleaner, box3)
	assert.ErrorIs(t, err, domain.ErrCleaningSlotTaken, "starting without a reservation also needs the slot")

	started, err := h.cleaning.StartCleaning(ctx, cleaner, box7)
	require.NoError(t, err)
	assert.Equal(t, domain.BoxCleaning, started.Status)
	h.assertInvariants(t)

	done, err := h.cleaning.CompleteCleaning(ctx, cleaner, box7)
	require.NoError(t, err)
	assert.Equal(t, domain.BoxFree, done.Status)

	_, err = h.cleaning.ReserveCleaning(ctx, cleaner, box3)
	assert.NoError(t, err)
	h.assertInvariants(t)
}

func TestCleaningGuard_CompleteWithoutStart(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	box3, box7 := h.box(t, 3).ID, h.box(t, 7).ID

	_, err := h.cleaning.ReserveCleaning(ctx, cleaner, box7)
	require.NoError(t, err)

	done, err := h.cleaning.CompleteCleaning(ctx, cleaner, box7)
	require.NoError(t, err)
	assert.Equal(t, domain.BoxFree, done.Status)
	assert.Nil(t, done.CleaningReservedBy)

	reserved, err := h.cleaning.ReserveCleaning(ctx, cleaner, box3)
	require.NoError(t, err)
	assert.Equal(t, domain.BoxReserved, reserved.Status)
	h.assertInvariants(t)
}

func TestCleaningGuard_CompleteReservationOnBusyBox(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.maintain(t, 2, 3, 4, 5, 6)

	s := h.book(t, domain.ServiceWash, false, 10)
	_, err := h.sessions.Start(ctx, customer, s.ID)
	require.NoError(t, err)
	box1 := h.box(t, 1).ID

	_, err = h.cleaning.ReserveCleaning(ctx, cleaner, box1)
	require.NoError(t, err)

	b, err := h.cleaning.CompleteCleaning(ctx, cleaner, box1)
	require.NoError(t, err)
	assert.Equal(t, domain.BoxBusy, b.Status, "the session keeps its box")
	assert.False(t, b.HoldsCleaningSlot())

	_, err = h.cleaning.ReserveCleaning(ctx, cleaner, h.box(t, 7).ID)
	assert.NoError(t, err)
	h.assertInvariants(t)
}

func TestCleaningGuard_ConcurrentReservations(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	targets := []string{h.box(t, 3).ID, h.box(t, 7).ID}

	errs := make([]error, len(targets))
	var wg sync.WaitGroup
	for i, id := range targets {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = h.cleaning.ReserveCleaning(ctx, cleaner, id)
		}(i, id)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrCleaningSlotTaken)
	}
	assert.Equal(t, 1, succeeded)
	h.assertInvariants(t)
}

func TestCleaningGuard_PendingVacancy(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.maintain(t, 2, 3, 4, 5, 6)

	s := h.book(t, domain.ServiceWash, false, 10)
	_, err := h.sessions.Start(ctx, customer, s.ID)
	require.NoError(t, err)
	box1 := h.box(t, 1).ID

	b, err := h.cleaning.ReserveCleaning(ctx, cleaner, box1)
	require.NoError(t, err)
	assert.Equal(t, domain.BoxBusy, b.Status)

	_, err = h.cleaning.StartCleaning(ctx, cleaner, box1)
	assert.ErrorIs(t, err, domain.ErrInvalidState, "occupied")

	waiting := h.book(t, domain.ServiceWash, false, 10)
	_, err = h.sessions.Complete(ctx, cashier, s.ID)
	require.NoError(t, err)

	assert.Equal(t, domain.BoxReserved, h.box(t, 1).Status, "the cleaner gets the box first")
	assert.Equal(t, domain.SessionInQueue, h.session(t, waiting.ID).Status)

	_, err = h.cleaning.StartCleaning(ctx, cleaner, box1)
	require.NoError(t, err)
	h.clock.Advance(time.Minute)

	view, err := h.polling.GetBox(ctx, box1)
	require.NoError(t, err)
	require.NotNil(t, view.Cleaning)
	assert.Equal(t, int64(120), view.Cleaning.RemainingSeconds)

	_, err = h.cleaning.CompleteCleaning(ctx, cleaner, box1)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionAssigned, h.session(t, waiting.ID).Status, "completion hands the box to the queue")
	h.assertInvariants(t)
}

func TestCleaningGuard_CancelAndHolder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	box7 := h.box(t, 7).ID

	holder, err := h.cleaning.Holder(ctx)
	require.NoError(t, err)
	assert.Nil(t, holder)

	_, err = h.cleaning.ReserveCleaning(ctx, cleaner, box7)
	require.NoError(t, err)
	holder, err = h.cleaning.Holder(ctx)
	require.NoError(t, err)
	require.NotNil(t, holder)
	assert.Equal(t, 7, holder.Number)

	_, err = h.cleaning.ReserveCleaning(ctx, customer, h.box(t, 3).ID)
	assert.ErrorIs(t, err, domain.ErrNotPermitted)

	b, err := h.cleaning.CancelCleaning(ctx, cleaner, box7)
	require.NoError(t, err)
	assert.Equal(t, domain.BoxFree, b.Status)

	_, err = h.cleaning.CancelCleaning(ctx, cleaner, box7)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	h.assertInvariants(t)
}
