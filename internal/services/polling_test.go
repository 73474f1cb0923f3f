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

func sessionByID(t *testing.T, snap *Snapshot, id string) *SessionView {
	t.Helper()
	for i := range snap.Sessions {
		if snap.Sessions[i].ID == id {
			return &snap.Sessions[i]
		}
	}
	return nil
}

func TestPolling_RevisionTracksChanges(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first, err := h.polling.Snapshot(ctx, SnapshotQuery{})
	require.NoError(t, err)
	assert.Len(t, first.Boxes, 8)
	assert.Empty(t, first.Sessions)
	assert.Len(t, first.Revision, 32)

	h.clock.Advance(30 * time.Second)
	second, err := h.polling.Snapshot(ctx, SnapshotQuery{})
	require.NoError(t, err)
	assert.Equal(t, first.Revision, second.Revision, "time alone does not change the revision")
	assert.Equal(t, t0.Add(30*time.Second), second.At)

	h.book(t, domain.ServiceWash, false, 10)
	third, err := h.polling.Snapshot(ctx, SnapshotQuery{})
	require.NoError(t, err)
	assert.NotEqual(t, second.Revision, third.Revision)
}

func TestPolling_CanceledCallerDoesNotFailOthers(t *testing.T) {
	h := newHarness(t)
	h.book(t, domain.ServiceWash, false, 10)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.polling.Snapshot(canceled, SnapshotQuery{})
	assert.ErrorIs(t, err, context.Canceled)

	const callers = 8
	errs := make([]error, callers)
	snaps := make([]*Snapshot, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx := context.Background()
			if i%2 == 1 {
				var stop context.CancelFunc
				ctx, stop = context.WithCancel(ctx)
				go stop()
			}
			snaps[i], errs[i] = h.polling.Snapshot(ctx, SnapshotQuery{})
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i += 2 {
		require.NoError(t, errs[i], "caller %d", i)
		assert.Len(t, snaps[i].Sessions, 1)
	}
	for i := 1; i < callers; i += 2 {
		if errs[i] != nil {
			assert.ErrorIs(t, errs[i], context.Canceled)
		}
	}
}

func TestPolling_QueuePositions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.maintain(t, 1, 2, 3, 4, 5, 6)

	var ids []string
	for range 3 {
		ids = append(ids, h.book(t, domain.ServiceWash, false, 10).ID)
		h.clock.Advance(time.Second)
	}

	snap, err := h.polling.Snapshot(ctx, SnapshotQuery{})
	require.NoError(t, err)
	for i, id := range ids {
		v := sessionByID(t, snap, id)
		require.NotNil(t, v)
		assert.Equal(t, i+1, v.QueuePosition)
	}

	queue, err := h.polling.Queue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 3)
	assert.Equal(t, ids[0], queue[0].ID)
	assert.Equal(t, 1, queue[0].QueuePosition)

	_, err = h.sessions.Cancel(ctx, cashier, ids[0])
	require.NoError(t, err)
	view, err := h.polling.GetSession(ctx, ids[2])
	require.NoError(t, err)
	assert.Equal(t, 2, view.QueuePosition, "positions close up after a cancel")
}

func TestPolling_TerminalSessions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	done := h.book(t, domain.ServiceWash, false, 10)
	h.clock.Advance(time.Minute)
	_, err := h.sessions.Cancel(ctx, cashier, done.ID)
	require.NoError(t, err)
	live := h.book(t, domain.ServiceWash, false, 10)

	since := t0.Add(2 * time.Minute)
	tests := []struct {
		name     string
		query    SnapshotQuery
		wantDone bool
	}{
		{name: "live only", query: SnapshotQuery{}},
		{name: "with terminal", query: SnapshotQuery{IncludeTerminal: true}, wantDone: true},
		{name: "finished before since", query: SnapshotQuery{IncludeTerminal: true, Since: &since}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := h.polling.Snapshot(ctx, tt.query)
			require.NoError(t, err)
			assert.NotNil(t, sessionByID(t, snap, live.ID))
			v := sessionByID(t, snap, done.ID)
			if !tt.wantDone {
				assert.Nil(t, v)
				return
			}
			require.NotNil(t, v)
			require.NotNil(t, v.FinishedAt)
			assert.Equal(t, string(domain.SessionCanceled), v.Status)
			assert.Equal(t, string(domain.RoleCashier), v.CanceledBy)
		})
	}
}

func TestPolling_Timers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	s := h.book(t, domain.ServiceWash, false, 10)
	view, err := h.polling.GetSession(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Assign)
	assert.Equal(t, int64(600), view.Assign.RemainingSeconds)
	assert.Equal(t, 1, view.BoxNumber)
	assert.Nil(t, view.Chemistry)

	_, err = h.sessions.Start(ctx, customer, s.ID)
	require.NoError(t, err)
	h.clock.Advance(4 * time.Minute)

	view, err = h.polling.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, view.Assign)
	assert.True(t, view.Rental.Running)
	assert.Equal(t, int64(600), view.Rental.LimitSeconds)
	assert.Equal(t, int64(360), view.Rental.RemainingSeconds)
}

func TestPolling_CleaningBox(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	snap, err := h.polling.Snapshot(ctx, SnapshotQuery{})
	require.NoError(t, err)
	assert.Nil(t, snap.CleaningBoxID)

	box7 := h.box(t, 7).ID
	_, err = h.cleaning.StartCleaning(ctx, cleaner, box7)
	require.NoError(t, err)
	h.clock.Advance(4 * time.Minute)

	snap, err = h.polling.Snapshot(ctx, SnapshotQuery{})
	require.NoError(t, err)
	require.NotNil(t, snap.CleaningBoxID)
	assert.Equal(t, box7, *snap.CleaningBoxID)

	view := snap.Boxes[6]
	assert.Equal(t, 7, view.Number)
	require.NotNil(t, view.Cleaning)
	assert.True(t, view.Cleaning.Expired, "overdue cleaning is flagged, not ended")
	assert.Equal(t, int64(0), view.Cleaning.RemainingSeconds)
	assert.Equal(t, string(domain.BoxCleaning), view.Status)
}

func TestPolling_ExpireOnPoll(t *testing.T) {
	h := newHarness(t, harnessOptions{expireOnPoll: true})
	ctx := context.Background()

	s := h.book(t, domain.ServiceWash, false, 10)
	h.clock.Advance(11 * time.Minute)

	snap, err := h.polling.Snapshot(ctx, SnapshotQuery{})
	require.NoError(t, err)
	assert.Nil(t, sessionByID(t, snap, s.ID))
	assert.Equal(t, string(domain.BoxFree), snap.Boxes[0].Status)
	assert.Equal(t, domain.SessionExpired, h.session(t, s.ID).Status)
}

func TestPolling_NoExpiryWithoutTick(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	s := h.book(t, domain.ServiceWash, false, 10)
	h.clock.Advance(11 * time.Minute)

	view, err := h.polling.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, string(domain.SessionAssigned), view.Status)
	require.NotNil(t, view.Assign)
	assert.True(t, view.Assign.Expired)
}
