package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"washbay/internal/domain"
	"washbay/internal/ports"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "washbay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func testFleet() []domain.Box {
	return []domain.Box{
		{Number: 1, ServiceType: domain.ServiceWash, ChemistryEnabled: true, UpdatedAt: t0},
		{Number: 2, ServiceType: domain.ServiceWash, UpdatedAt: t0},
		{Number: 3, ServiceType: domain.ServiceVacuum, UpdatedAt: t0},
	}
}

func newSession(t *testing.T, repo *Repository, createdAt time.Time) *domain.Session {
	t.Helper()
	s, err := domain.NewSession("", domain.NewSessionParams{
		RentalTimeMinutes: 10,
		ServiceType:       domain.ServiceWash,
	}, createdAt)
	require.NoError(t, err)
	require.NoError(t, repo.CreateSession(context.Background(), s))
	return s
}

func TestSyncFleet(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	created, err := repo.SyncFleet(ctx, testFleet())
	require.NoError(t, err)
	assert.Equal(t, 3, created)

	box, err := repo.GetBoxByNumber(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, box.Reserve(t0))
	require.NoError(t, repo.UpdateBox(ctx, box))

	fleet := testFleet()
	fleet[1].ChemistryEnabled = true
	fleet = append(fleet, domain.Box{Number: 4, ServiceType: domain.ServiceAirDry, UpdatedAt: t0})
	created, err = repo.SyncFleet(ctx, fleet)
	require.NoError(t, err)
	assert.Equal(t, 1, created)

	box, err = repo.GetBoxByNumber(ctx, 2)
	require.NoError(t, err)
	assert.True(t, box.ChemistryEnabled)
	assert.Equal(t, domain.BoxReserved, box.Status, "sync must not touch runtime status")

	boxes, err := repo.ListBoxes(ctx, domain.BoxFilter{})
	require.NoError(t, err)
	require.Len(t, boxes, 4)
	for i, b := range boxes {
		assert.Equal(t, i+1, b.Number)
	}
}

func TestListBoxes_Filter(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	_, err := repo.SyncFleet(ctx, testFleet())
	require.NoError(t, err)

	boxes, err := repo.ListBoxes(ctx, domain.BoxFilter{ServiceType: domain.ServiceWash, Statuses: []domain.BoxStatus{domain.BoxFree}})
	require.NoError(t, err)
	assert.Len(t, boxes, 2)

	_, err = repo.GetBoxByNumber(ctx, 99)
	assert.ErrorIs(t, err, domain.ErrBoxNotFound)
}

func TestSession_RoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	s := newSession(t, repo, t0)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, int64(1), s.Version)

	require.NoError(t, s.MarkQueued(t0.Add(time.Second)))
	require.NoError(t, repo.UpdateSession(ctx, s))
	assert.Equal(t, int64(2), s.Version)

	got, err := repo.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionInQueue, got.Status)
	assert.Equal(t, int64(2), got.Version)
	assert.True(t, got.UpdatedAt.Equal(t0.Add(time.Second)))

	_, err = repo.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
}

func TestUpdateSession_StaleVersion(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	s := newSession(t, repo, t0)

	first, err := repo.GetSession(ctx, s.ID)
	require.NoError(t, err)
	second, err := repo.GetSession(ctx, s.ID)
	require.NoError(t, err)

	require.NoError(t, first.MarkQueued(t0))
	require.NoError(t, repo.UpdateSession(ctx, first))

	require.NoError(t, second.Cancel(domain.Actor{Role: domain.RoleCustomer}, t0))
	err = repo.UpdateSession(ctx, second)
	assert.ErrorIs(t, err, domain.ErrConflict)

	stored, err := repo.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionInQueue, stored.Status)

	ghost := *s
	ghost.ID = "ghost"
	assert.ErrorIs(t, repo.UpdateSession(ctx, &ghost), domain.ErrSessionNotFound)
}

func TestListQueue_FIFO(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	late := newSession(t, repo, t0.Add(2*time.Minute))
	early := newSession(t, repo, t0)
	mid := newSession(t, repo, t0.Add(1500*time.Millisecond))
	unqueued := newSession(t, repo, t0.Add(-time.Hour))

	for _, s := range []*domain.Session{late, early, mid} {
		require.NoError(t, s.MarkQueued(t0))
		require.NoError(t, repo.UpdateSession(ctx, s))
	}

	queue, err := repo.ListQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 3)
	assert.Equal(t, []string{early.ID, mid.ID, late.ID}, []string{queue[0].ID, queue[1].ID, queue[2].ID})
	assert.NotContains(t, []string{queue[0].ID, queue[1].ID, queue[2].ID}, unqueued.ID)
}

func TestUpdateBox_CleaningSlotUnique(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	_, err := repo.SyncFleet(ctx, testFleet())
	require.NoError(t, err)

	b1, err := repo.GetBoxByNumber(ctx, 1)
	require.NoError(t, err)
	b2, err := repo.GetBoxByNumber(ctx, 2)
	require.NoError(t, err)

	require.NoError(t, b1.ReserveCleaning("cleaner-1", t0))
	require.NoError(t, repo.UpdateBox(ctx, b1))

	require.NoError(t, b2.ReserveCleaning("cleaner-2", t0))
	err = repo.UpdateBox(ctx, b2)
	assert.ErrorIs(t, err, domain.ErrCleaningSlotTaken)

	require.NoError(t, b1.CancelCleaning(t0))
	require.NoError(t, repo.UpdateBox(ctx, b1))

	fresh, err := repo.GetBoxByNumber(ctx, 2)
	require.NoError(t, err)
	require.NoError(t, fresh.ReserveCleaning("cleaner-2", t0))
	assert.NoError(t, repo.UpdateBox(ctx, fresh))
}

func TestUpdateSession_BoxHeldOnce(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	a := newSession(t, repo, t0)
	b := newSession(t, repo, t0.Add(time.Second))
	for _, s := range []*domain.Session{a, b} {
		require.NoError(t, s.MarkQueued(t0))
		require.NoError(t, s.Assign("box-1", t0))
	}
	require.NoError(t, repo.UpdateSession(ctx, a))
	assert.ErrorIs(t, repo.UpdateSession(ctx, b), domain.ErrConflict)
}

func TestAtomically_RollsBack(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	s := newSession(t, repo, t0)
	boom := errors.New("boom")

	err := repo.Atomically(ctx, func(tx ports.Repository) error {
		cur, err := tx.GetSession(ctx, s.ID)
		require.NoError(t, err)
		require.NoError(t, cur.MarkQueued(t0))
		require.NoError(t, tx.UpdateSession(ctx, cur))
		require.NoError(t, tx.AppendEvent(ctx, &domain.Event{Type: domain.EventSessionQueued, Actor: domain.SystemActor, CreatedAt: t0}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := repo.GetSession(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SessionCreated, stored.Status)

	events, err := repo.ListEvents(ctx, ports.EventFilter{})
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEvents(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	sid := "s-1"

	for i, typ := range []domain.EventType{domain.EventSessionCreated, domain.EventSessionQueued, domain.EventSessionAssigned} {
		require.NoError(t, repo.AppendEvent(ctx, &domain.Event{
			Actor:     domain.Actor{ID: "c1", Role: domain.RoleCashier},
			CreatedAt: t0.Add(time.Duration(i) * time.Minute),
			Details:   map[string]any{"step": i},
			SessionID: &sid,
			Type:      typ,
		}))
	}

	events, err := repo.ListEvents(ctx, ports.EventFilter{SessionID: sid})
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, domain.EventSessionCreated, events[0].Type)
	assert.Equal(t, domain.RoleCashier, events[0].Actor.Role)
	assert.EqualValues(t, 2, events[2].Details["step"])

	latest, err := repo.ListEvents(ctx, ports.EventFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, domain.EventSessionQueued, latest[0].Type)
	assert.Equal(t, domain.EventSessionAssigned, latest[1].Type)

	since, err := repo.ListEvents(ctx, ports.EventFilter{Since: t0.Add(90 * time.Second)})
	require.NoError(t, err)
	assert.Len(t, since, 1)
}
