package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"washbay/internal/adapters/storage"
	"washbay/internal/clock"
	"washbay/internal/config"
	"washbay/internal/domain"
)

var (
	t0       = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	cashier  = domain.Actor{ID: "cashier-1", Role: domain.RoleCashier}
	cleaner  = domain.Actor{ID: "cleaner-1", Role: domain.RoleCleaner}
	customer = domain.Actor{ID: "customer-1", Role: domain.RoleCustomer}
)

type harness struct {
	boxes     *BoxRegistry
	cleaning  *CleaningGuard
	clock     *clock.FakeClock
	polling   *PollingService
	reassign  *ReassignmentCoordinator
	runner    *Runner
	scheduler *Scheduler
	sessions  *SessionRegistry
	store     *storage.Repository
}

type harnessOptions struct {
	expireOnPoll bool
}

// newHarness wires every service over a fresh SQLite file and the default
// fleet: boxes 1-4 wash with chemistry, 5-6 wash, 7 air_dry, 8 vacuum.
func newHarness(t *testing.T, opts ...harnessOptions) *harness {
	t.Helper()
	var o harnessOptions
	if len(opts) > 0 {
		o = opts[0]
	}

	store, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "washbay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	settings := &config.Settings{}
	clk := clock.Fake(t0)
	runner := NewRunner(store, clk)
	scheduler := NewScheduler(runner, settings.AssignTimeout())

	h := &harness{
		boxes:     NewBoxRegistry(runner, scheduler, store),
		cleaning:  NewCleaningGuard(runner, scheduler),
		clock:     clk,
		polling:   NewPollingService(runner, scheduler, settings.AssignTimeout(), settings.CleaningTimeout(), o.expireOnPoll),
		reassign:  NewReassignmentCoordinator(runner, scheduler, store),
		runner:    runner,
		scheduler: scheduler,
		sessions:  NewSessionRegistry(runner, scheduler, store, settings.ChemistryMinutes(), settings.AssignTimeout()),
		store:     store,
	}

	_, err = h.boxes.SyncFleet(context.Background(), settings.Fleet(t0))
	require.NoError(t, err)
	return h
}

func (h *harness) box(t *testing.T, number int) *domain.Box {
	t.Helper()
	b, err := h.boxes.GetByNumber(context.Background(), number)
	require.NoError(t, err)
	return b
}

func (h *harness) session(t *testing.T, id string) *domain.Session {
	t.Helper()
	s, err := h.sessions.Get(context.Background(), id)
	require.NoError(t, err)
	return s
}

// book creates and pays for a session, letting the scheduler run
func (h *harness) book(t *testing.T, serviceType domain.ServiceType, withChemistry bool, rental int) *domain.Session {
	t.Helper()
	ctx := context.Background()
	s, err := h.sessions.Create(ctx, customer, CreateSessionParams{
		RentalTimeMinutes: rental,
		ServiceType:       serviceType,
		WithChemistry:     withChemistry,
	})
	require.NoError(t, err)
	s, err = h.sessions.MarkQueued(ctx, domain.SystemActor, s.ID)
	require.NoError(t, err)
	return s
}

// maintain puts boxes out of service so tests can shape the free pool
func (h *harness) maintain(t *testing.T, numbers ...int) {
	t.Helper()
	for _, n := range numbers {
		_, err := h.boxes.SetMaintenance(context.Background(), cashier, h.box(t, n).ID, "test")
		require.NoError(t, err)
	}
}

// assertInvariants checks the cross-entity invariants over the whole store
func (h *harness) assertInvariants(t *testing.T) {
	t.Helper()
	ctx := context.Background()

	sessions, err := h.store.ListSessions(ctx, domain.SessionFilter{})
	require.NoError(t, err)
	boxes, err := h.store.ListBoxes(ctx, domain.BoxFilter{})
	require.NoError(t, err)

	holders := map[string]string{}
	for i := range sessions {
		s := &sessions[i]
		require.NoError(t, s.Validate())
		if s.BoxID != nil {
			_, dup := holders[*s.BoxID]
			require.False(t, dup, "box %s referenced by two live sessions", *s.BoxID)
			holders[*s.BoxID] = s.ID
		}
	}

	slotHolders := 0
	for i := range boxes {
		b := &boxes[i]
		require.NoError(t, b.Validate())
		holder, referenced := holders[b.ID]
		require.Equal(t, b.Status == domain.BoxBusy, referenced, "box %d status %s", b.Number, b.Status)
		if referenced {
			require.Equal(t, holder, *b.OccupiedBy)
		}
		if b.HoldsCleaningSlot() {
			slotHolders++
		}
	}
	require.LessOrEqual(t, slotHolders, 1, "more than one box holds the cleaning slot")
}
