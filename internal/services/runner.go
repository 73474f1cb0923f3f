package services

import (
	"context"
	"sync"
	"time"

	"washbay/internal/clock"
	"washbay/internal/ports"
)

// Runner serialises every mutation issued by this process and runs it in a
// single storage transaction. Other processes are kept out by version
// checks and unique indexes in the store.
type Runner struct {
	clock clock.Clock
	mu    sync.Mutex
	store ports.Store
}

// NewRunner creates a Runner over store
func NewRunner(store ports.Store, clk clock.Clock) *Runner {
	if clk == nil {
		clk = clock.Real()
	}
	return &Runner{clock: clk, store: store}
}

// Run executes fn atomically. fn receives the transaction-bound repository
// and the instant the transaction observes as "now".
func (r *Runner) Run(ctx context.Context, fn func(repo ports.Repository, now time.Time) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.store.Atomically(ctx, func(repo ports.Repository) error {
		return fn(repo, r.clock.Now())
	})
}

// Now returns the runner's clock reading
func (r *Runner) Now() time.Time {
	return r.clock.Now()
}
