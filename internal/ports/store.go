package ports

import "context"

// Repository groups every entity repository bound to one connection or
// transaction.
type Repository interface {
	BoxRepository
	EventRepository
	SessionRepository
}

// Store is the persistence root. Atomically runs fn in a single database
// transaction; any error returned by fn rolls back every write made through
// the Repository it was handed.
type Store interface {
	Repository
	Atomically(ctx context.Context, fn func(repo Repository) error) error
	Close() error
}

// SweepLock guards a process-wide singleton such as the expiry sweeper.
type SweepLock interface {
	// TryLock returns false without blocking when another process holds the lock.
	TryLock() (bool, error)
	Unlock() error
}
