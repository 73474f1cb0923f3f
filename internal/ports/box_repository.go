package ports

import (
	"context"

	"washbay/internal/domain"
)

// BoxReader reads box data
type BoxReader interface {
	GetBox(ctx context.Context, id string) (*domain.Box, error)
	GetBoxByNumber(ctx context.Context, number int) (*domain.Box, error)
	// ListBoxes returns boxes ordered by number
	ListBoxes(ctx context.Context, filter domain.BoxFilter) ([]domain.Box, error)
}

// BoxWriter persists boxes. UpdateBox follows the same compare-and-swap
// contract as SessionWriter.UpdateSession.
type BoxWriter interface {
	UpdateBox(ctx context.Context, b *domain.Box) error
	// SyncFleet inserts boxes whose number is not yet stored and refreshes
	// service type and chemistry of existing ones. Runtime status is kept.
	SyncFleet(ctx context.Context, boxes []domain.Box) (created int, err error)
}

// BoxRepository is the composite interface
type BoxRepository interface {
	BoxReader
	BoxWriter
}
