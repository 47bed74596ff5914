// Package state persists the accounting document between restarts.
package state

import (
	"context"

	"energy-billing/internal/accounting"
)

// Store loads and saves one instance's accounting document.
// Load on a store that has never been saved returns an empty normalized document.
type Store interface {
	Load(ctx context.Context) (*accounting.State, error)
	Save(ctx context.Context, s *accounting.State) error
	Close() error
}
