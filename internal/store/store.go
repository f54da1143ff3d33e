package store

import (
	"context"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/domain"
)

// Store defines the interface for ledger persistence
//
//go:generate mockgen -source=store.go -destination=../mocks/store.go -package=mocks -mock_names=Store=MockStore
type Store interface {
	// ApplyDelta upserts the state rows touched by one committed operation
	ApplyDelta(ctx context.Context, delta domain.StateDelta) error
	// AppendEvent appends one committed mutation to the journal
	AppendEvent(ctx context.Context, event domain.LedgerEvent) error
	// AppendSnapshots appends stored-weight checkpoints; duplicates for the
	// same (scope, key, cycle_end) are ignored
	AppendSnapshots(ctx context.Context, snapshots []domain.CycleSnapshot) error
	// LoadLedgerState loads the full persisted state for rehydration
	LoadLedgerState(ctx context.Context) (*domain.LedgerState, error)
	// LatestSnapshots returns the newest checkpoint per (scope, key)
	LatestSnapshots(ctx context.Context) ([]domain.CycleSnapshot, error)
	// ListEvents pages through the journal in commit order, starting after
	// the given event ID (empty for the beginning)
	ListEvents(ctx context.Context, afterID string, limit int) ([]domain.LedgerEvent, error)
	// Migrate creates or updates the database schema
	Migrate(ctx context.Context) error
}
