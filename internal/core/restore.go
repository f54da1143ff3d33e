package core

import (
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/domain"
)

// Restore rehydrates the core from persisted state. It must run before the
// core serves traffic; restored rows bypass the public operations' checks
// because historical state (deprecated gauges still holding weight, users
// above a lowered cap) cannot be replayed through them.
func (g *Guild) Restore(state domain.LedgerState, snapshots []domain.CycleSnapshot) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if state.MaxGauges > 0 {
		g.ledger.SetMaxGauges(state.MaxGauges)
	}
	for _, gauge := range state.Gauges {
		g.gauges.Restore(gauge)
	}
	for _, user := range state.Users {
		g.book.Restore(user.Address, user.Balance)
		if user.Exempt {
			_ = g.ledger.SetExempt(user.Address, true)
		}
	}
	for _, entry := range state.Entries {
		g.ledger.RestoreEntry(entry)
	}
	g.ledger.RestoreAggregates()
	for _, snap := range snapshots {
		g.ledger.RestoreStored(snap)
	}
	for _, rec := range state.Losses {
		g.losses.RestoreLoss(rec)
	}
	for _, ack := range state.Acks {
		g.losses.RestoreAck(ack)
	}
}
