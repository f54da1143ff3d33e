package core

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/domain"
)

// Gauge returns the registered record for a gauge
func (g *Guild) Gauge(gauge common.Address) (domain.Gauge, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.gauges.Gauge(gauge)
}

// Gauges enumerates all registered gauges in registration order
func (g *Guild) Gauges() []domain.Gauge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.gauges.Gauges()
}

// IsActiveGauge reports whether the gauge is registered and active
func (g *Guild) IsActiveGauge(gauge common.Address) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.gauges.IsActive(gauge)
}

// IsDeprecatedGauge reports whether the gauge is registered and deprecated
func (g *Guild) IsDeprecatedGauge(gauge common.Address) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.gauges.IsDeprecated(gauge)
}

// BalanceOf returns the user's balance
func (g *Guild) BalanceOf(user common.Address) uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.book.BalanceOf(user)
}

// Allowance returns the spender's remaining allowance over the owner's
// balance
func (g *Guild) Allowance(owner, spender common.Address) uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.book.Allowance(owner, spender)
}

// WeightOf returns the user's current weight in a gauge
func (g *Guild) WeightOf(user, gauge common.Address) uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ledger.Weight(user, gauge)
}

// UserTotalWeight returns the user's total allocated weight, deprecated
// gauges included
func (g *Guild) UserTotalWeight(user common.Address) uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ledger.UserTotal(user)
}

// UserWeights returns the user's non-zero weight entries in insertion order
func (g *Guild) UserWeights(user common.Address) []domain.WeightEntry {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ledger.UserEntries(user)
}

// GaugeWeight returns a gauge's live total weight
func (g *Guild) GaugeWeight(gauge common.Address) uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ledger.GaugeWeight(gauge)
}

// StoredGaugeWeight returns a gauge's weight as of the most recently
// completed cycle boundary
func (g *Guild) StoredGaugeWeight(gauge common.Address) uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ledger.StoredGaugeWeight(gauge, g.clk.Now())
}

// TotalWeight returns the live total weight across active gauges
func (g *Guild) TotalWeight() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ledger.TotalWeight()
}

// StoredTotalWeight returns the global total as of the most recently
// completed cycle boundary
func (g *Guild) StoredTotalWeight() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ledger.StoredTotalWeight(g.clk.Now())
}

// TypeWeight returns the live total weight of active gauges of one type
func (g *Guild) TypeWeight(gaugeType domain.GaugeType) uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ledger.TypeWeight(gaugeType)
}

// StoredTypeWeight returns a type's total as of the most recently completed
// cycle boundary
func (g *Guild) StoredTypeWeight(gaugeType domain.GaugeType) uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ledger.StoredTypeWeight(gaugeType, g.clk.Now())
}

// CalculateAllocation sizes a proportional issuance against live weights
func (g *Guild) CalculateAllocation(gauge common.Address, totalAmount uint64) uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ledger.CalculateAllocation(gauge, totalAmount)
}

// CalculateStoredAllocation sizes a proportional issuance against the stored
// weights of the most recently completed cycle
func (g *Guild) CalculateStoredAllocation(gauge common.Address, totalAmount uint64) uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ledger.CalculateStoredAllocation(gauge, totalAmount, g.clk.Now())
}

// HasPendingLoss reports whether the pair is blocked on an unapplied loss
func (g *Guild) HasPendingLoss(user, gauge common.Address) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.losses.HasPendingLoss(user, gauge)
}

// PendingLosses returns the gauges in the user's set with an unapplied loss
func (g *Guild) PendingLosses(user common.Address) []common.Address {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.losses.PendingLosses(user)
}

// MaxGauges returns the per-user gauge cap
func (g *Guild) MaxGauges() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ledger.MaxGauges()
}

// IsExempt reports whether the user bypasses the per-user gauge cap
func (g *Guild) IsExempt(user common.Address) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ledger.IsExempt(user)
}

// Snapshots returns the stored-weight checkpoints effective now
func (g *Guild) Snapshots() []domain.CycleSnapshot {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.ledger.Snapshots(g.clk.Now())
}
