// Package ledger owns per-user gauge weights and the live/stored aggregates.
package ledger

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/cycle"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/domain"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/registry"
)

// BalanceReader exposes the balance-host view the ledger needs to bound
// allocations
type BalanceReader interface {
	BalanceOf(user common.Address) uint64
}

// LossGate blocks weight mutations on (user, gauge) pairs with an unapplied
// loss. Wired after construction because the loss tracker reads the ledger.
type LossGate interface {
	HasPendingLoss(user common.Address, gauge common.Address) bool
	// NoteFreshWeight marks the user as entering the gauge at now, so losses
	// reported earlier are not theirs to bear
	NoteFreshWeight(user common.Address, gauge common.Address, now time.Time)
}

// DebtCeilingChecker is the issuance collaborator's gate consulted when
// weight is withdrawn from a gauge
//
//go:generate mockgen -source=ledger.go -destination=../mocks/debt_ceiling.go -package=mocks -mock_names=DebtCeilingChecker=MockDebtCeilingChecker
type DebtCeilingChecker interface {
	// CanDecrement reports whether the gauge's debt ceiling allows removing
	// amount of weight
	CanDecrement(gauge common.Address, amount uint64) bool
}

// aggregate tracks a live total plus its once-per-cycle stored checkpoint
type aggregate struct {
	live           uint64
	stored         uint64
	storedCycleEnd time.Time
}

// roll materializes the stored value when a cycle boundary has been crossed
// since the last write. Between the boundary and the first write of the new
// cycle the live value is unchanged, so it is exactly the boundary value.
func (a *aggregate) roll(cycleEnd time.Time) {
	if cycleEnd.After(a.storedCycleEnd) {
		a.stored = a.live
		a.storedCycleEnd = cycleEnd
	}
}

// storedAt returns the effective stored value for a read at the given cycle
// end, rolling forward lazily without mutating.
func (a *aggregate) storedAt(cycleEnd time.Time) uint64 {
	if cycleEnd.After(a.storedCycleEnd) {
		return a.live
	}
	return a.stored
}

type userState struct {
	weights map[common.Address]uint64
	// order lists the user's gauges with non-zero weight, oldest first
	order []common.Address
	total uint64
}

// Ledger is the weight-allocation book. It is not safe for concurrent use;
// the core wraps every call in its single writer lock.
type Ledger struct {
	clock       *cycle.Clock
	gauges      registry.GaugeRegistry
	balances    BalanceReader
	lossGate    LossGate
	debtCeiling DebtCeilingChecker

	maxGauges int
	exempt    map[common.Address]bool

	users     map[common.Address]*userState
	gaugeAggs map[common.Address]*aggregate
	typeAggs  map[domain.GaugeType]*aggregate
	global    aggregate
}

// New creates an empty ledger. A zero maxGauges means unlimited.
func New(clk *cycle.Clock, gauges registry.GaugeRegistry, balances BalanceReader, maxGauges int) *Ledger {
	return &Ledger{
		clock:     clk,
		gauges:    gauges,
		balances:  balances,
		maxGauges: maxGauges,
		exempt:    make(map[common.Address]bool),
		users:     make(map[common.Address]*userState),
		gaugeAggs: make(map[common.Address]*aggregate),
		typeAggs:  make(map[domain.GaugeType]*aggregate),
	}
}

// SetLossGate wires the loss tracker in after construction
func (l *Ledger) SetLossGate(gate LossGate) {
	l.lossGate = gate
}

// SetDebtCeilingChecker wires the issuance collaborator's withdrawal gate
func (l *Ledger) SetDebtCeilingChecker(c DebtCeilingChecker) {
	l.debtCeiling = c
}

// Increment adds weight from user to an active gauge and returns the user's
// new total weight
func (l *Ledger) Increment(user, gauge common.Address, amount uint64, now time.Time) (uint64, error) {
	if err := l.checkIncrement(user, gauge, now); err != nil {
		return 0, err
	}

	us := l.user(user)
	if amount > 0 {
		if _, held := us.weights[gauge]; !held {
			if err := l.checkGaugeCount(user, us, 1); err != nil {
				return 0, err
			}
		}
	}
	newTotal, err := domain.CheckedAdd(us.total, amount)
	if err != nil {
		return 0, err
	}
	if newTotal > l.balances.BalanceOf(user) {
		return 0, fmt.Errorf("%w: %d > balance %d", domain.ErrOverweight, newTotal, l.balances.BalanceOf(user))
	}

	l.applyIncrement(user, us, gauge, amount, now)
	return us.total, nil
}

// IncrementMany applies Increment semantics to each (gauge, amount) pair,
// all-or-nothing: every precondition is validated before any state changes.
func (l *Ledger) IncrementMany(user common.Address, gauges []common.Address, amounts []uint64, now time.Time) (uint64, error) {
	if len(gauges) != len(amounts) {
		return 0, fmt.Errorf("%w: %d gauges, %d amounts", domain.ErrSizeMismatch, len(gauges), len(amounts))
	}

	us := l.user(user)
	newTotal := us.total
	fresh := make(map[common.Address]bool)
	for i, gauge := range gauges {
		if err := l.checkIncrement(user, gauge, now); err != nil {
			return 0, err
		}
		if amounts[i] > 0 {
			if _, held := us.weights[gauge]; !held {
				fresh[gauge] = true
			}
		}
		var err error
		newTotal, err = domain.CheckedAdd(newTotal, amounts[i])
		if err != nil {
			return 0, err
		}
	}
	if newTotal > l.balances.BalanceOf(user) {
		return 0, fmt.Errorf("%w: %d > balance %d", domain.ErrOverweight, newTotal, l.balances.BalanceOf(user))
	}
	if len(fresh) > 0 {
		if err := l.checkGaugeCount(user, us, len(fresh)); err != nil {
			return 0, err
		}
	}

	for i, gauge := range gauges {
		l.applyIncrement(user, us, gauge, amounts[i], now)
	}
	return us.total, nil
}

// Decrement removes weight from user's allocation to a gauge, active or
// deprecated, and returns the user's new total weight. Decrementing more
// than the current weight is a caller defect, not a business error.
func (l *Ledger) Decrement(user, gauge common.Address, amount uint64, now time.Time) (uint64, error) {
	if err := l.checkDecrement(user, gauge, amount); err != nil {
		return 0, err
	}
	us := l.user(user)
	l.applyDecrement(us, gauge, amount, now)
	return us.total, nil
}

// DecrementMany is the batched analogue of Decrement, all-or-nothing
func (l *Ledger) DecrementMany(user common.Address, gauges []common.Address, amounts []uint64, now time.Time) (uint64, error) {
	if len(gauges) != len(amounts) {
		return 0, fmt.Errorf("%w: %d gauges, %d amounts", domain.ErrSizeMismatch, len(gauges), len(amounts))
	}

	us := l.user(user)
	// cumulative per-gauge amounts so duplicated gauges in one batch are
	// validated against the weight actually available
	pending := make(map[common.Address]uint64)
	for i, gauge := range gauges {
		if err := l.checkDecrement(user, gauge, amounts[i]+pending[gauge]); err != nil {
			return 0, err
		}
		pending[gauge] += amounts[i]
	}

	for i, gauge := range gauges {
		l.applyDecrement(us, gauge, amounts[i], now)
	}
	return us.total, nil
}

// FreeUpTo brings the user's total allocated weight down to at most target,
// draining gauges in reverse insertion order. Deprecated gauges count toward
// the user's used total and are drained like any other. Returns the per-gauge
// amounts freed.
func (l *Ledger) FreeUpTo(user common.Address, target uint64, now time.Time) ([]domain.WeightEntry, error) {
	us, ok := l.users[user]
	if !ok || us.total <= target {
		return nil, nil
	}
	needed := us.total - target

	var freed []domain.WeightEntry
	for i := len(us.order) - 1; i >= 0 && needed > 0; i-- {
		gauge := us.order[i]
		take := us.weights[gauge]
		if take > needed {
			take = needed
		}
		l.applyDecrement(us, gauge, take, now)
		needed -= take
		freed = append(freed, domain.WeightEntry{User: user, Gauge: gauge, Weight: take})
	}
	return freed, nil
}

// Forfeit zeroes the user's weight in a gauge and removes it from the live
// aggregates, returning the forfeited amount. Used by loss application; it
// bypasses the loss gate and the debt ceiling on purpose.
func (l *Ledger) Forfeit(user, gauge common.Address, now time.Time) uint64 {
	us, ok := l.users[user]
	if !ok {
		return 0
	}
	amount := us.weights[gauge]
	if amount == 0 {
		return 0
	}
	l.applyDecrement(us, gauge, amount, now)
	return amount
}

// DeactivateGauge drops a gauge's live total from the active-only aggregates.
// O(1): the gauge's own aggregate keeps its value, only the rollups move.
func (l *Ledger) DeactivateGauge(gauge common.Address, gaugeType domain.GaugeType, now time.Time) {
	agg := l.gaugeAgg(gauge)
	l.rollRollups(gaugeType, now)
	l.typeAgg(gaugeType).live -= agg.live
	l.global.live -= agg.live
}

// ReactivateGauge restores a deprecated gauge's live total to the active-only
// aggregates, making its historical per-user weight count again.
func (l *Ledger) ReactivateGauge(gauge common.Address, gaugeType domain.GaugeType, now time.Time) {
	agg := l.gaugeAgg(gauge)
	l.rollRollups(gaugeType, now)
	l.typeAgg(gaugeType).live += agg.live
	l.global.live += agg.live
}

// SetMaxGauges updates the per-user gauge cap. Zero means unlimited.
// Users already above the new cap keep their set; the cap only gates adding.
func (l *Ledger) SetMaxGauges(n int) {
	l.maxGauges = n
}

// MaxGauges returns the per-user gauge cap
func (l *Ledger) MaxGauges() int {
	return l.maxGauges
}

// SetExempt flags or unflags a user as exempt from the per-user gauge cap
func (l *Ledger) SetExempt(user common.Address, exempt bool) error {
	if user == domain.ZeroAddress {
		return fmt.Errorf("%w: zero address", domain.ErrNotExemptTarget)
	}
	if !exempt {
		if us, ok := l.users[user]; ok && l.maxGauges > 0 && len(us.order) > l.maxGauges {
			return fmt.Errorf("%w: %s holds %d gauges, cap is %d", domain.ErrNotExemptTarget, user.Hex(), len(us.order), l.maxGauges)
		}
		delete(l.exempt, user)
		return nil
	}
	l.exempt[user] = true
	return nil
}

// IsExempt reports whether the user bypasses the per-user gauge cap
func (l *Ledger) IsExempt(user common.Address) bool {
	return l.exempt[user]
}

// Weight returns the user's current weight in a gauge
func (l *Ledger) Weight(user, gauge common.Address) uint64 {
	us, ok := l.users[user]
	if !ok {
		return 0
	}
	return us.weights[gauge]
}

// UserTotal returns the user's total allocated weight across all gauges,
// deprecated ones included
func (l *Ledger) UserTotal(user common.Address) uint64 {
	us, ok := l.users[user]
	if !ok {
		return 0
	}
	return us.total
}

// UserGauges enumerates the gauges the user holds non-zero weight in,
// oldest allocation first
func (l *Ledger) UserGauges(user common.Address) []common.Address {
	us, ok := l.users[user]
	if !ok {
		return nil
	}
	out := make([]common.Address, len(us.order))
	copy(out, us.order)
	return out
}

// UserEntries returns the user's non-zero weight entries in insertion order
func (l *Ledger) UserEntries(user common.Address) []domain.WeightEntry {
	us, ok := l.users[user]
	if !ok {
		return nil
	}
	out := make([]domain.WeightEntry, 0, len(us.order))
	for _, gauge := range us.order {
		out = append(out, domain.WeightEntry{User: user, Gauge: gauge, Weight: us.weights[gauge]})
	}
	return out
}

// GaugeWeight returns a gauge's live total weight
func (l *Ledger) GaugeWeight(gauge common.Address) uint64 {
	if agg, ok := l.gaugeAggs[gauge]; ok {
		return agg.live
	}
	return 0
}

// StoredGaugeWeight returns a gauge's weight as of the most recently
// completed cycle boundary
func (l *Ledger) StoredGaugeWeight(gauge common.Address, now time.Time) uint64 {
	if agg, ok := l.gaugeAggs[gauge]; ok {
		return agg.storedAt(l.clock.CycleEnd(now))
	}
	return 0
}

// TotalWeight returns the live total weight across all active gauges
func (l *Ledger) TotalWeight() uint64 {
	return l.global.live
}

// StoredTotalWeight returns the global total as of the most recently
// completed cycle boundary
func (l *Ledger) StoredTotalWeight(now time.Time) uint64 {
	return l.global.storedAt(l.clock.CycleEnd(now))
}

// TypeWeight returns the live total weight of active gauges of one type
func (l *Ledger) TypeWeight(gaugeType domain.GaugeType) uint64 {
	if agg, ok := l.typeAggs[gaugeType]; ok {
		return agg.live
	}
	return 0
}

// StoredTypeWeight returns a type's total as of the most recently completed
// cycle boundary
func (l *Ledger) StoredTypeWeight(gaugeType domain.GaugeType, now time.Time) uint64 {
	if agg, ok := l.typeAggs[gaugeType]; ok {
		return agg.storedAt(l.clock.CycleEnd(now))
	}
	return 0
}

// CalculateAllocation splits totalAmount proportionally to the gauge's share
// of the live global weight, truncating toward zero
func (l *Ledger) CalculateAllocation(gauge common.Address, totalAmount uint64) uint64 {
	if l.global.live == 0 {
		return 0
	}
	return domain.MulDiv(totalAmount, l.GaugeWeight(gauge), l.global.live)
}

// CalculateStoredAllocation is CalculateAllocation against the stored
// aggregates of the most recently completed cycle
func (l *Ledger) CalculateStoredAllocation(gauge common.Address, totalAmount uint64, now time.Time) uint64 {
	total := l.StoredTotalWeight(now)
	if total == 0 {
		return 0
	}
	return domain.MulDiv(totalAmount, l.StoredGaugeWeight(gauge, now), total)
}

// Snapshots returns the stored-weight checkpoints effective at now, for the
// global scope, every gauge type, and every gauge with a recorded aggregate
func (l *Ledger) Snapshots(now time.Time) []domain.CycleSnapshot {
	cycleEnd := l.clock.CycleEnd(now)
	out := []domain.CycleSnapshot{{
		Scope:        domain.SnapshotScopeGlobal,
		StoredWeight: l.global.storedAt(cycleEnd),
		CycleEnd:     cycleEnd,
	}}
	for gaugeType, agg := range l.typeAggs {
		out = append(out, domain.CycleSnapshot{
			Scope:        domain.SnapshotScopeGaugeType,
			Key:          string(gaugeType),
			StoredWeight: agg.storedAt(cycleEnd),
			CycleEnd:     cycleEnd,
		})
	}
	for _, g := range l.gauges.Gauges() {
		out = append(out, domain.CycleSnapshot{
			Scope:        domain.SnapshotScopeGauge,
			Key:          g.Address.Hex(),
			StoredWeight: l.gaugeAgg(g.Address).storedAt(cycleEnd),
			CycleEnd:     cycleEnd,
		})
	}
	return out
}

// RestoreEntry re-installs a persisted weight entry at boot. Aggregates must
// be finalized afterwards with RestoreAggregates.
func (l *Ledger) RestoreEntry(entry domain.WeightEntry) {
	if entry.Weight == 0 {
		return
	}
	us := l.user(entry.User)
	if _, held := us.weights[entry.Gauge]; !held {
		us.order = append(us.order, entry.Gauge)
	}
	us.weights[entry.Gauge] = entry.Weight
	us.total += entry.Weight
	l.gaugeAgg(entry.Gauge).live += entry.Weight
}

// RestoreAggregates rebuilds the type and global rollups from the restored
// per-gauge aggregates, counting active gauges only
func (l *Ledger) RestoreAggregates() {
	l.global = aggregate{}
	l.typeAggs = make(map[domain.GaugeType]*aggregate)
	for _, g := range l.gauges.Gauges() {
		if g.Status != domain.GaugeStatusActive {
			continue
		}
		live := l.gaugeAgg(g.Address).live
		l.typeAgg(g.Type).live += live
		l.global.live += live
	}
}

// RestoreStored re-applies a persisted stored-weight checkpoint
func (l *Ledger) RestoreStored(snap domain.CycleSnapshot) {
	var agg *aggregate
	switch snap.Scope {
	case domain.SnapshotScopeGlobal:
		agg = &l.global
	case domain.SnapshotScopeGaugeType:
		agg = l.typeAgg(domain.GaugeType(snap.Key))
	case domain.SnapshotScopeGauge:
		agg = l.gaugeAgg(common.HexToAddress(snap.Key))
	default:
		return
	}
	if snap.CycleEnd.After(agg.storedCycleEnd) {
		agg.stored = snap.StoredWeight
		agg.storedCycleEnd = snap.CycleEnd
	}
}

func (l *Ledger) checkIncrement(user, gauge common.Address, now time.Time) error {
	if !l.gauges.IsActive(gauge) {
		return fmt.Errorf("%w: %s is not active", domain.ErrInvalidGauge, gauge.Hex())
	}
	if l.clock.InFreezeWindow(now) {
		return fmt.Errorf("%w: next cycle ends at %s", domain.ErrFreezePeriod, l.clock.CycleEnd(now).Format(time.RFC3339))
	}
	if l.lossGate != nil && l.lossGate.HasPendingLoss(user, gauge) {
		return fmt.Errorf("%w: apply the loss on gauge %s first", domain.ErrPendingLoss, gauge.Hex())
	}
	return nil
}

func (l *Ledger) checkGaugeCount(user common.Address, us *userState, adding int) error {
	if l.maxGauges == 0 || l.exempt[user] {
		return nil
	}
	if len(us.order)+adding > l.maxGauges {
		return fmt.Errorf("%w: user %s at cap %d", domain.ErrExceedMaxGauges, user.Hex(), l.maxGauges)
	}
	return nil
}

func (l *Ledger) checkDecrement(user, gauge common.Address, amount uint64) error {
	if _, known := l.gauges.TypeOf(gauge); !known {
		return fmt.Errorf("%w: %s is not registered", domain.ErrInvalidGauge, gauge.Hex())
	}
	if l.lossGate != nil && l.lossGate.HasPendingLoss(user, gauge) {
		return fmt.Errorf("%w: apply the loss on gauge %s first", domain.ErrPendingLoss, gauge.Hex())
	}
	current := l.Weight(user, gauge)
	if amount > current {
		return fmt.Errorf("%w: decrement %d exceeds weight %d", domain.ErrArithmeticFault, amount, current)
	}
	if l.debtCeiling != nil && !l.debtCeiling.CanDecrement(gauge, amount) {
		return fmt.Errorf("%w: gauge %s", domain.ErrDebtCeilingUsed, gauge.Hex())
	}
	return nil
}

// applyIncrement mutates state. All preconditions must already hold.
func (l *Ledger) applyIncrement(user common.Address, us *userState, gauge common.Address, amount uint64, now time.Time) {
	if amount == 0 {
		return
	}
	gaugeType, _ := l.gauges.TypeOf(gauge)
	l.rollAll(gauge, gaugeType, now)

	if _, held := us.weights[gauge]; !held {
		us.order = append(us.order, gauge)
		if l.lossGate != nil {
			l.lossGate.NoteFreshWeight(user, gauge, now)
		}
	}
	us.weights[gauge] += amount
	us.total += amount
	l.gaugeAgg(gauge).live += amount
	l.typeAgg(gaugeType).live += amount
	l.global.live += amount
}

// applyDecrement mutates state. All preconditions must already hold; the
// amount never exceeds the current weight.
func (l *Ledger) applyDecrement(us *userState, gauge common.Address, amount uint64, now time.Time) {
	if amount == 0 {
		return
	}
	gaugeType, _ := l.gauges.TypeOf(gauge)
	active := l.gauges.IsActive(gauge)
	l.rollAll(gauge, gaugeType, now)

	us.weights[gauge] -= amount
	us.total -= amount
	l.gaugeAgg(gauge).live -= amount
	if active {
		l.typeAgg(gaugeType).live -= amount
		l.global.live -= amount
	}

	if us.weights[gauge] == 0 {
		delete(us.weights, gauge)
		for i, g := range us.order {
			if g == gauge {
				us.order = append(us.order[:i], us.order[i+1:]...)
				break
			}
		}
	}
}

func (l *Ledger) rollAll(gauge common.Address, gaugeType domain.GaugeType, now time.Time) {
	cycleEnd := l.clock.CycleEnd(now)
	l.gaugeAgg(gauge).roll(cycleEnd)
	l.typeAgg(gaugeType).roll(cycleEnd)
	l.global.roll(cycleEnd)
}

func (l *Ledger) rollRollups(gaugeType domain.GaugeType, now time.Time) {
	cycleEnd := l.clock.CycleEnd(now)
	l.typeAgg(gaugeType).roll(cycleEnd)
	l.global.roll(cycleEnd)
}

func (l *Ledger) user(user common.Address) *userState {
	us, ok := l.users[user]
	if !ok {
		us = &userState{weights: make(map[common.Address]uint64)}
		l.users[user] = us
	}
	return us
}

func (l *Ledger) gaugeAgg(gauge common.Address) *aggregate {
	agg, ok := l.gaugeAggs[gauge]
	if !ok {
		agg = &aggregate{}
		l.gaugeAggs[gauge] = agg
	}
	return agg
}

func (l *Ledger) typeAgg(gaugeType domain.GaugeType) *aggregate {
	agg, ok := l.typeAggs[gaugeType]
	if !ok {
		agg = &aggregate{}
		l.typeAggs[gaugeType] = agg
	}
	return agg
}
