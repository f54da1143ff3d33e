// Package loss tracks per-gauge loss reports and forces their application
// against every voter with weight in the gauge.
package loss

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/domain"
)

// WeightBook is the slice of the ledger the tracker reads and slashes
type WeightBook interface {
	Weight(user, gauge common.Address) uint64
	UserGauges(user common.Address) []common.Address
	Forfeit(user, gauge common.Address, now time.Time) uint64
}

// BalanceSlasher debits a user's balance without running the balance-host
// hooks; weight is forfeited before the balance moves, so the overweight
// invariant holds throughout.
type BalanceSlasher interface {
	Slash(user common.Address, amount uint64) error
}

type userGaugeKey struct {
	user  common.Address
	gauge common.Address
}

// Tracker owns loss timestamps and per-(user, gauge) acknowledgments.
// Not safe for concurrent use; the core serializes access.
type Tracker struct {
	book    WeightBook
	slasher BalanceSlasher
	lossAt  map[common.Address]time.Time
	ackAt   map[userGaugeKey]time.Time
}

// New creates an empty tracker over the given ledger view and slasher
func New(book WeightBook, slasher BalanceSlasher) *Tracker {
	return &Tracker{
		book:    book,
		slasher: slasher,
		lossAt:  make(map[common.Address]time.Time),
		ackAt:   make(map[userGaugeKey]time.Time),
	}
}

// ReportLoss records a realized loss in a gauge. One slot per gauge; only
// the latest report matters. No balances or weights move here.
func (t *Tracker) ReportLoss(gauge common.Address, now time.Time) {
	t.lossAt[gauge] = now
}

// HasPendingLoss reports whether the user must apply a loss on the gauge
// before touching it again. A user with zero weight has nothing pending even
// if the gauge's loss is recent.
func (t *Tracker) HasPendingLoss(user, gauge common.Address) bool {
	lossAt, ok := t.lossAt[gauge]
	if !ok {
		return false
	}
	if t.book.Weight(user, gauge) == 0 {
		return false
	}
	return lossAt.After(t.ackAt[userGaugeKey{user: user, gauge: gauge}])
}

// HasAnyPendingLoss reports whether any gauge in the user's current set has
// an unapplied loss. Balance-reducing operations are blocked wholesale until
// every one of them is applied.
func (t *Tracker) HasAnyPendingLoss(user common.Address) bool {
	for _, gauge := range t.book.UserGauges(user) {
		if t.HasPendingLoss(user, gauge) {
			return true
		}
	}
	return false
}

// PendingLosses returns the gauges in the user's set with an unapplied loss
func (t *Tracker) PendingLosses(user common.Address) []common.Address {
	var out []common.Address
	for _, gauge := range t.book.UserGauges(user) {
		if t.HasPendingLoss(user, gauge) {
			out = append(out, gauge)
		}
	}
	return out
}

// NoteFreshWeight acknowledges every loss reported before now for a user
// whose weight in the gauge is moving from zero to non-zero. An entrant bears
// only losses reported while they actually hold weight.
func (t *Tracker) NoteFreshWeight(user, gauge common.Address, now time.Time) {
	key := userGaugeKey{user: user, gauge: gauge}
	if now.After(t.ackAt[key]) {
		t.ackAt[key] = now
	}
}

// ApplyLoss slashes the user's balance by exactly their current weight in
// the gauge, zeroes that weight, and acknowledges the loss. Callable on
// behalf of any user; this is the single self-healing operation.
func (t *Tracker) ApplyLoss(gauge, user common.Address, now time.Time) (uint64, error) {
	if !t.HasPendingLoss(user, gauge) {
		return 0, fmt.Errorf("%w: user %s, gauge %s", domain.ErrNoLossToApply, user.Hex(), gauge.Hex())
	}

	slashed := t.book.Forfeit(user, gauge, now)
	if err := t.slasher.Slash(user, slashed); err != nil {
		return 0, fmt.Errorf("slash balance of %s: %w", user.Hex(), err)
	}
	t.ackAt[userGaugeKey{user: user, gauge: gauge}] = now
	return slashed, nil
}

// LossAt returns the latest loss timestamp for a gauge
func (t *Tracker) LossAt(gauge common.Address) (time.Time, bool) {
	at, ok := t.lossAt[gauge]
	return at, ok
}

// Losses enumerates every recorded loss
func (t *Tracker) Losses() []domain.LossRecord {
	out := make([]domain.LossRecord, 0, len(t.lossAt))
	for gauge, at := range t.lossAt {
		out = append(out, domain.LossRecord{Gauge: gauge, ReportedAt: at})
	}
	return out
}

// RestoreLoss re-installs a persisted loss record at boot
func (t *Tracker) RestoreLoss(rec domain.LossRecord) {
	t.lossAt[rec.Gauge] = rec.ReportedAt
}

// RestoreAck re-installs a persisted loss acknowledgment at boot
func (t *Tracker) RestoreAck(ack domain.LossAck) {
	key := userGaugeKey{user: ack.User, gauge: ack.Gauge}
	if ack.AppliedAt.After(t.ackAt[key]) {
		t.ackAt[key] = ack.AppliedAt
	}
}
