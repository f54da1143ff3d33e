// Package core wires the gauge registry, weight ledger, loss tracker, and
// balance host behind one serialized facade.
package core

import (
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/oklog/ulid/v2"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/adapter"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/balance"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/cycle"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/domain"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/ledger"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/loss"
	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/registry"
)

// EventSink receives every committed mutation together with the state rows
// it touched. Implementations must not block; the core holds its write lock
// while recording.
//
//go:generate mockgen -source=guild.go -destination=../mocks/event_sink.go -package=mocks -mock_names=EventSink=MockEventSink
type EventSink interface {
	Record(event domain.LedgerEvent, delta domain.StateDelta)
}

// Config holds the core's construction parameters
type Config struct {
	CycleLength   time.Duration
	FreezeWindow  time.Duration
	MaxGauges     int
	MaxLiveGauges int
}

// Guild is the single-writer ledger facade. Every state-changing operation
// runs under one exclusive lock and either commits fully or leaves the state
// untouched.
type Guild struct {
	mu sync.RWMutex

	clk    adapter.Clock
	cycles *cycle.Clock
	gauges registry.GaugeRegistry
	book   *balance.Book
	ledger *ledger.Ledger
	losses *loss.Tracker
	sink   EventSink
}

// New creates an empty guild core
func New(cfg Config, clk adapter.Clock) (*Guild, error) {
	cycles, err := cycle.New(cfg.CycleLength, cfg.FreezeWindow)
	if err != nil {
		return nil, fmt.Errorf("configure cycle clock: %w", err)
	}

	gauges := registry.New(cfg.MaxLiveGauges)
	book := balance.NewBook()
	ldgr := ledger.New(cycles, gauges, book, cfg.MaxGauges)
	losses := loss.New(ldgr, book)
	ldgr.SetLossGate(losses)

	return &Guild{
		clk:    clk,
		cycles: cycles,
		gauges: gauges,
		book:   book,
		ledger: ldgr,
		losses: losses,
	}, nil
}

// SetEventSink wires the write-behind journal in
func (g *Guild) SetEventSink(sink EventSink) {
	g.sink = sink
}

// SetDebtCeilingChecker wires the issuance collaborator's withdrawal gate
func (g *Guild) SetDebtCeilingChecker(c ledger.DebtCeilingChecker) {
	g.ledger.SetDebtCeilingChecker(c)
}

// AddGauge registers a new gauge or reactivates a deprecated one. On
// reactivation the gauge's historical per-user weight counts again toward
// all aggregates without any user resubmitting.
func (g *Guild) AddGauge(gaugeType domain.GaugeType, gauge common.Address) (domain.Gauge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clk.Now()
	reactivated := g.gauges.IsDeprecated(gauge)
	rec, err := g.gauges.AddGauge(gaugeType, gauge, now)
	if err != nil {
		return domain.Gauge{}, err
	}
	if reactivated {
		g.ledger.ReactivateGauge(gauge, rec.Type, now)
	}

	g.record(domain.LedgerEvent{
		Type:      domain.EventTypeGaugeAdded,
		Gauge:     &gauge,
		GaugeType: rec.Type,
		Timestamp: now,
	}, domain.StateDelta{Gauges: []domain.Gauge{rec}})
	return rec, nil
}

// RemoveGauge deprecates an active gauge. Per-user entries keep their
// values; the gauge's live total drops out of the active-only aggregates in
// O(1).
func (g *Guild) RemoveGauge(gauge common.Address) (domain.Gauge, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clk.Now()
	rec, err := g.gauges.RemoveGauge(gauge, now)
	if err != nil {
		return domain.Gauge{}, err
	}
	g.ledger.DeactivateGauge(gauge, rec.Type, now)

	g.record(domain.LedgerEvent{
		Type:      domain.EventTypeGaugeRemoved,
		Gauge:     &gauge,
		GaugeType: rec.Type,
		Timestamp: now,
	}, domain.StateDelta{Gauges: []domain.Gauge{rec}})
	return rec, nil
}

// SetMaxGauges updates the per-user gauge cap
func (g *Guild) SetMaxGauges(n int) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.ledger.SetMaxGauges(n)
	g.record(domain.LedgerEvent{
		Type:      domain.EventTypeMaxGaugesUpdated,
		Amount:    uint64(n),
		Timestamp: g.clk.Now(),
	}, domain.StateDelta{MaxGauges: &n})
}

// SetExempt flags or unflags a user as exempt from the per-user gauge cap
func (g *Guild) SetExempt(user common.Address, exempt bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.ledger.SetExempt(user, exempt); err != nil {
		return err
	}
	g.record(domain.LedgerEvent{
		Type:      domain.EventTypeExemptionUpdated,
		User:      &user,
		Timestamp: g.clk.Now(),
	}, domain.StateDelta{Users: []domain.UserAccount{g.account(user)}})
	return nil
}

// IncrementWeight allocates weight from user to an active gauge and returns
// the user's new total weight
func (g *Guild) IncrementWeight(user, gauge common.Address, amount uint64) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clk.Now()
	fresh := amount > 0 && g.ledger.Weight(user, gauge) == 0
	total, err := g.ledger.Increment(user, gauge, amount, now)
	if err != nil {
		return 0, err
	}

	delta := domain.StateDelta{Entries: []domain.WeightEntry{{User: user, Gauge: gauge, Weight: g.ledger.Weight(user, gauge)}}}
	if fresh {
		// entering a gauge acknowledges earlier losses; persist the watermark
		delta.Acks = []domain.LossAck{{User: user, Gauge: gauge, AppliedAt: now}}
	}
	g.record(domain.LedgerEvent{
		Type:      domain.EventTypeWeightIncremented,
		User:      &user,
		Gauge:     &gauge,
		Amount:    amount,
		UserTotal: total,
		Timestamp: now,
	}, delta)
	return total, nil
}

// IncrementWeights is the batched, all-or-nothing variant of IncrementWeight
func (g *Guild) IncrementWeights(user common.Address, gauges []common.Address, amounts []uint64) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clk.Now()
	fresh := make(map[common.Address]bool)
	for i, gauge := range gauges {
		if amounts[i] > 0 && g.ledger.Weight(user, gauge) == 0 {
			fresh[gauge] = true
		}
	}
	total, err := g.ledger.IncrementMany(user, gauges, amounts, now)
	if err != nil {
		return 0, err
	}

	for i, gauge := range gauges {
		delta := domain.StateDelta{Entries: []domain.WeightEntry{{User: user, Gauge: gauge, Weight: g.ledger.Weight(user, gauge)}}}
		if fresh[gauge] {
			delete(fresh, gauge)
			delta.Acks = []domain.LossAck{{User: user, Gauge: gauge, AppliedAt: now}}
		}
		g.record(domain.LedgerEvent{
			Type:      domain.EventTypeWeightIncremented,
			User:      &user,
			Gauge:     &gauges[i],
			Amount:    amounts[i],
			UserTotal: total,
			Timestamp: now,
		}, delta)
	}
	return total, nil
}

// DecrementWeight withdraws weight from a gauge, active or deprecated, and
// returns the user's new total weight
func (g *Guild) DecrementWeight(user, gauge common.Address, amount uint64) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clk.Now()
	total, err := g.ledger.Decrement(user, gauge, amount, now)
	if err != nil {
		return 0, err
	}

	g.record(domain.LedgerEvent{
		Type:      domain.EventTypeWeightDecremented,
		User:      &user,
		Gauge:     &gauge,
		Amount:    amount,
		UserTotal: total,
		Timestamp: now,
	}, domain.StateDelta{Entries: []domain.WeightEntry{{User: user, Gauge: gauge, Weight: g.ledger.Weight(user, gauge)}}})
	return total, nil
}

// DecrementWeights is the batched, all-or-nothing variant of DecrementWeight
func (g *Guild) DecrementWeights(user common.Address, gauges []common.Address, amounts []uint64) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clk.Now()
	total, err := g.ledger.DecrementMany(user, gauges, amounts, now)
	if err != nil {
		return 0, err
	}

	for i, gauge := range gauges {
		g.record(domain.LedgerEvent{
			Type:      domain.EventTypeWeightDecremented,
			User:      &user,
			Gauge:     &gauges[i],
			Amount:    amounts[i],
			UserTotal: total,
			Timestamp: now,
		}, domain.StateDelta{Entries: []domain.WeightEntry{{User: user, Gauge: gauge, Weight: g.ledger.Weight(user, gauge)}}})
	}
	return total, nil
}

// ReportLoss records a realized loss in a gauge. Called by the issuance
// collaborator; weights and balances do not move until each voter's loss is
// applied.
func (g *Guild) ReportLoss(gauge common.Address) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, known := g.gauges.TypeOf(gauge); !known {
		return fmt.Errorf("%w: %s is not registered", domain.ErrInvalidGauge, gauge.Hex())
	}
	now := g.clk.Now()
	g.losses.ReportLoss(gauge, now)

	g.record(domain.LedgerEvent{
		Type:      domain.EventTypeLossReported,
		Gauge:     &gauge,
		Timestamp: now,
	}, domain.StateDelta{Losses: []domain.LossRecord{{Gauge: gauge, ReportedAt: now}}})
	return nil
}

// ApplyLoss slashes user's balance by exactly their weight in the gauge and
// unblocks the pair. Callable by anyone on behalf of any user.
func (g *Guild) ApplyLoss(gauge, user common.Address) (uint64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clk.Now()
	slashed, err := g.losses.ApplyLoss(gauge, user, now)
	if err != nil {
		return 0, err
	}

	g.record(domain.LedgerEvent{
		Type:      domain.EventTypeLossApplied,
		User:      &user,
		Gauge:     &gauge,
		Amount:    slashed,
		UserTotal: g.ledger.UserTotal(user),
		Timestamp: now,
	}, domain.StateDelta{
		Users:   []domain.UserAccount{g.account(user)},
		Entries: []domain.WeightEntry{{User: user, Gauge: gauge, Weight: 0}},
		Acks:    []domain.LossAck{{User: user, Gauge: gauge, AppliedAt: now}},
	})
	return slashed, nil
}

// Mint credits newly issued units to a user
func (g *Guild) Mint(to common.Address, amount uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := g.book.Mint(to, amount); err != nil {
		return err
	}
	g.record(domain.LedgerEvent{
		Type:      domain.EventTypeMinted,
		User:      &to,
		Amount:    amount,
		Timestamp: g.clk.Now(),
	}, domain.StateDelta{Users: []domain.UserAccount{g.account(to)}})
	return nil
}

// Burn destroys units from a user's balance, shrinking their allocations
// first so the overweight invariant holds when the balance commits
func (g *Guild) Burn(from common.Address, amount uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clk.Now()
	freed, err := g.reduceBalance(from, amount, now)
	if err != nil {
		return err
	}
	if err := g.book.Burn(from, amount); err != nil {
		return err
	}

	g.record(domain.LedgerEvent{
		Type:      domain.EventTypeBurned,
		User:      &from,
		Amount:    amount,
		UserTotal: g.ledger.UserTotal(from),
		Timestamp: now,
	}, domain.StateDelta{
		Users:   []domain.UserAccount{g.account(from)},
		Entries: freed,
	})
	return nil
}

// Transfer moves units between users. The sender's allocations shrink first,
// and a sender with any unapplied loss is blocked wholesale.
func (g *Guild) Transfer(from, to common.Address, amount uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clk.Now()
	// the recipient credit must be known good before the ledger hooks run, so
	// a failing transfer leaves the sender's allocations untouched
	if from != to {
		if _, err := domain.CheckedAdd(g.book.BalanceOf(to), amount); err != nil {
			return err
		}
	}
	freed, err := g.reduceBalance(from, amount, now)
	if err != nil {
		return err
	}
	if err := g.book.Transfer(from, to, amount); err != nil {
		return err
	}

	g.record(domain.LedgerEvent{
		Type:      domain.EventTypeTransferred,
		User:      &from,
		Recipient: &to,
		Amount:    amount,
		UserTotal: g.ledger.UserTotal(from),
		Timestamp: now,
	}, domain.StateDelta{
		Users:   []domain.UserAccount{g.account(from), g.account(to)},
		Entries: freed,
	})
	return nil
}

// TransferFrom is Transfer on the spender's allowance
func (g *Guild) TransferFrom(spender, from, to common.Address, amount uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.clk.Now()
	allowed := g.book.Allowance(from, spender)
	if amount > allowed {
		return fmt.Errorf("%w: spender %s allowed %d, needs %d", domain.ErrInsufficientAllowance, spender.Hex(), allowed, amount)
	}
	if from != to {
		if _, err := domain.CheckedAdd(g.book.BalanceOf(to), amount); err != nil {
			return err
		}
	}
	freed, err := g.reduceBalance(from, amount, now)
	if err != nil {
		return err
	}
	if err := g.book.TransferFrom(spender, from, to, amount); err != nil {
		return err
	}

	g.record(domain.LedgerEvent{
		Type:      domain.EventTypeTransferred,
		User:      &from,
		Recipient: &to,
		Amount:    amount,
		UserTotal: g.ledger.UserTotal(from),
		Timestamp: now,
	}, domain.StateDelta{
		Users:   []domain.UserAccount{g.account(from), g.account(to)},
		Entries: freed,
	})
	return nil
}

// Approve sets the spender's allowance over the owner's balance
func (g *Guild) Approve(owner, spender common.Address, amount uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.book.Approve(owner, spender, amount)
}

// reduceBalance runs the balance-host hooks for a debit of amount from user:
// the wholesale pending-loss gate, then decrement-until-free down to the
// post-debit balance. Returns the post-decrement weight entries touched.
func (g *Guild) reduceBalance(user common.Address, amount uint64, now time.Time) ([]domain.WeightEntry, error) {
	current := g.book.BalanceOf(user)
	if amount > current {
		return nil, fmt.Errorf("%w: %s has %d, needs %d", domain.ErrInsufficientBalance, user.Hex(), current, amount)
	}
	if g.losses.HasAnyPendingLoss(user) {
		return nil, fmt.Errorf("%w: user %s has unapplied losses", domain.ErrPendingLoss, user.Hex())
	}

	freed, err := g.ledger.FreeUpTo(user, current-amount, now)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.WeightEntry, 0, len(freed))
	for _, f := range freed {
		entries = append(entries, domain.WeightEntry{User: user, Gauge: f.Gauge, Weight: g.ledger.Weight(user, f.Gauge)})
	}
	return entries, nil
}

func (g *Guild) account(user common.Address) domain.UserAccount {
	return domain.UserAccount{
		Address: user,
		Balance: g.book.BalanceOf(user),
		Exempt:  g.ledger.IsExempt(user),
	}
}

func (g *Guild) record(event domain.LedgerEvent, delta domain.StateDelta) {
	if g.sink == nil {
		return
	}
	event.ID = ulid.Make().String()
	g.sink.Record(event, delta)
}
