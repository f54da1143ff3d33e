// Package registry owns the set of allocation targets and their status.
package registry

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/volt-protocol/ethereum-credit-guild-sub003/internal/domain"
)

// GaugeRegistry defines gauge registration and status queries.
// It is not safe for concurrent use; the core serializes access.
//
//go:generate mockgen -source=gauges.go -destination=../mocks/gauge_registry.go -package=mocks -mock_names=GaugeRegistry=MockGaugeRegistry
type GaugeRegistry interface {
	// AddGauge registers a new gauge or reactivates a deprecated one
	AddGauge(gaugeType domain.GaugeType, gauge common.Address, now time.Time) (domain.Gauge, error)
	// RemoveGauge deprecates an active gauge in O(1)
	RemoveGauge(gauge common.Address, now time.Time) (domain.Gauge, error)
	// IsActive reports whether the gauge is registered and active
	IsActive(gauge common.Address) bool
	// IsDeprecated reports whether the gauge is registered and deprecated
	IsDeprecated(gauge common.Address) bool
	// TypeOf returns the gauge's type; ok is false for unknown gauges
	TypeOf(gauge common.Address) (domain.GaugeType, bool)
	// Gauge returns the full record for a gauge
	Gauge(gauge common.Address) (domain.Gauge, bool)
	// Gauges enumerates all registered gauges in registration order
	Gauges() []domain.Gauge
	// LiveCount returns the number of active gauges
	LiveCount() int
	// Restore re-installs a persisted gauge record without registry-cap checks
	Restore(g domain.Gauge)
}

type record struct {
	gaugeType domain.GaugeType
	status    domain.GaugeStatus
	addedAt   time.Time
}

type gaugeRegistry struct {
	gauges map[common.Address]*record
	// order preserves registration order for deterministic enumeration
	order         []common.Address
	maxLiveGauges int
	liveCount     int
}

// New creates an empty registry capped at maxLiveGauges active gauges.
// A zero cap means unlimited.
func New(maxLiveGauges int) GaugeRegistry {
	return &gaugeRegistry{
		gauges:        make(map[common.Address]*record),
		maxLiveGauges: maxLiveGauges,
	}
}

// AddGauge registers a new gauge, or flips a deprecated gauge back to active.
// Reactivation keeps the gauge's original type; historical per-user weight was
// never cleared, so it counts again as soon as the ledger is told.
func (r *gaugeRegistry) AddGauge(gaugeType domain.GaugeType, gauge common.Address, now time.Time) (domain.Gauge, error) {
	if gauge == domain.ZeroAddress {
		return domain.Gauge{}, fmt.Errorf("%w: zero address", domain.ErrInvalidGauge)
	}
	if gaugeType == "" {
		return domain.Gauge{}, fmt.Errorf("%w: empty gauge type", domain.ErrInvalidGauge)
	}

	if rec, ok := r.gauges[gauge]; ok {
		if rec.status == domain.GaugeStatusActive {
			return domain.Gauge{}, fmt.Errorf("%w: %s already active", domain.ErrInvalidGauge, gauge.Hex())
		}
		if rec.gaugeType != gaugeType {
			return domain.Gauge{}, fmt.Errorf("%w: %s was registered with type %q", domain.ErrInvalidGauge, gauge.Hex(), rec.gaugeType)
		}
		if err := r.checkCap(); err != nil {
			return domain.Gauge{}, err
		}
		rec.status = domain.GaugeStatusActive
		r.liveCount++
		return r.snapshot(gauge, rec), nil
	}

	if err := r.checkCap(); err != nil {
		return domain.Gauge{}, err
	}
	rec := &record{gaugeType: gaugeType, status: domain.GaugeStatusActive, addedAt: now}
	r.gauges[gauge] = rec
	r.order = append(r.order, gauge)
	r.liveCount++
	return r.snapshot(gauge, rec), nil
}

// RemoveGauge deprecates an active gauge. Per-user weight entries are left
// untouched; the ledger drops the gauge's live total from the active-only
// aggregates in O(1).
func (r *gaugeRegistry) RemoveGauge(gauge common.Address, now time.Time) (domain.Gauge, error) {
	rec, ok := r.gauges[gauge]
	if !ok || rec.status != domain.GaugeStatusActive {
		return domain.Gauge{}, fmt.Errorf("%w: %s is not active", domain.ErrInvalidGauge, gauge.Hex())
	}
	rec.status = domain.GaugeStatusDeprecated
	r.liveCount--
	return r.snapshot(gauge, rec), nil
}

func (r *gaugeRegistry) IsActive(gauge common.Address) bool {
	rec, ok := r.gauges[gauge]
	return ok && rec.status == domain.GaugeStatusActive
}

func (r *gaugeRegistry) IsDeprecated(gauge common.Address) bool {
	rec, ok := r.gauges[gauge]
	return ok && rec.status == domain.GaugeStatusDeprecated
}

func (r *gaugeRegistry) TypeOf(gauge common.Address) (domain.GaugeType, bool) {
	rec, ok := r.gauges[gauge]
	if !ok {
		return "", false
	}
	return rec.gaugeType, true
}

func (r *gaugeRegistry) Gauge(gauge common.Address) (domain.Gauge, bool) {
	rec, ok := r.gauges[gauge]
	if !ok {
		return domain.Gauge{}, false
	}
	return r.snapshot(gauge, rec), true
}

func (r *gaugeRegistry) Gauges() []domain.Gauge {
	out := make([]domain.Gauge, 0, len(r.order))
	for _, addr := range r.order {
		out = append(out, r.snapshot(addr, r.gauges[addr]))
	}
	return out
}

func (r *gaugeRegistry) LiveCount() int {
	return r.liveCount
}

func (r *gaugeRegistry) Restore(g domain.Gauge) {
	if _, ok := r.gauges[g.Address]; ok {
		return
	}
	r.gauges[g.Address] = &record{gaugeType: g.Type, status: g.Status, addedAt: g.AddedAt}
	r.order = append(r.order, g.Address)
	if g.Status == domain.GaugeStatusActive {
		r.liveCount++
	}
}

func (r *gaugeRegistry) checkCap() error {
	if r.maxLiveGauges > 0 && r.liveCount+1 > r.maxLiveGauges {
		return fmt.Errorf("%w: live gauge cap %d reached", domain.ErrExceedMaxGauges, r.maxLiveGauges)
	}
	return nil
}

func (r *gaugeRegistry) snapshot(addr common.Address, rec *record) domain.Gauge {
	return domain.Gauge{
		Address: addr,
		Type:    rec.gaugeType,
		Status:  rec.status,
		AddedAt: rec.addedAt,
	}
}
