package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// GaugeType categorizes allocation targets so that per-type totals can be
// tracked alongside the global total (e.g. "credit", "surplus").
type GaugeType string

// GaugeStatus represents the lifecycle status of a gauge
type GaugeStatus string

const (
	// GaugeStatusActive means the gauge accepts new weight and counts toward live totals
	GaugeStatusActive GaugeStatus = "active"
	// GaugeStatusDeprecated means the gauge is excluded from live totals but keeps
	// its historical per-user weight entries
	GaugeStatusDeprecated GaugeStatus = "deprecated"
)

// Gauge represents an allocation target
type Gauge struct {
	Address common.Address `json:"address"`
	Type    GaugeType      `json:"type"`
	Status  GaugeStatus    `json:"status"`
	AddedAt time.Time      `json:"added_at"`
}

// WeightEntry is one user's allocation to one gauge
type WeightEntry struct {
	User   common.Address `json:"user"`
	Gauge  common.Address `json:"gauge"`
	Weight uint64         `json:"weight"`
}

// UserAccount is the balance-host view of a user
type UserAccount struct {
	Address common.Address `json:"address"`
	Balance uint64         `json:"balance"`
	Exempt  bool           `json:"exempt"`
}

// LossRecord is the latest reported loss for a gauge. Only the most recent
// report matters; each new report overwrites the previous one.
type LossRecord struct {
	Gauge      common.Address `json:"gauge"`
	ReportedAt time.Time      `json:"reported_at"`
}

// LossAck records the last loss a user applied for a gauge
type LossAck struct {
	User      common.Address `json:"user"`
	Gauge     common.Address `json:"gauge"`
	AppliedAt time.Time      `json:"applied_at"`
}

// SnapshotScope identifies what a cycle snapshot row refers to
type SnapshotScope string

const (
	SnapshotScopeGlobal    SnapshotScope = "global"
	SnapshotScopeGaugeType SnapshotScope = "gauge_type"
	SnapshotScopeGauge     SnapshotScope = "gauge"
)

// CycleSnapshot is one append-only stored-weight checkpoint taken at a cycle
// boundary. Key is empty for the global scope, the gauge type for the
// gauge_type scope, and the gauge address for the gauge scope.
type CycleSnapshot struct {
	Scope        SnapshotScope `json:"scope"`
	Key          string        `json:"key"`
	StoredWeight uint64        `json:"stored_weight"`
	CycleEnd     time.Time     `json:"cycle_end"`
}

// EventType represents the type of ledger event
type EventType string

const (
	EventTypeGaugeAdded        EventType = "gauge_added"
	EventTypeGaugeRemoved      EventType = "gauge_removed"
	EventTypeMaxGaugesUpdated  EventType = "max_gauges_updated"
	EventTypeExemptionUpdated  EventType = "exemption_updated"
	EventTypeWeightIncremented EventType = "weight_incremented"
	EventTypeWeightDecremented EventType = "weight_decremented"
	EventTypeWeightFreed       EventType = "weight_freed"
	EventTypeLossReported      EventType = "loss_reported"
	EventTypeLossApplied       EventType = "loss_applied"
	EventTypeMinted            EventType = "minted"
	EventTypeBurned            EventType = "burned"
	EventTypeTransferred       EventType = "transferred"
)

// LedgerEvent is one committed mutation of the ledger, in commit order.
// IDs are ULIDs so the journal sorts the same way the history was applied.
type LedgerEvent struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	User      *common.Address `json:"user,omitempty"`
	Recipient *common.Address `json:"recipient,omitempty"`
	Gauge     *common.Address `json:"gauge,omitempty"`
	GaugeType GaugeType       `json:"gauge_type,omitempty"`
	Amount    uint64          `json:"amount,omitempty"`
	UserTotal uint64          `json:"user_total,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// StateDelta carries the rows touched by one committed operation so the
// write-behind journal can persist them without re-deriving state.
type StateDelta struct {
	MaxGauges *int
	Gauges    []Gauge
	Users     []UserAccount
	Entries   []WeightEntry
	Losses    []LossRecord
	Acks      []LossAck
	Snapshots []CycleSnapshot
}

// Empty reports whether the delta carries no rows
func (d *StateDelta) Empty() bool {
	return d.MaxGauges == nil && len(d.Gauges) == 0 && len(d.Users) == 0 &&
		len(d.Entries) == 0 && len(d.Losses) == 0 && len(d.Acks) == 0 &&
		len(d.Snapshots) == 0
}

// LedgerState is the full persisted state used to rehydrate the core at boot
type LedgerState struct {
	MaxGauges int
	Gauges    []Gauge
	Users     []UserAccount
	Entries   []WeightEntry
	Losses    []LossRecord
	Acks      []LossAck
}

// ZeroAddress is the null identifier; it is never a valid user or gauge
var ZeroAddress = common.Address{}
