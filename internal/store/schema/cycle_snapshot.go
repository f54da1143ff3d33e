package schema

import (
	"time"
)

// CycleSnapshot represents the cycle_snapshots table: an append-only,
// timestamp-ordered log of stored-weight checkpoints per key
type CycleSnapshot struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// Scope is global, gauge_type, or gauge
	Scope string `gorm:"column:scope;not null;type:text;uniqueIndex:idx_cycle_snapshots_key_cycle,priority:1"`
	// Key is empty for global, the type name for gauge_type, the gauge
	// address for gauge
	Key string `gorm:"column:key;not null;type:text;uniqueIndex:idx_cycle_snapshots_key_cycle,priority:2"`
	// StoredWeight is the aggregate weight at the cycle boundary
	StoredWeight uint64 `gorm:"column:stored_weight;not null;type:numeric(20,0)"`
	// CycleEnd is the boundary the checkpoint belongs to
	CycleEnd time.Time `gorm:"column:cycle_end;not null;uniqueIndex:idx_cycle_snapshots_key_cycle,priority:3"`
	// CreatedAt is the timestamp when the row was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
}

// TableName specifies the table name for the CycleSnapshot model
func (CycleSnapshot) TableName() string {
	return "cycle_snapshots"
}
