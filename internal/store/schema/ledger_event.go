package schema

import (
	"time"

	"gorm.io/datatypes"
)

// LedgerEvent represents the ledger_events table: an append-only journal of
// committed mutations. IDs are ULIDs, so lexicographic order is commit order.
type LedgerEvent struct {
	// ID is the event's ULID, the primary key
	ID string `gorm:"column:id;primaryKey;type:text"`
	// EventType is the mutation kind
	EventType string `gorm:"column:event_type;not null;type:text;index:idx_ledger_events_type"`
	// Payload is the full event as JSON
	Payload datatypes.JSON `gorm:"column:payload;not null;type:jsonb"`
	// CreatedAt is the timestamp when the row was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
}

// TableName specifies the table name for the LedgerEvent model
func (LedgerEvent) TableName() string {
	return "ledger_events"
}

// Config represents the ledger_config table: single-row settings that must
// survive a restart
type Config struct {
	// ID is always 1
	ID int64 `gorm:"column:id;primaryKey"`
	// MaxGauges is the per-user gauge cap
	MaxGauges int `gorm:"column:max_gauges;not null;default:0"`
	// UpdatedAt is the timestamp when the row was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()"`
}

// TableName specifies the table name for the Config model
func (Config) TableName() string {
	return "ledger_config"
}
