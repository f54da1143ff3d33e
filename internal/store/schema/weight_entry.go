package schema

import (
	"time"
)

// WeightEntry represents the weight_entries table: one user's allocation to
// one gauge. Rows stay at weight zero rather than being deleted, so history
// is never erased.
type WeightEntry struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// UserAddress is the allocating user
	UserAddress string `gorm:"column:user_address;not null;type:text;uniqueIndex:idx_weight_entries_user_gauge,priority:1"`
	// GaugeAddress is the allocation target
	GaugeAddress string `gorm:"column:gauge_address;not null;type:text;uniqueIndex:idx_weight_entries_user_gauge,priority:2"`
	// Weight is the allocated weight in base units
	Weight uint64 `gorm:"column:weight;not null;type:numeric(20,0)"`
	// CreatedAt is the timestamp when the row was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
	// UpdatedAt is the timestamp when the row was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()"`
}

// TableName specifies the table name for the WeightEntry model
func (WeightEntry) TableName() string {
	return "weight_entries"
}
