package schema

import (
	"time"
)

// Gauge represents the gauges table. Rows are never deleted; deprecation is
// a status flip so historical weight entries keep their foreign reference.
type Gauge struct {
	// Address is the gauge's address, the primary key
	Address string `gorm:"column:address;primaryKey;type:text"`
	// GaugeType categorizes the gauge for per-type totals
	GaugeType string `gorm:"column:gauge_type;not null;type:text"`
	// Status is either active or deprecated
	Status string `gorm:"column:status;not null;type:text"`
	// AddedAt is when the gauge was first registered
	AddedAt time.Time `gorm:"column:added_at;not null"`
	// CreatedAt is the timestamp when the row was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
	// UpdatedAt is the timestamp when the row was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()"`
}

// TableName specifies the table name for the Gauge model
func (Gauge) TableName() string {
	return "gauges"
}
