package schema

import (
	"time"
)

// LossEvent represents the loss_events table. One slot per gauge; each new
// report overwrites the previous timestamp.
type LossEvent struct {
	// GaugeAddress is the gauge that incurred the loss, the primary key
	GaugeAddress string `gorm:"column:gauge_address;primaryKey;type:text"`
	// ReportedAt is the latest loss timestamp
	ReportedAt time.Time `gorm:"column:reported_at;not null"`
	// UpdatedAt is the timestamp when the row was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()"`
}

// TableName specifies the table name for the LossEvent model
func (LossEvent) TableName() string {
	return "loss_events"
}

// LossAck represents the loss_acks table: a user's last applied loss per
// gauge
type LossAck struct {
	// ID is the internal database primary key
	ID int64 `gorm:"column:id;primaryKey;autoIncrement"`
	// UserAddress is the slashed user
	UserAddress string `gorm:"column:user_address;not null;type:text;uniqueIndex:idx_loss_acks_user_gauge,priority:1"`
	// GaugeAddress is the gauge whose loss was applied
	GaugeAddress string `gorm:"column:gauge_address;not null;type:text;uniqueIndex:idx_loss_acks_user_gauge,priority:2"`
	// AppliedAt is when the loss was applied
	AppliedAt time.Time `gorm:"column:applied_at;not null"`
	// UpdatedAt is the timestamp when the row was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()"`
}

// TableName specifies the table name for the LossAck model
func (LossAck) TableName() string {
	return "loss_acks"
}
