package schema

import (
	"time"
)

// User represents the users table: the balance-host view of an address
type User struct {
	// Address is the user's address, the primary key
	Address string `gorm:"column:address;primaryKey;type:text"`
	// Balance is the user's governance balance in base units
	Balance uint64 `gorm:"column:balance;not null;type:numeric(20,0)"`
	// Exempt marks the user as exempt from the per-user gauge cap
	Exempt bool `gorm:"column:exempt;not null;default:false"`
	// CreatedAt is the timestamp when the row was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now()"`
	// UpdatedAt is the timestamp when the row was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now()"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
