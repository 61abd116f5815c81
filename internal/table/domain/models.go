package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Table struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID      snowflake.ID `gorm:"not null;index" json:"organization_id"`
	Name       string       `gorm:"not null" json:"name"`
	HourlyRate int64        `gorm:"not null" json:"hourly_rate"`
	IsActive   bool         `gorm:"not null;default:true" json:"is_active"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

func (Table) TableName() string { return "tables" }

// TableView is a table with its current occupancy.
type TableView struct {
	Table
	IsOccupied      bool          `json:"is_occupied"`
	ActiveSessionID *snowflake.ID `json:"active_session_id,omitempty"`
}

// RateChange is one append-only entry of the rate ledger.
type RateChange struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID `gorm:"not null" json:"organization_id"`
	TableID   snowflake.ID `gorm:"not null;index" json:"table_id"`
	OldRate   int64        `gorm:"not null" json:"old_rate"`
	NewRate   int64        `gorm:"not null" json:"new_rate"`
	ChangedBy snowflake.ID `gorm:"not null" json:"changed_by"`
	ChangedAt time.Time    `gorm:"not null" json:"changed_at"`
}

func (RateChange) TableName() string { return "rate_history" }
