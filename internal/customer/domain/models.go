package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Customer carries the denormalized debt and cashback counters. The counters
// are only ever changed by guarded atomic updates inside the same transaction
// as the ledger row that justifies them.
type Customer struct {
	ID                  snowflake.ID `gorm:"primaryKey" json:"id"`
	OrgID               snowflake.ID `gorm:"not null;index" json:"organization_id"`
	Name                string       `gorm:"not null" json:"name"`
	Phone               *string      `json:"phone,omitempty"`
	TotalDebt           int64        `gorm:"not null;default:0" json:"total_debt"`
	CashbackBalance     int64        `gorm:"not null;default:0" json:"cashback_balance"`
	TotalCashbackEarned int64        `gorm:"not null;default:0" json:"total_cashback_earned"`
	TotalCashbackSpent  int64        `gorm:"not null;default:0" json:"total_cashback_spent"`
	CreatedAt           time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt           time.Time    `gorm:"not null" json:"updated_at"`
}

func (Customer) TableName() string { return "customers" }
