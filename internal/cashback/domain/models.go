package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// ExpiryWindow is how long an earned entry stays spendable.
const ExpiryWindow = 90 * 24 * time.Hour

type Direction string

const (
	DirectionEarned Direction = "earned"
	DirectionSpent  Direction = "spent"
)

type EntryStatus string

const (
	StatusActive  EntryStatus = "active"
	StatusUsed    EntryStatus = "used"
	StatusExpired EntryStatus = "expired"
)

const (
	SourceSession = "session"
	SourceLegacy  = "legacy"
)

// Settings is the per-account cashback program. Percentages are stored as
// decimals in [0, 100].
type Settings struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID           snowflake.ID    `gorm:"not null;uniqueIndex" json:"organization_id"`
	Enabled         bool            `gorm:"not null" json:"enabled"`
	Percentage      decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"percentage"`
	MinAmount       int64           `gorm:"not null" json:"min_amount"`
	ApplyOnDebt     bool            `gorm:"not null" json:"apply_on_debt"`
	MaxUsagePercent decimal.Decimal `gorm:"type:numeric(5,2);not null" json:"max_usage_percent"`
	ApplyOnExtras   bool            `gorm:"not null" json:"apply_on_extras"`
	UpdatedBy       *snowflake.ID   `json:"updated_by,omitempty"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updated_at"`
}

func (Settings) TableName() string { return "cashback_settings" }

// DefaultSettings is the row persisted on an account's first access.
func DefaultSettings(orgID snowflake.ID, now time.Time) Settings {
	return Settings{
		OrgID:           orgID,
		Enabled:         true,
		Percentage:      decimal.NewFromInt(5),
		MinAmount:       1000,
		ApplyOnDebt:     false,
		MaxUsagePercent: decimal.NewFromInt(30),
		ApplyOnExtras:   true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// Entry is one append-only cashback ledger row.
type Entry struct {
	ID          snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID  `gorm:"not null" json:"organization_id"`
	CustomerID  *snowflake.ID `json:"customer_id,omitempty"`
	Amount      int64         `gorm:"not null" json:"amount"`
	Direction   Direction     `gorm:"type:text;not null" json:"direction"`
	Source      string        `gorm:"type:text;not null" json:"source"`
	SessionID   *snowflake.ID `json:"session_id,omitempty"`
	Description string        `gorm:"not null" json:"description"`
	Status      EntryStatus   `gorm:"type:text;not null" json:"status"`
	ExpiresAt   *time.Time    `json:"expires_at,omitempty"`
	CreatedAt   time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time     `gorm:"not null" json:"updated_at"`
}

func (Entry) TableName() string { return "cashback_entries" }

type Balance struct {
	Balance     int64 `json:"balance"`
	TotalEarned int64 `json:"total_earned"`
	TotalSpent  int64 `json:"total_spent"`
}

// ExpireResult reports one sweep. Failed entries stay active and are picked
// up again by the next sweep.
type ExpireResult struct {
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}

type AssignResult struct {
	Entries  int   `json:"entries"`
	Credited int64 `json:"credited"`
}
