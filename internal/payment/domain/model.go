package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Kind string

const (
	KindCash        Kind = "cash"
	KindCard        Kind = "card"
	KindDebtPayment Kind = "debt_payment"
)

func (k Kind) Valid() bool {
	switch k {
	case KindCash, KindCard, KindDebtPayment:
		return true
	}
	return false
}

// Payment is an append-only money movement. Rows are never updated or
// deleted once written.
type Payment struct {
	ID          snowflake.ID  `json:"id" gorm:"primaryKey"`
	OrgID       snowflake.ID  `json:"organization_id" gorm:"not null;index"`
	SessionID   *snowflake.ID `json:"session_id,omitempty"`
	CustomerID  *snowflake.ID `json:"customer_id,omitempty"`
	Amount      int64         `json:"amount" gorm:"not null"`
	Kind        Kind          `json:"kind" gorm:"type:text;not null"`
	Description *string       `json:"description,omitempty"`
	CreatedBy   snowflake.ID  `json:"created_by" gorm:"not null"`
	CreatedAt   time.Time     `json:"created_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

// KindTotal is the summed amount of one payment kind over a window.
type KindTotal struct {
	Kind   Kind  `json:"kind"`
	Amount int64 `json:"amount"`
	Count  int64 `json:"count"`
}
