package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/smallbiznis/cueledger/internal/meter"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

type PaymentType string

const (
	PaymentCash PaymentType = "cash"
	PaymentCard PaymentType = "card"
	PaymentDebt PaymentType = "debt"
)

func (t PaymentType) Valid() bool {
	switch t {
	case PaymentCash, PaymentCard, PaymentDebt:
		return true
	}
	return false
}

// Session is the persisted row. Settlement fields stay NULL while the session
// is active and are frozen once it completes.
type Session struct {
	ID                snowflake.ID  `gorm:"primaryKey"`
	OrgID             snowflake.ID  `gorm:"not null"`
	TableID           snowflake.ID  `gorm:"not null"`
	CustomerID        snowflake.ID  `gorm:"not null"`
	StartTime         time.Time     `gorm:"not null"`
	EndTime           *time.Time
	DurationMinutes   *int64
	HourlyRateAtStart int64 `gorm:"not null"`
	GameAmount        *int64
	AdditionalAmount  *int64
	TotalAmount       *int64
	PaidAmount        *int64
	CashbackUsed      *int64
	DebtAmount        *int64
	PaymentType       *PaymentType
	Status            Status       `gorm:"not null"`
	OpenedBy          snowflake.ID `gorm:"not null"`
	CompletedBy       *snowflake.ID
	Notes             *string
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

func (Session) TableName() string { return "sessions" }

// State is either OpenSession or CompletedSession.
type State interface {
	SessionID() snowflake.ID
	SessionStatus() Status
}

type OpenSession struct {
	ID                snowflake.ID `json:"id"`
	OrgID             snowflake.ID `json:"organization_id"`
	TableID           snowflake.ID `json:"table_id"`
	CustomerID        snowflake.ID `json:"customer_id"`
	StartTime         time.Time    `json:"start_time"`
	HourlyRateAtStart int64        `json:"hourly_rate_at_start"`
	OpenedBy          snowflake.ID `json:"opened_by"`
	Notes             *string      `json:"notes,omitempty"`
}

func (s OpenSession) SessionID() snowflake.ID { return s.ID }
func (OpenSession) SessionStatus() Status     { return StatusActive }

type CompletedSession struct {
	OpenSession
	EndTime          time.Time    `json:"end_time"`
	DurationMinutes  int64        `json:"duration_minutes"`
	GameAmount       int64        `json:"game_amount"`
	AdditionalAmount int64        `json:"additional_amount"`
	TotalAmount      int64        `json:"total_amount"`
	PaidAmount       int64        `json:"paid_amount"`
	CashbackUsed     int64        `json:"cashback_used"`
	DebtAmount       int64        `json:"debt_amount"`
	PaymentType      PaymentType  `json:"payment_type"`
	CompletedBy      snowflake.ID `json:"completed_by"`
}

func (CompletedSession) SessionStatus() Status { return StatusCompleted }

func (s Session) open() OpenSession {
	return OpenSession{
		ID:                s.ID,
		OrgID:             s.OrgID,
		TableID:           s.TableID,
		CustomerID:        s.CustomerID,
		StartTime:         s.StartTime,
		HourlyRateAtStart: s.HourlyRateAtStart,
		OpenedBy:          s.OpenedBy,
		Notes:             s.Notes,
	}
}

// State selects the variant matching the row's status.
func (s Session) State() State {
	if s.Status != StatusCompleted {
		return s.open()
	}
	return CompletedSession{
		OpenSession:      s.open(),
		EndTime:          lo.FromPtr(s.EndTime),
		DurationMinutes:  lo.FromPtr(s.DurationMinutes),
		GameAmount:       lo.FromPtr(s.GameAmount),
		AdditionalAmount: lo.FromPtr(s.AdditionalAmount),
		TotalAmount:      lo.FromPtr(s.TotalAmount),
		PaidAmount:       lo.FromPtr(s.PaidAmount),
		CashbackUsed:     lo.FromPtr(s.CashbackUsed),
		DebtAmount:       lo.FromPtr(s.DebtAmount),
		PaymentType:      lo.FromPtr(s.PaymentType),
		CompletedBy:      lo.FromPtr(s.CompletedBy),
	}
}

// ActiveRow is an active session joined with its table and customer names.
type ActiveRow struct {
	Session
	TableLabel   string `gorm:"column:table_label"`
	CustomerName string `gorm:"column:customer_name"`
}

// ActiveSession is the live view of an open session.
type ActiveSession struct {
	OpenSession
	TableName    string           `json:"table_name"`
	CustomerName string           `json:"customer_name"`
	Projection   meter.Projection `json:"projection"`
}

// Settlement is the outcome of closing a session. PaidAmount, CashbackUsed
// and DebtAmount always add up to TotalAmount.
type Settlement struct {
	SessionID        snowflake.ID `json:"session_id"`
	DurationMinutes  int64        `json:"duration_minutes"`
	GameAmount       int64        `json:"game_amount"`
	AdditionalAmount int64        `json:"additional_amount"`
	TotalAmount      int64        `json:"total_amount"`
	CashbackUsed     int64        `json:"cashback_used"`
	PaidAmount       int64        `json:"paid_amount"`
	PayableAmount    int64        `json:"payable_amount"`
	DebtAmount       int64        `json:"debt_amount"`
	CashbackEarned   int64        `json:"cashback_earned"`
	PaymentType      PaymentType  `json:"payment_type"`
}

type HistoryPage struct {
	Items   []CompletedSession `json:"items"`
	HasMore bool               `json:"has_more"`
}
