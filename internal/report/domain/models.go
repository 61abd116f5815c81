package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	paymentdomain "github.com/smallbiznis/cueledger/internal/payment/domain"
)

// SessionTotals sums the frozen settlement fields of completed sessions.
type SessionTotals struct {
	Sessions         int64 `json:"sessions"`
	TotalAmount      int64 `json:"total_amount"`
	GameAmount       int64 `json:"game_amount"`
	AdditionalAmount int64 `json:"additional_amount"`
	PaidAmount       int64 `json:"paid_amount"`
	CashbackUsed     int64 `json:"cashback_used"`
	DebtAmount       int64 `json:"debt_amount"`
}

type SessionLine struct {
	ID           snowflake.ID `json:"id"`
	TableID      snowflake.ID `json:"table_id"`
	TableName    string       `json:"table_name"`
	CustomerName string       `json:"customer_name"`
	EndTime      time.Time    `json:"end_time"`
	TotalAmount  int64        `json:"total_amount"`
	PaidAmount   int64        `json:"paid_amount"`
	CashbackUsed int64        `json:"cashback_used"`
	DebtAmount   int64        `json:"debt_amount"`
	PaymentType  string       `json:"payment_type"`
}

type PaymentSummary struct {
	Cash         int64                     `json:"cash"`
	Card         int64                     `json:"card"`
	DebtPayments int64                     `json:"debt_payments"`
	Total        int64                     `json:"total"`
	ByKind       []paymentdomain.KindTotal `json:"by_kind"`
}

type DailyReport struct {
	Date           string         `json:"date"`
	From           time.Time      `json:"from"`
	To             time.Time      `json:"to"`
	Totals         SessionTotals  `json:"totals"`
	CashbackEarned int64          `json:"cashback_earned"`
	Payments       PaymentSummary `json:"payments"`
	Sessions       []SessionLine  `json:"sessions"`
}
