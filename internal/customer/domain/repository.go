package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/pkg/db/pagination"
	"gorm.io/gorm"
)

// CashbackTotals aggregates the cashback counters of every customer of an
// account.
type CashbackTotals struct {
	Balance     int64 `json:"balance"`
	TotalEarned int64 `json:"total_earned"`
	TotalSpent  int64 `json:"total_spent"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, customer *Customer) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Customer, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter ListCustomerFilter, page pagination.Pagination) ([]Customer, error)
	SumCashback(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (CashbackTotals, error)

	// AddDebt increments total_debt by amount.
	AddDebt(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, amount int64, at time.Time) (bool, error)
	// ReduceDebt decrements total_debt only when it covers amount.
	ReduceDebt(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, amount int64, at time.Time) (bool, error)
	// CreditCashback increments the balance and lifetime earned counters.
	CreditCashback(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, amount int64, at time.Time) (bool, error)
	// DebitCashback decrements the balance only when it covers amount and
	// increments the lifetime spent counter.
	DebitCashback(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, amount int64, at time.Time) (bool, error)
	// ClampDebitCashback decrements the balance by amount, stopping at zero.
	ClampDebitCashback(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, amount int64, at time.Time) (bool, error)
	// MergeCashback adds totals recovered from unattributed ledger rows.
	MergeCashback(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, totals CashbackTotals, at time.Time) (bool, error)
}
