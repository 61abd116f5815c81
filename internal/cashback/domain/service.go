package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/cueledger/internal/actor"
	"github.com/smallbiznis/cueledger/internal/apperr"
	"gorm.io/gorm"
)

type UpdateSettingsRequest struct {
	Actor           actor.Actor
	Enabled         bool
	Percentage      decimal.Decimal
	MinAmount       int64
	ApplyOnDebt     bool
	MaxUsagePercent decimal.Decimal
	ApplyOnExtras   bool
}

type EarnRequest struct {
	Actor      actor.Actor
	CustomerID snowflake.ID
	SessionID  snowflake.ID
	EarnInput
}

type SpendRequest struct {
	Actor       actor.Actor
	CustomerID  snowflake.ID
	SessionID   snowflake.ID
	Amount      int64
	TotalAmount int64
}

type HistoryRequest struct {
	Actor      actor.Actor
	CustomerID *snowflake.ID
	Limit      int
}

type Service interface {
	GetSettings(ctx context.Context, act actor.Actor) (Settings, error)
	UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (Settings, error)

	// Earn and Spend run inside the caller's transaction so the ledger row
	// and the customer counters commit together with the settlement.
	Earn(ctx context.Context, tx *gorm.DB, req EarnRequest) (*Entry, error)
	Spend(ctx context.Context, tx *gorm.DB, req SpendRequest) (Entry, error)

	Balance(ctx context.Context, act actor.Actor, customerID snowflake.ID) (Balance, error)
	AccountBalance(ctx context.Context, act actor.Actor) (Balance, error)
	History(ctx context.Context, req HistoryRequest) ([]Entry, error)

	ExpireDue(ctx context.Context, act actor.Actor) (ExpireResult, error)
	ExpireAllDue(ctx context.Context) (ExpireResult, error)

	// AssignLegacy attaches entries without a customer to customerID once.
	AssignLegacy(ctx context.Context, act actor.Actor, customerID snowflake.ID) (AssignResult, error)
}

var (
	ErrInvalidAmount       = apperr.Validation("invalid_cashback_amount", "cashback amount must not be negative")
	ErrInsufficientBalance = apperr.Validation("cashback_insufficient_balance", "cashback exceeds balance")
	ErrUsageLimitExceeded  = apperr.Validation("cashback_limit_exceeded", "cashback exceeds usage limit")
	ErrBalanceChanged      = apperr.Conflict("cashback_balance_changed", "cashback balance changed concurrently")
	ErrInvalidPercentage   = apperr.Validation("invalid_percentage", "percentage must be between 0 and 100")
	ErrInvalidMinAmount    = apperr.Validation("invalid_min_amount", "minimum amount must not be negative")
	ErrInvalidMaxUsage     = apperr.Validation("invalid_max_usage_percent", "max usage percent must be between 0 and 100")
	ErrCustomerNotFound    = apperr.NotFound("customer_not_found", "customer not found")
	ErrNoLegacyEntries     = apperr.Precondition("no_legacy_entries", "no unassigned cashback entries")
)
