package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/actor"
	"github.com/smallbiznis/cueledger/internal/apperr"
)

type OpenRequest struct {
	Actor      actor.Actor
	TableID    snowflake.ID
	CustomerID snowflake.ID
	Notes      string
}

type CloseRequest struct {
	Actor          actor.Actor
	SessionID      snowflake.ID
	PaidAmount     int64
	PaymentType    PaymentType
	CashbackAmount int64
	Notes          string
}

type HistoryRequest struct {
	Actor  actor.Actor
	Limit  int
	Offset int
}

type Service interface {
	Open(ctx context.Context, req OpenRequest) (OpenSession, error)
	Close(ctx context.Context, req CloseRequest) (Settlement, error)
	Get(ctx context.Context, act actor.Actor, id snowflake.ID) (Session, error)
	ListActive(ctx context.Context, act actor.Actor) ([]ActiveSession, error)
	History(ctx context.Context, req HistoryRequest) (HistoryPage, error)
}

var (
	ErrNotFound              = apperr.NotFound("session_not_found", "session not found")
	ErrTableNotFound         = apperr.NotFound("table_not_found", "table not found")
	ErrCustomerNotFound      = apperr.NotFound("customer_not_found", "customer not found")
	ErrNotActive             = apperr.Precondition("session_not_active", "session is not active")
	ErrTableInactive         = apperr.Precondition("table_inactive", "table is not active")
	ErrTableOccupied         = apperr.Precondition("table_occupied", "table already has an active session")
	ErrInvalidPaidAmount     = apperr.Validation("invalid_paid_amount", "paid amount must not be negative")
	ErrInvalidCashbackAmount = apperr.Validation("invalid_cashback_amount", "cashback amount must not be negative")
	ErrInvalidPaymentType    = apperr.Validation("invalid_payment_type", "payment type must be cash, card or debt")
	ErrPaymentExceedsTotal   = apperr.Validation("payment_exceeds_total", "paid amount plus cashback exceeds total")
)
