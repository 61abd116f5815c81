package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/actor"
	"github.com/smallbiznis/cueledger/internal/apperr"
	"gorm.io/gorm"
)

type RecordRequest struct {
	Actor       actor.Actor
	SessionID   *snowflake.ID
	CustomerID  *snowflake.ID
	Amount      int64
	Kind        Kind
	Description string
}

type Service interface {
	// Record appends a payment inside the caller's transaction.
	Record(ctx context.Context, tx *gorm.DB, req RecordRequest) (Payment, error)
	ListBySession(ctx context.Context, act actor.Actor, sessionID snowflake.ID) ([]Payment, error)
	ListByCustomer(ctx context.Context, act actor.Actor, customerID snowflake.ID, limit int) ([]Payment, error)
	TotalsByKind(ctx context.Context, act actor.Actor, from, to time.Time) ([]KindTotal, error)
}

var (
	ErrInvalidAmount = apperr.Validation("invalid_payment_amount", "payment amount must be positive")
	ErrInvalidKind   = apperr.Validation("invalid_payment_kind", "payment kind must be cash, card or debt_payment")
)
