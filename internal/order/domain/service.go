package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/actor"
	"github.com/smallbiznis/cueledger/internal/apperr"
	"gorm.io/gorm"
)

// MaxSessionTotal bounds the sum of one session's orders so settlement
// arithmetic stays inside int64.
const MaxSessionTotal int64 = 1_000_000_000_000_000

type AddRequest struct {
	Actor     actor.Actor
	SessionID snowflake.ID
	ItemName  string
	Quantity  int64
	UnitPrice int64
}

type RemoveRequest struct {
	Actor   actor.Actor
	OrderID snowflake.ID
}

type Service interface {
	Add(context.Context, AddRequest) (AdditionalOrder, error)
	Remove(context.Context, RemoveRequest) error
	List(ctx context.Context, act actor.Actor, sessionID snowflake.ID) ([]AdditionalOrder, error)

	// Aggregate sums the session's orders on db, which may be a transaction.
	Aggregate(ctx context.Context, db *gorm.DB, orgID, sessionID snowflake.ID) (int64, error)
}

var (
	ErrNotFound         = apperr.NotFound("order_not_found", "order not found")
	ErrSessionNotFound  = apperr.NotFound("session_not_found", "session not found")
	ErrSessionNotActive = apperr.Precondition("session_not_active", "session is not active")
	ErrInvalidItemName  = apperr.Validation("invalid_item_name", "item name is required")
	ErrInvalidQuantity  = apperr.Validation("invalid_quantity", "quantity must be positive")
	ErrInvalidUnitPrice = apperr.Validation("invalid_unit_price", "unit price must not be negative")
	ErrOrderTooLarge    = apperr.Validation("order_too_large", "order total exceeds the supported amount")
)
