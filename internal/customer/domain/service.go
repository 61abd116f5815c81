package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/actor"
	"github.com/smallbiznis/cueledger/internal/apperr"
	"github.com/smallbiznis/cueledger/pkg/db/pagination"
)

type ListCustomerRequest struct {
	Actor     actor.Actor
	PageToken string
	PageSize  int
	Name      string
}

type ListCustomerFilter struct {
	Name string
}

type ListCustomerResponse struct {
	pagination.PageInfo
	Customers []Customer `json:"customers"`
}

type CreateCustomerRequest struct {
	Actor actor.Actor
	Name  string
	Phone string
}

// PayDebtRequest settles part or all of a customer's outstanding debt with
// cash or card.
type PayDebtRequest struct {
	Actor      actor.Actor
	CustomerID snowflake.ID
	Amount     int64
	Kind       string
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	List(context.Context, ListCustomerRequest) (ListCustomerResponse, error)
	Get(ctx context.Context, act actor.Actor, id snowflake.ID) (Customer, error)
	PayDebt(context.Context, PayDebtRequest) (Customer, error)
}

var (
	ErrInvalidName        = apperr.Validation("invalid_name", "customer name is required")
	ErrNotFound           = apperr.NotFound("customer_not_found", "customer not found")
	ErrInvalidDebtAmount  = apperr.Validation("invalid_debt_amount", "debt payment must be positive")
	ErrDebtExceeded       = apperr.Validation("debt_amount_exceeded", "amount exceeds outstanding debt")
	ErrInvalidPaymentKind = apperr.Validation("invalid_payment_kind", "debt can only be paid with cash or card")
	ErrInvalidPageToken   = apperr.Validation("invalid_page_token", "page token is malformed")
)
