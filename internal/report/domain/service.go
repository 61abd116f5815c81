package domain

import (
	"context"

	"github.com/smallbiznis/cueledger/internal/actor"
	"github.com/smallbiznis/cueledger/internal/apperr"
)

type DailyRequest struct {
	Actor actor.Actor
	// Date is YYYY-MM-DD in the venue's time zone.
	Date string
}

type Service interface {
	Daily(ctx context.Context, req DailyRequest) (DailyReport, error)
}

var ErrInvalidDate = apperr.Validation("invalid_date", "date must be formatted as YYYY-MM-DD")
