package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/actor"
	"github.com/smallbiznis/cueledger/internal/apperr"
)

type CreateTableRequest struct {
	Actor      actor.Actor
	Name       string
	HourlyRate int64
}

type UpdateRateRequest struct {
	Actor   actor.Actor
	TableID snowflake.ID
	NewRate int64
}

type Service interface {
	Create(context.Context, CreateTableRequest) (Table, error)
	List(ctx context.Context, act actor.Actor) ([]TableView, error)
	Get(ctx context.Context, act actor.Actor, id snowflake.ID) (TableView, error)
	SetActive(ctx context.Context, act actor.Actor, id snowflake.ID, active bool) (Table, error)
	Delete(ctx context.Context, act actor.Actor, id snowflake.ID) error

	// UpdateRate appends a rate history row and moves the table to the new
	// rate. Sessions already running keep the rate they opened with.
	UpdateRate(context.Context, UpdateRateRequest) (Table, error)
	ListRateHistory(ctx context.Context, act actor.Actor, tableID snowflake.ID) ([]RateChange, error)
}

var (
	ErrNotFound          = apperr.NotFound("table_not_found", "table not found")
	ErrInvalidName       = apperr.Validation("invalid_name", "table name is required")
	ErrInvalidHourlyRate = apperr.Validation("invalid_hourly_rate", "hourly rate must not be negative")
	ErrRateUnchanged     = apperr.Precondition("rate_unchanged", "rate already set")
	ErrTableOccupied     = apperr.Precondition("table_occupied", "table has an active session")
)
