package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, table *Table) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Table, error)
	List(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]TableView, error)
	SetActive(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, active bool, at time.Time) (bool, error)
	UpdateRate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, rate int64, at time.Time) (bool, error)
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (bool, error)
	ActiveSessionID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*snowflake.ID, error)

	InsertRateChange(ctx context.Context, db *gorm.DB, change *RateChange) error
	ListRateHistory(ctx context.Context, db *gorm.DB, orgID, tableID snowflake.ID) ([]RateChange, error)
}
