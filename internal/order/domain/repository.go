package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *AdditionalOrder) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*AdditionalOrder, error)
	Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (bool, error)
	ListBySession(ctx context.Context, db *gorm.DB, orgID, sessionID snowflake.ID) ([]AdditionalOrder, error)

	// GuardActiveSession touches the parent session row only while it is
	// active, which holds the row until the transaction ends.
	GuardActiveSession(ctx context.Context, db *gorm.DB, orgID, sessionID snowflake.ID, at time.Time) (bool, error)
	SessionExists(ctx context.Context, db *gorm.DB, orgID, sessionID snowflake.ID) (bool, error)
}
