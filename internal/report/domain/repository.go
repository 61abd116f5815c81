package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository reads sessions completed in [from, to).
type Repository interface {
	SumSessions(ctx context.Context, db *gorm.DB, orgID snowflake.ID, from, to time.Time) (SessionTotals, error)
	ListSessions(ctx context.Context, db *gorm.DB, orgID snowflake.ID, from, to time.Time) ([]SessionLine, error)
	SumCashbackEarned(ctx context.Context, db *gorm.DB, orgID snowflake.ID, from, to time.Time) (int64, error)
}
