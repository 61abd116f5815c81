package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, session *Session) error
	FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*Session, error)

	// Touch bumps updated_at of an active session, holding its row until the
	// transaction ends.
	Touch(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, at time.Time) (bool, error)
	// Complete writes the settlement fields only while the row is still active.
	Complete(ctx context.Context, db *gorm.DB, session *Session) (bool, error)

	ListActive(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]ActiveRow, error)
	ListCompleted(ctx context.Context, db *gorm.DB, orgID snowflake.ID, limit, offset int) ([]Session, error)
}
