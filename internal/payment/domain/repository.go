package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, payment *Payment) error
	ListBySession(ctx context.Context, db *gorm.DB, orgID, sessionID snowflake.ID) ([]Payment, error)
	ListByCustomer(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID, limit int) ([]Payment, error)
	SumByKind(ctx context.Context, db *gorm.DB, orgID snowflake.ID, from, to time.Time) ([]KindTotal, error)
}
