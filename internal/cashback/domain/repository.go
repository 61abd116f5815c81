package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// LegacyTotals summarizes entries that were written before cashback was
// scoped to customers.
type LegacyTotals struct {
	Entries      int64
	ActiveEarned int64
	TotalEarned  int64
	TotalSpent   int64
}

type Repository interface {
	// InsertSettingsIfAbsent relies on the unique org_id index so concurrent
	// first reads persist exactly one row.
	InsertSettingsIfAbsent(ctx context.Context, db *gorm.DB, settings *Settings) (bool, error)
	FindSettings(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*Settings, error)
	UpdateSettings(ctx context.Context, db *gorm.DB, settings *Settings) (bool, error)

	InsertEntry(ctx context.Context, db *gorm.DB, entry *Entry) error
	ListEntries(ctx context.Context, db *gorm.DB, orgID snowflake.ID, customerID *snowflake.ID, limit int) ([]Entry, error)

	// ListDue returns active earned entries whose expiry is before now, in id
	// order after afterID. A zero orgID spans every account.
	ListDue(ctx context.Context, db *gorm.DB, orgID snowflake.ID, now time.Time, afterID snowflake.ID, limit int) ([]Entry, error)
	// MarkExpired flips one entry from active to expired.
	MarkExpired(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error)

	SumLegacy(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (LegacyTotals, error)
	AssignLegacy(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID, at time.Time) (int64, error)
}
