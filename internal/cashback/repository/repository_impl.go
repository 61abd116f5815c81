package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/cashback/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

const settingsColumns = `id, org_id, enabled, percentage, min_amount, apply_on_debt,
	max_usage_percent, apply_on_extras, updated_by, created_at, updated_at`

const entryColumns = `id, org_id, customer_id, amount, direction, source, session_id,
	description, status, expires_at, created_at, updated_at`

func (r *repo) InsertSettingsIfAbsent(ctx context.Context, db *gorm.DB, settings *domain.Settings) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO cashback_settings (`+settingsColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (org_id) DO NOTHING`,
		settings.ID,
		settings.OrgID,
		settings.Enabled,
		settings.Percentage,
		settings.MinAmount,
		settings.ApplyOnDebt,
		settings.MaxUsagePercent,
		settings.ApplyOnExtras,
		settings.UpdatedBy,
		settings.CreatedAt,
		settings.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindSettings(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*domain.Settings, error) {
	var settings domain.Settings
	err := db.WithContext(ctx).Raw(
		`SELECT `+settingsColumns+` FROM cashback_settings WHERE org_id = ?`,
		orgID,
	).Scan(&settings).Error
	if err != nil {
		return nil, err
	}
	if settings.ID == 0 {
		return nil, nil
	}
	return &settings, nil
}

func (r *repo) UpdateSettings(ctx context.Context, db *gorm.DB, settings *domain.Settings) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE cashback_settings
		 SET enabled = ?, percentage = ?, min_amount = ?, apply_on_debt = ?,
			max_usage_percent = ?, apply_on_extras = ?, updated_by = ?, updated_at = ?
		 WHERE org_id = ?`,
		settings.Enabled,
		settings.Percentage,
		settings.MinAmount,
		settings.ApplyOnDebt,
		settings.MaxUsagePercent,
		settings.ApplyOnExtras,
		settings.UpdatedBy,
		settings.UpdatedAt,
		settings.OrgID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) InsertEntry(ctx context.Context, db *gorm.DB, entry *domain.Entry) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO cashback_entries (`+entryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.OrgID,
		entry.CustomerID,
		entry.Amount,
		entry.Direction,
		entry.Source,
		entry.SessionID,
		entry.Description,
		entry.Status,
		entry.ExpiresAt,
		entry.CreatedAt,
		entry.UpdatedAt,
	).Error
}

func (r *repo) ListEntries(ctx context.Context, db *gorm.DB, orgID snowflake.ID, customerID *snowflake.ID, limit int) ([]domain.Entry, error) {
	var items []domain.Entry
	stmt := db.WithContext(ctx).
		Model(&domain.Entry{}).
		Where("org_id = ?", orgID)
	if customerID != nil {
		stmt = stmt.Where("customer_id = ?", *customerID)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) ListDue(ctx context.Context, db *gorm.DB, orgID snowflake.ID, now time.Time, afterID snowflake.ID, limit int) ([]domain.Entry, error) {
	var items []domain.Entry
	stmt := db.WithContext(ctx).
		Model(&domain.Entry{}).
		Where("direction = ? AND status = ?", domain.DirectionEarned, domain.StatusActive).
		Where("expires_at IS NOT NULL AND expires_at < ?", now).
		Where("id > ?", afterID)
	if orgID != 0 {
		stmt = stmt.Where("org_id = ?", orgID)
	}
	err := stmt.
		Order("id asc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) MarkExpired(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE cashback_entries SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusExpired,
		at,
		id,
		domain.StatusActive,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SumLegacy(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (domain.LegacyTotals, error) {
	var totals domain.LegacyTotals
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) AS entries,
			COALESCE(SUM(CASE WHEN direction = 'earned' AND status = 'active' THEN amount ELSE 0 END), 0) AS active_earned,
			COALESCE(SUM(CASE WHEN direction = 'earned' THEN amount ELSE 0 END), 0) AS total_earned,
			COALESCE(SUM(CASE WHEN direction = 'spent' THEN amount ELSE 0 END), 0) AS total_spent
		 FROM cashback_entries
		 WHERE org_id = ? AND customer_id IS NULL`,
		orgID,
	).Scan(&totals).Error
	return totals, err
}

func (r *repo) AssignLegacy(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID, at time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE cashback_entries SET customer_id = ?, updated_at = ?
		 WHERE org_id = ? AND customer_id IS NULL`,
		customerID,
		at,
		orgID,
	)
	return res.RowsAffected, res.Error
}
