package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/table/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, table *domain.Table) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO tables (id, org_id, name, hourly_rate, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		table.ID,
		table.OrgID,
		table.Name,
		table.HourlyRate,
		table.IsActive,
		table.CreatedAt,
		table.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Table, error) {
	var table domain.Table
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, hourly_rate, is_active, created_at, updated_at
		 FROM tables WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&table).Error
	if err != nil {
		return nil, err
	}
	if table.ID == 0 {
		return nil, nil
	}
	return &table, nil
}

type tableRow struct {
	domain.Table
	ActiveSessionID *snowflake.ID
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.TableView, error) {
	var rows []tableRow
	err := db.WithContext(ctx).Raw(
		`SELECT t.id, t.org_id, t.name, t.hourly_rate, t.is_active, t.created_at, t.updated_at,
			s.id AS active_session_id
		 FROM tables t
		 LEFT JOIN sessions s ON s.org_id = t.org_id AND s.table_id = t.id AND s.status = 'active'
		 WHERE t.org_id = ?
		 ORDER BY t.name ASC, t.id ASC`,
		orgID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	views := make([]domain.TableView, 0, len(rows))
	for _, row := range rows {
		views = append(views, domain.TableView{
			Table:           row.Table,
			IsOccupied:      row.ActiveSessionID != nil,
			ActiveSessionID: row.ActiveSessionID,
		})
	}
	return views, nil
}

func (r *repo) SetActive(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, active bool, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE tables SET is_active = ?, updated_at = ? WHERE org_id = ? AND id = ?`,
		active, at, orgID, id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateRate(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, rate int64, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE tables SET hourly_rate = ?, updated_at = ? WHERE org_id = ? AND id = ?`,
		rate, at, orgID, id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM tables
		 WHERE org_id = ? AND id = ?
		 AND NOT EXISTS (
			SELECT 1 FROM sessions WHERE org_id = ? AND table_id = ? AND status = 'active'
		 )`,
		orgID, id, orgID, id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ActiveSessionID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*snowflake.ID, error) {
	var sessionID snowflake.ID
	err := db.WithContext(ctx).Raw(
		`SELECT id FROM sessions WHERE org_id = ? AND table_id = ? AND status = 'active' LIMIT 1`,
		orgID,
		id,
	).Scan(&sessionID).Error
	if err != nil {
		return nil, err
	}
	if sessionID == 0 {
		return nil, nil
	}
	return &sessionID, nil
}

func (r *repo) InsertRateChange(ctx context.Context, db *gorm.DB, change *domain.RateChange) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO rate_history (id, org_id, table_id, old_rate, new_rate, changed_by, changed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		change.ID,
		change.OrgID,
		change.TableID,
		change.OldRate,
		change.NewRate,
		change.ChangedBy,
		change.ChangedAt,
	).Error
}

func (r *repo) ListRateHistory(ctx context.Context, db *gorm.DB, orgID, tableID snowflake.ID) ([]domain.RateChange, error) {
	var items []domain.RateChange
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, table_id, old_rate, new_rate, changed_by, changed_at
		 FROM rate_history
		 WHERE org_id = ? AND table_id = ?
		 ORDER BY changed_at DESC, id DESC`,
		orgID,
		tableID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
