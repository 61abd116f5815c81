package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.AdditionalOrder) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO additional_orders (id, org_id, session_id, item_name, quantity, unit_price, total_price, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		order.ID,
		order.OrgID,
		order.SessionID,
		order.ItemName,
		order.Quantity,
		order.UnitPrice,
		order.TotalPrice,
		order.CreatedBy,
		order.CreatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.AdditionalOrder, error) {
	var order domain.AdditionalOrder
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, session_id, item_name, quantity, unit_price, total_price, created_by, created_at
		 FROM additional_orders WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM additional_orders WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListBySession(ctx context.Context, db *gorm.DB, orgID, sessionID snowflake.ID) ([]domain.AdditionalOrder, error) {
	var items []domain.AdditionalOrder
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, session_id, item_name, quantity, unit_price, total_price, created_by, created_at
		 FROM additional_orders
		 WHERE org_id = ? AND session_id = ?
		 ORDER BY created_at ASC, id ASC`,
		orgID,
		sessionID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) GuardActiveSession(ctx context.Context, db *gorm.DB, orgID, sessionID snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE sessions SET updated_at = ?
		 WHERE org_id = ? AND id = ? AND status = 'active'`,
		at,
		orgID,
		sessionID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) SessionExists(ctx context.Context, db *gorm.DB, orgID, sessionID snowflake.ID) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM sessions WHERE org_id = ? AND id = ?`,
		orgID,
		sessionID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
