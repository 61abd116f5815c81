package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/payment/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, payment *domain.Payment) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO payments (id, org_id, session_id, customer_id, amount, kind, description, created_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		payment.ID,
		payment.OrgID,
		payment.SessionID,
		payment.CustomerID,
		payment.Amount,
		payment.Kind,
		payment.Description,
		payment.CreatedBy,
		payment.CreatedAt,
	).Error
}

func (r *repo) ListBySession(ctx context.Context, db *gorm.DB, orgID, sessionID snowflake.ID) ([]domain.Payment, error) {
	var items []domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, session_id, customer_id, amount, kind, description, created_by, created_at
		 FROM payments
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

func (r *repo) ListByCustomer(ctx context.Context, db *gorm.DB, orgID, customerID snowflake.ID, limit int) ([]domain.Payment, error) {
	var items []domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, session_id, customer_id, amount, kind, description, created_by, created_at
		 FROM payments
		 WHERE org_id = ? AND customer_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		orgID,
		customerID,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SumByKind(ctx context.Context, db *gorm.DB, orgID snowflake.ID, from, to time.Time) ([]domain.KindTotal, error) {
	var items []domain.KindTotal
	err := db.WithContext(ctx).Raw(
		`SELECT kind, COALESCE(SUM(amount), 0) AS amount, COUNT(1) AS count
		 FROM payments
		 WHERE org_id = ? AND created_at >= ? AND created_at < ?
		 GROUP BY kind
		 ORDER BY kind`,
		orgID,
		from,
		to,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
