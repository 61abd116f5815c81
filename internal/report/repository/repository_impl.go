package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/report/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) SumSessions(ctx context.Context, db *gorm.DB, orgID snowflake.ID, from, to time.Time) (domain.SessionTotals, error) {
	var totals domain.SessionTotals
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) AS sessions,
			COALESCE(SUM(total_amount), 0) AS total_amount,
			COALESCE(SUM(game_amount), 0) AS game_amount,
			COALESCE(SUM(additional_amount), 0) AS additional_amount,
			COALESCE(SUM(paid_amount), 0) AS paid_amount,
			COALESCE(SUM(cashback_used), 0) AS cashback_used,
			COALESCE(SUM(debt_amount), 0) AS debt_amount
		 FROM sessions
		 WHERE org_id = ? AND status = 'completed' AND end_time >= ? AND end_time < ?`,
		orgID,
		from,
		to,
	).Scan(&totals).Error
	return totals, err
}

func (r *repo) ListSessions(ctx context.Context, db *gorm.DB, orgID snowflake.ID, from, to time.Time) ([]domain.SessionLine, error) {
	var items []domain.SessionLine
	err := db.WithContext(ctx).Raw(
		`SELECT s.id, s.table_id, t.name AS table_name, c.name AS customer_name, s.end_time,
			s.total_amount, s.paid_amount, s.cashback_used, s.debt_amount, s.payment_type
		 FROM sessions s
		 LEFT JOIN tables t ON t.id = s.table_id AND t.org_id = s.org_id
		 LEFT JOIN customers c ON c.id = s.customer_id AND c.org_id = s.org_id
		 WHERE s.org_id = ? AND s.status = 'completed' AND s.end_time >= ? AND s.end_time < ?
		 ORDER BY s.end_time ASC, s.id ASC`,
		orgID,
		from,
		to,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SumCashbackEarned(ctx context.Context, db *gorm.DB, orgID snowflake.ID, from, to time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(amount), 0) FROM cashback_entries
		 WHERE org_id = ? AND direction = 'earned' AND created_at >= ? AND created_at < ?`,
		orgID,
		from,
		to,
	).Scan(&total).Error
	return total, err
}
