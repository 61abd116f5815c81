package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/session/domain"
	"gorm.io/gorm"
)

const sessionColumns = `id, org_id, table_id, customer_id, start_time, end_time, duration_minutes,
	hourly_rate_at_start, game_amount, additional_amount, total_amount, paid_amount,
	cashback_used, debt_amount, payment_type, status, opened_by, completed_by, notes,
	created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, session *domain.Session) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO sessions (id, org_id, table_id, customer_id, start_time, hourly_rate_at_start,
			status, opened_by, notes, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		session.ID,
		session.OrgID,
		session.TableID,
		session.CustomerID,
		session.StartTime,
		session.HourlyRateAtStart,
		session.Status,
		session.OpenedBy,
		session.Notes,
		session.CreatedAt,
		session.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Session, error) {
	var session domain.Session
	err := db.WithContext(ctx).Raw(
		`SELECT `+sessionColumns+` FROM sessions WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&session).Error
	if err != nil {
		return nil, err
	}
	if session.ID == 0 {
		return nil, nil
	}
	return &session, nil
}

func (r *repo) Touch(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE sessions SET updated_at = ?
		 WHERE org_id = ? AND id = ? AND status = 'active'`,
		at,
		orgID,
		id,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Complete(ctx context.Context, db *gorm.DB, session *domain.Session) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`UPDATE sessions SET
			end_time = ?,
			duration_minutes = ?,
			game_amount = ?,
			additional_amount = ?,
			total_amount = ?,
			paid_amount = ?,
			cashback_used = ?,
			debt_amount = ?,
			payment_type = ?,
			status = 'completed',
			completed_by = ?,
			notes = ?,
			updated_at = ?
		 WHERE org_id = ? AND id = ? AND status = 'active'`,
		session.EndTime,
		session.DurationMinutes,
		session.GameAmount,
		session.AdditionalAmount,
		session.TotalAmount,
		session.PaidAmount,
		session.CashbackUsed,
		session.DebtAmount,
		session.PaymentType,
		session.CompletedBy,
		session.Notes,
		session.UpdatedAt,
		session.OrgID,
		session.ID,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB, orgID snowflake.ID) ([]domain.ActiveRow, error) {
	var rows []domain.ActiveRow
	err := db.WithContext(ctx).Raw(
		`SELECT s.id, s.org_id, s.table_id, s.customer_id, s.start_time, s.hourly_rate_at_start,
			s.status, s.opened_by, s.notes, s.created_at, s.updated_at,
			t.name AS table_label, c.name AS customer_name
		 FROM sessions s
		 JOIN tables t ON t.id = s.table_id AND t.org_id = s.org_id
		 JOIN customers c ON c.id = s.customer_id AND c.org_id = s.org_id
		 WHERE s.org_id = ? AND s.status = 'active'
		 ORDER BY s.start_time ASC, s.id ASC`,
		orgID,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) ListCompleted(ctx context.Context, db *gorm.DB, orgID snowflake.ID, limit, offset int) ([]domain.Session, error) {
	var items []domain.Session
	err := db.WithContext(ctx).Raw(
		`SELECT `+sessionColumns+` FROM sessions
		 WHERE org_id = ? AND status = 'completed'
		 ORDER BY end_time DESC, id DESC
		 LIMIT ? OFFSET ?`,
		orgID,
		limit,
		offset,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
