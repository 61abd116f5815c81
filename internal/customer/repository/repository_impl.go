package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/customer/domain"
	"github.com/smallbiznis/cueledger/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, customer *domain.Customer) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO customers (id, org_id, name, phone, total_debt, cashback_balance,
			total_cashback_earned, total_cashback_spent, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		customer.ID,
		customer.OrgID,
		customer.Name,
		customer.Phone,
		customer.TotalDebt,
		customer.CashbackBalance,
		customer.TotalCashbackEarned,
		customer.TotalCashbackSpent,
		customer.CreatedAt,
		customer.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, name, phone, total_debt, cashback_balance,
			total_cashback_earned, total_cashback_spent, created_at, updated_at
		 FROM customers WHERE org_id = ? AND id = ?`,
		orgID,
		id,
	).Scan(&customer).Error
	if err != nil {
		return nil, err
	}
	if customer.ID == 0 {
		return nil, nil
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, orgID snowflake.ID, filter domain.ListCustomerFilter, page pagination.Pagination) ([]domain.Customer, error) {
	var customers []domain.Customer
	stmt := db.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("org_id = ?", orgID)
	if filter.Name != "" {
		stmt = stmt.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(filter.Name)+"%")
	}
	stmt, err := page.Apply(stmt)
	if err != nil {
		return nil, err
	}
	if err := stmt.Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) SumCashback(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (domain.CashbackTotals, error) {
	var totals domain.CashbackTotals
	err := db.WithContext(ctx).Raw(
		`SELECT COALESCE(SUM(cashback_balance), 0) AS balance,
			COALESCE(SUM(total_cashback_earned), 0) AS total_earned,
			COALESCE(SUM(total_cashback_spent), 0) AS total_spent
		 FROM customers WHERE org_id = ?`,
		orgID,
	).Scan(&totals).Error
	return totals, err
}

func (r *repo) AddDebt(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, amount int64, at time.Time) (bool, error) {
	return exec(ctx, db,
		`UPDATE customers SET total_debt = total_debt + ?, updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		amount, at, orgID, id,
	)
}

func (r *repo) ReduceDebt(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, amount int64, at time.Time) (bool, error) {
	return exec(ctx, db,
		`UPDATE customers SET total_debt = total_debt - ?, updated_at = ?
		 WHERE org_id = ? AND id = ? AND total_debt >= ?`,
		amount, at, orgID, id, amount,
	)
}

func (r *repo) CreditCashback(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, amount int64, at time.Time) (bool, error) {
	return exec(ctx, db,
		`UPDATE customers
		 SET cashback_balance = cashback_balance + ?,
			total_cashback_earned = total_cashback_earned + ?,
			updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		amount, amount, at, orgID, id,
	)
}

func (r *repo) DebitCashback(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, amount int64, at time.Time) (bool, error) {
	return exec(ctx, db,
		`UPDATE customers
		 SET cashback_balance = cashback_balance - ?,
			total_cashback_spent = total_cashback_spent + ?,
			updated_at = ?
		 WHERE org_id = ? AND id = ? AND cashback_balance >= ?`,
		amount, amount, at, orgID, id, amount,
	)
}

func (r *repo) ClampDebitCashback(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, amount int64, at time.Time) (bool, error) {
	return exec(ctx, db,
		`UPDATE customers
		 SET cashback_balance = CASE WHEN cashback_balance > ? THEN cashback_balance - ? ELSE 0 END,
			updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		amount, amount, at, orgID, id,
	)
}

func (r *repo) MergeCashback(ctx context.Context, db *gorm.DB, orgID, id snowflake.ID, totals domain.CashbackTotals, at time.Time) (bool, error) {
	return exec(ctx, db,
		`UPDATE customers
		 SET cashback_balance = cashback_balance + ?,
			total_cashback_earned = total_cashback_earned + ?,
			total_cashback_spent = total_cashback_spent + ?,
			updated_at = ?
		 WHERE org_id = ? AND id = ?`,
		totals.Balance, totals.TotalEarned, totals.TotalSpent, at, orgID, id,
	)
}

func exec(ctx context.Context, db *gorm.DB, query string, args ...any) (bool, error) {
	res := db.WithContext(ctx).Exec(query, args...)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
