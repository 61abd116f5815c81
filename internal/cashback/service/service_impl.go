package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/actor"
	"github.com/smallbiznis/cueledger/internal/apperr"
	"github.com/smallbiznis/cueledger/internal/cashback/domain"
	"github.com/smallbiznis/cueledger/internal/clock"
	"github.com/smallbiznis/cueledger/internal/config"
	customerdomain "github.com/smallbiznis/cueledger/internal/customer/domain"
	"github.com/smallbiznis/cueledger/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	CustomerRepo customerdomain.Repository
	Policy       *config.PolicyHolder
	Metrics      *metrics.Metrics `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	customerRepo customerdomain.Repository
	policy       *config.PolicyHolder
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("cashback.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		customerRepo: p.CustomerRepo,
		policy:       p.Policy,
		metrics:      p.Metrics,
	}
}

func (s *Service) GetSettings(ctx context.Context, act actor.Actor) (domain.Settings, error) {
	if err := act.Validate(); err != nil {
		return domain.Settings{}, err
	}
	settings, err := s.ensureSettings(ctx, s.db, act.AccountID)
	if err != nil {
		return domain.Settings{}, apperr.Internal(err)
	}
	return *settings, nil
}

func (s *Service) UpdateSettings(ctx context.Context, req domain.UpdateSettingsRequest) (domain.Settings, error) {
	if err := req.Actor.Validate(); err != nil {
		return domain.Settings{}, err
	}
	if err := domain.ValidateSettings(req.Percentage, req.MinAmount, req.MaxUsagePercent); err != nil {
		return domain.Settings{}, err
	}

	var updated domain.Settings
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		settings, err := s.ensureSettings(ctx, tx, req.Actor.AccountID)
		if err != nil {
			return err
		}

		operator := req.Actor.Operator()
		settings.Enabled = req.Enabled
		settings.Percentage = req.Percentage
		settings.MinAmount = req.MinAmount
		settings.ApplyOnDebt = req.ApplyOnDebt
		settings.MaxUsagePercent = req.MaxUsagePercent
		settings.ApplyOnExtras = req.ApplyOnExtras
		settings.UpdatedBy = &operator
		settings.UpdatedAt = s.clock.Now()

		if _, err := s.repo.UpdateSettings(ctx, tx, settings); err != nil {
			return err
		}
		updated = *settings
		return nil
	})
	if err != nil {
		return domain.Settings{}, apperr.Internal(err)
	}

	s.log.Info("cashback settings updated",
		zap.String("org_id", req.Actor.AccountID.String()),
		zap.Bool("enabled", updated.Enabled),
		zap.String("percentage", updated.Percentage.String()),
		zap.String("max_usage_percent", updated.MaxUsagePercent.String()),
	)
	return updated, nil
}

// ensureSettings reads the account settings, persisting defaults on first
// access. A lost insert race is resolved by reading the winner's row.
func (s *Service) ensureSettings(ctx context.Context, db *gorm.DB, orgID snowflake.ID) (*domain.Settings, error) {
	settings, err := s.repo.FindSettings(ctx, db, orgID)
	if err != nil {
		return nil, err
	}
	if settings != nil {
		return settings, nil
	}

	defaults := domain.DefaultSettings(orgID, s.clock.Now())
	defaults.ID = s.genID.Generate()
	if _, err := s.repo.InsertSettingsIfAbsent(ctx, db, &defaults); err != nil {
		return nil, err
	}

	settings, err = s.repo.FindSettings(ctx, db, orgID)
	if err != nil {
		return nil, err
	}
	if settings == nil {
		return nil, fmt.Errorf("cashback settings for org %s missing after insert", orgID)
	}
	return settings, nil
}

func (s *Service) zeroCapMode() domain.ZeroCapMode {
	if s.policy.Get().Cashback.ZeroCapMode == config.ZeroCapBlocked {
		return domain.ZeroCapBlocked
	}
	return domain.ZeroCapUnlimited
}

func (s *Service) Earn(ctx context.Context, tx *gorm.DB, req domain.EarnRequest) (*domain.Entry, error) {
	if err := req.Actor.Validate(); err != nil {
		return nil, err
	}

	settings, err := s.ensureSettings(ctx, tx, req.Actor.AccountID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	amount, ok := domain.ComputeEarn(*settings, req.EarnInput)
	if !ok {
		return nil, nil
	}

	now := s.clock.Now()
	expiresAt := now.Add(domain.ExpiryWindow)
	customerID := req.CustomerID
	sessionID := req.SessionID
	entry := domain.Entry{
		ID:          s.genID.Generate(),
		OrgID:       req.Actor.AccountID,
		CustomerID:  &customerID,
		Amount:      amount,
		Direction:   domain.DirectionEarned,
		Source:      domain.SourceSession,
		SessionID:   &sessionID,
		Description: fmt.Sprintf("Cashback earned for session %s", sessionID),
		Status:      domain.StatusActive,
		ExpiresAt:   &expiresAt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.InsertEntry(ctx, tx, &entry); err != nil {
		return nil, apperr.Internal(err)
	}
	credited, err := s.customerRepo.CreditCashback(ctx, tx, req.Actor.AccountID, customerID, amount, now)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !credited {
		return nil, domain.ErrCustomerNotFound
	}

	s.metrics.RecordCashback(ctx, req.Actor.AccountID.String(), string(domain.DirectionEarned), amount)
	return &entry, nil
}

func (s *Service) Spend(ctx context.Context, tx *gorm.DB, req domain.SpendRequest) (domain.Entry, error) {
	if err := req.Actor.Validate(); err != nil {
		return domain.Entry{}, err
	}
	if req.Amount <= 0 {
		return domain.Entry{}, domain.ErrInvalidAmount
	}

	settings, err := s.ensureSettings(ctx, tx, req.Actor.AccountID)
	if err != nil {
		return domain.Entry{}, apperr.Internal(err)
	}
	customer, err := s.customerRepo.FindByID(ctx, tx, req.Actor.AccountID, req.CustomerID)
	if err != nil {
		return domain.Entry{}, apperr.Internal(err)
	}
	if customer == nil {
		return domain.Entry{}, domain.ErrCustomerNotFound
	}

	if err := domain.ValidateSpend(*settings, s.zeroCapMode(), customer.CashbackBalance, req.TotalAmount, req.Amount); err != nil {
		return domain.Entry{}, err
	}

	now := s.clock.Now()
	debited, err := s.customerRepo.DebitCashback(ctx, tx, req.Actor.AccountID, customer.ID, req.Amount, now)
	if err != nil {
		return domain.Entry{}, apperr.Internal(err)
	}
	if !debited {
		return domain.Entry{}, domain.ErrBalanceChanged
	}

	customerID := customer.ID
	sessionID := req.SessionID
	entry := domain.Entry{
		ID:          s.genID.Generate(),
		OrgID:       req.Actor.AccountID,
		CustomerID:  &customerID,
		Amount:      req.Amount,
		Direction:   domain.DirectionSpent,
		Source:      domain.SourceSession,
		SessionID:   &sessionID,
		Description: fmt.Sprintf("Cashback redeemed for session %s", sessionID),
		Status:      domain.StatusUsed,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertEntry(ctx, tx, &entry); err != nil {
		return domain.Entry{}, apperr.Internal(err)
	}

	s.metrics.RecordCashback(ctx, req.Actor.AccountID.String(), string(domain.DirectionSpent), req.Amount)
	return entry, nil
}

// Balance reads the denormalized counters. Entries past expiry keep counting
// until the next sweep marks them expired.
func (s *Service) Balance(ctx context.Context, act actor.Actor, customerID snowflake.ID) (domain.Balance, error) {
	if err := act.Validate(); err != nil {
		return domain.Balance{}, err
	}
	customer, err := s.customerRepo.FindByID(ctx, s.db, act.AccountID, customerID)
	if err != nil {
		return domain.Balance{}, apperr.Internal(err)
	}
	if customer == nil {
		return domain.Balance{}, nil
	}
	return domain.Balance{
		Balance:     customer.CashbackBalance,
		TotalEarned: customer.TotalCashbackEarned,
		TotalSpent:  customer.TotalCashbackSpent,
	}, nil
}

func (s *Service) AccountBalance(ctx context.Context, act actor.Actor) (domain.Balance, error) {
	if err := act.Validate(); err != nil {
		return domain.Balance{}, err
	}
	totals, err := s.customerRepo.SumCashback(ctx, s.db, act.AccountID)
	if err != nil {
		return domain.Balance{}, apperr.Internal(err)
	}
	return domain.Balance{
		Balance:     totals.Balance,
		TotalEarned: totals.TotalEarned,
		TotalSpent:  totals.TotalSpent,
	}, nil
}

func (s *Service) History(ctx context.Context, req domain.HistoryRequest) ([]domain.Entry, error) {
	if err := req.Actor.Validate(); err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	items, err := s.repo.ListEntries(ctx, s.db, req.Actor.AccountID, req.CustomerID, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

func (s *Service) ExpireDue(ctx context.Context, act actor.Actor) (domain.ExpireResult, error) {
	if err := act.Validate(); err != nil {
		return domain.ExpireResult{}, err
	}
	return s.expire(ctx, act.AccountID)
}

func (s *Service) ExpireAllDue(ctx context.Context) (domain.ExpireResult, error) {
	return s.expire(ctx, 0)
}

// expire walks due entries in id order. Each entry commits on its own so one
// failure leaves the rest of the sweep intact.
func (s *Service) expire(ctx context.Context, orgID snowflake.ID) (domain.ExpireResult, error) {
	var result domain.ExpireResult

	batchSize := s.policy.Get().Cashback.ExpireBatchSize
	now := s.clock.Now()
	var afterID snowflake.ID

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		due, err := s.repo.ListDue(ctx, s.db, orgID, now, afterID, batchSize)
		if err != nil {
			return result, apperr.Internal(err)
		}

		for _, entry := range due {
			afterID = entry.ID
			expired, err := s.expireEntry(ctx, entry, now)
			if err != nil {
				result.Failed++
				s.log.Warn("cashback entry expiry failed",
					zap.String("entry_id", entry.ID.String()),
					zap.String("org_id", entry.OrgID.String()),
					zap.Error(err),
				)
				continue
			}
			if expired {
				result.Expired++
				s.metrics.RecordCashback(ctx, entry.OrgID.String(), string(domain.StatusExpired), entry.Amount)
			}
		}

		if len(due) < batchSize {
			break
		}
	}

	if result.Expired > 0 || result.Failed > 0 {
		s.log.Info("cashback expiry sweep finished",
			zap.Int("expired", result.Expired),
			zap.Int("failed", result.Failed),
		)
	}
	return result, nil
}

func (s *Service) expireEntry(ctx context.Context, entry domain.Entry, now time.Time) (bool, error) {
	expired := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.MarkExpired(ctx, tx, entry.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if entry.CustomerID != nil {
			if _, err := s.customerRepo.ClampDebitCashback(ctx, tx, entry.OrgID, *entry.CustomerID, entry.Amount, now); err != nil {
				return err
			}
		}
		expired = true
		return nil
	})
	return expired, err
}

func (s *Service) AssignLegacy(ctx context.Context, act actor.Actor, customerID snowflake.ID) (domain.AssignResult, error) {
	if err := act.Validate(); err != nil {
		return domain.AssignResult{}, err
	}

	var result domain.AssignResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customer, err := s.customerRepo.FindByID(ctx, tx, act.AccountID, customerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrCustomerNotFound
		}

		totals, err := s.repo.SumLegacy(ctx, tx, act.AccountID)
		if err != nil {
			return err
		}
		if totals.Entries == 0 {
			return domain.ErrNoLegacyEntries
		}

		now := s.clock.Now()
		moved, err := s.repo.AssignLegacy(ctx, tx, act.AccountID, customer.ID, now)
		if err != nil {
			return err
		}

		balance := max(totals.ActiveEarned-totals.TotalSpent, 0)
		if _, err := s.customerRepo.MergeCashback(ctx, tx, act.AccountID, customer.ID, customerdomain.CashbackTotals{
			Balance:     balance,
			TotalEarned: totals.TotalEarned,
			TotalSpent:  totals.TotalSpent,
		}, now); err != nil {
			return err
		}

		result = domain.AssignResult{Entries: int(moved), Credited: balance}
		return nil
	})
	if err != nil {
		return domain.AssignResult{}, apperr.Internal(err)
	}

	s.log.Info("legacy cashback assigned",
		zap.String("org_id", act.AccountID.String()),
		zap.String("customer_id", customerID.String()),
		zap.Int("entries", result.Entries),
		zap.Int64("credited", result.Credited),
	)
	return result, nil
}
