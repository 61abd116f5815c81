package service

import (
	"context"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/smallbiznis/cueledger/internal/apperr"
	"github.com/smallbiznis/cueledger/internal/config"
	paymentdomain "github.com/smallbiznis/cueledger/internal/payment/domain"
	"github.com/smallbiznis/cueledger/internal/report/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Repo       domain.Repository
	PaymentSvc paymentdomain.Service
	Policy     *config.PolicyHolder `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	repo       domain.Repository
	paymentSvc paymentdomain.Service
	policy     *config.PolicyHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("report.service"),
		repo:       p.Repo,
		paymentSvc: p.PaymentSvc,
		policy:     p.Policy,
	}
}

func (s *Service) Daily(ctx context.Context, req domain.DailyRequest) (domain.DailyReport, error) {
	if err := req.Actor.Validate(); err != nil {
		return domain.DailyReport{}, err
	}

	day, err := time.ParseInLocation(dateLayout, strings.TrimSpace(req.Date), s.policy.Get().Receipt.Location())
	if err != nil {
		return domain.DailyReport{}, domain.ErrInvalidDate
	}
	from := day
	to := day.AddDate(0, 0, 1)
	orgID := req.Actor.AccountID

	totals, err := s.repo.SumSessions(ctx, s.db, orgID, from, to)
	if err != nil {
		return domain.DailyReport{}, apperr.Internal(err)
	}
	sessions, err := s.repo.ListSessions(ctx, s.db, orgID, from, to)
	if err != nil {
		return domain.DailyReport{}, apperr.Internal(err)
	}
	earned, err := s.repo.SumCashbackEarned(ctx, s.db, orgID, from, to)
	if err != nil {
		return domain.DailyReport{}, apperr.Internal(err)
	}
	byKind, err := s.paymentSvc.TotalsByKind(ctx, req.Actor, from, to)
	if err != nil {
		return domain.DailyReport{}, err
	}

	amountOf := func(kind paymentdomain.Kind) int64 {
		return lo.SumBy(byKind, func(t paymentdomain.KindTotal) int64 {
			if t.Kind != kind {
				return 0
			}
			return t.Amount
		})
	}
	payments := domain.PaymentSummary{
		Cash:         amountOf(paymentdomain.KindCash),
		Card:         amountOf(paymentdomain.KindCard),
		DebtPayments: amountOf(paymentdomain.KindDebtPayment),
		ByKind:       byKind,
	}
	payments.Total = payments.Cash + payments.Card + payments.DebtPayments

	if sessions == nil {
		sessions = []domain.SessionLine{}
	}
	return domain.DailyReport{
		Date:           day.Format(dateLayout),
		From:           from,
		To:             to,
		Totals:         totals,
		CashbackEarned: earned,
		Payments:       payments,
		Sessions:       sessions,
	}, nil
}
