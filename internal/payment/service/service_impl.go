package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/actor"
	"github.com/smallbiznis/cueledger/internal/apperr"
	"github.com/smallbiznis/cueledger/internal/clock"
	"github.com/smallbiznis/cueledger/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultListLimit = 100

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("payment.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, req domain.RecordRequest) (domain.Payment, error) {
	if err := req.Actor.Validate(); err != nil {
		return domain.Payment{}, err
	}
	if req.Amount <= 0 {
		return domain.Payment{}, domain.ErrInvalidAmount
	}
	if !req.Kind.Valid() {
		return domain.Payment{}, domain.ErrInvalidKind
	}

	payment := domain.Payment{
		ID:         s.genID.Generate(),
		OrgID:      req.Actor.AccountID,
		SessionID:  req.SessionID,
		CustomerID: req.CustomerID,
		Amount:     req.Amount,
		Kind:       req.Kind,
		CreatedBy:  req.Actor.Operator(),
		CreatedAt:  s.clock.Now(),
	}
	if desc := strings.TrimSpace(req.Description); desc != "" {
		payment.Description = &desc
	}

	if err := s.repo.Insert(ctx, tx, &payment); err != nil {
		return domain.Payment{}, apperr.Internal(err)
	}

	s.log.Debug("payment recorded",
		zap.String("payment_id", payment.ID.String()),
		zap.String("kind", string(payment.Kind)),
		zap.Int64("amount", payment.Amount),
	)
	return payment, nil
}

func (s *Service) ListBySession(ctx context.Context, act actor.Actor, sessionID snowflake.ID) ([]domain.Payment, error) {
	if err := act.Validate(); err != nil {
		return nil, err
	}
	items, err := s.repo.ListBySession(ctx, s.db, act.AccountID, sessionID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

func (s *Service) ListByCustomer(ctx context.Context, act actor.Actor, customerID snowflake.ID, limit int) ([]domain.Payment, error) {
	if err := act.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	items, err := s.repo.ListByCustomer(ctx, s.db, act.AccountID, customerID, limit)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

func (s *Service) TotalsByKind(ctx context.Context, act actor.Actor, from, to time.Time) ([]domain.KindTotal, error) {
	if err := act.Validate(); err != nil {
		return nil, err
	}
	items, err := s.repo.SumByKind(ctx, s.db, act.AccountID, from, to)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}
