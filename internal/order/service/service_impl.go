package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/smallbiznis/cueledger/internal/actor"
	"github.com/smallbiznis/cueledger/internal/apperr"
	"github.com/smallbiznis/cueledger/internal/clock"
	"github.com/smallbiznis/cueledger/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

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

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("order.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Add(ctx context.Context, req domain.AddRequest) (domain.AdditionalOrder, error) {
	if err := req.Actor.Validate(); err != nil {
		return domain.AdditionalOrder{}, err
	}
	itemName := strings.TrimSpace(req.ItemName)
	if itemName == "" {
		return domain.AdditionalOrder{}, domain.ErrInvalidItemName
	}
	if req.Quantity <= 0 {
		return domain.AdditionalOrder{}, domain.ErrInvalidQuantity
	}
	if req.UnitPrice < 0 {
		return domain.AdditionalOrder{}, domain.ErrInvalidUnitPrice
	}
	if req.UnitPrice != 0 && req.Quantity > domain.MaxSessionTotal/req.UnitPrice {
		return domain.AdditionalOrder{}, domain.ErrOrderTooLarge
	}

	now := s.clock.Now()
	order := domain.AdditionalOrder{
		ID:         s.genID.Generate(),
		OrgID:      req.Actor.AccountID,
		SessionID:  req.SessionID,
		ItemName:   itemName,
		Quantity:   req.Quantity,
		UnitPrice:  req.UnitPrice,
		TotalPrice: req.Quantity * req.UnitPrice,
		CreatedBy:  req.Actor.Operator(),
		CreatedAt:  now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.guardActive(ctx, tx, req.Actor.AccountID, req.SessionID); err != nil {
			return err
		}
		current, err := s.Aggregate(ctx, tx, req.Actor.AccountID, req.SessionID)
		if err != nil {
			return err
		}
		if current > domain.MaxSessionTotal-order.TotalPrice {
			return domain.ErrOrderTooLarge
		}
		return s.repo.Insert(ctx, tx, &order)
	})
	if err != nil {
		return domain.AdditionalOrder{}, apperr.Internal(err)
	}

	s.log.Debug("order added",
		zap.String("session_id", order.SessionID.String()),
		zap.String("order_id", order.ID.String()),
		zap.Int64("total_price", order.TotalPrice),
	)
	return order, nil
}

func (s *Service) Remove(ctx context.Context, req domain.RemoveRequest) error {
	if err := req.Actor.Validate(); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.repo.FindByID(ctx, tx, req.Actor.AccountID, req.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return domain.ErrNotFound
		}
		if err := s.guardActive(ctx, tx, req.Actor.AccountID, order.SessionID); err != nil {
			return err
		}
		ok, err := s.repo.Delete(ctx, tx, req.Actor.AccountID, order.ID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		return nil
	})
	return apperr.Internal(err)
}

func (s *Service) List(ctx context.Context, act actor.Actor, sessionID snowflake.ID) ([]domain.AdditionalOrder, error) {
	if err := act.Validate(); err != nil {
		return nil, err
	}
	exists, err := s.repo.SessionExists(ctx, s.db, act.AccountID, sessionID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !exists {
		return nil, domain.ErrSessionNotFound
	}
	items, err := s.repo.ListBySession(ctx, s.db, act.AccountID, sessionID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

func (s *Service) Aggregate(ctx context.Context, db *gorm.DB, orgID, sessionID snowflake.ID) (int64, error) {
	items, err := s.repo.ListBySession(ctx, db, orgID, sessionID)
	if err != nil {
		return 0, err
	}
	return lo.SumBy(items, func(item domain.AdditionalOrder) int64 {
		return item.TotalPrice
	}), nil
}

func (s *Service) guardActive(ctx context.Context, tx *gorm.DB, orgID, sessionID snowflake.ID) error {
	ok, err := s.repo.GuardActiveSession(ctx, tx, orgID, sessionID, s.clock.Now())
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	exists, err := s.repo.SessionExists(ctx, tx, orgID, sessionID)
	if err != nil {
		return err
	}
	if !exists {
		return domain.ErrSessionNotFound
	}
	return domain.ErrSessionNotActive
}
