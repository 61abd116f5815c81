package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/actor"
	"github.com/smallbiznis/cueledger/internal/apperr"
	"github.com/smallbiznis/cueledger/internal/clock"
	"github.com/smallbiznis/cueledger/internal/table/domain"
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
		log:   p.Log.Named("table.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateTableRequest) (domain.Table, error) {
	if err := req.Actor.Validate(); err != nil {
		return domain.Table{}, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Table{}, domain.ErrInvalidName
	}
	if req.HourlyRate < 0 {
		return domain.Table{}, domain.ErrInvalidHourlyRate
	}

	now := s.clock.Now()
	table := domain.Table{
		ID:         s.genID.Generate(),
		OrgID:      req.Actor.AccountID,
		Name:       name,
		HourlyRate: req.HourlyRate,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.Insert(ctx, s.db, &table); err != nil {
		return domain.Table{}, apperr.Internal(err)
	}
	return table, nil
}

func (s *Service) List(ctx context.Context, act actor.Actor) ([]domain.TableView, error) {
	if err := act.Validate(); err != nil {
		return nil, err
	}
	items, err := s.repo.List(ctx, s.db, act.AccountID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, act actor.Actor, id snowflake.ID) (domain.TableView, error) {
	if err := act.Validate(); err != nil {
		return domain.TableView{}, err
	}
	table, err := s.repo.FindByID(ctx, s.db, act.AccountID, id)
	if err != nil {
		return domain.TableView{}, apperr.Internal(err)
	}
	if table == nil {
		return domain.TableView{}, domain.ErrNotFound
	}
	sessionID, err := s.repo.ActiveSessionID(ctx, s.db, act.AccountID, id)
	if err != nil {
		return domain.TableView{}, apperr.Internal(err)
	}
	return domain.TableView{
		Table:           *table,
		IsOccupied:      sessionID != nil,
		ActiveSessionID: sessionID,
	}, nil
}

func (s *Service) SetActive(ctx context.Context, act actor.Actor, id snowflake.ID, active bool) (domain.Table, error) {
	if err := act.Validate(); err != nil {
		return domain.Table{}, err
	}

	var updated domain.Table
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.SetActive(ctx, tx, act.AccountID, id, active, s.clock.Now())
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		table, err := s.repo.FindByID(ctx, tx, act.AccountID, id)
		if err != nil {
			return err
		}
		updated = *table
		return nil
	})
	if err != nil {
		return domain.Table{}, apperr.Internal(err)
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, act actor.Actor, id snowflake.ID) error {
	if err := act.Validate(); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table, err := s.repo.FindByID(ctx, tx, act.AccountID, id)
		if err != nil {
			return err
		}
		if table == nil {
			return domain.ErrNotFound
		}
		ok, err := s.repo.Delete(ctx, tx, act.AccountID, id)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrTableOccupied
		}
		return nil
	})
	if err != nil {
		return apperr.Internal(err)
	}

	s.log.Info("table deleted", zap.String("table_id", id.String()))
	return nil
}

func (s *Service) UpdateRate(ctx context.Context, req domain.UpdateRateRequest) (domain.Table, error) {
	if err := req.Actor.Validate(); err != nil {
		return domain.Table{}, err
	}
	if req.NewRate < 0 {
		return domain.Table{}, domain.ErrInvalidHourlyRate
	}

	var updated domain.Table
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table, err := s.repo.FindByID(ctx, tx, req.Actor.AccountID, req.TableID)
		if err != nil {
			return err
		}
		if table == nil {
			return domain.ErrNotFound
		}
		if table.HourlyRate == req.NewRate {
			return domain.ErrRateUnchanged
		}

		now := s.clock.Now()
		if err := s.repo.InsertRateChange(ctx, tx, &domain.RateChange{
			ID:        s.genID.Generate(),
			OrgID:     req.Actor.AccountID,
			TableID:   table.ID,
			OldRate:   table.HourlyRate,
			NewRate:   req.NewRate,
			ChangedBy: req.Actor.Operator(),
			ChangedAt: now,
		}); err != nil {
			return err
		}
		if _, err := s.repo.UpdateRate(ctx, tx, req.Actor.AccountID, table.ID, req.NewRate, now); err != nil {
			return err
		}

		table.HourlyRate = req.NewRate
		table.UpdatedAt = now
		updated = *table
		return nil
	})
	if err != nil {
		return domain.Table{}, apperr.Internal(err)
	}

	s.log.Info("table rate updated",
		zap.String("table_id", updated.ID.String()),
		zap.Int64("hourly_rate", updated.HourlyRate),
	)
	return updated, nil
}

func (s *Service) ListRateHistory(ctx context.Context, act actor.Actor, tableID snowflake.ID) ([]domain.RateChange, error) {
	if err := act.Validate(); err != nil {
		return nil, err
	}
	table, err := s.repo.FindByID(ctx, s.db, act.AccountID, tableID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if table == nil {
		return nil, domain.ErrNotFound
	}
	items, err := s.repo.ListRateHistory(ctx, s.db, act.AccountID, tableID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}
