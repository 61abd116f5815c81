package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/smallbiznis/cueledger/internal/actor"
	"github.com/smallbiznis/cueledger/internal/apperr"
	cashbackdomain "github.com/smallbiznis/cueledger/internal/cashback/domain"
	"github.com/smallbiznis/cueledger/internal/clock"
	customerdomain "github.com/smallbiznis/cueledger/internal/customer/domain"
	"github.com/smallbiznis/cueledger/internal/events"
	"github.com/smallbiznis/cueledger/internal/meter"
	"github.com/smallbiznis/cueledger/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/cueledger/internal/order/domain"
	paymentdomain "github.com/smallbiznis/cueledger/internal/payment/domain"
	"github.com/smallbiznis/cueledger/internal/ratelimit"
	"github.com/smallbiznis/cueledger/internal/session/domain"
	tabledomain "github.com/smallbiznis/cueledger/internal/table/domain"
	dbpkg "github.com/smallbiznis/cueledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Clock        clock.Clock
	Repo         domain.Repository
	TableRepo    tabledomain.Repository
	CustomerRepo customerdomain.Repository
	OrderSvc     orderdomain.Service
	CashbackSvc  cashbackdomain.Service
	PaymentSvc   paymentdomain.Service
	Outbox       *events.Outbox          `optional:"true"`
	Lock         *ratelimit.CustomerLock `optional:"true"`
	Metrics      *metrics.Metrics        `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	clock        clock.Clock
	repo         domain.Repository
	tableRepo    tabledomain.Repository
	customerRepo customerdomain.Repository
	orderSvc     orderdomain.Service
	cashbackSvc  cashbackdomain.Service
	paymentSvc   paymentdomain.Service
	outbox       *events.Outbox
	lock         *ratelimit.CustomerLock
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("session.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		repo:         p.Repo,
		tableRepo:    p.TableRepo,
		customerRepo: p.CustomerRepo,
		orderSvc:     p.OrderSvc,
		cashbackSvc:  p.CashbackSvc,
		paymentSvc:   p.PaymentSvc,
		outbox:       p.Outbox,
		lock:         p.Lock,
		metrics:      p.Metrics,
	}
}

func (s *Service) Open(ctx context.Context, req domain.OpenRequest) (domain.OpenSession, error) {
	if err := req.Actor.Validate(); err != nil {
		return domain.OpenSession{}, err
	}

	orgID := req.Actor.AccountID
	now := s.clock.Now()
	session := domain.Session{
		ID:         s.genID.Generate(),
		OrgID:      orgID,
		TableID:    req.TableID,
		CustomerID: req.CustomerID,
		StartTime:  now,
		Status:     domain.StatusActive,
		OpenedBy:   req.Actor.Operator(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		session.Notes = &notes
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		table, err := s.tableRepo.FindByID(ctx, tx, orgID, req.TableID)
		if err != nil {
			return err
		}
		if table == nil {
			return domain.ErrTableNotFound
		}
		if !table.IsActive {
			return domain.ErrTableInactive
		}

		customer, err := s.customerRepo.FindByID(ctx, tx, orgID, req.CustomerID)
		if err != nil {
			return err
		}
		if customer == nil {
			return domain.ErrCustomerNotFound
		}

		activeID, err := s.tableRepo.ActiveSessionID(ctx, tx, orgID, req.TableID)
		if err != nil {
			return err
		}
		if activeID != nil {
			return domain.ErrTableOccupied
		}

		session.HourlyRateAtStart = table.HourlyRate
		if err := s.repo.Insert(ctx, tx, &session); err != nil {
			if dbpkg.IsDuplicateKeyErr(err) {
				return domain.ErrTableOccupied
			}
			return err
		}

		return s.publish(ctx, tx, events.Event{
			OrgID:       orgID,
			Type:        events.EventSessionOpened,
			AggregateID: session.ID,
			DedupeKey:   "session.opened:" + session.ID.String(),
			Payload: map[string]any{
				"session_id":           session.ID.String(),
				"table_id":             session.TableID.String(),
				"customer_id":          session.CustomerID.String(),
				"hourly_rate_at_start": session.HourlyRateAtStart,
				"start_time":           session.StartTime,
			},
		})
	})
	if err != nil {
		return domain.OpenSession{}, apperr.Internal(err)
	}

	s.metrics.RecordSessionOpened(ctx, orgID.String())
	s.log.Info("session opened",
		zap.String("org_id", orgID.String()),
		zap.String("session_id", session.ID.String()),
		zap.String("table_id", session.TableID.String()),
		zap.Int64("hourly_rate_at_start", session.HourlyRateAtStart),
	)
	return session.State().(domain.OpenSession), nil
}

func (s *Service) Close(ctx context.Context, req domain.CloseRequest) (domain.Settlement, error) {
	if err := req.Actor.Validate(); err != nil {
		return domain.Settlement{}, err
	}
	if req.PaidAmount < 0 {
		return domain.Settlement{}, domain.ErrInvalidPaidAmount
	}
	if req.CashbackAmount < 0 {
		return domain.Settlement{}, domain.ErrInvalidCashbackAmount
	}
	if !req.PaymentType.Valid() {
		return domain.Settlement{}, domain.ErrInvalidPaymentType
	}

	orgID := req.Actor.AccountID
	current, err := s.repo.FindByID(ctx, s.db, orgID, req.SessionID)
	if err != nil {
		return domain.Settlement{}, apperr.Internal(err)
	}
	if current == nil {
		return domain.Settlement{}, domain.ErrNotFound
	}
	if current.Status != domain.StatusActive {
		return domain.Settlement{}, domain.ErrNotActive
	}

	var settlement domain.Settlement
	err = s.lock.WithCustomer(ctx, orgID, current.CustomerID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			settlement, err = s.settle(ctx, tx, req)
			return err
		})
	})
	if err != nil {
		return domain.Settlement{}, apperr.Internal(err)
	}

	s.metrics.RecordSessionClosed(ctx, orgID.String(), string(settlement.PaymentType),
		settlement.PaidAmount, settlement.CashbackUsed, settlement.DebtAmount)
	s.log.Info("session closed",
		zap.String("org_id", orgID.String()),
		zap.String("session_id", settlement.SessionID.String()),
		zap.Int64("total_amount", settlement.TotalAmount),
		zap.Int64("paid_amount", settlement.PaidAmount),
		zap.Int64("cashback_used", settlement.CashbackUsed),
		zap.Int64("debt_amount", settlement.DebtAmount),
		zap.Int64("cashback_earned", settlement.CashbackEarned),
	)
	return settlement, nil
}

// settle runs every settlement step on tx; any error rolls all of them back.
func (s *Service) settle(ctx context.Context, tx *gorm.DB, req domain.CloseRequest) (domain.Settlement, error) {
	orgID := req.Actor.AccountID
	now := s.clock.Now()

	touched, err := s.repo.Touch(ctx, tx, orgID, req.SessionID, now)
	if err != nil {
		return domain.Settlement{}, err
	}
	session, err := s.repo.FindByID(ctx, tx, orgID, req.SessionID)
	if err != nil {
		return domain.Settlement{}, err
	}
	if session == nil {
		return domain.Settlement{}, domain.ErrNotFound
	}
	if !touched || session.Status != domain.StatusActive {
		return domain.Settlement{}, domain.ErrNotActive
	}

	reading := meter.Measure(session.StartTime, now, session.HourlyRateAtStart)
	additional, err := s.orderSvc.Aggregate(ctx, tx, orgID, session.ID)
	if err != nil {
		return domain.Settlement{}, err
	}
	total := reading.GameAmount + additional

	if req.PaidAmount > total-req.CashbackAmount {
		return domain.Settlement{}, domain.ErrPaymentExceedsTotal.WithMessage(
			"paid amount %d plus cashback %d exceeds total %d", req.PaidAmount, req.CashbackAmount, total)
	}

	if req.CashbackAmount > 0 {
		if _, err := s.cashbackSvc.Spend(ctx, tx, cashbackdomain.SpendRequest{
			Actor:       req.Actor,
			CustomerID:  session.CustomerID,
			SessionID:   session.ID,
			Amount:      req.CashbackAmount,
			TotalAmount: total,
		}); err != nil {
			return domain.Settlement{}, err
		}
	}

	payable := total - req.CashbackAmount
	debt := max(0, payable-req.PaidAmount)

	operator := req.Actor.Operator()
	paymentType := req.PaymentType
	session.EndTime = &now
	session.DurationMinutes = lo.ToPtr(reading.DurationMinutes)
	session.GameAmount = lo.ToPtr(reading.GameAmount)
	session.AdditionalAmount = lo.ToPtr(additional)
	session.TotalAmount = lo.ToPtr(total)
	session.PaidAmount = lo.ToPtr(req.PaidAmount)
	session.CashbackUsed = lo.ToPtr(req.CashbackAmount)
	session.DebtAmount = lo.ToPtr(debt)
	session.PaymentType = &paymentType
	session.CompletedBy = &operator
	session.UpdatedAt = now
	if notes := strings.TrimSpace(req.Notes); notes != "" {
		session.Notes = &notes
	}

	completed, err := s.repo.Complete(ctx, tx, session)
	if err != nil {
		return domain.Settlement{}, err
	}
	if !completed {
		return domain.Settlement{}, domain.ErrNotActive
	}

	if req.PaidAmount > 0 && paymentType != domain.PaymentDebt {
		sessionID := session.ID
		customerID := session.CustomerID
		if _, err := s.paymentSvc.Record(ctx, tx, paymentdomain.RecordRequest{
			Actor:       req.Actor,
			SessionID:   &sessionID,
			CustomerID:  &customerID,
			Amount:      req.PaidAmount,
			Kind:        paymentdomain.Kind(paymentType),
			Description: fmt.Sprintf("Session %s payment", session.ID),
		}); err != nil {
			return domain.Settlement{}, err
		}
	}

	if debt > 0 {
		ok, err := s.customerRepo.AddDebt(ctx, tx, orgID, session.CustomerID, debt, now)
		if err != nil {
			return domain.Settlement{}, err
		}
		if !ok {
			return domain.Settlement{}, domain.ErrCustomerNotFound
		}
	}

	earned, err := s.cashbackSvc.Earn(ctx, tx, cashbackdomain.EarnRequest{
		Actor:      req.Actor,
		CustomerID: session.CustomerID,
		SessionID:  session.ID,
		EarnInput: cashbackdomain.EarnInput{
			PaidAmount:  req.PaidAmount,
			GameAmount:  reading.GameAmount,
			TotalAmount: total,
			DebtAmount:  debt,
		},
	})
	if err != nil {
		return domain.Settlement{}, err
	}

	settlement := domain.Settlement{
		SessionID:        session.ID,
		DurationMinutes:  reading.DurationMinutes,
		GameAmount:       reading.GameAmount,
		AdditionalAmount: additional,
		TotalAmount:      total,
		CashbackUsed:     req.CashbackAmount,
		PaidAmount:       req.PaidAmount,
		PayableAmount:    payable,
		DebtAmount:       debt,
		PaymentType:      paymentType,
	}
	if earned != nil {
		settlement.CashbackEarned = earned.Amount
	}

	if err := s.publish(ctx, tx, events.Event{
		OrgID:       orgID,
		Type:        events.EventSessionCompleted,
		AggregateID: session.ID,
		DedupeKey:   "session.completed:" + session.ID.String(),
		Payload: map[string]any{
			"session_id":        session.ID.String(),
			"table_id":          session.TableID.String(),
			"customer_id":       session.CustomerID.String(),
			"duration_minutes":  settlement.DurationMinutes,
			"game_amount":       settlement.GameAmount,
			"additional_amount": settlement.AdditionalAmount,
			"total_amount":      settlement.TotalAmount,
			"paid_amount":       settlement.PaidAmount,
			"cashback_used":     settlement.CashbackUsed,
			"debt_amount":       settlement.DebtAmount,
			"cashback_earned":   settlement.CashbackEarned,
			"payment_type":      string(settlement.PaymentType),
			"completed_at":      now,
		},
	}); err != nil {
		return domain.Settlement{}, err
	}

	return settlement, nil
}

func (s *Service) publish(ctx context.Context, tx *gorm.DB, event events.Event) error {
	if s.outbox == nil {
		return nil
	}
	return s.outbox.PublishTx(ctx, tx, event)
}

func (s *Service) Get(ctx context.Context, act actor.Actor, id snowflake.ID) (domain.Session, error) {
	if err := act.Validate(); err != nil {
		return domain.Session{}, err
	}
	session, err := s.repo.FindByID(ctx, s.db, act.AccountID, id)
	if err != nil {
		return domain.Session{}, apperr.Internal(err)
	}
	if session == nil {
		return domain.Session{}, domain.ErrNotFound
	}
	return *session, nil
}

func (s *Service) ListActive(ctx context.Context, act actor.Actor) ([]domain.ActiveSession, error) {
	if err := act.Validate(); err != nil {
		return nil, err
	}

	rows, err := s.repo.ListActive(ctx, s.db, act.AccountID)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := s.clock.Now()
	items := make([]domain.ActiveSession, 0, len(rows))
	for _, row := range rows {
		additional, err := s.orderSvc.Aggregate(ctx, s.db, act.AccountID, row.ID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		items = append(items, domain.ActiveSession{
			OpenSession:  row.State().(domain.OpenSession),
			TableName:    row.TableLabel,
			CustomerName: row.CustomerName,
			Projection:   meter.Project(row.StartTime, now, row.HourlyRateAtStart, additional),
		})
	}
	return items, nil
}

func (s *Service) History(ctx context.Context, req domain.HistoryRequest) (domain.HistoryPage, error) {
	if err := req.Actor.Validate(); err != nil {
		return domain.HistoryPage{}, err
	}

	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	offset := max(req.Offset, 0)

	rows, err := s.repo.ListCompleted(ctx, s.db, req.Actor.AccountID, limit+1, offset)
	if err != nil {
		return domain.HistoryPage{}, apperr.Internal(err)
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}
	items := lo.Map(rows, func(row domain.Session, _ int) domain.CompletedSession {
		return row.State().(domain.CompletedSession)
	})
	return domain.HistoryPage{Items: items, HasMore: hasMore}, nil
}
