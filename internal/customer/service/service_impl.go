package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/actor"
	"github.com/smallbiznis/cueledger/internal/apperr"
	"github.com/smallbiznis/cueledger/internal/clock"
	"github.com/smallbiznis/cueledger/internal/customer/domain"
	"github.com/smallbiznis/cueledger/internal/events"
	paymentdomain "github.com/smallbiznis/cueledger/internal/payment/domain"
	"github.com/smallbiznis/cueledger/internal/ratelimit"
	"github.com/smallbiznis/cueledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       domain.Repository
	PaymentSvc paymentdomain.Service
	Outbox     *events.Outbox          `optional:"true"`
	Lock       *ratelimit.CustomerLock `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       domain.Repository
	paymentSvc paymentdomain.Service
	outbox     *events.Outbox
	lock       *ratelimit.CustomerLock
}

func New(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("customer.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		paymentSvc: p.PaymentSvc,
		outbox:     p.Outbox,
		lock:       p.Lock,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	if err := req.Actor.Validate(); err != nil {
		return domain.Customer{}, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	now := s.clock.Now()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		OrgID:     req.Actor.AccountID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if phone := strings.TrimSpace(req.Phone); phone != "" {
		customer.Phone = &phone
	}

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, apperr.Internal(err)
	}

	return customer, nil
}

func (s *Service) List(ctx context.Context, req domain.ListCustomerRequest) (domain.ListCustomerResponse, error) {
	if err := req.Actor.Validate(); err != nil {
		return domain.ListCustomerResponse{}, err
	}

	page := pagination.Pagination{
		PageToken: strings.TrimSpace(req.PageToken),
		PageSize:  req.PageSize,
	}
	if page.PageToken != "" {
		if _, err := pagination.DecodeCursor(page.PageToken); err != nil {
			return domain.ListCustomerResponse{}, domain.ErrInvalidPageToken
		}
	}

	items, err := s.repo.List(ctx, s.db, req.Actor.AccountID, domain.ListCustomerFilter{
		Name: strings.TrimSpace(req.Name),
	}, page)
	if err != nil {
		return domain.ListCustomerResponse{}, apperr.Internal(err)
	}

	customers, pageInfo := pagination.BuildCursorPageInfo(items, page.Limit(), func(c domain.Customer) pagination.Cursor {
		return pagination.Cursor{ID: int64(c.ID), CreatedAt: c.CreatedAt}
	})
	if customers == nil {
		customers = []domain.Customer{}
	}

	return domain.ListCustomerResponse{PageInfo: pageInfo, Customers: customers}, nil
}

func (s *Service) Get(ctx context.Context, act actor.Actor, id snowflake.ID) (domain.Customer, error) {
	if err := act.Validate(); err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, act.AccountID, id)
	if err != nil {
		return domain.Customer{}, apperr.Internal(err)
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *item, nil
}

// PayDebt reduces the outstanding debt and appends a debt_payment record in
// one transaction. Paying exactly the outstanding amount leaves zero debt.
func (s *Service) PayDebt(ctx context.Context, req domain.PayDebtRequest) (domain.Customer, error) {
	if err := req.Actor.Validate(); err != nil {
		return domain.Customer{}, err
	}
	if req.Amount <= 0 {
		return domain.Customer{}, domain.ErrInvalidDebtAmount
	}
	kind := strings.ToLower(strings.TrimSpace(req.Kind))
	if kind != string(paymentdomain.KindCash) && kind != string(paymentdomain.KindCard) {
		return domain.Customer{}, domain.ErrInvalidPaymentKind
	}

	var updated domain.Customer
	err := s.lock.WithCustomer(ctx, req.Actor.AccountID, req.CustomerID, func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			updated, err = s.payDebt(ctx, tx, req, kind)
			return err
		})
	})
	if err != nil {
		return domain.Customer{}, apperr.Internal(err)
	}

	s.log.Info("customer debt paid",
		zap.String("customer_id", updated.ID.String()),
		zap.Int64("amount", req.Amount),
		zap.Int64("remaining_debt", updated.TotalDebt),
	)
	return updated, nil
}

func (s *Service) payDebt(ctx context.Context, tx *gorm.DB, req domain.PayDebtRequest, kind string) (domain.Customer, error) {
	customer, err := s.repo.FindByID(ctx, tx, req.Actor.AccountID, req.CustomerID)
	if err != nil {
		return domain.Customer{}, err
	}
	if customer == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	if req.Amount > customer.TotalDebt {
		return domain.Customer{}, domain.ErrDebtExceeded.WithMessage("amount exceeds outstanding debt: max %d", customer.TotalDebt)
	}

	now := s.clock.Now()
	ok, err := s.repo.ReduceDebt(ctx, tx, req.Actor.AccountID, customer.ID, req.Amount, now)
	if err != nil {
		return domain.Customer{}, err
	}
	if !ok {
		return domain.Customer{}, domain.ErrDebtExceeded
	}

	customerID := customer.ID
	payment, err := s.paymentSvc.Record(ctx, tx, paymentdomain.RecordRequest{
		Actor:       req.Actor,
		CustomerID:  &customerID,
		Amount:      req.Amount,
		Kind:        paymentdomain.KindDebtPayment,
		Description: fmt.Sprintf("%s debt payment (%s)", customer.Name, kind),
	})
	if err != nil {
		return domain.Customer{}, err
	}

	fresh, err := s.repo.FindByID(ctx, tx, req.Actor.AccountID, customer.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	if s.outbox != nil {
		if err := s.outbox.PublishTx(ctx, tx, events.Event{
			OrgID:       req.Actor.AccountID,
			Type:        events.EventDebtPaid,
			AggregateID: customer.ID,
			DedupeKey:   "customer.debt_paid:" + payment.ID.String(),
			Payload: map[string]any{
				"customer_id":    customer.ID.String(),
				"payment_id":     payment.ID.String(),
				"amount":         req.Amount,
				"kind":           kind,
				"remaining_debt": fresh.TotalDebt,
			},
		}); err != nil {
			return domain.Customer{}, err
		}
	}
	return *fresh, nil
}
