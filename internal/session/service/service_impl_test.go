package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/actor"
	"github.com/smallbiznis/cueledger/internal/apperr"
	cashbackdomain "github.com/smallbiznis/cueledger/internal/cashback/domain"
	cashbackrepo "github.com/smallbiznis/cueledger/internal/cashback/repository"
	cashbacksvc "github.com/smallbiznis/cueledger/internal/cashback/service"
	"github.com/smallbiznis/cueledger/internal/clock"
	"github.com/smallbiznis/cueledger/internal/config"
	customerdomain "github.com/smallbiznis/cueledger/internal/customer/domain"
	customerrepo "github.com/smallbiznis/cueledger/internal/customer/repository"
	"github.com/smallbiznis/cueledger/internal/events"
	orderdomain "github.com/smallbiznis/cueledger/internal/order/domain"
	orderrepo "github.com/smallbiznis/cueledger/internal/order/repository"
	ordersvc "github.com/smallbiznis/cueledger/internal/order/service"
	paymentrepo "github.com/smallbiznis/cueledger/internal/payment/repository"
	paymentsvc "github.com/smallbiznis/cueledger/internal/payment/service"
	"github.com/smallbiznis/cueledger/internal/session/domain"
	"github.com/smallbiznis/cueledger/internal/session/repository"
	"github.com/smallbiznis/cueledger/internal/session/service"
	tabledomain "github.com/smallbiznis/cueledger/internal/table/domain"
	tablerepo "github.com/smallbiznis/cueledger/internal/table/repository"
	tablesvc "github.com/smallbiznis/cueledger/internal/table/service"
	"github.com/smallbiznis/cueledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type fixture struct {
	db           *gorm.DB
	node         *snowflake.Node
	clock        *clock.FakeClock
	customerRepo customerdomain.Repository
	tableSvc     tabledomain.Service
	orderSvc     orderdomain.Service
	svc          domain.Service
	params       service.Params
	act          actor.Actor
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	clk := clock.NewFakeClock(time.Date(2026, 2, 10, 18, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	customerRepository := customerrepo.Provide()
	tableRepository := tablerepo.Provide()

	orders := ordersvc.New(ordersvc.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: orderrepo.Provide()})
	payments := paymentsvc.NewService(paymentsvc.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: paymentrepo.Provide()})
	cashback := cashbacksvc.New(cashbacksvc.Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		Clock:        clk,
		Repo:         cashbackrepo.Provide(),
		CustomerRepo: customerRepository,
		Policy:       config.NewStaticPolicyHolder(config.DefaultPolicy()),
	})

	params := service.Params{
		DB:           db,
		Log:          log,
		GenID:        node,
		Clock:        clk,
		Repo:         repository.Provide(),
		TableRepo:    tableRepository,
		CustomerRepo: customerRepository,
		OrderSvc:     orders,
		CashbackSvc:  cashback,
		PaymentSvc:   payments,
		Outbox:       events.NewOutbox(node, clk),
	}

	return fixture{
		db:           db,
		node:         node,
		clock:        clk,
		customerRepo: customerRepository,
		tableSvc:     tablesvc.New(tablesvc.Params{DB: db, Log: log, GenID: node, Clock: clk, Repo: tableRepository}),
		orderSvc:     orders,
		svc:          service.New(params),
		params:       params,
		act:          actor.New(node.Generate(), node.Generate()),
	}
}

func (f fixture) seedTable(t *testing.T, rate int64) snowflake.ID {
	t.Helper()

	table, err := f.tableSvc.Create(context.Background(), tabledomain.CreateTableRequest{
		Actor:      f.act,
		Name:       "Table " + f.node.Generate().String(),
		HourlyRate: rate,
	})
	require.NoError(t, err)
	return table.ID
}

func (f fixture) seedCustomer(t *testing.T, cashbackBalance int64) snowflake.ID {
	t.Helper()

	ctx := context.Background()
	now := f.clock.Now()
	customer := customerdomain.Customer{
		ID:        f.node.Generate(),
		OrgID:     f.act.AccountID,
		Name:      "Regular",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, f.customerRepo.Insert(ctx, f.db, &customer))
	if cashbackBalance > 0 {
		ok, err := f.customerRepo.CreditCashback(ctx, f.db, f.act.AccountID, customer.ID, cashbackBalance, now)
		require.NoError(t, err)
		require.True(t, ok)
	}
	return customer.ID
}

func (f fixture) customer(t *testing.T, id snowflake.ID) customerdomain.Customer {
	t.Helper()

	customer, err := f.customerRepo.FindByID(context.Background(), f.db, f.act.AccountID, id)
	require.NoError(t, err)
	require.NotNil(t, customer)
	return *customer
}

func (f fixture) open(t *testing.T, tableID, customerID snowflake.ID) domain.OpenSession {
	t.Helper()

	session, err := f.svc.Open(context.Background(), domain.OpenRequest{
		Actor:      f.act,
		TableID:    tableID,
		CustomerID: customerID,
	})
	require.NoError(t, err)
	return session
}

func TestCloseConservesTotalAcrossPaymentCashbackAndDebt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tableID := f.seedTable(t, 60000)
	customerID := f.seedCustomer(t, 10000)

	opened := f.open(t, tableID, customerID)
	f.clock.Advance(50 * time.Minute)

	settlement, err := f.svc.Close(ctx, domain.CloseRequest{
		Actor:          f.act,
		SessionID:      opened.ID,
		PaidAmount:     30000,
		PaymentType:    domain.PaymentCash,
		CashbackAmount: 5000,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(50), settlement.DurationMinutes)
	assert.Equal(t, int64(50000), settlement.TotalAmount)
	assert.Equal(t, int64(45000), settlement.PayableAmount)
	assert.Equal(t, int64(15000), settlement.DebtAmount)
	assert.Equal(t, int64(0), settlement.CashbackEarned)
	assert.Equal(t, settlement.TotalAmount, settlement.PaidAmount+settlement.CashbackUsed+settlement.DebtAmount)

	customer := f.customer(t, customerID)
	assert.Equal(t, int64(15000), customer.TotalDebt)
	assert.Equal(t, int64(5000), customer.CashbackBalance)
	assert.Equal(t, int64(5000), customer.TotalCashbackSpent)

	testutil.AssertCount(t, f.db, 1, `SELECT COUNT(*) FROM payments WHERE session_id = ? AND kind = 'cash' AND amount = 30000`, opened.ID)
	testutil.AssertCount(t, f.db, 1, `SELECT COUNT(*) FROM cashback_entries WHERE session_id = ? AND direction = 'spent'`, opened.ID)
	testutil.AssertCount(t, f.db, 0, `SELECT COUNT(*) FROM cashback_entries WHERE session_id = ? AND direction = 'earned'`, opened.ID)
	testutil.AssertCount(t, f.db, 1, `SELECT COUNT(*) FROM outbox_events WHERE event_type = ?`, events.EventSessionCompleted)

	stored, err := f.svc.Get(ctx, f.act, opened.ID)
	require.NoError(t, err)
	completed, ok := stored.State().(domain.CompletedSession)
	require.True(t, ok)
	assert.Equal(t, int64(15000), completed.DebtAmount)
	assert.Equal(t, f.act.OperatorID, completed.CompletedBy)
}

func TestCloseFullPaymentEarnsCashbackOnOrders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tableID := f.seedTable(t, 60000)
	customerID := f.seedCustomer(t, 0)

	opened := f.open(t, tableID, customerID)
	_, err := f.orderSvc.Add(ctx, orderdomain.AddRequest{
		Actor:     f.act,
		SessionID: opened.ID,
		ItemName:  "Iced tea",
		Quantity:  2,
		UnitPrice: 5000,
	})
	require.NoError(t, err)
	f.clock.Advance(50 * time.Minute)

	settlement, err := f.svc.Close(ctx, domain.CloseRequest{
		Actor:       f.act,
		SessionID:   opened.ID,
		PaidAmount:  60000,
		PaymentType: domain.PaymentCard,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(50000), settlement.GameAmount)
	assert.Equal(t, int64(10000), settlement.AdditionalAmount)
	assert.Equal(t, int64(60000), settlement.TotalAmount)
	assert.Equal(t, int64(0), settlement.DebtAmount)
	assert.Equal(t, int64(3000), settlement.CashbackEarned)

	customer := f.customer(t, customerID)
	assert.Equal(t, int64(3000), customer.CashbackBalance)
	assert.Equal(t, int64(3000), customer.TotalCashbackEarned)
	assert.Equal(t, int64(0), customer.TotalDebt)
}

func TestCloseOnDebtRecordsNoPayment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tableID := f.seedTable(t, 30000)
	customerID := f.seedCustomer(t, 0)

	opened := f.open(t, tableID, customerID)
	f.clock.Advance(90*time.Minute + time.Second)

	settlement, err := f.svc.Close(ctx, domain.CloseRequest{
		Actor:       f.act,
		SessionID:   opened.ID,
		PaymentType: domain.PaymentDebt,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(91), settlement.DurationMinutes)
	assert.Equal(t, int64(45500), settlement.TotalAmount)
	assert.Equal(t, int64(45500), settlement.DebtAmount)
	assert.Equal(t, int64(45500), f.customer(t, customerID).TotalDebt)
	testutil.AssertCount(t, f.db, 0, `SELECT COUNT(*) FROM payments`)
}

func TestCloseRejectsOverpayment(t *testing.T) {
	f := newFixture(t)
	tableID := f.seedTable(t, 60000)
	customerID := f.seedCustomer(t, 0)

	opened := f.open(t, tableID, customerID)
	f.clock.Advance(10 * time.Minute)

	_, err := f.svc.Close(context.Background(), domain.CloseRequest{
		Actor:       f.act,
		SessionID:   opened.ID,
		PaidAmount:  10001,
		PaymentType: domain.PaymentCash,
	})
	require.ErrorIs(t, err, domain.ErrPaymentExceedsTotal)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "exceeds total 10000")
}

func TestCloseRollsBackWhenCashbackSpendFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tableID := f.seedTable(t, 60000)
	customerID := f.seedCustomer(t, 50000)

	opened := f.open(t, tableID, customerID)
	f.clock.Advance(50 * time.Minute)

	_, err := f.svc.Close(ctx, domain.CloseRequest{
		Actor:          f.act,
		SessionID:      opened.ID,
		PaidAmount:     30000,
		PaymentType:    domain.PaymentCash,
		CashbackAmount: 15001,
	})
	require.ErrorIs(t, err, cashbackdomain.ErrUsageLimitExceeded)

	stored, err := f.svc.Get(ctx, f.act, opened.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, stored.Status)
	assert.Nil(t, stored.TotalAmount)

	customer := f.customer(t, customerID)
	assert.Equal(t, int64(50000), customer.CashbackBalance)
	assert.Equal(t, int64(0), customer.TotalDebt)
	testutil.AssertCount(t, f.db, 0, `SELECT COUNT(*) FROM payments`)
	testutil.AssertCount(t, f.db, 0, `SELECT COUNT(*) FROM cashback_entries`)
	testutil.AssertCount(t, f.db, 0, `SELECT COUNT(*) FROM outbox_events WHERE event_type = ?`, events.EventSessionCompleted)

	_, err = f.svc.Close(ctx, domain.CloseRequest{
		Actor:          f.act,
		SessionID:      opened.ID,
		PaidAmount:     35000,
		PaymentType:    domain.PaymentCash,
		CashbackAmount: 15000,
	})
	require.NoError(t, err)
	// 50000 - 15000 spent + 5% of the 35000 paid
	assert.Equal(t, int64(36750), f.customer(t, customerID).CashbackBalance)
}

func TestCompletedSessionIsImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tableID := f.seedTable(t, 60000)
	customerID := f.seedCustomer(t, 0)

	opened := f.open(t, tableID, customerID)
	f.clock.Advance(30 * time.Minute)
	first, err := f.svc.Close(ctx, domain.CloseRequest{
		Actor:       f.act,
		SessionID:   opened.ID,
		PaidAmount:  30000,
		PaymentType: domain.PaymentCash,
	})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	_, err = f.svc.Close(ctx, domain.CloseRequest{
		Actor:       f.act,
		SessionID:   opened.ID,
		PaidAmount:  1,
		PaymentType: domain.PaymentCash,
	})
	assert.ErrorIs(t, err, domain.ErrNotActive)

	_, err = f.orderSvc.Add(ctx, orderdomain.AddRequest{
		Actor:     f.act,
		SessionID: opened.ID,
		ItemName:  "Chips",
		Quantity:  1,
		UnitPrice: 1000,
	})
	assert.ErrorIs(t, err, orderdomain.ErrSessionNotActive)

	stored, err := f.svc.Get(ctx, f.act, opened.ID)
	require.NoError(t, err)
	completed := stored.State().(domain.CompletedSession)
	assert.Equal(t, first.TotalAmount, completed.TotalAmount)
	assert.Equal(t, first.DurationMinutes, completed.DurationMinutes)
	testutil.AssertCount(t, f.db, 1, `SELECT COUNT(*) FROM payments`)
}

func TestCloseIsScopedToAccount(t *testing.T) {
	f := newFixture(t)
	tableID := f.seedTable(t, 60000)
	customerID := f.seedCustomer(t, 0)
	opened := f.open(t, tableID, customerID)

	stranger := actor.New(f.node.Generate(), f.node.Generate())
	_, err := f.svc.Close(context.Background(), domain.CloseRequest{
		Actor:       stranger,
		SessionID:   opened.ID,
		PaymentType: domain.PaymentCash,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.svc.Close(context.Background(), domain.CloseRequest{
		SessionID:   opened.ID,
		PaymentType: domain.PaymentCash,
	})
	assert.ErrorIs(t, err, apperr.ErrUnidentifiedActor)
}

func TestCloseValidatesInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.CloseRequest
		want error
	}{
		{"negative paid", domain.CloseRequest{Actor: f.act, PaidAmount: -1, PaymentType: domain.PaymentCash}, domain.ErrInvalidPaidAmount},
		{"negative cashback", domain.CloseRequest{Actor: f.act, CashbackAmount: -1, PaymentType: domain.PaymentCash}, domain.ErrInvalidCashbackAmount},
		{"unknown payment type", domain.CloseRequest{Actor: f.act, PaymentType: "voucher"}, domain.ErrInvalidPaymentType},
		{"missing session", domain.CloseRequest{Actor: f.act, SessionID: 42, PaymentType: domain.PaymentCash}, domain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Close(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestOpenRejectsSecondActiveSessionOnTable(t *testing.T) {
	f := newFixture(t)
	tableID := f.seedTable(t, 60000)
	customerID := f.seedCustomer(t, 0)

	f.open(t, tableID, customerID)
	_, err := f.svc.Open(context.Background(), domain.OpenRequest{
		Actor:      f.act,
		TableID:    tableID,
		CustomerID: customerID,
	})
	require.ErrorIs(t, err, domain.ErrTableOccupied)
	assert.Equal(t, apperr.KindPrecondition, apperr.KindOf(err))
}

func TestConcurrentOpenAllowsOneActiveSession(t *testing.T) {
	f := newFixture(t)
	tableID := f.seedTable(t, 60000)
	customerID := f.seedCustomer(t, 0)

	const attempts = 8
	results := make([]error, attempts)
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			_, results[i] = f.svc.Open(context.Background(), domain.OpenRequest{
				Actor:      f.act,
				TableID:    tableID,
				CustomerID: customerID,
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrTableOccupied)
	}
	assert.Equal(t, 1, succeeded)
	testutil.AssertCount(t, f.db, 1, `SELECT COUNT(*) FROM sessions WHERE table_id = ? AND status = 'active'`, tableID)
}

// staleTableRepo reports no active session, as a reader racing another
// transaction would.
type staleTableRepo struct {
	tabledomain.Repository
}

func (staleTableRepo) ActiveSessionID(context.Context, *gorm.DB, snowflake.ID, snowflake.ID) (*snowflake.ID, error) {
	return nil, nil
}

func TestOpenMapsUniqueViolationToTableOccupied(t *testing.T) {
	f := newFixture(t)
	tableID := f.seedTable(t, 60000)
	customerID := f.seedCustomer(t, 0)
	f.open(t, tableID, customerID)

	params := f.params
	params.TableRepo = staleTableRepo{Repository: tablerepo.Provide()}
	stale := service.New(params)

	_, err := stale.Open(context.Background(), domain.OpenRequest{
		Actor:      f.act,
		TableID:    tableID,
		CustomerID: customerID,
	})
	require.ErrorIs(t, err, domain.ErrTableOccupied)
	assert.Equal(t, apperr.KindPrecondition, apperr.KindOf(err))
	testutil.AssertCount(t, f.db, 1, `SELECT COUNT(*) FROM sessions WHERE table_id = ? AND status = 'active'`, tableID)
}

func TestConcurrentCloseSpendsCashbackOnce(t *testing.T) {
	f := newFixture(t)
	customerID := f.seedCustomer(t, 50000)
	first := f.open(t, f.seedTable(t, 100000), customerID)
	second := f.open(t, f.seedTable(t, 100000), customerID)
	f.clock.Advance(time.Hour)

	sessions := []snowflake.ID{first.ID, second.ID}
	results := make([]error, len(sessions))
	var g errgroup.Group
	for i, id := range sessions {
		g.Go(func() error {
			_, results[i] = f.svc.Close(context.Background(), domain.CloseRequest{
				Actor:          f.act,
				SessionID:      id,
				PaymentType:    domain.PaymentDebt,
				CashbackAmount: 30000,
			})
			return nil
		})
	}
	require.NoError(t, g.Wait())

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t,
			errors.Is(err, cashbackdomain.ErrBalanceChanged) || errors.Is(err, cashbackdomain.ErrInsufficientBalance),
			"unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	customer := f.customer(t, customerID)
	assert.Equal(t, int64(20000), customer.CashbackBalance)
	assert.Equal(t, int64(30000), customer.TotalCashbackSpent)
	testutil.AssertCount(t, f.db, 1, `SELECT COUNT(*) FROM cashback_entries WHERE customer_id = ? AND direction = 'spent'`, customerID)
	testutil.AssertCount(t, f.db, 1, `SELECT COUNT(*) FROM sessions WHERE customer_id = ? AND status = 'active'`, customerID)
}

func TestConcurrentCloseEarnsCashbackForEachSession(t *testing.T) {
	f := newFixture(t)
	customerID := f.seedCustomer(t, 0)
	first := f.open(t, f.seedTable(t, 100000), customerID)
	second := f.open(t, f.seedTable(t, 100000), customerID)
	f.clock.Advance(time.Hour)

	var g errgroup.Group
	for _, id := range []snowflake.ID{first.ID, second.ID} {
		g.Go(func() error {
			_, err := f.svc.Close(context.Background(), domain.CloseRequest{
				Actor:       f.act,
				SessionID:   id,
				PaidAmount:  100000,
				PaymentType: domain.PaymentCard,
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	customer := f.customer(t, customerID)
	// 5% of each 100000 payment
	assert.Equal(t, int64(10000), customer.CashbackBalance)
	assert.Equal(t, int64(10000), customer.TotalCashbackEarned)
	testutil.AssertCount(t, f.db, 2, `SELECT COUNT(*) FROM cashback_entries WHERE customer_id = ? AND direction = 'earned'`, customerID)
}

func TestOpenPreconditions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tableID := f.seedTable(t, 60000)
	customerID := f.seedCustomer(t, 0)

	_, err := f.svc.Open(ctx, domain.OpenRequest{Actor: f.act, TableID: 999, CustomerID: customerID})
	assert.ErrorIs(t, err, domain.ErrTableNotFound)

	_, err = f.svc.Open(ctx, domain.OpenRequest{Actor: f.act, TableID: tableID, CustomerID: 999})
	assert.ErrorIs(t, err, domain.ErrCustomerNotFound)

	_, err = f.tableSvc.SetActive(ctx, f.act, tableID, false)
	require.NoError(t, err)
	_, err = f.svc.Open(ctx, domain.OpenRequest{Actor: f.act, TableID: tableID, CustomerID: customerID})
	assert.ErrorIs(t, err, domain.ErrTableInactive)

	testutil.AssertCount(t, f.db, 0, `SELECT COUNT(*) FROM sessions`)
}

func TestRateChangeDoesNotAffectRunningSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tableID := f.seedTable(t, 60000)
	customerID := f.seedCustomer(t, 0)

	opened := f.open(t, tableID, customerID)
	assert.Equal(t, int64(60000), opened.HourlyRateAtStart)

	_, err := f.tableSvc.UpdateRate(ctx, tabledomain.UpdateRateRequest{Actor: f.act, TableID: tableID, NewRate: 120000})
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	settlement, err := f.svc.Close(ctx, domain.CloseRequest{
		Actor:       f.act,
		SessionID:   opened.ID,
		PaidAmount:  60000,
		PaymentType: domain.PaymentCash,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(60000), settlement.GameAmount)

	next := f.open(t, tableID, customerID)
	assert.Equal(t, int64(120000), next.HourlyRateAtStart)
}

func TestListActiveProjectsRunningTotals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tableID := f.seedTable(t, 60000)
	customerID := f.seedCustomer(t, 0)

	opened := f.open(t, tableID, customerID)
	_, err := f.orderSvc.Add(ctx, orderdomain.AddRequest{
		Actor: f.act, SessionID: opened.ID, ItemName: "Coffee", Quantity: 1, UnitPrice: 4000,
	})
	require.NoError(t, err)

	f.clock.Advance(20 * time.Minute)
	active, err := f.svc.ListActive(ctx, f.act)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Regular", active[0].CustomerName)
	assert.Equal(t, int64(20000), active[0].Projection.GameAmount)
	assert.Equal(t, int64(24000), active[0].Projection.TotalAmount)

	f.clock.Advance(10 * time.Minute)
	active, err = f.svc.ListActive(ctx, f.act)
	require.NoError(t, err)
	assert.Equal(t, int64(34000), active[0].Projection.TotalAmount)
}

func TestHistoryPagesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tableID := f.seedTable(t, 60000)
	customerID := f.seedCustomer(t, 0)

	var ids []snowflake.ID
	for i := 0; i < 3; i++ {
		opened := f.open(t, tableID, customerID)
		f.clock.Advance(10 * time.Minute)
		_, err := f.svc.Close(ctx, domain.CloseRequest{
			Actor: f.act, SessionID: opened.ID, PaidAmount: 10000, PaymentType: domain.PaymentCash,
		})
		require.NoError(t, err)
		ids = append(ids, opened.ID)
	}

	page, err := f.svc.History(ctx, domain.HistoryRequest{Actor: f.act, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, ids[2], page.Items[0].ID)
	assert.Equal(t, ids[1], page.Items[1].ID)

	page, err = f.svc.History(ctx, domain.HistoryRequest{Actor: f.act, Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.False(t, page.HasMore)
	assert.Equal(t, ids[0], page.Items[0].ID)
}

func TestGetMasksOtherAccounts(t *testing.T) {
	f := newFixture(t)
	tableID := f.seedTable(t, 60000)
	customerID := f.seedCustomer(t, 0)
	opened := f.open(t, tableID, customerID)

	_, err := f.svc.Get(context.Background(), actor.New(f.node.Generate(), 0), opened.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
