package service_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/actor"
	"github.com/smallbiznis/cueledger/internal/apperr"
	"github.com/smallbiznis/cueledger/internal/clock"
	"github.com/smallbiznis/cueledger/internal/order/domain"
	"github.com/smallbiznis/cueledger/internal/order/repository"
	"github.com/smallbiznis/cueledger/internal/order/service"
	"github.com/smallbiznis/cueledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func seedSession(t *testing.T, db *gorm.DB, node *snowflake.Node, orgID snowflake.ID, status string, at time.Time) snowflake.ID {
	t.Helper()

	id := node.Generate()
	err := db.Exec(
		`INSERT INTO sessions (id, org_id, table_id, customer_id, start_time, hourly_rate_at_start, status, opened_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, orgID, node.Generate(), node.Generate(), at, 40000, status, orgID, at, at,
	).Error
	if err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return id
}

func TestAggregateReflectsAddAndRemove(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	clk := clock.NewFakeClock(time.Date(2026, 2, 2, 20, 0, 0, 0, time.UTC))
	svc := service.New(service.Params{DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: repository.Provide()})
	act := actor.New(node.Generate(), node.Generate())
	sessionID := seedSession(t, db, node, act.AccountID, "active", clk.Now())

	tea, err := svc.Add(ctx, domain.AddRequest{Actor: act, SessionID: sessionID, ItemName: "Tea", Quantity: 2, UnitPrice: 5000})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), tea.TotalPrice)

	_, err = svc.Add(ctx, domain.AddRequest{Actor: act, SessionID: sessionID, ItemName: "Water", Quantity: 1, UnitPrice: 3000})
	require.NoError(t, err)

	total, err := svc.Aggregate(ctx, db, act.AccountID, sessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(13000), total)

	require.NoError(t, svc.Remove(ctx, domain.RemoveRequest{Actor: act, OrderID: tea.ID}))

	total, err = svc.Aggregate(ctx, db, act.AccountID, sessionID)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), total)

	items, err := svc.List(ctx, act, sessionID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Water", items[0].ItemName)
}

func TestOrdersRejectedOnCompletedSession(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	clk := clock.NewFakeClock(time.Date(2026, 2, 2, 20, 0, 0, 0, time.UTC))
	svc := service.New(service.Params{DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: repository.Provide()})
	act := actor.New(node.Generate(), 0)
	sessionID := seedSession(t, db, node, act.AccountID, "active", clk.Now())

	order, err := svc.Add(ctx, domain.AddRequest{Actor: act, SessionID: sessionID, ItemName: "Cola", Quantity: 1, UnitPrice: 8000})
	require.NoError(t, err)

	require.NoError(t, db.Exec(`UPDATE sessions SET status = 'completed' WHERE id = ?`, sessionID).Error)

	_, err = svc.Add(ctx, domain.AddRequest{Actor: act, SessionID: sessionID, ItemName: "Cola", Quantity: 1, UnitPrice: 8000})
	assert.ErrorIs(t, err, domain.ErrSessionNotActive)
	assert.Equal(t, apperr.KindPrecondition, apperr.KindOf(err))

	err = svc.Remove(ctx, domain.RemoveRequest{Actor: act, OrderID: order.ID})
	assert.ErrorIs(t, err, domain.ErrSessionNotActive)

	testutil.AssertCount(t, db, 1, "SELECT COUNT(1) FROM additional_orders WHERE session_id = ?", sessionID)
}

func TestAddValidation(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	clk := clock.NewFakeClock(time.Date(2026, 2, 2, 20, 0, 0, 0, time.UTC))
	svc := service.New(service.Params{DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: repository.Provide()})
	act := actor.New(node.Generate(), 0)
	sessionID := seedSession(t, db, node, act.AccountID, "active", clk.Now())

	cases := []struct {
		name string
		req  domain.AddRequest
		want error
	}{
		{"empty name", domain.AddRequest{Actor: act, SessionID: sessionID, ItemName: " ", Quantity: 1}, domain.ErrInvalidItemName},
		{"zero quantity", domain.AddRequest{Actor: act, SessionID: sessionID, ItemName: "Tea", Quantity: 0}, domain.ErrInvalidQuantity},
		{"negative price", domain.AddRequest{Actor: act, SessionID: sessionID, ItemName: "Tea", Quantity: 1, UnitPrice: -1}, domain.ErrInvalidUnitPrice},
		{"unknown session", domain.AddRequest{Actor: act, SessionID: node.Generate(), ItemName: "Tea", Quantity: 1}, domain.ErrSessionNotFound},
		{"foreign session", domain.AddRequest{Actor: actor.New(node.Generate(), 0), SessionID: sessionID, ItemName: "Tea", Quantity: 1}, domain.ErrSessionNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Add(ctx, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	err := svc.Remove(ctx, domain.RemoveRequest{Actor: act, OrderID: node.Generate()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	testutil.AssertCount(t, db, 0, "SELECT COUNT(1) FROM additional_orders")
}

func TestAddRejectsOverflowingTotals(t *testing.T) {
	ctx := context.Background()
	db := testutil.OpenDB(t)
	node := testutil.Node(t)
	clk := clock.NewFakeClock(time.Date(2026, 2, 2, 20, 0, 0, 0, time.UTC))
	svc := service.New(service.Params{DB: db, Log: zap.NewNop(), GenID: node, Clock: clk, Repo: repository.Provide()})
	act := actor.New(node.Generate(), 0)
	sessionID := seedSession(t, db, node, act.AccountID, "active", clk.Now())

	_, err := svc.Add(ctx, domain.AddRequest{Actor: act, SessionID: sessionID, ItemName: "Cue", Quantity: 2, UnitPrice: math.MaxInt64/2 + 1})
	assert.ErrorIs(t, err, domain.ErrOrderTooLarge)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	testutil.AssertCount(t, db, 0, "SELECT COUNT(1) FROM additional_orders")

	_, err = svc.Add(ctx, domain.AddRequest{Actor: act, SessionID: sessionID, ItemName: "Cue", Quantity: 1, UnitPrice: domain.MaxSessionTotal - 10})
	require.NoError(t, err)
	_, err = svc.Add(ctx, domain.AddRequest{Actor: act, SessionID: sessionID, ItemName: "Chalk", Quantity: 1, UnitPrice: 11})
	assert.ErrorIs(t, err, domain.ErrOrderTooLarge)

	total, err := svc.Aggregate(ctx, db, act.AccountID, sessionID)
	require.NoError(t, err)
	assert.Equal(t, domain.MaxSessionTotal-10, total)
}
