package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/clock"
	"github.com/smallbiznis/cueledger/internal/events"
	"github.com/smallbiznis/cueledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type capturePublisher struct {
	batches [][]events.OutboxEvent
	err     error
}

func (p *capturePublisher) Publish(ctx context.Context, batch []events.OutboxEvent) error {
	if p.err != nil {
		return p.err
	}
	p.batches = append(p.batches, batch)
	return nil
}

func newRelay(t *testing.T, pub events.Publisher) (*gorm.DB, *events.Outbox, *events.Relay) {
	t.Helper()

	db := testutil.OpenDB(t)
	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	outbox := events.NewOutbox(testutil.Node(t), clk)
	relay := events.NewRelay(events.RelayParams{
		DB:        db,
		Log:       zap.NewNop(),
		Clock:     clk,
		Outbox:    outbox,
		Publisher: pub,
	})
	return db, outbox, relay
}

func TestPublishTxIgnoresDuplicateDedupeKey(t *testing.T) {
	pub := &capturePublisher{}
	db, outbox, _ := newRelay(t, pub)
	ctx := context.Background()

	event := events.Event{
		OrgID:       7,
		Type:        events.EventSessionCompleted,
		AggregateID: 42,
		Payload:     map[string]any{"total_amount": 50000},
		DedupeKey:   "session.completed:42",
	}
	require.NoError(t, outbox.PublishTx(ctx, db, event))
	require.NoError(t, outbox.PublishTx(ctx, db, event))

	testutil.AssertCount(t, db, 1, `SELECT COUNT(*) FROM outbox_events`)
}

func TestPublishTxRejectsIncompleteEvent(t *testing.T) {
	db, outbox, _ := newRelay(t, &capturePublisher{})

	err := outbox.PublishTx(context.Background(), db, events.Event{OrgID: 1, Type: events.EventSessionOpened})
	assert.ErrorIs(t, err, events.ErrInvalidEvent)
}

func TestPublishTxRollsBackWithTransaction(t *testing.T) {
	db, outbox, _ := newRelay(t, &capturePublisher{})
	ctx := context.Background()

	boom := errors.New("boom")
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := outbox.PublishTx(ctx, tx, events.Event{
			OrgID: 1, Type: events.EventSessionOpened, AggregateID: 5, DedupeKey: "session.opened:5",
		}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	testutil.AssertCount(t, db, 0, `SELECT COUNT(*) FROM outbox_events`)
}

func TestDispatchMarksPublished(t *testing.T) {
	pub := &capturePublisher{}
	db, outbox, relay := newRelay(t, pub)
	ctx := context.Background()

	for i, key := range []string{"a", "b", "c"} {
		require.NoError(t, outbox.PublishTx(ctx, db, events.Event{
			OrgID:       1,
			Type:        events.EventSessionCompleted,
			AggregateID: snowflake.ID(i + 1),
			Payload:     map[string]any{"key": key},
			DedupeKey:   "session.completed:" + key,
		}))
	}

	n, err := relay.Dispatch(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = relay.Dispatch(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = relay.Dispatch(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	require.Len(t, pub.batches, 2)
	var envelope events.Envelope
	first := pub.batches[0][0]
	require.NoError(t, json.Unmarshal(mustJSON(t, first.Envelope()), &envelope))
	assert.Equal(t, events.EventSessionCompleted, envelope.Type)
	assert.JSONEq(t, `{"key":"a"}`, string(envelope.Payload))

	testutil.AssertCount(t, db, 3, `SELECT COUNT(*) FROM outbox_events WHERE published_at IS NOT NULL`)
}

func TestDispatchRecordsFailure(t *testing.T) {
	pub := &capturePublisher{err: errors.New("broker unavailable")}
	db, outbox, relay := newRelay(t, pub)
	ctx := context.Background()

	require.NoError(t, outbox.PublishTx(ctx, db, events.Event{
		OrgID: 1, Type: events.EventDebtPaid, AggregateID: 9, DedupeKey: "customer.debt_paid:9",
	}))

	_, err := relay.Dispatch(ctx, 10)
	require.Error(t, err)

	var row struct {
		Attempts  int
		LastError *string
	}
	require.NoError(t, db.Raw(`SELECT attempts, last_error FROM outbox_events`).Scan(&row).Error)
	assert.Equal(t, 1, row.Attempts)
	require.NotNil(t, row.LastError)
	assert.Equal(t, "broker unavailable", *row.LastError)
	testutil.AssertCount(t, db, 0, `SELECT COUNT(*) FROM outbox_events WHERE published_at IS NOT NULL`)

	pub.err = nil
	n, err := relay.Dispatch(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}
