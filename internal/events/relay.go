package events

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/smallbiznis/cueledger/internal/clock"
	"github.com/smallbiznis/cueledger/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const DefaultRelayBatch = 100

type RelayParams struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	Clock     clock.Clock
	Outbox    *Outbox
	Publisher Publisher
	Metrics   *metrics.Metrics `optional:"true"`
}

// Relay moves pending outbox rows to the publisher. Delivery is at least
// once; consumers dedupe on the envelope id.
type Relay struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	outbox    *Outbox
	publisher Publisher
	metrics   *metrics.Metrics
}

func NewRelay(p RelayParams) *Relay {
	return &Relay{
		db:        p.DB,
		log:       p.Log.Named("events.relay"),
		clock:     p.Clock,
		outbox:    p.Outbox,
		publisher: p.Publisher,
		metrics:   p.Metrics,
	}
}

// Dispatch publishes one batch and returns how many events were delivered.
func (r *Relay) Dispatch(ctx context.Context, batch int) (int, error) {
	if batch <= 0 {
		batch = DefaultRelayBatch
	}

	pending, err := r.outbox.Pending(ctx, r.db, batch)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		return 0, nil
	}

	ids := lo.Map(pending, func(e OutboxEvent, _ int) snowflake.ID { return e.ID })

	if err := r.publisher.Publish(ctx, pending); err != nil {
		r.log.Warn("outbox publish failed", zap.Int("events", len(pending)), zap.Error(err))
		if markErr := r.outbox.MarkFailed(ctx, r.db, ids, err); markErr != nil {
			r.log.Error("failed to record outbox failure", zap.Error(markErr))
		}
		return 0, err
	}

	if err := r.outbox.MarkPublished(ctx, r.db, ids, r.clock.Now()); err != nil {
		return 0, err
	}

	for eventType, group := range lo.GroupBy(pending, func(e OutboxEvent) string { return e.EventType }) {
		r.metrics.RecordOutboxPublished(ctx, eventType, len(group))
	}
	r.log.Debug("outbox batch relayed", zap.Int("events", len(pending)))
	return len(pending), nil
}
