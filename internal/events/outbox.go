package events

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/cueledger/internal/clock"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrInvalidEvent = errors.New("invalid_outbox_event")

type Outbox struct {
	genID *snowflake.Node
	clock clock.Clock
}

func NewOutbox(genID *snowflake.Node, clk clock.Clock) *Outbox {
	return &Outbox{genID: genID, clock: clk}
}

// PublishTx stores the event in tx. A repeated dedupe key is ignored so
// retried producers never emit twice.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, event Event) error {
	if event.OrgID == 0 || strings.TrimSpace(event.Type) == "" || strings.TrimSpace(event.DedupeKey) == "" {
		return ErrInvalidEvent
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	return tx.WithContext(ctx).Exec(
		`INSERT INTO outbox_events (id, org_id, event_type, aggregate_id, dedupe_key, payload, attempts, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, 0, ?)
		 ON CONFLICT (dedupe_key) DO NOTHING`,
		o.genID.Generate(),
		event.OrgID,
		event.Type,
		event.AggregateID,
		event.DedupeKey,
		datatypes.JSON(payload),
		o.clock.Now(),
	).Error
}

// Pending returns unpublished events oldest first.
func (o *Outbox) Pending(ctx context.Context, db *gorm.DB, limit int) ([]OutboxEvent, error) {
	var items []OutboxEvent
	err := db.WithContext(ctx).Raw(
		`SELECT id, org_id, event_type, aggregate_id, dedupe_key, payload, attempts, last_error, created_at, published_at
		 FROM outbox_events
		 WHERE published_at IS NULL
		 ORDER BY created_at ASC, id ASC
		 LIMIT ?`,
		limit,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (o *Outbox) MarkPublished(ctx context.Context, db *gorm.DB, ids []snowflake.ID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	return db.WithContext(ctx).Exec(
		`UPDATE outbox_events SET published_at = ?, attempts = attempts + 1, last_error = NULL
		 WHERE id IN ? AND published_at IS NULL`,
		at,
		ids,
	).Error
}

func (o *Outbox) MarkFailed(ctx context.Context, db *gorm.DB, ids []snowflake.ID, cause error) error {
	if len(ids) == 0 {
		return nil
	}
	msg := cause.Error()
	return db.WithContext(ctx).Exec(
		`UPDATE outbox_events SET attempts = attempts + 1, last_error = ?
		 WHERE id IN ? AND published_at IS NULL`,
		msg,
		ids,
	).Error
}
