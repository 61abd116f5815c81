// Package events implements a transactional outbox: domain events are written
// in the same transaction as the state change and relayed to the broker
// afterwards.
package events

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

const (
	EventSessionOpened    = "session.opened"
	EventSessionCompleted = "session.completed"
	EventDebtPaid         = "customer.debt_paid"
)

// Event is what producers hand to the outbox.
type Event struct {
	OrgID       snowflake.ID
	Type        string
	AggregateID snowflake.ID
	Payload     map[string]any
	DedupeKey   string
}

// OutboxEvent is the persisted row.
type OutboxEvent struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID   `gorm:"not null" json:"organization_id"`
	EventType   string         `gorm:"type:text;not null" json:"event_type"`
	AggregateID snowflake.ID   `gorm:"not null" json:"aggregate_id"`
	DedupeKey   string         `gorm:"type:text;not null;uniqueIndex" json:"dedupe_key"`
	Payload     datatypes.JSON `gorm:"type:jsonb;not null" json:"payload"`
	Attempts    int            `gorm:"not null;default:0" json:"attempts"`
	LastError   *string        `json:"last_error,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
	PublishedAt *time.Time     `json:"published_at,omitempty"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

// Envelope is the wire shape relayed to the broker.
type Envelope struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	OrgID       string         `json:"organization_id"`
	AggregateID string         `json:"aggregate_id"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Payload     datatypes.JSON `json:"payload"`
}

func (e OutboxEvent) Envelope() Envelope {
	return Envelope{
		ID:          e.ID.String(),
		Type:        e.EventType,
		OrgID:       e.OrgID.String(),
		AggregateID: e.AggregateID.String(),
		OccurredAt:  e.CreatedAt,
		Payload:     e.Payload,
	}
}
