package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/segmentio/kafka-go"
	"github.com/smallbiznis/cueledger/internal/config"
	obscontext "github.com/smallbiznis/cueledger/internal/observability/context"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Publisher delivers relayed events to the outside world.
type Publisher interface {
	Publish(ctx context.Context, events []OutboxEvent) error
}

// NewPublisher returns a Kafka publisher when brokers are configured and a
// logging publisher otherwise.
func NewPublisher(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) Publisher {
	if len(cfg.KafkaBrokers) == 0 {
		log.Info("kafka brokers not configured, outbox events will be logged")
		return NewLogPublisher(log)
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return writer.Close()
			},
		})
	}
	return NewKafkaPublisher(writer)
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(writer *kafka.Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

// Publish keys messages by aggregate so one session's events stay ordered
// within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, events []OutboxEvent) error {
	msgs, err := toMessages(events, correlationID(ctx))
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msgs...)
}

// correlationID ties one relayed batch together in downstream logs. Relays
// started from a request reuse its id; scheduler runs get a fresh ULID.
func correlationID(ctx context.Context) string {
	if id := obscontext.RequestIDFromContext(ctx); id != "" {
		return id
	}
	return ulid.Make().String()
}

func toMessages(events []OutboxEvent, correlation string) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		value, err := json.Marshal(event.Envelope())
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(event.AggregateID.String()),
			Value: value,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(event.EventType)},
				{Key: "dedupe-key", Value: []byte(event.DedupeKey)},
				{Key: "correlation-id", Value: []byte(correlation)},
			},
		})
	}
	return msgs, nil
}

type LogPublisher struct {
	log *zap.Logger
}

func NewLogPublisher(log *zap.Logger) *LogPublisher {
	return &LogPublisher{log: log.Named("events.publisher")}
}

func (p *LogPublisher) Publish(ctx context.Context, events []OutboxEvent) error {
	for _, event := range events {
		p.log.Info("outbox event",
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", event.EventType),
			zap.String("aggregate_id", event.AggregateID.String()),
			zap.ByteString("payload", event.Payload),
		)
	}
	return nil
}
