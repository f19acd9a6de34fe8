package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/guna684/book-shop-project-sub001/internal/db"
	"github.com/guna684/book-shop-project-sub001/internal/resilience"
)

// MessageWriter is the subset of *kafka.Writer the notifier needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// NewKafkaWriter builds a writer publishing to topic on brokers.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
}

// Envelope is the Kafka message body for a domain event.
type Envelope struct {
	ID          string          `json:"id"`
	Topic       string          `json:"topic"`
	AggregateID string          `json:"aggregateId"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

// KafkaNotifier publishes events keyed by aggregate id so events for one order stay ordered.
// Topics limits publishing to the listed event topics; empty means all.
// Guard, when set, retries transient broker failures and sheds load while Kafka is down.
type KafkaNotifier struct {
	Writer MessageWriter
	Topics []string
	Guard  *resilience.Guard
}

// Notify implements Notifier.
func (k KafkaNotifier) Notify(ctx context.Context, event db.DomainEvent) error {
	if k.Writer == nil {
		return nil
	}
	if len(k.Topics) > 0 && !slices.Contains(k.Topics, event.Topic) {
		return nil
	}
	payload := json.RawMessage(event.Payload)
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}
	body, err := json.Marshal(Envelope{
		ID:          event.ID.String(),
		Topic:       event.Topic,
		AggregateID: event.AggregateID.String(),
		Payload:     payload,
		OccurredAt:  event.OccurredAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("kafka: encode envelope: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(event.AggregateID.String()),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event-topic", Value: []byte(event.Topic)},
		},
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{msg: &msg})
	write := func(ctx context.Context) error {
		return k.Writer.WriteMessages(ctx, msg)
	}
	if k.Guard != nil {
		err = k.Guard.Do(ctx, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		return fmt.Errorf("kafka: write %s: %w", event.Topic, err)
	}
	return nil
}

// KafkaRetryable reports whether a publish error is worth another attempt.
func KafkaRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	var kerr kafka.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary()
	}
	return true
}

// headerCarrier adapts kafka headers to the otel propagation carrier.
type headerCarrier struct {
	msg *kafka.Message
}

var _ propagation.TextMapCarrier = headerCarrier{}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}
