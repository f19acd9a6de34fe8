package events

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/guna684/book-shop-project-sub001/internal/db"
)

// LogNotifier writes one log line per event. It is the default sink when Kafka is not configured.
type LogNotifier struct {
	Logger zerolog.Logger
}

// Notify implements Notifier.
func (l LogNotifier) Notify(_ context.Context, event db.DomainEvent) error {
	l.Logger.Info().
		Str("event_id", event.ID.String()).
		Str("topic", event.Topic).
		Str("aggregate_id", event.AggregateID.String()).
		RawJSON("payload", event.Payload).
		Msg("domain_event")
	return nil
}
