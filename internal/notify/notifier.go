package notify

import (
	"context"
	"time"

	"service-booking/pkg/mq"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event is a notification published for downstream consumers (email,
// push, analytics). Delivery is best effort.
type Event struct {
	Type      string    `json:"type"`
	BookingID uuid.UUID `json:"booking_id"`
	UserID    uuid.UUID `json:"user_id"`
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type Notifier interface {
	Notify(ctx context.Context, event Event)
}

type kafkaNotifier struct {
	producer *mq.Producer
	topic    string
	log      *zap.Logger
}

func NewKafkaNotifier(producer *mq.Producer, topic string, log *zap.Logger) Notifier {
	return &kafkaNotifier{
		producer: producer,
		topic:    topic,
		log:      log.With(zap.String("component", "notifier")),
	}
}

// Notify is fire-and-forget: a broker outage must never fail the business
// operation that triggered the notification.
func (n *kafkaNotifier) Notify(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := n.producer.Publish(ctx, n.topic, event.BookingID.String(), event); err != nil {
		n.log.Warn("Failed to publish notification",
			zap.Error(err),
			zap.String("type", event.Type),
			zap.String("booking_id", event.BookingID.String()),
		)
	}
}

// NoopNotifier is used when Kafka is not configured.
type NoopNotifier struct{}

func (NoopNotifier) Notify(ctx context.Context, event Event) {}
