package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aminexfrad/F-S-SHOP/internal/repository"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// StatusSent is what notifyOrder answers once the confirmation went out. Anything else
// ("Order not found", "Error: ...") means it did not.
const StatusSent = "Email sent successfully"

var (
	ErrNotDelivered     = errors.New("order notification not delivered")
	ErrUnknownEventType = errors.New("unknown outbox event type")
)

// Notifier delivers one outbox event to its sink.
type Notifier interface {
	Notify(ctx context.Context, event *repository.OutboxEvent) error
}

// OrderNotifier is the backend mutation that sends an order confirmation.
type OrderNotifier interface {
	NotifyOrder(ctx context.Context, orderID int64) (string, error)
}

// GraphQLNotifier delivers order.placed events through the notifyOrder mutation.
type GraphQLNotifier struct {
	api    OrderNotifier
	logger *zap.Logger
}

func NewGraphQLNotifier(api OrderNotifier, logger *zap.Logger) *GraphQLNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GraphQLNotifier{api: api, logger: logger}
}

func (n *GraphQLNotifier) Notify(ctx context.Context, event *repository.OutboxEvent) error {
	if event.EventType != repository.EventOrderPlaced {
		return fmt.Errorf("%w: %s", ErrUnknownEventType, event.EventType)
	}
	e, err := DecodeOrderPlaced(event.Payload)
	if err != nil {
		return err
	}
	status, err := n.api.NotifyOrder(ctx, e.OrderID)
	if err != nil {
		return err
	}
	if status != StatusSent {
		return fmt.Errorf("%w: %s", ErrNotDelivered, status)
	}
	n.logger.Debug("order notification sent", zap.Int64("order_id", e.OrderID))
	return nil
}

// MessageWriter is the part of *kafka.Writer the notifier uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes outbox events to a topic for a downstream mailer.
type KafkaNotifier struct {
	writer MessageWriter
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
	return &KafkaNotifier{writer: w}
}

func NewKafkaNotifierWithWriter(w MessageWriter) *KafkaNotifier {
	return &KafkaNotifier{writer: w}
}

func (n *KafkaNotifier) Notify(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id, for per-order ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}
	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.EventID, err)
	}
	return nil
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
