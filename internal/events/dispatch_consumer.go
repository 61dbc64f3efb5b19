package events

import (
	"context"
	"encoding/json"

	"github.com/deliverymaster/service-quote/internal/kafka"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DeliveryCompleter finalizes a pending delivery. It is the one path that
// moves a record from pending to completed; no user-facing action does.
type DeliveryCompleter interface {
	CompleteDelivery(ctx context.Context, id uuid.UUID) error
}

// DispatchEventConsumer listens to dispatch events and completes deliveries
// when the courier side reports them done.
type DispatchEventConsumer struct {
	consumer *kafka.Consumer
	service  DeliveryCompleter
	logger   *zap.Logger
}

// NewDispatchEventConsumer creates a DispatchEventConsumer.
func NewDispatchEventConsumer(
	brokers []string,
	groupID string,
	service DeliveryCompleter,
	logger *zap.Logger,
) *DispatchEventConsumer {
	consumer := kafka.NewConsumer(brokers, groupID, TopicDispatchEvents, logger)
	return &DispatchEventConsumer{
		consumer: consumer,
		service:  service,
		logger:   logger,
	}
}

// Start begins consuming dispatch events. This blocks until the context is cancelled.
func (c *DispatchEventConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *DispatchEventConsumer) Close() error {
	return c.consumer.Close()
}

func (c *DispatchEventConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var cloudEvent kafka.CloudEvent
	if err := json.Unmarshal(msg.Value, &cloudEvent); err != nil {
		c.logger.Error("failed to parse cloud event from dispatch topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case DispatchDeliveryCompleted:
		return c.handleDispatchCompleted(ctx, cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled dispatch event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *DispatchEventConsumer) handleDispatchCompleted(ctx context.Context, cloudEvent kafka.CloudEvent) error {
	var evt DispatchCompletedEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse DispatchCompletedEvent data",
			zap.Error(err),
		)
		return nil // Don't retry malformed data
	}

	c.logger.Info("processing dispatch completion",
		zap.String("delivery_id", evt.DeliveryID.String()),
	)

	if err := c.service.CompleteDelivery(ctx, evt.DeliveryID); err != nil {
		c.logger.Error("failed to complete delivery after dispatch event",
			zap.String("delivery_id", evt.DeliveryID.String()),
			zap.Error(err),
		)
		return err
	}

	c.logger.Info("delivery completed",
		zap.String("delivery_id", evt.DeliveryID.String()),
	)
	return nil
}
