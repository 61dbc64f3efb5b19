//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/deliverymaster/service-quote/internal/application"
	deliveryDomain "github.com/deliverymaster/service-quote/internal/domain/delivery"
	deliveryEvents "github.com/deliverymaster/service-quote/internal/events"
	"github.com/deliverymaster/service-quote/internal/kafka"
	"github.com/deliverymaster/service-quote/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"go.uber.org/zap"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	Redis        *redis.Client
	KafkaBrokers []string
	Cleanup      func()
}

// quoteStack holds wired-up quote service components.
type quoteStack struct {
	Service         *application.QuoteService
	Consumer        *deliveryEvents.DispatchEventConsumer
	CleanupProducer func()
}

// setupInfra starts a Kafka testcontainer and an in-process Redis and
// returns connected clients.
func setupInfra(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	// Start Kafka container using confluent-local (supports KRaft natively).
	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	// Pre-create required topics.
	createTopics(t, kafkaBrokers, deliveryEvents.TopicDeliveryEvents, deliveryEvents.TopicDispatchEvents)

	cleanup := func() {
		_ = redisClient.Close()
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
	}

	return &testInfra{
		Redis:        redisClient,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupQuoteStack wires up the full quote service stack.
func setupQuoteStack(t *testing.T, redisClient *redis.Client, brokers []string) *quoteStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	historyRepo := repository.NewRedisHistoryRepository(redisClient)
	producer := kafka.NewProducer(brokers, logger)
	quoteSvc := application.NewQuoteService(historyRepo, nil, producer, 6.00, "5585987789135", logger)
	require.NoError(t, quoteSvc.Init(context.Background()))

	groupID := fmt.Sprintf("test-quote-%s", uuid.New().String()[:8])
	consumer := deliveryEvents.NewDispatchEventConsumer(brokers, groupID, quoteSvc, logger)

	return &quoteStack{
		Service:         quoteSvc,
		Consumer:        consumer,
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// confirmDelivery creates a pending delivery through the service.
func confirmDelivery(t *testing.T, svc *application.QuoteService, applicantName string) *application.ConfirmationDTO {
	t.Helper()
	result := deliveryDomain.CalculationResult{
		DistanceKm:      12.5,
		DurationMinutes: 35,
		EstimatedPrice:  19.25,
		RouteMapURL:     "https://maps.google.com/?dir=a,b",
	}
	addresses := []deliveryDomain.Address{
		{ID: 1, Value: "Av. Beira Mar 1000, Fortaleza"},
		{ID: 2, Value: "Rua das Flores 200, Fortaleza"},
	}
	confirmation, err := svc.Confirm(context.Background(), applicantName, result, addresses, deliveryDomain.QuoteOptions{})
	require.NoError(t, err, "failed to confirm delivery")
	return confirmation
}

// publishTestEvent publishes a CloudEvent to Kafka.
func publishTestEvent(t *testing.T, brokers []string, topic, source, eventType, key string, data interface{}) {
	t.Helper()
	logger, _ := zap.NewDevelopment()
	producer := kafka.NewProducer(brokers, logger)
	defer func() { _ = producer.Close() }()

	ce, err := kafka.NewCloudEvent(source, eventType, data)
	require.NoError(t, err, "failed to create cloud event")

	err = producer.PublishEvent(context.Background(), topic, key, ce)
	require.NoError(t, err, "failed to publish event")
}

// waitForDeliveryStatus polls the service until the delivery status matches.
func waitForDeliveryStatus(t *testing.T, svc *application.QuoteService, deliveryID uuid.UUID, expectedStatus string, timeout time.Duration) application.DeliveryDTO {
	t.Helper()
	var result application.DeliveryDTO
	require.Eventually(t, func() bool {
		dto, err := svc.GetDelivery(deliveryID)
		if err != nil {
			return false
		}
		if dto.Status == expectedStatus {
			result = *dto
			return true
		}
		return false
	}, timeout, 200*time.Millisecond, "delivery did not transition to %s", expectedStatus)
	return result
}

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
