package email

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
)

// Consumer wraps a Kafka consumer with email processing logic
type Consumer struct {
	consumer         *kafka.Consumer
	sender           Sender
	idempotencyStore *IdempotencyStore
	dlqProducer      *kafka.Producer
	config           *ConsumerConfig
	logger           *slog.Logger
}

// ConsumerConfig holds consumer configuration
type ConsumerConfig struct {
	Brokers       string
	Topic         string
	DLQTopic      string
	ConsumerGroup string
	MaxRetries    int
}

// NewConsumer creates a new Kafka consumer with manual offset commits and a
// dead-letter producer for poison messages.
func NewConsumer(
	config *ConsumerConfig,
	sender Sender,
	idempotencyStore *IdempotencyStore,
	logger *slog.Logger,
) (*Consumer, error) {
	consumerConfig := &kafka.ConfigMap{
		"bootstrap.servers":  config.Brokers,
		"group.id":           config.ConsumerGroup,
		"auto.offset.reset":  "earliest",
		"enable.auto.commit": false,
	}

	c, err := kafka.NewConsumer(consumerConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	dlqProducer, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": config.Brokers,
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to create DLQ producer: %w", err)
	}

	consumer := &Consumer{
		consumer:         c,
		sender:           sender,
		idempotencyStore: idempotencyStore,
		dlqProducer:      dlqProducer,
		config:           config,
		logger:           logger,
	}

	logger.Info("Kafka consumer initialized",
		"brokers", config.Brokers,
		"topic", config.Topic,
		"group", config.ConsumerGroup)

	return consumer, nil
}

// Start consumes messages until the context is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.consumer.Subscribe(c.config.Topic, nil); err != nil {
		return fmt.Errorf("failed to subscribe to topic: %w", err)
	}

	c.logger.Info("consuming email events", "topic", c.config.Topic)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("consumer shutting down")
			return nil
		default:
			msg, err := c.consumer.ReadMessage(1 * time.Second)
			if err != nil {
				if kerr, ok := err.(kafka.Error); ok && kerr.Code() == kafka.ErrTimedOut {
					continue
				}
				c.logger.Error("error reading message", "error", err)
				continue
			}
			c.processMessage(ctx, msg)
		}
	}
}

// processMessage decodes, deduplicates and delivers one email event,
// committing the offset only after the outcome is settled.
func (c *Consumer) processMessage(ctx context.Context, msg *kafka.Message) {
	var event EmailEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("failed to decode email event, sending to DLQ", "error", err)
		c.sendToDLQ(msg, fmt.Sprintf("decode error: %v", err))
		c.commit(msg)
		return
	}

	if event.MessageID != "" {
		processed, err := c.idempotencyStore.IsProcessed(ctx, event.MessageID)
		if err != nil {
			c.logger.Error("idempotency check failed", "message_id", event.MessageID, "error", err)
		} else if processed {
			c.commit(msg)
			return
		}
	}

	var sendErr error
	for attempt := 1; attempt <= c.maxRetries(); attempt++ {
		sendErr = c.sender.SendEmailEvent(event)
		if sendErr == nil {
			break
		}
		c.logger.Warn("email send failed",
			"message_id", event.MessageID,
			"recipient", event.Recipient,
			"attempt", attempt,
			"error", sendErr)
		time.Sleep(time.Duration(attempt) * time.Second)
	}

	if sendErr != nil {
		c.sendToDLQ(msg, fmt.Sprintf("send failed after %d attempts: %v", c.maxRetries(), sendErr))
		c.commit(msg)
		return
	}

	if event.MessageID != "" {
		if _, err := c.idempotencyStore.MarkAsProcessed(ctx, event); err != nil {
			c.logger.Error("failed to mark message as processed", "message_id", event.MessageID, "error", err)
		}
	}

	c.logger.Info("email event delivered",
		"message_id", event.MessageID,
		"type", event.EventType,
		"recipient", event.Recipient)
	c.commit(msg)
}

func (c *Consumer) maxRetries() int {
	if c.config.MaxRetries > 0 {
		return c.config.MaxRetries
	}
	return 3
}

func (c *Consumer) sendToDLQ(msg *kafka.Message, reason string) {
	headers := append(msg.Headers, kafka.Header{
		Key:   "dlq-reason",
		Value: []byte(reason),
	})

	err := c.dlqProducer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &c.config.DLQTopic,
			Partition: kafka.PartitionAny,
		},
		Value:   msg.Value,
		Headers: headers,
	}, nil)
	if err != nil {
		c.logger.Error("failed to produce to DLQ", "error", err)
	}
}

func (c *Consumer) commit(msg *kafka.Message) {
	if _, err := c.consumer.CommitMessage(msg); err != nil {
		c.logger.Error("failed to commit offset", "error", err)
	}
}

// Close shuts down the consumer and its DLQ producer.
func (c *Consumer) Close() {
	c.dlqProducer.Flush(3000)
	c.dlqProducer.Close()
	if err := c.consumer.Close(); err != nil {
		c.logger.Error("failed to close consumer", "error", err)
	}
}
