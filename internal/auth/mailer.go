package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"jobtrackr/internal/email"
	"jobtrackr/internal/kafka"
)

// kafkaMailer publishes reset links to the email events topic, where the
// email worker picks them up.
type kafkaMailer struct {
	producer *kafka.Producer
	topic    string
}

// NewKafkaMailer creates a ResetMailer backed by the Kafka email pipeline.
func NewKafkaMailer(producer *kafka.Producer, topic string) ResetMailer {
	return &kafkaMailer{producer: producer, topic: topic}
}

func (m *kafkaMailer) PublishPasswordReset(ctx context.Context, recipient, link string) error {
	event := email.EmailEvent{
		MessageID: uuid.New().String(),
		EventType: email.EmailTypePasswordReset,
		Recipient: recipient,
		Data:      map[string]interface{}{"link": link},
		CreatedAt: time.Now(),
	}
	return m.producer.PublishEmailEvent(m.topic, event)
}

// directMailer sends reset links synchronously, used when Kafka is
// disabled.
type directMailer struct {
	sender email.Sender
}

// NewDirectMailer creates a ResetMailer that sends through the given Sender.
func NewDirectMailer(sender email.Sender) ResetMailer {
	return &directMailer{sender: sender}
}

func (m *directMailer) PublishPasswordReset(ctx context.Context, recipient, link string) error {
	return m.sender.SendPasswordResetLink(recipient, link)
}
