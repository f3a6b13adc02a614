package email

import "time"

// Event types understood by the email worker
const (
	// EmailTypePasswordReset carries a password reset link
	EmailTypePasswordReset = "password-reset"
)

// EmailEvent is the message published by the API service and consumed by
// the email worker.
type EmailEvent struct {
	MessageID string                 `json:"message_id"`
	EventType string                 `json:"event_type"`
	Recipient string                 `json:"recipient"`
	Data      map[string]interface{} `json:"data"`
	CreatedAt time.Time              `json:"created_at"`
}

// EmailMetadata records when and to whom a deduplicated email was sent.
type EmailMetadata struct {
	SentAt    time.Time `json:"sent_at"`
	Recipient string    `json:"recipient"`
	EventType string    `json:"event_type"`
}
