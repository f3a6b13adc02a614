// Package email provides email sending for the application. It supports a
// development mode (log-only) and a production mode (SMTP), plus the Kafka
// consumer the email worker runs.
package email

import (
	"fmt"
	"log"
	"net/smtp"
	"os"
	"strconv"
)

// Sender defines the interface for sending emails
type Sender interface {
	SendPasswordResetLink(email, link string) error
	SendEmailEvent(event EmailEvent) error
}

// Config holds email configuration
type Config struct {
	Mode     string // "log" or "smtp"
	Host     string
	Port     int
	User     string
	Password string
	From     string
	FromName string
}

// NewConfig creates a new email configuration from environment variables
func NewConfig() *Config {
	port, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))

	return &Config{
		Mode:     getEnvOrDefault("EMAIL_MODE", "log"),
		Host:     os.Getenv("SMTP_HOST"),
		Port:     port,
		User:     os.Getenv("SMTP_USER"),
		Password: os.Getenv("SMTP_PASSWORD"),
		From:     getEnvOrDefault("SMTP_FROM", "noreply@jobtrackr.app"),
		FromName: getEnvOrDefault("SMTP_FROM_NAME", "JobTrackr"),
	}
}

// NewSender creates a new email sender based on configuration
func NewSender(cfg *Config) Sender {
	if cfg.Mode == "smtp" {
		return &smtpSender{config: cfg}
	}
	return &logSender{}
}

// logSender logs emails to console (development mode)
type logSender struct{}

func (s *logSender) SendPasswordResetLink(email, link string) error {
	log.Printf("[DEV] Password reset link for %s: %s (expires in 1 hour)", email, link)
	return nil
}

func (s *logSender) SendEmailEvent(event EmailEvent) error {
	switch event.EventType {
	case EmailTypePasswordReset:
		link, ok := event.Data["link"].(string)
		if !ok {
			return fmt.Errorf("invalid password reset link data")
		}
		return s.SendPasswordResetLink(event.Recipient, link)
	default:
		log.Printf("[DEV] Email event for %s: type=%s, data=%v", event.Recipient, event.EventType, event.Data)
		return nil
	}
}

// smtpSender sends emails via SMTP (production mode)
type smtpSender struct {
	config *Config
}

func (s *smtpSender) SendPasswordResetLink(email, link string) error {
	subject := "Reset your JobTrackr password"
	body := fmt.Sprintf(
		"Hello,\r\n\r\n"+
			"A password reset was requested for your account. Open the link below to choose a new password:\r\n\r\n"+
			"%s\r\n\r\n"+
			"The link expires in 1 hour. If you did not request this, you can ignore this email.\r\n",
		link,
	)
	return s.send(email, subject, body)
}

func (s *smtpSender) SendEmailEvent(event EmailEvent) error {
	switch event.EventType {
	case EmailTypePasswordReset:
		link, ok := event.Data["link"].(string)
		if !ok {
			return fmt.Errorf("invalid password reset link data")
		}
		return s.SendPasswordResetLink(event.Recipient, link)
	default:
		return fmt.Errorf("unknown email event type: %s", event.EventType)
	}
}

func (s *smtpSender) send(to, subject, body string) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	auth := smtp.PlainAuth("", s.config.User, s.config.Password, s.config.Host)

	msg := []byte(fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		s.config.FromName, s.config.From, to, subject, body,
	))

	if err := smtp.SendMail(addr, auth, s.config.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", to, err)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
