package service

import (
	"crypto/rand"
	"encoding/base64"

	"go.uber.org/zap"

	"collabhub/pkg/circuitbreaker"
	"collabhub/pkg/metrics"
)

// Mailer is the outbound email capability. Sends are fire-and-forget
// relative to the state transition that triggered them.
type Mailer interface {
	SendAccountProvisioned(email, fullName, password string) error
	SendSupport(email, subject, body string) error
}

// LogMailer stands in for a real SMTP/SendGrid backend. Every send goes
// through a circuit breaker so a struggling mail provider cannot pile up
// goroutines.
type LogMailer struct {
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewLogMailer(logger *zap.Logger) *LogMailer {
	return &LogMailer{
		breaker: circuitbreaker.New(circuitbreaker.DefaultConfig()),
		logger:  logger,
	}
}

func (m *LogMailer) SendAccountProvisioned(email, fullName, password string) error {
	err := m.breaker.Execute(func() error {
		m.logger.Info("Sending account provisioned email",
			zap.String("email", email),
			zap.String("full_name", fullName),
		)
		return nil
	})
	result := "ok"
	if err != nil {
		result = "failed"
	}
	metrics.NotificationDeliveryCount.WithLabelValues("email", result).Inc()
	return err
}

func (m *LogMailer) SendSupport(email, subject, body string) error {
	err := m.breaker.Execute(func() error {
		m.logger.Info("Sending support email",
			zap.String("email", email),
			zap.String("subject", subject),
		)
		return nil
	})
	result := "ok"
	if err != nil {
		result = "failed"
	}
	metrics.NotificationDeliveryCount.WithLabelValues("email", result).Inc()
	return err
}

// GenerateTemporaryPassword produces the random credential handed out
// when a phase finishes and project users get temporary accounts.
func GenerateTemporaryPassword() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
