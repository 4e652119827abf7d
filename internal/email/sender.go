package email

import (
	"context"
	"errors"
	"time"
)

// Sender define la interfaz para el envío de correos transaccionales de cuenta.
type Sender interface {
	SendPasswordReset(ctx context.Context, toEmail string, resetURL string, validFor time.Duration) error
}

type disabledSender struct {
	reason string
}

// NewDisabledSender se usa cuando no hay SMTP configurado: todo envío falla.
func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendPasswordReset(_ context.Context, _ string, _ string, _ time.Duration) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
