package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"
)

// SMTPSender envia correos via SMTP.
type SMTPSender struct {
	from     string
	fromName string
	send     func(msgs ...*gomail.Message) error
}

func NewSMTPSender(host string, port int, username, password, from, fromName string, useTLS bool) (*SMTPSender, error) {
	if strings.TrimSpace(host) == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, fmt.Errorf("smtp from is required")
	}
	if port == 0 {
		port = 587
	}
	dialer := gomail.NewDialer(host, port, username, password)
	dialer.SSL = useTLS
	return &SMTPSender{
		from:     from,
		fromName: fromName,
		send:     dialer.DialAndSend,
	}, nil
}

// SendPasswordReset anuncia en el asunto la ventana de validez del secreto.
func (s *SMTPSender) SendPasswordReset(ctx context.Context, toEmail string, resetURL string, validFor time.Duration) error {
	if strings.TrimSpace(toEmail) == "" {
		return fmt.Errorf("to email is required")
	}
	if strings.TrimSpace(resetURL) == "" {
		return fmt.Errorf("reset url is required")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	minutes := int(validFor.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	subject := fmt.Sprintf("Your password reset token (valid for %d min)", minutes)
	body := fmt.Sprintf(
		"Forgot your password? Submit a PATCH request with your new password and passwordConfirm to: %s.\n"+
			"If you didn't forget your password, please ignore this email!\n",
		resetURL,
	)

	msg := gomail.NewMessage()
	if strings.TrimSpace(s.fromName) != "" {
		msg.SetAddressHeader("From", s.from, s.fromName)
	} else {
		msg.SetHeader("From", s.from)
	}
	msg.SetHeader("To", toEmail)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	if err := s.send(msg); err != nil {
		return fmt.Errorf("send password reset: %w", err)
	}
	return nil
}
