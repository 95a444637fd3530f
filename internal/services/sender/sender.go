// Package sender доставляет почтовые события сервиса идентификации по SMTP.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/sl"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/smtp"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/models"
)

// ErrMalformedEvent сообщение не разбирается или имеет неизвестный тип.
// Повторная доставка такого сообщения ничего не изменит.
var ErrMalformedEvent = errors.New("malformed mail event")

// SenderService превращает MailEvent в письмо и отправляет его.
type SenderService struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(log *slog.Logger, transport smtp.TransportInterface) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// HandleMail обработчик сообщения из брокера.
func (s *SenderService) HandleMail(ctx context.Context, body []byte) error {
	const op = "sender.HandleMail"
	var event models.MailEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return fmt.Errorf("%s: %w: %w", op, ErrMalformedEvent, err)
	}
	if event.Email == "" || event.Link == "" {
		return fmt.Errorf("%s: %w: empty email or link", op, ErrMalformedEvent)
	}

	subject, text, err := compose(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.sendEmail(ctx, []string{event.Email}, subject, text); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("mail delivered", slog.String("type", event.Type), sl.Email(event.Email))
	return nil
}

func compose(event models.MailEvent) (subject, text string, err error) {
	name := event.Name
	if name == "" {
		name = "there"
	}
	switch event.Type {
	case models.MailVerification:
		subject = "Confirm your email address"
		text = fmt.Sprintf("Hello, %s!\n\nPlease confirm your email address by opening the link below:\n\n%s\n\n"+
			"If you did not create an account, you can ignore this message.", name, event.Link)
	case models.MailPasswordReset:
		subject = "Reset your password"
		text = fmt.Sprintf("Hello, %s!\n\nA password reset was requested for your account. Open the link below to choose a new password:\n\n%s\n",
			name, event.Link)
		if event.ExpiresAt != nil {
			text += fmt.Sprintf("\nThe link is valid until %s.\n", event.ExpiresAt.UTC().Format(time.RFC1123))
		}
		text += "\nIf you did not request a reset, you can ignore this message."
	default:
		return "", "", fmt.Errorf("%w: unknown type %q", ErrMalformedEvent, event.Type)
	}
	return subject, text, nil
}

func (s *SenderService) sendEmail(ctx context.Context, to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.GetSMTPUser(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect(ctx)
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.GetSMTPUser()); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", s.transport.GetSMTPUser()), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", sl.Email(addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}
	return nil
}
