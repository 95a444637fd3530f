// Package notification собирает ссылки с одноразовыми токенами и публикует
// почтовые события в брокер. Доставку выполняет отдельный процесс mailer.
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/config"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/metrics"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/lib/sl"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/models"
)

// VerifyPath путь обработчика подтверждения почты.
const VerifyPath = "/api/v1/auth/verify"

// Publisher публикует почтовое событие. Реализации: rabbitmq.MailPublisher и kafka.Producer.
type Publisher interface {
	PublishMail(ctx context.Context, event models.MailEvent) error
}

// MailRecorder учитывает публикации в метриках.
type MailRecorder interface {
	MailPublished(mailType, outcome string)
}

// Service реализует отправку писем подтверждения и сброса пароля.
type Service struct {
	log       *slog.Logger
	publisher Publisher
	recorder  MailRecorder
	verifyURL *url.URL
	resetURL  *url.URL
}

// New проверяет базовые адреса из конфига и создает Service.
func New(log *slog.Logger, publisher Publisher, recorder MailRecorder, links config.Links) (*Service, error) {
	const op = "notification.New"
	verifyURL, err := url.Parse(strings.TrimRight(links.PublicBaseURL, "/") + VerifyPath)
	if err != nil {
		return nil, fmt.Errorf("%s: public_base_url: %w", op, err)
	}
	resetURL, err := url.Parse(links.ResetPageURL)
	if err != nil {
		return nil, fmt.Errorf("%s: reset_page_url: %w", op, err)
	}
	if !verifyURL.IsAbs() || !resetURL.IsAbs() {
		return nil, fmt.Errorf("%s: link base urls must be absolute", op)
	}
	return &Service{
		log:       log,
		publisher: publisher,
		recorder:  recorder,
		verifyURL: verifyURL,
		resetURL:  resetURL,
	}, nil
}

// VerificationLink ссылка подтверждения почты с токеном в query.
func (s *Service) VerificationLink(token string) string {
	return withToken(s.verifyURL, token)
}

// ResetLink ссылка на страницу сброса пароля с токеном в query.
func (s *Service) ResetLink(token string) string {
	return withToken(s.resetURL, token)
}

func withToken(base *url.URL, token string) string {
	u := *base
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// SendVerification публикует письмо со ссылкой подтверждения.
func (s *Service) SendVerification(ctx context.Context, user models.User, token string) error {
	return s.publish(ctx, models.MailEvent{
		Type:  models.MailVerification,
		Email: user.Email,
		Name:  user.Name,
		Link:  s.VerificationLink(token),
	})
}

// SendPasswordReset публикует письмо со ссылкой сброса и сроком ее действия.
func (s *Service) SendPasswordReset(ctx context.Context, user models.User, token string, expiresAt time.Time) error {
	expiry := expiresAt.UTC()
	return s.publish(ctx, models.MailEvent{
		Type:      models.MailPasswordReset,
		Email:     user.Email,
		Name:      user.Name,
		Link:      s.ResetLink(token),
		ExpiresAt: &expiry,
	})
}

func (s *Service) publish(ctx context.Context, event models.MailEvent) error {
	const op = "notification.publish"
	if err := s.publisher.PublishMail(ctx, event); err != nil {
		s.recorder.MailPublished(event.Type, metrics.OutcomeError)
		return fmt.Errorf("%s: %w", op, err)
	}
	s.recorder.MailPublished(event.Type, metrics.OutcomeSuccess)
	s.log.Debug("mail event published", slog.String("type", event.Type), sl.Email(event.Email))
	return nil
}
